package blob

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired file token")

type urlClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// Signer issues and verifies time-limited access tokens for blob paths.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns an HS256 token granting read access to path until ttl elapses.
func (s *Signer) Sign(path string, ttl time.Duration) (string, time.Time, error) {
	expires := s.now().Add(ttl)
	claims := urlClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			Subject:   "blob",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign file token: %w", err)
	}
	return token, expires, nil
}

// Verify checks the token and returns the path it grants.
func (s *Signer) Verify(token string) (string, error) {
	claims := &urlClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != "blob" || claims.Path == "" {
		return "", ErrInvalidToken
	}
	return claims.Path, nil
}
