package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldi/jobsite/internal/db"
	"github.com/ldi/jobsite/pkg/models"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return NewService(store, NewTokens(secret, time.Hour))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens(secret, 0)
	token, expires, err := tokens.Issue(&models.UserProfile{ID: "u1", Role: models.RoleForeman})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expires, time.Minute)

	actor, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: "u1", Role: models.RoleForeman}, actor)
}

func TestTokensReject(t *testing.T) {
	tokens := NewTokens(secret, time.Hour)
	token, _, err := tokens.Issue(&models.UserProfile{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	other := NewTokens([]byte("another-secret-another-secret!!"), time.Hour)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized), "expired")

	_, err = tokens.Parse("garbage")
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	bad, _, err := NewTokens(secret, time.Hour).Issue(&models.UserProfile{ID: "u1", Role: "superuser"})
	require.NoError(t, err)
	_, err = NewTokens(secret, time.Hour).Parse(bad)
	assert.True(t, errors.Is(err, models.ErrUnauthorized), "unknown role")
}

func TestNewUserValidate(t *testing.T) {
	valid := NewUser{Email: "dana@example.com", Password: "s3cretpass", FullName: "Dana Ruiz", Role: models.RoleEmployee}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*NewUser)
	}{
		{"bad email", func(n *NewUser) { n.Email = "dana" }},
		{"short password", func(n *NewUser) { n.Password = "short" }},
		{"missing name", func(n *NewUser) { n.FullName = "  " }},
		{"bad role", func(n *NewUser) { n.Role = "owner" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			assert.True(t, errors.Is(n.Validate(), models.ErrValidation))
		})
	}
}

func TestCreateUserAndLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	admin, err := s.Register(ctx, NewUser{Email: "boss@example.com", Password: "adminpass", FullName: "Pat Boss", Role: models.RoleAdmin})
	require.NoError(t, err)
	adminActor := models.Actor{UserID: admin.ID, Role: models.RoleAdmin}

	n := NewUser{Email: "crew@example.com", Password: "crewpass1", FullName: "Sam Crew", Role: models.RoleEmployee}
	_, err = s.CreateUser(ctx, models.Actor{UserID: "x", Role: models.RoleForeman}, n)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	u, err := s.CreateUser(ctx, adminActor, n)
	require.NoError(t, err)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = s.CreateUser(ctx, adminActor, n)
	assert.True(t, errors.Is(err, models.ErrValidation), "duplicate email")

	token, _, who, err := s.Login(ctx, "CREW@example.com", "crewpass1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)

	actor, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: u.ID, Role: models.RoleEmployee}, actor)

	_, _, _, err = s.Login(ctx, "crew@example.com", "nope")
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
	_, _, _, err = s.Login(ctx, "ghost@example.com", "crewpass1")
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestListUsers(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, NewUser{Email: "a@example.com", Password: "password1", FullName: "A", Role: models.RoleEmployee})
	require.NoError(t, err)

	users, err := s.ListUsers(ctx, models.Actor{Role: models.RoleForeman}, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.ListUsers(ctx, models.Actor{Role: models.RoleCustomer}, nil)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestMiddleware(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u, err := s.Register(ctx, NewUser{Email: "f@example.com", Password: "password1", FullName: "F", Role: models.RoleForeman})
	require.NoError(t, err)
	token, _, err := s.Tokens().Issue(u)
	require.NoError(t, err)

	var seen models.Actor
	h := s.Middleware(func(w http.ResponseWriter, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.Actor{UserID: u.ID, Role: models.RoleForeman}, seen)
}
