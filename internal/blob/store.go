// Package blob stores uploaded files under a root directory and hands out
// signed, time-limited URLs for them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

// DefaultURLTTL is how long a signed URL stays valid.
const DefaultURLTTL = time.Hour

type Store struct {
	root   string
	signer *Signer
}

func NewStore(root string, signer *Signer) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob root: %w", err)
	}
	return &Store{root: abs, signer: signer}, nil
}

// clean normalizes a blob path and rejects paths escaping the root.
func clean(p string) (string, error) {
	if p == "" || strings.ContainsRune(p, 0) || strings.Contains(p, `\`) {
		return "", fmt.Errorf("%w: invalid blob path %q", models.ErrValidation, p)
	}
	c := path.Clean("/" + p)[1:]
	if c == "" || c != strings.TrimPrefix(p, "/") {
		return "", fmt.Errorf("%w: invalid blob path %q", models.ErrValidation, p)
	}
	return c, nil
}

func (s *Store) resolve(p string) (string, error) {
	c, err := clean(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(c)), nil
}

// Put writes r to p atomically and returns the number of bytes written.
func (s *Store) Put(ctx context.Context, p string, r io.Reader) (int64, error) {
	full, err := s.resolve(p)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close blob: %w", err)
	}
	name := tmp.Name()
	tmp = nil
	if err := os.Rename(name, full); err != nil {
		os.Remove(name)
		return 0, fmt.Errorf("failed to store blob: %w", err)
	}
	return n, nil
}

// Get opens the blob at p. Missing blobs return models.ErrNotFound.
func (s *Store) Get(ctx context.Context, p string) (*os.File, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", p, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob at p. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// SignedURL returns a relative URL serving p for ttl.
func (s *Store) SignedURL(p string, ttl time.Duration) (string, time.Time, error) {
	c, err := clean(p)
	if err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	token, expires, err := s.signer.Sign(c, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	segments := strings.Split(c, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/files/" + strings.Join(segments, "/") + "?token=" + url.QueryEscape(token), expires, nil
}

// Authorize checks that token grants access to p.
func (s *Store) Authorize(p, token string) error {
	c, err := clean(p)
	if err != nil {
		return err
	}
	granted, err := s.signer.Verify(token)
	if err != nil {
		return err
	}
	if granted != c {
		return ErrInvalidToken
	}
	return nil
}

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// Ext returns the lower-cased extension of a client file name, or "bin" when
// it is missing or not 1-8 ASCII letters and digits.
func Ext(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if !extPattern.MatchString(ext) {
		return "bin"
	}
	return ext
}

// NewPath builds a unique path "{project}/{kind}/{unixms}-{rand}.{ext}".
// Unsafe extensions become "bin".
func NewPath(projectID, kind, ext string, now time.Time) string {
	ext = Ext("." + strings.TrimPrefix(ext, "."))
	return fmt.Sprintf("%s/%s/%d-%s.%s", projectID, kind, now.UnixMilli(), uuid.NewString()[:8], ext)
}
