// Package auth handles passwords, session tokens and user provisioning.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/pkg/models"
)

const MinPasswordLength = 8

type Users interface {
	CreateUser(ctx context.Context, u *models.UserProfile) error
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	ListUsers(ctx context.Context, role *models.Role) ([]*models.UserProfile, error)
}

type NewUser struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

func (n *NewUser) Validate() error {
	n.Email = strings.TrimSpace(n.Email)
	n.FullName = strings.TrimSpace(n.FullName)
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", models.ErrValidation, n.Email)
	}
	if len(n.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}
	if n.FullName == "" {
		return fmt.Errorf("%w: full_name is required", models.ErrValidation)
	}
	if !n.Role.Valid() {
		return fmt.Errorf("%w: invalid role %q", models.ErrValidation, n.Role)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Service struct {
	users  Users
	tokens *Tokens
}

func NewService(users Users, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a user without an authorization check. It backs the
// admin endpoint and the CLI bootstrap.
func (s *Service) Register(ctx context.Context, n NewUser) (*models.UserProfile, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.users.GetUserByEmail(ctx, n.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", models.ErrValidation, n.Email)
	}

	hash, err := HashPassword(n.Password)
	if err != nil {
		return nil, err
	}
	u := &models.UserProfile{Email: n.Email, FullName: n.FullName, Role: n.Role, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: USER_CREATED, Description: created %s user %s", u.Role, u.Email)
	return u, nil
}

// CreateUser is Register restricted to admins.
func (s *Service) CreateUser(ctx context.Context, actor models.Actor, n NewUser) (*models.UserProfile, error) {
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may create users", models.ErrForbidden)
	}
	return s.Register(ctx, n)
}

// ListUsers is limited to company staff; it backs the assignee picker.
func (s *Service) ListUsers(ctx context.Context, actor models.Actor, role *models.Role) ([]*models.UserProfile, error) {
	if !actor.Role.IsCrew() {
		return nil, fmt.Errorf("%w: role %q may not list users", models.ErrForbidden, actor.Role)
	}
	return s.users.ListUsers(ctx, role)
}

// Login checks credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *models.UserProfile, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if u == nil || u.PasswordHash == "" || !CheckPassword(u.PasswordHash, password) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: failed login for %s", email)
		return "", time.Time{}, nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}
	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expires, u, nil
}

// Authenticate resolves a bearer token to a current actor. The role is
// re-read so demoted or deleted users lose access immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	actor, err := s.tokens.Parse(token)
	if err != nil {
		return models.Actor{}, err
	}
	u, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return models.Actor{}, err
	}
	if u == nil {
		return models.Actor{}, fmt.Errorf("%w: unknown user", models.ErrUnauthorized)
	}
	return models.Actor{UserID: u.ID, Role: u.Role}, nil
}
