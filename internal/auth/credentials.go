// Package auth handles account registration, credential checks and session
// tokens.
package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", core.ErrValidation)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least 6 characters", core.ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email address", core.ErrValidation)
)

// Service registers accounts and validates logins.
type Service struct {
	store  storage.Store
	tokens *JWTManager
	logger *log.Logger
}

func NewService(store storage.Store, tokens *JWTManager, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account and returns the user with a fresh session
// token. A duplicate email surfaces as core.ErrConflict.
func (s *Service) Register(ctx context.Context, name, email, password string) (*core.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", core.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user, string(hash)); err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldUserID, user.ID,
		log.FieldEmail, user.Email)
	return user, token, nil
}

// Login checks the password against the stored hash and returns the user
// with a session token. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*core.User, string, error) {
	email = normalizeEmail(email)

	user, hash, err := s.store.GetUserCredentials(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed, unknown email", log.FieldEmail, email)
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login failed, bad password", log.FieldEmail, email)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID)
	return user, token, nil
}

// VerifyToken resolves a bearer token to the user it was issued for.
func (s *Service) VerifyToken(ctx context.Context, token string) (*core.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
