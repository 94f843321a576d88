package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage/memory"
)

func newService() (*Service, *memory.Store) {
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
	store := memory.New()
	tokens := NewJWTManager("test-secret", time.Hour)
	return NewService(store, tokens, logger), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Ana García", "Ana@Example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if token == "" {
		t.Error("register should issue a token")
	}

	logged, token2, err := svc.Login(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("login returned %s, want %s", logged.ID, user.ID)
	}
	if token2 == "" {
		t.Error("login should issue a token")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{name: "empty name", userName: "", email: "a@example.com", password: "secret1"},
		{name: "bad email", userName: "Ana", email: "not-an-email", password: "secret1"},
		{name: "email without domain", userName: "Ana", email: "ana@", password: "secret1"},
		{name: "short password", userName: "Ana", email: "a@example.com", password: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err := svc.Register(ctx, "Otra Ana", "ANA@example.com", "secret2")
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Unknown email and wrong password fail identically.
	if _, _, err := svc.Login(ctx, "ghost@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("token resolved to %s, want %s", got.ID, user.ID)
	}

	if _, err := svc.VerifyToken(ctx, "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	tokens := NewJWTManager("test-secret", -time.Minute)
	token, err := tokens.Generate("u1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	a := NewJWTManager("secret-a", time.Hour)
	b := NewJWTManager("secret-b", time.Hour)

	token, err := a.Generate("u1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("cross-secret token: got %v", err)
	}
}
