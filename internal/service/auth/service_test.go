package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/storage/memory"
)

const testSecret = "test-secret"

func newService() *Service {
	return New(memory.New(), testSecret, 30*time.Minute, nil)
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, token, err := svc.Register(ctx, "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("user id not assigned")
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Fatalf("password stored in plain text")
	}
	if token == "" {
		t.Fatalf("no token issued")
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != u.ID || claims.Login != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	logged, token2, err := svc.Login(ctx, "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("login returned wrong user: %d", logged.ID)
	}
	if token2 == "" {
		t.Fatalf("login issued no token")
	}
}

func TestService_RegisterDuplicateLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "s3cret-pass"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := svc.Register(ctx, "alice", "another-pass")
	if !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
}

func TestService_LoginFailures(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "s3cret-pass"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown login: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_VerifyTokenRejectsForgedToken(t *testing.T) {
	svc := newService()
	other := New(memory.New(), "different-secret", 30*time.Minute, nil)

	_, token, err := other.Register(context.Background(), "mallory", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestService_VerifyTokenRejectsExpired(t *testing.T) {
	svc := New(memory.New(), testSecret, -time.Minute, nil)

	_, token, err := svc.Register(context.Background(), "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "", "s3cret-pass"); err == nil {
		t.Fatalf("empty login accepted")
	}
	if _, _, err := svc.Register(ctx, "alice", ""); err == nil {
		t.Fatalf("empty password accepted")
	}
	if _, _, err := svc.Register(ctx, strings.Repeat("a", 51), "s3cret-pass"); err == nil {
		t.Fatalf("overlong login accepted")
	}
	if _, _, err := svc.Register(ctx, "alice", strings.Repeat("p", 73)); err == nil {
		t.Fatalf("overlong password accepted")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("wrong password accepted")
	}
}
