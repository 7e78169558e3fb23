package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/asc360/operator-portal/internal/config"
	"github.com/asc360/operator-portal/internal/identity"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})

	user := identity.User{ID: "user-1", Email: "a@example.com", Role: "operator"}
	token, expiresIn, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", expiresIn)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" || claims.Role != "operator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewService(config.Config{JWTSecret: "secret-a", AccessTokenTTL: time.Hour})
	verifier := NewService(config.Config{JWTSecret: "secret-b", AccessTokenTTL: time.Hour})

	token, _, err := issuer.Issue(identity.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: -time.Minute})

	token, _, err := svc.Issue(identity.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})
	if _, err := svc.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
