package service

import (
	"errors"
	"testing"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

func createTestAdmin(t *testing.T, env *loyaltyTestEnv, username, password string, active bool) *models.Admin {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{
		Username: username,
		Password: string(hashed),
		Role:     constants.AdminRoleOperator,
		IsActive: active,
	}
	if err := env.db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func newTestAuthService(env *loyaltyTestEnv) *AuthService {
	return NewAuthService(repository.NewAdminRepository(env.db), config.JWTConfig{
		SecretKey:   "unit-test-secret-key-0123456789abcdef",
		ExpireHours: 1,
	})
}

func TestLoginIssuesValidToken(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	createTestAdmin(t, env, "ops_admin", "s3cret-pass", true)
	svc := newTestAuthService(env)

	token, admin, err := svc.Login("ops_admin", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || admin.LastLogin == nil {
		t.Fatalf("unexpected login result: token=%q admin=%+v", token, admin)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "ops_admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailures(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	createTestAdmin(t, env, "present", "right-pass", true)
	createTestAdmin(t, env, "frozen", "right-pass", false)
	svc := newTestAuthService(env)

	if _, _, err := svc.Login("missing", "x"); !errors.Is(err, ErrAdminNotFound) {
		t.Fatalf("expected admin not found, got: %v", err)
	}
	if _, _, err := svc.Login("present", "wrong-pass"); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("expected password incorrect, got: %v", err)
	}
	if _, _, err := svc.Login("frozen", "right-pass"); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected admin disabled, got: %v", err)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	createTestAdmin(t, env, "signer", "pass-word-1", true)
	svc := newTestAuthService(env)

	token, _, err := svc.Login("signer", "pass-word-1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := svc.ParseToken(token + "x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got: %v", err)
	}

	other := NewAuthService(repository.NewAdminRepository(env.db), config.JWTConfig{
		SecretKey: "another-secret-key-entirely-different",
	})
	if _, err := other.ParseToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token invalid across secrets, got: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	admin := createTestAdmin(t, env, "rotator", "old-pass-123", true)
	svc := newTestAuthService(env)

	if err := svc.ChangePassword(admin.ID, "wrong", "new-pass-456"); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("expected password incorrect, got: %v", err)
	}
	if err := svc.ChangePassword(admin.ID, "old-pass-123", "new-pass-456"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, _, err := svc.Login("rotator", "old-pass-123"); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, _, err := svc.Login("rotator", "new-pass-456"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}
