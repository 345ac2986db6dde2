package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/config"
)

func signTestToken(t *testing.T, userID, username string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	return &config.Config{
		TazaHome:  home,
		AccessKey: filepath.Join(home, "access.key"),
	}
}

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	token := signTestToken(t, "u1", "farhan", time.Now().Add(time.Hour))
	identity, err := ParseIdentity(token)
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if identity.ID != "u1" || identity.Username != "farhan" {
		t.Fatalf("identity=%+v", identity)
	}
}

func TestParseIdentityRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseIdentity("not-a-jwt"); !errors.Is(err, api.ErrAuth) {
		t.Fatalf("err=%v, want ErrAuth", err)
	}
}

func TestSaveAndEnsureAccessToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	token := signTestToken(t, "u1", "farhan", time.Now().Add(time.Hour))

	if err := SaveAccessToken(cfg, token); err != nil {
		t.Fatalf("SaveAccessToken failed: %v", err)
	}

	info, err := os.Stat(cfg.AccessKey)
	if err != nil {
		t.Fatalf("stat access key: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("access key mode=%v, want 0600", info.Mode().Perm())
	}

	loaded, err := EnsureAccessToken(cfg)
	if err != nil {
		t.Fatalf("EnsureAccessToken failed: %v", err)
	}
	if loaded != token {
		t.Fatalf("token mismatch")
	}
}

func TestEnsureAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	token := signTestToken(t, "u1", "farhan", time.Now().Add(time.Hour))
	if err := SaveAccessToken(cfg, token); err != nil {
		t.Fatalf("SaveAccessToken failed: %v", err)
	}

	// Overwrite with an expired token; Save would reject it.
	expired := signTestToken(t, "u1", "farhan", time.Now().Add(-time.Hour))
	if err := os.WriteFile(cfg.AccessKey, []byte(expired), 0o600); err != nil {
		t.Fatalf("write expired token: %v", err)
	}

	if _, err := EnsureAccessToken(cfg); !errors.Is(err, api.ErrAuth) {
		t.Fatalf("err=%v, want ErrAuth", err)
	}
}

func TestEnsureAccessTokenMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := EnsureAccessToken(testConfig(t)); !errors.Is(err, api.ErrAuth) {
		t.Fatalf("err=%v, want ErrAuth", err)
	}
}
