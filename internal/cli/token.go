// Package cli implements the user-facing commands of the tazachat binary.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/config"
)

// tokenExpiryGrace rejects tokens that expire too soon to be useful for a
// session.
const tokenExpiryGrace = 1 * time.Minute

// accessClaims mirrors the claims the chat backend signs into access tokens.
type accessClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the local user's identity from an access token.
//
// The signature is not verified; the server remains authoritative and will
// reject a forged token with a 401. This is only used for client-side
// bookkeeping (own-message detection, display).
func ParseIdentity(token string) (api.User, error) {
	parser := jwt.NewParser()
	claims := &accessClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return api.User{}, fmt.Errorf("%w: malformed access token: %v", api.ErrAuth, err)
	}
	if claims.UserID == "" {
		return api.User{}, fmt.Errorf("%w: access token has no user id", api.ErrAuth)
	}
	return api.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// tokenExpiresAt returns the expiry encoded in the token, if present.
func tokenExpiresAt(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := &accessClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SaveAccessToken validates and stores an access token for later sessions.
func SaveAccessToken(cfg *config.Config, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", api.ErrAuth)
	}
	if _, err := ParseIdentity(token); err != nil {
		return err
	}
	if exp, ok := tokenExpiresAt(token); ok && time.Until(exp) <= 0 {
		return fmt.Errorf("%w: token already expired at %s", api.ErrAuth, exp.Format(time.RFC3339))
	}
	if err := os.WriteFile(cfg.AccessKey, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write access token: %w", err)
	}
	return nil
}

// EnsureAccessToken loads the stored access token and rejects one that is
// missing or expired. The chat backend has no client-side refresh flow, so an
// expired token means running `tazachat auth` again.
func EnsureAccessToken(cfg *config.Config) (string, error) {
	data, err := os.ReadFile(cfg.AccessKey)
	if err != nil {
		return "", fmt.Errorf("%w: missing %s; run `tazachat auth <token>` first", api.ErrAuth, cfg.AccessKey)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: empty %s; run `tazachat auth <token>` first", api.ErrAuth, cfg.AccessKey)
	}
	if exp, ok := tokenExpiresAt(token); ok && time.Until(exp) <= tokenExpiryGrace {
		return "", fmt.Errorf("%w: access token expired %s; run `tazachat auth <token>` again", api.ErrAuth, exp.Format(time.RFC3339))
	}
	return token, nil
}
