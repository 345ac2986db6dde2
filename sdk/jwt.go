package sdk

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

// accessClaims mirrors the claims the chat backend signs into access tokens.
type accessClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// identityFromToken extracts the local user's identity from an access token.
//
// The signature is not verified. This is only used for client bookkeeping
// (own-message detection, display); the server is authoritative and will 401
// on a forged token.
func identityFromToken(token string) (api.User, error) {
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
