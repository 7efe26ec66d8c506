package serverutils

import (
	"strings"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/identity"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID      = "user_id"
	LocalEmail       = "email"
	LocalSessionID   = "session_id"
	LocalAccessToken = "access_token"
)

type TokenVerifier interface {
	Verify(raw string) (*identity.Claims, error)
}

// JwtMiddleware verifies the bearer token and stores the caller's identity
// in ctx.Locals.
func JwtMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return apperr.ErrAuthRequired
		}
		tokenStr := strings.TrimSpace(authHeader[7:])

		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			return err
		}

		SetIdentity(ctx, claims, tokenStr)
		return ctx.Next()
	}
}

func SetIdentity(ctx *fiber.Ctx, claims *identity.Claims, token string) {
	ctx.Locals(LocalUserID, claims.UserID)
	ctx.Locals(LocalEmail, claims.Email)
	ctx.Locals(LocalSessionID, claims.SessionID)
	ctx.Locals(LocalAccessToken, token)
}

// ClaimsFrom rebuilds the claims JwtMiddleware stored.
func ClaimsFrom(ctx *fiber.Ctx) (*identity.Claims, string, bool) {
	userID, _ := ctx.Locals(LocalUserID).(string)
	if userID == "" {
		return nil, "", false
	}
	email, _ := ctx.Locals(LocalEmail).(string)
	sessionID, _ := ctx.Locals(LocalSessionID).(string)
	token, _ := ctx.Locals(LocalAccessToken).(string)
	return &identity.Claims{UserID: userID, Email: email, SessionID: sessionID}, token, true
}
