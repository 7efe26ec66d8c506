package controller

import (
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// currentSession resolves the live session of the authenticated caller.
// Routes using it sit behind the JWT middleware.
func currentSession(ctx *fiber.Ctx, sessions service.ISessionService) (*store.Session, error) {
	claims, token, ok := serverutils.ClaimsFrom(ctx)
	if !ok {
		return nil, apperr.ErrAuthRequired
	}
	return sessions.Resolve(ctx.UserContext(), claims, token), nil
}
