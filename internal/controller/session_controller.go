// FILE: internal/controller/session_controller.go
package controller

import (
	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	State(ctx *fiber.Ctx) error
	Intent(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessions service.ISessionService
	intents  service.IIntentService
}

func NewSessionController(sessions service.ISessionService, intents service.IIntentService) ISessionController {
	return &sessionController{sessions: sessions, intents: intents}
}

func (c *sessionController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/session")
	h.Use(authMiddleware)
	h.Get("/state", c.State)
	h.Post("/intents", c.Intent)
}

func (c *sessionController) State(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session state", sess.Snapshot()))
}

// Intent applies one widget intent and waits for its backend follow-up.
func (c *sessionController) Intent(ctx *fiber.Ctx) error {
	var req dto.IntentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	snap, err := c.intents.Apply(ctx.UserContext(), sess, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Intent applied", snap))
}
