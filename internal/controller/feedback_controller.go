// FILE: internal/controller/feedback_controller.go
package controller

import (
	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IFeedbackController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Submit(ctx *fiber.Ctx) error
}

type feedbackController struct {
	sessions service.ISessionService
	feedback service.IFeedbackService
}

func NewFeedbackController(sessions service.ISessionService, feedback service.IFeedbackService) IFeedbackController {
	return &feedbackController{sessions: sessions, feedback: feedback}
}

func (c *feedbackController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Post("/feedback", authMiddleware, c.Submit)
}

func (c *feedbackController) Submit(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	if err := c.feedback.Submit(ctx.UserContext(), sess, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Thank you for your feedback!", nil))
}
