// FILE: internal/controller/chat_controller.go
package controller

import (
	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Transcript(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
}

type chatController struct {
	sessions service.ISessionService
	chat     service.IChatService
}

func NewChatController(sessions service.ISessionService, chat service.IChatService) IChatController {
	return &chatController{sessions: sessions, chat: chat}
}

func (c *chatController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/chat")
	h.Use(authMiddleware)
	h.Get("", c.Transcript)
	h.Post("", c.Send)
}

func (c *chatController) Transcript(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat transcript", c.chat.Transcript(sess)))
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
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

	res, err := c.chat.Send(ctx.UserContext(), sess, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}
