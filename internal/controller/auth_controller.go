// FILE: internal/controller/auth_controller.go
package controller

import (
	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"
	"linguabridge-gateway/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	SignIn(ctx *fiber.Ctx) error
	SignUp(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
	SignOut(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/auth")
	h.Post("/signin", c.SignIn)
	h.Post("/signup", c.SignUp)
	h.Get("/session", authMiddleware, c.Session)
	h.Post("/signout", authMiddleware, c.SignOut)
}

func (c *authController) SignIn(ctx *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.SignIn(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed in", res))
}

func (c *authController) SignUp(ctx *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.SignUp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	msg := "Signed up"
	if res.ConfirmationRequired {
		msg = "Check your email to confirm your account"
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse(msg, res))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	_, token, ok := serverutils.ClaimsFrom(ctx)
	if !ok {
		return apperr.ErrAuthRequired
	}

	user, err := c.service.CurrentUser(ctx.UserContext(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session is active", user))
}

func (c *authController) SignOut(ctx *fiber.Ctx) error {
	claims, token, ok := serverutils.ClaimsFrom(ctx)
	if !ok {
		return apperr.ErrAuthRequired
	}

	if err := c.service.SignOut(ctx.UserContext(), claims, token); err != nil {
		// Local state is gone either way; the provider token simply expires.
		return ctx.JSON(serverutils.SuccessResponse("Signed out locally", nil))
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed out", nil))
}
