package serverutils

import (
	"errors"

	"linguabridge-gateway/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers further down the
// chain into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

// WriteError renders err with the status StatusFor picks.
func WriteError(ctx *fiber.Ctx, err error) error {
	status := StatusFor(err)
	res := ErrorResponse(status, err.Error())

	var verr *ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		res.Message = "Validation failed"
		res.ErrorCode = "validation_failed"
		res.Errors = verr.Fields
	case errors.As(err, &ferr):
		res.Message = ferr.Message
	default:
		res.ErrorCode = apperr.Code(err)
		if status == fiber.StatusInternalServerError {
			res.Message = "Internal server error"
		}
	}

	return ctx.Status(status).JSON(res)
}

func StatusFor(err error) int {
	var (
		verr       *ValidationError
		ferr       *fiber.Error
		metaErr    *apperr.UploadMetadataError
		backendErr *apperr.BackendUnavailableError
		idErr      *apperr.InvalidDocumentIdentityError
	)

	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.As(err, &ferr):
		return ferr.Code
	case errors.Is(err, apperr.ErrAuthRequired), errors.Is(err, apperr.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.As(err, &metaErr):
		return fiber.StatusBadGateway
	case errors.As(err, &backendErr):
		if backendErr.Status == fiber.StatusNotFound {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	case errors.As(err, &idErr):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrDocumentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrDocumentProcessing):
		return fiber.StatusConflict
	case errors.Is(err, apperr.ErrUnknownIntent),
		errors.Is(err, apperr.ErrInvalidFile),
		errors.Is(err, apperr.ErrEmptyMessage),
		errors.Is(err, apperr.ErrInvalidViewLanguage):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
