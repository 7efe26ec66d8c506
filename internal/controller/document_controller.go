// FILE: internal/controller/document_controller.go
package controller

import (
	"fmt"
	"io"
	"mime/multipart"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	List(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	File(ctx *fiber.Ctx) error
	Audio(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
}

type documentController struct {
	sessions  service.ISessionService
	documents service.IDocumentService
	uploads   service.IUploadService
	files     service.IFileService
}

func NewDocumentController(
	sessions service.ISessionService,
	documents service.IDocumentService,
	uploads service.IUploadService,
	files service.IFileService,
) IDocumentController {
	return &documentController{
		sessions:  sessions,
		documents: documents,
		uploads:   uploads,
		files:     files,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/documents")
	h.Use(authMiddleware)
	h.Get("", c.List)
	h.Post("/upload", c.Upload)
	h.Post("/:id/select", c.Select)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/file", c.File)
	h.Get("/:id/audio", c.Audio)
	h.Get("/:id/download", c.Download)
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	docs, err := c.documents.List(ctx.UserContext(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents", dto.DocumentListResponse{Documents: docs}))
}

// Upload accepts multipart field "file". By default it answers 202 with the
// placeholder as soon as the upload starts; ?wait=true holds the response
// until the backend reports the durable identity.
func (c *documentController) Upload(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperr.ErrInvalidFile
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		return err
	}

	if ctx.QueryBool("wait") {
		id, err := c.uploads.Run(ctx.UserContext(), sess, fileHeader.Filename, data)
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Upload complete", dto.UploadResultResponse{
			DocumentID: id,
			State:      sess.Coordinator.Snapshot(),
		}))
	}

	placeholder, err := c.uploads.Begin(ctx.UserContext(), sess, fileHeader.Filename, data)
	if err != nil {
		return err
	}
	res := serverutils.SuccessResponse("Upload started", dto.UploadAcceptedResponse{
		PlaceholderID: placeholder,
		Filename:      fileHeader.Filename,
	})
	res.Code = fiber.StatusAccepted
	return ctx.Status(fiber.StatusAccepted).JSON(res)
}

func (c *documentController) Select(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	snap, err := c.documents.Select(ctx.UserContext(), sess, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document selected", snap))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	sess, err := currentSession(ctx, c.sessions)
	if err != nil {
		return err
	}

	snap, err := c.documents.Delete(ctx.UserContext(), sess, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document deleted", snap))
}

func (c *documentController) File(ctx *fiber.Ctx) error {
	var q dto.FileQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(&q); err != nil {
		return err
	}

	stream, err := c.files.File(ctx.UserContext(), ctx.Params("id"), q.Lang)
	if err != nil {
		return err
	}
	return sendStream(ctx, stream)
}

func (c *documentController) Audio(ctx *fiber.Ctx) error {
	stream, err := c.files.Audio(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return sendStream(ctx, stream)
}

func (c *documentController) Download(ctx *fiber.Ctx) error {
	stream, err := c.files.TranslationPDF(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return sendStream(ctx, stream)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.ErrInvalidFile
	}
	defer f.Close()
	return io.ReadAll(f)
}

// sendStream hands the backend body to fasthttp, which closes it once sent.
func sendStream(ctx *fiber.Ctx, stream *backend.Stream) error {
	if stream.ContentType != "" {
		ctx.Set(fiber.HeaderContentType, stream.ContentType)
	}
	if stream.Filename != "" {
		ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", stream.Filename))
	}
	size := -1
	if stream.ContentLength >= 0 {
		size = int(stream.ContentLength)
	}
	return ctx.SendStream(stream.Body, size)
}
