package handlers

import (
	"io"
	"strings"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/framehire/framehire-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// maxUploadSize caps portfolio and document uploads at 20 MiB.
const maxUploadSize = 20 << 20

var allowedDocumentTypes = map[string]bool{
	"portfolio": true,
	"avatar":    true,
	"document":  true,
}

type UploadHandler struct {
	uploader *storage.Uploader
}

func NewUploadHandler(uploader *storage.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload stores one multipart file under the authenticated user's prefix.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	if h.uploader == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "File uploads are not configured",
		})
	}

	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	documentType := strings.ToLower(c.FormValue("document_type", "document"))
	if !allowedDocumentTypes[documentType] {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid document_type: " + documentType,
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "A file is required",
		})
	}
	if fileHeader.Size > maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{
			Error: true, Message: "File exceeds the 20MB limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read file",
		})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.uploader.Upload(c.UserContext(), documentType, userID, fileHeader.Filename, contentType, data)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Upload failed",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
