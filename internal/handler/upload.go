package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/voicetranslator/api/internal/model"
	"github.com/voicetranslator/api/internal/service"
	"github.com/voicetranslator/api/pkg/response"
)

type UploadHandler struct {
	service   *service.TranslationService
	validator *validator.Validate
}

func NewUploadHandler(svc *service.TranslationService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/uploads — hands out a presigned PUT URL for a new
// source recording.
func (h *UploadHandler) Create(c *fiber.Ctx) error {
	var req model.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.CreateUpload(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}
