package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/model"
	"github.com/voicetranslator/api/internal/service"
	"github.com/voicetranslator/api/internal/store"
	"github.com/voicetranslator/api/pkg/response"
)

type TranslationHandler struct {
	service   *service.TranslationService
	validator *validator.Validate
}

func NewTranslationHandler(svc *service.TranslationService, v *validator.Validate) *TranslationHandler {
	return &TranslationHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/translations — triggers a new pipeline execution
// and answers immediately with the job and execution identifiers.
func (h *TranslationHandler) Start(c *fiber.Ctx) error {
	var req model.TranslationStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Start(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrUnsupportedLanguage):
			return response.ValidationError(c, "Unsupported target language", nil)
		case errors.Is(err, client.ErrAudioNotFound):
			return response.ValidationError(c, "Source audio does not exist or is empty", nil)
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/translations/:jobId
func (h *TranslationHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Get(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// List handles GET /api/translations
func (h *TranslationHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	cursor := c.Query("cursor")
	pageSize := c.QueryInt("pageSize")

	result, err := h.service.List(c.Context(), status, cursor, pageSize)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.OK(c, result)
}

// Languages handles GET /api/languages
func (h *TranslationHandler) Languages(c *fiber.Ctx) error {
	return response.OK(c, h.service.Languages())
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
