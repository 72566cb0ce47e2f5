package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/metrics"
	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/internal/storage/models"
	"github.com/medfolio/backend/internal/storage/sqlite"
	"github.com/medfolio/backend/pkg/logger"
)

// DocumentHandler owns the mutation paths. Every successful write evicts
// the owner's cached search results through the engine.
type DocumentHandler struct {
	store  *sqlite.Client
	engine *search.Engine
}

func NewDocumentHandler(store *sqlite.Client, engine *search.Engine) *DocumentHandler {
	return &DocumentHandler{store: store, engine: engine}
}

func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "X-User-ID header is required",
		})
	}

	var doc models.DocumentRecord
	if err := c.BodyParser(&doc); err != nil {
		logger.Error("Failed to parse document body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.OwnerID = userID

	if err := h.store.InsertDocument(c.Context(), &doc); err != nil {
		logger.Error("Failed to insert document", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	metrics.DocumentMutations.WithLabelValues("create").Inc()
	h.engine.OnDocumentMutated(c.Context(), userID)

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "X-User-ID header is required",
		})
	}

	var body struct {
		DisplayName    *string                `json:"display_name"`
		Category       *string                `json:"category"`
		Notes          *string                `json:"notes"`
		Status         *string                `json:"status"`
		SearchSummary  *string                `json:"search_summary"`
		StructuredData map[string]interface{} `json:"structured_data"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	patch := models.DocumentPatch{
		DisplayName:    body.DisplayName,
		Category:       body.Category,
		Notes:          body.Notes,
		Status:         body.Status,
		SearchSummary:  body.SearchSummary,
		StructuredData: body.StructuredData,
	}

	updated, err := h.store.UpdateDocument(c.Context(), c.Params("id"), userID, patch)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		logger.Error("Failed to update document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update document",
		})
	}

	metrics.DocumentMutations.WithLabelValues("update").Inc()
	h.engine.OnDocumentMutated(c.Context(), userID)

	return c.JSON(updated)
}

func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "X-User-ID header is required",
		})
	}

	if err := h.store.DeleteDocument(c.Context(), c.Params("id"), userID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		logger.Error("Failed to delete document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}

	metrics.DocumentMutations.WithLabelValues("delete").Inc()
	h.engine.OnDocumentMutated(c.Context(), userID)

	return c.SendStatus(fiber.StatusNoContent)
}
