package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/pkg/logger"
)

type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "X-User-ID header is required",
		})
	}

	response, err := h.engine.Search(c.Context(), search.Request{
		Query:  req.Query,
		UserID: userID,
	})
	if err != nil {
		logger.Error("Failed to process search", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process search",
		})
	}

	return c.JSON(response)
}

func (h *SearchHandler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.engine.CacheStats())
}
