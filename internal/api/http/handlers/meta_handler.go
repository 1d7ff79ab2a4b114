package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/location"
)

// MetaHandler serves the static catalogues used by complaint forms.
type MetaHandler struct {
	locations *location.Hierarchy
}

// NewMetaHandler constructs handler.
func NewMetaHandler(locations *location.Hierarchy) *MetaHandler {
	return &MetaHandler{locations: locations}
}

// Categories handles GET /api/meta/categories.
func (h *MetaHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.locations.Categories()})
}

// Locations handles GET /api/meta/locations.
func (h *MetaHandler) Locations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.locations.Provinces})
}
