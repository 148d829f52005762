package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
	"github.com/taekabu/linkfan/internal/app/service"
	"github.com/taekabu/linkfan/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the admin API handlers.
type APIDeps struct {
	Logger *zap.Logger
	Links  service.LinkService
}

// APIHandler implements the authenticated management API.
type APIHandler struct {
	logger *zap.Logger
	links  service.LinkService
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger: logger,
		links:  deps.Links,
	}
}

// Register wires the admin routes behind the auth middleware.
func (h *APIHandler) Register(router fiber.Router, requireAuth fiber.Handler) {
	api := router.Group("/api", requireAuth)
	{
		api.Get("/main-links", h.ListMainLinks)
		api.Post("/main-links", h.CreateMainLink)
		api.Put("/main-links/:id", h.UpdateMainLink)
		api.Delete("/main-links/:id", h.DeleteMainLink)

		api.Get("/main-links/:id/destinations", h.ListDestinations)
		api.Post("/main-links/:id/destinations", h.CreateDestination)
		api.Put("/destinations/:id", h.UpdateDestination)
		api.Delete("/destinations/:id", h.DeleteDestination)

		api.Put("/user/slug", h.UpdateUserSlug)
	}
}

// MainLinkResponse is the API view of a main link.
type MainLinkResponse struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Mode      string    `json:"mode"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// DestinationResponse is the API view of a destination with its counters.
type DestinationResponse struct {
	ID                int64                    `json:"id"`
	Slug              string                   `json:"slug"`
	URL               string                   `json:"url"`
	IsActive          bool                     `json:"is_active"`
	CreatedAt         time.Time                `json:"created_at"`
	Clicks            int64                    `json:"clicks"`
	Conversions       int64                    `json:"conversions"`
	ConversionSetting *model.ConversionSetting `json:"conversion_setting"`
}

func mainLinkResponse(link *model.MainLink) MainLinkResponse {
	return MainLinkResponse{
		ID:        link.ID,
		Slug:      link.Slug,
		Mode:      link.Mode,
		Icon:      link.Icon,
		CreatedAt: link.CreatedAt,
	}
}

// ListMainLinks handles GET /api/main-links.
func (h *APIHandler) ListMainLinks(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)

	links, err := h.links.ListMainLinks(requestContext(c), user.ID)
	if err != nil {
		h.logger.Error("failed to list main links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch main links",
		})
	}

	response := make([]MainLinkResponse, len(links))
	for i := range links {
		response[i] = mainLinkResponse(&links[i])
	}
	return c.JSON(fiber.Map{"main_links": response})
}

// CreateMainLinkRequest is the body of POST /api/main-links.
type CreateMainLinkRequest struct {
	Slug string `json:"slug"`
	Icon string `json:"icon,omitempty"`
}

// CreateMainLink handles POST /api/main-links.
func (h *APIHandler) CreateMainLink(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)

	var req CreateMainLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Slug is required",
		})
	}

	link, err := h.links.CreateMainLink(requestContext(c), user, service.CreateMainLinkInput{
		Slug: req.Slug,
		Icon: req.Icon,
	})
	if err != nil {
		return h.mutationError(c, "failed to create main link", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"main_link": mainLinkResponse(link),
	})
}

// UpdateMainLinkRequest is the body of PUT /api/main-links/:id.
type UpdateMainLinkRequest struct {
	Mode *string `json:"mode,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// UpdateMainLink handles PUT /api/main-links/:id.
func (h *APIHandler) UpdateMainLink(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var req UpdateMainLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Mode == nil && req.Icon == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	if err := h.links.UpdateMainLink(requestContext(c), user.ID, id, service.UpdateMainLinkInput{
		Mode: req.Mode,
		Icon: req.Icon,
	}); err != nil {
		return h.mutationError(c, "failed to update main link", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteMainLinkRequest is the body of DELETE /api/main-links/:id.
type DeleteMainLinkRequest struct {
	ConfirmSlug string `json:"confirm_slug"`
}

// DeleteMainLink handles DELETE /api/main-links/:id. The owner slug must
// be repeated in the body as a confirmation.
func (h *APIHandler) DeleteMainLink(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var req DeleteMainLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.links.DeleteMainLink(requestContext(c), user, id, req.ConfirmSlug); err != nil {
		return h.mutationError(c, "failed to delete main link", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListDestinations handles GET /api/main-links/:id/destinations.
func (h *APIHandler) ListDestinations(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	stats, err := h.links.ListDestinations(requestContext(c), user.ID, id)
	if err != nil {
		return h.mutationError(c, "failed to list destinations", err)
	}

	response := make([]DestinationResponse, len(stats))
	for i, s := range stats {
		response[i] = DestinationResponse{
			ID:                s.ID,
			Slug:              s.Slug,
			URL:               s.URL,
			IsActive:          s.IsActive,
			CreatedAt:         s.CreatedAt,
			Clicks:            s.Clicks,
			Conversions:       s.Conversions,
			ConversionSetting: s.ConversionSetting,
		}
	}
	return c.JSON(fiber.Map{"destinations": response})
}

// CreateDestinationRequest is the body of
// POST /api/main-links/:id/destinations.
type CreateDestinationRequest struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// CreateDestination handles POST /api/main-links/:id/destinations.
func (h *APIHandler) CreateDestination(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var req CreateDestinationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Slug == "" || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Slug and URL are required",
		})
	}

	dest, err := h.links.CreateDestination(requestContext(c), user.ID, id, service.CreateDestinationInput{
		Slug: req.Slug,
		URL:  req.URL,
	})
	if err != nil {
		return h.mutationError(c, "failed to create destination", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"destination": DestinationResponse{
			ID:        dest.ID,
			Slug:      dest.Slug,
			URL:       dest.URL,
			IsActive:  dest.IsActive,
			CreatedAt: dest.CreatedAt,
		},
	})
}

// UpdateDestinationRequest is the body of PUT /api/destinations/:id.
type UpdateDestinationRequest struct {
	URL      *string `json:"url,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateDestination handles PUT /api/destinations/:id.
func (h *APIHandler) UpdateDestination(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var req UpdateDestinationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.URL == nil && req.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	if err := h.links.UpdateDestination(requestContext(c), user.ID, id, service.UpdateDestinationInput{
		URL:      req.URL,
		IsActive: req.IsActive,
	}); err != nil {
		return h.mutationError(c, "failed to update destination", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteDestination handles DELETE /api/destinations/:id.
func (h *APIHandler) DeleteDestination(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	if err := h.links.DeleteDestination(requestContext(c), user.ID, id); err != nil {
		return h.mutationError(c, "failed to delete destination", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// UpdateUserSlugRequest is the body of PUT /api/user/slug.
type UpdateUserSlugRequest struct {
	NewSlug string `json:"new_slug"`
}

// UpdateUserSlug handles PUT /api/user/slug.
func (h *APIHandler) UpdateUserSlug(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)

	var req UpdateUserSlugRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(req.NewSlug) < 3 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "New slug must be at least 3 characters",
		})
	}

	if err := h.links.RenameOwnerSlug(requestContext(c), user, req.NewSlug); err != nil {
		return h.mutationError(c, "failed to update user slug", err)
	}

	return c.JSON(fiber.Map{"success": true, "new_slug": req.NewSlug})
}

// mutationError maps service errors onto API status codes.
func (h *APIHandler) mutationError(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, repository.ErrMainLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Main link not found or unauthorized",
		})
	case errors.Is(err, repository.ErrDestinationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Destination not found or unauthorized",
		})
	case errors.Is(err, service.ErrMaxLinksReached):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrSlugExists),
		errors.Is(err, service.ErrConfirmSlugMismatch),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, repository.ErrUserSlugTaken):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrPublishFailed):
		// The relational write committed; only the redirect cache is stale.
		h.logger.Error(msg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Saved, but updating the redirect cache failed",
		})
	default:
		h.logger.Error(msg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

func paramID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
