package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/taekabu/linkfan/internal/app/repository"
	"github.com/taekabu/linkfan/internal/app/service"
	"github.com/taekabu/linkfan/internal/http/middleware"
	metrics "github.com/taekabu/linkfan/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ConversionDeps groups dependencies required by conversion handlers.
type ConversionDeps struct {
	Logger  *zap.Logger
	Tracker *service.ConversionTracker
}

// ConversionHandler implements the conversion report and settings
// endpoints.
type ConversionHandler struct {
	logger  *zap.Logger
	tracker *service.ConversionTracker
}

// NewConversionHandler creates a conversion handler with the provided
// dependencies.
func NewConversionHandler(deps ConversionDeps) *ConversionHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionHandler{
		logger:  logger,
		tracker: deps.Tracker,
	}
}

// Register wires the conversion routes. The report endpoint is public;
// configuring settings requires a session.
func (h *ConversionHandler) Register(router fiber.Router, requireAuth fiber.Handler) {
	router.Post("/api/conversion", h.Report)
	router.Post("/api/conversion/settings", requireAuth, h.Configure)
}

// ReportRequest is the body of POST /api/conversion.
type ReportRequest struct {
	Slug string         `json:"slug"`
	Data map[string]any `json:"data"`
}

// Report handles POST /api/conversion. Unknown destinations and
// non-matching payloads are acknowledged, never rejected.
func (h *ConversionHandler) Report(c *fiber.Ctx) error {
	var req ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Slug == "" || req.Data == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing slug or data",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := h.tracker.Track(ctx, req.Slug, req.Data)
	if err != nil {
		h.logger.Error("failed to process conversion", zap.String("slug", req.Slug), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process conversion",
		})
	}

	metrics.ConversionReportsTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case service.TrackTracked:
		return c.JSON(fiber.Map{
			"success":        true,
			"message":        "Conversion tracked",
			"destination_id": res.DestinationID,
		})
	case service.TrackNoDestination:
		return c.JSON(fiber.Map{
			"success": true,
			"message": "No destination found, ignored",
		})
	case service.TrackNoSetting:
		return c.JSON(fiber.Map{
			"success": true,
			"message": "No conversion setting, ignored",
		})
	default:
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Value does not match success_value, not tracked",
		})
	}
}

// ConfigureRequest is the body of POST /api/conversion/settings.
type ConfigureRequest struct {
	DestinationLinkID int64  `json:"destination_link_id"`
	KeyName           string `json:"key_name"`
	SuccessValue      string `json:"success_value"`
}

// Configure handles POST /api/conversion/settings.
func (h *ConversionHandler) Configure(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var req ConfigureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.DestinationLinkID == 0 || req.KeyName == "" || req.SuccessValue == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := h.tracker.Configure(ctx, user.ID, req.DestinationLinkID, req.KeyName, req.SuccessValue); err != nil {
		if errors.Is(err, repository.ErrDestinationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Destination not found or unauthorized",
			})
		}
		h.logger.Error("failed to save conversion setting",
			zap.Int64("destination_link_id", req.DestinationLinkID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save conversion setting",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Conversion setting saved",
	})
}
