package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthDeps groups dependencies required by the health handler.
type HealthDeps struct {
	Logger   *zap.Logger
	Postgres *pgxpool.Pool
}

// HealthHandler reports service liveness plus database reachability.
type HealthHandler struct {
	logger   *zap.Logger
	postgres *pgxpool.Pool
}

// NewHealthHandler creates a health handler with the provided dependencies.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:   logger,
		postgres: deps.Postgres,
	}
}

// Register wires the health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
}

// Health pings Postgres through the raw pool; Redis and NATS degrade
// gracefully at runtime, the relational store does not.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"service": "linkfan",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	if h.postgres != nil {
		ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
		defer cancel()
		if err := h.postgres.Ping(ctx); err != nil {
			h.logger.Warn("health check postgres ping failed", zap.Error(err))
			body["status"] = "degraded"
			body["postgres"] = "down"
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		body["postgres"] = "up"
	}

	return c.JSON(body)
}
