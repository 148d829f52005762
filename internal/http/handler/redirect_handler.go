package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/taekabu/linkfan/internal/app/service"
	metrics "github.com/taekabu/linkfan/internal/infra/prometheus"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger   *zap.Logger
	Resolver *service.Resolver
}

// RedirectHandler serves the hot path: GET /{ownerSlug}?go={campaignSlug}.
type RedirectHandler struct {
	logger   *zap.Logger
	resolver *service.Resolver
}

// NewRedirectHandler creates a redirect handler with the provided
// dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:   logger,
		resolver: deps.Resolver,
	}
}

// Register wires the redirect route. Any method resolves; link previews
// and some in-app browsers probe with HEAD or POST. The pattern is a
// catch-all on the first path segment, so this must be registered after
// every other route.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.All("/:ownerSlug", h.Resolve)
}

// Resolve handles the redirect. Error bodies are plain text: external
// callers are browsers following links, not API clients.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	ownerSlug := c.Params("ownerSlug")
	campaignSlug := c.Query("go")
	if ownerSlug == "" || campaignSlug == "" {
		metrics.RedirectsTotal.WithLabelValues("not_found").Inc()
		return c.Status(fiber.StatusNotFound).SendString("Redirect not found")
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := h.resolver.Resolve(ctx, ownerSlug, campaignSlug, service.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, service.ErrRedirectNotFound) {
			metrics.RedirectsTotal.WithLabelValues("not_found").Inc()
			return c.Status(fiber.StatusNotFound).SendString("Redirect not found")
		}
		// The resolver already logged the store failure or corruption.
		metrics.RedirectsTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).SendString("Internal error")
	}

	metrics.RedirectsTotal.WithLabelValues("redirect").Inc()
	h.logger.Debug("redirecting",
		zap.String("owner", ownerSlug),
		zap.String("campaign", campaignSlug),
		zap.Int64("destination_id", res.Destination.ID))
	return c.Redirect(res.URL, fiber.StatusFound)
}
