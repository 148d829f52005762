package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/taekabu/linkfan/internal/app/repository"
	"github.com/taekabu/linkfan/internal/app/service"
	inthttp "github.com/taekabu/linkfan/internal/http/handler"
	"github.com/taekabu/linkfan/internal/http/middleware"
	httpUtil "github.com/taekabu/linkfan/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext

	Users       repository.UserRepository
	Links       service.LinkService
	Resolver    *service.Resolver
	Conversions *service.ConversionTracker
	Sessions    *httpUtil.SessionSigner
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())

	requireAuth := middleware.RequireAuth(s.deps.Sessions, s.deps.Users, s.deps.Logger)

	healthHandler := inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger:   s.deps.Logger,
		Postgres: s.deps.Postgres,
	})
	healthHandler.Register(s.app)

	conversionHandler := inthttp.NewConversionHandler(inthttp.ConversionDeps{
		Logger:  s.deps.Logger,
		Tracker: s.deps.Conversions,
	})
	conversionHandler.Register(s.app, requireAuth)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger: s.deps.Logger,
		Links:  s.deps.Links,
	})
	apiHandler.Register(s.app, requireAuth)

	// The redirect route matches any first path segment; it must stay
	// last so /health and /api win.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:   s.deps.Logger,
		Resolver: s.deps.Resolver,
	})
	redirectHandler.Register(s.app)
}
