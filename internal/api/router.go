package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/emojify/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/emojify/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/emojify/internal/api/middleware"
)

// multipart framing on top of the image itself
const multipartOverhead = 1 << 20

// CacheJanitor is satisfied by *cache.PGCache
type CacheJanitor interface {
	RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger)
}

type Dependencies struct {
	Service      handler.EmojifyService
	Assets       handler.AssetLookup
	Provider     string
	MaxImageSize int
	RateLimit    middleware.RateLimiterConfig

	// Optional, set only when DATABASE_URL is configured
	DB              handler.Pinger
	Cache           CacheJanitor
	JanitorInterval time.Duration
}

type Router struct {
	app           *fiber.App
	logger        *slog.Logger
	deps          *Dependencies
	cancelJanitor context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Emojify API",
		BodyLimit:    deps.MaxImageSize + multipartOverhead,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept",
		ExposeHeaders: "X-Emojification-ID,X-Faces-Count,X-Expressions,X-Emojify-Notice,X-Cache,X-Request-ID",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(r.deps.Provider, r.deps.DB, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")
	v1.Use(middleware.RateLimiter(r.deps.RateLimit))

	emojifyHandler := handler.NewEmojifyHandler(r.deps.Service, r.deps.Assets, r.deps.MaxImageSize, r.logger)

	v1.Post("/emojify", emojifyHandler.Emojify)
	v1.Post("/analyze", emojifyHandler.Analyze)
	v1.Get("/emojifications", emojifyHandler.List)
	v1.Get("/emojifications/:id", emojifyHandler.Get)
	v1.Get("/expressions", emojifyHandler.Expressions)

	if r.deps.Cache != nil {
		interval := r.deps.JanitorInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ctx, cancel := context.WithCancel(context.Background())
		r.cancelJanitor = cancel
		go r.deps.Cache.RunJanitor(ctx, interval, r.logger)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop cache janitor
	if r.cancelJanitor != nil {
		r.cancelJanitor()
	}

	return r.app.Shutdown()
}
