// Package server exposes the trainer over HTTP (fiber) and websocket events.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/adapter/quizpresenter"
	"github.com/park285/opening-quiz/internal/service/trainer"
)

const defaultRateLimit = 20 // req/sec per client

// Handler serves the JSON API.
type Handler struct {
	svc    *trainer.Service
	pres   *quizpresenter.Presenter
	logger *zap.Logger
}

type Options struct {
	Presenter *quizpresenter.Presenter
	Logger    *zap.Logger
	// RateLimit is requests per second per client IP. Zero uses the
	// default; negative disables limiting.
	RateLimit int
}

func NewHandler(svc *trainer.Service, opts Options) *Handler {
	h := &Handler{svc: svc, pres: opts.Presenter, logger: opts.Logger}
	if h.pres == nil {
		h.pres = quizpresenter.New(nil, nil)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// NewApp builds the fiber application with every API route registered.
func NewApp(svc *trainer.Service, opts Options) *fiber.App {
	h := NewHandler(svc, opts)

	app := fiber.New(fiber.Config{
		ErrorHandler:          h.errorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             2 << 20,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(h.accessLog)
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/api")
	if rate := opts.RateLimit; rate >= 0 {
		if rate == 0 {
			rate = defaultRateLimit
		}
		api.Use(limiter.New(limiter.Config{
			Max:        rate,
			Expiration: time.Second,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}
	api.Use(contentTypeValidator)

	sessions := api.Group("/sessions")
	sessions.Post("/", h.CreateSession)
	sessions.Get("/:id", h.GetSession)
	sessions.Delete("/:id", h.DeleteSession)
	sessions.Post("/:id/moves", h.PlayMove)
	sessions.Post("/:id/actions", h.Action)
	sessions.Post("/:id/keys/:key", h.Key)
	sessions.Post("/:id/pgn", h.LoadPGN)
	sessions.Get("/:id/board.png", h.BoardPNG)
	sessions.Get("/:id/index", h.Index)
	sessions.Get("/:id/openings", h.Openings)
	sessions.Post("/:id/quizzes/:quizId", h.LoadSaved)

	quizzes := api.Group("/quizzes")
	quizzes.Get("/", h.ListSaved)
	quizzes.Delete("/:quizId", h.DeleteSaved)

	return app
}

func (h *Handler) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}
	h.logger.Debug("http_request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

// contentTypeValidator rejects non-JSON bodies on POST.
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost || len(c.Body()) == 0 {
		return c.Next()
	}
	ct := string(c.Request().Header.ContentType())
	if ct != "" && ct != fiber.MIMEApplicationJSON && ct != fiber.MIMEApplicationJSONCharsetUTF8 {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}
	return c.Next()
}
