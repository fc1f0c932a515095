// Package api exposes flowsim over HTTP with fiber.
//
// Validation, ordering and simulation endpoints accept a workflow document
// in the codec format. Saved workflows and run results are kept in a
// store.Store.
package api

import (
	"context"
	"errors"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/codec"
	"github.com/dshills/flowsim/graph/store"
)

// Config wires a Server.
type Config struct {
	// Store holds saved workflows and run results. Required.
	Store store.Store

	// Catalog resolves automation ids. Defaults to no catalog.
	Catalog graph.Catalog

	// RunnerOptions are applied to every Runner the server creates. Each
	// simulation gets its own Runner, so shared values (metrics, emitter)
	// must be safe for concurrent use.
	RunnerOptions []graph.Option

	// Gatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	app     *fiber.App
	store   store.Store
	catalog graph.Catalog
	opts    []graph.Option
	logger  *slog.Logger
}

// New builds the fiber application and registers all routes.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("api: store is required")
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		logger:  logger,
	}
	s.opts = append(s.opts, cfg.RunnerOptions...)
	if cfg.Catalog != nil {
		s.opts = append(s.opts, graph.WithCatalog(cfg.Catalog))
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "flowsim",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: s.handleError,
	})

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.app.Get("/automations", s.listAutomations)
	s.app.Post("/validate", s.validate)
	s.app.Post("/order", s.order)
	s.app.Post("/simulate", s.simulate)

	s.app.Post("/workflows", s.saveWorkflow)
	s.app.Get("/workflows", s.listWorkflows)
	s.app.Get("/workflows/:id", s.getWorkflow)
	s.app.Put("/workflows/:id", s.saveWorkflow)
	s.app.Delete("/workflows/:id", s.deleteWorkflow)
	s.app.Post("/workflows/:id/simulate", s.simulateSaved)
	s.app.Get("/workflows/:id/runs", s.listRuns)
	s.app.Get("/runs/:id", s.getRun)

	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, codec.ErrInvalidFormat):
		status = fiber.StatusBadRequest
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
