package http

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"notice/internal/config"
	"notice/internal/crawler"
	"notice/internal/metrics"
	"notice/internal/pipeline"
	"notice/internal/search"
	"notice/internal/store"
)

// Server wires the fiber app to the application components.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	store  *store.Store
	index  search.Index
	pool   *crawler.Pool
	pipe   *pipeline.Pipeline
	redis  *redis.Client
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st *store.Store, idx search.Index, pool *crawler.Pool, pipe *pipeline.Pipeline, logger *slog.Logger) *Server {
	s := &Server{
		app:    fiber.New(),
		cfg:    cfg,
		store:  st,
		index:  idx,
		pool:   pool,
		pipe:   pipe,
		logger: logger,
	}

	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			s.redis = redis.NewClient(opt)
		} else {
			logger.Warn("invalid redis url, rate limiting disabled", "error", err)
		}
	}

	s.app.Use(s.requestMiddleware)

	s.app.Get("/health", s.healthHandler)
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	var rateMw fiber.Handler
	if s.redis != nil {
		rateMw = rateLimitMiddleware(cfg, s.redis)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := s.app.Group("/api", rateMw, optionalAuthMiddleware(cfg))
	api.Post("/submit", s.submitHandler)
	api.Post("/crawl", s.crawlHandler)
	api.Get("/search", s.searchHandler)
	api.Get("/documents", s.listDocumentsHandler)
	api.Get("/documents/:id", s.getDocumentHandler)
	api.Get("/queue/stats", s.queueStatsHandler)
	api.Get("/history", s.historyHandler)
	api.Get("/crawler/status", s.crawlerStatusHandler)

	protected := s.app.Group("/api", requireAuthMiddleware(cfg))
	protected.Post("/crawler/stop", s.crawlerStopHandler)
	protected.Post("/admin/resync", s.resyncHandler)

	return s
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
