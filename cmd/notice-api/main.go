package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"notice/internal/answer"
	"notice/internal/config"
	"notice/internal/crawler"
	server "notice/internal/http"
	"notice/internal/llm"
	"notice/internal/migrate"
	"notice/internal/pipeline"
	"notice/internal/search"
	"notice/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	idx := search.NewMeiliIndex(cfg.Meili.URL, cfg.Meili.APIKey, cfg.Meili.Index)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	if err := idx.Configure(startupCtx); err != nil {
		log.Fatalf("configure search index failed: %v", err)
	}
	if n, err := st.ResetStale(startupCtx); err != nil {
		log.Fatalf("reset stale queue entries failed: %v", err)
	} else if n > 0 {
		logger.Info("reset stale queue entries", "count", n)
	}
	cancelStartup()

	fetchClient := crawler.NewHTTPClient(time.Duration(cfg.Crawler.TimeoutSecs) * time.Second)
	robotsClient := &http.Client{Timeout: time.Duration(cfg.Crawler.RobotsTimeoutSecs) * time.Second}
	discoveryClient := &http.Client{Timeout: 5 * time.Second}
	llmClient := &http.Client{Timeout: 60 * time.Second}

	gemini := llm.NewClient(llmClient, cfg.Gemini.APIKey, cfg.Gemini.Model)

	pool := crawler.NewPool(crawler.Deps{
		Store:         st,
		Index:         idx,
		Scraper:       crawler.NewScraper(fetchClient, cfg.Crawler.UserAgent, int64(cfg.Crawler.MaxContentBytes)),
		Robots:        crawler.NewRobotsCache(robotsClient, cfg.Crawler.UserAgent),
		Pacer:         crawler.NewDomainPacer(time.Duration(cfg.Crawler.PolitenessMs) * time.Millisecond),
		Summarizer:    gemini,
		Log:           logger,
		Workers:       cfg.Crawler.Workers,
		IdlePoll:      time.Duration(cfg.Crawler.IdlePollSecs) * time.Second,
		DiscoverLinks: cfg.Crawler.DiscoverLinks,
	})

	pipe := &pipeline.Pipeline{
		Store:     st,
		Index:     idx,
		Answers:   answer.NewEvaluator(answer.NewFrankfurterClient(discoveryClient)),
		Answerer:  gemini,
		Discovery: crawler.NewDiscoverer(discoveryClient, cfg.Crawler.UserAgent),
		Log:       logger,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runWorker := (*role == "worker" || *role == "all") && cfg.Crawler.Enabled
	if runWorker {
		pool.Start(rootCtx)
	}

	switch *role {
	case "worker":
		<-rootCtx.Done()
		pool.Stop()
	case "api", "all":
		s := server.NewServer(cfg, st, idx, pool, pipe, logger)

		go func() {
			<-rootCtx.Done()
			if runWorker {
				pool.Stop()
			}
			if err := s.Shutdown(); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
		}()

		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
