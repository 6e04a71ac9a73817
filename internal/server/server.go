package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/shopchat/config"
	"github.com/mohammad-safakhou/shopchat/internal/answer"
	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/embedding"
	memoryindex "github.com/mohammad-safakhou/shopchat/internal/index/memory"
	postgresindex "github.com/mohammad-safakhou/shopchat/internal/index/postgres"
	"github.com/mohammad-safakhou/shopchat/internal/prompt"
	"github.com/mohammad-safakhou/shopchat/internal/rag"
	"github.com/mohammad-safakhou/shopchat/internal/retriever"
	"github.com/mohammad-safakhou/shopchat/internal/worker"
	"github.com/mohammad-safakhou/shopchat/provider"
	"github.com/mohammad-safakhou/shopchat/session"
	sessioninmemory "github.com/mohammad-safakhou/shopchat/session/inmemory"
	sessionredis "github.com/mohammad-safakhou/shopchat/session/redis"
)

// Run wires the pipeline and serves the API. Configuration problems and a
// corrupt index are fatal here; backend outages during serving surface
// per-request as 503s.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = newHTTPErrorHandler(log.New(log.Writer(), "[HTTP] ", log.LstdFlags))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	embedder, err := embedding.New(llm, cfg.RAG.EmbeddingDimensions)
	if err != nil {
		return err
	}

	var index rag.VectorIndex
	switch cfg.RAG.IndexBackend {
	case "memory":
		mem, err := memoryindex.New(cfg.RAG.EmbeddingDimensions)
		if err != nil {
			return err
		}
		if cfg.RAG.SnapshotPath != "" {
			if err := mem.Load(cfg.RAG.SnapshotPath); err != nil {
				return fmt.Errorf("loading index snapshot: %w", err)
			}
		}
		index = mem
	default:
		pg, err := postgresindex.New(db, cfg.RAG.EmbeddingDimensions)
		if err != nil {
			return err
		}
		// A dimension mismatch against stored vectors means the index was
		// built with a different embedding model; refuse to start.
		if err := pg.EnsureReady(ctx); err != nil {
			return err
		}
		index = pg
	}

	var keyword *retriever.KeywordIndex
	if cfg.RAG.KeywordFallback {
		keyword, err = retriever.NewKeywordIndex()
		if err != nil {
			return err
		}
	}

	ret, err := retriever.New(embedder, index, keyword, retriever.Config{
		ChunkSize:     cfg.RAG.ChunkSize,
		ChunkOverlap:  cfg.RAG.ChunkOverlap,
		TopK:          cfg.RAG.TopK,
		MinScore:      cfg.RAG.MinScore,
		HistoryWindow: cfg.RAG.HistoryWindow,
	}, nil)
	if err != nil {
		return err
	}

	engine, err := answer.New(ret, prompt.Assembler{MaxChars: cfg.RAG.PromptBudget}, llm, answer.Config{
		TopK:            cfg.RAG.TopK,
		SuggestionCount: cfg.RAG.SuggestionCount,
	}, nil)
	if err != nil {
		return err
	}

	cat := &catalog.Store{DB: db}
	indexer := worker.NewIndexer(cat, ret, nil)

	var rdb *redis.Client
	var sessions session.Store
	if cfg.Storage.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		sessions = sessionredis.New(rdb, cfg.Server.SessionTTL)
	} else {
		sessions = sessioninmemory.New(cfg.Server.SessionTTL)
	}

	api := e.Group("/api")
	NewChatHandler(cat, engine, sessions, cfg.RAG.HistoryWindow).Register(api)
	(&ProductsHandler{Catalog: cat}).Register(api)
	(&AdminHandler{Indexer: indexer}).Register(api.Group("/admin"))

	if cfg.Scheduler.Enabled {
		sched := &Scheduler{
			Indexer:  indexer,
			CronSpec: cfg.Scheduler.CronSpec,
			Stop:     make(chan struct{}),
		}
		// A typed nil *redis.Client must not become a non-nil locker.
		if rdb != nil {
			sched.Rdb = rdb
		}
		sched.Start()
	}

	log.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}
