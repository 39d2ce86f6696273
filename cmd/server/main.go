package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/handler"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/query"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/repository"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/service"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/tower"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("Split Lease Listing Matcher")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	gin.SetMode(cfg.Server.GinMode)

	repo, err := repository.Open(
		cfg.PostgreSQL.Driver,
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()
	log.Printf("✅ Connected to %s database", repo.Driver())

	var chat *ai.OpenAIClient
	if cfg.OpenAI.Enabled {
		chat, err = ai.NewOpenAIClient(&cfg.OpenAI, ai.WithLogger(logger))
		if err != nil {
			log.Fatalf("Failed to create OpenAI client: %v", err)
		}
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
	}

	processor, closeQuery, err := newQueryProcessor(cfg, repo, chat, logger)
	if err != nil {
		log.Fatalf("Failed to initialize query processor: %v", err)
	}
	defer closeQuery()

	matcher, err := service.NewMatcher(processor,
		service.WithLogger(logger),
		service.WithDatabase(repo),
		service.WithDefaultTopK(cfg.Match.DefaultTopK),
		service.WithMaxQueryBytes(cfg.Match.MaxQueryBytes),
		service.WithWorkers(cfg.Match.Workers),
	)
	if err != nil {
		log.Fatalf("Failed to initialize matcher: %v", err)
	}
	defer matcher.Close()

	log.Println("✅ Services initialized")

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.GinMode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	handler.NewMatchHandler(matcher, cfg.Match.RequestTimeout, logger).Register(router)

	router.GET("/version", func(c *gin.Context) {
		info := gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		}
		if m, err := matcher.ModelInfo(); err == nil {
			info["model"] = m
		}
		c.JSON(http.StatusOK, info)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}
	log.Printf("🚀 Starting server on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// The listener is up; /health reports degraded until this finishes.
	go func() {
		if err := loadModelAndIndex(cfg, matcher, logger); err != nil {
			log.Fatalf("Failed to load model and index: %v", err)
		}
		log.Printf("✅ Model and index loaded")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}

// loadModelAndIndex builds the two-tower model, loads the artifact built by it
// and publishes both to the matcher.
func loadModelAndIndex(cfg *config.Config, matcher *service.Matcher, logger *slog.Logger) error {
	start := time.Now()

	encoder, err := ai.NewEncoder(cfg, logger)
	if err != nil {
		return fmt.Errorf("text encoder: %w", err)
	}
	if cfg.Query.CacheEntries > 0 {
		encoder, err = ai.NewCachedEncoder(encoder, cfg.Query.CacheEntries)
		if err != nil {
			return fmt.Errorf("query embedding cache: %w", err)
		}
	}

	model, err := tower.FromConfig(cfg.Model, encoder, logger)
	if err != nil {
		return fmt.Errorf("two-tower model: %w", err)
	}

	ix, err := index.Load(index.Resolve(cfg.Index.Path), model.BuildVersion())
	if err != nil {
		return err
	}
	if err := matcher.Publish(model, ix); err != nil {
		return err
	}

	logger.Info("model and index loaded",
		"listings", ix.Len(),
		"build_version", ix.BuildVersion,
		"built_at", ix.BuildTimestamp,
		"heads_trained", model.Trained(),
		"duration", time.Since(start))
	return nil
}

// newQueryProcessor wires the location table, borough source and optional
// location assist from configuration.
func newQueryProcessor(cfg *config.Config, repo *repository.Repository, chat *ai.OpenAIClient, logger *slog.Logger) (*query.Processor, func(), error) {
	opts := []query.Option{query.WithLogger(logger)}
	cleanup := func() {}

	if cfg.Query.LocationTablePath != "" {
		table, err := query.LoadLocationTable(cfg.Query.LocationTablePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, query.WithLocationTable(table))
		log.Printf("   - Location table: %s (%d places)", cfg.Query.LocationTablePath, table.Len())
	}

	var boroughs query.BoroughTable
	switch cfg.Query.BoroughSource {
	case "db":
		boroughs = repo
	case "file":
		table, err := query.LoadBoroughFile(cfg.Query.BoroughTablePath)
		if err != nil {
			return nil, nil, err
		}
		boroughs = table
	}
	if boroughs != nil {
		cached, err := query.NewCachedBoroughTable(boroughs, cfg.Query.BoroughCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = cached.Close
		opts = append(opts, query.WithBoroughTable(cached))
		log.Printf("   - Borough source: %s (cached %s)", cfg.Query.BoroughSource, cfg.Query.BoroughCacheTTL)
	}

	if cfg.Query.AIAssist && chat != nil {
		opts = append(opts, query.WithLocationAssistant(query.NewChatLocationAssistant(chat, logger)))
		log.Printf("   - Location assist: %s", cfg.OpenAI.ChatModel)
	}

	p, err := query.NewProcessor(opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
