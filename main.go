package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chansage/internal/config"
	"chansage/internal/handlers"
	"chansage/internal/integrations/slack"
	"chansage/internal/jobs"
	"chansage/internal/logging"
	"chansage/internal/middleware"
	"chansage/internal/services"
	"chansage/internal/storage"
	"chansage/internal/vectorstore"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServiceBundle struct {
	Fetcher         *slack.Fetcher
	Store           *storage.PostgresStore
	Vectors         *vectorstore.Qdrant
	IngestService   *services.IngestService
	RAGService      *services.RAGService
	Backfill        *jobs.BackfillProcessor
	ChannelsHandler *handlers.ChannelsHandler
	IngestHandler   *handlers.IngestHandler
	AskHandler      *handlers.AskHandler
	Config          *config.Config
}

func initializeServices() *ServiceBundle {
	slog.Info("Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing services...")

	// Postgres holds the durability copy; retry until it is reachable.
	var store *storage.PostgresStore
	for {
		var err error
		store, err = storage.NewPostgresStore(cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			slog.Error("Failed to connect to database, retrying in 30s", "error", err)
			time.Sleep(30 * time.Second)
			continue
		}
		break
	}

	vectors := vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
	})
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := vectors.EnsureCollection(ctx, cfg.EmbeddingDimension)
		cancel()
		if err != nil {
			slog.Error("Failed to prepare vector collection, retrying in 30s", "error", err)
			time.Sleep(30 * time.Second)
			continue
		}
		break
	}

	fetcher := slack.NewFetcher(cfg.SlackBotToken, cfg.IngestConcurrency)
	embeddingService := services.NewEmbeddingService(cfg.OpenAIAPIKey)
	completionService := services.NewCompletionService(cfg.OpenAIAPIKey)

	ingestService := services.NewIngestService(fetcher, embeddingService, vectors, store, cfg.IngestConcurrency)
	ragService := services.NewRAGService(embeddingService, vectors, completionService,
		cfg.DefaultChannelID, cfg.TopK, cfg.SimilarityThreshold)
	backfill := jobs.NewBackfillProcessor(store, embeddingService, vectors)

	slog.Info("All services initialized successfully")

	return &ServiceBundle{
		Fetcher:         fetcher,
		Store:           store,
		Vectors:         vectors,
		IngestService:   ingestService,
		RAGService:      ragService,
		Backfill:        backfill,
		ChannelsHandler: handlers.NewChannelsHandler(fetcher),
		IngestHandler:   handlers.NewIngestHandler(ingestService),
		AskHandler:      handlers.NewAskHandler(ragService),
		Config:          cfg,
	}
}

func main() {
	// Setup structured logging
	logging.SetupLogger()

	slog.Info("Starting chansage", slog.String("version", "1.0.0"))

	bundle := initializeServices()
	defer bundle.Store.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background embedding backfill
	go bundle.Backfill.Start(ctx)

	// Setup HTTP server with middleware
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)

	apiLimit := middleware.APIRateLimitMiddleware()
	ingestLimit := middleware.IngestRateLimitMiddleware()

	router.Handle("/channels", apiLimit(http.HandlerFunc(bundle.ChannelsHandler.HandleList))).Methods("GET")
	router.Handle("/ingest/{channelId}", ingestLimit(http.HandlerFunc(bundle.IngestHandler.HandleIngest))).Methods("POST")
	router.Handle("/ask", apiLimit(http.HandlerFunc(bundle.AskHandler.HandleAsk))).Methods("POST")

	// System routes
	router.HandleFunc("/health", handlers.HandleHealth).Methods("GET")
	router.HandleFunc("/ready", handlers.HandleReady).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         ":" + bundle.Config.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		slog.Info("Server starting", slog.String("port", bundle.Config.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Cancel context to stop background jobs
	cancel()
	bundle.Backfill.Stop()

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully")
}
