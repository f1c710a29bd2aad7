package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animax/internal/api"
	"animax/internal/cache"
	"animax/internal/config"
	"animax/internal/jikan"
	"animax/internal/logger"
	"animax/internal/search"
	"animax/internal/store"
	"animax/internal/telegram"
	"animax/internal/trailer"
	"animax/internal/worker"
)

// app holds the long-lived dependencies shared by the server and the debug command.
type app struct {
	config    *config.AppConfig
	stores    *store.Handle
	writer    *worker.WorkerPool
	respCache cache.Cache
	telegram  *telegram.Service
	catalog   *jikan.Client
	trailers  *trailer.Client
}

func main() {
	// Load configuration
	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Setup("info", "text")
		logger.LogError("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Setup(appConfig.LogLevel, appConfig.LogFormat)

	a, err := newApp(appConfig)
	if err != nil {
		logger.LogError("Failed to initialize: %v", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "debug" {
		code := runDebug(a, os.Args[2:])
		a.close(context.Background())
		os.Exit(code)
	}

	handler := api.NewRouter(api.Handlers{
		Telegram: api.NewTelegramHandler(a.telegram),
		Catalog:  api.NewCatalogHandler(a.catalog, a.trailers),
		Sitemap:  api.NewSitemapHandler(appConfig.SiteURL),
	}, 30*time.Second)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appConfig.GetPort()),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "port", appConfig.GetPort())
		slog.Info("Available endpoints",
			"telegram", "GET /api/telegram?q=",
			"catalog", "GET /api/home, /api/anime, /api/anime/{id}[/characters|/episodes|/recommendations|/trailer], /api/seasons/{now,upcoming}, /api/top/anime, /api/genres",
			"sitemap", "GET /sitemap.xml",
			"health", "GET /health",
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError("Server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server forced to shutdown: %v", err)
	}
	a.close(ctx)

	slog.Info("Server exited gracefully")
}

func newApp(appConfig *config.AppConfig) (*app, error) {
	// One HTTP client shared by every upstream API
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}

	var respCache cache.Cache
	if appConfig.CatalogCacheRedisURL != "" {
		redisCache, err := cache.NewRedisCache(appConfig.CatalogCacheRedisURL)
		if err != nil {
			return nil, fmt.Errorf("catalog cache: %w", err)
		}
		slog.Info("Using Redis catalog cache")
		respCache = redisCache
	} else {
		respCache = cache.NewShardedMemoryCache(appConfig.CatalogCacheTTL, 2*appConfig.CatalogCacheTTL)
	}

	stores := store.NewHandle(appConfig.DatabaseURL)

	writer := worker.NewWorkerPool(appConfig.WriterPoolSize, appConfig.WriterQueueSize, appConfig.WriteTimeout)
	writer.Start()

	searcher := search.NewClient(appConfig, httpClient)

	return &app{
		config:    appConfig,
		stores:    stores,
		writer:    writer,
		respCache: respCache,
		telegram: telegram.NewService(stores, searcher, writer, telegram.Options{
			ProbeTimeout:  appConfig.CacheProbeTimeout,
			SearchTimeout: appConfig.SearchTimeout,
		}),
		catalog:  jikan.NewClient(appConfig, httpClient, respCache),
		trailers: trailer.NewClient(appConfig, httpClient),
	}, nil
}

// close drains pending write-backs before releasing the store connection.
func (a *app) close(ctx context.Context) {
	if err := a.writer.Stop(ctx); err != nil {
		logger.LogError("Pending cache writes dropped: %v", err)
	}
	if err := a.stores.Close(); err != nil {
		logger.LogError("Error closing store: %v", err)
	}
	if closer, ok := a.respCache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.LogError("Error closing catalog cache: %v", err)
		}
	}
}
