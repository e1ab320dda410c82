// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/api"
	"github.com/andresuchdata/vendbees/backend-go/internal/cache"
	"github.com/andresuchdata/vendbees/backend-go/internal/config"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/metrics"
	"github.com/andresuchdata/vendbees/backend-go/internal/pipeline"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
	"github.com/andresuchdata/vendbees/backend-go/internal/service"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream/backends"
	"github.com/andresuchdata/vendbees/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Sync.Location()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid sync configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := backends.Open(ctx, cfg, loc)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("kind", cfg.Upstream.Kind).Msg("Failed to open upstream")
	}

	store := repository.NewReconciliationStore()
	ctrl := pipeline.NewController(source, store, pipeline.Config{
		Interval:       cfg.Sync.Interval,
		PullTimeout:    cfg.Sync.PullTimeout,
		CommandTimeout: cfg.Sync.CommandTimeout,
	})

	engine := analytics.NewEngine(
		analytics.WithLocation(loc),
		analytics.WithTrendDays(cfg.Sync.TrendDays),
	)

	dashboardCache, err := cache.NewDashboardCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Dashboard cache unavailable, continuing without it")
		dashboardCache = cache.NewNoopDashboardCache()
	}

	// Initialize services
	reg := metrics.NewRegistry()
	dashboardService := service.NewDashboardService(store, engine, dashboardCache)
	inventoryService := service.NewInventoryService(store)

	ctrl.OnRefresh(func(o pipeline.RefreshOutcome) {
		reg.ObserveRefresh(o)
		if o.Snapshot == nil || o.Unchanged {
			return
		}
		// keyed by snapshot version, so stale entries only need evicting off the pull path
		go dashboardService.Invalidate(context.Background())
		if summary, err := engine.Summary(o.Snapshot, domain.DashboardFilter{}); err == nil {
			reg.ObserveSummary(summary)
		}
	})

	if err := ctrl.Start(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start sync controller")
	}

	router := api.NewRouter(&api.Services{
		DashboardService: dashboardService,
		InventoryService: inventoryService,
		Commander:        ctrl,
		Metrics:          reg,
	}, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CommandRPS:     cfg.Server.CommandRPS,
		CommandBurst:   cfg.Server.CommandBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("upstream", source.Kind()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := ctrl.Stop(); err != nil {
		logger.Log.Warn().Err(err).Msg("Sync controller stop")
	}

	logger.Log.Info().Msg("Server exiting")
}
