// Command sheetd serves the inventory workbook over the upstream HTTP wire format
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/config"
	"github.com/andresuchdata/vendbees/backend-go/internal/drive"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream/backends"
	"github.com/andresuchdata/vendbees/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("sheetd exited")
	}
}

func run(cfg *config.Config) error {
	if cfg.Upstream.Kind == config.UpstreamHTTP {
		return fmt.Errorf("sheetd cannot serve an http upstream, set UPSTREAM_KIND to workbook, s3, drive or postgres")
	}

	loc, err := cfg.Sync.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := backends.Open(ctx, cfg, loc)
	if err != nil {
		return err
	}

	r := mux.NewRouter()
	r.Use(logRequests)
	upstream.NewHandler(source, analytics.NewEngine(analytics.WithLocation(loc))).RegisterRoutes(r)

	if creds := cfg.Upstream.DriveCredentialsJSON; creds != "" {
		driveService, err := drive.NewService(ctx, creds, true)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Drive service: %w", err)
		}
		drive.NewHandler(driveService).RegisterRoutes(r)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Sheetd.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Sheetd.Port).Str("source", source.Kind()).Msg("sheetd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := log.Info()
		if rec.status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("sheetd request")
	})
}
