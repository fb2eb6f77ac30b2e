package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/database"
	s3fmhttp "github.com/Lkld-IO/wp-s3-file-manager/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the file-access and admin HTTP server.

When sync is enabled, a background loop reconciles the catalog against
the bucket at the configured interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8335, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	catalog, cleanup, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer cleanup()
	slog.Info("connected to database", "type", cfg.Database.Type)

	client := s3fm.NewClient(cfg.Storage.Credentials())
	reconciler := s3fm.NewReconciler(client, catalog, slog.Default())
	resolver := s3fm.NewResolver(catalog, client)

	handlerConfig := s3fmhttp.HandlerConfig{
		AdminToken: cfg.Admin.Token,
		CORS: s3fmhttp.CORSConfig{
			Enabled:          cfg.CORS.Enabled,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			ExposedHeaders:   cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
		Authenticated: func(r *http.Request) bool {
			// Admin credentials double as an authenticated session at this
			// boundary; richer session handling lives in the embedding app.
			return cfg.Admin.Token != "" &&
				r.Header.Get("Authorization") == "Bearer "+cfg.Admin.Token
		},
	}

	handler := s3fmhttp.NewHandler(&handlerConfig, catalog, resolver, reconciler, client)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.Sync.Enabled {
		go runSyncLoop(ctx, reconciler, time.Duration(cfg.Sync.Interval)*time.Second)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("server listening", "addr", addr, "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

// runSyncLoop reconciles at a fixed interval until ctx is cancelled. A
// failed pass is logged and retried at the next tick; each pass is
// independently safe to rerun.
func runSyncLoop(ctx context.Context, reconciler *s3fm.Reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncCtx, cancel := context.WithTimeout(ctx, s3fm.MetadataTimeout)
			summary, err := reconciler.Reconcile(syncCtx)
			cancel()

			if err != nil {
				slog.Error("reconciliation failed", "err", err)
				continue
			}
			slog.Info("reconciliation complete",
				"added", summary.Added,
				"removed", summary.Removed,
				"remote_objects", summary.RemoteObjects,
			)
		}
	}
}
