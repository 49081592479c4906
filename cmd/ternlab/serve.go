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

	httpAdapter "github.com/aretw0/ternlab/pkg/adapters/http"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/aretw0/ternlab/pkg/observability"
	"github.com/aretw0/ternlab/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the lab as a JSON API over HTTP, with Prometheus metrics and a server-sent event stream of mutations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Warn("closing snapshot store", "error", err)
			}
		}()

		registry := prometheus.NewRegistry()
		collector, err := observability.NewCollector(registry)
		if err != nil {
			return err
		}
		storeMetrics, err := middleware.NewMetricsMiddleware(registry)
		if err != nil {
			return err
		}
		store = middleware.Chain(store, middleware.NewLoggingMiddleware(logger), storeMetrics)

		streams := httpAdapter.NewStreamManager(logger)

		opts := append(cfg.LabOptions(),
			lab.WithStore(store),
			lab.WithLogger(logger),
			lab.WithLifecycleHooks(domain.ComposeHooks(collector.Hooks(), streams.Hooks())),
		)
		l, err := lab.New(opts...)
		if err != nil {
			return fmt.Errorf("initializing lab: %w", err)
		}

		handler := httpAdapter.NewHandler(l,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithCORSOrigins(cfg.Server.CORSOrigins),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting ternlab server",
				"addr", srv.Addr,
				"size", cfg.Lab.Size,
				"store", cfg.Store.Backend,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutting down", "timeout", shutdownTimeout)

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("killing server: %w", err)
				}
			}
			logger.Info("ternlab server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
}
