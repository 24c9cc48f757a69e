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

	"github.com/iwvelando/portfolio-pilot/internal/metrics"
	"github.com/iwvelando/portfolio-pilot/internal/server"
	"github.com/iwvelando/portfolio-pilot/internal/session"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				a.conf.Server.Address = address
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address override (e.g. :8080)")
	return cmd
}

// newHTTPHandler assembles the session store and web handler from configuration.
func (a *app) newHTTPHandler() (http.Handler, *session.Store) {
	m := metrics.New()
	store := session.NewStore(a.newController(m), session.Options{
		Timeout:           a.conf.Optimizer.Timeout,
		TTL:               a.conf.Session.TTL,
		DefaultTickers:    a.conf.Defaults.Tickers,
		DefaultInvestment: a.conf.Defaults.Investment,
		Gauge:             m,
	}, a.logger)

	handler := server.NewHandler(a.logger, store, server.Options{
		MaxBodySize:   a.conf.Server.MaxBodySizeBytes(),
		Version:       version,
		Metrics:       m,
		SecureCookies: a.conf.Server.SecureCookies,
	})
	return handler, store
}

// serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func (a *app) serve(ctx context.Context) error {
	handler, _ := a.newHTTPHandler()
	srv := &http.Server{
		Addr:              a.conf.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server",
			zap.String("op", "main.serve"),
			zap.String("address", srv.Addr),
			zap.String("optimizer", a.conf.Optimizer.URL),
			zap.Int64("max_body_size_bytes", a.conf.Server.MaxBodySizeBytes()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
