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
	"github.com/spf13/cobra"

	"civsandbox/internal/api"
	"civsandbox/internal/config"
	"civsandbox/internal/stream"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, func(cfg *config.ProjectConfig) {
		if addr != "" {
			cfg.Server.Addr = addr
		}
	})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	hub := stream.NewHub(a.logger)
	defer hub.Close()
	a.orch.AddObserver(hub)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(a.orch, api.Options{
		Defaults: a.defaults,
		Events:   hub.Handler(),
		Logger:   a.logger,
		System:   a.cfg.Project,
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("listening", "addr", srv.Addr, "archive", a.store != nil, "journal", a.journal != nil)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	// Hijacked websocket connections are not closed by Shutdown.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
