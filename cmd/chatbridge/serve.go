package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/observability"
	transporthttp "github.com/rhuss/chatbridge/pkg/transport/http"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// serve runs the gateway, and the metrics listener when it has its own
// port, until ctx ends or either fails.
func serve(ctx context.Context, cfg *config.Config) error {
	prov, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	eng, err := buildEngine(cfg, prov, store)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithStore(store),
	}

	metrics := cfg.Observability.Metrics
	if metrics.Enabled {
		opts = append(opts, transporthttp.WithRouteMiddleware(observability.MetricsMiddleware))
		if metrics.Port == 0 {
			opts = append(opts, transporthttp.WithHTTPMiddleware(metricsEndpoint(metrics.Path)))
		}
	}

	authMW, err := buildAuth(cfg)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}
	if authMW != nil {
		opts = append(opts, transporthttp.WithHTTPMiddleware(authMW))
	}

	srv := transporthttp.NewServer(eng, opts...)
	slog.Info("gateway configured",
		"provider", prov.Name(),
		"base_url", cfg.Provider.BaseURL,
		"default_model", cfg.Provider.DefaultModel,
		"port", cfg.Server.Port,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if metrics.Enabled && metrics.Port != 0 {
		g.Go(func() error { return runMetrics(gctx, metrics.Port, metrics.Path) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// metricsEndpoint serves the Prometheus handler at path on the API
// listener.
func metricsEndpoint(path string) func(http.Handler) http.Handler {
	metrics := observability.Handler()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path && r.Method == http.MethodGet {
				metrics.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func runMetrics(ctx context.Context, port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle("GET "+path, observability.Handler())
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	slog.Info("metrics listening", "addr", ln.Addr().String(), "path", path)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
