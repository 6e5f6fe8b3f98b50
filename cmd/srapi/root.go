package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"speedrun-api/internal/infra/config"
	"speedrun-api/internal/infra/logger"
	"speedrun-api/internal/infra/metrics"
	"speedrun-api/internal/infra/tracer"
	"speedrun-api/pkg/srapi"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Token      string
	LogLevel   string
}

// app holds what a command needs to reach the API.
type app struct {
	flags GlobalFlags

	cfg     *config.Config
	logger  *slog.Logger
	client  *srapi.Client
	metrics *metrics.Collector

	cleanup []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "srapi",
		Short: "speedrun.com API client",
		Long: `srapi talks to the speedrun.com REST API and websocket feeds.

Configuration is read from a YAML file (--config), then SRAPI_* environment
variables. Secrets stored as "enc:..." are decrypted with SRAPI_CONFIG_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flags.ConfigPath, "config", "srapi.yaml", "path to the config file")
	root.PersistentFlags().StringVar(&a.flags.Token, "token", "", "API access token (overrides config)")
	root.PersistentFlags().StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug|info|warn|error")

	root.AddCommand(
		newGetCmd(a),
		newWSCmd(a),
		newEncryptCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and builds the client and its ambient stack.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.flags.Token != "" {
		cfg.API.AccessToken = a.flags.Token
	}
	if a.flags.LogLevel != "" {
		cfg.Logger.Level = a.flags.LogLevel
	}
	a.cfg = cfg

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	a.logger = log
	a.cleanup = append(a.cleanup, func(context.Context) error { return closeLog() })

	shutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	a.cleanup = append(a.cleanup, shutdown)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(nil)
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			return err
		}
	}

	client, err := srapi.NewFromConfig(cfg, srapi.WithLogger(log), srapi.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("metrics server listening", "addr", ln.Addr().String())
	a.cleanup = append(a.cleanup, srv.Shutdown)
	return nil
}

// teardown runs cleanups in reverse order.
func (a *app) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("cleanup failed", "error", err)
		}
	}
	a.cleanup = nil
}
