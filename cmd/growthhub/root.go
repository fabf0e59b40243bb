package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/metrics"
	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/session"
	"github.com/xaenox/growth-hub/internal/storage"
	"github.com/xaenox/growth-hub/internal/usage"
	"github.com/xaenox/growth-hub/pkg/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "growthhub",
		Short: "Growth Hub - personal growth coaching chat",
		Long: `Growth Hub is a coaching companion backed by hosted chat models
(OpenAI, Groq or OpenRouter). It remembers past conversations, adapts to
your persona settings and answers crisis language with real resources.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml if present)")

	rootCmd.AddCommand(botCmd())
	rootCmd.AddCommand(chatCmd())
	return rootCmd
}

// app holds what both commands share.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.Storage
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sessions *session.Manager
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func setupApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := storage.New(cfg.StorageOptions(), logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	clientOpts := []llm.Option{}
	provider := models.Provider(cfg.Provider.Name)
	if cfg.Provider.BaseURL != "" && provider != models.ProviderNone {
		clientOpts = append(clientOpts, llm.WithBaseURL(provider, cfg.Provider.BaseURL))
	}
	if cfg.Provider.Referer != "" {
		clientOpts = append(clientOpts, llm.WithReferer(cfg.Provider.Referer))
	}
	client := llm.NewClient(logger, clientOpts...)

	sessions := session.NewManager(store, client, session.Options{
		Defaults: models.APIConfig{
			Provider: provider,
			APIKey:   cfg.Provider.APIKey,
			Model:    cfg.Provider.Model,
		},
		UsageEnabled: cfg.Usage.Enabled,
		Limits: usage.Limits{
			FreeTokens: cfg.Usage.FreeTokens,
			PaidTokens: cfg.Usage.PaidTokens,
		},
		Timeout: cfg.Provider.Timeout,
	}, m, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		metrics:  m,
		sessions: sessions,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// serveMetrics exposes /metrics until ctx is cancelled. It does nothing
// when no address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
