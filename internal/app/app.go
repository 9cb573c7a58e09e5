// Package app wires configuration into a running assistant.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashureev/jobpt/internal/advisor"
	"github.com/ashureev/jobpt/internal/assistant"
	"github.com/ashureev/jobpt/internal/config"
	"github.com/ashureev/jobpt/internal/identity"
	"github.com/ashureev/jobpt/internal/observability"
	"github.com/ashureev/jobpt/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds the long-lived components shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Repos     *store.Repositories
	Identity  *identity.Manager
	Advisor   *advisor.HTTPClient
	Assistant *assistant.Orchestrator
	Registry  *prometheus.Registry
}

// Options adjusts Build. The zero value is fine.
type Options struct {
	// HTTPClient replaces the advisor transport.
	HTTPClient *http.Client
	// RuntimeCollectors registers Go and process collectors on the registry.
	RuntimeCollectors bool
}

// Build opens the store, loads the identity and initializes the assistant.
// The caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.OpenWithLogger(ctx, cfg.DBPath, cfg.SchemaVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ident, err := identity.Load(cfg.IdentityPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load identity: %w", err)
	}

	reg := prometheus.NewRegistry()
	if opts.RuntimeCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	clientOpts := []advisor.Option{advisor.WithLogger(logger)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, advisor.WithHTTPClient(opts.HTTPClient))
	}
	client := advisor.NewHTTPClient(cfg.Advisor.BaseURL, clientOpts...)

	repos := store.NewRepositories(st)
	orch := assistant.New(repos, client, ident, assistant.Options{
		RequestTimeout: cfg.Advisor.RequestTimeout,
		ProbeTimeout:   cfg.Advisor.ProbeTimeout,
		Metrics:        observability.NewMetrics(cfg.Metrics.Namespace, reg),
		Logger:         logger,
	})
	if err := orch.Init(ctx); err != nil {
		orch.Close()
		_ = st.Close()
		return nil, fmt.Errorf("init assistant: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Repos:     repos,
		Identity:  ident,
		Advisor:   client,
		Assistant: orch,
		Registry:  reg,
	}, nil
}

// Close stops background work and closes the store.
func (a *App) Close() error {
	a.Assistant.Close()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
