// Package app assembles the session components for one CLI invocation
package app

import (
	"context"
	"fmt"

	"github.com/sam-app/cli/internal/api"
	"github.com/sam-app/cli/internal/auth"
	"github.com/sam-app/cli/internal/common"
	"github.com/sam-app/cli/internal/config"
	"github.com/sam-app/cli/internal/session"
	"github.com/sam-app/cli/internal/storage"
)

// App holds the wired session components
type App struct {
	Config     *config.Config
	Logger     *common.Logger
	Client     *api.Client
	Store      *session.Store
	Controller *auth.Controller
}

// New builds the components from cfg and restores any persisted session
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, fmt.Errorf("could not resolve storage path: %w", err)
	}
	return NewWithBackend(cfg, logger, storage.NewFileBackend(path)), nil
}

// NewWithBackend is New with an explicit storage backend
func NewWithBackend(cfg *config.Config, logger *common.Logger, backend storage.Backend) *App {
	client := api.NewClient(cfg.Server.URL,
		api.WithTimeout(cfg.ServerTimeout()),
		api.WithRateLimit(cfg.Server.RateLimit),
		api.WithLogger(logger),
	)
	store := session.NewStore(backend, logger)
	controller := auth.NewController(store, session.NewValidator(), client, logger)
	controller.Initialize()

	return &App{
		Config:     cfg,
		Logger:     logger,
		Client:     client,
		Store:      store,
		Controller: controller,
	}
}

// Close tears down in-flight work
func (a *App) Close() {
	a.Controller.Close()
}

type ctxKey struct{}

// WithApp returns a context carrying a
func WithApp(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the App stored by WithApp
func FromContext(ctx context.Context) (*App, error) {
	if ctx == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	a, ok := ctx.Value(ctxKey{}).(*App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}
