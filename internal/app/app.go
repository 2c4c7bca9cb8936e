// Package app wires the client together: durable session storage, the
// signal bus, the REST client, the state stores, the dashboard poller and
// the optional AMQP bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"budgetly/internal/amqp"
	"budgetly/internal/api"
	"budgetly/internal/budgets"
	"budgetly/internal/categories"
	"budgetly/internal/config"
	"budgetly/internal/dashboard"
	"budgetly/internal/events"
	"budgetly/internal/log"
	"budgetly/internal/session"
	"budgetly/internal/storage"
)

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type App struct {
	Bus        *events.Bus
	API        *api.Client
	Session    *session.Store
	Categories *categories.Store
	Budgets    *budgets.Store
	Dashboard  *dashboard.Store
	Poller     *dashboard.Poller

	cfg    *config.Config
	logger *log.Logger

	mu          sync.Mutex
	cleanups    []func() error
	unsubscribe []func()
	bridgeStop  context.CancelFunc
	bridgeDone  chan struct{}
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	durable    storage.SessionStore
}

// WithHTTPClient replaces the client built from the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithSessionStore replaces the configured session backend.
func WithSessionStore(s storage.SessionStore) Option {
	return func(o *options) { o.durable = s }
}

func New(cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger.WithComponent(log.ComponentApp)}

	durable := o.durable
	if durable == nil {
		var err error
		durable, err = a.newSessionStore(logger)
		if err != nil {
			return nil, err
		}
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	a.Bus = events.NewBus(logger)
	client, err := api.New(cfg.APIURL,
		api.WithHTTPClient(hc),
		api.WithSessionPurger(durable),
		api.WithBus(a.Bus),
		api.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create API client: %w", err)
	}
	a.API = client

	a.Session = session.New(client, durable, a.Bus, logger)
	client.SetTokenSource(a.Session)

	a.Categories = categories.New(client, logger)
	a.Budgets = budgets.New(client, logger)
	a.Dashboard = dashboard.New(client, logger)
	a.Poller = dashboard.NewPoller(a.Dashboard, a.Session, cfg.DashboardRefresh, logger)

	a.unsubscribe = append(a.unsubscribe,
		a.Bus.Subscribe(a.onEvent),
		a.Poller.Watch(a.Bus),
	)

	a.logger.Info("Initialized client",
		"api_url", cfg.APIURL,
		"session_backend", cfg.SessionBackend,
		"amqp_enabled", cfg.AMQPURL != "")
	return a, nil
}

func (a *App) newSessionStore(logger *log.Logger) (storage.SessionStore, error) {
	switch a.cfg.SessionBackend {
	case BackendSQLite:
		store, err := storage.NewSQLiteStore(a.cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		a.cleanups = append(a.cleanups, store.Close)
		return store, nil
	case BackendMemory, "":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", a.cfg.SessionBackend)
	}
}

// onEvent drops every user-scoped cache when the session goes away.
func (a *App) onEvent(e events.Event) {
	switch e.Kind {
	case events.SessionEnded, events.Unauthorized:
		a.Categories.Clear()
		a.Budgets.ClearBudgets()
		a.Dashboard.ClearData()
		a.logger.Debug("Cleared cached data", log.FieldEvent, string(e.Kind))
	}
}

// Restore loads the durable session, if any.
func (a *App) Restore(ctx context.Context) error {
	return a.Session.Restore(ctx)
}

// StartBridge connects to the broker and relays session signals until ctx
// ends or Close is called. Without an AMQP URL it does nothing. A broker
// that cannot be reached is logged and the client keeps running alone.
func (a *App) StartBridge(ctx context.Context) bool {
	if a.cfg.AMQPURL == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bridgeStop != nil {
		return false
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.logger)
	if err != nil {
		a.logger.Warn("Failed to initialize AMQP client, continuing without session sync", log.FieldError, err)
		return false
	}
	a.cleanups = append(a.cleanups, client.Close)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.bridgeStop, a.bridgeDone = cancel, done

	bridge := amqp.NewBridge(a.Bus, client, client, a.logger)
	go func() {
		defer close(done)
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("Session bridge stopped", log.FieldError, err)
		}
	}()
	a.logger.Info("Session bridge started", "exchange", a.cfg.AMQPExchange)
	return true
}

// Close stops background work and releases storage and broker connections.
func (a *App) Close() error {
	if a.Poller != nil {
		a.Poller.Stop()
	}

	a.mu.Lock()
	stop, done := a.bridgeStop, a.bridgeDone
	a.bridgeStop, a.bridgeDone = nil, nil
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	cleanups := a.cleanups
	a.cleanups = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	for _, fn := range unsubscribe {
		fn()
	}
	if a.Session != nil {
		a.Session.Close()
	}

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
