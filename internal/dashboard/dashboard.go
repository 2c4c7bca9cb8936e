// Package dashboard caches the read-only dashboard aggregate and keeps it
// fresh while a session is active.
package dashboard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/state"
)

type DashboardAPI interface {
	Dashboard(ctx context.Context) (*core.DashboardData, error)
	CurrentMonthBudgetStats(ctx context.Context) (*core.CurrentMonthBudgetStats, error)
}

// State is an immutable snapshot. Data is replaced wholesale on every
// successful fetch and kept when a fetch fails.
type State struct {
	Data        *core.DashboardData
	MonthStats  *core.CurrentMonthBudgetStats
	LastFetched time.Time
	Phase       state.Phase
	Err         string
}

// Stale reports whether the shown aggregate is older than the last attempt,
// i.e. the last fetch failed while earlier data is still displayed.
func (s State) Stale() bool {
	return s.Data != nil && s.Err != ""
}

type Store struct {
	api    DashboardAPI
	logger *log.Logger
	now    func() time.Time
	group  singleflight.Group

	mu    sync.RWMutex
	state State
	obs   state.Observable[State]
}

type Option func(*Store)

// WithClock sets the time source used for LastFetched.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(client DashboardAPI, logger *log.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{api: client, logger: logger.WithComponent(log.ComponentDashboard), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Subscribe(fn func(State)) func() {
	return s.obs.Subscribe(fn)
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()
	s.obs.Notify(snap)
}

// Fetch replaces the aggregate. Concurrent callers share one request.
func (s *Store) Fetch(ctx context.Context) error {
	_, err, _ := s.group.Do("dashboard", func() (any, error) {
		s.update(func(st *State) {
			st.Phase = state.Pending
			st.Err = ""
		})
		data, err := s.api.Dashboard(ctx)
		if err != nil {
			msg := api.FormatError(err)
			s.update(func(st *State) {
				st.Phase = state.Rejected
				st.Err = msg
			})
			log.NewStructuredLogger(s.logger).LogRejected(ctx, log.OpRefresh, err, nil)
			return nil, err
		}
		fetched := s.now()
		s.update(func(st *State) {
			st.Data = data
			st.LastFetched = fetched
			st.Phase = state.Fulfilled
			st.Err = ""
		})
		s.logger.DebugContext(ctx, "Dashboard refreshed", "active_budgets", len(data.ActiveBudgets))
		return nil, nil
	})
	return err
}

// FetchCurrentMonthStats loads the current-month report. Its failures are
// logged and returned but never recorded in Err.
func (s *Store) FetchCurrentMonthStats(ctx context.Context) error {
	stats, err := s.api.CurrentMonthBudgetStats(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Current month stats unavailable", log.FieldError, err.Error())
		return err
	}
	s.update(func(st *State) { st.MonthStats = stats })
	return nil
}

// Refresh runs both fetches in parallel and returns the first failure.
func (s *Store) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.Fetch(ctx) })
	g.Go(func() error { return s.FetchCurrentMonthStats(ctx) })
	return g.Wait()
}

func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}

// ClearData drops the cached aggregate and resets LastFetched, which also
// keeps the poller from re-arming until the next successful fetch.
func (s *Store) ClearData() {
	s.update(func(st *State) {
		st.Data = nil
		st.MonthStats = nil
		st.LastFetched = time.Time{}
		st.Phase = state.Idle
		st.Err = ""
	})
}
