package dashboard

import (
	"context"
	"sync"
	"time"

	"budgetly/internal/events"
	"budgetly/internal/log"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 5 * time.Minute

// TokenSource reports the current bearer token, "" when signed out.
type TokenSource interface {
	Token() string
}

// Poller refreshes the store on a fixed interval. A single goroutine owns a
// single timer, so restarts and session changes never stack timers. The
// timer is armed only while a token is present and a successful fetch has
// been recorded.
type Poller struct {
	store    *Store
	tokens   TokenSource
	interval time.Duration
	logger   *log.Logger
	kick     chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(store *Store, tokens TokenSource, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Poller{
		store:    store,
		tokens:   tokens,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentDashboard),
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. It reports false when already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	p.logger.Debug("Dashboard poller started", "interval", p.interval.String())
	return true
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Kick asks the loop to re-evaluate the session now: fetch when a token is
// present, disarm the timer otherwise.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Watch kicks the poller on every session event.
func (p *Poller) Watch(bus *events.Bus) func() {
	return bus.Subscribe(func(e events.Event) {
		switch e.Kind {
		case events.SessionStarted, events.SessionEnded, events.Unauthorized:
			p.Kick()
		}
	})
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	arm := func() {
		if timer != nil || p.tokens.Token() == "" || p.store.Snapshot().LastFetched.IsZero() {
			return
		}
		timer = time.NewTimer(p.interval)
		timerC = timer.C
	}
	refresh := func() {
		if p.tokens.Token() == "" {
			return
		}
		if err := p.store.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("Dashboard refresh failed", log.FieldError, err.Error())
		}
	}

	refresh()
	arm()
	for {
		select {
		case <-ctx.Done():
			disarm()
			return
		case <-p.kick:
			disarm()
			refresh()
			arm()
		case <-timerC:
			timer, timerC = nil, nil
			refresh()
			arm()
		}
	}
}
