// Package session watches the reset window and triggers hard resets.
//
// The manager only detects expiry; the reset itself is delegated to the
// validation service, which owns the session record.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pachi/pkg/logger"
)

// Default watchdog configuration.
const (
	defaultResetWindow   = 15 * time.Minute
	defaultCheckInterval = time.Second
)

// Authority is the session manager's view of the validation service.
type Authority interface {
	// LastReset returns the parsed reset timestamp; ok is false when it is
	// missing or unparsable.
	LastReset(ctx context.Context) (time.Time, bool)

	// HardReset clears session-scoped state, preserving the wallet balance.
	HardReset(ctx context.Context) error
}

// ResetListener is notified after a hard reset has been applied.
type ResetListener interface {
	GameReset()
}

// Manager compares elapsed time since the last reset against the window
// and fires a hard reset exactly once per expiry. The one-shot flag
// re-arms once elapsed time drops back below the window, which happens
// immediately after a successful reset.
type Manager struct {
	mu        sync.Mutex
	fired     bool
	listeners map[ResetListener]struct{}

	authority     Authority
	resetWindow   time.Duration
	checkInterval time.Duration
	now           func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithResetWindow sets the session expiry window.
func WithResetWindow(window time.Duration) Option {
	return func(m *Manager) {
		if window > 0 {
			m.resetWindow = window
		}
	}
}

// WithCheckInterval sets how often Run polls the reset timestamp.
func WithCheckInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.checkInterval = interval
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New constructs a Manager bound to the given authority.
func New(authority Authority, opts ...Option) *Manager {
	m := &Manager{
		listeners:     make(map[ResetListener]struct{}),
		authority:     authority,
		resetWindow:   defaultResetWindow,
		checkInterval: defaultCheckInterval,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logger.Get().Named("session")
	}

	return m
}

// SubscribeReset registers a listener for reset notifications.
func (m *Manager) SubscribeReset(listener ResetListener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[listener] = struct{}{}
}

// UnsubscribeReset removes a previously registered listener.
func (m *Manager) UnsubscribeReset(listener ResetListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, listener)
}

// Start performs the on-load check: a missing or unparsable reset
// timestamp forces an immediate hard reset.
func (m *Manager) Start(ctx context.Context) error {
	if _, ok := m.authority.LastReset(ctx); ok {
		// An expired-but-parsable timestamp is handled by the first Check.
		return nil
	}

	m.logger.Info(ctx, "reset timestamp missing or unparsable, forcing hard reset")
	return m.reset(ctx)
}

// Check runs one watchdog evaluation. Exposed so a host loop can drive the
// manager without Run.
func (m *Manager) Check(ctx context.Context) {
	lastReset, ok := m.authority.LastReset(ctx)
	if !ok {
		if err := m.reset(ctx); err != nil {
			m.logger.Error(ctx, "hard reset failed", logger.Error(err))
		}
		return
	}

	elapsed := m.now().UTC().Sub(lastReset)

	m.mu.Lock()
	if elapsed < m.resetWindow {
		m.fired = false
		m.mu.Unlock()
		return
	}
	if m.fired {
		m.mu.Unlock()
		return
	}
	m.fired = true
	m.mu.Unlock()

	m.logger.Info(ctx, "reset window elapsed",
		logger.String("elapsed", elapsed.String()),
		logger.String("window", m.resetWindow.String()),
	)
	if err := m.reset(ctx); err != nil {
		m.logger.Error(ctx, "hard reset failed", logger.Error(err))
		m.mu.Lock()
		m.fired = false
		m.mu.Unlock()
	}
}

// Run drives Check at the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// reset delegates to the authority and notifies listeners on success.
func (m *Manager) reset(ctx context.Context) error {
	if err := m.authority.HardReset(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	targets := make([]ResetListener, 0, len(m.listeners))
	for listener := range m.listeners {
		targets = append(targets, listener)
	}
	m.mu.Unlock()

	for _, listener := range targets {
		listener.GameReset()
	}
	return nil
}
