// Package app wires the economy components into one service: the
// client-side ledger, the authoritative validation service, the session
// watchdog and the persistence store.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pachi/internal/adapters/store"
	"github.com/okian/pachi/internal/domain/dedupe"
	"github.com/okian/pachi/internal/domain/fraud"
	"github.com/okian/pachi/internal/domain/model"
	"github.com/okian/pachi/internal/latency"
	"github.com/okian/pachi/internal/ledger"
	"github.com/okian/pachi/internal/session"
	"github.com/okian/pachi/internal/validation"
	"github.com/okian/pachi/pkg/logger"
)

// Service owns the component lifecycle and exposes the gameplay-facing
// boundary: scoring events in, balance notifications out.
type Service struct {
	mu sync.Mutex

	// Core components
	store      store.Store
	validation *validation.Service
	ledger     *ledger.Ledger
	session    *session.Manager

	// Configuration
	dataFile         string
	maxItemsPerBatch int
	maxBatchInterval time.Duration
	minLatency       time.Duration
	maxLatency       time.Duration
	minScore         int64
	maxScore         int64
	abnormalScore    int64
	resetWindow      time.Duration
	ballAllowance    int64
	dedupeMaxSize    int
	delay            latency.Policy

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataFile sets the persisted record path.
func WithDataFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataFile = path
		}
	}
}

// WithStore injects a persistence store, overriding the file store built
// from WithDataFile.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithBatchPolicy sets the flush thresholds.
func WithBatchPolicy(maxItems int, maxInterval time.Duration) Option {
	return func(s *Service) {
		if maxItems > 0 {
			s.maxItemsPerBatch = maxItems
		}
		if maxInterval > 0 {
			s.maxBatchInterval = maxInterval
		}
	}
}

// WithLatencyRange sets the simulated round-trip latency bounds.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithLatencyPolicy injects a delay policy, overriding WithLatencyRange.
// Tests use latency.None().
func WithLatencyPolicy(p latency.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.delay = p
		}
	}
}

// WithScoreBounds sets the hard accept range for a single reward.
func WithScoreBounds(minScore, maxScore int64) Option {
	return func(s *Service) {
		if minScore > 0 && maxScore > minScore {
			s.minScore = minScore
			s.maxScore = maxScore
		}
	}
}

// WithAbnormalThreshold sets the audit-only anomaly threshold.
func WithAbnormalThreshold(threshold int64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.abnormalScore = threshold
		}
	}
}

// WithResetWindow sets the session expiry window.
func WithResetWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.resetWindow = window
		}
	}
}

// WithBallAllowance sets the ball count granted by a hard reset.
func WithBallAllowance(allowance int64) Option {
	return func(s *Service) {
		if allowance > 0 {
			s.ballAllowance = allowance
		}
	}
}

// WithDedupeMaxSize bounds the in-memory processed-id set.
func WithDedupeMaxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeMaxSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataFile:         "player_data.json",
		maxItemsPerBatch: 20,
		maxBatchInterval: 2 * time.Second,
		minLatency:       80 * time.Millisecond,
		maxLatency:       250 * time.Millisecond,
		minScore:         1,
		maxScore:         10000,
		abnormalScore:    1000,
		resetWindow:      15 * time.Minute,
		ballAllowance:    50,
		dedupeMaxSize:    0,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the components, loads persisted state, performs the
// startup wallet sync and launches the ticker loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting economy service...")

	if s.store == nil {
		s.store = store.NewFileStore(
			store.WithPath(s.dataFile),
			store.WithBallAllowance(s.ballAllowance),
			store.WithLogger(s.logger.Named("store")),
		)
	}

	if s.delay == nil {
		s.delay = latency.NewUniformPolicy(
			latency.WithRange(s.minLatency, s.maxLatency),
		)
	}

	tracker := dedupe.NewInMemoryTracker(
		dedupe.WithMaxSize(s.dedupeMaxSize),
	)
	detector := fraud.NewHeuristicDetector(
		fraud.WithScoreBounds(s.minScore, s.maxScore),
		fraud.WithAbnormalThreshold(s.abnormalScore),
	)

	s.validation = validation.New(
		validation.WithStore(s.store),
		validation.WithTracker(tracker),
		validation.WithDetector(detector),
		validation.WithLatencyPolicy(s.delay),
		validation.WithBallAllowance(s.ballAllowance),
		validation.WithResetWindow(s.resetWindow),
		validation.WithLogger(s.logger.Named("validation")),
	)
	if err := s.validation.Start(ctx); err != nil {
		return fmt.Errorf("start validation service: %w", err)
	}

	s.ledger = ledger.New(
		s.validation,
		ledger.WithMaxItemsPerBatch(s.maxItemsPerBatch),
		ledger.WithMaxBatchInterval(s.maxBatchInterval),
		ledger.WithLogger(s.logger.Named("ledger")),
	)

	s.session = session.New(
		s.validation,
		session.WithResetWindow(s.resetWindow),
		session.WithLogger(s.logger.Named("session")),
	)
	if err := s.session.Start(ctx); err != nil {
		return fmt.Errorf("start session manager: %w", err)
	}

	// Expired-but-parsable timestamps reset on load, not on the first
	// 1Hz poll.
	s.session.Check(ctx)

	// Startup wallet sync: seed the optimistic balance from the authority.
	wallet, err := s.validation.Wallet(ctx)
	if err != nil {
		return fmt.Errorf("startup wallet sync: %w", err)
	}
	s.ledger.SeedBalance(wallet)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.ledger.Run(runCtx)
	go s.session.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "economy service started",
		logger.Int("maxItemsPerBatch", s.maxItemsPerBatch),
		logger.String("maxBatchInterval", s.maxBatchInterval.String()),
		logger.String("resetWindow", s.resetWindow.String()),
		logger.Int64("wallet", wallet),
	)
	return nil
}

// Stop shuts down the ticker loops after a final flush of pending rewards.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping economy service...")

	s.ledger.Flush(ctx)

	if s.cancel != nil {
		s.cancel()
	}

	s.started = false
	s.logger.Info(ctx, "economy service stopped")
}

// OnScored registers one scoring event from gameplay.
func (s *Service) OnScored(ctx context.Context, score int64, sourceID string, eventID int64) {
	s.ledger.Register(ctx, score, sourceID, eventID)
}

// OnLevelCompleted flushes pending rewards at a level boundary.
func (s *Service) OnLevelCompleted(ctx context.Context) {
	s.ledger.LevelCompleted(ctx)
}

// Flush force-sends pending rewards. Used by the ops surface.
func (s *Service) Flush(ctx context.Context) {
	s.ledger.Flush(ctx)
}

// ReportGameState forwards trusted session bookkeeping to the authority.
func (s *Service) ReportGameState(ctx context.Context, level, ballsRemaining, roundScore, ballsScored int64) error {
	return s.validation.ReportGameState(ctx, level, ballsRemaining, roundScore, ballsScored)
}

// Wallet returns the authoritative balance.
func (s *Service) Wallet(ctx context.Context) (int64, error) {
	return s.validation.Wallet(ctx)
}

// SessionSnapshot returns the session record for resume, hard-resetting
// first when it has expired.
func (s *Service) SessionSnapshot(ctx context.Context) (model.AccountSnapshot, error) {
	return s.validation.SessionSnapshot(ctx)
}

// SubscribeBalance registers a balance listener on the ledger.
func (s *Service) SubscribeBalance(listener ledger.BalanceListener) {
	s.ledger.SubscribeBalance(listener)
}

// UnsubscribeBalance removes a balance listener.
func (s *Service) UnsubscribeBalance(listener ledger.BalanceListener) {
	s.ledger.UnsubscribeBalance(listener)
}

// SubscribeReset registers a reset listener on the session manager.
func (s *Service) SubscribeReset(listener session.ResetListener) {
	s.session.SubscribeReset(listener)
}

// UnsubscribeReset removes a reset listener.
func (s *Service) UnsubscribeReset(listener session.ResetListener) {
	s.session.UnsubscribeReset(listener)
}

// GetStats returns service statistics for the ops surface.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	stats := map[string]interface{}{
		"started":          started,
		"maxItemsPerBatch": s.maxItemsPerBatch,
		"maxBatchInterval": s.maxBatchInterval.String(),
		"resetWindow":      s.resetWindow.String(),
	}

	if started {
		snapshot := s.validation.Snapshot(ctx)
		stats["pendingRewards"] = s.ledger.PendingCount()
		stats["flushInFlight"] = s.ledger.InFlight()
		stats["optimisticBalance"] = s.ledger.OptimisticBalance()
		stats["reconciledBalance"] = s.ledger.ReconciledBalance()
		stats["walletBalance"] = snapshot.Balance
		stats["level"] = snapshot.Session.Level
		stats["sessionRewards"] = len(snapshot.Session.SessionRewards)
	}

	return stats
}
