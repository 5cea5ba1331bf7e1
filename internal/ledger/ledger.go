// Package ledger accumulates scoring events on the client side, keeps the
// optimistic balance shown to the UI, and owns the batching policy that
// decides when pending rewards are sent for validation.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pachi/internal/domain/model"
	"github.com/okian/pachi/pkg/logger"
	"github.com/okian/pachi/pkg/metrics"
)

// Default batching policy.
const (
	defaultMaxItemsPerBatch = 20
	defaultMaxBatchInterval = 2 * time.Second
	defaultTickInterval     = 100 * time.Millisecond
)

// Validator is the ledger's view of the validation service.
type Validator interface {
	// ValidateBatch exchanges pending rewards for the new authoritative
	// balance.
	ValidateBatch(ctx context.Context, batch []model.RewardPackage) (int64, error)
}

// BalanceListener receives every optimistic and reconciled balance change.
type BalanceListener interface {
	BalanceChanged(balance int64)
}

// Ledger is the client-side reward accumulator. At most one flush round
// trip is in flight at a time; rewards registered while one is outstanding
// accumulate into the next batch.
type Ledger struct {
	mu         sync.Mutex
	pending    []model.RewardPackage
	optimistic int64
	reconciled int64
	lastFlush  time.Time
	inFlight   bool
	listeners  map[BalanceListener]struct{}

	maxItemsPerBatch int
	maxBatchInterval time.Duration
	tickInterval     time.Duration

	validator Validator
	logger    logger.Logger
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithMaxItemsPerBatch sets the count threshold that triggers a flush.
func WithMaxItemsPerBatch(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxItemsPerBatch = n
		}
	}
}

// WithMaxBatchInterval sets the time threshold for the periodic flush.
func WithMaxBatchInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.maxBatchInterval = d
		}
	}
}

// WithTickInterval sets how often Run checks the time threshold.
func WithTickInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.tickInterval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New constructs a Ledger bound to the given validator.
func New(validator Validator, opts ...Option) *Ledger {
	l := &Ledger{
		pending:          nil,
		listeners:        make(map[BalanceListener]struct{}),
		maxItemsPerBatch: defaultMaxItemsPerBatch,
		maxBatchInterval: defaultMaxBatchInterval,
		tickInterval:     defaultTickInterval,
		lastFlush:        time.Now(),
		validator:        validator,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = logger.Get().Named("ledger")
	}

	return l
}

// SubscribeBalance registers a listener for balance notifications.
func (l *Ledger) SubscribeBalance(listener BalanceListener) {
	if listener == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners[listener] = struct{}{}
}

// UnsubscribeBalance removes a previously registered listener.
func (l *Ledger) UnsubscribeBalance(listener BalanceListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.listeners, listener)
}

// Register records one scoring event. Non-positive scores are dropped
// without a ledger entry or balance change. The optimistic balance updates
// immediately, before any round trip.
func (l *Ledger) Register(ctx context.Context, score int64, sourceID string, eventID int64) {
	if score <= 0 {
		metrics.RecordRewardRejected()
		l.logger.Debug(ctx, "rejected non-positive score",
			logger.Int64("score", score),
			logger.Int64("eventId", eventID),
		)
		return
	}

	pkg := model.NewRewardPackage(score, sourceID, eventID)

	l.mu.Lock()
	l.pending = append(l.pending, pkg)
	l.optimistic += score
	shouldFlush := len(l.pending) >= l.maxItemsPerBatch
	balance := l.optimistic
	pendingCount := len(l.pending)
	l.mu.Unlock()

	metrics.RecordRewardRegistered()
	metrics.UpdatePendingRewards(pendingCount)
	metrics.UpdateOptimisticBalance(balance)
	l.notify(balance)

	if shouldFlush {
		l.Flush(ctx)
	}
}

// Flush sends all pending rewards for validation. No-op when a round trip
// is already in flight or nothing is pending. Idempotent with the count
// and time triggers.
func (l *Ledger) Flush(ctx context.Context) {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return
	}
	if len(l.pending) == 0 {
		l.lastFlush = time.Now()
		l.mu.Unlock()
		return
	}

	batch := l.pending
	l.pending = nil
	l.inFlight = true
	l.lastFlush = time.Now()
	l.mu.Unlock()

	metrics.RecordBatchFlushed()
	metrics.UpdatePendingRewards(0)

	go l.send(ctx, batch)
}

// send performs the round trip and reconciles both balances against the
// returned authoritative value, which supersedes any optimistic estimate.
func (l *Ledger) send(ctx context.Context, batch []model.RewardPackage) {
	batchID := uuid.NewString()
	start := time.Now()

	l.logger.Debug(ctx, "sending batch",
		logger.String("batchId", batchID),
		logger.Int("size", len(batch)),
	)

	balance, err := l.validator.ValidateBatch(ctx, batch)
	metrics.RecordFlushRoundTrip(float64(time.Since(start).Milliseconds()))

	l.mu.Lock()
	l.inFlight = false
	if err != nil {
		// The optimistic balance stays uncorrected until a successful
		// round trip; nothing is surfaced to gameplay.
		l.mu.Unlock()
		l.logger.Warn(ctx, "batch validation failed",
			logger.String("batchId", batchID),
			logger.Error(err),
		)
		return
	}
	l.optimistic = balance
	l.reconciled = balance
	l.mu.Unlock()

	metrics.UpdateOptimisticBalance(balance)
	metrics.UpdateReconciledBalance(balance)
	l.notify(balance)

	l.logger.Debug(ctx, "batch reconciled",
		logger.String("batchId", batchID),
		logger.Int64("balance", balance),
	)
}

// LevelCompleted is the explicit flush trigger from level-completion logic.
func (l *Ledger) LevelCompleted(ctx context.Context) {
	l.Flush(ctx)
}

// Tick applies the time-based flush policy. Exposed so a host loop can
// drive the ledger without Run.
func (l *Ledger) Tick(ctx context.Context) {
	l.mu.Lock()
	due := time.Since(l.lastFlush) >= l.maxBatchInterval && len(l.pending) > 0
	l.mu.Unlock()

	if due {
		l.Flush(ctx)
	}
}

// Run drives Tick until ctx is cancelled.
func (l *Ledger) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// SeedBalance overwrites both balances with an authoritative value fetched
// outside the flush path, e.g. the startup wallet sync.
func (l *Ledger) SeedBalance(balance int64) {
	l.mu.Lock()
	l.optimistic = balance
	l.reconciled = balance
	l.mu.Unlock()

	metrics.UpdateOptimisticBalance(balance)
	metrics.UpdateReconciledBalance(balance)
	l.notify(balance)
}

// OptimisticBalance returns the UI-visible balance.
func (l *Ledger) OptimisticBalance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.optimistic
}

// ReconciledBalance returns the last authoritative balance seen.
func (l *Ledger) ReconciledBalance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reconciled
}

// PendingCount returns the number of rewards awaiting flush.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// InFlight reports whether a flush round trip is outstanding.
func (l *Ledger) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// notify fans the balance out to listeners without holding the lock.
func (l *Ledger) notify(balance int64) {
	l.mu.Lock()
	targets := make([]BalanceListener, 0, len(l.listeners))
	for listener := range l.listeners {
		targets = append(targets, listener)
	}
	l.mu.Unlock()

	for _, listener := range targets {
		listener.BalanceChanged(balance)
	}
}
