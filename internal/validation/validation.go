// Package validation implements the authoritative side of the reward
// exchange: batch validation, fraud screening, session bookkeeping and
// hard resets. It is the single writer of the persistence store.
package validation

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
	"github.com/okian/pachi/pkg/logger"
	"github.com/okian/pachi/pkg/metrics"
)

// Default session configuration.
const (
	defaultBallAllowance = 50
	defaultResetWindow   = 15 * time.Minute
)

// Service is the authority over the wallet balance and session record.
// Round-trip operations wait on the latency policy before touching state,
// modeling the network boundary of a real validation backend.
type Service struct {
	mu       sync.Mutex
	state    *store.State
	store    store.Store
	tracker  dedupe.Tracker
	detector fraud.Detector
	delay    latency.Policy

	ballAllowance int64
	resetWindow   time.Duration
	now           func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence store.
func WithStore(s store.Store) Option {
	return func(v *Service) {
		if s != nil {
			v.store = s
		}
	}
}

// WithTracker sets the processed-id tracker.
func WithTracker(t dedupe.Tracker) Option {
	return func(v *Service) {
		if t != nil {
			v.tracker = t
		}
	}
}

// WithDetector sets the fraud detector.
func WithDetector(d fraud.Detector) Option {
	return func(v *Service) {
		if d != nil {
			v.detector = d
		}
	}
}

// WithLatencyPolicy sets the simulated round-trip delay.
func WithLatencyPolicy(p latency.Policy) Option {
	return func(v *Service) {
		if p != nil {
			v.delay = p
		}
	}
}

// WithBallAllowance sets the ball count granted by a hard reset.
func WithBallAllowance(allowance int64) Option {
	return func(v *Service) {
		if allowance > 0 {
			v.ballAllowance = allowance
		}
	}
}

// WithResetWindow sets the session expiry window.
func WithResetWindow(window time.Duration) Option {
	return func(v *Service) {
		if window > 0 {
			v.resetWindow = window
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *Service) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Service) {
		if l != nil {
			v.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	v := &Service{
		ballAllowance: defaultBallAllowance,
		resetWindow:   defaultResetWindow,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.tracker == nil {
		v.tracker = dedupe.NewInMemoryTracker()
	}
	if v.detector == nil {
		v.detector = fraud.NewHeuristicDetector()
	}
	if v.delay == nil {
		v.delay = latency.NewUniformPolicy()
	}
	if v.logger == nil {
		v.logger = logger.Get().Named("validation")
	}

	return v
}

// Start loads the persisted record and seeds the processed-id tracker.
func (v *Service) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != nil {
		return nil
	}

	if v.store == nil {
		v.state = store.DefaultState(v.ballAllowance)
		v.logger.Warn(ctx, "no persistence store configured, state is ephemeral")
		return nil
	}

	state, err := v.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	v.state = state
	v.tracker.Restore(ctx, state.ProcessedEventIDs)

	metrics.UpdateWalletBalance(state.Balance)
	v.logger.Info(ctx, "authoritative state loaded",
		logger.Int64("balance", state.Balance),
		logger.Int64("level", state.Level),
		logger.Int("processedIds", len(state.ProcessedEventIDs)),
	)
	return nil
}

// ValidateBatch screens each package in registration order, credits the
// accepted delta and returns the new authoritative balance. Duplicate and
// out-of-range packages contribute nothing; out-of-range ids are still
// marked processed so a resend cannot re-credit them.
func (v *Service) ValidateBatch(ctx context.Context, batch []model.RewardPackage) (int64, error) {
	if err := v.delay.Wait(ctx); err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	metrics.RecordBatchValidated()

	if len(batch) == 0 {
		return v.state.Balance, nil
	}

	var delta int64
	var accepted int
	for _, pkg := range batch {
		report := v.detector.Evaluate(ctx, pkg, v.tracker)
		v.audit(ctx, pkg, report)
		if report.Blocking() {
			continue
		}

		delta += pkg.Score
		accepted++
		v.state.SessionRewards = append(v.state.SessionRewards, pkg)
		metrics.RecordRewardAccepted()
	}

	v.state.Balance += delta
	metrics.UpdateWalletBalance(v.state.Balance)

	v.logger.Debug(ctx, "batch validated",
		logger.Int("batchSize", len(batch)),
		logger.Int("accepted", accepted),
		logger.Int64("delta", delta),
		logger.Int64("balance", v.state.Balance),
	)

	if err := v.persistLocked(ctx); err != nil {
		return v.state.Balance, fmt.Errorf("persist after batch: %w", err)
	}
	return v.state.Balance, nil
}

// audit logs detector findings. Advisory flags never block crediting.
func (v *Service) audit(ctx context.Context, pkg model.RewardPackage, report fraud.Report) {
	if !report.Flagged() {
		return
	}

	if report.Duplicate {
		metrics.RecordRewardDuplicate()
		v.logger.Warn(ctx, "duplicate event id, score excluded",
			logger.Int64("eventId", pkg.EventID),
			logger.String("sourceId", pkg.SourceID),
		)
	}
	if report.OutOfRange {
		metrics.RecordRewardOutOfRange()
		v.logger.Warn(ctx, "score outside accepted bounds, score excluded",
			logger.Int64("eventId", pkg.EventID),
			logger.Int64("score", pkg.Score),
		)
	}
	if report.MissingSource {
		metrics.RecordRewardMissingSource()
		v.logger.Warn(ctx, "reward has no source id",
			logger.Int64("eventId", pkg.EventID),
		)
	}
	if report.Abnormal {
		metrics.RecordRewardAbnormal()
		v.logger.Warn(ctx, "abnormally high score",
			logger.Int64("eventId", pkg.EventID),
			logger.Int64("score", pkg.Score),
			logger.String("sourceId", pkg.SourceID),
		)
	}
}

// Wallet returns the authoritative balance without mutation.
func (v *Service) Wallet(ctx context.Context) (int64, error) {
	if err := v.delay.Wait(ctx); err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.Balance, nil
}

// ReportGameState is the trusted, synchronous session bookkeeping channel
// from gameplay orchestration. It carries no rewards and is not validated.
func (v *Service) ReportGameState(ctx context.Context, level, ballsRemaining, roundScore, ballsScored int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.Level = level
	v.state.BallsRemaining = ballsRemaining
	v.state.RoundScore = roundScore
	v.state.BallsScoredThisLevel = ballsScored

	if err := v.persistLocked(ctx); err != nil {
		return fmt.Errorf("persist game state: %w", err)
	}
	return nil
}

// SessionSnapshot returns the current session record, hard-resetting first
// when the record is absent or older than the reset window.
func (v *Service) SessionSnapshot(ctx context.Context) (model.AccountSnapshot, error) {
	if err := v.delay.Wait(ctx); err != nil {
		return model.AccountSnapshot{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.expiredLocked() {
		if err := v.hardResetLocked(ctx); err != nil {
			return model.AccountSnapshot{}, err
		}
	}
	return v.snapshotLocked(), nil
}

// HardReset clears session-scoped state while preserving the wallet balance.
func (v *Service) HardReset(ctx context.Context) error {
	if err := v.delay.Wait(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hardResetLocked(ctx)
}

// LastReset returns the parsed reset timestamp; ok is false when the value
// is missing or unparsable. Same-process read used by the session watchdog,
// so it skips the latency policy.
func (v *Service) LastReset(ctx context.Context) (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.ResetTime()
}

// Snapshot returns the account state without latency simulation. Serves
// the ops surface only.
func (v *Service) Snapshot(ctx context.Context) model.AccountSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// expiredLocked reports whether the session record must be reset.
// Must be called with v.mu held.
func (v *Service) expiredLocked() bool {
	rt, ok := v.state.ResetTime()
	if !ok {
		return true
	}
	return v.now().UTC().Sub(rt) >= v.resetWindow
}

// hardResetLocked resets session fields to defaults, clears the processed-id
// set and stamps lastReset. The balance survives. Must be called with v.mu
// held.
func (v *Service) hardResetLocked(ctx context.Context) error {
	v.state.Level = 1
	v.state.BallsRemaining = v.ballAllowance
	v.state.RoundScore = 0
	v.state.BallsScoredThisLevel = 0
	v.state.SessionRewards = []model.RewardPackage{}
	v.state.LastResetUTC = v.now().UTC().Format(time.RFC3339Nano)
	v.tracker.Reset(ctx)

	metrics.RecordHardReset()
	v.logger.Info(ctx, "hard reset",
		logger.Int64("balance", v.state.Balance),
		logger.String("lastReset", v.state.LastResetUTC),
	)

	if err := v.persistLocked(ctx); err != nil {
		return fmt.Errorf("persist after reset: %w", err)
	}
	return nil
}

// snapshotLocked copies the current state. Must be called with v.mu held.
func (v *Service) snapshotLocked() model.AccountSnapshot {
	rt, _ := v.state.ResetTime()
	rewards := make([]model.RewardPackage, len(v.state.SessionRewards))
	copy(rewards, v.state.SessionRewards)

	return model.AccountSnapshot{
		Balance:   v.state.Balance,
		LastReset: rt,
		Session: model.SessionRecord{
			Level:                v.state.Level,
			BallsRemaining:       v.state.BallsRemaining,
			RoundScore:           v.state.RoundScore,
			BallsScoredThisLevel: v.state.BallsScoredThisLevel,
			SessionRewards:       rewards,
		},
	}
}

// persistLocked syncs the tracker's id set into the record and saves it.
// Must be called with v.mu held.
func (v *Service) persistLocked(ctx context.Context) error {
	if v.store == nil {
		return nil
	}
	v.state.ProcessedEventIDs = v.tracker.Snapshot(ctx)
	if err := v.store.Save(ctx, v.state); err != nil {
		v.logger.Error(ctx, "persistence write failed", logger.Error(err))
		return err
	}
	return nil
}
