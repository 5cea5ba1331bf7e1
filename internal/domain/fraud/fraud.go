// Package fraud evaluates reward packages against anti-abuse heuristics.
//
// The detector is advisory: it reports findings and never mutates state.
// The validation service decides what blocks crediting (duplicates and
// out-of-range scores) and what is recorded for audit only.
package fraud

import (
	"context"

	"github.com/okian/pachi/internal/domain/model"
)

// Default heuristic bounds.
const (
	defaultMinScore          = 1
	defaultMaxScore          = 10000
	defaultAbnormalThreshold = 1000
)

// Report carries the findings for a single package.
type Report struct {
	// Duplicate means the event id was already processed. Blocks crediting.
	Duplicate bool
	// OutOfRange means the score is outside the hard accept bounds.
	// Blocks crediting.
	OutOfRange bool
	// MissingSource means the package has no source id. Audit only.
	MissingSource bool
	// Abnormal means the score is inside the hard bounds but above the
	// looser anomaly threshold. Audit only.
	Abnormal bool
}

// Blocking reports whether any finding must exclude the package's score
// from the accepted delta.
func (r Report) Blocking() bool {
	return r.Duplicate || r.OutOfRange
}

// Flagged reports whether the package warrants an audit entry at all.
func (r Report) Flagged() bool {
	return r.Duplicate || r.OutOfRange || r.MissingSource || r.Abnormal
}

// SeenChecker answers whether an event id was already processed.
// The detector consults it but never records ids itself.
type SeenChecker interface {
	SeenAndRecord(ctx context.Context, id int64) bool
}

// Detector screens reward packages.
type Detector interface {
	// Evaluate inspects one package. seen is the duplicate oracle; passing
	// the tracker's SeenAndRecord makes the first occurrence win within a
	// batch and the second the duplicate.
	Evaluate(ctx context.Context, pkg model.RewardPackage, seen SeenChecker) Report
}

// HeuristicDetector implements Detector with fixed-bound heuristics.
type HeuristicDetector struct {
	minScore          int64
	maxScore          int64
	abnormalThreshold int64
}

// Option applies a configuration option to the HeuristicDetector.
type Option func(*HeuristicDetector)

// WithScoreBounds sets the hard accept range [min, max].
func WithScoreBounds(minScore, maxScore int64) Option {
	return func(d *HeuristicDetector) {
		if minScore > 0 && maxScore > minScore {
			d.minScore = minScore
			d.maxScore = maxScore
		}
	}
}

// WithAbnormalThreshold sets the audit-only anomaly threshold.
func WithAbnormalThreshold(threshold int64) Option {
	return func(d *HeuristicDetector) {
		if threshold > 0 {
			d.abnormalThreshold = threshold
		}
	}
}

// NewHeuristicDetector creates a detector with configuration options.
func NewHeuristicDetector(opts ...Option) *HeuristicDetector {
	d := &HeuristicDetector{
		minScore:          defaultMinScore,
		maxScore:          defaultMaxScore,
		abnormalThreshold: defaultAbnormalThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Evaluate inspects one package and reports its findings.
func (d *HeuristicDetector) Evaluate(ctx context.Context, pkg model.RewardPackage, seen SeenChecker) Report {
	var r Report

	if pkg.Score < d.minScore || pkg.Score > d.maxScore {
		r.OutOfRange = true
	}

	// Out-of-range packages are still marked processed so a resend cannot
	// re-credit them; SeenAndRecord does both checks in one step.
	if seen != nil && seen.SeenAndRecord(ctx, pkg.EventID) {
		r.Duplicate = true
	}

	if pkg.SourceID == "" {
		r.MissingSource = true
	}

	if !r.OutOfRange && pkg.Score > d.abnormalThreshold {
		r.Abnormal = true
	}

	return r
}
