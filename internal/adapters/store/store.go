// Package store persists the authoritative account and session record.
//
// The on-disk format is a single JSON document, written after every
// authoritative mutation. Only the validation service writes it.
package store

import (
	"context"
	"time"

	"github.com/okian/pachi/internal/domain/model"
)

// State is the single persisted record: the authoritative wallet plus the
// session-scoped progress and the processed-id set.
type State struct {
	Balance              int64                 `json:"balance"`
	LastResetUTC         string                `json:"lastResetTimestamp"`
	Level                int64                 `json:"level"`
	BallsRemaining       int64                 `json:"ballsRemaining"`
	RoundScore           int64                 `json:"roundScore"`
	BallsScoredThisLevel int64                 `json:"ballsScoredThisLevel"`
	SessionRewards       []model.RewardPackage `json:"sessionRewards"`
	ProcessedEventIDs    []int64               `json:"processedEventIds"`
}

// DefaultState returns a fresh record for first run or after corruption.
// The reset timestamp is left empty so the session manager forces an
// immediate hard reset.
func DefaultState(ballAllowance int64) *State {
	return &State{
		Balance:              0,
		LastResetUTC:         "",
		Level:                1,
		BallsRemaining:       ballAllowance,
		RoundScore:           0,
		BallsScoredThisLevel: 0,
		SessionRewards:       []model.RewardPackage{},
		ProcessedEventIDs:    []int64{},
	}
}

// ResetTime parses the stored reset timestamp. ok is false when the value
// is missing or fails strict RFC 3339 parsing; callers treat that as absent
// and trigger a hard reset.
func (s *State) ResetTime() (time.Time, bool) {
	if s.LastResetUTC == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.LastResetUTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Store provides durable access to the persisted record.
type Store interface {
	// Load returns the last saved state, or defaults when the record is
	// absent or unreadable. Never fatal.
	Load(ctx context.Context) (*State, error)

	// Save durably overwrites the record.
	Save(ctx context.Context, state *State) error
}
