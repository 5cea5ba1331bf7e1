// Package model contains domain models passed between layers.
package model

import "time"

// RewardPackage is one scoring event captured at the moment a ball lands
// in a bucket. Immutable after creation; owned by the ledger until flushed,
// then by the validation service for auditing.
type RewardPackage struct {
	Score      int64     `json:"score"`
	SourceID   string    `json:"sourceId"` // bucket that produced the score, may be empty
	EventID    int64     `json:"eventId"`  // unique id of the originating ball
	CapturedAt time.Time `json:"timestamp"`
}

// NewRewardPackage builds a package stamped with the current UTC time.
func NewRewardPackage(score int64, sourceID string, eventID int64) RewardPackage {
	return RewardPackage{
		Score:      score,
		SourceID:   sourceID,
		EventID:    eventID,
		CapturedAt: time.Now().UTC(),
	}
}

// SessionRecord is the authoritative, session-scoped progress owned by the
// validation service. Reset to defaults (except the wallet balance, which
// lives on AccountSnapshot) by a hard reset.
type SessionRecord struct {
	Level                int64           `json:"level"`
	BallsRemaining       int64           `json:"ballsRemaining"`
	RoundScore           int64           `json:"roundScore"`
	BallsScoredThisLevel int64           `json:"ballsScoredThisLevel"`
	SessionRewards       []RewardPackage `json:"sessionRewards"`
}

// AccountSnapshot is a read-only view of the authoritative account state,
// returned to callers of the validation service.
type AccountSnapshot struct {
	Balance   int64
	LastReset time.Time
	Session   SessionRecord
}
