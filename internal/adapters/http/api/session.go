package api

import (
	"net/http"
	"time"

	"github.com/okian/pachi/internal/domain/model"
)

// sessionResponse mirrors the read shape of GET /session.
type sessionResponse struct {
	Balance        int64               `json:"balance"`
	LastReset      string              `json:"lastReset"`
	Level          int64               `json:"level"`
	BallsRemaining int64               `json:"ballsRemaining"`
	RoundScore     int64               `json:"roundScore"`
	BallsScored    int64               `json:"ballsScoredThisLevel"`
	SessionRewards []model.RewardPackage `json:"sessionRewards"`
}

// SessionHandler handles session snapshot reads.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleGetSession handles GET /session requests. An expired record is
// hard-reset before it is returned.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	snapshot, err := h.deps.SessionSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session_read_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Balance:        snapshot.Balance,
		LastReset:      snapshot.LastReset.Format(time.RFC3339Nano),
		Level:          snapshot.Session.Level,
		BallsRemaining: snapshot.Session.BallsRemaining,
		RoundScore:     snapshot.Session.RoundScore,
		BallsScored:    snapshot.Session.BallsScoredThisLevel,
		SessionRewards: snapshot.Session.SessionRewards,
	})
}
