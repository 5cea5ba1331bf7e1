package api

import "net/http"

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.GetStats(r.Context()))
}

// FlushHandler triggers a manual flush of pending rewards.
type FlushHandler struct {
	deps Dependencies
}

// NewFlushHandler creates a new flush handler.
func NewFlushHandler(deps Dependencies) *FlushHandler {
	return &FlushHandler{deps: deps}
}

// HandlePostFlush handles POST /flush requests. The flush is asynchronous;
// the response only acknowledges the trigger.
func (h *FlushHandler) HandlePostFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.Flush(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "flush triggered"})
}
