// Package api declares the HTTP ops surface: wallet and session reads,
// a manual flush trigger, stats and metrics. Rewards never enter through
// HTTP; the game channel is in-process.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pachi/internal/domain/model"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps
// the handler layer loosely coupled to the app service.
type Dependencies interface {
	// Wallet returns the authoritative balance.
	Wallet(ctx context.Context) (int64, error)

	// SessionSnapshot returns the session record, hard-resetting first
	// when it has expired.
	SessionSnapshot(ctx context.Context) (model.AccountSnapshot, error)

	// Flush force-sends pending rewards for validation.
	Flush(ctx context.Context)

	// GetStats returns service statistics.
	GetStats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler  *HealthHandler
	metricsHandler *MetricsHandler
	walletHandler  *WalletHandler
	sessionHandler *SessionHandler
	flushHandler   *FlushHandler
	statsHandler   *StatsHandler
}

// NewServer creates a new ops API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		metricsHandler: NewMetricsHandler(),
		walletHandler:  NewWalletHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		flushHandler:   NewFlushHandler(deps),
		statsHandler:   NewStatsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/wallet", MetricsMiddleware(s.walletHandler.HandleGetWallet, "wallet"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("/flush", MetricsMiddleware(s.flushHandler.HandlePostFlush, "flush"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
