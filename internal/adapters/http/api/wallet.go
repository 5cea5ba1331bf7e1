package api

import "net/http"

// walletResponse mirrors the read shape of GET /wallet.
type walletResponse struct {
	Balance int64 `json:"balance"`
}

// WalletHandler handles wallet reads.
type WalletHandler struct {
	deps Dependencies
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(deps Dependencies) *WalletHandler {
	return &WalletHandler{deps: deps}
}

// HandleGetWallet handles GET /wallet requests. The read goes through the
// validation service and therefore carries the simulated latency.
func (h *WalletHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	balance, err := h.deps.Wallet(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "wallet_read_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Balance: balance})
}
