package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/accountant"
	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/store"
)

// ErrorResponse is the JSON body written for any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DebugHandler exposes read-only introspection endpoints over the running
// engine's in-memory state: current positions and the most recent
// accept/reject decisions.
type DebugHandler struct {
	accountant *accountant.Accountant
	store      store.Store
	logger     *zap.Logger
}

// NewDebugHandler constructs a DebugHandler.
func NewDebugHandler(acc *accountant.Accountant, st store.Store, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{accountant: acc, store: st, logger: logger}
}

// PositionView is the JSON shape of a single position in the /positions response.
type PositionView struct {
	TokenID     string  `json:"token_id"`
	Qty         float64 `json:"qty"`
	AvgCost     float64 `json:"avg_cost"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// HandlePositions handles GET /positions, returning every tracked
// position regardless of size (including flat ones at zero qty).
func (h *DebugHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	positions := h.accountant.Positions()
	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, PositionView{
			TokenID:     p.TokenID,
			Qty:         p.Qty,
			AvgCost:     p.AvgCost,
			RealizedPnL: p.RealizedPnL,
		})
	}

	h.writeJSON(w, out)
}

// DecisionView is the JSON shape of a single decision in the
// /decisions/recent response.
type DecisionView struct {
	IntentID        string `json:"intent_id"`
	TokenID         string `json:"token_id"`
	Side            string `json:"side"`
	Price           float64 `json:"price"`
	Size            float64 `json:"size"`
	Mode            string `json:"mode"`
	Reason          string `json:"reason"`
	Accepted        bool   `json:"accepted"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	TSMs            int64  `json:"ts_ms"`
}

const defaultRecentDecisionLimit = 100

// HandleRecentDecisions handles GET /decisions/recent?limit=<n>, returning
// the most recent accept/reject audit records in descending time order.
func (h *DebugHandler) HandleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultRecentDecisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	decisions, err := h.store.RecentDecisions(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent-decisions-query-failed", zap.Error(err))
		h.writeError(w, "failed to load decisions", http.StatusInternalServerError)
		return
	}

	out := make([]DecisionView, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, decisionView(d))
	}

	h.writeJSON(w, out)
}

func decisionView(d *domain.Decision) DecisionView {
	return DecisionView{
		IntentID:        d.IntentID,
		TokenID:         d.TokenID,
		Side:            string(d.Side),
		Price:           d.Price,
		Size:            d.Size,
		Mode:            string(d.Mode),
		Reason:          d.Reason,
		Accepted:        d.Accepted,
		RejectionReason: d.RejectionReason,
		TSMs:            d.TSMs,
	}
}

func (h *DebugHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *DebugHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
