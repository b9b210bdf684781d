package broker

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handlers serves the broker proxy routes.
type Handlers struct {
	client Client
}

// NewHandlers creates the broker proxy handler set.
func NewHandlers(client Client) *Handlers {
	return &Handlers{client: client}
}

// GetAccount handles GET /api/v1/broker/account.
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.client.GetAccount(r.Context())
	if err != nil {
		writeUpstreamError(w, "account", err)
		return
	}
	writeJSON(w, acct)
}

// ListOrders handles GET /api/v1/broker/orders.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.client.GetOrders(r.Context(), 50)
	if err != nil {
		writeUpstreamError(w, "orders", err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, orders)
}

// ListPositions handles GET /api/v1/broker/positions.
func (h *Handlers) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.client.GetPositions(r.Context())
	if err != nil {
		writeUpstreamError(w, "positions", err)
		return
	}
	if positions == nil {
		positions = []Position{}
	}
	writeJSON(w, positions)
}

func writeUpstreamError(w http.ResponseWriter, what string, err error) {
	slog.Error("broker proxy failed", "what", what, "err", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	json.NewEncoder(w).Encode(map[string]string{"error": "BROKER_UPSTREAM_FAILED"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
