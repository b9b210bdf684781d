package paper

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/auth"
	"github.com/traderdesk/paper-engine/internal/model"
)

// placeOrderBody is the JSON body for POST /api/v1/paper/orders.
type placeOrderBody struct {
	Symbol string          `json:"symbol"`
	Side   string          `json:"side"`
	Qty    decimal.Decimal `json:"qty"`
}

// CreateOrder handles POST /api/v1/paper/orders.
func (s *Service) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErrorKind(w, KindUnauthorized, "no authenticated user")
		return
	}

	var body placeOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorKind(w, KindValidation, "invalid request body")
		return
	}

	order, err := s.PlaceOrder(r.Context(), userID, OrderRequest{
		Symbol: body.Symbol,
		Side:   model.Side(body.Side),
		Qty:    body.Qty,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/paper/orders.
func (s *Service) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErrorKind(w, KindUnauthorized, "no authenticated user")
		return
	}

	orders, err := s.Orders(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListPositions handles GET /api/v1/paper/positions.
func (s *Service) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErrorKind(w, KindUnauthorized, "no authenticated user")
		return
	}

	positions, err := s.Positions(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetBalance handles GET /api/v1/paper/balance.
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErrorKind(w, KindUnauthorized, "no authenticated user")
		return
	}

	balance, err := s.Balance(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// ListLedger handles GET /api/v1/paper/ledger.
func (s *Service) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErrorKind(w, KindUnauthorized, "no authenticated user")
		return
	}

	entries, err := s.Ledger(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error   Kind   `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeEngineError maps a typed engine error to its HTTP status.
// Untyped errors are logged and surfaced as a generic 500.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	body := errorBody{Error: kind}

	var e *Error
	if errors.As(err, &e) {
		body.Field = e.Field
		body.Message = e.Message
	}
	if kind == KindInternal || kind == KindWalletNotFound || kind == KindTxConflict {
		slog.Error("paper request failed", "err", err)
		body.Message = "internal error"
	}

	writeJSON(w, kind.HTTPStatus(), body)
}

func writeErrorKind(w http.ResponseWriter, kind Kind, message string) {
	writeJSON(w, kind.HTTPStatus(), errorBody{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
