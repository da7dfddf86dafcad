package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/openpredict/predictd/internal/domain"
)

// PositionReader defines the position query the handler requires.
type PositionReader interface {
	GetPosition(ctx context.Context, marketID uint64, account string) (domain.Position, error)
}

// PositionHandler serves per-account position endpoints.
type PositionHandler struct {
	positions PositionReader
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionReader, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// GetPosition returns an account's share balances in a market. Accounts that
// never traded get a zero position.
// GET /api/markets/{id}/positions/{account}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	account := r.PathValue("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	pos, err := h.positions.GetPosition(r.Context(), id, account)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pos)
}
