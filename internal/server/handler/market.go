package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

// MarketReader defines the read queries the market handler requires. It is
// declared locally so the handler package does not depend on the concrete
// service implementation.
type MarketReader interface {
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	ListMarkets(ctx context.Context, openOnly bool, opts domain.ListOpts) ([]domain.Market, error)
	ListEvents(ctx context.Context, marketID uint64) ([]domain.Event, error)
}

// LedgerWriter defines the write operations the market handler requires.
type LedgerWriter interface {
	CreateMarket(ctx context.Context, creator, question string, endTime time.Time) (uint64, error)
	BuyShares(ctx context.Context, marketID uint64, buyer string, side domain.Side, amount int64) error
	ResolveMarket(ctx context.Context, marketID uint64, resolver string, outcome bool) error
}

// MarketHandler serves market lifecycle and trading endpoints.
type MarketHandler struct {
	markets MarketReader
	ledger  LedgerWriter
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketReader, ledger LedgerWriter, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		ledger:  ledger,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with pagination echo.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets with pagination. Pass open=true to restrict the
// listing to unresolved markets.
// GET /api/markets?open=true&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	openOnly := r.URL.Query().Get("open") == "true"

	markets, err := h.markets.ListMarkets(r.Context(), openOnly, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its id.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// createMarketRequest is the POST /api/markets body.
type createMarketRequest struct {
	Creator  string    `json:"creator"`
	Question string    `json:"question"`
	EndTime  time.Time `json:"end_time"`
}

// CreateMarket opens a new market and returns its assigned id.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.ledger.CreateMarket(r.Context(), req.Creator, req.Question, req.EndTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"market_id": id})
}

// buyRequest is the POST /api/markets/{id}/buy body.
type buyRequest struct {
	Buyer  string `json:"buyer"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
}

// BuyShares purchases shares on one side of a market.
// POST /api/markets/{id}/buy
func (h *MarketHandler) BuyShares(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req buyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ledger.BuyShares(r.Context(), id, req.Buyer, domain.Side(req.Side), req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "filled"})
}

// resolveRequest is the POST /api/markets/{id}/resolve body. Outcome is a
// pointer so a missing field is distinguishable from an explicit false.
type resolveRequest struct {
	Resolver string `json:"resolver"`
	Outcome  *bool  `json:"outcome"`
}

// ResolveMarket declares a market's outcome and distributes payouts.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req resolveRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Outcome == nil {
		writeError(w, http.StatusBadRequest, "outcome is required")
		return
	}

	if err := h.ledger.ResolveMarket(r.Context(), id, req.Resolver, *req.Outcome); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// ListEvents returns a market's full event history in sequence order.
// GET /api/markets/{id}/events
func (h *MarketHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	events, err := h.markets.ListEvents(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
