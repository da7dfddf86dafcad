package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openpredict/predictd/internal/domain"
)

// Estimator projects the payout an additional purchase would receive if its
// side wins, given current share totals.
type Estimator interface {
	EstimatePayout(sideTotal, otherSideTotal, amount int64) int64
}

// EstimateHandler serves payout estimation endpoints. Estimates are
// advisory: concurrent purchases can change the totals before a buy lands.
type EstimateHandler struct {
	markets   MarketReader
	estimator Estimator
	logger    *slog.Logger
}

// NewEstimateHandler creates an EstimateHandler.
func NewEstimateHandler(markets MarketReader, estimator Estimator, logger *slog.Logger) *EstimateHandler {
	return &EstimateHandler{
		markets:   markets,
		estimator: estimator,
		logger:    logger,
	}
}

// estimateResponse echoes the inputs alongside the projected payout.
type estimateResponse struct {
	Side           domain.Side `json:"side"`
	Amount         int64       `json:"amount"`
	SideTotal      int64       `json:"side_total"`
	OtherSideTotal int64       `json:"other_side_total"`
	Payout         int64       `json:"payout"`
}

// EstimateForMarket projects the payout of a hypothetical purchase against a
// market's current share totals.
// GET /api/markets/{id}/estimate?side=yes&amount=1000000
func (h *EstimateHandler) EstimateForMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	side := domain.Side(r.URL.Query().Get("side"))
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sideTotal := market.SharesOn(side)
	otherTotal := market.SharesOn(side.Other())

	writeJSON(w, http.StatusOK, estimateResponse{
		Side:           side,
		Amount:         amount,
		SideTotal:      sideTotal,
		OtherSideTotal: otherTotal,
		Payout:         h.estimator.EstimatePayout(sideTotal, otherTotal, amount),
	})
}

// Estimate projects a payout from explicitly supplied totals, without
// touching any market.
// GET /api/estimate?side_total=75&other_side_total=25&amount=5
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	parse := func(name string) (int64, bool) {
		v, err := strconv.ParseInt(q.Get(name), 10, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		return v, true
	}

	sideTotal, ok := parse("side_total")
	if !ok {
		writeError(w, http.StatusBadRequest, "side_total must be a non-negative integer")
		return
	}
	otherTotal, ok := parse("other_side_total")
	if !ok {
		writeError(w, http.StatusBadRequest, "other_side_total must be a non-negative integer")
		return
	}
	amount, ok := parse("amount")
	if !ok || amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"payout": h.estimator.EstimatePayout(sideTotal, otherTotal, amount),
	})
}
