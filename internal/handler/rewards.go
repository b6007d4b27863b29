package handler

import (
	"log/slog"
	"net/http"

	"github.com/tmardones/campusred/internal/auth"
	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/model"
	"github.com/tmardones/campusred/internal/rewards"
)

type RewardsHandler struct {
	catalog *catalog.Catalog
	engine  *Sessions
	logger  *slog.Logger
}

func NewRewardsHandler(cat *catalog.Catalog, engine *Sessions, logger *slog.Logger) *RewardsHandler {
	return &RewardsHandler{
		catalog: cat,
		engine:  engine,
		logger:  logger,
	}
}

func (h *RewardsHandler) ledger(w http.ResponseWriter, r *http.Request) (*rewards.Ledger, bool) {
	ac, _ := auth.FromContext(r.Context())
	ledger, err := h.engine.Ledger(ac.UserID)
	if err != nil {
		h.logger.Error("load ledger", "error", err, "user_id", ac.UserID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return ledger, true
}

func (h *RewardsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.ledger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": ledger.Balance()})
}

func (h *RewardsHandler) Coupons(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.ledger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ledger.Coupons())
}

type prizeItem struct {
	model.Prize
	Affordable bool `json:"affordable"`
	Shortfall  int  `json:"shortfall"`
}

// Prizes lists the prize catalog with affordability against the live balance.
func (h *RewardsHandler) Prizes(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.ledger(w, r)
	if !ok {
		return
	}

	prizes := h.catalog.Prizes()
	items := make([]prizeItem, len(prizes))
	for i, p := range prizes {
		shortfall := ledger.Shortfall(p)
		items[i] = prizeItem{Prize: p, Affordable: shortfall == 0, Shortfall: shortfall}
	}
	writeJSON(w, http.StatusOK, items)
}

type redeemRequest struct {
	PrizeID string `json:"prize_id"`
}

type redeemResponse struct {
	Coupon  *model.Coupon `json:"coupon"`
	Balance int           `json:"balance"`
}

// Redeem exchanges points for a prize. Insufficient balance is a 409 with
// the missing amount; the ledger is untouched in that case.
func (h *RewardsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.ledger(w, r)
	if !ok {
		return
	}

	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prize := h.catalog.Prize(req.PrizeID)
	if prize == nil {
		writeError(w, http.StatusNotFound, "prize not found")
		return
	}

	coupon, ok, err := ledger.Redeem(*prize)
	if err != nil {
		h.logger.Error("redeem prize", "error", err, "prize_id", prize.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient balance",
			"shortfall": ledger.Shortfall(*prize),
		})
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{Coupon: coupon, Balance: ledger.Balance()})
}

// Ranking returns the campus leaderboard with the caller's live balance.
func (h *RewardsHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	ledger, ok := h.ledger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ledger.Ranking(h.catalog.Ranking(), ac.Name))
}
