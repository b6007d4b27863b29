// Package rewards owns the points balance and coupon history for the active
// user. Every mutation is persisted before the operation completes, so a
// reload restores the exact prior state.
package rewards

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmardones/campusred/internal/model"
)

// DefaultBalance is the starting balance for a user with no saved ledger.
const DefaultBalance = 850

// Points credited for detail-view actions.
const (
	PointsReview = 50
	PointsAlert  = 30
	PointsRating = 20
)

var ErrNoActiveUser = errors.New("no active user")

// Store is the persistence collaborator. The ledger never reads or writes
// records directly; storage timing is part of the operation contract.
type Store interface {
	Balance(userID string) (balance int, ok bool, err error)
	SaveBalance(userID string, balance int) error
	Coupons(userID string) ([]model.Coupon, error)
	SaveRedemption(userID string, balance int, c model.Coupon, position int) error
}

// Ledger is the rewards state for one active user. Earn and Redeem are
// serialized under a single mutex so a concurrent check-then-decrement can
// never overspend, and no observer sees a decrement without its coupon.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	logger  *slog.Logger
	userID  string
	balance int
	coupons []model.Coupon
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// SetUser swaps the ledger wholesale to the given user's persisted state.
// A user with no saved record, or with an unreadable one, starts from the
// documented default.
func (l *Ledger) SetUser(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok, err := l.store.Balance(userID)
	if err != nil {
		return fmt.Errorf("load ledger for %s: %w", userID, err)
	}
	if !ok {
		balance = DefaultBalance
		if err := l.store.SaveBalance(userID, balance); err != nil {
			return fmt.Errorf("initialize ledger for %s: %w", userID, err)
		}
		l.logger.Info("ledger initialized", "user_id", userID, "balance", balance)
	}

	coupons, err := l.store.Coupons(userID)
	if err != nil {
		return fmt.Errorf("load coupons for %s: %w", userID, err)
	}

	l.userID = userID
	l.balance = balance
	l.coupons = coupons
	return nil
}

// ClearUser resets the observable state to zero and no coupons. The previous
// user's persisted records are untouched.
func (l *Ledger) ClearUser() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.userID = ""
	l.balance = 0
	l.coupons = nil
}

// UserID returns the active user id, or empty when no user is active.
func (l *Ledger) UserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userID
}

// Balance returns the current balance (zero when no user is active).
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Coupons returns the redeemed coupons in redemption order.
func (l *Ledger) Coupons() []model.Coupon {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Coupon, len(l.coupons))
	copy(out, l.coupons)
	return out
}

// Earn credits amount points. The new balance is persisted before Earn
// returns; on a storage failure the in-memory balance is left unchanged.
func (l *Ledger) Earn(amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("earn amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.userID == "" {
		return 0, ErrNoActiveUser
	}

	next := l.balance + amount
	if err := l.store.SaveBalance(l.userID, next); err != nil {
		return l.balance, fmt.Errorf("persist balance: %w", err)
	}
	l.balance = next
	return l.balance, nil
}

// Redeem exchanges points for the prize. It returns false with no mutation
// when the balance does not cover the cost; otherwise the decrement and the
// coupon append happen atomically and are persisted before Redeem returns.
func (l *Ledger) Redeem(prize model.Prize) (*model.Coupon, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.userID == "" {
		return nil, false, ErrNoActiveUser
	}

	if l.balance < prize.Cost {
		return nil, false, nil
	}

	coupon := model.Coupon{
		ID:         uuid.NewString(),
		Prize:      prize,
		RedeemedAt: time.Now().UTC(),
	}
	next := l.balance - prize.Cost

	if err := l.store.SaveRedemption(l.userID, next, coupon, len(l.coupons)); err != nil {
		return nil, false, fmt.Errorf("persist redemption: %w", err)
	}

	l.balance = next
	l.coupons = append(l.coupons, coupon)
	l.logger.Info("prize redeemed", "user_id", l.userID, "prize_id", prize.ID, "balance", l.balance)
	return &coupon, true, nil
}

// Shortfall returns how many points the active user is missing for the
// prize, or zero when it is affordable.
func (l *Ledger) Shortfall(prize model.Prize) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance >= prize.Cost {
		return 0
	}
	return prize.Cost - l.balance
}
