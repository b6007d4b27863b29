package store

import (
	"database/sql"
	"fmt"

	"github.com/tmardones/campusred/internal/model"
)

// LedgerSchemaVersion tags every persisted ledger record. Records written
// under a different version are invisible to reads and therefore treated as
// absent state, which the ledger replaces with its documented default.
const LedgerSchemaVersion = 1

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Balance returns the persisted balance for the user. ok is false when no
// readable record exists.
func (s *LedgerStore) Balance(userID string) (balance int, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT balance FROM ledger_balances WHERE user_id = ? AND schema_version = ?`,
		userID, LedgerSchemaVersion,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get balance: %w", err)
	}
	if balance < 0 {
		// Corrupted record; treat as absent.
		return 0, false, nil
	}
	return balance, true, nil
}

// SaveBalance upserts the user's balance record.
func (s *LedgerStore) SaveBalance(userID string, balance int) error {
	_, err := s.db.Exec(
		`INSERT INTO ledger_balances (user_id, balance, schema_version, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET
		   balance = excluded.balance,
		   schema_version = excluded.schema_version,
		   updated_at = excluded.updated_at`,
		userID, balance, LedgerSchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

func scanCoupon(scanner interface{ Scan(...any) error }) (*model.Coupon, error) {
	var c model.Coupon
	err := scanner.Scan(&c.ID, &c.Prize.ID, &c.Prize.Name, &c.Prize.Description, &c.Prize.Cost, &c.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const couponCols = `id, prize_id, prize_name, prize_description, prize_cost, redeemed_at`

// Coupons returns the user's coupons in redemption order.
func (s *LedgerStore) Coupons(userID string) ([]model.Coupon, error) {
	rows, err := s.db.Query(
		`SELECT `+couponCols+` FROM ledger_coupons
		 WHERE user_id = ? AND schema_version = ? ORDER BY position ASC`,
		userID, LedgerSchemaVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// SaveRedemption persists the post-redemption balance and the new coupon in
// one transaction, so a reload can never observe one without the other.
func (s *LedgerStore) SaveRedemption(userID string, balance int, c model.Coupon, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin redemption tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO ledger_balances (user_id, balance, schema_version, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET
		   balance = excluded.balance,
		   schema_version = excluded.schema_version,
		   updated_at = excluded.updated_at`,
		userID, balance, LedgerSchemaVersion,
	); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO ledger_coupons
		 (id, user_id, position, prize_id, prize_name, prize_description, prize_cost, redeemed_at, schema_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, userID, position, c.Prize.ID, c.Prize.Name, c.Prize.Description, c.Prize.Cost, c.RedeemedAt, LedgerSchemaVersion,
	); err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit redemption: %w", err)
	}
	return nil
}
