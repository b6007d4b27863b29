package store

import (
	"database/sql"
	"fmt"
)

type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Toggle subscribes the user to the event, or unsubscribes if already
// subscribed. It returns the resulting subscription state.
func (s *SubscriptionStore) Toggle(userID, eventID string) (subscribed bool, err error) {
	res, err := s.db.Exec(
		`DELETE FROM event_subscriptions WHERE user_id = ? AND event_id = ?`,
		userID, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	if _, err := s.db.Exec(
		`INSERT INTO event_subscriptions (user_id, event_id) VALUES (?, ?)`,
		userID, eventID,
	); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	return true, nil
}

// ListForUser returns the ids of events the user is subscribed to.
func (s *SubscriptionStore) ListForUser(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT event_id FROM event_subscriptions WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsSubscribed reports whether the user is subscribed to the event.
func (s *SubscriptionStore) IsSubscribed(userID, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM event_subscriptions WHERE user_id = ? AND event_id = ?`,
		userID, eventID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return true, nil
}
