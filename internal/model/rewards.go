package model

import "time"

type Prize struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}

// Coupon is proof of a completed prize redemption. It is created exactly once
// per successful redemption and never mutated afterward. The prize is stored
// as a snapshot so later catalog changes cannot alter issued coupons.
type Coupon struct {
	ID         string    `json:"id"`
	Prize      Prize     `json:"prize"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

type RankingEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}
