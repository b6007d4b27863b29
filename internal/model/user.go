package model

import (
	"strings"
	"time"
)

// EmailDomain is the institutional domain accounts must belong to.
const EmailDomain = "@uc.cl"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidEmail reports whether the address belongs to the institutional domain.
// This is an eligibility check, not an ownership proof.
func ValidEmail(email string) bool {
	return strings.HasSuffix(email, EmailDomain) && len(email) > len(EmailDomain)
}

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
