package models

import "time"

// Account represents a registered user account.
type Account struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session represents a server-side login session correlated with a
// client cookie. The token is opaque and only ever used for lookup.
type Session struct {
	Token        string    `json:"-" db:"token"`
	AccountID    int64     `json:"account_id" db:"account_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
}

// List represents a to-do list owned by an account.
type List struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Status    string    `json:"status" db:"status"`
	AccountID int64     `json:"-" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Item statuses. No endpoint toggles an item's status; items are
// created pending and the column exists for the summary aggregation.
const (
	ItemStatusPending   = "pending"
	ItemStatusCompleted = "completed"
)

// Item represents a single entry inside a list.
type Item struct {
	ID          int64     `json:"id" db:"id"`
	ListID      int64     `json:"list_id" db:"list_id"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ListSummary reports item counts for one list.
type ListSummary struct {
	ListID    int64  `json:"list_id" db:"list_id"`
	Title     string `json:"title" db:"title"`
	Total     int    `json:"total" db:"total"`
	Pending   int    `json:"pending" db:"pending"`
	Completed int    `json:"completed" db:"completed"`
}
