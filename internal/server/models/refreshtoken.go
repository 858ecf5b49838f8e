package models

import "time"

// RefreshToken is a server-side session handle, rotated on every refresh.
type RefreshToken struct {
	ID        string
	UserID    string
	Email     string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
