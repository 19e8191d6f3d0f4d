package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const DefaultRating = 1500

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserProfile counters are derived from submissions and recomputed, never
// incremented.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Rating           int       `json:"rating"`
	TotalSubmissions int       `json:"total_submissions"`
	TotalSolved      int       `json:"total_solved"`
	UpdatedAt        time.Time `json:"updated_at"`
}
