package model

import "time"

type ContestStatus string

const (
	ContestUpcoming ContestStatus = "upcoming"
	ContestOngoing  ContestStatus = "ongoing"
	ContestEnded    ContestStatus = "ended"
)

type Contest struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Rules           *string   `json:"rules,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	IsPublic        bool      `json:"is_public"`
	IsRated         bool      `json:"is_rated"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	CreatedByID     string    `json:"created_by_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusAt classifies the contest window; both bounds are inclusive.
func (c *Contest) StatusAt(now time.Time) ContestStatus {
	switch {
	case now.Before(c.StartTime):
		return ContestUpcoming
	case now.After(c.EndTime):
		return ContestEnded
	default:
		return ContestOngoing
	}
}

// DurationMinutes is the length of the contest window in minutes.
func (c *Contest) DurationMinutes() float64 {
	return c.EndTime.Sub(c.StartTime).Minutes()
}

type ContestParticipation struct {
	UserID       string    `json:"user_id"`
	ContestID    string    `json:"contest_id"`
	RegisteredAt time.Time `json:"registered_at"`
}
