package model

import "time"

// LeaderboardEntry is one row of the dynamic, recomputed-on-read standings.
type LeaderboardEntry struct {
	Rank                      int     `json:"rank"`
	UserID                    string  `json:"user_id"`
	Username                  string  `json:"username"`
	TotalScore                int     `json:"total_score"`
	TotalSubmissions          int     `json:"total_submissions"`
	AcceptedSubmissions       int     `json:"accepted_submissions"`
	WrongSubmissions          int     `json:"wrong_submissions"`
	ProblemsSolved            int     `json:"problems_solved"`
	TotalTime                 float64 `json:"total_time"`
	TotalAttempts             int     `json:"total_attempts"`
	AverageAttemptsPerProblem float64 `json:"average_attempts_per_problem"`
}

// LeaderboardRow is the persisted per-contest snapshot.
type LeaderboardRow struct {
	ContestID          string    `json:"contest_id"`
	UserID             string    `json:"user_id"`
	Username           string    `json:"username,omitempty"`
	Score              int       `json:"score"`
	ProblemsSolved     int       `json:"problems_solved"`
	Penalty            int       `json:"penalty"` // minutes
	Rank               *int      `json:"rank,omitempty"`
	LastSubmissionTime time.Time `json:"last_submission_time"`
}
