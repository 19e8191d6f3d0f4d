package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy     ProblemDifficulty = "Easy"
	DifficultyMedium   ProblemDifficulty = "Medium"
	DifficultyHard     ProblemDifficulty = "Hard"
	DifficultyVeryHard ProblemDifficulty = "Very Hard"
)

const (
	DefaultTimeLimit   = 1.0 // seconds
	DefaultMemoryLimit = 256 // MB
	DefaultPoints      = 100
)

type Problem struct {
	ID           string            `json:"id"`
	ContestID    *string           `json:"contest_id,omitempty"` // nil for practice problems
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	Statement    string            `json:"statement"`
	InputFormat  string            `json:"input_format"`
	OutputFormat string            `json:"output_format"`
	Constraints  string            `json:"constraints"`
	Explanation  *string           `json:"explanation,omitempty"`
	TimeLimit    float64           `json:"time_limit"`   // seconds
	MemoryLimit  int               `json:"memory_limit"` // MB
	Difficulty   ProblemDifficulty `json:"difficulty"`
	Points       int               `json:"points"`
	IsVisible    bool              `json:"is_visible"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	SubmissionCount int        `json:"submission_count"`
	AcceptedCount   int        `json:"accepted_count"`
	Testcases       []Testcase `json:"testcases,omitempty"` // Samples only, unless admin
}

// AcceptanceRate is the accepted share of all submissions, as a percentage.
func (p *Problem) AcceptanceRate() float64 {
	if p.SubmissionCount == 0 {
		return 0
	}
	return float64(p.AcceptedCount) / float64(p.SubmissionCount) * 100
}

type Testcase struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	IsSample  bool      `json:"is_sample"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

type PracticeProblem struct {
	Problem
	Editorial    *string `json:"editorial,omitempty"`
	IsFeatured   bool    `json:"is_featured"`
	ViewCount    int     `json:"view_count"`
	SolveCount   int     `json:"solve_count"`   // distinct users with an Accepted submission
	AttemptCount int     `json:"attempt_count"` // distinct users with any submission
}
