package model

import "time"

type SubmissionStatus string

const (
	StatusPending             SubmissionStatus = "Pending"
	StatusAccepted            SubmissionStatus = "Accepted"
	StatusWrongAnswer         SubmissionStatus = "Wrong Answer"
	StatusRuntimeError        SubmissionStatus = "Runtime Error"
	StatusTimeLimitExceeded   SubmissionStatus = "Time Limit Exceeded"
	StatusCompilationError    SubmissionStatus = "Compilation Error"
	StatusMemoryLimitExceeded SubmissionStatus = "Memory Limit Exceeded"
	StatusSystemError         SubmissionStatus = "System Error" // judge never reached a terminal state
	StatusAPIError            SubmissionStatus = "API Error"    // judge unreachable or non-2xx
)

// IsTerminal reports whether grading has finished. Any status other than
// Pending is terminal, including judge descriptions we do not enumerate.
func (s SubmissionStatus) IsTerminal() bool {
	return s != StatusPending && s != ""
}

// Submission is shared by contest and practice submissions. ContestID is nil
// for practice submissions.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	ContestID       *string          `json:"contest_id,omitempty"`
	Code            string           `json:"code,omitempty"`
	Language        int              `json:"language"`
	Status          SubmissionStatus `json:"status"`
	Score           int              `json:"score"`
	ExecutionTime   *float64         `json:"execution_time,omitempty"` // seconds
	MemoryUsed      *float64         `json:"memory_used,omitempty"`    // MB
	CompilerOutput  *string          `json:"compiler_output,omitempty"`
	TestcasesPassed int              `json:"testcases_passed"`
	TestcasesTotal  int              `json:"testcases_total"`
	SubmittedAt     time.Time        `json:"submitted_at"`

	Username        string               `json:"username,omitempty"` // For display
	TestcaseResults []SubmissionTestcase `json:"testcase_results,omitempty"`
}

// SubmissionTestcase is the verdict for one (submission, testcase) pair.
type SubmissionTestcase struct {
	ID            string           `json:"id"`
	SubmissionID  string           `json:"submission_id"`
	TestcaseID    string           `json:"testcase_id"`
	Status        SubmissionStatus `json:"status"`
	ExecutionTime float64          `json:"execution_time"`        // seconds
	MemoryUsed    *float64         `json:"memory_used,omitempty"` // MB
	Output        *string          `json:"output,omitempty"`

	TestcasePoints int `json:"testcase_points"` // Joined from the testcase row
}
