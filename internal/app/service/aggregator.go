package service

import (
	"contest_judge/internal/domain/model"
)

// Verdict is the submission-level summary of its testcase results.
type Verdict struct {
	Status          model.SubmissionStatus
	Score           int
	ExecutionTime   float64
	MemoryUsed      float64
	TestcasesPassed int
}

// Aggregate folds testcase results, given in testcase insertion order, into a
// Verdict. A failing submission reports the status of its last failing
// testcase, not its first. Missing memory counts as 0.
func Aggregate(problem *model.Problem, results []model.SubmissionTestcase, total int, strategy ScoringStrategy) Verdict {
	if len(results) == 0 {
		return Verdict{Status: model.StatusSystemError}
	}

	v := Verdict{Status: model.StatusAccepted}
	for _, r := range results {
		if r.Status == model.StatusAccepted {
			v.TestcasesPassed++
		} else {
			v.Status = r.Status
		}
		if r.ExecutionTime > v.ExecutionTime {
			v.ExecutionTime = r.ExecutionTime
		}
		if r.MemoryUsed != nil && *r.MemoryUsed > v.MemoryUsed {
			v.MemoryUsed = *r.MemoryUsed
		}
	}

	if strategy == nil {
		strategy = TestcasePointsScoring{}
	}
	v.Score = strategy.Score(ScoreInput{
		Problem: problem,
		Status:  v.Status,
		Results: results,
		Passed:  v.TestcasesPassed,
		Total:   total,
	})
	return v
}

// Apply copies the verdict onto sub.
func (v Verdict) Apply(sub *model.Submission) {
	execTime, mem := v.ExecutionTime, v.MemoryUsed
	sub.Status = v.Status
	sub.Score = v.Score
	sub.ExecutionTime = &execTime
	sub.MemoryUsed = &mem
	sub.TestcasesPassed = v.TestcasesPassed
}
