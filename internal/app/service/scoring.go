package service

import (
	"fmt"
	"math"

	"contest_judge/internal/domain/model"
)

const (
	ScoringTestcasePoints = "testcase_points"
	ScoringPartialCredit  = "partial_credit"
)

// ScoreInput is everything a scoring rule may look at.
type ScoreInput struct {
	Problem *model.Problem
	Status  model.SubmissionStatus
	Results []model.SubmissionTestcase
	Passed  int
	Total   int
}

type ScoringStrategy interface {
	Name() string
	Score(in ScoreInput) int
}

// TestcasePointsScoring sums the points of the accepted testcases. The live
// grading pipeline always uses it.
type TestcasePointsScoring struct{}

func (TestcasePointsScoring) Name() string { return ScoringTestcasePoints }

func (TestcasePointsScoring) Score(in ScoreInput) int {
	score := 0
	for _, r := range in.Results {
		if r.Status == model.StatusAccepted {
			score += r.TestcasePoints
		}
	}
	return score
}

// PartialCreditScoring awards full problem points on Accepted and otherwise a
// flat share of the passed fraction.
type PartialCreditScoring struct {
	Ratio float64
}

func (PartialCreditScoring) Name() string { return ScoringPartialCredit }

func (s PartialCreditScoring) Score(in ScoreInput) int {
	points := 0
	if in.Problem != nil {
		points = in.Problem.Points
	}
	if in.Status == model.StatusAccepted {
		return points
	}
	if in.Total <= 0 {
		return 0
	}
	return int(math.Floor(float64(in.Passed) / float64(in.Total) * float64(points) * s.Ratio))
}

// ScoringStrategyByName resolves a configured strategy name. An empty name
// selects the canonical testcase-points rule.
func ScoringStrategyByName(name string, partialRatio float64) (ScoringStrategy, error) {
	switch name {
	case "", ScoringTestcasePoints:
		return TestcasePointsScoring{}, nil
	case ScoringPartialCredit:
		if partialRatio <= 0 {
			partialRatio = 0.3
		}
		return PartialCreditScoring{Ratio: partialRatio}, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
}
