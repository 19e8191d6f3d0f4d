package service

import (
	"testing"

	"contest_judge/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcResult(status model.SubmissionStatus, points int, seconds float64, memMB *float64) model.SubmissionTestcase {
	return model.SubmissionTestcase{Status: status, TestcasePoints: points, ExecutionTime: seconds, MemoryUsed: memMB}
}

func TestAggregate(t *testing.T) {
	problem := &model.Problem{ID: "p1", Points: 100}

	tests := []struct {
		name    string
		results []model.SubmissionTestcase
		want    Verdict
	}{
		{
			name: "all accepted",
			results: []model.SubmissionTestcase{
				tcResult(model.StatusAccepted, 10, 0.2, ptr(1.5)),
				tcResult(model.StatusAccepted, 10, 0.4, ptr(3.0)),
			},
			want: Verdict{Status: model.StatusAccepted, Score: 20, ExecutionTime: 0.4, MemoryUsed: 3.0, TestcasesPassed: 2},
		},
		{
			name: "one wrong answer keeps points of passed testcase",
			results: []model.SubmissionTestcase{
				tcResult(model.StatusAccepted, 10, 0.1, ptr(2.0)),
				tcResult(model.StatusWrongAnswer, 10, 0.3, ptr(1.0)),
			},
			want: Verdict{Status: model.StatusWrongAnswer, Score: 10, ExecutionTime: 0.3, MemoryUsed: 2.0, TestcasesPassed: 1},
		},
		{
			name: "last failure wins",
			results: []model.SubmissionTestcase{
				tcResult(model.StatusTimeLimitExceeded, 5, 1.0, nil),
				tcResult(model.StatusAccepted, 5, 0.1, nil),
				tcResult(model.StatusWrongAnswer, 5, 0.1, nil),
				tcResult(model.StatusAccepted, 5, 0.1, nil),
			},
			want: Verdict{Status: model.StatusWrongAnswer, Score: 10, ExecutionTime: 1.0, MemoryUsed: 0, TestcasesPassed: 2},
		},
		{
			name: "judge synthetic status is reported verbatim",
			results: []model.SubmissionTestcase{
				tcResult(model.StatusAccepted, 50, 0.1, nil),
				tcResult(model.StatusAPIError, 50, 0, nil),
			},
			want: Verdict{Status: model.StatusAPIError, Score: 50, ExecutionTime: 0.1, TestcasesPassed: 1},
		},
		{
			name:    "no results is a system error",
			results: nil,
			want:    Verdict{Status: model.StatusSystemError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(problem, tt.results, len(tt.results), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerdictApply(t *testing.T) {
	sub := &model.Submission{Status: model.StatusPending}
	Verdict{Status: model.StatusAccepted, Score: 30, ExecutionTime: 0.5, MemoryUsed: 4, TestcasesPassed: 3}.Apply(sub)

	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 30, sub.Score)
	require.NotNil(t, sub.ExecutionTime)
	assert.Equal(t, 0.5, *sub.ExecutionTime)
	require.NotNil(t, sub.MemoryUsed)
	assert.Equal(t, 4.0, *sub.MemoryUsed)
	assert.Equal(t, 3, sub.TestcasesPassed)
}

func TestPartialCreditScoring(t *testing.T) {
	problem := &model.Problem{Points: 100}
	s := PartialCreditScoring{Ratio: 0.3}

	assert.Equal(t, 100, s.Score(ScoreInput{Problem: problem, Status: model.StatusAccepted, Passed: 4, Total: 4}))
	// floor(2/4 * 100 * 0.3) = 15
	assert.Equal(t, 15, s.Score(ScoreInput{Problem: problem, Status: model.StatusWrongAnswer, Passed: 2, Total: 4}))
	// floor(1/3 * 100 * 0.3) = 9
	assert.Equal(t, 9, s.Score(ScoreInput{Problem: problem, Status: model.StatusWrongAnswer, Passed: 1, Total: 3}))
	assert.Zero(t, s.Score(ScoreInput{Problem: problem, Status: model.StatusWrongAnswer, Passed: 0, Total: 0}))
}

func TestAggregateWithPartialCredit(t *testing.T) {
	problem := &model.Problem{Points: 100}
	results := []model.SubmissionTestcase{
		tcResult(model.StatusAccepted, 10, 0.1, nil),
		tcResult(model.StatusWrongAnswer, 10, 0.1, nil),
	}
	v := Aggregate(problem, results, 2, PartialCreditScoring{Ratio: 0.3})
	assert.Equal(t, model.StatusWrongAnswer, v.Status)
	assert.Equal(t, 15, v.Score)
}

func TestScoringStrategyByName(t *testing.T) {
	s, err := ScoringStrategyByName("", 0)
	require.NoError(t, err)
	assert.Equal(t, ScoringTestcasePoints, s.Name())

	s, err = ScoringStrategyByName(ScoringPartialCredit, 0)
	require.NoError(t, err)
	assert.Equal(t, PartialCreditScoring{Ratio: 0.3}, s)

	s, err = ScoringStrategyByName(ScoringPartialCredit, 0.5)
	require.NoError(t, err)
	assert.Equal(t, PartialCreditScoring{Ratio: 0.5}, s)

	_, err = ScoringStrategyByName("elo", 0)
	assert.Error(t, err)
}
