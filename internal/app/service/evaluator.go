package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contest_judge/internal/domain/model"
	"contest_judge/internal/judge"

	"github.com/google/uuid"
)

// Evaluator runs a submission against each testcase of its problem, one
// judge call per testcase, in testcase order.
type Evaluator struct {
	client judge.VerdictClient
	logger *slog.Logger
}

func NewEvaluator(client judge.VerdictClient, logger *slog.Logger) *Evaluator {
	return &Evaluator{client: client, logger: logger.With("component", "evaluator")}
}

// Evaluate returns one unsaved result row per testcase. Judge failures are
// folded into the row status; only a done ctx aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, sub *model.Submission, problem *model.Problem, testcases []model.Testcase) ([]model.SubmissionTestcase, error) {
	results := make([]model.SubmissionTestcase, 0, len(testcases))
	for _, tc := range testcases {
		res, err := e.client.Judge(ctx, BuildJudgeRequest(sub, problem, tc))
		if err != nil {
			return nil, fmt.Errorf("judging testcase %s of submission %s: %w", tc.ID, sub.ID, err)
		}

		row := TestcaseResultFromVerdict(res)
		row.ID = uuid.NewString()
		row.SubmissionID = sub.ID
		row.TestcaseID = tc.ID
		row.TestcasePoints = tc.Points
		results = append(results, row)

		e.logger.Debug("testcase judged", "submission_id", sub.ID, "testcase_id", tc.ID, "status", row.Status)
	}
	return results, nil
}

// BuildJudgeRequest maps a testcase onto the judge wire request. Stored inputs
// may carry literal `\n` sequences; the judge limit is in KB.
func BuildJudgeRequest(sub *model.Submission, problem *model.Problem, tc model.Testcase) judge.Request {
	return judge.Request{
		SourceCode:     sub.Code,
		LanguageID:     sub.Language,
		Stdin:          strings.ReplaceAll(tc.Input, `\n`, "\n"),
		ExpectedOutput: strings.TrimSpace(tc.Output),
		CPUTimeLimit:   problem.TimeLimit,
		MemoryLimit:    problem.MemoryLimit * 1024,
	}
}

func TestcaseResultFromVerdict(res *judge.Result) model.SubmissionTestcase {
	row := model.SubmissionTestcase{Status: model.StatusRuntimeError}
	if res == nil {
		return row
	}
	if res.Status != nil && res.Status.Description != "" {
		row.Status = model.SubmissionStatus(res.Status.Description)
	}
	if res.Time != nil {
		row.ExecutionTime = float64(*res.Time)
	}
	if res.Memory != nil {
		mb := *res.Memory / 1024
		row.MemoryUsed = &mb
	}
	if res.Stdout != nil {
		out := strings.TrimSpace(*res.Stdout)
		row.Output = &out
	}
	return row
}
