package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	contests := newMemContests()
	contests.contests["open"] = &model.Contest{ID: "open", StartTime: t0, EndTime: t0.Add(time.Hour)}
	contests.contests["full"] = &model.Contest{ID: "full", StartTime: t0, EndTime: t0.Add(time.Hour), MaxParticipants: ptr(1)}
	contests.contests["over"] = &model.Contest{ID: "over", StartTime: t0.Add(-2 * time.Hour), EndTime: t0.Add(-time.Hour)}
	contests.participants["full"] = []string{"someone"}

	svc := NewContestService(contests, &fakeTransactor{}, discardLogger())
	svc.now = func() time.Time { return t0.Add(-time.Minute) }
	ctx := context.Background()

	p, err := svc.Register(ctx, "u1", "open")
	require.NoError(t, err)
	assert.Equal(t, "open", p.ContestID)

	_, err = svc.Register(ctx, "u1", "open")
	assert.ErrorIs(t, err, common.ErrConflict)

	var verr *common.ValidationError
	_, err = svc.Register(ctx, "u1", "full")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "contest is full", verr.Fields["contest"])

	_, err = svc.Register(ctx, "u1", "over")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "contest has ended", verr.Fields["contest"])

	_, err = svc.Register(ctx, "u1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetContest_DerivesStatusAndHidesPrivate(t *testing.T) {
	contests := newMemContests()
	contests.contests["c"] = &model.Contest{ID: "c", StartTime: t0, EndTime: t0.Add(90 * time.Minute), IsPublic: true}
	contests.contests["secret"] = &model.Contest{ID: "secret", StartTime: t0, EndTime: t0.Add(time.Hour)}

	svc := NewContestService(contests, &fakeTransactor{}, discardLogger())
	svc.now = func() time.Time { return t0.Add(10 * time.Minute) }

	v, err := svc.GetContest(context.Background(), "c", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.ContestOngoing, v.Status)
	assert.Equal(t, 90.0, v.DurationMinutes)

	_, err = svc.GetContest(context.Background(), "secret", model.RoleUser)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.GetContest(context.Background(), "secret", model.RoleAdmin)
	assert.NoError(t, err)
}

func TestCreateContest_RejectsInvertedWindow(t *testing.T) {
	svc := NewContestService(newMemContests(), &fakeTransactor{}, discardLogger())
	_, err := svc.CreateContest(context.Background(), "admin", CreateContestRequest{
		Title:     "Spring Cup",
		StartTime: t0,
		EndTime:   t0.Add(-time.Hour),
	})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "end_time")
}

func TestProblemService_TestcasePointsCannotExceedProblemPoints(t *testing.T) {
	problems := newMemProblems()
	contests := newMemContests()
	contests.contests["7f1c2a9e-2b1d-4c1e-9a57-0d7c54c7e0c1"] = &model.Contest{ID: "7f1c2a9e-2b1d-4c1e-9a57-0d7c54c7e0c1"}
	svc := NewProblemService(problems, contests, &fakeTransactor{}, discardLogger())
	ctx := context.Background()

	req := CreateProblemRequest{
		ContestID: "7f1c2a9e-2b1d-4c1e-9a57-0d7c54c7e0c1",
		ProblemFields: ProblemFields{
			Title:     "Two Sum",
			Statement: "add",
			Points:    50,
			Testcases: []TestcaseInput{{Output: "3", Points: 30}, {Output: "4", Points: 30}},
		},
	}
	_, err := svc.CreateProblem(ctx, req)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, problems.problems)

	req.Testcases[1].Points = 20
	p, err := svc.CreateProblem(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "two-sum", p.Slug)
	assert.Equal(t, model.DefaultTimeLimit, p.TimeLimit)
	assert.Equal(t, model.DifficultyEasy, p.Difficulty)
	assert.Len(t, problems.testcases[p.ID], 2)

	_, err = svc.AddTestcases(ctx, p.ID, AddTestcasesRequest{Testcases: []TestcaseInput{{Output: "5", Points: 1}}})
	assert.ErrorIs(t, err, common.ErrValidation)

	added, err := svc.AddTestcases(ctx, p.ID, AddTestcasesRequest{Testcases: []TestcaseInput{{Output: "5", Points: 0}}})
	require.NoError(t, err)
	assert.Len(t, added, 1)
	assert.Len(t, problems.testcases[p.ID], 3)
}
