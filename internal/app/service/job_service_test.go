package service

import (
	"context"
	"errors"
	"testing"

	"contest_judge/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequeuePending(t *testing.T) {
	env := newGradingEnv(t)
	env.subs.put(pendingContestSubmission("s1", "p1", 2))
	env.subs.put(pendingContestSubmission("s2", "p1", 2))
	done := pendingContestSubmission("s3", "p1", 2)
	done.Status = model.StatusAccepted
	env.subs.put(done)
	env.practice.subs.put(model.Submission{ID: "ps1", Status: model.StatusPending})

	q := &recordingQueue{}
	jobs := NewJobService(q, env.grader, discardLogger())

	n, err := jobs.RequeuePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []model.EvaluationJob{
		{Kind: model.KindContest, SubmissionID: "s1"},
		{Kind: model.KindContest, SubmissionID: "s2"},
		{Kind: model.KindPractice, SubmissionID: "ps1"},
	}, q.jobs)
}

func TestRequeuePending_StopsOnQueueError(t *testing.T) {
	env := newGradingEnv(t)
	env.subs.put(pendingContestSubmission("s1", "p1", 2))

	jobs := NewJobService(&recordingQueue{err: errors.New("down")}, env.grader, discardLogger())
	n, err := jobs.RequeuePending(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}
