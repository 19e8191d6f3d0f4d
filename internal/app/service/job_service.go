package service

import (
	"context"
	"log/slog"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

// JobEnqueuer is the producer side of the evaluation queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job model.EvaluationJob) error
}

type pendingLister interface {
	PendingSubmissionIDs(ctx context.Context, kind model.SubmissionKind) ([]string, error)
}

type JobService struct {
	queue   JobEnqueuer
	pending pendingLister
	logger  *slog.Logger
}

func NewJobService(queue JobEnqueuer, pending pendingLister, logger *slog.Logger) *JobService {
	return &JobService{queue: queue, pending: pending, logger: logger.With("component", "jobs")}
}

// EnqueueEvaluation pushes a grading job. It must run after the submission row
// has been committed, otherwise a fast worker may not see it.
func (s *JobService) EnqueueEvaluation(ctx context.Context, kind model.SubmissionKind, submissionID string) error {
	job := model.EvaluationJob{Kind: kind, SubmissionID: submissionID}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return common.Errorf("failed to enqueue evaluation of %s submission %s: %w", kind, submissionID, err)
	}
	s.logger.Info("evaluation job enqueued", "kind", kind, "submission_id", submissionID)
	return nil
}

// RequeuePending re-enqueues every submission still in Pending. The grader
// skips duplicates once a submission is terminal.
func (s *JobService) RequeuePending(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range []model.SubmissionKind{model.KindContest, model.KindPractice} {
		ids, err := s.pending.PendingSubmissionIDs(ctx, kind)
		if err != nil {
			return total, common.Errorf("failed to list pending %s submissions: %w", kind, err)
		}
		for _, id := range ids {
			if err := s.EnqueueEvaluation(ctx, kind, id); err != nil {
				return total, err
			}
			total++
		}
	}
	if total > 0 {
		s.logger.Info("requeued pending submissions", "count", total)
	}
	return total, nil
}
