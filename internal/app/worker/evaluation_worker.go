package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"contest_judge/internal/domain/model"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Grader is the part of the grading service the worker drives.
type Grader interface {
	Grade(ctx context.Context, kind model.SubmissionKind, submissionID string) error
	MarkSystemError(ctx context.Context, kind model.SubmissionKind, submissionID string) error
}

type JobQueue interface {
	Enqueue(ctx context.Context, job model.EvaluationJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*model.EvaluationJob, error)
}

type Options struct {
	Concurrency int
	MaxAttempts int
	LockPrefix  string
	LockTTL     time.Duration
	PollTimeout time.Duration
}

// Release the lock only if we still hold it.
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// EvaluationWorker consumes evaluation jobs with a fixed number of consumer
// loops. A per-submission Redis lock keeps two workers off the same
// submission.
type EvaluationWorker struct {
	rdb      *redis.Client
	queue    JobQueue
	grader   Grader
	opts     Options
	inFlight *xsync.MapOf[string, time.Time]
	logger   *slog.Logger
}

func NewEvaluationWorker(rdb *redis.Client, queue JobQueue, grader Grader, opts Options, logger *slog.Logger) *EvaluationWorker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.LockPrefix == "" {
		opts.LockPrefix = "evaluation_lock"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &EvaluationWorker{
		rdb:      rdb,
		queue:    queue,
		grader:   grader,
		opts:     opts,
		inFlight: xsync.NewMapOf[string, time.Time](),
		logger:   logger.With("component", "evaluation_worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *EvaluationWorker) Run(ctx context.Context) error {
	w.logger.Info("evaluation worker started", "consumers", w.opts.Concurrency)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.opts.Concurrency; i++ {
		consumer := i
		g.Go(func() error {
			w.consume(ctx, consumer)
			return nil
		})
	}
	err := g.Wait()
	w.logger.Info("evaluation worker stopped")
	return err
}

func (w *EvaluationWorker) consume(ctx context.Context, consumer int) {
	log := w.logger.With("consumer", consumer)
	for ctx.Err() == nil {
		job, err := w.queue.Dequeue(ctx, w.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to dequeue evaluation job", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second): // avoid a hot loop while Redis is down
			}
			continue
		}
		if job == nil {
			continue
		}
		w.ProcessJob(ctx, *job)
	}
}

func (w *EvaluationWorker) lockKey(job model.EvaluationJob) string {
	return fmt.Sprintf("%s:%s:%s", w.opts.LockPrefix, job.Kind, job.SubmissionID)
}

// ProcessJob grades one job under the submission lock. A job whose lock is
// held elsewhere is dropped; the holder owns the submission until it reaches
// a terminal state or requeues it.
func (w *EvaluationWorker) ProcessJob(ctx context.Context, job model.EvaluationJob) {
	log := w.logger.With("kind", job.Kind, "submission_id", job.SubmissionID, "attempt", job.Attempts+1)

	key := w.lockKey(job)
	token := uuid.NewString()
	ok, err := w.rdb.SetNX(ctx, key, token, w.opts.LockTTL).Result()
	if err != nil {
		log.Error("failed to acquire evaluation lock", "error", err)
		w.requeue(ctx, job)
		return
	}
	if !ok {
		log.Info("submission is locked by another worker, dropping duplicate job")
		return
	}
	defer w.releaseLock(context.WithoutCancel(ctx), key, token)

	w.inFlight.Store(job.SubmissionID, time.Now())
	defer w.inFlight.Delete(job.SubmissionID)

	err = w.grader.Grade(ctx, job.Kind, job.SubmissionID)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		// Shutting down: hand the job back unchanged.
		log.Warn("grading interrupted, requeueing", "error", err)
		w.requeue(context.WithoutCancel(ctx), job)
		return
	}

	job.Attempts++
	if job.Attempts >= w.opts.MaxAttempts {
		log.Error("grading failed permanently, marking system error", "error", err)
		if mErr := w.grader.MarkSystemError(context.WithoutCancel(ctx), job.Kind, job.SubmissionID); mErr != nil {
			log.Error("failed to mark submission as system error", "error", mErr)
		}
		return
	}
	log.Warn("grading failed, requeueing", "error", err)
	w.requeue(ctx, job)
}

func (w *EvaluationWorker) requeue(ctx context.Context, job model.EvaluationJob) {
	job.EnqueuedAt = time.Time{}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.logger.Error("failed to requeue evaluation job", "submission_id", job.SubmissionID, "error", err)
	}
}

func (w *EvaluationWorker) releaseLock(ctx context.Context, key, token string) {
	deleted, err := releaseLockScript.Run(ctx, w.rdb, []string{key}, token).Int64()
	if err != nil {
		w.logger.Error("failed to release evaluation lock", "key", key, "error", err)
		return
	}
	if deleted == 0 {
		w.logger.Warn("evaluation lock expired before release", "key", key)
	}
}

// InFlight lists the submissions currently being graded, oldest first.
func (w *EvaluationWorker) InFlight() []string {
	type entry struct {
		id    string
		since time.Time
	}
	var entries []entry
	w.inFlight.Range(func(id string, since time.Time) bool {
		entries = append(entries, entry{id, since})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].since.Before(entries[j].since) })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}
