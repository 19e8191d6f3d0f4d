// Package wiring assembles repositories, services and the evaluation worker.
// Both the API server and judgectl build on it.
package wiring

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"contest_judge/internal/app/service"
	"contest_judge/internal/app/worker"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/judge"
	"contest_judge/internal/platform/cache"
	"contest_judge/internal/platform/config"
	"contest_judge/internal/platform/database"
	"contest_judge/internal/platform/queue"

	"github.com/redis/go-redis/v9"
)

type Components struct {
	Auth        *service.AuthService
	Contests    *service.ContestService
	Problems    *service.ProblemService
	Practice    *service.PracticeService
	Submissions *service.SubmissionService
	Leaderboard *service.LeaderboardService
	Profiles    *service.ProfileService
	Stats       *service.StatsService
	Jobs        *service.JobService
	Grader      *service.Grader
	Worker      *worker.EvaluationWorker
}

func Build(cfg *config.Config, db *sql.DB, rdb *redis.Client, logger *slog.Logger) (*Components, error) {
	transactor := database.NewTransactor(db)

	userRepo := repository.NewPgUserRepository(db)
	contestRepo := repository.NewPgContestRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)
	practiceRepo := repository.NewPgPracticeRepository(db)
	leaderboardRepo := repository.NewPgLeaderboardRepository(db)

	replay, err := service.ScoringStrategyByName(cfg.ReplayScoringStrategy, cfg.PartialCreditRatio)
	if err != nil {
		return nil, err
	}

	stats := service.NewStatsService(userRepo, submissionRepo, practiceRepo, contestRepo, leaderboardRepo, transactor, logger)
	leaderboard := service.NewLeaderboardService(submissionRepo, problemRepo, contestRepo, leaderboardRepo,
		cache.NewRedisCache(rdb), time.Duration(cfg.LeaderboardCacheTTLSeconds)*time.Second, logger)

	judgeClient := judge.NewClient(judge.Options{
		BaseURL:      cfg.JudgeBaseURL,
		AuthHeader:   cfg.JudgeAuthHeader,
		AuthToken:    cfg.JudgeAuthToken,
		PollInterval: cfg.JudgePollInterval,
		MaxAttempts:  cfg.JudgeMaxPollAttempts,
		HTTPClient:   &http.Client{Timeout: cfg.JudgeHTTPTimeout},
		Logger:       logger,
	})
	evaluator := service.NewEvaluator(judgeClient, logger)
	grader := service.NewGrader(transactor, evaluator, stats, leaderboard, submissionRepo, problemRepo, practiceRepo, logger)

	jobQueue := queue.NewJobQueue(rdb, cfg.EvaluationQueueName)
	jobs := service.NewJobService(jobQueue, grader, logger)

	evaluationWorker := worker.NewEvaluationWorker(rdb, jobQueue, grader, worker.Options{
		Concurrency: cfg.WorkerConcurrency,
		MaxAttempts: cfg.WorkerMaxJobAttempts,
		LockPrefix:  cfg.EvaluationLockPrefix,
		LockTTL:     time.Duration(cfg.EvaluationLockTTLSeconds) * time.Second,
	}, logger)

	return &Components{
		Auth:        service.NewAuthService(userRepo, transactor),
		Contests:    service.NewContestService(contestRepo, transactor, logger),
		Problems:    service.NewProblemService(problemRepo, contestRepo, transactor, logger),
		Practice:    service.NewPracticeService(practiceRepo, jobs, transactor, logger),
		Submissions: service.NewSubmissionService(submissionRepo, problemRepo, contestRepo, jobs, stats, leaderboard, transactor, replay, logger),
		Leaderboard: leaderboard,
		Profiles:    service.NewProfileService(userRepo, stats),
		Stats:       stats,
		Jobs:        jobs,
		Grader:      grader,
		Worker:      evaluationWorker,
	}, nil
}
