package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest_judge/internal/api"
	"contest_judge/internal/app/wiring"
	"contest_judge/internal/common/security"
	"contest_judge/internal/platform/config"
	"contest_judge/internal/platform/database"
	"contest_judge/internal/platform/logger"
	"contest_judge/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	config.Load()
	httpLogger := logger.New("contest-judge", config.AppConfig.LogLevel, config.AppConfig.AppEnv)
	slog.SetDefault(httpLogger.Logger)
	slog.Info("configuration loaded", "env", config.AppConfig.AppEnv)

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Repositories, services and the evaluation worker
	components, err := wiring.Build(config.AppConfig, database.DB, queue.RDB, httpLogger.Logger)
	if err != nil {
		slog.Error("failed to assemble services", "error", err)
		os.Exit(1)
	}

	// 6. Start the worker, then pick up anything left Pending by a previous run
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan error, 1)
	go func() { workerDone <- components.Worker.Run(workerCtx) }()

	if n, err := components.Jobs.RequeuePending(workerCtx); err != nil {
		slog.Error("failed to requeue pending submissions", "error", err)
	} else if n > 0 {
		slog.Info("requeued pending submissions", "count", n)
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(httpLogger, api.Services{
		Auth:        components.Auth,
		Contests:    components.Contests,
		Problems:    components.Problems,
		Practice:    components.Practice,
		Submissions: components.Submissions,
		Leaderboard: components.Leaderboard,
		Profiles:    components.Profiles,
		InFlight:    components.Worker.InFlight,
	})

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("could not listen", "port", config.AppConfig.APIPort, "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	workerCancel()
	select {
	case err := <-workerDone:
		if err != nil {
			slog.Error("worker stopped with error", "error", err)
		}
	case <-shutdownCtx.Done():
		slog.Warn("worker did not stop in time", "in_flight", components.Worker.InFlight())
	}

	slog.Info("server and worker stopped")
}
