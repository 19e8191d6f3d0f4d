package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"contest_judge/internal/app/wiring"
	"contest_judge/internal/platform/cache"
	"contest_judge/internal/platform/config"
	"contest_judge/internal/platform/database"
	"contest_judge/internal/platform/logger"
	"contest_judge/internal/platform/queue"

	"github.com/spf13/cobra"
)

func main() {
	var components *wiring.Components

	var rootCmd = &cobra.Command{
		Use:   "judgectl",
		Short: "Maintenance CLI for the contest judge",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			lg := logger.New("judgectl", config.AppConfig.LogLevel, config.AppConfig.AppEnv)
			database.Connect()
			queue.ConnectRedis()
			var err error
			components, err = wiring.Build(config.AppConfig, database.DB, queue.RDB, lg.Logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			queue.CloseRedis()
			database.Close()
		},
	}

	var statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Recompute derived statistics",
	}

	var userID string
	var statsRecomputeCmd = &cobra.Command{
		Use:   "recompute",
		Short: "Recompute profile counters for one user, or every user when --user is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID != "" {
				profile, err := components.Stats.RefreshProfile(cmd.Context(), userID)
				if err != nil {
					return fmt.Errorf("error recomputing profile: %w", err)
				}
				fmt.Printf("user %s: %d solved, %d submissions\n", userID, profile.TotalSolved, profile.TotalSubmissions)
				return nil
			}
			n, err := components.Stats.RecomputeAllProfiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("error recomputing profiles: %w", err)
			}
			fmt.Printf("recomputed %d profiles\n", n)
			return nil
		},
	}
	statsRecomputeCmd.Flags().StringVarP(&userID, "user", "u", "", "User id")

	var leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Manage contest standings",
	}

	var contestID string
	var leaderboardRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the persisted standings of a contest",
		Long: `Rebuild the persisted standings of a contest and drop its cached
leaderboard from Redis. Running servers keep their in-memory copy for at
most a few seconds before reading the fresh entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := components.Stats.RefreshContestLeaderboard(cmd.Context(), contestID)
			if err != nil {
				return fmt.Errorf("error refreshing leaderboard: %w", err)
			}
			components.Leaderboard.Invalidate(cmd.Context(), "", contestID)
			fmt.Printf("contest %s: %d rows\n", contestID, n)
			return nil
		},
	}
	leaderboardRefreshCmd.Flags().StringVarP(&contestID, "contest", "c", "", "Contest id (required)")
	leaderboardRefreshCmd.MarkFlagRequired("contest")

	var leaderboardFlushCmd = &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop every cached leaderboard from Redis",
		Long: `Drop every cached leaderboard from Redis. Running servers keep their
in-memory copy for at most a few seconds before rebuilding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cache.NewRedisCache(queue.RDB).DeleteMatching(cmd.Context(), "leaderboard:*")
		},
	}

	var queueCmd = &cobra.Command{
		Use:   "queue",
		Short: "Inspect the evaluation queue",
	}

	var queueRequeueCmd = &cobra.Command{
		Use:   "requeue-pending",
		Short: "Enqueue an evaluation job for every Pending submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := components.Jobs.RequeuePending(cmd.Context())
			if err != nil {
				return fmt.Errorf("error requeueing: %w", err)
			}
			fmt.Printf("requeued %d submissions\n", n)
			return nil
		},
	}

	var queueInspectCmd = &cobra.Command{
		Use:   "length",
		Short: "Print the number of queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := queue.NewJobQueue(queue.RDB, config.AppConfig.EvaluationQueueName).Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}

	rootCmd.AddCommand(statsCmd, leaderboardCmd, queueCmd)
	statsCmd.AddCommand(statsRecomputeCmd)
	leaderboardCmd.AddCommand(leaderboardRefreshCmd, leaderboardFlushCmd)
	queueCmd.AddCommand(queueRequeueCmd, queueInspectCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
