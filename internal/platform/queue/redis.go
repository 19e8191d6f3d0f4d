package queue

import (
	"context"
	"log/slog"
	"os"

	"contest_judge/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	if err := RDB.Ping(context.Background()).Err(); err != nil {
		slog.Error("could not connect to Redis", "addr", config.AppConfig.RedisAddr, "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis", "addr", config.AppConfig.RedisAddr)
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		slog.Info("redis connection closed")
	}
}
