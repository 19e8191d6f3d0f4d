package database

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"contest_judge/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		slog.Error("error opening database", "error", err)
		os.Exit(1)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = DB.PingContext(ctx); err != nil {
		slog.Error("error connecting to database", "error", err)
		os.Exit(1)
	}

	slog.Info("connected to PostgreSQL", "host", config.AppConfig.DBHost, "db", config.AppConfig.DBName)
}

func Close() {
	if DB != nil {
		DB.Close()
		slog.Info("database connection closed")
	}
}
