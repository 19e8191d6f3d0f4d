package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	APIPort  string
	LogLevel string
	JWTKey   []byte
	JWTExp   time.Duration

	CORSAllowedOrigins []string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeBaseURL         string
	JudgeAuthHeader      string
	JudgeAuthToken       string
	JudgePollInterval    time.Duration
	JudgeMaxPollAttempts int
	JudgeHTTPTimeout     time.Duration

	EvaluationQueueName      string
	EvaluationLockPrefix     string
	EvaluationLockTTLSeconds int
	WorkerConcurrency        int
	WorkerMaxJobAttempts     int

	ReplayScoringStrategy      string
	PartialCreditRatio         float64
	LeaderboardCacheTTLSeconds int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		AppEnv:             getEnv("APP_ENV", "dev"),
		APIPort:            getEnv("API_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTKey:             []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:             time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "contest_judge_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeBaseURL:         getEnv("JUDGE_BASE_URL", "http://localhost:2358"),
		JudgeAuthHeader:      getEnv("JUDGE_AUTH_HEADER", "X-Auth-Token"),
		JudgeAuthToken:       getEnv("JUDGE_AUTH_TOKEN", ""),
		JudgePollInterval:    getEnvAsDuration("JUDGE_POLL_INTERVAL", time.Second),
		JudgeMaxPollAttempts: getEnvAsInt("JUDGE_MAX_POLL_ATTEMPTS", 10),
		JudgeHTTPTimeout:     getEnvAsDuration("JUDGE_HTTP_TIMEOUT", 15*time.Second),

		EvaluationQueueName:      getEnv("EVALUATION_QUEUE_NAME", "evaluation_jobs_queue"),
		EvaluationLockPrefix:     getEnv("EVALUATION_LOCK_PREFIX", "evaluation_lock"),
		EvaluationLockTTLSeconds: getEnvAsInt("EVALUATION_LOCK_TTL_SECONDS", 300),
		WorkerConcurrency:        getEnvAsInt("WORKER_CONCURRENCY", 2),
		WorkerMaxJobAttempts:     getEnvAsInt("WORKER_MAX_JOB_ATTEMPTS", 3),

		ReplayScoringStrategy:      getEnv("REPLAY_SCORING_STRATEGY", "testcase_points"),
		PartialCreditRatio:         getEnvAsFloat("PARTIAL_CREDIT_RATIO", 0.3),
		LeaderboardCacheTTLSeconds: getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 15),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("750ms", "2s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
