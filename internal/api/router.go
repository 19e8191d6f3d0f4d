package api

import (
	"net/http"
	"time"

	"contest_judge/internal/api/handler"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"
	"contest_judge/internal/common/security"
	"contest_judge/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth/v5"
)

// Services groups what the HTTP layer depends on.
type Services struct {
	Auth        *service.AuthService
	Contests    *service.ContestService
	Problems    *service.ProblemService
	Practice    *service.PracticeService
	Submissions *service.SubmissionService
	Leaderboard *service.LeaderboardService
	Profiles    *service.ProfileService

	// InFlight reports the submissions currently being graded by this process.
	InFlight func() []string
}

func NewRouter(logger *httplog.Logger, svc Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AppConfig.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Verifies a bearer token if present; route groups decide whether it is required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		inFlight := 0
		if svc.InFlight != nil {
			inFlight = len(svc.InFlight())
		}
		common.RespondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "grading": inFlight})
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(svc.Auth)
		v1.Group(authHandler.RegisterRoutes)

		v1.Get("/languages", handler.ListLanguages)

		contestHandler := handler.NewContestHandler(svc.Contests, svc.Problems, svc.Leaderboard)
		v1.Route("/contests", contestHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(svc.Problems)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		practiceHandler := handler.NewPracticeHandler(svc.Practice)
		v1.Route("/practice", practiceHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(svc.Submissions)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(svc.Leaderboard)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)

		profileHandler := handler.NewProfileHandler(svc.Profiles)
		v1.Route("/users", profileHandler.RegisterRoutes)

		adminHandler := handler.NewAdminHandler(svc.Submissions)
		v1.Route("/admin", adminHandler.RegisterRoutes)
	})

	return r
}
