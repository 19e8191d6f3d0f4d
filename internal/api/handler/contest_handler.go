package handler

import (
	"net/http"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService     *service.ContestService
	problemService     *service.ProblemService
	leaderboardService *service.LeaderboardService
}

func NewContestHandler(cs *service.ContestService, ps *service.ProblemService, ls *service.LeaderboardService) *ContestHandler {
	return &ContestHandler{contestService: cs, problemService: ps, leaderboardService: ls}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalAuthenticator)
		public.Get("/", h.listContests)
		public.Get("/{contestID}", h.getContest)
		public.Get("/{contestID}/problems", h.listProblems)
		public.Get("/{contestID}/standings", h.standings)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/{contestID}/register", h.register)
	})

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createContest)
	})
}

func (h *ContestHandler) listContests(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	contests, err := h.contestService.ListContests(r.Context(), role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	contest, err := h.contestService.GetContest(r.Context(), chi.URLParam(r, "contestID"), role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) createContest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CreateContestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contest, err := h.contestService.CreateContest(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) register(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	participation, err := h.contestService.Register(r.Context(), userID, chi.URLParam(r, "contestID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, participation)
}

func (h *ContestHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	problems, err := h.problemService.ListContestProblems(r.Context(), chi.URLParam(r, "contestID"), role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ContestHandler) standings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.leaderboardService.GetContestStandings(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rows)
}
