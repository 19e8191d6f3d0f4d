package handler

import (
	"net/http"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type PracticeHandler struct {
	practiceService *service.PracticeService
}

func NewPracticeHandler(ps *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: ps}
}

func (h *PracticeHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalAuthenticator)
		public.Get("/problems", h.listProblems)
		public.Get("/problems/{slug}", h.getProblem)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/problems/{problemID}/submissions", h.submit)
		authed.Get("/submissions/{submissionID}", h.getSubmission)
	})

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/problems", h.createProblem)
	})
}

func (h *PracticeHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	difficulty := model.ProblemDifficulty(r.URL.Query().Get("difficulty"))
	problems, err := h.practiceService.ListProblems(r.Context(), difficulty, role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *PracticeHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	problem, err := h.practiceService.GetProblemBySlug(r.Context(), chi.URLParam(r, "slug"), role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *PracticeHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePracticeProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	problem, err := h.practiceService.CreateProblem(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *PracticeHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CreatePracticeSubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.practiceService.Submit(r.Context(), userID, chi.URLParam(r, "problemID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, sub)
}

func (h *PracticeHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	sub, err := h.practiceService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}
