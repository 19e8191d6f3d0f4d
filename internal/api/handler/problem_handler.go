package handler

import (
	"net/http"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.OptionalAuthenticator).Get("/{problemID}", h.getProblem)

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createProblem)
		adminRouter.Post("/{problemID}/testcases", h.addTestcases)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	problem, err := h.problemService.CreateProblem(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) addTestcases(w http.ResponseWriter, r *http.Request) {
	var req service.AddTestcasesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	testcases, err := h.problemService.AddTestcases(r.Context(), chi.URLParam(r, "problemID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, testcases)
}

type problemResponse struct {
	*model.Problem
	AcceptanceRate float64 `json:"acceptance_rate"`
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	problem, err := h.problemService.GetProblemDetails(r.Context(), chi.URLParam(r, "problemID"), role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problemResponse{Problem: problem, AcceptanceRate: problem.AcceptanceRate()})
}

// ListLanguages serves the fixed judge language table.
func ListLanguages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, model.ListLanguages())
}
