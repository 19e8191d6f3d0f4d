package handler

import (
	"net/http"
	"strconv"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"
	"contest_judge/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createSubmission)
	r.Get("/", h.listSubmissions)
	r.Get("/{submissionID}", h.getSubmission)
}

// createSubmission answers 202: grading happens asynchronously and the client
// polls GET /submissions/{id}.
func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CreateSubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.submissionService.CreateSubmission(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, sub)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	sub, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	subs, err := h.submissionService.ListSubmissions(r.Context(), userID, repository.SubmissionFilter{
		ProblemID: q.Get("problem_id"),
		ContestID: q.Get("contest_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
