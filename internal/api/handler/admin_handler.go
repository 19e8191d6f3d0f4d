package handler

import (
	"net/http"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/app/service"
	"contest_judge/internal/common"

	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes maintenance endpoints that rewrite grading results.
type AdminHandler struct {
	submissionService *service.SubmissionService
}

func NewAdminHandler(ss *service.SubmissionService) *AdminHandler {
	return &AdminHandler{submissionService: ss}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)
	r.Put("/submissions/{submissionID}/testcases/{testcaseID}", h.replayTestcase)
}

func (h *AdminHandler) replayTestcase(w http.ResponseWriter, r *http.Request) {
	var req service.ReplayTestcaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.submissionService.ApplyTestcaseResult(r.Context(),
		chi.URLParam(r, "submissionID"), chi.URLParam(r, "testcaseID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}
