package handler

import (
	"net/http"

	"contest_judge/internal/app/service"
	"contest_judge/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(ps *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: ps}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{username}/profile", h.getProfile)
}

func (h *ProfileHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}
