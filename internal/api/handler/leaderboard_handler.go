package handler

import (
	"context"
	"net/http"

	"contest_judge/internal/app/service"
	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type leaderboardReader interface {
	GetLeaderboard(ctx context.Context, q service.LeaderboardQuery) ([]model.LeaderboardEntry, error)
}

type LeaderboardHandler struct {
	leaderboard leaderboardReader
}

func NewLeaderboardHandler(ls leaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: ls}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getLeaderboard)
}

// getLeaderboard takes exactly one of ?problem_id= or ?contest_id=.
func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := service.LeaderboardQuery{
		ProblemID: r.URL.Query().Get("problem_id"),
		ContestID: r.URL.Query().Get("contest_id"),
	}
	entries, err := h.leaderboard.GetLeaderboard(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
