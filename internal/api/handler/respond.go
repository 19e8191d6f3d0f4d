package handler

import (
	"encoding/json"
	"net/http"

	"contest_judge/internal/api/middleware"
	"contest_judge/internal/common"

	"github.com/go-chi/httplog/v2"
)

// decodeJSON writes a 400 and returns false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	common.RespondWithServiceError(httplog.LogEntry(r.Context()), w, err)
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return "", false
	}
	return userID, true
}
