package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithServiceError writes err using HTTPStatusFromError. Server-side
// failures are logged and their message is not leaked to the client.
func RespondWithServiceError(logger *slog.Logger, w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		RespondWithJSON(w, code, ErrorResponse{Error: ErrValidation.Error(), Details: vErr.Fields})
		return
	}

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		logger.Error("internal server error", "error", err)
		RespondWithError(w, code, http.StatusText(code))
		return
	}
	logger.Warn("request failed", "status", code, "error", err)
	RespondWithError(w, code, err.Error())
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
