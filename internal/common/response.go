package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"codebattle/internal/platform/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithAppError writes the status mapped from err. The body only carries a public message;
// untyped errors are logged here since their text never reaches the caller.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := HTTPStatusFromError(err)
	var appErr *Error
	if code >= http.StatusInternalServerError && !errors.As(err, &appErr) {
		logger.L().Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	RespondWithError(w, code, PublicMessage(err, fallback))
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
