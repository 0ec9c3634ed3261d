package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"wellness-log/internal/models"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	// Input echoes the submitted text so the client can offer a retry.
	Input string `json:"input,omitempty"`
}

// User-facing messages for blocked meal analysis.
const (
	msgAnalysisFailed    = "Could not analyze meal. Please try again."
	msgConnectionFailure = "Error connecting to AI service."
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, input string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
		Input:   input,
	})
}

// statusFor maps domain errors to an HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidParams), errors.Is(err, models.ErrEmptyInput), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrAnalysisFailed):
		return http.StatusUnprocessableEntity, msgAnalysisFailed
	case errors.Is(err, models.ErrCapabilityUnavailable):
		return http.StatusBadGateway, msgConnectionFailure
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
