package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondServiceError maps a pipeline error onto an HTTP response.
func respondServiceError(w http.ResponseWriter, err error) {
	var catErr *apperrors.CategorizedError
	if !errors.As(err, &catErr) {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "an internal error occurred", nil)
		return
	}

	svcErr := catErr.ToServiceError()
	switch catErr.Category {
	case apperrors.CategoryInput:
		respondError(w, http.StatusBadRequest, svcErr.Code, svcErr.Message, svcErr.Details)
	case apperrors.CategoryTransport:
		respondError(w, http.StatusBadGateway, svcErr.Code, svcErr.Message, svcErr.Details)
	default:
		respondError(w, http.StatusInternalServerError, svcErr.Code, svcErr.Message, svcErr.Details)
	}
}
