package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdf-canvas-viewer/internal/domain"
	apperrors "pdf-canvas-viewer/pkg/errors"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// GetRequestIDFromContext extracts the request id set by RequestIDMiddleware
func GetRequestIDFromContext(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(requestIDContextKey).(string)
	return id, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError writes err with the status and type of its AppError
func writeAppError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	body := map[string]string{
		"error": appErr.Message,
		"type":  string(appErr.Type),
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, body)
}

// toAppError maps domain errors onto HTTP-aware application errors
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return apperrors.NewValidationError(validationErr.Message, validationErr.Field)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInputType):
		return apperrors.NewUnsupportedMediaError("Only PDF files can be opened", err)
	case errors.Is(err, domain.ErrNoFileSupplied):
		return apperrors.NewValidationError("A file is required")
	case errors.Is(err, domain.ErrDecodeFailure):
		return apperrors.NewProcessingError("The PDF could not be opened", err)
	case errors.Is(err, domain.ErrUnknownControl):
		return apperrors.NewNotFoundError("Unknown control")
	case errors.Is(err, domain.ErrViewerNotFound):
		return apperrors.NewNotFoundError("Viewer not found")
	case errors.Is(err, domain.ErrTooManyViewers):
		return apperrors.NewLimitError("Too many open viewers", err)
	case errors.Is(err, domain.ErrLoadSuperseded):
		return apperrors.NewConflictError("A newer file replaced this one", err)
	default:
		return apperrors.NewInternalError("Internal server error", err)
	}
}
