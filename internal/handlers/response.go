package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"focusglobe/internal/chat"
	"focusglobe/internal/geo"
	"focusglobe/internal/middleware"
	"focusglobe/internal/models"
	"focusglobe/internal/presence"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *presence.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", verr.Fields, r))
	case errors.Is(err, geo.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorResp("PERMISSION_DENIED", "Unable to get your location. Please allow location access.", r))
	case errors.Is(err, geo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResp("TIMEOUT", "Timed out waiting for your location", r))
	case errors.Is(err, presence.ErrStartInProgress):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Already waiting for your location", r))
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Start was cancelled", r))
	case errors.Is(err, presence.ErrRemoteWrite):
		writeJSON(w, http.StatusBadGateway, errorResp("REMOTE_WRITE_FAILED", "Failed to join the globe", r))
	case errors.Is(err, chat.ErrSendFailed):
		writeJSON(w, http.StatusBadGateway, errorResp("REMOTE_WRITE_FAILED", "Failed to send message", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
