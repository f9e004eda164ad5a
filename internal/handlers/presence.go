package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"focusglobe/internal/models"
)

type presenceController interface {
	Start(ctx context.Context, req models.StartRequest) error
	Stop(ctx context.Context) error
	Status() models.PresenceStatus
}

type PresenceHandler struct {
	session presenceController
}

func NewPresenceHandler(session presenceController) *PresenceHandler {
	return &PresenceHandler{session: session}
}

func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *PresenceHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.session.Start(r.Context(), req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.session.Status())
}

func (h *PresenceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.session.Status())
}
