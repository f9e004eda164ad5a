package handlers

import (
	"net/http"

	"focusglobe/internal/presence"
)

type rosterReader interface {
	Snapshot() presence.Snapshot
}

type RosterHandler struct {
	roster rosterReader
}

func NewRosterHandler(roster rosterReader) *RosterHandler {
	return &RosterHandler{roster: roster}
}

func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.roster.Snapshot())
}
