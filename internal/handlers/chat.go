package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"focusglobe/internal/models"
)

type chatStream interface {
	Messages() []models.ChatMessage
	UnreadCount() int
	MarkRead()
	Send(ctx context.Context, text string) (bool, error)
}

type ChatHandler struct {
	stream chatStream
}

func NewChatHandler(stream chatStream) *ChatHandler {
	return &ChatHandler{stream: stream}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ChatHistory{
		Messages:    h.stream.Messages(),
		UnreadCount: h.stream.UnreadCount(),
	})
}

// Send answers 200 with sent=false when there is no active session or the text is blank.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sent, err := h.stream.Send(r.Context(), req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if sent {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"sent": sent})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.stream.MarkRead()
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": h.stream.UnreadCount()})
}
