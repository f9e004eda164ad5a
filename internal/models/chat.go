package models

import "time"

// ChatMessage is an immutable row of the global_chat table.
// SessionID references the author's presence session for lookup only.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

type ChatHistory struct {
	Messages    []ChatMessage `json:"messages"`
	UnreadCount int           `json:"unread_count"`
}
