package models

import "time"

// Session is one device's presence record in the active_sessions table.
// Latitude and Longitude are always fuzzed before they are written.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   Subject   `json:"subject"`
	Message   *string   `json:"message,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	LastSeen  time.Time `json:"last_seen"`
}

// MessageText returns the optional status message or "".
func (s Session) MessageText() string {
	if s.Message == nil {
		return ""
	}
	return *s.Message
}

// StartRequest is what the user submits when joining the globe.
type StartRequest struct {
	Name    string  `json:"name"`
	Subject Subject `json:"subject"`
	Message string  `json:"message"`
}

type PresenceStatus struct {
	State   string   `json:"state"`
	Session *Session `json:"session,omitempty"`
}
