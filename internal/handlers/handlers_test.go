package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"focusglobe/internal/chat"
	"focusglobe/internal/geo"
	"focusglobe/internal/models"
	"focusglobe/internal/presence"
)

type stubPresence struct {
	startErr error
	stopErr  error
	status   models.PresenceStatus
	lastReq  models.StartRequest
}

func (s *stubPresence) Start(ctx context.Context, req models.StartRequest) error {
	s.lastReq = req
	if s.startErr != nil {
		return s.startErr
	}
	s.status = models.PresenceStatus{State: "active", Session: &models.Session{ID: "sess-1", Name: req.Name, Subject: req.Subject}}
	return nil
}

func (s *stubPresence) Stop(ctx context.Context) error {
	if s.stopErr != nil {
		return s.stopErr
	}
	s.status = models.PresenceStatus{State: "idle"}
	return nil
}

func (s *stubPresence) Status() models.PresenceStatus { return s.status }

type stubStream struct {
	messages []models.ChatMessage
	unread   int
	sent     []string
	sendOK   bool
	sendErr  error
}

func (s *stubStream) Messages() []models.ChatMessage { return s.messages }
func (s *stubStream) UnreadCount() int               { return s.unread }
func (s *stubStream) MarkRead()                      { s.unread = 0 }

func (s *stubStream) Send(ctx context.Context, text string) (bool, error) {
	if s.sendErr != nil {
		return false, s.sendErr
	}
	s.sent = append(s.sent, text)
	return s.sendOK, nil
}

type stubRoster struct {
	snapshot presence.Snapshot
}

func (s stubRoster) Snapshot() presence.Snapshot { return s.snapshot }

func postJSON(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Error
}

// ─── Presence Handler Tests ───

func TestPresenceStart_Success(t *testing.T) {
	stub := &stubPresence{status: models.PresenceStatus{State: "idle"}}
	h := NewPresenceHandler(stub)

	rr := httptest.NewRecorder()
	h.Start(rr, postJSON(t, "/api/v1/presence/start", map[string]string{"name": "Ada", "subject": "math"}))

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}
	var status models.PresenceStatus
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if status.State != "active" || status.Session == nil || status.Session.Name != "Ada" {
		t.Errorf("unexpected status %+v", status)
	}
	if stub.lastReq.Subject != models.SubjectMath {
		t.Errorf("Expected subject math, got %q", stub.lastReq.Subject)
	}
}

func TestPresenceStart_InvalidBody(t *testing.T) {
	h := NewPresenceHandler(&stubPresence{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/presence/start", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Start(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", e.Code)
	}
}

func TestPresenceStart_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &presence.ValidationError{Fields: map[string]string{"name": "Name is required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"permission denied", fmt.Errorf("locate: %w", geo.ErrPermissionDenied), http.StatusForbidden, "PERMISSION_DENIED"},
		{"location timeout", fmt.Errorf("locate: %w", geo.ErrTimeout), http.StatusGatewayTimeout, "TIMEOUT"},
		{"already starting", presence.ErrStartInProgress, http.StatusConflict, "CONFLICT"},
		{"cancelled by stop", context.Canceled, http.StatusConflict, "CONFLICT"},
		{"store write failed", fmt.Errorf("%w: %w", presence.ErrRemoteWrite, errors.New("connection reset")), http.StatusBadGateway, "REMOTE_WRITE_FAILED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPresenceHandler(&stubPresence{startErr: tc.err})

			rr := httptest.NewRecorder()
			h.Start(rr, postJSON(t, "/api/v1/presence/start", map[string]string{"name": "Ada", "subject": "math"}))

			if rr.Code != tc.status {
				t.Fatalf("Expected status %d, got %d", tc.status, rr.Code)
			}
			e := decodeError(t, rr)
			if e.Code != tc.code {
				t.Errorf("Expected code %q, got %q", tc.code, e.Code)
			}
			if e.RequestID != "req-42" {
				t.Errorf("Expected request id to be echoed, got %q", e.RequestID)
			}
		})
	}
}

func TestPresenceStart_ValidationFieldsReturned(t *testing.T) {
	h := NewPresenceHandler(&stubPresence{startErr: &presence.ValidationError{Fields: map[string]string{"subject": "Unknown subject"}}})

	rr := httptest.NewRecorder()
	h.Start(rr, postJSON(t, "/api/v1/presence/start", map[string]string{"name": "Ada", "subject": "alchemy"}))

	e := decodeError(t, rr)
	if e.Fields["subject"] != "Unknown subject" {
		t.Errorf("Expected subject field error, got %v", e.Fields)
	}
}

func TestPresenceStop(t *testing.T) {
	stub := &stubPresence{status: models.PresenceStatus{State: "active"}}
	h := NewPresenceHandler(stub)

	rr := httptest.NewRecorder()
	h.Stop(rr, httptest.NewRequest(http.MethodPost, "/api/v1/presence/stop", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var status models.PresenceStatus
	json.NewDecoder(rr.Body).Decode(&status)
	if status.State != "idle" {
		t.Errorf("Expected idle after stop, got %q", status.State)
	}
}

func TestPresenceGet(t *testing.T) {
	h := NewPresenceHandler(&stubPresence{status: models.PresenceStatus{State: "awaiting_location"}})

	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil))

	var status models.PresenceStatus
	json.NewDecoder(rr.Body).Decode(&status)
	if status.State != "awaiting_location" {
		t.Errorf("Expected awaiting_location, got %q", status.State)
	}
}

// ─── Roster Handler Tests ───

func TestRosterGet(t *testing.T) {
	snap := presence.Snapshot{
		Sessions:  []models.Session{{ID: "a", Name: "Ada"}, {ID: "b", Name: "Bo"}},
		Count:     2,
		FetchedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h := NewRosterHandler(stubRoster{snapshot: snap})

	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil))

	var got presence.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Count != 2 || len(got.Sessions) != 2 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

// ─── Subjects Tests ───

func TestListSubjects(t *testing.T) {
	rr := httptest.NewRecorder()
	ListSubjects(rr, httptest.NewRequest(http.MethodGet, "/api/v1/subjects", nil))

	var resp struct {
		Subjects []subjectOption `json:"subjects"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Subjects) != len(models.Subjects) {
		t.Fatalf("Expected %d subjects, got %d", len(models.Subjects), len(resp.Subjects))
	}
	if resp.Subjects[0].Value != models.SubjectCoding || resp.Subjects[0].Emoji != "💻" {
		t.Errorf("unexpected first subject %+v", resp.Subjects[0])
	}
}

// ─── Chat Handler Tests ───

func TestChatList(t *testing.T) {
	stub := &stubStream{
		messages: []models.ChatMessage{{ID: "1", Username: "Ada", Message: "hi"}},
		unread:   3,
	}
	h := NewChatHandler(stub)

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/chat/messages", nil))

	var history models.ChatHistory
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(history.Messages) != 1 || history.UnreadCount != 3 {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestChatSend(t *testing.T) {
	tests := []struct {
		name     string
		stub     *stubStream
		status   int
		wantSent bool
	}{
		{"stored", &stubStream{sendOK: true}, http.StatusCreated, true},
		{"ignored when idle or blank", &stubStream{sendOK: false}, http.StatusOK, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewChatHandler(tc.stub)
			rr := httptest.NewRecorder()
			h.Send(rr, postJSON(t, "/api/v1/chat/messages", map[string]string{"message": "hello"}))

			if rr.Code != tc.status {
				t.Fatalf("Expected status %d, got %d", tc.status, rr.Code)
			}
			var resp map[string]bool
			json.NewDecoder(rr.Body).Decode(&resp)
			if resp["sent"] != tc.wantSent {
				t.Errorf("Expected sent=%v, got %v", tc.wantSent, resp["sent"])
			}
			if len(tc.stub.sent) != 1 || tc.stub.sent[0] != "hello" {
				t.Errorf("Expected text to reach the stream, got %v", tc.stub.sent)
			}
		})
	}
}

func TestChatSend_Failure(t *testing.T) {
	h := NewChatHandler(&stubStream{sendErr: fmt.Errorf("%w: %w", chat.ErrSendFailed, errors.New("insert failed"))})

	rr := httptest.NewRecorder()
	h.Send(rr, postJSON(t, "/api/v1/chat/messages", map[string]string{"message": "hello"}))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != "REMOTE_WRITE_FAILED" {
		t.Errorf("Expected REMOTE_WRITE_FAILED, got %q", e.Code)
	}
}

func TestChatMarkRead(t *testing.T) {
	stub := &stubStream{unread: 5}
	h := NewChatHandler(stub)

	rr := httptest.NewRecorder()
	h.MarkRead(rr, httptest.NewRequest(http.MethodPost, "/api/v1/chat/read", nil))

	var resp map[string]int
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["unread_count"] != 0 {
		t.Errorf("Expected unread_count 0, got %d", resp["unread_count"])
	}
}
