// Package chat keeps the local view of the global chat log in sync with the store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"focusglobe/internal/globe"
	"focusglobe/internal/models"
	"focusglobe/internal/repository"
)

const DefaultHistoryLimit = 100

var ErrSendFailed = errors.New("failed to send chat message")

// Presence exposes the local session that authors outgoing messages.
type Presence interface {
	Current() (models.Session, bool)
}

// Stream is an append-only message log: one bulk read on Mount, then pushed inserts
// until Close. Messages are deduplicated by ID.
type Stream struct {
	store    repository.ChatStore
	presence Presence
	logger   *zap.SugaredLogger
	limit    int

	mu        sync.Mutex
	mounted   bool
	loaded    bool
	closed    bool
	sub       repository.Subscription
	messages  []models.ChatMessage
	seen      map[string]struct{}
	pending   []models.ChatMessage
	unread    int
	nextID    int
	listeners map[int]func(models.ChatMessage)
}

func NewStream(store repository.ChatStore, presence Presence, logger *zap.SugaredLogger, limit int) *Stream {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Stream{
		store:     store,
		presence:  presence,
		logger:    logger,
		limit:     limit,
		messages:  []models.ChatMessage{},
		seen:      make(map[string]struct{}),
		listeners: make(map[int]func(models.ChatMessage)),
	}
}

// Mount subscribes to inserts and then loads the most recent history. Inserts that land
// while the history is loading are held back and appended after it. If the history read
// fails the stream stays subscribed and the error is returned.
func (s *Stream) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.mu.Unlock()

	sub, err := s.store.SubscribeInserts(ctx, s.receive)
	if err != nil {
		s.mu.Lock()
		s.mounted = false
		s.mu.Unlock()
		return fmt.Errorf("subscribe to chat inserts: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	history, err := s.store.ListRecent(ctx, s.limit)
	if err != nil {
		s.logger.Warnw("error fetching chat history", "error", err)
	}

	s.mu.Lock()
	for _, msg := range history {
		s.appendLocked(msg)
	}
	pending := s.pending
	s.pending = nil
	s.loaded = true
	var fresh []models.ChatMessage
	for _, msg := range pending {
		if s.appendLocked(msg) {
			if !s.isOwn(msg) {
				s.unread++
			}
			fresh = append(fresh, msg)
		}
	}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, msg := range fresh {
		for _, fn := range listeners {
			fn(msg)
		}
	}

	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	return nil
}

func (s *Stream) receive(msg models.ChatMessage) {
	own := s.isOwn(msg)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.loaded {
		s.pending = append(s.pending, msg)
		s.mu.Unlock()
		return
	}
	if !s.appendLocked(msg) {
		s.mu.Unlock()
		return
	}
	if !own {
		s.unread++
	}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

// isOwn reports whether msg was written by the active local session.
func (s *Stream) isOwn(msg models.ChatMessage) bool {
	if s.presence == nil {
		return false
	}
	author, ok := s.presence.Current()
	return ok && author.ID == msg.SessionID
}

// appendLocked adds msg unless its ID is already present and reports whether it did.
func (s *Stream) appendLocked(msg models.ChatMessage) bool {
	if msg.ID != "" {
		if _, dup := s.seen[msg.ID]; dup {
			return false
		}
		s.seen[msg.ID] = struct{}{}
	}
	s.messages = append(s.messages, msg)
	return true
}

// Send posts text as the active session. It does nothing when no session is active
// or the trimmed text is empty, and reports whether a message was stored.
func (s *Stream) Send(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	author, ok := s.presence.Current()
	if !ok {
		return false, nil
	}

	msg := models.ChatMessage{
		SessionID: author.ID,
		Username:  globe.DisplayName(author.Name),
		Message:   text,
	}
	if err := s.store.Insert(ctx, &msg); err != nil {
		s.logger.Errorw("error sending message", "session_id", author.ID, "error", err)
		return false, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	// The push echo of our own insert is dropped as a duplicate.
	s.mu.Lock()
	if s.loaded && !s.closed && s.appendLocked(msg) {
		listeners := s.listenersLocked()
		s.mu.Unlock()
		for _, fn := range listeners {
			fn(msg)
		}
		return true, nil
	}
	s.mu.Unlock()
	return true, nil
}

func (s *Stream) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// UnreadCount is the number of pushed messages from other sessions since the last MarkRead.
func (s *Stream) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Stream) MarkRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = 0
}

// OnMessage registers fn for every message appended after history has loaded.
func (s *Stream) OnMessage(fn func(models.ChatMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Stream) listenersLocked() []func(models.ChatMessage) {
	out := make([]func(models.ChatMessage), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// Close releases the push subscription. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}
