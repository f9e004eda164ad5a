package repository

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"focusglobe/internal/models"
)

// Memory is an in-process SessionStore and ChatStore.
// It backs offline runs and tests; subscribers are notified synchronously after each insert.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]models.Session
	messages []models.ChatMessage
	subs     map[int]func(models.ChatMessage)
	nextSub  int
	entropy  *ulid.MonotonicEntropy

	calls map[string]int
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:      now,
		sessions: make(map[string]models.Session),
		subs:     make(map[int]func(models.ChatMessage)),
		entropy:  ulid.Monotonic(rand.Reader, 0),
		calls:    make(map[string]int),
	}
}

// Calls reports how many times op ("upsert", "touch", "delete", "list_sessions",
// "insert", "list_messages", "subscribe") was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) ListSeenSince(ctx context.Context, since time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list_sessions"]++

	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.LastSeen.After(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Upsert(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["upsert"]++

	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["touch"]++

	if s, ok := m.sessions[id]; ok {
		s.LastSeen = lastSeen
		m.sessions[id] = s
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++

	delete(m.sessions, id)
	return nil
}

// Session returns the stored row for id, if any.
func (m *Memory) Session(id string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// SessionCount returns the number of stored rows, expired or not.
func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list_messages"]++

	start := 0
	if limit > 0 && len(m.messages) > limit {
		start = len(m.messages) - limit
	}
	out := make([]models.ChatMessage, len(m.messages)-start)
	copy(out, m.messages[start:])
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	m.calls["insert"]++

	createdAt := m.now().UTC()
	id, err := ulid.New(ulid.Timestamp(createdAt), m.entropy)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	msg.ID = id.String()
	msg.CreatedAt = createdAt
	m.appendSorted(*msg)
	subs := m.subscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(*msg)
	}
	return nil
}

// Seed stores messages as if they had been inserted earlier, without notifying subscribers.
func (m *Memory) Seed(msgs ...models.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.appendSorted(msg)
	}
}

// Publish pushes msg to subscribers without storing it, simulating a redelivered event.
func (m *Memory) Publish(msg models.ChatMessage) {
	m.mu.Lock()
	subs := m.subscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// Subscribers reports how many live insert subscriptions exist.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) SubscribeInserts(ctx context.Context, fn func(models.ChatMessage)) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["subscribe"]++

	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	return &memorySubscription{m: m, id: id}, nil
}

func (m *Memory) subscribers() []func(models.ChatMessage) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(models.ChatMessage), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}

func (m *Memory) appendSorted(msg models.ChatMessage) {
	m.messages = append(m.messages, msg)
	sort.SliceStable(m.messages, func(i, j int) bool {
		a, b := m.messages[i], m.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

type memorySubscription struct {
	m  *Memory
	id int
}

func (s *memorySubscription) Unsubscribe() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.subs, s.id)
	return nil
}
