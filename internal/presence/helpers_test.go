package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"focusglobe/internal/geo"
	"focusglobe/internal/identity"
	"focusglobe/internal/models"
	"focusglobe/internal/privacy"
	"focusglobe/internal/repository"
	"focusglobe/internal/scheduler"
)

var (
	testStart  = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	errBackend = errors.New("backend unavailable")
)

type flakyStore struct {
	*repository.Memory
	upsertErr error
	touchErr  error
	deleteErr error
	listErr   error
	deletes   int
}

func (s *flakyStore) Upsert(ctx context.Context, row *models.Session) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.Memory.Upsert(ctx, row)
}

func (s *flakyStore) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	return s.Memory.Touch(ctx, id, lastSeen)
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Memory.Delete(ctx, id)
}

func (s *flakyStore) ListSeenSince(ctx context.Context, since time.Time) ([]models.Session, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Memory.ListSeenSince(ctx, since)
}

// gatedLocator blocks until release is closed, so tests can observe AwaitingLocation.
type gatedLocator struct {
	entered chan struct{}
	release chan struct{}
	pos     geo.Position
}

func newGatedLocator(pos geo.Position) *gatedLocator {
	return &gatedLocator{entered: make(chan struct{}, 1), release: make(chan struct{}), pos: pos}
}

func (l *gatedLocator) Locate(ctx context.Context) (geo.Position, error) {
	l.entered <- struct{}{}
	select {
	case <-l.release:
		return l.pos, nil
	case <-ctx.Done():
		return geo.Position{}, ctx.Err()
	}
}

// secondCallBlocksLocator answers the first lookup at once and holds every later one
// until its context ends, so a restart from Active can be caught mid-flight.
type secondCallBlocksLocator struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	pos     geo.Position
}

func newSecondCallBlocksLocator(pos geo.Position) *secondCallBlocksLocator {
	return &secondCallBlocksLocator{entered: make(chan struct{}, 1), pos: pos}
}

func (l *secondCallBlocksLocator) Locate(ctx context.Context) (geo.Position, error) {
	l.mu.Lock()
	l.calls++
	first := l.calls == 1
	l.mu.Unlock()

	if first {
		return l.pos, nil
	}
	l.entered <- struct{}{}
	<-ctx.Done()
	return geo.Position{}, ctx.Err()
}

type fixture struct {
	clock    *scheduler.Manual
	store    *flakyStore
	identity *identity.Provider
	session  *Session
	roster   *Roster
}

func newFixture(t *testing.T, locator geo.Locator) *fixture {
	t.Helper()

	clock := scheduler.NewManual(testStart)
	store := &flakyStore{Memory: repository.NewMemory(clock.Now)}
	logger := zap.NewNop().Sugar()
	ids := identity.NewProvider(identity.NewMemoryStore(), logger)

	if locator == nil {
		locator = geo.StaticLocator{Position: &geo.Position{Latitude: 37.0, Longitude: -122.0}}
	}

	session := NewSession(store, ids, locator, privacy.NewFuzzer(), clock, logger, Options{Now: clock.Now})
	roster := NewRoster(store, clock, logger, RosterOptions{Now: clock.Now})
	roster.Follow(session)

	return &fixture{clock: clock, store: store, identity: ids, session: session, roster: roster}
}
