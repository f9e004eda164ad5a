// Package presence owns this device's presence row and the roster of everyone else's.
package presence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"focusglobe/internal/geo"
	"focusglobe/internal/models"
	"focusglobe/internal/repository"
	"focusglobe/internal/scheduler"
)

const (
	DefaultHeartbeatInterval = 180 * time.Second
	DefaultUnloadTimeout     = 2 * time.Second
	MaxMessageLength         = 50

	heartbeatTimeout = 10 * time.Second
)

type State int

const (
	Idle State = iota
	AwaitingLocation
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingLocation:
		return "awaiting_location"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

type IdentityProvider interface {
	GetOrCreateID() string
}

type CoordinateFuzzer interface {
	Fuzz(lat, lng float64) (float64, float64)
}

type Options struct {
	HeartbeatInterval time.Duration
	UnloadTimeout     time.Duration
	Now               func() time.Time
}

// Session drives the Idle → AwaitingLocation → Active → Idle lifecycle of the local presence row.
type Session struct {
	store     repository.SessionStore
	identity  IdentityProvider
	locator   geo.Locator
	fuzzer    CoordinateFuzzer
	scheduler scheduler.Scheduler
	logger    *zap.SugaredLogger
	now       func() time.Time

	heartbeatInterval time.Duration
	unloadTimeout     time.Duration

	mu              sync.Mutex
	state           State
	current         *models.Session
	cancelHeartbeat scheduler.CancelFunc
	heartbeatGen    uint64
	cancelStart     context.CancelFunc
	stopRequested   bool
	listeners       []func(State)
}

func NewSession(
	store repository.SessionStore,
	identity IdentityProvider,
	locator geo.Locator,
	fuzzer CoordinateFuzzer,
	sched scheduler.Scheduler,
	logger *zap.SugaredLogger,
	opts Options,
) *Session {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.UnloadTimeout <= 0 {
		opts.UnloadTimeout = DefaultUnloadTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		store:             store,
		identity:          identity,
		locator:           locator,
		fuzzer:            fuzzer,
		scheduler:         sched,
		logger:            logger,
		now:               opts.Now,
		heartbeatInterval: opts.HeartbeatInterval,
		unloadTimeout:     opts.UnloadTimeout,
	}
}

// OnChange registers fn to run after every settled transition to Active or Idle.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the last row written while Active.
func (s *Session) Current() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

func (s *Session) Status() models.PresenceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.PresenceStatus{State: s.state.String()}
	if s.current != nil {
		cur := *s.current
		status.Session = &cur
	}
	return status
}

// Start requests the device position, publishes a fuzzed row and begins heartbeating.
// Starting again while Active overwrites the same row. On failure the previous state is kept,
// unless Stop or Unload ran meanwhile, in which case the session ends Idle.
func (s *Session) Start(ctx context.Context, req models.StartRequest) error {
	req, err := normalize(req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == AwaitingLocation {
		s.mu.Unlock()
		return ErrStartInProgress
	}
	prev := s.state
	s.state = AwaitingLocation
	startCtx, cancel := context.WithCancel(ctx)
	s.cancelStart = cancel
	s.mu.Unlock()
	defer cancel()

	row, err := s.publish(startCtx, req)

	s.mu.Lock()
	s.cancelStart = nil
	stopped := s.stopRequested
	s.stopRequested = false
	if err != nil && !stopped {
		s.state = prev
		s.mu.Unlock()
		return err
	}

	// Stop or Unload arrived while we were waiting, or the caller gave up after the row
	// was written. Either way the session ends Idle, including a restart from Active.
	if stopped || startCtx.Err() != nil {
		var ids []string
		if s.current != nil {
			ids = append(ids, s.current.ID)
		}
		if row != nil && (s.current == nil || s.current.ID != row.ID) {
			ids = append(ids, row.ID)
		}
		s.state = Idle
		s.current = nil
		s.stopHeartbeatLocked()
		s.mu.Unlock()

		for _, id := range ids {
			s.bestEffortDelete(id, "start cancelled")
		}
		if prev == Active || row != nil {
			s.notify(Idle)
		}
		if err != nil {
			return err
		}
		if startCtx.Err() != nil {
			return startCtx.Err()
		}
		return context.Canceled
	}

	s.state = Active
	s.current = row
	if s.cancelHeartbeat == nil {
		s.heartbeatGen++
		gen := s.heartbeatGen
		s.cancelHeartbeat = s.scheduler.Every(s.heartbeatInterval, func() { s.beat(gen) })
	}
	s.mu.Unlock()

	s.logger.Infow("joined the globe with fuzzed location", "session_id", row.ID, "subject", row.Subject)
	s.notify(Active)
	return nil
}

func (s *Session) publish(ctx context.Context, req models.StartRequest) (*models.Session, error) {
	pos, err := s.locator.Locate(ctx)
	if err != nil {
		s.logger.Warnw("unable to get location", "error", err)
		return nil, fmt.Errorf("locate: %w", err)
	}

	lat, lng := s.fuzzer.Fuzz(pos.Latitude, pos.Longitude)
	row := &models.Session{
		ID:        s.identity.GetOrCreateID(),
		Name:      req.Name,
		Subject:   req.Subject,
		Latitude:  lat,
		Longitude: lng,
		LastSeen:  s.now().UTC(),
	}
	if req.Message != "" {
		msg := req.Message
		row.Message = &msg
	}

	if err := s.store.Upsert(ctx, row); err != nil {
		s.logger.Errorw("error starting session", "session_id", row.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}
	return row, nil
}

// Stop deletes the row and returns to Idle. A failed delete is only logged;
// the row then disappears from rosters once it expires.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Idle:
		s.mu.Unlock()
		return nil
	case AwaitingLocation:
		// The pending Start finishes the stop, including the delete of a live row.
		s.stopRequested = true
		s.cancelStart()
		s.mu.Unlock()
		return nil
	}

	id := s.current.ID
	s.stopHeartbeatLocked()
	s.state = Idle
	s.current = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warnw("error stopping session, row will expire on its own", "session_id", id, "error", err)
	} else {
		s.logger.Infow("left the globe", "session_id", id)
	}
	s.notify(Idle)
	return nil
}

// Unload is the teardown hook. It issues the delete with a short deadline and does not
// report whether it landed.
func (s *Session) Unload() {
	s.mu.Lock()
	if s.state == AwaitingLocation {
		s.stopRequested = true
		s.cancelStart()
	}
	if s.state != Active {
		s.mu.Unlock()
		return
	}

	id := s.current.ID
	s.stopHeartbeatLocked()
	s.state = Idle
	s.current = nil
	s.mu.Unlock()

	s.bestEffortDelete(id, "unload")
}

func (s *Session) bestEffortDelete(id, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.unloadTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warnw("session cleanup did not complete", "session_id", id, "reason", reason, "error", err)
		return
	}
	s.logger.Infow("session cleaned up", "session_id", id, "reason", reason)
}

func (s *Session) beat(gen uint64) {
	s.mu.Lock()
	if gen != s.heartbeatGen || s.current == nil {
		s.mu.Unlock()
		return
	}
	id := s.current.ID
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
	defer cancel()

	seen := s.now().UTC()
	if err := s.store.Touch(ctx, id, seen); err != nil {
		s.logger.Warnw("error updating heartbeat", "session_id", id, "error", err)
		return
	}

	s.mu.Lock()
	if gen == s.heartbeatGen && s.current != nil && s.current.ID == id {
		s.current.LastSeen = seen
	}
	s.mu.Unlock()
	s.logger.Debugw("heartbeat updated", "session_id", id)
}

func (s *Session) stopHeartbeatLocked() {
	if s.cancelHeartbeat != nil {
		s.cancelHeartbeat()
		s.cancelHeartbeat = nil
	}
	// Invalidate any beat that already fired but has not yet taken the lock.
	s.heartbeatGen++
}

func (s *Session) notify(state State) {
	s.mu.Lock()
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func normalize(req models.StartRequest) (models.StartRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if !req.Subject.Valid() {
		fields["subject"] = "Subject must be one of coding, math, science, literature, languages, art, music, other"
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		fields["message"] = fmt.Sprintf("Message must be at most %d characters", MaxMessageLength)
	}
	if len(fields) > 0 {
		return req, &ValidationError{Fields: fields}
	}
	return req, nil
}
