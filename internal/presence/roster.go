package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"focusglobe/internal/globe"
	"focusglobe/internal/models"
	"focusglobe/internal/repository"
	"focusglobe/internal/scheduler"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultExpiryWindow = 10 * time.Minute

	refreshTimeout = 10 * time.Second
)

// Snapshot is the full set of live sessions from one roster read.
type Snapshot struct {
	Sessions  []models.Session `json:"sessions"`
	Points    []globe.Point    `json:"points"`
	Count     int              `json:"count"`
	FetchedAt time.Time        `json:"fetched_at"`
}

type RosterOptions struct {
	PollInterval time.Duration
	ExpiryWindow time.Duration
	Now          func() time.Time
}

// Roster polls the store for sessions seen within the expiry window and republishes
// each result as a replacement snapshot. A failed read keeps the previous snapshot.
type Roster struct {
	store     repository.SessionStore
	scheduler scheduler.Scheduler
	logger    *zap.SugaredLogger
	now       func() time.Time

	pollInterval time.Duration
	expiryWindow time.Duration

	// refreshMu keeps reads in order so a slow read never overwrites a newer one.
	refreshMu sync.Mutex

	mu         sync.Mutex
	snapshot   Snapshot
	cancelPoll scheduler.CancelFunc
	nextSub    int
	subs       map[int]func(Snapshot)
}

func NewRoster(store repository.SessionStore, sched scheduler.Scheduler, logger *zap.SugaredLogger, opts RosterOptions) *Roster {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = DefaultExpiryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Roster{
		store:        store,
		scheduler:    sched,
		logger:       logger,
		now:          opts.Now,
		pollInterval: opts.PollInterval,
		expiryWindow: opts.ExpiryWindow,
		snapshot:     Snapshot{Sessions: []models.Session{}, Points: []globe.Point{}},
		subs:         make(map[int]func(Snapshot)),
	}
}

// Start fetches once immediately and then on every poll interval until Stop.
func (r *Roster) Start() {
	r.mu.Lock()
	if r.cancelPoll != nil {
		r.mu.Unlock()
		return
	}
	r.cancelPoll = r.scheduler.Every(r.pollInterval, r.poll)
	r.mu.Unlock()

	r.poll()
}

func (r *Roster) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPoll != nil {
		r.cancelPoll()
		r.cancelPoll = nil
	}
}

func (r *Roster) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	r.Refresh(ctx)
}

// Refresh reads the live sessions now. A session is live when its last_seen is
// strictly newer than now minus the expiry window.
func (r *Roster) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	now := r.now().UTC()
	sessions, err := r.store.ListSeenSince(ctx, now.Add(-r.expiryWindow))
	if err != nil {
		r.logger.Warnw("error fetching active users, keeping previous roster", "error", err)
		return err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	snap := Snapshot{
		Sessions:  sessions,
		Points:    globe.Points(sessions),
		Count:     len(sessions),
		FetchedAt: now,
	}

	r.mu.Lock()
	r.snapshot = snap
	subs := make([]func(Snapshot), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (r *Roster) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Subscribe registers fn for every new snapshot and returns its unsubscribe func.
func (r *Roster) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSub++
	id := r.nextSub
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Follow makes the roster refresh as soon as the local session joins or leaves.
func (r *Roster) Follow(s *Session) {
	s.OnChange(func(State) {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		r.Refresh(ctx)
	})
}
