// Package identity hands out the opaque token that keys this device's presence row.
package identity

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionIDKey = "focus_globe_session_id"

// Provider resolves the session token, creating and persisting one on first use.
// When the store cannot be used the token lives only as long as the Provider.
type Provider struct {
	store  Store
	logger *zap.SugaredLogger

	mu       sync.Mutex
	fallback string
	newToken func() string
}

func NewProvider(store Store, logger *zap.SugaredLogger) *Provider {
	return &Provider{
		store:    store,
		logger:   logger,
		newToken: uuid.NewString,
	}
}

func (p *Provider) GetOrCreateID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fallback != "" {
		return p.fallback
	}

	id, ok, err := p.store.Get(sessionIDKey)
	if err != nil {
		p.logger.Warnw("identity storage unreadable, using in-memory session id", "error", err)
		p.fallback = p.newToken()
		return p.fallback
	}
	if ok && id != "" {
		return id
	}

	id = p.newToken()
	if err := p.store.Set(sessionIDKey, id); err != nil {
		p.logger.Warnw("identity storage unwritable, session id will not survive restart", "error", err)
		p.fallback = id
	}
	return id
}
