// Package repository describes the hosted data store the client talks to.
// The store owns two logical tables: active_sessions and global_chat.
package repository

import (
	"context"
	"time"

	"focusglobe/internal/models"
)

// SessionStore is the active_sessions table.
type SessionStore interface {
	// ListSeenSince returns every row whose last_seen is strictly after since.
	ListSeenSince(ctx context.Context, since time.Time) ([]models.Session, error)
	// Upsert inserts the row or overwrites the one with the same ID.
	Upsert(ctx context.Context, s *models.Session) error
	// Touch refreshes last_seen on the row with the given ID.
	Touch(ctx context.Context, id string, lastSeen time.Time) error
	// Delete removes the row; a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// ChatStore is the global_chat table.
type ChatStore interface {
	// ListRecent returns the newest limit messages ordered oldest first.
	ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error)
	// Insert stores msg; the store assigns ID and CreatedAt.
	Insert(ctx context.Context, msg *models.ChatMessage) error
	// SubscribeInserts delivers every row inserted after the call returns.
	// Delivery is at-least-once.
	SubscribeInserts(ctx context.Context, fn func(models.ChatMessage)) (Subscription, error)
}

type Subscription interface {
	Unsubscribe() error
}
