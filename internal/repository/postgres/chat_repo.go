package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"focusglobe/internal/models"
	"focusglobe/internal/repository"
)

// InsertChannel is the Redis channel carrying every stored global_chat row.
const InsertChannel = "global_chat:inserts"

type ChatRepo struct {
	pool      *pgxpool.Pool
	publisher *redis.Client
	pubsub    *redis.Client
	logger    *zap.SugaredLogger
}

func NewChatRepo(pool *pgxpool.Pool, publisher, pubsub *redis.Client, logger *zap.SugaredLogger) *ChatRepo {
	return &ChatRepo{pool: pool, publisher: publisher, pubsub: pubsub, logger: logger}
}

func (r *ChatRepo) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, username, message, created_at
		FROM (
			SELECT id::text AS id, session_id, username, message, created_at
			FROM global_chat
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		) AS recent
		ORDER BY created_at ASC, id ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Username, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *ChatRepo) Insert(ctx context.Context, msg *models.ChatMessage) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO global_chat (session_id, username, message)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at
	`, msg.SessionID, msg.Username, msg.Message).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chat insert event: %w", err)
	}
	// The row is already stored; subscribers that miss this event see it on their next bulk read.
	if err := r.publisher.Publish(ctx, InsertChannel, payload).Err(); err != nil {
		r.logger.Warnw("failed to publish chat insert", "message_id", msg.ID, "error", err)
	}
	return nil
}

func (r *ChatRepo) SubscribeInserts(ctx context.Context, fn func(models.ChatMessage)) (repository.Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := r.pubsub.Subscribe(subCtx, InsertChannel)

	// Wait for the subscription to be confirmed so no insert after this call is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", InsertChannel, err)
	}

	sub := &redisSubscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var chatMsg models.ChatMessage
				if err := json.Unmarshal([]byte(msg.Payload), &chatMsg); err != nil {
					r.logger.Warnw("dropping malformed chat insert event", "error", err)
					continue
				}
				fn(chatMsg)
			}
		}
	}()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.pubsub.Close()
		<-s.done
	})
	return s.err
}
