package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	publishClientName = "focusglobe-chat-publish"
	pubsubClientName  = "focusglobe-chat-pubsub"

	// Each chat stream holds one subscription connection; a few spare cover reconnects.
	pubsubPoolSize = 4
)

// RedisClients carries chat insert events. Publishing and subscribing use separate
// pools so a long-lived subscription never starves publishes.
type RedisClients struct {
	Publish *redis.Client
	PubSub  *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	publishOpt, pubsubOpt, err := redisRoleOptions(redisURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clients := &RedisClients{
		Publish: redis.NewClient(publishOpt),
		PubSub:  redis.NewClient(pubsubOpt),
	}
	for name, c := range map[string]*redis.Client{"publish": clients.Publish, "pubsub": clients.PubSub} {
		if err := c.Ping(ctx).Err(); err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to ping Redis (%s): %w", name, err)
		}
	}
	return clients, nil
}

// redisRoleOptions derives the publish and pubsub connection options from one URL.
func redisRoleOptions(redisURL string) (*redis.Options, *redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	publishOpt := *opt
	publishOpt.ClientName = publishClientName

	pubsubOpt := *opt
	pubsubOpt.ClientName = pubsubClientName
	pubsubOpt.PoolSize = pubsubPoolSize
	// Subscriptions sit idle between messages.
	pubsubOpt.ConnMaxIdleTime = -1

	return &publishOpt, &pubsubOpt, nil
}

func (r *RedisClients) Close() {
	r.Publish.Close()
	r.PubSub.Close()
}
