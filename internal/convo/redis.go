// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// historyTTL bounds how long an idle conversation is kept. Each append
// refreshes the deadline.
const historyTTL = 24 * time.Hour

const keyPrefix = "convo:"

// Redis is a Store backed by a Valkey/Redis list per conversation.
// Messages are stored as JSON list elements, oldest first.
type Redis struct {
	client *redis.Client
}

// Connect creates a Valkey-backed store and verifies the connection
// with a ping.
func Connect(host, port, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return &Redis{client: client}, nil
}

// NewRedis wraps an existing client. Used by tests with miniredis.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// History returns the messages recorded under the conversation id,
// oldest first.
func (r *Redis) History(ctx context.Context, id string) ([]Message, error) {
	raw, err := r.client.LRange(ctx, keyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("convo history %q: %w", id, err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("convo history %q: decode message: %w", id, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append pushes messages onto the conversation list and refreshes its TTL.
func (r *Redis) Append(ctx context.Context, id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("convo append %q: encode message: %w", id, err)
		}
		values = append(values, b)
	}

	key := keyPrefix + id
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("convo append %q: %w", id, err)
	}
	return nil
}
