package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Redis stores values under prefixed string keys.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*Redis)

// WithTTL expires stored values; zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedis connects to a Redis server.
func NewRedis(address, password string, db int, opts ...RedisOption) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "calc:last:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(slot string) string {
	return r.prefix + slot
}

func (r *Redis) LoadLastValue(ctx context.Context, slot string) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}

	v, err := r.client.Get(ctx, r.key(slot)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get from redis: %w", err)
	}
	return v, nil
}

func (r *Redis) SaveLastValue(ctx context.Context, slot, value string) error {
	if err := validSlot(slot); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(slot), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("save to redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
