// Package store provides last-value stores for calculator sessions. Each
// store keeps one textual value per slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"transcript-calculator/internal/config"
)

// ErrNotFound is returned when a slot has no stored value.
var ErrNotFound = errors.New("store: value not found")

// Store persists the last value of a slot.
type Store interface {
	LoadLastValue(ctx context.Context, slot string) (string, error)
	SaveLastValue(ctx context.Context, slot, value string) error
	Close() error
}

// Open builds the store selected by cfg.
func Open(cfg config.Store) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path), nil
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			WithPrefix(cfg.RedisPrefix),
			WithTTL(cfg.RedisTTL),
		), nil
	case "sqlite":
		return OpenSQLite(filepath.Join(cfg.Path, "calc.db"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validSlot(slot string) error {
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("slot cannot be empty")
	}
	return nil
}
