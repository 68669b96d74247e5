// Package persistence couples a GenServer's state to durable storage:
// restore on start, periodic and shutdown snapshots, and manual checkpoints
// (spec.md §4.4). It never imports genserver - the dependency runs the
// other way, so a Coupler can be unit tested with an in-memory
// StorageAdapter with no process machinery involved.
package persistence

import (
	"context"
	"time"
)

// StorageAdapter is the storage-backend contract a host application
// supplies; actorkit ships none (spec.md Non-goals: "concrete storage
// adapter implementations"). Load must return an error satisfying
// gen.Is(err, gen.ErrStateNotFound) when key has nothing saved.
type StorageAdapter interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	CleanupOlderThan(ctx context.Context, before time.Time) error
	Close() error
}
