package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// Config holds the tunables spec.md §4.4 exposes per process: how often to
// snapshot, whether to snapshot on shutdown, whether to delete on
// termination, and how stale a restored snapshot may be before it is
// rejected.
type Config struct {
	Key                string
	PeriodicInterval   time.Duration // 0 disables periodic snapshots
	PersistOnShutdown  bool
	CleanupOnTerminate bool
	MaxStateAge        time.Duration // 0 means unbounded

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	RetryMaxElapsed    time.Duration
}

// DefaultConfig returns Config with the spec's stated defaults: no periodic
// snapshotting, persist on shutdown, no cleanup on terminate, unbounded
// staleness.
func DefaultConfig(key string) Config {
	return Config{
		Key:                key,
		PersistOnShutdown:  true,
		BreakerMaxRequests: 1,
		BreakerInterval:    0,
		BreakerTimeout:     30 * time.Second,
		RetryMaxElapsed:    5 * time.Second,
	}
}

// Coupler drives a StorageAdapter on behalf of one process's state S. Every
// Load and Save call is wrapped in a circuit breaker (sony/gobreaker/v2) so
// a storage outage fails fast instead of piling up blocked saves, and in a
// bounded exponential retry (cenkalti/backoff/v4) so a single transient
// error does not fail a checkpoint outright. Delete calls the adapter
// directly, with neither.
type Coupler[S any] struct {
	adapter StorageAdapter
	cfg     Config
	proc    ref.Ref
	bus     *gen.EventBus
	log     *zap.Logger

	loadBreaker *gobreaker.CircuitBreaker[[]byte]
	saveBreaker *gobreaker.CircuitBreaker[struct{}]
	sf          singleflight.Group
}

// NewCoupler wires adapter to proc's lifecycle. bus and log may be nil; a
// nil bus simply means no EventStatePersisted/EventPersistenceError events
// are published.
func NewCoupler[S any](adapter StorageAdapter, cfg Config, proc ref.Ref, bus *gen.EventBus, log *zap.Logger) *Coupler[S] {
	name := "persistence:" + cfg.Key
	return &Coupler[S]{
		adapter: adapter,
		cfg:     cfg,
		proc:    proc,
		bus:     bus,
		log:     log,
		loadBreaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        name + ":load",
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
		}),
		saveBreaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        name + ":save",
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
		}),
	}
}

func (c *Coupler[S]) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed
	return backoff.WithContext(b, ctx)
}

// Restore loads and decodes the process's last snapshot. It returns
// (zero, false, nil) if no snapshot exists, and fails with gen.ErrStaleState
// if MaxStateAge is set and exceeded.
func (c *Coupler[S]) Restore(ctx context.Context) (state S, found bool, err error) {
	var data []byte
	op := func() error {
		d, bErr := c.loadBreaker.Execute(func() ([]byte, error) {
			return c.adapter.Load(ctx, c.cfg.Key)
		})
		if bErr != nil {
			return bErr
		}
		data = d
		return nil
	}

	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		if gen.Is(err, gen.ErrStateNotFound) {
			return state, false, nil
		}
		wrapped := gen.Annotatef(err, "restore %q", c.cfg.Key)
		c.publishError("restore", wrapped)
		return state, false, wrapped
	}

	persistedAt, err := decodeEnvelope(data, &state)
	if err != nil {
		c.publishError("restore", err)
		return state, false, err
	}
	if c.cfg.MaxStateAge > 0 && time.Since(persistedAt) > c.cfg.MaxStateAge {
		wrapped := gen.Annotatef(gen.ErrStaleState, "persisted at %s", persistedAt)
		c.publishError("restore", wrapped)
		return state, false, wrapped
	}

	if c.bus != nil {
		c.bus.Publish(gen.EventStateRestored{Proc: c.proc, PersistedAt: persistedAt})
	}
	return state, true, nil
}

// Save writes state, deduplicating concurrent calls for the same key via
// golang.org/x/sync/singleflight so a periodic tick racing a manual
// Checkpoint issues one adapter write, not two.
func (c *Coupler[S]) Save(ctx context.Context, state S) error {
	now := time.Now()
	_, err, _ := c.sf.Do(c.cfg.Key, func() (any, error) {
		payload, encErr := encodeEnvelope(state, now)
		if encErr != nil {
			return nil, encErr
		}
		op := func() error {
			_, bErr := c.saveBreaker.Execute(func() (struct{}, error) {
				return struct{}{}, c.adapter.Save(ctx, c.cfg.Key, payload)
			})
			return bErr
		}
		return nil, backoff.Retry(op, c.retryPolicy(ctx))
	})
	if err != nil {
		wrapped := gen.Annotatef(err, "save %q", c.cfg.Key)
		c.publishError("save", wrapped)
		return wrapped
	}
	if c.bus != nil {
		c.bus.Publish(gen.EventStatePersisted{Proc: c.proc, PersistedAt: now})
	}
	return nil
}

// Checkpoint is Save under the name spec.md uses for the caller-triggered
// variant (GenServer.Checkpoint).
func (c *Coupler[S]) Checkpoint(ctx context.Context, state S) error { return c.Save(ctx, state) }

// Delete removes the process's snapshot, used when CleanupOnTerminate is
// set.
func (c *Coupler[S]) Delete(ctx context.Context) error {
	if err := c.adapter.Delete(ctx, c.cfg.Key); err != nil {
		wrapped := gen.Annotatef(err, "delete %q", c.cfg.Key)
		c.publishError("delete", wrapped)
		return wrapped
	}
	return nil
}

func (c *Coupler[S]) publishError(op string, err error) {
	if c.log != nil {
		c.log.Warn("persistence error", zap.String("op", op), zap.Error(err))
	}
	if c.bus != nil {
		c.bus.Publish(gen.EventPersistenceError{Proc: c.proc, Op: op, Err: err})
	}
}
