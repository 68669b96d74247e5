package runtimeconfig

import (
	"github.com/edirooss/actorkit/application"
	"github.com/edirooss/actorkit/genserver"
	"github.com/edirooss/actorkit/persistence"
	"github.com/edirooss/actorkit/supervisor"
)

// ApplyProcessDefaults copies the loaded process knobs into a
// genserver.Options value, leaving fields the caller already set
// (Runtime, Name, Persistence, ...) untouched. A free function rather than
// a Config method since Go methods cannot introduce their own type
// parameters.
func ApplyProcessDefaults[S, C, K, R any](c Config, opts genserver.Options[S, C, K, R]) genserver.Options[S, C, K, R] {
	if opts.InitTimeout == 0 {
		opts.InitTimeout = c.Process.InitTimeout
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = c.Process.CallTimeout
	}
	if opts.MailboxSize == 0 {
		opts.MailboxSize = c.Process.MailboxSize
	}
	return opts
}

// ApplySupervisorDefaults copies the loaded supervisor knobs into a
// supervisor.Options value, leaving Strategy/Children/Template (code, not
// config) and any explicitly-set fields untouched.
func (c Config) ApplySupervisorDefaults(opts supervisor.Options) supervisor.Options {
	if opts.MaxRestarts == 0 {
		opts.MaxRestarts = c.Supervisor.MaxRestarts
	}
	if opts.Within == 0 {
		opts.Within = c.Supervisor.Within
	}
	for i := range opts.Children {
		if opts.Children[i].ShutdownTimeout == 0 {
			opts.Children[i].ShutdownTimeout = c.Supervisor.DefaultShutdownMs
		}
	}
	return opts
}

// ApplyApplicationDefaults copies the loaded application knobs into an
// application.Options value.
func (c Config) ApplyApplicationDefaults(opts application.Options) application.Options {
	if !opts.HandleSignals {
		opts.HandleSignals = c.Application.HandleSignals
	}
	if opts.StopTimeout == 0 {
		opts.StopTimeout = c.Application.StopTimeout
	}
	return opts
}

// ApplyPersistenceDefaults builds a persistence.Config for key, seeded from
// the loaded persistence knobs, leaving the caller free to override Key and
// any field afterward.
func (c Config) ApplyPersistenceDefaults(key string) persistence.Config {
	return persistence.Config{
		Key:                key,
		PeriodicInterval:   c.Persistence.PeriodicInterval,
		PersistOnShutdown:  c.Persistence.PersistOnShutdown,
		CleanupOnTerminate: c.Persistence.CleanupOnTerminate,
		MaxStateAge:        c.Persistence.MaxStateAge,
		BreakerMaxRequests: c.Persistence.BreakerMaxRequests,
		BreakerInterval:    c.Persistence.BreakerInterval,
		BreakerTimeout:     c.Persistence.BreakerTimeout,
		RetryMaxElapsed:    c.Persistence.RetryMaxElapsed,
	}
}
