// Package runtimeconfig loads the numeric and duration knobs spread across
// Supervisor, Application and Persistence options into one layered,
// validated configuration surface (SPEC_FULL.md §9), instead of requiring a
// host to wire every constructor option by hand. Grounded on
// tomtom215-cartographus's internal/config package: koanf v2 with a
// defaults-struct layer, an optional YAML file layer, and an environment
// layer, in that precedence order.
package runtimeconfig

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// SupervisorConfig mirrors the restart-policy knobs of supervisor.Options
// that make sense to externalize (strategy and child specs are code, not
// config).
type SupervisorConfig struct {
	MaxRestarts       int           `koanf:"max_restarts" validate:"min=0"`
	Within            time.Duration `koanf:"within" validate:"min=0"`
	DefaultShutdownMs time.Duration `koanf:"default_shutdown_timeout" validate:"min=0"`
}

// ApplicationConfig mirrors application.Options' OS-signal-boundary knobs.
type ApplicationConfig struct {
	HandleSignals bool          `koanf:"handle_signals"`
	StopTimeout   time.Duration `koanf:"stop_timeout" validate:"min=0"`
}

// PersistenceConfig mirrors persistence.Config's tunables.
type PersistenceConfig struct {
	PeriodicInterval   time.Duration `koanf:"periodic_interval" validate:"min=0"`
	PersistOnShutdown  bool          `koanf:"persist_on_shutdown"`
	CleanupOnTerminate bool          `koanf:"cleanup_on_terminate"`
	MaxStateAge        time.Duration `koanf:"max_state_age" validate:"min=0"`

	BreakerMaxRequests uint32        `koanf:"breaker_max_requests" validate:"min=0"`
	BreakerInterval    time.Duration `koanf:"breaker_interval" validate:"min=0"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"min=0"`
	RetryMaxElapsed    time.Duration `koanf:"retry_max_elapsed" validate:"min=0"`

	SchemaVersion int `koanf:"schema_version" validate:"min=0"`
}

// ProcessConfig mirrors genserver.Options' process-wide defaults.
type ProcessConfig struct {
	InitTimeout time.Duration `koanf:"init_timeout" validate:"min=0"`
	CallTimeout time.Duration `koanf:"call_timeout" validate:"min=0"`
	MailboxSize int           `koanf:"mailbox_size" validate:"min=0"`
}

// Config is the full layered configuration surface for one actorkit host.
type Config struct {
	Process     ProcessConfig     `koanf:"process"`
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
	Application ApplicationConfig `koanf:"application"`
	Persistence PersistenceConfig `koanf:"persistence"`
}

// Default returns Config populated with the same defaults the Options
// structs in genserver/supervisor/application/persistence apply on their
// own when a field is left zero, so a host that never touches
// runtimeconfig gets byte-identical behavior to constructing those
// Options directly.
func Default() Config {
	return Config{
		Process: ProcessConfig{
			InitTimeout: 5 * time.Second,
			CallTimeout: 5 * time.Second,
			MailboxSize: 256,
		},
		Supervisor: SupervisorConfig{
			MaxRestarts:       3,
			Within:            5 * time.Second,
			DefaultShutdownMs: 5 * time.Second,
		},
		Application: ApplicationConfig{
			HandleSignals: false,
			StopTimeout:   30 * time.Second,
		},
		Persistence: PersistenceConfig{
			PersistOnShutdown:  true,
			BreakerMaxRequests: 1,
			BreakerTimeout:     30 * time.Second,
			RetryMaxElapsed:    5 * time.Second,
		},
	}
}

// Validate runs struct-tag validation over every section, the same
// go-playground/validator/v10 singleton pattern cartographus uses for its
// request structs (internal/validation/validator.go), applied here to
// configuration instead of HTTP payloads.
func (c *Config) Validate() error {
	return getValidator().Struct(c)
}

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInstance
}
