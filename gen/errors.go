package gen

import (
	stderrors "errors"

	"github.com/juju/errors"
)

// Sentinel errors. Each is the Cause of every error actorkit returns for
// that condition; callers match with errors.Is (stdlib), while actorkit's
// own code annotates them with call-site context via github.com/juju/errors
// before returning (Annotate/Trace keep an Unwrap chain stdlib errors.Is can
// walk).
var (
	// Caller input errors (spec.md §7 "Caller input errors").
	ErrServerNotRunning  = errors.New("server is not running")
	ErrAlreadyRegistered = errors.New("name is already registered")
	ErrNameTaken         = errors.New("name is already taken")
	ErrDuplicateChild    = errors.New("duplicate child id")
	ErrNoSuchChild       = errors.New("no such child")
	ErrInvalidStrategy   = errors.New("invalid supervisor strategy configuration")
	ErrMissingTemplate   = errors.New("simple_one_for_one supervisor requires a child template")
	ErrDuplicateRef      = errors.New("ref already registered under this key")

	// Timeouts (spec.md §7 "Timeouts").
	ErrCallTimeout               = errors.New("call timed out")
	ErrInitTimeout               = errors.New("init timed out")
	ErrApplicationStartTimeout   = errors.New("application start timed out")
	ErrApplicationStopTimeout    = errors.New("application stop timed out")

	// Supervisor faults (spec.md §7 "Supervisor faults").
	ErrMaxRestartsExceeded = errors.New("max restarts exceeded within intensity window")

	// Persistence faults (spec.md §7 "Persistence faults").
	ErrStateNotFound            = errors.New("no persisted state found")
	ErrPersistenceNotConfigured = errors.New("persistence is not configured for this process")
	ErrStaleState               = errors.New("persisted state exceeds maxStateAgeMs")

	// Handler faults carry the user error directly; this sentinel is used
	// only when a handler panics instead of returning an error.
	ErrHandlerPanicked = errors.New("handler panicked")
)

// Is reports whether err's cause chain contains target, using stdlib
// errors.Is (juju/errors' Err type implements Unwrap so this walks through
// Annotate/Trace wrapping correctly).
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Annotatef wraps err with a formatted message while preserving its cause
// chain, the juju/errors idiom used throughout actorkit in place of bare
// fmt.Errorf("%w", ...).
func Annotatef(err error, format string, args ...interface{}) error {
	return errors.Annotatef(err, format, args...)
}
