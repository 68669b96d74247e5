package gen

import "fmt"

type terminateKind uint8

const (
	terminateNormal terminateKind = iota
	terminateShutdown
	terminateError
)

// TerminateReason is the tagged union a process reports when it stops:
// normal completion, an orderly Shutdown request, or Error carrying the
// fault that killed it. It replaces the "reason: any" convention of the
// original runtime with a closed, exhaustively-matchable type (spec.md
// Design Notes, "tagged-variant messages").
type TerminateReason struct {
	kind terminateKind
	err  error
}

// ReasonNormal is the reason for an ordinary, non-fault exit, such as a
// Stop or RequestStop given this reason; ReasonError(nil) also yields it.
func ReasonNormal() TerminateReason { return TerminateReason{kind: terminateNormal} }

// ReasonShutdown is reported when a process is stopped deliberately, either
// by its own Stop call or by a supervisor tearing it down.
func ReasonShutdown() TerminateReason { return TerminateReason{kind: terminateShutdown} }

// ReasonError wraps the fault (a returned error or a recovered panic,
// normalized to an error by the dispatcher) that killed a process.
func ReasonError(err error) TerminateReason {
	if err == nil {
		return ReasonNormal()
	}
	return TerminateReason{kind: terminateError, err: err}
}

func (r TerminateReason) IsNormal() bool   { return r.kind == terminateNormal }
func (r TerminateReason) IsShutdown() bool { return r.kind == terminateShutdown }
func (r TerminateReason) IsError() bool    { return r.kind == terminateError }

// Err returns the underlying fault and true iff r.IsError().
func (r TerminateReason) Err() (error, bool) {
	if r.kind == terminateError {
		return r.err, true
	}
	return nil, false
}

func (r TerminateReason) String() string {
	switch r.kind {
	case terminateNormal:
		return "normal"
	case terminateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("error: %v", r.err)
	}
}

type downKind uint8

const (
	downNormal downKind = iota
	downShutdown
	downError
	downNoproc
)

// DownReason is the tagged union delivered to a monitor when its monitored
// process terminates, or immediately with DownNoproc when it was already
// dead (or never existed) at Monitor time.
type DownReason struct {
	kind downKind
	msg  string
}

func DownNormal() DownReason   { return DownReason{kind: downNormal} }
func DownShutdown() DownReason { return DownReason{kind: downShutdown} }
func DownError(msg string) DownReason {
	return DownReason{kind: downError, msg: msg}
}

// DownNoproc is the reason of the EventProcessDown that Monitor enqueues as
// an info message to the monitoring process when the target is not in the
// local process table.
func DownNoproc() DownReason { return DownReason{kind: downNoproc} }

// DownReasonFromTerminate projects a process's TerminateReason onto the
// DownReason its monitors observe.
func DownReasonFromTerminate(r TerminateReason) DownReason {
	switch {
	case r.IsNormal():
		return DownNormal()
	case r.IsShutdown():
		return DownShutdown()
	default:
		err, _ := r.Err()
		return DownError(err.Error())
	}
}

func (d DownReason) IsNormal() bool   { return d.kind == downNormal }
func (d DownReason) IsShutdown() bool { return d.kind == downShutdown }
func (d DownReason) IsError() bool    { return d.kind == downError }
func (d DownReason) IsNoproc() bool   { return d.kind == downNoproc }

func (d DownReason) String() string {
	switch d.kind {
	case downNormal:
		return "normal"
	case downShutdown:
		return "shutdown"
	case downNoproc:
		return "noproc"
	default:
		return "error: " + d.msg
	}
}
