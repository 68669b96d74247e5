package gen

import "errors"

// stopRequest lets a Behavior's HandleCall/HandleCast/HandleInfo request
// termination with a caller-chosen TerminateReason (Normal or Shutdown, not
// just Error) by returning it as an ordinary error. Without this, a handler
// could only signal "terminate" by returning a real error, which genserver
// would always report as ReasonError even when the handler meant to stop
// cleanly - the case GenStateMachine's Stop(reason) result needs.
type stopRequest struct {
	reason TerminateReason
}

func (s *stopRequest) Error() string { return "stop requested: " + s.reason.String() }

// RequestStop returns an error that, when returned from a handler, makes
// genserver terminate the process with exactly reason instead of wrapping
// it as ReasonError.
func RequestStop(reason TerminateReason) error {
	return &stopRequest{reason: reason}
}

// AsStopRequest reports whether err (or something it wraps) was produced by
// RequestStop, returning the reason it carries.
func AsStopRequest(err error) (TerminateReason, bool) {
	var sr *stopRequest
	if errors.As(err, &sr) {
		return sr.reason, true
	}
	return TerminateReason{}, false
}
