package statem

import "context"

// Behavior is the callback module for a GenStateMachine: D is the private
// data carried alongside the current state name.
type Behavior[D any] interface {
	// Init builds the starting state name and data.
	Init(ctx context.Context) (StateName, D, error)

	// HandleEvent processes one Event while in state, returning the next
	// Result.
	HandleEvent(ctx context.Context, state StateName, event Event, data D) Result
}

// EnterHook is implemented by machines that want to run logic (typically
// arming timeouts via the returned Actions) whenever a state is entered,
// including the initial state from Init.
type EnterHook[D any] interface {
	OnEnter(ctx context.Context, state StateName, data D) []Action
}

// ExitHook is implemented by machines that want to run cleanup logic
// whenever a state is left, before the next state's OnEnter runs.
type ExitHook[D any] interface {
	OnExit(ctx context.Context, state StateName, data D) []Action
}
