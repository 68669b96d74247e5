// Package ref defines the process identity used across actorkit.
package ref

import "fmt"

// Ref is an opaque, comparable handle to a process. Holding a Ref does not
// imply the process is alive. Refs compare equal iff their ID and Node match;
// Node is a remote routing hint reserved for the distribution collaborator
// (see gen.DistributionHooks) and is empty for local processes.
type Ref struct {
	ID   string
	Node string
}

// IsZero reports whether r is the zero Ref (never a valid process identity).
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Node == ""
}

// Local reports whether r refers to a process on this node.
func (r Ref) Local() bool {
	return r.Node == ""
}

func (r Ref) String() string {
	if r.Node == "" {
		return fmt.Sprintf("<%s>", r.ID)
	}
	return fmt.Sprintf("<%s@%s>", r.ID, r.Node)
}
