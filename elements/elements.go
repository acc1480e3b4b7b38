// Package elements describes a state machine structure without its type
// parameters, so exporters and tooling can walk any Structure as plain strings.
package elements

import "github.com/airena/hfsm/kind"

var (
	TransitionKind = kind.Make()
	InternalKind   = kind.Make(TransitionKind)
	LocalKind      = kind.Make(TransitionKind)
	ExternalKind   = kind.Make(TransitionKind)
	SelfKind       = kind.Make(ExternalKind)
)

type Model interface {
	// Id is the structure name.
	Id() string
	// Root is the ID of the root state, empty for an empty structure.
	Root() string
	// States lists every state in the order it was added.
	States() []State
	Optimized() bool
}

type State interface {
	Id() string
	// Parent is empty for the root.
	Parent() string
	Children() []string
	// Initial is the initial child, empty for a leaf.
	Initial() string
	Entry() string
	Exit() string
	Transitions() []Transition
}

type Transition interface {
	Kind() uint64
	Source() string
	Event() string
	// Target is empty for internal transitions.
	Target() string
	Guard() string
	Effect() string
}
