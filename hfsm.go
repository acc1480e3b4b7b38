// Package hfsm implements hierarchical finite state machines whose structure is
// shared by many running instances.
//
// # Overview
//
// A Structure holds the tree of states and the transitions between them. It is
// built once with AddRoot, AddState and AddTrans, optionally compiled with
// Optimize, and then shared read-only by any number of Machines. A Machine
// holds only a cursor into the Structure and the caller's actions value; every
// entry, exit, transition action and guard is a function of that value.
//
// # Features
//
//   - **Hierarchical States**: unhandled events bubble from a leaf to its ancestors.
//   - **Entry/Exit/Transition Actions**: run in UML order, exits before the
//     transition action before entries.
//   - **Guards**: a false guard abandons the whole transition.
//   - **Local and External Transitions**: see Resolve for the exact rules.
//   - **Optimized Dispatch**: Optimize precomputes every (leaf, event) pair so
//     dispatch becomes a table lookup.
//
// # Usage
//
//	type Light struct{ log []string }
//
//	s := hfsm.NewStructure[string, string, *Light]("light")
//	_ = s.AddRoot("Light")
//	_ = s.AddState("Red", "Light", true, hfsm.OnEntry(func(l *Light) { l.log = append(l.log, "red") }))
//	_ = s.AddState("Green", "Light", false)
//	_ = s.AddTrans("Red", "next", "Green")
//	_ = s.AddTrans("Green", "next", "Red")
//	s.Optimize()
//
//	m := hfsm.NewMachine(s, &Light{})
//	_ = m.Init()
//	_ = m.HandleEvent("next")
package hfsm

import (
	"errors"
	"log/slog"

	"github.com/airena/hfsm/elements"
	"github.com/airena/hfsm/kind"
)

// Transition kinds, assigned when a transition is added.
var (
	TransitionKind = elements.TransitionKind
	// InternalKind transitions have no target; only states passed while
	// bubbling are exited.
	InternalKind = elements.InternalKind
	// LocalKind transitions target a descendant or an ancestor of the handling
	// state and never exit and re-enter the outer one of the two.
	LocalKind = elements.LocalKind
	// ExternalKind transitions leave the handling state up to the least common
	// ancestor with the target.
	ExternalKind = elements.ExternalKind
	// SelfKind transitions target the handling state itself, which is exited
	// and re-entered.
	SelfKind = elements.SelfKind
)

// Step kinds label the entries of a Resolution.
var (
	StepKind   = kind.Make()
	ExitStep   = kind.Make(StepKind)
	EffectStep = kind.Make(StepKind)
	EntryStep  = kind.Make(StepKind)
)

// Errors returned while building a Structure.
var (
	// ErrDuplicateState is returned when a state ID is added twice.
	ErrDuplicateState = errors.New("state already defined")
	// ErrParentUnknown is returned when the parent of a new state is not defined.
	ErrParentUnknown = errors.New("parent state unknown")
	// ErrRootAlreadyDefined is returned when a second root is added.
	ErrRootAlreadyDefined = errors.New("root state already defined")
	// ErrInitialAlreadySet is returned when a parent gets a second initial child.
	ErrInitialAlreadySet = errors.New("initial state already set")
	// ErrUnknownState is returned when a state or target ID is not defined.
	ErrUnknownState = errors.New("unknown state")
	// ErrEventAlreadyDefined is returned when a state handles an event twice.
	ErrEventAlreadyDefined = errors.New("event already defined for state")
	// ErrInconsistentStructure is returned by CheckConsistency and Machine.Init.
	ErrInconsistentStructure = errors.New("inconsistent structure")
)

// Errors returned by a Machine.
var (
	// ErrNotInitialized is returned when a machine is used before Init or after Exit.
	ErrNotInitialized = errors.New("machine not initialized")
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("machine already initialized")
	// ErrReentrantEvent is returned when a machine is driven from inside one of
	// its own actions or guards.
	ErrReentrantEvent = errors.New("reentrant event handling")
	// ErrExited is returned by Init on a machine that has already exited.
	ErrExited = errors.New("machine exited")
)

// Logger is used by machines created without WithLogger.
var Logger = slog.Default()

// StateOption configures a state added with AddRoot or AddState.
type StateOption[A any] func(*stateConfig[A])

type stateConfig[A any] struct {
	entry func(A)
	exit  func(A)
}

// OnEntry sets the entry action of a state.
func OnEntry[A any](fn func(A)) StateOption[A] {
	return func(c *stateConfig[A]) {
		c.entry = fn
	}
}

// OnExit sets the exit action of a state.
func OnExit[A any](fn func(A)) StateOption[A] {
	return func(c *stateConfig[A]) {
		c.exit = fn
	}
}

// TransitionOption configures a transition added with AddTrans or AddInternalTrans.
type TransitionOption[A any] func(*transitionConfig[A])

type transitionConfig[A any] struct {
	action func(A)
	guard  func(A) bool
}

// WithAction sets the transition action, run after the exits and before the entries.
func WithAction[A any](fn func(A)) TransitionOption[A] {
	return func(c *transitionConfig[A]) {
		c.action = fn
	}
}

// WithGuard sets the guard of a transition.
func WithGuard[A any](fn func(A) bool) TransitionOption[A] {
	return func(c *transitionConfig[A]) {
		c.guard = fn
	}
}

// WithGuards sets a guard that passes only when every given guard passes.
// Evaluation stops at the first false.
func WithGuards[A any](guards ...func(A) bool) TransitionOption[A] {
	return func(c *transitionConfig[A]) {
		if len(guards) == 0 {
			c.guard = nil
			return
		}
		c.guard = func(actions A) bool {
			for _, g := range guards {
				if !g(actions) {
					return false
				}
			}
			return true
		}
	}
}

// Transition describes the response of one state to one event.
type Transition[S comparable, A any] struct {
	Source S
	// Target is meaningful only when HasTarget is set.
	Target    S
	HasTarget bool
	Action    func(A)
	Guard     func(A) bool
	Kind      kind.Kind
}

// Step is one action of a resolved transition.
type Step[S comparable, A any] struct {
	// Kind is ExitStep, EffectStep or EntryStep.
	Kind kind.Kind
	// State is the state exited or entered, or the handling state for an effect.
	State S
	Do    func(A)
}

// Resolution is the outcome of resolving an event from a state: the guard to
// check, the ordered steps to run when it passes, and the leaf to rest in.
type Resolution[S comparable, A any] struct {
	Handled bool
	Guard   func(A) bool
	Steps   []Step[S, A]
	Target  S
}
