package hfsm

import (
	"fmt"
	"log/slog"
	"slices"
)

const none = -1

type node[S comparable, E comparable, A any] struct {
	id       S
	parent   int
	children []int
	initial  int
	entry    func(A)
	exit     func(A)
	// transitions keyed by event; order keeps the events in add order.
	transitions map[E]*Transition[S, A]
	order       []E
	// table is the optimized lookup, only populated on leaves.
	table map[E]plan[S, A]
}

// plan is a Resolution that still refers to its target by arena index.
type plan[S comparable, A any] struct {
	handled bool
	guard   func(A) bool
	steps   []Step[S, A]
	target  int
}

// Structure is the shared shape of a state machine: its states, their
// hierarchy and their transitions. Build it from a single goroutine, then share
// it read-only with any number of Machines.
type Structure[S comparable, E comparable, A any] struct {
	name      string
	nodes     []node[S, E, A]
	index     map[S]int
	root      int
	events    []E
	known     map[E]struct{}
	optimized bool
}

// NewStructure returns an empty structure. The name is used in logs, machine
// IDs and exported diagrams.
func NewStructure[S comparable, E comparable, A any](name string) *Structure[S, E, A] {
	return &Structure[S, E, A]{
		name:  name,
		index: map[S]int{},
		root:  none,
		known: map[E]struct{}{},
	}
}

// Name returns the structure name.
func (s *Structure[S, E, A]) Name() string {
	return s.name
}

// AddRoot adds the root state. Only one root may be added.
func (s *Structure[S, E, A]) AddRoot(id S, opts ...StateOption[A]) error {
	if _, ok := s.index[id]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateState, id)
	}
	if s.root != none {
		return fmt.Errorf("%w: %v is the root, cannot add %v", ErrRootAlreadyDefined, s.nodes[s.root].id, id)
	}
	s.root = s.add(id, none, opts)
	return nil
}

// AddState adds a state below parent. When initial is set the new state is the
// child its parent descends into on entry. A failed call changes nothing.
func (s *Structure[S, E, A]) AddState(id S, parent S, initial bool, opts ...StateOption[A]) error {
	if _, ok := s.index[id]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateState, id)
	}
	p, ok := s.index[parent]
	if !ok {
		return fmt.Errorf("%w: %v (parent of %v)", ErrParentUnknown, parent, id)
	}
	if initial && s.nodes[p].initial != none {
		return fmt.Errorf("%w: %v already descends into %v, cannot use %v", ErrInitialAlreadySet, parent, s.nodes[s.nodes[p].initial].id, id)
	}
	i := s.add(id, p, opts)
	s.nodes[p].children = append(s.nodes[p].children, i)
	if initial {
		s.nodes[p].initial = i
	}
	return nil
}

func (s *Structure[S, E, A]) add(id S, parent int, opts []StateOption[A]) int {
	var config stateConfig[A]
	for _, opt := range opts {
		opt(&config)
	}
	s.nodes = append(s.nodes, node[S, E, A]{
		id:          id,
		parent:      parent,
		initial:     none,
		entry:       config.entry,
		exit:        config.exit,
		transitions: map[E]*Transition[S, A]{},
	})
	i := len(s.nodes) - 1
	s.index[id] = i
	s.invalidate()
	return i
}

// invalidate drops the optimized tables. Machines already dispatching from
// tables walk the structure until Optimize runs again.
func (s *Structure[S, E, A]) invalidate() {
	if !s.optimized {
		return
	}
	for i := range s.nodes {
		s.nodes[i].table = nil
	}
	s.optimized = false
}

// AddTrans makes state respond to event by moving to target.
func (s *Structure[S, E, A]) AddTrans(state S, event E, target S, opts ...TransitionOption[A]) error {
	t, ok := s.index[target]
	if !ok {
		return fmt.Errorf("%w: target %v of %v on %v", ErrUnknownState, target, state, event)
	}
	return s.addTrans(state, event, t, opts)
}

// AddInternalTrans makes state respond to event without a target state: the
// transition action runs and the machine stays in the handling region.
func (s *Structure[S, E, A]) AddInternalTrans(state S, event E, opts ...TransitionOption[A]) error {
	return s.addTrans(state, event, none, opts)
}

func (s *Structure[S, E, A]) addTrans(state S, event E, target int, opts []TransitionOption[A]) error {
	i, ok := s.index[state]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownState, state)
	}
	n := &s.nodes[i]
	if _, ok := n.transitions[event]; ok {
		return fmt.Errorf("%w: %v on %v", ErrEventAlreadyDefined, state, event)
	}
	var config transitionConfig[A]
	for _, opt := range opts {
		opt(&config)
	}
	transition := &Transition[S, A]{
		Source: state,
		Action: config.action,
		Guard:  config.guard,
	}
	switch {
	case target == none:
		transition.Kind = InternalKind
	case target == i:
		transition.Kind = SelfKind
	case s.isAncestor(i, target), s.isAncestor(target, i):
		transition.Kind = LocalKind
	default:
		transition.Kind = ExternalKind
	}
	if target != none {
		transition.Target = s.nodes[target].id
		transition.HasTarget = true
	}
	n.transitions[event] = transition
	n.order = append(n.order, event)
	if _, ok := s.known[event]; !ok {
		s.known[event] = struct{}{}
		s.events = append(s.events, event)
	}
	s.invalidate()
	return nil
}

// CheckConsistency verifies the tree from the root down: every state with
// children has an initial child and every child points back at its parent.
func (s *Structure[S, E, A]) CheckConsistency() error {
	if s.root == none {
		return fmt.Errorf("%w: %s has no root state", ErrInconsistentStructure, s.name)
	}
	return s.checkNode(s.root)
}

func (s *Structure[S, E, A]) checkNode(i int) error {
	n := &s.nodes[i]
	if len(n.children) > 0 && n.initial == none {
		return fmt.Errorf("%w: state %v has children but no initial state", ErrInconsistentStructure, n.id)
	}
	for _, child := range n.children {
		if s.nodes[child].parent != i {
			return fmt.Errorf("%w: child %v of %v records another parent", ErrInconsistentStructure, s.nodes[child].id, n.id)
		}
		if err := s.checkNode(child); err != nil {
			return err
		}
	}
	return nil
}

// Optimize precomputes, for every leaf and every event known to the structure,
// the resolution Resolve would compute at dispatch time. Running it again
// rebuilds the tables. Adding states or transitions afterwards drops the
// tables and clears the optimized flag until Optimize runs again.
func (s *Structure[S, E, A]) Optimize() {
	leaves := 0
	for i := range s.nodes {
		n := &s.nodes[i]
		if len(n.children) > 0 {
			n.table = nil
			continue
		}
		leaves++
		table := make(map[E]plan[S, A], len(s.events))
		for _, event := range s.events {
			table[event] = s.resolve(event, i)
		}
		n.table = table
	}
	s.optimized = true
	Logger.Debug("hfsm: structure optimized", slog.String("structure", s.name), slog.Int("leaves", leaves), slog.Int("events", len(s.events)))
}

// Optimized reports whether the lookup tables are current.
func (s *Structure[S, E, A]) Optimized() bool {
	return s.optimized
}

// Resolve computes what handling event in state from would do, without
// running anything:
//
//  1. The event bubbles from from towards the root until a state defines it.
//     If none does, the result is unhandled and from is the target.
//  2. Every state passed while bubbling is exited, innermost first.
//  3. With a target: a self transition exits the handler too; otherwise states
//     are exited from the handler upwards until one is an ancestor of the
//     target or the target itself.
//  4. The transition action runs.
//  5. States are entered from there down to the target.
//  6. Initial children are entered until a leaf is reached, which becomes the
//     resolution target. Internal transitions descend from the handler.
func (s *Structure[S, E, A]) Resolve(event E, from S) (Resolution[S, A], error) {
	i, ok := s.index[from]
	if !ok {
		return Resolution[S, A]{}, fmt.Errorf("%w: %v", ErrUnknownState, from)
	}
	return s.resolution(s.resolve(event, i)), nil
}

func (s *Structure[S, E, A]) resolve(event E, from int) plan[S, A] {
	handler := from
	var passed []int
	var transition *Transition[S, A]
	for {
		if t, ok := s.nodes[handler].transitions[event]; ok {
			transition = t
			break
		}
		passed = append(passed, handler)
		if s.nodes[handler].parent == none {
			return plan[S, A]{target: from}
		}
		handler = s.nodes[handler].parent
	}

	p := plan[S, A]{handled: true, guard: transition.Guard}
	for _, i := range passed {
		s.exitStep(&p, i)
	}

	target := handler
	cursor := handler
	if transition.HasTarget {
		target = s.index[transition.Target]
		if cursor == target {
			s.exitStep(&p, cursor)
			cursor = s.nodes[cursor].parent
		} else {
			for cursor != target && !s.isAncestor(cursor, target) {
				s.exitStep(&p, cursor)
				cursor = s.nodes[cursor].parent
			}
		}
	}

	if transition.Action != nil {
		p.steps = append(p.steps, Step[S, A]{Kind: EffectStep, State: s.nodes[handler].id, Do: transition.Action})
	}

	if transition.HasTarget && cursor != target {
		path := s.path(target)
		start := 0
		if cursor != none {
			start = slices.Index(path, cursor) + 1
		}
		for _, i := range path[start:] {
			s.entryStep(&p, i)
		}
	}

	leaf := target
	for s.nodes[leaf].initial != none {
		leaf = s.nodes[leaf].initial
		s.entryStep(&p, leaf)
	}
	p.target = leaf
	return p
}

func (s *Structure[S, E, A]) exitStep(p *plan[S, A], i int) {
	if fn := s.nodes[i].exit; fn != nil {
		p.steps = append(p.steps, Step[S, A]{Kind: ExitStep, State: s.nodes[i].id, Do: fn})
	}
}

func (s *Structure[S, E, A]) entryStep(p *plan[S, A], i int) {
	if fn := s.nodes[i].entry; fn != nil {
		p.steps = append(p.steps, Step[S, A]{Kind: EntryStep, State: s.nodes[i].id, Do: fn})
	}
}

// lookup returns the optimized plan for a leaf, falling back to a walk for
// states that have no table.
func (s *Structure[S, E, A]) lookup(event E, from int) plan[S, A] {
	table := s.nodes[from].table
	if table == nil {
		return s.resolve(event, from)
	}
	p, ok := table[event]
	if !ok {
		return plan[S, A]{target: from}
	}
	return p
}

func (s *Structure[S, E, A]) resolution(p plan[S, A]) Resolution[S, A] {
	return Resolution[S, A]{
		Handled: p.handled,
		Guard:   p.guard,
		Steps:   slices.Clone(p.steps),
		Target:  s.nodes[p.target].id,
	}
}

// isAncestor reports whether a is a strict ancestor of b.
func (s *Structure[S, E, A]) isAncestor(a, b int) bool {
	for p := s.nodes[b].parent; p != none; p = s.nodes[p].parent {
		if p == a {
			return true
		}
	}
	return false
}

// path returns the indices from the root down to i, both included.
func (s *Structure[S, E, A]) path(i int) []int {
	var path []int
	for ; i != none; i = s.nodes[i].parent {
		path = append(path, i)
	}
	slices.Reverse(path)
	return path
}
