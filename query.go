package hfsm

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"slices"

	"github.com/airena/hfsm/elements"
)

// Root returns the root state ID, false when no root was added.
func (s *Structure[S, E, A]) Root() (S, bool) {
	if s.root == none {
		var zero S
		return zero, false
	}
	return s.nodes[s.root].id, true
}

// Has reports whether id is a state of the structure.
func (s *Structure[S, E, A]) Has(id S) bool {
	_, ok := s.index[id]
	return ok
}

// States returns every state ID in the order the states were added.
func (s *Structure[S, E, A]) States() []S {
	ids := make([]S, len(s.nodes))
	for i := range s.nodes {
		ids[i] = s.nodes[i].id
	}
	return ids
}

// Parent returns the parent of id, false for the root and unknown states.
func (s *Structure[S, E, A]) Parent(id S) (S, bool) {
	var zero S
	i, ok := s.index[id]
	if !ok || s.nodes[i].parent == none {
		return zero, false
	}
	return s.nodes[s.nodes[i].parent].id, true
}

// Children returns the children of id in add order.
func (s *Structure[S, E, A]) Children(id S) []S {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	children := make([]S, 0, len(s.nodes[i].children))
	for _, child := range s.nodes[i].children {
		children = append(children, s.nodes[child].id)
	}
	return children
}

// Initial returns the initial child of id, false when it has none.
func (s *Structure[S, E, A]) Initial(id S) (S, bool) {
	var zero S
	i, ok := s.index[id]
	if !ok || s.nodes[i].initial == none {
		return zero, false
	}
	return s.nodes[s.nodes[i].initial].id, true
}

// IsLeaf reports whether id is a known state without children.
func (s *Structure[S, E, A]) IsLeaf(id S) bool {
	i, ok := s.index[id]
	return ok && len(s.nodes[i].children) == 0
}

// IsAncestor reports whether ancestor is a strict ancestor of id.
func (s *Structure[S, E, A]) IsAncestor(ancestor, id S) bool {
	a, ok := s.index[ancestor]
	if !ok {
		return false
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}
	return s.isAncestor(a, i)
}

// Events returns every event that some state handles, in first-added order.
func (s *Structure[S, E, A]) Events() []E {
	return slices.Clone(s.events)
}

// Transition returns the transition state defines for event, if any. The
// returned value is a copy.
func (s *Structure[S, E, A]) Transition(state S, event E) (Transition[S, A], bool) {
	i, ok := s.index[state]
	if !ok {
		return Transition[S, A]{}, false
	}
	t, ok := s.nodes[i].transitions[event]
	if !ok {
		return Transition[S, A]{}, false
	}
	return *t, true
}

// Table returns a copy of the optimized table of a leaf. It is nil for
// composite states, unknown states and before Optimize.
func (s *Structure[S, E, A]) Table(leaf S) map[E]Resolution[S, A] {
	i, ok := s.index[leaf]
	if !ok || s.nodes[i].table == nil {
		return nil
	}
	table := make(map[E]Resolution[S, A], len(s.nodes[i].table))
	for event, p := range s.nodes[i].table {
		table[event] = s.resolution(p)
	}
	return table
}

// Elements returns a read-only, stringified snapshot of the structure for
// exporters such as pkg/plantuml.
func (s *Structure[S, E, A]) Elements() elements.Model {
	model := &model{id: s.name, optimized: s.optimized}
	if s.root != none {
		model.root = fmt.Sprint(s.nodes[s.root].id)
	}
	for i := range s.nodes {
		n := &s.nodes[i]
		st := &state{
			id:    fmt.Sprint(n.id),
			entry: functionName(n.entry),
			exit:  functionName(n.exit),
		}
		if n.parent != none {
			st.parent = fmt.Sprint(s.nodes[n.parent].id)
		}
		if n.initial != none {
			st.initial = fmt.Sprint(s.nodes[n.initial].id)
		}
		for _, child := range n.children {
			st.children = append(st.children, fmt.Sprint(s.nodes[child].id))
		}
		for _, event := range n.order {
			t := n.transitions[event]
			view := &transition{
				kind:   t.Kind,
				source: st.id,
				event:  fmt.Sprint(event),
				guard:  functionName(t.Guard),
				effect: functionName(t.Action),
			}
			if t.HasTarget {
				view.target = fmt.Sprint(t.Target)
			}
			st.transitions = append(st.transitions, view)
		}
		model.states = append(model.states, st)
	}
	return model
}

func functionName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return path.Base(f.Name())
}

type model struct {
	id        string
	root      string
	states    []elements.State
	optimized bool
}

func (m *model) Id() string               { return m.id }
func (m *model) Root() string             { return m.root }
func (m *model) States() []elements.State { return slices.Clone(m.states) }
func (m *model) Optimized() bool          { return m.optimized }

type state struct {
	id          string
	parent      string
	children    []string
	initial     string
	entry       string
	exit        string
	transitions []elements.Transition
}

func (s *state) Id() string                         { return s.id }
func (s *state) Parent() string                     { return s.parent }
func (s *state) Children() []string                 { return slices.Clone(s.children) }
func (s *state) Initial() string                    { return s.initial }
func (s *state) Entry() string                      { return s.entry }
func (s *state) Exit() string                       { return s.exit }
func (s *state) Transitions() []elements.Transition { return slices.Clone(s.transitions) }

type transition struct {
	kind   uint64
	source string
	event  string
	target string
	guard  string
	effect string
}

func (t *transition) Kind() uint64   { return t.kind }
func (t *transition) Source() string { return t.source }
func (t *transition) Event() string  { return t.event }
func (t *transition) Target() string { return t.target }
func (t *transition) Guard() string  { return t.guard }
func (t *transition) Effect() string { return t.effect }
