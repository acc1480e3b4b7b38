// Package config builds hfsm structures from TOML documents.
//
// A document names its root state and describes every other state below it:
//
//	name = "light"
//	root = "Light"
//	optimize = true
//
//	[states.Red]
//	initial = true
//	entry = "enterRed"
//
//	[[states.Red.transitions]]
//	event = "next"
//	target = "Green"
//	guards = ["powered"]
//
// States without a parent hang below the root. Entry, exit, action and guard
// names are looked up in a Registry. A transition without a target is
// internal.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/airena/hfsm"
)

var (
	ErrMissingRoot   = errors.New("config: root state not named")
	ErrUnknownKey    = errors.New("config: unknown key")
	ErrUnknownAction = errors.New("config: unknown action")
	ErrUnknownGuard  = errors.New("config: unknown guard")
)

// Document is the decoded form of a TOML structure description.
type Document struct {
	Name     string                  `toml:"name"`
	Root     string                  `toml:"root"`
	Optimize bool                    `toml:"optimize"`
	States   map[string]*StateConfig `toml:"states"`

	// order holds the state names as they appear in the source.
	order []string
}

type StateConfig struct {
	Parent      string             `toml:"parent"`
	Initial     bool               `toml:"initial"`
	Entry       string             `toml:"entry"`
	Exit        string             `toml:"exit"`
	Transitions []TransitionConfig `toml:"transitions"`
}

type TransitionConfig struct {
	Event string `toml:"event"`
	// Target is empty for internal transitions.
	Target string   `toml:"target"`
	Action string   `toml:"action"`
	Guards []string `toml:"guards"`
}

// Registry maps the names used in a document to actions and guards on A.
type Registry[A any] struct {
	actions map[string]func(A)
	guards  map[string]func(A) bool
}

func NewRegistry[A any]() *Registry[A] {
	return &Registry[A]{
		actions: map[string]func(A){},
		guards:  map[string]func(A) bool{},
	}
}

// RegisterAction makes fn available to entry, exit and action fields under name.
func (r *Registry[A]) RegisterAction(name string, fn func(A)) *Registry[A] {
	r.actions[name] = fn
	return r
}

// RegisterGuard makes fn available to guards fields under name.
func (r *Registry[A]) RegisterGuard(name string, fn func(A) bool) *Registry[A] {
	r.guards[name] = fn
	return r
}

func (r *Registry[A]) action(name string) (func(A), error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return fn, nil
}

func (r *Registry[A]) guard(name string) (func(A) bool, error) {
	fn, ok := r.guards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGuard, name)
	}
	return fn, nil
}

// Decode parses a TOML document. Keys the document format does not know are
// rejected with ErrUnknownKey.
func Decode(data []byte) (*Document, error) {
	var doc Document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "states" && !slices.Contains(doc.order, key[1]) {
			doc.order = append(doc.order, key[1])
		}
	}
	return &doc, nil
}

// LoadFile reads and decodes the document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// stateOrder returns the state names in source order, or sorted for
// documents that were not decoded from TOML.
func (d *Document) stateOrder() []string {
	if len(d.order) == len(d.States) {
		return d.order
	}
	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build adds the states of doc to a new structure, parents before children,
// then their transitions, and checks the result. The structure is optimized
// when the document asks for it.
func Build[A any](doc *Document, registry *Registry[A]) (*hfsm.Structure[string, string, A], error) {
	if doc.Root == "" {
		return nil, ErrMissingRoot
	}
	name := doc.Name
	if name == "" {
		name = doc.Root
	}
	s := hfsm.NewStructure[string, string, A](name)

	root := doc.States[doc.Root]
	if root == nil {
		root = &StateConfig{}
	}
	if root.Parent != "" {
		return nil, fmt.Errorf("config: root %q cannot have parent %q", doc.Root, root.Parent)
	}
	opts, err := stateOptions(doc.Root, root, registry)
	if err != nil {
		return nil, err
	}
	if err := s.AddRoot(doc.Root, opts...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	order := doc.stateOrder()
	pending := slices.DeleteFunc(slices.Clone(order), func(name string) bool { return name == doc.Root })
	for len(pending) > 0 {
		var next []string
		for _, name := range pending {
			state := doc.States[name]
			parent := state.Parent
			if parent == "" {
				parent = doc.Root
			}
			if !s.Has(parent) {
				next = append(next, name)
				continue
			}
			opts, err := stateOptions(name, state, registry)
			if err != nil {
				return nil, err
			}
			if err := s.AddState(name, parent, state.Initial, opts...); err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
		if len(next) == len(pending) {
			// Nothing was added: the first parent is missing or part of a cycle.
			name := next[0]
			return nil, fmt.Errorf("config: %w: %s (parent of %s)", hfsm.ErrParentUnknown, doc.States[name].Parent, name)
		}
		pending = next
	}

	for _, name := range order {
		for i, t := range doc.States[name].Transitions {
			if err := addTransition(s, name, t, registry); err != nil {
				return nil, fmt.Errorf("config: state %s transition %d: %w", name, i, err)
			}
		}
	}
	if err := s.CheckConsistency(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if doc.Optimize {
		s.Optimize()
	}
	return s, nil
}

func stateOptions[A any](name string, state *StateConfig, registry *Registry[A]) ([]hfsm.StateOption[A], error) {
	var opts []hfsm.StateOption[A]
	entry, err := registry.action(state.Entry)
	if err != nil {
		return nil, fmt.Errorf("config: state %s entry: %w", name, err)
	}
	if entry != nil {
		opts = append(opts, hfsm.OnEntry(entry))
	}
	exit, err := registry.action(state.Exit)
	if err != nil {
		return nil, fmt.Errorf("config: state %s exit: %w", name, err)
	}
	if exit != nil {
		opts = append(opts, hfsm.OnExit(exit))
	}
	return opts, nil
}

func addTransition[A any](s *hfsm.Structure[string, string, A], state string, t TransitionConfig, registry *Registry[A]) error {
	if t.Event == "" {
		return errors.New("missing event")
	}
	var opts []hfsm.TransitionOption[A]
	action, err := registry.action(t.Action)
	if err != nil {
		return err
	}
	if action != nil {
		opts = append(opts, hfsm.WithAction(action))
	}
	if len(t.Guards) > 0 {
		guards := make([]func(A) bool, 0, len(t.Guards))
		for _, name := range t.Guards {
			guard, err := registry.guard(name)
			if err != nil {
				return err
			}
			guards = append(guards, guard)
		}
		if len(guards) == 1 {
			opts = append(opts, hfsm.WithGuard(guards[0]))
		} else {
			opts = append(opts, hfsm.WithGuards(guards...))
		}
	}
	if t.Target == "" {
		return s.AddInternalTrans(state, t.Event, opts...)
	}
	return s.AddTrans(state, t.Event, t.Target, opts...)
}
