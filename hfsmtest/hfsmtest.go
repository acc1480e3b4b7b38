// Package hfsmtest provides utilities for testing hfsm state machines: a
// Recorder that captures the names of the actions a machine runs, and Prove,
// which checks one Vector of events against an initialized machine.
package hfsmtest

import (
	"slices"
	"strings"
	"testing"

	"github.com/airena/hfsm"
)

// Recorder captures action names in the order they ran. Use it as the actions
// value of a machine, or embed it in one.
type Recorder struct {
	Actions []string
}

// Record appends name to the captured actions.
func (r *Recorder) Record(name string) {
	r.Actions = append(r.Actions, name)
}

// Reset forgets every captured action.
func (r *Recorder) Reset() {
	r.Actions = nil
}

// Record returns an action that records name on the actions value. A is
// usually *Recorder or a pointer to a struct embedding Recorder.
func Record[A interface{ Record(string) }](name string) func(A) {
	return func(actions A) {
		actions.Record(name)
	}
}

// Vector describes one test: starting in From and sending Events in order,
// the machine runs exactly Actions and rests in State.
type Vector[S comparable, E comparable] struct {
	Title   string
	From    S
	Events  []E
	State   S
	Actions []string
}

// Prove moves m to v.From without running actions, clears rec, sends every
// event of v and compares the recorded actions and the resulting state. m must
// be initialized and rec must be the recorder its actions write to.
func Prove[S comparable, E comparable, A any](t testing.TB, m *hfsm.Machine[S, E, A], rec *Recorder, v Vector[S, E]) {
	t.Helper()
	if err := m.SetState(v.From); err != nil {
		t.Fatalf("%s: set state %v: %v", v.Title, v.From, err)
		return
	}
	rec.Reset()
	for _, event := range v.Events {
		if err := m.HandleEvent(event); err != nil {
			t.Fatalf("%s: event %v: %v", v.Title, event, err)
			return
		}
	}
	if !slices.Equal(rec.Actions, v.Actions) {
		t.Errorf("%s: expected actions [%s], captured [%s]", v.Title, strings.Join(v.Actions, ", "), strings.Join(rec.Actions, ", "))
	}
	if state, _ := m.State(); state != v.State {
		t.Errorf("%s: expected state %v, got %v", v.Title, v.State, state)
	}
}
