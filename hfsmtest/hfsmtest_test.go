package hfsmtest_test

import (
	"fmt"
	"testing"

	"github.com/airena/hfsm"
	"github.com/airena/hfsm/hfsmtest"
)

// failures records what Prove reports instead of failing the test.
type failures struct {
	testing.TB
	messages []string
}

func (f *failures) Helper() {}

func (f *failures) Errorf(format string, args ...any) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

func (f *failures) Fatalf(format string, args ...any) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

func light(t *testing.T) (*hfsm.Machine[string, string, *hfsmtest.Recorder], *hfsmtest.Recorder) {
	t.Helper()
	s := hfsm.NewStructure[string, string, *hfsmtest.Recorder]("light")
	steps := []error{
		s.AddRoot("Light"),
		s.AddState("Red", "Light", true, hfsm.OnEntry(hfsmtest.Record[*hfsmtest.Recorder]("enter_Red"))),
		s.AddState("Green", "Light", false, hfsm.OnEntry(hfsmtest.Record[*hfsmtest.Recorder]("enter_Green"))),
		s.AddTrans("Red", "next", "Green"),
		s.AddTrans("Green", "next", "Red", hfsm.WithAction(hfsmtest.Record[*hfsmtest.Recorder]("wrap"))),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatal(err)
		}
	}
	rec := &hfsmtest.Recorder{}
	m := hfsm.NewMachine(s, rec)
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	return m, rec
}

func TestProve(t *testing.T) {
	m, rec := light(t)
	hfsmtest.Prove(t, m, rec, hfsmtest.Vector[string, string]{
		Title:   "one step",
		From:    "Red",
		Events:  []string{"next"},
		State:   "Green",
		Actions: []string{"enter_Green"},
	})
	hfsmtest.Prove(t, m, rec, hfsmtest.Vector[string, string]{
		Title:   "sequence",
		From:    "Green",
		Events:  []string{"next", "next", "unknown"},
		State:   "Green",
		Actions: []string{"wrap", "enter_Red", "enter_Green"},
	})
}

func TestProveReportsMismatches(t *testing.T) {
	m, rec := light(t)
	cases := []struct {
		vector hfsmtest.Vector[string, string]
		count  int
	}{
		{hfsmtest.Vector[string, string]{Title: "wrong actions", From: "Red", Events: []string{"next"}, State: "Green"}, 1},
		{hfsmtest.Vector[string, string]{Title: "wrong state", From: "Red", Events: []string{"next"}, State: "Red", Actions: []string{"enter_Green"}}, 1},
		{hfsmtest.Vector[string, string]{Title: "unknown start", From: "Blue"}, 1},
	}
	for _, c := range cases {
		f := &failures{}
		hfsmtest.Prove(f, m, rec, c.vector)
		if len(f.messages) != c.count {
			t.Errorf("%s: expected %d failure(s), got %q", c.vector.Title, c.count, f.messages)
		}
	}
}
