package hfsm_test

import (
	"log/slog"
	"testing"

	"github.com/airena/hfsm"
)

type BenchActions struct {
	effects int
}

func benchEffect(b *BenchActions) {
	b.effects++
}

func benchGuard(*BenchActions) bool {
	return true
}

func benchNoBehavior(*BenchActions) {}

// benchStructure builds a root with two branches of the given depth, each
// level with entry and exit actions. "across" moves between the deepest
// leaves, "local" is handled by the leaf itself.
func benchStructure(b *testing.B, depth int) *hfsm.Structure[string, string, *BenchActions] {
	b.Helper()
	s := hfsm.NewStructure[string, string, *BenchActions]("bench")
	opts := []hfsm.StateOption[*BenchActions]{hfsm.OnEntry(benchNoBehavior), hfsm.OnExit(benchNoBehavior)}
	if err := s.AddRoot("root", opts...); err != nil {
		b.Fatal(err)
	}
	leaves := [2]string{}
	for branch, prefix := range []string{"a", "b"} {
		parent := "root"
		for level := range depth {
			id := prefix + string(rune('0'+level))
			if err := s.AddState(id, parent, branch == 0 || level > 0, opts...); err != nil {
				b.Fatal(err)
			}
			parent = id
		}
		leaves[branch] = parent
	}
	for i, leaf := range leaves {
		target := leaves[1-i]
		if err := s.AddTrans(leaf, "across", target, hfsm.WithAction(benchEffect), hfsm.WithGuard(benchGuard)); err != nil {
			b.Fatal(err)
		}
		if err := s.AddInternalTrans(leaf, "local", hfsm.WithAction(benchEffect)); err != nil {
			b.Fatal(err)
		}
	}
	return s
}

func runMachineBenchmark(b *testing.B, optimize bool, event string) {
	s := benchStructure(b, 6)
	if optimize {
		s.Optimize()
	}
	actions := &BenchActions{}
	m := hfsm.NewMachine(s, actions)
	if err := m.Init(); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if err := m.HandleEvent(event); err != nil {
			b.Fatal(err)
		}
	}
	if actions.effects == 0 {
		b.Fatal("no transition ran")
	}
}

func BenchmarkWalkingAcross(b *testing.B) {
	runMachineBenchmark(b, false, "across")
}

func BenchmarkOptimizedAcross(b *testing.B) {
	runMachineBenchmark(b, true, "across")
}

func BenchmarkWalkingLocal(b *testing.B) {
	runMachineBenchmark(b, false, "local")
}

func BenchmarkOptimizedLocal(b *testing.B) {
	runMachineBenchmark(b, true, "local")
}

func BenchmarkOptimize(b *testing.B) {
	logger := hfsm.Logger
	hfsm.Logger = slog.New(slog.DiscardHandler)
	defer func() { hfsm.Logger = logger }()
	s := benchStructure(b, 6)
	b.ReportAllocs()
	for b.Loop() {
		s.Optimize()
	}
}
