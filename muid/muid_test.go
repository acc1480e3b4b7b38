package muid

import (
	"sync"
	"testing"
)

func TestMakeUnique(t *testing.T) {
	const total = 200_000
	ch := make(chan MUID, total)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range total / 8 {
				ch <- Make()
			}
		}()
	}
	wg.Wait()
	close(ch)
	seen := make(map[MUID]bool, total)
	for id := range ch {
		if seen[id] {
			t.Fatalf("collision: %d after %d ids", id, len(seen))
		}
		seen[id] = true
	}
}

func TestGeneratorMonotonic(t *testing.T) {
	g := NewGenerator(Config{Node: 7, NodeLen: 4, TimestampLen: 50})
	previous := g.ID()
	for range 100_000 {
		next := g.ID()
		if next <= previous {
			t.Fatalf("id went backwards: %d after %d", next, previous)
		}
		previous = next
	}
}

func TestGeneratorNodeMasked(t *testing.T) {
	g := NewGenerator(Config{Node: 0xff, NodeLen: 4})
	if g.node != 0xf {
		t.Fatalf("node should be masked to 4 bits, got %x", g.node)
	}
}
