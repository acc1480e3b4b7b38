// Package kind packs a small type hierarchy into a single uint64.
//
// The lowest byte of a Kind is its own ID. Each higher byte holds the ID of one
// of its bases, so a Kind can name itself plus up to seven ancestors. Is walks
// those bytes to answer "is this kind derived from that one" without maps or
// reflection, which keeps the check cheap enough for dispatch paths.
package kind

import "sync/atomic"

const (
	width    = 64
	idBits   = 8
	maxDepth = width / idBits
	idMask   = (1 << idBits) - 1
)

// Kind encodes an ID in its lowest byte and the IDs of its bases above it.
type Kind = uint64

var counter atomic.Uint64

// ID returns the lowest byte of k, the identity of the kind itself.
func ID(k Kind) Kind {
	return k & idMask
}

// Bases returns the base IDs packed into k, nearest first. Unused slots are zero.
func Bases(k Kind) [maxDepth - 1]Kind {
	var bases [maxDepth - 1]Kind
	for i := 1; i < maxDepth; i++ {
		bases[i-1] = (k >> (idBits * i)) & idMask
	}
	return bases
}

// Make allocates a new kind derived from bases. Base IDs repeated across
// several bases are stored once. Safe for concurrent use.
func Make(bases ...Kind) Kind {
	id := counter.Add(1) & idMask
	seen := make(map[Kind]struct{}, maxDepth)
	k := id
	for _, base := range bases {
		for j := range maxDepth {
			baseID := (base >> (idBits * j)) & idMask
			if baseID == 0 {
				break
			}
			if _, ok := seen[baseID]; ok {
				continue
			}
			if len(seen) == maxDepth-1 {
				return k
			}
			seen[baseID] = struct{}{}
			k |= baseID << (idBits * len(seen))
		}
	}
	return k
}

// Is reports whether k is one of bases or derives from any of them.
//
//go:inline
func Is(k Kind, bases ...Kind) bool {
	for _, base := range bases {
		baseID := base & idMask
		if baseID == 0 {
			continue
		}
		for i := range maxDepth {
			if (k>>(idBits*i))&idMask == baseID {
				return true
			}
		}
	}
	return false
}
