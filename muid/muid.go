// Package muid generates monotonically unique 64-bit IDs for machine instances.
//
// The layout follows the snowflake scheme:
//
//	[timestamp bits (ms since Epoch)] [node bits] [sequence bits]
//
// A Generator never hands out the same value twice, even when the wall clock
// steps backwards or more IDs are requested within one millisecond than the
// sequence field can hold; in both cases the timestamp is advanced virtually.
package muid

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEpoch is 2023-11-14T22:13:20Z in Unix milliseconds.
const DefaultEpoch int64 = 1700000000000

// Config controls the bit layout of a Generator. Zero fields take defaults.
type Config struct {
	Node         uint64
	TimestampLen int
	NodeLen      int
	Epoch        int64
}

// MUID is a monotonically unique ID.
type MUID uint64

// String returns m in base 32.
func (m MUID) String() string {
	return strconv.FormatUint(uint64(m), 32)
}

// Generator hands out MUIDs. It is safe for concurrent use.
type Generator struct {
	node         uint64
	epoch        int64
	sequenceLen  int
	sequenceMask uint64
	nodeShift    int
	timeShift    int
	// state packs the last timestamp above the last sequence value.
	state atomic.Uint64
}

// DefaultConfig derives the node field from the host name, falling back to
// random bits when the host name is unavailable.
var DefaultConfig = sync.OnceValue(func() Config {
	config := Config{TimestampLen: 41, NodeLen: 14, Epoch: DefaultEpoch}
	mask := uint64(1)<<config.NodeLen - 1
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		var b [8]byte
		_, _ = rand.Read(b[:])
		config.Node = binary.BigEndian.Uint64(b[:]) & mask
		return config
	}
	hash := fnv.New64a()
	hash.Write([]byte(hostname))
	config.Node = hash.Sum64() & mask
	return config
})

var defaultGenerator = sync.OnceValue(func() *Generator {
	return NewGenerator(DefaultConfig())
})

// NewGenerator returns a Generator for config.
func NewGenerator(config Config) *Generator {
	defaults := Config{TimestampLen: 41, NodeLen: 14, Epoch: DefaultEpoch}
	if config.TimestampLen <= 0 {
		config.TimestampLen = defaults.TimestampLen
	}
	if config.NodeLen <= 0 {
		config.NodeLen = defaults.NodeLen
	}
	if config.Epoch <= 0 {
		config.Epoch = defaults.Epoch
	}
	g := &Generator{
		epoch:       config.Epoch,
		sequenceLen: 64 - config.TimestampLen - config.NodeLen,
	}
	g.sequenceMask = uint64(1)<<g.sequenceLen - 1
	g.nodeShift = g.sequenceLen
	g.timeShift = g.sequenceLen + config.NodeLen
	g.node = config.Node & (uint64(1)<<config.NodeLen - 1)
	return g
}

// ID returns the next MUID.
func (g *Generator) ID() MUID {
	for {
		now := uint64(time.Now().UnixMilli() - g.epoch)
		previous := g.state.Load()
		last := previous >> g.sequenceLen
		sequence := previous & g.sequenceMask

		if now < last {
			now = last
		}
		switch {
		case now > last:
			sequence = 0
		case sequence >= g.sequenceMask:
			now++
			sequence = 0
		default:
			sequence++
		}

		if g.state.CompareAndSwap(previous, now<<g.sequenceLen|sequence) {
			return MUID(now<<g.timeShift | g.node<<g.nodeShift | sequence)
		}
	}
}

// Make returns the next MUID from the process-wide generator.
func Make() MUID {
	return defaultGenerator().ID()
}

// MakeString is Make().String().
func MakeString() string {
	return Make().String()
}
