package hfsm

import (
	"fmt"
	"log/slog"

	"github.com/airena/hfsm/muid"
)

type phase uint8

const (
	uninitialized phase = iota
	idleWalking
	idleOptimized
	dispatching
	exited
)

func (p phase) idle() bool {
	return p == idleWalking || p == idleOptimized
}

// MachineOption configures a Machine created with NewMachine.
type MachineOption func(*machineConfig)

type machineConfig struct {
	id       string
	logger   *slog.Logger
	optimize bool
}

// WithID sets the machine ID used in logs. The default is the structure name
// followed by a muid.
func WithID(id string) MachineOption {
	return func(c *machineConfig) {
		c.id = id
	}
}

// WithLogger sets the logger of the machine. The default is the package Logger.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(c *machineConfig) {
		c.logger = logger
	}
}

// WithOptimization selects whether Init may pick table dispatch when the
// structure is optimized. It defaults to true.
func WithOptimization(enabled bool) MachineOption {
	return func(c *machineConfig) {
		c.optimize = enabled
	}
}

// Machine is one running instance of a Structure. It holds the current leaf
// and the actions value passed to every entry, exit, action and guard.
//
// A Machine is not safe for concurrent use. It rejects nested calls made from
// its own actions and guards with ErrReentrantEvent.
type Machine[S comparable, E comparable, A any] struct {
	structure *Structure[S, E, A]
	actions   A
	current   int
	phase     phase
	optimize  bool
	tables    bool
	id        string
	logger    *slog.Logger
}

// NewMachine returns an uninitialized machine over structure. Call Init before
// sending events.
func NewMachine[S comparable, E comparable, A any](structure *Structure[S, E, A], actions A, opts ...MachineOption) *Machine[S, E, A] {
	config := machineConfig{optimize: true}
	for _, opt := range opts {
		opt(&config)
	}
	if config.id == "" {
		config.id = structure.name + "_" + muid.MakeString()
	}
	if config.logger == nil {
		config.logger = Logger
	}
	return &Machine[S, E, A]{
		structure: structure,
		actions:   actions,
		current:   none,
		optimize:  config.optimize,
		id:        config.id,
		logger:    config.logger.With(slog.String("machine", config.id)),
	}
}

// Init checks the structure, then enters the root and its initial children
// down to a leaf. The dispatch path is fixed here: table lookups when the
// structure is optimized and optimization was not disabled, a walk otherwise.
func (m *Machine[S, E, A]) Init() error {
	switch m.phase {
	case dispatching:
		return ErrReentrantEvent
	case exited:
		return ErrExited
	case uninitialized:
	default:
		return ErrAlreadyInitialized
	}
	if err := m.structure.CheckConsistency(); err != nil {
		return err
	}
	idle := idleWalking
	if m.optimize && m.structure.optimized {
		idle = idleOptimized
	}

	m.phase = dispatching
	done := false
	defer m.release(&done, idle, uninitialized)
	m.enter()
	m.tables = idle == idleOptimized
	done = true
	m.logger.Debug("hfsm: machine initialized", slog.Any("state", m.structure.nodes[m.current].id), slog.Bool("optimized", m.tables))
	return nil
}

// enter runs the entry actions from the root down its initial children and
// rests in the leaf it reaches.
func (m *Machine[S, E, A]) enter() {
	s := m.structure
	i := s.root
	for {
		if fn := s.nodes[i].entry; fn != nil {
			fn(m.actions)
		}
		if s.nodes[i].initial == none {
			break
		}
		i = s.nodes[i].initial
	}
	m.current = i
}

// release leaves the dispatching phase. done is false when an action or guard
// panicked, in which case the machine moves to failed instead of next.
func (m *Machine[S, E, A]) release(done *bool, next, failed phase) {
	if *done {
		m.phase = next
		return
	}
	m.phase = failed
}

// HandleEvent resolves event from the current state and runs the resulting
// steps. An event no state handles and a guard that returns false both leave
// the machine as it was and return nil.
//
// If an action panics, the machine is left in the state it was dispatching
// from with the actions that already ran applied, and the panic propagates.
func (m *Machine[S, E, A]) HandleEvent(event E) error {
	switch {
	case m.phase == dispatching:
		m.logger.Warn("hfsm: reentrant event rejected", slog.Any("event", event))
		return ErrReentrantEvent
	case !m.phase.idle():
		return ErrNotInitialized
	}
	idle := m.phase
	m.phase = dispatching
	done := false
	defer m.release(&done, idle, idle)
	m.dispatch(event, idle == idleOptimized)
	done = true
	return nil
}

func (m *Machine[S, E, A]) dispatch(event E, tables bool) {
	s := m.structure
	var p plan[S, A]
	if tables {
		p = s.lookup(event, m.current)
	} else {
		p = s.resolve(event, m.current)
	}
	if !p.handled {
		m.logger.Debug("hfsm: event unhandled", slog.Any("state", s.nodes[m.current].id), slog.Any("event", event))
		return
	}
	if p.guard != nil && !p.guard(m.actions) {
		m.logger.Debug("hfsm: guard rejected event", slog.Any("state", s.nodes[m.current].id), slog.Any("event", event))
		return
	}
	for _, step := range p.steps {
		step.Do(m.actions)
	}
	m.logger.Debug("hfsm: event handled",
		slog.Any("state", s.nodes[m.current].id),
		slog.Any("event", event),
		slog.Any("target", s.nodes[p.target].id),
		slog.Int("steps", len(p.steps)),
	)
	m.current = p.target
}

// SetState moves the machine to id without running any entry, exit or
// transition action. It is meant for tests and for restoring saved machines.
// id need not be a leaf; events sent from a composite state are resolved by
// walking the structure even on an optimized machine.
func (m *Machine[S, E, A]) SetState(id S) error {
	i, ok := m.structure.index[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownState, id)
	}
	switch {
	case m.phase == dispatching:
		return ErrReentrantEvent
	case !m.phase.idle():
		return ErrNotInitialized
	}
	m.current = i
	return nil
}

// Exit runs the exit actions from the current state up to the root. The
// machine is terminal afterwards: events return ErrNotInitialized and Init
// returns ErrExited.
func (m *Machine[S, E, A]) Exit() error {
	switch {
	case m.phase == dispatching:
		return ErrReentrantEvent
	case !m.phase.idle():
		return ErrNotInitialized
	}
	m.phase = dispatching
	done := false
	defer m.release(&done, exited, exited)

	s := m.structure
	from := s.nodes[m.current].id
	for i := m.current; i != none; i = s.nodes[i].parent {
		if fn := s.nodes[i].exit; fn != nil {
			fn(m.actions)
		}
	}
	m.current = none
	done = true
	m.logger.Debug("hfsm: machine exited", slog.Any("state", from))
	return nil
}

// State returns the current state, false before Init and after Exit.
func (m *Machine[S, E, A]) State() (S, bool) {
	if m.current == none || !(m.phase.idle() || m.phase == dispatching) {
		var zero S
		return zero, false
	}
	return m.structure.nodes[m.current].id, true
}

// IsIn reports whether id is the current state or one of its ancestors.
func (m *Machine[S, E, A]) IsIn(id S) bool {
	if _, ok := m.State(); !ok {
		return false
	}
	i, ok := m.structure.index[id]
	if !ok {
		return false
	}
	return i == m.current || m.structure.isAncestor(i, m.current)
}

// Initialized reports whether the machine accepts events.
func (m *Machine[S, E, A]) Initialized() bool {
	return m.phase.idle() || (m.phase == dispatching && m.current != none)
}

// Optimized reports whether Init selected table dispatch.
func (m *Machine[S, E, A]) Optimized() bool {
	return m.tables
}

func (m *Machine[S, E, A]) ID() string {
	return m.id
}

func (m *Machine[S, E, A]) Structure() *Structure[S, E, A] {
	return m.structure
}

func (m *Machine[S, E, A]) String() string {
	if state, ok := m.State(); ok {
		return fmt.Sprintf("%s(%v)", m.id, state)
	}
	return m.id
}
