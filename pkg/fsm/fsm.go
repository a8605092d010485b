package fsm

import (
	"sync"

	"github.com/rs/zerolog"
)

// State identifies a state in a machine's state graph
type State string

// Event identifies an input delivered to a machine
type Event string

// None is returned by enter handlers that produce no follow-up event
const None Event = ""

// EnterHandler runs when a state is entered. The returned event, unless
// None, is submitted back to the machine behind any events already queued.
type EnterHandler[T any] func(subject T) Event

// ExitHandler runs when a state is left, before the next state's enter
// handler. Exit handlers are for cleanup and cannot emit events.
type ExitHandler[T any] func(subject T)

// StateSpec declares the behavior of one state
type StateSpec[T any] struct {
	// OnEnter is invoked after the machine's state is set to this state
	OnEnter EnterHandler[T]

	// OnExit is invoked when leaving this state
	OnExit ExitHandler[T]

	// Transitions maps events to target states
	Transitions map[Event]State

	// Ignore lists events that are legal here but cause no transition
	Ignore []Event

	// Terminal marks a state with no way out; entering it stops the machine
	Terminal bool
}

// Spec declares a complete state graph shared by all machines built from it
type Spec[T any] struct {
	Initial State
	States  map[State]StateSpec[T]
}

// Machine drives one subject through a Spec. Events may be submitted from
// any goroutine; they are processed one at a time in submission order, and
// an exit/enter pair runs to completion before the next event is dequeued.
type Machine[T any] struct {
	spec    *Spec[T]
	subject T
	logger  zerolog.Logger

	mu      sync.Mutex
	state   State
	pending []Event
	started bool
	stopped bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once
}

// New creates a machine in the spec's initial state. The initial state's
// enter handler does not run until Start.
func New[T any](spec *Spec[T], subject T, logger zerolog.Logger) *Machine[T] {
	return &Machine[T]{
		spec:    spec,
		subject: subject,
		logger:  logger,
		state:   spec.Initial,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the initial state's enter handler and begins processing
// events. Calls after the first one, or after Stop, are no-ops.
func (m *Machine[T]) Start() {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run()
}

// Stop terminates event processing. Events submitted after Stop are
// silently discarded. Idempotent.
func (m *Machine[T]) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		close(m.stopCh)
	})
}

// Done is closed once the machine has stopped processing events
func (m *Machine[T]) Done() <-chan struct{} {
	return m.done
}

// State returns the machine's current state. During an enter handler the
// reported state is already the state being entered.
func (m *Machine[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submit enqueues an event for processing. Safe from any goroutine;
// never blocks. Submissions to a stopped machine are dropped.
func (m *Machine[T]) Submit(event Event) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.pending = append(m.pending, event)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run is the machine's event loop. All state mutation happens here, which
// is what serializes events per machine.
func (m *Machine[T]) run() {
	defer close(m.done)

	m.enter(m.spec.Initial)

	for {
		event, ok := m.next()
		for ok {
			m.dispatch(event)
			select {
			case <-m.stopCh:
				return
			default:
			}
			event, ok = m.next()
		}

		select {
		case <-m.wake:
		case <-m.stopCh:
			return
		}
	}
}

// next pops the oldest pending event
func (m *Machine[T]) next() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return None, false
	}
	event := m.pending[0]
	m.pending = m.pending[1:]
	return event, true
}

// dispatch applies one event to the current state
func (m *Machine[T]) dispatch(event Event) {
	m.mu.Lock()
	current := m.state
	m.mu.Unlock()

	def, ok := m.spec.States[current]
	if !ok {
		m.logger.Error().
			Str("state", string(current)).
			Str("event", string(event)).
			Msg("Event in undeclared state, dropping")
		return
	}

	if target, ok := def.Transitions[event]; ok {
		m.transition(current, target, def)
		return
	}

	for _, ignored := range def.Ignore {
		if event == ignored {
			m.logger.Debug().
				Str("state", string(current)).
				Str("event", string(event)).
				Msg("Event ignored")
			return
		}
	}

	// Table miss: illegal transition. Log and drop, stay in the current
	// state.
	m.logger.Warn().
		Str("state", string(current)).
		Str("event", string(event)).
		Msg("Illegal transition, dropping event")
}

// transition runs the exit handler of the current state and enters the
// target. No externally submitted event is processed in between.
func (m *Machine[T]) transition(from, to State, fromDef StateSpec[T]) {
	if fromDef.OnExit != nil {
		fromDef.OnExit(m.subject)
	}

	m.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("State transition")

	m.enter(to)
}

// enter sets the state, runs the enter handler, and queues its follow-up
// event behind anything already pending
func (m *Machine[T]) enter(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	def, ok := m.spec.States[state]
	if !ok {
		m.logger.Error().
			Str("state", string(state)).
			Msg("Entered undeclared state")
		return
	}

	if def.OnEnter != nil {
		if follow := def.OnEnter(m.subject); follow != None {
			m.Submit(follow)
		}
	}

	if def.Terminal {
		m.Stop()
	}
}
