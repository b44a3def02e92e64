package producer

import (
	"fmt"
	"sync"
)

// State is a producer lifecycle state.
type State string

// State constants define the producer lifecycle.
//
//	INIT -> RUNNING <-> ERROR -> RESTARTING -> RUNNING
//	any  -> STOPPED
const (
	StateInit       State = "INIT"
	StateRunning    State = "RUNNING"
	StateError      State = "ERROR"
	StateRestarting State = "RESTARTING"
	StateStopped    State = "STOPPED"
)

var transitions = map[State][]State{
	StateInit:       {StateRunning, StateStopped},
	StateRunning:    {StateError, StateStopped},
	StateError:      {StateRunning, StateRestarting, StateStopped},
	StateRestarting: {StateRunning, StateStopped},
}

// Action is what the run loop must do after a failed poll.
type Action int

// Action constants returned by Escalation.Failure.
const (
	ActionContinue Action = iota
	ActionRestart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRestart:
		return "restart"
	case ActionStop:
		return "stop"
	}
	return "unknown"
}

// Escalation is the error counting state machine of a producer.
// The first time the error count reaches max the producer is restarted and
// the counter cleared; reaching max again after that restart is terminal.
type Escalation struct {
	mu             sync.RWMutex
	state          State
	max            int
	count          int
	restarted      bool
	resetOnSuccess bool
}

// NewEscalation creates a state machine in INIT.
// With resetOnSuccess a successful poll clears the error count, so only
// consecutive failures escalate.
func NewEscalation(max int, resetOnSuccess bool) *Escalation {
	if max <= 0 {
		max = 5
	}
	return &Escalation{state: StateInit, max: max, resetOnSuccess: resetOnSuccess}
}

// State returns the current state.
func (e *Escalation) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Errors returns the current error count.
func (e *Escalation) Errors() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.count
}

// Restarted reports whether the single restart has been used.
func (e *Escalation) Restarted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.restarted
}

// Transition moves to the next state, rejecting edges not in the diagram.
func (e *Escalation) Transition(to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transition(to)
}

func (e *Escalation) transition(to State) error {
	if e.state == to {
		return nil
	}
	for _, allowed := range transitions[e.state] {
		if allowed == to {
			e.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid producer transition %s -> %s", e.state, to)
}

// Success records a good poll.
func (e *Escalation) Success() {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.transition(StateRunning)
	if e.resetOnSuccess {
		e.count = 0
	}
}

// Failure records a failed poll and returns the action to take.
func (e *Escalation) Failure() Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return ActionStop
	}
	_ = e.transition(StateError)
	e.count++

	if e.count < e.max {
		return ActionContinue
	}
	if !e.restarted {
		_ = e.transition(StateRestarting)
		return ActionRestart
	}
	_ = e.transition(StateStopped)
	return ActionStop
}

// RestartDone completes a restart: the counter is cleared and the
// producer is running again.
func (e *Escalation) RestartDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restarted = true
	e.count = 0
	_ = e.transition(StateRunning)
}

// Stop moves to the terminal state.
func (e *Escalation) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateStopped
}
