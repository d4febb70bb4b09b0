package workflow

import "fmt"

// Machine walks a Graph for a single request. Not safe for concurrent use.
type Machine struct {
	graph *Graph
	state State
}

// NewRequestMachine starts a machine on the request graph at current
func NewRequestMachine(current State) *Machine {
	return RequestGraph().Start(current)
}

func (m *Machine) State() State {
	return m.state
}

// CanFire reports whether trigger leaves the current state
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.graph.Next(m.state, trigger)
	return ok
}

// Target resolves where trigger would lead without moving
func (m *Machine) Target(trigger Trigger) (State, error) {
	to, ok := m.graph.Next(m.state, trigger)
	if !ok {
		return "", fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, trigger, m.state)
	}
	return to, nil
}

// Fire moves the machine along trigger
func (m *Machine) Fire(trigger Trigger) error {
	to, err := m.Target(trigger)
	if err != nil {
		return err
	}
	m.state = to
	return nil
}

// PermittedTriggers lists what can be fired from the current state
func (m *Machine) PermittedTriggers() []Trigger {
	return m.graph.Triggers(m.state)
}
