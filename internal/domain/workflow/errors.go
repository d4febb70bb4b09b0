package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrMissingRemarks is returned when a rejection carries no remarks
	ErrMissingRemarks = errors.New("remarks are required to reject")
)

// TransitionError reports which request could not move and why
type TransitionError struct {
	RequestID int64
	From      State
	Role      Role
	Decision  Decision
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %d: %s cannot %s from state %s", e.RequestID, e.Role, e.Decision, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
