package formula

import (
	"errors"
	"fmt"
)

var (
	// ErrFormulaSyntax is returned when a formula cannot be parsed
	ErrFormulaSyntax = errors.New("formula syntax error")

	// ErrFormulaEvaluation is returned when a parsed formula cannot produce a usable number
	ErrFormulaEvaluation = errors.New("formula evaluation error")
)

// SyntaxError describes where parsing failed
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("formula syntax error: %s", e.Msg)
	}
	return fmt.Sprintf("formula syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrFormulaSyntax
}

// EvaluationError describes a runtime evaluation failure
type EvaluationError struct {
	Msg string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("formula evaluation error: %s", e.Msg)
}

func (e *EvaluationError) Unwrap() error {
	return ErrFormulaEvaluation
}
