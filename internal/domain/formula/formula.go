// Package formula parses and evaluates HR-authored overtime pay formulas.
//
// A formula is an arithmetic expression over four variables (Hours, ORP,
// HRP, Basic) with comparison operators, the ternary operator and an
// IF(condition, whenTrue, whenFalse) function. Formulas are compiled once
// into an expression tree and evaluated against concrete values.
package formula

import (
	"math"
	"regexp"
	"strings"
)

// Variable names available to formulas
const (
	VarHours = "Hours"
	VarORP   = "ORP"
	VarHRP   = "HRP"
	VarBasic = "Basic"
)

var variableNames = []string{VarHours, VarORP, VarHRP, VarBasic}

// evaluation refuses any character outside this set once values are substituted
var numericOnly = regexp.MustCompile(`^[0-9\s+\-*/()?:.<>=!&|]*$`)

// IsVariable reports whether name is a formula variable
func IsVariable(name string) bool {
	for _, v := range variableNames {
		if v == name {
			return true
		}
	}
	return false
}

// Variables returns the variable names in declaration order
func Variables() []string {
	out := make([]string, len(variableNames))
	copy(out, variableNames)
	return out
}

// Vars binds values to the formula variables
type Vars struct {
	Hours float64
	ORP   float64
	HRP   float64
	Basic float64
}

func (v Vars) env() map[string]float64 {
	return map[string]float64{
		VarHours: v.Hours,
		VarORP:   v.ORP,
		VarHRP:   v.HRP,
		VarBasic: v.Basic,
	}
}

// Program is a compiled formula. It holds no mutable state and is safe
// for concurrent use.
type Program struct {
	source string
	root   node
}

// Compile parses a formula
func Compile(src string) (*Program, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{source: src, root: root}, nil
}

// Source returns the formula text the program was compiled from
func (p *Program) Source() string {
	return p.source
}

// Conditional renders the formula with every IF call rewritten as (c ? a : b)
func (p *Program) Conditional() string {
	var b strings.Builder
	p.root.render(&b, nil)
	return b.String()
}

// Substitute renders the conditional form with variable values in place of names
func (p *Program) Substitute(v Vars) string {
	var b strings.Builder
	p.root.render(&b, v.env())
	return b.String()
}

// Eval computes the formula for the given values
func (p *Program) Eval(v Vars) (float64, error) {
	if expr := p.Substitute(v); !numericOnly.MatchString(expr) {
		return 0, &EvaluationError{Msg: "expression contains disallowed characters after substitution"}
	}

	result, err := p.root.eval(v.env())
	if err != nil {
		return 0, err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, &EvaluationError{Msg: "result is not a finite number"}
	}
	return result, nil
}

// Desugar compiles src and returns its IF-free conditional form
func Desugar(src string) (string, error) {
	p, err := Compile(src)
	if err != nil {
		return "", err
	}
	return p.Conditional(), nil
}

// Evaluate compiles and evaluates src in one step
func Evaluate(src string, v Vars) (float64, error) {
	p, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return p.Eval(v)
}
