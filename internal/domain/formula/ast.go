package formula

import (
	"math"
	"strconv"
	"strings"
)

// node is one element of a parsed formula
type node interface {
	eval(env map[string]float64) (float64, error)
	render(b *strings.Builder, env map[string]float64)
}

type numberNode struct {
	value float64
	text  string
}

type varNode struct {
	name string
}

type parenNode struct {
	inner node
}

type unaryNode struct {
	op string
	x  node
}

type binaryNode struct {
	op          string
	left, right node
}

// condNode is both IF(c, a, b) and c ? a : b
type condNode struct {
	cond, then, otherwise node
}

func (n *numberNode) eval(map[string]float64) (float64, error) { return n.value, nil }

func (n *numberNode) render(b *strings.Builder, _ map[string]float64) {
	b.WriteString(n.text)
}

func (n *varNode) eval(env map[string]float64) (float64, error) {
	v, ok := env[n.name]
	if !ok {
		return 0, &EvaluationError{Msg: "no value bound for " + n.name}
	}
	return v, nil
}

func (n *varNode) render(b *strings.Builder, env map[string]float64) {
	if env == nil {
		b.WriteString(n.name)
		return
	}
	v, ok := env[n.name]
	if !ok {
		// left as a name so the charset guard refuses it
		b.WriteString(n.name)
		return
	}
	b.WriteString(formatNumber(v))
}

func (n *parenNode) eval(env map[string]float64) (float64, error) { return n.inner.eval(env) }

func (n *parenNode) render(b *strings.Builder, env map[string]float64) {
	b.WriteByte('(')
	n.inner.render(b, env)
	b.WriteByte(')')
}

func (n *unaryNode) eval(env map[string]float64) (float64, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "-":
		return -x, nil
	case "+":
		return x, nil
	case "!":
		return boolToFloat(x == 0), nil
	}
	return 0, &EvaluationError{Msg: "unknown unary operator " + n.op}
}

func (n *unaryNode) render(b *strings.Builder, env map[string]float64) {
	b.WriteString(n.op)
	n.x.render(b, env)
}

func (n *binaryNode) eval(env map[string]float64) (float64, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, &EvaluationError{Msg: "division by zero"}
		}
		return l / r, nil
	case "<":
		return boolToFloat(l < r), nil
	case "<=":
		return boolToFloat(l <= r), nil
	case ">":
		return boolToFloat(l > r), nil
	case ">=":
		return boolToFloat(l >= r), nil
	case "==", "=":
		return boolToFloat(l == r), nil
	case "!=":
		return boolToFloat(l != r), nil
	case "&&":
		return boolToFloat(l != 0 && r != 0), nil
	case "||":
		return boolToFloat(l != 0 || r != 0), nil
	}
	return 0, &EvaluationError{Msg: "unknown operator " + n.op}
}

func (n *binaryNode) render(b *strings.Builder, env map[string]float64) {
	n.left.render(b, env)
	b.WriteByte(' ')
	b.WriteString(n.op)
	b.WriteByte(' ')
	n.right.render(b, env)
}

func (n *condNode) eval(env map[string]float64) (float64, error) {
	c, err := n.cond.eval(env)
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return n.then.eval(env)
	}
	return n.otherwise.eval(env)
}

func (n *condNode) render(b *strings.Builder, env map[string]float64) {
	b.WriteByte('(')
	n.cond.render(b, env)
	b.WriteString(" ? ")
	n.then.render(b, env)
	b.WriteString(" : ")
	n.otherwise.render(b, env)
	b.WriteByte(')')
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// formatNumber never uses exponent notation; negative values are
// parenthesised so they survive being placed after another operator.
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}
