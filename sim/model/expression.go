// Package model holds the value types shared by every stage of the simulator:
// expressions, instructions, equations, function declarations and the error
// families raised while building or executing a model.
//
// Expressions and instructions are closed sum types. Every consumer switches
// over the concrete pointer types and panics on an unknown variant, so adding a
// variant forces a review of every match site.
package model

import (
	"fmt"
	"strings"

	"github.com/segmentio/fasthash/fnv1a"
)

// Expression is a node of a symbolic term tree.
// Implementations: *Boolean, *Identifier, *CallFunction, *Tuple,
// *TupleElement, *Comparison.
type Expression interface {
	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Expression
	String() string
	isExpression()
}

// Boolean is a literal true/false value.
type Boolean struct {
	Value bool
}

// Identifier names a variable (in populated context) or a pattern
// placeholder (in equations).
type Identifier struct {
	Name string
}

// CallFunction is a function application. QopArgs are metadata tags used only
// for metric lookup and are never evaluated.
type CallFunction struct {
	Name    string
	Args    []Expression
	QopArgs []string
}

// Tuple groups several expressions into one value.
type Tuple struct {
	Elements []Expression
}

// TupleElement selects element Index of the tuple stored in Variable.
type TupleElement struct {
	Variable string
	Index    int
}

// ComparisonKind distinguishes == from !=.
type ComparisonKind int

const (
	Equal ComparisonKind = iota
	NotEqual
)

// Comparison is a condition used by if/while instructions.
type Comparison struct {
	Left  Expression
	Right Expression
	Kind  ComparisonKind
}

func (*Boolean) isExpression()      {}
func (*Identifier) isExpression()   {}
func (*CallFunction) isExpression() {}
func (*Tuple) isExpression()        {}
func (*TupleElement) isExpression() {}
func (*Comparison) isExpression()   {}

func (e *Boolean) Clone() Expression { return &Boolean{Value: e.Value} }

func (e *Identifier) Clone() Expression { return &Identifier{Name: e.Name} }

func (e *CallFunction) Clone() Expression {
	return &CallFunction{
		Name:    e.Name,
		Args:    CloneExpressions(e.Args),
		QopArgs: append([]string(nil), e.QopArgs...),
	}
}

func (e *Tuple) Clone() Expression { return &Tuple{Elements: CloneExpressions(e.Elements)} }

func (e *TupleElement) Clone() Expression {
	return &TupleElement{Variable: e.Variable, Index: e.Index}
}

func (e *Comparison) Clone() Expression {
	return &Comparison{Left: e.Left.Clone(), Right: e.Right.Clone(), Kind: e.Kind}
}

// CloneExpressions deep-copies a slice of expressions. A nil slice stays nil.
func CloneExpressions(exprs []Expression) []Expression {
	if exprs == nil {
		return nil
	}
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = e.Clone()
	}
	return out
}

func (e *Boolean) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

func (e *Identifier) String() string { return e.Name }

func (e *CallFunction) String() string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteString("(")
	sb.WriteString(joinExpressions(e.Args))
	sb.WriteString(")")
	if len(e.QopArgs) > 0 {
		sb.WriteString("[")
		sb.WriteString(strings.Join(e.QopArgs, ","))
		sb.WriteString("]")
	}
	return sb.String()
}

func (e *Tuple) String() string { return "(" + joinExpressions(e.Elements) + ")" }

func (e *TupleElement) String() string { return fmt.Sprintf("%s[%d]", e.Variable, e.Index) }

func (e *Comparison) String() string {
	op := "=="
	if e.Kind == NotEqual {
		op = "!="
	}
	return fmt.Sprintf("%s %s %s", e.Left, op, e.Right)
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

// Equals reports structural equality: same variant, same boolean value or
// identifier name, and for function calls the same name and pairwise equal
// arguments. Qop arguments are metadata and do not take part.
func Equals(a, b Expression) bool {
	switch x := a.(type) {
	case *Boolean:
		y, ok := b.(*Boolean)
		return ok && x.Value == y.Value
	case *Identifier:
		y, ok := b.(*Identifier)
		return ok && x.Name == y.Name
	case *CallFunction:
		y, ok := b.(*CallFunction)
		return ok && x.Name == y.Name && equalLists(x.Args, y.Args)
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalLists(x.Elements, y.Elements)
	case *TupleElement:
		y, ok := b.(*TupleElement)
		return ok && x.Variable == y.Variable && x.Index == y.Index
	case *Comparison:
		y, ok := b.(*Comparison)
		return ok && x.Kind == y.Kind && Equals(x.Left, y.Left) && Equals(x.Right, y.Right)
	case nil:
		return b == nil
	default:
		panic(fmt.Sprintf("model.Equals: unhandled expression %T", a))
	}
}

func equalLists(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equals(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Fingerprint hashes the structural identity of e. Expressions that are
// Equals have the same fingerprint; the converse only holds modulo collisions.
func Fingerprint(e Expression) uint64 {
	h := fnv1a.Init64
	return fingerprint(h, e)
}

func fingerprint(h uint64, e Expression) uint64 {
	switch x := e.(type) {
	case *Boolean:
		h = fnv1a.AddString64(h, "b")
		if x.Value {
			return fnv1a.AddUint64(h, 1)
		}
		return fnv1a.AddUint64(h, 0)
	case *Identifier:
		return fnv1a.AddString64(fnv1a.AddString64(h, "i"), x.Name)
	case *CallFunction:
		h = fnv1a.AddString64(fnv1a.AddString64(h, "f"), x.Name)
		h = fnv1a.AddUint64(h, uint64(len(x.Args)))
		for _, a := range x.Args {
			h = fingerprint(h, a)
		}
		return h
	case *Tuple:
		h = fnv1a.AddUint64(fnv1a.AddString64(h, "t"), uint64(len(x.Elements)))
		for _, a := range x.Elements {
			h = fingerprint(h, a)
		}
		return h
	case *TupleElement:
		h = fnv1a.AddString64(fnv1a.AddString64(h, "e"), x.Variable)
		return fnv1a.AddUint64(h, uint64(x.Index))
	case *Comparison:
		h = fnv1a.AddUint64(fnv1a.AddString64(h, "c"), uint64(x.Kind))
		return fingerprint(fingerprint(h, x.Left), x.Right)
	default:
		panic(fmt.Sprintf("model.Fingerprint: unhandled expression %T", e))
	}
}

// ContainsIdentifier reports whether name occurs as an Identifier anywhere in e.
func ContainsIdentifier(e Expression, name string) bool {
	switch x := e.(type) {
	case *Identifier:
		return x.Name == name
	case *CallFunction:
		for _, a := range x.Args {
			if ContainsIdentifier(a, name) {
				return true
			}
		}
	case *Tuple:
		for _, a := range x.Elements {
			if ContainsIdentifier(a, name) {
				return true
			}
		}
	case *Comparison:
		return ContainsIdentifier(x.Left, name) || ContainsIdentifier(x.Right, name)
	}
	return false
}
