// Package expression substitutes host variables into expressions and
// evaluates the conditions of if/while instructions.
package expression

import (
	"fmt"

	"github.com/QoPMLProject/AQoPA-sub000/sim/equation"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Variables resolves variable names to their current values.
type Variables interface {
	Variable(name string) (model.Expression, bool)
}

// VariableMap is a plain map implementation of Variables, handy for tests
// and for evaluating expressions outside a host.
type VariableMap map[string]model.Expression

func (m VariableMap) Variable(name string) (model.Expression, bool) {
	v, ok := m[name]
	return v, ok
}

// Populator replaces identifiers with the values of host variables.
type Populator struct {
	reducer *equation.Reducer
}

// NewPopulator creates a Populator. The reducer is used to normalize a
// variable before it is indexed as a tuple.
func NewPopulator(reducer *equation.Reducer) *Populator {
	if reducer == nil {
		panic("NewPopulator: reducer must not be nil")
	}
	return &Populator{reducer: reducer}
}

// Populate returns a copy of expr with every identifier replaced by a clone of
// its bound value. The result contains no *model.Identifier nodes.
func (p *Populator) Populate(expr model.Expression, vars Variables) (model.Expression, error) {
	switch e := expr.(type) {
	case *model.Identifier:
		value, ok := vars.Variable(e.Name)
		if !ok {
			return nil, model.NewRuntimeError("variable %s is undefined", e.Name)
		}
		return value.Clone(), nil
	case *model.Boolean:
		return e.Clone(), nil
	case *model.CallFunction:
		args, err := p.populateList(e.Args, vars)
		if err != nil {
			return nil, err
		}
		return &model.CallFunction{Name: e.Name, Args: args, QopArgs: append([]string(nil), e.QopArgs...)}, nil
	case *model.Tuple:
		elements, err := p.populateList(e.Elements, vars)
		if err != nil {
			return nil, err
		}
		return &model.Tuple{Elements: elements}, nil
	case *model.TupleElement:
		return p.populateTupleElement(e, vars)
	case *model.Comparison:
		left, err := p.Populate(e.Left, vars)
		if err != nil {
			return nil, err
		}
		right, err := p.Populate(e.Right, vars)
		if err != nil {
			return nil, err
		}
		return &model.Comparison{Left: left, Right: right, Kind: e.Kind}, nil
	default:
		panic(fmt.Sprintf("Populate: unhandled expression %T", expr))
	}
}

func (p *Populator) populateList(exprs []model.Expression, vars Variables) ([]model.Expression, error) {
	out := make([]model.Expression, len(exprs))
	for i, e := range exprs {
		populated, err := p.Populate(e, vars)
		if err != nil {
			return nil, err
		}
		out[i] = populated
	}
	return out, nil
}

func (p *Populator) populateTupleElement(e *model.TupleElement, vars Variables) (model.Expression, error) {
	value, ok := vars.Variable(e.Variable)
	if !ok {
		return nil, model.NewRuntimeError("variable %s is undefined", e.Variable)
	}
	tuple, isTuple := value.(*model.Tuple)
	if !isTuple {
		reduced, err := p.reducer.Reduce(value)
		if err != nil {
			return nil, err
		}
		tuple, isTuple = reduced.(*model.Tuple)
		if !isTuple {
			return nil, model.NewRuntimeError("variable %s is not a tuple: %s", e.Variable, value)
		}
	}
	if e.Index < 0 || e.Index >= len(tuple.Elements) {
		return nil, model.NewRuntimeError("index %d out of range for tuple %s = %s", e.Index, e.Variable, tuple)
	}
	return p.Populate(tuple.Elements[e.Index], vars)
}
