package equation

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Validate checks an equation set against the declared functions and returns
// a *model.EnvironmentError listing every violation, or nil:
//   - every function used by an equation is declared with matching arity
//   - an identifier used as the simple side occurs inside the composite side
//   - no two equations share a composite pattern while rewriting it to
//     different simple sides
//
// The duplicate check compares composite patterns syntactically and pairwise
// only. Overlapping but differently shaped patterns (e.g. f(g(x)) and f(y))
// are not reported here; the Reducer detects them when they collide on a
// concrete expression.
func Validate(equations []*model.Equation, functions []*model.Function) error {
	declared := make(map[string]*model.Function, len(functions))
	for _, f := range functions {
		declared[f.Name] = f
	}

	var errs error
	for _, eq := range equations {
		if _, ok := eq.Composite.(*model.CallFunction); !ok {
			errs = multierr.Append(errs, fmt.Errorf("equation '%s': composite side must be a function call", eq))
		}
		errs = multierr.Append(errs, checkCalls(eq, eq.Composite, declared))
		errs = multierr.Append(errs, checkCalls(eq, eq.Simple, declared))
		if id, ok := eq.Simple.(*model.Identifier); ok && !model.ContainsIdentifier(eq.Composite, id.Name) {
			errs = multierr.Append(errs, fmt.Errorf(
				"equation '%s': identifier %s on the simple side does not occur in the composite side", eq, id.Name))
		}
	}

	for i := 0; i < len(equations); i++ {
		for j := i + 1; j < len(equations); j++ {
			a, b := equations[i], equations[j]
			if model.Equals(a.Composite, b.Composite) && !model.Equals(a.Simple, b.Simple) {
				errs = multierr.Append(errs, fmt.Errorf("equations '%s' and '%s' are ambiguous", a, b))
			}
		}
	}
	return model.NewEnvironmentError(errs)
}

func checkCalls(eq *model.Equation, e model.Expression, declared map[string]*model.Function) error {
	var errs error
	switch x := e.(type) {
	case *model.CallFunction:
		f, ok := declared[x.Name]
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("equation '%s': function %s is not declared", eq, x.Name))
		case f.Arity != len(x.Args):
			errs = multierr.Append(errs, fmt.Errorf("equation '%s': function %s takes %d argument(s), got %d",
				eq, x.Name, f.Arity, len(x.Args)))
		}
		for _, a := range x.Args {
			errs = multierr.Append(errs, checkCalls(eq, a, declared))
		}
	case *model.Tuple:
		for _, a := range x.Elements {
			errs = multierr.Append(errs, checkCalls(eq, a, declared))
		}
	}
	return errs
}
