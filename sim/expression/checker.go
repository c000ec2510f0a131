package expression

import (
	"github.com/QoPMLProject/AQoPA-sub000/sim/equation"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Checker evaluates conditions of if and while instructions.
type Checker struct {
	populator *Populator
	reducer   *equation.Reducer
}

// NewChecker creates a Checker sharing the populator's reducer.
func NewChecker(populator *Populator, reducer *equation.Reducer) *Checker {
	return &Checker{populator: populator, reducer: reducer}
}

// PopulateAndReduce substitutes variables into expr and rewrites the result
// to normal form.
func (c *Checker) PopulateAndReduce(expr model.Expression, vars Variables) (model.Expression, error) {
	populated, err := c.populator.Populate(expr, vars)
	if err != nil {
		return nil, err
	}
	return c.reducer.Reduce(populated)
}

// Result evaluates condition. Booleans yield their literal value; comparisons
// populate and reduce both sides and compare them structurally. Any other
// expression is false.
func (c *Checker) Result(condition model.Expression, vars Variables) (bool, error) {
	switch cond := condition.(type) {
	case *model.Boolean:
		return cond.Value, nil
	case *model.Comparison:
		left, err := c.PopulateAndReduce(cond.Left, vars)
		if err != nil {
			return false, err
		}
		right, err := c.PopulateAndReduce(cond.Right, vars)
		if err != nil {
			return false, err
		}
		equal := AreEqual(left, right)
		if cond.Kind == model.NotEqual {
			return !equal, nil
		}
		return equal, nil
	default:
		return false, nil
	}
}

// AreEqual compares two reduced expressions structurally.
func AreEqual(left, right model.Expression) bool {
	return model.Equals(left, right)
}
