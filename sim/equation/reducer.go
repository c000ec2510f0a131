// Package equation rewrites populated expressions to normal form using the
// model's equations, and validates equation sets before a simulation starts.
package equation

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// maxRewrites bounds the number of rewrite steps for one expression.
// Non-terminating equation sets (e.g. f(x) = f(x)) hit this instead of
// hanging the simulation.
const maxRewrites = 10000

// reductionPoint is one place where an equation can rewrite an expression.
// path holds the argument (or tuple element) indexes leading from the root
// to the rewritten node; an empty path replaces the whole expression.
type reductionPoint struct {
	equation    *model.Equation
	path        []int
	replacement model.Expression
}

func (p *reductionPoint) sameSite(other *reductionPoint) bool {
	if len(p.path) != len(other.path) {
		return false
	}
	for i := range p.path {
		if p.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// encloses reports whether other lies strictly inside the subtree rewritten by p.
func (p *reductionPoint) encloses(other *reductionPoint) bool {
	if len(p.path) >= len(other.path) {
		return false
	}
	for i := range p.path {
		if p.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// apply returns a rewritten copy of expr; expr itself is not modified.
func (p *reductionPoint) apply(expr model.Expression) model.Expression {
	if len(p.path) == 0 {
		return p.replacement.Clone()
	}
	root := expr.Clone()
	node := root
	for _, idx := range p.path[:len(p.path)-1] {
		node = children(node)[idx]
	}
	children(node)[p.path[len(p.path)-1]] = p.replacement.Clone()
	return root
}

func children(e model.Expression) []model.Expression {
	switch x := e.(type) {
	case *model.CallFunction:
		return x.Args
	case *model.Tuple:
		return x.Elements
	default:
		return nil
	}
}

type cacheEntry struct {
	expr    model.Expression
	reduced model.Expression
}

// Reducer rewrites expressions to normal form. Results are memoized per
// structural fingerprint; a Reducer belongs to one simulation run and is not
// safe for concurrent use.
type Reducer struct {
	equations []*model.Equation
	cache     map[uint64][]cacheEntry
}

// NewReducer creates a Reducer over a fixed equation set.
func NewReducer(equations []*model.Equation) *Reducer {
	return &Reducer{
		equations: equations,
		cache:     make(map[uint64][]cacheEntry),
	}
}

// Reduce returns the normal form of expr. Before every rewrite all candidate
// rewrites are checked against each other; if applying one of them destroys
// a rewrite that another equation offered at the same or an enclosing site,
// an *model.AmbiguityError is returned.
func (r *Reducer) Reduce(expr model.Expression) (model.Expression, error) {
	key := model.Fingerprint(expr)
	for _, entry := range r.cache[key] {
		if identical(entry.expr, expr) {
			return entry.reduced.Clone(), nil
		}
	}

	current := expr.Clone()
	points := r.reductionPoints(current)
	for steps := 0; len(points) > 0; steps++ {
		if steps >= maxRewrites {
			return nil, model.NewRuntimeError("reduction of %s did not terminate after %d rewrites", expr, maxRewrites)
		}
		for _, candidate := range points {
			if err := r.checkAmbiguity(current, candidate, points); err != nil {
				return nil, err
			}
		}
		logrus.Tracef("reducing %s with '%s'", current, points[0].equation)
		current = points[0].apply(current)
		points = r.reductionPoints(current)
	}

	r.cache[key] = append(r.cache[key], cacheEntry{expr: expr.Clone(), reduced: current.Clone()})
	return current, nil
}

// identical is model.Equals that also compares qop arguments. Cached normal
// forms carry the qop tags of the call they were computed for.
func identical(a, b model.Expression) bool {
	if !model.Equals(a, b) {
		return false
	}
	switch x := a.(type) {
	case *model.CallFunction:
		y := b.(*model.CallFunction)
		if !slices.Equal(x.QopArgs, y.QopArgs) {
			return false
		}
		return identicalLists(x.Args, y.Args)
	case *model.Tuple:
		return identicalLists(x.Elements, b.(*model.Tuple).Elements)
	case *model.Comparison:
		y := b.(*model.Comparison)
		return identical(x.Left, y.Left) && identical(x.Right, y.Right)
	}
	return true
}

func identicalLists(a, b []model.Expression) bool {
	for i := range a {
		if !identical(a[i], b[i]) {
			return false
		}
	}
	return true
}

// checkAmbiguity tentatively applies candidate and verifies that every other
// original rewrite survives. Rewrites strictly inside the candidate's site are
// consumed by it and are not checked; confluence of such nested rewrites is
// not verified.
func (r *Reducer) checkAmbiguity(expr model.Expression, candidate *reductionPoint, points []*reductionPoint) error {
	rewritten := candidate.apply(expr)
	after := r.reductionPoints(rewritten)
	for _, other := range points {
		if other == candidate || candidate.encloses(other) {
			continue
		}
		if other.sameSite(candidate) {
			if !model.Equals(other.replacement, candidate.replacement) {
				return &model.AmbiguityError{Expr: expr, First: candidate.equation, Second: other.equation}
			}
			continue
		}
		found := false
		for _, p := range after {
			if p.equation == other.equation && p.sameSite(other) {
				found = true
				break
			}
		}
		if !found {
			return &model.AmbiguityError{Expr: expr, First: candidate.equation, Second: other.equation}
		}
	}
	return nil
}

// reductionPoints lists every rewrite available in expr, ordered by equation
// and then by pre-order position.
func (r *Reducer) reductionPoints(expr model.Expression) []*reductionPoint {
	var points []*reductionPoint
	for _, eq := range r.equations {
		points = findReductionPoints(eq, expr, nil, points)
	}
	return points
}

func findReductionPoints(eq *model.Equation, expr model.Expression, path []int, acc []*reductionPoint) []*reductionPoint {
	bindings := make(map[string]model.Expression)
	if canReduce(expr, eq.Composite, bindings) {
		acc = append(acc, &reductionPoint{
			equation:    eq,
			path:        append([]int(nil), path...),
			replacement: substitute(eq.Simple, bindings),
		})
	}
	for idx, child := range children(expr) {
		acc = findReductionPoints(eq, child, append(path, idx), acc)
	}
	return acc
}

// canReduce matches candidate against pattern. Identifiers in pattern bind on
// first occurrence and must match structurally equal subterms afterwards.
func canReduce(candidate, pattern model.Expression, bindings map[string]model.Expression) bool {
	switch p := pattern.(type) {
	case *model.Identifier:
		if bound, ok := bindings[p.Name]; ok {
			return model.Equals(bound, candidate)
		}
		bindings[p.Name] = candidate
		return true
	case *model.Boolean:
		c, ok := candidate.(*model.Boolean)
		return ok && c.Value == p.Value
	case *model.CallFunction:
		c, ok := candidate.(*model.CallFunction)
		if !ok || c.Name != p.Name || len(c.Args) != len(p.Args) {
			return false
		}
		for i := range p.Args {
			if !canReduce(c.Args[i], p.Args[i], bindings) {
				return false
			}
		}
		return true
	case *model.Tuple:
		c, ok := candidate.(*model.Tuple)
		if !ok || len(c.Elements) != len(p.Elements) {
			return false
		}
		for i := range p.Elements {
			if !canReduce(c.Elements[i], p.Elements[i], bindings) {
				return false
			}
		}
		return true
	case *model.TupleElement, *model.Comparison:
		return false
	default:
		panic(fmt.Sprintf("canReduce: unhandled pattern %T", pattern))
	}
}

// substitute replaces bound identifiers of simple with clones of their
// bindings. Unbound identifiers are kept verbatim.
func substitute(simple model.Expression, bindings map[string]model.Expression) model.Expression {
	switch s := simple.(type) {
	case *model.Identifier:
		if bound, ok := bindings[s.Name]; ok {
			return bound.Clone()
		}
		return s.Clone()
	case *model.CallFunction:
		out := s.Clone().(*model.CallFunction)
		for i, a := range s.Args {
			out.Args[i] = substitute(a, bindings)
		}
		return out
	case *model.Tuple:
		out := &model.Tuple{Elements: make([]model.Expression, len(s.Elements))}
		for i, a := range s.Elements {
			out.Elements[i] = substitute(a, bindings)
		}
		return out
	default:
		return simple.Clone()
	}
}
