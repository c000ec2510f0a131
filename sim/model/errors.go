package model

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrInfiniteLoop is returned by a simulation step when no host made progress
// during a whole epoch while undeliverable messages were dropped.
var ErrInfiniteLoop = errors.New("infinite loop detected")

// RuntimeError reports a problem found while executing an instruction:
// unbound variable, bad tuple access, undefined channel, missing metric.
type RuntimeError struct {
	Msg string
}

// NewRuntimeError formats a RuntimeError.
func NewRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string { return e.Msg }

// AmbiguityError reports that two equations rewrite the same expression to
// different results.
type AmbiguityError struct {
	Expr   Expression
	First  *Equation
	Second *Equation
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("equations '%s' and '%s' are ambiguous for expression: %s",
		e.First, e.Second, e.Expr)
}

// EnvironmentError aggregates every structural problem found while building
// a model. It is never raised with a partial list.
type EnvironmentError struct {
	err error
}

// NewEnvironmentError wraps errors combined with multierr. Returns nil if err is nil.
func NewEnvironmentError(err error) error {
	if err == nil {
		return nil
	}
	return &EnvironmentError{err: err}
}

// Errors lists every individual problem.
func (e *EnvironmentError) Errors() []error { return multierr.Errors(e.err) }

func (e *EnvironmentError) Unwrap() []error { return e.Errors() }

func (e *EnvironmentError) Error() string {
	errs := e.Errors()
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = " - " + err.Error()
	}
	return fmt.Sprintf("%d environment definition error(s):\n%s", len(errs), strings.Join(lines, "\n"))
}
