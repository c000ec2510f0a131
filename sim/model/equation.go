package model

import "fmt"

// Equation is a directed rewrite rule: Composite reduces to Simple.
// Identifiers inside Composite are placeholders bound during matching.
type Equation struct {
	Simple    Expression
	Composite Expression
}

func (e *Equation) String() string {
	return fmt.Sprintf("%s = %s", e.Composite, e.Simple)
}

// Function declares a function symbol usable in expressions.
type Function struct {
	Name  string
	Arity int
	// QopParams documents the metadata tags the function accepts, e.g.
	// ["algorithm", "key_size"]. Informational only.
	QopParams []string
}
