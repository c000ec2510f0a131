package model

import (
	"fmt"
	"strings"
)

// Instruction is a statement of the modeling language.
// Implementations: *Assignment, *Call, *Communication, *If, *While,
// *Continue, *Break, *Finish, *Process, *Subprocess.
//
// Instruction values are compared by pointer identity at runtime (a pending
// channel request remembers the exact instruction that issued it), which is
// why every host repetition receives its own cloned tree.
type Instruction interface {
	Clone() Instruction
	String() string
	isInstruction()
}

// Assignment stores the reduced value of Expr in Variable.
type Assignment struct {
	Variable string
	Expr     Expression
}

// Call is a bare function call statement, e.g. `sign(m, sk)[RSA,2048];`.
type Call struct {
	Function *CallFunction
}

// Direction of a communication instruction.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Filter restricts which messages an `in` instruction accepts. Any matches
// everything; otherwise Expr is compared structurally after population.
type Filter struct {
	Any  bool
	Expr Expression
}

func (f Filter) String() string {
	if f.Any {
		return "*"
	}
	return f.Expr.String()
}

// Communication sends (Out) or receives (In) on the channel named Channel.
// For Out, Variables are the names whose values are sent, one message each.
// For In, Variables receive one message each.
type Communication struct {
	Direction Direction
	Channel   string
	Variables []string
	Filters   []Filter
}

// If executes Then when Cond holds and Else otherwise.
type If struct {
	Cond Expression
	Then []Instruction
	Else []Instruction
}

// While executes Body as long as Cond holds.
type While struct {
	Cond Expression
	Body []Instruction
}

// Continue jumps back to the condition of the innermost enclosing While.
type Continue struct{}

// Break leaves the innermost enclosing While.
type Break struct{}

// FinishCommand selects the flavor of a Finish instruction.
type FinishCommand string

const (
	// FinishEnd halts the whole simulation successfully.
	FinishEnd FinishCommand = "end"
	// FinishStop fails the executing host and every other host.
	FinishStop FinishCommand = "stop"
)

// Finish terminates the simulation.
type Finish struct {
	Command FinishCommand
}

// Process is a named, independently schedulable instruction scope.
type Process struct {
	Name string
	Body []Instruction
}

// Subprocess is a named scope nested inside a process.
type Subprocess struct {
	Name string
	Body []Instruction
}

func (*Assignment) isInstruction()    {}
func (*Call) isInstruction()          {}
func (*Communication) isInstruction() {}
func (*If) isInstruction()            {}
func (*While) isInstruction()         {}
func (*Continue) isInstruction()      {}
func (*Break) isInstruction()         {}
func (*Finish) isInstruction()        {}
func (*Process) isInstruction()       {}
func (*Subprocess) isInstruction()    {}

func (i *Assignment) Clone() Instruction {
	return &Assignment{Variable: i.Variable, Expr: i.Expr.Clone()}
}

func (i *Call) Clone() Instruction {
	return &Call{Function: i.Function.Clone().(*CallFunction)}
}

func (i *Communication) Clone() Instruction {
	filters := make([]Filter, len(i.Filters))
	for k, f := range i.Filters {
		filters[k] = Filter{Any: f.Any}
		if f.Expr != nil {
			filters[k].Expr = f.Expr.Clone()
		}
	}
	return &Communication{
		Direction: i.Direction,
		Channel:   i.Channel,
		Variables: append([]string(nil), i.Variables...),
		Filters:   filters,
	}
}

func (i *If) Clone() Instruction {
	return &If{Cond: i.Cond.Clone(), Then: CloneInstructions(i.Then), Else: CloneInstructions(i.Else)}
}

func (i *While) Clone() Instruction {
	return &While{Cond: i.Cond.Clone(), Body: CloneInstructions(i.Body)}
}

func (*Continue) Clone() Instruction { return &Continue{} }

func (*Break) Clone() Instruction { return &Break{} }

func (i *Finish) Clone() Instruction { return &Finish{Command: i.Command} }

func (i *Process) Clone() Instruction {
	return &Process{Name: i.Name, Body: CloneInstructions(i.Body)}
}

func (i *Subprocess) Clone() Instruction {
	return &Subprocess{Name: i.Name, Body: CloneInstructions(i.Body)}
}

// CloneInstructions deep-copies an instruction list.
func CloneInstructions(list []Instruction) []Instruction {
	if list == nil {
		return nil
	}
	out := make([]Instruction, len(list))
	for k, i := range list {
		out[k] = i.Clone()
	}
	return out
}

func (i *Assignment) String() string { return fmt.Sprintf("%s = %s", i.Variable, i.Expr) }

func (i *Call) String() string { return i.Function.String() }

func (i *Communication) String() string {
	s := fmt.Sprintf("%s(%s: %s", i.Direction, i.Channel, strings.Join(i.Variables, ","))
	if len(i.Filters) > 0 {
		parts := make([]string, len(i.Filters))
		for k, f := range i.Filters {
			parts[k] = f.String()
		}
		s += "|" + strings.Join(parts, ",")
	}
	return s + ")"
}

func (i *If) String() string { return fmt.Sprintf("if (%s)", i.Cond) }

func (i *While) String() string { return fmt.Sprintf("while (%s)", i.Cond) }

func (*Continue) String() string { return "continue" }

func (*Break) String() string { return "break" }

func (i *Finish) String() string { return string(i.Command) }

func (i *Process) String() string { return "process " + i.Name }

func (i *Subprocess) String() string { return "subprocess " + i.Name }
