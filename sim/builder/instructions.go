package builder

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// hostTemplate is a host declaration converted to model instructions. It is
// never executed; every repetition gets a deep clone.
type hostTemplate struct {
	spec         *HostSpec
	instructions []model.Instruction
	// processChannels lists the channels each process connects to.
	processChannels map[string][]string
}

func (t *hostTemplate) processNames() []string {
	var names []string
	for _, instr := range t.instructions {
		if p, ok := instr.(*model.Process); ok {
			names = append(names, p.Name)
		}
	}
	return names
}

// convertHost converts the instruction nodes of spec. Problems are collected,
// not returned on the first one.
func convertHost(spec *HostSpec) (*hostTemplate, error) {
	t := &hostTemplate{spec: spec, processChannels: make(map[string][]string)}
	var errs error
	for _, node := range spec.Instructions {
		if node.Process == "" {
			instr, err := convertInstruction(node, false)
			errs = multierr.Append(errs, err)
			if instr != nil {
				t.instructions = append(t.instructions, instr)
			}
			continue
		}
		if _, dup := t.processChannels[node.Process]; dup {
			errs = multierr.Append(errs, fmt.Errorf("line %d: process %s declared twice", node.Line, node.Process))
			continue
		}
		body, err := convertList(node.Body, true)
		errs = multierr.Append(errs, err)
		t.processChannels[node.Process] = node.Channels
		t.instructions = append(t.instructions, &model.Process{Name: node.Process, Body: body})
	}
	if errs != nil {
		return nil, prefixErrors("host "+spec.Name, errs)
	}
	return t, nil
}

func convertList(nodes []InstructionSpec, inProcess bool) ([]model.Instruction, error) {
	var out []model.Instruction
	var errs error
	for _, node := range nodes {
		instr, err := convertInstruction(node, inProcess)
		errs = multierr.Append(errs, err)
		if instr != nil {
			out = append(out, instr)
		}
	}
	return out, errs
}

func convertInstruction(node InstructionSpec, inProcess bool) (model.Instruction, error) {
	switch {
	case node.Process != "":
		return nil, fmt.Errorf("line %d: process %s must be declared at host level", node.Line, node.Process)
	case node.If != "":
		cond, err := ParseExpression(node.If)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		then, err1 := convertList(node.Then, inProcess)
		els, err2 := convertList(node.Else, inProcess)
		if err := multierr.Combine(err1, err2); err != nil {
			return nil, err
		}
		return &model.If{Cond: cond, Then: then, Else: els}, nil
	case node.While != "":
		cond, err := ParseExpression(node.While)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		body, err := convertList(node.Do, inProcess)
		if err != nil {
			return nil, err
		}
		return &model.While{Cond: cond, Body: body}, nil
	case node.Subprocess != "":
		if !inProcess {
			return nil, fmt.Errorf("line %d: subprocess %s must be inside a process", node.Line, node.Subprocess)
		}
		body, err := convertList(node.Body, inProcess)
		if err != nil {
			return nil, err
		}
		return &model.Subprocess{Name: node.Subprocess, Body: body}, nil
	}
	instr, err := ParseStatement(node.Statement)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return instr, nil
}

// prefixErrors prefixes every error combined in errs.
func prefixErrors(prefix string, errs error) error {
	var out error
	for _, err := range multierr.Errors(errs) {
		out = multierr.Append(out, fmt.Errorf("%s: %w", prefix, err))
	}
	return out
}

// walkInstructions calls fn on every instruction of list, depth first.
func walkInstructions(list []model.Instruction, fn func(model.Instruction)) {
	for _, instr := range list {
		fn(instr)
		switch i := instr.(type) {
		case *model.If:
			walkInstructions(i.Then, fn)
			walkInstructions(i.Else, fn)
		case *model.While:
			walkInstructions(i.Body, fn)
		case *model.Process:
			walkInstructions(i.Body, fn)
		case *model.Subprocess:
			walkInstructions(i.Body, fn)
		}
	}
}

// instructionExpressions returns the expressions an instruction evaluates.
func instructionExpressions(instr model.Instruction) []model.Expression {
	switch i := instr.(type) {
	case *model.Assignment:
		return []model.Expression{i.Expr}
	case *model.Call:
		return []model.Expression{i.Function}
	case *model.If:
		return []model.Expression{i.Cond}
	case *model.While:
		return []model.Expression{i.Cond}
	case *model.Communication:
		var out []model.Expression
		for _, f := range i.Filters {
			if !f.Any {
				out = append(out, f.Expr)
			}
		}
		return out
	}
	return nil
}

// checkCalls reports calls to undeclared functions or with a wrong number of
// arguments.
func checkCalls(e model.Expression, functions map[string]*model.Function) error {
	var errs error
	switch x := e.(type) {
	case *model.CallFunction:
		fn, ok := functions[x.Name]
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("function %s is not declared", x.Name))
		case fn.Arity != len(x.Args):
			errs = multierr.Append(errs, fmt.Errorf("function %s takes %d argument(s), %s has %d", x.Name, fn.Arity, x, len(x.Args)))
		}
		for _, a := range x.Args {
			errs = multierr.Append(errs, checkCalls(a, functions))
		}
	case *model.Tuple:
		for _, el := range x.Elements {
			errs = multierr.Append(errs, checkCalls(el, functions))
		}
	case *model.Comparison:
		errs = multierr.Append(errs, checkCalls(x.Left, functions))
		errs = multierr.Append(errs, checkCalls(x.Right, functions))
	}
	return errs
}

// keepSubprocesses returns list without the subprocesses missing from keep.
// The list is modified in place; callers pass clones.
func keepSubprocesses(list []model.Instruction, keep map[string]bool) []model.Instruction {
	out := list[:0]
	for _, instr := range list {
		switch i := instr.(type) {
		case *model.Subprocess:
			if !keep[i.Name] {
				continue
			}
			i.Body = keepSubprocesses(i.Body, keep)
		case *model.If:
			i.Then = keepSubprocesses(i.Then, keep)
			i.Else = keepSubprocesses(i.Else, keep)
		case *model.While:
			i.Body = keepSubprocesses(i.Body, keep)
		}
		out = append(out, instr)
	}
	return out
}
