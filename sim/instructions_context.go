package sim

import (
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// InstructionsList is one scope of nested instructions with its own cursor.
type InstructionsList struct {
	instructions []model.Instruction
	index        int
	// process owns the list; nil for lists pushed by if/while/subprocess,
	// which inherit the process of the list below them.
	process *model.Process
}

// CurrentInstruction returns the instruction under the cursor.
func (l *InstructionsList) CurrentInstruction() model.Instruction {
	return l.instructions[l.index]
}

// GotoNextInstruction moves the cursor forward by one.
func (l *InstructionsList) GotoNextInstruction() { l.index++ }

// Finished reports whether the cursor ran past the last instruction.
func (l *InstructionsList) Finished() bool { return l.index >= len(l.instructions) }

// InstructionsContext is a stack of instruction lists: the process body at the
// bottom, then the bodies of every if/while/subprocess being executed.
// The stack is never empty while the context is not finished.
type InstructionsContext struct {
	host  *Host
	stack []*InstructionsList
}

// NewInstructionsContext creates an empty context for host.
func NewInstructionsContext(host *Host) *InstructionsContext {
	return &InstructionsContext{host: host}
}

// Host returns the host executing this context.
func (c *InstructionsContext) Host() *Host { return c.host }

// AddInstructionsList pushes a new scope. process is non-nil when entering a
// process body.
func (c *InstructionsContext) AddInstructionsList(instructions []model.Instruction, process *model.Process) {
	c.stack = append(c.stack, &InstructionsList{instructions: instructions, process: process})
}

// Depth returns the number of scopes on the stack.
func (c *InstructionsContext) Depth() int { return len(c.stack) }

func (c *InstructionsContext) top() *InstructionsList {
	return c.stack[len(c.stack)-1]
}

// CurrentInstructionsList returns the innermost scope.
func (c *InstructionsContext) CurrentInstructionsList() *InstructionsList {
	if len(c.stack) == 0 {
		return nil
	}
	return c.top()
}

// CurrentInstruction returns the instruction to execute next. Must not be
// called on a finished context.
func (c *InstructionsContext) CurrentInstruction() model.Instruction {
	return c.top().CurrentInstruction()
}

// CurrentProcess returns the process owning the innermost scope, or nil for
// host-level instructions.
func (c *InstructionsContext) CurrentProcess() *model.Process {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].process != nil {
			return c.stack[i].process
		}
	}
	return nil
}

// Finished reports whether there is nothing left to execute.
func (c *InstructionsContext) Finished() bool {
	if len(c.stack) == 0 {
		return true
	}
	return len(c.stack) == 1 && c.stack[0].Finished()
}

// GotoNextInstruction advances the innermost cursor and unwinds exhausted
// scopes. When a scope is popped, the instruction that pushed it is skipped,
// except a While, which stays current so its condition is evaluated again.
func (c *InstructionsContext) GotoNextInstruction() {
	list := c.top()
	list.GotoNextInstruction()
	for !c.Finished() && list.Finished() {
		c.stack = c.stack[:len(c.stack)-1]
		list = c.top()
		if c.Finished() {
			break
		}
		if _, isWhile := list.CurrentInstruction().(*model.While); !isWhile {
			list.GotoNextInstruction()
		}
	}
}

// hasEnclosingLoop reports whether some scope is currently parked on a While.
func (c *InstructionsContext) hasEnclosingLoop() bool {
	for i := len(c.stack) - 1; i >= 0; i-- {
		l := c.stack[i]
		if l.Finished() {
			continue
		}
		if _, ok := l.CurrentInstruction().(*model.While); ok {
			return true
		}
	}
	return false
}

// UnwindToLoop pops scopes until the innermost scope's current instruction is
// a While. Returns false, leaving the stack untouched, if there is no
// enclosing loop.
func (c *InstructionsContext) UnwindToLoop() bool {
	if !c.hasEnclosingLoop() {
		return false
	}
	for {
		list := c.top()
		if !list.Finished() {
			if _, ok := list.CurrentInstruction().(*model.While); ok {
				return true
			}
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
}
