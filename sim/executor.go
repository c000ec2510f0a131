package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// InstructionExecutor is one member of the executor chain.
type InstructionExecutor interface {
	// CanExecute reports whether the member takes part in executing instr.
	CanExecute(instr model.Instruction) bool
	Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error)
}

// hookExecutor runs the hooks of one lifecycle point as a chain member.
type hookExecutor struct {
	hooks    *Hooks
	hookType HookType
}

func (e *hookExecutor) CanExecute(model.Instruction) bool { return true }

func (e *hookExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	return e.hooks.Run(e.hookType, ctx, step)
}

// Executor runs instructions through a fixed chain: pre-instruction hooks,
// one core handler per instruction kind, post-instruction hooks.
type Executor struct {
	chain []InstructionExecutor
}

// NewExecutor builds the chain. hooks may be nil.
func NewExecutor(hooks *Hooks) *Executor {
	if hooks == nil {
		hooks = NewHooks()
	}
	chain := []InstructionExecutor{&hookExecutor{hooks: hooks, hookType: HookPreInstructionExecution}}
	chain = append(chain, coreExecutors()...)
	chain = append(chain, &hookExecutor{hooks: hooks, hookType: HookPostInstructionExecution})
	return &Executor{chain: chain}
}

// ExecuteInstruction passes step through the chain and merges the results.
func (e *Executor) ExecuteInstruction(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	var result ExecutionResult
	handled := false
	for _, member := range e.chain {
		if !member.CanExecute(step.Instruction) {
			continue
		}
		if _, isHook := member.(*hookExecutor); !isHook {
			handled = true
		}
		r, err := member.Execute(ctx, step)
		if err != nil {
			return result, err
		}
		result = result.merge(r)
		step.Result = result
		if r.FinishInstructionExecution {
			return result, nil
		}
	}
	if !handled {
		panic(fmt.Sprintf("Executor: no handler for instruction %T", step.Instruction))
	}
	return result, nil
}

// Execute gives the current host of ctx one turn: instructions of its current
// context run until one consumes CPU, the context finishes or the host stops.
// Then the host's scheduler moves to its next context.
func (e *Executor) Execute(ctx *Context, stepNo int64) error {
	host := ctx.CurrentHost()
	if host == nil || host.Finished() {
		return nil
	}
	ictx := host.CurrentInstructionsContext()
	for ictx != nil && !ictx.Finished() && !host.Finished() {
		step := &InstructionStep{
			Step:        stepNo,
			Host:        host,
			Context:     ictx,
			Instruction: ictx.CurrentInstruction(),
			Process:     ictx.CurrentProcess(),
			Values:      make(map[string]any),
		}
		logrus.Tracef("[step %07d] %s executes '%s'", stepNo, host, step.Instruction)
		result, err := e.ExecuteInstruction(ctx, step)
		if err != nil {
			host.FinishFailed(err.Error())
			return fmt.Errorf("host %s, instruction '%s': %w", host, step.Instruction, err)
		}
		if result.Cursor == CursorAdvance {
			ictx.GotoNextInstruction()
		}
		if result.ConsumesCPU {
			break
		}
	}
	if !host.Finished() {
		host.GotoNextInstructionsContext()
	}
	return nil
}
