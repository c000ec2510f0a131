package sim

import (
	"fmt"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// coreExecutors returns one handler per instruction kind.
func coreExecutors() []InstructionExecutor {
	return []InstructionExecutor{
		&assignmentExecutor{},
		&callExecutor{},
		&communicationExecutor{},
		&ifExecutor{},
		&whileExecutor{},
		&continueExecutor{},
		&breakExecutor{},
		&finishExecutor{},
		&processExecutor{},
		&subprocessExecutor{},
	}
}

type assignmentExecutor struct{}

func (*assignmentExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Assignment)
	return ok
}

func (*assignmentExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Assignment)
	value, err := ctx.Evaluate(step.Host, instr.Expr)
	if err != nil {
		return ExecutionResult{}, err
	}
	if call, ok := instr.Expr.(*model.CallFunction); ok {
		populated, err := ctx.Populator.Populate(call, step.Host)
		if err != nil {
			return ExecutionResult{}, err
		}
		step.Values["call"] = populated
	}
	step.Host.SetVariable(instr.Variable, value)
	step.Host.MarkChanged()
	return ExecutionResult{ConsumesCPU: true}, nil
}

// callExecutor runs a bare function call. The populated call is left in
// step.Values["call"] for post-instruction hooks.
type callExecutor struct{}

func (*callExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Call)
	return ok
}

func (*callExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Call)
	populated, err := ctx.Populator.Populate(instr.Function, step.Host)
	if err != nil {
		return ExecutionResult{}, err
	}
	step.Values["call"] = populated
	step.Host.MarkChanged()
	return ExecutionResult{ConsumesCPU: true}, nil
}

type communicationExecutor struct{}

func (*communicationExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Communication)
	return ok
}

func (e *communicationExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Communication)
	ch := ctx.Channels.FindChannel(step.Host, step.Process, instr.Channel)
	if ch == nil {
		return ExecutionResult{}, model.NewRuntimeError("channel %s undefined for host %s", instr.Channel, step.Host)
	}
	if instr.Direction == model.Out {
		return e.send(ctx, step, ch, instr)
	}
	return e.receive(ctx, step, ch, instr)
}

func (*communicationExecutor) send(ctx *Context, step *InstructionStep, ch *Channel,
	instr *model.Communication) (ExecutionResult, error) {
	if step.Messages == nil {
		for _, name := range instr.Variables {
			value, err := ctx.Evaluate(step.Host, &model.Identifier{Name: name})
			if err != nil {
				return ExecutionResult{}, err
			}
			step.Messages = append(step.Messages, NewChannelMessage(step.Host, value))
		}
	}
	step.Context.GotoNextInstruction()
	step.Host.MarkChanged()
	if err := ch.SendMessages(step.Host, step.Process, step.Messages); err != nil {
		return ExecutionResult{}, err
	}
	return ExecutionResult{ConsumesCPU: true, Cursor: CursorHandled}, nil
}

func (*communicationExecutor) receive(ctx *Context, step *InstructionStep, ch *Channel,
	instr *model.Communication) (ExecutionResult, error) {
	if step.Request == nil {
		req, err := NewChannelMessageRequest(step.Context, instr, ctx.Checker)
		if err != nil {
			return ExecutionResult{}, err
		}
		step.Request = req
	}
	if err := ch.WaitForMessage(step.Request, step.Process); err != nil {
		return ExecutionResult{}, err
	}
	return ExecutionResult{ConsumesCPU: true, Cursor: CursorSuspend}, nil
}

type ifExecutor struct{}

func (*ifExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.If)
	return ok
}

func (*ifExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.If)
	holds, err := ctx.Checker.Result(instr.Cond, step.Host)
	if err != nil {
		return ExecutionResult{}, err
	}
	branch := instr.Else
	if holds {
		branch = instr.Then
	}
	step.Host.MarkChanged()
	if len(branch) == 0 {
		return ExecutionResult{ConsumesCPU: true}, nil
	}
	step.Context.AddInstructionsList(branch, nil)
	return ExecutionResult{ConsumesCPU: true, Cursor: CursorHandled}, nil
}

// whileExecutor enters the loop body while the condition holds. An empty body
// with a true condition parks the cursor on the While without progress, which
// the simulator reports as an infinite loop.
type whileExecutor struct{}

func (*whileExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.While)
	return ok
}

func (*whileExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.While)
	holds, err := ctx.Checker.Result(instr.Cond, step.Host)
	if err != nil {
		return ExecutionResult{}, err
	}
	if !holds {
		step.Host.MarkChanged()
		return ExecutionResult{ConsumesCPU: true}, nil
	}
	if len(instr.Body) == 0 {
		return ExecutionResult{ConsumesCPU: true, Cursor: CursorSuspend}, nil
	}
	step.Context.AddInstructionsList(instr.Body, nil)
	step.Host.MarkChanged()
	return ExecutionResult{ConsumesCPU: true, Cursor: CursorHandled}, nil
}

type continueExecutor struct{}

func (*continueExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Continue)
	return ok
}

func (*continueExecutor) Execute(_ *Context, step *InstructionStep) (ExecutionResult, error) {
	if !step.Context.UnwindToLoop() {
		return ExecutionResult{}, model.NewRuntimeError("continue outside of a loop")
	}
	step.Host.MarkChanged()
	return ExecutionResult{Cursor: CursorHandled}, nil
}

type breakExecutor struct{}

func (*breakExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Break)
	return ok
}

func (*breakExecutor) Execute(_ *Context, step *InstructionStep) (ExecutionResult, error) {
	if !step.Context.UnwindToLoop() {
		return ExecutionResult{}, model.NewRuntimeError("break outside of a loop")
	}
	step.Context.GotoNextInstruction()
	step.Host.MarkChanged()
	return ExecutionResult{Cursor: CursorHandled}, nil
}

// finishExecutor halts the simulation: `end` finishes every host
// successfully, `stop` fails every host.
type finishExecutor struct{}

func (*finishExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Finish)
	return ok
}

func (*finishExecutor) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Finish)
	switch instr.Command {
	case model.FinishEnd:
		for _, h := range ctx.Hosts {
			if !h.Finished() {
				h.FinishSuccessfully()
			}
		}
	case model.FinishStop:
		step.Host.FinishFailed("Executed stop instruction")
		for _, h := range ctx.Hosts {
			if !h.Finished() {
				h.FinishFailed(fmt.Sprintf("Stopped by host %s", step.Host))
			}
		}
	default:
		return ExecutionResult{}, model.NewRuntimeError("unknown finish command %q", instr.Command)
	}
	return ExecutionResult{ConsumesCPU: true, Cursor: CursorHandled}, nil
}

type processExecutor struct{}

func (*processExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Process)
	return ok
}

func (*processExecutor) Execute(_ *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Process)
	step.Host.MarkChanged()
	if len(instr.Body) == 0 {
		return ExecutionResult{}, nil
	}
	step.Context.AddInstructionsList(instr.Body, instr)
	return ExecutionResult{Cursor: CursorHandled}, nil
}

type subprocessExecutor struct{}

func (*subprocessExecutor) CanExecute(instr model.Instruction) bool {
	_, ok := instr.(*model.Subprocess)
	return ok
}

func (*subprocessExecutor) Execute(_ *Context, step *InstructionStep) (ExecutionResult, error) {
	instr := step.Instruction.(*model.Subprocess)
	step.Host.MarkChanged()
	if len(instr.Body) == 0 {
		return ExecutionResult{}, nil
	}
	step.Context.AddInstructionsList(instr.Body, nil)
	return ExecutionResult{Cursor: CursorHandled}, nil
}
