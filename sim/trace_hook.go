package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/trace"
)

// InstructionKind names the variant of instr as it appears in traces.
func InstructionKind(instr model.Instruction) string {
	switch i := instr.(type) {
	case *model.Assignment:
		return "assignment"
	case *model.Call:
		return "call"
	case *model.Communication:
		return i.Direction.String()
	case *model.If:
		return "if"
	case *model.While:
		return "while"
	case *model.Continue:
		return "continue"
	case *model.Break:
		return "break"
	case *model.Finish:
		return string(i.Command)
	case *model.Process:
		return "process"
	case *model.Subprocess:
		return "subprocess"
	default:
		panic("InstructionKind: unknown instruction type")
	}
}

// AttachTrace registers the hooks that fill t. Does nothing when t is nil or
// its level is none.
func AttachTrace(s *Simulator, t *trace.ExecutionTrace) {
	if t == nil {
		return
	}
	if t.RecordsEpochs() {
		s.RegisterHook(HookPreHostListExecution, HookFunc(func(ctx *Context, _ *InstructionStep) (ExecutionResult, error) {
			t.RecordEpoch(epochRecord(ctx, len(t.Epochs)))
			return ExecutionResult{}, nil
		}))
	}
	if t.RecordsInstructions() {
		s.RegisterHook(HookPostInstructionExecution, HookFunc(func(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
			t.RecordInstruction(instructionRecord(ctx, step, t.Config.CostParam))
			return ExecutionResult{}, nil
		}))
	}
}

func epochRecord(ctx *Context, index int) trace.EpochRecord {
	r := trace.EpochRecord{Index: index}
	for _, h := range ctx.Hosts {
		switch h.Status() {
		case HostRunning:
			r.RunningHosts++
		case HostFinished:
			r.FinishedHosts++
		case HostFailed:
			r.FailedHosts++
		}
	}
	for _, n := range ctx.Channels.DroppedMessages() {
		r.DroppedMessages += n
	}
	return r
}

func instructionRecord(ctx *Context, step *InstructionStep, costParam string) trace.InstructionRecord {
	r := trace.InstructionRecord{
		Step:        step.Step,
		Host:        step.Host.Name(),
		Kind:        InstructionKind(step.Instruction),
		Instruction: step.Instruction.String(),
		ConsumesCPU: step.Result.ConsumesCPU,
		Cursor:      step.Result.Cursor.String(),
	}
	if step.Process != nil {
		r.Process = step.Process.Name
	}
	if len(step.Messages) > 0 {
		r.Size, r.HasSize = sentSize(ctx, step)
	}
	if costParam == "" {
		return r
	}
	call, ok := step.Values["call"].(*model.CallFunction)
	if !ok || !ctx.Metrics.HasPrimitive(step.Host.Name(), call) {
		return r
	}
	primitive, err := ctx.Metrics.FindPrimitive(step.Host.Name(), call)
	if err != nil {
		logrus.Debugf("[step %07d] no metric for %s: %v", step.Step, call, err)
		return r
	}
	cost, found, err := primitive.Param(costParam)
	if err != nil {
		logrus.Warnf("[step %07d] metric %s of %s: %v", step.Step, costParam, call, err)
		return r
	}
	r.Cost, r.HasCost = cost, found
	return r
}

// sentSize sums the metric sizes of the messages built by an `out` step.
func sentSize(ctx *Context, step *InstructionStep) (float64, bool) {
	total := 0.0
	for _, msg := range step.Messages {
		size, err := ctx.Metrics.ExpressionSize(msg.Expression, step.Host.Name())
		if err != nil {
			logrus.Debugf("[step %07d] no size for %s: %v", step.Step, msg.Expression, err)
			return 0, false
		}
		total += size
	}
	return total, true
}
