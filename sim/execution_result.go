package sim

import "github.com/QoPMLProject/AQoPA-sub000/sim/model"

// CursorAction tells the executor who moves the instruction cursor after an
// instruction ran.
type CursorAction int

const (
	// CursorAdvance lets the executor call GotoNextInstruction.
	CursorAdvance CursorAction = iota
	// CursorSuspend keeps the cursor on the instruction; something else (a
	// channel delivery) will advance it later.
	CursorSuspend
	// CursorHandled means the handler already moved the cursor itself.
	CursorHandled
)

func (a CursorAction) String() string {
	switch a {
	case CursorAdvance:
		return "advance"
	case CursorSuspend:
		return "suspend"
	case CursorHandled:
		return "handled"
	default:
		return "unknown"
	}
}

// ExecutionResult describes the effect of one chain member on the current
// instruction.
type ExecutionResult struct {
	// ConsumesCPU ends the host's turn after this instruction.
	ConsumesCPU bool
	// Cursor selects who advances the instruction cursor.
	Cursor CursorAction
	// FinishInstructionExecution stops the remaining chain members.
	FinishInstructionExecution bool
}

// merge folds other into r: flags OR together, and a non-advancing cursor
// action wins over CursorAdvance.
func (r ExecutionResult) merge(other ExecutionResult) ExecutionResult {
	r.ConsumesCPU = r.ConsumesCPU || other.ConsumesCPU
	r.FinishInstructionExecution = r.FinishInstructionExecution || other.FinishInstructionExecution
	if other.Cursor > r.Cursor {
		r.Cursor = other.Cursor
	}
	return r
}

// InstructionStep carries the state shared by every chain member while one
// instruction executes. Hooks may pre-build the channel message or request so
// the core handler reuses it.
type InstructionStep struct {
	Step        int64
	Host        *Host
	Context     *InstructionsContext
	Instruction model.Instruction
	Process     *model.Process

	// Messages are the messages of an `out` instruction, built once.
	Messages []*ChannelMessage
	// Request is the request of an `in` instruction, built once.
	Request *ChannelMessageRequest
	// Result is the merged result of the chain members that already ran.
	Result ExecutionResult
	// Values is free-form data passed between hooks.
	Values map[string]any
}
