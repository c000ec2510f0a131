package sim

import "fmt"

// HookType is a lifecycle point where analysis modules attach.
type HookType int

const (
	// HookPreHostListExecution runs at the start of every epoch.
	HookPreHostListExecution HookType = iota
	// HookPreInstructionExecution runs before the core handler of every instruction.
	HookPreInstructionExecution
	// HookPostInstructionExecution runs after the core handler of every instruction.
	HookPostInstructionExecution
	// HookSimulationFinished runs once when the simulation stops.
	HookSimulationFinished
)

func (t HookType) String() string {
	switch t {
	case HookPreHostListExecution:
		return "pre-host-list-execution"
	case HookPreInstructionExecution:
		return "pre-instruction-execution"
	case HookPostInstructionExecution:
		return "post-instruction-execution"
	case HookSimulationFinished:
		return "simulation-finished"
	default:
		return fmt.Sprintf("HookType(%d)", int(t))
	}
}

// Hook is attached to a lifecycle point. step is nil for
// HookPreHostListExecution and HookSimulationFinished; for instruction hooks
// the returned result is merged into the instruction's result exactly like a
// core handler's.
type Hook interface {
	Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error)
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx *Context, step *InstructionStep) (ExecutionResult, error)

func (f HookFunc) Execute(ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	return f(ctx, step)
}

// Hooks holds hooks per lifecycle point in registration order.
type Hooks struct {
	byType map[HookType][]Hook
}

// NewHooks creates an empty registry.
func NewHooks() *Hooks {
	return &Hooks{byType: make(map[HookType][]Hook)}
}

// Register appends h to the hooks of t.
func (hs *Hooks) Register(t HookType, h Hook) {
	if h == nil {
		panic("Hooks.Register: hook must not be nil")
	}
	hs.byType[t] = append(hs.byType[t], h)
}

// Get returns the hooks of t.
func (hs *Hooks) Get(t HookType) []Hook { return hs.byType[t] }

// Run executes every hook of t in order, merging results. A hook asking to
// finish the instruction execution stops the remaining hooks.
func (hs *Hooks) Run(t HookType, ctx *Context, step *InstructionStep) (ExecutionResult, error) {
	var result ExecutionResult
	for _, h := range hs.byType[t] {
		r, err := h.Execute(ctx, step)
		if err != nil {
			return result, fmt.Errorf("%s hook: %w", t, err)
		}
		result = result.merge(r)
		if r.FinishInstructionExecution {
			break
		}
	}
	return result, nil
}
