// Package trace provides execution-trace recording for simulation runs.
// This package has no dependencies on sim/. It stores pure data types.
package trace

// InstructionRecord captures one executed instruction.
type InstructionRecord struct {
	Step        int64
	Host        string
	Process     string // empty for host-level instructions
	Kind        string // instruction variant, e.g. "assignment", "out"
	Instruction string
	ConsumesCPU bool
	Cursor      string
	// Cost is the value of TraceConfig.CostParam for calls with a metric.
	Cost    float64
	HasCost bool
	// Size is the summed size of the values sent by an `out` instruction.
	Size    float64
	HasSize bool
}

// EpochRecord captures the state at an epoch boundary.
type EpochRecord struct {
	Index           int
	RunningHosts    int
	FinishedHosts   int
	FailedHosts     int
	DroppedMessages int
}
