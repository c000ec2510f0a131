package trace

// TraceLevel controls the verbosity of execution tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEpochs captures epoch boundaries only.
	TraceLevelEpochs TraceLevel = "epochs"
	// TraceLevelInstructions captures every executed instruction and epoch.
	TraceLevelInstructions TraceLevel = "instructions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:         true,
	TraceLevelEpochs:       true,
	TraceLevelInstructions: true,
	"":                     true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// CostParam names the metric parameter attached to CPU-consuming calls
	// (e.g. "time"); empty disables metric lookups.
	CostParam string
}

// ExecutionTrace collects execution records during a simulation.
type ExecutionTrace struct {
	Config       TraceConfig
	Instructions []InstructionRecord
	Epochs       []EpochRecord
}

// NewExecutionTrace creates an ExecutionTrace ready for recording.
func NewExecutionTrace(config TraceConfig) *ExecutionTrace {
	return &ExecutionTrace{
		Config:       config,
		Instructions: make([]InstructionRecord, 0),
		Epochs:       make([]EpochRecord, 0),
	}
}

// RecordsInstructions reports whether instruction records are kept.
func (t *ExecutionTrace) RecordsInstructions() bool {
	return t.Config.Level == TraceLevelInstructions
}

// RecordsEpochs reports whether epoch records are kept.
func (t *ExecutionTrace) RecordsEpochs() bool {
	return t.Config.Level == TraceLevelInstructions || t.Config.Level == TraceLevelEpochs
}

// RecordInstruction appends an instruction record.
func (t *ExecutionTrace) RecordInstruction(record InstructionRecord) {
	t.Instructions = append(t.Instructions, record)
}

// RecordEpoch appends an epoch record.
func (t *ExecutionTrace) RecordEpoch(record EpochRecord) {
	t.Epochs = append(t.Epochs, record)
}
