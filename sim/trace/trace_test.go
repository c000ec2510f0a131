package trace

import (
	"testing"
)

func TestExecutionTrace_RecordInstruction_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for instructions
	et := NewExecutionTrace(TraceConfig{Level: TraceLevelInstructions})

	// WHEN an instruction record is recorded
	et.RecordInstruction(InstructionRecord{
		Step:        3,
		Host:        "A.0",
		Kind:        "assignment",
		Instruction: "x = nonce()",
		ConsumesCPU: true,
	})

	// THEN the trace contains one record with correct data
	if len(et.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(et.Instructions))
	}
	if et.Instructions[0].Host != "A.0" {
		t.Errorf("expected host A.0, got %s", et.Instructions[0].Host)
	}
	if !et.Instructions[0].ConsumesCPU {
		t.Error("expected consumesCPU=true")
	}
}

func TestExecutionTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	et := NewExecutionTrace(TraceConfig{Level: TraceLevelInstructions})

	// WHEN multiple records are added
	et.RecordInstruction(InstructionRecord{Step: 1, Host: "A.0"})
	et.RecordInstruction(InstructionRecord{Step: 2, Host: "B.0"})
	et.RecordEpoch(EpochRecord{Index: 0, RunningHosts: 2})

	// THEN order is preserved
	if et.Instructions[0].Host != "A.0" || et.Instructions[1].Host != "B.0" {
		t.Error("instruction order not preserved")
	}
	if len(et.Epochs) != 1 {
		t.Errorf("expected 1 epoch, got %d", len(et.Epochs))
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"epochs", true},
		{"instructions", true},
		{"", true},
		{"decisions", false},
	}
	for _, tc := range tests {
		if got := IsValidTraceLevel(tc.level); got != tc.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tc.level, got, tc.valid)
		}
	}
}

func TestExecutionTrace_LevelGates(t *testing.T) {
	if NewExecutionTrace(TraceConfig{Level: TraceLevelEpochs}).RecordsInstructions() {
		t.Error("epochs level must not record instructions")
	}
	if !NewExecutionTrace(TraceConfig{Level: TraceLevelEpochs}).RecordsEpochs() {
		t.Error("epochs level must record epochs")
	}
	if NewExecutionTrace(TraceConfig{Level: TraceLevelNone}).RecordsEpochs() {
		t.Error("none level must not record epochs")
	}
}
