package sim

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// HostStatus is the lifecycle state of a Host.
type HostStatus int

const (
	HostRunning HostStatus = iota
	HostFinished
	HostFailed
)

func (s HostStatus) String() string {
	switch s {
	case HostRunning:
		return "running"
	case HostFinished:
		return "finished"
	case HostFailed:
		return "failed"
	default:
		return fmt.Sprintf("HostStatus(%d)", int(s))
	}
}

// Variables is a host's persistent variable environment. Writes produce a new
// map, so repetitions built from the same predefined values never alias.
type Variables = immutable.Map[string, model.Expression]

// NewVariables returns an empty variable environment.
func NewVariables() *Variables {
	return immutable.NewMap[string, model.Expression](nil)
}

// Host is a top-level actor of the model. Its name carries the repetition
// index (Client.3). A host owns its instruction tree, its variables and its
// scheduler; it is only mutated by instructions executed on its behalf and by
// channel deliveries addressed to it.
type Host struct {
	name         string
	instructions []model.Instruction
	variables    *Variables
	scheduler    Scheduler

	status      HostStatus
	finishError string

	// touches counts scheduling turns since the last epoch boundary.
	touches int
	changed bool
}

// NewHost creates a running host. instructions must already be a private
// clone for this host. predefined may be nil.
func NewHost(name string, instructions []model.Instruction, predefined *Variables) *Host {
	if predefined == nil {
		predefined = NewVariables()
	}
	return &Host{
		name:         name,
		instructions: instructions,
		variables:    predefined,
		status:       HostRunning,
	}
}

// Name returns the full host name including repetition indexes.
func (h *Host) Name() string { return h.name }

// OriginalName returns the name the host was declared with (Client.3 -> Client).
func (h *Host) OriginalName() string {
	if i := strings.IndexByte(h.name, '.'); i >= 0 {
		return h.name[:i]
	}
	return h.name
}

// AddNameIndex appends a repetition index to the host name.
func (h *Host) AddNameIndex(index int) {
	h.name = fmt.Sprintf("%s.%d", h.name, index)
}

func (h *Host) String() string { return h.name }

// Instructions returns the host's top-level instruction list.
func (h *Host) Instructions() []model.Instruction { return h.instructions }

// Variable implements expression.Variables.
func (h *Host) Variable(name string) (model.Expression, bool) {
	return h.variables.Get(name)
}

// SetVariable binds name to value.
func (h *Host) SetVariable(name string, value model.Expression) {
	h.variables = h.variables.Set(name, value)
}

// Variables returns the current environment snapshot.
func (h *Host) Variables() *Variables { return h.variables }

// SetScheduler installs the host's scheduler. Called once at build time.
func (h *Host) SetScheduler(s Scheduler) { h.scheduler = s }

// Scheduler returns the host's scheduler.
func (h *Host) Scheduler() Scheduler { return h.scheduler }

// CurrentInstructionsContext returns the context the scheduler points at.
func (h *Host) CurrentInstructionsContext() *InstructionsContext {
	return h.scheduler.CurrentContext()
}

// CurrentInstruction returns the instruction the host will execute next, or
// nil when its current context is finished.
func (h *Host) CurrentInstruction() model.Instruction {
	ictx := h.CurrentInstructionsContext()
	if ictx == nil || ictx.Finished() {
		return nil
	}
	return ictx.CurrentInstruction()
}

// GotoNextInstructionsContext lets the scheduler pick the next context and
// finishes the host once every context is exhausted.
func (h *Host) GotoNextInstructionsContext() {
	h.scheduler.GotoNextContext()
	if h.scheduler.Finished() && !h.Finished() {
		h.FinishSuccessfully()
	}
}

// Touch records that the host was given a scheduling turn.
func (h *Host) Touch() { h.touches++ }

// ResetTouches starts a new epoch for the host.
func (h *Host) ResetTouches() { h.touches = 0 }

// EpochEnded reports whether the host had a turn in each of its contexts
// since the last epoch boundary. Finished hosts are always done.
func (h *Host) EpochEnded() bool {
	return h.Finished() || h.touches >= h.scheduler.ContextCount()
}

// MarkChanged records that the host made progress in the current epoch.
func (h *Host) MarkChanged() { h.changed = true }

// MarkUnchanged clears the progress flag at an epoch boundary.
func (h *Host) MarkUnchanged() { h.changed = false }

// Changed reports whether the host made progress in the current epoch.
func (h *Host) Changed() bool { return h.changed }

// FinishSuccessfully marks the host finished.
func (h *Host) FinishSuccessfully() {
	h.status = HostFinished
	h.changed = true
}

// FinishFailed marks the host failed with a reason.
func (h *Host) FinishFailed(reason string) {
	h.status = HostFailed
	h.finishError = reason
	h.changed = true
}

// Finished reports whether the host stopped, successfully or not.
func (h *Host) Finished() bool { return h.status != HostRunning }

// Failed reports whether the host stopped with an error.
func (h *Host) Failed() bool { return h.status == HostFailed }

// Status returns the lifecycle state.
func (h *Host) Status() HostStatus { return h.status }

// FinishError returns the failure reason, empty unless Failed.
func (h *Host) FinishError() string { return h.finishError }
