package sim

import (
	"fmt"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Scheduler decides which instructions context of a host runs next.
// Called once per host turn by the executor.
type Scheduler interface {
	// CurrentContext returns the context to execute in this turn.
	CurrentContext() *InstructionsContext
	// GotoNextContext moves to the next unfinished context.
	GotoNextContext()
	// Finished reports whether every context is finished.
	Finished() bool
	// ContextCount returns the number of contexts, finished or not.
	ContextCount() int
	// Contexts returns every context in scheduling order.
	Contexts() []*InstructionsContext
}

const (
	// SchedulerFIFO runs the host's instructions top to bottom in one context.
	SchedulerFIFO = "fifo"
	// SchedulerRoundRobin interleaves the host's processes one instruction at a time.
	SchedulerRoundRobin = "rr"
)

// validSchedulers is the set of recognized scheduler names.
var validSchedulers = map[string]bool{"": true, SchedulerFIFO: true, SchedulerRoundRobin: true}

// IsValidScheduler returns true if name is a recognized scheduler.
func IsValidScheduler(name string) bool {
	return validSchedulers[name]
}

// ValidSchedulerNames returns the recognized scheduler names for error messages.
func ValidSchedulerNames() []string {
	return []string{SchedulerFIFO, SchedulerRoundRobin}
}

// FIFOScheduler holds exactly one context with the host's whole instruction
// list; processes are entered inline in declaration order.
type FIFOScheduler struct {
	context *InstructionsContext
}

// NewFIFOScheduler builds the single context for host.
func NewFIFOScheduler(host *Host) *FIFOScheduler {
	ctx := NewInstructionsContext(host)
	if len(host.Instructions()) > 0 {
		ctx.AddInstructionsList(host.Instructions(), nil)
	}
	return &FIFOScheduler{context: ctx}
}

func (s *FIFOScheduler) CurrentContext() *InstructionsContext { return s.context }

// GotoNextContext is a no-op: there is only one context.
func (s *FIFOScheduler) GotoNextContext() {}

func (s *FIFOScheduler) Finished() bool { return s.context.Finished() }

func (s *FIFOScheduler) ContextCount() int { return 1 }

func (s *FIFOScheduler) Contexts() []*InstructionsContext {
	return []*InstructionsContext{s.context}
}

// RoundRobinScheduler holds one context per non-empty process, in declaration
// order, plus one trailing context for host-level instructions outside any
// process. Each turn moves to the next unfinished context.
type RoundRobinScheduler struct {
	contexts []*InstructionsContext
	current  int
}

// NewRoundRobinScheduler builds the per-process contexts for host.
func NewRoundRobinScheduler(host *Host) *RoundRobinScheduler {
	s := &RoundRobinScheduler{}
	var hostLevel []model.Instruction
	for _, instr := range host.Instructions() {
		proc, ok := instr.(*model.Process)
		if !ok {
			hostLevel = append(hostLevel, instr)
			continue
		}
		if len(proc.Body) == 0 {
			continue
		}
		ctx := NewInstructionsContext(host)
		ctx.AddInstructionsList(proc.Body, proc)
		s.contexts = append(s.contexts, ctx)
	}
	if len(hostLevel) > 0 {
		ctx := NewInstructionsContext(host)
		ctx.AddInstructionsList(hostLevel, nil)
		s.contexts = append(s.contexts, ctx)
	}
	return s
}

func (s *RoundRobinScheduler) CurrentContext() *InstructionsContext {
	if len(s.contexts) == 0 {
		return nil
	}
	return s.contexts[s.current]
}

// GotoNextContext advances the cursor modulo the context count, skipping
// finished contexts. If it wraps back to the current context, every other
// context is finished and the cursor stays.
func (s *RoundRobinScheduler) GotoNextContext() {
	if len(s.contexts) == 0 {
		return
	}
	start := s.current
	for {
		s.current = (s.current + 1) % len(s.contexts)
		if s.current == start || !s.contexts[s.current].Finished() {
			return
		}
	}
}

func (s *RoundRobinScheduler) Finished() bool {
	for _, ctx := range s.contexts {
		if !ctx.Finished() {
			return false
		}
	}
	return true
}

func (s *RoundRobinScheduler) ContextCount() int {
	if len(s.contexts) == 0 {
		return 1
	}
	return len(s.contexts)
}

func (s *RoundRobinScheduler) Contexts() []*InstructionsContext { return s.contexts }

// NewScheduler creates a Scheduler by name for host.
// Valid names: "fifo" (default), "rr".
// Panics on unrecognized names; callers validate names at build time.
func NewScheduler(host *Host, name string) Scheduler {
	if !IsValidScheduler(name) {
		panic(fmt.Sprintf("unknown scheduler %q", name))
	}
	switch name {
	case "", SchedulerFIFO:
		return NewFIFOScheduler(host)
	case SchedulerRoundRobin:
		return NewRoundRobinScheduler(host)
	default:
		panic(fmt.Sprintf("unhandled scheduler %q", name))
	}
}
