package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

func TestFIFOScheduler_SingleContextOverWholeList(t *testing.T) {
	// GIVEN a host mixing host-level instructions and a process
	first := assign("a", call("n"))
	h := newTestHost("H.0", SchedulerFIFO, []model.Instruction{
		first,
		process("P", assign("b", call("n"))),
	}, nil)

	// THEN one context starts at the first instruction
	s := h.Scheduler()
	assert.Equal(t, 1, s.ContextCount())
	require.Len(t, s.Contexts(), 1)
	assert.Same(t, first, s.CurrentContext().CurrentInstruction())
	assert.False(t, s.Finished())
}

func TestRoundRobinScheduler_OneContextPerProcessPlusHostLevel(t *testing.T) {
	// GIVEN two non-empty processes, one empty process and a host-level instruction
	p1 := process("P1", assign("a", call("n")), assign("b", call("n")))
	p2 := process("P2", assign("c", call("n")))
	hostLevel := assign("d", call("n"))
	h := newTestHost("H.0", SchedulerRoundRobin, []model.Instruction{p1, hostLevel, p2, process("Empty")}, nil)

	// THEN contexts are P1, P2 and a trailing host-level context
	s := h.Scheduler()
	require.Equal(t, 3, s.ContextCount())
	ctxs := s.Contexts()
	assert.Same(t, p1, ctxs[0].CurrentProcess())
	assert.Same(t, p2, ctxs[1].CurrentProcess())
	assert.Nil(t, ctxs[2].CurrentProcess())
	assert.Same(t, hostLevel, ctxs[2].CurrentInstruction())

	// AND the cursor cycles through them
	assert.Same(t, ctxs[0], s.CurrentContext())
	s.GotoNextContext()
	assert.Same(t, ctxs[1], s.CurrentContext())
	s.GotoNextContext()
	assert.Same(t, ctxs[2], s.CurrentContext())
	s.GotoNextContext()
	assert.Same(t, ctxs[0], s.CurrentContext())
}

func TestRoundRobinScheduler_SkipsFinishedContexts(t *testing.T) {
	// GIVEN three processes where the middle one is already done
	h := newTestHost("H.0", SchedulerRoundRobin, []model.Instruction{
		process("P1", assign("a", call("n"))),
		process("P2", assign("b", call("n"))),
		process("P3", assign("c", call("n"))),
	}, nil)
	s := h.Scheduler()
	s.Contexts()[1].GotoNextInstruction()
	require.True(t, s.Contexts()[1].Finished())

	// WHEN moving on from the first context
	s.GotoNextContext()

	// THEN the finished context is skipped
	assert.Same(t, s.Contexts()[2], s.CurrentContext())
}

func TestRoundRobinScheduler_LastContextStaysWhenOthersFinished(t *testing.T) {
	h := newTestHost("H.0", SchedulerRoundRobin, []model.Instruction{
		process("P1", assign("a", call("n"))),
		process("P2", assign("b", call("n"))),
	}, nil)
	s := h.Scheduler()
	s.Contexts()[1].GotoNextInstruction()

	s.GotoNextContext()

	assert.Same(t, s.Contexts()[0], s.CurrentContext())
	assert.False(t, s.Finished())
}

func TestRoundRobinScheduler_EmptyHost(t *testing.T) {
	h := newTestHost("H.0", SchedulerRoundRobin, nil, nil)

	s := h.Scheduler()
	assert.Equal(t, 1, s.ContextCount())
	assert.Nil(t, s.CurrentContext())
	assert.True(t, s.Finished())
	assert.Nil(t, h.CurrentInstruction())
}

func TestHost_FinishesWhenSchedulerIsExhausted(t *testing.T) {
	// GIVEN a host whose only instruction was consumed
	h := newTestHost("H.0", SchedulerFIFO, []model.Instruction{assign("a", call("n"))}, nil)
	h.CurrentInstructionsContext().GotoNextInstruction()

	// WHEN the host moves to its next context
	h.GotoNextInstructionsContext()

	// THEN it finished successfully
	assert.Equal(t, HostFinished, h.Status())
	assert.True(t, h.Changed())
}

func TestIsValidScheduler(t *testing.T) {
	assert.True(t, IsValidScheduler(""))
	assert.True(t, IsValidScheduler(SchedulerFIFO))
	assert.True(t, IsValidScheduler(SchedulerRoundRobin))
	assert.False(t, IsValidScheduler("lifo"))
}

func TestNewScheduler_UnknownName_Panics(t *testing.T) {
	h := NewHost("H.0", nil, nil)
	assert.Panics(t, func() { NewScheduler(h, "lifo") })
}
