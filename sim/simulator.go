// sim/simulator.go
package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Simulator drives one run: it interleaves hosts round robin, one host turn
// per step, and groups steps into epochs to detect runs that stopped making
// progress.
type Simulator struct {
	ctx      *Context
	hooks    *Hooks
	executor *Executor

	// MaxSteps aborts the run after that many steps; 0 means unlimited.
	MaxSteps int64

	step         int64
	epochs       int64
	infiniteLoop bool
	hasRun       bool
}

// NewSimulator creates a Simulator over a built context.
// Panics if ctx is nil.
func NewSimulator(ctx *Context) *Simulator {
	if ctx == nil {
		panic("NewSimulator: ctx must not be nil")
	}
	hooks := NewHooks()
	return &Simulator{
		ctx:      ctx,
		hooks:    hooks,
		executor: NewExecutor(hooks),
	}
}

// Context returns the simulation state.
func (s *Simulator) Context() *Context { return s.ctx }

// RegisterHook attaches h at lifecycle point t. Hooks run in registration order.
func (s *Simulator) RegisterHook(t HookType, h Hook) {
	s.hooks.Register(t, h)
}

// Steps returns the number of host turns executed so far.
func (s *Simulator) Steps() int64 { return s.step }

// InfiniteLoop reports whether the run stopped because no host could make
// progress while messages were being dropped.
func (s *Simulator) InfiniteLoop() bool { return s.infiniteLoop }

// Finished reports whether every host finished or failed.
func (s *Simulator) Finished() bool { return s.ctx.AllHostsFinished() }

// Run advances the simulation until every host is finished or an infinite
// loop was detected, then fires the simulation-finished hooks. A runtime
// error aborts the run; the finished hooks still fire and the runtime error
// is returned, combined with any hook error.
// Panics if called more than once.
func (s *Simulator) Run() error {
	if s.hasRun {
		panic("Simulator.Run() called more than once")
	}
	s.hasRun = true

	var runErr error
	for !s.ctx.AllHostsFinished() && !s.infiniteLoop {
		if err := s.AdvanceOneStep(); err != nil {
			if errors.Is(err, model.ErrInfiniteLoop) {
				logrus.Warnf("[step %07d] infinite loop detected", s.step)
				s.infiniteLoop = true
				continue
			}
			logrus.Warnf("[step %07d] simulation aborted: %v", s.step, err)
			runErr = err
			break
		}
	}
	logrus.Infof("[step %07d] Simulation ended after %d epoch(s)", s.step, s.epochs)

	_, hookErr := s.hooks.Run(HookSimulationFinished, s.ctx, nil)
	return multierr.Append(runErr, hookErr)
}

// AdvanceOneStep opens a new epoch if every host had its turns, then gives
// the current host one turn and moves the cursor to the next host.
func (s *Simulator) AdvanceOneStep() error {
	if s.epochs == 0 || s.ctx.HasEpochEnded() {
		if err := s.startEpoch(); err != nil {
			return err
		}
		if s.ctx.AllHostsFinished() {
			return nil
		}
	}

	s.step++
	if s.MaxSteps > 0 && s.step > s.MaxSteps {
		return model.NewRuntimeError("simulation exceeded %d steps", s.MaxSteps)
	}
	host := s.ctx.CurrentHost()
	host.Touch()
	logrus.Debugf("[step %07d] turn of host %s", s.step, host)
	if err := s.executor.Execute(s.ctx, s.step); err != nil {
		return err
	}
	s.ctx.GotoNextHost()
	return nil
}

// startEpoch runs the epoch hooks and, except for the first epoch, checks
// that some host made progress during the previous one. Without progress the
// run is stuck: with dropped messages it is an infinite loop, otherwise every
// unfinished host fails on the instruction it is stuck on.
func (s *Simulator) startEpoch() error {
	if _, err := s.hooks.Run(HookPreHostListExecution, s.ctx, nil); err != nil {
		return err
	}
	if s.epochs > 0 && !s.ctx.AnyHostChanged() {
		if s.ctx.Channels.HasDroppedMessages() {
			return model.ErrInfiniteLoop
		}
		for _, h := range s.ctx.Hosts {
			if h.Finished() {
				continue
			}
			reason := fmt.Sprintf("Infinite loop occured on instruction: %s", describeInstruction(h.CurrentInstruction()))
			logrus.Warnf("[step %07d] host %s: %s", s.step, h, reason)
			h.FinishFailed(reason)
		}
	}
	s.ctx.StartEpoch()
	s.epochs++
	return nil
}

func describeInstruction(instr model.Instruction) string {
	if instr == nil {
		return "<none>"
	}
	return instr.String()
}

// HostReport is the final state of one host.
type HostReport struct {
	Name   string
	Status HostStatus
	Error  string
}

// Report summarizes a finished run.
type Report struct {
	Steps           int64
	Epochs          int64
	InfiniteLoop    bool
	Hosts           []HostReport
	DroppedMessages map[string]int
}

// Report collects the final state of the run.
func (s *Simulator) Report() Report {
	r := Report{
		Steps:           s.step,
		Epochs:          s.epochs,
		InfiniteLoop:    s.infiniteLoop,
		DroppedMessages: s.ctx.Channels.DroppedMessages(),
	}
	for _, h := range s.ctx.Hosts {
		r.Hosts = append(r.Hosts, HostReport{Name: h.Name(), Status: h.Status(), Error: h.FinishError()})
	}
	sort.SliceStable(r.Hosts, func(i, j int) bool { return r.Hosts[i].Name < r.Hosts[j].Name })
	return r
}
