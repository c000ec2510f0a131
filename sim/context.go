package sim

import (
	"github.com/QoPMLProject/AQoPA-sub000/sim/equation"
	"github.com/QoPMLProject/AQoPA-sub000/sim/expression"
	"github.com/QoPMLProject/AQoPA-sub000/sim/metrics"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Context is the mutable state of one simulation run: hosts, channels, the
// equation engine and the metrics tables. It is created fresh for every run
// and must only be used from one goroutine.
type Context struct {
	Hosts     []*Host
	Channels  *ChannelsManager
	Reducer   *equation.Reducer
	Populator *expression.Populator
	Checker   *expression.Checker
	Metrics   *metrics.Manager

	currentHostIndex int
}

// NewContext wires the expression services over equations. metricsManager may
// be nil.
func NewContext(hosts []*Host, channels *ChannelsManager, equations []*model.Equation,
	metricsManager *metrics.Manager) *Context {
	if channels == nil {
		channels = NewChannelsManager(nil, nil)
	}
	if metricsManager == nil {
		metricsManager = metrics.NewManager()
	}
	reducer := equation.NewReducer(equations)
	populator := expression.NewPopulator(reducer)
	return &Context{
		Hosts:     hosts,
		Channels:  channels,
		Reducer:   reducer,
		Populator: populator,
		Checker:   expression.NewChecker(populator, reducer),
		Metrics:   metricsManager,
	}
}

// CurrentHost returns the host whose turn it is.
func (c *Context) CurrentHost() *Host {
	if len(c.Hosts) == 0 {
		return nil
	}
	return c.Hosts[c.currentHostIndex]
}

// HostByName returns the host with the full name, or nil.
func (c *Context) HostByName(name string) *Host {
	for _, h := range c.Hosts {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// GotoNextHost moves the host cursor round robin, skipping finished hosts.
// If it wraps back to the current host, every other host is finished.
func (c *Context) GotoNextHost() {
	if len(c.Hosts) == 0 {
		return
	}
	start := c.currentHostIndex
	for {
		c.currentHostIndex = (c.currentHostIndex + 1) % len(c.Hosts)
		if c.currentHostIndex == start || !c.Hosts[c.currentHostIndex].Finished() {
			return
		}
	}
}

// AllHostsFinished reports whether every host finished or failed.
func (c *Context) AllHostsFinished() bool {
	for _, h := range c.Hosts {
		if !h.Finished() {
			return false
		}
	}
	return true
}

// HasEpochEnded reports whether every host had its fair share of turns since
// the last epoch boundary.
func (c *Context) HasEpochEnded() bool {
	for _, h := range c.Hosts {
		if !h.EpochEnded() {
			return false
		}
	}
	return true
}

// AnyHostChanged reports whether some host made progress in this epoch.
func (c *Context) AnyHostChanged() bool {
	for _, h := range c.Hosts {
		if h.Changed() {
			return true
		}
	}
	return false
}

// StartEpoch clears progress flags and turn counters of every host.
func (c *Context) StartEpoch() {
	for _, h := range c.Hosts {
		h.MarkUnchanged()
		h.ResetTouches()
	}
}

// Evaluate populates expr with host's variables and reduces it.
func (c *Context) Evaluate(host *Host, expr model.Expression) (model.Expression, error) {
	return c.Checker.PopulateAndReduce(expr, host)
}
