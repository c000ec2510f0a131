package sim

import (
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

func call(name string, args ...model.Expression) *model.CallFunction {
	return &model.CallFunction{Name: name, Args: args}
}

func id(name string) *model.Identifier { return &model.Identifier{Name: name} }

func assign(variable string, expr model.Expression) *model.Assignment {
	return &model.Assignment{Variable: variable, Expr: expr}
}

func out(ch string, vars ...string) *model.Communication {
	return &model.Communication{Direction: model.Out, Channel: ch, Variables: vars}
}

func in(ch string, vars ...string) *model.Communication {
	return &model.Communication{Direction: model.In, Channel: ch, Variables: vars}
}

func process(name string, body ...model.Instruction) *model.Process {
	return &model.Process{Name: name, Body: body}
}

func eq(left, right model.Expression) *model.Comparison {
	return &model.Comparison{Left: left, Right: right, Kind: model.Equal}
}

// newTestHost creates a host with the named scheduler and the given
// predefined variables (name -> value).
func newTestHost(name, scheduler string, instructions []model.Instruction, vars map[string]model.Expression) *Host {
	predefined := NewVariables()
	for k, v := range vars {
		predefined = predefined.Set(k, v)
	}
	h := NewHost(name, instructions, predefined)
	h.SetScheduler(NewScheduler(h, scheduler))
	return h
}

// connectAll connects every host to ch at host level.
func connectAll(ch *Channel, hosts ...*Host) *Channel {
	for _, h := range hosts {
		ch.ConnectHost(h)
	}
	return ch
}

func encDecEquations() []*model.Equation {
	return []*model.Equation{
		{Composite: call("dec", call("enc", id("x"), id("k")), id("k")), Simple: id("x")},
	}
}

// newTestSimulator builds a simulator over hosts and channels with the
// dec/enc equation.
func newTestSimulator(hosts []*Host, channels ...*Channel) *Simulator {
	ctx := NewContext(hosts, NewChannelsManager(channels, nil), encDecEquations(), nil)
	return NewSimulator(ctx)
}
