package builder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/QoPMLProject/AQoPA-sub000/sim"
	"github.com/QoPMLProject/AQoPA-sub000/sim/equation"
	"github.com/QoPMLProject/AQoPA-sub000/sim/metrics"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/routing"
)

// Environment is everything built for one version: a fresh simulation context
// plus the declarations it was built from.
type Environment struct {
	Version   string
	Context   *sim.Context
	Functions []*model.Function
	Equations []*model.Equation
	Router    *routing.Router
}

// channelKey identifies a repeated channel clone.
type channelKey struct {
	name          string
	host, process int
}

// build holds the state of one Build call.
type build struct {
	model     *ModelFile
	dir       string
	functions map[string]*model.Function
	channels  map[string]*sim.Channel
	clones    map[channelKey]*sim.Channel
	ordered   []*sim.Channel
	templates map[string]*hostTemplate
	hosts     []*sim.Host
	instances map[string][]*sim.Host
	router    *routing.Router
	errs      error
}

func (b *build) fail(err error) { b.errs = multierr.Append(b.errs, err) }

// Build builds the environment of one version of m. Every definition problem
// found is reported in a single *model.EnvironmentError.
func Build(m *ModelFile, version string) (*Environment, error) {
	b := &build{
		model:     m,
		dir:       m.dir,
		functions: make(map[string]*model.Function),
		channels:  make(map[string]*sim.Channel),
		clones:    make(map[channelKey]*sim.Channel),
		templates: make(map[string]*hostTemplate),
		instances: make(map[string][]*sim.Host),
		router:    routing.NewRouter(),
	}
	v, err := m.version(version)
	if err != nil {
		return nil, model.NewEnvironmentError(err)
	}

	functions := b.buildFunctions()
	equations := b.buildEquations(functions)
	b.buildChannels()
	b.buildTemplates()
	b.runVersion(v)
	b.buildTopologies()
	manager := b.buildMetrics()

	if b.errs != nil {
		return nil, model.NewEnvironmentError(b.errs)
	}
	logrus.Debugf("version %s: %d host(s), %d channel(s), %d equation(s)",
		v.Name, len(b.hosts), len(b.ordered), len(equations))
	ctx := sim.NewContext(b.hosts, sim.NewChannelsManager(b.ordered, b.router), equations, manager)
	return &Environment{
		Version:   v.Name,
		Context:   ctx,
		Functions: functions,
		Equations: equations,
		Router:    b.router,
	}, nil
}

func (b *build) buildFunctions() []*model.Function {
	var out []*model.Function
	for _, f := range b.model.Functions {
		if _, dup := b.functions[f.Name]; dup {
			b.fail(fmt.Errorf("function %s declared twice", f.Name))
			continue
		}
		if f.Arity < 0 {
			b.fail(fmt.Errorf("function %s has negative arity %d", f.Name, f.Arity))
			continue
		}
		fn := &model.Function{Name: f.Name, Arity: f.Arity, QopParams: f.QopParams}
		b.functions[f.Name] = fn
		out = append(out, fn)
	}
	return out
}

func (b *build) buildEquations(functions []*model.Function) []*model.Equation {
	var out []*model.Equation
	for _, src := range b.model.Equations {
		eq, err := ParseEquation(src)
		if err != nil {
			b.fail(fmt.Errorf("equation: %w", err))
			continue
		}
		out = append(out, eq)
	}
	var envErr *model.EnvironmentError
	if err := equation.Validate(out, functions); errors.As(err, &envErr) {
		for _, e := range envErr.Errors() {
			b.fail(e)
		}
	} else {
		b.fail(err)
	}
	return out
}

func (b *build) buildChannels() {
	topologies := make(map[string]bool)
	for _, t := range b.model.Topologies {
		topologies[t.Name] = true
	}
	for _, spec := range b.model.Channels {
		if spec.Name == "" || strings.ContainsRune(spec.Name, '.') {
			b.fail(fmt.Errorf("invalid channel name %q", spec.Name))
			continue
		}
		if _, dup := b.channels[spec.Name]; dup {
			b.fail(fmt.Errorf("channel %s declared twice", spec.Name))
			continue
		}
		size := sim.UnlimitedBuffer
		if spec.Buffer != nil {
			size = *spec.Buffer
		}
		ch := sim.NewChannel(spec.Name, size)
		if spec.Topology != "" {
			if !topologies[spec.Topology] {
				b.fail(fmt.Errorf("channel %s: unknown topology %s", spec.Name, spec.Topology))
			}
			ch.SetTopology(spec.Topology, b.router)
		}
		b.channels[spec.Name] = ch
		b.ordered = append(b.ordered, ch)
	}
}

func (b *build) buildTemplates() {
	for i := range b.model.Hosts {
		spec := &b.model.Hosts[i]
		if spec.Name == "" || strings.ContainsRune(spec.Name, '.') {
			b.fail(fmt.Errorf("invalid host name %q", spec.Name))
			continue
		}
		if _, dup := b.templates[spec.Name]; dup {
			b.fail(fmt.Errorf("host %s declared twice", spec.Name))
			continue
		}
		if !sim.IsValidScheduler(spec.Scheduler) {
			b.fail(fmt.Errorf("host %s: unknown scheduler %q; valid: %v", spec.Name, spec.Scheduler, sim.ValidSchedulerNames()))
		}
		t, err := convertHost(spec)
		if err != nil {
			b.fail(err)
			continue
		}
		b.checkTemplate(t)
		b.templates[spec.Name] = t
	}
}

// checkTemplate validates channel and function references of a host.
func (b *build) checkTemplate(t *hostTemplate) {
	name := t.spec.Name
	for _, ch := range t.spec.Channels {
		if _, ok := b.channels[ch]; !ok {
			b.fail(fmt.Errorf("host %s: unknown channel %s", name, ch))
		}
	}
	for proc, chs := range t.processChannels {
		for _, ch := range chs {
			if _, ok := b.channels[ch]; !ok {
				b.fail(fmt.Errorf("host %s, process %s: unknown channel %s", name, proc, ch))
			}
		}
	}
	for variable, src := range t.spec.Predefined {
		e, err := ParseExpression(src)
		if err != nil {
			b.fail(fmt.Errorf("host %s, predefined %s: %w", name, variable, err))
			continue
		}
		if err := checkCalls(e, b.functions); err != nil {
			b.fail(prefixErrors(fmt.Sprintf("host %s, predefined %s", name, variable), err))
		}
	}
	walkInstructions(t.instructions, func(instr model.Instruction) {
		if c, ok := instr.(*model.Communication); ok {
			if _, declared := b.channels[c.Channel]; !declared {
				b.fail(fmt.Errorf("host %s: '%s' uses unknown channel %s", name, c, c.Channel))
			}
		}
		for _, e := range instructionExpressions(instr) {
			if err := checkCalls(e, b.functions); err != nil {
				b.fail(prefixErrors(fmt.Sprintf("host %s: '%s'", name, instr), err))
			}
		}
	})
}

func (b *build) runVersion(v *VersionSpec) {
	seen := make(map[string]bool)
	for _, run := range v.Run {
		t, ok := b.templates[run.Host]
		if !ok {
			if b.hostDeclared(run.Host) {
				continue // already reported
			}
			b.fail(fmt.Errorf("version %s: unknown host %s", v.Name, run.Host))
			continue
		}
		if seen[run.Host] {
			b.fail(fmt.Errorf("version %s: host %s run twice", v.Name, run.Host))
			continue
		}
		seen[run.Host] = true
		b.runHost(t, run)
	}
}

func (b *build) hostDeclared(name string) bool {
	for _, h := range b.model.Hosts {
		if h.Name == name {
			return true
		}
	}
	return false
}

func (b *build) runHost(t *hostTemplate, run RunSpec) {
	reps := run.Repetitions
	if reps == 0 {
		reps = 1
	}
	if reps < 0 {
		b.fail(fmt.Errorf("host %s: negative repetitions %d", run.Host, reps))
		return
	}
	selected, ok := b.selectProcesses(t, run)
	if !ok || !sim.IsValidScheduler(t.spec.Scheduler) {
		return
	}
	repeated := b.channelSet(run.Host, run.RepeatedChannels)
	predefined := b.predefined(t.spec)

	for i := 0; i < reps; i++ {
		var instructions []model.Instruction
		type placed struct {
			proc  *model.Process
			index int
		}
		var processes []placed
		for _, instr := range t.instructions {
			proc, isProcess := instr.(*model.Process)
			if !isProcess {
				instructions = append(instructions, instr.Clone())
				continue
			}
			sel, ok := selected[proc.Name]
			if !ok {
				continue
			}
			for j := 0; j < sel.reps; j++ {
				clone := proc.Clone().(*model.Process)
				if sel.subprocesses != nil {
					clone.Body = keepSubprocesses(clone.Body, sel.subprocesses)
				}
				instructions = append(instructions, clone)
				processes = append(processes, placed{proc: clone, index: j})
			}
		}

		host := sim.NewHost(fmt.Sprintf("%s.%d", t.spec.Name, i), instructions, predefined)
		host.SetScheduler(sim.NewScheduler(host, t.spec.Scheduler))
		for _, ch := range t.spec.Channels {
			if c := b.channel(ch, repeated, nil, i, 0); c != nil {
				c.ConnectHost(host)
			}
		}
		for _, p := range processes {
			procRepeated := selected[p.proc.Name].repeated
			for _, ch := range t.processChannels[p.proc.Name] {
				if c := b.channel(ch, repeated, procRepeated, i, p.index); c != nil {
					c.ConnectProcess(p.proc)
				}
			}
		}
		b.hosts = append(b.hosts, host)
		b.instances[t.spec.Name] = append(b.instances[t.spec.Name], host)
	}
}

type processSelection struct {
	reps         int
	repeated     map[string]bool
	subprocesses map[string]bool
}

// selectProcesses resolves the process directives of run. With no directive
// every process runs once with every subprocess.
func (b *build) selectProcesses(t *hostTemplate, run RunSpec) (map[string]processSelection, bool) {
	selected := make(map[string]processSelection)
	if len(run.Processes) == 0 {
		for _, name := range t.processNames() {
			selected[name] = processSelection{reps: 1}
		}
		return selected, true
	}
	ok := true
	declared := make(map[string]bool)
	for _, name := range t.processNames() {
		declared[name] = true
	}
	for _, p := range run.Processes {
		if !declared[p.Name] {
			b.fail(fmt.Errorf("host %s: unknown process %s", run.Host, p.Name))
			ok = false
			continue
		}
		reps := p.Repetitions
		if reps == 0 {
			reps = 1
		}
		if reps < 0 {
			b.fail(fmt.Errorf("host %s, process %s: negative repetitions %d", run.Host, p.Name, reps))
			ok = false
			continue
		}
		sel := processSelection{reps: reps, repeated: b.channelSet(run.Host, p.RepeatedChannels)}
		if len(p.Subprocesses) > 0 {
			sel.subprocesses = make(map[string]bool)
			for _, s := range p.Subprocesses {
				sel.subprocesses[s] = true
			}
		}
		selected[p.Name] = sel
	}
	return selected, ok
}

func (b *build) channelSet(host string, names []string) map[string]bool {
	set := make(map[string]bool)
	for _, n := range names {
		if _, ok := b.channels[n]; !ok {
			b.fail(fmt.Errorf("host %s: unknown repeated channel %s", host, n))
			continue
		}
		set[n] = true
	}
	return set
}

// channel returns the instance of name a host or process connects to, or nil
// for an undeclared channel. A
// channel repeated at process level is cloned per (host, process)
// repetition, one repeated at host level per host repetition; clones are
// shared by every host and process with the same indexes.
func (b *build) channel(name string, hostRepeated, procRepeated map[string]bool, hostIndex, procIndex int) *sim.Channel {
	base, ok := b.channels[name]
	if !ok {
		return nil
	}
	var key channelKey
	switch {
	case procRepeated[name]:
		key = channelKey{name: name, host: hostIndex, process: procIndex}
	case hostRepeated[name]:
		key = channelKey{name: name, host: hostIndex}
	default:
		return base
	}
	if ch, ok := b.clones[key]; ok {
		return ch
	}
	ch := base.Clone()
	ch.SetNameIndexes(key.host, key.process)
	b.clones[key] = ch
	b.ordered = append(b.ordered, ch)
	return ch
}

// predefined parses the predefined variables of a host once; repetitions
// share the persistent map.
func (b *build) predefined(spec *HostSpec) *sim.Variables {
	vars := sim.NewVariables()
	for name, src := range spec.Predefined {
		e, err := ParseExpression(src)
		if err != nil {
			continue // reported by checkTemplate
		}
		vars = vars.Set(name, e)
	}
	return vars
}

func (b *build) buildTopologies() {
	for _, t := range b.model.Topologies {
		if len(t.Links) == 0 {
			logrus.Warnf("topology %s has no links", t.Name)
		}
		for _, l := range t.Links {
			from, err1 := b.endpoints(t.Name, l.From)
			to, err2 := b.endpoints(t.Name, l.To)
			if err := multierr.Combine(err1, err2); err != nil {
				b.fail(err)
				continue
			}
			for _, f := range from {
				for _, h := range to {
					if f == h {
						continue
					}
					b.fail(b.router.AddLink(t.Name, f.Name(), h.Name(), l.Quality))
					if l.Bidirectional {
						b.fail(b.router.AddLink(t.Name, h.Name(), f.Name(), l.Quality))
					}
				}
			}
		}
	}
}

// endpoints expands a link endpoint to host instances.
func (b *build) endpoints(topology, name string) ([]*sim.Host, error) {
	if hosts, ok := b.instances[name]; ok {
		return hosts, nil
	}
	for _, hosts := range b.instances {
		for _, h := range hosts {
			if h.Name() == name {
				return []*sim.Host{h}, nil
			}
		}
	}
	if b.hostDeclared(name) || b.hostDeclared(strings.SplitN(name, ".", 2)[0]) {
		// declared but not run in this version
		return nil, nil
	}
	return nil, fmt.Errorf("topology %s: unknown host %s", topology, name)
}

func (b *build) buildMetrics() *metrics.Manager {
	manager := metrics.NewManager()
	if b.model.MetricsFile != "" {
		path := b.model.MetricsFile
		if !filepath.IsAbs(path) && b.dir != "" {
			path = filepath.Join(b.dir, path)
		}
		loaded, err := metrics.LoadManager(path)
		if err != nil {
			b.fail(err)
		} else {
			manager = loaded
		}
	}
	if b.model.Metrics != nil {
		for host, prims := range b.model.Metrics.Hosts {
			for _, p := range prims {
				manager.AddPrimitive(host, p)
			}
		}
	}
	return manager
}
