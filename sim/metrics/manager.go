// Package metrics looks up cost records (time, energy, size) for function
// calls. Records are keyed by function name and the call's qop arguments and
// can be scoped to the original name of a host.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// AnyHost scopes a primitive to every host.
const AnyHost = "*"

// SizeParam is the primitive parameter holding the size (in bytes) of the
// value a function returns.
const SizeParam = "size"

// defaultSize is the size of a value with no size metric.
const defaultSize = 1.0

// Primitive is one row of a metrics table.
type Primitive struct {
	Function string            `yaml:"function"`
	QopArgs  []string          `yaml:"qop_args"`
	Params   map[string]string `yaml:"params"`
}

func (p *Primitive) matches(call *model.CallFunction) bool {
	if p.Function != call.Name || len(p.QopArgs) != len(call.QopArgs) {
		return false
	}
	for i := range p.QopArgs {
		if p.QopArgs[i] != "*" && p.QopArgs[i] != call.QopArgs[i] {
			return false
		}
	}
	return true
}

// Param returns a parameter parsed as a float.
func (p *Primitive) Param(name string) (float64, bool, error) {
	raw, ok := p.Params[name]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, true, fmt.Errorf("metric %s(%s) parameter %s: %w", p.Function, strings.Join(p.QopArgs, ","), name, err)
	}
	return v, true, nil
}

// Table is the YAML layout of a metrics file.
type Table struct {
	Hosts map[string][]*Primitive `yaml:"hosts"`
}

// Manager resolves primitives for hosts.
type Manager struct {
	byHost map[string][]*Primitive
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{byHost: make(map[string][]*Primitive)}
}

// NewManagerFromTable creates a Manager holding every row of table.
func NewManagerFromTable(table Table) *Manager {
	m := NewManager()
	for host, prims := range table.Hosts {
		for _, p := range prims {
			m.AddPrimitive(host, p)
		}
	}
	return m
}

// LoadManager reads a YAML metrics file with strict field checking.
func LoadManager(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metrics file: %w", err)
	}
	var table Table
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil {
		return nil, fmt.Errorf("parsing metrics file: %w", err)
	}
	return NewManagerFromTable(table), nil
}

// AddPrimitive registers p for hosts whose original name is host, or for every
// host when host is AnyHost.
func (m *Manager) AddPrimitive(host string, p *Primitive) {
	m.byHost[host] = append(m.byHost[host], p)
}

// originalName strips the repetition suffix from a host name (Client.3 -> Client).
func originalName(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}

// FindPrimitive returns the unique primitive matching call for host. Host
// specific rows take precedence over AnyHost rows. A missing or ambiguous
// match is a *model.RuntimeError.
func (m *Manager) FindPrimitive(host string, call *model.CallFunction) (*Primitive, error) {
	for _, scope := range []string{originalName(host), AnyHost} {
		var found []*Primitive
		for _, p := range m.byHost[scope] {
			if p.matches(call) {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return nil, model.NewRuntimeError("ambiguous metric for %s on host %s: %d rows match", call, host, len(found))
		}
	}
	return nil, model.NewRuntimeError("no metric for %s on host %s", call, host)
}

// HasPrimitive reports whether FindPrimitive would find at least one row.
func (m *Manager) HasPrimitive(host string, call *model.CallFunction) bool {
	for _, scope := range []string{originalName(host), AnyHost} {
		for _, p := range m.byHost[scope] {
			if p.matches(call) {
				return true
			}
		}
	}
	return false
}

// ExpressionSize computes the size of a populated expression. A call with a
// size metric uses it; otherwise its size is the sum of its arguments (or
// defaultSize for constants). Tuples sum their elements.
func (m *Manager) ExpressionSize(expr model.Expression, host string) (float64, error) {
	switch e := expr.(type) {
	case *model.Boolean:
		return defaultSize, nil
	case *model.CallFunction:
		if m.HasPrimitive(host, e) {
			p, err := m.FindPrimitive(host, e)
			if err != nil {
				return 0, err
			}
			size, ok, err := p.Param(SizeParam)
			if err != nil {
				return 0, model.NewRuntimeError("%v", err)
			}
			if ok {
				return size, nil
			}
		}
		if len(e.Args) == 0 {
			return defaultSize, nil
		}
		return m.sum(e.Args, host)
	case *model.Tuple:
		return m.sum(e.Elements, host)
	case *model.Identifier, *model.TupleElement, *model.Comparison:
		return 0, model.NewRuntimeError("cannot compute size of unpopulated expression %s", expr)
	default:
		panic(fmt.Sprintf("ExpressionSize: unhandled expression %T", expr))
	}
}

func (m *Manager) sum(exprs []model.Expression, host string) (float64, error) {
	total := 0.0
	for _, e := range exprs {
		s, err := m.ExpressionSize(e, host)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}
