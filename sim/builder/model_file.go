// Package builder loads QoP-ML model files and builds simulation contexts
// from them.
package builder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/QoPMLProject/AQoPA-sub000/sim/metrics"
)

// ModelFile is the top-level model configuration.
// Loaded from YAML via LoadModelFile(path) or ParseModelFile(data).
type ModelFile struct {
	Functions  []FunctionSpec `yaml:"functions"`
	Equations  []string       `yaml:"equations"`
	Channels   []ChannelSpec  `yaml:"channels"`
	Topologies []TopologySpec `yaml:"topologies,omitempty"`
	Hosts      []HostSpec     `yaml:"hosts"`
	// Metrics is an inline metrics table; MetricsFile points to a separate one.
	Metrics     *metrics.Table `yaml:"metrics,omitempty"`
	MetricsFile string         `yaml:"metrics_file,omitempty"`
	Versions    []VersionSpec  `yaml:"versions,omitempty"`

	// dir resolves MetricsFile; empty for models not loaded from disk.
	dir string
}

// FunctionSpec declares a function symbol.
type FunctionSpec struct {
	Name      string   `yaml:"name"`
	Arity     int      `yaml:"arity"`
	QopParams []string `yaml:"qop_params,omitempty"`
}

// ChannelSpec declares a channel. A nil Buffer means unlimited.
type ChannelSpec struct {
	Name     string `yaml:"name"`
	Buffer   *int   `yaml:"buffer,omitempty"`
	Topology string `yaml:"topology,omitempty"`
}

// TopologySpec is a named set of weighted links between hosts.
type TopologySpec struct {
	Name  string     `yaml:"name"`
	Links []LinkSpec `yaml:"links"`
}

// LinkSpec links two hosts. Endpoints are original host names (expanded to
// every repetition) or full instance names like Client.2.
type LinkSpec struct {
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	Quality       float64 `yaml:"quality"`
	Bidirectional bool    `yaml:"bidirectional,omitempty"`
}

// HostSpec declares a host. Instructions are the host's top-level
// instruction list; processes appear there as `process:` nodes.
type HostSpec struct {
	Name         string            `yaml:"name"`
	Scheduler    string            `yaml:"scheduler,omitempty"`
	Channels     []string          `yaml:"channels,omitempty"`
	Predefined   map[string]string `yaml:"predefined,omitempty"`
	Instructions []InstructionSpec `yaml:"instructions"`
}

// VersionSpec selects what one simulation run executes.
type VersionSpec struct {
	Name string    `yaml:"name"`
	Run  []RunSpec `yaml:"run"`
}

// RunSpec runs a host. Repetitions defaults to 1. RepeatedChannels get one
// clone per host repetition, shared with every other host repeated over the
// same channel. Processes selects and repeats processes; empty runs all of
// them once.
type RunSpec struct {
	Host             string           `yaml:"host"`
	Repetitions      int              `yaml:"repetitions,omitempty"`
	RepeatedChannels []string         `yaml:"repeated_channels,omitempty"`
	Processes        []ProcessRunSpec `yaml:"processes,omitempty"`
}

// ProcessRunSpec runs a process of the host. Subprocesses selects the
// subprocesses kept in the body; empty keeps all of them.
type ProcessRunSpec struct {
	Name             string   `yaml:"name"`
	Repetitions      int      `yaml:"repetitions,omitempty"`
	RepeatedChannels []string `yaml:"repeated_channels,omitempty"`
	Subprocesses     []string `yaml:"subprocesses,omitempty"`
}

// InstructionSpec is one node of an instruction list: a scalar statement in
// term syntax, or a mapping for compound instructions.
type InstructionSpec struct {
	Statement string

	If   string
	Then []InstructionSpec
	Else []InstructionSpec

	While string
	Do    []InstructionSpec

	Subprocess string
	Process    string
	Channels   []string
	Body       []InstructionSpec

	Line int
}

type rawInstruction struct {
	If         string            `yaml:"if"`
	Then       []InstructionSpec `yaml:"then"`
	Else       []InstructionSpec `yaml:"else"`
	While      string            `yaml:"while"`
	Do         []InstructionSpec `yaml:"do"`
	Subprocess string            `yaml:"subprocess"`
	Process    string            `yaml:"process"`
	Channels   []string          `yaml:"channels"`
	Body       []InstructionSpec `yaml:"body"`
}

// instructionShapes lists the keys of every compound form, keyed by the
// leading key.
var instructionShapes = map[string]map[string]bool{
	"if":         {"if": true, "then": true, "else": true},
	"while":      {"while": true, "do": true},
	"subprocess": {"subprocess": true, "body": true},
	"process":    {"process": true, "channels": true, "body": true},
}

// UnmarshalYAML decodes a statement or a compound mapping. Node.Decode does
// not inherit KnownFields, so keys are checked here.
func (s *InstructionSpec) UnmarshalYAML(node *yaml.Node) error {
	s.Line = node.Line
	switch node.Kind {
	case yaml.ScalarNode:
		s.Statement = node.Value
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: instruction must be a statement or a mapping", node.Line)
	}

	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	var shape map[string]bool
	var kind string
	for _, k := range keys {
		if allowed, ok := instructionShapes[k]; ok {
			if shape != nil {
				return fmt.Errorf("line %d: instruction mixes %q and %q", node.Line, kind, k)
			}
			shape, kind = allowed, k
		}
	}
	if shape == nil {
		return fmt.Errorf("line %d: unknown instruction with keys %v; valid: %v", node.Line, keys, validShapes())
	}
	for _, k := range keys {
		if !shape[k] {
			return fmt.Errorf("line %d: field %q not allowed in %s instruction", node.Line, k, kind)
		}
	}

	var raw rawInstruction
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.If, s.Then, s.Else = raw.If, raw.Then, raw.Else
	s.While, s.Do = raw.While, raw.Do
	s.Subprocess, s.Process, s.Channels, s.Body = raw.Subprocess, raw.Process, raw.Channels, raw.Body
	if kind == "if" && s.If == "" || kind == "while" && s.While == "" {
		return fmt.Errorf("line %d: %s instruction needs a condition", node.Line, kind)
	}
	if kind == "subprocess" && s.Subprocess == "" || kind == "process" && s.Process == "" {
		return fmt.Errorf("line %d: %s instruction needs a name", node.Line, kind)
	}
	return nil
}

func validShapes() []string {
	out := make([]string, 0, len(instructionShapes))
	for k := range instructionShapes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadModelFile reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	m, err := ParseModelFile(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseModelFile parses a YAML model.
func ParseModelFile(data []byte) (*ModelFile, error) {
	var m ModelFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}
	return &m, nil
}

// VersionNames returns the declared version names, or a single default
// version name when none are declared.
func (m *ModelFile) VersionNames() []string {
	if len(m.Versions) == 0 {
		return []string{DefaultVersion}
	}
	names := make([]string, len(m.Versions))
	for i, v := range m.Versions {
		names[i] = v.Name
	}
	return names
}

// DefaultVersion runs every host once with every process.
const DefaultVersion = "default"

// version returns the named version. The default version is synthesized
// when the file declares none.
func (m *ModelFile) version(name string) (*VersionSpec, error) {
	if len(m.Versions) == 0 && (name == "" || name == DefaultVersion) {
		v := &VersionSpec{Name: DefaultVersion}
		for _, h := range m.Hosts {
			v.Run = append(v.Run, RunSpec{Host: h.Name})
		}
		return v, nil
	}
	for i := range m.Versions {
		if m.Versions[i].Name == name {
			return &m.Versions[i], nil
		}
	}
	return nil, fmt.Errorf("unknown version %q; valid: %v", name, m.VersionNames())
}
