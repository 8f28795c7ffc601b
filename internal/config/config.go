package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	SchemaVersion = 1

	DefaultName = "model"
	DefaultDt   = 0.01
	DefaultT    = 10.0
)

// Project is the YAML description of a model and how to simulate it.
type Project struct {
	SchemaVersion int         `yaml:"schema_version"`
	Project       ProjectInfo `yaml:"project"`
	Simulation    Simulation  `yaml:"simulation"`
	Diagram       Diagram     `yaml:"diagram"`

	// Dir is the directory of the loaded file. Relative block parameters,
	// such as data file paths, resolve against it.
	Dir string `yaml:"-"`
}

type ProjectInfo struct {
	Name string `yaml:"name"`
}

type Simulation struct {
	Dt      float64        `yaml:"dt"`
	T       float64        `yaml:"T"`
	T0      float64        `yaml:"t0,omitempty"`
	Solver  string         `yaml:"solver,omitempty"`
	Clock   string         `yaml:"clock,omitempty"`
	Logging []string       `yaml:"logging,omitempty"`
	Plots   []Plot         `yaml:"plots,omitempty"`
	Metrics []MetricConfig `yaml:"metrics,omitempty"`
}

type Plot struct {
	Title   string   `yaml:"title,omitempty"`
	Signals []string `yaml:"signals"`
}

// MetricConfig attaches a run statistic to a logged signal.
type MetricConfig struct {
	Kind   string `yaml:"kind"`
	Signal string `yaml:"signal"`
}

type Diagram struct {
	Blocks      []BlockConfig `yaml:"blocks"`
	Connections []Connection  `yaml:"connections"`
}

type BlockConfig struct {
	Name       string         `yaml:"name"`
	Category   string         `yaml:"category"`
	Type       string         `yaml:"type"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// Connection holds a [source, destination] pair of "block.port" references.
type Connection struct {
	Ports []string `yaml:"ports,flow"`
}

func Connect(src, dst string) Connection {
	return Connection{Ports: []string{src, dst}}
}

// Endpoints splits the connection into block and port names.
func (c Connection) Endpoints() (srcBlock, srcPort, dstBlock, dstPort string, err error) {
	if len(c.Ports) != 2 {
		return "", "", "", "", errors.Errorf("config: connection must define 'ports: [src, dst]', got %v", c.Ports)
	}
	srcBlock, srcPort, err = SplitPortRef(c.Ports[0])
	if err != nil {
		return "", "", "", "", err
	}
	dstBlock, dstPort, err = SplitPortRef(c.Ports[1])
	if err != nil {
		return "", "", "", "", err
	}
	return srcBlock, srcPort, dstBlock, dstPort, nil
}

// SplitPortRef splits "block.port" at the last dot.
func SplitPortRef(ref string) (blockName, port string, err error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", errors.Errorf("config: invalid port reference %q, expected 'block.port'", ref)
	}
	return ref[:i], ref[i+1:], nil
}

func DefaultProject() *Project {
	return &Project{
		SchemaVersion: SchemaVersion,
		Project:       ProjectInfo{Name: DefaultName},
		Simulation: Simulation{
			Dt:     DefaultDt,
			T:      DefaultT,
			Solver: sim.SolverFixed,
			Clock:  sim.ClockInternal,
		},
	}
}

// Load reads and validates a project file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read project")
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(err, "config: resolve project directory")
	}
	p.Dir = abs
	return p, nil
}

// Parse decodes and validates a project document.
func Parse(data []byte) (*Project, error) {
	p := &Project{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "config: decode project")
	}
	if p.Project.Name == "" {
		p.Project.Name = DefaultName
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func Save(path string, p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "config: encode project")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "config: write project")
}

// SimulationConfig maps the simulation section onto the kernel settings.
func (p *Project) SimulationConfig() sim.Config {
	s := p.Simulation
	return sim.Config{
		Dt:      s.Dt,
		T:       s.T,
		T0:      s.T0,
		Solver:  s.Solver,
		Logging: append([]string(nil), s.Logging...),
		Clock:   s.Clock,
	}
}

func (p *Project) Validate() error {
	if p.SchemaVersion != SchemaVersion {
		return errors.Errorf("config: unsupported or missing 'schema_version': %d, expected %d", p.SchemaVersion, SchemaVersion)
	}
	if strings.TrimSpace(p.Project.Name) == "" {
		return errors.New("config: 'project.name' must be a non-empty string")
	}
	if p.Simulation.Dt == 0 || p.Simulation.T == 0 {
		return errors.New("config: missing required simulation parameters 'dt' and 'T'")
	}
	if err := p.SimulationConfig().Validate(); err != nil {
		return errors.Wrap(err, "config: simulation")
	}
	for i, plot := range p.Simulation.Plots {
		if len(plot.Signals) == 0 {
			return errors.Errorf("config: plot #%d is missing required field 'signals'", i)
		}
	}
	for i, m := range p.Simulation.Metrics {
		if m.Kind == "" || m.Signal == "" {
			return errors.Errorf("config: metric #%d must define 'kind' and 'signal'", i)
		}
	}

	seen := make(map[string]bool, len(p.Diagram.Blocks))
	for i, b := range p.Diagram.Blocks {
		if b.Name == "" || b.Category == "" || b.Type == "" {
			return errors.Errorf("config: block #%d must define 'name', 'category' and 'type'", i)
		}
		if seen[b.Name] {
			return errors.Errorf("config: duplicate block name '%s'", b.Name)
		}
		seen[b.Name] = true
	}
	for _, c := range p.Diagram.Connections {
		if _, _, _, _, err := c.Endpoints(); err != nil {
			return err
		}
	}
	return nil
}

// Block returns the configuration of the named block.
func (p *Project) Block(name string) (*BlockConfig, bool) {
	for i := range p.Diagram.Blocks {
		if p.Diagram.Blocks[i].Name == name {
			return &p.Diagram.Blocks[i], true
		}
	}
	return nil, false
}

// PlotSignals returns every plotted signal once, in plot order. Without
// plots it returns the logged signals.
func (p *Project) PlotSignals() []string {
	if len(p.Simulation.Plots) == 0 {
		return append([]string(nil), p.Simulation.Logging...)
	}
	seen := make(map[string]bool)
	var out []string
	for _, plot := range p.Simulation.Plots {
		for _, s := range plot.Signals {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
