package block

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ports is an ordered set of named ports. A nil value means the port is unset.
type Ports struct {
	names  []string
	values map[string]*mat.Dense
}

func NewPorts(names ...string) *Ports {
	p := &Ports{values: make(map[string]*mat.Dense, len(names))}
	for _, n := range names {
		p.Declare(n)
	}
	return p
}

// Declare adds a port. Declaring an existing port is a no-op.
func (p *Ports) Declare(name string) {
	if _, ok := p.values[name]; ok {
		return
	}
	p.names = append(p.names, name)
	p.values[name] = nil
}

func (p *Ports) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Names returns port names in declaration order.
func (p *Ports) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Ports) Len() int { return len(p.names) }

func (p *Ports) Get(name string) *mat.Dense {
	return p.values[name]
}

// Set stores v on a declared port. Setting an undeclared port panics.
func (p *Ports) Set(name string, v *mat.Dense) {
	if _, ok := p.values[name]; !ok {
		panic(fmt.Sprintf("block: set on undeclared port %q", name))
	}
	p.values[name] = v
}

// Clear unsets every port.
func (p *Ports) Clear() {
	for _, n := range p.names {
		p.values[n] = nil
	}
}
