package sim

import (
	"fmt"

	"github.com/san-kum/blocksim/internal/block"
)

// Connection wires an output port to an input port.
type Connection struct {
	SrcBlock string
	SrcPort  string
	DstBlock string
	DstPort  string
}

func (c Connection) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.SrcBlock, c.SrcPort, c.DstBlock, c.DstPort)
}

type portRef struct {
	block, port string
}

// Model is a named graph of blocks and connections.
type Model struct {
	name    string
	names   []string
	blocks  map[string]block.Block
	conns   []Connection
	writers map[portRef]int

	outputOrder []block.Block
	stateOrder  []block.Block
	built       bool
}

func NewModel(name string) *Model {
	return &Model{
		name:    name,
		blocks:  make(map[string]block.Block),
		writers: make(map[portRef]int),
	}
}

func (m *Model) Name() string { return m.name }

// AddBlock registers b under its name. Names are unique.
func (m *Model) AddBlock(b block.Block) error {
	if b == nil {
		return configErrorf("cannot add a nil block")
	}
	name := b.Name()
	if name == "" {
		return configErrorf("block name must not be empty")
	}
	if _, ok := m.blocks[name]; ok {
		return configErrorf("block '%s' already exists in model", name)
	}
	m.names = append(m.names, name)
	m.blocks[name] = b
	m.built = false
	return nil
}

// Connect wires src.srcPort to dst.dstPort. A destination port accepts a
// single writer.
func (m *Model) Connect(src, srcPort, dst, dstPort string) error {
	c := Connection{SrcBlock: src, SrcPort: srcPort, DstBlock: dst, DstPort: dstPort}
	if err := m.checkConnection(c); err != nil {
		return err
	}
	ref := portRef{dst, dstPort}
	if i, ok := m.writers[ref]; ok {
		return configErrorf("input '%s.%s' already driven by %s", dst, dstPort, m.conns[i])
	}
	m.writers[ref] = len(m.conns)
	m.conns = append(m.conns, c)
	m.built = false
	return nil
}

func (m *Model) checkConnection(c Connection) error {
	sb, ok := m.blocks[c.SrcBlock]
	if !ok {
		return configErrorf("unknown source block '%s' in connection %s", c.SrcBlock, c)
	}
	db, ok := m.blocks[c.DstBlock]
	if !ok {
		return configErrorf("unknown destination block '%s' in connection %s", c.DstBlock, c)
	}
	if !sb.Outputs().Has(c.SrcPort) {
		return configErrorf("block '%s' has no output port '%s' (outputs: %v)", c.SrcBlock, c.SrcPort, sb.Outputs().Names())
	}
	if !db.Inputs().Has(c.DstPort) {
		return configErrorf("block '%s' has no input port '%s' (inputs: %v)", c.DstBlock, c.DstPort, db.Inputs().Names())
	}
	return nil
}

// Validate re-checks every connection against the registered blocks.
func (m *Model) Validate() error {
	for _, c := range m.conns {
		if err := m.checkConnection(c); err != nil {
			return err
		}
	}
	return nil
}

// Block looks up a block by name.
func (m *Model) Block(name string) (block.Block, bool) {
	b, ok := m.blocks[name]
	return b, ok
}

// Blocks returns blocks in insertion order.
func (m *Model) Blocks() []block.Block {
	out := make([]block.Block, len(m.names))
	for i, n := range m.names {
		out[i] = m.blocks[n]
	}
	return out
}

// Connections returns connections in the order they were made.
func (m *Model) Connections() []Connection {
	out := make([]Connection, len(m.conns))
	copy(out, m.conns)
	return out
}

// Inbound returns the connections feeding block name.
func (m *Model) Inbound(name string) []Connection {
	var out []Connection
	for _, c := range m.conns {
		if c.DstBlock == name {
			out = append(out, c)
		}
	}
	return out
}

// Downstream returns the distinct blocks fed by block name, in connection
// order.
func (m *Model) Downstream(name string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range m.conns {
		if c.SrcBlock == name && !seen[c.DstBlock] {
			seen[c.DstBlock] = true
			out = append(out, c.DstBlock)
		}
	}
	return out
}

// ExecutionOrder returns the cached orders, building them if the model
// changed since the last call.
func (m *Model) ExecutionOrder() (outputOrder, stateOrder []block.Block, err error) {
	if !m.built {
		if _, _, err := m.BuildExecutionOrder(); err != nil {
			return nil, nil, err
		}
	}
	return m.outputOrder, m.stateOrder, nil
}

// BuildExecutionOrder computes the output-update order (stateful
// non-feedthrough blocks, then sources, then the remaining blocks in
// topological order) and the state-update order (every stateful block).
// A stateful block with direct feedthrough, such as a derivator, sorts with
// the remaining blocks, so a loop closed only through such blocks is
// reported as an algebraic loop.
func (m *Model) BuildExecutionOrder() (outputOrder, stateOrder []block.Block, err error) {
	var catA, catC, stateful []string
	var sources []block.Block
	inC := make(map[string]bool)
	isStateful := make(map[string]bool)

	for _, n := range m.names {
		b := m.blocks[n]
		st := block.IsStateful(b)
		isStateful[n] = st
		if st {
			stateful = append(stateful, n)
		}
		switch {
		case b.IsSource():
			sources = append(sources, b)
		case st && !b.DirectFeedthrough():
			catA = append(catA, n)
		default:
			catC = append(catC, n)
			inC[n] = true
		}
	}

	// State updates only read inputs, but a stateful feedthrough block may
	// consume another stateful block's current output.
	stateNames, left := m.kahn(stateful, func(c Connection) bool {
		return isStateful[c.SrcBlock] && isStateful[c.DstBlock] && m.blocks[c.DstBlock].DirectFeedthrough()
	})
	if len(left) > 0 {
		return nil, nil, &AlgebraicLoopError{Blocks: left}
	}

	combNames, left := m.kahn(catC, func(c Connection) bool {
		return inC[c.SrcBlock] && inC[c.DstBlock] && m.blocks[c.DstBlock].DirectFeedthrough()
	})
	if len(left) > 0 {
		return nil, nil, &AlgebraicLoopError{Blocks: left}
	}

	isA := make(map[string]bool, len(catA))
	for _, n := range catA {
		isA[n] = true
	}
	for _, n := range stateNames {
		if isA[n] {
			outputOrder = append(outputOrder, m.blocks[n])
		}
		stateOrder = append(stateOrder, m.blocks[n])
	}
	outputOrder = append(outputOrder, sources...)
	for _, n := range combNames {
		outputOrder = append(outputOrder, m.blocks[n])
	}

	m.outputOrder, m.stateOrder, m.built = outputOrder, stateOrder, true
	return outputOrder, stateOrder, nil
}

// kahn sorts nodes along the connections selected by constrains. Zero
// in-degree nodes are taken FIFO, seeded in insertion order. Nodes left on
// a cycle are returned in insertion order.
func (m *Model) kahn(nodes []string, constrains func(Connection) bool) (order, left []string) {
	member := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		member[n] = true
	}
	indeg := make(map[string]int, len(nodes))
	succ := make(map[string][]string, len(nodes))
	for _, c := range m.conns {
		if !member[c.SrcBlock] || !member[c.DstBlock] || !constrains(c) {
			continue
		}
		succ[c.SrcBlock] = append(succ[c.SrcBlock], c.DstBlock)
		indeg[c.DstBlock]++
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, d := range succ[n] {
			indeg[d]--
			if indeg[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}
	for _, n := range nodes {
		if indeg[n] > 0 {
			left = append(left, n)
		}
	}
	return order, left
}
