package graphir

import (
	"fmt"
	"strconv"
	"strings"
)

// Graph is a mutable directed dataflow graph. It is not safe for
// concurrent use: the rewriter is the sole writer for the duration of a
// pass (spec.md §5), and any external reader is expected to run strictly
// before or after, never during.
type Graph struct {
	nodes       []*Node
	byName      map[string]*Node
	consumersOf map[string][]*Node
	nameCounter int
	shapeTable  shapeTable
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	g := &Graph{
		byName:      map[string]*Node{},
		consumersOf: map[string][]*Node{},
	}
	return g
}

// NewGraphFromNodes builds a graph from an existing node slice and indexes
// it immediately.
func NewGraphFromNodes(nodes []*Node) *Graph {
	g := NewGraph()
	g.nodes = nodes
	g.Commit()
	return g
}

// Nodes returns the graph's current node list. Callers that intend to
// iterate while the rewriter mutates the graph should snapshot this slice
// first (the rewriter does; see rewrite/lstm.Rewrite).
func (g *Graph) Nodes() []*Node { return g.nodes }

// SetNodes replaces the graph's node list wholesale and rebuilds indices.
func (g *Graph) SetNodes(nodes []*Node) {
	g.nodes = nodes
	g.Commit()
}

// Commit recomputes the name and consumer indices. It is the analogue of
// the external graph library's update_proto: call it after any bulk
// mutation of the node list performed outside of AddNode.
func (g *Graph) Commit() {
	g.byName = make(map[string]*Node, len(g.nodes))
	g.consumersOf = make(map[string][]*Node, len(g.nodes)*2)
	for _, n := range g.nodes {
		g.byName[n.Name] = n
	}
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			g.consumersOf[in] = append(g.consumersOf[in], n)
		}
	}
}

// AddNode appends a node and keeps indices in sync.
func (g *Graph) AddNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.byName[n.Name] = n
	for _, in := range n.Inputs {
		g.consumersOf[in] = append(g.consumersOf[in], n)
	}
}

// NodeByName looks up a node by its unique name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// ProducerOf resolves a tensor id ("name:port") to the node that produces
// it.
func (g *Graph) ProducerOf(tensorID string) (*Node, bool) {
	name := producerName(tensorID)
	return g.NodeByName(name)
}

// ProducerName extracts the node name component of a "name:port" tensor
// id.
func ProducerName(tensorID string) string { return producerName(tensorID) }

// AllDimsKnown reports whether shape is non-empty and has no negative
// (unknown) dimension. Per spec.md §9's open question, the sequence-lens
// fast path is gated on this rather than on mere shape presence: a
// statically-known rank with an unknown batch dimension (-1) must still
// take the dynamic fallback.
func AllDimsKnown(shape []int) bool {
	if len(shape) == 0 {
		return false
	}
	for _, d := range shape {
		if d < 0 {
			return false
		}
	}
	return true
}

func producerName(tensorID string) string {
	if i := strings.LastIndex(tensorID, ":"); i >= 0 {
		if _, err := strconv.Atoi(tensorID[i+1:]); err == nil {
			return tensorID[:i]
		}
	}
	return tensorID
}

// ConsumersOf returns every node that references tensorID as an input.
// The returned slice must not be mutated by the caller.
func (g *Graph) ConsumersOf(tensorID string) []*Node {
	return g.consumersOf[tensorID]
}

// NodesWithPrefix returns every node whose Name begins with prefix, in
// graph order. Used by the loop-frame analyzer (C3) to enumerate "scope
// nodes" — the invariant is that a match's scope is a name prefix, and
// scope membership is a property of the whole graph, not just the nodes a
// pattern happened to bind.
func (g *Graph) NodesWithPrefix(prefix string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if strings.HasPrefix(n.Name, prefix) {
			out = append(out, n)
		}
	}
	return out
}

// MakeName allocates a unique node name with the given prefix, analogous
// to the external graph library's make_name. Names returned by MakeName
// are never reused and are distinct from any existing node name.
func (g *Graph) MakeName(prefix string) string {
	for {
		g.nameCounter++
		candidate := fmt.Sprintf("%s__%d", prefix, g.nameCounter)
		if _, exists := g.byName[candidate]; !exists {
			return candidate
		}
	}
}

// NewNode allocates and registers a synthesized node (one created by the
// current rewrite pass). It is appended to the graph's node list
// immediately so subsequent ConsumersOf/NodeByName calls see it.
func (g *Graph) NewNode(prefix, op string, inputs []string, numOutputs int, attrs map[string]any) *Node {
	name := g.MakeName(prefix)
	n := &Node{
		Name:        name,
		Op:          op,
		Inputs:      append([]string(nil), inputs...),
		Attrs:       attrs,
		synthesized: true,
	}
	n.Outputs = make([]string, numOutputs)
	for i := range n.Outputs {
		n.Outputs[i] = fmt.Sprintf("%s:%d", name, i)
	}
	g.AddNode(n)
	return n
}

// MakeConst creates a new Const node materializing val, analogous to the
// external graph library's make_const(name, ndarray, skip_conversion).
func (g *Graph) MakeConst(prefix string, val *TensorValue) *Node {
	return g.NewNode(prefix, OpConst, nil, 1, map[string]any{TensorValueAttr: val})
}

// shapes holds the static shapes the rewriter has recorded for tensor ids.
// A real framework would expose this via shape inference; here it is a
// plain side table the rewriter populates and queries, matching spec.md
// §6's copy_shape/set_shape contract.
type shapeTable = map[string][]int

func (g *Graph) shapes() shapeTable {
	if g.shapeTable == nil {
		g.shapeTable = shapeTable{}
	}
	return g.shapeTable
}

// CopyShape copies the recorded shape of src onto dst, if any.
func (g *Graph) CopyShape(src, dst string) {
	if s, ok := g.shapes()[src]; ok {
		g.shapes()[dst] = append([]int(nil), s...)
	}
}

// SetShape records a static shape for a tensor id.
func (g *Graph) SetShape(tensorID string, shape []int) {
	g.shapes()[tensorID] = append([]int(nil), shape...)
}

// Shape returns the recorded static shape for a tensor id, if known.
func (g *Graph) Shape(tensorID string) ([]int, bool) {
	s, ok := g.shapes()[tensorID]
	return s, ok
}

// ReplaceAllInputs rewrites every reference to tensor old into new across
// the given node set.
func (g *Graph) ReplaceAllInputs(nodes []*Node, old, new string) {
	for _, n := range nodes {
		g.ReplaceInput(n, old, new)
	}
}

// ReplaceInput rewrites every occurrence of tensor old in n's inputs to
// new, and keeps the consumer index in sync.
func (g *Graph) ReplaceInput(n *Node, old, new string) {
	changed := false
	for i, in := range n.Inputs {
		if in == old {
			n.Inputs[i] = new
			changed = true
		}
	}
	if !changed {
		return
	}
	// Keep the consumer index coherent: drop n from old's consumer list,
	// add it to new's.
	if cs := g.consumersOf[old]; cs != nil {
		filtered := cs[:0]
		for _, c := range cs {
			if c != n {
				filtered = append(filtered, c)
			}
		}
		g.consumersOf[old] = filtered
	}
	g.consumersOf[new] = append(g.consumersOf[new], n)
}

// Purge removes every node whose name starts with prefix, except those in
// keep (matched by pointer identity) and synthesized nodes — the scope
// cleanup from spec.md §4.7 step 5. It commits the resulting node list.
func (g *Graph) Purge(prefix string, keep map[*Node]bool) {
	out := g.nodes[:0:0]
	for _, n := range g.nodes {
		if strings.HasPrefix(n.Name, prefix) && !keep[n] && !n.synthesized {
			continue
		}
		out = append(out, n)
	}
	g.SetNodes(out)
}
