package graphir

// PatternNode is one node of a declarative subgraph template (spec.md
// §4.1, C1). A node with an empty Op matches any producer node and simply
// binds it — this is how pattern "leaf variables" (X, H, C, Kernel, Bias,
// ...) are expressed: they match whatever tensor flows into that
// position, regardless of the producing operator.
//
// Commutative marks a binary node (len(Inputs) == 2) whose two operands
// may appear in either order in the source graph; the matcher tries both
// orderings bounded to the handful of such nodes a cell pattern has
// (spec.md §9, "Commutative pattern matching").
type PatternNode struct {
	Op          string
	Bind        string
	Inputs      []*PatternNode
	Commutative bool

	// Custom, when set, fully overrides the Op/Inputs walk for this node:
	// MatchNode calls it instead, and it is responsible for its own
	// recursive matching and binding (typically via MatchNode against an
	// inner sub-pattern). This is the escape hatch for structural
	// variations the fixed Op/Inputs tree can't express on its own — such
	// as an optional extra operand spliced into an otherwise-fixed gate
	// pre-activation.
	Custom func(g *Graph, n *Node, vars map[string]*Node) bool
}

// Var constructs a leaf pattern node that matches any producer and binds
// it under name.
func Var(name string) *PatternNode {
	return &PatternNode{Bind: name}
}

// OpNode constructs an interior pattern node requiring the given operator
// type, with the given input sub-patterns. bind may be empty if the
// matched node doesn't need to be recorded in the binding.
func OpNode(bind, op string, inputs ...*PatternNode) *PatternNode {
	return &PatternNode{Op: op, Bind: bind, Inputs: inputs}
}

// Commutative constructs a binary interior pattern node where the two
// inputs may appear in either order in the source graph.
func Commutative(bind, op string, a, b *PatternNode) *PatternNode {
	return &PatternNode{Op: op, Bind: bind, Inputs: []*PatternNode{a, b}, Commutative: true}
}

// Pattern is a rooted pattern over the dataflow graph. Matching begins at
// Root and walks inward through producers.
type Pattern struct {
	Name string
	Root *PatternNode
}

// interiorBindNames collects the bind names of every non-leaf (Op != "")
// pattern node reachable from pn, for Binding.Scope()'s use. It is a
// static property of the pattern, not of any particular match.
func interiorBindNames(pn *PatternNode, out map[string]bool) {
	if pn == nil {
		return
	}
	if pn.Op != "" && pn.Bind != "" {
		out[pn.Bind] = true
	}
	for _, in := range pn.Inputs {
		interiorBindNames(in, out)
	}
}
