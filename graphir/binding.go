package graphir

import "strings"

// Binding is a match binding: a mapping from pattern variable/interior
// node names to the concrete nodes they matched (spec.md §3, "Match
// binding").
type Binding struct {
	Pattern string
	vars    map[string]*Node
	scope   string

	// interior names the subset of vars that come from non-leaf pattern
	// nodes (Op != ""). Leaf variables (X, H, C, Kernel, Bias, ...) are
	// allowed to live outside the matched loop's scope — they're captured
	// constants or externally-threaded state — so Scope() is computed
	// from interior nodes only; including leaves would pull the scope
	// prefix out to whatever common ancestor directory also holds every
	// captured constant, which is too coarse once more than one cell
	// shares that ancestor (spec.md §9, stacked/multi-cell graphs).
	interior map[string]bool
}

// Lookup returns the node bound to the given pattern name.
func (b *Binding) Lookup(name string) (*Node, bool) {
	n, ok := b.vars[name]
	return n, ok
}

// MustLookup returns the node bound to name, panicking if absent — used
// where the pattern guarantees the binding exists and a missing one would
// indicate a programmer error in the pattern definition itself.
func (b *Binding) MustLookup(name string) *Node {
	n, ok := b.vars[name]
	if !ok {
		panic("graphir: pattern binding missing required variable " + name)
	}
	return n
}

// Nodes returns every node this binding captured (both leaf variables and
// named interior nodes), in no particular order.
func (b *Binding) Nodes() []*Node {
	out := make([]*Node, 0, len(b.vars))
	for _, n := range b.vars {
		out = append(out, n)
	}
	return out
}

// Scope is the common "/"-separated name prefix of every interior node
// this binding captured (of every captured node if none is interior) —
// the unit-of-rewrite scope string from spec.md §3.
// It is computed once and cached on the binding.
func (b *Binding) Scope() string {
	if b.scope != "" {
		return b.scope
	}
	nodes := b.interiorNodes()
	if len(nodes) == 0 {
		nodes = b.Nodes()
	}
	if len(nodes) == 0 {
		return ""
	}
	prefix := longestCommonPrefix(nodes)
	// Trim back to the last complete "/" segment so the scope is a
	// directory-like prefix rather than a partial identifier fragment.
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		prefix = ""
	}
	b.scope = prefix
	return b.scope
}

func (b *Binding) interiorNodes() []*Node {
	out := make([]*Node, 0, len(b.vars))
	for name, n := range b.vars {
		if b.interior[name] {
			out = append(out, n)
		}
	}
	return out
}

func longestCommonPrefix(nodes []*Node) string {
	prefix := nodes[0].Name
	for _, n := range nodes[1:] {
		prefix = commonPrefix(prefix, n.Name)
		if prefix == "" {
			return ""
		}
	}
	return prefix
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
