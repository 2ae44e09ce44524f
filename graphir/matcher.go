package graphir

// Match returns every binding of pattern against a snapshot of g's current
// node list (spec.md §4.2: "the rewriter snapshots the node list once
// before matching"). The matcher is tolerant to commutative reordering at
// nodes marked PatternNode.Commutative.
func Match(g *Graph, pattern *Pattern) []*Binding {
	interior := map[string]bool{}
	interiorBindNames(pattern.Root, interior)

	var out []*Binding
	snapshot := append([]*Node(nil), g.Nodes()...)
	for _, n := range snapshot {
		if n.Op != pattern.Root.Op {
			continue
		}
		vars := map[string]*Node{}
		if matchNode(g, pattern.Root, n, vars) {
			out = append(out, &Binding{Pattern: pattern.Name, vars: vars, interior: interior})
		}
	}
	return out
}

// MatchNode matches pattern node pn against concrete node n, recording
// bindings into vars. It is exported so a PatternNode.Custom closure can
// recurse into an inner sub-pattern.
func MatchNode(g *Graph, pn *PatternNode, n *Node, vars map[string]*Node) bool {
	return matchNode(g, pn, n, vars)
}

func matchNode(g *Graph, pn *PatternNode, n *Node, vars map[string]*Node) bool {
	if n == nil {
		return false
	}
	if pn.Custom != nil {
		return pn.Custom(g, n, vars)
	}
	if pn.Op != "" && n.Op != pn.Op {
		return false
	}

	if len(pn.Inputs) == 0 {
		if pn.Bind != "" {
			vars[pn.Bind] = n
		}
		return true
	}

	if len(n.Inputs) < len(pn.Inputs) {
		return false
	}

	identity := make([]int, len(pn.Inputs))
	for i := range identity {
		identity[i] = i
	}
	orders := [][]int{identity}
	if pn.Commutative && len(pn.Inputs) == 2 {
		orders = append(orders, []int{1, 0})
	}

	for _, order := range orders {
		trial := cloneVars(vars)
		ok := true
		for patIdx, nodeIdx := range order {
			producer, found := g.ProducerOf(n.Inputs[nodeIdx])
			if !found || !matchNode(g, pn.Inputs[patIdx], producer, trial) {
				ok = false
				break
			}
		}
		if ok {
			for k, v := range trial {
				vars[k] = v
			}
			if pn.Bind != "" {
				vars[pn.Bind] = n
			}
			return true
		}
	}
	return false
}

func cloneVars(vars map[string]*Node) map[string]*Node {
	out := make(map[string]*Node, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
