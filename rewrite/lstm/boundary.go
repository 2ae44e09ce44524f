package lstm

import "github.com/itohio/lstmfuse/graphir"

// FindBoundary implements C6 (spec.md §4.6): enumerate the scope's single
// inward data edge (the sequence input X, modulo a possible ReverseV2
// wrapper for a backward cell) and every outward edge (the connectors the
// splicer (C7) must later re-wire to the fused op's outputs), and detect
// the input's time-major vs. batch-major layout.
//
// The loop's own recurrent-state initializer tensors (kernel, bias,
// forget_bias, c-init, h-init/shared-init) are blacklisted from the
// inward-edge scan: they're already accounted for by the weights (C4) and
// loop-frame (C3) stages and must not be mistaken for the sequence input.
func FindBoundary(g *graphir.Graph, scope string, w *RnnWeights, init RnnInitializers) (*RnnProperties, error) {
	scopeNodes := g.NodesWithPrefix(scope)
	inScope := make(map[*graphir.Node]bool, len(scopeNodes))
	for _, n := range scopeNodes {
		inScope[n] = true
	}

	blacklist := map[string]bool{
		w.Kernel.Name:     true,
		w.Bias.Name:       true,
		w.ForgetBias.Name: true,
	}
	if init.IsTuple() {
		blacklist[graphir.ProducerName(init.CInitID)] = true
		blacklist[graphir.ProducerName(init.HInitID)] = true
	} else {
		blacklist[graphir.ProducerName(init.SharedInitID)] = true
	}

	type inwardEdge struct {
		producer *graphir.Node
		tensorID string
	}
	var inward []inwardEdge
	seen := map[string]bool{}
	for _, n := range scopeNodes {
		for _, in := range n.Inputs {
			producer, ok := g.ProducerOf(in)
			if !ok || inScope[producer] || blacklist[producer.Name] {
				continue
			}
			key := producer.Name + "|" + in
			if seen[key] {
				continue
			}
			seen[key] = true
			inward = append(inward, inwardEdge{producer, in})
		}
	}
	if len(inward) != 1 {
		return nil, ErrInputAmbiguous
	}
	edge := inward[0]

	props := &RnnProperties{
		InputNode: edge.producer,
		InputID:   edge.tensorID,
		XNode:     edge.tensorID,
	}

	if edge.producer.Op == graphir.OpReverseV2 {
		props.IsBackward = true
		if len(edge.producer.Inputs) == 0 {
			return nil, ErrInputXNotFound
		}
		props.XNode = edge.producer.Inputs[0]
	}

	seenConsumer := map[*graphir.Node]bool{}
	for _, n := range scopeNodes {
		for _, out := range n.Outputs {
			for _, c := range g.ConsumersOf(out) {
				if inScope[c] || seenConsumer[c] {
					continue
				}
				seenConsumer[c] = true
				props.Connectors = append(props.Connectors, c)
			}
		}
	}

	props.TimeMajor = true
	layoutSource := props.InputID
	if props.IsBackward {
		layoutSource = props.InputNode.Output(0)
	}
	for _, c := range g.ConsumersOf(layoutSource) {
		if !inScope[c] {
			continue
		}
		if c.Op != graphir.OpTranspose {
			continue
		}
		if perm, ok := c.Attrs["perm"].([]int); ok && equalInts(perm, []int{1, 0, 2}) {
			props.TimeMajor = false
		}
	}

	props.InputSize = w.InputSize
	props.HiddenSize = w.HiddenSize

	return props, nil
}

// StaticShape reports tensorID's recorded static shape and whether every
// dimension of it is known (spec.md §4.9's fast-path gate).
func StaticShape(g *graphir.Graph, tensorID string) ([]int, bool) {
	shape, ok := g.Shape(tensorID)
	if !ok {
		return nil, false
	}
	return shape, graphir.AllDimsKnown(shape)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
