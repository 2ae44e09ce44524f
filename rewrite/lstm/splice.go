package lstm

import (
	"strings"

	"github.com/itohio/lstmfuse/graphir"
)

// Splice implements C7 (spec.md §4.7): materialize the fused weight/bias
// constants, build the sequence-length and initial-state inputs, emit the
// fused LSTM node, re-wire every external connector onto its outputs, and
// purge the now-dead loop scope.
func Splice(g *graphir.Graph, b *graphir.Binding, frame *LoopFrame, props *RnnProperties, w *RnnWeights) error {
	h := w.HiddenSize
	scope := frame.Scope
	keep := map[*graphir.Node]bool{}

	Wt, Rt, Bt := TransformLayout(w)
	wNode := g.MakeConst(scope+"w_fused", Wt)
	rNode := g.MakeConst(scope+"r_fused", Rt)
	bNode := g.MakeConst(scope+"b_fused", Bt)
	keep[wNode], keep[rNode], keep[bNode] = true, true, true

	// The fused op always takes a time-major X; a batch-major input gets
	// its scope-internal [1,0,2] transpose re-created outside the scope
	// (the old one is purged with everything else).
	fusedX := props.XNode
	if !props.TimeMajor {
		xT := g.NewNode(scope+"x_time_major", graphir.OpTranspose, []string{props.XNode}, 1, map[string]any{"perm": []int{1, 0, 2}})
		if shape, ok := g.Shape(props.XNode); ok && len(shape) == 3 {
			g.SetShape(xT.Output(0), []int{shape[1], shape[0], shape[2]})
		}
		fusedX = xT.Output(0)
	}

	seqLenID, seqLenNodes := buildSequenceLens(g, scope, fusedX)
	for _, n := range seqLenNodes {
		keep[n] = true
	}

	h0ID, c0ID, initNodes := buildInitialStates(g, scope, frame.Initializers, h)
	for _, n := range initNodes {
		keep[n] = true
	}

	direction := "forward"
	if props.IsBackward {
		direction = "reverse"
	}

	lstmNode := g.NewNode(scope+"lstm", graphir.OpLSTM,
		[]string{fusedX, wNode.Output(0), rNode.Output(0), bNode.Output(0), seqLenID, h0ID, c0ID},
		3,
		map[string]any{"direction": direction, "hidden_size": h},
	)
	keep[lstmNode] = true

	yRaw, yHRaw, yCRaw := lstmNode.Output(0), lstmNode.Output(1), lstmNode.Output(2)

	// The fused op's Y carries an extra num_directions axis
	// ([seq_length, num_directions, batch, hidden]) that no per-step
	// consumer outside the scope ever expected; squeeze it away before
	// any batch-major transpose or rewiring (spec.md §4.7 step 4).
	ySqueeze := g.NewNode(scope+"y_squeeze", graphir.OpSqueeze, []string{yRaw}, 1, map[string]any{"axis": 1})
	keep[ySqueeze] = true
	yID := ySqueeze.Output(0)
	if !props.TimeMajor {
		yBack := g.NewNode(scope+"y_batch_major", graphir.OpTranspose, []string{yID}, 1, map[string]any{"perm": []int{1, 0, 2}})
		keep[yBack] = true
		yID = yBack.Output(0)
	}

	perStepOutputID := b.MustLookup("new_h").Output(0)
	cExitID, hExitID := frame.ExitByRole["c"], frame.ExitByRole["h"]

	var sharedExitID string
	var sharedExitOnce bool
	soloExit := map[string]string{}
	squeezeSolo := func(role, raw string) string {
		if id, ok := soloExit[role]; ok {
			return id
		}
		n := g.NewNode(scope+"exit_"+role+"_squeeze", graphir.OpSqueeze, []string{raw}, 1, map[string]any{"axis": 0})
		keep[n] = true
		soloExit[role] = n.Output(0)
		return soloExit[role]
	}

	// A Pack node stacking both tuple exits (tf.nn.rnn_cell.LSTMStateTuple
	// consumed via tf.stack) needs its own two-level rewiring: its inputs
	// take sliced (not squeezed) c/h outputs, and its own output's
	// consumers are redirected to a squeeze downstream of Pack itself,
	// since feeding it rank-3 slices bumps Pack's own output rank by one
	// (spec.md §4.7 step 4; unit_rewriter_base.py's
	// connect_rnn_with_tupled_ch_consumer_nodes).
	handledPack := map[*graphir.Node]bool{}
	if cExitID != "" && hExitID != "" {
		for _, consumer := range props.Connectors {
			if consumer.Op != graphir.OpPack || len(consumer.Inputs) != 2 {
				continue
			}
			var hasC, hasH bool
			for _, in := range consumer.Inputs {
				hasC = hasC || in == cExitID
				hasH = hasH || in == hExitID
			}
			if !hasC || !hasH {
				continue
			}

			cSlice := g.NewNode(scope+"pack_c_slice", graphir.OpSlice, []string{yCRaw}, 1, map[string]any{"axis": 0, "starts": []int{0}, "ends": []int{1}})
			hSlice := g.NewNode(scope+"pack_h_slice", graphir.OpSlice, []string{yHRaw}, 1, map[string]any{"axis": 0, "starts": []int{0}, "ends": []int{1}})
			keep[cSlice], keep[hSlice] = true, true
			g.ReplaceInput(consumer, cExitID, cSlice.Output(0))
			g.ReplaceInput(consumer, hExitID, hSlice.Output(0))

			packConsumers := append([]*graphir.Node(nil), g.ConsumersOf(consumer.Output(0))...)
			packSqueeze := g.NewNode(scope+"pack_squeeze", graphir.OpSqueeze, []string{consumer.Output(0)}, 1, map[string]any{"axis": 1})
			keep[packSqueeze] = true
			g.ReplaceAllInputs(packConsumers, consumer.Output(0), packSqueeze.Output(0))

			handledPack[consumer] = true
		}
	}

	for _, consumer := range props.Connectors {
		if handledPack[consumer] {
			continue
		}
		for _, in := range consumer.Inputs {
			switch {
			case in == perStepOutputID && props.IsBackward && consumer.Op == graphir.OpReverseV2:
				// direction="reverse" already produces correctly-ordered
				// output; the external ReverseV2 wrapping the old per-step
				// read becomes redundant. Bypass its input and redirect its
				// own output's consumers onto the adapted Y (spec.md §4.7
				// step 4; unit_rewriter_base.py's reverse-direction branch
				// of process_output_connectors).
				g.ReplaceInput(consumer, in, yID)
				g.ReplaceAllInputs(g.Nodes(), consumer.Output(0), yID)
			case in == perStepOutputID:
				g.ReplaceInput(consumer, in, yID)
			case in == cExitID:
				g.ReplaceInput(consumer, in, squeezeSolo("c", yCRaw))
			case in == hExitID:
				g.ReplaceInput(consumer, in, squeezeSolo("h", yHRaw))
			case in == frame.ExitByRole["shared"]:
				if !sharedExitOnce {
					sharedExitID = buildSharedExit(g, scope, yHRaw, yCRaw)
					sharedExitOnce = true
				}
				g.ReplaceInput(consumer, in, sharedExitID)
			case strings.HasPrefix(graphir.ProducerName(in), scope):
				panicUnclassified("connector %q consumes unrecognized in-scope tensor %q", consumer.Name, in)
			}
		}
	}

	g.Purge(scope, keep)
	return nil
}

// buildSequenceLens implements the length-tensor half of C7: a statically
// known, all-dims-known time-major shape takes the fast path (a single
// materialized constant); anything else falls back to a small
// Shape/Cast/Slice/Tile chain computed from the tensor itself at runtime
// (spec.md §9's sequence-length shape-gating redesign).
func buildSequenceLens(g *graphir.Graph, scope string, fusedX string) (string, []*graphir.Node) {
	if shape, ok := StaticShape(g, fusedX); ok && len(shape) == 3 {
		t, batch := shape[0], shape[1]
		data := make([]int32, batch)
		for i := range data {
			data[i] = int32(t)
		}
		node := g.MakeConst(scope+"seq_lens", graphir.NewInt32Tensor([]int{batch}, data))
		return node.Output(0), []*graphir.Node{node}
	}

	shapeNode := g.NewNode(scope+"x_shape", graphir.OpShape, []string{fusedX}, 1, nil)
	tSlice := g.NewNode(scope+"x_shape_t", graphir.OpSlice, []string{shapeNode.Output(0)}, 1, map[string]any{"starts": []int{0}, "ends": []int{1}})
	bSlice := g.NewNode(scope+"x_shape_b", graphir.OpSlice, []string{shapeNode.Output(0)}, 1, map[string]any{"starts": []int{1}, "ends": []int{2}})
	tCast := g.NewNode(scope+"seq_lens_cast", graphir.OpCast, []string{tSlice.Output(0)}, 1, map[string]any{"to": "int32"})
	tiled := g.NewNode(scope+"seq_lens_tile", graphir.OpTile, []string{tCast.Output(0), bSlice.Output(0)}, 1, nil)
	return tiled.Output(0), []*graphir.Node{shapeNode, tSlice, bSlice, tCast, tiled}
}

// buildInitialStates implements the initial-state half of C7 (spec.md
// §4.7 step 2): the tuple form adds a singleton num_directions axis to
// each of the c/h initializers independently (materializing a new
// constant when the source is already constant, otherwise an Unsqueeze
// node); the shared form first splits the combined [B, 2H] initializer
// into its h and c halves, then unsqueezes each.
func buildInitialStates(g *graphir.Graph, scope string, init RnnInitializers, hidden int) (h0ID, c0ID string, nodes []*graphir.Node) {
	if init.IsTuple() {
		var hID, cID string
		var hNodes, cNodes []*graphir.Node
		hID, hNodes = unsqueezeInitializer(g, scope+"h0", init.HInitID)
		cID, cNodes = unsqueezeInitializer(g, scope+"c0", init.CInitID)
		return hID, cID, append(hNodes, cNodes...)
	}

	hSlice := g.NewNode(scope+"h0_slice", graphir.OpSlice, []string{init.SharedInitID}, 1,
		map[string]any{"axis": 1, "starts": []int{0}, "ends": []int{hidden}})
	cSlice := g.NewNode(scope+"c0_slice", graphir.OpSlice, []string{init.SharedInitID}, 1,
		map[string]any{"axis": 1, "starts": []int{hidden}, "ends": []int{2 * hidden}})
	hUnsq := g.NewNode(scope+"h0_unsqueeze", graphir.OpUnsqueeze, []string{hSlice.Output(0)}, 1, map[string]any{"axis": 0})
	cUnsq := g.NewNode(scope+"c0_unsqueeze", graphir.OpUnsqueeze, []string{cSlice.Output(0)}, 1, map[string]any{"axis": 0})
	return hUnsq.Output(0), cUnsq.Output(0), []*graphir.Node{hSlice, cSlice, hUnsq, cUnsq}
}

func unsqueezeInitializer(g *graphir.Graph, prefix, tensorID string) (string, []*graphir.Node) {
	if producer, ok := g.ProducerOf(tensorID); ok && producer.IsConst() {
		val := producer.GetTensorValue()
		if val != nil {
			reshaped := val.Reshape(append([]int{1}, val.Shape()...)...)
			node := g.MakeConst(prefix, reshaped)
			return node.Output(0), []*graphir.Node{node}
		}
	}
	node := g.NewNode(prefix, graphir.OpUnsqueeze, []string{tensorID}, 1, map[string]any{"axis": 0})
	return node.Output(0), []*graphir.Node{node}
}

// buildSharedExit reassembles a combined [B, 2H] exit tensor from the
// fused op's separate y_h/y_c outputs, for the (rare) non-tuple variant
// whose caller expects the old combined-state shape back.
func buildSharedExit(g *graphir.Graph, scope, yHID, yCID string) string {
	hSq := g.NewNode(scope+"exit_h_squeeze", graphir.OpSqueeze, []string{yHID}, 1, map[string]any{"axis": 0})
	cSq := g.NewNode(scope+"exit_c_squeeze", graphir.OpSqueeze, []string{yCID}, 1, map[string]any{"axis": 0})
	combined := g.NewNode(scope+"exit_hc", graphir.OpConcat, []string{hSq.Output(0), cSq.Output(0)}, 1, map[string]any{"axis": 1})
	return combined.Output(0)
}
