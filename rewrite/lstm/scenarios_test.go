package lstm_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/itohio/lstmfuse/graphir"
	"github.com/itohio/lstmfuse/rewrite/lstm"
)

// buildBatchMajorLSTMGraph is buildBasicLSTMGraph's batch-major twin
// (spec.md §8 scenario 4): the external sequence input is [batch, steps,
// input], and an in-scope Transpose([1,0,2]) feeds the time-major tensor
// the cell body actually consumes.
func buildBatchMajorLSTMGraph(t *testing.T) *graphir.Graph {
	t.Helper()
	const (
		batch  = 2
		steps  = 3
		input  = 2
		hidden = 2
	)

	node := func(name, op string, inputs []string, numOutputs int, attrs map[string]any) *graphir.Node {
		n := &graphir.Node{Name: name, Op: op, Inputs: inputs, Attrs: attrs}
		n.Outputs = make([]string, numOutputs)
		for i := range n.Outputs {
			n.Outputs[i] = name + ":" + string(rune('0'+i))
		}
		return n
	}

	kernelData := make([]float32, (input+hidden)*4*hidden)
	biasData := make([]float32, 4*hidden)

	extKernel := node("rnn/kernel", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{input + hidden, 4 * hidden}, kernelData)})
	extBias := node("rnn/bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{4 * hidden}, biasData)})
	extForgetBias := node("rnn/forget_bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{1}, []float32{1.0})})
	extCInit := node("rnn/c_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extHInit := node("rnn/h_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extX := node("rnn/x_full", "Placeholder", nil, 1, nil)

	xTimeMajor := node("rnn/while/to_time_major", graphir.OpTranspose, []string{extX.Output(0)}, 1, map[string]any{"perm": []int{1, 0, 2}})

	loopCond := node("rnn/while/LoopCond", graphir.OpLoopCond, nil, 1, nil)
	enterC := node("rnn/while/Enter_c", graphir.OpEnter, []string{extCInit.Output(0)}, 1, nil)
	enterH := node("rnn/while/Enter_h", graphir.OpEnter, []string{extHInit.Output(0)}, 1, nil)

	mergeC := &graphir.Node{Name: "rnn/while/Merge_c", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_c:0"}}
	mergeH := &graphir.Node{Name: "rnn/while/Merge_h", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_h:0"}}
	switchC := node("rnn/while/Switch_c", graphir.OpSwitch, []string{mergeC.Output(0), loopCond.Output(0)}, 2, nil)
	switchH := node("rnn/while/Switch_h", graphir.OpSwitch, []string{mergeH.Output(0), loopCond.Output(0)}, 2, nil)
	identityC := node("rnn/while/Identity_c", graphir.OpIdentity, []string{switchC.Output(1)}, 1, nil)
	identityH := node("rnn/while/Identity_h", graphir.OpIdentity, []string{switchH.Output(1)}, 1, nil)

	concat := node("rnn/while/concat", graphir.OpConcat, []string{xTimeMajor.Output(0), identityH.Output(0)}, 1, nil)
	matmul := node("rnn/while/MatMul", "MatMul", []string{concat.Output(0), extKernel.Output(0)}, 1, nil)
	biasAdd := node("rnn/while/BiasAdd", "BiasAdd", []string{matmul.Output(0), extBias.Output(0)}, 1, nil)
	split := node("rnn/while/Split", graphir.OpSplit, []string{biasAdd.Output(0)}, 4, map[string]any{"num_split": 4})

	fPlusBias := node("rnn/while/f_plus_bias", "Add", []string{split.Output(0), extForgetBias.Output(0)}, 1, nil)
	fSig := node("rnn/while/f_sig", "Sigmoid", []string{fPlusBias.Output(0)}, 1, nil)
	iSig := node("rnn/while/i_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)
	jTanh := node("rnn/while/j_tanh", "Tanh", []string{split.Output(0)}, 1, nil)
	oSig := node("rnn/while/o_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)

	fc := node("rnn/while/fc", "Mul", []string{fSig.Output(0), identityC.Output(0)}, 1, nil)
	ij := node("rnn/while/ij", "Mul", []string{iSig.Output(0), jTanh.Output(0)}, 1, nil)
	newC := node("rnn/while/add_new_c", "Add", []string{fc.Output(0), ij.Output(0)}, 1, nil)
	newCTanh := node("rnn/while/new_c_tanh", "Tanh", []string{newC.Output(0)}, 1, nil)
	newH := node("rnn/while/new_h", "Mul", []string{newCTanh.Output(0), oSig.Output(0)}, 1, nil)

	nextIterC := node("rnn/while/NextIteration_c", graphir.OpNextIter, []string{newC.Output(0)}, 1, nil)
	nextIterH := node("rnn/while/NextIteration_h", graphir.OpNextIter, []string{newH.Output(0)}, 1, nil)
	mergeC.Inputs = []string{enterC.Output(0), nextIterC.Output(0)}
	mergeH.Inputs = []string{enterH.Output(0), nextIterH.Output(0)}

	exitC := node("rnn/exit_c", "Exit", []string{switchC.Output(0)}, 1, nil)
	exitH := node("rnn/exit_h", "Exit", []string{switchH.Output(0)}, 1, nil)
	taGather := node("rnn/ta_gather", graphir.OpTensorGath, []string{newH.Output(0)}, 1, nil)

	g := graphir.NewGraphFromNodes([]*graphir.Node{
		extKernel, extBias, extForgetBias, extCInit, extHInit, extX,
		xTimeMajor,
		loopCond, enterC, enterH, mergeC, mergeH, switchC, switchH, identityC, identityH,
		concat, matmul, biasAdd, split,
		fPlusBias, fSig, iSig, jTanh, oSig,
		fc, ij, newC, newCTanh, newH,
		nextIterC, nextIterH,
		exitC, exitH, taGather,
	})
	g.SetShape(extX.Output(0), []int{batch, steps, input})
	return g
}

func TestRewriteBatchMajorLayout(t *testing.T) {
	g := buildBatchMajorLSTMGraph(t)

	fused, err := lstm.Rewrite(g, lstm.DefaultVariants(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, fused)

	var lstmNode *graphir.Node
	for _, n := range g.Nodes() {
		if n.Op == graphir.OpLSTM {
			lstmNode = n
		}
	}
	require.NotNil(t, lstmNode)

	gather, ok := g.NodeByName("rnn/ta_gather")
	require.True(t, ok)

	// The per-step gather must read through Transpose([1,0,2]) ->
	// Squeeze(axis=1) -> raw Y, in that order, not the other way around —
	// a batch-major transpose of a still-rank-4 tensor is dimensionally
	// incoherent.
	yBack, ok := g.ProducerOf(gather.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpTranspose, yBack.Op)
	require.Equal(t, []int{1, 0, 2}, yBack.Attrs["perm"])

	ySqueeze, ok := g.ProducerOf(yBack.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpSqueeze, ySqueeze.Op)
	require.Equal(t, 1, ySqueeze.Attrs["axis"])
	require.Equal(t, lstmNode.Output(0), ySqueeze.Inputs[0])
}

// buildReverseLSTMGraph constructs a backward (reverse-direction) tuple
// scenario (spec.md §8 scenario 5): the external sequence input is wrapped
// in a ReverseV2 outside the scope, and the per-step Y output is read back
// through a second, distinct ReverseV2 that un-reverses it for consumers —
// redundant once the fused op's own direction="reverse" already produces
// correctly-ordered output.
func buildReverseLSTMGraph(t *testing.T) *graphir.Graph {
	t.Helper()
	const (
		batch  = 2
		steps  = 3
		input  = 2
		hidden = 2
	)

	node := func(name, op string, inputs []string, numOutputs int, attrs map[string]any) *graphir.Node {
		n := &graphir.Node{Name: name, Op: op, Inputs: inputs, Attrs: attrs}
		n.Outputs = make([]string, numOutputs)
		for i := range n.Outputs {
			n.Outputs[i] = name + ":" + string(rune('0'+i))
		}
		return n
	}

	kernelData := make([]float32, (input+hidden)*4*hidden)
	biasData := make([]float32, 4*hidden)

	extKernel := node("rnn/kernel", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{input + hidden, 4 * hidden}, kernelData)})
	extBias := node("rnn/bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{4 * hidden}, biasData)})
	extForgetBias := node("rnn/forget_bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{1}, []float32{1.0})})
	extCInit := node("rnn/c_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extHInit := node("rnn/h_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extX := node("rnn/x_full", "Placeholder", nil, 1, nil)
	reverseX := node("rnn/reverse_x", graphir.OpReverseV2, []string{extX.Output(0)}, 1, nil)

	loopCond := node("rnn/while/LoopCond", graphir.OpLoopCond, nil, 1, nil)
	enterC := node("rnn/while/Enter_c", graphir.OpEnter, []string{extCInit.Output(0)}, 1, nil)
	enterH := node("rnn/while/Enter_h", graphir.OpEnter, []string{extHInit.Output(0)}, 1, nil)

	mergeC := &graphir.Node{Name: "rnn/while/Merge_c", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_c:0"}}
	mergeH := &graphir.Node{Name: "rnn/while/Merge_h", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_h:0"}}
	switchC := node("rnn/while/Switch_c", graphir.OpSwitch, []string{mergeC.Output(0), loopCond.Output(0)}, 2, nil)
	switchH := node("rnn/while/Switch_h", graphir.OpSwitch, []string{mergeH.Output(0), loopCond.Output(0)}, 2, nil)
	identityC := node("rnn/while/Identity_c", graphir.OpIdentity, []string{switchC.Output(1)}, 1, nil)
	identityH := node("rnn/while/Identity_h", graphir.OpIdentity, []string{switchH.Output(1)}, 1, nil)

	concat := node("rnn/while/concat", graphir.OpConcat, []string{reverseX.Output(0), identityH.Output(0)}, 1, nil)
	matmul := node("rnn/while/MatMul", "MatMul", []string{concat.Output(0), extKernel.Output(0)}, 1, nil)
	biasAdd := node("rnn/while/BiasAdd", "BiasAdd", []string{matmul.Output(0), extBias.Output(0)}, 1, nil)
	split := node("rnn/while/Split", graphir.OpSplit, []string{biasAdd.Output(0)}, 4, map[string]any{"num_split": 4})

	fPlusBias := node("rnn/while/f_plus_bias", "Add", []string{split.Output(0), extForgetBias.Output(0)}, 1, nil)
	fSig := node("rnn/while/f_sig", "Sigmoid", []string{fPlusBias.Output(0)}, 1, nil)
	iSig := node("rnn/while/i_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)
	jTanh := node("rnn/while/j_tanh", "Tanh", []string{split.Output(0)}, 1, nil)
	oSig := node("rnn/while/o_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)

	fc := node("rnn/while/fc", "Mul", []string{fSig.Output(0), identityC.Output(0)}, 1, nil)
	ij := node("rnn/while/ij", "Mul", []string{iSig.Output(0), jTanh.Output(0)}, 1, nil)
	newC := node("rnn/while/add_new_c", "Add", []string{fc.Output(0), ij.Output(0)}, 1, nil)
	newCTanh := node("rnn/while/new_c_tanh", "Tanh", []string{newC.Output(0)}, 1, nil)
	newH := node("rnn/while/new_h", "Mul", []string{newCTanh.Output(0), oSig.Output(0)}, 1, nil)

	nextIterC := node("rnn/while/NextIteration_c", graphir.OpNextIter, []string{newC.Output(0)}, 1, nil)
	nextIterH := node("rnn/while/NextIteration_h", graphir.OpNextIter, []string{newH.Output(0)}, 1, nil)
	mergeC.Inputs = []string{enterC.Output(0), nextIterC.Output(0)}
	mergeH.Inputs = []string{enterH.Output(0), nextIterH.Output(0)}

	exitC := node("rnn/exit_c", "Exit", []string{switchC.Output(0)}, 1, nil)
	exitH := node("rnn/exit_h", "Exit", []string{switchH.Output(0)}, 1, nil)

	reverseY := node("rnn/reverse_y", graphir.OpReverseV2, []string{newH.Output(0)}, 1, nil)
	ySink := node("rnn/y_sink", graphir.OpIdentity, []string{reverseY.Output(0)}, 1, nil)

	g := graphir.NewGraphFromNodes([]*graphir.Node{
		extKernel, extBias, extForgetBias, extCInit, extHInit, extX, reverseX,
		loopCond, enterC, enterH, mergeC, mergeH, switchC, switchH, identityC, identityH,
		concat, matmul, biasAdd, split,
		fPlusBias, fSig, iSig, jTanh, oSig,
		fc, ij, newC, newCTanh, newH,
		nextIterC, nextIterH,
		exitC, exitH, reverseY, ySink,
	})
	g.SetShape(extX.Output(0), []int{steps, batch, input})
	return g
}

func TestRewriteReverseDirection(t *testing.T) {
	g := buildReverseLSTMGraph(t)

	fused, err := lstm.Rewrite(g, lstm.DefaultVariants(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, fused)

	var lstmNode *graphir.Node
	for _, n := range g.Nodes() {
		if n.Op == graphir.OpLSTM {
			lstmNode = n
		}
	}
	require.NotNil(t, lstmNode)
	require.Equal(t, "reverse", lstmNode.Attrs["direction"])
	// direction="reverse" consumes the original (non-reversed) sequence
	// directly; the pre-loop ReverseV2 is bypassed rather than fused in.
	require.Equal(t, "rnn/x_full:0", lstmNode.Inputs[0])

	ySink, ok := g.NodeByName("rnn/y_sink")
	require.True(t, ok)

	// The redundant post-loop ReverseV2 no longer feeds the sink: its own
	// output's consumer is redirected straight onto the squeezed Y.
	ySqueeze, ok := g.ProducerOf(ySink.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpSqueeze, ySqueeze.Op)
	require.Equal(t, 1, ySqueeze.Attrs["axis"])
	require.Equal(t, lstmNode.Output(0), ySqueeze.Inputs[0])

	reverseY, ok := g.NodeByName("rnn/reverse_y")
	require.True(t, ok)
	require.Empty(t, g.ConsumersOf(reverseY.Output(0)))
}

// buildPackLSTMGraph is buildBasicLSTMGraph's Pack-tuple-consumer twin
// (spec.md §8 scenario 6): an external Pack node stacks the tuple's two
// Exit-branch tensors instead of two independent consumers each reading
// one of them.
func buildPackLSTMGraph(t *testing.T) (*graphir.Graph, *graphir.Node) {
	t.Helper()
	const (
		batch  = 2
		steps  = 3
		input  = 2
		hidden = 2
	)

	node := func(name, op string, inputs []string, numOutputs int, attrs map[string]any) *graphir.Node {
		n := &graphir.Node{Name: name, Op: op, Inputs: inputs, Attrs: attrs}
		n.Outputs = make([]string, numOutputs)
		for i := range n.Outputs {
			n.Outputs[i] = name + ":" + string(rune('0'+i))
		}
		return n
	}

	kernelData := make([]float32, (input+hidden)*4*hidden)
	biasData := make([]float32, 4*hidden)

	extKernel := node("rnn/kernel", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{input + hidden, 4 * hidden}, kernelData)})
	extBias := node("rnn/bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{4 * hidden}, biasData)})
	extForgetBias := node("rnn/forget_bias", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{1}, []float32{1.0})})
	extCInit := node("rnn/c_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extHInit := node("rnn/h_init", graphir.OpConst, nil, 1, map[string]any{graphir.TensorValueAttr: graphir.NewFloat32Tensor([]int{batch, hidden}, make([]float32, batch*hidden))})
	extX := node("rnn/x_full", "Placeholder", nil, 1, nil)

	loopCond := node("rnn/while/LoopCond", graphir.OpLoopCond, nil, 1, nil)
	enterC := node("rnn/while/Enter_c", graphir.OpEnter, []string{extCInit.Output(0)}, 1, nil)
	enterH := node("rnn/while/Enter_h", graphir.OpEnter, []string{extHInit.Output(0)}, 1, nil)

	mergeC := &graphir.Node{Name: "rnn/while/Merge_c", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_c:0"}}
	mergeH := &graphir.Node{Name: "rnn/while/Merge_h", Op: graphir.OpMerge, Outputs: []string{"rnn/while/Merge_h:0"}}
	switchC := node("rnn/while/Switch_c", graphir.OpSwitch, []string{mergeC.Output(0), loopCond.Output(0)}, 2, nil)
	switchH := node("rnn/while/Switch_h", graphir.OpSwitch, []string{mergeH.Output(0), loopCond.Output(0)}, 2, nil)
	identityC := node("rnn/while/Identity_c", graphir.OpIdentity, []string{switchC.Output(1)}, 1, nil)
	identityH := node("rnn/while/Identity_h", graphir.OpIdentity, []string{switchH.Output(1)}, 1, nil)

	concat := node("rnn/while/concat", graphir.OpConcat, []string{extX.Output(0), identityH.Output(0)}, 1, nil)
	matmul := node("rnn/while/MatMul", "MatMul", []string{concat.Output(0), extKernel.Output(0)}, 1, nil)
	biasAdd := node("rnn/while/BiasAdd", "BiasAdd", []string{matmul.Output(0), extBias.Output(0)}, 1, nil)
	split := node("rnn/while/Split", graphir.OpSplit, []string{biasAdd.Output(0)}, 4, map[string]any{"num_split": 4})

	fPlusBias := node("rnn/while/f_plus_bias", "Add", []string{split.Output(0), extForgetBias.Output(0)}, 1, nil)
	fSig := node("rnn/while/f_sig", "Sigmoid", []string{fPlusBias.Output(0)}, 1, nil)
	iSig := node("rnn/while/i_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)
	jTanh := node("rnn/while/j_tanh", "Tanh", []string{split.Output(0)}, 1, nil)
	oSig := node("rnn/while/o_sig", "Sigmoid", []string{split.Output(0)}, 1, nil)

	fc := node("rnn/while/fc", "Mul", []string{fSig.Output(0), identityC.Output(0)}, 1, nil)
	ij := node("rnn/while/ij", "Mul", []string{iSig.Output(0), jTanh.Output(0)}, 1, nil)
	newC := node("rnn/while/add_new_c", "Add", []string{fc.Output(0), ij.Output(0)}, 1, nil)
	newCTanh := node("rnn/while/new_c_tanh", "Tanh", []string{newC.Output(0)}, 1, nil)
	newH := node("rnn/while/new_h", "Mul", []string{newCTanh.Output(0), oSig.Output(0)}, 1, nil)

	nextIterC := node("rnn/while/NextIteration_c", graphir.OpNextIter, []string{newC.Output(0)}, 1, nil)
	nextIterH := node("rnn/while/NextIteration_h", graphir.OpNextIter, []string{newH.Output(0)}, 1, nil)
	mergeC.Inputs = []string{enterC.Output(0), nextIterC.Output(0)}
	mergeH.Inputs = []string{enterH.Output(0), nextIterH.Output(0)}

	// A single Pack combines both tuple exits (tf.stack over an
	// LSTMStateTuple), instead of two independent consumers.
	pack := node("rnn/pack_ch", graphir.OpPack, []string{switchC.Output(0), switchH.Output(0)}, 1, nil)
	packSink := node("rnn/pack_sink", graphir.OpIdentity, []string{pack.Output(0)}, 1, nil)
	taGather := node("rnn/ta_gather", graphir.OpTensorGath, []string{newH.Output(0)}, 1, nil)

	g := graphir.NewGraphFromNodes([]*graphir.Node{
		extKernel, extBias, extForgetBias, extCInit, extHInit, extX,
		loopCond, enterC, enterH, mergeC, mergeH, switchC, switchH, identityC, identityH,
		concat, matmul, biasAdd, split,
		fPlusBias, fSig, iSig, jTanh, oSig,
		fc, ij, newC, newCTanh, newH,
		nextIterC, nextIterH,
		pack, packSink, taGather,
	})
	g.SetShape(extX.Output(0), []int{steps, batch, input})
	return g, pack
}

func TestRewritePackTupleConsumer(t *testing.T) {
	g, pack := buildPackLSTMGraph(t)

	fused, err := lstm.Rewrite(g, lstm.DefaultVariants(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, fused)

	var lstmNode *graphir.Node
	for _, n := range g.Nodes() {
		if n.Op == graphir.OpLSTM {
			lstmNode = n
		}
	}
	require.NotNil(t, lstmNode)
	require.Len(t, pack.Inputs, 2)

	cSlice, ok := g.ProducerOf(pack.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpSlice, cSlice.Op)
	require.Equal(t, 0, cSlice.Attrs["axis"])
	require.Equal(t, []int{0}, cSlice.Attrs["starts"])
	require.Equal(t, []int{1}, cSlice.Attrs["ends"])
	require.Equal(t, lstmNode.Output(2), cSlice.Inputs[0])

	hSlice, ok := g.ProducerOf(pack.Inputs[1])
	require.True(t, ok)
	require.Equal(t, graphir.OpSlice, hSlice.Op)
	require.Equal(t, lstmNode.Output(1), hSlice.Inputs[0])

	packSink, ok := g.NodeByName("rnn/pack_sink")
	require.True(t, ok)

	// Feeding Pack rank-3 slices instead of rank-2 tensors bumps its own
	// output rank by one; every downstream consumer must be redirected to
	// a Squeeze(axis=1) reading Pack's output, not Pack's output directly.
	packSqueeze, ok := g.ProducerOf(packSink.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpSqueeze, packSqueeze.Op)
	require.Equal(t, 1, packSqueeze.Attrs["axis"])
	require.Equal(t, pack.Output(0), packSqueeze.Inputs[0])
}

func TestRewriteSharedStateConsumer(t *testing.T) {
	g := buildSharedLSTMGraph(t)

	fused, err := lstm.Rewrite(g, lstm.DefaultVariants(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, fused)

	var lstmNode *graphir.Node
	for _, n := range g.Nodes() {
		if n.Op == graphir.OpLSTM {
			lstmNode = n
		}
	}
	require.NotNil(t, lstmNode)

	sink, ok := g.NodeByName("rnn/exit_shared_sink")
	require.True(t, ok)

	combined, ok := g.ProducerOf(sink.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpConcat, combined.Op)
	require.Equal(t, 1, combined.Attrs["axis"])
	require.Len(t, combined.Inputs, 2)

	hSqueeze, ok := g.ProducerOf(combined.Inputs[0])
	require.True(t, ok)
	require.Equal(t, graphir.OpSqueeze, hSqueeze.Op)
	require.Equal(t, 0, hSqueeze.Attrs["axis"])
	require.Equal(t, lstmNode.Output(1), hSqueeze.Inputs[0])

	cSqueeze, ok := g.ProducerOf(combined.Inputs[1])
	require.True(t, ok)
	require.Equal(t, graphir.OpSqueeze, cSqueeze.Op)
	require.Equal(t, lstmNode.Output(2), cSqueeze.Inputs[0])
}
