package lstm

import "github.com/itohio/lstmfuse/graphir"

// cellCorePattern builds the fixed computation every cell-variant pattern
// shares: the per-timestep body of a source BasicLSTMCell (spec.md §4.1,
// §9 "tf2onnx's BasicLSTMCell / LSTMBlockCell"):
//
//	xh      = Concat(x, h)
//	mm      = MatMul(xh, kernel)
//	biasAdd = BiasAdd(mm, bias)
//	i, j, f, o = Split(biasAdd)                 // gate order: i, c(j), f, o
//	f1      = Add(f, forget_bias)
//	new_c   = Add(Mul(Sigmoid(f1), c), Mul(Sigmoid(i), Tanh(j)))   // both Muls and the Add are commutative
//	new_h   = Mul(Tanh(new_c), Sigmoid(o))
//
// new_h is the pattern's root: the matcher scans every "Mul" node in the
// graph and tries to walk this template backwards from there. Whether the
// loop's recurrent state is threaded as a (c, h) tuple or a single shared
// tensor is irrelevant to this core shape — both conventions produce
// exactly this per-step graph; they differ only in how the surrounding
// loop frame packages the initializer (see variant.go, loopframe.go).
//
// fPreAct/iPreAct/oPreAct are wrapped by wrapGate so the LSTMBlockCell variant
// can splice an extra (ignored) peephole operand into any of the three
// sigmoid pre-activations without changing the core shape BasicLSTMCell
// matches exactly.
func cellCorePattern(wrapGate func(inner *graphir.PatternNode) *graphir.PatternNode) *graphir.PatternNode {
	x := graphir.Var("x")
	h := graphir.Var("h")
	c := graphir.Var("c")
	kernel := graphir.Var("kernel")
	bias := graphir.Var("bias")
	forgetBias := graphir.Var("forget_bias")

	concat := graphir.OpNode("concat", graphir.OpConcat, x, h)
	matmul := graphir.OpNode("matmul", "MatMul", concat, kernel)
	biasAdd := graphir.OpNode("biasadd", "BiasAdd", matmul, bias)

	splitI := graphir.OpNode("split", graphir.OpSplit, biasAdd)
	splitJ := graphir.OpNode("split", graphir.OpSplit, biasAdd)
	splitF := graphir.OpNode("split", graphir.OpSplit, biasAdd)
	splitO := graphir.OpNode("split", graphir.OpSplit, biasAdd)

	fPreAct := wrapGate(graphir.OpNode("f_plus_bias", "Add", splitF, forgetBias))
	iPreAct := wrapGate(splitI)
	oPreAct := wrapGate(splitO)

	fSig := graphir.OpNode("f_sig", "Sigmoid", fPreAct)
	iSig := graphir.OpNode("i_sig", "Sigmoid", iPreAct)
	jTanh := graphir.OpNode("j_tanh", "Tanh", splitJ)
	oSig := graphir.OpNode("o_sig", "Sigmoid", oPreAct)

	fc := graphir.Commutative("fc", "Mul", fSig, c)
	ij := graphir.Commutative("ij", "Mul", iSig, jTanh)
	newC := graphir.Commutative("new_c", "Add", fc, ij)
	newCTanh := graphir.OpNode("new_c_tanh", "Tanh", newC)
	newH := graphir.Commutative("new_h", "Mul", newCTanh, oSig)

	return newH
}

// identityGate is the no-op wrapper: the pre-activation must match inner
// exactly, with no extra operand tolerated.
func identityGate(inner *graphir.PatternNode) *graphir.PatternNode { return inner }

// optionalPeephole matches either inner directly, or a binary "Add" node
// one of whose two operands (in either position) matches inner — i.e. a
// gate pre-activation with an extra peephole term (w_ci*c, w_cf*c, w_co*c)
// spliced in ahead of the sigmoid. spec.md's peephole Non-goal says this
// connection is accepted but never read, so the extra operand is simply
// left unbound.
func optionalPeephole(inner *graphir.PatternNode) *graphir.PatternNode {
	return &graphir.PatternNode{
		Custom: func(g *graphir.Graph, n *graphir.Node, vars map[string]*graphir.Node) bool {
			if graphir.MatchNode(g, inner, n, vars) {
				return true
			}
			if n.Op != "Add" || len(n.Inputs) != 2 {
				return false
			}
			for _, idx := range [2]int{0, 1} {
				producer, ok := g.ProducerOf(n.Inputs[idx])
				if !ok {
					continue
				}
				trial := map[string]*graphir.Node{}
				for k, v := range vars {
					trial[k] = v
				}
				if graphir.MatchNode(g, inner, producer, trial) {
					for k, v := range trial {
						vars[k] = v
					}
					return true
				}
			}
			return false
		},
	}
}

// BasicLSTMCellPattern matches the non-peephole source cell shape
// (spec.md §8 scenario 1 and friends).
func BasicLSTMCellPattern() *graphir.Pattern {
	return &graphir.Pattern{Name: "BasicLSTMCell", Root: cellCorePattern(identityGate)}
}

// LSTMBlockCellPattern matches the same cell shape but tolerates an
// ignored peephole operand on any gate's pre-activation (spec.md §8
// scenario 2: "peephole connections accepted, never read").
func LSTMBlockCellPattern() *graphir.Pattern {
	return &graphir.Pattern{Name: "LSTMBlockCell", Root: cellCorePattern(optionalPeephole)}
}
