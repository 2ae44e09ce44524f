package lstm

import "github.com/itohio/lstmfuse/graphir"

// TransformLayout implements C5 (spec.md §4.5): reorder the extracted
// kernel/bias from the source (i, c, f, o) gate convention to the fused
// op's (i, o, f, c) convention, split the kernel into its input (W) and
// recurrent (R) slabs, fold the forget-bias scalar into the doubled bias
// vector, and zero-pad the recurrent half of the bias (spec.md's
// testable property P2: "the fused bias's recurrent half is all zero").
func TransformLayout(w *RnnWeights) (W, R, B *graphir.TensorValue) {
	h := w.HiddenSize
	perm := gatePermutation()

	reorderedKernel := reorderGateColumns(w.KernelVal, perm, h)
	W = reorderedKernel.SliceRows(0, w.InputSize).Transpose2D().Reshape(1, 4*h, w.InputSize)
	R = reorderedKernel.SliceRows(w.InputSize, h).Transpose2D().Reshape(1, 4*h, h)

	reorderedBias := reorderGateColumns(w.BiasVal.Reshape(1, 4*h), perm, h)
	foldedBias := foldForgetBias(reorderedBias, h, w.ForgetVal)
	recurrentBias := graphir.NewFloat32Tensor([]int{1, 4 * h}, make([]float32, 4*h))
	B = graphir.ConcatCols(foldedBias, recurrentBias)

	return W, R, B
}

// reorderGateColumns rearranges a rank-2 tensor's columns, viewed as four
// contiguous h-wide blocks, according to perm: the output's block j is
// the input's block perm[j].
func reorderGateColumns(t *graphir.TensorValue, perm [4]int, h int) *graphir.TensorValue {
	blocks := make([]*graphir.TensorValue, 4)
	for j, srcBlock := range perm {
		blocks[j] = t.SliceCols(srcBlock*h, h)
	}
	return graphir.ConcatCols(blocks...)
}

// foldForgetBias adds the scalar forget_bias to the forget-gate block of
// an already-reordered (i, o, f, c) bias vector — block index 2.
func foldForgetBias(reordered *graphir.TensorValue, h int, forgetVal float32) *graphir.TensorValue {
	before := reordered.SliceCols(0, 2*h)
	forgetBlock := reordered.SliceCols(2*h, h)
	after := reordered.SliceCols(3*h, h)

	fill := make([]float32, h)
	for i := range fill {
		fill[i] = forgetVal
	}
	foldedForget := forgetBlock.AddElementwise(graphir.NewFloat32Tensor([]int{1, h}, fill))

	return graphir.ConcatCols(before, foldedForget, after)
}
