package lstm

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/itohio/lstmfuse/graphir"
)

// ExtractWeights implements C4 (spec.md §4.4): read the kernel, bias, and
// forget-bias constants off the match, validate their shape invariants,
// and derive hidden_size from the kernel's column count and input_size
// from its row count.
func ExtractWeights(b *graphir.Binding) (*RnnWeights, error) {
	kernelNode, ok := b.Lookup("kernel")
	if !ok || !kernelNode.IsConst() {
		return nil, fmt.Errorf("%w: kernel is not a constant", ErrWeightsCheckFailed)
	}
	biasNode, ok := b.Lookup("bias")
	if !ok || !biasNode.IsConst() {
		return nil, fmt.Errorf("%w: bias is not a constant", ErrWeightsCheckFailed)
	}
	forgetNode, ok := b.Lookup("forget_bias")
	if !ok || !forgetNode.IsConst() {
		return nil, fmt.Errorf("%w: forget_bias is not a constant", ErrWeightsCheckFailed)
	}

	kernelVal := kernelNode.GetTensorValue()
	biasVal := biasNode.GetTensorValue()
	forgetVal := forgetNode.GetTensorValue()
	if kernelVal == nil || biasVal == nil || forgetVal == nil {
		return nil, fmt.Errorf("%w: constant missing materialized tensor value", ErrWeightsCheckFailed)
	}

	if kernelVal.Rank() != 2 {
		return nil, fmt.Errorf("%w: kernel must be rank 2, got rank %d", ErrParamCheckFailed, kernelVal.Rank())
	}
	cols := kernelVal.Cols()
	if cols%4 != 0 {
		return nil, fmt.Errorf("%w: kernel column count %d is not divisible by 4", ErrParamCheckFailed, cols)
	}
	hiddenSize := cols / 4
	inputSize := kernelVal.Rows() - hiddenSize
	if inputSize <= 0 {
		return nil, fmt.Errorf("%w: kernel row count %d too small for hidden size %d", ErrParamCheckFailed, kernelVal.Rows(), hiddenSize)
	}

	if biasVal.Rank() != 1 && !(biasVal.Rank() == 2 && biasVal.Shape()[0] == 1) {
		return nil, fmt.Errorf("%w: bias must be a vector, got shape %v", ErrParamCheckFailed, biasVal.Shape())
	}

	var forgetScalar float32
	if fs := forgetVal.Float32s(); len(fs) > 0 {
		forgetScalar = fs[0]
	}
	if math32.IsNaN(forgetScalar) || math32.IsInf(forgetScalar, 0) {
		return nil, fmt.Errorf("%w: forget_bias is not finite: %v", ErrParamCheckFailed, forgetScalar)
	}

	return &RnnWeights{
		Kernel:     kernelNode,
		KernelVal:  kernelVal,
		Bias:       biasNode,
		BiasVal:    biasVal,
		ForgetBias: forgetNode,
		ForgetVal:  forgetScalar,
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
	}, nil
}
