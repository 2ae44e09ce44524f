package graphir

import (
	"fmt"

	"gorgonia.org/tensor"
)

// TensorValue is the materialized constant carried by a Const node,
// backed directly by gorgonia.org/tensor.Dense rather than a bespoke
// array type — grounded on the teacher's tensor/gorgonia wrapper, trimmed
// to the handful of operations the layout transformer (C5) and splicer
// (C7) actually need: construction, reshape, transpose, row/col slicing,
// concatenation, and raw float32 access.
type TensorValue struct {
	dense *tensor.Dense
}

// NewTensorValue wraps an existing gorgonia Dense tensor.
func NewTensorValue(d *tensor.Dense) *TensorValue {
	return &TensorValue{dense: d}
}

// NewFloat32Tensor builds a row-major float32 constant of the given shape
// backed by data. len(data) must equal the product of shape.
func NewFloat32Tensor(shape []int, data []float32) *TensorValue {
	d := tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float32), tensor.WithBacking(data))
	return &TensorValue{dense: d}
}

// NewInt32Tensor builds a row-major int32 constant of the given shape.
func NewInt32Tensor(shape []int, data []int32) *TensorValue {
	d := tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Int32), tensor.WithBacking(data))
	return &TensorValue{dense: d}
}

// Shape returns the tensor's dimensions.
func (t *TensorValue) Shape() []int {
	return append([]int(nil), t.dense.Shape()...)
}

// Rank returns the number of dimensions.
func (t *TensorValue) Rank() int { return len(t.dense.Shape()) }

// Rows returns the size of dimension 0. Panics if the tensor isn't rank 2.
func (t *TensorValue) Rows() int {
	s := t.dense.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("graphir: Rows() requires rank-2 tensor, got shape %v", s))
	}
	return s[0]
}

// Cols returns the size of dimension 1. Panics if the tensor isn't rank 2.
func (t *TensorValue) Cols() int {
	s := t.dense.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("graphir: Cols() requires rank-2 tensor, got shape %v", s))
	}
	return s[1]
}

// Float32s returns the tensor's backing data as a flat float32 slice, row
// major. Panics if the tensor isn't float32-typed.
func (t *TensorValue) Float32s() []float32 {
	data, ok := t.dense.Data().([]float32)
	if !ok {
		panic("graphir: tensor is not float32-typed")
	}
	return data
}

// Reshape returns a new tensor with the same data but a different shape.
// Gorgonia's Reshape mutates in place, so the receiver is cloned first —
// same pattern the teacher's tensor/gorgonia wrapper uses.
func (t *TensorValue) Reshape(newShape ...int) *TensorValue {
	cloned := t.dense.Clone().(*tensor.Dense)
	if err := cloned.Reshape(newShape...); err != nil {
		panic(fmt.Sprintf("graphir: reshape %v -> %v: %v", t.Shape(), newShape, err))
	}
	return &TensorValue{dense: cloned}
}

// Transpose2D swaps the two dimensions of a rank-2 tensor, materializing
// the permutation (gorgonia's T() only sets a lazy transpose flag;
// Transpose() forces the physical permutation, which the layout
// transformer needs since the result is handed straight to make_const).
func (t *TensorValue) Transpose2D() *TensorValue {
	cloned := t.dense.Clone().(*tensor.Dense)
	if err := cloned.T(); err != nil {
		panic(fmt.Sprintf("graphir: transpose %v: %v", t.Shape(), err))
	}
	transposed, err := tensor.Transpose(cloned)
	if err != nil {
		panic(fmt.Sprintf("graphir: materialize transpose %v: %v", t.Shape(), err))
	}
	return &TensorValue{dense: transposed.(*tensor.Dense)}
}

// SliceRows extracts rows [start, start+length) along dimension 0.
func (t *TensorValue) SliceRows(start, length int) *TensorValue {
	sliced, err := t.dense.Slice(tensor.S(start, start+length))
	if err != nil {
		panic(fmt.Sprintf("graphir: slice rows [%d:%d) of shape %v: %v", start, start+length, t.Shape(), err))
	}
	cloned := sliced.Clone().(*tensor.Dense)
	return &TensorValue{dense: cloned}
}

// SliceCols extracts columns [start, start+length) along dimension 1 of a
// rank-2 tensor.
func (t *TensorValue) SliceCols(start, length int) *TensorValue {
	sliced, err := t.dense.Slice(nil, tensor.S(start, start+length))
	if err != nil {
		panic(fmt.Sprintf("graphir: slice cols [%d:%d) of shape %v: %v", start, start+length, t.Shape(), err))
	}
	cloned := sliced.Clone().(*tensor.Dense)
	return &TensorValue{dense: cloned}
}

// ConcatCols concatenates tensors of identical row count along the column
// axis (axis 1). Used to assemble the fused bias from its input- and
// recurrent-bias halves.
func ConcatCols(parts ...*TensorValue) *TensorValue {
	if len(parts) == 0 {
		panic("graphir: ConcatCols requires at least one tensor")
	}
	dense := make([]tensor.Tensor, len(parts))
	for i, p := range parts {
		dense[i] = p.dense
	}
	result, err := tensor.Concat(1, dense[0], dense[1:]...)
	if err != nil {
		panic(fmt.Sprintf("graphir: concat cols: %v", err))
	}
	return &TensorValue{dense: result.(*tensor.Dense)}
}

// AddElementwise returns t + other, requiring identical shapes.
func (t *TensorValue) AddElementwise(other *TensorValue) *TensorValue {
	result, err := t.dense.Add(other.dense)
	if err != nil {
		panic(fmt.Sprintf("graphir: add %v + %v: %v", t.Shape(), other.Shape(), err))
	}
	return &TensorValue{dense: result.(*tensor.Dense)}
}

// Clone returns a deep copy.
func (t *TensorValue) Clone() *TensorValue {
	return &TensorValue{dense: t.dense.Clone().(*tensor.Dense)}
}
