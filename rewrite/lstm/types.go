// Package lstm implements the graph rewriter that recognizes a recurrent
// LSTM cell expressed as a low-level dataflow computation graph — a
// LoopCond-driven while-loop whose body is a handful of scalar tensor
// primitives — and collapses it into a single fused LSTM operator.
package lstm

import "github.com/itohio/lstmfuse/graphir"

// RnnProperties carries everything the boundary finder (C6) discovers
// about one match before the tensor layout transform and splice stages
// run (spec.md §3).
type RnnProperties struct {
	InputNode *graphir.Node
	InputID   string

	IsBackward bool
	TimeMajor  bool

	XNode string

	InputSize  int
	HiddenSize int

	Connectors []*graphir.Node
}

// Valid reports the binding invariant from spec.md §3:
// "input_node ≠ ⊥ ∧ input_id ≠ ⊥".
func (p *RnnProperties) Valid() bool {
	return p != nil && p.InputNode != nil && p.InputID != ""
}

// RnnInitializers represents the loop's initial recurrent state, in
// exactly one of two mutually exclusive shapes (spec.md §3): a tuple of
// separate cell/hidden initializer tensors, or a single tensor carrying
// both concatenated. NewTupleInitializers and NewSharedInitializers
// enforce the invariant at construction so every other component can
// assume it already holds.
type RnnInitializers struct {
	CInitID string
	HInitID string

	SharedInitID string
}

// IsTuple reports whether this is the tuple (separate c/h) form.
func (r RnnInitializers) IsTuple() bool { return r.SharedInitID == "" }

// NewTupleInitializers builds the tuple form.
func NewTupleInitializers(cInitID, hInitID string) RnnInitializers {
	if cInitID == "" || hInitID == "" {
		panic("lstm: tuple initializers require both c-init and h-init")
	}
	return RnnInitializers{CInitID: cInitID, HInitID: hInitID}
}

// NewSharedInitializers builds the non-tuple (combined [c;h]) form.
func NewSharedInitializers(sharedInitID string) RnnInitializers {
	if sharedInitID == "" {
		panic("lstm: shared initializer id must not be empty")
	}
	return RnnInitializers{SharedInitID: sharedInitID}
}

// RnnWeights carries the weight/bias constants the extractor (C4) reads
// off the match, plus the derived dimensions.
type RnnWeights struct {
	Kernel     *graphir.Node
	KernelVal  *graphir.TensorValue
	Bias       *graphir.Node
	BiasVal    *graphir.TensorValue
	ForgetBias *graphir.Node
	ForgetVal  float32

	InputSize  int
	HiddenSize int
}
