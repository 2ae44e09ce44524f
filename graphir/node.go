package graphir

import "fmt"

// Node is one operator instance in the dataflow graph. Inputs and Outputs
// are tensor ids of the form "producer_name:port"; Outputs are typically
// just "{Name}:0", "{Name}:1", ... but are stored explicitly so a node can
// be queried without recomputing the convention.
type Node struct {
	Name    string
	Op      string
	Inputs  []string
	Outputs []string
	Attrs   map[string]any

	// synthesized marks a node created by the rewriter itself during the
	// current pass, as opposed to a node carried over from the source
	// graph. Cleanup (see Graph.Purge) uses this instead of a name-prefix
	// heuristic, since an implementer could accidentally reuse the scope
	// prefix when allocating a fresh name (see package rewrite/lstm's
	// design notes on this).
	synthesized bool
}

// Synthesized reports whether this node was created by the current
// rewrite pass rather than carried over from the source graph.
func (n *Node) Synthesized() bool { return n.synthesized }

// Output returns the tensor id for the given output port, defaulting to
// the conventional "{Name}:{port}" form if Outputs wasn't populated with
// an explicit entry for that port.
func (n *Node) Output(port int) string {
	if port < len(n.Outputs) {
		return n.Outputs[port]
	}
	return fmt.Sprintf("%s:%d", n.Name, port)
}

// IsConst reports whether this node is a Const operator.
func (n *Node) IsConst() bool { return n.Op == OpConst }

// TensorValueAttr is the attribute key under which MakeConst stores the
// materialized constant tensor.
const TensorValueAttr = "value"

// GetTensorValue returns the materialized tensor carried by a Const node,
// or nil if this node isn't a well-formed constant.
func (n *Node) GetTensorValue() *TensorValue {
	if n == nil || !n.IsConst() {
		return nil
	}
	v, _ := n.Attrs[TensorValueAttr].(*TensorValue)
	return v
}

// Operator type strings produced or consumed by the rewriter (spec.md §6).
const (
	OpConst      = "Const"
	OpLSTM       = "LSTM"
	OpSplit      = "Split"
	OpSlice      = "Slice"
	OpUnsqueeze  = "Unsqueeze"
	OpSqueeze    = "Squeeze"
	OpTranspose  = "Transpose"
	OpShape      = "Shape"
	OpCast       = "Cast"
	OpTile       = "Tile"
	OpConcat     = "Concat"
	OpReverseV2  = "ReverseV2"
	OpLoopCond   = "LoopCond"
	OpSwitch     = "Switch"
	OpMerge      = "Merge"
	OpEnter      = "Enter"
	OpExit       = "Exit"
	OpNextIter   = "NextIteration"
	OpIdentity   = "Identity"
	OpPack       = "Pack"
	OpTensorGath = "TensorArrayGatherV3"
)
