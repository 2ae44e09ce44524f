package lstm

import "github.com/itohio/lstmfuse/graphir"

// CellVariant pairs a cell-core pattern with the three loop-frame
// classifier predicates the frame analyzer (C3) uses to tell a tuple
// (c, h) initializer apart from a shared [c; h] one (spec.md §4.3, §4.8).
//
// Each predicate receives the initializer candidate tensor id discovered
// by walking Switch -> Merge -> Enter (enterTarget), the consumers of the
// Switch's body-branch Identity (identityConsumers), and the pattern
// match's Binding. It returns the initializer tensor id and true if this
// Switch is the one it's looking for. The frame analyzer tries
// IsCtSwitch, then IsHtSwitch, then IsSharedChSwitch, in that order, and
// the first to return true wins; at most one of the three may match for
// any given Switch.
type CellVariant struct {
	Name    string
	Pattern *graphir.Pattern

	IsCtSwitch       func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool)
	IsHtSwitch       func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool)
	IsSharedChSwitch func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool)
}

// containsNode reports whether haystack holds needle by pointer identity.
func containsNode(haystack []*graphir.Node, needle *graphir.Node) bool {
	if needle == nil {
		return false
	}
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}

func never(string, []*graphir.Node, *graphir.Binding) (string, bool) { return "", false }

// BasicLSTMCell is the tuple-state variant: the loop threads c and h as
// two separate Enter/Switch/Merge frames. Its Switch is the c-init one if
// its body Identity feeds the match's "fc" node (Mul(Sigmoid(f), c)); it's
// the h-init one if the Identity feeds "concat" (Concat(x, h)).
var BasicLSTMCell = CellVariant{
	Name:    "BasicLSTMCell",
	Pattern: BasicLSTMCellPattern(),
	IsCtSwitch: func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool) {
		fc, ok := b.Lookup("fc")
		if ok && containsNode(identityConsumers, fc) {
			return enterTarget, true
		}
		return "", false
	},
	IsHtSwitch: func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool) {
		concat, ok := b.Lookup("concat")
		if ok && containsNode(identityConsumers, concat) {
			return enterTarget, true
		}
		return "", false
	},
	IsSharedChSwitch: never,
}

// LSTMBlockCell is the shared-state variant: the loop threads a single
// combined [c; h] tensor, split apart each step by a pair of Slice nodes
// feeding "fc" and "concat" respectively. Its Switch is the shared-init
// one if the body Identity's consumers include a Slice.
var LSTMBlockCell = CellVariant{
	Name:       "LSTMBlockCell",
	Pattern:    LSTMBlockCellPattern(),
	IsCtSwitch: never,
	IsHtSwitch: never,
	IsSharedChSwitch: func(enterTarget string, identityConsumers []*graphir.Node, b *graphir.Binding) (string, bool) {
		for _, c := range identityConsumers {
			if c.Op == graphir.OpSlice {
				return enterTarget, true
			}
		}
		return "", false
	},
}

// DefaultVariants is the variant list the driver (C8) runs when the
// caller doesn't supply its own (spec.md §4.8).
func DefaultVariants() []CellVariant {
	return []CellVariant{BasicLSTMCell, LSTMBlockCell}
}
