package lstm

import "github.com/itohio/lstmfuse/graphir"

// LoopFrame is C3's result: the classified recurrent-state initializers
// plus, for each role a Switch was classified under, the tensor id of
// that Switch's exit (false) branch — the value an Exit node downstream
// of the loop consumes once it terminates. The splicer (C7) uses
// ExitByRole to redirect those Exit-fed consumers onto the fused op's
// Y_h/Y_c outputs.
type LoopFrame struct {
	Initializers RnnInitializers
	Scope        string
	ExitByRole   map[string]string
}

// AnalyzeLoopFrame implements C3 (spec.md §4.3): given a cell-core match
// and its scope, locate the loop's LoopCond, walk each of its Switch
// consumers back to an Enter node to find the recurrent-state
// initializer candidates, classify each Switch via the variant's three
// predicates, and assemble the result into a LoopFrame.
func AnalyzeLoopFrame(g *graphir.Graph, b *graphir.Binding, variant CellVariant) (*LoopFrame, error) {
	scope := b.Scope()
	if scope == "" {
		return nil, ErrScopeMissing
	}

	scopeNodes := g.NodesWithPrefix(scope)
	var loopConds []*graphir.Node
	for _, n := range scopeNodes {
		if n.Op == graphir.OpLoopCond {
			loopConds = append(loopConds, n)
		}
	}
	switch len(loopConds) {
	case 0:
		return nil, ErrNoLoop
	case 1:
	default:
		return nil, ErrDuplicateLoop
	}
	loopCond := loopConds[0]

	var cInit, hInit, sharedInit string
	exitByRole := map[string]string{}
	for _, sw := range g.ConsumersOf(loopCond.Output(0)) {
		if sw.Op != graphir.OpSwitch {
			continue
		}
		enterTarget, ok := walkSwitchToEnter(g, sw)
		if !ok {
			continue
		}

		bodyConsumers := g.ConsumersOf(sw.Output(1))
		if len(bodyConsumers) != 1 || bodyConsumers[0].Op != graphir.OpIdentity {
			continue
		}
		identity := bodyConsumers[0]
		identityConsumers := g.ConsumersOf(identity.Output(0))

		if id, ok := variant.IsCtSwitch(enterTarget, identityConsumers, b); ok {
			cInit = id
			exitByRole["c"] = sw.Output(0)
			continue
		}
		if id, ok := variant.IsHtSwitch(enterTarget, identityConsumers, b); ok {
			hInit = id
			exitByRole["h"] = sw.Output(0)
			continue
		}
		if id, ok := variant.IsSharedChSwitch(enterTarget, identityConsumers, b); ok {
			sharedInit = id
			exitByRole["shared"] = sw.Output(0)
			continue
		}
	}

	switch {
	case sharedInit != "" && (cInit != "" || hInit != ""):
		// Switches of the same match classified as tuple and as shared
		// initializers at once: a variant's predicates must pick one of
		// the two forms. This is a variant-authoring bug, not a per-match
		// condition the driver should silently skip.
		panicUnclassified("switches classified as both tuple and shared initializers in scope %q", scope)
		return nil, nil
	case sharedInit != "":
		return &LoopFrame{Initializers: NewSharedInitializers(sharedInit), Scope: scope, ExitByRole: exitByRole}, nil
	case cInit != "" && hInit != "":
		return &LoopFrame{Initializers: NewTupleInitializers(cInit, hInit), Scope: scope, ExitByRole: exitByRole}, nil
	default:
		return nil, ErrInitializerCheckFailed
	}
}

// walkSwitchToEnter follows Switch -> Merge (input 0) -> the first Enter
// among the Merge's inputs, and returns the tensor id flowing into that
// Enter — the initializer candidate (spec.md §4.3 step (a)).
func walkSwitchToEnter(g *graphir.Graph, sw *graphir.Node) (string, bool) {
	if len(sw.Inputs) == 0 {
		return "", false
	}
	merge, ok := g.ProducerOf(sw.Inputs[0])
	if !ok || merge.Op != graphir.OpMerge {
		return "", false
	}
	for _, in := range merge.Inputs {
		enter, ok := g.ProducerOf(in)
		if ok && enter.Op == graphir.OpEnter {
			if len(enter.Inputs) == 0 {
				return "", false
			}
			return enter.Inputs[0], true
		}
	}
	return "", false
}
