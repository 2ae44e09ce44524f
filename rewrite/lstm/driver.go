package lstm

import (
	"github.com/rs/zerolog"

	"github.com/itohio/lstmfuse/graphir"
)

// Rewrite implements C8 (spec.md §4.8, §6): run every variant's pattern
// against g, and for each match walk the C3 -> C4 -> C5 -> C6 -> C7
// pipeline, fusing matches that pass every stage. A stage returning a
// per-match error is logged at Warn and the match is skipped, leaving its
// sub-IR untouched; ErrOutputUnclassified is the one exception (spec.md
// §7) and is re-panicked rather than swallowed. Rewrite returns the
// number of cells fused.
func Rewrite(g *graphir.Graph, variants []CellVariant, log zerolog.Logger) (fused int, err error) {
	for _, variant := range variants {
		matches := graphir.Match(g, variant.Pattern)
		for _, match := range matches {
			if runMatch(g, variant, match, log) {
				fused++
			}
		}
	}
	return fused, nil
}

func runMatch(g *graphir.Graph, variant CellVariant, b *graphir.Binding, log zerolog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if u, isUnclassified := r.(unclassifiedOutput); isUnclassified {
				panic(u.err)
			}
			panic(r)
		}
	}()

	scope := b.Scope()

	frame, err := AnalyzeLoopFrame(g, b, variant)
	if err != nil {
		log.Warn().Err(err).Str("variant", variant.Name).Str("scope", scope).Msg("skipping match: loop frame analysis failed")
		return false
	}

	weights, err := ExtractWeights(b)
	if err != nil {
		log.Warn().Err(err).Str("variant", variant.Name).Str("scope", frame.Scope).Msg("skipping match: weight extraction failed")
		return false
	}

	props, err := FindBoundary(g, frame.Scope, weights, frame.Initializers)
	if err != nil {
		log.Warn().Err(err).Str("variant", variant.Name).Str("scope", frame.Scope).Msg("skipping match: boundary discovery failed")
		return false
	}
	if !props.Valid() {
		log.Warn().Str("variant", variant.Name).Str("scope", frame.Scope).Msg("skipping match: boundary properties invalid")
		return false
	}

	if err := Splice(g, b, frame, props, weights); err != nil {
		log.Warn().Err(err).Str("variant", variant.Name).Str("scope", frame.Scope).Msg("skipping match: splice failed")
		return false
	}

	log.Info().
		Str("variant", variant.Name).
		Str("scope", frame.Scope).
		Int("hidden_size", weights.HiddenSize).
		Int("input_size", weights.InputSize).
		Bool("backward", props.IsBackward).
		Msg("fused lstm cell")
	return true
}
