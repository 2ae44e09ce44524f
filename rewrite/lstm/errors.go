package lstm

import (
	"errors"
	"fmt"
)

// Error taxonomy from spec.md §7. Every member except
// ErrOutputUnclassified is per-match and non-fatal: the driver (C8) logs
// the reason and skips the match, leaving its sub-IR untouched.
// ErrOutputUnclassified indicates an external consumer shape the splicer
// has no adapter for — an unknown graph shape — and is raised as a fatal
// design error rather than silently dropped (see panicUnclassified).
var (
	ErrScopeMissing           = errors.New("lstm: scope missing")
	ErrWeightsCheckFailed     = errors.New("lstm: weights check failed")
	ErrInitializerCheckFailed = errors.New("lstm: initializer check failed")
	ErrInputAmbiguous         = errors.New("lstm: input ambiguous")
	ErrInputXNotFound         = errors.New("lstm: input x not found")
	ErrNoLoop                 = errors.New("lstm: no LoopCond in scope")
	ErrDuplicateLoop          = errors.New("lstm: duplicate LoopCond in scope")
	ErrParamCheckFailed       = errors.New("lstm: param check failed")
	ErrOutputUnclassified     = errors.New("lstm: output unclassified")
)

// unclassifiedOutput is a panic value wrapping ErrOutputUnclassified; the
// driver's per-match recover only re-panics it (spec.md §7: "do not
// silently drop"), while every other error returned by a stage is caught
// and logged as a skip.
type unclassifiedOutput struct{ err error }

func panicUnclassified(format string, args ...any) {
	panic(unclassifiedOutput{err: fmt.Errorf("%w: %s", ErrOutputUnclassified, fmt.Sprintf(format, args...))})
}
