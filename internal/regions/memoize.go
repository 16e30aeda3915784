package regions

import "fictc/internal/hir"

// AssignMemoization decides, per region, whether the reactive runtime
// should cache its recomputation rather than rerun it on every dependency
// change. A region is worth memoizing only when it actually has a
// dependency to guard against, the enclosing function hasn't opted out via
// purity/no-memo annotations, and the work it recomputes is non-trivial:
// either it spans real control flow or it groups more than one
// declaration.
func AssignMemoization(fn *hir.Function, result *Result) {
	eligible := !fn.Meta.Pure && !fn.Meta.NoMemo
	for _, r := range result.Regions {
		if !eligible || len(r.Dependencies) == 0 {
			r.Memoize = false
			continue
		}
		r.Memoize = r.HasControlFlow || len(r.Declarations) > 1
	}
}
