package regions

import (
	"strings"
	"unicode"

	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// computeReactiveNames finds every (post-SSA) name in fn whose value is a
// reactive source or is transitively derived from one. A name is a source
// when it is bound by a call to the state macro, or is a parameter of a
// function classified as a reactive component/hook. Derivation is
// propagated to a fixed point over plain Assign and Phi instructions.
func computeReactiveNames(ctx *compiler.Context, fn *hir.Function) map[string]bool {
	reactive := map[string]bool{}
	if isReactiveFunction(fn) {
		for _, p := range fn.Params {
			reactive[p] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, b := range fn.Blocks {
			for _, instr := range b.Instructions {
				switch in := instr.(type) {
				case *hir.Assign:
					if reactive[in.Target] {
						continue
					}
					if isReactiveValue(ctx, in.Value, reactive) {
						reactive[in.Target] = true
						changed = true
					}
				case *hir.Phi:
					if reactive[in.Target] {
						continue
					}
					for _, src := range in.Sources {
						if reactive[src.ID] {
							reactive[in.Target] = true
							changed = true
							break
						}
					}
				}
			}
		}
	}
	return reactive
}

// isReactiveFunction heuristically classifies fn as a component or hook:
// a capitalized name, a `use`-prefixed camel-case name, or a parameter
// literally named "props" (the common convention among arrow-bodied
// components, whose own binding name is invisible to this function).
func isReactiveFunction(fn *hir.Function) bool {
	if looksLikeComponentOrHook(fn.Name) {
		return true
	}
	for _, p := range fn.Params {
		if p == "props" {
			return true
		}
	}
	return false
}

func looksLikeComponentOrHook(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	if unicode.IsUpper(r[0]) {
		return true
	}
	if strings.HasPrefix(name, "use") && len(r) > 3 && unicode.IsUpper(r[3]) {
		return true
	}
	return false
}

func isReactiveValue(ctx *compiler.Context, value hir.Expression, reactive map[string]bool) bool {
	if call, ok := value.(*hir.Call); ok {
		if id, ok := call.Callee.(*hir.Identifier); ok {
			if canon, isMacro := ctx.CanonicalMacroName(id.Name); isMacro && canon == compiler.CanonicalState {
				return true
			}
		}
	}
	deps := map[string]PropertyPath{}
	collectDeps(value, reactive, deps)
	return len(deps) > 0
}
