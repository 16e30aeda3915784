package optimizer

import (
	"strings"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// SingleUseInlining folds an assignment with exactly one use into that use
// site and removes it, when the value is side-effect-free and the name is a
// compiler temporary (reserved "__" prefix). The inlineDerivedMemos option
// extends eligibility to user-named const bindings.
type SingleUseInlining struct{}

func (s *SingleUseInlining) Name() string { return "single-use-inlining" }

func (s *SingleUseInlining) Apply(ctx *compiler.Context, fn *hir.Function) bool {
	uses := useCounts(fn)

	// candidate: name -> value to splice in.
	candidates := map[string]hir.Expression{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			assign, ok := instr.(*hir.Assign)
			if !ok {
				continue
			}
			if uses[assign.Target] != 1 {
				continue
			}
			if !sideEffectFree(assign.Value) || containsImpureCall(assign.Value) {
				continue
			}
			if !inlinableName(ctx, assign.Target, assign.DeclarationKind) {
				continue
			}
			candidates[assign.Target] = assign.Value
		}
	}
	if len(candidates) == 0 {
		return false
	}

	// Chains (a used once by b, b used once by c) resolve over successive
	// pipeline iterations; inlining one layer per application keeps each
	// splice independent of table iteration order.
	inlined := map[string]bool{}
	subst := func(name string) hir.Expression {
		value, ok := candidates[name]
		if !ok || inlined[name] {
			return nil
		}
		inlined[name] = true
		return value
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				if _, isCandidate := candidates[in.Target]; isCandidate {
					continue // do not rewrite a candidate into itself
				}
				in.Value = rewriteIdentifiers(in.Value, subst)
			case *hir.ExprInstr:
				in.Value = rewriteIdentifiers(in.Value, subst)
			}
		}
		rewriteTerminatorIdentifiers(blk.Terminator, subst)
	}

	if len(inlined) == 0 {
		return false
	}
	for _, blk := range fn.Blocks {
		kept := blk.Instructions[:0]
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok && inlined[assign.Target] {
				continue
			}
			kept = append(kept, instr)
		}
		blk.Instructions = kept
	}
	return true
}

// inlinableName: compiler temporaries always qualify; user-named const
// bindings only under the inlineDerivedMemos option.
func inlinableName(ctx *compiler.Context, name string, kind ast.DeclarationKind) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	return ctx.Opts.InlineDerivedMemos && kind == ast.DeclConst
}
