package optimizer

import (
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// DeadCodeElimination removes assignments whose target has no uses anywhere
// in the function and whose value is side-effect-free. Assignments whose
// value contains an unannotated call are always retained, whatever the
// purity of the surrounding expression.
type DeadCodeElimination struct{}

func (d *DeadCodeElimination) Name() string { return "dce" }

func (d *DeadCodeElimination) Apply(_ *compiler.Context, fn *hir.Function) bool {
	changed := false
	for {
		uses := useCounts(fn)
		removedAny := false
		for _, blk := range fn.Blocks {
			kept := blk.Instructions[:0]
			for _, instr := range blk.Instructions {
				if removableAssign(instr, uses) {
					removedAny = true
					continue
				}
				kept = append(kept, instr)
			}
			blk.Instructions = kept
		}
		if !removedAny {
			break
		}
		changed = true
	}
	return changed
}

func removableAssign(instr hir.Instruction, uses map[string]int) bool {
	switch in := instr.(type) {
	case *hir.Assign:
		if uses[in.Target] > 0 {
			return false
		}
		if containsImpureCall(in.Value) {
			return false
		}
		return sideEffectFree(in.Value)
	case *hir.Phi:
		return uses[in.Target] == 0
	default:
		return false
	}
}

// ReactiveGraphDCE is the graph-flavored complement to the local pass: it
// seeds liveness from every value-observing site (terminators, expression
// statements, impure assignments) and sweeps the def-use graph transitively,
// so a whole chain of derived reactive values dies in one application when
// nothing downstream observes its head. Purity annotations gate removal the
// same way they do locally: a derived binding whose initializer is an
// unannotated macro call is a root, never garbage.
type ReactiveGraphDCE struct{}

func (r *ReactiveGraphDCE) Name() string { return "reactive-dce" }

func (r *ReactiveGraphDCE) Apply(_ *compiler.Context, fn *hir.Function) bool {
	// defs: target -> names its value reads.
	defs := map[string][]string{}
	roots := map[string]bool{}
	markRoots := func(e hir.Expression) {
		walkExpr(e, func(id *hir.Identifier) { roots[id.Name] = true })
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				if !sideEffectFree(in.Value) || containsImpureCall(in.Value) {
					// effectful definition: it runs regardless, so both the
					// target and everything it reads stay live.
					roots[in.Target] = true
					markRoots(in.Value)
					continue
				}
				var reads []string
				walkExpr(in.Value, func(id *hir.Identifier) { reads = append(reads, id.Name) })
				defs[in.Target] = reads
			case *hir.ExprInstr:
				markRoots(in.Value)
			case *hir.Phi:
				srcs := make([]string, len(in.Sources))
				for i, s := range in.Sources {
					srcs[i] = s.ID
				}
				defs[in.Target] = srcs
			}
		}
		markRootsInTerminator(blk.Terminator, roots)
	}

	// transitive liveness from the roots
	live := map[string]bool{}
	var mark func(name string)
	mark = func(name string) {
		if live[name] {
			return
		}
		live[name] = true
		for _, dep := range defs[name] {
			mark(dep)
		}
	}
	for name := range roots {
		mark(name)
	}

	changed := false
	for _, blk := range fn.Blocks {
		kept := blk.Instructions[:0]
		for _, instr := range blk.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				if _, tracked := defs[in.Target]; tracked && !live[in.Target] {
					changed = true
					continue
				}
			case *hir.Phi:
				if _, tracked := defs[in.Target]; tracked && !live[in.Target] {
					changed = true
					continue
				}
			}
			kept = append(kept, instr)
		}
		blk.Instructions = kept
	}
	return changed
}

func markRootsInTerminator(t hir.Terminator, roots map[string]bool) {
	walkTerminator(t, func(id *hir.Identifier) { roots[id.Name] = true })
}
