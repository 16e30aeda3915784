package optimizer

import (
	"strconv"
	"strings"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// CommonSubexpressionElimination shares pure expressions with structural
// equality within a block and across straight-line block chains
// (single-successor joined to single-predecessor). A later occurrence is
// replaced by a reference to the earlier occurrence's target. Mutations to
// an object invalidate any cached member load rooted at it downstream of
// the mutation; an unannotated call invalidates every cached member load.
type CommonSubexpressionElimination struct{}

func (c *CommonSubexpressionElimination) Name() string { return "cse" }

func (c *CommonSubexpressionElimination) Apply(_ *compiler.Context, fn *hir.Function) bool {
	succs := map[uint32][]uint32{}
	predCount := map[uint32]int{}
	byID := map[uint32]*hir.BasicBlock{}
	for _, b := range fn.Blocks {
		byID[b.ID] = b
		ss := terminatorSuccessors(b.Terminator)
		succs[b.ID] = ss
		for _, s := range ss {
			predCount[s]++
		}
	}

	// chain heads: blocks that are not the single-pred continuation of a
	// single-succ predecessor.
	inChainTail := map[uint32]bool{}
	for _, b := range fn.Blocks {
		if ss := succs[b.ID]; len(ss) == 1 && predCount[ss[0]] == 1 {
			inChainTail[ss[0]] = true
		}
	}

	changed := false
	for _, b := range fn.Blocks {
		if inChainTail[b.ID] {
			continue
		}
		table := map[string]string{}
		id := b.ID
		for {
			blk := byID[id]
			if blk == nil {
				break
			}
			if cseBlock(blk, table) {
				changed = true
			}
			ss := succs[id]
			if len(ss) != 1 || predCount[ss[0]] != 1 {
				break
			}
			id = ss[0]
		}
	}
	return changed
}

func terminatorSuccessors(t hir.Terminator) []uint32 {
	switch x := t.(type) {
	case *hir.Jump:
		return []uint32{x.Target}
	case *hir.Branch:
		return []uint32{x.Consequent, x.Alternate}
	case *hir.Switch:
		out := make([]uint32, len(x.Cases))
		for i, c := range x.Cases {
			out[i] = c.Target
		}
		return out
	case *hir.Break:
		return []uint32{x.Target}
	case *hir.Continue:
		return []uint32{x.Target}
	case *hir.ForOf:
		return []uint32{x.Body, x.Exit}
	case *hir.ForIn:
		return []uint32{x.Body, x.Exit}
	case *hir.Try:
		out := []uint32{x.TryBlock}
		if x.CatchBlock != nil {
			out = append(out, *x.CatchBlock)
		}
		if x.FinallyBlock != nil {
			out = append(out, *x.FinallyBlock)
		}
		return append(out, x.Exit)
	default:
		return nil
	}
}

// cseBlock runs the value table through one block, sharing repeated pure
// values and invalidating on mutation.
func cseBlock(blk *hir.BasicBlock, table map[string]string) bool {
	changed := false
	for _, instr := range blk.Instructions {
		switch in := instr.(type) {
		case *hir.Assign:
			in.Value = replaceSubexpressions(in.Value, table, &changed)
			invalidateMutations(in.Value, table)
			// redefinition of a name kills every cached value reading it;
			// only then is the new value cached under its target.
			invalidateRoot(table, in.Target)
			if key, ok := cseKey(in.Value); ok && compositeKey(key) {
				if _, exists := table[key]; !exists {
					table[key] = in.Target
				}
			}
		case *hir.ExprInstr:
			in.Value = replaceSubexpressions(in.Value, table, &changed)
			invalidateMutations(in.Value, table)
		}
	}
	return changed
}

// replaceSubexpressions substitutes cached occurrences bottom-up: children
// first, so the largest previously-seen subtree wins.
func replaceSubexpressions(e hir.Expression, table map[string]string, changed *bool) hir.Expression {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *hir.Identifier, *hir.Literal:
		return e
	case *hir.Unary:
		x.Argument = replaceSubexpressions(x.Argument, table, changed)
	case *hir.Binary:
		x.Left = replaceSubexpressions(x.Left, table, changed)
		x.Right = replaceSubexpressions(x.Right, table, changed)
	case *hir.Logical:
		x.Left = replaceSubexpressions(x.Left, table, changed)
		x.Right = replaceSubexpressions(x.Right, table, changed)
	case *hir.Conditional:
		x.Test = replaceSubexpressions(x.Test, table, changed)
		x.Consequent = replaceSubexpressions(x.Consequent, table, changed)
		x.Alternate = replaceSubexpressions(x.Alternate, table, changed)
	case *hir.Call:
		x.Callee = replaceSubexpressions(x.Callee, table, changed)
		for i := range x.Args {
			x.Args[i].Expr = replaceSubexpressions(x.Args[i].Expr, table, changed)
		}
	case *hir.Member:
		x.Object = replaceSubexpressions(x.Object, table, changed)
		if x.Computed {
			x.Property = replaceSubexpressions(x.Property, table, changed)
		}
	case *hir.Array:
		for i, el := range x.Elements {
			if el != nil {
				x.Elements[i] = replaceSubexpressions(el, table, changed)
			}
		}
	case *hir.Sequence:
		for i, sub := range x.Expressions {
			x.Expressions[i] = replaceSubexpressions(sub, table, changed)
		}
	case *hir.TemplateLiteral:
		for i, sub := range x.Expressions {
			x.Expressions[i] = replaceSubexpressions(sub, table, changed)
		}
	}
	if key, ok := cseKey(e); ok {
		if name, cached := table[key]; cached {
			*changed = true
			return &hir.Identifier{Name: name, Range: e.Loc()}
		}
	}
	return e
}

// cseKey serializes e into a structural-equality key, succeeding only for
// the pure shapes CSE may share: identifiers, literals, unary/binary/
// logical ops over pure operands, non-optional member loads off an
// identifier (the Symbol.* namespace included), and purely-annotated calls.
// Bare identifiers and literals are valid operands but are never cached as
// entries themselves; callers check for compositeKey.
func cseKey(e hir.Expression) (string, bool) {
	switch x := e.(type) {
	case *hir.Identifier:
		return "id:" + x.Name, true
	case *hir.Literal:
		return "lit:" + strconv.Itoa(int(x.Kind)) + ":" + x.Raw + literalValueKey(x), true
	case *hir.Unary:
		arg, ok := cseKey(x.Argument)
		if !ok {
			return "", false
		}
		return "un:" + x.Operator + "(" + arg + ")", true
	case *hir.Binary:
		l, lok := cseKey(x.Left)
		r, rok := cseKey(x.Right)
		if !lok || !rok {
			return "", false
		}
		return "bin:" + x.Operator + "(" + l + "," + r + ")", true
	case *hir.Logical:
		l, lok := cseKey(x.Left)
		r, rok := cseKey(x.Right)
		if !lok || !rok {
			return "", false
		}
		return "log:" + x.Operator + "(" + l + "," + r + ")", true
	case *hir.Member:
		if x.Optional {
			return "", false
		}
		obj, ok := cseKey(x.Object)
		if !ok {
			return "", false
		}
		if !x.Computed {
			prop, isID := x.Property.(*hir.Identifier)
			if !isID {
				return "", false
			}
			return "mem:" + obj + "." + prop.Name, true
		}
		prop, ok := cseKey(x.Property)
		if !ok {
			return "", false
		}
		return "mem:" + obj + "[" + prop + "]", true
	case *hir.Call:
		if !x.Pure || x.Optional {
			return "", false
		}
		callee, ok := cseKey(x.Callee)
		if !ok {
			return "", false
		}
		parts := make([]string, 0, len(x.Args))
		for _, a := range x.Args {
			if a.Spread {
				return "", false
			}
			k, ok := cseKey(a.Expr)
			if !ok {
				return "", false
			}
			parts = append(parts, k)
		}
		return "call:" + callee + "(" + strings.Join(parts, ",") + ")", true
	default:
		return "", false
	}
}

// compositeKey reports whether a key denotes a compound expression worth
// sharing; bare identifiers and literals are cheaper than the reference
// that would replace them.
func compositeKey(key string) bool {
	return !strings.HasPrefix(key, "id:") && !strings.HasPrefix(key, "lit:")
}

func literalValueKey(lit *hir.Literal) string {
	switch lit.Kind {
	case ast.LitNumber:
		if n, ok := lit.Value.(float64); ok {
			return ":" + strconv.FormatFloat(n, 'g', -1, 64)
		}
	case ast.LitString:
		if s, ok := lit.Value.(string); ok {
			return ":" + s
		}
	case ast.LitBool:
		if b, ok := lit.Value.(bool); ok {
			return ":" + strconv.FormatBool(b)
		}
	}
	return ""
}

// invalidateMutations drops cached entries made stale by e: an assignment
// or update rooted at identifier X drops every entry mentioning X, and an
// unannotated call drops every cached member load (the callee may mutate
// anything reachable).
func invalidateMutations(e hir.Expression, table map[string]string) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *hir.Assignment:
		if root, ok := mutationRoot(x.Target); ok {
			invalidateRoot(table, root)
		}
		invalidateMutations(x.Value, table)
	case *hir.Update:
		if root, ok := mutationRoot(x.Argument); ok {
			invalidateRoot(table, root)
		}
	case *hir.Call:
		if !x.Pure {
			for key := range table {
				if strings.Contains(key, "mem:") {
					delete(table, key)
				}
			}
		}
		invalidateMutations(x.Callee, table)
		for _, a := range x.Args {
			invalidateMutations(a.Expr, table)
		}
	case *hir.Unary:
		invalidateMutations(x.Argument, table)
	case *hir.Binary:
		invalidateMutations(x.Left, table)
		invalidateMutations(x.Right, table)
	case *hir.Logical:
		invalidateMutations(x.Left, table)
		invalidateMutations(x.Right, table)
	case *hir.Conditional:
		invalidateMutations(x.Test, table)
		invalidateMutations(x.Consequent, table)
		invalidateMutations(x.Alternate, table)
	case *hir.Member:
		invalidateMutations(x.Object, table)
	case *hir.Sequence:
		for _, sub := range x.Expressions {
			invalidateMutations(sub, table)
		}
	}
}

// mutationRoot resolves the identifier at the base of a write target.
func mutationRoot(e hir.Expression) (string, bool) {
	switch x := e.(type) {
	case *hir.Identifier:
		return x.Name, true
	case *hir.Member:
		return mutationRoot(x.Object)
	default:
		return "", false
	}
}

// invalidateRoot removes every cached key whose serialization mentions the
// given identifier.
func invalidateRoot(table map[string]string, root string) {
	needle := "id:" + root
	for key, target := range table {
		if strings.Contains(key, needle) || target == root {
			delete(table, key)
		}
	}
}
