package optimizer

import (
	"strings"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// ConstantPropagation substitutes const identifiers bound to literals (or
// to shape-stable object literals whose accessed property is a literal)
// into their uses across block boundaries. The pass only runs when the
// cross-block toggle is enabled (it is added to the pipeline conditionally).
//
// Shadowing stops substitution: a name declared more than once in the
// function is never propagated, and a nested function/arrow that re-declares
// the name (as a parameter or a local declaration) keeps its own binding
// untouched.
type ConstantPropagation struct{}

func (c *ConstantPropagation) Name() string { return "const-propagation" }

func (c *ConstantPropagation) Apply(_ *compiler.Context, fn *hir.Function) bool {
	consts := collectPropagatable(fn)
	if len(consts) == 0 {
		return false
	}

	changed := false
	subst := func(name string) hir.Expression {
		if lit, ok := consts[name]; ok {
			if l, isLit := lit.(*hir.Literal); isLit {
				changed = true
				return &hir.Literal{Kind: l.Kind, Raw: l.Raw, Value: l.Value, Range: l.Range}
			}
		}
		return nil
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				if _, isSelf := consts[in.Target]; isSelf {
					continue // keep the defining binding itself intact
				}
				in.Value = substituteShadowAware(in.Value, consts, subst, &changed)
			case *hir.ExprInstr:
				in.Value = substituteShadowAware(in.Value, consts, subst, &changed)
			}
		}
		rewriteTerminatorIdentifiers(blk.Terminator, subst)
	}

	// second form: const o = {a: 1}; o.a -> 1, for shape-stable object
	// literals. Handled as a member-load rewrite after plain identifier
	// substitution so `o` itself is never replaced wholesale.
	objs := collectStableObjects(consts)
	if len(objs) > 0 {
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instructions {
				switch in := instr.(type) {
				case *hir.Assign:
					in.Value = rewriteStableMembers(in.Value, objs, &changed)
				case *hir.ExprInstr:
					in.Value = rewriteStableMembers(in.Value, objs, &changed)
				}
			}
		}
	}
	return changed
}

// collectPropagatable finds names declared const exactly once across the
// whole function (any second definition, whatever its kind, disqualifies
// the name as shadowed) and bound to a literal.
func collectPropagatable(fn *hir.Function) map[string]hir.Expression {
	defCount := map[string]int{}
	var scanBlocks func(blocks []*hir.BasicBlock)
	scanBlocks = func(blocks []*hir.BasicBlock) {
		for _, blk := range blocks {
			for _, instr := range blk.Instructions {
				switch in := instr.(type) {
				case *hir.Assign:
					defCount[in.Target]++
				case *hir.Phi:
					defCount[in.Target]++
				}
			}
		}
	}
	scanBlocks(fn.Blocks)

	out := map[string]hir.Expression{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			assign, ok := instr.(*hir.Assign)
			if !ok || assign.DeclarationKind != ast.DeclConst {
				continue
			}
			if defCount[assign.Target] != 1 {
				continue
			}
			switch assign.Value.(type) {
			case *hir.Literal, *hir.Object:
				out[assign.Target] = assign.Value
			}
		}
	}
	return out
}

// substituteShadowAware applies subst through e, but descends into nested
// function/arrow literals only for names the nested function does not
// re-declare.
func substituteShadowAware(e hir.Expression, consts map[string]hir.Expression, subst func(string) hir.Expression, changed *bool) hir.Expression {
	switch x := e.(type) {
	case *hir.ArrowFunction:
		filtered := filterShadowed(subst, x.Params, x.Blocks)
		if x.ExpressionBody != nil {
			x.ExpressionBody = rewriteIdentifiers(x.ExpressionBody, filtered)
		}
		rewriteIdentifiersInBlocks(x.Blocks, filtered)
		return x
	case *hir.FunctionExpr:
		filtered := filterShadowed(subst, x.Params, x.Blocks)
		rewriteIdentifiersInBlocks(x.Blocks, filtered)
		return x
	default:
		return rewriteIdentifiers(e, func(name string) hir.Expression {
			return subst(name)
		})
	}
}

// filterShadowed wraps subst so names re-declared by the nested function
// (parameters or local declarations) pass through unsubstituted. The SSA
// suffix is stripped before comparing: `__a$$ssa1` is shadowed by a nested
// `let __a`.
func filterShadowed(subst func(string) hir.Expression, params []string, blocks []*hir.BasicBlock) func(string) hir.Expression {
	declared := map[string]bool{}
	for _, p := range params {
		declared[p] = true
	}
	for _, blk := range blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok && assign.DeclarationKind != "" {
				declared[baseName(assign.Target)] = true
			}
		}
	}
	return func(name string) hir.Expression {
		if declared[baseName(name)] {
			return nil
		}
		return subst(name)
	}
}

// baseName strips a single trailing $$ssa<digits> version suffix, if any.
func baseName(name string) string {
	idx := strings.LastIndex(name, "$$ssa")
	if idx < 0 {
		return name
	}
	suffix := name[idx+len("$$ssa"):]
	if suffix == "" {
		return name
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:idx]
}

// collectStableObjects keeps the subset of propagatable consts whose value
// is an object literal with only non-computed, non-spread, literal-valued
// properties, the "shape-stable" form whose member loads fold.
func collectStableObjects(consts map[string]hir.Expression) map[string]map[string]*hir.Literal {
	out := map[string]map[string]*hir.Literal{}
	for name, value := range consts {
		obj, ok := value.(*hir.Object)
		if !ok {
			continue
		}
		props := map[string]*hir.Literal{}
		stable := true
		for _, m := range obj.Properties {
			p, isProp := m.(*hir.ObjectProperty)
			if !isProp || p.Computed {
				stable = false
				break
			}
			key, keyOK := p.Key.(*hir.Identifier)
			lit, valOK := p.Value.(*hir.Literal)
			if !keyOK || !valOK {
				stable = false
				break
			}
			props[key.Name] = lit
		}
		if stable && len(props) > 0 {
			out[name] = props
		}
	}
	return out
}

// rewriteStableMembers replaces `o.key` member loads on shape-stable
// objects with the property's literal.
func rewriteStableMembers(e hir.Expression, objs map[string]map[string]*hir.Literal, changed *bool) hir.Expression {
	if e == nil {
		return nil
	}
	if member, ok := e.(*hir.Member); ok && !member.Computed && !member.Optional {
		if obj, isID := member.Object.(*hir.Identifier); isID {
			if props, tracked := objs[obj.Name]; tracked {
				if key, isKey := member.Property.(*hir.Identifier); isKey {
					if lit, has := props[key.Name]; has {
						*changed = true
						return &hir.Literal{Kind: lit.Kind, Raw: lit.Raw, Value: lit.Value, Range: member.Range}
					}
				}
			}
		}
	}
	// non-member shapes recurse through the shared rewriter by treating
	// every subexpression position uniformly.
	switch x := e.(type) {
	case *hir.Unary:
		x.Argument = rewriteStableMembers(x.Argument, objs, changed)
	case *hir.Binary:
		x.Left = rewriteStableMembers(x.Left, objs, changed)
		x.Right = rewriteStableMembers(x.Right, objs, changed)
	case *hir.Logical:
		x.Left = rewriteStableMembers(x.Left, objs, changed)
		x.Right = rewriteStableMembers(x.Right, objs, changed)
	case *hir.Conditional:
		x.Test = rewriteStableMembers(x.Test, objs, changed)
		x.Consequent = rewriteStableMembers(x.Consequent, objs, changed)
		x.Alternate = rewriteStableMembers(x.Alternate, objs, changed)
	case *hir.Call:
		x.Callee = rewriteStableMembers(x.Callee, objs, changed)
		for i := range x.Args {
			x.Args[i].Expr = rewriteStableMembers(x.Args[i].Expr, objs, changed)
		}
	case *hir.Member:
		x.Object = rewriteStableMembers(x.Object, objs, changed)
	case *hir.Array:
		for i, el := range x.Elements {
			if el != nil {
				x.Elements[i] = rewriteStableMembers(el, objs, changed)
			}
		}
	case *hir.Sequence:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteStableMembers(sub, objs, changed)
		}
	case *hir.TemplateLiteral:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteStableMembers(sub, objs, changed)
		}
	}
	return e
}
