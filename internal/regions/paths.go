package regions

import "fictc/internal/hir"

// propertyPathOf resolves e to the property path it reads, rooted at an
// Identifier. Optional-member links and computed accesses truncate the
// path at that point rather than failing outright: `props?.a.b` still
// contributes `props`, and `a[i].b` contributes `a`.
func propertyPathOf(e hir.Expression) ([]string, bool) {
	switch x := e.(type) {
	case *hir.Identifier:
		return []string{x.Name}, true
	case *hir.Member:
		base, ok := propertyPathOf(x.Object)
		if !ok {
			return nil, false
		}
		// a truncating link further down the chain already ended the path
		for inner, isMember := x.Object.(*hir.Member); isMember; inner, isMember = inner.Object.(*hir.Member) {
			if _, named := identifierName(inner.Property); inner.Computed || inner.Optional || !named {
				return base, true
			}
		}
		if x.Computed || x.Optional {
			return base, true
		}
		name, ok := identifierName(x.Property)
		if !ok {
			return base, true
		}
		out := make([]string, len(base)+1)
		copy(out, base)
		out[len(base)] = name
		return out, true
	default:
		return nil, false
	}
}

func identifierName(e hir.Expression) (string, bool) {
	id, ok := e.(*hir.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func addPath(out map[string]PropertyPath, path []string) {
	if len(path) == 0 {
		return
	}
	p := PropertyPath(append([]string{}, path...))
	out[p.String()] = p
}

// collectDeps walks e looking for the maximal property-path reads rooted
// at a name in roots, recording one PropertyPath per distinct maximal
// chain. It recurses into nested function/arrow bodies so a dependency
// captured only inside an inline callback (e.g. the body passed to a
// derived-value macro) is still attributed to the enclosing instruction.
func collectDeps(e hir.Expression, roots map[string]bool, out map[string]PropertyPath) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *hir.Identifier:
		if roots[x.Name] {
			addPath(out, []string{x.Name})
		}
	case *hir.Member:
		if path, ok := propertyPathOf(x); ok && roots[path[0]] {
			addPath(out, path)
			if x.Computed {
				collectDeps(x.Property, roots, out)
			}
			return
		}
		collectDeps(x.Object, roots, out)
		if x.Computed {
			collectDeps(x.Property, roots, out)
		}
	case *hir.Literal:
	case *hir.TemplateLiteral:
		for _, sub := range x.Expressions {
			collectDeps(sub, roots, out)
		}
	case *hir.TaggedTemplate:
		collectDeps(x.Tag, roots, out)
		collectDeps(x.Quasi, roots, out)
	case *hir.Unary:
		collectDeps(x.Argument, roots, out)
	case *hir.Update:
		collectDeps(x.Argument, roots, out)
	case *hir.Binary:
		collectDeps(x.Left, roots, out)
		collectDeps(x.Right, roots, out)
	case *hir.Logical:
		collectDeps(x.Left, roots, out)
		collectDeps(x.Right, roots, out)
	case *hir.Conditional:
		collectDeps(x.Test, roots, out)
		collectDeps(x.Consequent, roots, out)
		collectDeps(x.Alternate, roots, out)
	case *hir.Assignment:
		collectDeps(x.Target, roots, out)
		collectDeps(x.Value, roots, out)
	case *hir.Call:
		collectDeps(x.Callee, roots, out)
		for _, a := range x.Args {
			collectDeps(a.Expr, roots, out)
		}
	case *hir.New:
		collectDeps(x.Callee, roots, out)
		for _, a := range x.Args {
			collectDeps(a.Expr, roots, out)
		}
	case *hir.Array:
		for _, el := range x.Elements {
			collectDeps(el, roots, out)
		}
	case *hir.Object:
		for _, m := range x.Properties {
			switch p := m.(type) {
			case *hir.ObjectProperty:
				if p.Computed {
					collectDeps(p.Key, roots, out)
				}
				collectDeps(p.Value, roots, out)
			case *hir.SpreadElement:
				collectDeps(p.Argument, roots, out)
			}
		}
	case *hir.SpreadElement:
		collectDeps(x.Argument, roots, out)
	case *hir.Sequence:
		for _, sub := range x.Expressions {
			collectDeps(sub, roots, out)
		}
	case *hir.Await:
		collectDeps(x.Argument, roots, out)
	case *hir.Yield:
		collectDeps(x.Argument, roots, out)
	case *hir.ArrowFunction:
		if x.ExpressionBody != nil {
			collectDeps(x.ExpressionBody, roots, out)
		}
		collectDepsInBlocks(x.Blocks, roots, out)
	case *hir.FunctionExpr:
		collectDepsInBlocks(x.Blocks, roots, out)
	case *hir.ImportExpr:
		collectDeps(x.Source, roots, out)
	case *hir.JSXElement:
		for _, attr := range x.Attributes {
			collectDeps(attr.Value, roots, out)
		}
		for _, child := range x.Children {
			if child.Element != nil {
				collectDeps(child.Element, roots, out)
			}
			collectDeps(child.Expression, roots, out)
		}
	}
}

func collectDepsInBlocks(blocks []*hir.BasicBlock, roots map[string]bool, out map[string]PropertyPath) {
	for _, b := range blocks {
		for _, instr := range b.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				collectDeps(in.Value, roots, out)
			case *hir.ExprInstr:
				collectDeps(in.Value, roots, out)
			}
		}
		collectDepsInTerminator(b.Terminator, roots, out)
	}
}

func collectDepsInTerminator(t hir.Terminator, roots map[string]bool, out map[string]PropertyPath) {
	switch x := t.(type) {
	case *hir.Branch:
		collectDeps(x.Test, roots, out)
	case *hir.Switch:
		collectDeps(x.Discriminant, roots, out)
		for _, c := range x.Cases {
			collectDeps(c.Test, roots, out)
		}
	case *hir.Return:
		collectDeps(x.Argument, roots, out)
	case *hir.Throw:
		collectDeps(x.Argument, roots, out)
	case *hir.ForOf:
		collectDeps(x.Iterable, roots, out)
	case *hir.ForIn:
		collectDeps(x.Object, roots, out)
	}
}
