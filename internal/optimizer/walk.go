package optimizer

import "fictc/internal/hir"

// walkExpr visits every identifier use inside e, including uses captured by
// nested function/arrow literals, so a name referenced only from a closure
// still counts as live.
func walkExpr(e hir.Expression, visit func(*hir.Identifier)) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *hir.Identifier:
		visit(x)
	case *hir.Literal:
	case *hir.TemplateLiteral:
		for _, sub := range x.Expressions {
			walkExpr(sub, visit)
		}
	case *hir.TaggedTemplate:
		walkExpr(x.Tag, visit)
		walkExpr(x.Quasi, visit)
	case *hir.Unary:
		walkExpr(x.Argument, visit)
	case *hir.Update:
		walkExpr(x.Argument, visit)
	case *hir.Binary:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case *hir.Logical:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case *hir.Conditional:
		walkExpr(x.Test, visit)
		walkExpr(x.Consequent, visit)
		walkExpr(x.Alternate, visit)
	case *hir.Assignment:
		walkExpr(x.Target, visit)
		walkExpr(x.Value, visit)
	case *hir.Call:
		walkExpr(x.Callee, visit)
		for _, a := range x.Args {
			walkExpr(a.Expr, visit)
		}
	case *hir.New:
		walkExpr(x.Callee, visit)
		for _, a := range x.Args {
			walkExpr(a.Expr, visit)
		}
	case *hir.Member:
		walkExpr(x.Object, visit)
		if x.Computed {
			walkExpr(x.Property, visit)
		}
	case *hir.Array:
		for _, el := range x.Elements {
			walkExpr(el, visit)
		}
	case *hir.Object:
		for _, m := range x.Properties {
			switch p := m.(type) {
			case *hir.ObjectProperty:
				if p.Computed {
					walkExpr(p.Key, visit)
				}
				walkExpr(p.Value, visit)
			case *hir.SpreadElement:
				walkExpr(p.Argument, visit)
			}
		}
	case *hir.SpreadElement:
		walkExpr(x.Argument, visit)
	case *hir.Sequence:
		for _, sub := range x.Expressions {
			walkExpr(sub, visit)
		}
	case *hir.Await:
		walkExpr(x.Argument, visit)
	case *hir.Yield:
		walkExpr(x.Argument, visit)
	case *hir.ArrowFunction:
		walkExpr(x.ExpressionBody, visit)
		walkBlocks(x.Blocks, visit)
	case *hir.FunctionExpr:
		walkBlocks(x.Blocks, visit)
	case *hir.ImportExpr:
		walkExpr(x.Source, visit)
	case *hir.JSXElement:
		for _, a := range x.Attributes {
			walkExpr(a.Value, visit)
		}
		for _, c := range x.Children {
			if c.Element != nil {
				walkExpr(c.Element, visit)
			}
			walkExpr(c.Expression, visit)
		}
	}
}

func walkBlocks(blocks []*hir.BasicBlock, visit func(*hir.Identifier)) {
	for _, b := range blocks {
		for _, instr := range b.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				walkExpr(in.Value, visit)
			case *hir.ExprInstr:
				walkExpr(in.Value, visit)
			case *hir.Phi:
				for _, src := range in.Sources {
					visit(&hir.Identifier{Name: src.ID})
				}
			}
		}
		walkTerminator(b.Terminator, visit)
	}
}

func walkTerminator(t hir.Terminator, visit func(*hir.Identifier)) {
	switch x := t.(type) {
	case *hir.Branch:
		walkExpr(x.Test, visit)
	case *hir.Switch:
		walkExpr(x.Discriminant, visit)
		for _, c := range x.Cases {
			walkExpr(c.Test, visit)
		}
	case *hir.Return:
		walkExpr(x.Argument, visit)
	case *hir.Throw:
		walkExpr(x.Argument, visit)
	case *hir.ForOf:
		walkExpr(x.Iterable, visit)
	case *hir.ForIn:
		walkExpr(x.Object, visit)
	}
}

// useCounts tallies, for every name, how many times it is read anywhere in
// fn: instruction values, terminators, phi sources, and nested closures.
// Definitions (Assign targets) do not count; the target of an
// assignment-expression does, which conservatively keeps mutated names
// alive.
func useCounts(fn *hir.Function) map[string]int {
	counts := map[string]int{}
	walkBlocks(fn.Blocks, func(id *hir.Identifier) {
		counts[id.Name]++
	})
	return counts
}

// sideEffectFree reports whether evaluating e can be observed: literals,
// identifiers, member loads, purely-annotated calls, closures, and
// compositions of the above are unobservable; anything mutating
// (assignment, update), suspending (await/yield), or calling without a
// purity annotation is not.
func sideEffectFree(e hir.Expression) bool {
	switch x := e.(type) {
	case nil:
		return true
	case *hir.Identifier, *hir.Literal, *hir.This, *hir.MetaProperty:
		return true
	case *hir.Member:
		if x.Computed && !sideEffectFree(x.Property) {
			return false
		}
		return sideEffectFree(x.Object)
	case *hir.TemplateLiteral:
		for _, sub := range x.Expressions {
			if !sideEffectFree(sub) {
				return false
			}
		}
		return true
	case *hir.Unary:
		if x.Operator == "delete" {
			return false
		}
		return sideEffectFree(x.Argument)
	case *hir.Binary:
		return sideEffectFree(x.Left) && sideEffectFree(x.Right)
	case *hir.Logical:
		return sideEffectFree(x.Left) && sideEffectFree(x.Right)
	case *hir.Conditional:
		return sideEffectFree(x.Test) && sideEffectFree(x.Consequent) && sideEffectFree(x.Alternate)
	case *hir.Call:
		if !x.Pure {
			return false
		}
		if !sideEffectFree(x.Callee) {
			return false
		}
		for _, a := range x.Args {
			if !sideEffectFree(a.Expr) {
				return false
			}
		}
		return true
	case *hir.Array:
		for _, el := range x.Elements {
			if !sideEffectFree(el) {
				return false
			}
		}
		return true
	case *hir.Object:
		for _, m := range x.Properties {
			switch p := m.(type) {
			case *hir.ObjectProperty:
				if p.Computed && !sideEffectFree(p.Key) {
					return false
				}
				if !sideEffectFree(p.Value) {
					return false
				}
			case *hir.SpreadElement:
				if !sideEffectFree(p.Argument) {
					return false
				}
			}
		}
		return true
	case *hir.SpreadElement:
		return sideEffectFree(x.Argument)
	case *hir.ArrowFunction, *hir.FunctionExpr:
		// forming a closure is unobservable; running it is not, and a bare
		// unused closure value never runs.
		return true
	default:
		return false
	}
}

// containsImpureCall reports whether e contains a call not annotated pure.
// DCE keys on this rather than on sideEffectFree alone so an assignment
// whose value wraps an unannotated call is always retained.
func containsImpureCall(e hir.Expression) bool {
	found := false
	var scan func(hir.Expression)
	scan = func(e hir.Expression) {
		if e == nil || found {
			return
		}
		if call, ok := e.(*hir.Call); ok && !call.Pure {
			found = true
			return
		}
		if _, ok := e.(*hir.New); ok {
			found = true
			return
		}
		switch x := e.(type) {
		case *hir.TemplateLiteral:
			for _, s := range x.Expressions {
				scan(s)
			}
		case *hir.Unary:
			scan(x.Argument)
		case *hir.Binary:
			scan(x.Left)
			scan(x.Right)
		case *hir.Logical:
			scan(x.Left)
			scan(x.Right)
		case *hir.Conditional:
			scan(x.Test)
			scan(x.Consequent)
			scan(x.Alternate)
		case *hir.Call:
			scan(x.Callee)
			for _, a := range x.Args {
				scan(a.Expr)
			}
		case *hir.Member:
			scan(x.Object)
			if x.Computed {
				scan(x.Property)
			}
		case *hir.Array:
			for _, el := range x.Elements {
				scan(el)
			}
		case *hir.Object:
			for _, m := range x.Properties {
				switch p := m.(type) {
				case *hir.ObjectProperty:
					scan(p.Key)
					scan(p.Value)
				case *hir.SpreadElement:
					scan(p.Argument)
				}
			}
		case *hir.SpreadElement:
			scan(x.Argument)
		case *hir.Sequence:
			for _, s := range x.Expressions {
				scan(s)
			}
		}
	}
	scan(e)
	return found
}

// rewriteIdentifiers returns e with every identifier it (or a sub-expression)
// uses passed through subst; subst returning nil keeps the original. Inside a
// nested function/arrow, names that function re-declares are left alone.
// Compound nodes are updated in place; only a substituted identifier is
// replaced by a new node.
func rewriteIdentifiers(e hir.Expression, subst func(name string) hir.Expression) hir.Expression {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *hir.Identifier:
		if repl := subst(x.Name); repl != nil {
			return repl
		}
		return x
	case *hir.TemplateLiteral:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteIdentifiers(sub, subst)
		}
		return x
	case *hir.TaggedTemplate:
		x.Tag = rewriteIdentifiers(x.Tag, subst)
		x.Quasi = rewriteIdentifiers(x.Quasi, subst).(*hir.TemplateLiteral)
		return x
	case *hir.Unary:
		x.Argument = rewriteIdentifiers(x.Argument, subst)
		return x
	case *hir.Binary:
		x.Left = rewriteIdentifiers(x.Left, subst)
		x.Right = rewriteIdentifiers(x.Right, subst)
		return x
	case *hir.Logical:
		x.Left = rewriteIdentifiers(x.Left, subst)
		x.Right = rewriteIdentifiers(x.Right, subst)
		return x
	case *hir.Conditional:
		x.Test = rewriteIdentifiers(x.Test, subst)
		x.Consequent = rewriteIdentifiers(x.Consequent, subst)
		x.Alternate = rewriteIdentifiers(x.Alternate, subst)
		return x
	case *hir.Assignment:
		// the target of an assignment is a def position, not a use; only
		// its value side is substitutable.
		x.Value = rewriteIdentifiers(x.Value, subst)
		return x
	case *hir.Call:
		x.Callee = rewriteIdentifiers(x.Callee, subst)
		for i := range x.Args {
			x.Args[i].Expr = rewriteIdentifiers(x.Args[i].Expr, subst)
		}
		return x
	case *hir.New:
		x.Callee = rewriteIdentifiers(x.Callee, subst)
		for i := range x.Args {
			x.Args[i].Expr = rewriteIdentifiers(x.Args[i].Expr, subst)
		}
		return x
	case *hir.Member:
		x.Object = rewriteIdentifiers(x.Object, subst)
		if x.Computed {
			x.Property = rewriteIdentifiers(x.Property, subst)
		}
		return x
	case *hir.Array:
		for i, el := range x.Elements {
			if el != nil {
				x.Elements[i] = rewriteIdentifiers(el, subst)
			}
		}
		return x
	case *hir.Object:
		for _, m := range x.Properties {
			switch p := m.(type) {
			case *hir.ObjectProperty:
				if p.Computed {
					p.Key = rewriteIdentifiers(p.Key, subst)
				}
				p.Value = rewriteIdentifiers(p.Value, subst)
			case *hir.SpreadElement:
				p.Argument = rewriteIdentifiers(p.Argument, subst)
			}
		}
		return x
	case *hir.SpreadElement:
		x.Argument = rewriteIdentifiers(x.Argument, subst)
		return x
	case *hir.Sequence:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteIdentifiers(sub, subst)
		}
		return x
	case *hir.Await:
		x.Argument = rewriteIdentifiers(x.Argument, subst)
		return x
	case *hir.Yield:
		if x.Argument != nil {
			x.Argument = rewriteIdentifiers(x.Argument, subst)
		}
		return x
	case *hir.ArrowFunction:
		subst = filterShadowed(subst, x.Params, x.Blocks)
		if x.ExpressionBody != nil {
			x.ExpressionBody = rewriteIdentifiers(x.ExpressionBody, subst)
		}
		rewriteIdentifiersInBlocks(x.Blocks, subst)
		return x
	case *hir.FunctionExpr:
		subst = filterShadowed(subst, x.Params, x.Blocks)
		rewriteIdentifiersInBlocks(x.Blocks, subst)
		return x
	case *hir.ImportExpr:
		x.Source = rewriteIdentifiers(x.Source, subst)
		return x
	case *hir.JSXElement:
		for i := range x.Attributes {
			if x.Attributes[i].Value != nil {
				x.Attributes[i].Value = rewriteIdentifiers(x.Attributes[i].Value, subst)
			}
		}
		for i := range x.Children {
			if x.Children[i].Element != nil {
				x.Children[i].Element = rewriteIdentifiers(x.Children[i].Element, subst).(*hir.JSXElement)
			}
			if x.Children[i].Expression != nil {
				x.Children[i].Expression = rewriteIdentifiers(x.Children[i].Expression, subst)
			}
		}
		return x
	default:
		return e
	}
}

func rewriteIdentifiersInBlocks(blocks []*hir.BasicBlock, subst func(string) hir.Expression) {
	for _, b := range blocks {
		for _, instr := range b.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				in.Value = rewriteIdentifiers(in.Value, subst)
			case *hir.ExprInstr:
				in.Value = rewriteIdentifiers(in.Value, subst)
			}
		}
		rewriteTerminatorIdentifiers(b.Terminator, subst)
	}
}

func rewriteTerminatorIdentifiers(t hir.Terminator, subst func(string) hir.Expression) {
	switch x := t.(type) {
	case *hir.Branch:
		x.Test = rewriteIdentifiers(x.Test, subst)
	case *hir.Switch:
		x.Discriminant = rewriteIdentifiers(x.Discriminant, subst)
		for i := range x.Cases {
			if x.Cases[i].Test != nil {
				x.Cases[i].Test = rewriteIdentifiers(x.Cases[i].Test, subst)
			}
		}
	case *hir.Return:
		if x.Argument != nil {
			x.Argument = rewriteIdentifiers(x.Argument, subst)
		}
	case *hir.Throw:
		x.Argument = rewriteIdentifiers(x.Argument, subst)
	case *hir.ForOf:
		x.Iterable = rewriteIdentifiers(x.Iterable, subst)
	case *hir.ForIn:
		x.Object = rewriteIdentifiers(x.Object, subst)
	}
}
