package hir

import (
	"fictc/internal/ast"
	"fictc/internal/compiler"
)

// convertExpr turns a normalized ast.Expression into the HIR expression
// tree, preserving purity flags and optional-chaining markers. Nested
// function/arrow expressions are lowered recursively via BuildFunction,
// each with its own fresh block arena.
func (b *Builder) convertExpr(e ast.Expression) Expression {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *ast.Identifier:
		return &Identifier{Name: x.Name, Range: x.Range}

	case *ast.Literal:
		return &Literal{Kind: x.Kind, Raw: x.Raw, Value: x.Value, Range: x.Range}

	case *ast.TemplateLiteral:
		exprs := make([]Expression, len(x.Expressions))
		for i, sub := range x.Expressions {
			exprs[i] = b.convertExpr(sub)
		}
		return &TemplateLiteral{Quasis: x.Quasis, Expressions: exprs, Range: x.Range}

	case *ast.TaggedTemplateExpr:
		return &TaggedTemplate{
			Tag:   b.convertExpr(x.Tag),
			Quasi: b.convertExpr(x.Quasi).(*TemplateLiteral),
			Range: x.Range,
		}

	case *ast.UnaryExpr:
		return &Unary{Operator: x.Operator, Argument: b.convertExpr(x.Argument), Prefix: x.Prefix, Range: x.Range}

	case *ast.UpdateExpr:
		return &Update{Operator: x.Operator, Argument: b.convertExpr(x.Argument), Prefix: x.Prefix, Range: x.Range}

	case *ast.BinaryExpr:
		return &Binary{Operator: x.Operator, Left: b.convertExpr(x.Left), Right: b.convertExpr(x.Right), Range: x.Range}

	case *ast.LogicalExpr:
		return &Logical{Operator: x.Operator, Left: b.convertExpr(x.Left), Right: b.convertExpr(x.Right), Range: x.Range}

	case *ast.ConditionalExpr:
		return &Conditional{
			Test:       b.convertExpr(x.Test),
			Consequent: b.convertExpr(x.Consequent),
			Alternate:  b.convertExpr(x.Alternate),
			Range:      x.Range,
		}

	case *ast.AssignmentExpr:
		target, _ := x.Target.(ast.Expression)
		return &Assignment{
			Operator: x.Operator,
			Target:   b.convertExpr(target),
			Value:    b.convertExpr(x.Value),
			Range:    x.Range,
		}

	case *ast.CallExpr:
		return &Call{
			Callee:   b.convertExpr(x.Callee),
			Args:     b.convertArgs(x.Args),
			Optional: x.Optional,
			Pure:     x.Pure,
			Range:    x.Range,
		}

	case *ast.NewExpr:
		return &New{Callee: b.convertExpr(x.Callee), Args: b.convertArgs(x.Args), Range: x.Range}

	case *ast.MemberExpr:
		return &Member{
			Object:   b.convertExpr(x.Object),
			Property: b.convertExpr(x.Property),
			Computed: x.Computed,
			Optional: x.Optional,
			Range:    x.Range,
		}

	case *ast.ArrayExpr:
		elems := make([]Expression, len(x.Elements))
		for i, el := range x.Elements {
			if el != nil {
				elems[i] = b.convertExpr(el)
			}
		}
		return &Array{Elements: elems, Range: x.Range}

	case *ast.ObjectExpr:
		props := make([]ObjectMember, 0, len(x.Properties))
		for _, p := range x.Properties {
			if p.Spread {
				props = append(props, &SpreadElement{Argument: b.convertExpr(p.Value)})
				continue
			}
			var key Expression
			if p.Key != nil {
				key = b.convertExpr(p.Key)
			}
			props = append(props, &ObjectProperty{
				Key:       key,
				Value:     b.convertExpr(p.Value),
				Shorthand: p.Shorthand,
				Computed:  p.Computed,
			})
		}
		return &Object{Properties: props, Range: x.Range}

	case *ast.SpreadElement:
		return &SpreadElement{Argument: b.convertExpr(x.Argument), Range: x.Range}

	case *ast.SequenceExpr:
		exprs := make([]Expression, len(x.Expressions))
		for i, sub := range x.Expressions {
			exprs[i] = b.convertExpr(sub)
		}
		return &Sequence{Expressions: exprs, Range: x.Range}

	case *ast.AwaitExpr:
		return &Await{Argument: b.convertExpr(x.Argument), Range: x.Range}

	case *ast.YieldExpr:
		var arg Expression
		if x.Argument != nil {
			arg = b.convertExpr(x.Argument)
		}
		return &Yield{Argument: arg, Delegate: x.Delegate, Range: x.Range}

	case *ast.Function:
		return b.convertFunctionLiteral(x)

	case *ast.ClassExpr:
		return &ClassExpr{Name: x.Name, Raw: x.Raw, Range: x.Range}

	case *ast.ThisExpr:
		return &This{Range: x.Range}

	case *ast.SuperExpr:
		return &Super{Range: x.Range}

	case *ast.ImportExpr:
		return &ImportExpr{Source: b.convertExpr(x.Source), Range: x.Range}

	case *ast.MetaProperty:
		return &MetaProperty{Meta: x.Meta, Property: x.Property, Range: x.Range}

	case *ast.JSXElement:
		return b.convertJSX(x)

	default:
		panic(compiler.NewBuildError(b.ctx.Opts.File, 0, "unsupported expression form %T", e))
	}
}

func (b *Builder) convertArgs(args []ast.Argument) []CallArgument {
	out := make([]CallArgument, len(args))
	for i, a := range args {
		out[i] = CallArgument{Expr: b.convertExpr(a.Expr), Spread: a.Spread}
	}
	return out
}

func (b *Builder) convertJSX(j *ast.JSXElement) *JSXElement {
	attrs := make([]JSXAttribute, len(j.Attributes))
	for i, a := range j.Attributes {
		var v Expression
		if a.Value != nil {
			v = b.convertExpr(a.Value)
		}
		attrs[i] = JSXAttribute{Name: a.Name, Value: v, Spread: a.Spread}
	}
	children := make([]JSXChild, len(j.Children))
	for i, c := range j.Children {
		child := JSXChild{Text: c.Text}
		if c.Element != nil {
			child.Element = b.convertJSX(c.Element)
		}
		if c.Expression != nil {
			child.Expression = b.convertExpr(c.Expression)
		}
		children[i] = child
	}
	return &JSXElement{
		TagName:     j.TagName,
		IsComponent: j.IsComponent,
		IsFragment:  j.IsFragment,
		Attributes:  attrs,
		Children:    children,
		Range:       j.Range,
	}
}

// convertFunctionLiteral lowers a nested function/arrow expression via a
// fresh Builder, the same recursive-descent/context-threading scheme used
// for re-entrant compilation.
func (b *Builder) convertFunctionLiteral(fn *ast.Function) Expression {
	nested, err := BuildFunction(b.ctx, fn)
	if err != nil {
		// BuildFunction only fails on malformed input (unsupported forms,
		// unmatched break/continue); re-raise it through a panic, since
		// convertExpr itself has no error return in the expression walk.
		// The enclosing BuildFunction recovers the *CompileError and
		// returns it unchanged as its own error.
		panic(err)
	}
	if fn.IsArrow {
		af := &ArrowFunction{
			Params:         nested.Params,
			OriginalParams: nested.OriginalParams,
			Meta:           nested.Meta,
			Range:          nested.Loc,
		}
		if fn.HasExpressionBody {
			af.ExpressionBody = returnArgumentOf(nested.Blocks)
		} else {
			af.Blocks = nested.Blocks
		}
		return af
	}
	return &FunctionExpr{
		Name:           nested.Name,
		Params:         nested.Params,
		OriginalParams: nested.OriginalParams,
		Blocks:         nested.Blocks,
		Meta:           nested.Meta,
		Range:          nested.Loc,
	}
}

// returnArgumentOf recovers the single expression body of a one-block,
// single-Return function built by BuildFunction for an expression-bodied
// arrow, so ArrowFunction can carry ExpressionBody directly.
func returnArgumentOf(blocks []*BasicBlock) Expression {
	if len(blocks) != 1 {
		return nil
	}
	ret, ok := blocks[0].Terminator.(*Return)
	if !ok {
		return nil
	}
	return ret.Argument
}
