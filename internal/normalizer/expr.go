package normalizer

import "fictc/internal/ast"

// normalizeExpr resolves macro aliases, unwraps transparent wrappers, and
// recurses into every sub-expression, including nested function/arrow
// bodies. enclosing carries the directive set in scope at the expression's
// position so a program- or function-level "use pure"/"use no memo" still
// reaches function literals found in expression position (the
// `const Component = (props) => {...}` shape included).
func (n *Normalizer) normalizeExpr(e ast.Expression, enclosing []string) ast.Expression {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *ast.ParenthesizedExpr:
		return n.normalizeExpr(x.Expr, enclosing)

	case *ast.TypeAssertionExpr:
		return n.normalizeExpr(x.Expr, enclosing)

	case *ast.Identifier:
		return x

	case *ast.Literal:
		return x

	case *ast.TemplateLiteral:
		for i, sub := range x.Expressions {
			x.Expressions[i] = n.normalizeExpr(sub, enclosing)
		}
		return x

	case *ast.TaggedTemplateExpr:
		x.Tag = n.normalizeExpr(x.Tag, enclosing)
		x.Quasi = n.normalizeExpr(x.Quasi, enclosing).(*ast.TemplateLiteral)
		return x

	case *ast.UnaryExpr:
		x.Argument = n.normalizeExpr(x.Argument, enclosing)
		return x

	case *ast.UpdateExpr:
		x.Argument = n.normalizeExpr(x.Argument, enclosing)
		return x

	case *ast.BinaryExpr:
		x.Left = n.normalizeExpr(x.Left, enclosing)
		x.Right = n.normalizeExpr(x.Right, enclosing)
		return x

	case *ast.LogicalExpr:
		x.Left = n.normalizeExpr(x.Left, enclosing)
		x.Right = n.normalizeExpr(x.Right, enclosing)
		return x

	case *ast.ConditionalExpr:
		x.Test = n.normalizeExpr(x.Test, enclosing)
		x.Consequent = n.normalizeExpr(x.Consequent, enclosing)
		x.Alternate = n.normalizeExpr(x.Alternate, enclosing)
		return x

	case *ast.AssignmentExpr:
		x.Value = n.normalizeExpr(x.Value, enclosing)
		if target, ok := x.Target.(ast.Expression); ok {
			x.Target = n.normalizeExpr(target, enclosing)
		}
		return x

	case *ast.CallExpr:
		x.Callee = n.normalizeCallee(x.Callee, enclosing)
		for i := range x.Args {
			x.Args[i].Expr = n.normalizeExpr(x.Args[i].Expr, enclosing)
		}
		return x

	case *ast.NewExpr:
		x.Callee = n.normalizeExpr(x.Callee, enclosing)
		for i := range x.Args {
			x.Args[i].Expr = n.normalizeExpr(x.Args[i].Expr, enclosing)
		}
		return x

	case *ast.MemberExpr:
		x.Object = n.normalizeExpr(x.Object, enclosing)
		if x.Computed {
			x.Property = n.normalizeExpr(x.Property, enclosing)
		}
		return x

	case *ast.ArrayExpr:
		for i, el := range x.Elements {
			if el != nil {
				x.Elements[i] = n.normalizeExpr(el, enclosing)
			}
		}
		return x

	case *ast.ObjectExpr:
		for i := range x.Properties {
			if !x.Properties[i].Spread && !x.Properties[i].Computed {
				// key is an identifier/literal tag, left untouched
			} else if x.Properties[i].Key != nil {
				x.Properties[i].Key = n.normalizeExpr(x.Properties[i].Key, enclosing)
			}
			x.Properties[i].Value = n.normalizeExpr(x.Properties[i].Value, enclosing)
		}
		return x

	case *ast.SpreadElement:
		x.Argument = n.normalizeExpr(x.Argument, enclosing)
		return x

	case *ast.SequenceExpr:
		for i, sub := range x.Expressions {
			x.Expressions[i] = n.normalizeExpr(sub, enclosing)
		}
		return x

	case *ast.AwaitExpr:
		x.Argument = n.normalizeExpr(x.Argument, enclosing)
		return x

	case *ast.YieldExpr:
		if x.Argument != nil {
			x.Argument = n.normalizeExpr(x.Argument, enclosing)
		}
		return x

	case *ast.Function:
		n.normalizeFunction(x, enclosing)
		return x

	case *ast.ImportExpr:
		x.Source = n.normalizeExpr(x.Source, enclosing)
		return x

	case *ast.JSXElement:
		return n.normalizeJSX(x, enclosing)

	default:
		// ClassExpr, This, Super, MetaProperty carry no children the core
		// analyzes.
		return e
	}
}

// normalizeCallee resolves a direct macro-alias call (`$myState(...)`) to
// its canonical name; member-expression callees and other
// shapes are otherwise normalized normally.
func (n *Normalizer) normalizeCallee(callee ast.Expression, enclosing []string) ast.Expression {
	if id, ok := callee.(*ast.Identifier); ok {
		if canonical, isAlias := n.ctx.CanonicalMacroName(id.Name); isAlias {
			return &ast.Identifier{Name: canonical, Range: id.Range}
		}
		return id
	}
	return n.normalizeExpr(callee, enclosing)
}

func (n *Normalizer) normalizeJSX(j *ast.JSXElement, enclosing []string) ast.Expression {
	if !j.IsFragment {
		j.IsComponent = classifyJSXTag(j.TagName)
	}
	for i := range j.Attributes {
		if j.Attributes[i].Value != nil {
			j.Attributes[i].Value = n.normalizeExpr(j.Attributes[i].Value, enclosing)
		}
	}
	for i := range j.Children {
		if j.Children[i].Element != nil {
			j.Children[i].Element = n.normalizeJSX(j.Children[i].Element, enclosing).(*ast.JSXElement)
		}
		if j.Children[i].Expression != nil {
			j.Children[i].Expression = n.normalizeExpr(j.Children[i].Expression, enclosing)
		}
	}
	return j
}
