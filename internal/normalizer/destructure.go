package normalizer

import (
	"fictc/internal/ast"
	"fictc/internal/compiler"
)

const restHelperName = "__fictPropsRest"

// expandAssignmentPattern rewrites a destructuring AssignmentExpression used
// as a statement (`({a, b} = obj);`) into temp + member-load assignments.
// Only Identifier leaves are supported; a member-expression
// leaf (`({a: obj.x} = src)`) is rare enough in practice that it is left to
// the caller's parser to have already flattened, and is otherwise a build
// error surfaced by the HIR builder when a Pattern still reaches it.
func (n *Normalizer) expandAssignmentPattern(pat ast.Pattern, value ast.Expression) []ast.Statement {
	var out []ast.Statement
	ExpandBindingPattern(n.ctx, pat, value, "", false, &out)
	return out
}

// ExpandBindingPattern recursively lowers pat so that source is bound to it,
// appending the resulting statements to *out. declare controls whether leaf
// bindings are emitted as `kind leaf = ...` declarations (variable/parameter
// destructuring) or `leaf = ...` assignments (destructuring-assignment
// statements). Exported so the HIR builder can reuse the same expansion for
// pattern-bound variable declarations, which are lowered at CFG-construction
// time rather than during normalization.
func ExpandBindingPattern(ctx *compiler.Context, pat ast.Pattern, source ast.Expression, kind ast.DeclarationKind, declare bool, out *[]ast.Statement) {
	switch p := pat.(type) {
	case *ast.Identifier:
		*out = append(*out, bindStatement(kind, p, source, declare))

	case *ast.AssignmentPattern:
		defaulted := withDefault(source, p.Right)
		ExpandBindingPattern(ctx, p.Left, defaulted, kind, declare, out)

	case *ast.ObjectPattern:
		tempExpr := materialize(ctx, source, true, out)
		excluded := make([]string, 0, len(p.Properties))
		for _, prop := range p.Properties {
			access := memberAccess(tempExpr, prop.Key)
			var value ast.Expression = access
			if prop.Default != nil {
				value = withDefault(access, prop.Default)
			}
			ExpandBindingPattern(ctx, prop.Value, value, kind, declare, out)
			excluded = append(excluded, prop.Key)
		}
		if p.Rest != nil {
			*out = append(*out, bindStatement(kind, identFromPattern(p.Rest.Argument), restHelperCall(tempExpr, excluded), declare))
		}

	case *ast.ArrayPattern:
		tempExpr := materialize(ctx, source, false, out)
		for i, elem := range p.Elements {
			if elem == nil {
				continue // elision
			}
			if rest, ok := elem.(*ast.RestElement); ok {
				ExpandBindingPattern(ctx, rest.Argument, sliceHelperCall(tempExpr, i), kind, declare, out)
				continue
			}
			ExpandBindingPattern(ctx, elem, indexAccess(tempExpr, i), kind, declare, out)
		}

	case *ast.RestElement:
		ExpandBindingPattern(ctx, p.Argument, source, kind, declare, out)
	}
}

// materialize emits (if needed) a temporary holding source and returns an
// expression referencing it. When allowElide is true and source is already a
// bare identifier, the temporary is elided; this applies to
// object-pattern sources only.
func materialize(ctx *compiler.Context, source ast.Expression, allowElide bool, out *[]ast.Statement) ast.Expression {
	if allowElide {
		if ident, ok := source.(*ast.Identifier); ok {
			return ident
		}
	}
	temp := &ast.Identifier{Name: ctx.NextDestructTemp()}
	*out = append(*out, bindStatement(ast.DeclConst, temp, source, true))
	return temp
}

func bindStatement(kind ast.DeclarationKind, target *ast.Identifier, value ast.Expression, declare bool) ast.Statement {
	if declare {
		return &ast.VariableDecl{
			Kind:         kind,
			Declarations: []*ast.VariableDeclarator{{Id: target, Init: value}},
		}
	}
	return &ast.ExprStmt{Expr: &ast.AssignmentExpr{Operator: "=", Target: target, Value: value}}
}

func identFromPattern(p ast.Pattern) *ast.Identifier {
	if id, ok := p.(*ast.Identifier); ok {
		return id
	}
	// A rest target that is itself a nested pattern is not valid JS; fall
	// back to a synthetic name so expansion can proceed without panicking.
	// No error is reported: the rest value is bound to that synthetic name.
	return &ast.Identifier{Name: "__fictInvalidRestTarget"}
}

func withDefault(expr, fallback ast.Expression) ast.Expression {
	return &ast.LogicalExpr{Operator: "??", Left: expr, Right: fallback}
}

func memberAccess(object ast.Expression, key string) ast.Expression {
	return &ast.MemberExpr{Object: object, Property: &ast.Identifier{Name: key}, Computed: false}
}

func indexAccess(object ast.Expression, index int) ast.Expression {
	return &ast.MemberExpr{Object: object, Property: numberLiteral(index), Computed: true}
}

func numberLiteral(n int) *ast.Literal {
	return &ast.Literal{Kind: ast.LitNumber, Value: float64(n)}
}

func stringLiteral(s string) *ast.Literal {
	return &ast.Literal{Kind: ast.LitString, Value: s}
}

// restHelperCall builds `__fictPropsRest(temp, [excludedKeys...])`.
func restHelperCall(temp ast.Expression, excluded []string) ast.Expression {
	elements := make([]ast.Expression, len(excluded))
	for i, k := range excluded {
		elements[i] = stringLiteral(k)
	}
	return &ast.CallExpr{
		Callee: &ast.Identifier{Name: restHelperName},
		Args: []ast.Argument{
			{Expr: temp},
			{Expr: &ast.ArrayExpr{Elements: elements}},
		},
	}
}

// sliceHelperCall builds `temp.slice(firstRestIndex)` for array rest capture.
func sliceHelperCall(temp ast.Expression, firstRestIndex int) ast.Expression {
	return &ast.CallExpr{
		Callee: &ast.MemberExpr{Object: temp, Property: &ast.Identifier{Name: "slice"}, Computed: false},
		Args:   []ast.Argument{{Expr: numberLiteral(firstRestIndex)}},
	}
}
