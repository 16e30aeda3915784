package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
)

func newNormalizer(opts compiler.Options) *Normalizer {
	opts.File = "test.jsx"
	return New(compiler.NewContext(opts))
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

func TestMacroAliasResolution(t *testing.T) {
	n := newNormalizer(compiler.Options{
		MacroAliases: compiler.MacroAliases{State: []string{"$signal"}, Effect: []string{"$watch"}},
	})

	out := n.normalizeExpr(&ast.CallExpr{Callee: ident("$signal"), Args: []ast.Argument{{Expr: num(0)}}}, nil)
	call := out.(*ast.CallExpr)
	assert.Equal(t, "$state", call.Callee.(*ast.Identifier).Name)

	out = n.normalizeExpr(&ast.CallExpr{Callee: ident("$watch")}, nil)
	assert.Equal(t, "$effect", out.(*ast.CallExpr).Callee.(*ast.Identifier).Name)
}

func TestCanonicalNamesAlwaysRecognized(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	out := n.normalizeExpr(&ast.CallExpr{Callee: ident("$state")}, nil)
	assert.Equal(t, "$state", out.(*ast.CallExpr).Callee.(*ast.Identifier).Name)
}

func TestNonAliasCalleeUntouched(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	out := n.normalizeExpr(&ast.CallExpr{Callee: ident("useThing")}, nil)
	assert.Equal(t, "useThing", out.(*ast.CallExpr).Callee.(*ast.Identifier).Name)
}

func TestTransparentWrappersUnwrapped(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	wrapped := &ast.ParenthesizedExpr{Expr: &ast.TypeAssertionExpr{Expr: ident("x")}}
	out := n.normalizeExpr(wrapped, nil)
	assert.Equal(t, "x", out.(*ast.Identifier).Name)
}

func TestPurityFromBodyDirective(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	fn := &ast.Function{Name: "F", Directives: []string{"use pure"}, Body: []ast.Statement{&ast.ReturnStmt{}}}
	n.normalizeFunction(fn, nil)
	assert.True(t, fn.Pure)
	assert.True(t, fn.NoMemo, "pure implies no-memo")
}

func TestNoMemoFromEnclosingDirective(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	fn := &ast.Function{Name: "F", Body: []ast.Statement{&ast.ReturnStmt{}}}
	n.normalizeFunction(fn, []string{"use no memo"})
	assert.False(t, fn.Pure)
	assert.True(t, fn.NoMemo)
}

func TestPurityFromLeadingComment(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	fn := &ast.Function{Name: "F", LeadingComment: "/* @__PURE__ */", Body: []ast.Statement{&ast.ReturnStmt{}}}
	n.normalizeFunction(fn, nil)
	assert.True(t, fn.Pure)

	fn = &ast.Function{Name: "G", LeadingComment: "/* @#__PURE__ */", Body: []ast.Statement{&ast.ReturnStmt{}}}
	n.normalizeFunction(fn, nil)
	assert.True(t, fn.Pure)
}

func TestForceNoMemoOption(t *testing.T) {
	n := newNormalizer(compiler.Options{ForceNoMemo: true})
	fn := &ast.Function{Name: "F", Body: []ast.Statement{&ast.ReturnStmt{}}}
	n.normalizeFunction(fn, nil)
	assert.False(t, fn.Pure)
	assert.True(t, fn.NoMemo)
}

// A destructuring assignment statement expands into temp + member-load
// assignments during normalization.
func TestDestructuringAssignmentExpansion(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	pat := &ast.ObjectPattern{Properties: []ast.ObjectPatternProperty{
		{Key: "a", Value: ident("a"), Shorthand: true},
		{Key: "b", Value: ident("b"), Shorthand: true},
	}}
	stmts := n.normalizeStatement(&ast.ExprStmt{Expr: &ast.AssignmentExpr{
		Operator: "=",
		Target:   pat,
		Value:    &ast.CallExpr{Callee: ident("load")},
	}}, nil)

	require.GreaterOrEqual(t, len(stmts), 3, "temp declaration plus one assignment per leaf")
	first, ok := stmts[0].(*ast.VariableDecl)
	require.True(t, ok)
	tempName := first.Declarations[0].Id.(*ast.Identifier).Name
	assert.Contains(t, tempName, "__destruct_")

	second := stmts[1].(*ast.ExprStmt).Expr.(*ast.AssignmentExpr)
	assert.Equal(t, "a", second.Target.(*ast.Identifier).Name)
	member := second.Value.(*ast.MemberExpr)
	assert.Equal(t, tempName, member.Object.(*ast.Identifier).Name)
}

// Simple identifier assignments survive normalization unexpanded.
func TestSimpleAssignmentNotExpanded(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	stmts := n.normalizeStatement(&ast.ExprStmt{Expr: &ast.AssignmentExpr{
		Operator: "=", Target: ident("x"), Value: num(1),
	}}, nil)
	require.Len(t, stmts, 1)
}

func TestJSXTagClassification(t *testing.T) {
	n := newNormalizer(compiler.Options{})

	el := n.normalizeJSX(&ast.JSXElement{TagName: "div"}, nil).(*ast.JSXElement)
	assert.False(t, el.IsComponent)

	el = n.normalizeJSX(&ast.JSXElement{TagName: "Card"}, nil).(*ast.JSXElement)
	assert.True(t, el.IsComponent)
}

func TestAliasResolutionInsideJSX(t *testing.T) {
	n := newNormalizer(compiler.Options{MacroAliases: compiler.MacroAliases{State: []string{"$s"}}})
	el := n.normalizeJSX(&ast.JSXElement{
		TagName: "div",
		Children: []ast.JSXChild{
			{Expression: &ast.CallExpr{Callee: ident("$s"), Args: []ast.Argument{{Expr: num(1)}}}},
		},
	}, nil).(*ast.JSXElement)
	call := el.Children[0].Expression.(*ast.CallExpr)
	assert.Equal(t, "$state", call.Callee.(*ast.Identifier).Name)
}

// A program-level directive reaches a const-bound arrow expression through
// Normalize itself, not just through a hand-supplied enclosing set.
func TestProgramDirectiveReachesArrowExpression(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	arrow := &ast.Function{
		IsArrow: true,
		Params:  []ast.Pattern{ident("props")},
		Body:    []ast.Statement{&ast.ReturnStmt{Argument: ident("props")}},
	}
	prog := &ast.Program{
		Directives: []string{"use no memo"},
		Body: []ast.Statement{
			&ast.VariableDecl{Kind: ast.DeclConst, Declarations: []*ast.VariableDeclarator{{
				Id:   ident("Component"),
				Init: arrow,
			}}},
		},
	}
	_, err := n.Normalize(prog)
	require.NoError(t, err)
	assert.True(t, arrow.NoMemo, "program directive must reach the arrow expression")
	assert.False(t, arrow.Pure)
}

// A program-level directive survives two levels of function nesting: the
// enclosing set is layered with each function's own prologue on the way
// down.
func TestProgramDirectiveReachesDoublyNestedFunction(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	innermost := &ast.Function{Name: "inner", Body: []ast.Statement{&ast.ReturnStmt{}}}
	outer := &ast.Function{Name: "Outer", Body: []ast.Statement{
		&ast.FunctionDecl{Fn: innermost},
		&ast.ReturnStmt{},
	}}
	prog := &ast.Program{
		Directives: []string{"use pure"},
		Body:       []ast.Statement{&ast.FunctionDecl{Fn: outer}},
	}
	_, err := n.Normalize(prog)
	require.NoError(t, err)
	assert.True(t, outer.Pure)
	assert.True(t, innermost.Pure, "directive must not be dropped when recursing into a nested body")
}

// A function's own directive prologue layers over, never replaces, the
// enclosing set when recursing.
func TestOwnDirectivesLayerOverEnclosing(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	nested := &ast.Function{Name: "nested", Body: []ast.Statement{&ast.ReturnStmt{}}}
	outer := &ast.Function{
		Name:       "Outer",
		Directives: []string{"use no memo"},
		Body: []ast.Statement{
			&ast.FunctionDecl{Fn: nested},
			&ast.ReturnStmt{},
		},
	}
	prog := &ast.Program{
		Directives: []string{"use pure"},
		Body:       []ast.Statement{&ast.FunctionDecl{Fn: outer}},
	}
	_, err := n.Normalize(prog)
	require.NoError(t, err)
	assert.True(t, nested.Pure, "program-level directive survives")
	assert.True(t, nested.NoMemo, "outer function's own directive also applies")
}

// The destructuring-temp counter is process-global: successive expansions
// never reuse a temp name.
func TestDestructTempCounterMonotonic(t *testing.T) {
	n := newNormalizer(compiler.Options{})
	expand := func() string {
		pat := &ast.ObjectPattern{Properties: []ast.ObjectPatternProperty{{Key: "a", Value: ident("a")}}}
		stmts := n.normalizeStatement(&ast.ExprStmt{Expr: &ast.AssignmentExpr{
			Operator: "=", Target: pat, Value: &ast.CallExpr{Callee: ident("load")},
		}}, nil)
		return stmts[0].(*ast.VariableDecl).Declarations[0].Id.(*ast.Identifier).Name
	}
	assert.NotEqual(t, expand(), expand())
}
