package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

func TestDCERemovesUnusedPureAssignment(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "unused", binary("+", num(1), num(2))),
		&ast.ReturnStmt{Argument: num(0)},
	}})
	changed := (&DeadCodeElimination{}).Apply(ctx, fn)
	assert.True(t, changed)
	assert.Empty(t, assignTargets(fn))
}

func TestDCEKeepsImpureCall(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "unused", call("fetchThing", false)),
		&ast.ReturnStmt{Argument: num(0)},
	}})
	changed := (&DeadCodeElimination{}).Apply(ctx, fn)
	assert.False(t, changed)
	require.Len(t, assignTargets(fn), 1)
}

// An impure call buried inside an otherwise-pure expression still pins the
// assignment.
func TestDCEKeepsNestedImpureCall(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "unused", binary("+", call("sideEffect", false), num(1))),
		&ast.ReturnStmt{Argument: num(0)},
	}})
	(&DeadCodeElimination{}).Apply(ctx, fn)
	require.Len(t, assignTargets(fn), 1)
}

func TestDCEKeepsUsedAssignment(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "kept", num(1)),
		&ast.ReturnStmt{Argument: ident("kept")},
	}})
	changed := (&DeadCodeElimination{}).Apply(ctx, fn)
	assert.False(t, changed)
	require.Len(t, assignTargets(fn), 1)
}

// A use captured only by a closure still counts.
func TestDCEKeepsClosureCapturedName(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	arrow := &ast.Function{IsArrow: true, HasExpressionBody: true, ExpressionBody: ident("captured")}
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "captured", num(1)),
		&ast.ReturnStmt{Argument: arrow},
	}})
	(&DeadCodeElimination{}).Apply(ctx, fn)
	require.Len(t, assignTargets(fn), 1)
}

// Running DCE twice has the same output as once.
func TestDCEFixedPoint(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "a", num(1)),
		decl(ast.DeclConst, "b", binary("+", ident("a"), num(1))),
		&ast.ReturnStmt{Argument: num(0)},
	}})
	(&DeadCodeElimination{}).Apply(ctx, fn)
	once := hir.Print(fn)
	changed := (&DeadCodeElimination{}).Apply(ctx, fn)
	assert.False(t, changed)
	assert.Equal(t, once, hir.Print(fn))
}

// let count=$state(0); const memo = /* @__PURE__ */ $memo(()=>count+1);
// return count: the memo assignment is removed; without the annotation it
// is retained.
func TestReactiveGraphDCEHonorsPurity(t *testing.T) {
	build := func(pure bool) (*compiler.Context, *hir.Function) {
		ctx := testCtx(compiler.Options{})
		arrow := &ast.Function{IsArrow: true, HasExpressionBody: true,
			ExpressionBody: binary("+", ident("count"), num(1))}
		memoCall := &ast.CallExpr{Callee: ident("$memo"), Pure: pure, Args: []ast.Argument{{Expr: arrow}}}
		return ctx, buildFn(t, ctx, &ast.Function{Name: "C", Body: []ast.Statement{
			decl(ast.DeclLet, "count", call("$state", false, num(0))),
			decl(ast.DeclConst, "memo", memoCall),
			&ast.ReturnStmt{Argument: ident("count")},
		}})
	}

	ctx, fn := build(true)
	optimize(ctx, fn)
	for _, target := range assignTargets(fn) {
		assert.False(t, strings.HasPrefix(target, "memo"), "pure memo binding must be removed, still have %s", target)
	}

	ctx, fn = build(false)
	optimize(ctx, fn)
	var hasMemo bool
	for _, target := range assignTargets(fn) {
		if strings.HasPrefix(target, "memo") {
			hasMemo = true
		}
	}
	assert.True(t, hasMemo, "unannotated memo binding must be retained")
}

// A dead chain dies wholesale in one reactive-graph sweep.
func TestReactiveGraphDCESweepsChains(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "f", Body: []ast.Statement{
		decl(ast.DeclConst, "a", num(1)),
		decl(ast.DeclConst, "b", binary("+", ident("a"), num(1))),
		decl(ast.DeclConst, "c", binary("+", ident("b"), num(1))),
		&ast.ReturnStmt{Argument: num(0)},
	}})
	changed := (&ReactiveGraphDCE{}).Apply(ctx, fn)
	assert.True(t, changed)
	assert.Empty(t, assignTargets(fn))
}
