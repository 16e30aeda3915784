package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
	"fictc/internal/ssa"
	"fictc/internal/structurizer"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

func str(s string) *ast.Literal { return &ast.Literal{Kind: ast.LitString, Value: s} }

func constDecl(name string, init ast.Expression) *ast.VariableDecl {
	return &ast.VariableDecl{Kind: ast.DeclConst, Declarations: []*ast.VariableDeclarator{{Id: ident(name), Init: init}}}
}

func analyzeFn(t *testing.T, astFn *ast.Function) (*hir.Function, *Result) {
	t.Helper()
	ctx := compiler.NewContext(compiler.Options{File: "test.jsx"})
	fn, err := hir.BuildFunction(ctx, astFn)
	require.NoError(t, err)
	require.NoError(t, ssa.RunFunction(fn))
	sfn, err := structurizer.Structurize(fn)
	require.NoError(t, err)
	result := Analyze(ctx, fn, sfn)
	AssignMemoization(fn, result)
	return fn, result
}

func allDeps(result *Result) map[string]bool {
	out := map[string]bool{}
	for _, r := range result.Regions {
		for _, d := range r.Dependencies {
			out[d.String()] = true
		}
	}
	return out
}

// function F(props){ const x = props.value; return x }: the region's
// dependency set carries the property path, not just the root.
func TestPropertyLevelDependency(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		constDecl("x", &ast.MemberExpr{Object: ident("props"), Property: ident("value")}),
		&ast.ReturnStmt{Argument: ident("x")},
	}})

	deps := allDeps(result)
	assert.True(t, deps["props.value"], "expected props.value in %v", deps)
}

// props?.user?.profile?.title collapses to props at the first ?. for
// dependency minimality.
func TestOptionalChainMinimality(t *testing.T) {
	chain := &ast.MemberExpr{
		Object: &ast.MemberExpr{
			Object: &ast.MemberExpr{
				Object:   ident("props"),
				Property: ident("user"),
				Optional: true,
			},
			Property: ident("profile"),
			Optional: true,
		},
		Property: ident("title"),
		Optional: true,
	}
	_, result := analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		constDecl("t", &ast.LogicalExpr{Operator: "??", Left: chain, Right: str("N/A")}),
		&ast.ReturnStmt{Argument: &ast.JSXElement{
			TagName:  "div",
			Children: []ast.JSXChild{{Expression: ident("t")}},
		}},
	}})

	deps := allDeps(result)
	assert.True(t, deps["props"], "expected bare props in %v", deps)
	for d := range deps {
		assert.NotContains(t, d, "user")
		assert.NotContains(t, d, "profile")
		assert.NotContains(t, d, "title")
	}
}

// A region never lists its own declarations among its dependencies.
func TestDeclarationsNotInOwnDependencies(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		constDecl("a", &ast.MemberExpr{Object: ident("props"), Property: ident("x")}),
		constDecl("b", &ast.MemberExpr{Object: ident("props"), Property: ident("y")}),
		&ast.ReturnStmt{Argument: &ast.BinaryExpr{Operator: "+", Left: ident("a"), Right: ident("b")}},
	}})

	for _, r := range result.Regions {
		decls := map[string]bool{}
		for _, d := range r.Declarations {
			decls[d] = true
		}
		for _, dep := range r.Dependencies {
			assert.False(t, decls[dep[0]], "region %d depends on its own declaration %s", r.ID, dep[0])
		}
	}
}

// Control-flow nodes open nested regions with a parent pointer and the
// hasControlFlow flag.
func TestControlFlowRegionNesting(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		&ast.IfStmt{
			Test: &ast.MemberExpr{Object: ident("props"), Property: ident("show")},
			Consequent: &ast.BlockStmt{Body: []ast.Statement{
				constDecl("inner", &ast.MemberExpr{Object: ident("props"), Property: ident("detail")}),
				&ast.ReturnStmt{Argument: ident("inner")},
			}},
		},
		&ast.ReturnStmt{Argument: num(0)},
	}})

	var ctrl *Region
	for _, r := range result.Regions {
		if r.HasControlFlow {
			ctrl = r
		}
	}
	require.NotNil(t, ctrl, "if must produce a control-flow region")
	assert.True(t, depsContain(ctrl, "props.show"))

	var nested bool
	for _, r := range result.Regions {
		if r.ParentID != nil && *r.ParentID == ctrl.ID {
			nested = true
		}
	}
	assert.True(t, nested, "branch body must open a nested region under the control-flow region")
}

func depsContain(r *Region, path string) bool {
	for _, d := range r.Dependencies {
		if d.String() == path {
			return true
		}
	}
	return false
}

// Instructions with the same dependency signature group into one region; a
// change of signature splits the run.
func TestRegionPartitioningBySignature(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		constDecl("a", &ast.MemberExpr{Object: ident("props"), Property: ident("x")}),
		constDecl("b", &ast.MemberExpr{Object: ident("props"), Property: ident("x")}),
		constDecl("plain", num(1)),
		&ast.ReturnStmt{Argument: ident("a")},
	}})

	var sameDeps *Region
	for _, r := range result.Regions {
		if depsContain(r, "props.x") && len(r.Declarations) == 2 {
			sameDeps = r
		}
	}
	require.NotNil(t, sameDeps, "a and b share a signature and must share a region")
}

func TestMemoizationDecision(t *testing.T) {
	build := func() (*hir.Function, *Result) {
		return analyzeFn(t, &ast.Function{Name: "F", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
			&ast.IfStmt{
				Test: &ast.MemberExpr{Object: ident("props"), Property: ident("big")},
				Consequent: &ast.BlockStmt{Body: []ast.Statement{
					&ast.ReturnStmt{Argument: str("big")},
				}},
			},
			&ast.ReturnStmt{Argument: str("small")},
		}})
	}

	_, result := build()
	var memoized bool
	for _, r := range result.Regions {
		if r.HasControlFlow && len(r.Dependencies) > 0 {
			assert.True(t, r.Memoize, "reactive control-flow region must memoize")
			memoized = true
		}
	}
	require.True(t, memoized)

	// decision is stable across compilations of the same input.
	_, second := build()
	require.Equal(t, len(result.Regions), len(second.Regions))
	for i := range result.Regions {
		assert.Equal(t, result.Regions[i].Memoize, second.Regions[i].Memoize)
		assert.Equal(t, result.Regions[i].Dependencies, second.Regions[i].Dependencies)
	}
}

// "use pure"/"use no memo" functions never memoize.
func TestNoMemoFunctionOptsOut(t *testing.T) {
	fn, result := analyzeFn(t, &ast.Function{
		Name:   "F",
		Params: []ast.Pattern{ident("props")},
		NoMemo: true,
		Body: []ast.Statement{
			&ast.IfStmt{
				Test: &ast.MemberExpr{Object: ident("props"), Property: ident("big")},
				Consequent: &ast.BlockStmt{Body: []ast.Statement{
					&ast.ReturnStmt{Argument: str("big")},
				}},
			},
			&ast.ReturnStmt{Argument: str("small")},
		},
	})
	require.True(t, fn.Meta.NoMemo)
	for _, r := range result.Regions {
		assert.False(t, r.Memoize)
	}
}

// Reactivity propagates transitively from the state macro through derived
// values.
func TestTransitiveReactivity(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "plainHelper", Body: []ast.Statement{
		constDecl("count", &ast.CallExpr{Callee: ident("$state"), Args: []ast.Argument{{Expr: num(0)}}}),
		constDecl("double", &ast.BinaryExpr{Operator: "*", Left: ident("count"), Right: num(2)}),
		&ast.ReturnStmt{Argument: ident("double")},
	}})

	var sawReactive bool
	for _, r := range result.Regions {
		if r.Reactive {
			sawReactive = true
		}
	}
	assert.True(t, sawReactive, "derived value must be reactive")
}
