package fictc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

func counterProgram() *ast.Program {
	return &ast.Program{Body: []ast.Statement{
		&ast.ImportDecl{Source: "fict", Raw: `import { $state } from "fict"`},
		&ast.FunctionDecl{Fn: &ast.Function{
			Name:   "Counter",
			Params: []ast.Pattern{ident("props")},
			Body: []ast.Statement{
				&ast.VariableDecl{Kind: ast.DeclLet, Declarations: []*ast.VariableDeclarator{{
					Id:   ident("count"),
					Init: &ast.CallExpr{Callee: ident("$state"), Args: []ast.Argument{{Expr: num(0)}}},
				}}},
				&ast.VariableDecl{Kind: ast.DeclConst, Declarations: []*ast.VariableDeclarator{{
					Id:   ident("label"),
					Init: &ast.MemberExpr{Object: ident("props"), Property: ident("label")},
				}}},
				&ast.IfStmt{
					Test: &ast.BinaryExpr{Operator: ">", Left: ident("count"), Right: num(9)},
					Consequent: &ast.BlockStmt{Body: []ast.Statement{
						&ast.ExprStmt{Expr: &ast.AssignmentExpr{Operator: "=", Target: ident("count"), Value: num(0)}},
					}},
				},
				&ast.ReturnStmt{Argument: &ast.JSXElement{
					TagName:    "div",
					Attributes: []ast.JSXAttribute{{Name: "title", Value: ident("label")}},
					Children:   []ast.JSXChild{{Expression: ident("count")}},
				}},
			},
		}},
	}}
}

func TestCompileEndToEnd(t *testing.T) {
	result, err := Compile(compiler.Options{File: "counter.jsx"}, counterProgram())
	require.NoError(t, err)
	require.Len(t, result.Functions, 1)
	require.Len(t, result.Program.Preamble, 1)

	fn := result.Functions[0]
	assert.Equal(t, "Counter", fn.HIR.Name)
	require.NotEmpty(t, fn.HIR.Blocks)
	assert.NotNil(t, fn.Structured.Body)
	require.NotEmpty(t, fn.Regions)

	printed := hir.Print(fn.HIR)
	assert.Contains(t, printed, "$state", "macro call survives to the IR")
	assert.Contains(t, printed, "$$ssa", "output is in SSA form")

	var sawLabelDep bool
	for _, r := range fn.Regions {
		for _, d := range r.Dependencies {
			if d.String() == "props.label" {
				sawLabelDep = true
			}
		}
	}
	assert.True(t, sawLabelDep, "property-level dependency must surface in region metadata")
}

// Two compilations of the same input agree on every region's memoize bit.
func TestCompileDeterministic(t *testing.T) {
	first, err := Compile(compiler.Options{File: "counter.jsx"}, counterProgram())
	require.NoError(t, err)
	second, err := Compile(compiler.Options{File: "counter.jsx"}, counterProgram())
	require.NoError(t, err)

	require.Equal(t, len(first.Functions), len(second.Functions))
	for i := range first.Functions {
		a, b := first.Functions[i].Regions, second.Functions[i].Regions
		require.Equal(t, len(a), len(b))
		for j := range a {
			assert.Equal(t, a[j].Memoize, b[j].Memoize)
			assert.Equal(t, a[j].Dependencies, b[j].Dependencies)
			assert.Equal(t, a[j].HasControlFlow, b[j].HasControlFlow)
		}
	}
}

func TestCompileBuildErrorSurfaces(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.FunctionDecl{Fn: &ast.Function{Name: "Bad", Body: []ast.Statement{&ast.BreakStmt{}}}},
	}}
	_, err := Compile(compiler.Options{File: "bad.jsx"}, prog)
	require.Error(t, err)
	cerr, ok := err.(*compiler.CompileError)
	require.True(t, ok)
	assert.Equal(t, compiler.BuildError, cerr.Kind)
	assert.Equal(t, "bad.jsx", cerr.File)
}

func TestCrossBlockConstPropEnvToggle(t *testing.T) {
	t.Setenv(crossBlockConstPropEnv, "1")

	prog := &ast.Program{Body: []ast.Statement{
		&ast.FunctionDecl{Fn: &ast.Function{
			Name:   "Foo",
			Params: []ast.Pattern{ident("flag")},
			Body: []ast.Statement{
				&ast.VariableDecl{Kind: ast.DeclConst, Declarations: []*ast.VariableDeclarator{{Id: ident("__a"), Init: num(1)}}},
				&ast.IfStmt{Test: ident("flag"), Consequent: &ast.ReturnStmt{Argument: ident("__a")}},
				&ast.ReturnStmt{Argument: ident("__a")},
			},
		}},
	}}
	result, err := Compile(compiler.Options{File: "foo.jsx"}, prog)
	require.NoError(t, err)

	for _, blk := range result.Functions[0].HIR.Blocks {
		if ret, ok := blk.Terminator.(*hir.Return); ok && ret.Argument != nil {
			_, isLit := ret.Argument.(*hir.Literal)
			assert.True(t, isLit, "env toggle must enable propagation, got %s", hir.PrintExpr(ret.Argument))
		}
	}
}
