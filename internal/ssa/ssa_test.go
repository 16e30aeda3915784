package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

func buildFn(t *testing.T, fn *ast.Function) *hir.Function {
	t.Helper()
	ctx := compiler.NewContext(compiler.Options{File: "test.jsx"})
	built, err := hir.BuildFunction(ctx, fn)
	require.NoError(t, err)
	return built
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

func letDecl(name string, init ast.Expression) *ast.VariableDecl {
	return &ast.VariableDecl{Kind: ast.DeclLet, Declarations: []*ast.VariableDeclarator{{Id: ident(name), Init: init}}}
}

func assignStmt(name string, value ast.Expression) *ast.ExprStmt {
	return &ast.ExprStmt{Expr: &ast.AssignmentExpr{Operator: "=", Target: ident(name), Value: value}}
}

func plus(l, r ast.Expression) *ast.BinaryExpr {
	return &ast.BinaryExpr{Operator: "+", Left: l, Right: r}
}

// function Foo(){ let x=1; x = x+1; return x }
func TestMultipleAssign(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "Foo", Body: []ast.Statement{
		letDecl("x", num(1)),
		assignStmt("x", plus(ident("x"), num(1))),
		&ast.ReturnStmt{Argument: ident("x")},
	}})
	require.NoError(t, RunFunction(fn))

	printed := hir.Print(fn)
	assert.Contains(t, printed, "x$$ssa1")
	assert.Contains(t, printed, "x$$ssa2")

	ret := fn.Blocks[0].Terminator.(*hir.Return)
	assert.Equal(t, "x$$ssa2", hir.PrintExpr(ret.Argument))
}

// User-chosen names already carrying a $$ssa suffix survive by further
// suffixing, never by stripping.
func TestUserSuffixCollision(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "Foo", Body: []ast.Statement{
		letDecl("value$$ssa1", num(1)),
		assignStmt("value$$ssa1", plus(ident("value$$ssa1"), num(1))),
		&ast.ReturnStmt{Argument: ident("value$$ssa1")},
	}})
	require.NoError(t, RunFunction(fn))

	printed := hir.Print(fn)
	assert.Contains(t, printed, "value$$ssa1$$ssa1")
	assert.Contains(t, printed, "value$$ssa1$$ssa2")

	ret := fn.Blocks[0].Terminator.(*hir.Return)
	assert.Equal(t, "value$$ssa1$$ssa2", hir.PrintExpr(ret.Argument))
}

// function Foo(c){ let x=1; if(c){ x=2 } return x }: the join block needs a
// phi whose sources are ordered by predecessor id.
func TestPhiAtJoin(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "Foo", Params: []ast.Pattern{ident("c")}, Body: []ast.Statement{
		letDecl("x", num(1)),
		&ast.IfStmt{
			Test:       ident("c"),
			Consequent: &ast.BlockStmt{Body: []ast.Statement{assignStmt("x", num(2))}},
		},
		&ast.ReturnStmt{Argument: ident("x")},
	}})
	require.NoError(t, RunFunction(fn))

	var phi *hir.Phi
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if p, ok := instr.(*hir.Phi); ok {
				require.Nil(t, phi, "expected exactly one phi")
				phi = p
			}
		}
	}
	require.NotNil(t, phi, "join block must carry a phi for x")
	assert.Equal(t, "x", phi.Variable)
	require.Len(t, phi.Sources, 2)
	assert.Less(t, phi.Sources[0].Block, phi.Sources[1].Block, "phi sources ordered by predecessor id")

	versions := map[string]bool{}
	for _, src := range phi.Sources {
		versions[src.ID] = true
	}
	assert.True(t, versions["x$$ssa1"])
	assert.True(t, versions["x$$ssa2"])
}

// A while loop's condition block sees a back edge; the deferred phi source
// must resolve to the body's version once the body is renamed.
func TestLoopPhiBackEdgeResolved(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "L", Params: []ast.Pattern{ident("n")}, Body: []ast.Statement{
		letDecl("i", num(0)),
		&ast.WhileStmt{
			Test: &ast.BinaryExpr{Operator: "<", Left: ident("i"), Right: ident("n")},
			Body: &ast.BlockStmt{Body: []ast.Statement{
				assignStmt("i", plus(ident("i"), num(1))),
			}},
		},
		&ast.ReturnStmt{Argument: ident("i")},
	}})
	require.NoError(t, RunFunction(fn))

	var phi *hir.Phi
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if p, ok := instr.(*hir.Phi); ok && p.Variable == "i" {
				phi = p
			}
		}
	}
	require.NotNil(t, phi)
	for _, src := range phi.Sources {
		assert.NotEmpty(t, src.ID, "every deferred phi source must be resolved")
	}
}

// Running SSA on already-SSA output suffixes every definition exactly once
// more.
func TestIdempotentRerunAppendsSuffix(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "Foo", Body: []ast.Statement{
		letDecl("x", num(1)),
		assignStmt("x", plus(ident("x"), num(1))),
		&ast.ReturnStmt{Argument: ident("x")},
	}})
	require.NoError(t, RunFunction(fn))
	require.NoError(t, RunFunction(fn))

	printed := hir.Print(fn)
	assert.Contains(t, printed, "x$$ssa1$$ssa1")
	assert.Contains(t, printed, "x$$ssa2$$ssa1")
	ret := fn.Blocks[0].Terminator.(*hir.Return)
	assert.Equal(t, "x$$ssa2$$ssa1", hir.PrintExpr(ret.Argument))
}

// After SSA every non-phi definition is unique across the function.
func TestUniqueDefinitions(t *testing.T) {
	fn := buildFn(t, &ast.Function{Name: "Foo", Params: []ast.Pattern{ident("c")}, Body: []ast.Statement{
		letDecl("a", num(1)),
		assignStmt("a", num(2)),
		&ast.IfStmt{
			Test:       ident("c"),
			Consequent: &ast.BlockStmt{Body: []ast.Statement{assignStmt("a", num(3))}},
			Alternate:  &ast.BlockStmt{Body: []ast.Statement{assignStmt("a", num(4))}},
		},
		&ast.ReturnStmt{Argument: ident("a")},
	}})
	require.NoError(t, RunFunction(fn))

	seen := map[string]bool{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok {
				assert.False(t, seen[assign.Target], "duplicate definition of %s", assign.Target)
				seen[assign.Target] = true
			}
		}
	}
}
