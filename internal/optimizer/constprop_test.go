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

// function Foo(flag){ const s=$state(0); const __a=1; if(flag) return __a;
// return __a }: with the toggle on, no uses of __a remain and both returns
// carry the literal 1.
func TestCrossBlockPropagation(t *testing.T) {
	ctx := testCtx(compiler.Options{CrossBlockConstProp: true})
	fn := buildFn(t, ctx, &ast.Function{Name: "Foo", Params: []ast.Pattern{ident("flag")}, Body: []ast.Statement{
		decl(ast.DeclConst, "s", call("$state", false, num(0))),
		decl(ast.DeclConst, "__a", num(1)),
		&ast.IfStmt{
			Test:       ident("flag"),
			Consequent: &ast.ReturnStmt{Argument: ident("__a")},
		},
		&ast.ReturnStmt{Argument: ident("__a")},
	}})
	optimize(ctx, fn)

	printed := hir.Print(fn)
	returns := 0
	for _, blk := range fn.Blocks {
		if ret, ok := blk.Terminator.(*hir.Return); ok && ret.Argument != nil {
			returns++
			lit, isLit := ret.Argument.(*hir.Literal)
			require.True(t, isLit, "return must carry a literal, got %s", hir.PrintExpr(ret.Argument))
			assert.Equal(t, float64(1), lit.Value)
		}
	}
	assert.Equal(t, 2, returns)
	for _, line := range strings.Split(printed, "\n") {
		if strings.Contains(line, "Return") {
			assert.NotContains(t, line, "__a")
		}
	}
}

func TestPropagationDisabledByDefault(t *testing.T) {
	ctx := testCtx(compiler.Options{})
	fn := buildFn(t, ctx, &ast.Function{Name: "Foo", Params: []ast.Pattern{ident("flag")}, Body: []ast.Statement{
		decl(ast.DeclConst, "__a", num(1)),
		&ast.IfStmt{
			Test:       ident("flag"),
			Consequent: &ast.ReturnStmt{Argument: ident("__a")},
		},
		&ast.ReturnStmt{Argument: ident("__a")},
	}})
	NewPipeline(ctx).RunFunction(ctx, fn)

	var sawIdentReturn bool
	for _, blk := range fn.Blocks {
		if ret, ok := blk.Terminator.(*hir.Return); ok && ret.Argument != nil {
			if _, isID := ret.Argument.(*hir.Identifier); isID {
				sawIdentReturn = true
			}
		}
	}
	assert.True(t, sawIdentReturn, "without the toggle the binding reference survives")
}

// A nested arrow that re-declares the name keeps its own binding.
func TestPropagationRespectsNestedShadowing(t *testing.T) {
	ctx := testCtx(compiler.Options{CrossBlockConstProp: true})
	inner := &ast.Function{IsArrow: true, Body: []ast.Statement{
		decl(ast.DeclLet, "__k", num(9)),
		&ast.ReturnStmt{Argument: ident("__k")},
	}}
	fn := buildFn(t, ctx, &ast.Function{Name: "Foo", Body: []ast.Statement{
		decl(ast.DeclConst, "__k", num(1)),
		decl(ast.DeclConst, "cb", inner),
		&ast.ReturnStmt{Argument: binary("+", ident("__k"), ident("cb"))},
	}})
	(&ConstantPropagation{}).Apply(ctx, fn)

	var arrow *hir.ArrowFunction
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok {
				if a, isArrow := assign.Value.(*hir.ArrowFunction); isArrow {
					arrow = a
				}
			}
		}
	}
	require.NotNil(t, arrow)
	innerPrinted := ""
	for _, blk := range arrow.Blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok {
				innerPrinted += assign.Target + " = " + hir.PrintExpr(assign.Value) + "\n"
			}
		}
		if ret, ok := blk.Terminator.(*hir.Return); ok && ret.Argument != nil {
			innerPrinted += "return " + hir.PrintExpr(ret.Argument) + "\n"
		}
	}
	assert.Contains(t, innerPrinted, "__k", "nested re-declared binding must not be substituted away")
	assert.NotContains(t, innerPrinted, "return 1")
}

// const o = {a: 1} propagates its accessed property.
func TestStableObjectPropertyPropagation(t *testing.T) {
	ctx := testCtx(compiler.Options{CrossBlockConstProp: true})
	obj := &ast.ObjectExpr{Properties: []ast.ObjectProperty{
		{Key: ident("a"), Value: num(7)},
	}}
	fn := buildFn(t, ctx, &ast.Function{Name: "Foo", Body: []ast.Statement{
		decl(ast.DeclConst, "o", obj),
		decl(ast.DeclLet, "x", member("o", "a")),
		&ast.ReturnStmt{Argument: ident("x")},
	}})
	(&ConstantPropagation{}).Apply(ctx, fn)

	var xValue hir.Expression
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok && strings.HasPrefix(assign.Target, "x") {
				xValue = assign.Value
			}
		}
	}
	require.NotNil(t, xValue)
	lit, ok := xValue.(*hir.Literal)
	require.True(t, ok, "o.a must fold to its literal, got %s", hir.PrintExpr(xValue))
	assert.Equal(t, float64(7), lit.Value)
}
