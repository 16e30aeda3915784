package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
	"fictc/internal/ssa"
)

func testCtx(opts compiler.Options) *compiler.Context {
	opts.File = "test.jsx"
	return compiler.NewContext(opts)
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

func str(s string) *ast.Literal { return &ast.Literal{Kind: ast.LitString, Value: s} }

func boolean(b bool) *ast.Literal { return &ast.Literal{Kind: ast.LitBool, Value: b} }

func decl(kind ast.DeclarationKind, name string, init ast.Expression) *ast.VariableDecl {
	return &ast.VariableDecl{Kind: kind, Declarations: []*ast.VariableDeclarator{{Id: ident(name), Init: init}}}
}

func binary(op string, l, r ast.Expression) *ast.BinaryExpr {
	return &ast.BinaryExpr{Operator: op, Left: l, Right: r}
}

func call(callee string, pure bool, args ...ast.Expression) *ast.CallExpr {
	out := &ast.CallExpr{Callee: ident(callee), Pure: pure}
	for _, a := range args {
		out.Args = append(out.Args, ast.Argument{Expr: a})
	}
	return out
}

func member(obj, prop string) *ast.MemberExpr {
	return &ast.MemberExpr{Object: ident(obj), Property: ident(prop)}
}

// buildFn lowers and SSA-renames an AST function, the state the optimizer
// sees in the real pipeline.
func buildFn(t *testing.T, ctx *compiler.Context, fn *ast.Function) *hir.Function {
	t.Helper()
	built, err := hir.BuildFunction(ctx, fn)
	require.NoError(t, err)
	require.NoError(t, ssa.RunFunction(built))
	return built
}

func optimize(ctx *compiler.Context, fn *hir.Function) {
	NewPipeline(ctx).RunFunction(ctx, fn)
}

func assignTargets(fn *hir.Function) []string {
	var out []string
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			if assign, ok := instr.(*hir.Assign); ok {
				out = append(out, assign.Target)
			}
		}
	}
	return out
}
