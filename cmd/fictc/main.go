// Command fictc is a thin driver that exercises the IR pipeline end to end
// for manual inspection. The source parser is an external collaborator, so
// the driver runs the pipeline over a built-in sample component and prints
// the requested view of the result.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fictc"
	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
	"fictc/internal/regions"
	"fictc/internal/regionsjson"
	"fictc/internal/structurizer"
)

var (
	stateAliases        []string
	effectAliases       []string
	inlineDerivedMemos  bool
	crossBlockConstProp bool
)

func main() {
	root := &cobra.Command{
		Use:   "fictc",
		Short: "reactive-IR pipeline driver",
	}
	root.PersistentFlags().StringSliceVar(&stateAliases, "state-alias", nil, "extra alias names for the state macro")
	root.PersistentFlags().StringSliceVar(&effectAliases, "effect-alias", nil, "extra alias names for the effect macro")
	root.PersistentFlags().BoolVar(&inlineDerivedMemos, "inline-derived-memos", false, "extend single-use inlining to user-named const bindings")
	root.PersistentFlags().BoolVar(&crossBlockConstProp, "cross-block-const-prop", false, "enable cross-block constant propagation")

	root.AddCommand(&cobra.Command{
		Use:   "compile",
		Short: "run the pipeline over the sample component and print its IR",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compileSample()
			if err != nil {
				return err
			}
			fmt.Println(hir.PrintProgram(result.Program))
			for _, fn := range result.Functions {
				fmt.Println(structurizer.Print(fn.Structured))
			}
			color.Green("compiled %d function(s)", len(result.Functions))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "print-regions",
		Short: "run the pipeline and print region metadata as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compileSample()
			if err != nil {
				return err
			}
			for _, fn := range result.Functions {
				doc, err := regionsjson.Marshal(fn.Regions)
				if err != nil {
					return err
				}
				color.Cyan("%s:", fn.HIR.Name)
				fmt.Println(doc)
				fmt.Print(regions.Print(&regions.Result{Regions: fn.Regions}))
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		if cerr, ok := err.(*compiler.CompileError); ok {
			fmt.Fprintln(os.Stderr, compiler.FormatDiagnostic("error", compiler.Diagnostic{
				Code:    string(cerr.Kind),
				Message: cerr.Message,
				File:    cerr.File,
				Line:    cerr.Line,
			}))
		} else {
			color.Red("%v", err)
		}
		os.Exit(1)
	}
}

func compileSample() (*fictc.Result, error) {
	opts := compiler.Options{
		MacroAliases:        compiler.MacroAliases{State: stateAliases, Effect: effectAliases},
		InlineDerivedMemos:  inlineDerivedMemos,
		CrossBlockConstProp: crossBlockConstProp,
		File:                "sample.jsx",
		OnWarn: func(d compiler.Diagnostic) {
			fmt.Fprintln(os.Stderr, compiler.FormatDiagnostic("warning", d))
		},
	}
	return fictc.Compile(opts, sampleProgram())
}

// sampleProgram is the hand-built AST of:
//
//	function Counter(props) {
//	  let count = $state(0);
//	  const label = props.label;
//	  if (count > 9) { count = 0; }
//	  return <div title={label}>{count}</div>;
//	}
func sampleProgram() *ast.Program {
	ident := func(name string) *ast.Identifier { return &ast.Identifier{Name: name} }
	num := func(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: n} }

	body := []ast.Statement{
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
					TagName: "div",
					Attributes: []ast.JSXAttribute{
						{Name: "title", Value: ident("label")},
					},
					Children: []ast.JSXChild{
						{Expression: ident("count")},
					},
				}},
			},
		}},
	}
	return &ast.Program{Body: body}
}
