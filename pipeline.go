// Package fictc is the intermediate-representation pipeline of a reactive
// UI compiler: it lowers a parsed program to a CFG of basic blocks, renames
// it into SSA form, optimizes it, recovers structured control flow, and
// partitions each function into reactive regions with a memoization
// decision. The source parser and the final code emitter are external
// collaborators; this module begins at a parsed AST and ends at IR plus
// region metadata.
package fictc

import (
	"os"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
	"fictc/internal/normalizer"
	"fictc/internal/optimizer"
	"fictc/internal/regions"
	"fictc/internal/ssa"
	"fictc/internal/structurizer"
)

// CompiledFunction pairs one function's three output views.
type CompiledFunction struct {
	HIR        *hir.Function
	Structured *structurizer.Function
	Regions    []*regions.Region
}

// Result is the full pipeline output for one compilation unit.
type Result struct {
	Program   *hir.Program
	Functions []CompiledFunction
}

// crossBlockConstPropEnv is the environment toggle for cross-block constant
// propagation; any non-empty value other than "0" and "false" enables it.
const crossBlockConstPropEnv = "CROSS_BLOCK_CONST_PROP"

// Compile runs the whole pipeline over a parsed program: normalize, build
// HIR, SSA-rename, optimize, structurize, and analyze regions. The ambient
// compilation state is established here as one Context that no pass
// modifies; a panic from any pass surfaces as an error (an INVARIANT_ERROR
// unless it carries a CompileError) rather than crashing the caller.
func Compile(opts compiler.Options, prog *ast.Program) (*Result, error) {
	if !opts.CrossBlockConstProp {
		opts.CrossBlockConstProp = envTruthy(os.Getenv(crossBlockConstPropEnv))
	}
	ctx := compiler.NewContext(opts)

	var result *Result
	err := ctx.Run(func() error {
		normalized, err := normalizer.New(ctx).Normalize(prog)
		if err != nil {
			return err
		}
		hirProg, err := hir.BuildProgram(ctx, normalized)
		if err != nil {
			return err
		}
		if err := ssa.Run(ctx, hirProg); err != nil {
			return err
		}
		optimizer.NewPipeline(ctx).Run(ctx, hirProg)

		result = &Result{Program: hirProg}
		for _, fn := range hirProg.Functions {
			sfn, err := structurizer.Structurize(fn)
			if err != nil {
				return err
			}
			analysis := regions.Analyze(ctx, fn, sfn)
			regions.AssignMemoization(fn, analysis)
			result.Functions = append(result.Functions, CompiledFunction{
				HIR:        fn,
				Structured: sfn,
				Regions:    analysis.Regions,
			})
		}
		return nil
	})
	if err != nil {
		if cerr, ok := err.(*compiler.CompileError); ok && cerr.Kind == compiler.BuildError {
			ctx.Warn(compiler.Diagnostic{
				Code:    string(cerr.Kind),
				Message: cerr.Message,
				File:    cerr.File,
				Line:    cerr.Line,
			})
		}
		return nil, err
	}
	return result, nil
}

func envTruthy(v string) bool {
	return v != "" && v != "0" && v != "false"
}
