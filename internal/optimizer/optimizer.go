// Package optimizer implements the multi-pass IR optimizer: dead-code
// elimination (local and reactive-graph), constant folding, cross-block
// constant propagation, common-subexpression elimination, and single-use
// inlining. All passes are deterministic and preserve program semantics.
package optimizer

import (
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// Pass is a single optimization transformation over one function.
type Pass interface {
	Name() string
	Apply(ctx *compiler.Context, fn *hir.Function) bool // reports whether changes were made
}

// Pipeline manages the sequence of optimization passes.
type Pipeline struct {
	passes []Pass
}

// NewPipeline creates a pipeline with the reference pass ordering:
// DCE, constant folding, cross-block constant propagation (when enabled),
// reactive-graph DCE, CSE, single-use inlining. The passes commute up to a
// fixed point, which Run iterates to.
func NewPipeline(ctx *compiler.Context) *Pipeline {
	p := &Pipeline{}
	p.AddPass(&DeadCodeElimination{})
	p.AddPass(&ConstantFolding{})
	if ctx.Opts.CrossBlockConstProp {
		p.AddPass(&ConstantPropagation{})
	}
	p.AddPass(&ReactiveGraphDCE{})
	p.AddPass(&CommonSubexpressionElimination{})
	p.AddPass(&SingleUseInlining{})
	return p
}

// AddPass appends a pass to the pipeline.
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// maxIterations bounds the fixed-point loop. Each iteration either changes
// the function or terminates the loop, and every pass only ever shrinks or
// simplifies, so the bound is never reached in practice.
const maxIterations = 32

// Run optimizes every function of prog to a fixed point.
func (p *Pipeline) Run(ctx *compiler.Context, prog *hir.Program) {
	for _, fn := range prog.Functions {
		p.RunFunction(ctx, fn)
	}
}

// RunFunction optimizes a single function to a fixed point.
func (p *Pipeline) RunFunction(ctx *compiler.Context, fn *hir.Function) {
	for i := 0; i < maxIterations; i++ {
		changed := false
		for _, pass := range p.passes {
			if pass.Apply(ctx, fn) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
