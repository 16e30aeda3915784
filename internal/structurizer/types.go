// Package structurizer reconstructs a tree of structured nodes from the
// unstructured CFG produced by internal/hir, recovering the high-level
// control constructs (if/while/for/for-of/for-in/do-while/switch/try) a code
// generator needs.
package structurizer

import "fictc/internal/hir"

// Node is one structured IR node. Dispatch is by type switch, the Go
// equivalent of a sum-type match.
type Node interface{ structuredNode() }

// Sequence is a maximal contiguous span of sibling nodes within one
// structured container. It also stands in for source-level blocks: the HIR
// builder flattens block statements during CFG construction, so no distinct
// block scope survives to this pass (see DESIGN.md).
type Sequence struct{ Nodes []Node }

func (s *Sequence) structuredNode() {}

// Instruction carries one originating HIR instruction (Assign, ExprInstr,
// or Phi) verbatim.
type Instruction struct {
	Instr   hir.Instruction
	BlockID uint32
}

func (i *Instruction) structuredNode() {}

type If struct {
	Test       hir.Expression
	Consequent Node
	Alternate  Node // nil when the source had no else-branch
}

func (i *If) structuredNode() {}

type While struct {
	Test hir.Expression
	Body Node
}

func (w *While) structuredNode() {}

type DoWhile struct {
	Test hir.Expression
	Body Node
}

func (d *DoWhile) structuredNode() {}

// For's Update is nil when the source loop had none.
type For struct {
	Init   Node // nil when absent; carried as a preceding Instruction sequence
	Test   hir.Expression
	Update Node
	Body   Node
}

func (f *For) structuredNode() {}

type ForOf struct {
	Variable     string
	VariableKind string
	Pattern      any
	Iterable     hir.Expression
	Body         Node
}

func (f *ForOf) structuredNode() {}

type ForIn struct {
	Variable     string
	VariableKind string
	Pattern      any
	Object       hir.Expression
	Body         Node
}

func (f *ForIn) structuredNode() {}

type SwitchCase struct {
	Test hir.Expression // nil for default
	Body Node
}

type Switch struct {
	Discriminant hir.Expression
	Cases        []SwitchCase
}

func (s *Switch) structuredNode() {}

type TryHandler struct {
	Param hir.Expression // nil when the catch has no bound param; carried as ast.Pattern normally, opaque here
	Body  Node
}

type Try struct {
	Block     Node
	Handler   *TryHandler
	Finalizer Node
}

func (t *Try) structuredNode() {}

type Return struct{ Argument hir.Expression }

func (r *Return) structuredNode() {}

type Throw struct{ Argument hir.Expression }

func (t *Throw) structuredNode() {}

type Break struct{ Label string }

func (b *Break) structuredNode() {}

type Continue struct{ Label string }

func (c *Continue) structuredNode() {}

// Function pairs a hir.Function with its structured body.
type Function struct {
	Name string
	Body Node
}
