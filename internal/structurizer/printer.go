package structurizer

import (
	"fmt"
	"strings"

	"fictc/internal/hir"
)

// Printer renders the structured tree to a stable indented text form, one
// node per line, used by snapshot tests and the CLI driver.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Print returns the textual rendering of a structured function.
func Print(fn *Function) string {
	p := NewPrinter()
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	p.writeLine("structured %s", name)
	p.indent++
	p.printNode(fn.Body)
	p.indent--
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printNode(n Node) {
	switch x := n.(type) {
	case nil:
	case *Sequence:
		for _, c := range x.Nodes {
			p.printNode(c)
		}
	case *Instruction:
		switch in := x.Instr.(type) {
		case *hir.Assign:
			kind := ""
			if in.DeclarationKind != "" {
				kind = string(in.DeclarationKind) + " "
			}
			p.writeLine("%s%s = %s", kind, in.Target, hir.PrintExpr(in.Value))
		case *hir.ExprInstr:
			p.writeLine("%s", hir.PrintExpr(in.Value))
		case *hir.Phi:
			parts := make([]string, len(in.Sources))
			for i, src := range in.Sources {
				parts[i] = fmt.Sprintf("bb%d: %s", src.Block, src.ID)
			}
			p.writeLine("%s = phi(%s) [%s]", in.Target, in.Variable, strings.Join(parts, ", "))
		}
	case *If:
		p.writeLine("if %s", hir.PrintExpr(x.Test))
		p.indent++
		p.printNode(x.Consequent)
		p.indent--
		if x.Alternate != nil && !emptyNode(x.Alternate) {
			p.writeLine("else")
			p.indent++
			p.printNode(x.Alternate)
			p.indent--
		}
	case *While:
		p.writeLine("while %s", hir.PrintExpr(x.Test))
		p.indent++
		p.printNode(x.Body)
		p.indent--
	case *DoWhile:
		p.writeLine("do-while %s", hir.PrintExpr(x.Test))
		p.indent++
		p.printNode(x.Body)
		p.indent--
	case *For:
		p.writeLine("for %s", hir.PrintExpr(x.Test))
		p.indent++
		if x.Init != nil && !emptyNode(x.Init) {
			p.writeLine("init:")
			p.indent++
			p.printNode(x.Init)
			p.indent--
		}
		p.printNode(x.Body)
		if x.Update != nil && !emptyNode(x.Update) {
			p.writeLine("update:")
			p.indent++
			p.printNode(x.Update)
			p.indent--
		}
		p.indent--
	case *ForOf:
		p.writeLine("for-of %s %s of %s", x.VariableKind, x.Variable, hir.PrintExpr(x.Iterable))
		p.indent++
		p.printNode(x.Body)
		p.indent--
	case *ForIn:
		p.writeLine("for-in %s %s in %s", x.VariableKind, x.Variable, hir.PrintExpr(x.Object))
		p.indent++
		p.printNode(x.Body)
		p.indent--
	case *Switch:
		p.writeLine("switch %s", hir.PrintExpr(x.Discriminant))
		p.indent++
		for _, c := range x.Cases {
			if c.Test == nil {
				p.writeLine("default:")
			} else {
				p.writeLine("case %s:", hir.PrintExpr(c.Test))
			}
			p.indent++
			p.printNode(c.Body)
			p.indent--
		}
		p.indent--
	case *Try:
		p.writeLine("try")
		p.indent++
		p.printNode(x.Block)
		p.indent--
		if x.Handler != nil {
			if x.Handler.Param != nil {
				p.writeLine("catch %s", hir.PrintExpr(x.Handler.Param))
			} else {
				p.writeLine("catch")
			}
			p.indent++
			p.printNode(x.Handler.Body)
			p.indent--
		}
		if x.Finalizer != nil && !emptyNode(x.Finalizer) {
			p.writeLine("finally")
			p.indent++
			p.printNode(x.Finalizer)
			p.indent--
		}
	case *Return:
		if x.Argument == nil {
			p.writeLine("return")
			return
		}
		p.writeLine("return %s", hir.PrintExpr(x.Argument))
	case *Throw:
		p.writeLine("throw %s", hir.PrintExpr(x.Argument))
	case *Break:
		if x.Label != "" {
			p.writeLine("break %s", x.Label)
			return
		}
		p.writeLine("break")
	case *Continue:
		if x.Label != "" {
			p.writeLine("continue %s", x.Label)
			return
		}
		p.writeLine("continue")
	}
}

func emptyNode(n Node) bool {
	seq, ok := n.(*Sequence)
	return ok && len(seq.Nodes) == 0
}
