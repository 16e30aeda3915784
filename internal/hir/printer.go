package hir

import (
	"fmt"
	"strings"

	"fictc/internal/ast"
)

// Printer renders HIR to a stable textual form used by diagnostics and
// snapshot tests. The rendering is not source code; it is the block/
// terminator view of the function.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// PrintProgram returns the string rendering of every function in prog.
func PrintProgram(prog *Program) string {
	p := NewPrinter()
	for i, fn := range prog.Functions {
		if i > 0 {
			p.output.WriteString("\n")
		}
		p.printFunction(fn)
	}
	return p.output.String()
}

// Print returns the string rendering of a single function.
func Print(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
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

func (p *Printer) printFunction(fn *Function) {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	flags := ""
	if fn.Meta.Pure {
		flags += " pure"
	}
	if fn.Meta.NoMemo {
		flags += " no-memo"
	}
	if fn.Meta.IsAsync {
		flags += " async"
	}
	p.writeLine("function %s(%s)%s", name, strings.Join(fn.Params, ", "), flags)
	p.indent++
	for _, blk := range fn.Blocks {
		p.printBlock(blk)
	}
	p.indent--
}

func (p *Printer) printBlock(blk *BasicBlock) {
	p.writeLine("bb%d:", blk.ID)
	p.indent++
	for _, instr := range blk.Instructions {
		switch in := instr.(type) {
		case *Assign:
			kind := ""
			if in.DeclarationKind != "" {
				kind = string(in.DeclarationKind) + " "
			}
			p.writeLine("%s%s = %s", kind, in.Target, PrintExpr(in.Value))
		case *ExprInstr:
			p.writeLine("%s", PrintExpr(in.Value))
		case *Phi:
			parts := make([]string, len(in.Sources))
			for i, src := range in.Sources {
				parts[i] = fmt.Sprintf("bb%d: %s", src.Block, src.ID)
			}
			p.writeLine("%s = phi(%s) [%s]", in.Target, in.Variable, strings.Join(parts, ", "))
		}
	}
	p.printTerminator(blk.Terminator)
	p.indent--
}

func (p *Printer) printTerminator(t Terminator) {
	switch x := t.(type) {
	case *Jump:
		p.writeLine("Jump -> bb%d", x.Target)
	case *Branch:
		p.writeLine("Branch (%s) -> bb%d, bb%d", PrintExpr(x.Test), x.Consequent, x.Alternate)
	case *Switch:
		p.writeLine("Switch (%s):", PrintExpr(x.Discriminant))
		p.indent++
		for _, c := range x.Cases {
			if c.Test == nil {
				p.writeLine("default -> bb%d", c.Target)
				continue
			}
			p.writeLine("case %s -> bb%d", PrintExpr(c.Test), c.Target)
		}
		p.indent--
	case *Return:
		if x.Argument == nil {
			p.writeLine("Return")
			return
		}
		p.writeLine("Return %s", PrintExpr(x.Argument))
	case *Throw:
		p.writeLine("Throw %s", PrintExpr(x.Argument))
	case *Break:
		if x.Label != "" {
			p.writeLine("Break %s -> bb%d", x.Label, x.Target)
			return
		}
		p.writeLine("Break -> bb%d", x.Target)
	case *Continue:
		if x.Label != "" {
			p.writeLine("Continue %s -> bb%d", x.Label, x.Target)
			return
		}
		p.writeLine("Continue -> bb%d", x.Target)
	case *ForOf:
		p.writeLine("ForOf %s %s of %s -> body bb%d, exit bb%d", x.VariableKind, x.Variable, PrintExpr(x.Iterable), x.Body, x.Exit)
	case *ForIn:
		p.writeLine("ForIn %s %s in %s -> body bb%d, exit bb%d", x.VariableKind, x.Variable, PrintExpr(x.Object), x.Body, x.Exit)
	case *Try:
		line := fmt.Sprintf("Try bb%d", x.TryBlock)
		if x.CatchBlock != nil {
			line += fmt.Sprintf(", catch bb%d", *x.CatchBlock)
		}
		if x.FinallyBlock != nil {
			line += fmt.Sprintf(", finally bb%d", *x.FinallyBlock)
		}
		line += fmt.Sprintf(", exit bb%d", x.Exit)
		p.writeLine("%s", line)
	case *Unreachable:
		p.writeLine("Unreachable")
	}
}

// PrintExpr renders one expression on a single line.
func PrintExpr(e Expression) string {
	if e == nil {
		return "<nil>"
	}
	switch x := e.(type) {
	case *Identifier:
		return x.Name
	case *Literal:
		return printLiteral(x)
	case *TemplateLiteral:
		var sb strings.Builder
		sb.WriteString("`")
		for i, q := range x.Quasis {
			sb.WriteString(q)
			if i < len(x.Expressions) {
				sb.WriteString("${" + PrintExpr(x.Expressions[i]) + "}")
			}
		}
		sb.WriteString("`")
		return sb.String()
	case *TaggedTemplate:
		return PrintExpr(x.Tag) + PrintExpr(x.Quasi)
	case *Unary:
		if x.Prefix {
			return "(" + x.Operator + " " + PrintExpr(x.Argument) + ")"
		}
		return "(" + PrintExpr(x.Argument) + " " + x.Operator + ")"
	case *Update:
		if x.Prefix {
			return "(" + x.Operator + PrintExpr(x.Argument) + ")"
		}
		return "(" + PrintExpr(x.Argument) + x.Operator + ")"
	case *Binary:
		return "(" + PrintExpr(x.Left) + " " + x.Operator + " " + PrintExpr(x.Right) + ")"
	case *Logical:
		return "(" + PrintExpr(x.Left) + " " + x.Operator + " " + PrintExpr(x.Right) + ")"
	case *Conditional:
		return "(" + PrintExpr(x.Test) + " ? " + PrintExpr(x.Consequent) + " : " + PrintExpr(x.Alternate) + ")"
	case *Assignment:
		return "(" + PrintExpr(x.Target) + " " + x.Operator + " " + PrintExpr(x.Value) + ")"
	case *Call:
		mark := ""
		if x.Pure {
			mark = "/*pure*/ "
		}
		op := "("
		if x.Optional {
			op = "?.("
		}
		return mark + PrintExpr(x.Callee) + op + printArgs(x.Args) + ")"
	case *New:
		return "new " + PrintExpr(x.Callee) + "(" + printArgs(x.Args) + ")"
	case *Member:
		dot := "."
		if x.Optional {
			dot = "?."
		}
		if x.Computed {
			return PrintExpr(x.Object) + dot + "[" + PrintExpr(x.Property) + "]"
		}
		return PrintExpr(x.Object) + dot + PrintExpr(x.Property)
	case *Array:
		parts := make([]string, len(x.Elements))
		for i, el := range x.Elements {
			if el == nil {
				parts[i] = ""
				continue
			}
			parts[i] = PrintExpr(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		parts := make([]string, 0, len(x.Properties))
		for _, m := range x.Properties {
			switch prop := m.(type) {
			case *ObjectProperty:
				key := PrintExpr(prop.Key)
				if prop.Computed {
					key = "[" + key + "]"
				}
				parts = append(parts, key+": "+PrintExpr(prop.Value))
			case *SpreadElement:
				parts = append(parts, "..."+PrintExpr(prop.Argument))
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *SpreadElement:
		return "..." + PrintExpr(x.Argument)
	case *Sequence:
		parts := make([]string, len(x.Expressions))
		for i, sub := range x.Expressions {
			parts[i] = PrintExpr(sub)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Await:
		return "(await " + PrintExpr(x.Argument) + ")"
	case *Yield:
		if x.Argument == nil {
			return "(yield)"
		}
		if x.Delegate {
			return "(yield* " + PrintExpr(x.Argument) + ")"
		}
		return "(yield " + PrintExpr(x.Argument) + ")"
	case *ArrowFunction:
		if x.ExpressionBody != nil {
			return "(" + strings.Join(x.Params, ", ") + ") => " + PrintExpr(x.ExpressionBody)
		}
		return "(" + strings.Join(x.Params, ", ") + ") => {...}"
	case *FunctionExpr:
		return "function " + x.Name + "(" + strings.Join(x.Params, ", ") + ") {...}"
	case *ClassExpr:
		return "class " + x.Name + " {...}"
	case *JSXElement:
		return printJSX(x)
	case *This:
		return "this"
	case *Super:
		return "super"
	case *ImportExpr:
		return "import(" + PrintExpr(x.Source) + ")"
	case *MetaProperty:
		return x.Meta + "." + x.Property
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func printLiteral(lit *Literal) string {
	if lit.Raw != "" {
		return lit.Raw
	}
	switch lit.Kind {
	case ast.LitString:
		if s, ok := lit.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
	case ast.LitNumber:
		if n, ok := lit.Value.(float64); ok {
			return fmt.Sprintf("%g", n)
		}
	case ast.LitBool:
		if b, ok := lit.Value.(bool); ok {
			return fmt.Sprintf("%t", b)
		}
	case ast.LitNull:
		return "null"
	}
	return fmt.Sprintf("%v", lit.Value)
}

func printArgs(args []CallArgument) string {
	parts := make([]string, len(args))
	for i, a := range args {
		s := PrintExpr(a.Expr)
		if a.Spread {
			s = "..." + s
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

func printJSX(j *JSXElement) string {
	tag := j.TagName
	if j.IsFragment {
		tag = ""
	}
	var sb strings.Builder
	sb.WriteString("<" + tag)
	for _, a := range j.Attributes {
		if a.Spread {
			sb.WriteString(" {..." + PrintExpr(a.Value) + "}")
			continue
		}
		if a.Value == nil {
			sb.WriteString(" " + a.Name)
			continue
		}
		sb.WriteString(" " + a.Name + "={" + PrintExpr(a.Value) + "}")
	}
	if len(j.Children) == 0 {
		sb.WriteString(" />")
		return sb.String()
	}
	sb.WriteString(">")
	for _, c := range j.Children {
		switch {
		case c.Element != nil:
			sb.WriteString(printJSX(c.Element))
		case c.Expression != nil:
			sb.WriteString("{" + PrintExpr(c.Expression) + "}")
		default:
			sb.WriteString(c.Text)
		}
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}
