package optimizer

import (
	"math"
	"strconv"

	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// ConstantFolding reduces binary/unary/logical/conditional expressions over
// literal operands to literals, using source semantics: string
// concatenation, IEEE-754 numeric arithmetic, and boolean short-circuits
// are evaluated at build time. Operand pairs the source language would
// coerce (string + number, loose equality across types) are left unfolded
// rather than approximated.
type ConstantFolding struct{}

func (c *ConstantFolding) Name() string { return "constant-folding" }

func (c *ConstantFolding) Apply(_ *compiler.Context, fn *hir.Function) bool {
	changed := false
	fold := func(e hir.Expression) hir.Expression {
		out, didFold := foldExpr(e)
		if didFold {
			changed = true
		}
		return out
	}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions {
			switch in := instr.(type) {
			case *hir.Assign:
				in.Value = fold(in.Value)
			case *hir.ExprInstr:
				in.Value = fold(in.Value)
			}
		}
		switch t := blk.Terminator.(type) {
		case *hir.Branch:
			t.Test = fold(t.Test)
		case *hir.Switch:
			t.Discriminant = fold(t.Discriminant)
			for i := range t.Cases {
				if t.Cases[i].Test != nil {
					t.Cases[i].Test = fold(t.Cases[i].Test)
				}
			}
		case *hir.Return:
			if t.Argument != nil {
				t.Argument = fold(t.Argument)
			}
		case *hir.Throw:
			t.Argument = fold(t.Argument)
		case *hir.ForOf:
			t.Iterable = fold(t.Iterable)
		case *hir.ForIn:
			t.Object = fold(t.Object)
		}
	}
	return changed
}

// foldExpr folds bottom-up; the bool reports whether any reduction happened
// anywhere in the subtree.
func foldExpr(e hir.Expression) (hir.Expression, bool) {
	if e == nil {
		return nil, false
	}
	switch x := e.(type) {
	case *hir.Unary:
		arg, sub := foldExpr(x.Argument)
		x.Argument = arg
		if lit, ok := arg.(*hir.Literal); ok {
			if folded, ok := foldUnary(x.Operator, lit); ok {
				return folded, true
			}
		}
		return x, sub

	case *hir.Binary:
		left, ls := foldExpr(x.Left)
		right, rs := foldExpr(x.Right)
		x.Left, x.Right = left, right
		ll, lok := left.(*hir.Literal)
		rl, rok := right.(*hir.Literal)
		if lok && rok {
			if folded, ok := foldBinary(x.Operator, ll, rl); ok {
				return folded, true
			}
		}
		return x, ls || rs

	case *hir.Logical:
		left, ls := foldExpr(x.Left)
		x.Left = left
		if lit, ok := left.(*hir.Literal); ok {
			if truthiness, known := literalTruthiness(lit); known {
				// short-circuit: the surviving operand replaces the node.
				switch x.Operator {
				case "&&":
					if !truthiness {
						return lit, true
					}
					folded, _ := foldExpr(x.Right)
					return folded, true
				case "||":
					if truthiness {
						return lit, true
					}
					folded, _ := foldExpr(x.Right)
					return folded, true
				case "??":
					if lit.Kind != ast.LitNull {
						return lit, true
					}
					folded, _ := foldExpr(x.Right)
					return folded, true
				}
			}
		}
		right, rs := foldExpr(x.Right)
		x.Right = right
		return x, ls || rs

	case *hir.Conditional:
		test, ts := foldExpr(x.Test)
		x.Test = test
		if lit, ok := test.(*hir.Literal); ok {
			if truthiness, known := literalTruthiness(lit); known {
				if truthiness {
					folded, _ := foldExpr(x.Consequent)
					return folded, true
				}
				folded, _ := foldExpr(x.Alternate)
				return folded, true
			}
		}
		cons, cs := foldExpr(x.Consequent)
		alt, as := foldExpr(x.Alternate)
		x.Consequent, x.Alternate = cons, alt
		return x, ts || cs || as

	case *hir.TemplateLiteral:
		changed := false
		for i, sub := range x.Expressions {
			folded, s := foldExpr(sub)
			x.Expressions[i] = folded
			changed = changed || s
		}
		return x, changed

	case *hir.Call:
		changed := false
		for i := range x.Args {
			folded, s := foldExpr(x.Args[i].Expr)
			x.Args[i].Expr = folded
			changed = changed || s
		}
		return x, changed

	case *hir.Member:
		obj, s := foldExpr(x.Object)
		x.Object = obj
		if x.Computed {
			prop, ps := foldExpr(x.Property)
			x.Property = prop
			s = s || ps
		}
		return x, s

	case *hir.Sequence:
		changed := false
		for i, sub := range x.Expressions {
			folded, s := foldExpr(sub)
			x.Expressions[i] = folded
			changed = changed || s
		}
		return x, changed

	default:
		return e, false
	}
}

func foldUnary(op string, lit *hir.Literal) (*hir.Literal, bool) {
	switch op {
	case "!":
		if t, known := literalTruthiness(lit); known {
			return boolLiteral(!t), true
		}
	case "-":
		if n, ok := numberValue(lit); ok {
			return numberLiteral(-n), true
		}
	case "+":
		if n, ok := numberValue(lit); ok {
			return numberLiteral(n), true
		}
	case "typeof":
		switch lit.Kind {
		case ast.LitString:
			return stringLiteral("string"), true
		case ast.LitNumber:
			return stringLiteral("number"), true
		case ast.LitBool:
			return stringLiteral("boolean"), true
		}
	}
	return nil, false
}

func foldBinary(op string, l, r *hir.Literal) (*hir.Literal, bool) {
	if ln, lok := numberValue(l); lok {
		if rn, rok := numberValue(r); rok {
			switch op {
			case "+":
				return numberLiteral(ln + rn), true
			case "-":
				return numberLiteral(ln - rn), true
			case "*":
				return numberLiteral(ln * rn), true
			case "/":
				return numberLiteral(ln / rn), true
			case "%":
				return numberLiteral(math.Mod(ln, rn)), true
			case "**":
				return numberLiteral(math.Pow(ln, rn)), true
			case "<":
				return boolLiteral(ln < rn), true
			case "<=":
				return boolLiteral(ln <= rn), true
			case ">":
				return boolLiteral(ln > rn), true
			case ">=":
				return boolLiteral(ln >= rn), true
			case "===", "==":
				return boolLiteral(ln == rn), true
			case "!==", "!=":
				return boolLiteral(ln != rn), true
			}
			return nil, false
		}
	}
	if ls, lok := stringValue(l); lok {
		if rs, rok := stringValue(r); rok {
			switch op {
			case "+":
				return stringLiteral(ls + rs), true
			case "===", "==":
				return boolLiteral(ls == rs), true
			case "!==", "!=":
				return boolLiteral(ls != rs), true
			case "<":
				return boolLiteral(ls < rs), true
			case ">":
				return boolLiteral(ls > rs), true
			}
			return nil, false
		}
	}
	if lb, lok := boolValue(l); lok {
		if rb, rok := boolValue(r); rok {
			switch op {
			case "===", "==":
				return boolLiteral(lb == rb), true
			case "!==", "!=":
				return boolLiteral(lb != rb), true
			}
		}
	}
	return nil, false
}

func literalTruthiness(lit *hir.Literal) (truthy, known bool) {
	switch lit.Kind {
	case ast.LitBool:
		b, ok := lit.Value.(bool)
		return b, ok
	case ast.LitNumber:
		n, ok := lit.Value.(float64)
		return n != 0 && !math.IsNaN(n), ok
	case ast.LitString:
		s, ok := lit.Value.(string)
		return s != "", ok
	case ast.LitNull:
		return false, true
	default:
		// BigInt/RegExp literals are not folded.
		return false, false
	}
}

func numberValue(lit *hir.Literal) (float64, bool) {
	if lit.Kind != ast.LitNumber {
		return 0, false
	}
	n, ok := lit.Value.(float64)
	return n, ok
}

func stringValue(lit *hir.Literal) (string, bool) {
	if lit.Kind != ast.LitString {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

func boolValue(lit *hir.Literal) (bool, bool) {
	if lit.Kind != ast.LitBool {
		return false, false
	}
	b, ok := lit.Value.(bool)
	return b, ok
}

func numberLiteral(n float64) *hir.Literal {
	return &hir.Literal{Kind: ast.LitNumber, Raw: strconv.FormatFloat(n, 'g', -1, 64), Value: n}
}

func stringLiteral(s string) *hir.Literal {
	return &hir.Literal{Kind: ast.LitString, Raw: strconv.Quote(s), Value: s}
}

func boolLiteral(b bool) *hir.Literal {
	raw := "false"
	if b {
		raw = "true"
	}
	return &hir.Literal{Kind: ast.LitBool, Raw: raw, Value: b}
}
