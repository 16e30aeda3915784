// Package normalizer implements the AST Normalizer: it
// expands destructuring into temporaries and member loads, resolves macro
// aliases to their canonical names, detects per-function purity/no-memo
// flags, and classifies JSX tags as intrinsic or component before the HIR
// builder ever sees the tree.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"

	"fictc/internal/ast"
	"fictc/internal/compiler"
)

// Normalizer holds no state beyond the ambient compiler.Context: the
// destructuring-temp counter lives on the Context, macro
// aliases are resolved through it, and purity directives are evaluated
// per-function as they're visited.
type Normalizer struct {
	ctx *compiler.Context
}

func New(ctx *compiler.Context) *Normalizer {
	return &Normalizer{ctx: ctx}
}

// Normalize rewrites prog in place and returns it.
func (n *Normalizer) Normalize(prog *ast.Program) (*ast.Program, error) {
	prog.Body = n.normalizeStatements(prog.Body, prog.Directives)
	return prog, nil
}

// normalizeStatements flattens destructuring declarations/assignments,
// resolves macro aliases, and recurses into nested statement containers.
// enclosingDirectives carries the "use pure"/"use no memo" directives of the
// nearest enclosing program or function.
func (n *Normalizer) normalizeStatements(stmts []ast.Statement, enclosingDirectives []string) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, n.normalizeStatement(s, enclosingDirectives)...)
	}
	return out
}

func (n *Normalizer) normalizeStatement(s ast.Statement, enclosing []string) []ast.Statement {
	switch st := s.(type) {
	case *ast.VariableDecl:
		for _, d := range st.Declarations {
			if d.Init != nil {
				d.Init = n.normalizeExpr(d.Init, enclosing)
			}
			n.normalizePatternDefaults(d.Id, enclosing)
		}
		// Pattern-bound declarators are flattened into temporaries and
		// member-load assignments by the HIR builder at CFG-construction
		// time, not here; the declaration survives normalization intact.
		return []ast.Statement{st}

	case *ast.ExprStmt:
		st.Expr = n.normalizeExpr(st.Expr, enclosing)
		if assign, ok := st.Expr.(*ast.AssignmentExpr); ok {
			if pat, isPattern := assign.Target.(ast.Pattern); isPattern {
				if _, simple := pat.(*ast.Identifier); !simple {
					return n.expandAssignmentPattern(pat, n.normalizeExpr(assign.Value, enclosing))
				}
			}
		}
		return []ast.Statement{st}

	case *ast.BlockStmt:
		st.Body = n.normalizeStatements(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.IfStmt:
		st.Test = n.normalizeExpr(st.Test, enclosing)
		st.Consequent = n.normalizeSingle(st.Consequent, enclosing)
		if st.Alternate != nil {
			st.Alternate = n.normalizeSingle(st.Alternate, enclosing)
		}
		return []ast.Statement{st}

	case *ast.WhileStmt:
		st.Test = n.normalizeExpr(st.Test, enclosing)
		st.Body = n.normalizeSingle(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.DoWhileStmt:
		st.Body = n.normalizeSingle(st.Body, enclosing)
		st.Test = n.normalizeExpr(st.Test, enclosing)
		return []ast.Statement{st}

	case *ast.ForStmt:
		if st.Init != nil {
			expanded := n.normalizeStatement(st.Init, enclosing)
			if len(expanded) == 1 {
				st.Init = expanded[0]
			} else if len(expanded) > 1 {
				// A destructuring for-init rarely needs more than the temp
				// plus leaf assignments; fold them into a block the
				// HIR builder inlines into the preheader the same way it
				// inlines a simple init.
				st.Init = &ast.BlockStmt{Body: expanded}
			}
		}
		if st.Test != nil {
			st.Test = n.normalizeExpr(st.Test, enclosing)
		}
		if st.Update != nil {
			st.Update = n.normalizeExpr(st.Update, enclosing)
		}
		st.Body = n.normalizeSingle(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.ForOfStmt:
		st.Iterable = n.normalizeExpr(st.Iterable, enclosing)
		st.Body = n.normalizeSingle(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.ForInStmt:
		st.Object = n.normalizeExpr(st.Object, enclosing)
		st.Body = n.normalizeSingle(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.SwitchStmt:
		st.Discriminant = n.normalizeExpr(st.Discriminant, enclosing)
		for _, c := range st.Cases {
			if c.Test != nil {
				c.Test = n.normalizeExpr(c.Test, enclosing)
			}
			c.Consequent = n.normalizeStatements(c.Consequent, enclosing)
		}
		return []ast.Statement{st}

	case *ast.TryStmt:
		st.Block.Body = n.normalizeStatements(st.Block.Body, enclosing)
		if st.CatchBlock != nil {
			st.CatchBlock.Body = n.normalizeStatements(st.CatchBlock.Body, enclosing)
		}
		if st.FinallyBlock != nil {
			st.FinallyBlock.Body = n.normalizeStatements(st.FinallyBlock.Body, enclosing)
		}
		return []ast.Statement{st}

	case *ast.ReturnStmt:
		if st.Argument != nil {
			st.Argument = n.normalizeExpr(st.Argument, enclosing)
		}
		return []ast.Statement{st}

	case *ast.ThrowStmt:
		st.Argument = n.normalizeExpr(st.Argument, enclosing)
		return []ast.Statement{st}

	case *ast.LabeledStmt:
		st.Body = n.normalizeSingle(st.Body, enclosing)
		return []ast.Statement{st}

	case *ast.FunctionDecl:
		n.normalizeFunction(st.Fn, enclosing)
		return []ast.Statement{st}

	case *ast.ExportDecl:
		expanded := n.normalizeStatement(st.Decl, enclosing)
		if len(expanded) == 1 {
			st.Decl = expanded[0]
		}
		return []ast.Statement{st}

	default:
		return []ast.Statement{s}
	}
}

// normalizeSingle normalizes a single (non-list) statement position,
// collapsing a multi-statement destructuring expansion into a block so it
// still satisfies "one Statement" call sites like If.Consequent.
func (n *Normalizer) normalizeSingle(s ast.Statement, enclosing []string) ast.Statement {
	expanded := n.normalizeStatement(s, enclosing)
	if len(expanded) == 1 {
		return expanded[0]
	}
	return &ast.BlockStmt{Body: expanded}
}

// normalizePatternDefaults recurses into a binding pattern to normalize the
// default-value expressions nested inside it (macro-alias resolution, e.g.
// `{ value = $derived(other) }`), without flattening the pattern itself.
func (n *Normalizer) normalizePatternDefaults(pat ast.Pattern, enclosing []string) {
	switch p := pat.(type) {
	case *ast.AssignmentPattern:
		p.Right = n.normalizeExpr(p.Right, enclosing)
		n.normalizePatternDefaults(p.Left, enclosing)
	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			if prop.Default != nil {
				prop.Default = n.normalizeExpr(prop.Default, enclosing)
			}
			n.normalizePatternDefaults(prop.Value, enclosing)
		}
		if p.Rest != nil {
			n.normalizePatternDefaults(p.Rest, enclosing)
		}
	case *ast.ArrayPattern:
		for _, elem := range p.Elements {
			if elem != nil {
				n.normalizePatternDefaults(elem, enclosing)
			}
		}
	case *ast.RestElement:
		n.normalizePatternDefaults(p.Argument, enclosing)
	}
}

// normalizeFunction resolves purity flags and recurses into the body.
func (n *Normalizer) normalizeFunction(fn *ast.Function, enclosing []string) {
	fn.Pure, fn.NoMemo = detectPurity(fn, enclosing)
	if n.ctx.Opts.ForcePure {
		fn.Pure = true
		fn.NoMemo = true
	}
	if n.ctx.Opts.ForceNoMemo {
		fn.NoMemo = true
	}
	// nested functions inherit the full directive stack: the enclosing
	// set layered with this function's own prologue, so a program-level
	// directive still reaches a function nested two or more levels down.
	inherited := mergeDirectives(enclosing, fn.Directives)
	for _, p := range fn.Params {
		n.normalizePatternDefaults(p, inherited)
	}
	if fn.HasExpressionBody {
		fn.ExpressionBody = n.normalizeExpr(fn.ExpressionBody, inherited)
		return
	}
	fn.Body = n.normalizeStatements(fn.Body, inherited)
}

func mergeDirectives(enclosing, own []string) []string {
	if len(own) == 0 {
		return enclosing
	}
	merged := make([]string, 0, len(enclosing)+len(own))
	merged = append(merged, enclosing...)
	return append(merged, own...)
}

// detectPurity is the OR of: an enclosing directive, a
// function-body directive, or a leading @__PURE__/@#__PURE__ comment.
func detectPurity(fn *ast.Function, enclosing []string) (pure, noMemo bool) {
	for _, d := range enclosing {
		if d == "use pure" {
			pure = true
		}
		if d == "use no memo" {
			noMemo = true
		}
	}
	for _, d := range fn.Directives {
		if d == "use pure" {
			pure = true
		}
		if d == "use no memo" {
			noMemo = true
		}
	}
	if strings.Contains(fn.LeadingComment, "@__PURE__") || strings.Contains(fn.LeadingComment, "@#__PURE__") {
		pure = true
	}
	return pure, noMemo || pure
}

// classifyJSXTag discriminates an intrinsic element from a component
// reference by casing convention: a tag whose first letter
// is uppercase is a component.
func classifyJSXTag(tag string) bool {
	if tag == "" {
		return false
	}
	if unicode.IsUpper(rune(tag[0])) {
		return true
	}
	// A lowercase-leading tag is also treated as a component when
	// strcase.ToLowerCamel changes it: a tag with a separator or other
	// non-alphanumeric character (`my-element`, `svg:path`), an inner run of
	// capitals (`myHTML`), or a lowercase letter after a digit (`h1x`).
	return strcase.ToLowerCamel(tag) != tag
}
