// Package ast models the parsed-program vocabulary the pipeline consumes.
//
// The source parser is an external collaborator: nothing in
// this package turns source text into these types. It only declares the
// shape a parser is expected to hand the normalizer/HIR builder, with the
// source-location metadata the rest of the pipeline carries through for
// diagnostics.
package ast

// Node is implemented by every AST node. Dispatch on concrete type is done
// with type switches throughout the pipeline, the idiomatic Go equivalent of
// tagged-variant matching.
type Node interface {
	Loc() Range
}

// Statement is any node that can appear in a statement position.
type Statement interface {
	Node
	statementNode()
}

// Expression is any node that can appear in an expression position.
type Expression interface {
	Node
	expressionNode()
}

// Program is the top-level parsed unit handed to the normalizer.
type Program struct {
	Directives []string // e.g. "use pure", "use no memo"
	Body       []Statement
	Range      Range
}

func (p *Program) Loc() Range { return p.Range }

// Identifier names a binding occurrence or a use.
type Identifier struct {
	Name  string
	Range Range
}

func (i *Identifier) Loc() Range      { return i.Range }
func (i *Identifier) expressionNode() {}
func (i *Identifier) patternNode()    {}

// Pattern is a binding target: an Identifier, ObjectPattern, ArrayPattern, or
// RestElement. Patterns appear on variable declarators, function parameters,
// and assignment left-hand sides; after normalizer expansion they survive
// only on ForOf/ForIn terminators and function parameters.
type Pattern interface {
	Node
	patternNode()
}

// ObjectPattern destructures an object: { a, b: c, ...rest }. Rest is nil
// when the pattern has no trailing rest capture.
type ObjectPattern struct {
	Properties []ObjectPatternProperty
	Rest       *RestElement
	Range      Range
}

func (p *ObjectPattern) Loc() Range   { return p.Range }
func (p *ObjectPattern) patternNode() {}

type ObjectPatternProperty struct {
	Key       string // computed keys are not supported in destructuring patterns
	Value     Pattern
	Shorthand bool
	Default   Expression // nil when absent
}

// ArrayPattern destructures an array/iterable: [a, , b, ...rest].
type ArrayPattern struct {
	Elements []Pattern // nil entries denote elision (holes)
	Range    Range
}

func (p *ArrayPattern) Loc() Range   { return p.Range }
func (p *ArrayPattern) patternNode() {}

// RestElement captures the remaining properties/elements of a pattern.
type RestElement struct {
	Argument Pattern
	Range    Range
}

func (r *RestElement) Loc() Range   { return r.Range }
func (r *RestElement) patternNode() {}

// AssignmentPattern gives a pattern element a default value: { a = 1 }.
type AssignmentPattern struct {
	Left  Pattern
	Right Expression
	Range Range
}

func (a *AssignmentPattern) Loc() Range   { return a.Range }
func (a *AssignmentPattern) patternNode() {}

// Function is the parsed shape of a function/arrow declaration or
// expression, before HIR lowering.
type Function struct {
	Name              string // empty for anonymous arrows/expressions
	Params            []Pattern
	Body              []Statement // nil when HasExpressionBody
	ExpressionBody    Expression  // set when HasExpressionBody
	IsArrow           bool
	IsAsync           bool
	HasExpressionBody bool
	LeadingComment    string // raw text of the comment immediately preceding the declaration
	Directives        []string

	// Pure/NoMemo are filled in by the normalizer: the OR of
	// an enclosing program directive, a body directive, a leading
	// @__PURE__/@#__PURE__ comment, or an explicit caller option.
	Pure   bool
	NoMemo bool

	Range Range
}

func (f *Function) Loc() Range      { return f.Range }
func (f *Function) expressionNode() {} // arrow/function expressions are also expressions
