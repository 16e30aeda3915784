package hir

import "fictc/internal/ast"

// Expression is the HIR expression tree: a sum type that
// preserves purity flags and optional-chaining markers from the AST.
type Expression interface {
	expressionNode()
	Loc() ast.Range
}

type Identifier struct {
	Name  string
	Range ast.Range
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) Loc() ast.Range  { return i.Range }

type Literal struct {
	Kind  ast.LiteralKind
	Raw   string
	Value interface{}
	Range ast.Range
}

func (l *Literal) expressionNode() {}
func (l *Literal) Loc() ast.Range  { return l.Range }

type TemplateLiteral struct {
	Quasis      []string
	Expressions []Expression
	Range       ast.Range
}

func (t *TemplateLiteral) expressionNode() {}
func (t *TemplateLiteral) Loc() ast.Range  { return t.Range }

type Unary struct {
	Operator string
	Argument Expression
	Prefix   bool
	Range    ast.Range
}

func (u *Unary) expressionNode() {}
func (u *Unary) Loc() ast.Range  { return u.Range }

type Update struct {
	Operator string
	Argument Expression
	Prefix   bool
	Range    ast.Range
}

func (u *Update) expressionNode() {}
func (u *Update) Loc() ast.Range  { return u.Range }

type Binary struct {
	Operator string
	Left     Expression
	Right    Expression
	Range    ast.Range
}

func (b *Binary) expressionNode() {}
func (b *Binary) Loc() ast.Range  { return b.Range }

type Logical struct {
	Operator string
	Left     Expression
	Right    Expression
	Range    ast.Range
}

func (l *Logical) expressionNode() {}
func (l *Logical) Loc() ast.Range  { return l.Range }

type Conditional struct {
	Test       Expression
	Consequent Expression
	Alternate  Expression
	Range      ast.Range
}

func (c *Conditional) expressionNode() {}
func (c *Conditional) Loc() ast.Range  { return c.Range }

// Assignment's Target is always a simple Identifier or Member after
// normalizer expansion; destructuring targets never
// reach HIR.
type Assignment struct {
	Operator string
	Target   Expression
	Value    Expression
	Range    ast.Range
}

func (a *Assignment) expressionNode() {}
func (a *Assignment) Loc() ast.Range  { return a.Range }

type CallArgument struct {
	Expr   Expression
	Spread bool
}

// Call covers both the call and optional-call AST variants, discriminated
// by Optional, and carries the purity flag.
type Call struct {
	Callee   Expression
	Args     []CallArgument
	Optional bool
	Pure     bool
	Range    ast.Range
}

func (c *Call) expressionNode() {}
func (c *Call) Loc() ast.Range  { return c.Range }

type New struct {
	Callee Expression
	Args   []CallArgument
	Range  ast.Range
}

func (n *New) expressionNode() {}
func (n *New) Loc() ast.Range  { return n.Range }

// Member covers both the member and optional-member AST variants,
// discriminated by Optional.
type Member struct {
	Object   Expression
	Property Expression
	Computed bool
	Optional bool
	Range    ast.Range
}

func (m *Member) expressionNode() {}
func (m *Member) Loc() ast.Range  { return m.Range }

type Array struct {
	Elements []Expression // nil entries denote elision
	Range    ast.Range
}

func (a *Array) expressionNode() {}
func (a *Array) Loc() ast.Range  { return a.Range }

// ObjectMember is either an ObjectProperty or a SpreadElement.
type ObjectMember interface{ objectMemberNode() }

type ObjectProperty struct {
	Key       Expression
	Value     Expression
	Shorthand bool
	Computed  bool
}

func (o *ObjectProperty) objectMemberNode() {}

type SpreadElement struct {
	Argument Expression
	Range    ast.Range
}

func (s *SpreadElement) objectMemberNode() {}
func (s *SpreadElement) expressionNode()   {}
func (s *SpreadElement) Loc() ast.Range    { return s.Range }

type Object struct {
	Properties []ObjectMember
	Range      ast.Range
}

func (o *Object) expressionNode() {}
func (o *Object) Loc() ast.Range  { return o.Range }

type Sequence struct {
	Expressions []Expression
	Range       ast.Range
}

func (s *Sequence) expressionNode() {}
func (s *Sequence) Loc() ast.Range  { return s.Range }

// Await/Yield are opaque, with no control-flow lowering.
type Await struct {
	Argument Expression
	Range    ast.Range
}

func (a *Await) expressionNode() {}
func (a *Await) Loc() ast.Range  { return a.Range }

type Yield struct {
	Argument Expression
	Delegate bool
	Range    ast.Range
}

func (y *Yield) expressionNode() {}
func (y *Yield) Loc() ast.Range  { return y.Range }

// ArrowFunction carries either an expression body or a lowered basic-block
// list.
type ArrowFunction struct {
	Params         []string
	OriginalParams []ast.Pattern
	ExpressionBody Expression // set when the arrow has an expression body
	Blocks         []*BasicBlock
	Meta           FunctionMeta
	Range          ast.Range
}

func (a *ArrowFunction) expressionNode() {}
func (a *ArrowFunction) Loc() ast.Range  { return a.Range }

// FunctionExpr is always block-bodied.
type FunctionExpr struct {
	Name           string
	Params         []string
	OriginalParams []ast.Pattern
	Blocks         []*BasicBlock
	Meta           FunctionMeta
	Range          ast.Range
}

func (f *FunctionExpr) expressionNode() {}
func (f *FunctionExpr) Loc() ast.Range  { return f.Range }

type TaggedTemplate struct {
	Tag   Expression
	Quasi *TemplateLiteral
	Range ast.Range
}

func (t *TaggedTemplate) expressionNode() {}
func (t *TaggedTemplate) Loc() ast.Range  { return t.Range }

// ClassExpr is preserved opaquely; the core never analyzes its body.
type ClassExpr struct {
	Name  string
	Raw   string
	Range ast.Range
}

func (c *ClassExpr) expressionNode() {}
func (c *ClassExpr) Loc() ast.Range  { return c.Range }

type JSXAttribute struct {
	Name   string
	Value  Expression
	Spread bool
}

type JSXChild struct {
	Text       string
	Element    *JSXElement
	Expression Expression
}

// JSXElement's tag is modeled as the sum { intrinsic: string, component:
// Expression } discriminated by IsComponent; TagName also
// carries the component's identifier/member-path text for diagnostics.
type JSXElement struct {
	TagName     string
	IsComponent bool
	IsFragment  bool
	Attributes  []JSXAttribute
	Children    []JSXChild
	Range       ast.Range
}

func (j *JSXElement) expressionNode() {}
func (j *JSXElement) Loc() ast.Range  { return j.Range }

type This struct{ Range ast.Range }

func (t *This) expressionNode() {}
func (t *This) Loc() ast.Range  { return t.Range }

type Super struct{ Range ast.Range }

func (s *Super) expressionNode() {}
func (s *Super) Loc() ast.Range  { return s.Range }

type ImportExpr struct {
	Source Expression
	Range  ast.Range
}

func (i *ImportExpr) expressionNode() {}
func (i *ImportExpr) Loc() ast.Range  { return i.Range }

type MetaProperty struct {
	Meta     string
	Property string
	Range    ast.Range
}

func (m *MetaProperty) expressionNode() {}
func (m *MetaProperty) Loc() ast.Range  { return m.Range }
