package hir

import (
	"fictc/internal/annotation"
	"fictc/internal/ast"
	"fictc/internal/compiler"
	"fictc/internal/normalizer"
)

// loopFrame is one entry of the builder's loop stack. Switch pushes a frame
// with hasContinue=false: continue must skip over a switch to the nearest
// enclosing loop.
type loopFrame struct {
	breakTarget    uint32
	continueTarget uint32
	hasContinue    bool
	label          string
}

// Builder walks a normalized function body and emits basic blocks with
// linear instructions and exactly one terminator per block.
type Builder struct {
	ctx *compiler.Context

	blocks       []*BasicBlock
	current      *BasicBlock
	loopStack    []loopFrame
	pendingLabel string
}

// BuildProgram partitions a normalized ast.Program into preamble, Functions,
// and postamble, and lowers every function/arrow/const-bound function
// expression to CFG+HIR form.
func BuildProgram(ctx *compiler.Context, prog *ast.Program) (*Program, error) {
	out := &Program{}
	for _, stmt := range prog.Body {
		if err := buildTopLevel(ctx, out, stmt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildTopLevel(ctx *compiler.Context, prog *Program, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ImportDecl:
		prog.Preamble = append(prog.Preamble, s)
		return nil

	case *ast.FunctionDecl:
		fn, err := BuildFunction(ctx, s.Fn)
		if err != nil {
			return err
		}
		prog.Functions = append(prog.Functions, fn)
		return nil

	case *ast.VariableDecl:
		// const-bound function/arrow expressions become Functions; any other
		// top-level variable declaration is opaque postamble.
		allFunctions := len(s.Declarations) > 0
		for _, d := range s.Declarations {
			if _, ok := d.Init.(*ast.Function); !ok {
				allFunctions = false
			}
		}
		if !allFunctions {
			prog.Postamble = append(prog.Postamble, &RawStatement{Stmt: s})
			return nil
		}
		for _, d := range s.Declarations {
			ident, ok := d.Id.(*ast.Identifier)
			if !ok {
				return compiler.NewBuildError(ctx.Opts.File, 0, "top-level const-bound function must have a simple identifier binding")
			}
			astFn := d.Init.(*ast.Function)
			astFn.Name = ident.Name
			fn, err := BuildFunction(ctx, astFn)
			if err != nil {
				return err
			}
			prog.Functions = append(prog.Functions, fn)
		}
		return nil

	case *ast.ExportDecl:
		switch decl := s.Decl.(type) {
		case *ast.FunctionDecl:
			fn, err := BuildFunction(ctx, decl.Fn)
			if err != nil {
				return err
			}
			prog.Functions = append(prog.Functions, fn)
			prog.Postamble = append(prog.Postamble, &ExportEntry{Kind: s.Kind, Name: decl.Fn.Name})
			return nil
		case *ast.VariableDecl:
			for _, d := range decl.Declarations {
				if astFn, ok := d.Init.(*ast.Function); ok {
					ident := d.Id.(*ast.Identifier)
					astFn.Name = ident.Name
					fn, err := BuildFunction(ctx, astFn)
					if err != nil {
						return err
					}
					prog.Functions = append(prog.Functions, fn)
					prog.Postamble = append(prog.Postamble, &ExportEntry{Kind: s.Kind, Name: ident.Name})
				}
			}
			return nil
		default:
			prog.Postamble = append(prog.Postamble, &RawStatement{Stmt: s})
			return nil
		}

	default:
		prog.Postamble = append(prog.Postamble, &RawStatement{Stmt: stmt})
		return nil
	}
}

// BuildFunction lowers a single parsed function/arrow to CFG+HIR form. It is
// also used recursively by convertExpr for nested function/arrow
// expressions, each with its own fresh block-id arena and loop stack (the
// builder owns transient counters reset per function).
func BuildFunction(ctx *compiler.Context, astFn *ast.Function) (fn *Function, err error) {
	b := &Builder{ctx: ctx}

	params, originalParams := flattenParams(ctx, astFn.Params)

	// convertExpr has no error return (it mirrors a pure AST-to-HIR
	// transcoding pass); a nested function literal that fails to build
	// panics with the *compiler.CompileError it would otherwise have
	// returned, recovered here so every BuildFunction call still reports a
	// normal error rather than crashing the outer compilation.
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*compiler.CompileError); ok {
				err = cerr
				return
			}
			panic(r)
		}
	}()

	b.current = b.newBlock()
	if astFn.HasExpressionBody {
		expr := b.convertExpr(astFn.ExpressionBody)
		b.seal(&Return{Argument: expr})
	} else {
		if buildErr := b.buildStatements(astFn.Body); buildErr != nil {
			return nil, buildErr
		}
		b.sealOpenWith(&Return{})
	}

	hookInfo, _ := annotation.Parse([]string{astFn.LeadingComment})
	fn = &Function{
		Name:           astFn.Name,
		Params:         params,
		OriginalParams: originalParams,
		Blocks:         b.blocks,
		Meta: FunctionMeta{
			NoMemo:            astFn.NoMemo,
			Pure:              astFn.Pure,
			IsAsync:           astFn.IsAsync,
			HookReturnInfo:    hookInfo,
			FromExpression:    astFn.Name == "",
			IsArrow:           astFn.IsArrow,
			HasExpressionBody: astFn.HasExpressionBody,
		},
		Loc: astFn.Range,
	}
	return fn, nil
}

// flattenParams expands destructured parameters into their leaf names in
// source order; a rest parameter contributes the rest name. The original
// parameter nodes are retained for emission.
func flattenParams(ctx *compiler.Context, params []ast.Pattern) ([]string, []ast.Pattern) {
	var names []string
	for _, p := range params {
		collectPatternLeaves(p, &names)
	}
	return names, params
}

func collectPatternLeaves(p ast.Pattern, out *[]string) {
	switch pat := p.(type) {
	case *ast.Identifier:
		*out = append(*out, pat.Name)
	case *ast.AssignmentPattern:
		collectPatternLeaves(pat.Left, out)
	case *ast.ObjectPattern:
		for _, prop := range pat.Properties {
			collectPatternLeaves(prop.Value, out)
		}
		if pat.Rest != nil {
			collectPatternLeaves(pat.Rest, out)
		}
	case *ast.ArrayPattern:
		for _, el := range pat.Elements {
			if el != nil {
				collectPatternLeaves(el, out)
			}
		}
	case *ast.RestElement:
		collectPatternLeaves(pat.Argument, out)
	}
}

// --- block arena ---

func (b *Builder) newBlock() *BasicBlock {
	blk := &BasicBlock{ID: uint32(len(b.blocks)), Terminator: &Unreachable{}}
	b.blocks = append(b.blocks, blk)
	return blk
}

func (b *Builder) isOpen(blk *BasicBlock) bool {
	_, unreachable := blk.Terminator.(*Unreachable)
	return unreachable
}

func (b *Builder) seal(term Terminator) {
	b.current.Terminator = term
}

// sealOpenWith seals b.current with term only if it is still open (its
// terminator is the placeholder Unreachable left by newBlock).
func (b *Builder) sealOpenWith(term Terminator) {
	if b.isOpen(b.current) {
		b.seal(term)
	}
}

func (b *Builder) append(instr Instruction) {
	b.current.Instructions = append(b.current.Instructions, instr)
}

// --- statements ---

func (b *Builder) buildStatements(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := b.buildStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildStatement(s ast.Statement) error {
	switch st := s.(type) {
	case *ast.VariableDecl:
		return b.buildVariableDecl(st)

	case *ast.ExprStmt:
		if assign, ok := st.Expr.(*ast.AssignmentExpr); ok {
			target, isExpr := assign.Target.(ast.Expression)
			if !isExpr {
				return compiler.NewBuildError(b.ctx.Opts.File, 0, "destructuring assignment reached HIR conversion; normalizer must expand it first")
			}
			if ident, ok := target.(*ast.Identifier); ok && assign.Operator == "=" {
				b.append(&Assign{Target: ident.Name, Value: b.convertExpr(assign.Value)})
				return nil
			}
			// Member-expression or compound-operator assignment targets stay
			// an Assignment expression evaluated for effect; only a simple
			// `ident = value` becomes an Assign instruction.
			b.append(&ExprInstr{Value: &Assignment{
				Operator: assign.Operator,
				Target:   b.convertExpr(target),
				Value:    b.convertExpr(assign.Value),
				Range:    assign.Range,
			}})
			return nil
		}
		b.append(&ExprInstr{Value: b.convertExpr(st.Expr)})
		return nil

	case *ast.BlockStmt:
		return b.buildStatements(st.Body)

	case *ast.FunctionDecl:
		fn, err := BuildFunction(b.ctx, st.Fn)
		if err != nil {
			return err
		}
		b.append(&Assign{
			Target:          st.Fn.Name,
			DeclarationKind: ast.DeclFunction,
			Value: &FunctionExpr{
				Name:           fn.Name,
				Params:         fn.Params,
				OriginalParams: fn.OriginalParams,
				Blocks:         fn.Blocks,
				Meta:           fn.Meta,
				Range:          fn.Loc,
			},
		})
		return nil

	case *ast.ReturnStmt:
		var arg Expression
		if st.Argument != nil {
			arg = b.convertExpr(st.Argument)
		}
		b.seal(&Return{Argument: arg})
		b.current = b.newBlock()
		return nil

	case *ast.ThrowStmt:
		b.seal(&Throw{Argument: b.convertExpr(st.Argument)})
		b.current = b.newBlock()
		return nil

	case *ast.IfStmt:
		return b.buildIf(st)

	case *ast.WhileStmt:
		return b.buildWhile(st)

	case *ast.DoWhileStmt:
		return b.buildDoWhile(st)

	case *ast.ForStmt:
		return b.buildFor(st)

	case *ast.ForOfStmt:
		return b.buildForOf(st)

	case *ast.ForInStmt:
		return b.buildForIn(st)

	case *ast.SwitchStmt:
		return b.buildSwitch(st)

	case *ast.TryStmt:
		return b.buildTry(st)

	case *ast.BreakStmt:
		frame, ok := b.findBreakFrame(st.Label)
		if !ok {
			return compiler.NewBuildError(b.ctx.Opts.File, 0, "break with no matching enclosing loop/label %q", st.Label)
		}
		b.seal(&Break{Target: frame.breakTarget, Label: st.Label})
		b.current = b.newBlock()
		return nil

	case *ast.ContinueStmt:
		frame, ok := b.findContinueFrame(st.Label)
		if !ok {
			return compiler.NewBuildError(b.ctx.Opts.File, 0, "continue with no matching enclosing loop/label %q", st.Label)
		}
		b.seal(&Continue{Target: frame.continueTarget, Label: st.Label})
		b.current = b.newBlock()
		return nil

	case *ast.LabeledStmt:
		prevLabel := b.pendingLabel
		b.pendingLabel = st.Label
		err := b.buildStatement(st.Body)
		b.pendingLabel = prevLabel
		return err

	default:
		return compiler.NewBuildError(b.ctx.Opts.File, 0, "unsupported statement form %T", s)
	}
}

// buildVariableDecl flattens pattern-bound declarators into temporaries and
// member-load assignments (normalizer.ExpandBindingPattern), and emits a
// plain Assign for identifier-bound declarators.
func (b *Builder) buildVariableDecl(st *ast.VariableDecl) error {
	for _, d := range st.Declarations {
		if ident, ok := d.Id.(*ast.Identifier); ok {
			var val Expression
			if d.Init != nil {
				val = b.convertExpr(d.Init)
			} else {
				val = &Literal{Kind: ast.LitNull}
			}
			b.append(&Assign{Target: ident.Name, Value: val, DeclarationKind: st.Kind})
			continue
		}
		var expanded []ast.Statement
		normalizer.ExpandBindingPattern(b.ctx, d.Id, d.Init, st.Kind, true, &expanded)
		if err := b.buildStatements(expanded); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildIf(st *ast.IfStmt) error {
	test := b.convertExpr(st.Test)
	consequent := b.newBlock()
	alternate := b.newBlock()
	join := b.newBlock()
	b.seal(&Branch{Test: test, Consequent: consequent.ID, Alternate: alternate.ID})

	b.current = consequent
	if err := b.buildStatement(st.Consequent); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: join.ID})

	b.current = alternate
	if st.Alternate != nil {
		if err := b.buildStatement(st.Alternate); err != nil {
			return err
		}
	}
	b.sealOpenWith(&Jump{Target: join.ID})

	b.current = join
	return nil
}

func (b *Builder) buildWhile(st *ast.WhileStmt) error {
	cond := b.newBlock()
	body := b.newBlock()
	exit := b.newBlock()

	b.sealOpenWith(&Jump{Target: cond.ID})

	b.current = cond
	test := b.convertExpr(st.Test)
	b.seal(&Branch{Test: test, Consequent: body.ID, Alternate: exit.ID})

	b.pushLoop(loopFrame{breakTarget: exit.ID, continueTarget: cond.ID, hasContinue: true, label: b.takeLabel()})
	b.current = body
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: cond.ID})
	b.popLoop()

	b.current = exit
	return nil
}

func (b *Builder) buildDoWhile(st *ast.DoWhileStmt) error {
	body := b.newBlock()
	cond := b.newBlock()
	exit := b.newBlock()

	b.sealOpenWith(&Jump{Target: body.ID})

	b.pushLoop(loopFrame{breakTarget: exit.ID, continueTarget: cond.ID, hasContinue: true, label: b.takeLabel()})
	b.current = body
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: cond.ID})
	b.popLoop()

	b.current = cond
	test := b.convertExpr(st.Test)
	b.seal(&Branch{Test: test, Consequent: body.ID, Alternate: exit.ID})

	b.current = exit
	return nil
}

func (b *Builder) buildFor(st *ast.ForStmt) error {
	if st.Init != nil {
		if err := b.buildStatement(st.Init); err != nil {
			return err
		}
	}

	cond := b.newBlock()
	body := b.newBlock()
	update := b.newBlock()
	exit := b.newBlock()

	b.sealOpenWith(&Jump{Target: cond.ID})

	b.current = cond
	if st.Test != nil {
		test := b.convertExpr(st.Test)
		b.seal(&Branch{Test: test, Consequent: body.ID, Alternate: exit.ID})
	} else {
		b.seal(&Jump{Target: body.ID})
	}

	b.pushLoop(loopFrame{breakTarget: exit.ID, continueTarget: update.ID, hasContinue: true, label: b.takeLabel()})
	b.current = body
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: update.ID})
	b.popLoop()

	b.current = update
	if st.Update != nil {
		b.append(&ExprInstr{Value: b.convertExpr(st.Update)})
	}
	b.seal(&Jump{Target: cond.ID})

	b.current = exit
	return nil
}

func (b *Builder) buildForOf(st *ast.ForOfStmt) error {
	body := b.newBlock()
	exit := b.newBlock()

	iterable := b.convertExpr(st.Iterable)
	variable := st.Variable
	if st.Pattern != nil {
		variable = syntheticLoopVar("__forOf_", body.ID)
	}
	b.seal(&ForOf{
		Variable:     variable,
		VariableKind: st.VariableKind,
		Pattern:      st.Pattern,
		Iterable:     iterable,
		Body:         body.ID,
		Exit:         exit.ID,
	})

	b.pushLoop(loopFrame{breakTarget: exit.ID, continueTarget: body.ID, hasContinue: true, label: b.takeLabel()})
	b.current = body
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: exit.ID})
	b.popLoop()

	b.current = exit
	return nil
}

func (b *Builder) buildForIn(st *ast.ForInStmt) error {
	body := b.newBlock()
	exit := b.newBlock()

	object := b.convertExpr(st.Object)
	variable := st.Variable
	if st.Pattern != nil {
		variable = syntheticLoopVar("__forIn_", body.ID)
	}
	b.seal(&ForIn{
		Variable:     variable,
		VariableKind: st.VariableKind,
		Pattern:      st.Pattern,
		Object:       object,
		Body:         body.ID,
		Exit:         exit.ID,
	})

	b.pushLoop(loopFrame{breakTarget: exit.ID, continueTarget: body.ID, hasContinue: true, label: b.takeLabel()})
	b.current = body
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: exit.ID})
	b.popLoop()

	b.current = exit
	return nil
}

// buildSwitch: unsealed cases jump to exit rather than falling through to
// the next case. This differs from source fall-through semantics when the
// author relied on an omitted break; an intentional, non-silent divergence
// rather than a bug.
// TODO(switch-fallthrough): reconsider once the emitter needs true
// fall-through; tracked as an explicit follow-up, not fixed silently here.
func (b *Builder) buildSwitch(st *ast.SwitchStmt) error {
	discriminant := b.convertExpr(st.Discriminant)
	exit := b.newBlock()

	b.pushLoop(loopFrame{breakTarget: exit.ID, hasContinue: false, label: b.takeLabel()})

	cases := make([]SwitchTermCase, 0, len(st.Cases))
	caseBlocks := make([]*BasicBlock, len(st.Cases))
	for i, c := range st.Cases {
		caseBlocks[i] = b.newBlock()
		var test Expression
		if c.Test != nil {
			test = b.convertExpr(c.Test)
		}
		cases = append(cases, SwitchTermCase{Test: test, Target: caseBlocks[i].ID})
	}
	hasDefault := false
	for _, c := range cases {
		if c.Test == nil {
			hasDefault = true
		}
	}
	if !hasDefault {
		cases = append(cases, SwitchTermCase{Target: exit.ID})
	}

	switchBlock := b.current
	switchBlock.Terminator = &Switch{Discriminant: discriminant, Cases: cases}

	for i, c := range st.Cases {
		b.current = caseBlocks[i]
		if err := b.buildStatements(c.Consequent); err != nil {
			return err
		}
		b.sealOpenWith(&Jump{Target: exit.ID})
	}

	b.popLoop()
	b.current = exit
	return nil
}

// buildTry: nested return/throw inside try/catch seal their block directly
// and do not rethread through an enclosing finally. Recorded as an explicit
// follow-up rather than silent behavior.
// TODO(try-finally-rethread): returns/throws inside try/catch should
// logically flow through finally before leaving the function.
func (b *Builder) buildTry(st *ast.TryStmt) error {
	tryBlock := b.newBlock()
	var catchBlock *BasicBlock
	var finallyBlock *BasicBlock
	exit := b.newBlock()

	if st.CatchBlock != nil {
		catchBlock = b.newBlock()
	}
	if st.FinallyBlock != nil {
		finallyBlock = b.newBlock()
	}

	term := &Try{TryBlock: tryBlock.ID, CatchParam: st.CatchParam, Exit: exit.ID}
	if catchBlock != nil {
		id := catchBlock.ID
		term.CatchBlock = &id
	}
	if finallyBlock != nil {
		id := finallyBlock.ID
		term.FinallyBlock = &id
	}
	b.seal(term)

	afterTry := exit.ID
	if finallyBlock != nil {
		afterTry = finallyBlock.ID
	}

	b.current = tryBlock
	if err := b.buildStatements(st.Block.Body); err != nil {
		return err
	}
	b.sealOpenWith(&Jump{Target: afterTry})

	if catchBlock != nil {
		b.current = catchBlock
		if err := b.buildStatements(st.CatchBlock.Body); err != nil {
			return err
		}
		b.sealOpenWith(&Jump{Target: afterTry})
	}

	if finallyBlock != nil {
		b.current = finallyBlock
		if err := b.buildStatements(st.FinallyBlock.Body); err != nil {
			return err
		}
		b.sealOpenWith(&Jump{Target: exit.ID})
	}

	b.current = exit
	return nil
}

// --- loop stack ---

func (b *Builder) pushLoop(f loopFrame) { b.loopStack = append(b.loopStack, f) }
func (b *Builder) popLoop()             { b.loopStack = b.loopStack[:len(b.loopStack)-1] }

func (b *Builder) takeLabel() string {
	l := b.pendingLabel
	b.pendingLabel = ""
	return l
}

func (b *Builder) findBreakFrame(label string) (loopFrame, bool) {
	if label == "" {
		if len(b.loopStack) == 0 {
			return loopFrame{}, false
		}
		return b.loopStack[len(b.loopStack)-1], true
	}
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		if b.loopStack[i].label == label {
			return b.loopStack[i], true
		}
	}
	return loopFrame{}, false
}

func (b *Builder) findContinueFrame(label string) (loopFrame, bool) {
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		f := b.loopStack[i]
		if !f.hasContinue {
			continue // switch frame: continue skips past it
		}
		if label == "" || f.label == label {
			return f, true
		}
	}
	return loopFrame{}, false
}

func syntheticLoopVar(prefix string, blockID uint32) string {
	return prefix + formatUint(blockID)
}

func formatUint(n uint32) string {
	if n == 0 {
		return "0"
	}
	var digits [10]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
