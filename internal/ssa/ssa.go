// Package ssa renames HIR assignments into single-static-assignment form:
// every definition gets a monotonically increasing version (suffix
// "$$ssa<n>"), uses are rewritten to the dominating version, and phi
// placeholders are inserted at join points where a name is defined
// differently across incoming edges. It runs as a standalone post-pass over
// already-built HIR using a single reverse-postorder pass plus a deferred
// resolution step for back-edge phi sources.
package ssa

import (
	"sort"

	"fictc/internal/compiler"
	"fictc/internal/hir"
)

// Run renames every function in prog in place.
func Run(ctx *compiler.Context, prog *hir.Program) error {
	for _, fn := range prog.Functions {
		if err := RunFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// RunFunction renames a single function's blocks in place.
func RunFunction(fn *hir.Function) error {
	r := &renamer{
		blocksByID: indexBlocks(fn.Blocks),
		counters:   map[string]int{},
		processed:  map[uint32]bool{},
		entryEnv:   map[uint32]map[string]string{},
		exitEnv:    map[uint32]map[string]string{},
	}
	r.preds = computePredecessors(fn.Blocks)
	order, err := reversePostorder(fn.Blocks, r.blocksByID)
	if err != nil {
		return err
	}
	for _, bid := range order {
		r.renameBlock(bid)
	}
	r.resolveDeferred()
	return nil
}

type deferredSource struct {
	phi        *hir.Phi
	index      int
	predBlock  uint32
	variable   string
	selfTarget string
}

type renamer struct {
	blocksByID map[uint32]*hir.BasicBlock
	preds      map[uint32][]uint32
	counters   map[string]int
	processed  map[uint32]bool
	entryEnv   map[uint32]map[string]string
	exitEnv    map[uint32]map[string]string
	deferred   []deferredSource
}

func indexBlocks(blocks []*hir.BasicBlock) map[uint32]*hir.BasicBlock {
	m := make(map[uint32]*hir.BasicBlock, len(blocks))
	for _, b := range blocks {
		m[b.ID] = b
	}
	return m
}

// computePredecessors builds the predecessor map from every block's
// terminator successors.
func computePredecessors(blocks []*hir.BasicBlock) map[uint32][]uint32 {
	preds := make(map[uint32][]uint32)
	for _, b := range blocks {
		for _, succ := range successors(b.Terminator) {
			preds[succ] = append(preds[succ], b.ID)
		}
	}
	for k := range preds {
		sort.Slice(preds[k], func(i, j int) bool { return preds[k][i] < preds[k][j] })
	}
	return preds
}

func successors(term hir.Terminator) []uint32 {
	switch t := term.(type) {
	case *hir.Jump:
		return []uint32{t.Target}
	case *hir.Branch:
		return []uint32{t.Consequent, t.Alternate}
	case *hir.Switch:
		out := make([]uint32, len(t.Cases))
		for i, c := range t.Cases {
			out[i] = c.Target
		}
		return out
	case *hir.Break:
		return []uint32{t.Target}
	case *hir.Continue:
		return []uint32{t.Target}
	case *hir.ForOf:
		return []uint32{t.Body, t.Exit}
	case *hir.ForIn:
		return []uint32{t.Body, t.Exit}
	case *hir.Try:
		out := []uint32{t.TryBlock}
		if t.CatchBlock != nil {
			out = append(out, *t.CatchBlock)
		}
		if t.FinallyBlock != nil {
			out = append(out, *t.FinallyBlock)
		}
		out = append(out, t.Exit)
		return out
	default:
		return nil
	}
}

// reversePostorder computes a DFS-based RPO starting from block 0, the
// function's entry block.
func reversePostorder(blocks []*hir.BasicBlock, byID map[uint32]*hir.BasicBlock) ([]uint32, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	visited := map[uint32]bool{}
	var post []uint32
	var visit func(id uint32)
	visit = func(id uint32) {
		if visited[id] {
			return
		}
		visited[id] = true
		blk, ok := byID[id]
		if !ok {
			return
		}
		for _, succ := range successors(blk.Terminator) {
			visit(succ)
		}
		post = append(post, id)
	}
	visit(0)
	// any block unreachable from entry (defensive Unreachable fill) is
	// still renamed, appended after the reachable ones in id order so the
	// pass is total over fn.Blocks.
	for _, b := range blocks {
		visit(b.ID)
	}
	rpo := make([]uint32, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo, nil
}

func (r *renamer) fresh(name string) string {
	r.counters[name]++
	return name + "$$ssa" + itoa(r.counters[name])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (r *renamer) renameBlock(bid uint32) {
	blk := r.blocksByID[bid]
	if blk == nil {
		return
	}
	entry := r.computeEntryEnv(bid)
	env := copyEnv(entry)

	for _, instr := range blk.Instructions {
		switch in := instr.(type) {
		case *hir.Assign:
			in.Value = rewriteExpr(in.Value, env)
			newVer := r.fresh(in.Target)
			env[in.Target] = newVer
			in.Target = newVer
		case *hir.ExprInstr:
			in.Value = rewriteExpr(in.Value, env)
		case *hir.Phi:
			// phis inserted by this pass are handled separately; any
			// pre-existing Phi (re-running SSA on already-SSA input) is
			// renamed like an Assign.
			newVer := r.fresh(in.Target)
			env[in.Target] = newVer
			in.Target = newVer
		}
	}

	rewriteTerminator(blk, env)
	r.exitEnv[bid] = env
	r.entryEnv[bid] = entry
	r.processed[bid] = true
}

// computeEntryEnv merges the exit environments of already-processed
// predecessors, inserting a Phi instruction at the top of the block for any
// name whose version differs across predecessors or whose value depends on
// a predecessor not yet processed (a back edge).
func (r *renamer) computeEntryEnv(bid uint32) map[string]string {
	entry := map[string]string{}
	if bid == 0 {
		return entry
	}
	preds := r.preds[bid]
	if len(preds) == 0 {
		return entry
	}

	processedPreds := make([]uint32, 0, len(preds))
	for _, p := range preds {
		if r.processed[p] {
			processedPreds = append(processedPreds, p)
		}
	}
	hasUnprocessed := len(processedPreds) != len(preds)

	names := map[string]bool{}
	for _, p := range processedPreds {
		for name := range r.exitEnv[p] {
			names[name] = true
		}
	}

	sortedNames := make([]string, 0, len(names))
	for n := range names {
		sortedNames = append(sortedNames, n)
	}
	sort.Strings(sortedNames)

	blk := r.blocksByID[bid]
	var phiInstrs []hir.Instruction

	for _, name := range sortedNames {
		var firstVersion string
		allSame := true
		for _, p := range processedPreds {
			v, ok := r.exitEnv[p][name]
			if !ok {
				continue
			}
			if firstVersion == "" {
				firstVersion = v
				continue
			}
			if v != firstVersion {
				allSame = false
			}
		}

		if allSame && !hasUnprocessed {
			if firstVersion != "" {
				entry[name] = firstVersion
			}
			continue
		}

		newVer := r.fresh(name)
		phi := &hir.Phi{Target: newVer, Variable: name}
		for _, p := range preds {
			if r.processed[p] {
				if v, ok := r.exitEnv[p][name]; ok {
					phi.Sources = append(phi.Sources, hir.PhiSource{Block: p, ID: v})
				} else {
					phi.Sources = append(phi.Sources, hir.PhiSource{Block: p, ID: name})
				}
			} else {
				idx := len(phi.Sources)
				phi.Sources = append(phi.Sources, hir.PhiSource{Block: p, ID: ""})
				r.deferred = append(r.deferred, deferredSource{phi: phi, index: idx, predBlock: p, variable: name, selfTarget: newVer})
			}
		}
		entry[name] = newVer
		phiInstrs = append(phiInstrs, phi)
	}

	if len(phiInstrs) > 0 {
		blk.Instructions = append(phiInstrs, blk.Instructions...)
	}
	return entry
}

func (r *renamer) resolveDeferred() {
	for _, d := range r.deferred {
		v, ok := r.exitEnv[d.predBlock][d.variable]
		if !ok {
			v = d.selfTarget
		}
		d.phi.Sources[d.index].ID = v
	}
}

func copyEnv(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// rewriteExpr rewrites every Identifier use in e to its current version per
// env, recursing into nested function/arrow literals so free-variable
// captures resolve to the version live at the point the closure is formed;
// the nested literal's own assignments are renamed independently when its
// own Function is later passed to RunFunction.
func rewriteExpr(e hir.Expression, env map[string]string) hir.Expression {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *hir.Identifier:
		if v, ok := env[x.Name]; ok {
			return &hir.Identifier{Name: v, Range: x.Range}
		}
		return x
	case *hir.Literal:
		return x
	case *hir.TemplateLiteral:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteExpr(sub, env)
		}
		return x
	case *hir.TaggedTemplate:
		x.Tag = rewriteExpr(x.Tag, env)
		x.Quasi = rewriteExpr(x.Quasi, env).(*hir.TemplateLiteral)
		return x
	case *hir.Unary:
		x.Argument = rewriteExpr(x.Argument, env)
		return x
	case *hir.Update:
		x.Argument = rewriteExpr(x.Argument, env)
		return x
	case *hir.Binary:
		x.Left = rewriteExpr(x.Left, env)
		x.Right = rewriteExpr(x.Right, env)
		return x
	case *hir.Logical:
		x.Left = rewriteExpr(x.Left, env)
		x.Right = rewriteExpr(x.Right, env)
		return x
	case *hir.Conditional:
		x.Test = rewriteExpr(x.Test, env)
		x.Consequent = rewriteExpr(x.Consequent, env)
		x.Alternate = rewriteExpr(x.Alternate, env)
		return x
	case *hir.Assignment:
		x.Target = rewriteExpr(x.Target, env)
		x.Value = rewriteExpr(x.Value, env)
		return x
	case *hir.Call:
		x.Callee = rewriteExpr(x.Callee, env)
		for i := range x.Args {
			x.Args[i].Expr = rewriteExpr(x.Args[i].Expr, env)
		}
		return x
	case *hir.New:
		x.Callee = rewriteExpr(x.Callee, env)
		for i := range x.Args {
			x.Args[i].Expr = rewriteExpr(x.Args[i].Expr, env)
		}
		return x
	case *hir.Member:
		x.Object = rewriteExpr(x.Object, env)
		if x.Computed {
			x.Property = rewriteExpr(x.Property, env)
		}
		return x
	case *hir.Array:
		for i, el := range x.Elements {
			if el != nil {
				x.Elements[i] = rewriteExpr(el, env)
			}
		}
		return x
	case *hir.Object:
		for i, p := range x.Properties {
			switch m := p.(type) {
			case *hir.ObjectProperty:
				if m.Computed && m.Key != nil {
					m.Key = rewriteExpr(m.Key, env)
				}
				m.Value = rewriteExpr(m.Value, env)
			case *hir.SpreadElement:
				m.Argument = rewriteExpr(m.Argument, env)
			}
			x.Properties[i] = p
		}
		return x
	case *hir.SpreadElement:
		x.Argument = rewriteExpr(x.Argument, env)
		return x
	case *hir.Sequence:
		for i, sub := range x.Expressions {
			x.Expressions[i] = rewriteExpr(sub, env)
		}
		return x
	case *hir.Await:
		x.Argument = rewriteExpr(x.Argument, env)
		return x
	case *hir.Yield:
		if x.Argument != nil {
			x.Argument = rewriteExpr(x.Argument, env)
		}
		return x
	case *hir.ArrowFunction:
		if x.ExpressionBody != nil {
			x.ExpressionBody = rewriteExpr(x.ExpressionBody, env)
		}
		rewriteCapturedBlocks(x.Blocks, env)
		return x
	case *hir.FunctionExpr:
		rewriteCapturedBlocks(x.Blocks, env)
		return x
	case *hir.ImportExpr:
		x.Source = rewriteExpr(x.Source, env)
		return x
	case *hir.JSXElement:
		for i := range x.Attributes {
			if x.Attributes[i].Value != nil {
				x.Attributes[i].Value = rewriteExpr(x.Attributes[i].Value, env)
			}
		}
		for i := range x.Children {
			if x.Children[i].Element != nil {
				x.Children[i].Element = rewriteExpr(x.Children[i].Element, env).(*hir.JSXElement)
			}
			if x.Children[i].Expression != nil {
				x.Children[i].Expression = rewriteExpr(x.Children[i].Expression, env)
			}
		}
		return x
	default:
		return e
	}
}

// rewriteCapturedBlocks seeds the nested function's entry environment with
// the free-variable versions captured from the enclosing scope at the point
// the closure literal appears, then renames the nested blocks as their own
// function so their own assignments get independently-versioned names.
func rewriteCapturedBlocks(blocks []*hir.BasicBlock, outerEnv map[string]string) {
	if len(blocks) == 0 {
		return
	}
	r := &renamer{
		blocksByID: indexBlocks(blocks),
		counters:   map[string]int{},
		processed:  map[uint32]bool{},
		entryEnv:   map[uint32]map[string]string{},
		exitEnv:    map[uint32]map[string]string{},
	}
	r.preds = computePredecessors(blocks)
	order, _ := reversePostorder(blocks, r.blocksByID)
	// seed block 0's entry with captured free variables so uses inside the
	// closure that are never locally (re)assigned still resolve.
	r.entryEnv[0] = copyEnv(outerEnv)
	r.processed[0] = false
	for i, bid := range order {
		if i == 0 {
			env := copyEnv(r.entryEnv[0])
			renameBlockWithSeed(r, bid, env)
			continue
		}
		r.renameBlock(bid)
	}
	r.resolveDeferred()
}

func renameBlockWithSeed(r *renamer, bid uint32, seed map[string]string) {
	blk := r.blocksByID[bid]
	if blk == nil {
		return
	}
	env := seed
	for _, instr := range blk.Instructions {
		switch in := instr.(type) {
		case *hir.Assign:
			in.Value = rewriteExpr(in.Value, env)
			newVer := r.fresh(in.Target)
			env[in.Target] = newVer
			in.Target = newVer
		case *hir.ExprInstr:
			in.Value = rewriteExpr(in.Value, env)
		case *hir.Phi:
			newVer := r.fresh(in.Target)
			env[in.Target] = newVer
			in.Target = newVer
		}
	}
	rewriteTerminator(blk, env)
	r.exitEnv[bid] = env
	r.processed[bid] = true
}

func rewriteTerminator(blk *hir.BasicBlock, env map[string]string) {
	switch t := blk.Terminator.(type) {
	case *hir.Branch:
		t.Test = rewriteExpr(t.Test, env)
	case *hir.Switch:
		t.Discriminant = rewriteExpr(t.Discriminant, env)
		for i := range t.Cases {
			if t.Cases[i].Test != nil {
				t.Cases[i].Test = rewriteExpr(t.Cases[i].Test, env)
			}
		}
	case *hir.Return:
		if t.Argument != nil {
			t.Argument = rewriteExpr(t.Argument, env)
		}
	case *hir.Throw:
		t.Argument = rewriteExpr(t.Argument, env)
	case *hir.ForOf:
		t.Iterable = rewriteExpr(t.Iterable, env)
	case *hir.ForIn:
		t.Object = rewriteExpr(t.Object, env)
	}
}
