package regions

import (
	"fictc/internal/compiler"
	"fictc/internal/hir"
	"fictc/internal/structurizer"
)

// Result is the outcome of analyzing one function: its region tree plus the
// reactive-name set the partitioning decisions were made against. The
// memoization pass does not read that set.
type Result struct {
	Regions  []*Region
	reactive map[string]bool
}

// Analyze partitions fn's structured body into regions and records each
// region's reactive dependency set.
func Analyze(ctx *compiler.Context, fn *hir.Function, sfn *structurizer.Function) *Result {
	reactive := computeReactiveNames(ctx, fn)
	p := &partitioner{reactive: reactive}
	p.run(asNodeList(sfn.Body), nil)
	return &Result{Regions: p.out, reactive: reactive}
}

type partitioner struct {
	reactive map[string]bool
	out      []*Region
	nextID   int

	runDeps     map[string]PropertyPath
	runReactive bool
	runBlocks   []uint32
	runDecls    []string
	runLen      int
}

func asNodeList(n structurizer.Node) []structurizer.Node {
	if n == nil {
		return nil
	}
	if seq, ok := n.(*structurizer.Sequence); ok {
		return seq.Nodes
	}
	return []structurizer.Node{n}
}

func (p *partitioner) flush(parentID *int) {
	if p.runLen == 0 {
		return
	}
	id := p.nextID
	p.nextID++
	reg := &Region{
		ID:             id,
		BlockIDs:       dedupBlocks(p.runBlocks),
		Dependencies:   depsSlice(p.runDeps),
		Declarations:   append([]string{}, p.runDecls...),
		HasControlFlow: false,
		Reactive:       p.runReactive,
		ParentID:       parentID,
	}
	p.out = append(p.out, reg)
	p.runDeps = nil
	p.runReactive = false
	p.runBlocks = nil
	p.runDecls = nil
	p.runLen = 0
}

func (p *partitioner) mergeLeaf(deps map[string]PropertyPath, reactiveFlag bool, blockID uint32, haveBlockID bool, declTarget string, parentID *int) {
	if p.runLen > 0 && !sameSignature(p.runDeps, p.runReactive, deps, reactiveFlag) {
		p.flush(parentID)
	}
	if p.runDeps == nil {
		p.runDeps = map[string]PropertyPath{}
	}
	for k, v := range deps {
		p.runDeps[k] = v
	}
	p.runReactive = p.runReactive || reactiveFlag
	if haveBlockID {
		p.runBlocks = append(p.runBlocks, blockID)
	}
	if declTarget != "" {
		p.runDecls = append(p.runDecls, declTarget)
	}
	p.runLen++
}

func sameSignature(a map[string]PropertyPath, aReactive bool, b map[string]PropertyPath, bReactive bool) bool {
	if aReactive != bReactive {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (p *partitioner) run(nodes []structurizer.Node, parentID *int) {
	for _, n := range nodes {
		switch x := n.(type) {
		case *structurizer.Instruction:
			deps := map[string]PropertyPath{}
			var reactiveFlag bool
			var declTarget string
			switch in := x.Instr.(type) {
			case *hir.Assign:
				collectDeps(in.Value, p.reactive, deps)
				reactiveFlag = p.reactive[in.Target]
				declTarget = in.Target
			case *hir.ExprInstr:
				collectDeps(in.Value, p.reactive, deps)
				reactiveFlag = len(deps) > 0
			case *hir.Phi:
				reactiveFlag = p.reactive[in.Target]
				declTarget = in.Target
			}
			p.mergeLeaf(deps, reactiveFlag, x.BlockID, true, declTarget, parentID)
		case *structurizer.Return:
			deps := map[string]PropertyPath{}
			collectDeps(x.Argument, p.reactive, deps)
			p.mergeLeaf(deps, len(deps) > 0, 0, false, "", parentID)
		case *structurizer.Throw:
			deps := map[string]PropertyPath{}
			collectDeps(x.Argument, p.reactive, deps)
			p.mergeLeaf(deps, len(deps) > 0, 0, false, "", parentID)
		case *structurizer.Break:
			p.mergeLeaf(nil, false, 0, false, "", parentID)
		case *structurizer.Continue:
			p.mergeLeaf(nil, false, 0, false, "", parentID)
		default:
			p.flush(parentID)
			p.runControlNode(n, parentID)
		}
	}
	p.flush(parentID)
}

func (p *partitioner) runControlNode(n structurizer.Node, parentID *int) {
	deps := map[string]PropertyPath{}
	switch x := n.(type) {
	case *structurizer.If:
		collectDeps(x.Test, p.reactive, deps)
	case *structurizer.While:
		collectDeps(x.Test, p.reactive, deps)
	case *structurizer.DoWhile:
		collectDeps(x.Test, p.reactive, deps)
	case *structurizer.For:
		collectDeps(x.Test, p.reactive, deps)
	case *structurizer.ForOf:
		collectDeps(x.Iterable, p.reactive, deps)
	case *structurizer.ForIn:
		collectDeps(x.Object, p.reactive, deps)
	case *structurizer.Switch:
		collectDeps(x.Discriminant, p.reactive, deps)
		for _, c := range x.Cases {
			collectDeps(c.Test, p.reactive, deps)
		}
	case *structurizer.Try:
		// no gating expression of its own; dependencies come entirely from
		// its nested blocks.
	}

	id := p.nextID
	p.nextID++
	reg := &Region{
		ID:             id,
		BlockIDs:       dedupBlocks(collectBlockIDs(n)),
		Dependencies:   depsSlice(deps),
		HasControlFlow: true,
		Reactive:       len(deps) > 0,
		ParentID:       parentID,
	}
	p.out = append(p.out, reg)
	childParent := &reg.ID

	switch x := n.(type) {
	case *structurizer.If:
		p.run(asNodeList(x.Consequent), childParent)
		if x.Alternate != nil {
			p.run(asNodeList(x.Alternate), childParent)
		}
	case *structurizer.While:
		p.run(asNodeList(x.Body), childParent)
	case *structurizer.DoWhile:
		p.run(asNodeList(x.Body), childParent)
	case *structurizer.For:
		if x.Init != nil {
			p.run(asNodeList(x.Init), childParent)
		}
		p.run(asNodeList(x.Body), childParent)
		if x.Update != nil {
			p.run(asNodeList(x.Update), childParent)
		}
	case *structurizer.ForOf:
		p.run(asNodeList(x.Body), childParent)
	case *structurizer.ForIn:
		p.run(asNodeList(x.Body), childParent)
	case *structurizer.Switch:
		for _, c := range x.Cases {
			p.run(asNodeList(c.Body), childParent)
		}
	case *structurizer.Try:
		p.run(asNodeList(x.Block), childParent)
		if x.Handler != nil {
			p.run(asNodeList(x.Handler.Body), childParent)
		}
		if x.Finalizer != nil {
			p.run(asNodeList(x.Finalizer), childParent)
		}
	}
}

func depsSlice(m map[string]PropertyPath) []PropertyPath {
	if len(m) == 0 {
		return nil
	}
	out := make([]PropertyPath, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sortPaths(out)
	return out
}

func sortPaths(paths []PropertyPath) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && paths[j-1].String() > paths[j].String(); j-- {
			paths[j-1], paths[j] = paths[j], paths[j-1]
		}
	}
}

func dedupBlocks(ids []uint32) []uint32 {
	seen := map[uint32]bool{}
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func collectBlockIDs(n structurizer.Node) []uint32 {
	var out []uint32
	var walk func(structurizer.Node)
	walk = func(n structurizer.Node) {
		switch x := n.(type) {
		case nil:
		case *structurizer.Sequence:
			for _, c := range x.Nodes {
				walk(c)
			}
		case *structurizer.Instruction:
			out = append(out, x.BlockID)
		case *structurizer.If:
			walk(x.Consequent)
			walk(x.Alternate)
		case *structurizer.While:
			walk(x.Body)
		case *structurizer.DoWhile:
			walk(x.Body)
		case *structurizer.For:
			walk(x.Init)
			walk(x.Body)
			walk(x.Update)
		case *structurizer.ForOf:
			walk(x.Body)
		case *structurizer.ForIn:
			walk(x.Body)
		case *structurizer.Switch:
			for _, c := range x.Cases {
				walk(c.Body)
			}
		case *structurizer.Try:
			walk(x.Block)
			if x.Handler != nil {
				walk(x.Handler.Body)
			}
			walk(x.Finalizer)
		}
	}
	walk(n)
	return out
}
