package match

import (
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/registry"
)

// CompilePattern lowers a pattern AST into a plan: an ordered []Op to
// execute left to right against an ExecContext (spec.md §4.4 "Plan
// construction"). Variable order is selectivity-driven: a pattern
// variable in the caller-supplied pinned set (already bound before the
// plan runs) is scheduled before an unpinned one, and among unpinned
// variables the one with the
// smallest expected type cardinality (fewest live instances) scans
// first, so later Expand/Probe terms have as few rows to fan out from as
// possible.
func CompilePattern(reg *registry.Registry, p ast.PatternAST, pinned map[string]bool, cardinality func(typeTag string) int, defaultMaxDepth int) ([]Op, error) {
	if defaultMaxDepth <= 0 {
		defaultMaxDepth = 100
	}
	pl := &planner{reg: reg, pinned: pinned, cardinality: cardinality, bound: map[string]bool{}, defaultMaxDepth: defaultMaxDepth}
	for k := range pinned {
		pl.bound[k] = true
	}
	return pl.compile(p)
}

type planner struct {
	reg             *registry.Registry
	pinned          map[string]bool
	cardinality     func(typeTag string) int
	bound           map[string]bool
	defaultMaxDepth int
}

func (pl *planner) compile(p ast.PatternAST) ([]Op, error) {
	var ops []Op

	order := pl.orderVars(p.Vars)
	for _, v := range order {
		if pl.bound[v.Name] {
			continue
		}
		typ := v.Type
		if typ == "" {
			typ = "any"
		}
		ops = append(ops, &scanOp{Var: v.Name, Type: typ})
		pl.bound[v.Name] = true
	}

	for _, e := range p.Edges {
		if !e.Transitive {
			first, anyBound := "", false
			for _, v := range e.Positions {
				if v != "" && v != "_" {
					if first == "" {
						first = v
					}
					anyBound = anyBound || pl.bound[v]
				}
			}
			if first != "" && !anyBound {
				ops = append(ops, &scanOp{Var: first, Type: "any"})
				pl.bound[first] = true
			}
		}
		op, err := pl.compileEdge(e)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	for _, sub := range p.Exists {
		subOps, err := pl.compileSub(sub)
		if err != nil {
			return nil, err
		}
		ops = append(ops, &semiJoinOp{Sub: subOps})
	}
	for _, sub := range p.NotExists {
		subOps, err := pl.compileSub(sub)
		if err != nil {
			return nil, err
		}
		ops = append(ops, &antiJoinOp{Sub: subOps})
	}

	return ops, nil
}

// compileSub plans a nested EXISTS/NOT EXISTS subpattern against a copy
// of the outer planner's bound-variable set, so the subpattern can
// reference outer variables without rebinding them (a correlated
// subquery), but its own fresh variables don't leak back out.
func (pl *planner) compileSub(p ast.PatternAST) ([]Op, error) {
	sub := &planner{reg: pl.reg, pinned: pl.pinned, cardinality: pl.cardinality, bound: map[string]bool{}, defaultMaxDepth: pl.defaultMaxDepth}
	for k := range pl.bound {
		sub.bound[k] = true
	}
	return sub.compile(p)
}

// orderVars applies selectivity-based ordering: pinned vars first (in
// declaration order), then unpinned vars ascending by expected
// cardinality.
func (pl *planner) orderVars(vars []ast.VarDecl) []ast.VarDecl {
	var pinnedFirst, rest []ast.VarDecl
	for _, v := range vars {
		if pl.pinned[v.Name] {
			pinnedFirst = append(pinnedFirst, v)
		} else {
			rest = append(rest, v)
		}
	}
	if pl.cardinality != nil {
		for i := 1; i < len(rest); i++ {
			v := rest[i]
			j := i - 1
			for j >= 0 && pl.cardinality(rest[j].Type) > pl.cardinality(v.Type) {
				rest[j+1] = rest[j]
				j--
			}
			rest[j+1] = v
		}
	}
	return append(pinnedFirst, rest...)
}

// compileEdge dispatches one edge term to Expand or Probe depending on
// how many of its positions are already bound: all bound means Probe
// (pure existence test), at least one bound means Expand from the first
// bound position, and none bound means Expand from the term's first named
// position, which compile has already bound by scanning it over every
// live entity. A term whose positions are all anonymous has nothing to
// expand from and is an AnalysisError.
func (pl *planner) compileEdge(e ast.EdgePatternAST) (Op, error) {
	if e.Transitive {
		return pl.compileTransitive(e)
	}

	boundIdx := -1
	for i, v := range e.Positions {
		if v != "" && v != "_" && pl.bound[v] {
			boundIdx = i
			break
		}
	}

	allBound := true
	for _, v := range e.Positions {
		if v == "" || v == "_" || !pl.bound[v] {
			allBound = false
			break
		}
	}

	for _, v := range e.Positions {
		if v != "" && v != "_" {
			pl.bound[v] = true
		}
	}
	if e.As != "" {
		pl.bound[e.As] = true
	}

	if allBound {
		return &probeOp{EdgeType: e.EdgeType, As: e.As, Vars: e.Positions}, nil
	}
	if boundIdx < 0 {
		return nil, kernelerr.New(kernelerr.AnalysisError, "edge term %q has no bound position to expand from", e.EdgeType)
	}
	return &expandOp{
		EdgeType: e.EdgeType,
		As:       e.As,
		Positions: e.Positions,
		FromPos:  boundIdx,
		FromVar:  e.Positions[boundIdx],
	}, nil
}

func (pl *planner) compileTransitive(e ast.EdgePatternAST) (Op, error) {
	if len(e.Positions) != 2 {
		return nil, kernelerr.New(kernelerr.AnalysisError, "transitive edge term %q must have exactly 2 positions", e.EdgeType)
	}
	from, to := e.Positions[0], e.Positions[1]
	if !pl.bound[from] {
		return nil, kernelerr.New(kernelerr.AnalysisError, "transitive edge term %q requires its first position to already be bound", e.EdgeType)
	}
	pl.bound[to] = true

	depthMin := 1
	if e.Mode == "*" {
		depthMin = 0
	}
	if e.DepthMin != nil {
		depthMin = *e.DepthMin
	}
	maxDepth := pl.defaultMaxDepth
	if e.DepthMax != nil {
		maxDepth = *e.DepthMax
	}
	return &transitiveExpandOp{
		EdgeType: e.EdgeType,
		FromVar:  from,
		ToVar:    to,
		DepthMin: depthMin,
		MaxDepth: maxDepth,
	}, nil
}
