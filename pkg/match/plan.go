package match

import (
	"context"
	"fmt"

	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// ExecContext carries everything an Op needs to run: the live store and
// registry, bound parameters, configured limits, a cancellation deadline,
// and an accumulator for non-fatal warnings (e.g. a transitive expansion
// truncated at its depth cap — SPEC_FULL.md §C.4).
type ExecContext struct {
	Store    *store.Store
	Registry *registry.Registry
	Params   map[string]value.Value
	Limits   config.MatchLimits
	Ctx      context.Context

	Warnings []kernelerr.Warning
}

func (ec *ExecContext) warn(source, format string, args ...interface{}) {
	ec.Warnings = append(ec.Warnings, kernelerr.Warning{Source: source, Message: fmt.Sprintf(format, args...)})
}

func (ec *ExecContext) cancelled() bool {
	if ec.Ctx == nil {
		return false
	}
	select {
	case <-ec.Ctx.Done():
		return true
	default:
		return false
	}
}

// Op is one relational operator in a compiled plan (spec.md §4.4's plan
// table: Scan, Expand, Probe, TransitiveExpand, Filter, AntiJoin, SemiJoin).
// Each operator consumes the bindings produced by the previous stage and
// produces the bindings for the next, so a plan is just []Op evaluated
// left to right.
type Op interface {
	Apply(ec *ExecContext, in []Binding) ([]Binding, error)
}

// scanOp enumerates every live entity of Type (and its declared subtypes)
// and binds it to Var, one binding per input row per candidate (spec.md
// §4.4 "Scan(T, out v)").
type scanOp struct {
	Var  string
	Type string
}

func (op *scanOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	if op.Type == "" || op.Type == "any" {
		var out []Binding
		for _, b := range in {
			for _, e := range ec.Store.Snapshot() {
				nb := b.Clone()
				nb[op.Var] = e.ID
				out = append(out, nb)
			}
			if ec.cancelled() {
				return out, kernelerr.New(kernelerr.TimeoutError, "statement deadline exceeded during Scan(any)")
			}
		}
		return out, nil
	}

	types := ec.Registry.DescendantsOf(op.Type)
	if len(types) == 0 {
		types = []string{op.Type}
	}
	var out []Binding
	for _, b := range in {
		for _, t := range types {
			for _, id := range ec.Store.IterOfType(t) {
				nb := b.Clone()
				nb[op.Var] = id
				out = append(out, nb)
			}
		}
		if ec.cancelled() {
			return out, kernelerr.New(kernelerr.TimeoutError, "statement deadline exceeded during Scan(%s)", op.Type)
		}
	}
	return out, nil
}

// expandOp walks from an already-bound position of an edge type to its
// other positions, binding the edge itself (if As is set) and every
// unbound position variable (spec.md §4.4 "Expand(v, E, out u)").
type expandOp struct {
	EdgeType   string
	As         string
	Positions  []string // "_" for anonymous
	FromPos    int
	FromVar    string
}

func (op *expandOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		from, ok := b[op.FromVar]
		if !ok {
			continue
		}
		for _, edgeID := range ec.Store.IterEdgesByPos(op.EdgeType, op.FromPos, from) {
			edge, ok := ec.Store.Get(edgeID)
			if !ok || !edge.Alive {
				continue
			}
			nb := b.Clone()
			if op.As != "" {
				nb[op.As] = edgeID
			}
			consistent := true
			for i, posVar := range op.Positions {
				if posVar == "" || posVar == "_" || i == op.FromPos {
					continue
				}
				if existing, bound := nb[posVar]; bound {
					if existing != edge.Targets[i] {
						consistent = false
						break
					}
					continue
				}
				nb[posVar] = edge.Targets[i]
			}
			if consistent {
				out = append(out, nb)
			}
		}
		if ec.cancelled() {
			return out, kernelerr.New(kernelerr.TimeoutError, "statement deadline exceeded during Expand(%s)", op.EdgeType)
		}
	}
	return out, nil
}

// probeOp tests existence of an edge whose positions are all already
// bound, without introducing any new binding (spec.md §4.4 "Probe(E,
// v1..vn)"). Used when a pattern names an edge term all of whose
// positions were bound by an earlier term.
type probeOp struct {
	EdgeType string
	As       string
	Vars     []string
}

func (op *probeOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		targets := make([]store.EntityId, len(op.Vars))
		ok := true
		for i, v := range op.Vars {
			id, bound := b[v]
			if !bound {
				ok = false
				break
			}
			targets[i] = id
		}
		if !ok {
			continue
		}
		edgeID, found := ec.Store.Probe(op.EdgeType, targets)
		if !found {
			continue
		}
		nb := b
		if op.As != "" {
			nb = b.Clone()
			nb[op.As] = edgeID
		}
		out = append(out, nb)
	}
	return out, nil
}

// filterOp evaluates a boolean guard expression against each binding,
// keeping only rows that evaluate truthy under three-valued logic (null
// is treated as false — spec.md §4.4 "Filter(predicate)", §9 "Null
// semantics").
type filterOp struct {
	Eval func(b Binding) (bool, error)
}

func (op *filterOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		ok, err := op.Eval(b)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// antiJoinOp keeps only rows for which Sub, evaluated against the outer
// binding, produces zero rows (spec.md §4.4 "AntiJoin" — the NOT EXISTS
// operator).
type antiJoinOp struct {
	Sub []Op
}

func (op *antiJoinOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		rows, err := runOps(ec, op.Sub, []Binding{b})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// semiJoinOp keeps only rows for which Sub produces at least one row
// (spec.md §4.4 "SemiJoin" — the EXISTS operator).
type semiJoinOp struct {
	Sub []Op
}

func (op *semiJoinOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		rows, err := runOps(ec, op.Sub, []Binding{b})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// transitiveExpandOp walks zero-or-more (Mode "*") or one-or-more (Mode
// "+") hops of EdgeType from FromVar, binding ToVar to every entity
// reachable within [DepthMin, DepthMax] hops (spec.md §4.4
// "TransitiveExpand", §8 scenario 4). The walk is a depth-bounded BFS
// with a per-path visited set, so no path revisits an entity and a cycle
// cannot loop forever; reaching MaxDepth with frontier
// nodes still unexplored is reported as a Warning rather than an error
// (SPEC_FULL.md §C.4), matching nornicdb's bounded-traversal idiom in
// its shortest-path search.
type transitiveExpandOp struct {
	EdgeType string
	FromVar  string
	ToVar    string
	DepthMin int
	MaxDepth int
}

func (op *transitiveExpandOp) Apply(ec *ExecContext, in []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range in {
		from, ok := b[op.FromVar]
		if !ok {
			continue
		}
		reached, truncated := op.walk(ec, from)
		if truncated {
			ec.warn("TransitiveExpand", "%s+ from %s truncated at depth %d", op.EdgeType, from, op.MaxDepth)
		}
		for _, id := range reached {
			if existing, bound := b[op.ToVar]; bound && existing != id {
				continue
			}
			nb := b.Clone()
			nb[op.ToVar] = id
			out = append(out, nb)
		}
		if ec.cancelled() {
			return out, kernelerr.New(kernelerr.TimeoutError, "statement deadline exceeded during TransitiveExpand(%s)", op.EdgeType)
		}
	}
	return out, nil
}

// walk performs the depth-bounded, cycle-pruned BFS and returns every
// node reached at a depth within [DepthMin, MaxDepth], deduplicated.
func (op *transitiveExpandOp) walk(ec *ExecContext, start store.EntityId) ([]store.EntityId, bool) {
	type frontierEntry struct {
		id    store.EntityId
		depth int
		path  map[store.EntityId]bool
	}
	result := map[store.EntityId]bool{}
	if op.DepthMin == 0 {
		result[start] = true
	}
	frontier := []frontierEntry{{id: start, depth: 0, path: map[store.EntityId]bool{start: true}}}
	truncated := false

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.depth >= op.MaxDepth {
			truncated = true
			continue
		}
		for _, edgeID := range ec.Store.IterEdgesByPos(op.EdgeType, 0, cur.id) {
			edge, ok := ec.Store.Get(edgeID)
			if !ok || !edge.Alive || len(edge.Targets) < 2 {
				continue
			}
			next := edge.Targets[1]
			nextDepth := cur.depth + 1
			if nextDepth >= op.DepthMin {
				result[next] = true
			}
			if !cur.path[next] {
				path := make(map[store.EntityId]bool, len(cur.path)+1)
				for id := range cur.path {
					path[id] = true
				}
				path[next] = true
				frontier = append(frontier, frontierEntry{id: next, depth: nextDepth, path: path})
			}
		}
	}

	out := make([]store.EntityId, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	return out, truncated
}

// runOps threads a binding set through a sequence of operators.
func runOps(ec *ExecContext, ops []Op, in []Binding) ([]Binding, error) {
	rows := in
	for _, op := range ops {
		var err error
		rows, err = op.Apply(ec, rows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return rows, nil
		}
	}
	return rows, nil
}
