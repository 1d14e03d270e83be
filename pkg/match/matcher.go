package match

import (
	"context"
	"fmt"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// Matcher is the PatternMatcher component (spec.md §4.4): it compiles a
// pattern into a plan, executes the plan against the Store, applies the
// pattern's guard, and (for a full query) aggregates/orders/limits the
// projected result. It holds no transaction-scoped state itself — one
// Matcher is reused across the lifetime of a Registry.
type Matcher struct {
	Store    *store.Store
	Registry *registry.Registry
	Limits   config.MatchLimits
}

// New constructs a Matcher bound to a store/registry pair and the
// configured match limits.
func New(s *store.Store, r *registry.Registry, limits config.MatchLimits) *Matcher {
	return &Matcher{Store: s, Registry: r, Limits: limits}
}

// MatchResult is the outcome of evaluating a pattern: every satisfying
// binding plus any non-fatal warnings accumulated along the way (e.g. a
// truncated transitive expansion).
type MatchResult struct {
	Bindings []Binding
	Warnings []kernelerr.Warning
}

// MatchPattern compiles and executes p, applying its guard if present,
// and returns every satisfying binding (spec.md §4.4, the PatternMatcher's
// primary operation).
func (m *Matcher) MatchPattern(ctx context.Context, p ast.PatternAST, params map[string]value.Value) (*MatchResult, error) {
	return m.matchWithSeed(ctx, p, params, Binding{})
}

// matchWithSeed runs p starting from a pre-existing binding (used both
// for a fresh top-level match, where seed is empty, and for a correlated
// EXISTS/aggregate subpattern evaluated against one outer binding).
func (m *Matcher) matchWithSeed(ctx context.Context, p ast.PatternAST, params map[string]value.Value, seed Binding) (*MatchResult, error) {
	pinned := make(map[string]bool, len(seed))
	for k := range seed {
		pinned[k] = true
	}

	ops, err := CompilePattern(m.Registry, p, pinned, m.cardinality, m.Limits.DefaultTransitiveDepth)
	if err != nil {
		return nil, err
	}

	ec := &ExecContext{Store: m.Store, Registry: m.Registry, Params: params, Limits: m.Limits, Ctx: ctx}
	rows, err := runOps(ec, ops, []Binding{seed})
	if err != nil {
		return nil, err
	}

	if p.Guard != nil {
		ev := &Evaluator{Store: m.Store, Registry: m.Registry, Params: params}
		ev.Aggregate = m.aggregateEval(ctx, params, &ec.Warnings)
		filtered := make([]Binding, 0, len(rows))
		for _, b := range rows {
			v, err := ev.Eval(b, *p.Guard)
			if err != nil {
				return nil, err
			}
			if value.Truthy(v) {
				filtered = append(filtered, b)
			}
		}
		rows = filtered
	}

	return &MatchResult{Bindings: rows, Warnings: ec.Warnings}, nil
}

// NewEvaluator builds an Evaluator bound to this Matcher's Store/Registry
// with Aggregate wired to this Matcher's correlated-subpattern evaluation,
// for callers outside this package that need to evaluate RETURN/ORDER BY
// expressions (which may themselves contain aggregates) against a binding
// produced by MatchPattern. Any warning the aggregate evaluation produces
// (e.g. a truncated COLLECT, spec.md §9 decision 4) accumulates on the
// returned Evaluator's own Warnings field for the caller to surface.
func (m *Matcher) NewEvaluator(ctx context.Context, params map[string]value.Value) *Evaluator {
	ev := &Evaluator{Store: m.Store, Registry: m.Registry, Params: params}
	ev.Aggregate = m.aggregateEval(ctx, params, &ev.Warnings)
	return ev
}

func (m *Matcher) cardinality(typeTag string) int {
	if typeTag == "" || typeTag == "any" {
		return int(^uint(0) >> 1)
	}
	total := 0
	for _, t := range m.Registry.DescendantsOf(typeTag) {
		total += m.Store.Count(t)
	}
	return total
}

// aggregateEval returns an AggregateEval closure that evaluates a
// pattern-based aggregate correlated against one outer binding, by
// recursively matching AggregatePattern seeded with the outer binding's
// entries (spec.md §4.4 "Aggregate placement", §6 aggregate functions).
// warnings, when non-nil, receives the inner match's own warnings plus a
// Warning if COLLECT truncates (spec.md §9 decision 4).
func (m *Matcher) aggregateEval(ctx context.Context, params map[string]value.Value, warnings *[]kernelerr.Warning) AggregateEval {
	return func(outer Binding, agg ast.ExprAST) (value.Value, error) {
		var pattern ast.PatternAST
		if agg.AggregatePattern != nil {
			pattern = *agg.AggregatePattern
		}
		res, err := m.matchWithSeed(ctx, pattern, params, outer.Clone())
		if err != nil {
			return value.Null(), err
		}
		if warnings != nil {
			*warnings = append(*warnings, res.Warnings...)
		}

		var vs []value.Value
		if agg.AggregateArg != nil {
			ev := &Evaluator{Store: m.Store, Registry: m.Registry, Params: params}
			ev.Aggregate = m.aggregateEval(ctx, params, warnings)
			for _, b := range res.Bindings {
				v, err := ev.Eval(b, *agg.AggregateArg)
				if err != nil {
					return value.Null(), err
				}
				vs = append(vs, v)
			}
		} else if agg.AggregateVar != "" {
			for _, b := range res.Bindings {
				if id, ok := b[agg.AggregateVar]; ok {
					vs = append(vs, m.Store.RefOf(id))
				}
			}
		}

		v, truncated := AggregateFn(agg.AggregateFn, vs, m.Limits.CollectLimit)
		if truncated && warnings != nil {
			*warnings = append(*warnings, kernelerr.Warning{
				Source:  "COLLECT",
				Message: fmt.Sprintf("%s(%s) truncated at %d element(s)", agg.AggregateFn, agg.AggregateVar, m.Limits.CollectLimit),
			})
		}
		return v, nil
	}
}
