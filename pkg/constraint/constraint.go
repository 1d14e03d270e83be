// Package constraint implements the ConstraintChecker (spec.md §4.6):
// dependency-set-triggered re-evaluation of every declared constraint
// after a mutation window closes, distinguishing hard constraints (abort
// the statement/transaction) from soft constraints (attach a Warning and
// continue).
//
// Mirrors nornicdb's pkg/storage/constraint_validation.go, whose
// ValidateConstraintOnCreation scans affected nodes and returns a
// structured ConstraintViolationError on the first violation found;
// generalized here from a one-time CREATE-CONSTRAINT scan over raw
// properties to a per-commit re-evaluation of a pattern+guard against
// the Registry's declared constraints, triggered only when the delta
// set intersects what a constraint depends on.
package constraint

import (
	"context"

	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/value"
)

// Checker evaluates constraints against a Matcher.
type Checker struct {
	Matcher  *match.Matcher
	Registry *registry.Registry
}

// New constructs a Checker.
func New(m *match.Matcher, r *registry.Registry) *Checker {
	return &Checker{Matcher: m, Registry: r}
}

// Check re-evaluates every constraint whose DependsOn intersects delta.
// The first hard-constraint violation aborts evaluation and is returned
// as a *kernelerr.KernelError of kind ConstraintError; every soft
// violation encountered along the way is instead appended to warnings
// and evaluation continues (spec.md §4.6 "Hard vs soft").
func (c *Checker) Check(ctx context.Context, delta registry.DependencySet, params map[string]value.Value) ([]kernelerr.Warning, error) {
	var warnings []kernelerr.Warning
	for _, cd := range c.Registry.TriggeredConstraints(delta) {
		violated, sampleBinding, err := c.evaluate(ctx, cd, params)
		if err != nil {
			return warnings, err
		}
		if !violated {
			continue
		}
		msg := cd.Message
		if msg == "" {
			msg = "constraint violated"
		}
		if cd.Soft {
			warnings = append(warnings, kernelerr.Warning{Source: cd.Name, Message: msg})
			continue
		}
		ke := kernelerr.New(kernelerr.ConstraintError, "%s", msg).WithConstraint(cd.Name)
		if id, ok := firstID(sampleBinding); ok {
			ke = ke.WithEntity(id)
		}
		return warnings, ke
	}
	return warnings, nil
}

// evaluate runs cd's pattern (and guard, if any) against the current
// store state and decides whether cd is violated.
//
// A constraint with Negate set is violated when the pattern has ANY
// match (spec.md §4.6 "an absent Guard with Negate set means 'pattern
// must have no matches'"). A constraint with a Guard is violated when
// ANY match fails the guard — i.e. the guard must hold for every match,
// the usual "for all bindings" reading of a declared constraint. With
// both a Guard and Negate set, it is violated when ANY match satisfies
// the guard.
func (c *Checker) evaluate(ctx context.Context, cd *registry.ConstraintDescriptor, params map[string]value.Value) (bool, match.Binding, error) {
	res, err := c.Matcher.MatchPattern(ctx, cd.Pattern, params)
	if err != nil {
		return false, nil, err
	}

	if cd.Negate && !cd.HasGuard {
		if len(res.Bindings) > 0 {
			return true, res.Bindings[0], nil
		}
		return false, nil, nil
	}

	if !cd.HasGuard {
		return false, nil, nil
	}

	ev := &match.Evaluator{Store: c.Matcher.Store, Registry: c.Registry, Params: params}
	for _, b := range res.Bindings {
		v, err := ev.Eval(b, cd.Guard)
		if err != nil {
			return false, nil, err
		}
		ok := value.Truthy(v)
		if cd.Negate {
			ok = !ok
		}
		if !ok {
			return true, b, nil
		}
	}
	return false, nil, nil
}

func firstID(b match.Binding) (string, bool) {
	for _, v := range b {
		return string(v), true
	}
	return "", false
}
