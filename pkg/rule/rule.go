// Package rule implements the RuleEngine (spec.md §4.7): fixpoint
// execution of auto-rules triggered by a mutation's dependency-set delta,
// ordered by descending priority then declaration order, deduplicated per
// (rule, binding) so a rule never refires on the same match twice, and
// bounded by a total fired-action count and a chain-depth cap so a
// rule set that keeps re-triggering itself terminates rather than
// running forever.
//
// Mirrors nornicdb's apoc/trigger/trigger.go — a name-keyed,
// mutex-guarded registry of enable/disable-able triggers fired on
// create/update/delete events — generalized from string-statement
// triggers selected by label/event to compiled Pattern+Production rules
// selected by dependency-set intersection, and from a fire-once-per-event
// model to the priority-ordered fixpoint spec.md §4.7 describes.
package rule

import (
	"context"
	"fmt"
	"sort"

	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/mutate"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/value"
)

// Engine runs the fixpoint rule scheduler against a mutation Session.
type Engine struct {
	Matcher  *match.Matcher
	Registry *registry.Registry
	Limits   config.RuleLimits
}

// New constructs a rule Engine.
func New(m *match.Matcher, r *registry.Registry, limits config.RuleLimits) *Engine {
	return &Engine{Matcher: m, Registry: r, Limits: limits}
}

// RunAutoRules drives the fixpoint loop until no auto-rule triggered by
// the accumulated delta produces a new, not-yet-fired (rule, binding)
// match. sess.Delta grows as productions fire, widening which rules
// TriggeredAutoRules returns on the next round — exactly spec.md §4.7's
// "rules may re-trigger other rules" semantics.
func (e *Engine) RunAutoRules(ctx context.Context, sess *mutate.Session, params map[string]value.Value) error {
	fired := map[string]bool{}
	firedCount := 0

	for round := 0; ; round++ {
		if round >= e.Limits.MaxChainDepth {
			return kernelerr.New(kernelerr.RuleError, "rule fixpoint exceeded chain depth %d", e.Limits.MaxChainDepth)
		}

		anyNew := false
		for _, rd := range e.Registry.TriggeredAutoRules(sess.Delta) {
			n, err := e.fireOnce(ctx, sess, params, rd, fired, &firedCount)
			if err != nil {
				return err
			}
			if n > 0 {
				anyNew = true
			}
		}
		if !anyNew {
			return nil
		}
	}
}

// FireRule runs rd's current matches once against sess — the behavior of
// a manual `TRIGGER rule_name` statement (spec.md §4.7 "Manual rules are
// not evaluated automatically; a TRIGGER statement invokes one"). Unlike
// RunAutoRules it does not loop to a fixpoint: a manually fired rule's
// production is re-checked for auto-triggered follow-on rules only at the
// enclosing transaction's COMMIT, same as any other mutation.
func (e *Engine) FireRule(ctx context.Context, sess *mutate.Session, params map[string]value.Value, rd *registry.RuleDescriptor) error {
	fired := map[string]bool{}
	firedCount := 0
	_, err := e.fireOnce(ctx, sess, params, rd, fired, &firedCount)
	return err
}

// fireOnce matches rd's pattern against the current store state and runs
// its production for every not-yet-fired binding, honoring the shared
// fired-action/fired-(rule,binding) bookkeeping a caller threads across
// rounds. Returns the number of new (rule, binding) pairs fired.
func (e *Engine) fireOnce(ctx context.Context, sess *mutate.Session, params map[string]value.Value, rd *registry.RuleDescriptor, fired map[string]bool, firedCount *int) (int, error) {
	res, err := e.Matcher.MatchPattern(ctx, rd.Pattern, params)
	if err != nil {
		return 0, err
	}
	ev := &match.Evaluator{Store: e.Matcher.Store, Registry: e.Registry, Params: params}

	n := 0
	for _, binding := range res.Bindings {
		key := rd.Name + "|" + bindingKey(binding)
		if fired[key] {
			continue
		}
		fired[key] = true
		n++

		cur := binding
		for _, action := range rd.Production {
			*firedCount++
			if *firedCount > e.Limits.MaxFiredActions {
				return n, kernelerr.New(kernelerr.RuleError, "rule fixpoint exceeded %d fired actions", e.Limits.MaxFiredActions)
			}
			var err error
			cur, _, _, err = sess.ExecuteAction(ctx, ev, params, cur, action)
			if err != nil {
				return n, kernelerr.Wrap(kernelerr.RuleError, err, "rule %q production failed", rd.Name)
			}
		}
	}
	return n, nil
}

// bindingKey renders a binding as a deterministic string for (rule,
// binding) dedup — sorted by variable name so map iteration order never
// affects the key.
func bindingKey(b match.Binding) string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	s := ""
	for _, n := range names {
		s += fmt.Sprintf("%s=%s;", n, b[n])
	}
	return s
}
