package registry

import (
	"sort"
	"sync"
)

// Registry holds the compiled ontology artifacts the rest of the kernel
// reads. It is read-only from every component except the Compiler, which
// replaces its entire contents atomically via Publish (spec.md §4.3 item 7,
// §4.2 "immutable while any transaction is in flight").
type Registry struct {
	mu sync.RWMutex

	generation uint64

	types       map[string]*NodeTypeDescriptor
	edges       map[string]*EdgeSignatureDescriptor
	constraints map[string]*ConstraintDescriptor
	rules       map[string]*RuleDescriptor
	ruleOrder   []string // declaration order, for priority-tie breaking

	cache *PlanCache
}

// New constructs an empty Registry with a plan cache of the given size
// (pkg/config.CacheConfig.PlanCacheSize).
func New(planCacheSize int) *Registry {
	return &Registry{
		types:       make(map[string]*NodeTypeDescriptor),
		edges:       make(map[string]*EdgeSignatureDescriptor),
		constraints: make(map[string]*ConstraintDescriptor),
		rules:       make(map[string]*RuleDescriptor),
		cache:       NewPlanCache(planCacheSize),
	}
}

// Generation returns the current publish generation, used by the plan
// cache to invalidate entries across a schema reload (SPEC_FULL.md §D.1).
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Publish atomically installs a fully-compiled set of artifacts, bumping
// the generation so every previously cached plan is invalidated on next
// lookup (spec.md §4.3 "Install compiled artifacts atomically").
func (r *Registry) Publish(types map[string]*NodeTypeDescriptor, edges map[string]*EdgeSignatureDescriptor, constraints map[string]*ConstraintDescriptor, rules map[string]*RuleDescriptor, ruleOrder []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = types
	r.edges = edges
	r.constraints = constraints
	r.rules = rules
	r.ruleOrder = ruleOrder
	r.generation++
}

// Type looks up a compiled node type by name.
func (r *Registry) Type(name string) (*NodeTypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Edge looks up a compiled edge signature by name.
func (r *Registry) Edge(name string) (*EdgeSignatureDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.edges[name]
	return e, ok
}

// DescendantsOf returns the type itself plus every declared subtype,
// sorted for deterministic Scan ordering (spec.md §4.4 "Scan(T, out v)").
func (r *Registry) DescendantsOf(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.Descendants))
	for d := range t.Descendants {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsDescendantOf reports whether sub equals or transitively descends from
// super — the semantics of the `v:T` type-check expression (spec.md §4.4).
func (r *Registry) IsDescendantOf(sub, super string) bool {
	if sub == super {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[sub]
	if !ok {
		return false
	}
	_, ok = t.Ancestors[super]
	return ok
}

// AllTypes returns every compiled node type, sorted by name, for `SHOW TYPES`.
func (r *Registry) AllTypes() []*NodeTypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeTypeDescriptor, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllEdges returns every compiled edge signature, sorted by name, for
// `SHOW EDGES`.
func (r *Registry) AllEdges() []*EdgeSignatureDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EdgeSignatureDescriptor, 0, len(r.edges))
	for _, e := range r.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TriggeredConstraints returns every constraint whose dependency set
// intersects delta (spec.md §4.6 "Trigger").
func (r *Registry) TriggeredConstraints(delta DependencySet) []*ConstraintDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ConstraintDescriptor
	names := make([]string, 0, len(r.constraints))
	for n := range r.constraints {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := r.constraints[n]
		if c.DependsOn.Intersects(delta) {
			out = append(out, c)
		}
	}
	return out
}

// AllConstraints returns every compiled constraint, sorted by name, for
// `SHOW CONSTRAINTS`.
func (r *Registry) AllConstraints() []*ConstraintDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ConstraintDescriptor, 0, len(r.constraints))
	for _, c := range r.constraints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TriggeredAutoRules returns every auto rule whose dependency set
// intersects delta, ordered by descending priority then declaration order
// (spec.md §4.7 "Scheduling", "Priority ties").
func (r *Registry) TriggeredAutoRules(delta DependencySet) []*RuleDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declIndex := make(map[string]int, len(r.ruleOrder))
	for i, n := range r.ruleOrder {
		declIndex[n] = i
	}

	var out []*RuleDescriptor
	for _, n := range r.ruleOrder {
		rule := r.rules[n]
		if rule == nil || !rule.Auto {
			continue
		}
		if rule.DependsOn.Intersects(delta) {
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return declIndex[out[i].Name] < declIndex[out[j].Name]
	})
	return out
}

// Rule looks up a compiled rule by name, for manual TRIGGER statements.
func (r *Registry) Rule(name string) (*RuleDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// AllRules returns every compiled rule in declaration order, for
// `SHOW RULES`.
func (r *Registry) AllRules() []*RuleDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RuleDescriptor, 0, len(r.ruleOrder))
	for _, n := range r.ruleOrder {
		out = append(out, r.rules[n])
	}
	return out
}

// Cache exposes the plan cache to the Analyzer/Planner.
func (r *Registry) Cache() *PlanCache { return r.cache }
