// Package match implements the PatternMatcher (spec.md §4.4): a compiled
// plan of relational operators evaluated against the GraphStore, producing
// variable bindings. Plan construction orders variables by selectivity
// (pinned bindings first, then smallest expected type cardinality), and
// dispatches each edge pattern term to Expand or Probe depending on which
// of its positions are already bound.
//
// Mirrors nornicdb's pkg/cypher/traversal.go (variable-length hop
// traversal with a TraversalContext) for TransitiveExpand's depth-capped,
// cycle-pruned walk, and apoc/algo/shortest_path.go for the
// depth-bounded-BFS idiom itself; pkg/cypher/match.go's string/regex MATCH
// execution is NOT reused — it parses raw Cypher text rather than
// evaluating a compiled operator pipeline, which is exactly the design
// spec.md §4.4 requires instead.
package match

import "github.com/mew-lang/mew/pkg/store"

// Binding is one concrete assignment of pattern variables to entity ids
// (GLOSSARY "Binding"). Only entity-typed pattern variables live here;
// scalar projections are computed on demand by the Evaluator.
type Binding map[string]store.EntityId

// Clone returns an independent copy, so extending a binding down one
// branch of the plan never mutates another branch's view of it.
func (b Binding) Clone() Binding {
	c := make(Binding, len(b)+1)
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Merge returns a clone of b with other's entries applied on top.
func (b Binding) Merge(other Binding) Binding {
	c := b.Clone()
	for k, v := range other {
		c[k] = v
	}
	return c
}
