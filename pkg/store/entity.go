// Package store implements the GraphStore (spec.md §4.1): physical storage
// of entities and the indices that make pattern matching and mutation fast,
// plus the primitive operations layered on top of them.
//
// The store enforces only low-level integrity — arity and target
// existence — never declared constraints; that is ConstraintChecker's job
// (pkg/constraint), layered above.
//
// Mirrors nornicdb's pkg/storage.MemoryEngine: mutex-guarded maps,
// one index per lookup shape, deep-copy-on-read semantics. The biggest
// departure is the single EntityId space spec.md §3 requires — nornicdb
// keeps separate NodeID/EdgeID types with no shared identity, which cannot
// express higher-order edges (an edge referencing another edge as a
// target).
package store

import "github.com/mew-lang/mew/pkg/value"

// EntityId addresses both nodes and edges in one space (spec.md §3).
type EntityId string

// Entity is the sum-typed node/edge representation: targets is nil for a
// node and non-nil (possibly zero-length, for nullary edge types) for an
// edge (spec.md §3, §9 "Polymorphic entities").
type Entity struct {
	ID      EntityId
	TypeTag string
	Alive   bool

	// attrOrder preserves declaration/assignment order for `attrs`, an
	// ordered mapping per spec.md §3.
	attrOrder []string
	attrs     map[string]value.Value

	// Targets is nil for a node; for an edge it is the ordered sequence of
	// EntityIds, length == arity.
	Targets []EntityId
}

// IsEdge reports whether the entity is an edge (has a target list, even an
// empty one for a nullary edge type).
func (e *Entity) IsEdge() bool { return e.Targets != nil }

// Attr returns the attribute's value and whether it is set. An unset
// attribute is distinct from one explicitly set to Null.
func (e *Entity) Attr(name string) (value.Value, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttr sets an attribute, preserving first-write order.
func (e *Entity) SetAttr(name string, v value.Value) {
	if _, exists := e.attrs[name]; !exists {
		e.attrOrder = append(e.attrOrder, name)
	}
	if e.attrs == nil {
		e.attrs = make(map[string]value.Value)
	}
	e.attrs[name] = v
}

// AttrNames returns attribute names in first-write order.
func (e *Entity) AttrNames() []string {
	out := make([]string, len(e.attrOrder))
	copy(out, e.attrOrder)
	return out
}

// clone returns a deep copy, so callers never observe in-place mutation of
// store state between transactions (spec.md §5 "Reader consistency").
func (e *Entity) clone() *Entity {
	c := &Entity{ID: e.ID, TypeTag: e.TypeTag, Alive: e.Alive}
	if e.attrs != nil {
		c.attrs = make(map[string]value.Value, len(e.attrs))
		for k, v := range e.attrs {
			c.attrs[k] = v
		}
		c.attrOrder = append([]string(nil), e.attrOrder...)
	}
	if e.Targets != nil {
		c.Targets = append([]EntityId(nil), e.Targets...)
	}
	return c
}
