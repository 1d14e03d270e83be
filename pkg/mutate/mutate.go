// Package mutate implements the MutationEngine (spec.md §4.5): the five
// primitive operations (SPAWN/LINK/KILL/UNLINK/SET), their bulk MATCH
// variants, inline-SPAWN-in-LINK and LINK-IF-NOT-EXISTS desugaring, and
// RETURNING projection. Every primitive validates structural invariants
// (spec.md §3: type/abstractness, cardinality, no_self, acyclic, unique)
// before writing to the store, and reports the exact failure shapes
// spec.md §4.5's table names.
//
// Mirrors nornicdb's pkg/storage/transaction.go (CreateNode/
// CreateEdge/DeleteNode/DeleteEdge validating-then-writing against a
// MemoryEngine), generalized from Neo4j-style untyped property writes to
// MEW's declared-type validation against the Registry.
package mutate

import (
	"fmt"
	"regexp"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// Engine ties a Store, Registry, and Matcher together for mutation
// execution; it holds no per-transaction state itself (that lives in
// Session, one per in-flight transaction).
type Engine struct {
	Store    *store.Store
	Registry *registry.Registry
	Matcher  *match.Matcher
}

// New constructs a mutation Engine.
func New(s *store.Store, r *registry.Registry, m *match.Matcher) *Engine {
	return &Engine{Store: s, Registry: r, Matcher: m}
}

// Session accumulates the dependency-set delta (spec.md §4.6/§4.7
// "delta set") and any soft warnings for one transaction's mutation
// window, so the caller (pkg/txn) can hand the accumulated delta to the
// RuleEngine and ConstraintChecker after the window closes.
type Session struct {
	eng      *Engine
	Delta    registry.DependencySet
	Warnings []kernelerr.Warning
}

// NewSession starts a fresh delta-accumulating mutation session.
func (e *Engine) NewSession() *Session {
	return &Session{eng: e, Delta: registry.NewDependencySet()}
}

func (s *Session) touchNode(typeTag string) { s.Delta.NodeTypes[typeTag] = struct{}{} }
func (s *Session) touchEdge(typeTag string) { s.Delta.EdgeTypes[typeTag] = struct{}{} }

// Spawn creates a node of nodeType with attrs, filling declared defaults
// and validating every modifier, returning the new node's id (spec.md
// §4.5 "SPAWN").
func (s *Session) Spawn(nodeType string, attrs map[string]value.Value) (store.EntityId, error) {
	desc, ok := s.eng.Registry.Type(nodeType)
	if !ok {
		return "", kernelerr.New(kernelerr.AnalysisError, "SPAWN: unknown node type %q", nodeType)
	}
	if desc.Abstract {
		return "", kernelerr.New(kernelerr.AnalysisError, "SPAWN: %q is abstract and cannot be instantiated", nodeType)
	}

	final, err := s.fillAndValidateAttrs(nodeType, desc.Attrs, attrs)
	if err != nil {
		return "", err
	}

	ent := s.eng.Store.CreateNode(nodeType)
	for name, v := range final {
		if err := s.setAttrChecked(nodeType, desc.Attrs, ent.ID, name, v); err != nil {
			s.eng.Store.Kill(ent.ID)
			return "", err
		}
	}
	s.touchNode(nodeType)
	return ent.ID, nil
}

// Link creates an edge of edgeType across targets, validating arity,
// target admissibility, no_self, acyclic, and cardinality bounds, and
// materializing a mirror edge if the edge type is symmetric (spec.md
// §4.5 "LINK", SPEC_FULL.md §D.5). If ifNotExists is true and a live
// edge of edgeType with exactly these targets already exists, Link is a
// no-op returning that edge's id.
func (s *Session) Link(edgeType string, targets []store.EntityId, attrs map[string]value.Value, ifNotExists bool) (store.EntityId, error) {
	sig, ok := s.eng.Registry.Edge(edgeType)
	if !ok {
		return "", kernelerr.New(kernelerr.AnalysisError, "LINK: unknown edge type %q", edgeType)
	}
	if sig.Arity() != len(targets) {
		return "", kernelerr.New(kernelerr.AnalysisError, "LINK: %q expects %d targets, got %d", edgeType, sig.Arity(), len(targets))
	}

	if ifNotExists {
		if existing, found := s.eng.Store.Probe(edgeType, targets); found {
			return existing, nil
		}
	}

	if err := s.validateLinkTargets(edgeType, sig, targets); err != nil {
		return "", err
	}

	final, err := s.fillAndValidateAttrs(edgeType, sig.Attrs, attrs)
	if err != nil {
		return "", err
	}

	id, err := s.createEdgeChecked(edgeType, sig, targets, final)
	if err != nil {
		return "", err
	}

	if sig.Symmetric && len(targets) == 2 && targets[0] != targets[1] {
		mirror := []store.EntityId{targets[1], targets[0]}
		if _, found := s.eng.Store.Probe(edgeType, mirror); !found {
			if _, err := s.createEdgeChecked(edgeType, sig, mirror, final); err != nil {
				return "", err
			}
		}
	}

	return id, nil
}

func (s *Session) createEdgeChecked(edgeType string, sig *registry.EdgeSignatureDescriptor, targets []store.EntityId, attrs map[string]value.Value) (store.EntityId, error) {
	ent, err := s.eng.Store.CreateEdge(edgeType, targets)
	if err != nil {
		return "", kernelerr.Wrap(kernelerr.IntegrityError, err, "LINK %q: target no longer exists", edgeType)
	}
	for name, v := range attrs {
		if err := s.setAttrChecked(edgeType, sig.Attrs, ent.ID, name, v); err != nil {
			s.eng.Store.Kill(ent.ID)
			return "", err
		}
	}
	s.touchEdge(edgeType)
	return ent.ID, nil
}

// validateLinkTargets enforces admissibility per position's type
// expression, no_self distinctness, declared cardinality Max bounds, and
// (for binary edges) acyclicity — spec.md §3 invariants 7/8, §4.5 LINK
// failure modes.
func (s *Session) validateLinkTargets(edgeType string, sig *registry.EdgeSignatureDescriptor, targets []store.EntityId) error {
	for i, t := range targets {
		if !s.eng.Store.Exists(t) {
			return kernelerr.New(kernelerr.IntegrityError, "LINK %q: target %s does not exist", edgeType, t)
		}
		ent, _ := s.eng.Store.Get(t)
		if ent != nil && !ent.Alive {
			return kernelerr.New(kernelerr.IntegrityError, "LINK %q: target %s is not alive", edgeType, t)
		}
		if i < len(sig.Positions) && !admitsType(sig.Positions[i].TypeExpr, s.eng.Registry, s.eng.Store, t) {
			return kernelerr.New(kernelerr.AnalysisError, "LINK %q: target %s is not admissible at position %q", edgeType, t, sig.Positions[i].Name)
		}
	}

	if sig.NoSelf {
		seen := map[store.EntityId]bool{}
		for _, t := range targets {
			if seen[t] {
				return kernelerr.New(kernelerr.ConstraintError, "LINK %q: no_self forbids repeating target %s", edgeType, t)
			}
			seen[t] = true
		}
	}

	for _, c := range sig.Cardinality {
		idx := positionIndex(sig, c.Role)
		if idx < 0 || idx >= len(targets) {
			continue
		}
		if c.Max >= 0 {
			count := len(s.eng.Store.IterEdgesByPos(edgeType, idx, targets[idx]))
			if count+1 > c.Max {
				return kernelerr.New(kernelerr.ConstraintError, "LINK %q: role %q exceeds cardinality max %d", edgeType, c.Role, c.Max)
			}
		}
	}

	if sig.Acyclic && len(targets) == 2 && targets[0] != targets[1] {
		if s.reaches(edgeType, targets[1], targets[0], 10000) {
			return kernelerr.New(kernelerr.ConstraintError, "LINK %q: acyclic edge would close a cycle", edgeType)
		}
	}

	return nil
}

func positionIndex(sig *registry.EdgeSignatureDescriptor, role string) int {
	for i, p := range sig.Positions {
		if p.Name == role {
			return i
		}
	}
	return -1
}

// reaches reports whether to is reachable from from by following live
// edgeType edges position-0-to-position-1, bounded by maxSteps to
// guarantee termination on a store this size.
func (s *Session) reaches(edgeType string, from, to store.EntityId, maxSteps int) bool {
	visited := map[store.EntityId]bool{from: true}
	frontier := []store.EntityId{from}
	steps := 0
	for len(frontier) > 0 && steps < maxSteps {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, edgeID := range s.eng.Store.IterEdgesByPos(edgeType, 0, cur) {
			edge, ok := s.eng.Store.Get(edgeID)
			if !ok || !edge.Alive || len(edge.Targets) < 2 {
				continue
			}
			next := edge.Targets[1]
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
		steps++
	}
	return false
}

// admitsType reports whether entity id satisfies a position's type
// expression (spec.md §3 "Type expressions").
func admitsType(te ast.TypeExpr, reg *registry.Registry, s *store.Store, id store.EntityId) bool {
	switch te.Kind {
	case ast.TypeExprAny:
		return true
	case ast.TypeExprNode:
		ent, ok := s.Get(id)
		if !ok || ent.IsEdge() {
			return false
		}
		return reg.IsDescendantOf(ent.TypeTag, te.Name)
	case ast.TypeExprEdgeOf:
		ent, ok := s.Get(id)
		if !ok || !ent.IsEdge() {
			return false
		}
		return te.EdgeType == "any" || ent.TypeTag == te.EdgeType
	case ast.TypeExprUnion:
		for _, m := range te.Union {
			if admitsType(m, reg, s, id) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Kill tombstones id, then applies each live incident edge's declared
// referential action (spec.md §4.5 "referential actions", §3 invariant 4):
// `cascade` kills the incident edge too (recursively), `unlink` tombstones
// it directly without cascading further, and `prevent` on an edge directly
// incident on id aborts the KILL with an IntegrityError before id itself
// is touched; a `prevent` met further down a cascade aborts it after the
// earlier writes of that cascade have been made.
func (s *Session) Kill(id store.EntityId) error {
	ent, ok := s.eng.Store.Get(id)
	if !ok {
		return kernelerr.New(kernelerr.IntegrityError, "KILL: %s does not exist", id)
	}
	if !ent.Alive {
		return nil
	}

	if err := s.checkPreventingEdges(id); err != nil {
		return err
	}

	if err := s.eng.Store.Kill(id); err != nil {
		return kernelerr.Wrap(kernelerr.IntegrityError, err, "KILL %s", id)
	}
	s.touchNode(ent.TypeTag)
	if ent.IsEdge() {
		s.touchEdge(ent.TypeTag)
	}

	for _, other := range s.eng.Store.Snapshot() {
		if !other.IsEdge() || !other.Alive {
			continue
		}
		posIdx, referenced := positionOf(other, id)
		if !referenced {
			continue
		}
		switch s.referentialAction(other.TypeTag, posIdx) {
		case ast.RefUnlink:
			if err := s.eng.Store.Kill(other.ID); err != nil {
				return kernelerr.Wrap(kernelerr.IntegrityError, err, "KILL %s: unlink %s", id, other.ID)
			}
			s.touchEdge(other.TypeTag)
		default: // cascade
			if err := s.Kill(other.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkPreventingEdges scans every live edge incident on id for a position
// declared `prevent`, aborting before id (or anything incident on it) is
// touched if one is found.
func (s *Session) checkPreventingEdges(id store.EntityId) error {
	for _, other := range s.eng.Store.Snapshot() {
		if !other.IsEdge() || !other.Alive {
			continue
		}
		posIdx, referenced := positionOf(other, id)
		if !referenced {
			continue
		}
		if s.referentialAction(other.TypeTag, posIdx) == ast.RefPrevent {
			return kernelerr.New(kernelerr.IntegrityError,
				`KILL %s: "prevent" referential action triggered by %s`, id, other.ID)
		}
	}
	return nil
}

// positionOf reports the first position index at which edge targets id,
// and whether id is referenced at all.
func positionOf(edge *store.Entity, id store.EntityId) (int, bool) {
	for i, t := range edge.Targets {
		if t == id {
			return i, true
		}
	}
	return 0, false
}

// referentialAction looks up the declared referential action for one
// position of edgeType, defaulting to cascade if the edge type or position
// is unknown (should not happen for a live, already-validated edge).
func (s *Session) referentialAction(edgeType string, posIdx int) ast.ReferentialAction {
	sig, ok := s.eng.Registry.Edge(edgeType)
	if !ok || posIdx >= len(sig.Positions) {
		return ast.RefCascade
	}
	return sig.Positions[posIdx].ReferentialAction.OrDefault()
}

// Unlink tombstones an edge id (spec.md §4.5 "UNLINK"): a thin alias
// over Kill restricted to edges, kept distinct at the API boundary
// because UNLINK never cascades further (an edge has no incident edges
// of its own to cascade to beyond what Kill already handles generically).
func (s *Session) Unlink(id store.EntityId) error {
	ent, ok := s.eng.Store.Get(id)
	if !ok {
		return kernelerr.New(kernelerr.IntegrityError, "UNLINK: %s does not exist", id)
	}
	if !ent.IsEdge() {
		return kernelerr.New(kernelerr.AnalysisError, "UNLINK: %s is not an edge", id)
	}
	return s.Kill(id)
}

// Set writes attr on id to v, validating type and modifiers, and
// rejecting writing null to a required attribute (spec.md §4.5 "SET").
func (s *Session) Set(id store.EntityId, attr string, v value.Value) error {
	ent, ok := s.eng.Store.Get(id)
	if !ok {
		return kernelerr.New(kernelerr.IntegrityError, "SET: %s does not exist", id)
	}
	attrs, typeTag, err := s.attrTableFor(ent)
	if err != nil {
		return err
	}
	if err := s.setAttrChecked(typeTag, attrs, id, attr, v); err != nil {
		return err
	}
	s.touchNode(ent.TypeTag)
	if ent.IsEdge() {
		s.touchEdge(ent.TypeTag)
	}
	return nil
}

func (s *Session) attrTableFor(ent *store.Entity) (map[string]registry.AttrDescriptor, string, error) {
	if ent.IsEdge() {
		sig, ok := s.eng.Registry.Edge(ent.TypeTag)
		if !ok {
			return nil, "", kernelerr.New(kernelerr.FatalError, "entity %s has unknown edge type %q", ent.ID, ent.TypeTag)
		}
		return sig.Attrs, ent.TypeTag, nil
	}
	desc, ok := s.eng.Registry.Type(ent.TypeTag)
	if !ok {
		return nil, "", kernelerr.New(kernelerr.FatalError, "entity %s has unknown type %q", ent.ID, ent.TypeTag)
	}
	return desc.Attrs, ent.TypeTag, nil
}

// fillAndValidateAttrs merges user-supplied attrs with declared
// defaults, rejects unknown attributes, and checks every required
// attribute is present after defaulting (spec.md §4.5 SPAWN/LINK failure
// "missing required"). Per-value modifier validation happens later, in
// setAttrChecked, once the entity exists (unique-collision checks need a
// live id to compare against).
func (s *Session) fillAndValidateAttrs(typeName string, declared map[string]registry.AttrDescriptor, given map[string]value.Value) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(declared))
	for name, v := range given {
		if _, ok := declared[name]; !ok {
			return nil, kernelerr.New(kernelerr.AnalysisError, "%s: unknown attribute %q", typeName, name)
		}
		out[name] = v
	}
	for name, d := range declared {
		if _, has := out[name]; has {
			continue
		}
		if d.Default != nil {
			out[name] = *d.Default
			continue
		}
		if !d.Optional {
			return nil, kernelerr.New(kernelerr.AnalysisError, "%s: missing required attribute %q", typeName, name)
		}
	}
	return out, nil
}

// setAttrChecked validates v against attr's declared type and modifiers,
// claims its unique slot if applicable, and writes it to the store.
func (s *Session) setAttrChecked(typeName string, declared map[string]registry.AttrDescriptor, id store.EntityId, attr string, v value.Value) error {
	d, ok := declared[attr]
	if !ok {
		return kernelerr.New(kernelerr.AnalysisError, "%s: unknown attribute %q", typeName, attr)
	}
	if v.IsNull() {
		if !d.Optional {
			return kernelerr.New(kernelerr.AnalysisError, "%s.%s: required attribute cannot be null", typeName, attr)
		}
	} else if err := checkScalarType(d, v); err != nil {
		return kernelerr.Wrap(kernelerr.AnalysisError, err, "%s.%s", typeName, attr)
	} else if err := checkModifiers(d, v); err != nil {
		return kernelerr.Wrap(kernelerr.ConstraintError, err, "%s.%s", typeName, attr)
	}

	if d.Modifiers.Unique && !v.IsNull() {
		if holder, found := s.eng.Store.ProbeUnique(typeName, attr, v); found && holder != id {
			return kernelerr.New(kernelerr.ConstraintError, "%s.%s: unique collision on value %s", typeName, attr, v.String())
		}
	}
	if err := s.eng.Store.SetAttr(id, attr, v); err != nil {
		return kernelerr.Wrap(kernelerr.IntegrityError, err, "%s.%s", typeName, attr)
	}
	if d.Modifiers.Unique && !v.IsNull() {
		s.eng.Store.ClaimUnique(typeName, attr, v, id)
	}
	return nil
}

func checkScalarType(d registry.AttrDescriptor, v value.Value) error {
	ok := false
	switch d.Type {
	case ast.ScalarBool:
		ok = v.Kind() == value.KindBool
	case ast.ScalarInt:
		ok = v.Kind() == value.KindInt
	case ast.ScalarFloat:
		ok = v.Kind() == value.KindFloat || v.Kind() == value.KindInt
	case ast.ScalarString:
		ok = v.Kind() == value.KindString
	case ast.ScalarTimestamp:
		ok = v.Kind() == value.KindTimestamp
	case ast.ScalarDuration:
		ok = v.Kind() == value.KindDuration
	}
	if !ok {
		return fmt.Errorf("expected %s, got %s", d.Type, v.Kind())
	}
	return nil
}

func checkModifiers(d registry.AttrDescriptor, v value.Value) error {
	m := d.Modifiers
	if len(m.In) > 0 {
		allowed := false
		for _, lit := range m.In {
			if value.Equal(v, literalToValue(lit)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("value %s not in allowed set", v.String())
		}
	}
	if m.Match != "" && v.Kind() == value.KindString {
		re, err := regexp.Compile(m.Match)
		if err == nil && !re.MatchString(v.AsString()) {
			return fmt.Errorf("value %q does not match pattern %q", v.AsString(), m.Match)
		}
	}
	if m.Min != nil {
		if f, ok := v.Float64(); ok && f < *m.Min {
			return fmt.Errorf("value %v below minimum %v", f, *m.Min)
		}
	}
	if m.Max != nil {
		if f, ok := v.Float64(); ok && f > *m.Max {
			return fmt.Errorf("value %v exceeds maximum %v", f, *m.Max)
		}
	}
	if m.LenMin != nil && v.Kind() == value.KindString && len(v.AsString()) < *m.LenMin {
		return fmt.Errorf("string length %d below minimum %d", len(v.AsString()), *m.LenMin)
	}
	if m.LenMax != nil && v.Kind() == value.KindString && len(v.AsString()) > *m.LenMax {
		return fmt.Errorf("string length %d exceeds maximum %d", len(v.AsString()), *m.LenMax)
	}
	return nil
}

func literalToValue(l ast.LiteralAST) value.Value {
	switch l.Kind {
	case ast.LitNull:
		return value.Null()
	case ast.LitBool:
		return value.Bool(l.Bool)
	case ast.LitInt:
		return value.Int(l.Int)
	case ast.LitFloat:
		return value.Float(l.Float)
	case ast.LitString:
		return value.String(l.Str)
	case ast.LitTimestamp:
		return value.Timestamp(l.TimestampMs)
	case ast.LitDuration:
		return value.Duration(l.DurationMs)
	case ast.LitIDRef:
		return value.NodeRef(l.IDRef)
	default:
		return value.Null()
	}
}
