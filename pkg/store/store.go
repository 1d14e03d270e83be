package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/mew-lang/mew/pkg/value"
)

// Sentinel errors distinguishing the three failure shapes spec.md §4.1
// requires every store operation to report.
var (
	ErrNotFound           = errors.New("store: entity not found")
	ErrTypeMismatch       = errors.New("store: type mismatch")
	ErrPreconditionFailed = errors.New("store: precondition failed")
)

type attrIndexKey struct {
	typeTag string
	attr    string
}

type attrEntry struct {
	val value.Value
	id   EntityId
}

type uniqueKey struct {
	typeTag string
	attr    string
	valKey  string
}

type edgePosKey struct {
	edgeType string
	pos      int
	target   EntityId
}

// Store is the GraphStore: physical entity storage plus the by_type,
// by_attr, unique, and edges_by_pos indices named in spec.md §4.1's table.
// Nodes are logically partitioned by family and edges by edge type via the
// index keys alone (a single backing map keeps the Go code simple; the
// teacher similarly keeps one map[NodeID]*Node plus secondary indices
// rather than one Go map per label).
type Store struct {
	mu sync.RWMutex

	entities map[EntityId]*Entity

	byType map[string]map[EntityId]struct{}
	byAttr map[attrIndexKey][]attrEntry
	unique map[uniqueKey]EntityId

	// edgesByPos maps (edgeType, position, target id) to the set of edge
	// ids whose position holds that target — "traversal from a node".
	edgesByPos map[edgePosKey]map[EntityId]struct{}

	ids *IDAllocator
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		entities:   make(map[EntityId]*Entity),
		byType:     make(map[string]map[EntityId]struct{}),
		byAttr:     make(map[attrIndexKey][]attrEntry),
		unique:     make(map[uniqueKey]EntityId),
		edgesByPos: make(map[edgePosKey]map[EntityId]struct{}),
		ids:        NewIDAllocator(),
	}
}

// CreateNode stores a new live node of the given concrete type and returns
// its assigned id. Attribute validation (required/defaults/modifiers) is
// the Compiler-driven caller's responsibility (pkg/mutate); the store only
// ever records what it is given.
func (s *Store) CreateNode(typeTag string) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids.Next()
	e := &Entity{ID: id, TypeTag: typeTag, Alive: true}
	s.entities[id] = e
	s.indexType(typeTag, id)
	return e
}

// CreateEdge stores a new live edge. targets must all currently exist in
// the store (dead or alive — spec.md §4.1's "Edge case policy" permits an
// edge to transiently target an entity killed earlier in the same
// transaction; referential integrity is verified at commit, not here).
func (s *Store) CreateEdge(edgeType string, targets []EntityId) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range targets {
		if _, ok := s.entities[t]; !ok {
			return nil, ErrNotFound
		}
	}

	id := s.ids.Next()
	e := &Entity{ID: id, TypeTag: edgeType, Alive: true, Targets: append([]EntityId(nil), targets...)}
	s.entities[id] = e
	s.indexType(edgeType, id)
	for i, t := range targets {
		s.indexEdgePos(edgeType, i, t, id)
	}
	return e, nil
}

func (s *Store) indexType(typeTag string, id EntityId) {
	set, ok := s.byType[typeTag]
	if !ok {
		set = make(map[EntityId]struct{})
		s.byType[typeTag] = set
	}
	set[id] = struct{}{}
}

func (s *Store) indexEdgePos(edgeType string, pos int, target EntityId, edgeID EntityId) {
	key := edgePosKey{edgeType: edgeType, pos: pos, target: target}
	set, ok := s.edgesByPos[key]
	if !ok {
		set = make(map[EntityId]struct{})
		s.edgesByPos[key] = set
	}
	set[edgeID] = struct{}{}
}

// Kill sets alive=0 on id — the only form of deletion (spec.md §3
// "Lifecycle"). Indices retain the tombstone entry; every reader filters on
// Alive, matching nornicdb's bitmap-plus-free-slot-list model without
// needing a second pass to purge entries from every index.
func (s *Store) Kill(id EntityId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return ErrNotFound
	}
	e.Alive = false
	return nil
}

// Exists reports whether id currently names an entity (alive or dead).
func (s *Store) Exists(id EntityId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// Get returns a deep copy of the entity, so callers can never mutate store
// state except through the store's own operations.
func (s *Store) Get(id EntityId) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// RefOf tags id as a value.EdgeRef if it currently names an edge (alive or
// tombstoned) or a value.NodeRef otherwise, including when id is unknown.
// MEW's single EntityId space lets an edge target another edge (spec.md
// line 70), so every caller that turns an id into a Value should go
// through RefOf instead of assuming NodeRef.
func (s *Store) RefOf(id EntityId) value.Value {
	e, ok := s.Get(id)
	if ok && e.IsEdge() {
		return value.EdgeRef(string(id))
	}
	return value.NodeRef(string(id))
}

// SetAttr writes an attribute value, maintaining the by_attr index and
// releasing the old value's unique claim, if any. unique/indexed-ness is a
// Registry-level concept: the store keeps by_attr for every attribute
// unconditionally, and a new value enters the unique index only through
// ClaimUnique.
func (s *Store) SetAttr(id EntityId, attr string, v value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return ErrNotFound
	}

	if old, existed := e.attrs[attr]; existed {
		s.removeFromAttrIndex(e.TypeTag, attr, old, id)
		s.removeFromUnique(e.TypeTag, attr, old)
	}
	e.SetAttr(attr, v)
	s.insertIntoAttrIndex(e.TypeTag, attr, v, id)
	return nil
}

// GetAttr reads a single attribute's current value.
func (s *Store) GetAttr(id EntityId, attr string) (value.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return value.Null(), false, ErrNotFound
	}
	v, set := e.Attr(attr)
	return v, set, nil
}

func (s *Store) insertIntoAttrIndex(typeTag, attr string, v value.Value, id EntityId) {
	key := attrIndexKey{typeTag: typeTag, attr: attr}
	entries := s.byAttr[key]
	i := sort.Search(len(entries), func(i int) bool { return value.Compare(entries[i].val, v) >= 0 })
	entries = append(entries, attrEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = attrEntry{val: v, id: id}
	s.byAttr[key] = entries
}

func (s *Store) removeFromAttrIndex(typeTag, attr string, v value.Value, id EntityId) {
	key := attrIndexKey{typeTag: typeTag, attr: attr}
	entries := s.byAttr[key]
	for i, e := range entries {
		if e.id == id && value.Equal(e.val, v) {
			s.byAttr[key] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (s *Store) removeFromUnique(typeTag, attr string, v value.Value) {
	if v.IsNull() {
		return
	}
	delete(s.unique, uniqueKey{typeTag: typeTag, attr: attr, valKey: v.String()})
}

// ProbeUnique checks whether a [unique] attribute value is already claimed
// by a live entity of the declared type, returning its id if so.
func (s *Store) ProbeUnique(typeTag, attr string, v value.Value) (EntityId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v.IsNull() {
		return "", false
	}
	id, ok := s.unique[uniqueKey{typeTag: typeTag, attr: attr, valKey: v.String()}]
	if !ok {
		return "", false
	}
	e, exists := s.entities[id]
	if !exists || !e.Alive {
		return "", false
	}
	return id, true
}

// ClaimUnique registers id as the current holder of v for (typeTag, attr).
// Callers (pkg/mutate, internal/snapshot) are responsible for probing first; this method
// does not itself check for a collision.
func (s *Store) ClaimUnique(typeTag, attr string, v value.Value, id EntityId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.IsNull() {
		return
	}
	s.unique[uniqueKey{typeTag: typeTag, attr: attr, valKey: v.String()}] = id
}

// IterOfType enumerates live entity ids with exactly the given type_tag.
// Scanning a declared family (a type plus its subtypes) is the caller's
// responsibility: pkg/match's Scan operator calls this once per concrete
// type in the Registry-computed descendant set and unions the results.
func (s *Store) IterOfType(typeTag string) []EntityId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.byType[typeTag]
	out := make([]EntityId, 0, len(set))
	for id := range set {
		if e := s.entities[id]; e != nil && e.Alive {
			out = append(out, id)
		}
	}
	return out
}

// IterByAttrRange enumerates live entity ids of typeTag whose attr value
// satisfies lo <= v <= hi (either bound may be the zero Value with
// unbounded=true to mean "no bound"), supporting [indexed] equality and
// range lookups.
func (s *Store) IterByAttrRange(typeTag, attr string, lo value.Value, loUnbounded bool, hi value.Value, hiUnbounded bool) []EntityId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byAttr[attrIndexKey{typeTag: typeTag, attr: attr}]
	var out []EntityId
	for _, e := range entries {
		if !loUnbounded && value.Compare(e.val, lo) < 0 {
			continue
		}
		if !hiUnbounded && value.Compare(e.val, hi) > 0 {
			continue
		}
		if ent := s.entities[e.id]; ent != nil && ent.Alive {
			out = append(out, e.id)
		}
	}
	return out
}

// IterEdgesByPos enumerates live edge ids of edgeType whose position pos
// holds target.
func (s *Store) IterEdgesByPos(edgeType string, pos int, target EntityId) []EntityId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.edgesByPos[edgePosKey{edgeType: edgeType, pos: pos, target: target}]
	out := make([]EntityId, 0, len(set))
	for id := range set {
		if e := s.entities[id]; e != nil && e.Alive {
			out = append(out, id)
		}
	}
	return out
}

// Probe tests for existence of a live edge of edgeType with exactly the
// given targets (all positions bound) — spec.md §4.4's `Probe` operator.
func (s *Store) Probe(edgeType string, targets []EntityId) (EntityId, bool) {
	if len(targets) == 0 {
		return "", false
	}
	candidates := s.IterEdgesByPos(edgeType, 0, targets[0])
	for _, id := range candidates {
		e, ok := s.Get(id)
		if !ok || !e.Alive || len(e.Targets) != len(targets) {
			continue
		}
		match := true
		for i, t := range targets {
			if e.Targets[i] != t {
				match = false
				break
			}
		}
		if match {
			return id, true
		}
	}
	return "", false
}

// Snapshot returns every live entity, for use by internal/snapshot export
// and by the Compiler's introspection (SHOW) path. Callers receive deep
// copies.
func (s *Store) Snapshot() []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if e.Alive {
			out = append(out, e.clone())
		}
	}
	return out
}

// Count returns the number of live entities of the given exact type_tag.
func (s *Store) Count(typeTag string) int {
	return len(s.IterOfType(typeTag))
}

// Load bulk-inserts entities into an empty Store, preserving their
// original ids and rebuilding the by_type, edges_by_pos and by_attr
// indices from scratch (the unique index is not rebuilt here; callers
// claim unique values with ClaimUnique) — the rehydration
// half of internal/snapshot's export/import round trip (SPEC_FULL.md
// §C.1), mirroring nornicdb's BulkCreateNodes/BulkCreateEdges: a
// single-lock batch insert that skips the per-call validation a live
// CreateNode/CreateEdge performs, since the entities it is handed were
// already valid when they were snapshotted. Load assumes s is freshly
// constructed; calling it on a Store with existing entities is not
// supported (ids could collide with the loaded set).
func (s *Store) Load(entities []*Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		c := e.clone()
		s.entities[c.ID] = c
		s.indexType(c.TypeTag, c.ID)
		if c.IsEdge() {
			for i, t := range c.Targets {
				s.indexEdgePos(c.TypeTag, i, t, c.ID)
			}
		}
		for _, attr := range c.AttrNames() {
			v, _ := c.Attr(attr)
			s.insertIntoAttrIndex(c.TypeTag, attr, v, c.ID)
		}
	}
}

// Checkpoint is an opaque, deep-copied snapshot of the entire store,
// used by pkg/txn to implement BEGIN/ROLLBACK and SAVEPOINT/ROLLBACK TO
// (spec.md §6). Unlike nornicdb's operation-log buffering (recording
// each old value for undo), this store snapshots and restores whole
// state: simpler to get right, and affordable at this store's scale
// since every map here is already plain Go data with no external
// resources to re-open.
type Checkpoint struct {
	entities   map[EntityId]*Entity
	byType     map[string]map[EntityId]struct{}
	byAttr     map[attrIndexKey][]attrEntry
	unique     map[uniqueKey]EntityId
	edgesByPos map[edgePosKey]map[EntityId]struct{}
}

// Checkpoint captures the current state for later Restore.
func (s *Store) Checkpoint() *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := &Checkpoint{
		entities:   make(map[EntityId]*Entity, len(s.entities)),
		byType:     make(map[string]map[EntityId]struct{}, len(s.byType)),
		byAttr:     make(map[attrIndexKey][]attrEntry, len(s.byAttr)),
		unique:     make(map[uniqueKey]EntityId, len(s.unique)),
		edgesByPos: make(map[edgePosKey]map[EntityId]struct{}, len(s.edgesByPos)),
	}
	for id, e := range s.entities {
		cp.entities[id] = e.clone()
	}
	for t, set := range s.byType {
		cloned := make(map[EntityId]struct{}, len(set))
		for id := range set {
			cloned[id] = struct{}{}
		}
		cp.byType[t] = cloned
	}
	for k, entries := range s.byAttr {
		cp.byAttr[k] = append([]attrEntry(nil), entries...)
	}
	for k, id := range s.unique {
		cp.unique[k] = id
	}
	for k, set := range s.edgesByPos {
		cloned := make(map[EntityId]struct{}, len(set))
		for id := range set {
			cloned[id] = struct{}{}
		}
		cp.edgesByPos[k] = cloned
	}
	return cp
}

// Restore replaces the store's entire state with cp, discarding every
// write made since cp was captured (spec.md §6 "ROLLBACK"/"ROLLBACK TO").
func (s *Store) Restore(cp *Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[EntityId]*Entity, len(cp.entities))
	for id, e := range cp.entities {
		s.entities[id] = e.clone()
	}
	s.byType = make(map[string]map[EntityId]struct{}, len(cp.byType))
	for t, set := range cp.byType {
		cloned := make(map[EntityId]struct{}, len(set))
		for id := range set {
			cloned[id] = struct{}{}
		}
		s.byType[t] = cloned
	}
	s.byAttr = make(map[attrIndexKey][]attrEntry, len(cp.byAttr))
	for k, entries := range cp.byAttr {
		s.byAttr[k] = append([]attrEntry(nil), entries...)
	}
	s.unique = make(map[uniqueKey]EntityId, len(cp.unique))
	for k, id := range cp.unique {
		s.unique[k] = id
	}
	s.edgesByPos = make(map[edgePosKey]map[EntityId]struct{}, len(cp.edgesByPos))
	for k, set := range cp.edgesByPos {
		cloned := make(map[EntityId]struct{}, len(set))
		for id := range set {
			cloned[id] = struct{}{}
		}
		s.edgesByPos[k] = cloned
	}
}
