// Package snapshot adapts a committed GraphStore version into a durable
// Badger-backed export/import pair (SPEC_FULL.md §C.1). It is deliberately
// kernel-external: no in-flight transaction ever touches it, and it is not
// part of the transactional kernel spec.md §1 scopes persistence out of —
// it exists so the `mew snapshot save|load` CLI subcommand has a concrete
// round trip to drive.
//
// Mirrors nornicdb's pkg/storage.BadgerEngine (single-byte key prefix,
// JSON-encoded values, one badger.DB per data directory) and
// pkg/storage.ToNeo4jExport/FromNeo4jExport (the property/attribute
// round-trip through a JSON-safe intermediate shape), adapted from
// nornicdb's separate Node/Edge id spaces to MEW's single EntityId space.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// entityKeyPrefix is the sole key prefix this package uses: every
// snapshotted entity, node or edge alike, lives in one keyspace since MEW
// shares one EntityId space across both (spec.md §3), unlike nornicdb's
// separate prefixNode/prefixEdge byte tags.
const entityKeyPrefix = "entity:"

// encodedValue is value.Value's JSON-safe mirror: value.Value's fields are
// unexported, so round-tripping through Badger needs an explicit,
// versionless wire shape keyed by Kind.
type encodedValue struct {
	Kind  string         `json:"kind"`
	Bool  bool           `json:"bool,omitempty"`
	Int   int64          `json:"int,omitempty"`
	Float float64        `json:"float,omitempty"`
	Str   string         `json:"str,omitempty"`
	List  []encodedValue `json:"list,omitempty"`
}

func encodeValue(v value.Value) encodedValue {
	e := encodedValue{Kind: v.Kind().String()}
	switch v.Kind() {
	case value.KindBool:
		e.Bool = v.AsBool()
	case value.KindInt:
		e.Int = v.AsInt()
	case value.KindFloat:
		e.Float = v.AsFloat()
	case value.KindString:
		e.Str = v.AsString()
	case value.KindTimestamp, value.KindDuration:
		e.Int = v.AsMillis()
	case value.KindNodeRef, value.KindEdgeRef:
		e.Str = v.AsRef()
	case value.KindList:
		items := v.AsList()
		e.List = make([]encodedValue, len(items))
		for i, item := range items {
			e.List[i] = encodeValue(item)
		}
	}
	return e
}

func decodeValue(e encodedValue) value.Value {
	switch e.Kind {
	case "Bool":
		return value.Bool(e.Bool)
	case "Int":
		return value.Int(e.Int)
	case "Float":
		return value.Float(e.Float)
	case "String":
		return value.String(e.Str)
	case "Timestamp":
		return value.Timestamp(e.Int)
	case "Duration":
		return value.Duration(e.Int)
	case "NodeRef":
		return value.NodeRef(e.Str)
	case "EdgeRef":
		return value.EdgeRef(e.Str)
	case "List":
		items := make([]value.Value, len(e.List))
		for i, item := range e.List {
			items[i] = decodeValue(item)
		}
		return value.ListOf(items)
	default:
		return value.Null()
	}
}

// encodedEntity is one store.Entity's JSON-safe mirror.
type encodedEntity struct {
	ID        string                  `json:"id"`
	TypeTag   string                  `json:"type_tag"`
	Targets   []string                `json:"targets,omitempty"`
	IsEdge    bool                    `json:"is_edge"`
	AttrOrder []string                `json:"attr_order,omitempty"`
	Attrs     map[string]encodedValue `json:"attrs,omitempty"`
}

func encodeEntity(e *store.Entity) encodedEntity {
	enc := encodedEntity{ID: string(e.ID), TypeTag: e.TypeTag, IsEdge: e.IsEdge()}
	if e.IsEdge() {
		enc.Targets = make([]string, len(e.Targets))
		for i, t := range e.Targets {
			enc.Targets[i] = string(t)
		}
	}
	names := e.AttrNames()
	if len(names) > 0 {
		enc.AttrOrder = names
		enc.Attrs = make(map[string]encodedValue, len(names))
		for _, name := range names {
			v, _ := e.Attr(name)
			enc.Attrs[name] = encodeValue(v)
		}
	}
	return enc
}

func decodeEntity(enc encodedEntity) *store.Entity {
	e := &store.Entity{ID: store.EntityId(enc.ID), TypeTag: enc.TypeTag, Alive: true}
	if enc.IsEdge {
		e.Targets = make([]store.EntityId, len(enc.Targets))
		for i, t := range enc.Targets {
			e.Targets[i] = store.EntityId(t)
		}
	}
	for _, name := range enc.AttrOrder {
		e.SetAttr(name, decodeValue(enc.Attrs[name]))
	}
	return e
}

// Export walks every live entity in s and writes it into db, one Badger
// key per entity, batched in a single transaction the way nornicdb's
// BulkCreateNodes/BulkCreateEdges commit as one unit.
func Export(db *badger.DB, s *store.Store) error {
	entities := s.Snapshot()
	return db.Update(func(txn *badger.Txn) error {
		for _, e := range entities {
			enc := encodeEntity(e)
			data, err := json.Marshal(enc)
			if err != nil {
				return fmt.Errorf("snapshot: encode entity %s: %w", e.ID, err)
			}
			if err := txn.Set([]byte(entityKeyPrefix+string(e.ID)), data); err != nil {
				return fmt.Errorf("snapshot: write entity %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// Import reads every entity key out of db and loads them into s, then
// reclaims the unique-attribute index for every [unique] attribute reg
// declares — store.Load itself has no Registry to consult, so it leaves
// that index for the caller to populate once loading completes.
func Import(db *badger.DB, s *store.Store, reg *registry.Registry) error {
	var entities []*store.Entity
	err := db.View(func(txn *badger.Txn) error {
		prefix := []byte(entityKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var enc encodedEntity
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &enc)
			}); err != nil {
				return fmt.Errorf("snapshot: decode entity %s: %w", item.Key(), err)
			}
			entities = append(entities, decodeEntity(enc))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Load(entities)
	reclaimUniques(s, reg)
	return nil
}

func reclaimUniques(s *store.Store, reg *registry.Registry) {
	for _, t := range reg.AllTypes() {
		for _, attr := range t.Attrs {
			if !attr.Modifiers.Unique {
				continue
			}
			for _, id := range s.IterOfType(t.Name) {
				v, ok, err := s.GetAttr(id, attr.Name)
				if err != nil || !ok || v.IsNull() {
					continue
				}
				s.ClaimUnique(t.Name, attr.Name, v, id)
			}
		}
	}
}

// Open opens (creating if absent) a Badger database rooted at dir, using
// nornicdb's default options — disk-backed, synced on Close rather than
// per-write, matching a one-shot export/import tool rather than a
// continuously-written engine.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", dir, err)
	}
	return db, nil
}

// SaveToDir opens dir as a fresh Badger database and exports s into it,
// closing the database before returning.
func SaveToDir(dir string, s *store.Store) error {
	db, err := Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	return Export(db, s)
}

// LoadFromDir opens dir as an existing Badger database and imports its
// entities into s, reclaiming reg's unique-attribute index as it does.
func LoadFromDir(dir string, s *store.Store, reg *registry.Registry) error {
	db, err := Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	return Import(db, s, reg)
}
