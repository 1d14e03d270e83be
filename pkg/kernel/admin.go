package kernel

import (
	"sort"
	"strings"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// runShowTypes implements `SHOW TYPES` (SPEC_FULL.md §C.3): one row per
// declared node type naming its parents and full ancestor set.
func (k *Kernel) runShowTypes() *QueryResult {
	types := k.Registry.AllTypes()
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	rows := make([]match.Row, 0, len(types))
	for _, t := range types {
		rows = append(rows, match.Row{
			value.String(t.Name),
			value.Bool(t.Abstract),
			value.ListOf(stringsToValues(t.Parents)),
			value.ListOf(stringsToValues(sortedKeys(t.Ancestors))),
		})
	}
	cols := []string{"name", "abstract", "parents", "ancestors"}
	return &QueryResult{Columns: cols, Types: columnTypes(rows, len(cols)), Rows: rows}
}

// runShowEdges implements `SHOW EDGES`: one row per edge signature with
// its ordered position types and structural modifiers.
func (k *Kernel) runShowEdges() *QueryResult {
	edges := k.Registry.AllEdges()
	sort.Slice(edges, func(i, j int) bool { return edges[i].Name < edges[j].Name })

	rows := make([]match.Row, 0, len(edges))
	for _, e := range edges {
		positions := make([]string, len(e.Positions))
		for i, p := range e.Positions {
			positions[i] = p.Name + ":" + typeExprString(p.TypeExpr)
		}
		rows = append(rows, match.Row{
			value.String(e.Name),
			value.Int(int64(e.Arity())),
			value.ListOf(stringsToValues(positions)),
			value.Bool(e.NoSelf),
			value.Bool(e.Acyclic),
			value.Bool(e.Symmetric),
		})
	}
	cols := []string{"name", "arity", "positions", "no_self", "acyclic", "symmetric"}
	return &QueryResult{Columns: cols, Types: columnTypes(rows, len(cols)), Rows: rows}
}

// runShowConstraints implements `SHOW CONSTRAINTS`: one row per declared
// constraint naming its softness and dependency set.
func (k *Kernel) runShowConstraints() *QueryResult {
	cs := k.Registry.AllConstraints()
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })

	rows := make([]match.Row, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, match.Row{
			value.String(c.Name),
			value.Bool(c.Soft),
			value.String(c.Message),
			value.ListOf(stringsToValues(dependsOnList(c.DependsOn))),
		})
	}
	cols := []string{"name", "soft", "message", "depends_on"}
	return &QueryResult{Columns: cols, Types: columnTypes(rows, len(cols)), Rows: rows}
}

// runShowRules implements `SHOW RULES`: one row per declared rule naming
// its priority, auto-fire flag, and dependency set.
func (k *Kernel) runShowRules() *QueryResult {
	rs := k.Registry.AllRules()
	sort.Slice(rs, func(i, j int) bool { return rs[i].DeclarationOrder < rs[j].DeclarationOrder })

	rows := make([]match.Row, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, match.Row{
			value.String(r.Name),
			value.Int(int64(r.Priority)),
			value.Bool(r.Auto),
			value.ListOf(stringsToValues(dependsOnList(r.DependsOn))),
		})
	}
	cols := []string{"name", "priority", "auto", "depends_on"}
	return &QueryResult{Columns: cols, Types: columnTypes(rows, len(cols)), Rows: rows}
}

// runInspect implements `INSPECT #id` (SPEC_FULL.md §C.3): the full
// entity — type, alive bit, targets (edges only), and every attribute —
// as a single-row Query result.
func (k *Kernel) runInspect(id string) (*QueryResult, error) {
	ent, ok := k.Store.Get(store.EntityId(id))
	if !ok {
		return nil, kernelerr.New(kernelerr.AnalysisError, "INSPECT: no entity %q", id).WithEntity(id)
	}

	cols := []string{"id", "type", "alive", "targets"}
	row := match.Row{
		k.Store.RefOf(ent.ID),
		value.String(ent.TypeTag),
		value.Bool(ent.Alive),
		value.ListOf(targetRefs(k.Store, ent.Targets)),
	}
	for _, name := range ent.AttrNames() {
		v, _ := ent.Attr(name)
		cols = append(cols, name)
		row = append(row, v)
	}
	rows := []match.Row{row}
	return &QueryResult{Columns: cols, Types: columnTypes(rows, len(cols)), Rows: rows}, nil
}

// runIndexStatement handles CREATE INDEX / DROP INDEX. The store
// maintains the by-attribute index for every attribute unconditionally
// (pkg/store.Store.SetAttr), regardless of any declared [indexed]
// modifier, and unique values are claimed by the mutation engine from the
// compiled [unique] modifier, so these statements have no physical
// storage effect to perform — they are acknowledged declaratively.
func (k *Kernel) runIndexStatement(stmt ast.StatementAST) error {
	if _, ok := k.Registry.Type(stmt.IndexType); !ok {
		if _, ok := k.Registry.Edge(stmt.IndexType); !ok {
			return kernelerr.New(kernelerr.AnalysisError, "%s: unknown type %q", stmt.Kind, stmt.IndexType)
		}
	}
	return nil
}

func stringsToValues(ss []string) []value.Value {
	vs := make([]value.Value, len(ss))
	for i, s := range ss {
		vs[i] = value.String(s)
	}
	return vs
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dependsOnList(d registry.DependencySet) []string {
	out := make([]string, 0, len(d.NodeTypes)+len(d.EdgeTypes))
	out = append(out, sortedKeys(d.NodeTypes)...)
	out = append(out, sortedKeys(d.EdgeTypes)...)
	sort.Strings(out)
	return out
}

func targetRefs(s *store.Store, targets []store.EntityId) []value.Value {
	if targets == nil {
		return nil
	}
	vs := make([]value.Value, len(targets))
	for i, t := range targets {
		vs[i] = s.RefOf(t)
	}
	return vs
}

// typeExprString renders a TypeExpr for SHOW EDGES display.
func typeExprString(te ast.TypeExpr) string {
	switch te.Kind {
	case ast.TypeExprNode:
		return te.Name
	case ast.TypeExprEdgeOf:
		return "edge<" + te.EdgeType + ">"
	case ast.TypeExprAny:
		return "any"
	case ast.TypeExprUnion:
		parts := make([]string, len(te.Union))
		for i, u := range te.Union {
			parts[i] = typeExprString(u)
		}
		return strings.Join(parts, "|")
	default:
		return "?"
	}
}
