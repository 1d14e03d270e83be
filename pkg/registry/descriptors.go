// Package registry holds the Registry (spec.md §4.2): compiled artifacts
// produced by the Compiler — the flattened type table, edge signatures,
// constraint and rule descriptors with their dependency sets, and a plan
// cache keyed by statement fingerprint. The Registry is immutable while any
// transaction is in flight; Publish is the only way to replace its
// contents, and it does so atomically.
//
// Mirrors nornicdb's pkg/storage.SchemaManager (mutex-guarded maps
// for constraints/indexes) for the descriptor-table shape, and
// pkg/cypher.QueryCache for the plan-cache shape.
package registry

import (
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/value"
)

// AttrDescriptor is a compiled, flattened attribute declaration (inherited
// attributes are merged in by the Compiler before publish).
type AttrDescriptor struct {
	Name      string
	Type      ast.ScalarType
	Optional  bool
	Default   *value.Value
	Modifiers ast.AttrModifiers
}

// NodeTypeDescriptor is a compiled node type: its declared parents, its
// full transitive ancestor and descendant sets (spec.md §4.3 item 2), and
// its flattened attribute table.
type NodeTypeDescriptor struct {
	Name        string
	Parents     []string
	Abstract    bool
	Ancestors   map[string]struct{}
	Descendants map[string]struct{} // includes Name itself
	Attrs       map[string]AttrDescriptor
}

// PositionDescriptor is one compiled edge position.
type PositionDescriptor struct {
	Name              string
	TypeExpr          ast.TypeExpr
	ReferentialAction ast.ReferentialAction
}

// EdgeSignatureDescriptor is a compiled edge type: its ordered positions
// (arity = len(Positions)), attributes, and structural modifiers.
type EdgeSignatureDescriptor struct {
	Name        string
	Positions   []PositionDescriptor
	Attrs       map[string]AttrDescriptor
	NoSelf      bool
	Acyclic     bool
	Symmetric   bool
	Cardinality []ast.CardinalityDecl
}

// Arity is the number of positions this edge type declares.
func (e *EdgeSignatureDescriptor) Arity() int { return len(e.Positions) }

// DependencySet names the node and edge types whose mutation can change
// whether a constraint's or rule's pattern gains or loses matches (spec.md
// §4.2, §4.6, §4.7, GLOSSARY "Dependency set").
type DependencySet struct {
	NodeTypes map[string]struct{}
	EdgeTypes map[string]struct{}
}

// Intersects reports whether any of delta's affected types appear in d.
func (d DependencySet) Intersects(delta DependencySet) bool {
	for t := range delta.NodeTypes {
		if _, ok := d.NodeTypes[t]; ok {
			return true
		}
	}
	for t := range delta.EdgeTypes {
		if _, ok := d.EdgeTypes[t]; ok {
			return true
		}
	}
	return false
}

// NewDependencySet constructs an empty set.
func NewDependencySet() DependencySet {
	return DependencySet{NodeTypes: map[string]struct{}{}, EdgeTypes: map[string]struct{}{}}
}

// ConstraintDescriptor is a compiled constraint (spec.md §4.6).
type ConstraintDescriptor struct {
	Name       string
	Soft       bool
	Message    string
	Pattern    ast.PatternAST
	Guard      ast.ExprAST
	HasGuard   bool
	Negate     bool
	DependsOn  DependencySet
}

// RuleDescriptor is a compiled rule (spec.md §4.7).
type RuleDescriptor struct {
	Name             string
	Priority         int
	Auto             bool
	Pattern          ast.PatternAST
	Production       []ast.ActionAST
	DeclarationOrder int
	DependsOn        DependencySet
}
