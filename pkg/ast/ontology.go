// Package ast defines the AST shapes the Compiler and Analyzer accept.
// spec.md §1 treats the surface grammar as an out-of-scope collaborator —
// "the compiler accepts an AST; the grammar is a collaborator contract" — so
// these types ARE that contract: nothing in this package parses text. The
// YAML loaders in yaml.go exist only so the cmd/mew demonstration CLI (see
// SPEC_FULL.md §C.2) has a concrete, human-editable way to build one.
//
// Shape mirrors nornicdb's pkg/cypher/ast_builder.go (ASTBuilder /
// AST / ASTClause), generalized from Cypher's property-graph clauses to
// MEW's hypergraph ontology and statement constructs.
package ast

// OntologyAST is the Compiler's input: declarations of node types, edge
// types, constraints, and rules (spec.md §4.3).
type OntologyAST struct {
	Types       []NodeTypeDecl   `yaml:"types"`
	Edges       []EdgeTypeDecl   `yaml:"edges"`
	Constraints []ConstraintDecl `yaml:"constraints"`
	Rules       []RuleDecl       `yaml:"rules"`
}

// NodeTypeDecl declares a node type (spec.md §3 "Declared types").
type NodeTypeDecl struct {
	Name     string     `yaml:"name"`
	Parents  []string   `yaml:"parents,omitempty"`
	Abstract bool       `yaml:"abstract,omitempty"`
	Attrs    []AttrDecl `yaml:"attrs,omitempty"`
}

// EdgeTypeDecl declares an edge type: ordered positions, optional attrs,
// and structural modifiers. Edge types do not inherit (spec.md §3).
type EdgeTypeDecl struct {
	Name      string          `yaml:"name"`
	Positions []PositionDecl  `yaml:"positions"`
	Attrs     []AttrDecl      `yaml:"attrs,omitempty"`
	NoSelf    bool            `yaml:"no_self,omitempty"`
	Acyclic   bool            `yaml:"acyclic,omitempty"`
	Symmetric bool            `yaml:"symmetric,omitempty"`
	Cardinality []CardinalityDecl `yaml:"cardinality,omitempty"`
}

// PositionDecl names one position of an edge type, its admissible types,
// and what happens to the edge when the entity occupying this position is
// killed (spec.md §4.5 "referential actions"). An empty ReferentialAction
// defaults to Cascade.
type PositionDecl struct {
	Name              string            `yaml:"name"`
	TypeExpr          TypeExpr          `yaml:"type"`
	ReferentialAction ReferentialAction `yaml:"on_kill,omitempty"`
}

// ReferentialAction names the three referential actions spec.md §4.5's
// table lists for edges incident on a killed entity.
type ReferentialAction string

const (
	// RefCascade kills the incident edge too (which may cascade further,
	// transitively, to edges incident on it in turn). The default.
	RefCascade ReferentialAction = "cascade"
	// RefUnlink tombstones the incident edge directly without cascading
	// to whatever is incident on the edge itself.
	RefUnlink ReferentialAction = "unlink"
	// RefPrevent aborts the KILL with an IntegrityError instead of
	// touching the incident edge at all.
	RefPrevent ReferentialAction = "prevent"
)

// OrDefault returns ra, or RefCascade if ra is the zero value.
func (ra ReferentialAction) OrDefault() ReferentialAction {
	if ra == "" {
		return RefCascade
	}
	return ra
}

// TypeExprKind distinguishes the forms a position's type expression can take.
type TypeExprKind int

const (
	TypeExprNode TypeExprKind = iota
	TypeExprEdgeOf
	TypeExprUnion
	TypeExprAny
)

// TypeExpr models a position's admissible-type set: a node type, edge<T>,
// a union, or any (spec.md §3 "Type expressions").
type TypeExpr struct {
	Kind TypeExprKind `yaml:"kind"`
	// Name is the node type name, when Kind == TypeExprNode.
	Name string `yaml:"name,omitempty"`
	// EdgeType is T in edge<T>, when Kind == TypeExprEdgeOf. "any" admits
	// any edge type.
	EdgeType string `yaml:"edge_type,omitempty"`
	// Union holds the member expressions, when Kind == TypeExprUnion. Nested
	// unions are kept as written here; the Compiler flattens them when it
	// builds edge signatures.
	Union []TypeExpr `yaml:"union,omitempty"`
}

// CardinalityDecl is a `[role -> N]` or `[role -> N..M]` bound on an edge
// type's role (spec.md §3 invariant 8).
type CardinalityDecl struct {
	Role string `yaml:"role"`
	Min  int    `yaml:"min"`
	Max  int    `yaml:"max"` // -1 means unbounded
}

// ScalarType enumerates the attribute scalar kinds (spec.md §3 "Attributes").
type ScalarType string

const (
	ScalarBool      ScalarType = "Bool"
	ScalarInt       ScalarType = "Int"
	ScalarFloat     ScalarType = "Float"
	ScalarString    ScalarType = "String"
	ScalarTimestamp ScalarType = "Timestamp"
	ScalarDuration  ScalarType = "Duration"
)

// AttrDecl declares one attribute on a node or edge type.
type AttrDecl struct {
	Name     string         `yaml:"name"`
	Type     ScalarType     `yaml:"type"`
	Optional bool           `yaml:"optional,omitempty"`
	Default  *LiteralAST    `yaml:"default,omitempty"`
	Modifiers AttrModifiers `yaml:"modifiers,omitempty"`
}

// AttrModifiers holds the validation modifiers spec.md §3 lists.
type AttrModifiers struct {
	Unique  bool         `yaml:"unique,omitempty"`
	Indexed bool         `yaml:"indexed,omitempty"`
	In      []LiteralAST `yaml:"in,omitempty"`
	Format  string       `yaml:"format,omitempty"`
	Match   string       `yaml:"match,omitempty"`
	Min     *float64     `yaml:"min,omitempty"`
	Max     *float64     `yaml:"max,omitempty"`
	LenMin  *int         `yaml:"len_min,omitempty"`
	LenMax  *int         `yaml:"len_max,omitempty"`
}

// ConstraintDecl declares a hard or soft constraint (spec.md §4.6).
type ConstraintDecl struct {
	Name    string      `yaml:"name"`
	Soft    bool        `yaml:"soft,omitempty"`
	Message string      `yaml:"message,omitempty"`
	Pattern PatternAST  `yaml:"pattern"`
	// Guard is the boolean-expr the pattern must satisfy for every match;
	// an absent Guard with Negate set means "pattern must have no matches".
	Guard  ExprAST `yaml:"guard"`
	Negate bool    `yaml:"negate,omitempty"`
}

// RuleDecl declares an auto or manual rewrite rule (spec.md §4.7).
type RuleDecl struct {
	Name       string      `yaml:"name"`
	Priority   int         `yaml:"priority"`
	Auto       bool        `yaml:"auto"`
	Pattern    PatternAST  `yaml:"pattern"`
	Production []ActionAST `yaml:"production"`
}
