package ast

// VarDecl declares a pattern variable's expected type (spec.md §4.4).
type VarDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// EdgePatternAST is one `E(v1,...,vn)` term of a pattern, optionally
// transitive (`E+`/`E*`).
type EdgePatternAST struct {
	// As binds the edge instance itself to a variable, e.g. `causes(a,b) AS ce`.
	As string `yaml:"as,omitempty"`
	EdgeType string `yaml:"edge_type"`
	// Positions holds a variable name per position, or "_" for anonymous.
	Positions []string `yaml:"positions"`

	Transitive bool `yaml:"transitive,omitempty"`
	// Mode is "+" (one or more) or "*" (zero or more, i.e. a=b included).
	Mode string `yaml:"mode,omitempty"`
	// DepthMin/DepthMax implement `[depth: lo..hi]`; nil means unspecified
	// (DefaultTransitiveDepth from pkg/config applies as the max).
	DepthMin *int `yaml:"depth_min,omitempty"`
	DepthMax *int `yaml:"depth_max,omitempty"`
}

// PatternAST is the pattern language of spec.md §4.4: bound variables,
// edge terms, nested EXISTS/NOT EXISTS subpatterns, and a guard expression.
type PatternAST struct {
	Vars  []VarDecl        `yaml:"vars,omitempty"`
	Edges []EdgePatternAST `yaml:"edges,omitempty"`

	Exists    []PatternAST `yaml:"exists,omitempty"`
	NotExists []PatternAST `yaml:"not_exists,omitempty"`

	// Guard is an optional boolean expression evaluated against the
	// pattern's bindings (the WHERE clause).
	Guard *ExprAST `yaml:"guard,omitempty"`
}

// ExprKind tags which variant of ExprAST is populated.
type ExprKind string

const (
	ExprLiteral   ExprKind = "literal"
	ExprVar       ExprKind = "var"
	ExprAttr      ExprKind = "attr"
	ExprParam     ExprKind = "param"
	ExprCall      ExprKind = "call"
	ExprBinOp     ExprKind = "binop"
	ExprUnOp      ExprKind = "unop"
	ExprTypeCheck ExprKind = "typecheck"
	ExprAggregate ExprKind = "aggregate"
)

// ExprAST is the kernel's expression tree: literals, variable/attribute
// references, parameters, built-in calls, binary/unary operators, the
// `v:T` type-check, and pattern-based aggregates (spec.md §4.4, §6).
type ExprAST struct {
	Kind ExprKind `yaml:"kind"`

	Literal *LiteralAST `yaml:"literal,omitempty"`

	// Var is the variable name, when Kind == ExprVar or ExprAttr/ExprTypeCheck.
	Var string `yaml:"var,omitempty"`
	// Attr is the attribute name, when Kind == ExprAttr.
	Attr string `yaml:"attr,omitempty"`
	// Param is the parameter name (without the leading $), when Kind == ExprParam.
	Param string `yaml:"param,omitempty"`

	// Func/Args apply when Kind == ExprCall.
	Func string    `yaml:"func,omitempty"`
	Args []ExprAST `yaml:"args,omitempty"`

	// Op/Left/Right apply when Kind == ExprBinOp ("+","-","*","/","%","++",
	// "=","<>","<","<=",">",">=","and","or","??").
	Op    string   `yaml:"op,omitempty"`
	Left  *ExprAST `yaml:"left,omitempty"`
	Right *ExprAST `yaml:"right,omitempty"`

	// UnOp/Operand apply when Kind == ExprUnOp ("-","not","is_null","is_not_null").
	UnOp    string   `yaml:"unop,omitempty"`
	Operand *ExprAST `yaml:"operand,omitempty"`

	// TypeCheckType is T in `v:T`, when Kind == ExprTypeCheck.
	TypeCheckType string `yaml:"typecheck_type,omitempty"`

	// Aggregate fields apply when Kind == ExprAggregate: `COUNT(x: T, edge(a,x))`.
	AggregateFn      string       `yaml:"aggregate_fn,omitempty"`
	AggregateVar     string       `yaml:"aggregate_var,omitempty"`
	AggregatePattern *PatternAST  `yaml:"aggregate_pattern,omitempty"`
	AggregateArg     *ExprAST     `yaml:"aggregate_arg,omitempty"`
}

// LiteralKind tags which field of LiteralAST is populated.
type LiteralKind string

const (
	LitNull      LiteralKind = "null"
	LitBool      LiteralKind = "bool"
	LitInt       LiteralKind = "int"
	LitFloat     LiteralKind = "float"
	LitString    LiteralKind = "string"
	LitTimestamp LiteralKind = "timestamp"
	LitDuration  LiteralKind = "duration"
	LitIDRef     LiteralKind = "id_ref"
)

// LiteralAST is a literal value per spec.md §6's literal syntax contracts.
type LiteralAST struct {
	Kind LiteralKind `yaml:"kind"`
	Bool bool        `yaml:"bool,omitempty"`
	Int  int64       `yaml:"int,omitempty"`
	Float float64    `yaml:"float,omitempty"`
	Str  string      `yaml:"str,omitempty"`
	// TimestampMs / DurationMs hold the literal's value in milliseconds,
	// already resolved from `@YYYY-MM-DD...` / duration-suffix syntax by
	// the (out-of-scope) surface grammar.
	TimestampMs int64 `yaml:"timestamp_ms,omitempty"`
	DurationMs  int64 `yaml:"duration_ms,omitempty"`
	// IDRef holds the referenced EntityId string, when Kind == LitIDRef.
	IDRef string `yaml:"id_ref,omitempty"`
}
