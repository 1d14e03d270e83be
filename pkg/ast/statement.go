package ast

// ActionKind enumerates the primitive mutation actions (spec.md §4.5).
type ActionKind string

const (
	ActionSpawn  ActionKind = "SPAWN"
	ActionLink   ActionKind = "LINK"
	ActionKill   ActionKind = "KILL"
	ActionUnlink ActionKind = "UNLINK"
	ActionSet    ActionKind = "SET"
)

// AttrAssign is one `attr = expr` entry in a SPAWN/LINK attribute literal
// block or a SET's right-hand side list.
type AttrAssign struct {
	Attr string  `yaml:"attr"`
	Expr ExprAST `yaml:"expr"`
}

// LinkTarget is one target position of a LINK action: either a reference
// to an already-bound variable/id, or an inline SPAWN (desugared per
// spec.md §4.5 "Inline SPAWN in LINK").
type LinkTarget struct {
	Var    string      `yaml:"var,omitempty"`
	Inline *ActionAST  `yaml:"inline,omitempty"`
}

// ActionAST is one primitive mutation action, used both as a top-level
// Mutation statement and as one step of a rule's Production (spec.md §4.7).
type ActionAST struct {
	Kind ActionKind `yaml:"kind"`

	// As binds the created/matched entity to a variable for later actions
	// in the same production or statement.
	As string `yaml:"as,omitempty"`

	// SPAWN fields.
	NodeType string       `yaml:"node_type,omitempty"`
	Attrs    []AttrAssign `yaml:"attrs,omitempty"`

	// LINK fields.
	EdgeType        string       `yaml:"edge_type,omitempty"`
	Targets         []LinkTarget `yaml:"targets,omitempty"`
	IfNotExists     bool         `yaml:"if_not_exists,omitempty"`

	// KILL/UNLINK/SET target a bound variable directly, or (bulk variant)
	// a MATCH pattern evaluated first against the pre-mutation state
	// (spec.md §4.5 "Bulk variants").
	Var     string      `yaml:"var,omitempty"`
	Match   *PatternAST `yaml:"match,omitempty"`

	// SET fields (single assignment `v.a = expr`; bulk SET may list several).
	Assignments []AttrAssign `yaml:"assignments,omitempty"`

	// Returning lists projection expressions for `RETURNING` (spec.md §4.5);
	// "*" is represented as a single AttrAssign-less marker handled by the
	// executor.
	Returning []string `yaml:"returning,omitempty"`
}

// IsolationLevel names the BEGIN modes spec.md §6 lists.
type IsolationLevel string

const (
	IsolationReadCommitted IsolationLevel = "READ_COMMITTED"
	IsolationSerializable  IsolationLevel = "SERIALIZABLE"
)

// StatementKind enumerates the top-level statement forms (spec.md §6).
type StatementKind string

const (
	StmtMatch       StatementKind = "MATCH"
	StmtMutation    StatementKind = "MUTATION"
	StmtBegin       StatementKind = "BEGIN"
	StmtCommit      StatementKind = "COMMIT"
	StmtRollback    StatementKind = "ROLLBACK"
	StmtSavepoint   StatementKind = "SAVEPOINT"
	StmtRollbackTo  StatementKind = "ROLLBACK_TO"
	StmtShowTypes   StatementKind = "SHOW_TYPES"
	StmtShowEdges   StatementKind = "SHOW_EDGES"
	StmtShowConstraints StatementKind = "SHOW_CONSTRAINTS"
	StmtShowRules   StatementKind = "SHOW_RULES"
	StmtCreateIndex StatementKind = "CREATE_INDEX"
	StmtDropIndex   StatementKind = "DROP_INDEX"
	StmtInspect     StatementKind = "INSPECT"
	StmtTrigger     StatementKind = "TRIGGER"
	StmtExplain     StatementKind = "EXPLAIN"
	StmtProfile     StatementKind = "PROFILE"
)

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Expr ExprAST `yaml:"expr"`
	Desc bool    `yaml:"desc,omitempty"`
}

// QueryAST is a MATCH...WHERE...RETURN statement (spec.md §6).
type QueryAST struct {
	Pattern  PatternAST `yaml:"pattern"`
	Return   []ExprAST  `yaml:"return"`
	Aliases  []string   `yaml:"aliases,omitempty"`
	OrderBy  []OrderKey `yaml:"order_by,omitempty"`
	Limit    *int       `yaml:"limit,omitempty"`
	Offset   *int       `yaml:"offset,omitempty"`
	Distinct bool       `yaml:"distinct,omitempty"`
}

// StatementAST is one top-level statement the kernel accepts (spec.md §6).
// Only the fields relevant to Kind are populated; this mirrors the
// teacher's ASTClause tagged-union approach in pkg/cypher/ast_builder.go,
// generalized to MEW's statement set.
type StatementAST struct {
	Kind StatementKind `yaml:"kind"`

	Query  *QueryAST  `yaml:"query,omitempty"`
	Action *ActionAST `yaml:"action,omitempty"`

	Isolation IsolationLevel `yaml:"isolation,omitempty"`
	Savepoint string         `yaml:"savepoint,omitempty"`

	// IndexType/IndexAttr name the target of CREATE/DROP INDEX.
	IndexType string `yaml:"index_type,omitempty"`
	IndexAttr string `yaml:"index_attr,omitempty"`

	// InspectID is the id in `INSPECT #id`.
	InspectID string `yaml:"inspect_id,omitempty"`

	// TriggerRule is the rule name in a manual TRIGGER statement.
	TriggerRule string `yaml:"trigger_rule,omitempty"`

	// DeadlineMillis is an optional statement-level deadline override
	// (spec.md §5 "Cancellation and timeouts"); 0 means "use the kernel
	// default from pkg/config".
	DeadlineMillis int64 `yaml:"deadline_ms,omitempty"`
}

// ScriptAST is a sequence of statements, the shape `ast.LoadScriptYAML`
// decodes for the `mew run` CLI subcommand (SPEC_FULL.md §C.2).
type ScriptAST struct {
	Statements []StatementAST `yaml:"statements"`
}
