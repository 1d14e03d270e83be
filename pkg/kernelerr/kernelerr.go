// Package kernelerr defines the structured error family the kernel returns
// at every public boundary, generalizing nornicdb's single-purpose
// storage.ConstraintViolationError into the full set of error kinds a
// hypergraph kernel can produce.
package kernelerr

import "fmt"

// Kind distinguishes the disjoint error categories.
type Kind string

const (
	// SchemaError covers unknown types in declarations, inheritance
	// cycles, and incompatible attribute merges during ontology compile.
	SchemaError Kind = "SchemaError"
	// AnalysisError covers unknown names, type mismatches, wrong arity,
	// and undefined attributes discovered while analyzing a statement.
	AnalysisError Kind = "AnalysisError"
	// ConstraintError covers a failed hard constraint, a unique
	// collision, cardinality out of bounds, or an acyclic violation.
	ConstraintError Kind = "ConstraintError"
	// IntegrityError covers a triggered `prevent` referential action, a
	// required attribute set to null, or a dangling target at commit.
	IntegrityError Kind = "IntegrityError"
	// RuleError covers a rule cycle, an exceeded action limit, or a
	// production type mismatch.
	RuleError Kind = "RuleError"
	// RuntimeError covers divide-by-zero, a [match] regex mismatch, or
	// an enum violation discovered at runtime.
	RuntimeError Kind = "RuntimeError"
	// TimeoutError is raised when a statement deadline is reached.
	TimeoutError Kind = "TimeoutError"
	// TransactionError covers COMMIT without BEGIN, an unknown
	// savepoint on ROLLBACK TO, or a nested BEGIN.
	TransactionError Kind = "TransactionError"
	// FatalError is the only path to an unchecked panic: corrupted
	// internal index state. Never produced by well-typed input.
	FatalError Kind = "FatalError"
)

// Span locates an error within a statement, when the caller supplied one.
type Span struct {
	Start int
	End   int
	Line  int
	Col   int
}

// KernelError is the single structured error type returned at every public
// boundary (spec.md §7, §9 "Exceptions vs result types").
type KernelError struct {
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Location is the statement span the error applies to, if known.
	Location *Span
	// EntityID names the first offending entity, if any (e.g. the
	// dangling target, the entity with the unique collision).
	EntityID string
	// ConstraintName names the violated constraint or rule, if any.
	ConstraintName string
	// Cause wraps an underlying error, if any.
	Cause error
}

func (e *KernelError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.ConstraintName != "" {
		msg = fmt.Sprintf("%s (constraint %q)", msg, e.ConstraintName)
	}
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s (entity %s)", msg, e.EntityID)
	}
	if e.Location != nil {
		msg = fmt.Sprintf("%s [line %d, col %d]", msg, e.Location.Line, e.Location.Col)
	}
	return msg
}

// Unwrap exposes Cause for errors.Is/errors.As.
func (e *KernelError) Unwrap() error { return e.Cause }

// New constructs a KernelError of the given kind.
func New(kind Kind, format string, args ...interface{}) *KernelError {
	return &KernelError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a KernelError of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *KernelError {
	return &KernelError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithEntity returns a copy of e with EntityID set.
func (e *KernelError) WithEntity(id string) *KernelError {
	c := *e
	c.EntityID = id
	return &c
}

// WithConstraint returns a copy of e with ConstraintName set.
func (e *KernelError) WithConstraint(name string) *KernelError {
	c := *e
	c.ConstraintName = name
	return &c
}

// WithLocation returns a copy of e with Location set.
func (e *KernelError) WithLocation(loc *Span) *KernelError {
	c := *e
	c.Location = &(*loc)
	return &c
}

// Warning is a soft-constraint violation or diagnostic that rides alongside
// a successful Result rather than aborting the statement (spec.md §7, §4.4
// truncation diagnostics).
type Warning struct {
	// Source names what produced the warning: a constraint name, an
	// operator name ("TransitiveExpand" for transitive-depth truncation),
	// etc.
	Source string
	Message string
}

func (w Warning) String() string {
	if w.Source == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Source, w.Message)
}

// IsKind reports whether err is a *KernelError of the given kind.
func IsKind(err error, kind Kind) bool {
	ke, ok := err.(*KernelError)
	if !ok {
		return false
	}
	return ke.Kind == kind
}
