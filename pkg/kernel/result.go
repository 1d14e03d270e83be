package kernel

import (
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// ResultKind tags which variant of Result is populated (spec.md §6
// "Statement result").
type ResultKind string

const (
	ResultQuery       ResultKind = "Query"
	ResultMutation    ResultKind = "Mutation"
	ResultMixed       ResultKind = "Mixed"
	ResultTransaction ResultKind = "Transaction"
	ResultEmpty       ResultKind = "Empty"
)

// TransactionStatus names the outcome of a COMMIT or ROLLBACK (spec.md §6
// "Transaction{status: Committed|Rolledback}").
type TransactionStatus string

const (
	Committed  TransactionStatus = "COMMITTED"
	Rolledback TransactionStatus = "ROLLEDBACK"
)

// QueryResult is one MATCH statement's projected output (spec.md §6
// "Query{columns, types, rows}"). Types holds, per column, the value.Kind
// name of the first row's entry in that column, or "Null" if rows is
// empty — the core has no static type system to consult instead, so the
// reported type is the runtime kind actually produced.
type QueryResult struct {
	Columns []string
	Types   []string
	Rows    []match.Row
}

// MutationResult is one Mutation statement's effect: every id created,
// killed, or updated, plus the RETURNING projection if the statement
// requested one (spec.md §6 "Mutation{created, killed, updated,
// returning?}").
type MutationResult struct {
	Created   []store.EntityId
	Killed    []store.EntityId
	Updated   []store.EntityId
	Returning *QueryResult
}

// Result is the tagged union every statement produces (spec.md §6).
type Result struct {
	Kind ResultKind

	Query       *QueryResult
	Mutation    *MutationResult
	Transaction TransactionStatus
}

func emptyResult() *Result { return &Result{Kind: ResultEmpty} }

func queryResult(q *QueryResult) *Result { return &Result{Kind: ResultQuery, Query: q} }

func mutationResult(m *MutationResult) *Result { return &Result{Kind: ResultMutation, Mutation: m} }

func mixedResult(m *MutationResult, q *QueryResult) *Result {
	return &Result{Kind: ResultMixed, Mutation: m, Query: q}
}

func transactionResult(status TransactionStatus) *Result {
	return &Result{Kind: ResultTransaction, Transaction: status}
}

// columnTypes derives the reported type name for each column from the
// first row, per QueryResult's doc comment.
func columnTypes(rows []match.Row, ncols int) []string {
	types := make([]string, ncols)
	for i := range types {
		if len(rows) > 0 {
			types[i] = rows[0][i].Kind().String()
		} else {
			types[i] = value.Null().Kind().String()
		}
	}
	return types
}

// ExecOutcome bundles a statement's Result with any non-fatal warnings
// accumulated while producing it (spec.md §7 "Soft-constraint violations
// are warnings ... returned alongside the success result").
type ExecOutcome struct {
	Result   *Result
	Warnings []kernelerr.Warning
}
