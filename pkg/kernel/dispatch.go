package kernel

import (
	"context"
	"fmt"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/value"
)

// execMatch runs a read-only MATCH...RETURN statement. Reads are never
// wrapped in a transaction (spec.md §5 "Readers ... are not blocked by
// writers"): the Store applies every write in place as it happens, so a
// MATCH issued inside an explicit BEGIN already observes that
// transaction's own uncommitted writes, and one issued outside any BEGIN
// simply observes the last committed state.
func (k *Kernel) execMatch(ctx context.Context, stmt ast.StatementAST, params map[string]value.Value) (*ExecOutcome, error) {
	q, warnings, err := k.runQuery(ctx, stmt.Query, params)
	if err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: queryResult(q), Warnings: warnings}, nil
}

// execMutation runs one top-level SPAWN/LINK/KILL/UNLINK/SET statement,
// auto-committing if no explicit transaction is active (spec.md §4.8
// "Modes"). Either way the statement's own writes are checkpointed first,
// so an AnalysisError partway through (e.g. an inline SPAWN that
// succeeds before a later target reference fails to resolve) leaves no
// store effect (spec.md §7 "Fails statement; no store effect"), distinct
// from the enclosing transaction's own ROLLBACK scope.
func (k *Kernel) execMutation(ctx context.Context, stmt ast.StatementAST, params map[string]value.Value) (*ExecOutcome, error) {
	tx := k.Txn.Active()
	autocommit := tx == nil
	if autocommit {
		var err error
		tx, err = k.Txn.Begin(ast.IsolationReadCommitted)
		if err != nil {
			return nil, err
		}
	}

	cp := k.Store.Checkpoint()
	mr, mrWarnings, err := k.runMutation(ctx, tx.Session, stmt.Action, params)
	if err != nil {
		k.Store.Restore(cp)
		if autocommit {
			_ = k.Txn.Rollback(tx)
		}
		return nil, err
	}

	if !autocommit {
		return &ExecOutcome{Result: mutationResult(mr), Warnings: mrWarnings}, nil
	}

	warnings, err := k.Txn.Commit(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: mutationResult(mr), Warnings: append(mrWarnings, warnings...)}, nil
}

// execTrigger implements a manual `TRIGGER rule_name` statement (spec.md
// §4.7 "Manual rules are not evaluated automatically; a TRIGGER statement
// invokes one"), auto-committing exactly like execMutation.
func (k *Kernel) execTrigger(ctx context.Context, stmt ast.StatementAST, params map[string]value.Value) (*ExecOutcome, error) {
	rd, ok := k.Registry.Rule(stmt.TriggerRule)
	if !ok {
		return nil, kernelerr.New(kernelerr.AnalysisError, "TRIGGER: unknown rule %q", stmt.TriggerRule)
	}

	tx := k.Txn.Active()
	autocommit := tx == nil
	if autocommit {
		var err error
		tx, err = k.Txn.Begin(ast.IsolationReadCommitted)
		if err != nil {
			return nil, err
		}
	}

	cp := k.Store.Checkpoint()
	if err := k.Txn.RuleEng.FireRule(ctx, tx.Session, params, rd); err != nil {
		k.Store.Restore(cp)
		if autocommit {
			_ = k.Txn.Rollback(tx)
		}
		return nil, err
	}

	if !autocommit {
		return &ExecOutcome{Result: emptyResult()}, nil
	}

	warnings, err := k.Txn.Commit(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: emptyResult(), Warnings: warnings}, nil
}

// execExplain implements `EXPLAIN`: describes a query's pattern — bound
// variables, edge terms, and EXISTS/NOT EXISTS nesting — without
// executing it against the store, extending nornicdb's "describe, don't
// execute" idiom for SHOW (apoc/meta) to a single statement's own plan
// (SPEC_FULL.md §C.3).
func (k *Kernel) execExplain(stmt ast.StatementAST) (*ExecOutcome, error) {
	if stmt.Query == nil {
		return nil, kernelerr.New(kernelerr.AnalysisError, "EXPLAIN requires a query")
	}
	rows := explainPattern(stmt.Query.Pattern, 0)
	cols := []string{"depth", "description"}
	return &ExecOutcome{Result: queryResult(&QueryResult{
		Columns: cols,
		Types:   columnTypes(rows, len(cols)),
		Rows:    rows,
	})}, nil
}

func explainPattern(p ast.PatternAST, depth int) []match.Row {
	var rows []match.Row
	for _, v := range p.Vars {
		rows = append(rows, match.Row{value.Int(int64(depth)), value.String(fmt.Sprintf("var %s: %s", v.Name, v.Type))})
	}
	for _, e := range p.Edges {
		desc := fmt.Sprintf("edge %s(%v)", e.EdgeType, e.Positions)
		if e.Transitive {
			desc += " transitive(" + e.Mode + ")"
		}
		rows = append(rows, match.Row{value.Int(int64(depth)), value.String(desc)})
	}
	for _, sub := range p.Exists {
		rows = append(rows, match.Row{value.Int(int64(depth)), value.String("EXISTS {")})
		rows = append(rows, explainPattern(sub, depth+1)...)
	}
	for _, sub := range p.NotExists {
		rows = append(rows, match.Row{value.Int(int64(depth)), value.String("NOT EXISTS {")})
		rows = append(rows, explainPattern(sub, depth+1)...)
	}
	if p.Guard != nil {
		rows = append(rows, match.Row{value.Int(int64(depth)), value.String("WHERE <guard>")})
	}
	return rows
}

// execProfile implements `PROFILE`: runs the query exactly like MATCH
// but additionally logs the row and warning counts it produced, mirroring
// nornicdb's query paths logging stats through log.Printf rather than
// returning a separate profiling result shape.
func (k *Kernel) execProfile(ctx context.Context, stmt ast.StatementAST, params map[string]value.Value) (*ExecOutcome, error) {
	if stmt.Query == nil {
		return nil, kernelerr.New(kernelerr.AnalysisError, "PROFILE requires a query")
	}
	q, warnings, err := k.runQuery(ctx, stmt.Query, params)
	if err != nil {
		return nil, err
	}
	k.log.Infof("profile: pattern produced %d row(s), %d warning(s)", len(q.Rows), len(warnings))
	return &ExecOutcome{Result: queryResult(q), Warnings: warnings}, nil
}
