package kernel

import (
	"context"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/value"
)

// execBegin implements `BEGIN [READ COMMITTED|SERIALIZABLE]` (spec.md §4.8
// "Modes"). A second BEGIN before the active transaction ends surfaces
// txn.Manager's TransactionError unchanged.
func (k *Kernel) execBegin(stmt ast.StatementAST) (*ExecOutcome, error) {
	if _, err := k.Txn.Begin(stmt.Isolation); err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: emptyResult()}, nil
}

// execCommit implements `COMMIT`: runs the commit pipeline (rule
// fixpoint, constraint check, publish-or-revert) and reports the outcome.
func (k *Kernel) execCommit(ctx context.Context, params map[string]value.Value) (*ExecOutcome, error) {
	tx := k.Txn.Active()
	if tx == nil {
		return nil, noActiveTransactionErr("COMMIT")
	}
	warnings, err := k.Txn.Commit(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: transactionResult(Committed), Warnings: warnings}, nil
}

// execRollback implements `ROLLBACK`.
func (k *Kernel) execRollback() (*ExecOutcome, error) {
	tx := k.Txn.Active()
	if tx == nil {
		return nil, noActiveTransactionErr("ROLLBACK")
	}
	if err := k.Txn.Rollback(tx); err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: transactionResult(Rolledback)}, nil
}

// execSavepoint implements `SAVEPOINT name`.
func (k *Kernel) execSavepoint(stmt ast.StatementAST) (*ExecOutcome, error) {
	tx := k.Txn.Active()
	if tx == nil {
		return nil, noActiveTransactionErr("SAVEPOINT")
	}
	if err := k.Txn.Savepoint(tx, stmt.Savepoint); err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: emptyResult()}, nil
}

// execRollbackTo implements `ROLLBACK TO name`.
func (k *Kernel) execRollbackTo(stmt ast.StatementAST) (*ExecOutcome, error) {
	tx := k.Txn.Active()
	if tx == nil {
		return nil, noActiveTransactionErr("ROLLBACK_TO")
	}
	if err := k.Txn.RollbackTo(tx, stmt.Savepoint); err != nil {
		return nil, err
	}
	return &ExecOutcome{Result: emptyResult()}, nil
}

// noActiveTransactionErr reports the spec.md §7 TransactionError case of
// a transaction-control statement ("COMMIT without BEGIN", "ROLLBACK TO
// unknown savepoint" is handled by txn.Manager itself) issued with no
// transaction active.
func noActiveTransactionErr(stmtKind string) error {
	return kernelerr.New(kernelerr.TransactionError, "%s with no active transaction", stmtKind)
}
