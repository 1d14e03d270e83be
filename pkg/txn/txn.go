// Package txn implements the TransactionManager (spec.md §6):
// BEGIN/COMMIT/ROLLBACK/SAVEPOINT/ROLLBACK TO over a single-writer,
// many-reader store, with a commit pipeline that closes the mutation
// window, runs the rule fixpoint, then the constraint check, and either
// publishes the result or reverts the whole transaction to its starting
// state.
//
// Mirrors nornicdb's pkg/storage/transaction.go, whose Transaction
// buffers operations and applies them atomically on Commit, discarding
// the buffer on Rollback. This repo's Store instead writes every
// mutation immediately and relies on store.Checkpoint/Restore to
// implement the same "draft vs final copy" semantics nornicdb's ELI12
// comment describes — simpler to reason about at this store's scale than
// maintaining a separate operation log, while keeping the identical
// BEGIN/COMMIT/ROLLBACK vocabulary and the single-active-transaction
// mutex nornicdb's engine also serializes writers through.
package txn

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/constraint"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/mutate"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/rule"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

type savepoint struct {
	name string
	cp   *store.Checkpoint
}

// Transaction is one BEGIN...COMMIT/ROLLBACK unit of work. Its Session
// accumulates the dependency-set delta across every statement executed
// within it, so the rule fixpoint and constraint check at COMMIT see the
// combined effect of the whole transaction, not just its last statement.
type Transaction struct {
	ID        string
	Isolation ast.IsolationLevel

	base       *store.Checkpoint
	savepoints []savepoint
	Session    *mutate.Session
}

// Manager ties together the Store, Registry, Matcher, and the
// Mutation/Rule/Constraint engines, and enforces spec.md §6's
// single-writer model: only one transaction may be active at a time.
type Manager struct {
	mu sync.Mutex

	Store      *store.Store
	Registry   *registry.Registry
	MutateEng  *mutate.Engine
	RuleEng    *rule.Engine
	Constraint *constraint.Checker

	active *Transaction
}

// New constructs a Manager wiring the mutation/rule/constraint engines
// around a shared Store, Registry, and Matcher.
func New(s *store.Store, r *registry.Registry, m *match.Matcher, ruleLimits config.RuleLimits) *Manager {
	me := mutate.New(s, r, m)
	return &Manager{
		Store:      s,
		Registry:   r,
		MutateEng:  me,
		RuleEng:    rule.New(m, r, ruleLimits),
		Constraint: constraint.New(m, r),
	}
}

// Begin starts a new transaction, capturing the store's current state as
// the rollback target (spec.md §6 "BEGIN"). Only one transaction may be
// active at a time; a second BEGIN before the first COMMITs or ROLLBACKs
// is a TransactionError, matching nornicdb's ErrTransactionActive.
func (m *Manager) Begin(isolation ast.IsolationLevel) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, kernelerr.New(kernelerr.TransactionError, "a transaction is already active (nested BEGIN is not supported)")
	}
	if isolation == "" {
		isolation = ast.IsolationReadCommitted
	}

	tx := &Transaction{
		ID:        uuid.NewString(),
		Isolation: isolation,
		base:      m.Store.Checkpoint(),
		Session:   m.MutateEng.NewSession(),
	}
	m.active = tx
	return tx, nil
}

func (m *Manager) requireActive(tx *Transaction) error {
	if m.active == nil || m.active != tx {
		return kernelerr.New(kernelerr.TransactionError, "no active transaction")
	}
	return nil
}

// Savepoint records a named rollback point within tx (spec.md §6
// "SAVEPOINT").
func (m *Manager) Savepoint(tx *Transaction, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActive(tx); err != nil {
		return err
	}
	tx.savepoints = append(tx.savepoints, savepoint{name: name, cp: m.Store.Checkpoint()})
	return nil
}

// RollbackTo restores the store to the state at the named savepoint,
// discarding every write made since, but keeps the transaction (and the
// named savepoint itself) active for further work (spec.md §6 "ROLLBACK
// TO").
func (m *Manager) RollbackTo(tx *Transaction, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActive(tx); err != nil {
		return err
	}
	idx := -1
	for i := len(tx.savepoints) - 1; i >= 0; i-- {
		if tx.savepoints[i].name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return kernelerr.New(kernelerr.TransactionError, "unknown savepoint %q", name)
	}
	m.Store.Restore(tx.savepoints[idx].cp)
	tx.savepoints = tx.savepoints[:idx+1]
	return nil
}

// Rollback discards every write made since BEGIN and ends tx (spec.md §6
// "ROLLBACK").
func (m *Manager) Rollback(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActive(tx); err != nil {
		return err
	}
	m.Store.Restore(tx.base)
	m.active = nil
	return nil
}

// Commit runs the commit pipeline spec.md §6 describes: close the
// mutation window, run the rule fixpoint to its own fixpoint, re-check
// every triggered constraint, and either publish (simply: leave the
// already-applied writes in place and end the transaction) or revert the
// whole transaction back to its BEGIN state and return the failing
// error.
func (m *Manager) Commit(ctx context.Context, tx *Transaction, params map[string]value.Value) ([]kernelerr.Warning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActive(tx); err != nil {
		return nil, err
	}

	if err := m.RuleEng.RunAutoRules(ctx, tx.Session, params); err != nil {
		m.Store.Restore(tx.base)
		m.active = nil
		return nil, err
	}

	warnings, err := m.Constraint.Check(ctx, tx.Session.Delta, params)
	if err != nil {
		m.Store.Restore(tx.base)
		m.active = nil
		return nil, err
	}

	m.active = nil
	return append(tx.Session.Warnings, warnings...), nil
}

// Active reports the currently active transaction, if any.
func (m *Manager) Active() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
