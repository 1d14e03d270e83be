package txn

import (
	"context"
	"testing"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
	"github.com/stretchr/testify/require"
)

func accountOntology() *ast.OntologyAST {
	return &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Account", Attrs: []ast.AttrDecl{{Name: "balance", Type: ast.ScalarInt}}},
		},
		Constraints: []ast.ConstraintDecl{{
			Name:    "non_negative_balance",
			Message: "balance must not be negative",
			Pattern: ast.PatternAST{Vars: []ast.VarDecl{{Name: "a", Type: "Account"}}},
			Guard: ast.ExprAST{
				Kind: ast.ExprBinOp, Op: ">=",
				Left:  &ast.ExprAST{Kind: ast.ExprAttr, Var: "a", Attr: "balance"},
				Right: &ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitInt, Int: 0}},
			},
		}},
	}
}

func setup(t *testing.T) (*store.Store, *Manager) {
	t.Helper()
	s := store.New()
	r := registry.New(10)
	require.NoError(t, compiler.CompileAndPublish(r, accountOntology()))
	m := match.New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	mgr := New(s, r, m, config.RuleLimits{MaxFiredActions: 10000, MaxChainDepth: 100})
	return s, mgr
}

func TestBeginCommitPersistsWrites(t *testing.T) {
	s, mgr := setup(t)
	tx, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	id, err := tx.Session.Spawn("Account", map[string]value.Value{"balance": value.Int(100)})
	require.NoError(t, err)

	_, err = mgr.Commit(context.Background(), tx, nil)
	require.NoError(t, err)

	v, ok, err := s.GetAttr(id, "balance")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), v.AsInt())
}

func TestSecondBeginFailsWhileActive(t *testing.T) {
	_, mgr := setup(t)
	_, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	_, err = mgr.Begin(ast.IsolationReadCommitted)
	require.Error(t, err)
	require.True(t, kernelerr.IsKind(err, kernelerr.TransactionError))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s, mgr := setup(t)
	tx, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	id, err := tx.Session.Spawn("Account", map[string]value.Value{"balance": value.Int(100)})
	require.NoError(t, err)

	require.NoError(t, mgr.Rollback(tx))
	require.False(t, s.Exists(id))

	// A fresh BEGIN is allowed after rollback.
	_, err = mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)
}

func TestCommitRevertsOnHardConstraintViolation(t *testing.T) {
	s, mgr := setup(t)
	tx, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	id, err := tx.Session.Spawn("Account", map[string]value.Value{"balance": value.Int(100)})
	require.NoError(t, err)
	require.NoError(t, s.SetAttr(id, "balance", value.Int(-1)))

	_, err = mgr.Commit(context.Background(), tx, nil)
	require.Error(t, err)
	require.True(t, kernelerr.IsKind(err, kernelerr.ConstraintError))
	require.False(t, s.Exists(id))

	_, err = mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)
}

func TestSavepointAndRollbackTo(t *testing.T) {
	s, mgr := setup(t)
	tx, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	a, err := tx.Session.Spawn("Account", map[string]value.Value{"balance": value.Int(10)})
	require.NoError(t, err)
	require.NoError(t, mgr.Savepoint(tx, "sp1"))

	b, err := tx.Session.Spawn("Account", map[string]value.Value{"balance": value.Int(20)})
	require.NoError(t, err)

	require.NoError(t, mgr.RollbackTo(tx, "sp1"))
	require.True(t, s.Exists(a))
	require.False(t, s.Exists(b))

	_, err = mgr.Commit(context.Background(), tx, nil)
	require.NoError(t, err)
}

func TestRollbackToUnknownSavepointErrors(t *testing.T) {
	_, mgr := setup(t)
	tx, err := mgr.Begin(ast.IsolationReadCommitted)
	require.NoError(t, err)

	err = mgr.RollbackTo(tx, "nope")
	require.Error(t, err)
	require.True(t, kernelerr.IsKind(err, kernelerr.TransactionError))
}
