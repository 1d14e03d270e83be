package rule

import (
	"context"
	"testing"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/mutate"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
	"github.com/stretchr/testify/require"
)

// taskOntology declares one auto-rule: every Task with done=false gets
// SET done=true — a minimal, convergent fixpoint to exercise dedup and
// re-triggering.
func taskOntology() *ast.OntologyAST {
	return &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Task", Attrs: []ast.AttrDecl{{Name: "done", Type: ast.ScalarBool}}},
		},
		Rules: []ast.RuleDecl{{
			Name:     "complete_tasks",
			Priority: 0,
			Auto:     true,
			Pattern: ast.PatternAST{
				Vars: []ast.VarDecl{{Name: "t", Type: "Task"}},
				Guard: &ast.ExprAST{
					Kind: ast.ExprUnOp, UnOp: "not",
					Operand: &ast.ExprAST{Kind: ast.ExprAttr, Var: "t", Attr: "done"},
				},
			},
			Production: []ast.ActionAST{{
				Kind: ast.ActionSet,
				Var:  "t",
				Assignments: []ast.AttrAssign{{
					Attr: "done",
					Expr: ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitBool, Bool: true}},
				}},
			}},
		}},
	}
}

func setup(t *testing.T) (*store.Store, *mutate.Session, *Engine) {
	t.Helper()
	s := store.New()
	r := registry.New(10)
	require.NoError(t, compiler.CompileAndPublish(r, taskOntology()))
	m := match.New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	eng := mutate.New(s, r, m)
	sess := eng.NewSession()
	re := New(m, r, config.RuleLimits{MaxFiredActions: 10000, MaxChainDepth: 100})
	return s, sess, re
}

func TestRunAutoRulesFiresOncePerBinding(t *testing.T) {
	s, sess, re := setup(t)
	id, err := sess.Spawn("Task", map[string]value.Value{"done": value.Bool(false)})
	require.NoError(t, err)

	require.NoError(t, re.RunAutoRules(context.Background(), sess, nil))

	v, ok, err := s.GetAttr(id, "done")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, v.AsBool())
}

func TestRunAutoRulesConvergesWithoutLooping(t *testing.T) {
	s, sess, re := setup(t)
	for i := 0; i < 5; i++ {
		_, err := sess.Spawn("Task", map[string]value.Value{"done": value.Bool(false)})
		require.NoError(t, err)
	}

	require.NoError(t, re.RunAutoRules(context.Background(), sess, nil))

	for _, e := range s.Snapshot() {
		v, ok, err := s.GetAttr(e.ID, "done")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, v.AsBool())
	}
}

func TestRunAutoRulesSkipsWhenDeltaDoesNotTrigger(t *testing.T) {
	_, sess, re := setup(t)
	require.NoError(t, re.RunAutoRules(context.Background(), sess, nil))
}

func TestRunAutoRulesAbortsOnFiredActionLimit(t *testing.T) {
	s := store.New()
	r := registry.New(10)
	require.NoError(t, compiler.CompileAndPublish(r, taskOntology()))
	m := match.New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	eng := mutate.New(s, r, m)
	sess := eng.NewSession()
	re := New(m, r, config.RuleLimits{MaxFiredActions: 1, MaxChainDepth: 100})

	_, err := sess.Spawn("Task", map[string]value.Value{"done": value.Bool(false)})
	require.NoError(t, err)
	_, err = sess.Spawn("Task", map[string]value.Value{"done": value.Bool(false)})
	require.NoError(t, err)

	err = re.RunAutoRules(context.Background(), sess, nil)
	require.Error(t, err)
	require.True(t, kernelerr.IsKind(err, kernelerr.RuleError))
}
