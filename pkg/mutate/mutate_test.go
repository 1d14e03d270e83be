package mutate

import (
	"context"
	"testing"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
	"github.com/stretchr/testify/require"
)

func personOntology() *ast.OntologyAST {
	return &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Person", Attrs: []ast.AttrDecl{
				{Name: "name", Type: ast.ScalarString},
				{Name: "email", Type: ast.ScalarString, Modifiers: ast.AttrModifiers{Unique: true}},
				{Name: "age", Type: ast.ScalarInt, Optional: true},
			}},
		},
		Edges: []ast.EdgeTypeDecl{
			{
				Name: "knows",
				Positions: []ast.PositionDecl{
					{Name: "a", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
					{Name: "b", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
				},
				Symmetric: true,
				NoSelf:    true,
			},
			{
				Name: "reportsTo",
				Positions: []ast.PositionDecl{
					{Name: "sub", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
					{Name: "mgr", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
				},
				Acyclic:     true,
				NoSelf:      true,
				Cardinality: []ast.CardinalityDecl{{Role: "sub", Min: 0, Max: 1}},
			},
		},
	}
}

func setup(t *testing.T) (*Engine, *Session) {
	t.Helper()
	s := store.New()
	r := registry.New(10)
	require.NoError(t, compiler.CompileAndPublish(r, personOntology()))
	m := match.New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	eng := New(s, r, m)
	return eng, eng.NewSession()
}

func TestSpawnAcceptsDeclaredAttrsAndRejectsUnknownAttr(t *testing.T) {
	_, sess := setup(t)
	id, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("Ada"), "email": value.String("ada@example.com")})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = sess.Spawn("Person", map[string]value.Value{"nickname": value.String("x")})
	require.Error(t, err)
}

func TestSpawnRejectsAbstractType(t *testing.T) {
	s := store.New()
	r := registry.New(10)
	o := &ast.OntologyAST{Types: []ast.NodeTypeDecl{{Name: "Base", Abstract: true}}}
	require.NoError(t, compiler.CompileAndPublish(r, o))
	m := match.New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	sess := New(s, r, m).NewSession()

	_, err := sess.Spawn("Base", nil)
	require.Error(t, err)
}

func TestSpawnRejectsMissingRequiredAttr(t *testing.T) {
	_, sess := setup(t)
	_, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("Ada")})
	require.Error(t, err)
}

func TestSpawnRejectsUniqueCollision(t *testing.T) {
	_, sess := setup(t)
	_, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("dup@example.com")})
	require.NoError(t, err)
	_, err = sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("dup@example.com")})
	require.Error(t, err)
}

func TestLinkMaterializesSymmetricMirror(t *testing.T) {
	eng, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	b, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)

	_, err = sess.Link("knows", []store.EntityId{a, b}, nil, false)
	require.NoError(t, err)

	_, found := eng.Store.Probe("knows", []store.EntityId{a, b})
	require.True(t, found)
	_, found = eng.Store.Probe("knows", []store.EntityId{b, a})
	require.True(t, found)
}

func TestLinkNoSelfRejectsSelfLoop(t *testing.T) {
	_, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)

	_, err = sess.Link("knows", []store.EntityId{a, a}, nil, false)
	require.Error(t, err)
}

func TestLinkAcyclicRejectsCycle(t *testing.T) {
	_, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	b, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)

	_, err = sess.Link("reportsTo", []store.EntityId{a, b}, nil, false)
	require.NoError(t, err)

	_, err = sess.Link("reportsTo", []store.EntityId{b, a}, nil, false)
	require.Error(t, err)
}

func TestLinkCardinalityMaxEnforced(t *testing.T) {
	_, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	b, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)
	c, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("C"), "email": value.String("c@example.com")})
	require.NoError(t, err)

	_, err = sess.Link("reportsTo", []store.EntityId{a, b}, nil, false)
	require.NoError(t, err)
	// a already reports to one manager; reportsTo.sub is capped at max 1.
	_, err = sess.Link("reportsTo", []store.EntityId{a, c}, nil, false)
	require.Error(t, err)
}

func TestLinkIfNotExistsIsNoOp(t *testing.T) {
	_, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	b, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)

	id1, err := sess.Link("knows", []store.EntityId{a, b}, nil, true)
	require.NoError(t, err)
	id2, err := sess.Link("knows", []store.EntityId{a, b}, nil, true)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestKillCascadesToIncidentEdges(t *testing.T) {
	eng, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	b, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)
	edgeID, err := sess.Link("reportsTo", []store.EntityId{a, b}, nil, false)
	require.NoError(t, err)

	require.NoError(t, sess.Kill(a))

	edge, ok := eng.Store.Get(edgeID)
	require.True(t, ok)
	require.False(t, edge.Alive)
}

func TestUnlinkRejectsNonEdge(t *testing.T) {
	_, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	require.Error(t, sess.Unlink(a))
}

func TestSetUpdatesAttrAndTracksDelta(t *testing.T) {
	eng, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)

	require.NoError(t, sess.Set(a, "age", value.Int(30)))
	v, ok, err := eng.Store.GetAttr(a, "age")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(30), v.AsInt())
	_, tracked := sess.Delta.NodeTypes["Person"]
	require.True(t, tracked)
}

func TestExecuteActionSpawnBindsAsAndReturning(t *testing.T) {
	eng, sess := setup(t)
	ev := &match.Evaluator{Store: eng.Store, Registry: eng.Registry}
	action := ast.ActionAST{
		Kind:     ast.ActionSpawn,
		NodeType: "Person",
		As:       "p",
		Attrs: []ast.AttrAssign{
			{Attr: "name", Expr: ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitString, Str: "Grace"}}},
			{Attr: "email", Expr: ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitString, Str: "grace@example.com"}}},
		},
		Returning: []string{"id"},
	}
	nb, rows, ids, err := sess.ExecuteAction(context.Background(), ev, nil, match.Binding{}, action)
	require.NoError(t, err)
	require.Contains(t, nb, "p")
	require.Len(t, rows, 1)
	require.Len(t, ids, 1)
}

func TestExecuteActionBulkKillSnapshotsBeforeWriting(t *testing.T) {
	eng, sess := setup(t)
	_, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)
	_, err = sess.Spawn("Person", map[string]value.Value{"name": value.String("B"), "email": value.String("b@example.com")})
	require.NoError(t, err)

	ev := &match.Evaluator{Store: eng.Store, Registry: eng.Registry}
	action := ast.ActionAST{
		Kind:  ast.ActionKill,
		Var:   "p",
		Match: &ast.PatternAST{Vars: []ast.VarDecl{{Name: "p", Type: "Person"}}},
	}
	_, _, ids, err := sess.ExecuteAction(context.Background(), ev, nil, match.Binding{}, action)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for _, e := range eng.Store.Snapshot() {
		require.False(t, e.Alive)
	}
}

func TestExecuteActionSetEvaluatesExprPerRow(t *testing.T) {
	eng, sess := setup(t)
	a, err := sess.Spawn("Person", map[string]value.Value{"name": value.String("A"), "email": value.String("a@example.com")})
	require.NoError(t, err)

	ev := &match.Evaluator{Store: eng.Store, Registry: eng.Registry}
	action := ast.ActionAST{
		Kind: ast.ActionSet,
		Var:  "p",
		Assignments: []ast.AttrAssign{
			{Attr: "age", Expr: ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitInt, Int: 42}}},
		},
	}
	binding := match.Binding{"p": a}
	_, _, ids, err := sess.ExecuteAction(context.Background(), ev, nil, binding, action)
	require.NoError(t, err)
	require.Equal(t, []store.EntityId{a}, ids)

	v, ok, err := eng.Store.GetAttr(a, "age")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(42), v.AsInt())
}
