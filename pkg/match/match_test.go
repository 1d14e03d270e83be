package match

import (
	"context"
	"math"
	"testing"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, o *ast.OntologyAST) (*store.Store, *registry.Registry) {
	t.Helper()
	s := store.New()
	r := registry.New(10)
	require.NoError(t, compiler.CompileAndPublish(r, o))
	return s, r
}

func eventOntology() *ast.OntologyAST {
	return &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Event", Attrs: []ast.AttrDecl{{Name: "name", Type: ast.ScalarString}}},
		},
		Edges: []ast.EdgeTypeDecl{{
			Name: "causes",
			Positions: []ast.PositionDecl{
				{Name: "a", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Event"}},
				{Name: "b", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Event"}},
			},
		}},
	}
}

func TestScanFindsAllLiveNodes(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	require.NoError(t, s.Kill(b.ID))

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	p := ast.PatternAST{Vars: []ast.VarDecl{{Name: "e", Type: "Event"}}}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	require.Equal(t, a.ID, res.Bindings[0]["e"])
}

func TestExpandWalksFromBoundPosition(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	// Only x is scanned; y is left unbound so the edge term becomes an
	// Expand from x.
	p := ast.PatternAST{
		Vars: []ast.VarDecl{{Name: "x", Type: "Event"}},
		Edges: []ast.EdgePatternAST{{EdgeType: "causes", Positions: []string{"x", "y"}}},
	}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	require.Equal(t, a.ID, res.Bindings[0]["x"])
	require.Equal(t, b.ID, res.Bindings[0]["y"])
}

func TestProbeTestsExistenceWithoutNewBindings(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	c := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	// Both positions already bound by Scan, so the edge term becomes a Probe.
	p := ast.PatternAST{
		Vars: []ast.VarDecl{{Name: "x", Type: "Event"}, {Name: "y", Type: "Event"}},
		Edges: []ast.EdgePatternAST{
			{EdgeType: "causes", Positions: []string{"x", "y"}},
			{EdgeType: "causes", Positions: []string{"x", "y"}},
		},
	}
	_ = c
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
}

func TestTransitiveExpandFollowsCycleWithoutLooping(t *testing.T) {
	// spec.md §8 scenario 4: causes(A,B), causes(B,C), causes(C,A) =>
	// causes+(A,x) returns {B,C,A}.
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	c := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)
	_, err = s.CreateEdge("causes", []store.EntityId{b.ID, c.ID})
	require.NoError(t, err)
	_, err = s.CreateEdge("causes", []store.EntityId{c.ID, a.ID})
	require.NoError(t, err)

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	p := ast.PatternAST{
		Vars:  []ast.VarDecl{{Name: "a", Type: "Event"}, {Name: "x", Type: "Event"}},
		Edges: []ast.EdgePatternAST{{EdgeType: "causes", Positions: []string{"a", "x"}, Transitive: true, Mode: "+"}},
		Guard: &ast.ExprAST{
			Kind: ast.ExprBinOp, Op: "=",
			Left:  &ast.ExprAST{Kind: ast.ExprVar, Var: "a"},
			Right: &ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitIDRef, IDRef: string(a.ID)}},
		},
	}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)

	reached := map[store.EntityId]bool{}
	for _, bnd := range res.Bindings {
		reached[bnd["x"]] = true
	}
	require.Len(t, reached, 3)
	require.True(t, reached[a.ID])
	require.True(t, reached[b.ID])
	require.True(t, reached[c.ID])
}

func TestTransitiveExpandZeroDepthIsReflexive(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	zero := 0
	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	p := ast.PatternAST{
		Vars: []ast.VarDecl{{Name: "a", Type: "Event"}, {Name: "x", Type: "Event"}},
		Edges: []ast.EdgePatternAST{{
			EdgeType: "causes", Positions: []string{"a", "x"},
			Transitive: true, Mode: "*", DepthMin: &zero, DepthMax: &zero,
		}},
		Guard: &ast.ExprAST{
			Kind: ast.ExprBinOp, Op: "=",
			Left:  &ast.ExprAST{Kind: ast.ExprVar, Var: "a"},
			Right: &ast.ExprAST{Kind: ast.ExprLiteral, Literal: &ast.LiteralAST{Kind: ast.LitIDRef, IDRef: string(a.ID)}},
		},
	}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	require.Equal(t, a.ID, res.Bindings[0]["x"])
}

func TestSemiJoinExistsKeepsOnlyMatching(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	p := ast.PatternAST{
		Vars: []ast.VarDecl{{Name: "x", Type: "Event"}},
		Exists: []ast.PatternAST{{
			Vars:  []ast.VarDecl{{Name: "y", Type: "Event"}},
			Edges: []ast.EdgePatternAST{{EdgeType: "causes", Positions: []string{"x", "y"}}},
		}},
	}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	require.Equal(t, a.ID, res.Bindings[0]["x"])
}

func TestAntiJoinNotExistsExcludesMatching(t *testing.T) {
	s, r := setup(t, eventOntology())
	a := s.CreateNode("Event")
	b := s.CreateNode("Event")
	_, err := s.CreateEdge("causes", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	m := New(s, r, config.MatchLimits{DefaultTransitiveDepth: 100, CollectLimit: 10000})
	p := ast.PatternAST{
		Vars: []ast.VarDecl{{Name: "x", Type: "Event"}},
		NotExists: []ast.PatternAST{{
			Vars:  []ast.VarDecl{{Name: "y", Type: "Event"}},
			Edges: []ast.EdgePatternAST{{EdgeType: "causes", Positions: []string{"x", "y"}}},
		}},
	}
	res, err := m.MatchPattern(context.Background(), p, nil)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	require.Equal(t, b.ID, res.Bindings[0]["x"])
}

func TestAggregateEmptySetBoundaryBehaviors(t *testing.T) {
	count, _ := AggregateFn("count", nil, 10000)
	require.Equal(t, value.Int(0), count)

	sum, _ := AggregateFn("sum", nil, 10000)
	require.Equal(t, value.Int(0), sum)

	avg, _ := AggregateFn("avg", nil, 10000)
	require.True(t, avg.IsNull())

	min, _ := AggregateFn("min", nil, 10000)
	require.True(t, min.IsNull())

	collect, truncated := AggregateFn("collect", nil, 10000)
	require.False(t, truncated)
	require.Equal(t, 0, len(collect.AsList()))
}

func TestAggregateCollectTruncatesAtLimit(t *testing.T) {
	vs := []value.Value{value.Int(1), value.Int(2), value.Int(3)}
	collect, truncated := AggregateFn("collect", vs, 2)
	require.True(t, truncated)
	require.Len(t, collect.AsList(), 2)
}

func TestOrderNaNSortsLastAscendingFirstDescending(t *testing.T) {
	rows := []Row{
		{value.Float(math.NaN())},
		{value.Float(1)},
		{value.Null()},
		{value.Float(2)},
	}
	asc := append([]Row(nil), rows...)
	Order(asc, []OrderKey{{Col: 0, Desc: false}})
	require.True(t, asc[0][0].IsNull())
	require.True(t, math.IsNaN(asc[3][0].AsFloat()))

	desc := append([]Row(nil), rows...)
	Order(desc, []OrderKey{{Col: 0, Desc: true}})
	require.True(t, math.IsNaN(desc[0][0].AsFloat()))
}

func TestDistinctRemovesDuplicateRows(t *testing.T) {
	rows := []Row{
		{value.Int(1), value.String("a")},
		{value.Int(1), value.String("a")},
		{value.Int(2), value.String("a")},
	}
	out := Distinct(rows)
	require.Len(t, out, 2)
}

func TestLimitOffset(t *testing.T) {
	rows := []Row{{value.Int(1)}, {value.Int(2)}, {value.Int(3)}}
	require.Len(t, Limit(rows, 2), 2)
	require.Len(t, Offset(rows, 1), 2)
	require.Nil(t, Offset(rows, 10))
}
