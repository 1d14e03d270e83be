package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	ont := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{{
			Name: "Person",
			Attrs: []ast.AttrDecl{
				{Name: "email", Type: ast.ScalarString, Modifiers: ast.AttrModifiers{Unique: true}},
				{Name: "age", Type: ast.ScalarInt, Optional: true},
			},
		}},
		Edges: []ast.EdgeTypeDecl{{
			Name: "knows",
			Positions: []ast.PositionDecl{
				{Name: "a", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
				{Name: "b", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
			},
		}},
	}
	r := registry.New(64)
	require.NoError(t, compiler.CompileAndPublish(r, ont))
	return r
}

func TestExportImportRoundTrip(t *testing.T) {
	s := store.New()
	a := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(a.ID, "email", value.String("ada@example.com")))
	require.NoError(t, s.SetAttr(a.ID, "age", value.Int(36)))
	b := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(b.ID, "email", value.String("grace@example.com")))
	_, err := s.CreateEdge("knows", []store.EntityId{a.ID, b.ID})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, SaveToDir(dir, s))

	reg := testRegistry(t)
	restored := store.New()
	require.NoError(t, LoadFromDir(dir, restored, reg))

	require.Equal(t, 2, restored.Count("Person"))
	require.Equal(t, 1, restored.Count("knows"))

	got, ok := restored.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, "Person", got.TypeTag)
	v, set, err := restored.GetAttr(a.ID, "email")
	require.NoError(t, err)
	require.True(t, set)
	require.Equal(t, "ada@example.com", v.AsString())

	edgeID, found := restored.Probe("knows", []store.EntityId{a.ID, b.ID})
	require.True(t, found)
	require.NotEmpty(t, edgeID)
}

func TestImportReclaimsUniqueIndex(t *testing.T) {
	s := store.New()
	a := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(a.ID, "email", value.String("dup@example.com")))

	dir := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, SaveToDir(dir, s))

	reg := testRegistry(t)
	restored := store.New()
	require.NoError(t, LoadFromDir(dir, restored, reg))

	holder, ok := restored.ProbeUnique("Person", "email", value.String("dup@example.com"))
	require.True(t, ok)
	require.Equal(t, a.ID, holder)
}

func TestEncodeDecodeValuePreservesListsAndRefs(t *testing.T) {
	v := value.ListOf([]value.Value{
		value.Int(1),
		value.String("x"),
		value.NodeRef("n1"),
		value.Bool(true),
		value.Null(),
	})
	got := decodeValue(encodeValue(v))
	require.Equal(t, v.Kind(), got.Kind())
	require.Equal(t, len(v.AsList()), len(got.AsList()))
	for i := range v.AsList() {
		require.True(t, value.Equal(v.AsList()[i], got.AsList()[i]) || v.AsList()[i].IsNull() && got.AsList()[i].IsNull())
	}
}
