package store

import (
	"testing"

	"github.com/mew-lang/mew/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNodeAssignsUniqueIDs(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	b := s.CreateNode("Person")
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Alive)
	assert.Equal(t, 2, s.Count("Person"))
}

func TestCreateEdgeRequiresExistingTargets(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	_, err := s.CreateEdge("knows", []EntityId{a.ID, "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEdgeAndTraversal(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	b := s.CreateNode("Person")
	e, err := s.CreateEdge("knows", []EntityId{a.ID, b.ID})
	require.NoError(t, err)

	fromA := s.IterEdgesByPos("knows", 0, a.ID)
	require.Len(t, fromA, 1)
	assert.Equal(t, e.ID, fromA[0])

	id, ok := s.Probe("knows", []EntityId{a.ID, b.ID})
	require.True(t, ok)
	assert.Equal(t, e.ID, id)
}

func TestKillIsTombstoneNotRemoval(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	require.NoError(t, s.Kill(a.ID))

	assert.True(t, s.Exists(a.ID))
	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.False(t, got.Alive)
	assert.Empty(t, s.IterOfType("Person"))
}

func TestKillUnknownIsNotFound(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Kill("nope"), ErrNotFound)
}

func TestSetAttrAndUniqueIndex(t *testing.T) {
	s := New()
	a := s.CreateNode("User")
	require.NoError(t, s.SetAttr(a.ID, "email", value.String("x@y")))
	s.ClaimUnique("User", "email", value.String("x@y"), a.ID)

	id, ok := s.ProbeUnique("User", "email", value.String("x@y"))
	require.True(t, ok)
	assert.Equal(t, a.ID, id)

	_, ok = s.ProbeUnique("User", "email", value.String("other@y"))
	assert.False(t, ok)
}

func TestUniqueIndexClearedOnOverwrite(t *testing.T) {
	s := New()
	a := s.CreateNode("User")
	require.NoError(t, s.SetAttr(a.ID, "email", value.String("x@y")))
	s.ClaimUnique("User", "email", value.String("x@y"), a.ID)

	require.NoError(t, s.SetAttr(a.ID, "email", value.String("z@y")))
	_, ok := s.ProbeUnique("User", "email", value.String("x@y"))
	assert.False(t, ok)
}

func TestIterByAttrRange(t *testing.T) {
	s := New()
	for _, age := range []int64{10, 20, 30} {
		n := s.CreateNode("Person")
		require.NoError(t, s.SetAttr(n.ID, "age", value.Int(age)))
	}
	ids := s.IterByAttrRange("Person", "age", value.Int(15), false, value.Null(), true)
	assert.Len(t, ids, 2)
}

func TestEntityCloneIsIndependent(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(a.ID, "name", value.String("Alice")))

	got, _ := s.Get(a.ID)
	got.SetAttr("name", value.String("Mutated"))

	fresh, _ := s.Get(a.ID)
	v, _ := fresh.Attr("name")
	assert.Equal(t, "Alice", v.AsString())
}

func TestCheckpointRestoreDiscardsSubsequentWrites(t *testing.T) {
	s := New()
	a := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(a.ID, "name", value.String("Alice")))

	cp := s.Checkpoint()

	b := s.CreateNode("Person")
	require.NoError(t, s.SetAttr(a.ID, "name", value.String("Bob")))
	require.NoError(t, s.Kill(a.ID))

	s.Restore(cp)

	assert.False(t, s.Exists(b.ID))
	ent, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.True(t, ent.Alive)
	v, _ := ent.Attr("name")
	assert.Equal(t, "Alice", v.AsString())
}
