package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSmallRegistry() *Registry {
	r := New(10)
	person := &NodeTypeDescriptor{
		Name:        "Person",
		Ancestors:   map[string]struct{}{},
		Descendants: map[string]struct{}{"Person": {}, "Employee": {}},
		Attrs:       map[string]AttrDescriptor{},
	}
	employee := &NodeTypeDescriptor{
		Name:        "Employee",
		Parents:     []string{"Person"},
		Ancestors:   map[string]struct{}{"Person": {}},
		Descendants: map[string]struct{}{"Employee": {}},
		Attrs:       map[string]AttrDescriptor{},
	}
	types := map[string]*NodeTypeDescriptor{"Person": person, "Employee": employee}

	rules := map[string]*RuleDescriptor{
		"low": {Name: "low", Priority: 1, Auto: true, DependsOn: DependencySet{NodeTypes: map[string]struct{}{"Person": {}}, EdgeTypes: map[string]struct{}{}}},
		"high": {Name: "high", Priority: 10, Auto: true, DependsOn: DependencySet{NodeTypes: map[string]struct{}{"Person": {}}, EdgeTypes: map[string]struct{}{}}},
	}
	r.Publish(types, map[string]*EdgeSignatureDescriptor{}, map[string]*ConstraintDescriptor{}, rules, []string{"low", "high"})
	return r
}

func TestDescendantsOf(t *testing.T) {
	r := buildSmallRegistry()
	desc := r.DescendantsOf("Person")
	assert.Equal(t, []string{"Employee", "Person"}, desc)
}

func TestIsDescendantOf(t *testing.T) {
	r := buildSmallRegistry()
	assert.True(t, r.IsDescendantOf("Employee", "Person"))
	assert.True(t, r.IsDescendantOf("Person", "Person"))
	assert.False(t, r.IsDescendantOf("Person", "Employee"))
}

func TestTriggeredAutoRulesOrderedByPriority(t *testing.T) {
	r := buildSmallRegistry()
	delta := DependencySet{NodeTypes: map[string]struct{}{"Person": {}}, EdgeTypes: map[string]struct{}{}}
	rules := r.TriggeredAutoRules(delta)
	require.Len(t, rules, 2)
	assert.Equal(t, "high", rules[0].Name)
	assert.Equal(t, "low", rules[1].Name)
}

func TestGenerationBumpsOnPublish(t *testing.T) {
	r := New(10)
	g0 := r.Generation()
	r.Publish(map[string]*NodeTypeDescriptor{}, map[string]*EdgeSignatureDescriptor{}, map[string]*ConstraintDescriptor{}, map[string]*RuleDescriptor{}, nil)
	assert.Equal(t, g0+1, r.Generation())
}

func TestPlanCacheEvictsLRU(t *testing.T) {
	c := NewPlanCache(2)
	fpA := FingerprintOf("A")
	fpB := FingerprintOf("B")
	fpC := FingerprintOf("C")

	c.Put(fpA, 1, "planA")
	c.Put(fpB, 1, "planB")
	_, _ = c.Get(fpA, 1) // A is now most-recently-used
	c.Put(fpC, 1, "planC")

	_, ok := c.Get(fpB, 1)
	assert.False(t, ok, "B should have been evicted")

	v, ok := c.Get(fpA, 1)
	assert.True(t, ok)
	assert.Equal(t, "planA", v)
}

func TestPlanCacheGenerationIsolation(t *testing.T) {
	c := NewPlanCache(10)
	fp := FingerprintOf("stmt")
	c.Put(fp, 1, "plan-gen1")
	_, ok := c.Get(fp, 2)
	assert.False(t, ok)
}
