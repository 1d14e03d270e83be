package compiler

import (
	"testing"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeType(name string, parents ...string) ast.NodeTypeDecl {
	return ast.NodeTypeDecl{Name: name, Parents: parents}
}

func TestCompileSimpleOntology(t *testing.T) {
	o := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Person", Attrs: []ast.AttrDecl{{Name: "name", Type: ast.ScalarString}}},
			{Name: "Employee", Parents: []string{"Person"}, Attrs: []ast.AttrDecl{{Name: "salary", Type: ast.ScalarFloat}}},
		},
		Edges: []ast.EdgeTypeDecl{
			{
				Name: "knows",
				Positions: []ast.PositionDecl{
					{Name: "a", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
					{Name: "b", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Person"}},
				},
			},
		},
	}

	res, errs := Compile(o)
	require.Empty(t, errs)
	require.NotNil(t, res)

	emp := res.Types["Employee"]
	require.NotNil(t, emp)
	_, hasName := emp.Attrs["name"]
	assert.True(t, hasName, "Employee should inherit name from Person")
	_, isPersonAncestor := emp.Ancestors["Person"]
	assert.True(t, isPersonAncestor)

	person := res.Types["Person"]
	_, employeeIsDescendant := person.Descendants["Employee"]
	assert.True(t, employeeIsDescendant)
}

func TestCompileDetectsInheritanceCycle(t *testing.T) {
	o := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			nodeType("A", "B"),
			nodeType("B", "A"),
		},
	}
	_, errs := Compile(o)
	require.NotEmpty(t, errs)
}

func TestCompileDetectsUnknownParent(t *testing.T) {
	o := &ast.OntologyAST{Types: []ast.NodeTypeDecl{nodeType("A", "Ghost")}}
	_, errs := Compile(o)
	require.NotEmpty(t, errs)
}

func TestCompileDetectsIncompatibleAttrMerge(t *testing.T) {
	o := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "A", Attrs: []ast.AttrDecl{{Name: "x", Type: ast.ScalarInt}}},
			{Name: "B", Attrs: []ast.AttrDecl{{Name: "x", Type: ast.ScalarString}}},
			{Name: "C", Parents: []string{"A", "B"}},
		},
	}
	_, errs := Compile(o)
	require.NotEmpty(t, errs)
}

func TestCompileValidatesEdgeSignature(t *testing.T) {
	o := &ast.OntologyAST{
		Edges: []ast.EdgeTypeDecl{{
			Name: "bad",
			Positions: []ast.PositionDecl{
				{Name: "a", TypeExpr: ast.TypeExpr{Kind: ast.TypeExprNode, Name: "Ghost"}},
			},
		}},
	}
	_, errs := Compile(o)
	require.NotEmpty(t, errs)
}

func TestCompileValidatesModifierRegex(t *testing.T) {
	o := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{{
			Name: "A",
			Attrs: []ast.AttrDecl{{
				Name: "x", Type: ast.ScalarString,
				Modifiers: ast.AttrModifiers{Match: "(unclosed"},
			}},
		}},
	}
	_, errs := Compile(o)
	require.NotEmpty(t, errs)
}

func TestCompileRuleDependencySet(t *testing.T) {
	o := &ast.OntologyAST{
		Types: []ast.NodeTypeDecl{
			{Name: "Task", Attrs: []ast.AttrDecl{{Name: "created_at", Type: ast.ScalarTimestamp, Optional: true}}},
		},
		Rules: []ast.RuleDecl{{
			Name:     "auto_ts",
			Priority: 100,
			Auto:     true,
			Pattern: ast.PatternAST{
				Vars: []ast.VarDecl{{Name: "t", Type: "Task"}},
			},
		}},
	}
	res, errs := Compile(o)
	require.Empty(t, errs)
	rule := res.Rules["auto_ts"]
	require.NotNil(t, rule)
	_, ok := rule.DependsOn.NodeTypes["Task"]
	assert.True(t, ok)
}

func TestCompileAndPublishInstallsRegistry(t *testing.T) {
	r := registry.New(10)
	o := &ast.OntologyAST{Types: []ast.NodeTypeDecl{{Name: "A"}}}
	require.NoError(t, CompileAndPublish(r, o))
	_, ok := r.Type("A")
	assert.True(t, ok)
}

func TestCompileAndPublishDoesNotInstallOnError(t *testing.T) {
	r := registry.New(10)
	require.NoError(t, CompileAndPublish(r, &ast.OntologyAST{Types: []ast.NodeTypeDecl{{Name: "A"}}}))

	bad := &ast.OntologyAST{Types: []ast.NodeTypeDecl{nodeType("X", "Ghost")}}
	err := CompileAndPublish(r, bad)
	require.Error(t, err)

	_, ok := r.Type("X")
	assert.False(t, ok, "a failed compile must not touch the published registry")
}
