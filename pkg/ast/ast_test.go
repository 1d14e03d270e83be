package ast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOntologyYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ontology.yaml")

	src := `
types:
  - name: Person
    attrs:
      - name: name
        type: String
      - name: email
        type: String
        modifiers:
          unique: true
edges:
  - name: knows
    positions:
      - name: a
        type:
          kind: 0
          name: Person
      - name: b
        type:
          kind: 0
          name: Person
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	o, err := LoadOntologyYAML(path)
	require.NoError(t, err)
	require.Len(t, o.Types, 1)
	require.Equal(t, "Person", o.Types[0].Name)
	require.Len(t, o.Edges, 1)
	require.Equal(t, "knows", o.Edges[0].Name)
	require.True(t, o.Types[0].Attrs[1].Modifiers.Unique)
}

func TestLoadScriptYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")

	src := `
statements:
  - kind: MUTATION
    action:
      kind: SPAWN
      node_type: Person
      as: alice
      attrs:
        - attr: name
          expr:
            kind: literal
            literal:
              kind: string
              str: Alice
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	s, err := LoadScriptYAML(path)
	require.NoError(t, err)
	require.Len(t, s.Statements, 1)
	require.Equal(t, StmtMutation, s.Statements[0].Kind)
	require.Equal(t, ActionSpawn, s.Statements[0].Action.Kind)
	require.Equal(t, "Alice", s.Statements[0].Action.Attrs[0].Expr.Literal.Str)
}

func TestMarshalOntologyYAML(t *testing.T) {
	o := &OntologyAST{
		Types: []NodeTypeDecl{{Name: "Task"}},
	}
	data, err := MarshalOntologyYAML(o)
	require.NoError(t, err)
	require.Contains(t, string(data), "Task")
}
