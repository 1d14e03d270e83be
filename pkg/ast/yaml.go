package ast

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOntologyYAML parses a YAML ontology description into an OntologyAST,
// mirroring nornicdb's apoc/config.go use of yaml.v3 for declarative
// configuration documents.
func LoadOntologyYAML(path string) (*OntologyAST, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast: read ontology %s: %w", path, err)
	}
	var o OntologyAST
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("ast: parse ontology %s: %w", path, err)
	}
	return &o, nil
}

// LoadScriptYAML parses a YAML-encoded statement sequence into a ScriptAST.
func LoadScriptYAML(path string) (*ScriptAST, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast: read script %s: %w", path, err)
	}
	var s ScriptAST
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("ast: parse script %s: %w", path, err)
	}
	return &s, nil
}

// MarshalOntologyYAML serializes an OntologyAST back to YAML, used by
// round-trip tests.
func MarshalOntologyYAML(o *OntologyAST) ([]byte, error) {
	return yaml.Marshal(o)
}
