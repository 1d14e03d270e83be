// Package compiler lowers a declarative ontology AST into the Registry's
// compiled artifacts (spec.md §4.3): it resolves names, builds the
// inheritance DAG, validates edge signatures and attribute modifiers,
// lowers constraints and rules (computing their dependency sets), and
// installs the result atomically. All errors are collected; a partial
// registry is never published.
//
// Mirrors nornicdb's pkg/storage.SchemaManager's constraint/index
// registration (NewSchemaManager, AddUniqueConstraint, etc.) for the
// "validate then register" shape, generalized from Neo4j-style flat
// label/constraint pairs to MEW's inheritance DAG and edge signatures.
package compiler

import (
	"fmt"
	"regexp"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/value"
)

// Result holds the compiled artifacts, ready for Registry.Publish, along
// with every SHOW-friendly declaration order.
type Result struct {
	Types       map[string]*registry.NodeTypeDescriptor
	Edges       map[string]*registry.EdgeSignatureDescriptor
	Constraints map[string]*registry.ConstraintDescriptor
	Rules       map[string]*registry.RuleDescriptor
	RuleOrder   []string
}

// Compile lowers an ontology AST into a Result, or reports every schema
// error found. It never partially succeeds: if errs is non-empty, Result
// is nil.
func Compile(o *ast.OntologyAST) (*Result, []error) {
	c := &compilation{ontology: o}
	c.resolveNames()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	c.buildInheritance()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	c.flattenAttrs()
	c.validateEdges()
	c.validateModifiers()
	c.lowerConstraints()
	c.lowerRules()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return &Result{
		Types:       c.types,
		Edges:       c.edges,
		Constraints: c.constraints,
		Rules:       c.rules,
		RuleOrder:   c.ruleOrder,
	}, nil
}

// CompileAndPublish compiles o and, on success, publishes the result into
// r atomically (spec.md §4.3 item 7). On failure r is left untouched.
func CompileAndPublish(r *registry.Registry, o *ast.OntologyAST) error {
	res, errs := Compile(o)
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	r.Publish(res.Types, res.Edges, res.Constraints, res.Rules, res.RuleOrder)
	return nil
}

func joinErrors(errs []error) error {
	msg := fmt.Sprintf("%d schema error(s):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return kernelerr.New(kernelerr.SchemaError, "%s", msg)
}

type compilation struct {
	ontology *ast.OntologyAST
	errs     []error

	nodeDecls map[string]*ast.NodeTypeDecl
	edgeDecls map[string]*ast.EdgeTypeDecl

	types map[string]*registry.NodeTypeDescriptor
	edges map[string]*registry.EdgeSignatureDescriptor

	constraints map[string]*registry.ConstraintDescriptor
	rules       map[string]*registry.RuleDescriptor
	ruleOrder   []string
}

func (c *compilation) fail(format string, args ...interface{}) {
	c.errs = append(c.errs, kernelerr.New(kernelerr.SchemaError, format, args...))
}

// resolveNames rejects duplicate type/edge declarations and records each
// declaration for the later passes (spec.md §4.3 item 1).
func (c *compilation) resolveNames() {
	c.nodeDecls = make(map[string]*ast.NodeTypeDecl)
	c.edgeDecls = make(map[string]*ast.EdgeTypeDecl)
	c.types = make(map[string]*registry.NodeTypeDescriptor)
	c.edges = make(map[string]*registry.EdgeSignatureDescriptor)

	for i := range c.ontology.Types {
		decl := &c.ontology.Types[i]
		if _, dup := c.nodeDecls[decl.Name]; dup {
			c.fail("duplicate node type %q", decl.Name)
			continue
		}
		c.nodeDecls[decl.Name] = decl
	}
	for i := range c.ontology.Edges {
		decl := &c.ontology.Edges[i]
		if _, dup := c.edgeDecls[decl.Name]; dup {
			c.fail("duplicate edge type %q", decl.Name)
			continue
		}
		c.edgeDecls[decl.Name] = decl
	}
	for name, decl := range c.nodeDecls {
		for _, p := range decl.Parents {
			if _, ok := c.nodeDecls[p]; !ok {
				c.fail("node type %q declares unknown parent %q", name, p)
			}
		}
	}
}

// buildInheritance constructs the inheritance DAG, rejects cycles, and
// computes each type's transitive ancestor and descendant sets (spec.md
// §4.3 item 2).
func (c *compilation) buildInheritance() {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	ancestors := make(map[string]map[string]struct{})

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case done:
			return true
		case visiting:
			c.fail("inheritance cycle detected at node type %q", name)
			return false
		}
		state[name] = visiting
		decl := c.nodeDecls[name]
		anc := make(map[string]struct{})
		for _, p := range decl.Parents {
			if !visit(p) {
				return false
			}
			anc[p] = struct{}{}
			for a := range ancestors[p] {
				anc[a] = struct{}{}
			}
		}
		ancestors[name] = anc
		state[name] = done
		return true
	}

	for name := range c.nodeDecls {
		visit(name)
	}
	if len(c.errs) > 0 {
		return
	}

	descendants := make(map[string]map[string]struct{})
	for name := range c.nodeDecls {
		descendants[name] = map[string]struct{}{name: {}}
	}
	for name, anc := range ancestors {
		for a := range anc {
			descendants[a][name] = struct{}{}
		}
	}

	for name, decl := range c.nodeDecls {
		c.types[name] = &registry.NodeTypeDescriptor{
			Name:        name,
			Parents:     append([]string(nil), decl.Parents...),
			Abstract:    decl.Abstract,
			Ancestors:   ancestors[name],
			Descendants: descendants[name],
			Attrs:       map[string]registry.AttrDescriptor{},
		}
	}
}

// flattenAttrs merges each type's own attributes with those inherited from
// its ancestors, rejecting incompatible re-declarations of the same name
// (spec.md §4.3 item 2 "Reject multiple attribute declarations with the
// same name and incompatible types across parents; identical declarations
// merge").
func (c *compilation) flattenAttrs() {
	var order []string
	visited := make(map[string]bool)
	var topo func(name string)
	topo = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, p := range c.nodeDecls[name].Parents {
			topo(p)
		}
		order = append(order, name)
	}
	for name := range c.nodeDecls {
		topo(name)
	}

	for _, name := range order {
		desc := c.types[name]
		for _, p := range c.nodeDecls[name].Parents {
			for attrName, attr := range c.types[p].Attrs {
				c.mergeAttr(desc, attrName, attr)
			}
		}
		for _, a := range c.nodeDecls[name].Attrs {
			c.mergeAttr(desc, a.Name, toAttrDescriptor(a))
		}
	}
}

func (c *compilation) mergeAttr(desc *registry.NodeTypeDescriptor, name string, attr registry.AttrDescriptor) {
	existing, ok := desc.Attrs[name]
	if !ok {
		desc.Attrs[name] = attr
		return
	}
	if existing.Type != attr.Type {
		c.fail("type %q: attribute %q redeclared with incompatible type (%s vs %s)", desc.Name, name, existing.Type, attr.Type)
		return
	}
	// Identical-enough declarations merge silently (spec.md §4.3 item 2).
	desc.Attrs[name] = attr
}

func toAttrDescriptor(a ast.AttrDecl) registry.AttrDescriptor {
	var def *value.Value
	if a.Default != nil {
		v := literalToValue(*a.Default)
		def = &v
	}
	return registry.AttrDescriptor{
		Name:      a.Name,
		Type:      a.Type,
		Optional:  a.Optional,
		Default:   def,
		Modifiers: a.Modifiers,
	}
}

// validateEdges validates each edge signature's positions, flattening
// unions and resolving edge<T> references (spec.md §4.3 item 3).
func (c *compilation) validateEdges() {
	for name, decl := range c.edgeDecls {
		positions := make([]registry.PositionDescriptor, 0, len(decl.Positions))
		for _, p := range decl.Positions {
			c.validateTypeExpr(name, p.Name, p.TypeExpr)
			te := p.TypeExpr
			for te.Kind == ast.TypeExprUnion {
				flat, nested := make([]ast.TypeExpr, 0, len(te.Union)), false
				for _, m := range te.Union {
					if m.Kind == ast.TypeExprUnion {
						flat, nested = append(flat, m.Union...), true
					} else {
						flat = append(flat, m)
					}
				}
				te.Union = flat
				if !nested {
					break
				}
			}
			positions = append(positions, registry.PositionDescriptor{
				Name:              p.Name,
				TypeExpr:          te,
				ReferentialAction: p.ReferentialAction.OrDefault(),
			})
		}
		attrs := map[string]registry.AttrDescriptor{}
		for _, a := range decl.Attrs {
			attrs[a.Name] = toAttrDescriptor(a)
		}
		c.edges[name] = &registry.EdgeSignatureDescriptor{
			Name:        name,
			Positions:   positions,
			Attrs:       attrs,
			NoSelf:      decl.NoSelf,
			Acyclic:     decl.Acyclic,
			Symmetric:   decl.Symmetric,
			Cardinality: decl.Cardinality,
		}
	}
}

func (c *compilation) validateTypeExpr(edgeName, posName string, te ast.TypeExpr) {
	switch te.Kind {
	case ast.TypeExprAny:
		return
	case ast.TypeExprNode:
		if _, ok := c.nodeDecls[te.Name]; !ok {
			c.fail("edge %q position %q references unknown node type %q", edgeName, posName, te.Name)
		}
	case ast.TypeExprEdgeOf:
		if te.EdgeType == "any" {
			return
		}
		if _, ok := c.edgeDecls[te.EdgeType]; !ok {
			c.fail("edge %q position %q references unknown edge type %q in edge<%s>", edgeName, posName, te.EdgeType, te.EdgeType)
		}
	case ast.TypeExprUnion:
		if len(te.Union) == 0 {
			c.fail("edge %q position %q declares an empty union", edgeName, posName)
		}
		for _, member := range te.Union {
			c.validateTypeExpr(edgeName, posName, member)
		}
	default:
		c.fail("edge %q position %q has an unrecognized type expression", edgeName, posName)
	}
}

// validateModifiers validates attribute modifier well-formedness (spec.md
// §4.3 item 4): regex compiles, numeric bounds consistent, length ranges
// ordered.
func (c *compilation) validateModifiers() {
	for _, t := range c.types {
		for name, a := range t.Attrs {
			c.validateOneModifier(fmt.Sprintf("type %s attr %s", t.Name, name), a.Modifiers)
		}
	}
	for _, e := range c.edges {
		for name, a := range e.Attrs {
			c.validateOneModifier(fmt.Sprintf("edge %s attr %s", e.Name, name), a.Modifiers)
		}
	}
}

func (c *compilation) validateOneModifier(context string, m ast.AttrModifiers) {
	if m.Match != "" {
		if _, err := regexp.Compile(m.Match); err != nil {
			c.fail("%s: invalid [match] regex %q: %v", context, m.Match, err)
		}
	}
	if m.Min != nil && m.Max != nil && *m.Min > *m.Max {
		c.fail("%s: [>= %v] exceeds [<= %v]", context, *m.Min, *m.Max)
	}
	if m.LenMin != nil && m.LenMax != nil && *m.LenMin > *m.LenMax {
		c.fail("%s: [length: %d..%d] is inverted", context, *m.LenMin, *m.LenMax)
	}
}
