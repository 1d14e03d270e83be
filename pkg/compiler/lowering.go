package compiler

import (
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/value"
)

func literalToValue(l ast.LiteralAST) value.Value {
	switch l.Kind {
	case ast.LitNull:
		return value.Null()
	case ast.LitBool:
		return value.Bool(l.Bool)
	case ast.LitInt:
		return value.Int(l.Int)
	case ast.LitFloat:
		return value.Float(l.Float)
	case ast.LitString:
		return value.String(l.Str)
	case ast.LitTimestamp:
		return value.Timestamp(l.TimestampMs)
	case ast.LitDuration:
		return value.Duration(l.DurationMs)
	case ast.LitIDRef:
		return value.NodeRef(l.IDRef)
	default:
		return value.Null()
	}
}

// lowerConstraints validates each constraint's pattern/guard references and
// computes its dependency set (spec.md §4.3 item 5, item 6; §4.6).
func (c *compilation) lowerConstraints() {
	c.constraints = make(map[string]*registry.ConstraintDescriptor)
	for i := range c.ontology.Constraints {
		decl := &c.ontology.Constraints[i]
		if _, dup := c.constraints[decl.Name]; dup {
			c.fail("duplicate constraint %q", decl.Name)
			continue
		}
		c.validatePattern("constraint "+decl.Name, decl.Pattern)
		nodeTypes, edgeTypes := c.collectPatternTypes(decl.Pattern)
		c.constraints[decl.Name] = &registry.ConstraintDescriptor{
			Name:     decl.Name,
			Soft:     decl.Soft,
			Message:  decl.Message,
			Pattern:  decl.Pattern,
			Guard:    derefExpr(decl.Guard),
			HasGuard: decl.Guard.Kind != "",
			Negate:   decl.Negate,
			DependsOn: registry.DependencySet{
				NodeTypes: nodeTypes,
				EdgeTypes: edgeTypes,
			},
		}
	}
}

func derefExpr(e ast.ExprAST) ast.ExprAST { return e }

// lowerRules validates each rule's pattern/production references and
// computes its dependency set (spec.md §4.3 item 5, item 6; §4.7).
func (c *compilation) lowerRules() {
	c.rules = make(map[string]*registry.RuleDescriptor)
	c.ruleOrder = nil
	for i := range c.ontology.Rules {
		decl := &c.ontology.Rules[i]
		if _, dup := c.rules[decl.Name]; dup {
			c.fail("duplicate rule %q", decl.Name)
			continue
		}
		c.validatePattern("rule "+decl.Name, decl.Pattern)
		for _, action := range decl.Production {
			c.validateAction("rule "+decl.Name, action)
		}
		nodeTypes, edgeTypes := c.collectPatternTypes(decl.Pattern)
		c.rules[decl.Name] = &registry.RuleDescriptor{
			Name:             decl.Name,
			Priority:         decl.Priority,
			Auto:             decl.Auto,
			Pattern:          decl.Pattern,
			Production:       decl.Production,
			DeclarationOrder: i,
			DependsOn: registry.DependencySet{
				NodeTypes: nodeTypes,
				EdgeTypes: edgeTypes,
			},
		}
		c.ruleOrder = append(c.ruleOrder, decl.Name)
	}
}

func (c *compilation) validateAction(context string, a ast.ActionAST) {
	switch a.Kind {
	case ast.ActionSpawn:
		t, ok := c.nodeDecls[a.NodeType]
		if !ok {
			c.fail("%s: SPAWN references unknown node type %q", context, a.NodeType)
			return
		}
		if t.Abstract {
			c.fail("%s: SPAWN references abstract node type %q", context, a.NodeType)
		}
	case ast.ActionLink:
		if _, ok := c.edgeDecls[a.EdgeType]; !ok {
			c.fail("%s: LINK references unknown edge type %q", context, a.EdgeType)
		}
	case ast.ActionKill, ast.ActionUnlink, ast.ActionSet:
		// Variable resolution against the pattern/production binding
		// scope happens in the Analyzer (pkg/kernel), which has the live
		// binding environment; the Compiler only validates declared
		// schema references.
	}
}

// validatePattern checks that every type a pattern references (variable
// types, edge types) is declared, recursing into EXISTS/NOT EXISTS
// subpatterns (spec.md §4.3 item 5).
func (c *compilation) validatePattern(context string, p ast.PatternAST) {
	for _, v := range p.Vars {
		if v.Type == "" || v.Type == "any" {
			continue
		}
		if _, ok := c.nodeDecls[v.Type]; !ok {
			if _, ok := c.edgeDecls[v.Type]; !ok {
				c.fail("%s: variable %q has unknown type %q", context, v.Name, v.Type)
			}
		}
	}
	for _, e := range p.Edges {
		if _, ok := c.edgeDecls[e.EdgeType]; !ok {
			c.fail("%s: pattern references unknown edge type %q", context, e.EdgeType)
		}
	}
	for _, sub := range p.Exists {
		c.validatePattern(context, sub)
	}
	for _, sub := range p.NotExists {
		c.validatePattern(context, sub)
	}
}

// collectPatternTypes gathers every node type (expanded to its full
// descendant set) and edge type a pattern can match against, for use as a
// constraint's or rule's dependency set (spec.md §4.2, GLOSSARY "Dependency
// set").
func (c *compilation) collectPatternTypes(p ast.PatternAST) (map[string]struct{}, map[string]struct{}) {
	nodeTypes := map[string]struct{}{}
	edgeTypes := map[string]struct{}{}
	c.collectPatternTypesInto(p, nodeTypes, edgeTypes)
	return nodeTypes, edgeTypes
}

func (c *compilation) collectPatternTypesInto(p ast.PatternAST, nodeTypes, edgeTypes map[string]struct{}) {
	for _, v := range p.Vars {
		if v.Type == "" || v.Type == "any" {
			continue
		}
		if t, ok := c.types[v.Type]; ok {
			for d := range t.Descendants {
				nodeTypes[d] = struct{}{}
			}
			continue
		}
		if _, ok := c.edges[v.Type]; ok {
			edgeTypes[v.Type] = struct{}{}
		}
	}
	for _, e := range p.Edges {
		edgeTypes[e.EdgeType] = struct{}{}
	}
	for _, sub := range p.Exists {
		c.collectPatternTypesInto(sub, nodeTypes, edgeTypes)
	}
	for _, sub := range p.NotExists {
		c.collectPatternTypesInto(sub, nodeTypes, edgeTypes)
	}
}
