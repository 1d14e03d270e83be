package mutate

import (
	"context"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// ExecuteAction runs one ActionAST against binding (the variables already
// bound in the current statement or rule production), evaluating
// expressions via ev, and returns the binding extended by whatever the
// action binds (action.As for SPAWN/LINK, nothing for KILL/UNLINK/SET),
// the RETURNING projection if requested, and every id the action touched
// (the spawned node, the linked edge, or every killed/unlinked/set id in
// a bulk variant) so a caller reporting a statement-level Mutation result
// (created/killed/updated, spec.md §6) doesn't have to re-derive it.
//
// Bulk KILL/UNLINK/SET (action.Match set instead of action.Var) resolve
// the pattern first against the pre-mutation state, snapshot the
// matching ids, then apply the write to each snapshotted id — spec.md
// §4.5 "Bulk variants execute the pattern first ... snapshot the
// matching ids, then apply the write to each."
func (s *Session) ExecuteAction(ctx context.Context, ev *match.Evaluator, params map[string]value.Value, binding match.Binding, action ast.ActionAST) (match.Binding, []match.Row, []store.EntityId, error) {
	switch action.Kind {
	case ast.ActionSpawn:
		return s.execSpawn(ev, binding, action)
	case ast.ActionLink:
		return s.execLink(ev, binding, action)
	case ast.ActionKill:
		return s.execTombstone(ctx, ev, params, binding, action, s.Kill)
	case ast.ActionUnlink:
		return s.execTombstone(ctx, ev, params, binding, action, s.Unlink)
	case ast.ActionSet:
		return s.execSet(ctx, ev, params, binding, action)
	default:
		return binding, nil, nil, kernelerr.New(kernelerr.AnalysisError, "unrecognized action kind %q", action.Kind)
	}
}

func (s *Session) execSpawn(ev *match.Evaluator, binding match.Binding, action ast.ActionAST) (match.Binding, []match.Row, []store.EntityId, error) {
	attrs, err := evalAttrAssigns(ev, binding, action.Attrs)
	if err != nil {
		return binding, nil, nil, err
	}
	id, err := s.Spawn(action.NodeType, attrs)
	if err != nil {
		return binding, nil, nil, err
	}
	nb := binding.Clone()
	if action.As != "" {
		nb[action.As] = id
	}
	rows, err := s.returning(nb, id, action.Returning)
	return nb, rows, []store.EntityId{id}, err
}

// execLink resolves each target (a bound variable, or an inline SPAWN
// desugared into a Spawn call first), then links across the resolved
// ids — spec.md §4.5 "Inline SPAWN in LINK" desugaring.
func (s *Session) execLink(ev *match.Evaluator, binding match.Binding, action ast.ActionAST) (match.Binding, []match.Row, []store.EntityId, error) {
	nb := binding.Clone()
	resolved := make([]store.EntityId, len(action.Targets))
	var spawned []store.EntityId
	for i, t := range action.Targets {
		if t.Inline != nil {
			var err error
			var ids []store.EntityId
			nb, _, ids, err = s.execSpawn(ev, nb, *t.Inline)
			if err != nil {
				return binding, nil, nil, err
			}
			spawned = append(spawned, ids...)
			resolved[i] = nb[t.Inline.As]
			continue
		}
		id, ok := nb[t.Var]
		if !ok {
			return binding, nil, nil, kernelerr.New(kernelerr.AnalysisError, "LINK: target variable %q is not bound", t.Var)
		}
		resolved[i] = id
	}

	attrs, err := evalAttrAssigns(ev, nb, action.Attrs)
	if err != nil {
		return binding, nil, nil, err
	}
	edgeID, err := s.Link(action.EdgeType, resolved, attrs, action.IfNotExists)
	if err != nil {
		return binding, nil, nil, err
	}
	if action.As != "" {
		nb[action.As] = edgeID
	}
	rows, err := s.returning(nb, edgeID, action.Returning)
	return nb, rows, append(spawned, edgeID), err
}

func (s *Session) execSet(ctx context.Context, ev *match.Evaluator, params map[string]value.Value, binding match.Binding, action ast.ActionAST) (match.Binding, []match.Row, []store.EntityId, error) {
	apply := func(id store.EntityId) error {
		scope := binding.Clone()
		scope[action.Var] = id
		for _, a := range action.Assignments {
			v, err := ev.Eval(scope, a.Expr)
			if err != nil {
				return err
			}
			if err := s.Set(id, a.Attr, v); err != nil {
				return err
			}
		}
		return nil
	}

	if action.Match == nil {
		id, ok := binding[action.Var]
		if !ok {
			return binding, nil, nil, kernelerr.New(kernelerr.AnalysisError, "SET: variable %q is not bound", action.Var)
		}
		if err := apply(id); err != nil {
			return binding, nil, nil, err
		}
		rows, err := s.returning(binding, id, action.Returning)
		return binding, rows, []store.EntityId{id}, err
	}

	ids, err := s.snapshotMatch(ctx, params, *action.Match, action.Var)
	if err != nil {
		return binding, nil, nil, err
	}
	var rows []match.Row
	for _, id := range ids {
		if err := apply(id); err != nil {
			return binding, nil, nil, err
		}
		rr, err := s.returning(binding, id, action.Returning)
		if err != nil {
			return binding, nil, nil, err
		}
		rows = append(rows, rr...)
	}
	return binding, rows, ids, nil
}

func (s *Session) execTombstone(ctx context.Context, ev *match.Evaluator, params map[string]value.Value, binding match.Binding, action ast.ActionAST, op func(store.EntityId) error) (match.Binding, []match.Row, []store.EntityId, error) {
	if action.Match == nil {
		id, ok := binding[action.Var]
		if !ok {
			return binding, nil, nil, kernelerr.New(kernelerr.AnalysisError, "%s: variable %q is not bound", action.Kind, action.Var)
		}
		if err := op(id); err != nil {
			return binding, nil, nil, err
		}
		rows, err := s.returning(binding, id, action.Returning)
		return binding, rows, []store.EntityId{id}, err
	}

	ids, err := s.snapshotMatch(ctx, params, *action.Match, action.Var)
	if err != nil {
		return binding, nil, nil, err
	}
	var rows []match.Row
	for _, id := range ids {
		if err := op(id); err != nil {
			return binding, nil, nil, err
		}
		rr, err := s.returning(binding, id, action.Returning)
		if err != nil {
			return binding, nil, nil, err
		}
		rows = append(rows, rr...)
	}
	return binding, rows, ids, nil
}

// snapshotMatch evaluates pattern against the pre-mutation state and
// returns the ids bound to varName in every resulting binding,
// snapshotted before any write happens (spec.md §4.5 "Bulk variants").
func (s *Session) snapshotMatch(ctx context.Context, params map[string]value.Value, pattern ast.PatternAST, varName string) ([]store.EntityId, error) {
	res, err := s.eng.Matcher.MatchPattern(ctx, pattern, params)
	if err != nil {
		return nil, err
	}
	ids := make([]store.EntityId, 0, len(res.Bindings))
	for _, b := range res.Bindings {
		if id, ok := b[varName]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// returning projects the attribute names in want against id, or just
// "id" / "*" markers (spec.md §4.5 "RETURNING").
func (s *Session) returning(binding match.Binding, id store.EntityId, want []string) ([]match.Row, error) {
	if len(want) == 0 {
		return nil, nil
	}
	row := make(match.Row, 0, len(want))
	for _, w := range want {
		switch w {
		case "id":
			row = append(row, s.eng.Store.RefOf(id))
		case "*":
			ent, ok := s.eng.Store.Get(id)
			if ok {
				for _, name := range ent.AttrNames() {
					v, _ := ent.Attr(name)
					row = append(row, v)
				}
			}
		default:
			v, _, err := s.eng.Store.GetAttr(id, w)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
	}
	return []match.Row{row}, nil
}

// evalAttrAssigns evaluates each attribute-literal entry against binding.
func evalAttrAssigns(ev *match.Evaluator, binding match.Binding, assigns []ast.AttrAssign) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(assigns))
	for _, a := range assigns {
		v, err := ev.Eval(binding, a.Expr)
		if err != nil {
			return nil, err
		}
		out[a.Attr] = v
	}
	return out, nil
}
