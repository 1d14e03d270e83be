package kernel

import (
	"context"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/mutate"
	"github.com/mew-lang/mew/pkg/value"
)

// runMutation executes one top-level SPAWN/LINK/KILL/UNLINK/SET statement
// against sess (spec.md §4.5, §6 "Mutation"), sorting the touched ids into
// Created/Killed/Updated by action kind and wrapping any RETURNING
// projection into a QueryResult.
func (k *Kernel) runMutation(ctx context.Context, sess *mutate.Session, action *ast.ActionAST, params map[string]value.Value) (*MutationResult, []kernelerr.Warning, error) {
	ev := k.Matcher.NewEvaluator(ctx, params)
	_, rows, ids, err := sess.ExecuteAction(ctx, ev, params, match.Binding{}, *action)
	if err != nil {
		return nil, nil, err
	}

	mr := &MutationResult{}
	switch action.Kind {
	case ast.ActionSpawn, ast.ActionLink:
		mr.Created = ids
	case ast.ActionKill, ast.ActionUnlink:
		mr.Killed = ids
	case ast.ActionSet:
		mr.Updated = ids
	default:
		return nil, nil, kernelerr.New(kernelerr.AnalysisError, "unrecognized action kind %q", action.Kind)
	}

	if len(action.Returning) > 0 {
		mr.Returning = &QueryResult{
			Columns: action.Returning,
			Types:   columnTypes(rows, len(action.Returning)),
			Rows:    rows,
		}
	}
	return mr, ev.Warnings, nil
}
