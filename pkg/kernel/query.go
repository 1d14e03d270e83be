package kernel

import (
	"context"
	"fmt"
	"sort"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/value"
)

// runQuery executes a MATCH...WHERE...RETURN statement (spec.md §4.4,
// §6): compile and run the pattern, project the RETURN list, then apply
// ORDER BY, DISTINCT, OFFSET, LIMIT in that order, mirroring the
// Order/Limit/Offset/Distinct/Project result-shaping table spec.md §4
// lists.
func (k *Kernel) runQuery(ctx context.Context, q *ast.QueryAST, params map[string]value.Value) (*QueryResult, []kernelerr.Warning, error) {
	res, err := k.Matcher.MatchPattern(ctx, q.Pattern, params)
	if err != nil {
		return nil, nil, err
	}

	ev := k.Matcher.NewEvaluator(ctx, params)
	rows, err := match.Project(ev, res.Bindings, q.Return)
	if err != nil {
		return nil, nil, err
	}

	if len(q.OrderBy) > 0 {
		if err := orderByExprs(ev, res.Bindings, rows, q.OrderBy); err != nil {
			return nil, nil, err
		}
	}

	if q.Distinct {
		rows = match.Distinct(rows)
	}

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	rows = match.Offset(rows, offset)

	limit := -1
	if q.Limit != nil {
		limit = *q.Limit
	}
	rows = match.Limit(rows, limit)

	return &QueryResult{
		Columns: columnNames(q),
		Types:   columnTypes(rows, len(q.Return)),
		Rows:    rows,
	}, append(res.Warnings, ev.Warnings...), nil
}

// columnNames uses the statement's declared aliases where given, falling
// back to the variable's own name for a bare variable and to a positional
// placeholder (col0, col1, ...) for any other unaliased RETURN expression —
// the surface grammar is expected to always alias non-trivial expressions,
// but the kernel must still produce a name for every column.
func columnNames(q *ast.QueryAST) []string {
	names := make([]string, len(q.Return))
	for i := range names {
		if i < len(q.Aliases) && q.Aliases[i] != "" {
			names[i] = q.Aliases[i]
			continue
		}
		if q.Return[i].Kind == ast.ExprVar {
			names[i] = q.Return[i].Var
			continue
		}
		names[i] = fmt.Sprintf("col%d", i)
	}
	return names
}

// orderByExprs sorts rows in place by evaluating each ORDER BY expression
// against the binding at the same index; bindings itself keeps its
// original order — unlike
// match.Order, which sorts by an already-projected column index, ORDER BY
// may reference an expression that never appears in RETURN.
func orderByExprs(ev *match.Evaluator, bindings []match.Binding, rows []match.Row, orderBy []ast.OrderKey) error {
	keys := make([][]value.Value, len(bindings))
	for i, b := range bindings {
		row := make([]value.Value, len(orderBy))
		for j, ok := range orderBy {
			v, err := ev.Eval(b, ok.Expr)
			if err != nil {
				return err
			}
			row[j] = v
		}
		keys[i] = row
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		for i, ok := range orderBy {
			c := value.Compare(ka[i], kb[i])
			if c == 0 {
				continue
			}
			if ok.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	out := make([]match.Row, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	copy(rows, out)
	return nil
}
