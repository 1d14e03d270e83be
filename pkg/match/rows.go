package match

import (
	"sort"

	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/value"
)

// Row is one projected output record: the ordered scalar values named by
// a query's RETURN clause (spec.md §4.4 "Project").
type Row []value.Value

// Project evaluates exprs against every binding, producing one Row per
// binding (spec.md §4.4 "Project(expr list)").
func Project(ev *Evaluator, bindings []Binding, exprs []ast.ExprAST) ([]Row, error) {
	rows := make([]Row, 0, len(bindings))
	for _, b := range bindings {
		row := make(Row, len(exprs))
		for i, e := range exprs {
			v, err := ev.Eval(b, e)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// OrderKey is one ORDER BY term: which projected column to sort on and
// in which direction.
type OrderKey struct {
	Col  int
	Desc bool
}

// Order sorts rows by keys in order, applying value.Compare's NaN-last /
// null-first semantics to each column (SPEC_FULL.md §D.3). The sort is
// stable so ties preserve the matcher's natural (plan-determined) order.
func Order(rows []Row, keys []OrderKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := value.Compare(rows[i][k.Col], rows[j][k.Col])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Limit truncates rows to at most n, or returns rows unchanged if n < 0
// (no limit specified).
func Limit(rows []Row, n int) []Row {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Offset skips the first n rows.
func Offset(rows []Row, n int) []Row {
	if n <= 0 {
		return rows
	}
	if n >= len(rows) {
		return nil
	}
	return rows[n:]
}

// Distinct removes duplicate rows, keeping the first occurrence, comparing
// rows by each value's rendered string and kind, so Int 1 and Float 1 are
// distinct values here (spec.md §4.4 "Distinct").
func Distinct(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		key := rowKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func rowKey(r Row) string {
	key := ""
	for _, v := range r {
		key += v.String() + "\x1f" + v.Kind().String() + "\x1e"
	}
	return key
}

// AggregateFn computes one of COUNT/SUM/AVG/MIN/MAX/COLLECT over a column
// of a group of rows (spec.md §6 "Aggregate functions", §8 "Boundary
// behaviors": empty group gives COUNT=0, SUM=0, MIN/MAX/AVG=null, and
// COLLECT=the empty list).
func AggregateFn(fn string, vs []value.Value, collectLimit int) (value.Value, bool) {
	switch fn {
	case "count":
		return value.Int(int64(len(vs))), false
	case "sum":
		if len(vs) == 0 {
			return value.Int(0), false
		}
		acc := value.Int(0)
		for _, v := range vs {
			acc = value.Add(acc, v)
		}
		return acc, false
	case "avg":
		if len(vs) == 0 {
			return value.Null(), false
		}
		acc := value.Float(0)
		for _, v := range vs {
			acc = value.Add(acc, v)
		}
		n, _ := value.Int(int64(len(vs))).Float64()
		sum, _ := acc.Float64()
		return value.Float(sum / n), false
	case "min":
		if len(vs) == 0 {
			return value.Null(), false
		}
		best := vs[0]
		for _, v := range vs[1:] {
			if value.Compare(v, best) < 0 {
				best = v
			}
		}
		return best, false
	case "max":
		if len(vs) == 0 {
			return value.Null(), false
		}
		best := vs[0]
		for _, v := range vs[1:] {
			if value.Compare(v, best) > 0 {
				best = v
			}
		}
		return best, false
	case "collect":
		truncated := false
		if collectLimit > 0 && len(vs) > collectLimit {
			vs = vs[:collectLimit]
			truncated = true
		}
		return value.ListOf(append([]value.Value(nil), vs...)), truncated
	default:
		return value.Null(), false
	}
}
