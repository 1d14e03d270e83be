package match

import (
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/value"
)

// AggregateEval evaluates a pattern-based aggregate's correlated subplan
// for one outer binding, implementing spec.md §4.4 "Aggregate placement".
// Injected by the caller (pkg/kernel's Executor) since it requires running
// the full matcher recursively, which would otherwise be a Matcher->eval
// import cycle.
type AggregateEval func(outer Binding, agg ast.ExprAST) (value.Value, error)

// Evaluator evaluates expression trees against a Binding.
type Evaluator struct {
	Store     *store.Store
	Registry  *registry.Registry
	Params    map[string]value.Value
	Aggregate AggregateEval

	// Warnings accumulates non-fatal warnings produced while evaluating
	// (e.g. a truncated COLLECT inside an aggregate expression), for a
	// caller outside pkg/match to surface alongside its result.
	Warnings []kernelerr.Warning
}

// Eval evaluates e against b, implementing null propagation and
// three-valued logic per spec.md §4.4.
func (ev *Evaluator) Eval(b Binding, e ast.ExprAST) (value.Value, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		return literalValue(e.Literal), nil

	case ast.ExprVar:
		id, ok := b[e.Var]
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unbound variable %q", e.Var)
		}
		return ev.Store.RefOf(id), nil

	case ast.ExprAttr:
		id, ok := b[e.Var]
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unbound variable %q", e.Var)
		}
		v, _, err := ev.Store.GetAttr(id, e.Attr)
		if err != nil {
			return value.Null(), kernelerr.New(kernelerr.AnalysisError, "entity %s no longer exists", id)
		}
		return v, nil

	case ast.ExprParam:
		v, ok := ev.Params[e.Param]
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.AnalysisError, "undeclared parameter $%s", e.Param)
		}
		return v, nil

	case ast.ExprTypeCheck:
		id, ok := b[e.Var]
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unbound variable %q", e.Var)
		}
		ent, ok := ev.Store.Get(id)
		if !ok {
			return value.Bool(false), nil
		}
		return value.Bool(ev.Registry.IsDescendantOf(ent.TypeTag, e.TypeCheckType)), nil

	case ast.ExprCall:
		args := make([]value.Value, len(e.Args))
		for i, a := range e.Args {
			v, err := ev.Eval(b, a)
			if err != nil {
				return value.Null(), err
			}
			args[i] = v
		}
		v, ok := value.Call(e.Func, args)
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.RuntimeError, "call to %s failed or is unknown", e.Func)
		}
		return v, nil

	case ast.ExprBinOp:
		return ev.evalBinOp(b, e)

	case ast.ExprUnOp:
		return ev.evalUnOp(b, e)

	case ast.ExprAggregate:
		if ev.Aggregate == nil {
			return value.Null(), kernelerr.New(kernelerr.RuntimeError, "aggregate evaluation not available in this context")
		}
		return ev.Aggregate(b, e)

	default:
		return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unrecognized expression kind %q", e.Kind)
	}
}

func literalValue(l *ast.LiteralAST) value.Value {
	if l == nil {
		return value.Null()
	}
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

func (ev *Evaluator) evalBinOp(b Binding, e ast.ExprAST) (value.Value, error) {
	l, err := ev.Eval(b, *e.Left)
	if err != nil {
		return value.Null(), err
	}
	// Short-circuit boolean operators still need both to decide a
	// determinate answer; three-valued logic's And/Or already handle
	// null correctly without short-circuiting the second evaluation.
	r, err := ev.Eval(b, *e.Right)
	if err != nil {
		return value.Null(), err
	}
	switch e.Op {
	case "+":
		return value.Add(l, r), nil
	case "-":
		return value.Sub(l, r), nil
	case "*":
		return value.Mul(l, r), nil
	case "/":
		v, ok := value.Div(l, r)
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.RuntimeError, "division by zero")
		}
		return v, nil
	case "%":
		v, ok := value.Mod(l, r)
		if !ok {
			return value.Null(), kernelerr.New(kernelerr.RuntimeError, "modulo by zero")
		}
		return v, nil
	case "++":
		return value.Concat(l, r), nil
	case "=":
		return value.Eq(l, r), nil
	case "<>":
		return value.Neq(l, r), nil
	case "<":
		return value.Lt(l, r), nil
	case "<=":
		return value.Lte(l, r), nil
	case ">":
		return value.Gt(l, r), nil
	case ">=":
		return value.Gte(l, r), nil
	case "and":
		return value.And(l, r), nil
	case "or":
		return value.Or(l, r), nil
	case "??":
		return value.CoalesceOp(l, r), nil
	default:
		return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unrecognized operator %q", e.Op)
	}
}

func (ev *Evaluator) evalUnOp(b Binding, e ast.ExprAST) (value.Value, error) {
	v, err := ev.Eval(b, *e.Operand)
	if err != nil {
		return value.Null(), err
	}
	switch e.UnOp {
	case "-":
		return value.Neg(v), nil
	case "not":
		return value.Not(v), nil
	case "is_null":
		return value.Bool(v.IsNull()), nil
	case "is_not_null":
		return value.Bool(!v.IsNull()), nil
	default:
		return value.Null(), kernelerr.New(kernelerr.AnalysisError, "unrecognized unary operator %q", e.UnOp)
	}
}
