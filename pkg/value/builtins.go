package value

import (
	"math"
	"strings"
	"time"
)

// Builtin is a callable built-in function as named in spec.md §6.
type Builtin func(args []Value) (Value, bool)

// Builtins is the table of built-in scalar functions the kernel must
// provide. Aggregates (COUNT/SUM/AVG/MIN/MAX/COLLECT) are implemented by
// pkg/match's Aggregate operator instead, since they fold over a binding
// set rather than a single row.
var Builtins = map[string]Builtin{
	"now":         fnNow,
	"wall_time":   fnNow,
	"length":      fnLength,
	"upper":       fnUpper,
	"lower":       fnLower,
	"trim":        fnTrim,
	"starts_with": fnStartsWith,
	"ends_with":   fnEndsWith,
	"contains":    fnContains,
	"substring":   fnSubstring,
	"replace":     fnReplace,
	"split":       fnSplit,
	"abs":         fnAbs,
	"min":         fnMin,
	"max":         fnMax,
	"floor":       fnFloor,
	"ceil":        fnCeil,
	"round":       fnRound,
	"year":        timePart(func(t time.Time) int { return t.Year() }),
	"month":       timePart(func(t time.Time) int { return int(t.Month()) }),
	"day":         timePart(func(t time.Time) int { return t.Day() }),
	"hour":        timePart(func(t time.Time) int { return t.Hour() }),
	"minute":      timePart(func(t time.Time) int { return t.Minute() }),
	"second":      timePart(func(t time.Time) int { return t.Second() }),
	"coalesce":    fnCoalesce,
	"is_null":     fnIsNull,
}

func fnNow(args []Value) (Value, bool) {
	return Timestamp(time.Now().UTC().UnixMilli()), true
}

func fnLength(args []Value) (Value, bool) {
	if len(args) != 1 {
		return Null(), false
	}
	v := args[0]
	switch v.kind {
	case KindNull:
		return Null(), true
	case KindString:
		return Int(int64(len([]rune(v.s)))), true
	case KindList:
		return Int(int64(len(v.list))), true
	default:
		return Null(), false
	}
}

func fnUpper(args []Value) (Value, bool) {
	return stringOp1(args, strings.ToUpper)
}

func fnLower(args []Value) (Value, bool) {
	return stringOp1(args, strings.ToLower)
}

func fnTrim(args []Value) (Value, bool) {
	return stringOp1(args, strings.TrimSpace)
}

func stringOp1(args []Value, f func(string) string) (Value, bool) {
	if len(args) != 1 {
		return Null(), false
	}
	if args[0].IsNull() {
		return Null(), true
	}
	if args[0].kind != KindString {
		return Null(), false
	}
	return String(f(args[0].s)), true
}

func fnStartsWith(args []Value) (Value, bool) { return stringOp2Bool(args, strings.HasPrefix) }
func fnEndsWith(args []Value) (Value, bool)   { return stringOp2Bool(args, strings.HasSuffix) }
func fnContains(args []Value) (Value, bool)   { return stringOp2Bool(args, strings.Contains) }

func stringOp2Bool(args []Value, f func(s, sub string) bool) (Value, bool) {
	if len(args) != 2 {
		return Null(), false
	}
	if args[0].IsNull() || args[1].IsNull() {
		return Null(), true
	}
	if args[0].kind != KindString || args[1].kind != KindString {
		return Null(), false
	}
	return Bool(f(args[0].s, args[1].s)), true
}

func fnSubstring(args []Value) (Value, bool) {
	if len(args) < 2 || len(args) > 3 {
		return Null(), false
	}
	if args[0].IsNull() {
		return Null(), true
	}
	if args[0].kind != KindString {
		return Null(), false
	}
	r := []rune(args[0].s)
	start, ok := args[1].Int64()
	if !ok || start < 0 || int(start) > len(r) {
		return Null(), false
	}
	end := int64(len(r))
	if len(args) == 3 {
		l, ok := args[2].Int64()
		if !ok || l < 0 {
			return Null(), false
		}
		end = start + l
		if end > int64(len(r)) {
			end = int64(len(r))
		}
	}
	return String(string(r[start:end])), true
}

func fnReplace(args []Value) (Value, bool) {
	if len(args) != 3 {
		return Null(), false
	}
	for _, a := range args {
		if a.IsNull() {
			return Null(), true
		}
		if a.kind != KindString {
			return Null(), false
		}
	}
	return String(strings.ReplaceAll(args[0].s, args[1].s, args[2].s)), true
}

func fnSplit(args []Value) (Value, bool) {
	if len(args) != 2 {
		return Null(), false
	}
	if args[0].IsNull() || args[1].IsNull() {
		return Null(), true
	}
	if args[0].kind != KindString || args[1].kind != KindString {
		return Null(), false
	}
	parts := strings.Split(args[0].s, args[1].s)
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return ListOf(out), true
}

func fnAbs(args []Value) (Value, bool) {
	if len(args) != 1 {
		return Null(), false
	}
	v := args[0]
	if v.IsNull() {
		return Null(), true
	}
	if v.kind == KindInt {
		if v.i < 0 {
			return Int(-v.i), true
		}
		return v, true
	}
	if f, ok := v.Float64(); ok {
		return Float(math.Abs(f)), true
	}
	return Null(), false
}

func fnMin(args []Value) (Value, bool) { return extremum(args, -1) }
func fnMax(args []Value) (Value, bool) { return extremum(args, 1) }

func extremum(args []Value, want int) (Value, bool) {
	if len(args) == 0 {
		return Null(), false
	}
	best := args[0]
	for _, v := range args[1:] {
		if v.IsNull() || best.IsNull() {
			return Null(), true
		}
		if Compare(v, best)*want > 0 {
			best = v
		}
	}
	return best, true
}

func fnFloor(args []Value) (Value, bool) { return roundOp(args, math.Floor) }
func fnCeil(args []Value) (Value, bool)  { return roundOp(args, math.Ceil) }
func fnRound(args []Value) (Value, bool) { return roundOp(args, math.Round) }

func roundOp(args []Value, f func(float64) float64) (Value, bool) {
	if len(args) != 1 {
		return Null(), false
	}
	if args[0].IsNull() {
		return Null(), true
	}
	if args[0].kind == KindInt {
		return args[0], true
	}
	v, ok := args[0].Float64()
	if !ok {
		return Null(), false
	}
	return Float(f(v)), true
}

func timePart(extract func(time.Time) int) Builtin {
	return func(args []Value) (Value, bool) {
		if len(args) != 1 {
			return Null(), false
		}
		if args[0].IsNull() {
			return Null(), true
		}
		if args[0].kind != KindTimestamp {
			return Null(), false
		}
		return Int(int64(extract(args[0].AsTime()))), true
	}
}

func fnCoalesce(args []Value) (Value, bool) {
	return Coalesce(args...), true
}

func fnIsNull(args []Value) (Value, bool) {
	if len(args) != 1 {
		return Null(), false
	}
	return Bool(args[0].IsNull()), true
}

// Call looks up and invokes a built-in function by name.
func Call(name string, args []Value) (Value, bool) {
	fn, ok := Builtins[name]
	if !ok {
		return Null(), false
	}
	return fn(args)
}
