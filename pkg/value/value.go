// Package value implements the kernel's runtime Value type (spec.md §6),
// its ordering and arithmetic, and the null-propagation / three-valued
// logic rules patterns and expressions evaluate under (spec.md §4.4).
//
// The numeric coercions below mirror nornicdb's pkg/convert.ToFloat64 /
// ToInt64 family; the sum-type shape itself replaces nornicdb's untyped
// interface{} property values (pkg/storage.Node.Properties
// map[string]interface{}) with an explicit tagged union, since the kernel
// must distinguish Int from Float from Duration from Timestamp at runtime
// in a way a bare interface{} cannot do safely.
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTimestamp
	KindDuration
	KindNodeRef
	KindEdgeRef
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindTimestamp:
		return "Timestamp"
	case KindDuration:
		return "Duration"
	case KindNodeRef:
		return "NodeRef"
	case KindEdgeRef:
		return "EdgeRef"
	case KindList:
		return "List"
	default:
		return "Unknown"
	}
}

// Value is the kernel's runtime value type: Null | Bool | Int | Float |
// String | Timestamp | Duration | NodeRef(EntityId) | EdgeRef(EntityId) |
// List(Value), exactly as enumerated in spec.md §6.
type Value struct {
	kind Kind
	b    bool
	i    int64 // Int, and milliseconds for Timestamp/Duration
	f    float64
	s    string // String, and the EntityId string for NodeRef/EdgeRef
	list []Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindInt, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Timestamp(ms int64) Value    { return Value{kind: KindTimestamp, i: ms} }
func Duration(ms int64) Value     { return Value{kind: KindDuration, i: ms} }
func NodeRef(id string) Value     { return Value{kind: KindNodeRef, s: id} }
func EdgeRef(id string) Value     { return Value{kind: KindEdgeRef, s: id} }
func List(items ...Value) Value   { return Value{kind: KindList, list: items} }
func ListOf(items []Value) Value  { return Value{kind: KindList, list: items} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) AsBool() bool    { return v.b }
func (v Value) AsInt() int64    { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsString() string { return v.s }
func (v Value) AsRef() string    { return v.s }
func (v Value) AsMillis() int64  { return v.i }
func (v Value) AsList() []Value  { return v.list }

// AsTime converts a Timestamp Value to a UTC time.Time.
func (v Value) AsTime() time.Time {
	return time.UnixMilli(v.i).UTC()
}

// AsDuration converts a Duration Value to a time.Duration.
func (v Value) AsDuration() time.Duration {
	return time.Duration(v.i) * time.Millisecond
}

// Float64 coerces Int or Float to float64, mirroring convert.ToFloat64's
// contract of a success boolean instead of a panic.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Int64 coerces Int (exactly) or a whole Float to int64.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) && !math.IsNaN(v.f) {
			return int64(v.f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindTimestamp:
		return v.AsTime().Format(time.RFC3339Nano)
	case KindDuration:
		return v.AsDuration().String()
	case KindNodeRef:
		return "#" + v.s
	case KindEdgeRef:
		return "#" + v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// Equal implements value equality. Null equals nothing, including another
// Null, at the Go-level API; three-valued-logic Eq (below) is what pattern
// expressions use for `=`.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		if f1, ok1 := a.Float64(); ok1 {
			if f2, ok2 := b.Float64(); ok2 {
				return f1 == f2
			}
		}
		return false
	}
	switch a.kind {
	case KindNull:
		return false
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString, KindNodeRef, KindEdgeRef:
		return a.s == b.s
	case KindTimestamp, KindDuration:
		return a.i == b.i
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare implements the total order ORDER BY relies on. NaN sorts last in
// ascending order (first when the caller reverses for DESC), per the Open
// Question decision recorded in SPEC_FULL.md §D.3. Null sorts before every
// non-null value, matching nornicdb's general null-first convention in
// its index key ordering.
func Compare(a, b Value) int {
	if a.kind == KindNull && b.kind == KindNull {
		return 0
	}
	if a.kind == KindNull {
		return -1
	}
	if b.kind == KindNull {
		return 1
	}

	af, aIsNum := a.Float64()
	bf, bIsNum := b.Float64()
	if aIsNum && bIsNum {
		aNaN, bNaN := math.IsNaN(af), math.IsNaN(bf)
		if aNaN && bNaN {
			return 0
		}
		if aNaN {
			return 1
		}
		if bNaN {
			return -1
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	switch a.kind {
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindString, KindNodeRef, KindEdgeRef:
		return strings.Compare(a.s, b.s)
	case KindTimestamp, KindDuration:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	case KindList:
		n := len(a.list)
		if len(b.list) < n {
			n = len(b.list)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.list[i], b.list[i]); c != 0 {
				return c
			}
		}
		return len(a.list) - len(b.list)
	default:
		return 0
	}
}

// SortAscending sorts vs in place using Compare, NaN-last.
func SortAscending(vs []Value) {
	sort.SliceStable(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

// SortDescending sorts vs in place, NaN-first (spec.md §9 Open Question 3).
func SortDescending(vs []Value) {
	sort.SliceStable(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) > 0 })
}

// --- Three-valued logic --------------------------------------------------

// Truthy implements WHERE's three-valued-logic collapse: null and non-Bool
// values are treated as false (spec.md §4.4 "Null propagation").
func Truthy(v Value) bool {
	return v.kind == KindBool && v.b
}

// And implements Kleene three-valued AND.
func And(a, b Value) Value {
	if a.kind == KindBool && !a.b {
		return Bool(false)
	}
	if b.kind == KindBool && !b.b {
		return Bool(false)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(a.b && b.b)
}

// Or implements Kleene three-valued OR.
func Or(a, b Value) Value {
	if a.kind == KindBool && a.b {
		return Bool(true)
	}
	if b.kind == KindBool && b.b {
		return Bool(true)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(a.b || b.b)
}

// Not implements three-valued NOT: NOT null is null.
func Not(a Value) Value {
	if a.IsNull() {
		return Null()
	}
	return Bool(!a.b)
}

// Eq implements `=` with null propagation: comparing against null yields
// null, never true or false.
func Eq(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(Equal(a, b))
}

func Neq(a, b Value) Value {
	eq := Eq(a, b)
	if eq.IsNull() {
		return Null()
	}
	return Bool(!eq.b)
}

func Lt(a, b Value) Value  { return compareOp(a, b, func(c int) bool { return c < 0 }) }
func Lte(a, b Value) Value { return compareOp(a, b, func(c int) bool { return c <= 0 }) }
func Gt(a, b Value) Value  { return compareOp(a, b, func(c int) bool { return c > 0 }) }
func Gte(a, b Value) Value { return compareOp(a, b, func(c int) bool { return c >= 0 }) }

func compareOp(a, b Value, ok func(int) bool) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(ok(Compare(a, b)))
}

// Coalesce returns the first non-null value, mirroring COALESCE(...).
func Coalesce(vs ...Value) Value {
	for _, v := range vs {
		if !v.IsNull() {
			return v
		}
	}
	return Null()
}

// CoalesceOp implements the `??` operator: a ?? b yields a unless a is null.
func CoalesceOp(a, b Value) Value {
	if !a.IsNull() {
		return a
	}
	return b
}

// --- Arithmetic -----------------------------------------------------------

// Add implements `+` for numerics, Timestamp+Duration, and `++` for strings
// is handled separately by Concat. Null propagates.
func Add(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if a.kind == KindTimestamp && b.kind == KindDuration {
		return Timestamp(a.i + b.i)
	}
	if a.kind == KindDuration && b.kind == KindTimestamp {
		return Timestamp(a.i + b.i)
	}
	if a.kind == KindDuration && b.kind == KindDuration {
		return Duration(a.i + b.i)
	}
	return numericOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if a.kind == KindTimestamp && b.kind == KindDuration {
		return Timestamp(a.i - b.i)
	}
	if a.kind == KindTimestamp && b.kind == KindTimestamp {
		return Duration(a.i - b.i)
	}
	if a.kind == KindDuration && b.kind == KindDuration {
		return Duration(a.i - b.i)
	}
	return numericOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return numericOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

// Div implements `/`. Integer division by zero and float division by zero
// both surface as a RuntimeError to the caller (kernelerr), not a panic;
// this package signals a zero divisor by returning ok=false with a Null
// value, which pkg/match's expression evaluator turns into that error.
func Div(a, b Value) (Value, bool) {
	if a.IsNull() || b.IsNull() {
		return Null(), true
	}
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return Null(), false
		}
		return Int(a.i / b.i), true
	}
	af, _ := a.Float64()
	bf, _ := b.Float64()
	if bf == 0 {
		return Null(), false
	}
	return Float(af / bf), true
}

// Mod implements `%`, integer-only per nornicdb's numeric helpers; zero
// divisor is reported the same way Div reports it.
func Mod(a, b Value) (Value, bool) {
	if a.IsNull() || b.IsNull() {
		return Null(), true
	}
	ai, aok := a.Int64()
	bi, bok := b.Int64()
	if !aok || !bok || bi == 0 {
		return Null(), false
	}
	return Int(ai % bi), true
}

// Neg implements unary minus.
func Neg(a Value) Value {
	if a.IsNull() {
		return Null()
	}
	if a.kind == KindInt {
		return Int(-a.i)
	}
	if f, ok := a.Float64(); ok {
		return Float(-f)
	}
	return Null()
}

func numericOp(a, b Value, iop func(int64, int64) int64, fop func(float64, float64) float64) Value {
	if a.kind == KindInt && b.kind == KindInt {
		return Int(iop(a.i, b.i))
	}
	af, aok := a.Float64()
	bf, bok := b.Float64()
	if aok && bok {
		return Float(fop(af, bf))
	}
	return Null()
}

// Concat implements the `++` string-concatenation operator.
func Concat(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return String(a.String() + b.String())
}
