package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.False(t, Equal(Int(1), Int(2)))
	assert.False(t, Equal(Null(), Null()))
	assert.True(t, Equal(List(Int(1), String("a")), List(Int(1), String("a"))))
}

func TestCompareNaNOrdering(t *testing.T) {
	vs := []Value{Float(3), Float(math.NaN()), Float(1), Float(2)}
	SortAscending(vs)
	assert.Equal(t, 1.0, vs[0].AsFloat())
	assert.Equal(t, 2.0, vs[1].AsFloat())
	assert.Equal(t, 3.0, vs[2].AsFloat())
	assert.True(t, math.IsNaN(vs[3].AsFloat()))

	SortDescending(vs)
	assert.True(t, math.IsNaN(vs[0].AsFloat()))
	assert.Equal(t, 3.0, vs[1].AsFloat())
}

func TestNullOrderingFirst(t *testing.T) {
	vs := []Value{Int(2), Null(), Int(1)}
	SortAscending(vs)
	assert.True(t, vs[0].IsNull())
}

func TestThreeValuedLogic(t *testing.T) {
	assert.Equal(t, Bool(false), And(Null(), Bool(false)))
	assert.True(t, And(Null(), Bool(true)).IsNull())
	assert.Equal(t, Bool(true), Or(Null(), Bool(true)))
	assert.True(t, Or(Null(), Bool(false)).IsNull())
	assert.True(t, Not(Null()).IsNull())
	assert.True(t, Eq(Null(), Int(1)).IsNull())
}

func TestArithmeticNullPropagation(t *testing.T) {
	assert.True(t, Add(Null(), Int(1)).IsNull())
	assert.Equal(t, Int(5), Add(Int(2), Int(3)))
	assert.Equal(t, Float(2.5), Add(Float(1.0), Float(1.5)))
}

func TestDivByZero(t *testing.T) {
	_, ok := Div(Int(1), Int(0))
	assert.False(t, ok)
	v, ok := Div(Int(6), Int(3))
	assert.True(t, ok)
	assert.Equal(t, Int(2), v)
}

func TestCoalesceOp(t *testing.T) {
	assert.Equal(t, Int(5), CoalesceOp(Null(), Int(5)))
	assert.Equal(t, Int(1), CoalesceOp(Int(1), Int(5)))
}

func TestBuiltinsStrings(t *testing.T) {
	v, ok := Call("upper", []Value{String("abc")})
	assert.True(t, ok)
	assert.Equal(t, "ABC", v.AsString())

	v, ok = Call("starts_with", []Value{String("hello"), String("he")})
	assert.True(t, ok)
	assert.True(t, v.AsBool())

	v, ok = Call("substring", []Value{String("hello"), Int(1), Int(3)})
	assert.True(t, ok)
	assert.Equal(t, "ell", v.AsString())
}

func TestBuiltinsNullPropagation(t *testing.T) {
	v, ok := Call("upper", []Value{Null()})
	assert.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestCoalesceBuiltin(t *testing.T) {
	v, _ := Call("coalesce", []Value{Null(), Null(), Int(7)})
	assert.Equal(t, Int(7), v)
}

func TestIsNullBuiltin(t *testing.T) {
	v, _ := Call("is_null", []Value{Null()})
	assert.True(t, v.AsBool())
	v, _ = Call("is_null", []Value{Int(1)})
	assert.False(t, v.AsBool())
}
