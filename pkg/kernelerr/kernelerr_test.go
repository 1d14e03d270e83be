package kernelerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := New(ConstraintError, "value %q already exists", "x@y").
		WithConstraint("unique_email").
		WithEntity("e-123")

	msg := e.Error()
	assert.Contains(t, msg, "ConstraintError")
	assert.Contains(t, msg, "x@y")
	assert.Contains(t, msg, "unique_email")
	assert.Contains(t, msg, "e-123")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(RuntimeError, cause, "division by zero")
	require.ErrorIs(t, e, cause)
}

func TestIsKind(t *testing.T) {
	e := New(TimeoutError, "deadline exceeded")
	assert.True(t, IsKind(e, TimeoutError))
	assert.False(t, IsKind(e, RuleError))
	assert.False(t, IsKind(errors.New("plain"), TimeoutError))
}

func TestWarningString(t *testing.T) {
	w := Warning{Source: "x", Message: "truncated at depth 100"}
	assert.Equal(t, "x: truncated at depth 100", w.String())

	w2 := Warning{Message: "no source"}
	assert.Equal(t, "no source", w2.String())
}
