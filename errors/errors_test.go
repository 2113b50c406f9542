package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	original := New("database is locked")
	wrapped := Wrapf(original, "remove candidate %d", 7)

	assert.Contains(t, wrapped.Error(), "remove candidate 7")
	assert.Contains(t, wrapped.Error(), "database is locked")
	assert.True(t, Is(wrapped, original))
}

func TestTransientMarker(t *testing.T) {
	t.Run("marked errors are transient through wrapping", func(t *testing.T) {
		err := MarkTransient(New("database is locked"))
		wrapped := Wrap(err, "handler remove")

		assert.True(t, IsTransient(err))
		assert.True(t, IsTransient(wrapped))
		assert.Equal(t, "handler remove: database is locked", wrapped.Error())
	})

	t.Run("unmarked errors are fatal", func(t *testing.T) {
		assert.False(t, IsTransient(New("no such column: Foo")))
		assert.False(t, IsTransient(nil))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, MarkTransient(nil))
	})

	t.Run("fmt wrapping is still seen", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", MarkTransient(New("busy")))
		assert.True(t, IsTransient(err))
	})
}

func TestJobSentinels(t *testing.T) {
	err := NewInvalidJobTypeError("doesNotExist")
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidJobType))
	assert.Contains(t, err.Error(), `"doesNotExist"`)
	assert.NotEmpty(t, GetAllHints(err))

	malformed := NewMalformedJobError(New("unexpected end of JSON input"), `{"jobType":`)
	assert.True(t, Is(malformed, ErrMalformedJobDescriptor))
	assert.False(t, Is(malformed, ErrInvalidJobType))
	assert.Contains(t, GetAllDetails(malformed), `payload: {"jobType":`)
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("candidate %d", 42)
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "candidate 42")
	assert.False(t, IsNotFoundError(New("other")))
	assert.False(t, IsInvalidRequestError(err))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.NotNil(t, GetStack(err))

	t.Run("found beneath detail and hint wrappers", func(t *testing.T) {
		wrapped := WithHint(WithDetailf(Wrap(err, "open"), "path: %s", "/nowhere"), "check the path")
		assert.NotNil(t, GetStack(wrapped))
	})

	assert.Nil(t, GetStack(nil))
}

func ExampleMarkTransient() {
	err := MarkTransient(New("database is locked"))
	fmt.Println(IsTransient(Wrap(err, "remove")))
	// Output: true
}
