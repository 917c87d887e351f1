package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionOf(t *testing.T) {
	content := []byte("abc\ndef\nghi")

	assert.Equal(t, Position{Line: 1, Column: 1}, PositionOf(content, 0))
	assert.Equal(t, Position{Line: 1, Column: 3}, PositionOf(content, 2))
	assert.Equal(t, Position{Line: 2, Column: 1}, PositionOf(content, 4))
	assert.Equal(t, Position{Line: 3, Column: 3}, PositionOf(content, 10))
}

func TestSpanTo(t *testing.T) {
	a := Span{Path: "f", Start: 2, End: 5}
	b := Span{Path: "f", Start: 7, End: 9}
	assert.Equal(t, Span{Path: "f", Start: 2, End: 9}, a.To(b))
	// Extending backwards is a no-op.
	assert.Equal(t, Span{Path: "f", Start: 7, End: 9}, b.To(a))
}

func TestSlice(t *testing.T) {
	buf := NewBuffer("f", "hello world")
	assert.Equal(t, "world", buf.Slice(Span{Path: "f", Start: 6, End: 11}))
	assert.Equal(t, "", buf.Slice(Span{Path: "f", Start: 6, End: 99}))
}
