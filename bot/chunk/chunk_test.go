package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Chunks("", 100))
	assert.Empty(t, Chunks("anything", 0))
}

func TestSplitAtNewline(t *testing.T) {
	text := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 10)
	got := Chunks(text, 15)
	require.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("a", 10), got[0])
	assert.Equal(t, strings.Repeat("b", 10), got[1])
}

func TestSplitPacksShortLines(t *testing.T) {
	got := Chunks("one\ntwo\nthree", 100)
	require.Len(t, got, 1)
	assert.Equal(t, "one\ntwo\nthree", got[0])
}

func TestSplitLongLineOnSentences(t *testing.T) {
	text := "first sentence. second sentence. third sentence"
	got := Chunks(text, 20)
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.NotEmpty(t, c)
	}
	assert.Equal(t, "first sentence.", got[0])
}

func TestSplitOversizedUnitEmittedAsIs(t *testing.T) {
	long := strings.Repeat("x", 50)
	got := Chunks(long, 20)
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0])
}

func TestSplitNoEmptyChunks(t *testing.T) {
	got := Chunks("\n\n\n", 10)
	assert.Empty(t, got)
}

func TestSplitChunksWithinLimit(t *testing.T) {
	text := strings.Repeat("hello world. ", 40)
	max := 50
	for c := range Split(text, max) {
		assert.LessOrEqual(t, len(c), max)
	}
}

func TestSplitRoundTripContent(t *testing.T) {
	text := "alpha beta\ngamma delta\nepsilon"
	joined := strings.Join(Chunks(text, 100), "\n")
	norm := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	assert.Equal(t, norm(text), norm(joined))
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("line one\nline two\n", 30)
	first := Chunks(text, 64)
	second := Chunks(text, 64)
	assert.Equal(t, first, second)

	// Re-chunking an individual chunk leaves it intact.
	for _, c := range first {
		if len(c) <= 64 {
			again := Chunks(c, 64)
			require.Len(t, again, 1)
			assert.Equal(t, c, again[0])
		}
	}
}

func TestAssemblerMatchesSplit(t *testing.T) {
	text := "line one\nline two\nline three\nline four"
	want := Chunks(text, 20)

	a := NewAssembler(20)
	var got []string
	// Feed in awkward fragment sizes to exercise buffering.
	for i := 0; i < len(text); i += 7 {
		end := i + 7
		if end > len(text) {
			end = len(text)
		}
		got = append(got, a.Push(text[i:end])...)
	}
	got = append(got, a.Flush()...)
	assert.Equal(t, want, got)
}

func TestAssemblerBuffersIncompleteLine(t *testing.T) {
	a := NewAssembler(100)
	assert.Empty(t, a.Push("no newline yet"))
	assert.Empty(t, a.Push(" still going"))
	got := a.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, "no newline yet still going", got[0])
}

func TestAssemblerFlushEmpty(t *testing.T) {
	a := NewAssembler(50)
	assert.Empty(t, a.Flush())
}
