package phrase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWord(t *testing.T) {
	w := ParseWord("house|NN|house")
	assert.Equal(t, "house", w.Surface())
	assert.Equal(t, "NN", w.Factors[1])
	assert.Equal(t, "house|NN|house", w.String())
	assert.Equal(t, "house|NN", w.Key([]int{0, 1}))
	assert.Equal(t, "NN", w.Key([]int{1}))
}

func TestParseWordFactors(t *testing.T) {
	w := ParseWordFactors("Haus|NN", []int{0, 2})
	assert.Equal(t, "Haus", w.Factors[0])
	assert.Equal(t, "", w.Factors[1])
	assert.Equal(t, "NN", w.Factors[2])
}

func TestWordCompatibleAndMerge(t *testing.T) {
	a := ParseWordFactors("haus", []int{0})
	b := ParseWordFactors("haus|NN", []int{0, 1})
	c := ParseWordFactors("hof|NN", []int{0, 1})
	assert.True(t, a.Compatible(b, []int{0, 1}))
	assert.False(t, a.Compatible(c, []int{0, 1}))

	a.Merge(b, []int{1})
	assert.Equal(t, "haus|NN", a.String())
}

func TestPhraseContains(t *testing.T) {
	p := ParsePhrase("the big house")
	assert.True(t, p.Contains(ParsePhrase("big house")))
	assert.True(t, p.Contains(nil))
	assert.False(t, p.Contains(ParsePhrase("house big")))
	assert.Equal(t, "the big house", p.Key([]int{0}))
}

func TestSpan(t *testing.T) {
	s := Span{Start: 1, End: 3}
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Overlaps(Span{Start: 3, End: 5}))
	assert.False(t, s.Overlaps(Span{Start: 4, End: 5}))
	assert.True(t, s.Contains(Span{Start: 2, End: 3}))
	assert.False(t, s.Contains(Span{Start: 0, End: 1}))
	assert.Equal(t, "[1..3]", s.String())
}

func TestParseAlignment(t *testing.T) {
	a, err := ParseAlignment("0-0 1-2")
	require.NoError(t, err)
	assert.Equal(t, Alignment{{0, 0}, {1, 2}}, a)
	assert.Equal(t, "0-0 1-2", a.String())

	_, err = ParseAlignment("0")
	assert.Error(t, err)
}
