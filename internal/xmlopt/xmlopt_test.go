package xmlopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transopt/internal/phrase"
)

func TestParseMode(t *testing.T) {
	for _, name := range []string{"off", "pass-through", "inclusive", "exclusive", "constraint"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOff, m)
	_, err = ParseMode("sometimes")
	assert.Error(t, err)
}

func TestOverlay(t *testing.T) {
	o := New(NewAnnotation(phrase.Span{Start: 1, End: 2}, "Siemens AG", 1))

	assert.True(t, o.HasOverlapping(phrase.Span{Start: 0, End: 1}))
	assert.False(t, o.HasOverlapping(phrase.Span{Start: 3, End: 3}))

	// partial overlap
	assert.True(t, o.Violates(phrase.Span{Start: 0, End: 1}, phrase.ParsePhrase("with Siemens")))
	// contains the span but not the translation
	assert.True(t, o.Violates(phrase.Span{Start: 0, End: 2}, phrase.ParsePhrase("with Siemens")))
	assert.False(t, o.Violates(phrase.Span{Start: 0, End: 2}, phrase.ParsePhrase("with Siemens AG")))
	assert.False(t, o.Violates(phrase.Span{Start: 3, End: 3}, phrase.ParsePhrase("x")))

	require.Len(t, o.OptionsFor(phrase.Span{Start: 1, End: 2}), 1)
	assert.Empty(t, o.OptionsFor(phrase.Span{Start: 1, End: 1}))
	assert.Equal(t, []float64{0}, o.OptionsFor(phrase.Span{Start: 1, End: 2})[0].Scores[FeatureName])
}

func TestNilOverlay(t *testing.T) {
	var o *Overlay
	assert.Equal(t, 0, o.Len())
	assert.False(t, o.HasOverlapping(phrase.Span{}))
	assert.False(t, o.Violates(phrase.Span{}, nil))
	assert.Nil(t, o.OptionsFor(phrase.Span{}))
}
