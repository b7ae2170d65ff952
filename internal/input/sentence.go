// Package input holds the factored source sentence handed to option
// construction.
package input

import (
	"fmt"
	"regexp"
	"strings"

	"transopt/internal/phrase"
)

// Sentence is a tokenized source sentence.
type Sentence struct {
	ID    string
	Words phrase.Phrase
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’\-.][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)

// Tokenize splits raw text into tokens. Factored tokens ("word|POS") are
// kept whole; plain tokens have punctuation split off.
func Tokenize(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		if strings.Contains(field, phrase.FactorDelimiter) || field == phrase.Epsilon {
			out = append(out, field)
			continue
		}
		out = append(out, tokenRe.FindAllString(field, -1)...)
	}
	return out
}

// Parse tokenizes text and builds a sentence.
func Parse(id, text string) Sentence {
	toks := Tokenize(text)
	words := make(phrase.Phrase, len(toks))
	for i, t := range toks {
		words[i] = phrase.ParseWord(t)
	}
	return Sentence{ID: id, Words: words}
}

// Len is the number of source positions.
func (s Sentence) Len() int { return len(s.Words) }

// Word returns the word at pos.
func (s Sentence) Word(pos int) phrase.Word { return s.Words[pos] }

// SubPhrase returns the words covered by span.
func (s Sentence) SubPhrase(span phrase.Span) phrase.Phrase {
	if span.Start < 0 || span.End >= len(s.Words) || span.Start > span.End {
		panic(fmt.Sprintf("input: span %s outside sentence of length %d", span, len(s.Words)))
	}
	return s.Words[span.Start : span.End+1]
}

func (s Sentence) String() string { return s.Words.String() }
