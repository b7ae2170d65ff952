// Package collection builds the translation options of one source sentence:
// every span up to the maximum phrase length is run through the decode
// graphs, uncovered words get a fallback option, and the per-span lists are
// pruned, sorted and summarized in a future cost matrix.
package collection

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"transopt/internal/futurecost"
	"transopt/internal/input"
	"transopt/internal/phrase"
	"transopt/internal/scoring"
	"transopt/internal/table"
	"transopt/internal/xmlopt"
	"transopt/pkg/options"
)

// OptionID is a handle to an option in its collection's arena.
type OptionID int32

// Option is a scored candidate translation of one source span.
type Option struct {
	Span      phrase.Span
	Target    phrase.Phrase
	Scores    scoring.Breakdown
	Alignment phrase.Alignment
	Path      *InputPath

	score         float64
	lexReordering map[string][]float64
}

// Score is the weighted total of Scores.
func (o *Option) Score() float64 { return o.score }

func (o *Option) String() string {
	return fmt.Sprintf("%s %q c=%.3f [%s]", o.Span, o.Target.String(), o.score, o.Scores)
}

// InputPath is the source side of a span and the target phrases fetched for
// it, keyed by table name.
type InputPath struct {
	Span    phrase.Span
	Phrase  phrase.Phrase
	targets map[string]*table.Collection
}

// TargetPhrases returns what table produced for this path, if fetched.
func (p *InputPath) TargetPhrases(name string) (*table.Collection, bool) {
	c, ok := p.targets[name]
	return c, ok
}

func (p *InputPath) setTargetPhrases(name string, c *table.Collection) {
	if p.targets == nil {
		p.targets = make(map[string]*table.Collection)
	}
	p.targets[name] = c
}

// OptionList is a read view of the options of one span.
type OptionList struct {
	ids   []OptionID
	arena []Option
}

// Len is the number of options.
func (l OptionList) Len() int { return len(l.ids) }

// At returns option i.
func (l OptionList) At(i int) *Option { return &l.arena[l.ids[i]] }

// IDs returns the option handles in list order.
func (l OptionList) IDs() []OptionID { return l.ids }

// Collection holds the translation options of one sentence, indexed by
// start position and span length. It is not safe for concurrent use.
type Collection struct {
	src     input.Sentence
	models  *Models
	opts    options.CollectionOptions
	overlay *xmlopt.Overlay
	logger  *zap.Logger

	// grid[start][length-1]
	grid  [][][]OptionID
	arena []Option
	paths [][]*InputPath

	future         *futurecost.Matrix
	unknownSources []phrase.Phrase
	stats          Stats
}

// New creates the empty span grid for src.
func New(src input.Sentence, models *Models, opts ...options.Options) (*Collection, error) {
	if models == nil {
		return nil, errors.New("collection: nil models")
	}
	o := options.Resolve(opts...)
	if o.MaxPhraseLength < 1 {
		return nil, fmt.Errorf("collection: max phrase length must be positive, got %d", o.MaxPhraseLength)
	}
	c := &Collection{
		src:    src,
		models: models,
		opts:   o,
		logger: zap.NewNop(),
	}
	size := src.Len()
	c.grid = make([][][]OptionID, size)
	c.paths = make([][]*InputPath, size)
	for start := 0; start < size; start++ {
		width := min(size-start, o.MaxPhraseLength)
		c.grid[start] = make([][]OptionID, width)
		c.paths[start] = make([]*InputPath, width)
		for l := 0; l < width; l++ {
			span := phrase.Span{Start: start, End: start + l}
			c.paths[start][l] = &InputPath{Span: span, Phrase: src.SubPhrase(span)}
		}
	}
	return c, nil
}

// WithOverlay attaches the sentence's span annotations. It has no effect in
// xmlopt.ModeOff.
func (c *Collection) WithOverlay(o *xmlopt.Overlay) *Collection {
	if c.opts.XMLMode != xmlopt.ModeOff {
		c.overlay = o
	}
	return c
}

// WithLogger sets the logger used during Build.
func (c *Collection) WithLogger(l *zap.Logger) *Collection {
	if l != nil {
		c.logger = l
	}
	return c
}

// Source returns the sentence the collection was built for.
func (c *Collection) Source() input.Sentence { return c.src }

// Options returns the resolved limits.
func (c *Collection) Options() options.CollectionOptions { return c.opts }

// Size is the sentence length.
func (c *Collection) Size() int { return len(c.grid) }

// RowWidth is the number of span lengths stored for start.
func (c *Collection) RowWidth(start int) int {
	c.checkStart("RowWidth", phrase.Span{Start: start, End: start})
	return len(c.grid[start])
}

func (c *Collection) checkStart(op string, span phrase.Span) {
	if span.Start < 0 || span.Start >= len(c.grid) {
		panic(&InvariantError{Op: op, Span: span, SentenceLength: len(c.grid)})
	}
}

// List returns the options of [start..end]. The boolean is false when the
// span is wider than its row, which is distinct from an empty list. A start
// outside the sentence panics.
func (c *Collection) List(start, end int) (OptionList, bool) {
	c.checkStart("List", phrase.Span{Start: start, End: end})
	idx := end - start
	if idx < 0 || idx >= len(c.grid[start]) {
		return OptionList{}, false
	}
	return OptionList{ids: c.grid[start][idx], arena: c.arena}, true
}

// Option returns the option behind id. The pointer stays valid until the
// next Add.
func (c *Collection) Option(id OptionID) *Option { return &c.arena[id] }

// path returns the input path of [start..end]; the span must be in the grid.
func (c *Collection) path(start, end int) *InputPath { return c.paths[start][end-start] }

// Add stores opt in the cell of its span and returns its handle. A span
// outside the grid panics with *InvariantError.
func (c *Collection) Add(opt Option) OptionID {
	span := opt.Span
	c.checkStart("Add", span)
	row := c.grid[span.Start]
	if span.End < span.Start || span.End-span.Start >= len(row) {
		c.logger.Error("translation option outside span grid",
			zap.Stringer("option", &opt),
			zap.Stringer("coverage", span),
			zap.Int("row_width", len(row)))
		panic(&InvariantError{Op: "Add", Span: span, RowWidth: len(row), SentenceLength: len(c.grid)})
	}
	if opt.Scores == nil {
		opt.Scores = scoring.Breakdown{}
	}
	opt.score = c.models.Weights.Score(opt.Scores)
	id := OptionID(len(c.arena))
	c.arena = append(c.arena, opt)
	row[span.End-span.Start] = append(row[span.End-span.Start], id)
	c.stats.Created++
	return id
}

// FutureCosts returns the matrix computed by Build, or nil before it.
func (c *Collection) FutureCosts() *futurecost.Matrix { return c.future }

// UnknownSources lists the source phrases that received a fallback option.
func (c *Collection) UnknownSources() []phrase.Phrase { return c.unknownSources }

// Stats returns the counts gathered so far.
func (c *Collection) Stats() Stats { return c.stats }

// forEach visits every span list in start, length order.
func (c *Collection) forEach(fn func(start, l int, ids []OptionID)) {
	for start, row := range c.grid {
		for l, ids := range row {
			fn(start, l, ids)
		}
	}
}

func (c *Collection) count() int {
	n := 0
	c.forEach(func(_, _ int, ids []OptionID) { n += len(ids) })
	return n
}

// String lists every option in span order.
func (c *Collection) String() string {
	var sb strings.Builder
	c.forEach(func(_, _ int, ids []OptionID) {
		for _, id := range ids {
			sb.WriteString(c.arena[id].String())
			sb.WriteByte('\n')
		}
	})
	return sb.String()
}
