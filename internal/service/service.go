// Package service turns requests into built translation option collections
// and their JSON views. It is shared by the CLI and the HTTP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"transopt/internal/collection"
	"transopt/internal/config"
	"transopt/internal/input"
	"transopt/internal/phrase"
	"transopt/internal/phrasestore"
	"transopt/internal/xmlopt"
	"transopt/pkg/options"
)

var (
	ErrEmptyText     = errors.New("service: empty text")
	ErrBadConstraint = errors.New("service: constraint outside sentence")
)

// Constraint is an externally supplied translation of a span.
type Constraint struct {
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Translation string  `json:"translation"`
	Prob        float64 `json:"prob"`
}

// Request is one sentence to build options for.
type Request struct {
	ID          string       `json:"id,omitempty"`
	Text        string       `json:"text"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

type OptionInfo struct {
	Target    string               `json:"target"`
	Score     float64              `json:"score"`
	Scores    map[string][]float64 `json:"scores"`
	Alignment string               `json:"alignment,omitempty"`
	Unknown   bool                 `json:"unknown,omitempty"`
}

type SpanInfo struct {
	Start   int          `json:"start"`
	End     int          `json:"end"`
	Source  string       `json:"source"`
	Options []OptionInfo `json:"options"`
}

// CostInfo is one reachable cell of the future cost matrix.
type CostInfo struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Cost  float64 `json:"cost"`
}

// Result is the JSON view of a built collection. Unreachable spans are
// left out of FutureCosts.
type Result struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	Spans       []SpanInfo       `json:"spans"`
	FutureCosts []CostInfo       `json:"future_costs"`
	Unknown     []string         `json:"unknown"`
	Stats       collection.Stats `json:"stats"`
}

// Service builds collections against one set of loaded models.
type Service struct {
	models *collection.Models
	opts   []options.Options
	stores map[string]*phrasestore.Store
	logger *zap.Logger
}

// New creates a service over assembled resources.
func New(res *config.Resources, opts []options.Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{models: res.Models, opts: opts, stores: res.Stores, logger: logger}
}

// Collect builds the option collection of one request.
func (s *Service) Collect(ctx context.Context, req Request) (*collection.Collection, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	src := input.Parse(req.ID, req.Text)

	anns := make([]xmlopt.Annotation, 0, len(req.Constraints))
	for _, c := range req.Constraints {
		if c.Start < 0 || c.End < c.Start || c.End >= src.Len() {
			return nil, fmt.Errorf("%w: [%d..%d] in sentence of length %d", ErrBadConstraint, c.Start, c.End, src.Len())
		}
		prob := c.Prob
		if prob == 0 {
			prob = 1
		}
		anns = append(anns, xmlopt.NewAnnotation(phrase.Span{Start: c.Start, End: c.End}, c.Translation, prob))
	}

	coll, err := collection.New(src, s.models, s.opts...)
	if err != nil {
		return nil, err
	}
	coll.WithLogger(s.logger.With(zap.String("request_id", req.ID)))
	if len(anns) > 0 {
		coll.WithOverlay(xmlopt.New(anns...))
	}
	if err := coll.Build(ctx); err != nil {
		return nil, err
	}
	return coll, nil
}

// Translate builds one request and returns its JSON view.
func (s *Service) Translate(ctx context.Context, req Request) (*Result, error) {
	coll, err := s.Collect(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewResult(coll), nil
}

// TranslateAll builds every request with at most jobs running at once and
// returns the results in request order. The first failure cancels the rest.
func (s *Service) TranslateAll(ctx context.Context, reqs []Request, jobs int) ([]*Result, error) {
	out := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Translate(ctx, req)
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i+1, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Store returns the Redis phrase table called name.
func (s *Service) Store(name string) (*phrasestore.Store, error) {
	st, ok := s.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", config.ErrUnknownTable, name)
	}
	return st, nil
}

// NewResult converts a built collection.
func NewResult(c *collection.Collection) *Result {
	src := c.Source()
	res := &Result{ID: src.ID, Source: src.String(), Stats: c.Stats(), Unknown: []string{}}
	for start := 0; start < c.Size(); start++ {
		for end := start; end < start+c.RowWidth(start); end++ {
			l, _ := c.List(start, end)
			if l.Len() == 0 {
				continue
			}
			span := SpanInfo{Start: start, End: end, Source: l.At(0).Path.Phrase.String()}
			for i := 0; i < l.Len(); i++ {
				o := l.At(i)
				span.Options = append(span.Options, OptionInfo{
					Target:    o.Target.String(),
					Score:     o.Score(),
					Scores:    o.Scores,
					Alignment: o.Alignment.String(),
					Unknown:   len(o.Target) > 0 && o.Target[0].OOV,
				})
			}
			res.Spans = append(res.Spans, span)
		}
	}
	if fc := c.FutureCosts(); fc != nil {
		for start := 0; start < fc.Size(); start++ {
			for end := start; end < fc.Size(); end++ {
				if v := fc.Score(start, end); !math.IsInf(v, 0) {
					res.FutureCosts = append(res.FutureCosts, CostInfo{Start: start, End: end, Cost: v})
				}
			}
		}
	}
	for _, p := range c.UnknownSources() {
		res.Unknown = append(res.Unknown, p.String())
	}
	return res
}
