package table

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"

	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// FieldSeparator separates the columns of a table file line.
const FieldSeparator = "|||"

// Layout describes how a table file is interpreted.
type Layout struct {
	Name          string
	InputFactors  []int
	OutputFactors []int
	TableLimit    int
	// Feature names the score vector; defaults to Name.
	Feature string
	Weights scoring.Weights
}

func (s Layout) feature() string {
	if s.Feature != "" {
		return s.Feature
	}
	return s.Name
}

// ScanLines memory-maps path and calls fn for every non-empty line with
// its 1-based line number.
func ScanLines(path string, fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		return nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", path, err)
	}
	defer m.Unmap()

	s := bufio.NewScanner(bytes.NewReader(m))
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return s.Err()
}

// SplitFields splits a table line on FieldSeparator and trims each field.
func SplitFields(line string) []string {
	parts := strings.Split(line, FieldSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseProbabilities reads whitespace separated probabilities and moves
// them into the floored log domain.
func ParseProbabilities(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", f, err)
		}
		out[i] = scoring.FloorScore(scoring.TransformScore(p))
	}
	return out, nil
}

// ParsePhraseLine turns one "src ||| tgt ||| probs [||| align [||| counts]]"
// line into a source key and target phrase.
func ParsePhraseLine(layout Layout, line string) (string, *phrase.TargetPhrase, int64, error) {
	fields := SplitFields(line)
	if len(fields) < 3 {
		return "", nil, 0, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	src := phrase.ParsePhraseFactors(fields[0], layout.InputFactors)
	if len(src) == 0 {
		return "", nil, 0, fmt.Errorf("empty source phrase")
	}
	scores, err := ParseProbabilities(fields[2])
	if err != nil {
		return "", nil, 0, err
	}
	tp := &phrase.TargetPhrase{
		Words:  phrase.ParsePhraseFactors(fields[1], layout.OutputFactors),
		Scores: scoring.Breakdown{},
	}
	tp.Scores.Assign(layout.feature(), scores...)
	if len(fields) > 3 && fields[3] != "" {
		if tp.Alignment, err = phrase.ParseAlignment(fields[3]); err != nil {
			return "", nil, 0, err
		}
	}
	var count int64
	if len(fields) > 4 {
		// counts are "target source joint"; the joint count is last
		cs := strings.Fields(fields[4])
		if len(cs) > 0 {
			if v, err := strconv.ParseFloat(cs[len(cs)-1], 64); err == nil {
				count = int64(v)
			}
		}
	}
	tp.Score = layout.Weights.Score(tp.Scores)
	return src.Key(layout.InputFactors), tp, count, nil
}

// LoadPhraseTable reads a phrase table file into memory.
func LoadPhraseTable(path string, layout Layout) (*Memory, error) {
	m := NewMemory(layout.Name, layout.InputFactors, layout.OutputFactors, layout.TableLimit)
	counts := make(map[string]int64)
	err := ScanLines(path, func(_ int, line string) error {
		key, tp, count, err := ParsePhraseLine(layout, line)
		if err != nil {
			return err
		}
		m.Add(key, tp)
		counts[key] += count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load phrase table %s: %w", layout.Name, err)
	}
	m.Finalize()
	for k, c := range counts {
		m.entries[k].Count = c
	}
	return m, nil
}

// LoadGenerationTable reads "in ||| out ||| probs" lines into memory.
func LoadGenerationTable(path string, layout Layout) (*MemoryGeneration, error) {
	g := NewMemoryGeneration(layout.Name, layout.InputFactors, layout.OutputFactors)
	err := ScanLines(path, func(_ int, line string) error {
		fields := SplitFields(line)
		if len(fields) < 3 {
			return fmt.Errorf("expected 3 fields, got %d", len(fields))
		}
		scores, err := ParseProbabilities(fields[2])
		if err != nil {
			return err
		}
		in := phrase.ParseWordFactors(fields[0], layout.InputFactors)
		e := GenerationEntry{
			Word:   phrase.ParseWordFactors(fields[1], layout.OutputFactors),
			Scores: scoring.Breakdown{},
		}
		e.Scores.Assign(layout.feature(), scores...)
		g.Add(in.Key(layout.InputFactors), e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load generation table %s: %w", layout.Name, err)
	}
	return g, nil
}
