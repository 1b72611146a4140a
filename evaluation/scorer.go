package evaluation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/meshflow/core"
)

// ErrNoScore is returned when a scorer cannot find a score in the output.
var ErrNoScore = errors.New("no score found")

// Scorer extracts a score from an evaluator result. Scores are normalised to
// the range [0, 1].
type Scorer interface {
	Score(res core.AgentExecutionResult) (float64, error)
}

// Func adapts a plain function into a Scorer.
type Func func(res core.AgentExecutionResult) (float64, error)

// Score implements Scorer.
func (f Func) Score(res core.AgentExecutionResult) (float64, error) { return f(res) }

// JSONScorer reads a numeric field from the evaluator's structured output or,
// when absent, from the final text parsed as JSON. Path is a gjson path and
// defaults to "score". Values above 1 are treated as percentages (or tenths
// when at most 10).
type JSONScorer struct {
	Path string
}

// Score implements Scorer.
func (s JSONScorer) Score(res core.AgentExecutionResult) (float64, error) {
	path := s.Path
	if path == "" {
		path = "score"
	}

	text := strings.TrimSpace(res.Text())
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	if !gjson.Valid(text) {
		return 0, fmt.Errorf("%w: output is not JSON", ErrNoScore)
	}

	v := gjson.Get(text, path)
	switch v.Type {
	case gjson.Number:
		return normalize(v.Float()), nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q is not numeric", ErrNoScore, path)
		}
		return normalize(f), nil
	default:
		return 0, fmt.Errorf("%w: field %q missing", ErrNoScore, path)
	}
}

var (
	fractionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
	percentPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	labeledPattern  = regexp.MustCompile(`(?i)score\s*[:=]?\s*(\d+(?:\.\d+)?)`)
)

// PatternScorer recognises scores written in prose. The first match wins, in
// the order: fraction ("8/10"), percentage ("80%"), labelled ("score: 0.8").
type PatternScorer struct{}

// Score implements Scorer.
func (PatternScorer) Score(res core.AgentExecutionResult) (float64, error) {
	text := res.Text()

	if m := fractionPattern.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den > 0 {
			return clamp(num / den), nil
		}
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return clamp(v / 100), nil
	}
	if m := labeledPattern.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return normalize(v), nil
	}

	return 0, ErrNoScore
}

// Chain tries each scorer in order and returns the first score found.
type Chain []Scorer

// Score implements Scorer.
func (c Chain) Score(res core.AgentExecutionResult) (float64, error) {
	var errs []error
	for _, s := range c {
		score, err := s.Score(res)
		if err == nil {
			return score, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, ErrNoScore
	}
	return 0, errors.Join(errs...)
}

// Default returns the scorer used when none is configured: JSON first, then
// prose patterns.
func Default() Scorer {
	return Chain{JSONScorer{}, PatternScorer{}}
}

func normalize(v float64) float64 {
	switch {
	case v <= 1:
		return clamp(v)
	case v <= 10:
		return clamp(v / 10)
	default:
		return clamp(v / 100)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
