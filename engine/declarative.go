package engine

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meshflow/evaluation"
)

// document is the on-disk form of a Descriptor. JSON documents parse too,
// since JSON is a subset of YAML.
type document struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	MaxSteps int    `yaml:"max_steps"`
	Timeout  string `yaml:"timeout"`
	// StopContains ends the run once the latest result text contains it.
	StopContains string `yaml:"stop_contains"`

	Agents         []string `yaml:"agents"`
	MaxConcurrency int      `yaml:"max_concurrency"`

	Router     string   `yaml:"router"`
	Candidates []string `yaml:"candidates"`
	Strategy   string   `yaml:"strategy"`

	Generator   string   `yaml:"generator"`
	Evaluator   string   `yaml:"evaluator"`
	TargetScore *float64 `yaml:"target_score"`
	ScorePath   string   `yaml:"score_path"`
}

// LoadDescriptor reads a descriptor file.
func LoadDescriptor(path string) (Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("descriptor: read %q: %w", path, err)
	}
	return ParseDescriptor(b)
}

// ReadDescriptor decodes a descriptor from r.
func ReadDescriptor(r io.Reader) (Descriptor, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Descriptor{}, fmt.Errorf("descriptor: read: %w", err)
	}
	return ParseDescriptor(b)
}

// ParseDescriptor decodes and validates a YAML or JSON descriptor.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Descriptor{}, fmt.Errorf("descriptor: unmarshal: %w", err)
	}

	d := Descriptor{ID: doc.ID, Name: doc.Name, MaxSteps: doc.MaxSteps}

	if doc.Timeout != "" {
		timeout, err := time.ParseDuration(doc.Timeout)
		if err != nil {
			return Descriptor{}, fmt.Errorf("descriptor: invalid timeout: %w", err)
		}
		d.Timeout = timeout
	}
	if doc.StopContains != "" {
		d.StopWhen = StopWhenContains(doc.StopContains)
	}

	switch strings.ToLower(strings.TrimSpace(doc.Type)) {
	case TopologySequential:
		d.Topology = Sequential{Agents: doc.Agents}
	case TopologyParallel:
		d.Topology = Parallel{Agents: doc.Agents, MaxConcurrency: doc.MaxConcurrency}
	case TopologyRouting:
		switch doc.Strategy {
		case "", "capability":
		default:
			return Descriptor{}, fmt.Errorf("descriptor: unknown routing strategy %q", doc.Strategy)
		}
		d.Topology = Routing{Router: doc.Router, Candidates: doc.Candidates, Strategy: CapabilityMatch{}}
	case TopologyEvaluatorOptimizer, "evaluator-optimizer":
		eo := EvaluatorOptimizer{Generator: doc.Generator, Evaluator: doc.Evaluator, TargetScore: 1}
		if doc.TargetScore != nil {
			eo.TargetScore = *doc.TargetScore
		}
		if doc.ScorePath != "" {
			eo.Scorer = evaluation.Chain{evaluation.JSONScorer{Path: doc.ScorePath}, evaluation.PatternScorer{}}
		}
		d.Topology = eo
	case "":
		return Descriptor{}, fmt.Errorf("descriptor: missing type")
	default:
		return Descriptor{}, fmt.Errorf("descriptor: unknown type %q", doc.Type)
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("descriptor: %w", err)
	}
	return d, nil
}
