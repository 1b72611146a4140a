package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/evaluation"
)

// Topology names used in records, metrics and declarative descriptors.
const (
	TopologySequential         = "sequential"
	TopologyParallel           = "parallel"
	TopologyRouting            = "routing"
	TopologyEvaluatorOptimizer = "evaluator_optimizer"
)

// DefaultEvaluatorRounds bounds an evaluator-optimizer run whose descriptor
// sets no MaxSteps.
const DefaultEvaluatorRounds = 5

// Topology is the coordination shape of a workflow. The set is closed:
// Sequential, Parallel, Routing and EvaluatorOptimizer.
type Topology interface {
	// Kind returns the topology name.
	Kind() string
	// AgentIDs lists every agent the topology may invoke.
	AgentIDs() []string

	validate() error
}

// Sequential runs agents one at a time in order, each seeing the turns of
// all agents before it.
type Sequential struct {
	Agents []string
}

// Kind implements Topology.
func (Sequential) Kind() string { return TopologySequential }

// AgentIDs implements Topology.
func (t Sequential) AgentIDs() []string { return append([]string(nil), t.Agents...) }

func (t Sequential) validate() error {
	if len(t.Agents) == 0 {
		return errors.New("sequential topology needs at least one agent")
	}
	return nil
}

// Parallel runs agents concurrently against the same starting context and
// merges their turns in input order once all have settled.
type Parallel struct {
	Agents []string
	// MaxConcurrency caps in-flight agents (0 = all at once).
	MaxConcurrency int
}

// Kind implements Topology.
func (Parallel) Kind() string { return TopologyParallel }

// AgentIDs implements Topology.
func (t Parallel) AgentIDs() []string { return append([]string(nil), t.Agents...) }

func (t Parallel) validate() error {
	if len(t.Agents) == 0 {
		return errors.New("parallel topology needs at least one agent")
	}
	if t.MaxConcurrency < 0 {
		return errors.New("parallel max concurrency must not be negative")
	}
	return nil
}

// RouteStrategy selects one destination from the candidates given the
// router's final text.
type RouteStrategy interface {
	Select(output string, candidates []core.AgentDefinition) (string, bool)
}

// CapabilityMatch selects the first candidate declaring a capability tag
// equal to the first line of the router output (trimmed, case-insensitive).
type CapabilityMatch struct{}

// Select implements RouteStrategy.
func (CapabilityMatch) Select(output string, candidates []core.AgentDefinition) (string, bool) {
	tag := strings.TrimSpace(output)
	if i := strings.IndexByte(tag, '\n'); i >= 0 {
		tag = strings.TrimSpace(tag[:i])
	}
	if tag == "" {
		return "", false
	}

	for _, c := range candidates {
		for _, capability := range c.Capabilities {
			if strings.EqualFold(strings.TrimSpace(capability), tag) {
				return c.ID, true
			}
		}
	}
	return "", false
}

// ClassifierFunc is a caller-supplied routing strategy. It must return the
// id of one of the candidates.
type ClassifierFunc func(output string, candidates []core.AgentDefinition) (string, bool)

// Select implements RouteStrategy.
func (f ClassifierFunc) Select(output string, candidates []core.AgentDefinition) (string, bool) {
	return f(output, candidates)
}

// Routing runs the router agent, then exactly one candidate chosen by
// Strategy. Strategy defaults to CapabilityMatch.
type Routing struct {
	Router     string
	Candidates []string
	Strategy   RouteStrategy
}

// Kind implements Topology.
func (Routing) Kind() string { return TopologyRouting }

// AgentIDs implements Topology.
func (t Routing) AgentIDs() []string {
	return append([]string{t.Router}, t.Candidates...)
}

func (t Routing) validate() error {
	if t.Router == "" {
		return errors.New("routing topology needs a router agent")
	}
	if len(t.Candidates) == 0 {
		return errors.New("routing topology needs at least one candidate")
	}
	return nil
}

// EvaluatorOptimizer alternates a generator and an evaluator. Each round the
// generator sees every prior critique and the evaluator sees the fresh draft.
type EvaluatorOptimizer struct {
	Generator string
	Evaluator string
	// TargetScore ends the run as completed once reached (default 1.0).
	TargetScore float64
	// Scorer reads the evaluator result (default evaluation.Default()).
	Scorer evaluation.Scorer
}

// Kind implements Topology.
func (EvaluatorOptimizer) Kind() string { return TopologyEvaluatorOptimizer }

// AgentIDs implements Topology.
func (t EvaluatorOptimizer) AgentIDs() []string { return []string{t.Generator, t.Evaluator} }

func (t EvaluatorOptimizer) validate() error {
	if t.Generator == "" || t.Evaluator == "" {
		return errors.New("evaluator-optimizer topology needs a generator and an evaluator")
	}
	if t.TargetScore < 0 || t.TargetScore > 1 {
		return fmt.Errorf("target score %.2f outside [0, 1]", t.TargetScore)
	}
	return nil
}

// StopPredicate is evaluated after every committed step. Returning true ends
// the run with status stopped.
type StopPredicate func(step int, results []core.AgentExecutionResult) bool

// Descriptor describes one workflow: its topology plus shared limits.
type Descriptor struct {
	ID       string
	Name     string
	Topology Topology
	// MaxSteps bounds committed steps (0 = engine default).
	MaxSteps int
	// Timeout bounds the whole run (0 = engine default).
	Timeout  time.Duration
	StopWhen StopPredicate
}

// Validate checks the descriptor is structurally usable.
func (d Descriptor) Validate() error {
	if d.Topology == nil {
		return errors.New("descriptor has no topology")
	}
	if d.MaxSteps < 0 {
		return errors.New("descriptor max steps must not be negative")
	}
	if d.Timeout < 0 {
		return errors.New("descriptor timeout must not be negative")
	}
	if err := d.Topology.validate(); err != nil {
		return fmt.Errorf("descriptor %s: %w", d.displayID(), err)
	}
	for _, id := range d.Topology.AgentIDs() {
		if id == "" {
			return fmt.Errorf("descriptor %s: empty agent id", d.displayID())
		}
	}
	return nil
}

func (d Descriptor) displayID() string {
	if d.ID != "" {
		return d.ID
	}
	if d.Name != "" {
		return d.Name
	}
	return d.Topology.Kind()
}

// StopWhenContains returns a predicate firing once the latest result's text
// contains marker.
func StopWhenContains(marker string) StopPredicate {
	return func(_ int, results []core.AgentExecutionResult) bool {
		if len(results) == 0 {
			return false
		}
		return strings.Contains(results[len(results)-1].Text(), marker)
	}
}
