package engine

import (
	"errors"
	"slices"
	"time"

	"github.com/hupe1980/meshflow/core"
)

// Status is the lifecycle state of a workflow run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusStopped   Status = "stopped"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusStopped:
		return true
	}
	return false
}

// StopReason explains a stopped run.
type StopReason string

const (
	ReasonPredicate StopReason = "predicate"
	ReasonMaxSteps  StopReason = "max_steps"
)

// Record is the auditable trace of one workflow run. Only the engine mutates
// a record, and only while it is running; callers always receive copies.
type Record struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Topology   string `json:"topology"`

	Status     Status     `json:"status"`
	StopReason StopReason `json:"stop_reason,omitempty"`
	Steps      int        `json:"steps"`
	MaxSteps   int        `json:"max_steps"`

	Results []core.AgentExecutionResult `json:"results"`
	// Route is the destination chosen by a routing run.
	Route string `json:"route,omitempty"`
	// Scores holds the evaluator score of every evaluator-optimizer round
	// that produced one.
	Scores []float64 `json:"scores,omitempty"`

	// Context is the run-owned context after every commit.
	Context *core.ExecutionContext `json:"context,omitempty"`

	Error string `json:"error,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Descriptor Descriptor `json:"-"`

	err error
}

func newRecord(desc Descriptor) *Record {
	return &Record{
		ID:         core.NewID(),
		WorkflowID: desc.ID,
		Topology:   desc.Topology.Kind(),
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
		Descriptor: desc,
	}
}

// Err returns the top-level error of a failed, timed out or cancelled run.
func (r *Record) Err() error {
	if r.err != nil {
		return r.err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}

// Duration returns the run time so far (or total, once finished).
func (r *Record) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LastResult returns the most recently committed result.
func (r *Record) LastResult() (core.AgentExecutionResult, bool) {
	if len(r.Results) == 0 {
		return core.AgentExecutionResult{}, false
	}
	return r.Results[len(r.Results)-1], true
}

// FinalText returns the text of the last successful result.
func (r *Record) FinalText() string {
	for i := len(r.Results) - 1; i >= 0; i-- {
		if !r.Results[i].Failed() {
			return r.Results[i].Text()
		}
	}
	return ""
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Results = slices.Clone(r.Results)
	cp.Scores = slices.Clone(r.Scores)
	cp.Context = r.Context.Clone()
	return &cp
}
