package domain

import "time"

// RunMode selects which pipeline stages a run executes.
type RunMode string

const (
	ModeCollect  RunMode = "collect"
	ModeScore    RunMode = "score"
	ModeGenerate RunMode = "generate"
	ModeValidate RunMode = "validate"
	ModePublish  RunMode = "publish"
	ModeFull     RunMode = "full"
)

// Valid reports whether the mode is one of the known run modes.
func (m RunMode) Valid() bool {
	switch m {
	case ModeCollect, ModeScore, ModeGenerate, ModeValidate, ModePublish, ModeFull:
		return true
	}
	return false
}

// Includes reports whether a run in this mode executes the given stage.
func (m RunMode) Includes(stage RunMode) bool {
	return m == ModeFull || m == stage
}

// StageCounts aggregates how many items each stage processed in one run.
type StageCounts struct {
	Collected int `json:"collected"`
	Scored    int `json:"scored"`
	Generated int `json:"generated"`
	Validated int `json:"validated"`
	Published int `json:"published"`
}

// StageOutcome records how a single stage ended within a run.
type StageOutcome string

const (
	StageCompleted StageOutcome = "completed"
	StageFailed    StageOutcome = "failed"
	StageSkipped   StageOutcome = "skipped"
)

// PipelineRun is the immutable report of one orchestrated run.
// Counts never exceed the number of items the stage actually observed.
type PipelineRun struct {
	RunID        string                  `json:"pipeline_run_id"`
	Mode         RunMode                 `json:"mode"`
	StartedAt    time.Time               `json:"started_at"`
	CompletedAt  time.Time               `json:"completed_at"`
	Counts       StageCounts             `json:"counts"`
	Errors       []string                `json:"errors"`
	WorkerStatus map[string]StageOutcome `json:"worker_status"`
}

// Success is true only for a run that recorded no errors; partial completion
// is still a persisted run, just not a successful one.
func (r PipelineRun) Success() bool {
	return len(r.Errors) == 0
}

// Duration returns the wall-clock time the run took.
func (r PipelineRun) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
