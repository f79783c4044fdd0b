package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage enumerates ingestion job lifecycle phases. Stages advance strictly
// forward; Complete and Errored are the terminal pair.
type Stage string

const (
	StageUploading  Stage = "uploading"
	StageParsing    Stage = "parsing"
	StageExtracting Stage = "extracting"
	StageValidating Stage = "validating"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageErrored    Stage = "error"
)

// Terminal reports whether a stage is one of the two sinks.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageErrored
}

// StageProgress maps each stage to its progress percentage.
var StageProgress = map[Stage]int{
	StageUploading:  10,
	StageParsing:    25,
	StageExtracting: 50,
	StageValidating: 70,
	StageSaving:     90,
	StageComplete:   100,
}

// JobKind discriminates what a job is ingesting.
type JobKind string

const (
	JobKindURL      JobKind = "url"
	JobKindDocument JobKind = "document"
)

// NewJobID builds a job identifier embedding the kind and creation time for
// debuggability. Uniqueness comes from the uuid suffix.
func NewJobID(kind JobKind) string {
	return fmt.Sprintf("%s_%d_%s", kind, time.Now().UnixMilli(), uuid.New().String()[:8])
}

// IngestionJob is one tracked unit of ingestion work. It is written only by
// the runner that owns it and read by any number of pollers.
type IngestionJob struct {
	ID        string     `json:"id"`
	Kind      JobKind    `json:"kind"`
	Stage     Stage      `json:"stage"`
	Progress  int        `json:"progress"` // 0-100, non-decreasing while non-terminal
	Message   string     `json:"message"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Cancelled bool       `json:"cancelled"`
}

// JobResult carries the outcome of a finished job. Single-source jobs fill
// the recipe fields; batch jobs fill Sources.
type JobResult struct {
	RecipeID    string          `json:"recipeId,omitempty"`
	RecipeTitle string          `json:"recipeTitle,omitempty"`
	BlobURL     string          `json:"blobUrl,omitempty"`
	Recipes     []Recipe        `json:"recipes,omitempty"`
	Sources     []SourceOutcome `json:"sources,omitempty"`
	Summary     *BatchSummary   `json:"summary,omitempty"`
}

// SourceOutcome records one source's fate inside a batch. Failure here never
// fails siblings or the parent job.
type SourceOutcome struct {
	Source      string    `json:"source"`
	Success     bool      `json:"success"`
	RecipeID    string    `json:"recipeId,omitempty"`
	RecipeTitle string    `json:"recipeTitle,omitempty"`
	Conflict    *Conflict `json:"conflict,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
}

// JobUpdate is the partial state a runner merges into its job. Nil fields
// are left untouched.
type JobUpdate struct {
	Stage    *Stage
	Progress *int
	Message  *string
	Result   *JobResult
	Error    *string
	EndTime  *time.Time
}
