// Package pipeline runs ordered stages of external scripts, driving the task
// indicators and optional run history along the way.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-wizard/internal/runner"
)

// Stage categories
const (
	CategoryIngestion  = "ingestion"
	CategoryGeneration = "generation"
	CategoryAnalysis   = "analysis"
)

// Stage and run statuses as recorded in run history
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run kinds
const (
	KindGenerate = "generate"
	KindAnalyze  = "analyze"
	KindStage    = "stage"
)

// ScriptRunner executes one external script to completion
type ScriptRunner interface {
	Run(ctx context.Context, id runner.ScriptID) runner.Result
}

// Hook runs before a stage's script; an error fails the stage
type Hook func(ctx context.Context) error

// Stage is one ordered unit of a pipeline backed by a single script
type Stage struct {
	Name      string
	Script    runner.ScriptID
	Category  string
	Task      Task   // marked active while the stage runs; empty for none
	Completes []Task // marked completed on success; defaults to Task
	Before    Hook
}

func (s Stage) completes() []Task {
	if len(s.Completes) > 0 {
		return s.Completes
	}
	if s.Task != "" {
		return []Task{s.Task}
	}
	return nil
}

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage    string `json:"stage"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// TaskCallback is called whenever a task indicator changes
type TaskCallback func(task Task, status TaskStatus)

// Recorder persists runs and their stages. Failures are logged, never fatal.
type Recorder interface {
	CreateRun(ctx context.Context, kind string) (uuid.UUID, error)
	StartStage(ctx context.Context, runID uuid.UUID, stage, category string) error
	FinishStage(ctx context.Context, runID uuid.UUID, stage, status string, durationMs int64, outputLines int, errorMessage *string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
}

// Options holds configuration for executing stages
type Options struct {
	Kind       string
	OnProgress ProgressCallback
	OnTask     TaskCallback
	Recorder   Recorder
}

// Outcome summarizes an execution
type Outcome struct {
	RunID     uuid.UUID       `json:"run_id"`
	Completed []string        `json:"completed"`
	Results   []runner.Result `json:"results"`
}

// StageError reports the stage that stopped the pipeline. Its message is
// the script's error, unchanged.
type StageError struct {
	Stage   string
	Message string
	Result  *runner.Result
	Cause   error
}

func (e *StageError) Error() string {
	return e.Message
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Execute runs the stages strictly in order. The first failing stage stops
// the run; later stages are never started.
func Execute(ctx context.Context, stages []Stage, scripts ScriptRunner, opts Options) (*Outcome, error) {
	if opts.Kind == "" {
		opts.Kind = KindGenerate
	}
	outcome := &Outcome{Completed: []string{}, Results: []runner.Result{}}
	outcome.RunID = createRun(ctx, opts)

	for i, stage := range stages {
		log.Printf("[PIPELINE] Stage %d/%d: %s", i+1, len(stages), stage.Name)
		started := time.Now()

		setTask(opts, stage.Task, TaskActive)
		emitProgress(opts, outcome.RunID, stage, StatusRunning, fmt.Sprintf("Running %s", stage.Name), nil)
		recordStart(ctx, opts, outcome.RunID, stage)

		if stage.Before != nil {
			if err := stage.Before(ctx); err != nil {
				stageErr := &StageError{Stage: stage.Name, Message: err.Error(), Cause: err}
				return outcome, fail(ctx, opts, outcome.RunID, stage, stageErr, started, 0)
			}
		}

		result := scripts.Run(ctx, stage.Script)
		outcome.Results = append(outcome.Results, result)
		if !result.OK() {
			stageErr := &StageError{Stage: stage.Name, Message: result.Error, Result: &result, Cause: result.Cause}
			return outcome, fail(ctx, opts, outcome.RunID, stage, stageErr, started, len(result.Output))
		}

		for _, task := range stage.completes() {
			setTask(opts, task, TaskCompleted)
		}
		outcome.Completed = append(outcome.Completed, stage.Name)
		recordFinish(ctx, opts, outcome.RunID, stage, StatusCompleted, time.Since(started), len(result.Output), nil)
		emitProgress(opts, outcome.RunID, stage, StatusCompleted,
			fmt.Sprintf("Completed %s (%d lines)", stage.Name, len(result.Output)), nil)
	}

	completeRun(ctx, opts, outcome.RunID, StatusCompleted)
	log.Printf("[PIPELINE] %s run finished: %d stage(s) completed", opts.Kind, len(outcome.Completed))
	return outcome, nil
}

func fail(ctx context.Context, opts Options, runID uuid.UUID, stage Stage, stageErr *StageError, started time.Time, lines int) error {
	log.Printf("[PIPELINE] Stage %s failed: %s", stage.Name, stageErr.Message)
	setTask(opts, stage.Task, TaskFailed)
	msg := stageErr.Message
	recordFinish(ctx, opts, runID, stage, StatusFailed, time.Since(started), lines, &msg)
	emitProgress(opts, runID, stage, StatusFailed, stageErr.Message, nil)
	completeRun(ctx, opts, runID, StatusFailed)
	return stageErr
}

func setTask(opts Options, task Task, status TaskStatus) {
	if task != "" && opts.OnTask != nil {
		opts.OnTask(task, status)
	}
}

// emitProgress calls the progress callback if configured
func emitProgress(opts Options, runID uuid.UUID, stage Stage, status, message string, content any) {
	if opts.OnProgress == nil {
		return
	}
	event := ProgressEvent{
		Stage:    stage.Name,
		Category: stage.Category,
		Status:   status,
		Message:  message,
		Content:  content,
	}
	if runID != uuid.Nil {
		event.RunID = runID.String()
	}
	opts.OnProgress(event)
}

func createRun(ctx context.Context, opts Options) uuid.UUID {
	if opts.Recorder == nil {
		return uuid.Nil
	}
	runID, err := opts.Recorder.CreateRun(ctx, opts.Kind)
	if err != nil {
		log.Printf("[PIPELINE] Warning: failed to record run: %v", err)
		return uuid.Nil
	}
	return runID
}

func recordStart(ctx context.Context, opts Options, runID uuid.UUID, stage Stage) {
	if opts.Recorder == nil || runID == uuid.Nil {
		return
	}
	if err := opts.Recorder.StartStage(ctx, runID, stage.Name, stage.Category); err != nil {
		log.Printf("[PIPELINE] Warning: failed to record stage %s: %v", stage.Name, err)
	}
}

func recordFinish(ctx context.Context, opts Options, runID uuid.UUID, stage Stage, status string, elapsed time.Duration, lines int, errMsg *string) {
	if opts.Recorder == nil || runID == uuid.Nil {
		return
	}
	if err := opts.Recorder.FinishStage(ctx, runID, stage.Name, status, elapsed.Milliseconds(), lines, errMsg); err != nil {
		log.Printf("[PIPELINE] Warning: failed to record stage %s: %v", stage.Name, err)
	}
}

func completeRun(ctx context.Context, opts Options, runID uuid.UUID, status string) {
	if opts.Recorder == nil || runID == uuid.Nil {
		return
	}
	// a cancelled request must still close out the run row
	if err := opts.Recorder.CompleteRun(context.WithoutCancel(ctx), runID, status); err != nil {
		log.Printf("[PIPELINE] Warning: failed to complete run %s: %v", runID, err)
	}
}
