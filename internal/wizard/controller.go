package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/resume-wizard/internal/events"
	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/pipeline/steps"
	"github.com/jonathan/resume-wizard/internal/runner"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// LogSource tags events narrated by the controller
const LogSource = "wizard"

// Workspace is the part of the workspace manager the controller uses
type Workspace interface {
	EnsureDirectories() error
	Clear() workspace.ClearReport
	Store(category workspace.Category, paths []string) ([]workspace.UploadedFile, error)
	StoreText(category workspace.Category, text string) (workspace.UploadedFile, error)
	Remove(path string) error
	ReadOutput(relativePath string) ([]byte, error)
}

// SettingsStore loads and saves the key=value settings file
type SettingsStore interface {
	Load() (map[string]string, error)
	Save(updates map[string]string) error
}

// Options holds optional collaborators
type Options struct {
	Recorder  pipeline.Recorder
	Publisher events.Publisher
}

// Controller serialises wizard state and runs the pipeline stages. State
// changes go through Transition under the mutex; scripts run outside it.
type Controller struct {
	mu    sync.Mutex
	state State

	scripts   pipeline.ScriptRunner
	ws        Workspace
	settings  SettingsStore
	recorder  pipeline.Recorder
	publisher events.Publisher
}

// NewController creates a controller in the launch state
func NewController(scripts pipeline.ScriptRunner, ws Workspace, settings SettingsStore, opts Options) *Controller {
	return &Controller{
		state:     NewState(),
		scripts:   scripts,
		ws:        ws,
		settings:  settings,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
	}
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) apply(e Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Transition(c.state, e)
	c.state = next
	return next.Clone(), err
}

// UploadResult describes what an upload stored
type UploadResult struct {
	Files []workspace.UploadedFile `json:"files"`
	State State                    `json:"state"`
}

// AddFiles copies candidate files into the workspace and lists them
func (c *Controller) AddFiles(paths []string) (*UploadResult, error) {
	stored, err := c.ws.Store(workspace.CategoryCandidate, paths)
	if len(stored) > 0 {
		// files copied before a failure are on disk and stay listed
		c.apply(FilesAdded{Files: stored})
		c.logInfo(fmt.Sprintf("Uploaded %d file(s)", len(stored)))
	}
	if err != nil {
		c.logError(err.Error())
		return nil, err
	}
	return &UploadResult{Files: stored, State: c.State()}, nil
}

// Upload stores files or raw text for a category. Vacancy text becomes the
// job description file and the current vacancy text.
func (c *Controller) Upload(category workspace.Category, paths []string, text string) (*UploadResult, error) {
	if _, err := category.Dir(); err != nil {
		return nil, &ValidationError{Field: "category", Message: err.Error()}
	}
	if text == "" && len(paths) == 0 {
		return nil, &ValidationError{Field: "paths", Message: "no files selected"}
	}

	if category == workspace.CategoryCandidate && text == "" {
		return c.AddFiles(paths)
	}

	var stored []workspace.UploadedFile
	if text != "" {
		file, err := c.ws.StoreText(category, text)
		if err != nil {
			return nil, err
		}
		stored = append(stored, file)
		if category == workspace.CategoryVacancy {
			c.apply(VacancyChanged{Text: text})
		}
	}
	if len(paths) > 0 {
		files, err := c.ws.Store(category, paths)
		stored = append(stored, files...)
		if err != nil {
			return nil, err
		}
	}
	return &UploadResult{Files: stored, State: c.State()}, nil
}

// DeleteFile removes the uploaded file at index from disk and from the list.
// A file already gone from disk is only dropped from the list.
func (c *Controller) DeleteFile(index int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.state.UploadedFiles) {
		return c.state.Clone(), &ValidationError{Field: "index", Message: fmt.Sprintf("no uploaded file at index %d", index)}
	}
	file := c.state.UploadedFiles[index]

	if err := c.ws.Remove(file.Path); err != nil {
		var notFound *workspace.NotFoundError
		if !errors.As(err, &notFound) {
			return c.state.Clone(), err
		}
		log.Printf("[WIZARD] %s was already removed from disk", file.Name)
	}

	next, err := Transition(c.state, FileRemoved{Index: index})
	c.state = next
	return next.Clone(), err
}

// SetVacancy replaces the vacancy text
func (c *Controller) SetVacancy(text string) State {
	next, _ := c.apply(VacancyChanged{Text: text})
	return next
}

// Navigate moves the wizard to another step
func (c *Controller) Navigate(step Step) (State, error) {
	return c.apply(Navigate{To: step})
}

// Generate runs Ingest Candidate, Save+Ingest Vacancy and Generate Documents
// in order. A non-empty vacancyText replaces the current text first.
func (c *Controller) Generate(ctx context.Context, vacancyText string) (*pipeline.Outcome, error) {
	c.mu.Lock()
	if vacancyText != "" {
		c.state, _ = Transition(c.state, VacancyChanged{Text: vacancyText})
	}
	next, err := Transition(c.state, GenerationStarted{})
	c.state = next
	text := next.VacancyText
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.logInfo("Starting generation pipeline...")
	stages, err := steps.Build(steps.GenerateSequence, map[string]pipeline.Hook{
		steps.IngestVacancy: c.saveVacancy(text),
	})
	if err != nil {
		c.apply(GenerationFailed{Message: err.Error()})
		return nil, err
	}

	outcome, err := pipeline.Execute(ctx, stages, c.scripts, c.pipelineOptions(pipeline.KindGenerate))
	if err != nil {
		c.apply(GenerationFailed{Message: err.Error()})
		c.logError("Generation failed: " + err.Error())
		return outcome, err
	}

	c.apply(GenerationSucceeded{})
	c.logInfo("Documents generated successfully")
	return outcome, nil
}

// Analyze enters the analyze step. A cached report is returned without
// running the analysis script again.
func (c *Controller) Analyze(ctx context.Context) (string, error) {
	next, err := c.apply(AnalysisRequested{})
	if err != nil {
		return "", err
	}
	if !next.IsAnalyzing && next.AnalysisReport != nil {
		c.logInfo("Showing cached analysis report")
		return *next.AnalysisReport, nil
	}

	c.logInfo("Starting match analysis...")
	stages, err := steps.Build([]string{steps.AnalyzeMatch}, nil)
	if err == nil {
		_, err = pipeline.Execute(ctx, stages, c.scripts, c.pipelineOptions(pipeline.KindAnalyze))
	}
	if err != nil {
		c.apply(AnalysisFailed{Message: err.Error()})
		c.logError("Analysis failed: " + err.Error())
		return "", err
	}

	data, err := c.ws.ReadOutput(workspace.AnalysisReportPath)
	if err != nil {
		var notFound *workspace.NotFoundError
		if errors.As(err, &notFound) {
			err = fmt.Errorf("report file does not exist: %w", err)
		}
		c.apply(AnalysisFailed{Message: err.Error()})
		c.logError("Failed to load report: " + err.Error())
		return "", err
	}

	report := string(data)
	c.apply(AnalysisSucceeded{Report: report})
	c.logInfo("Analysis complete")
	return report, nil
}

// StageAvailability splits the stages by whether they can run now
type StageAvailability struct {
	Available []string `json:"available"`
	Blocked   []string `json:"blocked"`
}

// Stages reports which stages have their dependencies met in this session
func (c *Controller) Stages() StageAvailability {
	completed := stageCompleted(c.State())
	return StageAvailability{
		Available: append([]string{}, steps.GetAvailableStages(completed)...),
		Blocked:   append([]string{}, steps.GetBlockedStages(completed)...),
	}
}

// RunStage runs a single named stage. Unless force is set, the stage's
// dependencies must already have completed in this session.
func (c *Controller) RunStage(ctx context.Context, name string, force bool) (*runner.Result, error) {
	def, err := steps.Lookup(name)
	if err != nil {
		return nil, &ValidationError{Field: "stage", Message: err.Error()}
	}

	current := c.State()
	if current.IsGenerating || current.IsAnalyzing {
		return nil, ErrBusy
	}
	if !force {
		if err := steps.ValidateDependencies(name, stageCompleted(current)); err != nil {
			return nil, &ValidationError{Field: "stage", Message: err.Error()}
		}
	}

	var hook pipeline.Hook
	if name == steps.IngestVacancy && strings.TrimSpace(current.VacancyText) != "" {
		hook = c.saveVacancy(current.VacancyText)
	}

	outcome, err := pipeline.Execute(ctx, []pipeline.Stage{def.Stage(hook)}, c.scripts, c.pipelineOptions(pipeline.KindStage))
	var result *runner.Result
	if outcome != nil && len(outcome.Results) > 0 {
		result = &outcome.Results[0]
	}
	if err != nil {
		return result, err
	}

	if name == steps.AnalyzeMatch {
		if data, readErr := c.ws.ReadOutput(workspace.AnalysisReportPath); readErr == nil {
			c.mu.Lock()
			// refresh the cache without moving the wizard
			report := string(data)
			c.state.AnalysisReport = &report
			c.mu.Unlock()
		}
	}
	return result, nil
}

// ClearAll deletes all workspace data and resets the wizard
func (c *Controller) ClearAll() (workspace.ClearReport, error) {
	report := c.ws.Clear()
	if err := c.ws.EnsureDirectories(); err != nil {
		return report, err
	}
	c.apply(Reset{})
	c.logInfo(fmt.Sprintf("Cleared workspace: %d file(s) removed, %d failed", report.Removed(), len(report.Failed())))
	return report, nil
}

// Reset returns the wizard to the launch state without touching disk
func (c *Controller) Reset() State {
	next, _ := c.apply(Reset{})
	return next
}

// LoadSettings reads the settings file into the state
func (c *Controller) LoadSettings() (map[string]string, error) {
	settings, err := c.settings.Load()
	if err != nil {
		return nil, err
	}
	c.apply(SettingsLoaded{Settings: settings})
	return settings, nil
}

// SaveSettings merges updates into the settings file and reloads it
func (c *Controller) SaveSettings(updates map[string]string) (map[string]string, error) {
	if err := c.settings.Save(updates); err != nil {
		return nil, err
	}
	c.logInfo("Settings saved")
	return c.LoadSettings()
}

func (c *Controller) saveVacancy(text string) pipeline.Hook {
	return func(context.Context) error {
		if _, err := c.ws.StoreText(workspace.CategoryVacancy, text); err != nil {
			return fmt.Errorf("failed to save vacancy text: %w", err)
		}
		return nil
	}
}

func (c *Controller) pipelineOptions(kind string) pipeline.Options {
	return pipeline.Options{
		Kind:     kind,
		Recorder: c.recorder,
		OnTask: func(task pipeline.Task, status pipeline.TaskStatus) {
			c.apply(TaskChanged{Task: task, Status: status})
		},
		OnProgress: func(e pipeline.ProgressEvent) {
			if e.Status == pipeline.StatusFailed {
				return
			}
			c.logInfo(e.Message)
		},
	}
}

func (c *Controller) logInfo(msg string) {
	log.Printf("[WIZARD] %s", msg)
	if c.publisher != nil {
		c.publisher.Publish(events.Info(LogSource, msg))
	}
}

func (c *Controller) logError(msg string) {
	log.Printf("[WIZARD] %s", msg)
	if c.publisher != nil {
		c.publisher.Publish(events.Error(LogSource, msg))
	}
}

// stageCompleted derives stage completion from the task indicators and the
// report cache
func stageCompleted(s State) func(string) bool {
	return func(name string) bool {
		if name == steps.AnalyzeMatch {
			return s.AnalysisReport != nil
		}
		def, err := steps.Lookup(name)
		if err != nil || def.Task == "" {
			return false
		}
		return s.Tasks.Completed(def.Task)
	}
}
