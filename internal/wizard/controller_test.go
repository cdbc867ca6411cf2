package wizard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-wizard/internal/config"
	"github.com/jonathan/resume-wizard/internal/events"
	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/pipeline/steps"
	"github.com/jonathan/resume-wizard/internal/runner"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// scriptStub stands in for the runner. Scripts listed in failures fail; the
// analysis script writes a report into the workspace.
type scriptStub struct {
	mu       sync.Mutex
	root     string
	failures map[runner.ScriptID]string
	calls    map[runner.ScriptID]int
	report   string
	block    chan struct{}
	started  chan runner.ScriptID
}

func newScriptStub(root string) *scriptStub {
	return &scriptStub{
		root:   root,
		calls:  map[runner.ScriptID]int{},
		report: "# Match Report\n\n- Go: **strong**",
	}
}

func (s *scriptStub) Run(_ context.Context, id runner.ScriptID) runner.Result {
	s.mu.Lock()
	s.calls[id]++
	msg, fail := s.failures[id]
	block, started := s.block, s.started
	s.mu.Unlock()

	if started != nil {
		started <- id
	}
	if block != nil {
		<-block
	}

	if fail {
		return runner.Result{Script: string(id), Status: runner.StatusError, Error: msg, Output: []string{"STDERR: " + msg}}
	}
	if id == runner.ScriptAnalyzeMatch && s.report != "" {
		path := filepath.Join(s.root, filepath.FromSlash(workspace.AnalysisReportPath))
		_ = os.WriteFile(path, []byte(s.report), 0644)
	}
	return runner.Result{Script: string(id), Status: runner.StatusSuccess, Output: []string{"done"}}
}

func (s *scriptStub) count(id runner.ScriptID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

type fixture struct {
	ctrl     *Controller
	ws       *workspace.Manager
	scripts  *scriptStub
	bus      *events.Bus
	inputDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	ws := workspace.NewManager(root)
	require.NoError(t, ws.EnsureDirectories())

	scripts := newScriptStub(ws.Root())
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	settings := config.NewSettingsStore(filepath.Join(root, config.SettingsFileName), "")

	return &fixture{
		ctrl:     NewController(scripts, ws, settings, Options{Publisher: bus}),
		ws:       ws,
		scripts:  scripts,
		bus:      bus,
		inputDir: t.TempDir(),
	}
}

func (f *fixture) inputFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.inputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) upload(t *testing.T, names ...string) {
	t.Helper()
	var paths []string
	for _, n := range names {
		paths = append(paths, f.inputFile(t, n, "content of "+n))
	}
	_, err := f.ctrl.AddFiles(paths)
	require.NoError(t, err)
}

func TestController_DeleteFileRemovesExactlyOneEntry(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.pdf", "b.pdf", "c.pdf", "d.pdf")

	before := f.ctrl.State().UploadedFiles
	require.Len(t, before, 4)

	state, err := f.ctrl.DeleteFile(2)
	require.NoError(t, err)

	require.Len(t, state.UploadedFiles, 3)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "d.pdf"}, names(state.UploadedFiles))
	assert.NoFileExists(t, before[2].Path)
	for _, i := range []int{0, 1, 3} {
		assert.FileExists(t, before[i].Path)
	}

	onDisk, err := f.ws.List(workspace.CategoryCandidate)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "d.pdf"}, names(onDisk))

	// re-indexed: index 2 is now d.pdf
	state, err = f.ctrl.DeleteFile(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names(state.UploadedFiles))
	assert.NoFileExists(t, before[3].Path)
}

func TestController_AddSameFileTwiceKeepsOneEntry(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "cv.pdf")
	stored := f.ctrl.State().UploadedFiles[0].Path

	_, err := f.ctrl.AddFiles([]string{stored})
	require.NoError(t, err)
	f.upload(t, "cv.pdf")

	state := f.ctrl.State()
	require.Len(t, state.UploadedFiles, 1)
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "content of cv.pdf", string(data))

	_, err = f.ctrl.DeleteFile(0)
	require.NoError(t, err)
	assert.Empty(t, f.ctrl.State().UploadedFiles)
}

func TestController_DeleteFileOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.pdf")

	_, err := f.ctrl.DeleteFile(5)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Len(t, f.ctrl.State().UploadedFiles, 1)
}

func TestController_DeleteFileAlreadyGoneFromDisk(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.pdf", "b.pdf")
	require.NoError(t, os.Remove(f.ctrl.State().UploadedFiles[0].Path))

	state, err := f.ctrl.DeleteFile(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, names(state.UploadedFiles))
}

func TestController_GenerateRunsStagesInOrder(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "cv.pdf")
	_, err := f.ctrl.Navigate(StepVacancy)
	require.NoError(t, err)

	outcome, err := f.ctrl.Generate(context.Background(), "We are hiring a Go engineer")
	require.NoError(t, err)
	assert.Equal(t, steps.GenerateSequence, outcome.Completed)

	state := f.ctrl.State()
	assert.False(t, state.IsGenerating)
	assert.True(t, state.ResultsReady)
	assert.Equal(t, StepGenerate, state.CurrentStep)
	for _, task := range pipeline.Tasks() {
		assert.Equal(t, pipeline.TaskCompleted, state.Tasks[task], "task %s", task)
	}

	saved, err := f.ws.ReadOutput("sources/vacancy/" + workspace.JobDescriptionFile)
	require.NoError(t, err)
	assert.Equal(t, "We are hiring a Go engineer", string(saved))
}

func TestController_GenerateStageTwoFailure(t *testing.T) {
	f := newFixture(t)
	f.scripts.failures = map[runner.ScriptID]string{
		runner.ScriptIngestVacancy: "ingest_vacancy exited with code 1: Vacancy text is empty",
	}
	f.upload(t, "cv.pdf")

	_, err := f.ctrl.Generate(context.Background(), "Job text")
	require.Error(t, err)
	assert.Equal(t, "ingest_vacancy exited with code 1: Vacancy text is empty", err.Error())

	assert.Equal(t, 1, f.scripts.count(runner.ScriptIngestCandidate))
	assert.Equal(t, 1, f.scripts.count(runner.ScriptIngestVacancy))
	assert.Equal(t, 0, f.scripts.count(runner.ScriptGenerateApplication))

	state := f.ctrl.State()
	assert.Equal(t, pipeline.TaskCompleted, state.Tasks[pipeline.TaskCandidate])
	assert.NotEqual(t, pipeline.TaskCompleted, state.Tasks[pipeline.TaskVacancy])
	assert.Equal(t, StepGenerate, state.CurrentStep)
	assert.Equal(t, err.Error(), state.LastError)
	assert.False(t, state.IsGenerating)
	assert.False(t, state.ResultsReady)
}

func TestController_GenerateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Generate(context.Background(), "")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, 0, f.scripts.count(runner.ScriptIngestCandidate))

	f.upload(t, "cv.pdf")
	_, err = f.ctrl.Generate(context.Background(), "")
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "vacancy_text", validationErr.Field)
	assert.Equal(t, StepVacancy, f.ctrl.State().CurrentStep)
}

func TestController_GenerateWhileGeneratingIsBusy(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "cv.pdf")
	f.scripts.block = make(chan struct{})
	f.scripts.started = make(chan runner.ScriptID, 4)

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Generate(context.Background(), "Job")
		done <- err
	}()
	<-f.scripts.started

	_, err := f.ctrl.Generate(context.Background(), "Job")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.ctrl.RunStage(context.Background(), steps.IngestCandidate, true)
	assert.ErrorIs(t, err, ErrBusy)

	close(f.scripts.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.scripts.count(runner.ScriptIngestCandidate))
}

func TestController_AnalyzeUsesCachedReport(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "cv.pdf")
	_, err := f.ctrl.Generate(context.Background(), "Job")
	require.NoError(t, err)

	report, err := f.ctrl.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# Match Report\n\n- Go: **strong**", report)
	assert.Equal(t, 1, f.scripts.count(runner.ScriptAnalyzeMatch))

	_, err = f.ctrl.Navigate(StepGenerate)
	require.NoError(t, err)

	again, err := f.ctrl.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report, again)
	assert.Equal(t, 1, f.scripts.count(runner.ScriptAnalyzeMatch), "cached report must not rerun the script")
	assert.Equal(t, StepAnalyze, f.ctrl.State().CurrentStep)
}

func TestController_AnalyzeMissingReport(t *testing.T) {
	f := newFixture(t)
	f.scripts.report = ""
	f.upload(t, "cv.pdf")
	_, err := f.ctrl.Generate(context.Background(), "Job")
	require.NoError(t, err)

	_, err = f.ctrl.Analyze(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report file does not exist")

	state := f.ctrl.State()
	assert.False(t, state.IsAnalyzing)
	assert.Nil(t, state.AnalysisReport)
}

func TestController_RunStageChecksDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.RunStage(context.Background(), steps.GenerateApplication, false)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Equal(t, 0, f.scripts.count(runner.ScriptGenerateApplication))

	result, err := f.ctrl.RunStage(context.Background(), steps.IngestCandidate, false)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, pipeline.TaskCompleted, f.ctrl.State().Tasks[pipeline.TaskCandidate])

	_, err = f.ctrl.RunStage(context.Background(), steps.GenerateApplication, true)
	require.NoError(t, err, "force skips the dependency check")

	_, err = f.ctrl.RunStage(context.Background(), "nope", false)
	require.True(t, errors.As(err, &validationErr))
}

func TestController_Stages(t *testing.T) {
	f := newFixture(t)

	stages := f.ctrl.Stages()
	assert.Equal(t, []string{steps.IngestCandidate, steps.IngestVacancy}, stages.Available)
	assert.Equal(t, []string{steps.AnalyzeMatch, steps.GenerateApplication}, stages.Blocked)

	_, err := f.ctrl.RunStage(context.Background(), steps.IngestCandidate, false)
	require.NoError(t, err)
	_, err = f.ctrl.RunStage(context.Background(), steps.IngestVacancy, false)
	require.NoError(t, err)

	stages = f.ctrl.Stages()
	assert.Equal(t, []string{steps.AnalyzeMatch, steps.GenerateApplication}, stages.Available)
	assert.Empty(t, stages.Blocked)
	assert.NotNil(t, stages.Blocked, "encodes as an empty JSON list")
}

func TestController_ClearAllResetsEverything(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "cv.pdf", "letter.docx")
	_, err := f.ctrl.Generate(context.Background(), "Job")
	require.NoError(t, err)
	_, err = f.ctrl.Analyze(context.Background())
	require.NoError(t, err)

	report, err := f.ctrl.ClearAll()
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	assert.GreaterOrEqual(t, report.Removed(), 4)

	state := f.ctrl.State()
	assert.Equal(t, StepUpload, state.CurrentStep)
	assert.Empty(t, state.UploadedFiles)
	assert.Nil(t, state.AnalysisReport)

	for _, dir := range workspace.Directories() {
		entries, err := os.ReadDir(filepath.Join(f.ws.Root(), filepath.FromSlash(dir)))
		require.NoError(t, err)
		assert.Empty(t, entries, dir)
	}

	_, err = f.ctrl.Analyze(context.Background())
	assert.Error(t, err, "cache invalidated by clear")
}

func TestController_Settings(t *testing.T) {
	f := newFixture(t)

	settings, err := f.ctrl.LoadSettings()
	require.NoError(t, err)
	assert.Empty(t, settings)

	settings, err = f.ctrl.SaveSettings(map[string]string{config.KeyDefaultModel: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", settings[config.KeyDefaultModel])
	assert.Equal(t, "gpt-4o", f.ctrl.State().Settings[config.KeyDefaultModel])

	_, err = f.ctrl.SaveSettings(map[string]string{"BAD KEY": "x"})
	var validationErr *config.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestController_UploadVacancyText(t *testing.T) {
	f := newFixture(t)

	result, err := f.ctrl.Upload(workspace.CategoryVacancy, nil, "Paste of the job ad")
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, workspace.JobDescriptionFile, result.Files[0].Name)
	assert.Equal(t, "Paste of the job ad", result.State.VacancyText)
	assert.Empty(t, result.State.UploadedFiles, "vacancy uploads are not candidate files")

	_, err = f.ctrl.Upload(workspace.Category("photos"), []string{"x"}, "")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.ctrl.Upload(workspace.CategoryCandidate, nil, "")
	assert.True(t, errors.As(err, &validationErr))
}

func TestController_PublishesProgress(t *testing.T) {
	f := newFixture(t)
	sub := f.bus.Subscribe(64)
	defer sub.Close()

	f.upload(t, "cv.pdf")
	_, err := f.ctrl.Generate(context.Background(), "Job")
	require.NoError(t, err)

	var messages []string
	for len(sub.Events()) > 0 {
		e := <-sub.Events()
		assert.Equal(t, LogSource, e.Source)
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Starting generation pipeline...")
	assert.Contains(t, messages, "Documents generated successfully")
}

func names(files []workspace.UploadedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}
