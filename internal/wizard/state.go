// Package wizard implements the four-step application wizard: a pure state
// machine and a controller that drives the external pipeline through it.
package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// Step is a wizard page
type Step int

const (
	StepUpload   Step = 1
	StepVacancy  Step = 2
	StepGenerate Step = 3
	StepAnalyze  Step = 4
)

// Valid reports whether s is one of the four steps
func (s Step) Valid() bool {
	return s >= StepUpload && s <= StepAnalyze
}

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepVacancy:
		return "vacancy"
	case StepGenerate:
		return "generate"
	case StepAnalyze:
		return "analyze"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// State is the complete wizard state. Values are treated as immutable:
// Transition always returns a fresh copy.
type State struct {
	CurrentStep    Step                     `json:"current_step"`
	CompletedSteps []Step                   `json:"completed_steps"`
	UploadedFiles  []workspace.UploadedFile `json:"uploaded_files"`
	VacancyText    string                   `json:"vacancy_text"`
	IsGenerating   bool                     `json:"is_generating"`
	IsAnalyzing    bool                     `json:"is_analyzing"`
	AnalysisReport *string                  `json:"analysis_report"`
	Tasks          pipeline.TaskBoard       `json:"tasks"`
	ResultsReady   bool                     `json:"results_ready"`
	LastError      string                   `json:"last_error,omitempty"`
	Settings       map[string]string        `json:"settings"`
}

// NewState returns the state shown on launch
func NewState() State {
	return State{
		CurrentStep:    StepUpload,
		CompletedSteps: []Step{},
		UploadedFiles:  []workspace.UploadedFile{},
		Tasks:          pipeline.NewTaskBoard(),
		Settings:       map[string]string{},
	}
}

// Clone returns a deep copy
func (s State) Clone() State {
	out := s
	out.CompletedSteps = append([]Step{}, s.CompletedSteps...)
	out.UploadedFiles = append([]workspace.UploadedFile{}, s.UploadedFiles...)
	out.Tasks = s.Tasks.Clone()
	out.Settings = make(map[string]string, len(s.Settings))
	for k, v := range s.Settings {
		out.Settings[k] = v
	}
	if s.AnalysisReport != nil {
		report := *s.AnalysisReport
		out.AnalysisReport = &report
	}
	return out
}

// addFile lists f, replacing an entry that already points at the same path
func (s *State) addFile(f workspace.UploadedFile) {
	for i, existing := range s.UploadedFiles {
		if existing.Path == f.Path {
			s.UploadedFiles[i] = f
			return
		}
	}
	s.UploadedFiles = append(s.UploadedFiles, f)
}

// IsCompleted reports whether the step has been finished at least once
func (s State) IsCompleted(step Step) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// CanNavigate reports whether the stepper may jump to step
func (s State) CanNavigate(step Step) bool {
	_, err := Transition(s, Navigate{To: step})
	return err == nil
}

func (s *State) complete(step Step) {
	if s.IsCompleted(step) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	sort.Slice(s.CompletedSteps, func(i, j int) bool { return s.CompletedSteps[i] < s.CompletedSteps[j] })
}

func (s *State) uncomplete(step Step) {
	kept := s.CompletedSteps[:0]
	for _, c := range s.CompletedSteps {
		if c != step {
			kept = append(kept, c)
		}
	}
	s.CompletedSteps = kept
}

// Event is an input to Transition
type Event interface {
	event()
}

// FilesAdded appends stored candidate files to the list
type FilesAdded struct{ Files []workspace.UploadedFile }

// FileRemoved drops the entry at Index
type FileRemoved struct{ Index int }

// VacancyChanged replaces the vacancy text
type VacancyChanged struct{ Text string }

// Navigate moves to another step
type Navigate struct{ To Step }

// GenerationStarted requests the generate pipeline
type GenerationStarted struct{}

// TaskChanged updates one task indicator
type TaskChanged struct {
	Task   pipeline.Task
	Status pipeline.TaskStatus
}

// GenerationSucceeded ends a generate run
type GenerationSucceeded struct{}

// GenerationFailed ends a generate run with the failing stage's message
type GenerationFailed struct{ Message string }

// AnalysisRequested enters the analyze step
type AnalysisRequested struct{}

// AnalysisSucceeded stores the report in the cache slot
type AnalysisSucceeded struct{ Report string }

// AnalysisFailed ends an analysis run
type AnalysisFailed struct{ Message string }

// SettingsLoaded replaces the settings snapshot
type SettingsLoaded struct{ Settings map[string]string }

// Reset returns to the launch state, keeping the settings snapshot
type Reset struct{}

func (FilesAdded) event()          {}
func (FileRemoved) event()         {}
func (VacancyChanged) event()      {}
func (Navigate) event()            {}
func (GenerationStarted) event()   {}
func (TaskChanged) event()         {}
func (GenerationSucceeded) event() {}
func (GenerationFailed) event()    {}
func (AnalysisRequested) event()   {}
func (AnalysisSucceeded) event()   {}
func (AnalysisFailed) event()      {}
func (SettingsLoaded) event()      {}
func (Reset) event()               {}

// Transition computes the next state. It never mutates s.
//
// On ErrBusy the input state is returned unchanged. A ValidationError may
// come with a changed state (a missing vacancy sends the wizard back to the
// vacancy step); callers adopt the returned state in every case.
func Transition(s State, e Event) (State, error) {
	next := s.Clone()

	switch ev := e.(type) {
	case FilesAdded:
		for _, f := range ev.Files {
			next.addFile(f)
		}

	case FileRemoved:
		if ev.Index < 0 || ev.Index >= len(next.UploadedFiles) {
			return s, &ValidationError{Field: "index", Message: fmt.Sprintf("no uploaded file at index %d", ev.Index)}
		}
		next.UploadedFiles = append(next.UploadedFiles[:ev.Index], next.UploadedFiles[ev.Index+1:]...)
		if len(next.UploadedFiles) == 0 {
			next.uncomplete(StepUpload)
		}

	case VacancyChanged:
		next.VacancyText = ev.Text

	case Navigate:
		return navigate(s, next, ev.To)

	case GenerationStarted:
		if s.IsGenerating {
			return s, ErrBusy
		}
		if len(s.UploadedFiles) == 0 {
			next.CurrentStep = StepUpload
			return next, &ValidationError{Field: "files", Message: "please upload at least one candidate file"}
		}
		if strings.TrimSpace(s.VacancyText) == "" {
			next.CurrentStep = StepVacancy
			return next, &ValidationError{Field: "vacancy_text", Message: "please paste the vacancy text"}
		}
		next.complete(StepUpload)
		next.complete(StepVacancy)
		next.CurrentStep = StepGenerate
		next.IsGenerating = true
		next.ResultsReady = false
		next.LastError = ""
		next.Tasks = pipeline.NewTaskBoard()

	case TaskChanged:
		next.Tasks = next.Tasks.With(ev.Task, ev.Status)

	case GenerationSucceeded:
		next.IsGenerating = false
		next.ResultsReady = true
		next.LastError = ""
		next.complete(StepGenerate)

	case GenerationFailed:
		next.IsGenerating = false
		next.LastError = ev.Message

	case AnalysisRequested:
		if s.IsAnalyzing {
			return s, ErrBusy
		}
		if !s.IsCompleted(StepGenerate) && s.AnalysisReport == nil {
			return s, &ValidationError{Field: "step", Message: "generate the application documents before analyzing"}
		}
		next.CurrentStep = StepAnalyze
		next.LastError = ""
		// a cached report is shown as is
		next.IsAnalyzing = s.AnalysisReport == nil

	case AnalysisSucceeded:
		report := ev.Report
		next.IsAnalyzing = false
		next.AnalysisReport = &report
		next.complete(StepAnalyze)

	case AnalysisFailed:
		next.IsAnalyzing = false
		next.LastError = ev.Message

	case SettingsLoaded:
		next.Settings = make(map[string]string, len(ev.Settings))
		for k, v := range ev.Settings {
			next.Settings[k] = v
		}

	case Reset:
		fresh := NewState()
		fresh.Settings = next.Settings
		return fresh, nil

	default:
		return s, fmt.Errorf("unknown wizard event %T", e)
	}

	return next, nil
}

func navigate(s, next State, to Step) (State, error) {
	if !to.Valid() {
		return s, &ValidationError{Field: "step", Message: fmt.Sprintf("invalid step %d", int(to))}
	}
	if to == s.CurrentStep {
		return s, nil
	}

	switch {
	case to < s.CurrentStep, s.IsCompleted(to):
	case s.CurrentStep == StepUpload && to == StepVacancy:
		if len(s.UploadedFiles) == 0 {
			return s, &ValidationError{Field: "files", Message: "please upload at least one candidate file"}
		}
		next.complete(StepUpload)
	default:
		return s, &ValidationError{Field: "step", Message: fmt.Sprintf("step %s is not reachable yet", to)}
	}

	next.CurrentStep = to
	if to == StepVacancy {
		// recovers from a generation abandoned by going back
		next.IsGenerating = false
	}
	return next, nil
}
