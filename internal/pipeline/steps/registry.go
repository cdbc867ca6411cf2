// Package steps provides stage definitions and dependency validation for the
// application pipeline.
package steps

import (
	"fmt"
	"sort"

	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/runner"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	Name         string
	Script       runner.ScriptID
	Category     string
	Task         pipeline.Task
	Completes    []pipeline.Task
	Dependencies []string
}

// Stage names
const (
	IngestCandidate     = "ingest_candidate"
	IngestVacancy       = "ingest_vacancy"
	GenerateApplication = "generate_application"
	AnalyzeMatch        = "analyze_match"
)

// StageRegistry holds all stage definitions
var StageRegistry = map[string]StageDefinition{
	IngestCandidate: {
		Name:         IngestCandidate,
		Script:       runner.ScriptIngestCandidate,
		Category:     pipeline.CategoryIngestion,
		Task:         pipeline.TaskCandidate,
		Dependencies: []string{},
	},
	IngestVacancy: {
		Name:         IngestVacancy,
		Script:       runner.ScriptIngestVacancy,
		Category:     pipeline.CategoryIngestion,
		Task:         pipeline.TaskVacancy,
		Dependencies: []string{},
	},
	GenerateApplication: {
		Name:         GenerateApplication,
		Script:       runner.ScriptGenerateApplication,
		Category:     pipeline.CategoryGeneration,
		Task:         pipeline.TaskLogic,
		Completes:    []pipeline.Task{pipeline.TaskLogic, pipeline.TaskResume, pipeline.TaskCoverLetter},
		Dependencies: []string{IngestCandidate, IngestVacancy},
	},
	AnalyzeMatch: {
		Name:         AnalyzeMatch,
		Script:       runner.ScriptAnalyzeMatch,
		Category:     pipeline.CategoryAnalysis,
		Dependencies: []string{IngestCandidate, IngestVacancy},
	},
}

// GenerateSequence is the fixed order of the generate pipeline
var GenerateSequence = []string{IngestCandidate, IngestVacancy, GenerateApplication}

// Lookup returns the definition of a stage
func Lookup(name string) (StageDefinition, error) {
	def, ok := StageRegistry[name]
	if !ok {
		return StageDefinition{}, fmt.Errorf("unknown stage: %s", name)
	}
	return def, nil
}

// Names returns every stage name sorted
func Names() []string {
	names := make([]string, 0, len(StageRegistry))
	for name := range StageRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stage builds an executable stage, attaching an optional pre-run hook
func (d StageDefinition) Stage(before pipeline.Hook) pipeline.Stage {
	return pipeline.Stage{
		Name:      d.Name,
		Script:    d.Script,
		Category:  d.Category,
		Task:      d.Task,
		Completes: d.Completes,
		Before:    before,
	}
}

// Build returns the executable stages for names, in the given order.
// hooks maps stage names to pre-run hooks.
func Build(names []string, hooks map[string]pipeline.Hook) ([]pipeline.Stage, error) {
	stages := make([]pipeline.Stage, 0, len(names))
	for _, name := range names {
		def, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, def.Stage(hooks[name]))
	}
	return stages, nil
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: missing dependencies: %v", e.Stage, e.MissingDependencies)
}

// ValidateDependencies checks that every required stage has completed.
// completed reports whether a stage finished successfully.
func ValidateDependencies(stageName string, completed func(string) bool) error {
	def, ok := StageRegistry[stageName]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stageName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed(dep) {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Stage:               stageName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// GetAvailableStages returns stages that are not yet completed and whose
// dependencies are met, sorted by name
func GetAvailableStages(completed func(string) bool) []string {
	var available []string
	for _, name := range Names() {
		if completed(name) {
			continue
		}
		if err := ValidateDependencies(name, completed); err != nil {
			continue
		}
		available = append(available, name)
	}
	return available
}

// GetBlockedStages returns stages whose dependencies are not met, sorted by name
func GetBlockedStages(completed func(string) bool) []string {
	var blocked []string
	for _, name := range Names() {
		if completed(name) {
			continue
		}
		if err := ValidateDependencies(name, completed); err != nil {
			blocked = append(blocked, name)
		}
	}
	return blocked
}
