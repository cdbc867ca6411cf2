// Package runner launches the external pipeline scripts and streams their
// output line by line to the log event channel.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-wizard/internal/events"
)

// ScriptID names one of the fixed external scripts
type ScriptID string

const (
	ScriptIngestCandidate     ScriptID = "ingest_candidate"
	ScriptIngestVacancy       ScriptID = "ingest_vacancy"
	ScriptGenerateApplication ScriptID = "generate_application"
	ScriptAnalyzeMatch        ScriptID = "analyze_match"
)

var scriptFiles = map[ScriptID]string{
	ScriptIngestCandidate:     "ingest_candidate.py",
	ScriptIngestVacancy:       "ingest_vacancy.py",
	ScriptGenerateApplication: "generate_application.py",
	ScriptAnalyzeMatch:        "analyze_match.py",
}

// Scripts returns every known script id in pipeline order
func Scripts() []ScriptID {
	return []ScriptID{ScriptIngestCandidate, ScriptIngestVacancy, ScriptGenerateApplication, ScriptAnalyzeMatch}
}

// ParseScriptID validates a script name
func ParseScriptID(name string) (ScriptID, error) {
	id := ScriptID(name)
	if _, ok := scriptFiles[id]; !ok {
		return "", &UnknownScriptError{ID: name}
	}
	return id, nil
}

// File returns the script file name
func (id ScriptID) File() (string, error) {
	file, ok := scriptFiles[id]
	if !ok {
		return "", &UnknownScriptError{ID: string(id)}
	}
	return file, nil
}

// Status is the outcome of one invocation
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// StderrPrefix marks forwarded stderr lines
const StderrPrefix = "STDERR: "

const maxLineBytes = 1024 * 1024

// Result is produced once per invocation
type Result struct {
	Script     string   `json:"script"`
	Status     Status   `json:"status"`
	Output     []string `json:"output"`
	Error      string   `json:"error,omitempty"`
	ExitCode   int      `json:"exit_code"`
	DurationMs int64    `json:"duration_ms"`

	Cause error `json:"-"`
}

// OK reports a clean exit
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Options configures how scripts are launched
type Options struct {
	Interpreter     string
	InterpreterArgs []string // nil means "-u"
	ScriptDir       string
	WorkDir         string
	Env             []string // appended to the process environment
	Timeout         time.Duration
	Publisher       events.Publisher
}

// Runner launches scripts. It holds no lock across calls; concurrent runs
// are independent.
type Runner struct {
	opts Options
}

// New creates a runner
func New(opts Options) *Runner {
	if opts.Interpreter == "" {
		opts.Interpreter = "python3"
	}
	if opts.InterpreterArgs == nil {
		opts.InterpreterArgs = []string{"-u"}
	}
	return &Runner{opts: opts}
}

// Interpreter returns the interpreter path in use
func (r *Runner) Interpreter() string {
	return r.opts.Interpreter
}

// Run executes the script and blocks until it exits. Every stdout and stderr
// line is forwarded to the publisher as it arrives and kept in Result.Output.
func (r *Runner) Run(ctx context.Context, id ScriptID) Result {
	file, err := id.File()
	if err != nil {
		return Result{Script: string(id), Status: StatusError, Output: []string{}, Error: err.Error(), ExitCode: -1, Cause: err}
	}
	return r.RunFile(ctx, string(id), filepath.Join(r.opts.ScriptDir, file))
}

// RunFile executes an arbitrary script path under the configured interpreter
func (r *Runner) RunFile(ctx context.Context, source, scriptPath string) Result {
	start := time.Now()
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.opts.InterpreterArgs...), scriptPath)
	cmd := exec.CommandContext(ctx, r.opts.Interpreter, args...)
	cmd.Dir = r.opts.WorkDir
	cmd.Env = append(append(os.Environ(), r.opts.Env...), "PYTHONUNBUFFERED=1")
	configureProcess(cmd)

	out := &collector{source: source, publisher: r.opts.Publisher, lines: []string{}}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return out.spawnFailure(source, r.opts.Interpreter, err, start)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return out.spawnFailure(source, r.opts.Interpreter, err, start)
	}

	log.Printf("[RUNNER] Running %s %s", r.opts.Interpreter, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return out.spawnFailure(source, r.opts.Interpreter, err, start)
	}

	// Both pipes must be drained before Wait closes them.
	var g errgroup.Group
	g.Go(func() error { return out.pump(stdout, events.StreamStdout) })
	g.Go(func() error { return out.pump(stderr, events.StreamStderr) })
	readErr := g.Wait()
	waitErr := cmd.Wait()

	result := Result{
		Script:     source,
		Output:     out.snapshot(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil && (waitErr != nil || result.ExitCode != 0) {
		return out.fail(result, &ExitError{Script: source, Code: result.ExitCode, Cause: ctxErr})
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return out.fail(result, &ExitError{Script: source, Code: result.ExitCode, Stderr: out.lastStderr(), Cause: waitErr})
		}
		return out.fail(result, &ExitError{Script: source, Code: exitErr.ExitCode(), Stderr: out.lastStderr(), Cause: waitErr})
	}
	if readErr != nil {
		log.Printf("[RUNNER] %s finished but output was truncated: %v", source, readErr)
	}

	result.Status = StatusSuccess
	log.Printf("[RUNNER] %s completed in %dms (%d lines)", source, result.DurationMs, len(result.Output))
	return result
}

// collector accumulates lines from both pipes in arrival order
type collector struct {
	source    string
	publisher events.Publisher

	mu     sync.Mutex
	lines  []string
	stderr string
}

func (c *collector) pump(pipe io.Reader, stream events.Stream) error {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		c.add(stream, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		// keep the pipe flowing so the script cannot block on a full buffer
		_, _ = io.Copy(io.Discard, pipe)
		return fmt.Errorf("failed to read %s: %w", stream, err)
	}
	return nil
}

func (c *collector) add(stream events.Stream, line string) {
	event := events.LogEvent{Source: c.source, Stream: stream, Message: line}
	if stream == events.StreamStderr {
		event.Message = StderrPrefix + line
		event.IsError = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, event.Message)
	if stream == events.StreamStderr && strings.TrimSpace(line) != "" {
		c.stderr = strings.TrimSpace(line)
	}
	if c.publisher != nil {
		c.publisher.Publish(event)
	}
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.lines...)
}

func (c *collector) lastStderr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stderr
}

func (c *collector) fail(result Result, err error) Result {
	result.Status = StatusError
	result.Error = err.Error()
	result.Cause = err
	log.Printf("[RUNNER] %s", result.Error)
	if c.publisher != nil {
		c.publisher.Publish(events.Error(c.source, result.Error))
	}
	return result
}

func (c *collector) spawnFailure(source, interpreter string, cause error, start time.Time) Result {
	result := Result{
		Script:     source,
		Output:     c.snapshot(),
		ExitCode:   -1,
		DurationMs: time.Since(start).Milliseconds(),
	}
	return c.fail(result, &SpawnError{Script: source, Interpreter: interpreter, Cause: cause})
}
