// Package workspace manages the on-disk tree holding uploaded sources,
// processed data and generated outputs.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user storage directory in installed mode
const AppName = "resume-wizard"

// Sentinel is the placeholder kept in every directory across clears
const Sentinel = ".gitkeep"

// JobDescriptionFile is the name given to pasted vacancy text
const JobDescriptionFile = "job_description.txt"

// Directories relative to the workspace root
const (
	DirCandidate = "sources/candidate"
	DirVacancy   = "sources/vacancy"
	DirProcessed = "data/processed"
	DirOutput    = "output"
)

// Well-known generated files relative to the workspace root
const (
	AnalysisReportPath = "data/processed/analysis_report.md"
	ResumePath         = "output/Tailored_Resume.docx"
	CoverLetterPath    = "output/Tailored_CoverLetter.docx"
)

// Category selects the upload directory
type Category string

const (
	CategoryCandidate Category = "candidate"
	CategoryVacancy   Category = "vacancy"
)

// Dir returns the directory for the category relative to the root
func (c Category) Dir() (string, error) {
	switch c {
	case CategoryCandidate:
		return DirCandidate, nil
	case CategoryVacancy:
		return DirVacancy, nil
	default:
		return "", fmt.Errorf("unknown upload category: %q", c)
	}
}

// Directories lists every managed directory in creation order
func Directories() []string {
	return []string{DirCandidate, DirVacancy, DirProcessed, DirOutput}
}

// UploadedFile describes a file stored in the workspace
type UploadedFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size"`
}

// DeleteOutcome is the result of removing one file during Clear
type DeleteOutcome struct {
	Path    string `json:"path"`
	Removed bool   `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// ClearReport collects per-file outcomes of a best-effort clear
type ClearReport struct {
	Outcomes []DeleteOutcome `json:"outcomes"`
}

// Failed returns the outcomes that could not be removed
func (r ClearReport) Failed() []DeleteOutcome {
	var failed []DeleteOutcome
	for _, o := range r.Outcomes {
		if !o.Removed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Removed counts the deleted files
func (r ClearReport) Removed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Removed {
			n++
		}
	}
	return n
}

// Manager owns the workspace directory tree
type Manager struct {
	root   string
	remove func(string) error
}

// NewManager creates a manager rooted at root
func NewManager(root string) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Manager{
		root:   filepath.Clean(root),
		remove: os.Remove,
	}
}

// ResolveRoot picks the workspace root: the per-user config directory when
// the app is installed, devDir otherwise.
func ResolveRoot(packaged bool, devDir string) (string, error) {
	if !packaged {
		if devDir == "" {
			return os.Getwd()
		}
		return filepath.Abs(devDir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Root returns the absolute workspace root
func (m *Manager) Root() string {
	return m.root
}

// EnsureDirectories creates the managed directories if absent
func (m *Manager) EnsureDirectories() error {
	for _, dir := range Directories() {
		full := filepath.Join(m.root, filepath.FromSlash(dir))
		if _, err := os.Stat(full); err == nil {
			continue
		}
		if err := os.MkdirAll(full, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", full, err)
		}
		log.Printf("[WORKSPACE] Created directory: %s", full)
	}
	return nil
}

// Clear deletes every file in the managed directories except the sentinel.
// Failures are recorded per file and do not stop the clear.
func (m *Manager) Clear() ClearReport {
	report := ClearReport{Outcomes: []DeleteOutcome{}}
	for _, dir := range Directories() {
		full := filepath.Join(m.root, filepath.FromSlash(dir))
		entries, err := os.ReadDir(full)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Printf("[WORKSPACE] Failed to read %s: %v", full, err)
				report.Outcomes = append(report.Outcomes, DeleteOutcome{Path: full, Error: err.Error()})
			}
			continue
		}
		for _, entry := range entries {
			if entry.Name() == Sentinel {
				continue
			}
			path := filepath.Join(full, entry.Name())
			outcome := DeleteOutcome{Path: path}
			if err := m.remove(path); err != nil {
				log.Printf("[WORKSPACE] Failed to delete %s: %v", entry.Name(), err)
				outcome.Error = err.Error()
			} else {
				outcome.Removed = true
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	return report
}

// Store copies external files into the category directory under their base names
func (m *Manager) Store(category Category, paths []string) ([]UploadedFile, error) {
	dir, err := category.Dir()
	if err != nil {
		return nil, err
	}
	targetDir := filepath.Join(m.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	stored := make([]UploadedFile, 0, len(paths))
	for _, src := range paths {
		if strings.TrimSpace(src) == "" {
			continue
		}
		log.Printf("[WORKSPACE] Copying %s to %s", src, targetDir)
		file, err := copyInto(src, targetDir)
		if err != nil {
			return stored, &StoreError{Source: src, Cause: err}
		}
		stored = append(stored, file)
	}
	return stored, nil
}

// StoreText writes pasted text to the fixed job description file
func (m *Manager) StoreText(category Category, text string) (UploadedFile, error) {
	dir, err := category.Dir()
	if err != nil {
		return UploadedFile{}, err
	}
	targetDir := filepath.Join(m.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return UploadedFile{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(targetDir, JobDescriptionFile)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return UploadedFile{}, &StoreError{Source: JobDescriptionFile, Cause: err}
	}
	log.Printf("[WORKSPACE] Saved raw text content to %s", path)
	return UploadedFile{Name: JobDescriptionFile, Path: path, SizeBytes: int64(len(text))}, nil
}

// List returns the files currently stored for a category, sentinel excluded
func (m *Manager) List(category Category) ([]UploadedFile, error) {
	dir, err := category.Dir()
	if err != nil {
		return nil, err
	}
	full := filepath.Join(m.root, filepath.FromSlash(dir))
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []UploadedFile{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", full, err)
	}

	files := make([]UploadedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == Sentinel {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, UploadedFile{
			Name:      entry.Name(),
			Path:      filepath.Join(full, entry.Name()),
			SizeBytes: info.Size(),
		})
	}
	return files, nil
}

// Remove deletes a single file inside the workspace
func (m *Manager) Remove(path string) error {
	abs, err := m.contain(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Path: path}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := m.remove(abs); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Resolve turns a root-relative path into an absolute path inside the workspace
func (m *Manager) Resolve(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return m.contain(relativePath)
	}
	return m.contain(filepath.Join(m.root, filepath.FromSlash(relativePath)))
}

// ReadOutput returns the content of a root-relative file
func (m *Manager) ReadOutput(relativePath string) ([]byte, error) {
	abs, err := m.Resolve(relativePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: relativePath}
		}
		return nil, fmt.Errorf("failed to read %s: %w", relativePath, err)
	}
	return data, nil
}

// contain rejects paths that resolve outside the root
func (m *Manager) contain(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: path, Message: "outside workspace root"}
	}
	return abs, nil
}

// copyInto copies src under its base name. A source that already is the
// target file is left untouched.
func copyInto(src, targetDir string) (UploadedFile, error) {
	in, err := os.Open(src)
	if err != nil {
		return UploadedFile{}, err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return UploadedFile{}, err
	}

	name := filepath.Base(src)
	target := filepath.Join(targetDir, name)
	if targetInfo, err := os.Stat(target); err == nil && os.SameFile(srcInfo, targetInfo) {
		log.Printf("[WORKSPACE] %s is already stored, skipping copy", target)
		return UploadedFile{Name: name, Path: target, SizeBytes: targetInfo.Size()}, nil
	}

	out, err := os.Create(target)
	if err != nil {
		return UploadedFile{}, err
	}

	size, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return UploadedFile{}, err
	}
	return UploadedFile{Name: name, Path: target, SizeBytes: size}, nil
}
