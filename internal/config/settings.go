package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// SettingsFileName is the settings file kept in the workspace root
const SettingsFileName = ".env"

// Known settings keys read by the external scripts
const (
	KeyGoogleAPIKey = "GOOGLE_API_KEY"
	KeyOpenAIAPIKey = "OPENAI_API_KEY"
	KeyDefaultModel = "DEFAULT_MODEL"
)

// DefaultModel is shown when no model has been chosen yet
const DefaultModel = "gemini-2.5-flash"

var (
	// assignmentLine matches the key part of a key=value line
	assignmentLine = regexp.MustCompile(`^([^#=]+)=`)
	validKey       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// ValidationError indicates a settings update that cannot be written
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid setting %q: %s", e.Key, e.Message)
}

// SettingsStore reads and merges the flat key=value settings file
type SettingsStore struct {
	userPath    string
	defaultPath string
}

// NewSettingsStore creates a store writing to userPath and falling back to
// defaultPath (may be empty) when no user file exists yet.
func NewSettingsStore(userPath, defaultPath string) *SettingsStore {
	return &SettingsStore{userPath: userPath, defaultPath: defaultPath}
}

// Path returns the user settings file location
func (s *SettingsStore) Path() string {
	return s.userPath
}

// Load returns the entries of the first existing settings file, or an empty map.
// Comments, blank lines, malformed lines and empty values are skipped.
func (s *SettingsStore) Load() (map[string]string, error) {
	content, found, err := s.readCurrent()
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]string{}, nil
	}
	return parseSettings(content), nil
}

// Save merges updates into the current file textually: lines whose key is
// updated are rewritten, missing keys are appended in sorted order and every
// other line is kept as is.
func (s *SettingsStore) Save(updates map[string]string) error {
	for key, value := range updates {
		if err := validateEntry(key, value); err != nil {
			return err
		}
	}

	content, _, err := s.readCurrent()
	if err != nil {
		return err
	}

	merged := MergeSettings(content, updates)
	if err := os.WriteFile(s.userPath, []byte(merged), 0600); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", s.userPath, err)
	}
	return nil
}

// MergeSettings applies updates to settings file content
func MergeSettings(content string, updates map[string]string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+len(updates))
	seen := make(map[string]bool, len(updates))

	for _, line := range lines {
		match := assignmentLine.FindStringSubmatch(line)
		if match == nil {
			out = append(out, line)
			continue
		}
		key := strings.TrimSpace(match[1])
		value, ok := updates[key]
		if !ok {
			out = append(out, line)
			continue
		}
		out = append(out, key+"="+value)
		seen[key] = true
	}

	keys := make([]string, 0, len(updates))
	for key := range updates {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, key+"="+updates[key])
	}

	return strings.Join(out, "\n")
}

func (s *SettingsStore) readCurrent() (string, bool, error) {
	for _, path := range []string{s.userPath, s.defaultPath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}
	return "", false, nil
}

// parseSettings decodes each assignment line on its own so that one bad line
// never hides the others.
func parseSettings(content string) map[string]string {
	settings := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, "=") {
			continue
		}
		entry, err := godotenv.Unmarshal(trimmed)
		if err != nil {
			continue
		}
		for key, value := range entry {
			if key == "" || value == "" {
				continue
			}
			settings[key] = value
		}
	}
	return settings
}

func validateEntry(key, value string) error {
	if !validKey.MatchString(key) {
		return &ValidationError{Key: key, Message: "key must be a letter or underscore followed by letters, digits, '_' or '.'"}
	}
	if strings.ContainsAny(value, "\r\n") {
		return &ValidationError{Key: key, Message: "value must be a single line"}
	}
	return nil
}
