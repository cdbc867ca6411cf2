package runner

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
)

// SystemInterpreters are probed in order when no isolated interpreter exists
var SystemInterpreters = []string{
	"/opt/homebrew/bin/python3",
	"/usr/local/bin/python3",
	"/usr/bin/python3",
}

// ResolveInterpreter picks the interpreter used for every script:
// the explicit override, then the project-local venv, then well-known system
// locations, then the bare command name.
func ResolveInterpreter(override, venvDir string) string {
	return resolveInterpreter(override, venvDir, runtime.GOOS, fileExists)
}

func resolveInterpreter(override, venvDir, goos string, exists func(string) bool) string {
	if override != "" {
		return override
	}

	if venvDir != "" {
		venvPython := filepath.Join(venvDir, "bin", "python3")
		if goos == "windows" {
			venvPython = filepath.Join(venvDir, "Scripts", "python.exe")
		}
		if exists(venvPython) {
			log.Printf("[RUNNER] Using venv interpreter: %s", venvPython)
			return venvPython
		}
	}

	log.Printf("[RUNNER] Venv not found, searching for system interpreter...")
	if goos == "windows" {
		return "python"
	}
	for _, candidate := range SystemInterpreters {
		if exists(candidate) {
			return candidate
		}
	}
	return "python3"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
