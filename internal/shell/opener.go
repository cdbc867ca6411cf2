// Package shell hands workspace files to the desktop environment.
package shell

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Resolver maps a workspace-relative path to an absolute one
type Resolver interface {
	Resolve(relativePath string) (string, error)
}

// Opener launches the platform file handler for workspace paths
type Opener struct {
	resolver Resolver
	goos     string
	run      func(name string, args ...string) error
}

// NewOpener creates an Opener for the current platform
func NewOpener(resolver Resolver) *Opener {
	return &Opener{
		resolver: resolver,
		goos:     runtime.GOOS,
		run:      startDetached,
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Open opens a workspace file with its default application
func (o *Opener) Open(path string) error {
	abs, err := o.target(path)
	if err != nil {
		return err
	}
	name, args := openCommand(o.goos, abs)
	log.Printf("[SHELL] Opening %s", abs)
	if err := o.run(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", abs, err)
	}
	return nil
}

// Reveal shows a workspace file in the platform file manager
func (o *Opener) Reveal(path string) error {
	abs, err := o.target(path)
	if err != nil {
		return err
	}
	name, args := revealCommand(o.goos, abs)
	log.Printf("[SHELL] Revealing %s", abs)
	if err := o.run(name, args...); err != nil {
		return fmt.Errorf("failed to reveal %s: %w", abs, err)
	}
	return nil
}

func (o *Opener) target(path string) (string, error) {
	abs, err := o.resolver.Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	return abs, nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}

func revealCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{"-R", path}
	case "windows":
		return "explorer", []string{"/select," + path}
	default:
		// xdg-open has no select mode
		return "xdg-open", []string{filepath.Dir(path)}
	}
}
