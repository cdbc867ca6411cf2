package workspace

import "fmt"

// NotFoundError indicates a file expected inside the workspace does not exist
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// PathError indicates a path that cannot be used inside the workspace
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid workspace path %s: %s", e.Path, e.Message)
}

// StoreError represents a failure copying or writing an upload
type StoreError struct {
	Source string
	Cause  error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to store %s: %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("failed to store %s", e.Source)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
