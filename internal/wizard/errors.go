package wizard

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an action is started while the same action is
// still in flight
var ErrBusy = errors.New("operation already in progress")

// ValidationError indicates user input that blocks a transition
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
