// Package server provides the local HTTP API driving the resume wizard.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-wizard/internal/config"
	"github.com/jonathan/resume-wizard/internal/schemas"
	"github.com/jonathan/resume-wizard/internal/wizard"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrHistoryDisabled is returned by run history routes without a database
var ErrHistoryDisabled = errors.New("run history is not configured")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		reqErr      *ErrValidation
		wizardErr   *wizard.ValidationError
		settingsErr *config.ValidationError
		schemaErr   *schemas.ValidationError
		loadErr     *schemas.SchemaLoadError
		fieldErrs   validator.ValidationErrors
		pathErr     *workspace.PathError
		notFound    *workspace.NotFoundError
	)
	switch {
	case errors.Is(err, wizard.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &reqErr), errors.As(err, &wizardErr), errors.As(err, &settingsErr),
		errors.As(err, &schemaErr), errors.As(err, &loadErr), errors.As(err, &fieldErrs),
		errors.As(err, &pathErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
