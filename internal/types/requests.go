// Package types provides the request and response bodies of the local wizard API.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NavigateRequest moves the wizard to another step.
type NavigateRequest struct {
	Step int `json:"step" validate:"required,min=1,max=4"`
}

// UploadRequest stores files, or raw vacancy text, in the workspace.
type UploadRequest struct {
	Category string   `json:"category" validate:"required,oneof=candidate vacancy"`
	Paths    []string `json:"paths,omitempty" validate:"required_without=Text,omitempty,dive,required"`
	Text     string   `json:"text,omitempty" validate:"required_without=Paths"`
}

// GenerateRequest starts the generation pipeline. An empty VacancyText keeps
// the text already held by the wizard.
type GenerateRequest struct {
	VacancyText string `json:"vacancy_text"`
}

// StageRequest runs a single stage.
type StageRequest struct {
	Force bool `json:"force"`
}

// OpenRequest opens or reveals a workspace file on the desktop.
type OpenRequest struct {
	Path   string `json:"path" validate:"required"`
	Reveal bool   `json:"reveal"`
}

// SettingsUpdateRequest merges keys into the settings file.
type SettingsUpdateRequest struct {
	Settings map[string]string `json:"settings" validate:"required,min=1"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// VersionResponse reports the running build.
type VersionResponse struct {
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// Validate validates the NavigateRequest using the validator.
func (r *NavigateRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the UploadRequest using the validator.
func (r *UploadRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the OpenRequest using the validator.
func (r *OpenRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the SettingsUpdateRequest using the validator.
func (r *SettingsUpdateRequest) Validate() error {
	return validate.Struct(r)
}
