//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigateRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		step    int
		wantErr bool
	}{
		{"first step", 1, false},
		{"last step", 4, false},
		{"zero", 0, true},
		{"too far", 5, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&NavigateRequest{Step: tt.step}).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUploadRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request UploadRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "candidate files",
			request: UploadRequest{Category: "candidate", Paths: []string{"/tmp/cv.pdf"}},
		},
		{
			name:    "vacancy text",
			request: UploadRequest{Category: "vacancy", Text: "Go engineer"},
		},
		{
			name:    "unknown category",
			request: UploadRequest{Category: "photos", Paths: []string{"/tmp/a.png"}},
			wantErr: true,
			errMsg:  "oneof",
		},
		{
			name:    "nothing to store",
			request: UploadRequest{Category: "candidate"},
			wantErr: true,
			errMsg:  "required_without",
		},
		{
			name:    "empty path entry",
			request: UploadRequest{Category: "candidate", Paths: []string{""}},
			wantErr: true,
			errMsg:  "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErrs validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOpenRequest_Validation(t *testing.T) {
	assert.NoError(t, (&OpenRequest{Path: "output/Tailored_Resume.docx"}).Validate())
	assert.Error(t, (&OpenRequest{Reveal: true}).Validate())
}

func TestSettingsUpdateRequest_Validation(t *testing.T) {
	assert.NoError(t, (&SettingsUpdateRequest{Settings: map[string]string{"DEFAULT_MODEL": "gpt-4o"}}).Validate())
	assert.Error(t, (&SettingsUpdateRequest{}).Validate())
	assert.Error(t, (&SettingsUpdateRequest{Settings: map[string]string{}}).Validate())
}

func TestGenerateRequest_JSON(t *testing.T) {
	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"vacancy_text":"Staff engineer"}`), &req))
	assert.Equal(t, "Staff engineer", req.VacancyText)
}
