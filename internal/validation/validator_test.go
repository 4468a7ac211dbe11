package validation_test

import (
	"errors"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUpRequest struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
	Bio      string `json:"bio,omitempty" validate:"max=10"`
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()
	v := validation.New()

	tests := []struct {
		name       string
		input      signUpRequest
		wantFields map[string]string
	}{
		{
			name:  "valid",
			input: signUpRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"},
		},
		{
			name:  "short name and bad email",
			input: signUpRequest{Name: "A", Email: "nope", Password: "hunter22"},
			wantFields: map[string]string{
				"name":  "must be at least 2 characters",
				"email": "must be a valid email address",
			},
		},
		{
			name:  "missing email and long bio",
			input: signUpRequest{Name: "Ada", Password: "hunter22", Bio: "far too long here"},
			wantFields: map[string]string{
				"email": "is required",
				"bio":   "must not exceed 10 characters",
			},
		},
		{
			name:       "short password",
			input:      signUpRequest{Name: "Ada", Email: "ada@example.com", Password: "short"},
			wantFields: map[string]string{"password": "must be at least 8 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(tt.input)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Equal(t, tt.wantFields, appErr.Fields)
		})
	}
}
