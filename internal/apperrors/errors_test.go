package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", FieldError("score", "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", FieldError("score", "bad")), http.StatusBadRequest},
		{"authentication", ErrAuthentication, http.StatusUnauthorized},
		{"authorization", ErrAuthorization, http.StatusForbidden},
		{"not found", NotFound("recipe"), http.StatusNotFound},
		{"conflict", Conflict("already rated"), http.StatusConflict},
		{"unavailable", fmt.Errorf("images: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationErrorCollectsAllRules(t *testing.T) {
	v := NewValidationError()
	assert.NoError(t, v.OrNil())

	v.Add("password", "too short")
	v.Add("password", "entirely numeric")
	v.Add("user_type", "invalid choice")

	err := v.OrNil()
	assert.Error(t, err)
	assert.Len(t, v.Fields["password"], 2)
	assert.Equal(t, "validation failed: password: too short; entirely numeric, user_type: invalid choice", err.Error())
}

func TestConflictAndNotFoundMessages(t *testing.T) {
	assert.Equal(t, "conflict: already rated", Conflict("already rated").Error())
	assert.Equal(t, "recipe not found", NotFound("recipe").Error())
}

func TestValidationErrorMerge(t *testing.T) {
	v := FieldError("email", "invalid")
	v.Merge(FieldError("email", "taken"))
	v.Merge(nil)
	assert.Equal(t, []string{"invalid", "taken"}, v.Fields["email"])
}
