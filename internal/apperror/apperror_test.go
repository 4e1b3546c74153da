package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("title", "is required"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("Invalid credentials", nil), http.StatusUnauthorized},
		{"forbidden", Forbidden("Not authorized to access this task"), http.StatusForbidden},
		{"not found", NotFound("Task not found"), http.StatusNotFound},
		{"conflict", Conflict("User already exists"), http.StatusConflict},
		{"storage", Storage("write data file", errors.New("disk full")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("get task: %w", NotFound("Task not found")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("update: %w", NotFound("Task not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))

	cause := errors.New("permission denied")
	storageErr := Storage("write data file", cause)
	assert.True(t, errors.Is(storageErr, ErrStorage))
	assert.True(t, errors.Is(storageErr, cause))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := Storage("write data file", errors.New("open /var/lib/data.json: permission denied"))
	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.Equal(t, "title: is required", PublicMessage(Validation("title", "is required")))
	assert.Equal(t, "Task not found", PublicMessage(NotFound("Task not found")))
}
