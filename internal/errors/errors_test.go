package errors_test

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/aicred/internal/errors"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Connection timeout")
	assert.Contains(t, errMsg, "Check network connectivity")
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "scan.max_file_size",
		Value:      -1,
		Message:    "must be positive",
		Suggestion: "Use a byte count such as 1048576",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "scan.max_file_size")
	assert.Contains(t, errMsg, "-1")
	assert.Contains(t, errMsg, "must be positive")
	assert.Contains(t, errMsg, "1048576")
}

// TestScanErrorKinds validates sentinel matching for every kind
func TestScanErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     errors.Kind
		text     string
	}{
		{"config", errors.NewConfigError("resolve-root", fmt.Errorf("no home")), errors.ErrConfig, errors.KindConfig, "ConfigError"},
		{"not found", errors.NewNotFound("/nope", fs.ErrNotExist), errors.ErrNotFound, errors.KindNotFound, "NotFound"},
		{"io", errors.NewIOError("dotenv", "/h/.env", fs.ErrPermission), errors.ErrIO, errors.KindIO, "IoError"},
		{"parse", errors.NewParseError("ragit", "/h/c.json", "bad json at %d", 3), errors.ErrParse, errors.KindParse, "bad json at 3"},
		{"validation", errors.NewValidationError("openai", fmt.Errorf("empty")), errors.ErrValidation, errors.KindValidation, "ValidationError"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, stderrors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.kind, errors.KindOf(tt.err))
			assert.Contains(t, tt.err.Error(), tt.text)

			wrapped := fmt.Errorf("scan: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestScanErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := errors.NewIOError("dotenv", "/h/.env", fs.ErrPermission)
	assert.True(t, stderrors.Is(err, fs.ErrPermission))
	assert.False(t, stderrors.Is(err, errors.ErrParse))
	assert.Equal(t, errors.Kind(0), errors.KindOf(fmt.Errorf("plain")))
}

// TestIsRetryable validates retryable error detection
func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", fmt.Errorf("i/o timeout"), true},
		{"rate limited", fmt.Errorf("unexpected status 429"), true},
		{"unauthorized", fmt.Errorf("unexpected status 401"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.IsRetryable(tt.err))
		})
	}
}

func TestProbeErrorSuggestions(t *testing.T) {
	t.Parallel()

	err := errors.ProbeError("ollama", fmt.Errorf("dial tcp: connection refused"))
	var userErr errors.UserError
	require.True(t, stderrors.As(err, &userErr))
	assert.Contains(t, userErr.Suggestion, "ollama serve")

	err = errors.ProbeError("openai", fmt.Errorf("unexpected status 401 Unauthorized"))
	assert.Contains(t, err.Error(), "rejected")
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.SimplifyError(nil))

	simplified := errors.SimplifyError(errors.NewNotFound("/missing", fs.ErrNotExist))
	assert.Contains(t, simplified.Error(), "--home")
	assert.True(t, stderrors.Is(simplified, errors.ErrNotFound))

	plain := fmt.Errorf("open x: permission denied")
	assert.Contains(t, errors.SimplifyError(plain).Error(), "Permission denied")
}
