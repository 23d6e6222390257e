package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/aicred/internal/logging"
)

// TestLogger captures log output for validation in tests.
//
// It wraps a real logging.Logger whose output goes to an in-memory buffer,
// so code under test logs exactly as it does in production while tests
// verify that credential values never reach the log.
//
// Example usage:
//
//	logger := NewTestLogger(t)
//	orch := discovery.New(validators, scanners, discovery.WithLogger(logger.Logger()))
//
//	output := logger.GetOutput()
//	logger.AssertNotContains(t, "sk-test1234567890")
type TestLogger struct {
	buffer *bytes.Buffer
	logger *logging.Logger
	mu     sync.Mutex
}

// NewTestLogger creates a new TestLogger with default settings.
//
// Debug mode is disabled by default. Use NewTestLoggerWithDebug
// if you need to capture debug messages.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()

	return NewTestLoggerWithDebug(t, false)
}

// NewTestLoggerWithDebug creates a new TestLogger with debug mode enabled.
//
// When debug is true, Debug() method calls will be captured in the buffer.
func NewTestLoggerWithDebug(t *testing.T, debug bool) *TestLogger {
	t.Helper()

	l := &TestLogger{buffer: &bytes.Buffer{}}
	l.logger = logging.NewWithWriter(lockedWriter{l}, debug, true)
	return l
}

// Logger returns the logging.Logger to hand to code under test.
func (l *TestLogger) Logger() *logging.Logger {
	return l.logger
}

type lockedWriter struct{ l *TestLogger }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()

	return w.l.buffer.Write(p)
}

// Capture executes a function and captures its log output.
//
// This is useful for testing functions that log internally.
//
// Example:
//
//	output := logger.Capture(func() {
//	    someFunction()
//	})
func (l *TestLogger) Capture(fn func()) string {
	l.Clear() // Start with clean buffer
	fn()
	return l.GetOutput()
}

// GetOutput returns the captured log output as a string.
//
// The output includes all log messages captured since the logger
// was created or since the last Clear() call.
func (l *TestLogger) GetOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buffer.String()
}

// Clear clears the captured log output.
//
// This is useful when reusing the same logger across multiple test cases.
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer.Reset()
}

// AssertContains asserts that the log output contains the specified substring.
//
// This is a convenience wrapper around testify's Contains assertion.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()

	output := l.GetOutput()
	assert.Contains(t, output, substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does NOT contain the specified substring.
//
// This is particularly useful for verifying that secrets are redacted.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()

	output := l.GetOutput()
	assert.NotContains(t, output, substr, "Expected log output to NOT contain %q", substr)
}

// AssertRedacted asserts that a secret value is redacted in the log output.
//
// This checks that:
// 1. The secret value itself does NOT appear in logs
// 2. The [REDACTED] marker DOES appear in logs
//
// This is the primary assertion for security tests.
func (l *TestLogger) AssertRedacted(t *testing.T, secretValue string) {
	t.Helper()

	output := l.GetOutput()

	// Secret value must not appear
	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in logs", secretValue)

	// [REDACTED] marker should appear
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker in logs when secret is used")
}

// AssertLogCount asserts that a specific log level appears a certain number of times.
//
// Level markers:
//   - Info: "✓"
//   - Warn: "⚠"
//   - Error: "✗"
//   - Debug: "[DEBUG]"
func (l *TestLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	output := l.GetOutput()

	var marker string
	switch level {
	case "info":
		marker = "✓"
	case "warn":
		marker = "⚠"
	case "error":
		marker = "✗"
	case "debug":
		marker = "[DEBUG]"
	default:
		t.Fatalf("Unknown log level: %s", level)
	}

	actual := strings.Count(output, marker)
	assert.Equal(t, count, actual,
		"Expected %d %s log messages, got %d", count, level, actual)
}

// AssertEmpty asserts that no log output was captured.
//
// Useful for verifying that quiet operations produce no logs.
func (l *TestLogger) AssertEmpty(t *testing.T) {
	t.Helper()

	output := l.GetOutput()
	assert.Empty(t, output, "Expected no log output, but got:\n%s", output)
}

// Lines returns the log output split into individual lines.
//
// Empty lines are filtered out. Useful for line-by-line validation.
func (l *TestLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	output := l.buffer.String()
	lines := strings.Split(output, "\n")

	// Filter empty lines
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}

	return result
}
