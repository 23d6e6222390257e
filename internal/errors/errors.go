package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a problem in the aicred configuration file or flags
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProbeError enhances model-probe failures with provider specific hints
func ProbeError(provider string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s model probe failed", provider),
		Suggestion: getProbeSuggestion(provider, err),
		Err:        err,
	}
}

// getProbeSuggestion returns helpful suggestions based on provider and error
func getProbeSuggestion(provider string, err error) string {
	errStr := err.Error()

	switch provider {
	case "ollama":
		if strings.Contains(errStr, "connection refused") {
			return "Start the Ollama daemon with 'ollama serve' or set probe.base_urls.ollama"
		}
	case "aws_bedrock":
		if strings.Contains(errStr, "InvalidClientTokenId") || strings.Contains(errStr, "SignatureDoesNotMatch") {
			return "The discovered access key pair is not accepted by AWS STS"
		}
	}

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "Unauthorized") {
		return "The key was rejected; it may be revoked or belong to another provider"
	}
	if strings.Contains(errStr, "403") {
		return "The key is valid but not allowed to list models"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Raise --probe-timeout or check your network"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and the provider base URL"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
		"status 429",
		"status 502",
		"status 503",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		switch scanErr.Kind {
		case KindNotFound:
			return UserError{
				Message:    scanErr.Error(),
				Suggestion: "Pass an existing directory with --home",
				Err:        err,
			}
		case KindConfig:
			return UserError{
				Message:    scanErr.Error(),
				Suggestion: "Set HOME or pass --home explicitly",
				Err:        err,
			}
		case KindIO:
			return UserError{
				Message:    scanErr.Error(),
				Suggestion: "Check directory permissions or run with appropriate privileges",
				Err:        err,
			}
		}
		return err
	}

	errStr := err.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
