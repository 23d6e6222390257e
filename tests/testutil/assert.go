package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSecretRedacted verifies that a credential value was scrubbed from
// free text such as an audit message or a log line.
//
// The value must not appear and the [REDACTED] marker must.
//
// Example usage:
//
//	msg := logging.Redact(failure.Message, []string{raw})
//	AssertSecretRedacted(t, msg, raw)
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker in output")
}

// AssertNoSecretLeak verifies that none of secrets appear in output. Unlike
// AssertSecretRedacted it does not require a marker: reports and JSON carry
// hashes and previews instead of redaction markers.
//
// Example usage:
//
//	out := render(result)
//	AssertNoSecretLeak(t, out, []string{"sk-test1234567890"})
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should not appear in output", secret)
	}
}
