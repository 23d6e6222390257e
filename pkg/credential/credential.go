package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/systmms/aicred/internal/secure"
)

// Hash returns the lowercase hex SHA-256 digest of value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Preview renders a non-sensitive hint of value: "****" plus the last four
// characters for values longer than 8 bytes, otherwise the first two
// characters plus "****".
func Preview(value string) string {
	switch {
	case len(value) > 8:
		return "****" + value[len(value)-4:]
	case len(value) >= 2:
		return value[:2] + "****"
	default:
		return "****"
	}
}

// Location is where a credential was found. Line and Column are 1-based;
// zero means unknown.
type Location struct {
	Path   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.Path, l.Line)
	}
	return l.Path
}

// DiscoveredCredential is one candidate secret found during a scan.
//
// The raw value is unexported and only reachable through RawValue.
type DiscoveredCredential struct {
	Provider     string
	ValueType    ValueType
	Confidence   Confidence
	Source       Location
	Environment  Environment
	DiscoveredAt time.Time
	Metadata     map[string]string

	// Inferred is set when the provider came from validator scoring rather
	// than from the scanner that found the value. It is not serialized.
	Inferred bool

	hash    string
	preview string
	full    *secure.SecureBuffer
}

// FromFull captures value, sealing it in protected memory, and computes its
// hash eagerly.
func FromFull(value string) (DiscoveredCredential, error) {
	hash, preview := Hash(value), Preview(value)
	buf, err := secure.NewSecureString(value)
	if err != nil {
		return DiscoveredCredential{}, fmt.Errorf("seal credential value: %w", err)
	}
	return DiscoveredCredential{
		ValueType: ValueTypeAPIKey,
		hash:      hash,
		preview:   preview,
		full:      buf,
	}, nil
}

// FromRedactedPreview captures only a hash and preview. The returned
// credential never holds the raw value.
func FromRedactedPreview(hash, preview string) DiscoveredCredential {
	return DiscoveredCredential{
		ValueType: ValueTypeAPIKey,
		hash:      hash,
		preview:   preview,
	}
}

// Hash is the hex SHA-256 of the raw value.
func (c DiscoveredCredential) Hash() string { return c.hash }

// RedactedValue is the non-sensitive preview.
func (c DiscoveredCredential) RedactedValue() string { return c.preview }

// HasRawValue reports whether the raw value was retained at capture time.
func (c DiscoveredCredential) HasRawValue() bool {
	return c.full != nil && c.full.Size() > 0
}

// RawValue returns the raw secret if it was captured with FromFull and has not
// been released. This is the only way to reach the secret.
func (c DiscoveredCredential) RawValue() (string, bool) {
	if !c.HasRawValue() {
		return "", false
	}
	value, err := c.full.Reveal()
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// Release destroys the sealed raw value. Copies of the credential share the
// enclave, so all of them lose access.
func (c DiscoveredCredential) Release() {
	if c.full != nil {
		c.full.Destroy()
	}
}

// DedupKey identifies a distinct (secret, file) pair.
func (c DiscoveredCredential) DedupKey() string {
	return c.hash + "\x00" + c.Source.Path
}

func (c DiscoveredCredential) String() string {
	provider := c.Provider
	if provider == "" {
		provider = "unknown"
	}
	return fmt.Sprintf("%s %s (%s) %s", provider, c.preview, c.Confidence, c.Source)
}

// GoString keeps %#v from dumping internal fields.
func (c DiscoveredCredential) GoString() string {
	return fmt.Sprintf("credential.DiscoveredCredential{Provider:%q, Hash:%q, Preview:%q, Confidence:%s, Source:%q}",
		c.Provider, c.hash, c.preview, c.Confidence, c.Source.String())
}

// Format routes every verb through String or GoString, so no flag or width
// combination reaches the struct fields.
func (c DiscoveredCredential) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('#'):
		_, _ = io.WriteString(f, c.GoString())
	case verb == 'q':
		_, _ = fmt.Fprintf(f, "%q", c.String())
	default:
		_, _ = io.WriteString(f, c.String())
	}
}

type credentialJSON struct {
	Provider      string            `json:"provider"`
	Source        string            `json:"source"`
	ValueType     ValueType         `json:"value_type"`
	Confidence    Confidence        `json:"confidence"`
	Hash          string            `json:"hash"`
	RedactedValue string            `json:"redacted_value"`
	Environment   EnvironmentKind   `json:"environment"`
	ProjectPath   string            `json:"project_path,omitempty"`
	DiscoveredAt  time.Time         `json:"discovered_at"`
	LineNumber    *int              `json:"line_number"`
	ColumnNumber  *int              `json:"column_number"`
	Metadata      map[string]string `json:"metadata"`
}

// MarshalJSON emits the redacted form only.
func (c DiscoveredCredential) MarshalJSON() ([]byte, error) {
	env := c.Environment.Kind
	if env == "" {
		env = EnvironmentUserConfig
	}
	wire := credentialJSON{
		Provider:      c.Provider,
		Source:        c.Source.Path,
		ValueType:     c.ValueType,
		Confidence:    c.Confidence,
		Hash:          c.hash,
		RedactedValue: c.preview,
		Environment:   env,
		ProjectPath:   c.Environment.ProjectPath,
		DiscoveredAt:  c.DiscoveredAt,
		LineNumber:    optionalInt(c.Source.Line),
		ColumnNumber:  optionalInt(c.Source.Column),
	}
	if len(c.Metadata) > 0 {
		wire.Metadata = c.Metadata
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a redacted credential from a report.
func (c *DiscoveredCredential) UnmarshalJSON(data []byte) error {
	var wire credentialJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	restored := FromRedactedPreview(wire.Hash, wire.RedactedValue)
	restored.Provider = wire.Provider
	restored.ValueType = wire.ValueType
	restored.Confidence = wire.Confidence
	restored.Source = Location{Path: wire.Source, Line: derefInt(wire.LineNumber), Column: derefInt(wire.ColumnNumber)}
	restored.Environment = Environment{Kind: wire.Environment, ProjectPath: wire.ProjectPath}
	restored.DiscoveredAt = wire.DiscoveredAt
	restored.Metadata = wire.Metadata
	*c = restored
	return nil
}

func optionalInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
