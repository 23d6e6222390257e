// Package plugin defines the two plugin contracts of the aicred discovery
// engine and the ordered registries that hold them.
//
// # Scanners and Validators
//
// A Scanner knows where one application stores its configuration. It lists
// candidate paths under a scan root, parses the files it owns and returns the
// candidate strings it found, optionally tagged with a provider.
//
// A Validator knows what one provider's credentials look like. It scores a
// candidate string in [0,1]. Scores are bucketed into confidence levels by
// credential.ConfidenceFromScore.
//
// The orchestrator combines them: candidates a scanner did not tag are scored
// by every validator that can handle the source file, and the highest score
// wins. Ties go to the validator registered first.
//
// # Implementing a Custom Validator
//
//	type acmeValidator struct{}
//
//	func (acmeValidator) Name() string             { return "acme" }
//	func (acmeValidator) ProviderID() string       { return "acme" }
//	func (acmeValidator) CanHandle(string) bool    { return true }
//	func (acmeValidator) ConfidenceScore(s string) float64 {
//	    if strings.HasPrefix(s, "acme_") {
//	        return 0.95
//	    }
//	    return 0.3
//	}
//
//	reg := validators.NewRegistry()
//	if err := reg.Register(acmeValidator{}); err != nil {
//	    return err
//	}
//
// # Threading and Concurrency
//
// Validators must be stateless and pure. Scanners must not share mutable
// state; the orchestrator runs them concurrently. Registries are not
// synchronized: populate them before a scan and do not mutate them while one
// is running.
package plugin

import (
	"github.com/systmms/aicred/pkg/credential"
)

// Validator scores candidate strings for one provider.
type Validator interface {
	// Name is the unique registry key, e.g. "openai".
	Name() string

	// ProviderID is the canonical provider identifier written to reports.
	ProviderID() string

	// ConfidenceScore returns a score in [0,1]. It must be pure and must
	// never score a specific prefix match below a generic fallback match.
	ConfidenceScore(candidate string) float64

	// CanHandle narrows which files are worth scoring with this validator.
	CanHandle(path string) bool
}

// UntaggedScorer is an optional Validator extension. When present, its score
// replaces ConfidenceScore for values no scanner tied to a provider.
type UntaggedScorer interface {
	UntaggedScore(candidate string) float64
}

// Scanner locates and parses one application's configuration.
type Scanner interface {
	// Name is the unique registry key, e.g. "roo-code".
	Name() string

	// AppName is the human readable application name.
	AppName() string

	// CandidatePaths returns existing files or directories under root that
	// this scanner owns. Directories are walked by the orchestrator.
	CandidatePaths(root string) []string

	// Parse extracts candidates from one file. It must not panic on
	// malformed input and reports such input as a parse error.
	Parse(path string, contents []byte) (*ParsedConfig, error)

	// CanHandle reports whether a file is worth reading.
	CanHandle(path string) bool
}

// Candidate is a raw string that might be a credential.
type Candidate struct {
	Value string

	// Provider is set when the scanner knows which provider owns the value.
	Provider string

	// Confidence, when non-nil, overrides validator scoring for a tagged candidate.
	Confidence *credential.Confidence

	ValueType credential.ValueType

	// Field is the config key or variable name the value came from.
	Field string

	Line   int
	Column int
}

// ParsedConfig is the uncaptured form of a credential.ConfigInstance: the
// scanner has located the values but the orchestrator decides whether the raw
// values are retained.
type ParsedConfig struct {
	InstanceID  string
	AppName     string
	ConfigPath  string
	Environment credential.Environment
	Candidates  []Candidate
	Metadata    map[string]string
}

// Empty reports whether the parse produced nothing worth reporting.
func (p *ParsedConfig) Empty() bool {
	return p == nil || (len(p.Candidates) == 0 && len(p.Metadata) == 0)
}

// ConfidencePtr is a helper for setting Candidate.Confidence.
func ConfidencePtr(c credential.Confidence) *credential.Confidence {
	return &c
}
