package credential

import (
	"fmt"
	"strings"
)

// Confidence is an ordered judgment of how likely a candidate is a genuine
// credential for its provider.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

// Score thresholds separating the confidence buckets.
const (
	MediumThreshold   = 0.5
	HighThreshold     = 0.7
	VeryHighThreshold = 0.9
)

// ConfidenceFromScore buckets a validator score. Scores outside [0,1] are clamped.
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score < MediumThreshold:
		return ConfidenceLow
	case score < HighThreshold:
		return ConfidenceMedium
	case score < VeryHighThreshold:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "Low"
	case ConfidenceMedium:
		return "Medium"
	case ConfidenceHigh:
		return "High"
	case ConfidenceVeryHigh:
		return "VeryHigh"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// AtLeast reports whether c is greater than or equal to min.
func (c Confidence) AtLeast(min Confidence) bool {
	return c >= min
}

// ParseConfidence accepts the canonical names case-insensitively, plus
// "very-high"/"very_high".
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)) {
	case "low":
		return ConfidenceLow, nil
	case "medium":
		return ConfidenceMedium, nil
	case "high":
		return ConfidenceHigh, nil
	case "veryhigh":
		return ConfidenceVeryHigh, nil
	}
	return ConfidenceLow, fmt.Errorf("unknown confidence level %q", s)
}

func (c Confidence) MarshalText() ([]byte, error) {
	if c < ConfidenceLow || c > ConfidenceVeryHigh {
		return nil, fmt.Errorf("invalid confidence %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ValueType describes what kind of secret a value is. Custom types are allowed.
type ValueType string

const (
	ValueTypeAPIKey      ValueType = "ApiKey"
	ValueTypeAccessToken ValueType = "AccessToken"
	ValueTypeSecretKey   ValueType = "SecretKey"
	ValueTypeBearerToken ValueType = "BearerToken"
)

// EnvironmentKind classifies where a credential was found.
type EnvironmentKind string

const (
	EnvironmentSystemConfig  EnvironmentKind = "system_config"
	EnvironmentUserConfig    EnvironmentKind = "user_config"
	EnvironmentProjectConfig EnvironmentKind = "project_config"
	EnvironmentFile          EnvironmentKind = "environment_file"
)

// Environment is the location class of a credential. ProjectPath is only set
// for EnvironmentProjectConfig.
type Environment struct {
	Kind        EnvironmentKind
	ProjectPath string
}

// UserConfig is the environment for per-user application configuration.
func UserConfig() Environment { return Environment{Kind: EnvironmentUserConfig} }

// SystemConfig is the environment for machine-wide configuration.
func SystemConfig() Environment { return Environment{Kind: EnvironmentSystemConfig} }

// EnvFile is the environment for .env style files.
func EnvFile() Environment { return Environment{Kind: EnvironmentFile} }

// ProjectConfig is the environment for configuration inside a project directory.
func ProjectConfig(path string) Environment {
	return Environment{Kind: EnvironmentProjectConfig, ProjectPath: path}
}

func (e Environment) String() string {
	if e.Kind == EnvironmentProjectConfig && e.ProjectPath != "" {
		return string(e.Kind) + ":" + e.ProjectPath
	}
	if e.Kind == "" {
		return string(EnvironmentUserConfig)
	}
	return string(e.Kind)
}
