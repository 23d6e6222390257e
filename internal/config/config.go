package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/logging"
)

// DefaultPath is used when --config is not given. A missing file at the
// default path is not an error.
const DefaultPath = "aicred.yaml"

//go:embed schema.json
var schema string

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the aicred.yaml structure
type Definition struct {
	Version     int         `yaml:"version"`
	Scan        ScanConfig  `yaml:"scan"`
	Probe       ProbeConfig `yaml:"probe"`
	AuditLog    string      `yaml:"audit_log"`
	MetricsFile string      `yaml:"metrics_file"`
}

// ScanConfig holds discovery settings
type ScanConfig struct {
	Home             string   `yaml:"home"`
	MaxFileSize      int64    `yaml:"max_file_size"`
	OnlyProviders    []string `yaml:"only_providers"`
	ExcludeProviders []string `yaml:"exclude_providers"`
	GitleaksConfig   string   `yaml:"gitleaks_config"`
	Concurrency      int      `yaml:"concurrency"`
}

// ProbeConfig holds model probe settings
type ProbeConfig struct {
	Enabled           bool              `yaml:"enabled"`
	Timeout           string            `yaml:"timeout"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	Concurrency       int               `yaml:"concurrency"`
	BaseURLs          map[string]string `yaml:"base_urls"`
}

// TimeoutDuration parses Timeout. Empty means zero, letting the prober pick
// its default.
func (p ProbeConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 0, aicerrors.ConfigError{
			Field:      "probe.timeout",
			Value:      p.Timeout,
			Message:    "invalid duration",
			Suggestion: "Use a Go duration such as 30s or 2m",
		}
	}
	return d, nil
}

// Load reads, validates and parses the configuration file. A missing file at
// DefaultPath yields an empty definition.
func (c *Config) Load() error {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if path == DefaultPath {
				c.Logger.Debug("no %s found, using defaults", DefaultPath)
				c.Definition = &Definition{}
				return nil
			}
			return aicerrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path or omit it to use defaults",
			}
		}
		return aicerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, aicerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return &Definition{}, nil
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, aicerrors.ConfigError{
			Message:    fmt.Sprintf("cannot decode configuration: %v", err),
			Suggestion: "Compare your file with the documented aicred.yaml layout",
		}
	}
	if def.Scan.Home != "" {
		home, err := homedir.Expand(def.Scan.Home)
		if err != nil {
			return nil, aicerrors.ConfigError{
				Field:      "scan.home",
				Value:      def.Scan.Home,
				Message:    err.Error(),
				Suggestion: "Use ~/ or an absolute path",
			}
		}
		def.Scan.Home = home
	}
	if _, err := def.Probe.TimeoutDuration(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validate(raw interface{}) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return aicerrors.ConfigError{
			Message:    fmt.Sprintf("configuration is not representable as JSON: %v", err),
			Suggestion: "Use string keys only",
		}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	field := ""
	for _, desc := range result.Errors() {
		if field == "" {
			field = desc.Field()
		}
		msgs = append(msgs, desc.String())
	}
	return aicerrors.ConfigError{
		Field:      field,
		Message:    "schema validation failed:\n  - " + strings.Join(msgs, "\n  - "),
		Suggestion: "Remove unknown keys and check value types; only 'version: 0' is supported",
	}
}
