package scanners

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// LoadGitleaksConfig builds a detector from a custom gitleaks TOML file.
func LoadGitleaksConfig(path string) (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("gitleaks config file not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("error reading gitleaks config file %s: %w", path, err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("error unmarshaling gitleaks config from %s: %w", path, err)
	}
	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("error translating gitleaks config from %s: %w", path, err)
	}
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("gitleaks config %s contains no rules", path)
	}
	return detect.NewDetector(cfg), nil
}

// leakDetector wraps a gitleaks detector. The default rule set is compiled on
// first use; a detector accumulates findings internally, so calls are
// serialized.
type leakDetector struct {
	once     sync.Once
	mu       sync.Mutex
	detector *detect.Detector
	err      error
}

func newLeakDetector(d *detect.Detector) *leakDetector {
	return &leakDetector{detector: d}
}

func (l *leakDetector) detect(contents []byte) ([]report.Finding, error) {
	l.once.Do(func() {
		if l.detector != nil {
			return
		}
		l.detector, l.err = detect.NewDetectorDefaultConfig()
		if l.err != nil {
			l.err = fmt.Errorf("error creating default gitleaks detector: %w", l.err)
		}
	})
	if l.err != nil {
		return nil, l.err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detector.DetectBytes(contents), nil
}

// Gitleaks rule ids are kebab-case and start with the issuing service.
var ruleProviders = []struct {
	fragment string
	provider string
}{
	{"openai", "openai"},
	{"anthropic", "anthropic"},
	{"huggingface", "huggingface"},
	{"cohere", "cohere"},
	{"perplexity", "perplexity"},
	{"groq", "groq"},
	{"openrouter", "openrouter"},
	{"aws", "aws_bedrock"},
	{"gcp-api-key", "google"},
	{"azure", "azure"},
	{"replicate", "replicate"},
	{"mistral", "mistral"},
	{"deepseek", "deepseek"},
	{"fireworks", "fireworks"},
	{"xai", "grok"},
}

// RuleProvider maps a gitleaks rule id to a provider. Generic rules map to an
// empty provider with ok=true; rules for unrelated services report ok=false.
func RuleProvider(ruleID string) (provider string, ok bool) {
	id := strings.ToLower(ruleID)
	for _, rp := range ruleProviders {
		if strings.Contains(id, rp.fragment) {
			return rp.provider, true
		}
	}
	if strings.HasPrefix(id, "generic") {
		return "", true
	}
	return "", false
}
