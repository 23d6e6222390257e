package scanners

import (
	"encoding/json"
	"fmt"
	"strings"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// appConfig scans LLM framework configs that share one layout:
//
//	api_key: ...                 # top-level key
//	llm: {provider, model, api_key}
//	providers: {<name>: {api_key}}
//	env: {OPENAI_API_KEY: ...}
//
// in JSON, YAML or TOML, plus dotenv files next to them.
type appConfig struct {
	base
	paths        []string
	keywords     []string
	versionField string
}

// NewLangChain scans LangChain configuration under ~/.langchain.
func NewLangChain() plugin.Scanner {
	return &appConfig{
		base: base{name: "langchain", app: "LangChain", idPrefix: "langchain"},
		paths: []string{
			".langchain/config.yaml",
			".langchain/config.yml",
			".langchain/config.json",
			".langchain/config.toml",
			".langchain/settings.json",
			".langchain/.env",
		},
		keywords:     []string{"langchain"},
		versionField: "langchain_version",
	}
}

// NewRagit scans ragit configuration.
func NewRagit() plugin.Scanner {
	return &appConfig{
		base: base{name: "ragit", app: "Ragit", idPrefix: "ragit"},
		paths: []string{
			".ragit/config.json",
			".config/ragit/config.json",
		},
		keywords:     []string{"ragit"},
		versionField: "ragit_version",
	}
}

func (s *appConfig) CandidatePaths(root string) []string {
	return existing(root, s.paths...)
}

func (s *appConfig) CanHandle(path string) bool {
	p := lowerSlash(path)
	for _, kw := range s.keywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

func (s *appConfig) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	format := parse.DetectFormat(path, contents)
	if format == parse.FormatDotenv {
		cfg := s.newConfig(path, credential.EnvFile())
		addEnvEntries(cfg, parse.KeyValues(contents))
		return cfg, nil
	}

	entries, err := parse.FlattenAs(format, contents)
	if err != nil {
		return nil, aicerrors.NewParseError("parse "+s.name+" config", path, "%v", err)
	}

	cfg := s.newConfig(path, credential.UserConfig())
	llmProvider := ""
	for _, e := range entries {
		if strings.EqualFold(e.Key, "llm.provider") {
			llmProvider = strings.ToLower(e.Value)
		}
	}

	for _, e := range entries {
		key := strings.ToLower(e.Key)
		leaf := strings.ToLower(e.LeafKey())
		switch {
		case key == s.versionField || key == "version":
			cfg.Metadata["version"] = e.Value
		case key == "llm.provider":
			cfg.Metadata["llm_provider"] = e.Value
		case key == "llm.model":
			cfg.Metadata["llm_model"] = e.Value
		case key == "default_model" || key == "model":
			cfg.Metadata["default_model"] = e.Value
		case key == "chain.type":
			cfg.Metadata["chain_type"] = e.Value
		case strings.HasPrefix(key, "env."):
			addEnvEntries(cfg, []parse.Entry{e})
		case leaf == "api_key" || leaf == "apikey":
			if !plausible(e.Value, 8) {
				continue
			}
			cfg.Candidates = append(cfg.Candidates, candidateFrom(e, s.providerFor(key, llmProvider)))
		case leaf == "base_url" || leaf == "api_base":
			if p := s.providerFor(key, llmProvider); p != "" {
				cfg.Metadata[p+"_base_url"] = e.Value
			}
		}
	}
	return cfg, nil
}

// providerFor attributes a key path to a provider: providers.<name>.api_key
// names it, llm.api_key uses llm.provider, and a top-level key is left for
// the validators to decide.
func (s *appConfig) providerFor(key, llmProvider string) string {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) >= 3 && parts[0] == "providers":
		return providerHint(parts[1])
	case len(parts) == 2 && parts[0] == "llm":
		return providerHint(llmProvider)
	default:
		return ""
	}
}

// scalar renders a decoded JSON scalar as a string.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case float64, int, int64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
