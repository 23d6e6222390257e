package scanners

import (
	"strings"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

const rooExtensionID = "rooveterinaryinc.roo-cline"

// RooCode scans the Roo Code VS Code extension's storage and standalone config.
type RooCode struct{ base }

func NewRooCode() *RooCode {
	return &RooCode{base{name: "roo-code", app: "Roo Code", idPrefix: "roo"}}
}

func (s *RooCode) CandidatePaths(root string) []string {
	var rels []string
	for _, editor := range []string{"Code", "Code - Insiders"} {
		// Linux, macOS and Windows (roaming profile under the home dir)
		rels = append(rels,
			".config/"+editor+"/User/globalStorage/"+rooExtensionID,
			"Library/Application Support/"+editor+"/User/globalStorage/"+rooExtensionID,
			"AppData/Roaming/"+editor+"/User/globalStorage/"+rooExtensionID,
		)
	}
	rels = append(rels,
		".vscode-server/data/User/globalStorage/"+rooExtensionID,
		".roo-code/config.json",
		".roo_code/config.json",
		"roo-code.json",
		"roo_code.json",
	)
	return existing(root, rels...)
}

func (s *RooCode) CanHandle(path string) bool {
	p := lowerSlash(path)
	if !strings.HasSuffix(p, ".json") {
		return false
	}
	// task histories are large and hold conversation text, not settings
	if strings.Contains(p, "/tasks/") {
		return false
	}
	return strings.Contains(p, rooExtensionID) ||
		strings.Contains(p, "roo-code") ||
		strings.Contains(p, "roo_code")
}

// Roo Code names provider keys "<provider>ApiKey".
var rooProviders = []struct {
	prefix   string
	provider string
}{
	{"openrouter", "openrouter"},
	{"openainative", "openai"},
	{"openai", "openai"},
	{"anthropic", "anthropic"},
	{"gemini", "google"},
	{"vertex", "google"},
	{"groq", "groq"},
	{"mistral", "mistral"},
	{"deepseek", "deepseek"},
	{"huggingface", "huggingface"},
	{"litellm", "litellm"},
	{"xai", "grok"},
	{"together", "together"},
	{"fireworks", "fireworks"},
	{"moonshot", "moonshot"},
	{"zai", "zai"},
	{"awsaccesskey", "aws_bedrock"},
	{"awssecretkey", "aws_bedrock"},
	{"awssessiontoken", "aws_bedrock"},
}

var rooSettings = map[string]string{
	"apiprovider":      "api_provider",
	"apimodelid":       "model",
	"openaimodelid":    "openai_model",
	"openaibaseurl":    "openai_base_url",
	"anthropicbaseurl": "anthropic_base_url",
	"ollamabaseurl":    "ollama_base_url",
	"ollamamodelid":    "ollama_model",
	"litellmbaseurl":   "litellm_base_url",
	"awsregion":        "aws_region",
	"version":          "version",
}

func (s *RooCode) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	entries, err := parse.FlattenAs(parse.FormatJSON, contents)
	if err != nil {
		return nil, aicerrors.NewParseError("parse roo-code settings", path, "%v", err)
	}

	cfg := s.newConfig(path, credential.UserConfig())
	for _, e := range entries {
		leaf := strings.ToLower(e.LeafKey())
		if meta, ok := rooSettings[leaf]; ok {
			cfg.Metadata[meta] = e.Value
			continue
		}

		// roo-cline.keys.<provider>
		if parent, ok := parentKey(e.Key); ok && strings.HasSuffix(strings.ToLower(parent), "roo-cline.keys") {
			if plausible(e.Value, 8) {
				cfg.Candidates = append(cfg.Candidates, candidateFrom(e, providerHint(e.LeafKey())))
			}
			continue
		}

		if !isRooKeyField(leaf) || !plausible(e.Value, 8) {
			continue
		}
		c := candidateFrom(e, rooProvider(leaf))
		if strings.Contains(leaf, "secret") {
			c.ValueType = credential.ValueTypeSecretKey
		}
		cfg.Candidates = append(cfg.Candidates, c)
	}
	return cfg, nil
}

func isRooKeyField(leaf string) bool {
	return strings.HasSuffix(leaf, "apikey") ||
		strings.HasPrefix(leaf, "awsaccesskey") ||
		strings.HasPrefix(leaf, "awssecretkey") ||
		strings.HasPrefix(leaf, "awssessiontoken")
}

func rooProvider(leaf string) string {
	for _, p := range rooProviders {
		if strings.HasPrefix(leaf, p.prefix) {
			return p.provider
		}
	}
	return ""
}

func parentKey(key string) (string, bool) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return "", false
	}
	return key[:i], true
}
