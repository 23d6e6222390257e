package scanners

import (
	"strings"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// Goose scans the Goose agent's YAML config, its secrets file and the
// goosebench env file.
type Goose struct{ base }

func NewGoose() *Goose {
	return &Goose{base{name: "goose", app: "Goose", idPrefix: "goose"}}
}

func (s *Goose) CandidatePaths(root string) []string {
	return existing(root,
		".config/goose/config.yaml",
		".config/goose/secrets.yaml",
		"Library/Application Support/Goose/config.yaml",
		"AppData/Roaming/Block/goose/config/config.yaml",
		".goosebench.env",
	)
}

func (s *Goose) CanHandle(path string) bool {
	p := lowerSlash(path)
	if !strings.Contains(p, "goose") {
		return false
	}
	return strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") || strings.HasSuffix(p, ".env")
}

var gooseSettings = map[string]string{
	"GOOSE_PROVIDER":         "provider",
	"GOOSE_MODEL":            "model",
	"GOOSE_MODE":             "mode",
	"GOOSE_LEAD_MODEL":       "lead_model",
	"GOOSE_PLANNER_PROVIDER": "planner_provider",
	"GOOSE_PLANNER_MODEL":    "planner_model",
}

func (s *Goose) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	var entries []parse.Entry
	env := credential.UserConfig()
	if strings.HasSuffix(lowerSlash(path), ".env") {
		entries = parse.KeyValues(contents)
		env = credential.EnvFile()
	} else {
		var err error
		entries, err = parse.FlattenAs(parse.FormatYAML, contents)
		if err != nil {
			return nil, aicerrors.NewParseError("parse goose config", path, "%v", err)
		}
	}

	cfg := s.newConfig(path, env)
	var rest []parse.Entry
	for _, e := range entries {
		if meta, ok := gooseSettings[strings.ToUpper(e.Key)]; ok {
			cfg.Metadata[meta] = e.Value
			continue
		}
		rest = append(rest, e)
	}
	addEnvEntries(cfg, rest)
	return cfg, nil
}
