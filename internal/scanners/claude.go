package scanners

import (
	"strings"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// ClaudeDesktop scans Claude Desktop and Claude Code configuration.
type ClaudeDesktop struct{ base }

func NewClaudeDesktop() *ClaudeDesktop {
	return &ClaudeDesktop{base{name: "claude-desktop", app: "Claude Desktop", idPrefix: "claude"}}
}

func (s *ClaudeDesktop) CandidatePaths(root string) []string {
	return existing(root,
		".claude.json",
		".claude/settings.json",
		"Library/Application Support/Claude/claude_desktop_config.json",
		".config/Claude/claude_desktop_config.json",
	)
}

func (s *ClaudeDesktop) CanHandle(path string) bool {
	p := lowerSlash(path)
	return strings.HasSuffix(p, ".json") && strings.Contains(p, "claude")
}

var claudeKeyFields = map[string]bool{
	"apikey":            true,
	"primaryapikey":     true,
	"anthropic_api_key": true,
	"anthropicapikey":   true,
}

func (s *ClaudeDesktop) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	tree, err := parse.DecodeJSON(contents)
	if err != nil {
		return nil, aicerrors.NewParseError("parse claude config", path, "%v", err)
	}
	root, _ := tree.(map[string]any)

	cfg := s.newConfig(path, credential.UserConfig())
	entries, _ := parse.FlattenAs(parse.FormatJSON, contents)
	for _, e := range entries {
		leaf := strings.ToLower(e.LeafKey())
		if !claudeKeyFields[leaf] || !plausible(e.Value, 8) {
			continue
		}
		cfg.Candidates = append(cfg.Candidates, candidateFrom(e, "anthropic"))
	}

	if userID, ok := root["userID"].(string); ok && plausible(userID, 15) {
		line, col := parse.Locate(contents, userID)
		cfg.Candidates = append(cfg.Candidates, plugin.Candidate{
			Value:      userID,
			Provider:   "anthropic",
			Confidence: plugin.ConfidencePtr(claudeIDConfidence(userID)),
			ValueType:  credential.ValueTypeAPIKey,
			Field:      "userID",
			Line:       line,
			Column:     col,
		})
	}

	for field, key := range map[string]string{
		"claude_version": "version",
		"model":          "model",
		"max_tokens":     "max_tokens",
		"temperature":    "temperature",
	} {
		if v, ok := scalar(root[field]); ok {
			cfg.Metadata[key] = v
		}
	}
	return cfg, nil
}

func claudeIDConfidence(v string) credential.Confidence {
	switch {
	case strings.HasPrefix(v, "sk-ant-"):
		return credential.ConfidenceHigh
	case len(v) >= 30:
		return credential.ConfidenceMedium
	default:
		return credential.ConfidenceLow
	}
}
