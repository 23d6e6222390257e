package scanners

import (
	"strings"

	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

var dotenvFiles = []string{".env", ".env.local", ".env.development", ".env.production", ".envrc"}

// Dotenv scans dotenv files at the top of the scan root.
type Dotenv struct{ base }

func NewDotenv() *Dotenv {
	return &Dotenv{base{name: "dotenv", app: "dotenv", idPrefix: "dotenv"}}
}

func (s *Dotenv) CandidatePaths(root string) []string {
	return existing(root, dotenvFiles...)
}

func (s *Dotenv) CanHandle(path string) bool {
	b := baseLower(path)
	for _, name := range dotenvFiles {
		if b == name {
			return true
		}
	}
	return strings.HasPrefix(b, ".env.")
}

func (s *Dotenv) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	cfg := s.newConfig(path, credential.EnvFile())
	addEnvEntries(cfg, parse.KeyValues(contents))
	return cfg, nil
}
