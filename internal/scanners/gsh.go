package scanners

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// GSH scans the gsh shell's rc files. Its fast model is usually served by
// Groq and its slow model by OpenRouter.
type GSH struct{ base }

func NewGSH() *GSH {
	return &GSH{base{name: "gsh", app: "GSH", idPrefix: "gsh"}}
}

func (s *GSH) CandidatePaths(root string) []string {
	return existing(root, ".gshrc", ".gshenv")
}

func (s *GSH) CanHandle(path string) bool {
	b := baseLower(path)
	return strings.HasSuffix(b, "gshrc") || strings.HasSuffix(b, "gshenv")
}

var gshModels = []struct {
	prefix   string
	provider string
	label    string
}{
	{"GSH_FAST_MODEL_", "groq", "fast_model"},
	{"GSH_SLOW_MODEL_", "openrouter", "slow_model"},
}

// Shell exports gsh users commonly keep next to its own settings.
var gshFallback = func() []*regexp.Regexp {
	vars := []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GROQ_API_KEY", "OPENROUTER_API_KEY",
		"HUGGING_FACE_HUB_TOKEN", "HF_TOKEN", "GOOGLE_API_KEY", "COHERE_API_KEY",
		"LANGCHAIN_API_KEY",
	}
	out := make([]*regexp.Regexp, 0, len(vars))
	for _, v := range vars {
		out = append(out, regexp.MustCompile(`(?im)^\s*(?:export\s+)?(`+v+`)\s*=\s*["']?([a-zA-Z0-9_-]{15,})["']?`))
	}
	return out
}()

func (s *GSH) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	cfg := s.newConfig(path, credential.UserConfig())
	seen := make(map[string]bool)

	for _, e := range parse.KeyValues(contents) {
		name := strings.ToUpper(e.Key)
		for _, m := range gshModels {
			if !strings.HasPrefix(name, m.prefix) {
				continue
			}
			switch suffix := strings.TrimPrefix(name, m.prefix); suffix {
			case "API_KEY":
				if plausible(e.Value, 8) {
					cfg.Candidates = append(cfg.Candidates, candidateFrom(e, m.provider))
					seen[e.Value] = true
				}
			case "BASE_URL", "ID", "TEMPERATURE", "PARALLEL_TOOL_CALLS":
				cfg.Metadata[m.label+"_"+strings.ToLower(suffix)] = e.Value
			}
		}
	}

	for _, re := range gshFallback {
		for _, idx := range re.FindAllSubmatchIndex(contents, -1) {
			name, value := string(contents[idx[2]:idx[3]]), string(contents[idx[4]:idx[5]])
			if seen[value] {
				continue
			}
			seen[value] = true
			provider, _ := ProviderForVar(name)
			line, col := lineCol(contents, idx[4])
			cfg.Candidates = append(cfg.Candidates, plugin.Candidate{
				Value:     value,
				Provider:  provider,
				ValueType: valueTypeFor(name),
				Field:     name,
				Line:      line,
				Column:    col,
			})
		}
	}
	return cfg, nil
}

func baseLower(path string) string {
	p := lowerSlash(path)
	return p[strings.LastIndex(p, "/")+1:]
}

// lineCol converts a byte offset into a 1-based line and column.
func lineCol(contents []byte, offset int) (int, int) {
	line := 1 + strings.Count(string(contents[:offset]), "\n")
	start := strings.LastIndex(string(contents[:offset]), "\n") + 1
	return line, offset - start + 1
}
