package scanners

import (
	"sort"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

var shellProfiles = []string{
	".bashrc", ".bash_profile", ".zshrc", ".zshenv", ".profile", ".config/fish/config.fish",
}

var (
	// NAME=value and export NAME=value
	shellAssign = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?([A-Za-z_][A-Za-z0-9_]*)=["']?([^"'\s#;]+)`)
	// fish "set -gx NAME value" and csh "setenv NAME value"
	shellSet = regexp.MustCompile(`(?m)^[ \t]*(?:set[ \t]+-gx|set[ \t]+-x|setenv)[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]+["']?([^"'\s#;]+)`)
)

// ShellProfile scans shell startup files for exported credentials and, with
// the gitleaks rule set, for credentials embedded anywhere in them.
type ShellProfile struct {
	base
	leaks  *leakDetector
	logger *logging.Logger
}

// NewShellProfile creates the scanner with the default gitleaks rule set.
func NewShellProfile(opts ...Option) *ShellProfile {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return newShellProfile(o)
}

func newShellProfile(o options) *ShellProfile {
	s := &ShellProfile{
		base:   base{name: "shell-profile", app: "Shell profile", idPrefix: "shell"},
		logger: o.logger,
	}
	if !o.noLeaks {
		s.leaks = newLeakDetector(o.detector)
	}
	return s
}

func (s *ShellProfile) CandidatePaths(root string) []string {
	return existing(root, shellProfiles...)
}

func (s *ShellProfile) CanHandle(path string) bool {
	p := lowerSlash(path)
	for _, name := range shellProfiles {
		if strings.HasSuffix(p, "/"+name) {
			return true
		}
	}
	return false
}

func (s *ShellProfile) Parse(path string, contents []byte) (*plugin.ParsedConfig, error) {
	cfg := s.newConfig(path, credential.UserConfig())
	addEnvEntries(cfg, shellEntries(contents))

	if s.leaks == nil {
		return cfg, nil
	}
	findings, err := s.leaks.detect(contents)
	if err != nil {
		// assignment matches are still useful without content detection
		s.logger.Debug("gitleaks unavailable for %s: %v", path, err)
		return cfg, nil
	}

	seen := make(map[string]bool, len(cfg.Candidates))
	for _, c := range cfg.Candidates {
		seen[c.Value] = true
	}
	for _, f := range findings {
		provider, ok := RuleProvider(f.RuleID)
		if !ok || seen[f.Secret] || !plausible(f.Secret, 8) {
			continue
		}
		seen[f.Secret] = true
		line, col := parse.Locate(contents, f.Secret)
		cfg.Candidates = append(cfg.Candidates, plugin.Candidate{
			Value:     f.Secret,
			Provider:  provider,
			ValueType: credential.ValueTypeAPIKey,
			Field:     "gitleaks:" + f.RuleID,
			Line:      line,
			Column:    col,
		})
	}
	return cfg, nil
}

// shellEntries extracts variable assignments in file order.
func shellEntries(contents []byte) []parse.Entry {
	var out []parse.Entry
	for _, re := range []*regexp.Regexp{shellAssign, shellSet} {
		for _, idx := range re.FindAllSubmatchIndex(contents, -1) {
			line, col := lineCol(contents, idx[4])
			out = append(out, parse.Entry{
				Key:    string(contents[idx[2]:idx[3]]),
				Value:  string(contents[idx[4]:idx[5]]),
				Line:   line,
				Column: col,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
