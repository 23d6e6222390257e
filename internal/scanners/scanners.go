// Package scanners holds the built-in application scanners. A scanner knows
// where one application keeps its configuration under a home directory and
// how to pull candidate credentials and non-secret settings out of it.
package scanners

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// Option configures the built-in scanners.
type Option func(*options)

type options struct {
	detector *detect.Detector
	noLeaks  bool
	logger   *logging.Logger
}

// WithDetector replaces the default gitleaks rule set used by the
// shell-profile scanner, typically with one from LoadGitleaksConfig.
func WithDetector(d *detect.Detector) Option {
	return func(o *options) { o.detector = d }
}

// WithoutGitleaks disables content-level detection in the shell-profile
// scanner; only assignment patterns are used.
func WithoutGitleaks() Option {
	return func(o *options) { o.noLeaks = true }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewRegistry builds the default scanner registry in its fixed order.
func NewRegistry(opts ...Option) *plugin.ScannerRegistry {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return plugin.NewScannerRegistry().MustRegister(
		NewClaudeDesktop(),
		NewRooCode(),
		NewLangChain(),
		NewRagit(),
		NewGoose(),
		NewGSH(),
		NewDotenv(),
		newShellProfile(o),
	)
}

// base carries the identity shared by every scanner.
type base struct {
	name     string
	app      string
	idPrefix string
}

func (b base) Name() string    { return b.name }
func (b base) AppName() string { return b.app }

func (b base) newConfig(path string, env credential.Environment) *plugin.ParsedConfig {
	return &plugin.ParsedConfig{
		InstanceID:  InstanceID(b.idPrefix, path),
		AppName:     b.name,
		ConfigPath:  path,
		Environment: env,
		Metadata:    map[string]string{},
	}
}

// InstanceID derives a stable instance id from a config path.
func InstanceID(prefix, path string) string {
	sum := sha256.Sum256([]byte(path))
	return prefix + "_" + hex.EncodeToString(sum[:])[:16]
}

// existing joins each relative path onto root and keeps those that exist.
// Paths that cannot be stat'ed for reasons other than absence are kept so the
// orchestrator can report them.
func existing(root string, rels ...string) []string {
	var out []string
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Lstat(p); err == nil || !errors.Is(err, fs.ErrNotExist) {
			out = append(out, p)
		}
	}
	return out
}

func lowerSlash(path string) string {
	return strings.ToLower(filepath.ToSlash(path))
}

// plausible filters out values that cannot be a literal credential: shell
// references, template placeholders and anything with whitespace.
func plausible(value string, minLen int) bool {
	if len(value) < minLen {
		return false
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return false
	}
	switch value[0] {
	case '$', '<', '{', '%':
		return false
	}
	return strings.IndexFunc(value, func(r rune) bool {
		return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
	}) >= 0
}
