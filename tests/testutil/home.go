package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// HomeBuilder lays out a fake home directory for scanner and discovery tests.
//
// Paths are relative to the home root and use forward slashes. Parent
// directories are created as needed. The directory is removed when the test
// completes.
//
// Example usage:
//
//	home := testutil.NewHome(t).
//	    File(".env", "OPENAI_API_KEY=sk-test1234567890\n").
//	    File(".config/goose/config.yaml", "GOOSE_PROVIDER: openai\n")
//
//	result, err := orch.Scan(ctx, discovery.Options{Root: home.Root()})
type HomeBuilder struct {
	t    *testing.T
	root string
}

// NewHome creates an empty home directory under t.TempDir().
func NewHome(t *testing.T) *HomeBuilder {
	t.Helper()

	return &HomeBuilder{t: t, root: t.TempDir()}
}

// Root returns the home directory.
func (h *HomeBuilder) Root() string {
	return h.root
}

// Path returns the absolute path of rel inside the home directory.
func (h *HomeBuilder) Path(rel string) string {
	return filepath.Join(h.root, filepath.FromSlash(rel))
}

// File writes contents to rel.
func (h *HomeBuilder) File(rel, contents string) *HomeBuilder {
	h.t.Helper()

	return h.Bytes(rel, []byte(contents))
}

// Bytes writes raw contents to rel.
func (h *HomeBuilder) Bytes(rel string, contents []byte) *HomeBuilder {
	h.t.Helper()

	path := h.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		h.t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return h
}

// Dir creates an empty directory at rel.
func (h *HomeBuilder) Dir(rel string) *HomeBuilder {
	h.t.Helper()

	if err := os.MkdirAll(h.Path(rel), 0o755); err != nil {
		h.t.Fatalf("Failed to create directory %s: %v", rel, err)
	}
	return h
}

// Unreadable writes contents to rel and removes all permissions from it.
// Tests using it should skip when running as root, since root ignores
// file modes.
func (h *HomeBuilder) Unreadable(rel, contents string) *HomeBuilder {
	h.t.Helper()

	h.File(rel, contents)
	path := h.Path(rel)
	if err := os.Chmod(path, 0); err != nil {
		h.t.Fatalf("Failed to chmod %s: %v", rel, err)
	}
	h.t.Cleanup(func() {
		_ = os.Chmod(path, 0o600)
	})
	return h
}

// SkipIfRoot skips tests that depend on file permissions being enforced.
func SkipIfRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
}
