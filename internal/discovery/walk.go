package discovery

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// scannerRun is the private output slot of one scanner. Only the goroutine
// running that scanner writes to it.
type scannerRun struct {
	configs  []*plugin.ParsedConfig
	files    []string
	dirs     []string
	failures []credential.SoftFailure
}

func (r *scannerRun) fail(scanner, path string, err error) {
	kind := aicerrors.KindOf(err)
	if kind == 0 {
		kind = aicerrors.KindIO
	}
	r.failures = append(r.failures, credential.SoftFailure{
		Scanner: scanner,
		Path:    path,
		Kind:    kind.String(),
		Message: err.Error(),
	})
}

func (o *Orchestrator) runScanner(ctx context.Context, s plugin.Scanner, root string, maxSize int64) *scannerRun {
	run := &scannerRun{}
	for _, candidate := range s.CandidatePaths(root) {
		if ctx.Err() != nil {
			return run
		}

		info, err := os.Stat(candidate)
		if err != nil {
			run.fail(s.Name(), candidate, aicerrors.NewIOError(s.Name(), candidate, err))
			continue
		}
		if !info.IsDir() {
			o.scanFile(s, candidate, maxSize, run)
			continue
		}

		// WalkDir visits entries in lexical order and does not follow
		// symlinked directories.
		_ = filepath.WalkDir(candidate, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				run.fail(s.Name(), path, aicerrors.NewIOError(s.Name(), path, err))
				return nil
			}
			if d.IsDir() {
				run.dirs = append(run.dirs, path)
				return nil
			}
			o.scanFile(s, path, maxSize, run)
			return nil
		})
	}
	return run
}

func (o *Orchestrator) scanFile(s plugin.Scanner, path string, maxSize int64, run *scannerRun) {
	if !s.CanHandle(path) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		run.files = append(run.files, path)
		run.fail(s.Name(), path, aicerrors.NewIOError(s.Name(), path, err))
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	run.files = append(run.files, path)

	if info.Size() > maxSize {
		o.logger.Debug("%s: skipping %s (%d bytes exceeds %d)", s.Name(), path, info.Size(), maxSize)
		return
	}

	contents, err := readCapped(path, maxSize)
	if err != nil {
		run.fail(s.Name(), path, aicerrors.NewIOError(s.Name(), path, err))
		return
	}
	if parse.IsBinary(contents) {
		o.logger.Debug("%s: skipping binary file %s", s.Name(), path)
		return
	}

	cfg, err := safeParse(s, path, contents)
	if err != nil {
		if aicerrors.KindOf(err) == 0 {
			err = aicerrors.NewParseError(s.Name(), path, "%v", err)
		}
		o.logger.Debug("%s: %v", s.Name(), err)
		run.fail(s.Name(), path, err)
		return
	}
	if cfg.Empty() {
		return
	}
	run.configs = append(run.configs, cfg)
}

// readCapped reads at most limit bytes; the file may have grown since it
// was stat'ed.
func readCapped(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

// safeParse turns a panicking scanner into a parse error.
func safeParse(s plugin.Scanner, path string, contents []byte) (cfg *plugin.ParsedConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg = nil
			err = aicerrors.NewParseError(s.Name(), path, "scanner panicked: %v", r)
		}
	}()
	return s.Parse(path, contents)
}
