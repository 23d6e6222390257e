package discovery

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	aicerrors "github.com/systmms/aicred/internal/errors"
)

// ResolveRoot turns a user-supplied root into an absolute, readable
// directory. An empty root means the caller's home directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", aicerrors.NewConfigError("resolve-root", fmt.Errorf("cannot determine home directory: %w", err))
		}
		root = home
	} else {
		expanded, err := homedir.Expand(root)
		if err != nil {
			return "", aicerrors.NewConfigError("resolve-root", err)
		}
		root = expanded
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", aicerrors.NewConfigError("resolve-root", err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", aicerrors.NewNotFound(abs, err)
	case err != nil:
		return "", aicerrors.NewIOError("resolve-root", abs, err)
	case !info.IsDir():
		return "", aicerrors.NewConfigError("resolve-root", fmt.Errorf("%s is not a directory", abs))
	}

	// stat succeeds on directories we cannot list
	dir, err := os.Open(abs)
	if err != nil {
		return "", aicerrors.NewIOError("resolve-root", abs, err)
	}
	defer dir.Close()
	if _, err := dir.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", aicerrors.NewIOError("resolve-root", abs, err)
	}
	return abs, nil
}
