package paths

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const PluginsFolderName = "plugins"

var ErrPluginsRootNotFound = errors.New("plugins folder not found")

// PluginsRootFolder resolves the folder holding the prompt plugin
// directories. A configured path wins and must exist. Otherwise the first
// `plugins` folder found walking up from the working directory is used, and
// finally the one next to the executable.
func PluginsRootFolder(configured string) (string, error) {
	if configured != "" {
		abs, err := filepath.Abs(configured)
		if err != nil {
			return "", errors.Wrapf(err, "invalid plugins folder %s", configured)
		}
		if !isDir(abs) {
			return "", errors.Wrapf(ErrPluginsRootNotFound, "%s is not a directory", abs)
		}
		return abs, nil
	}

	var starts []string
	if wd, err := os.Getwd(); err == nil {
		starts = append(starts, wd)
	}
	if exe, err := os.Executable(); err == nil {
		starts = append(starts, filepath.Dir(exe))
	}
	return findPluginsRoot(starts...)
}

func findPluginsRoot(starts ...string) (string, error) {
	for _, start := range starts {
		if found, ok := findUpwards(start, PluginsFolderName); ok {
			return found, nil
		}
	}
	return "", ErrPluginsRootNotFound
}

func findUpwards(start, name string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, name)
		if isDir(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
