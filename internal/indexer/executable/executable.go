package executable

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ExecutableInfo contains information about an executable file
type ExecutableInfo struct {
	Name string // Executable name
	Path string // Full path to executable
}

// ScanPaths sends the executables found directly in paths, in search order.
// A name already seen in an earlier path is skipped, as the shell would never run it.
func ScanPaths(paths []string, resultChan chan<- *ExecutableInfo) error {
	defer close(resultChan)

	seen := make(map[string]bool)
	for _, path := range paths {
		if err := scanPath(path, seen, resultChan); err != nil {
			// Continue scanning other paths even if one fails
			continue
		}
	}
	return nil
}

func scanPath(dir string, seen map[string]bool, resultChan chan<- *ExecutableInfo) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()
		// Skip hidden files
		if strings.HasPrefix(name, ".") || seen[name] {
			continue
		}

		path := filepath.Join(dir, name)
		// History identifiers are TOML keys, which must be UTF-8
		if !utf8.ValidString(path) {
			continue
		}
		// Stat follows symlinks, which PATH directories are full of
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !isExecutable(info) {
			continue
		}

		seen[name] = true
		resultChan <- &ExecutableInfo{
			Name: name,
			Path: path,
		}
	}
	return nil
}

func isExecutable(info os.FileInfo) bool {
	// Execute permission for user, group, or others
	return info.Mode()&0111 != 0
}
