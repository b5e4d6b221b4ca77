package desktop

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DesktopEntry represents a parsed .desktop file
type DesktopEntry struct {
	Name       string            // Default name
	Names      map[string]string // Localized names (locale -> name)
	Exec       string            // Exec command, field codes left in place
	Terminal   bool              // Whether to run in terminal
	Categories []string          // Application categories
	NoDisplay  bool              // NoDisplay or Hidden is set
	Path       string            // Path to .desktop file
}

// ScanDesktopFiles scans dirs recursively for .desktop files
func ScanDesktopFiles(dirs []string, resultChan chan<- *DesktopEntry) error {
	defer close(resultChan)

	for _, dir := range dirs {
		if err := scanDesktopPath(dir, resultChan); err != nil {
			// Continue scanning other paths
			continue
		}
	}

	return nil
}

func scanDesktopPath(rootPath string, resultChan chan<- *DesktopEntry) error {
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
			return nil
		}

		entry, err := ParseDesktopFile(path)
		if err != nil {
			// Skip invalid files
			return nil
		}

		resultChan <- entry
		return nil
	})
}

// ParseDesktopFile parses a single .desktop file. Only the [Desktop Entry]
// group is read, and only entries of type Application are accepted.
func ParseDesktopFile(path string) (*DesktopEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entry := &DesktopEntry{
		Path:  path,
		Names: make(map[string]string),
	}
	entryType := ""

	scanner := bufio.NewScanner(file)
	var inDesktopEntry bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inDesktopEntry = strings.Trim(line, "[]") == "Desktop Entry"
			continue
		}

		if !inDesktopEntry {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Type":
			entryType = value
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "Terminal":
			entry.Terminal = parseBool(value)
		case "NoDisplay", "Hidden":
			entry.NoDisplay = entry.NoDisplay || parseBool(value)
		case "Categories":
			// Categories are semicolon-separated
			for _, cat := range strings.Split(value, ";") {
				if cat = strings.TrimSpace(cat); cat != "" {
					entry.Categories = append(entry.Categories, cat)
				}
			}
		default:
			// Localized Name[locale]
			if locale, ok := strings.CutPrefix(key, "Name["); ok && strings.HasSuffix(locale, "]") {
				entry.Names[strings.TrimSuffix(locale, "]")] = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if entryType != "" && entryType != "Application" {
		return nil, fmt.Errorf("%s: unsupported type %q", path, entryType)
	}
	if entry.Exec == "" {
		return nil, fmt.Errorf("%s: missing Exec", path)
	}
	// Path and Exec are persisted in the history file, which must be UTF-8
	if !utf8.ValidString(path) || !utf8.ValidString(entry.Exec) {
		return nil, fmt.Errorf("%q: not valid UTF-8", path)
	}

	if entry.Name == "" {
		entry.Name = strings.TrimSuffix(filepath.Base(path), ".desktop")
	}

	return entry, nil
}

// GetLocalizedName returns the localized name for the given locale, or default name
func (d *DesktopEntry) GetLocalizedName(locale string) string {
	if locale == "" {
		return d.Name
	}

	if name, ok := d.Names[locale]; ok {
		return name
	}

	// Language part, e.g. "en" from "en_US" or "en-US"
	if i := strings.IndexAny(locale, "_-"); i > 0 {
		if name, ok := d.Names[locale[:i]]; ok {
			return name
		}
	}

	return d.Name
}

func parseBool(value string) bool {
	return strings.EqualFold(value, "true")
}
