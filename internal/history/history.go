// Package history persists entry usage counts in a TOML file under the user cache directory.
//
// The whole map is rewritten on every save; there is no locking, so two launchers
// saving at the same time race and the last writer wins.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/0xADE/ade-launch/internal/entry"
)

const (
	appDir          = "ade-launch"
	historyFile     = "history.toml"
	dirPermissions  = 0750
	filePermissions = 0600
)

var (
	// ErrCorrupt is returned when the history file does not match the schema.
	ErrCorrupt = errors.New("history file is broken")
	// ErrUnreadable is returned when the history file cannot be opened or read.
	ErrUnreadable = errors.New("failed to read history file")
	// ErrUnwritable is returned when the history file cannot be written.
	ErrUnwritable = errors.New("failed to write history file")
)

// record is the persisted form of an entry. Field names are part of the file format.
type record struct {
	Exec     string `toml:"exec"`
	Desktop  bool   `toml:"desktop"`
	Terminal bool   `toml:"terminal"`
	Count    uint64 `toml:"count"`
}

// Store reads and writes the history file.
type Store struct {
	cacheHome string
}

// NewStore returns a store rooted at the XDG cache home.
func NewStore() *Store {
	return NewStoreWithCacheDir(xdg.CacheHome)
}

// NewStoreWithCacheDir returns a store rooted at cacheDir instead of the XDG cache home.
func NewStoreWithCacheDir(cacheDir string) *Store {
	return &Store{cacheHome: cacheDir}
}

// Path resolves the history file, creating its directory and an empty file when
// they are missing. An existing file is never truncated.
func (s *Store) Path() (string, error) {
	dir := filepath.Join(s.cacheHome, appDir)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(dir, historyFile)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, nil
		}
		return "", fmt.Errorf("failed to create history file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to create history file: %w", err)
	}
	return path, nil
}

// Load reads the whole history file. An empty file yields an empty map.
func (s *Store) Load() (*entry.Map, error) {
	path, err := s.Path()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return decode(data)
}

// Save replaces the history file with the full contents of m.
func (s *Store) Save(m *entry.Map) error {
	path, err := s.Path()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnwritable, err)
	}

	data, err := encode(m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnwritable, err)
	}

	if err := replaceFile(path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnwritable, err)
	}
	return nil
}

func decode(data []byte) (*entry.Map, error) {
	var records map[string]record
	md, err := toml.Decode(string(data), &records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	// Map decoding loses document order; MetaData keeps it.
	m := entry.NewMap()
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		id := key[0]
		rec, ok := records[id]
		if !ok {
			continue
		}
		m.Set(&entry.Entry{
			ID:        id,
			Exec:      rec.Exec,
			IsDesktop: rec.Desktop,
			Terminal:  rec.Terminal,
			Count:     rec.Count,
		})
	}
	return m, nil
}

func encode(m *entry.Map) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := checkRecord(e); err != nil {
			return nil, err
		}
		// One table per call so the map order survives; the encoder sorts map keys.
		enc := toml.NewEncoder(&buf)
		enc.Indent = ""
		table := map[string]record{
			e.ID: {
				Exec:     e.Exec,
				Desktop:  e.IsDesktop,
				Terminal: e.Terminal,
				Count:    e.Count,
			},
		}
		if err := enc.Encode(table); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// checkRecord rejects entries that would encode but not decode: TOML strings
// must be UTF-8 and TOML integers are signed 64-bit.
func checkRecord(e *entry.Entry) error {
	if !utf8.ValidString(e.ID) {
		return fmt.Errorf("identifier %q is not valid UTF-8", e.ID)
	}
	if !utf8.ValidString(e.Exec) {
		return fmt.Errorf("exec of %q is not valid UTF-8", e.ID)
	}
	if e.Count > math.MaxInt64 {
		return fmt.Errorf("count of %q exceeds %d", e.ID, int64(math.MaxInt64))
	}
	return nil
}

// replaceFile writes data next to path and renames it over path.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+historyFile+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
