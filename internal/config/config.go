package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
)

const launchrc = "~/.config/ade/launch.rc"

// terminalKey sets the terminal command template in the rc file.
const terminalKey = "terminal-command"

var (
	globalConfig *Config
	once         sync.Once
)

// Config holds the environment settings and the reloadable rc file settings.
type Config struct {
	static  env
	dynamic rc
	rcPath  string
	watcher *fsnotify.Watcher
}

type (
	env struct {
		Path            string `envconfig:"PATH"`
		TerminalCommand string `envconfig:"ADE_TERMINAL_COMMAND"`
		Terminal        string `envconfig:"ADE_DEFAULT_TERM"`
		Term            string `envconfig:"TERM"`
		UnixSocket      string `envconfig:"ADE_LAUNCHD_SOCK"`
		ListLimit       int    `envconfig:"ADE_LAUNCHD_LIST_LIMIT" default:"128"`
	}
	rc struct {
		sync.RWMutex
		additionalPaths []string
		terminalCommand string
	}
)

// Init initializes and loads configuration
func Init() error {
	var err error
	once.Do(func() {
		globalConfig, err = Load(expandPath(launchrc))
	})
	return err
}

// Run starts the rc file watcher loop
func Run() error {
	if globalConfig == nil {
		if err := Init(); err != nil {
			return err
		}
	}
	return globalConfig.Watch()
}

// Get returns the global config instance
func Get() *Config {
	if globalConfig == nil {
		if err := Init(); err != nil {
			log.Printf("[ERROR] Failed to initialize config: %v", err)
		}
	}
	return globalConfig
}

// Load reads the environment and the rc file at rcPath. The rc file and its
// directory are created when missing.
func Load(rcPath string) (*Config, error) {
	c := &Config{rcPath: rcPath}

	if err := envconfig.Process("", &c.static); err != nil {
		return nil, err
	}

	if c.static.UnixSocket == "" {
		currentUser, err := user.Current()
		if err != nil {
			return nil, err
		}
		c.static.UnixSocket = fmt.Sprintf("/tmp/ade-%s/launchd", currentUser.Uid)
	}
	c.static.UnixSocket = expandPath(c.static.UnixSocket)

	if err := c.loadRC(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadRC() error {
	rcDir := filepath.Dir(c.rcPath)
	if err := os.MkdirAll(rcDir, 0750); err != nil {
		return err
	}

	file, err := os.Open(c.rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			file, err = os.Create(c.rcPath)
			if err != nil {
				return err
			}
			file.Close()
			return nil
		}
		return err
	}
	defer file.Close()

	var (
		paths    []string
		template string
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok && strings.TrimSpace(key) == terminalKey {
			template = strings.TrimSpace(value)
			continue
		}
		paths = append(paths, expandPath(line))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	c.dynamic.Lock()
	c.dynamic.additionalPaths = paths
	c.dynamic.terminalCommand = template
	c.dynamic.Unlock()
	return nil
}

// Watch reloads the rc file whenever it is written or recreated.
func (c *Config) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Editors replace files, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(c.rcPath)); err != nil {
		watcher.Close()
		return err
	}

	c.watcher = watcher
	go c.watchLoop()
	return nil
}

// Close stops the rc file watcher.
func (c *Config) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *Config) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Name == c.rcPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				if err := c.loadRC(); err != nil {
					log.Printf("[ERROR] Failed to reload %s: %v", c.rcPath, err)
					continue
				}
				log.Printf("[DEBUG] Reloaded %s", c.rcPath)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] Config watcher error: %v", err)
		}
	}
}

// Path returns all paths to search (PATH + additional paths from rc)
func (c *Config) Path() []string {
	c.dynamic.RLock()
	defer c.dynamic.RUnlock()

	paths := strings.Split(c.static.Path, ":")
	filtered := make([]string, 0, len(paths)+len(c.dynamic.additionalPaths))
	for _, p := range paths {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	filtered = append(filtered, c.dynamic.additionalPaths...)
	return filtered
}

// TerminalCommand returns the terminal command template. The rc file wins over
// ADE_TERMINAL_COMMAND. Empty means not configured.
func (c *Config) TerminalCommand() string {
	c.dynamic.RLock()
	defer c.dynamic.RUnlock()
	if c.dynamic.terminalCommand != "" {
		return c.dynamic.terminalCommand
	}
	return c.static.TerminalCommand
}

// TerminalProgram returns the terminal named by ADE_DEFAULT_TERM, or TERM.
// Empty means neither is set.
func (c *Config) TerminalProgram() string {
	if c.static.Terminal != "" {
		return c.static.Terminal
	}
	return c.static.Term
}

// UnixSocket returns the Unix socket path
func (c *Config) UnixSocket() string {
	return c.static.UnixSocket
}

// ListLimit returns the configured list limit
func (c *Config) ListLimit() int {
	if c.static.ListLimit <= 0 {
		return 128 // Default
	}
	return c.static.ListLimit
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return strings.Replace(path, "~", home, 1)
	}
	return path
}
