// Package server serves the live entry map over a Unix socket using the TXT01
// text protocol.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/0xADE/ade-launch/internal/config"
	"github.com/0xADE/ade-launch/internal/entry"
	"github.com/0xADE/ade-launch/internal/executor"
	"github.com/0xADE/ade-launch/internal/indexer"
	"github.com/0xADE/ade-launch/parser"
)

const protoVer = "TXT01"

// Server handles Unix socket connections and command execution
type Server struct {
	listener net.Listener
	indexer  *indexer.Indexer
	running  bool
	mu       sync.RWMutex
	ctx      context.Context
	filters  *Filters

	// entriesMu serializes every use of entries: run, list and reindex.
	entriesMu sync.Mutex
	entries   *entry.Map
	executor  *executor.Executor
	// terminal, when set, is consulted on every run so rc file edits apply
	// without a restart.
	terminal  func() executor.Terminal
	listLimit int
}

// Filters stores current filter settings and the display language
type Filters struct {
	mu          sync.RWMutex
	nameFilters []FilterExpr
	catFilters  []FilterExpr
	pathFilters []FilterExpr
	lang        string
}

// FilterExpr represents a filter expression
type FilterExpr struct {
	Values []string
	Op     string // "or", "and", "not"
}

// NewServer listens on the configured socket and serves entries.
func NewServer(idx *indexer.Indexer, entries *entry.Map, exec *executor.Executor) (*Server, error) {
	cfg := config.Get()
	socketPath := cfg.UnixSocket()

	socketDir := filepath.Dir(socketPath)
	if err := os.MkdirAll(socketDir, 0700); err != nil {
		return nil, err
	}

	// Remove a stale socket left by a previous run
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}

	s := newServer(idx, entries, exec)
	s.listener = listener
	s.listLimit = cfg.ListLimit()
	s.terminal = func() executor.Terminal {
		c := config.Get()
		return executor.Terminal{Template: c.TerminalCommand(), Program: c.TerminalProgram()}
	}
	return s, nil
}

func newServer(idx *indexer.Indexer, entries *entry.Map, exec *executor.Executor) *Server {
	if entries == nil {
		entries = entry.NewMap()
	}
	return &Server{
		indexer:  idx,
		entries:  entries,
		executor: exec,
		filters:  &Filters{lang: "en"},
	}
}

// Start accepts connections until the context is cancelled or Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			running := s.running
			s.mu.RUnlock()
			if !running {
				return ctx.Err()
			}
			log.Printf("[WARN] Accept failed: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.listener.Close()
}

// Entries returns the live entry map. Callers must not use it while the server runs.
func (s *Server) Entries() *entry.Map {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	return s.entries
}

func (s *Server) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log.Printf("[DEBUG] New connection accepted")

	p, err := parser.NewParser(conn)
	if err != nil {
		log.Printf("[ERROR] Failed to create parser: %v", err)
		s.writeError(conn, "parser", "invalid header", err.Error())
		return
	}
	if p.Version() != protoVer[3:] {
		log.Printf("[ERROR] Unsupported protocol version: %s", p.Version())
		s.writeError(conn, "parser", "unsupported version", "only "+protoVer+" is spoken")
		return
	}

	for {
		cmd, err := p.ParseCommand()
		if err == io.EOF {
			log.Printf("[DEBUG] Connection closed by client")
			return
		}
		if err != nil {
			log.Printf("[ERROR] Parse error: %v", err)
			s.writeError(conn, "parser", "parse error", err.Error())
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		log.Printf("[DEBUG] Executing command: %s with %d args", cmd.Name, len(cmd.Args))
		s.executeCommand(conn, cmd)
	}
}

func (s *Server) executeCommand(conn io.Writer, cmd *parser.Command) {
	switch cmd.Name {
	case "+filter-name":
		s.addFilter(conn, cmd, &s.filters.nameFilters, "or")
	case "+filter-cat":
		s.addFilter(conn, cmd, &s.filters.catFilters, "and")
	case "+filter-path":
		s.addFilter(conn, cmd, &s.filters.pathFilters, "or")
	case "0filters":
		s.handleResetFilters(conn)
	case "list":
		s.handleList(conn)
	case "run":
		s.handleRun(conn, cmd)
	case "lang":
		s.handleLang(conn, cmd)
	case "reindex":
		s.handleReindex(conn, cmd)
	default:
		s.writeError(conn, cmd.Name, "unknown command", "Command not recognized")
	}
}

func (s *Server) addFilter(conn io.Writer, cmd *parser.Command, target *[]FilterExpr, defaultOp string) {
	expr := FilterExpr{Op: defaultOp}
	for _, arg := range cmd.Args {
		switch arg.Type {
		case parser.TypeString:
			expr.Values = append(expr.Values, arg.Str)
		case parser.TypeOp:
			expr.Op = arg.Str
		default:
			s.writeError(conn, cmd.Name, "invalid argument", "filters take strings and or/and/not")
			return
		}
	}

	s.filters.mu.Lock()
	if len(expr.Values) > 0 {
		*target = append(*target, expr)
		log.Printf("[DEBUG] Added %s filter: %v (op: %s)", cmd.Name, expr.Values, expr.Op)
	}
	s.filters.mu.Unlock()

	s.writeResponse(conn, []string{"cmd: " + cmd.Name, "status: 0"}, nil)
}

func (s *Server) handleResetFilters(conn io.Writer) {
	log.Printf("[DEBUG] Resetting all filters")
	s.filters.mu.Lock()
	s.filters.nameFilters = nil
	s.filters.catFilters = nil
	s.filters.pathFilters = nil
	s.filters.mu.Unlock()

	s.writeResponse(conn, []string{"cmd: 0filters", "status: 0"}, nil)
}

func (s *Server) handleList(conn io.Writer) {
	s.filters.mu.RLock()
	lang := s.filters.lang
	s.entriesMu.Lock()
	ranked := s.entries.Ranked()
	var filtered []*entry.Entry
	for _, e := range ranked {
		if s.matchesFilters(e) {
			filtered = append(filtered, e)
		}
	}
	body := make([]string, 0, len(filtered))
	for i, e := range filtered {
		if s.listLimit > 0 && i >= s.listLimit {
			break
		}
		body = append(body, fmt.Sprintf("%s\t%d\t%s", e.ID, e.Count, e.DisplayName(lang)))
	}
	s.entriesMu.Unlock()
	s.filters.mu.RUnlock()

	log.Printf("[DEBUG] Found %d entries after filtering (total: %d)", len(filtered), len(ranked))

	attrs := []string{
		"cmd: list",
		fmt.Sprintf("list-len: %d", len(filtered)),
		fmt.Sprintf("shown: %d", len(body)),
	}
	s.writeResponse(conn, attrs, body)
}

func (s *Server) handleRun(conn io.Writer, cmd *parser.Command) {
	if len(cmd.Args) == 0 || cmd.Args[0].Type != parser.TypeString {
		log.Printf("[ERROR] Run command missing id parameter")
		s.writeError(conn, "run", "missing id", "run command requires an identifier string")
		return
	}
	id := cmd.Args[0].Str

	exec := s.executor
	if s.terminal != nil {
		exec = exec.WithTerminal(s.terminal())
	}

	s.entriesMu.Lock()
	err := exec.Execute(id, s.entries)
	var count uint64
	if e, ok := s.entries.Get(id); ok {
		count = e.Count
	}
	s.entriesMu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, executor.ErrNotFound):
		s.writeError(conn, "run", "index not found", "Can't run application, requested index not found.")
		return
	case errors.Is(err, executor.ErrConfigParse):
		s.writeError(conn, "run", "invalid terminal command", err.Error())
		return
	case errors.Is(err, executor.ErrSpawn):
		s.writeError(conn, "run", "execution failed", err.Error())
		return
	default:
		s.writeError(conn, "run", "history not saved", err.Error())
		return
	}

	s.writeResponse(conn, []string{
		"cmd: run",
		"id: " + id,
		"status: 0",
		fmt.Sprintf("count: %d", count),
	}, nil)
}

func (s *Server) handleLang(conn io.Writer, cmd *parser.Command) {
	if len(cmd.Args) == 0 || cmd.Args[0].Type != parser.TypeString {
		log.Printf("[WARN] Lang command missing string parameter")
		s.writeError(conn, "lang", "missing parameter", "lang command requires a string parameter")
		return
	}
	s.filters.mu.Lock()
	s.filters.lang = cmd.Args[0].Str
	s.filters.mu.Unlock()
	log.Printf("[DEBUG] Language set to: %s", cmd.Args[0].Str)

	s.writeResponse(conn, []string{"cmd: lang", "status: 0", "lang: " + cmd.Args[0].Str}, nil)
}

func (s *Server) handleReindex(conn io.Writer, cmd *parser.Command) {
	paths := cmd.Strings()
	if len(paths) != len(cmd.Args) {
		s.writeError(conn, "reindex", "invalid argument", "reindex takes path strings only")
		return
	}
	for i, p := range paths {
		paths[i] = expandHome(p)
	}

	count, err := s.indexer.Reindex(s.context(), paths)
	if err != nil {
		s.writeError(conn, "reindex", "reindex failed", err.Error())
		return
	}

	s.entriesMu.Lock()
	s.entries = entry.Merge(s.entries, s.indexer.Entries())
	total := s.entries.Len()
	s.entriesMu.Unlock()

	s.writeResponse(conn, []string{
		"cmd: reindex",
		"status: 0",
		fmt.Sprintf("indexed: %d", count),
		fmt.Sprintf("entries: %d", total),
	}, nil)
}

// matchesFilters reports whether e passes every filter group. Callers hold filters.mu.
func (s *Server) matchesFilters(e *entry.Entry) bool {
	return matchesAny(s.filters.nameFilters, func(v string) bool { return matchesName(e, v) }) &&
		matchesAny(s.filters.catFilters, func(v string) bool { return matchesCategory(e, v) }) &&
		matchesAny(s.filters.pathFilters, func(v string) bool { return strings.Contains(e.ID, v) })
}

// matchesAny is true when there are no filters or one of them matches.
func matchesAny(filters []FilterExpr, match func(string) bool) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.matches(match) {
			return true
		}
	}
	return false
}

func (f FilterExpr) matches(match func(string) bool) bool {
	switch f.Op {
	case "and":
		for _, v := range f.Values {
			if !match(v) {
				return false
			}
		}
		return true
	case "not":
		for _, v := range f.Values {
			if match(v) {
				return false
			}
		}
		return true
	default:
		for _, v := range f.Values {
			if match(v) {
				return true
			}
		}
		return false
	}
}

func matchesName(e *entry.Entry, value string) bool {
	value = strings.ToLower(value)
	if strings.Contains(strings.ToLower(e.DisplayName("")), value) {
		return true
	}
	for _, name := range e.Names {
		if strings.Contains(strings.ToLower(name), value) {
			return true
		}
	}
	return false
}

func matchesCategory(e *entry.Entry, value string) bool {
	for _, cat := range e.Categories {
		if strings.EqualFold(cat, value) {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + rest
		}
	}
	return path
}

// writeResponse writes one framed response: the TXT01 header, the attribute
// lines, an optional body block, and a terminating empty line.
func (s *Server) writeResponse(conn io.Writer, attrs, body []string) {
	w := bufio.NewWriter(conn)
	fmt.Fprintln(w, protoVer)
	for _, a := range attrs {
		fmt.Fprintln(w, a)
	}
	if body != nil {
		fmt.Fprintln(w, "body:")
		for _, line := range body {
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)
	if err := w.Flush(); err != nil {
		log.Printf("[ERROR] Failed to write response: %v", err)
	}
}

func (s *Server) writeError(conn io.Writer, cmd, errType, desc string) {
	log.Printf("[ERROR] Writing error response: cmd=%s, type=%s, desc=%s", cmd, errType, desc)
	s.writeResponse(conn, []string{
		"error-cmd: " + cmd,
		"error: " + errType,
		"desc: " + desc,
	}, nil)
}
