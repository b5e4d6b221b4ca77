// Package exe is a client for the ade-launchd TXT01 protocol.
package exe

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

// Application represents one row of a list response
type Application struct {
	ID    string
	Count uint64
	Name  string
}

// Response is one framed reply from the daemon
type Response struct {
	Attrs   map[string]string
	Keys    []string // attribute keys in wire order
	Body    []string
	HasBody bool
}

// Err returns the server error carried by r, if any.
func (r *Response) Err() error {
	if msg, ok := r.Attrs["error"]; ok {
		if desc := r.Attrs["desc"]; desc != "" {
			return fmt.Errorf("server error: %s: %s: %s", r.Attrs["error-cmd"], msg, desc)
		}
		return fmt.Errorf("server error: %s: %s", r.Attrs["error-cmd"], msg)
	}
	return nil
}

// Client handles connection to the ade-launchd server
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

const protoVer = "TXT01" // cmdlist protocol, text format, v01

// NewClient connects to the daemon listening on socketPath
func NewClient(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", socketPath, err)
	}

	c, err := NewClientConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClientConn speaks the protocol over an established connection
func NewClientConn(conn net.Conn) (*Client, error) {
	if _, err := fmt.Fprintf(conn, "%s\n", protoVer); err != nil {
		return nil, fmt.Errorf("failed to send header: %w", err)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// FormatArgument formats an argument according to its type
func FormatArgument(arg string) string {
	arg = strings.TrimSpace(arg)

	// If starts with ", it's a string (keep prefix)
	if strings.HasPrefix(arg, `"`) {
		return arg
	}

	switch arg {
	case "t", "f", "or", "and", "not":
		return arg
	}

	if _, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return arg
	}

	// Default: treat as string (add prefix)
	return `"` + arg
}

// SendCommand sends a command with type-detected arguments
func (c *Client) SendCommand(cmdName string, args []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(cmdName, args)
}

func (c *Client) send(cmdName string, args []string) error {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(FormatArgument(arg))
		b.WriteByte('\n')
	}
	b.WriteString(cmdName)
	b.WriteByte('\n')

	if _, err := io.WriteString(c.conn, b.String()); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmdName, err)
	}
	return nil
}

// ReadResponse reads the next framed response
func (c *Client) ReadResponse() (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readResponse()
}

// Call sends a command and waits for its response. Server errors are returned
// together with the response.
func (c *Client) Call(cmdName string, args []string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(cmdName, args); err != nil {
		return nil, err
	}
	resp, err := c.readResponse()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, resp.Err()
}

// ResetFilters resets all filters
func (c *Client) ResetFilters() error {
	_, err := c.Call("0filters", nil)
	return err
}

// SetFilterName adds a name filter, or resets filters for an empty query
func (c *Client) SetFilterName(query string) error {
	if query == "" {
		return c.ResetFilters()
	}
	_, err := c.Call("+filter-name", []string{`"` + query})
	return err
}

// SetLang selects the language used for display names
func (c *Client) SetLang(lang string) error {
	_, err := c.Call("lang", []string{`"` + lang})
	return err
}

// List retrieves the applications matching current filters, most used first
func (c *Client) List() ([]Application, error) {
	resp, err := c.Call("list", nil)
	if err != nil {
		return nil, err
	}

	apps := make([]Application, 0, len(resp.Body))
	for _, line := range resp.Body {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		count, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			continue
		}
		apps = append(apps, Application{
			ID:    parts[0],
			Count: count,
			Name:  parts[2],
		})
	}
	return apps, nil
}

// Run launches the entry with the given identifier and returns its new count
func (c *Client) Run(id string) (uint64, error) {
	resp, err := c.Call("run", []string{`"` + id})
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(resp.Attrs["count"], 10, 64)
}

// Reindex rescans paths, or the configured search path when none are given,
// and returns the number of discovered entries
func (c *Client) Reindex(paths ...string) (int, error) {
	args := make([]string, len(paths))
	for i, p := range paths {
		args[i] = `"` + p
	}
	resp, err := c.Call("reindex", args)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp.Attrs["indexed"])
}

func (c *Client) readResponse() (*Response, error) {
	header, err := c.reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response header: %w", err)
	}
	if !strings.HasPrefix(header, protoVer) {
		return nil, fmt.Errorf("unexpected response header %q", strings.TrimSpace(header))
	}

	resp := &Response{Attrs: make(map[string]string)}
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		// An empty line ends the response, with or without a body
		if line == "" {
			return resp, nil
		}

		if resp.HasBody {
			resp.Body = append(resp.Body, line)
			continue
		}
		if line == "body:" {
			resp.HasBody = true
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			key = strings.TrimSpace(key)
			if _, seen := resp.Attrs[key]; !seen {
				resp.Keys = append(resp.Keys, key)
			}
			resp.Attrs[key] = strings.TrimSpace(value)
		}
	}
}

// WriteTo prints the response in wire order, without the header
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, k := range r.Keys {
		fmt.Fprintf(&b, "%s: %s\n", k, r.Attrs[k])
	}
	if r.HasBody {
		b.WriteString("body:\n")
		for _, line := range r.Body {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
