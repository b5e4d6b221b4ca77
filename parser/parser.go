package parser

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ValueType represents the type of a value on the stack
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeBool
	TypeOp // boolean operator keyword: or, and, not
)

// Value represents a value on the stack
type Value struct {
	Type ValueType
	Str  string // string contents, or the operator keyword for TypeOp
	Int  int64
	Bool bool
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []Value
}

// Strings returns the string arguments in stack order.
func (c *Command) Strings() []string {
	var out []string
	for _, arg := range c.Args {
		if arg.Type == TypeString {
			out = append(out, arg.Str)
		}
	}
	return out
}

// Commands understood by the daemon.
var commands = []string{
	"+filter-name",
	"+filter-cat",
	"+filter-path",
	"0filters",
	"list",
	"run",
	"lang",
	"reindex", // accepts any number of path strings
}

// Parser parses Forth-style commands
type Parser struct {
	reader  *bufio.Reader
	header  string
	version string
}

// NewParser reads the TXT header and returns a parser for the commands that follow.
func NewParser(reader io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(reader),
	}

	headerBytes := make([]byte, 5)
	if _, err := io.ReadFull(p.reader, headerBytes); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	p.header = string(headerBytes[:3])
	p.version = string(headerBytes[3:5])

	if p.header != "TXT" {
		return nil, fmt.Errorf("unsupported format: %s", p.header)
	}

	return p, nil
}

// Version returns the protocol version from the header, e.g. "01".
func (p *Parser) Version() string {
	return p.version
}

// ParseCommand pushes values until a command word and returns the command
// with the collected stack. Blank lines and # comments are skipped.
func (p *Parser) ParseCommand() (*Command, error) {
	stack := make([]Value, 0)

	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF && len(stack) > 0 {
				return nil, fmt.Errorf("unterminated command: %d values without a command", len(stack))
			}
			return nil, err
		}

		line = strings.TrimLeft(strings.TrimRight(line, "\r\n"), " \t")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if cmd := parseCommand(line); cmd != "" {
			return &Command{
				Name: cmd,
				Args: stack,
			}, nil
		}

		value, perr := parseValue(line)
		if perr != nil {
			return nil, fmt.Errorf("parse error: %w", perr)
		}
		stack = append(stack, value)

		if err == io.EOF {
			return nil, fmt.Errorf("unterminated command: %d values without a command", len(stack))
		}
	}
}

func parseCommand(line string) string {
	line = strings.TrimSpace(line)
	if slices.Contains(commands, line) {
		return line
	}
	return ""
}

func parseValue(line string) (Value, error) {
	// String value, prefixed with ". The rest of the line is taken verbatim.
	if str, ok := strings.CutPrefix(line, `"`); ok {
		return Value{Type: TypeString, Str: str}, nil
	}

	line = strings.TrimSpace(line)

	switch line {
	case "t":
		return Value{Type: TypeBool, Bool: true}, nil
	case "f":
		return Value{Type: TypeBool, Bool: false}, nil
	case "or", "and", "not":
		return Value{Type: TypeOp, Str: line}, nil
	}

	if intVal, err := strconv.ParseInt(line, 10, 64); err == nil {
		return Value{Type: TypeInt, Int: intVal}, nil
	}

	return Value{}, fmt.Errorf("cannot parse value: %s", line)
}

// ReadAllCommands reads all commands from the parser
func (p *Parser) ReadAllCommands() ([]*Command, error) {
	var commands []*Command

	for {
		cmd, err := p.ParseCommand()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}
