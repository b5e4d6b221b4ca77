// Package executor decides how an entry is launched, starts it detached from the
// launcher and persists the updated usage counts.
package executor

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/0xADE/ade-launch/internal/entry"
)

const defaultShell = "sh"

// Saver persists the full entry map.
type Saver interface {
	Save(entries *entry.Map) error
}

// Spawner starts a shell command line without waiting for it.
type Spawner interface {
	Spawn(command string) error
}

// Mode is the launch strategy of an entry.
type Mode int

const (
	// ModeCommand runs a bare executable as is.
	ModeCommand Mode = iota
	// ModeApp runs a desktop entry with its field codes removed.
	ModeApp
	// ModeTerminal runs a desktop entry inside a terminal emulator.
	ModeTerminal
)

func (m Mode) String() string {
	switch m {
	case ModeCommand:
		return "command"
	case ModeApp:
		return "app"
	case ModeTerminal:
		return "terminal"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Classify returns the launch mode of e.
func Classify(e *entry.Entry) Mode {
	switch {
	case !e.IsDesktop:
		return ModeCommand
	case !e.Terminal:
		return ModeApp
	default:
		return ModeTerminal
	}
}

// Executor launches entries and records their usage.
// It keeps no mutable state; the entry map passed to Execute is the only thing it changes.
type Executor struct {
	store      Saver
	spawner    Spawner
	terminal   Terminal
	fieldCodes *FieldCodes
}

// Option configures an Executor.
type Option func(*Executor)

// WithSpawner replaces the detached process spawner.
func WithSpawner(s Spawner) Option {
	return func(e *Executor) {
		e.spawner = s
	}
}

// WithTerminal sets how terminal applications are wrapped.
func WithTerminal(t Terminal) Option {
	return func(e *Executor) {
		e.terminal = t
	}
}

// WithFieldCodes shares an already compiled field code stripper.
func WithFieldCodes(fc *FieldCodes) Option {
	return func(e *Executor) {
		e.fieldCodes = fc
	}
}

// New creates an executor that saves history through store.
func New(store Saver, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		spawner: DetachedSpawner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fieldCodes == nil {
		e.fieldCodes = NewFieldCodes()
	}
	return e
}

// WithTerminal returns a copy of e using t. The compiled field codes are shared.
func (e *Executor) WithTerminal(t Terminal) *Executor {
	c := *e
	c.terminal = t
	return &c
}

// Terminal returns the terminal configuration in use.
func (e *Executor) Terminal() Terminal {
	return e.terminal
}

// Execute launches the entry stored under id and saves the whole map.
//
// The count is incremented before anything is started. If the command cannot be
// built or started the increment stays in memory and nothing is saved.
func (e *Executor) Execute(id string, entries *entry.Map) error {
	ent, ok := entries.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ent.Count++

	command, err := e.Command(ent)
	if err != nil {
		return err
	}

	log.Printf("[DEBUG] Executing %s (%s): %s", id, Classify(ent), command)
	if err := e.spawn(command); err != nil {
		return err
	}

	if err := e.store.Save(entries); err != nil {
		return fmt.Errorf("failed to save history after launching %s: %w", id, err)
	}
	return nil
}

// Command builds the shell command line for ent.
func (e *Executor) Command(ent *entry.Entry) (string, error) {
	cmd := strings.TrimSpace(ent.Exec)

	switch Classify(ent) {
	case ModeCommand:
		return cmd, nil
	case ModeApp:
		return e.fieldCodes.Strip(cmd), nil
	default:
		return e.terminal.Wrap(e.fieldCodes.Strip(cmd))
	}
}

// ExecPretrimmed launches a raw command line without touching history.
func (e *Executor) ExecPretrimmed(command string) error {
	command = strings.TrimSpace(command)
	log.Printf("[DEBUG] Executing raw command: %s", command)
	return e.spawn(command)
}

func (e *Executor) spawn(command string) error {
	if err := e.spawner.Spawn(command); err != nil {
		if errors.Is(err, ErrSpawn) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	return nil
}
