package executor

import "errors"

var (
	// ErrNotFound is returned when Execute is called with an ID missing from the map.
	ErrNotFound = errors.New("entry not found")
	// ErrConfigParse is returned when the terminal command template cannot be split into words.
	ErrConfigParse = errors.New("failed to parse terminal command")
	// ErrSpawn is returned when the launch process cannot be started.
	ErrSpawn = errors.New("failed to start command")
)
