package main

import (
	"fmt"
	"math"
)

// EOFBehaviour governs what an input command does when no input remains.
type EOFBehaviour int

const (
	// EOFIgnore leaves the current cell untouched on exhausted input.
	// This is the default.
	EOFIgnore EOFBehaviour = iota
	// EOFZero sets the current cell to 0 on exhausted input.
	EOFZero
)

func (b EOFBehaviour) String() string {
	switch b {
	case EOFIgnore:
		return "ignore"
	case EOFZero:
		return "zero"
	default:
		return fmt.Sprintf("EOFBehaviour(%d)", int(b))
	}
}

// ParseEOFBehaviour parses the --eof-behaviour flag value.
func ParseEOFBehaviour(s string) (EOFBehaviour, error) {
	switch s {
	case "ignore":
		return EOFIgnore, nil
	case "zero":
		return EOFZero, nil
	default:
		return 0, &ConfigError{Reason: fmt.Sprintf("unknown eof-behaviour %q (want ignore or zero)", s)}
	}
}

// DefaultArraySize is the tape length used when --array-size is not given.
const DefaultArraySize = 30000

// Config holds the options shared by the interpreter and the code generator.
// It is fixed for the duration of one run or compile.
type Config struct {
	ArraySize int // tape length in cells, must be positive
	EOF       EOFBehaviour
}

// ConfigError reports an invalid configuration option before any pipeline
// stage runs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Validate rejects configurations no pipeline stage should ever see.
func (c Config) Validate() error {
	if c.ArraySize < 1 {
		return &ConfigError{Reason: fmt.Sprintf("array-size must be positive, got %d", c.ArraySize)}
	}
	// Generated code passes the tape size to calloc as a 32-bit immediate.
	if c.ArraySize > math.MaxInt32 {
		return &ConfigError{Reason: fmt.Sprintf("array-size must fit in 32 bits, got %d", c.ArraySize)}
	}
	switch c.EOF {
	case EOFIgnore, EOFZero:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown eof-behaviour %d", int(c.EOF))}
	}
	return nil
}
