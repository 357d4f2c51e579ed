package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCheckpointNotFound is returned when reverting to a checkpoint index that does not exist.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrNodeNotFound is returned when an address or id does not resolve to a node.
var ErrNodeNotFound = errors.New("node not found")

// ErrInvalidCartridge is returned when a compiled story cannot be decoded or validated.
var ErrInvalidCartridge = errors.New("invalid cartridge")

// ErrUnavailable is returned by collaborators that are not configured.
var ErrUnavailable = errors.New("service unavailable")

// ExtractionError reports required input fields that could not be extracted.
type ExtractionError struct {
	Missing []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract required fields: %s", strings.Join(e.Missing, ", "))
}
