package presence

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrStartInProgress = errors.New("a start is already in progress")
	ErrInvalidInput    = errors.New("invalid start request")
	ErrRemoteWrite     = errors.New("remote write failed")
)

// ValidationError lists per-field problems with a StartRequest.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid start request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
