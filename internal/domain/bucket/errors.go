package bucket

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrValidation     = errors.New("invalid bucket spec")
)

// ValidationError lists offending fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, tag))
	}
	sort.Strings(parts)
	return "invalid bucket spec: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
