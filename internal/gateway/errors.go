package gateway

import (
	"errors"
	"strings"
)

// ErrUnauthorized is returned when a record's ownership field does not
// match the acting identity. Distinct from validation failure: the
// validator never runs for a foreign record.
var ErrUnauthorized = errors.New("record does not belong to the acting user")

// ErrInvalidDataType is returned for an unsupported entity type. This is a
// programmer error, never retried.
var ErrInvalidDataType = errors.New("unsupported entity type")

// ValidationError aggregates every rule violation found in one pass so the
// caller can present all of them at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}
