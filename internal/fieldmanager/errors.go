package fieldmanager

import (
	"errors"
	"fmt"
)

// ErrNotFieldable is wrapped by the LogicError returned for entity types
// without fields
var ErrNotFieldable = errors.New("entity type is not fieldable")

// LogicError reports a structural problem in the field definitions of an
// entity type. It is not recoverable: the definitions must be fixed.
type LogicError struct {
	EntityType string
	Field      string
	Reason     string
	Err        error
}

// Error implements the error interface
func (e *LogicError) Error() string {
	msg := fmt.Sprintf("invalid field definitions for entity type %s", e.EntityType)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *LogicError) Unwrap() error {
	return e.Err
}

// IsLogicError checks if an error is or wraps a LogicError
func IsLogicError(err error) bool {
	var le *LogicError
	return errors.As(err, &le)
}

func logicError(entityType, fieldName, format string, args ...any) *LogicError {
	return &LogicError{
		EntityType: entityType,
		Field:      fieldName,
		Reason:     fmt.Sprintf(format, args...),
	}
}
