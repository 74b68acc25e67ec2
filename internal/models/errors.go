package models

import "fmt"

// ConfigurationError reports an invalid catalog/registry definition: duplicate
// keys, unknown references, or linkage that cannot be satisfied. It is raised
// at registration or during engine pre-flight, and is fatal to that run.
type ConfigurationError struct {
	Ref string // the offending code, name, or id
	Msg string
}

func (e *ConfigurationError) Error() string {
	if e.Ref == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid configuration for %q: %s", e.Ref, e.Msg)
}

func NewConfigurationError(ref, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Ref: ref, Msg: fmt.Sprintf(format, args...)}
}

// SerializationError reports a malformed or schema-incompatible persisted
// schedule or configuration. Field names the offending location; the load is
// aborted, never coerced.
type SerializationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Field == "" {
		return "serialization error: " + e.Msg
	}
	return fmt.Sprintf("serialization error in field %q: %s", e.Field, e.Msg)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func NewSerializationError(field, format string, args ...any) *SerializationError {
	return &SerializationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
