package study

import (
	"errors"
	"fmt"
)

var (
	// ErrDefinitionInvalid is returned when a required attribute is missing.
	ErrDefinitionInvalid = errors.New("study definition invalid")
	// ErrRetrieval is returned when a remote registry responds with a non-success status.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrNotFound is returned when a local document path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCoercion is returned when an enumerated flag has an unexpected type.
	ErrCoercion = errors.New("coercion failed")
)

// CoercionError names the Go type a yes/no flag received.
type CoercionError struct {
	Type string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("unexpected value type %s for yes/no flag", e.Type)
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// requireFields fails with ErrDefinitionInvalid naming the first field of
// names that f does not carry.
func requireFields(entity string, f Fragment, names ...string) error {
	for _, name := range names {
		if !f.Has(name) {
			return fmt.Errorf("%w: missing required attribute %s from %s", ErrDefinitionInvalid, name, entity)
		}
	}
	return nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
