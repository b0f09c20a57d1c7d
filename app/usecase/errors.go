package usecase

import (
	"errors"
	"fmt"
)

// ErrEmptyGeneration means the upstream call succeeded but returned no text.
var ErrEmptyGeneration = errors.New("generation returned no content")

// StorageError is a failed schema lookup. A missing record is not a StorageError.
type StorageError struct {
	Pattern string
	Method  string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("lookup schema %s %s: %v", e.Method, e.Pattern, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// GenerationError is a failed upstream completion call.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError is a failed schema write after a successful generation.
type PersistenceError struct {
	Pattern string
	Method  string
	Mode    string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist schema %s %s (%s): %v", e.Method, e.Pattern, e.Mode, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
