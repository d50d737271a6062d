package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCategoryNotFound is returned when a category lookup matches no row.
	ErrCategoryNotFound = errors.New("store: category not found")
	// ErrInvalidDestination is returned when a file name yields no usable identifier.
	ErrInvalidDestination = errors.New("store: destination name is empty after sanitizing")
)

// StoreFault is any failure from the persistence layer.
type StoreFault struct {
	Op  string
	Err error
}

func (f *StoreFault) Error() string {
	return fmt.Sprintf("store: %s: %v", f.Op, f.Err)
}

func (f *StoreFault) Unwrap() error {
	return f.Err
}

// Fault wraps err as a StoreFault for op. A nil err stays nil and an existing
// fault is not wrapped twice.
func Fault(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *StoreFault
	if errors.As(err, &f) {
		return err
	}
	return &StoreFault{Op: op, Err: err}
}

// IsFault reports whether err came from the persistence layer.
func IsFault(err error) bool {
	var f *StoreFault
	return errors.As(err, &f)
}
