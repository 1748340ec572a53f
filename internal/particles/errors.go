package particles

import (
	"errors"
	"fmt"
)

// Domain errors for particle store operations.
var (
	// ErrValidation indicates an argument that violates a store invariant,
	// e.g. removing more particles than exist.
	ErrValidation = errors.New("particles: validation failed")

	// ErrUnknownProperty indicates access to a name registered in neither
	// the property nor the temporary namespace.
	ErrUnknownProperty = errors.New("particles: unknown property")

	// ErrDuplicateName indicates registration of a name that already exists
	// in either namespace.
	ErrDuplicateName = errors.New("particles: duplicate name")

	// ErrSizeMismatch indicates supplied data whose length disagrees with
	// the store's particle count.
	ErrSizeMismatch = errors.New("particles: size mismatch")
)

// SizeMismatchError reports the expected and actual lengths of a rejected
// data array.
type SizeMismatchError struct {
	Property string
	Want     int
	Got      int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("particles: property %q: got %d values, store holds %d particles", e.Property, e.Got, e.Want)
}

func (e *SizeMismatchError) Unwrap() error { return ErrSizeMismatch }

// UnknownPropertyError reports the offending name and the owning store.
type UnknownPropertyError struct {
	Store    string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("particles: store %q has no property %q", e.Store, e.Property)
}

func (e *UnknownPropertyError) Unwrap() error { return ErrUnknownProperty }
