// Package lsmerrors defines the sentinel error kinds shared across the
// table engine packages. Components wrap one of these with fmt.Errorf's
// %w verb so callers can test the kind with errors.Is while still getting
// a descriptive message.
package lsmerrors

import "errors"

var (
	// ErrNotFound is returned when a lookup key is absent from a block,
	// table, or memtable.
	ErrNotFound = errors.New("lsmtable: not found")

	// ErrCorruption is returned when on-disk data fails a checksum,
	// magic-number, or structural sanity check.
	ErrCorruption = errors.New("lsmtable: corruption")

	// ErrNotSupported is returned for recognized but unimplemented
	// inputs, such as an unknown block compression type.
	ErrNotSupported = errors.New("lsmtable: not supported")

	// ErrInvalidArgument is returned when a caller passes a malformed
	// or out-of-range argument (e.g. a read offset outside a file).
	ErrInvalidArgument = errors.New("lsmtable: invalid argument")
)
