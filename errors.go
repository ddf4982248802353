package onestore

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error code in the error-handling design. Use
// errors.Is() against these for programmatic dispatch.
var (
	// Recipe misuse (fail immediately, no retry).
	ErrUnknownType      = errors.New("unknown type")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrMissingMandatory = errors.New("missing mandatory field")
	ErrIntegerCheck     = errors.New("value is not an integer")
	ErrRegexpMismatch   = errors.New("value does not match regexp")
	ErrRecipeConflict   = errors.New("conflicting recipe registration")

	// Codec (fail immediately, propagate with byte offset).
	ErrBadHashString       = errors.New("malformed hash string")
	ErrBadEndTag           = errors.New("unexpected end tag")
	ErrTrailingData        = errors.New("trailing data after outer element")
	ErrImplodeHashMismatch = errors.New("imploded child hash mismatch")
	ErrRoundTripMismatch   = errors.New("parsed value does not match its serialized source")

	// Storage.
	ErrFileNotFound       = errors.New("file not found")
	ErrWriteOnceViolation = errors.New("write-once violation: same hash, different bytes")

	// Versioning.
	ErrVersionedMismatch = errors.New("versioned/unversioned API mismatch")
	ErrDanglingPrev      = errors.New("version node prev does not resolve")
	ErrNonFastForward    = errors.New("merge prev is not the current head")

	// Security.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// CodecError wraps a sentinel parse/serialize error with the byte offset in
// the source microdata where the failure was detected, following the
// teacher's pattern of a sentinel Err plus contextual fields and Unwrap.
type CodecError struct {
	Err    error
	Detail string // property name, type name, or similar context
	Offset int
}

func (e *CodecError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (offset %d)", e.Err.Error(), e.Detail, e.Offset)
	}
	return fmt.Sprintf("%s (offset %d)", e.Err.Error(), e.Offset)
}

func (e *CodecError) Unwrap() error { return e.Err }

func newCodecErr(sentinel error, detail string, offset int) error {
	return &CodecError{Err: sentinel, Detail: detail, Offset: offset}
}

// StoreError wraps a sentinel storage/versioning error with the hash or
// idHash and the operation that failed.
type StoreError struct {
	Err       error
	Operation string
	Hash      string
	Cause     error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Operation, e.Err.Error(), e.Hash, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Operation, e.Err.Error(), e.Hash)
}

func (e *StoreError) Unwrap() error { return e.Err }

func newStoreErr(sentinel error, operation, hash string, cause error) error {
	return &StoreError{Err: sentinel, Operation: operation, Hash: hash, Cause: cause}
}
