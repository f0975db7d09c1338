package vfs

import "errors"

// StoreError represents a domain error from store operations.
//
// These are business logic errors (path not found, name conflict, lock
// overlap, etc.) as opposed to infrastructure errors. The engine has no
// transient failure modes: every operation is deterministic and in-memory,
// so errors are never retried internally.
//
// Adapter layers translate StoreError codes to their own surfaced error
// types (e.g. host filesystem API exceptions, protocol status codes).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
//
// Exactly one code exists per violated invariant; the engine never fails
// with a generic catch-all.
type ErrorCode int

const (
	// ErrNotFound indicates a missing path segment or target
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a name conflict on create without replace
	ErrAlreadyExists

	// ErrNotADirectory indicates the operation expected a directory but
	// found a file or symbolic link
	ErrNotADirectory

	// ErrIsADirectory indicates the operation expected a file but found
	// a directory
	ErrIsADirectory

	// ErrNotEmpty indicates a blocked delete or replace of a populated
	// directory
	ErrNotEmpty

	// ErrNotALink indicates a symlink-only operation on a non-link node
	ErrNotALink

	// ErrAccessDenied indicates a read-only violation, or an I/O attempt
	// outside a channel's open capabilities
	ErrAccessDenied

	// ErrLinkDepthExceeded indicates a symbolic link cycle or a chain
	// longer than the resolution bound
	ErrLinkDepthExceeded

	// ErrLockConflict indicates a region lock request overlapping a lock
	// already held on the same file
	ErrLockConflict

	// ErrUnsupportedAttribute indicates an attribute kind that does not
	// belong to the requested attribute view
	ErrUnsupportedAttribute

	// ErrInvalidArgument indicates invalid parameters (negative offsets or
	// sizes, incompatible open option combinations, malformed paths)
	ErrInvalidArgument
)

// String returns the symbolic name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrNotADirectory:
		return "NotADirectory"
	case ErrIsADirectory:
		return "IsADirectory"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrNotALink:
		return "NotALink"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrLinkDepthExceeded:
		return "LinkDepthExceeded"
	case ErrLockConflict:
		return "LockConflict"
	case ErrUnsupportedAttribute:
		return "UnsupportedAttribute"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// newError builds a StoreError for the given code, message and path.
func newError(code ErrorCode, message, path string) *StoreError {
	return &StoreError{Code: code, Message: message, Path: path}
}

// IsCode reports whether err is a *StoreError carrying the given code.
//
// This is the primary way adapters and tests branch on failure kinds:
//
//	if vfs.IsCode(err, vfs.ErrNotFound) { ... }
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}
