package tangle

import (
	"errors"
	"fmt"
)


//============================================= Tangle Errors


// ErrorKind classifies a TangleError so callers can branch on failure mode
//	instead of parsing error strings.
type ErrorKind uint8

const (
	// ErrKindKeyNotFound: Get/Find/GetValue found no live entry for the key
	ErrKindKeyNotFound ErrorKind = iota
	// ErrKindTangleModified: a FindResult's saved version no longer matches the tangle
	ErrKindTangleModified
	// ErrKindSerializerFailed: the caller's codec returned an error
	ErrKindSerializerFailed
	// ErrKindTangleDisposed: the tangle was torn down while an operation was queued or pending
	ErrKindTangleDisposed
	// ErrKindStorageIO: the underlying stream or mmap failed
	ErrKindStorageIO
	// ErrKindFormatMismatch: on open, the stored format_version is nonzero and unsupported
	ErrKindFormatMismatch
	// ErrKindInvalidData: a node record is malformed or a key exceeds MaxKeyLength
	ErrKindInvalidData
)

// TangleError wraps a classified failure with an optional key and cause.
type TangleError struct {
	Kind  ErrorKind
	Key   []byte
	Cause error
}

func (err *TangleError) Error() string {
	switch {
		case err.Key != nil && err.Cause != nil:
			return fmt.Sprintf("%s: key=%x: %s", err.kindString(), err.Key, err.Cause)
		case err.Key != nil:
			return fmt.Sprintf("%s: key=%x", err.kindString(), err.Key)
		case err.Cause != nil:
			return fmt.Sprintf("%s: %s", err.kindString(), err.Cause)
		default:
			return err.kindString()
	}
}

func (err *TangleError) Unwrap() error { return err.Cause }

// Is lets errors.Is(err, ErrKeyNotFound) style sentinel comparisons work against the Kind.
func (err *TangleError) Is(target error) bool {
	other, ok := target.(*TangleError)
	if ! ok { return false }
	return err.Kind == other.Kind
}

func (err *TangleError) kindString() string {
	switch err.Kind {
		case ErrKindKeyNotFound:
			return "key not found"
		case ErrKindTangleModified:
			return "tangle modified"
		case ErrKindSerializerFailed:
			return "serializer failed"
		case ErrKindTangleDisposed:
			return "tangle disposed"
		case ErrKindStorageIO:
			return "storage io error"
		case ErrKindFormatMismatch:
			return "format mismatch"
		case ErrKindInvalidData:
			return "invalid data"
		default:
			return "unknown tangle error"
	}
}

// Sentinel instances usable with errors.Is — callers never need to construct a TangleError themselves.
var (
	ErrKeyNotFound      = &TangleError{ Kind: ErrKindKeyNotFound }
	ErrTangleModified   = &TangleError{ Kind: ErrKindTangleModified }
	ErrSerializerFailed = &TangleError{ Kind: ErrKindSerializerFailed }
	ErrTangleDisposed   = &TangleError{ Kind: ErrKindTangleDisposed }
	ErrStorageIO        = &TangleError{ Kind: ErrKindStorageIO }
	ErrFormatMismatch   = &TangleError{ Kind: ErrKindFormatMismatch }
	ErrInvalidData      = &TangleError{ Kind: ErrKindInvalidData }
)

func newKeyNotFoundErr(key []byte) error {
	return &TangleError{ Kind: ErrKindKeyNotFound, Key: key }
}

func newTangleModifiedErr() error {
	return &TangleError{ Kind: ErrKindTangleModified }
}

func newSerializerFailedErr(key []byte, cause error) error {
	return &TangleError{ Kind: ErrKindSerializerFailed, Key: key, Cause: cause }
}

func newTangleDisposedErr() error {
	return &TangleError{ Kind: ErrKindTangleDisposed }
}

func newStorageIOErr(cause error) error {
	return &TangleError{ Kind: ErrKindStorageIO, Cause: cause }
}

func newFormatMismatchErr(stored uint32) error {
	return &TangleError{ Kind: ErrKindFormatMismatch, Cause: fmt.Errorf("stored format_version %d unsupported", stored) }
}

func newInvalidDataErr(cause error) error {
	return &TangleError{ Kind: ErrKindInvalidData, Cause: cause }
}

// IsKeyNotFound reports whether err is, or wraps, a KeyNotFound failure.
func IsKeyNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// IsTangleModified reports whether err is, or wraps, a TangleModified failure.
func IsTangleModified(err error) bool { return errors.Is(err, ErrTangleModified) }

// IsTangleDisposed reports whether err is, or wraps, a TangleDisposed failure.
func IsTangleDisposed(err error) bool { return errors.Is(err, ErrTangleDisposed) }

// IsInvalidData reports whether err is, or wraps, an InvalidData failure.
func IsInvalidData(err error) bool { return errors.Is(err, ErrInvalidData) }
