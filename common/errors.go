package common

import (
	"errors"
	"fmt"
)

type GoDBErrorCode int

const (
	// DuplicateObjectError indicates an attempt to register a table whose name (or backing file)
	// is already present in the catalog.
	DuplicateObjectError GoDBErrorCode = iota
	// NoSuchObjectError indicates a request for a table, field or element that does not exist.
	NoSuchObjectError
	// InvalidArgumentError indicates a missing or malformed argument, such as a nil file or an
	// out-of-range field index.
	InvalidArgumentError
	// TypeMismatchError indicates that two values or schemas disagree on their field types.
	TypeMismatchError
	// InvalidPageError indicates a page number outside of [0, NumPages).
	InvalidPageError
	// IteratorMisuseError is returned when an iterator is driven outside of its protocol, e.g.
	// Next() without a preceding HasNext() == true, or Rewind() on a closed iterator.
	IteratorMisuseError
	// SchemaLoadError indicates a malformed line in a catalog description file. The error string
	// carries the offending line.
	SchemaLoadError
	// UnsupportedOperationError indicates a request this read-only core does not serve.
	UnsupportedOperationError
)

func (ec GoDBErrorCode) String() string {
	switch ec {
	case DuplicateObjectError:
		return "DuplicateObjectError"
	case NoSuchObjectError:
		return "NoSuchObjectError"
	case InvalidArgumentError:
		return "InvalidArgumentError"
	case TypeMismatchError:
		return "TypeMismatchError"
	case InvalidPageError:
		return "InvalidPageError"
	case IteratorMisuseError:
		return "IteratorMisuseError"
	case SchemaLoadError:
		return "SchemaLoadError"
	case UnsupportedOperationError:
		return "UnsupportedOperationError"
	}
	return "unknown"
}

// GoDBError is the custom error type for the database engine.
// It wraps a specific GoDBErrorCode with a detailed message so callers can branch on the kind of
// failure with IsCode while still getting a readable message.
type GoDBError struct {
	Code      GoDBErrorCode
	ErrString string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

// Errorf builds a GoDBError with a formatted message.
func Errorf(code GoDBErrorCode, format string, args ...any) GoDBError {
	return GoDBError{Code: code, ErrString: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err, or any error it wraps, is a GoDBError with the given code.
func IsCode(err error, code GoDBErrorCode) bool {
	var gErr GoDBError
	if errors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}
