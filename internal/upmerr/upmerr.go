// Package upmerr defines the error kinds shared by every upm layer.
//
// Lower layers return plain sentinel errors. At package boundaries those
// are wrapped in an *Error carrying one of five kinds so callers can decide
// how to react without matching every sentinel:
//   - Format: malformed file or record stream
//   - Crypto: key derivation or cipher failure, including bad password
//   - IO: local filesystem failure or invalid path
//   - Sync: remote repository or missing sync configuration
//   - Backup: a backup that had to succeed did not
package upmerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	Unknown Kind = iota
	Format
	Crypto
	IO
	Sync
	Backup
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format"
	case Crypto:
		return "crypto"
	case IO:
		return "io"
	case Sync:
		return "sync"
	case Backup:
		return "backup"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
