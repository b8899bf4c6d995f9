package core

import (
	"errors"
	"fmt"

	"github.com/illarion/upm/internal/crypto"
)

var (
	ErrReadUnderrun     = errors.New("file is too short to be a database")
	ErrBadMagic         = errors.New("not a UPM database")
	ErrBadRevision      = errors.New("cannot parse revision number")
	ErrRevisionOverflow = errors.New("revision counter exhausted")
	ErrAccountNotFound  = errors.New("account not found")
	ErrEmptyAccountName = errors.New("account name cannot be empty")
	ErrNoPath           = errors.New("database has no path")
	ErrNoPassword       = errors.New("database has no password")
	ErrInvalidPath      = errors.New("invalid database path")
	ErrPathNotUnicode   = errors.New("database path is not valid UTF-8")

	// ErrBadPassword is returned when decryption shows the password is wrong.
	ErrBadPassword = crypto.ErrBadPassword
)

// UnsupportedVersionError reports a file format version other than 3.
type UnsupportedVersionError struct {
	Version byte
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported database version %d", e.Version)
}

// DuplicateAccountError reports an account name that is already taken.
type DuplicateAccountError struct {
	Name string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("duplicate account name %q", e.Name)
}
