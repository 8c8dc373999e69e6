// github.com/inkwellpdf/pdf - a library for reading PDF files
// Copyright (C) 2026  The inkwell-pdf authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNoPDF indicates that no PDF file header was found.
	ErrNoPDF = errors.New("PDF header not found")

	// ErrNoObjects indicates that neither the cross-reference data nor a
	// scan of the whole file turned up a single indirect object.
	ErrNoObjects = errors.New("no indirect objects found")

	// ErrMissingRoot indicates that no usable /Root entry could be found or
	// synthesized for the document.
	ErrMissingRoot = errors.New("missing document catalog")

	// ErrMissingEndobj reports an indirect object without the closing
	// "endobj" keyword.  The object parsed before the keyword was expected
	// is still returned together with this error.
	ErrMissingEndobj = errors.New("missing endobj keyword")

	// ErrMissingEndstream reports that a stream's declared /Length did not
	// land on an endstream keyword and no such keyword follows the stream
	// data anywhere in the file.
	ErrMissingEndstream = errors.New("missing endstream keyword")

	// ErrStreamLength indicates that the /Length entry of a stream
	// dictionary was missing or unusable and the stream extent could not be
	// determined by scanning for the endstream keyword either.
	ErrStreamLength = errors.New("stream length unresolvable")

	errNoDate          = errors.New("not a valid PDF date string")
	errVersion         = errors.New("unsupported PDF version")
	errCorrupted       = errors.New("corrupted ciphertext")
	errInvalidPassword = errors.New("invalid password")
)

// MalformedFileError indicates that a byte range of the file could not be
// parsed as the PDF construct expected there.
type MalformedFileError struct {
	Pos int64
	Err error
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return "not a valid PDF file" + middle + tail
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// ResolveErrorKind classifies the ways resolving an indirect reference can
// fail.
type ResolveErrorKind int

const (
	// ResolveDangling means the object number is absent from the
	// cross-reference index.
	ResolveDangling ResolveErrorKind = iota + 1

	// ResolveFree means the cross-reference index marks the object as free.
	ResolveFree

	// ResolveCycle means the reference chain loops back onto an object
	// whose resolution is already in progress.
	ResolveCycle

	// ResolveBadContainer means a compressed object's container is not a
	// valid object stream.
	ResolveBadContainer
)

func (k ResolveErrorKind) String() string {
	switch k {
	case ResolveDangling:
		return "dangling reference"
	case ResolveFree:
		return "free object accessed"
	case ResolveCycle:
		return "reference cycle"
	case ResolveBadContainer:
		return "malformed object stream"
	default:
		return "resolve error " + strconv.Itoa(int(k))
	}
}

// ResolveError is returned by [Reader.Resolve] when an indirect reference
// cannot be resolved to an object.  A ResolveError concerns a single
// reference only; other objects of the same document remain resolvable.
type ResolveError struct {
	Ref  Reference
	Kind ResolveErrorKind
	Err  error
}

func (err *ResolveError) Error() string {
	msg := fmt.Sprintf("%s: %s", err.Ref, err.Kind)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *ResolveError) Unwrap() error {
	return err.Err
}

// AuthenticationError indicates that the required password for an encrypted
// document was not supplied.
type AuthenticationError struct {
	ID []byte
}

func (err *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (ID %x)", err.ID)
}

func wrap(err error, desc string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", desc, err)
}
