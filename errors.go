// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "fmt"

// Kind classifies an *Error. Compare against the Err* sentinels with
// errors.Is, e.g. errors.Is(err, edf.ErrInvalidHeader).
type Kind int

const (
	KindFileNotFound Kind = iota + 1
	KindUnsupportedFileType
	KindInvalidHeader
	KindInvalidSignalCount
	KindInvalidSignalIndex
	KindPhysicalMinEqualsMax
	KindDigitalMinEqualsMax
	KindFormatError
	KindFileReadError
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file not found"
	case KindUnsupportedFileType:
		return "unsupported file type"
	case KindInvalidHeader:
		return "invalid header"
	case KindInvalidSignalCount:
		return "invalid signal count"
	case KindInvalidSignalIndex:
		return "invalid signal index"
	case KindPhysicalMinEqualsMax:
		return "physical min equals max"
	case KindDigitalMinEqualsMax:
		return "digital min equals max"
	case KindFormatError:
		return "format error"
	case KindFileReadError:
		return "file read error"
	default:
		return "unknown error"
	}
}

// Sentinel errors usable with errors.Is. Each carries only a Kind; use
// the returned *Error's fields (Path, Field, Index) for context.
var (
	ErrFileNotFound         = &Error{Kind: KindFileNotFound}
	ErrUnsupportedFileType  = &Error{Kind: KindUnsupportedFileType}
	ErrInvalidHeader        = &Error{Kind: KindInvalidHeader}
	ErrInvalidSignalCount   = &Error{Kind: KindInvalidSignalCount}
	ErrInvalidSignalIndex   = &Error{Kind: KindInvalidSignalIndex}
	ErrPhysicalMinEqualsMax = &Error{Kind: KindPhysicalMinEqualsMax}
	ErrDigitalMinEqualsMax  = &Error{Kind: KindDigitalMinEqualsMax}
	ErrFormatError          = &Error{Kind: KindFormatError}
	ErrFileReadError        = &Error{Kind: KindFileReadError}
)

// Error is the error type returned by this package. It carries a Kind
// for programmatic dispatch plus whatever contextual fields apply
// (Path, Field, Index), and wraps an underlying cause when there is one.
type Error struct {
	Kind  Kind
	Path  string
	Field string
	Index int
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Index != 0 {
		msg += fmt.Sprintf(" (index=%d)", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, edf.ErrInvalidHeader) works regardless of the
// contextual fields attached to err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Field == "" && t.Index == 0 && t.Err == nil
}

func newError(kind Kind, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}
