// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error classification (spec.md §7), distinct
// from the Go error type hierarchy so CLI/JSON callers can render it
// without string-matching messages.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindAlreadyExists       Kind = "AlreadyExists"
	KindCorrupt             Kind = "Corrupt"
	KindUnsupportedFormat   Kind = "UnsupportedFormat"
	KindIO                  Kind = "Io"
	KindDimensionMismatch   Kind = "DimensionMismatch"
	KindNoEmbedder          Kind = "NoEmbedder"
	KindDetachedHead        Kind = "DetachedHead"
	KindInvalidArgument     Kind = "InvalidArgument"
	KindEmbedderFailed      Kind = "EmbedderFailed"
	KindEdgeEndpointMissing Kind = "EdgeEndpointMissing"
)

// Error is Indra's structured error type: a Kind plus a human-readable
// message and an optional wrapped cause. errors.Is/errors.As work against
// both Error itself and the sentinel Err* values below.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("indra: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("indra: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, ErrNotFound) etc. by comparing Kind against
// the sentinel errors' own Kind, so callers can match on whichever sentinel
// they prefer.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Sentinel errors, one per Kind, for errors.Is matching without
// constructing a full *Error.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrCorrupt             = &Error{Kind: KindCorrupt, Message: "corrupt"}
	ErrUnsupportedFormat   = &Error{Kind: KindUnsupportedFormat, Message: "unsupported format"}
	ErrIO                  = &Error{Kind: KindIO, Message: "io error"}
	ErrDimensionMismatch   = &Error{Kind: KindDimensionMismatch, Message: "dimension mismatch"}
	ErrNoEmbedder          = &Error{Kind: KindNoEmbedder, Message: "no embedder attached"}
	ErrDetachedHead        = &Error{Kind: KindDetachedHead, Message: "HEAD is detached"}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrEmbedderFailed      = &Error{Kind: KindEmbedderFailed, Message: "embedder failed"}
	ErrEdgeEndpointMissing = &Error{Kind: KindEdgeEndpointMissing, Message: "edge endpoint missing"}
)

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and "" otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
