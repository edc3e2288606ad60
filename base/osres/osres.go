// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package osres classifies failures from OS-facing calls
// (allocation, file I/O, memory mapping, device submission) into a
// small closed set of result kinds, so the layers above never
// inspect raw errno / Win32 codes.  Classification is a pure
// function of the underlying error: the same failing condition
// always maps to the same [Kind].
package osres

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Kind is the closed set of outcomes of an OS-facing call.
type Kind int32

const (
	// Success is the zero value: the call completed.
	Success Kind = iota

	// OutOfHostMemory: host allocation could not be satisfied.
	OutOfHostMemory

	// OutOfDeviceMemory: device-local allocation could not be satisfied.
	OutOfDeviceMemory

	// Exhausted: a non-memory resource limit was hit (file
	// descriptors, disk space, address space).
	Exhausted

	// AccessDenied: permission failure.
	AccessDenied

	// BadAlignment: a size or address violates an alignment constraint.
	// Indicates a programmer error; callers should treat it as a defect.
	BadAlignment

	// BadOffset: an offset is outside the valid range. Programmer error.
	BadOffset

	// BadSize: a size argument is zero or out of range. Programmer error.
	BadSize

	// Interrupted: the call was interrupted and can be retried.
	Interrupted

	// Busy: the resource is temporarily in use and the call can be retried.
	Busy

	// NoFile: the named file or path does not exist.
	NoFile

	// InUse: the resource is held by another agent and the call
	// should not be blindly retried.
	InUse

	// NotSupported: the capability is absent on this platform or device.
	NotSupported

	// ConnectionLost: a pipe/socket style peer went away.
	ConnectionLost

	// Internal: anything that does not classify.
	Internal

	KindN
)

var kindNames = [KindN]string{
	"Success", "OutOfHostMemory", "OutOfDeviceMemory", "Exhausted",
	"AccessDenied", "BadAlignment", "BadOffset", "BadSize",
	"Interrupted", "Busy", "NoFile", "InUse", "NotSupported",
	"ConnectionLost", "Internal",
}

func (k Kind) String() string {
	if k < 0 || k >= KindN {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return kindNames[k]
}

// Retryable reports whether the condition is transient and should be
// retried locally, immediately below the OS call, without surfacing
// to the caller.
func (k Kind) Retryable() bool {
	return k == Interrupted || k == Busy
}

// Defect reports whether the condition indicates a programmer error
// (malformed arguments) rather than a runtime condition.
func (k Kind) Defect() bool {
	return k == BadAlignment || k == BadOffset || k == BadSize
}

// Call identifies the category of OS-facing call that failed,
// carried on [Error] for diagnostics.
type Call int32

const (
	CallAlloc Call = iota
	CallMap
	CallOpen
	CallRead
	CallWrite
	CallSubmit
	CallWait
	CallClose

	CallN
)

var callNames = [CallN]string{
	"alloc", "map", "open", "read", "write", "submit", "wait", "close",
}

func (c Call) String() string {
	if c < 0 || c >= CallN {
		return fmt.Sprintf("Call(%d)", int32(c))
	}
	return callNames[c]
}

// Error is an OS-facing call failure carrying its classification.
type Error struct {
	Kind Kind
	Call Call
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Call, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Call, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is against a *Error with matching Kind,
// regardless of Call or wrapped error.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

// KindError returns a bare *Error of the given kind, for use as an
// errors.Is target.
func KindError(k Kind) *Error { return &Error{Kind: k} }

// KindOf returns the classification of err: Success for nil, the
// already-assigned kind if err is (or wraps) an [Error], otherwise
// the result of [Classify] with an unknown call kind.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return classify(err)
}

// Wrap classifies err for the given call kind and wraps it in an
// [Error]. Returns nil if err is nil.
func Wrap(call Call, err error) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return &Error{Kind: oe.Kind, Call: call, Err: err}
	}
	return &Error{Kind: classify(err), Call: call, Err: err}
}

// New returns an *Error of the given kind and call with a formatted
// message.
func New(k Kind, call Call, format string, args ...any) *Error {
	return &Error{Kind: k, Call: call, Err: fmt.Errorf(format, args...)}
}

// classify maps an arbitrary error from an OS-facing call to a Kind.
// Portable classes are handled here; errno-level detail is delegated
// to the per-platform classifyErrno.
func classify(err error) Kind {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, fs.ErrNotExist):
		return NoFile
	case errors.Is(err, fs.ErrPermission):
		return AccessDenied
	case errors.Is(err, fs.ErrClosed):
		return Internal
	case errors.Is(err, os.ErrDeadlineExceeded):
		return Busy
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return classifyErrno(errno)
	}
	return Internal
}

// maxRetries bounds the local retry loop for transient conditions.
const maxRetries = 16

// Do invokes fn, retrying locally while it fails with a transient
// (Interrupted/Busy) condition, and returns the final error wrapped
// for the given call kind.  Transient conditions are never surfaced
// to the caller unless the retry budget is exhausted.
func Do(call Call, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !KindOf(err).Retryable() {
			break
		}
	}
	return Wrap(call, err)
}
