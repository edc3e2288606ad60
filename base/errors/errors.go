// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors provides the standard errors functions plus
// helpers that log an error at the point where it is handled,
// with the caller recorded, so that device-layer failures show
// up in the structured log without every call site writing its
// own slog boilerplate.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// re-exports of the standard library, so this package can be
// used as a drop-in replacement for "errors".

// New returns an error with the given text.
func New(text string) error { return errors.New(text) }

// Join wraps errors.Join.
func Join(errs ...error) error { return errors.Join(errs...) }

// Is wraps errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As wraps errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Unwrap wraps errors.Unwrap.
func Unwrap(err error) error { return errors.Unwrap(err) }

// CallerInfo returns the file, line, and function of the caller
// at the given number of frames up the stack.
func CallerInfo(up int) string {
	pc, file, line, ok := runtime.Caller(up + 1)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return fmt.Sprintf("%s (%s:%d)", fn.Name(), file, line)
}

// Log logs the given error with the caller's info if it is non-nil,
// and returns it unchanged, so it can be used inline:
//
//	if errors.Log(err) != nil { return err }
func Log(err error) error {
	if err != nil {
		slog.Error(err.Error(), "caller", CallerInfo(1))
	}
	return err
}

// Log1 is a version of [Log] for functions returning a value
// and an error, passing the value through:
//
//	buf := errors.Log1(newBuffer(sz))
func Log1[T any](v T, err error) T {
	if err != nil {
		slog.Error(err.Error(), "caller", CallerInfo(1))
	}
	return v
}

// Must panics if the given error is non-nil.
// Use only for conditions that are programmer errors.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// Ignore1 returns only the value from a (value, error) pair,
// for the rare cases where the error genuinely does not matter.
func Ignore1[T any](v T, _ error) T { return v }
