// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package osres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{nil, Success},
		{fs.ErrNotExist, NoFile},
		{fs.ErrPermission, AccessDenied},
		{errors.New("who knows"), Internal},
		{fmt.Errorf("open: %w", fs.ErrNotExist), NoFile},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.kind, KindOf(tc.err), "err: %v", tc.err)
	}
}

// The facade must be a pure function of the error: repeated
// classification of the same condition yields the same kind.
func TestKindOfIdempotent(t *testing.T) {
	err := fmt.Errorf("mmap: %w", fs.ErrPermission)
	first := KindOf(err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, KindOf(err))
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(CallOpen, nil))

	err := Wrap(CallOpen, fs.ErrNotExist)
	require.Error(t, err)
	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, NoFile, oe.Kind)
	assert.Equal(t, CallOpen, oe.Call)
	assert.True(t, errors.Is(err, KindError(NoFile)))
	assert.False(t, errors.Is(err, KindError(AccessDenied)))

	// wrapping an already-classified error preserves its kind
	rewrapped := Wrap(CallRead, fmt.Errorf("retry: %w", err))
	require.True(t, errors.As(rewrapped, &oe))
	assert.Equal(t, NoFile, oe.Kind)
	assert.Equal(t, CallRead, oe.Call)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Interrupted.Retryable())
	assert.True(t, Busy.Retryable())
	assert.False(t, OutOfDeviceMemory.Retryable())
	assert.False(t, Success.Retryable())
}

func TestDefect(t *testing.T) {
	assert.True(t, BadAlignment.Defect())
	assert.True(t, BadSize.Defect())
	assert.True(t, BadOffset.Defect())
	assert.False(t, Busy.Defect())
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(CallRead, func() error {
		calls++
		if calls < 3 {
			return New(Interrupted, CallRead, "interrupted")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoSurfacesPermanent(t *testing.T) {
	calls := 0
	err := Do(CallAlloc, func() error {
		calls++
		return New(OutOfHostMemory, CallAlloc, "no memory")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, OutOfHostMemory, KindOf(err))
}

func TestDoBounded(t *testing.T) {
	calls := 0
	err := Do(CallWait, func() error {
		calls++
		return New(Busy, CallWait, "busy")
	})
	require.Error(t, err)
	assert.Equal(t, maxRetries, calls)
	assert.Equal(t, Busy, KindOf(err))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "OutOfDeviceMemory", OutOfDeviceMemory.String())
	assert.Equal(t, "submit", CallSubmit.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
