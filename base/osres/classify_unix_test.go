// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package osres

import (
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestClassifyErrno(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		kind  Kind
	}{
		{unix.EINTR, Interrupted},
		{unix.EAGAIN, Busy},
		{unix.EBUSY, Busy},
		{unix.ENOMEM, OutOfHostMemory},
		{unix.EMFILE, Exhausted},
		{unix.EACCES, AccessDenied},
		{unix.EPERM, AccessDenied},
		{unix.ENOENT, NoFile},
		{unix.EINVAL, BadSize},
		{unix.ENOSYS, NotSupported},
		{unix.EPIPE, ConnectionLost},
		{unix.EXDEV, Internal}, // unclassified
	}
	for _, tc := range tests {
		assert.Equal(t, tc.kind, classifyErrno(tc.errno), "errno: %v", tc.errno)
	}
}

// Errnos arrive wrapped in os.PathError / os.SyscallError layers;
// classification must see through the wrapping.
func TestClassifyWrappedErrno(t *testing.T) {
	err := fmt.Errorf("mmap region: %w",
		os.NewSyscallError("mmap", unix.ENOMEM))
	assert.Equal(t, OutOfHostMemory, KindOf(err))

	err = &os.PathError{Op: "open", Path: "/dev/null", Err: unix.EACCES}
	assert.Equal(t, AccessDenied, KindOf(err))
}
