// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package osres

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// errnoKinds classifies Win32 error codes; syscall.Errno on windows
// carries the Win32 code.
var errnoKinds = map[syscall.Errno]Kind{
	windows.WAIT_TIMEOUT:                Busy,
	windows.ERROR_BUSY:                  Busy,
	windows.ERROR_SHARING_VIOLATION:     InUse,
	windows.ERROR_LOCK_VIOLATION:        InUse,
	windows.ERROR_NOT_ENOUGH_MEMORY:     OutOfHostMemory,
	windows.ERROR_OUTOFMEMORY:           OutOfHostMemory,
	windows.ERROR_COMMITMENT_LIMIT:      OutOfHostMemory,
	windows.ERROR_HANDLE_DISK_FULL:      Exhausted,
	windows.ERROR_DISK_FULL:             Exhausted,
	windows.ERROR_TOO_MANY_OPEN_FILES:   Exhausted,
	windows.ERROR_ACCESS_DENIED:         AccessDenied,
	windows.ERROR_WRITE_PROTECT:         AccessDenied,
	windows.ERROR_FILE_NOT_FOUND:        NoFile,
	windows.ERROR_PATH_NOT_FOUND:        NoFile,
	windows.ERROR_INVALID_PARAMETER:     BadSize,
	windows.ERROR_MAPPED_ALIGNMENT:      BadAlignment,
	windows.ERROR_NEGATIVE_SEEK:         BadOffset,
	windows.ERROR_NOT_SUPPORTED:         NotSupported,
	windows.ERROR_CALL_NOT_IMPLEMENTED:  NotSupported,
	windows.ERROR_BROKEN_PIPE:           ConnectionLost,
	windows.ERROR_PIPE_NOT_CONNECTED:    ConnectionLost,
	windows.WSAECONNRESET:               ConnectionLost,
}

func classifyErrno(errno syscall.Errno) Kind {
	if k, ok := errnoKinds[errno]; ok {
		return k
	}
	return Internal
}
