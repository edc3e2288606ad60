// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package osres

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// errnoKinds is the single errno classification table for all unix
// platforms (Darwin, Linux, FreeBSD and friends share these names
// through x/sys/unix).
var errnoKinds = map[syscall.Errno]Kind{
	unix.EINTR:        Interrupted,
	unix.EAGAIN:       Busy,
	unix.EBUSY:        Busy,
	unix.ETXTBSY:      InUse,
	unix.EADDRINUSE:   InUse,
	unix.ENOMEM:       OutOfHostMemory,
	unix.ENOSPC:       Exhausted,
	unix.EMFILE:       Exhausted,
	unix.ENFILE:       Exhausted,
	unix.EDQUOT:       Exhausted,
	unix.EACCES:       AccessDenied,
	unix.EPERM:        AccessDenied,
	unix.EROFS:        AccessDenied,
	unix.ENOENT:       NoFile,
	unix.ENOTDIR:      NoFile,
	unix.EINVAL:       BadSize,
	unix.ERANGE:       BadOffset,
	unix.EOVERFLOW:    BadOffset,
	unix.ENOTSUP:      NotSupported,
	unix.ENOSYS:       NotSupported,
	unix.EPIPE:        ConnectionLost,
	unix.ECONNRESET:   ConnectionLost,
	unix.ECONNABORTED: ConnectionLost,
}

func classifyErrno(errno syscall.Errno) Kind {
	if k, ok := errnoKinds[errno]; ok {
		return k
	}
	return Internal
}
