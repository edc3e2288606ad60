// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package osres

import "syscall"

func classifyErrno(errno syscall.Errno) Kind {
	return Internal
}
