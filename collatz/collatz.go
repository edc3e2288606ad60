// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collatz defines the work-item and result wire formats
// shared between the host and the compute kernel, and provides the
// CPU reference implementation of the hailstone (Collatz) step
// count used for verification.
package collatz

import (
	"encoding/binary"
	"math"
)

const (
	// ItemSize is the byte size of one work item in the input
	// buffer: a little-endian uint64 candidate, carried as two
	// 32-bit words to match the shader's uvec2 layout.
	ItemSize = 8

	// ResultSize is the byte size of one result in the output
	// buffer: uint32 step count followed by uint32 flags.
	ResultSize = 8

	// MaxSteps caps the trajectory length on both host and device,
	// bounding the shader loop. No candidate below 2^64 is known to
	// need anywhere near this many steps.
	MaxSteps = 1 << 16
)

// Result flags, identical on host and device.
const (
	// FlagOverflow: 3n+1 exceeded 64 bits; the step count is the
	// number of steps completed before the overflow.
	FlagOverflow uint32 = 1 << 0

	// FlagMaxed: the trajectory did not reach 1 within MaxSteps.
	FlagMaxed uint32 = 1 << 1
)

// Steps returns the number of hailstone steps taken from n to reach 1,
// along with result flags. Steps(1) is 0. Steps(0) is 0 with
// FlagMaxed, matching the kernel, which never iterates on 0.
func Steps(n uint64) (steps uint32, flags uint32) {
	if n == 0 {
		return 0, FlagMaxed
	}
	for n != 1 {
		if steps >= MaxSteps {
			return steps, FlagMaxed
		}
		if n&1 == 0 {
			n >>= 1
		} else {
			if n > (math.MaxUint64-1)/3 {
				return steps, FlagOverflow
			}
			n = 3*n + 1
		}
		steps++
	}
	return steps, 0
}

// PutItem encodes candidate n as one work item at the start of b.
func PutItem(b []byte, n uint64) {
	binary.LittleEndian.PutUint64(b, n)
}

// Item decodes the work item at the start of b.
func Item(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// PutResult encodes a step count and flags as one result at the
// start of b.
func PutResult(b []byte, steps, flags uint32) {
	binary.LittleEndian.PutUint32(b, steps)
	binary.LittleEndian.PutUint32(b[4:], flags)
}

// Result decodes the result at the start of b.
func Result(b []byte) (steps, flags uint32) {
	return binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint32(b[4:])
}

// FillItems encodes consecutive candidates start, start+1, ...
// into dst, as many as fit, returning the number encoded.
func FillItems(dst []byte, start uint64, n int) int {
	max := len(dst) / ItemSize
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		PutItem(dst[i*ItemSize:], start+uint64(i))
	}
	return n
}
