// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collatz

import "fmt"

// Verify checks n results against the CPU reference, sampling every
// stride-th entry (stride <= 1 checks all). items and results must
// hold n entries in the wire formats. Returns an error describing
// the first mismatch, which indicates either a kernel bug or a
// transfer-ordering bug.
func Verify(items, results []byte, n, stride int) error {
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < n; i += stride {
		cand := Item(items[i*ItemSize:])
		steps, flags := Result(results[i*ResultSize:])
		wantSteps, wantFlags := Steps(cand)
		if steps != wantSteps || flags != wantFlags {
			return fmt.Errorf("collatz: result mismatch at n=%d: device (%d steps, flags %#x) vs host (%d steps, flags %#x)",
				cand, steps, flags, wantSteps, wantFlags)
		}
	}
	return nil
}
