// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collatz

import "fmt"

// Records accumulates search statistics across batches.
// It is owned by the host control thread; not safe for concurrent use.
type Records struct {
	// Checked is the total number of candidates processed.
	Checked uint64

	// MaxSteps is the longest trajectory seen so far.
	MaxSteps uint32

	// MaxStepsN is the candidate that produced MaxSteps.
	MaxStepsN uint64

	// Overflows counts candidates whose trajectory left 64 bits.
	Overflows uint64

	// Maxed counts candidates whose trajectory hit the MaxSteps cap.
	Maxed uint64
}

// Update folds one result into the records.
func (r *Records) Update(n uint64, steps, flags uint32) {
	r.Checked++
	switch {
	case flags&FlagOverflow != 0:
		r.Overflows++
	case flags&FlagMaxed != 0:
		r.Maxed++
	case steps > r.MaxSteps:
		r.MaxSteps = steps
		r.MaxStepsN = n
	}
}

// UpdateBatch folds a full batch of results into the records.
// items and results must hold n entries in the wire formats.
func (r *Records) UpdateBatch(items, results []byte, n int) {
	for i := 0; i < n; i++ {
		steps, flags := Result(results[i*ResultSize:])
		r.Update(Item(items[i*ItemSize:]), steps, flags)
	}
}

func (r *Records) String() string {
	return fmt.Sprintf("checked %d: max %d steps at n=%d (overflow %d, maxed %d)",
		r.Checked, r.MaxSteps, r.MaxStepsN, r.Overflows, r.Maxed)
}
