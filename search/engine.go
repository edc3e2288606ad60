// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

// Engine is the compute backend the runner drives: a buffer
// lifecycle plus a cycle pump. [vkc.Compute] is the real engine;
// tests substitute a CPU fake.
type Engine interface {
	// CreateBuffers allocates transfer and compute buffers for
	// capacity items of the given strides. Out-of-memory errors are
	// retryable with a smaller capacity.
	CreateBuffers(capacity, itemBytes, resultBytes int) error

	// RunCycle submits one batch: consume receives the previous
	// cycle's results (skipped when none are pending), fill writes
	// the next batch of items and returns its count.
	RunCycle(fill func(in []byte) int, consume func(out []byte, n int) error) error

	// Drain completes the final in-flight cycle and reads its
	// results.
	Drain(consume func(out []byte, n int) error) error

	// DestroyBuffers frees the buffers after all work has completed.
	DestroyBuffers()
}
