// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailstone-search/hailstone/base/osres"
	"github.com/hailstone-search/hailstone/collatz"
)

// fakeEngine is a CPU engine that mirrors the real one's
// single-buffered pipelining: a cycle's results are delivered to the
// consume callback of the next RunCycle (or Drain).
type fakeEngine struct {
	// maxCapacity simulates device memory: CreateBuffers above it
	// fails with an out-of-memory classification.
	maxCapacity int

	in, out []byte

	pendingN   int
	pendingOut []byte

	creates  int
	destroys int
	cycles   int

	// corruptAt flips a result byte in the given cycle (1-based);
	// 0 disables.
	corruptAt int
}

func (fe *fakeEngine) CreateBuffers(capacity, itemBytes, resultBytes int) error {
	fe.creates++
	if capacity <= 0 {
		return osres.New(osres.BadSize, osres.CallAlloc, "capacity %d", capacity)
	}
	if fe.maxCapacity > 0 && capacity > fe.maxCapacity {
		return osres.New(osres.OutOfDeviceMemory, osres.CallAlloc,
			"capacity %d exceeds fake device memory %d", capacity, fe.maxCapacity)
	}
	fe.in = make([]byte, capacity*itemBytes)
	fe.out = make([]byte, capacity*resultBytes)
	return nil
}

func (fe *fakeEngine) RunCycle(fill func([]byte) int, consume func([]byte, int) error) error {
	if fe.pendingN > 0 {
		if err := consume(fe.pendingOut, fe.pendingN); err != nil {
			return err
		}
		fe.pendingN = 0
	}
	n := fill(fe.in)
	fe.cycles++
	for i := 0; i < n; i++ {
		steps, flags := collatz.Steps(collatz.Item(fe.in[i*collatz.ItemSize:]))
		collatz.PutResult(fe.out[i*collatz.ResultSize:], steps, flags)
	}
	if fe.corruptAt == fe.cycles {
		fe.out[0] ^= 0xff
	}
	fe.pendingOut = append(fe.pendingOut[:0], fe.out[:n*collatz.ResultSize]...)
	fe.pendingN = n
	return nil
}

func (fe *fakeEngine) Drain(consume func([]byte, int) error) error {
	if fe.pendingN == 0 {
		return nil
	}
	err := consume(fe.pendingOut, fe.pendingN)
	fe.pendingN = 0
	return err
}

func (fe *fakeEngine) DestroyBuffers() { fe.destroys++ }

func testConfig() Config {
	cf := Defaults()
	cf.Start = 1
	cf.Count = 1000
	cf.BatchSize = 128
	cf.MinBatchSize = 16
	cf.ReportEvery = 0
	return cf
}

func TestRunnerCompletes(t *testing.T) {
	fe := &fakeEngine{}
	rn := NewRunner(testConfig(), fe, nil)
	require.NoError(t, rn.Run(context.Background()))

	assert.Equal(t, uint64(1000), rn.Records.Checked)
	assert.Equal(t, 1, fe.destroys)

	// cross-check the records against a direct CPU sweep
	var want collatz.Records
	for n := uint64(1); n <= 1000; n++ {
		steps, flags := collatz.Steps(n)
		want.Update(n, steps, flags)
	}
	assert.Equal(t, want, rn.Records)
	// 871 has the longest trajectory below 1000
	assert.Equal(t, uint64(871), rn.Records.MaxStepsN)
	assert.Equal(t, uint32(178), rn.Records.MaxSteps)
}

func TestRunnerPartialFinalBatch(t *testing.T) {
	fe := &fakeEngine{}
	cf := testConfig()
	cf.Count = 300 // 2 full batches of 128 + 44
	rn := NewRunner(cf, fe, nil)
	require.NoError(t, rn.Run(context.Background()))
	assert.Equal(t, uint64(300), rn.Records.Checked)
	assert.Equal(t, 3, fe.cycles)
}

func TestRunnerHalvesBatchOnOutOfMemory(t *testing.T) {
	fe := &fakeEngine{maxCapacity: 100}
	cf := testConfig()
	cf.BatchSize = 512
	rn := NewRunner(cf, fe, nil)
	require.NoError(t, rn.Run(context.Background()))

	// 512 -> 256 -> 128 -> 64
	assert.Equal(t, 64, rn.Batch())
	assert.Equal(t, 4, fe.creates)
	assert.Equal(t, uint64(1000), rn.Records.Checked)
}

func TestRunnerOutOfMemoryFloor(t *testing.T) {
	fe := &fakeEngine{maxCapacity: 8}
	cf := testConfig()
	cf.BatchSize = 512
	cf.MinBatchSize = 64
	rn := NewRunner(cf, fe, nil)

	err := rn.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, osres.OutOfDeviceMemory, osres.KindOf(err))
	assert.Equal(t, uint64(0), rn.Records.Checked)
}

func TestRunnerNonMemoryAllocErrorNotRetried(t *testing.T) {
	// a BadSize from the engine must surface immediately, not halve
	be := &badEngine{}
	rn := NewRunner(testConfig(), be, nil)
	err := rn.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, osres.BadSize, osres.KindOf(err))
	assert.Equal(t, 1, be.creates)
}

type badEngine struct{ creates int }

func (be *badEngine) CreateBuffers(capacity, itemBytes, resultBytes int) error {
	be.creates++
	return osres.New(osres.BadSize, osres.CallAlloc, "rejecting capacity %d", capacity)
}
func (be *badEngine) RunCycle(func([]byte) int, func([]byte, int) error) error { return nil }
func (be *badEngine) Drain(func([]byte, int) error) error                      { return nil }
func (be *badEngine) DestroyBuffers()                                          {}

func TestRunnerVerifyCatchesCorruption(t *testing.T) {
	fe := &fakeEngine{corruptAt: 2}
	cf := testConfig()
	cf.VerifyStride = 1
	rn := NewRunner(cf, fe, nil)

	err := rn.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestRunnerVerifyCleanRun(t *testing.T) {
	fe := &fakeEngine{}
	cf := testConfig()
	cf.Count = 500
	cf.VerifyStride = 7
	rn := NewRunner(cf, fe, nil)
	require.NoError(t, rn.Run(context.Background()))
	assert.Equal(t, uint64(500), rn.Records.Checked)
}

func TestRunnerCancelDrains(t *testing.T) {
	fe := &fakeEngine{}
	cf := testConfig()
	cf.Count = 0 // unbounded
	rn := NewRunner(cf, fe, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stop := 5
	// cancel from inside the pump by wrapping the engine
	ce := &cancelingEngine{fakeEngine: fe, cancel: cancel, after: stop}
	rn.Engine = ce

	err := rn.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// every submitted batch was drained and counted
	assert.Equal(t, uint64(stop*cf.BatchSize), rn.Records.Checked)
	assert.Equal(t, 1, fe.destroys)
}

type cancelingEngine struct {
	*fakeEngine
	cancel context.CancelFunc
	after  int
}

func (ce *cancelingEngine) RunCycle(fill func([]byte) int, consume func([]byte, int) error) error {
	err := ce.fakeEngine.RunCycle(fill, consume)
	if ce.fakeEngine.cycles >= ce.after {
		ce.cancel()
	}
	return err
}
