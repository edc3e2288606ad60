// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailstone-search/hailstone/collatz"
)

// TestComputeDevice runs the full cycle on a real device. It needs a
// Vulkan ICD and the compiled kernel, so it only runs when
// HAILSTONE_GPU_TEST points at the .spv file.
func TestComputeDevice(t *testing.T) {
	shader := os.Getenv("HAILSTONE_GPU_TEST")
	if shader == "" {
		t.Skip("set HAILSTONE_GPU_TEST=path/to/collatz.spv to run on a device")
	}

	cm, err := NewCompute("vkc-test", -1, nil)
	require.NoError(t, err)
	defer cm.Close()
	t.Logf("device: %s", cm.GPU.DeviceName)

	require.NoError(t, cm.LoadKernelFile(shader))

	const batch = 256
	require.NoError(t, cm.CreateBuffers(batch, collatz.ItemSize, collatz.ResultSize))

	start := uint64(1)
	require.NoError(t, cm.RunCycle(func(in []byte) int {
		return collatz.FillItems(in, start, batch)
	}, nil))

	require.NoError(t, cm.Drain(func(out []byte, n int) error {
		require.Equal(t, batch, n)
		for i := 0; i < n; i++ {
			steps, flags := collatz.Result(out[i*collatz.ResultSize:])
			wantSteps, wantFlags := collatz.Steps(start + uint64(i))
			require.Equal(t, wantSteps, steps, "candidate %d", start+uint64(i))
			require.Equal(t, wantFlags, flags, "candidate %d", start+uint64(i))
		}
		return nil
	}))

	cm.DestroyBuffers()
}
