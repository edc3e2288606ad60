// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailstone-search/hailstone/base/osres"
)

func TestNewErrorClassification(t *testing.T) {
	tests := []struct {
		ret  vk.Result
		kind osres.Kind
	}{
		{vk.ErrorOutOfHostMemory, osres.OutOfHostMemory},
		{vk.ErrorOutOfDeviceMemory, osres.OutOfDeviceMemory},
		{vk.ErrorMemoryMapFailed, osres.OutOfHostMemory},
		{vk.ErrorTooManyObjects, osres.Exhausted},
		{vk.ErrorOutOfPoolMemory, osres.Exhausted},
		{vk.NotReady, osres.Busy},
		{vk.Timeout, osres.Busy},
		{vk.ErrorDeviceLost, osres.ConnectionLost},
		{vk.ErrorInitializationFailed, osres.NotSupported},
		{vk.ErrorIncompatibleDriver, osres.NotSupported},
		{vk.ErrorValidationFailed, osres.Internal}, // outside the mapped set
	}
	for _, tt := range tests {
		err := NewError(tt.ret)
		require.Error(t, err)
		assert.Equal(t, tt.kind, osres.KindOf(err), "result %d", tt.ret)
		// classification is pure: same input, same kind, every time
		for i := 0; i < 10; i++ {
			assert.Equal(t, tt.kind, osres.KindOf(NewError(tt.ret)))
		}
	}
}

func TestNewErrorSuccessIsNil(t *testing.T) {
	require.NoError(t, NewError(vk.Success))
	require.NoError(t, NewErrorCall(vk.Success, osres.CallAlloc))
}

func TestNewErrorCallSite(t *testing.T) {
	err := NewErrorCall(vk.ErrorOutOfDeviceMemory, osres.CallAlloc)
	var oe *osres.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, osres.CallAlloc, oe.Call)
	assert.Equal(t, osres.OutOfDeviceMemory, oe.Kind)
}

func TestIfPanicRunsFinalizers(t *testing.T) {
	ran := false
	require.Panics(t, func() {
		IfPanic(NewError(vk.ErrorDeviceLost), func() { ran = true })
	})
	assert.True(t, ran)

	require.NotPanics(t, func() { IfPanic(nil, func() { t.Fatal("finalizer on nil") }) })
}

func TestWarps(t *testing.T) {
	assert.Equal(t, 1, Warps(1, 64))
	assert.Equal(t, 1, Warps(64, 64))
	assert.Equal(t, 2, Warps(65, 64))
	assert.Equal(t, 16, Warps(1024, 64))
}

func TestMemSizeAlign(t *testing.T) {
	assert.Equal(t, 16, MemSizeAlign(16, 16))
	assert.Equal(t, 32, MemSizeAlign(17, 16))
	assert.Equal(t, 256, MemSizeAlign(255, 256))
}
