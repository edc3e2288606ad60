// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// IsError returns whether the given vulkan result is an error.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError returns an error for a non-success vulkan result,
// classified through the osres facade, with the call site recorded.
// Returns nil for vk.Success.
func NewError(ret vk.Result) error {
	return NewErrorCall(ret, osres.CallSubmit)
}

// NewErrorCall is [NewError] with an explicit call kind.
func NewErrorCall(ret vk.Result, call osres.Call) error {
	if ret == vk.Success {
		return nil
	}
	return &osres.Error{
		Kind: resultKind(ret),
		Call: call,
		Err:  fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret),
	}
}

// IfPanic panics on a non-nil error, running any finalizers first.
// Use only for conditions that indicate programmer error.
func IfPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	panic(err)
}

// resultKind maps a vulkan result code into the closed osres
// taxonomy. The mapping is total and deterministic.
func resultKind(ret vk.Result) osres.Kind {
	switch ret {
	case vk.Success:
		return osres.Success
	case vk.ErrorOutOfHostMemory:
		return osres.OutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return osres.OutOfDeviceMemory
	case vk.ErrorTooManyObjects, vk.ErrorFragmentedPool, vk.ErrorOutOfPoolMemory:
		return osres.Exhausted
	case vk.ErrorMemoryMapFailed:
		return osres.OutOfHostMemory
	case vk.NotReady, vk.Timeout:
		return osres.Busy
	case vk.ErrorDeviceLost:
		return osres.ConnectionLost
	case vk.ErrorInitializationFailed, vk.ErrorLayerNotPresent,
		vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent,
		vk.ErrorIncompatibleDriver, vk.ErrorFormatNotSupported:
		return osres.NotSupported
	default:
		return osres.Internal
	}
}
