// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// Device holds the logical device and its compute queue.
type Device struct {
	// Device is the logical device.
	Device vk.Device

	// QueueIndex is the compute queue family index.
	QueueIndex uint32

	// Queue is the compute queue.
	Queue vk.Queue
}

// findQueueIndex returns the first queue family on the physical
// device with the given capability flags.
func findQueueIndex(pd vk.PhysicalDevice, flags vk.QueueFlagBits) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	if count == 0 {
		return 0, osres.New(osres.NotSupported, osres.CallOpen,
			"vkc: no queue families on device")
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)
	required := vk.QueueFlags(flags)
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		if props[i].QueueFlags&required != 0 {
			return i, nil
		}
	}
	return 0, osres.New(osres.NotSupported, osres.CallOpen,
		"vkc: no queue family with flags %#x", flags)
}

// Init creates the logical device with one compute queue.
func (dv *Device) Init(gp *GPU) error {
	qi, err := findQueueIndex(gp.GPU, vk.QueueComputeBit)
	if err != nil {
		return err
	}
	dv.QueueIndex = qi

	var device vk.Device
	ret := vk.CreateDevice(gp.GPU, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: dv.QueueIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledLayerCount:   uint32(len(gp.ValidationLayers)),
		PpEnabledLayerNames: gp.ValidationLayers,
	}, nil, &device)
	if err := NewErrorCall(ret, osres.CallOpen); err != nil {
		return err
	}
	dv.Device = device

	var queue vk.Queue
	vk.GetDeviceQueue(dv.Device, dv.QueueIndex, 0, &queue)
	dv.Queue = queue
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (dv *Device) WaitIdle() {
	if dv.Device != nil {
		vk.DeviceWaitIdle(dv.Device)
	}
}

// Destroy waits for the device to go idle and destroys it.
func (dv *Device) Destroy() {
	if dv.Device == nil {
		return
	}
	vk.DeviceWaitIdle(dv.Device)
	vk.DestroyDevice(dv.Device, nil)
	dv.Device = nil
}
