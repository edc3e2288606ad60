// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vkc is a Vulkan compute layer for pumping batches of work
// items through a compute shader: host-visible staging buffers in,
// device-local buffers through the kernel, results staged back out,
// with the explicit availability / visibility barrier chain that
// makes the round trip race-free.
//
// The cycle protocol is driven by [Scheduler]; [Compute] wires it to
// a real device. GPU / Device / CmdPool / BufferSet are the
// underlying Vulkan plumbing.
package vkc

import (
	"log/slog"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/errors"
	"github.com/hailstone-search/hailstone/base/osres"
)

// Debug enables Vulkan validation layers, the debug report callback,
// and extra logging. Set before calling GPU.Init.
var Debug = false

// InitNoDisplay initializes the Vulkan loader for headless compute
// use, without any windowing system.
func InitNoDisplay() error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return osres.New(osres.NotSupported, osres.CallOpen,
			"vkc: no Vulkan loader found: %v", err)
	}
	if err := vk.Init(); err != nil {
		return osres.New(osres.NotSupported, osres.CallOpen,
			"vkc: Vulkan init failed: %v", err)
	}
	return nil
}

// InitDisplay initializes the Vulkan loader through glfw, for
// processes that may also create surfaces.
func InitDisplay() error {
	if err := glfw.Init(); err != nil {
		return osres.Wrap(osres.CallOpen, err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return osres.New(osres.NotSupported, osres.CallOpen,
			"vkc: Vulkan init failed: %v", err)
	}
	return nil
}

// GPU represents the Vulkan instance and the selected physical
// device, with its properties and memory info.
type GPU struct {
	Instance vk.Instance

	// GPU is the selected physical device.
	GPU vk.PhysicalDevice

	// DeviceName is the physical device's reported name.
	DeviceName string

	GPUProperties vk.PhysicalDeviceProperties
	MemoryProps   vk.PhysicalDeviceMemoryProperties

	// ValidationLayers are the instance/device layers enabled in Debug mode.
	ValidationLayers []string

	// InstanceExts are the enabled instance extensions.
	InstanceExts []string

	// MaxComputeWorkGroupCount1D is the device limit on 1D dispatch width.
	MaxComputeWorkGroupCount1D int

	// MaxStorageBufferRange is the device limit on a storage buffer binding.
	MaxStorageBufferRange int

	dbgCallback vk.DebugReportCallback
	instr       *Instrumentation
}

// NewGPU returns a new GPU with the given instrumentation context
// (nil for none).
func NewGPU(instr *Instrumentation) *GPU {
	return &GPU{instr: instr}
}

// Init creates the Vulkan instance under the given application name
// and selects physical device devIndex (-1 selects the first device
// with a compute queue). The loader must already be initialized via
// [InitNoDisplay] or [InitDisplay].
func (gp *GPU) Init(name string, devIndex int) error {
	if Debug {
		gp.ValidationLayers = []string{"VK_LAYER_KHRONOS_validation\x00"}
		gp.InstanceExts = append(gp.InstanceExts, "VK_EXT_debug_report\x00")
	}
	var inst vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   SafeString(name),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        SafeString("hailstone"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.ApiVersion11,
		},
		EnabledExtensionCount:   uint32(len(gp.InstanceExts)),
		PpEnabledExtensionNames: gp.InstanceExts,
		EnabledLayerCount:       uint32(len(gp.ValidationLayers)),
		PpEnabledLayerNames:     gp.ValidationLayers,
	}, nil, &inst)
	if err := NewError(ret); err != nil {
		return err
	}
	gp.Instance = inst
	vk.InitInstance(inst)

	if Debug {
		gp.initDebugCallback()
	}
	return gp.SelectDevice(devIndex)
}

// SelectDevice selects the physical device at the given enumeration
// index, or the first device with a compute queue if devIndex < 0,
// and reads its properties and limits.
func (gp *GPU) SelectDevice(devIndex int) error {
	devs, err := gp.PhysicalDevices()
	if err != nil {
		return err
	}
	if devIndex >= len(devs) {
		return osres.New(osres.NoFile, osres.CallOpen,
			"vkc: device index %d out of range: %d device(s) present", devIndex, len(devs))
	}
	if devIndex < 0 {
		devIndex = -1
		for i, pd := range devs {
			if _, err := findQueueIndex(pd, vk.QueueComputeBit); err == nil {
				devIndex = i
				break
			}
		}
		if devIndex < 0 {
			return osres.New(osres.NotSupported, osres.CallOpen,
				"vkc: no device with a compute queue found")
		}
	}
	gp.GPU = devs[devIndex]

	vk.GetPhysicalDeviceProperties(gp.GPU, &gp.GPUProperties)
	gp.GPUProperties.Deref()
	gp.GPUProperties.Limits.Deref()
	gp.DeviceName = CleanString(string(gp.GPUProperties.DeviceName[:]))
	gp.MaxComputeWorkGroupCount1D = int(gp.GPUProperties.Limits.MaxComputeWorkGroupCount[0])
	gp.MaxStorageBufferRange = int(gp.GPUProperties.Limits.MaxStorageBufferRange)

	vk.GetPhysicalDeviceMemoryProperties(gp.GPU, &gp.MemoryProps)
	gp.MemoryProps.Deref()

	if Debug {
		slog.Debug("vkc: selected device", "index", devIndex, "name", gp.DeviceName)
	}
	return nil
}

// PhysicalDevices enumerates the physical devices on the instance.
func (gp *GPU) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(gp.Instance, &count, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, osres.New(osres.NotSupported, osres.CallOpen,
			"vkc: no Vulkan devices present")
	}
	devs := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(gp.Instance, &count, devs)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return devs, nil
}

// DeviceNames returns the names of all physical devices on the
// instance, in enumeration order.
func (gp *GPU) DeviceNames() ([]string, error) {
	devs, err := gp.PhysicalDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(devs))
	for i, pd := range devs {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		names[i] = CleanString(string(props.DeviceName[:]))
	}
	return names, nil
}

// Destroy releases the instance and debug callback.
func (gp *GPU) Destroy() {
	if gp.dbgCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(gp.Instance, gp.dbgCallback, nil)
		gp.dbgCallback = vk.NullDebugReportCallback
	}
	if gp.Instance != nil {
		vk.DestroyInstance(gp.Instance, nil)
		gp.Instance = nil
	}
}

func (gp *GPU) initDebugCallback() {
	var dbg vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(gp.Instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit |
			vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}, nil, &dbg)
	if errors.Log(NewError(ret)) != nil {
		return
	}
	gp.dbgCallback = dbg
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		slog.Error("vulkan", "layer", pLayerPrefix, "msg", pMessage)
	default:
		slog.Warn("vulkan", "layer", pLayerPrefix, "msg", pMessage)
	}
	return vk.Bool32(vk.False)
}

// SafeString returns s null-terminated, as the Vulkan C API requires.
func SafeString(s string) string {
	if len(s) == 0 {
		return "\x00"
	}
	if s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

// CleanString strips the trailing null padding from a fixed-size C
// string field.
func CleanString(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\x00' {
			return s[:i]
		}
	}
	return s
}

// MemSizeAlign returns size rounded up to an even multiple of align.
func MemSizeAlign(size, align int) int {
	if size%align == 0 {
		return size
	}
	return (size/align + 1) * align
}
