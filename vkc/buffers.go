// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// Buffer is one allocated vulkan buffer with its backing memory.
// Host-visible buffers stay persistently mapped from allocation to
// free; Ptr is nil for device-local memory.
type Buffer struct {
	// Name is the buffer identity (HV-in, DL-out, ...).
	Name string

	// Size in bytes.
	Size int

	// Buf is the buffer handle.
	Buf vk.Buffer

	// Mem is the backing device memory.
	Mem vk.DeviceMemory

	// Ptr is the persistent mapped address, nil if not host-visible.
	Ptr unsafe.Pointer

	// Host is true for host-visible memory.
	Host bool
}

// Bytes returns the mapped bytes of a host-visible buffer.
func (bf *Buffer) Bytes() []byte {
	if bf.Ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(bf.Ptr), bf.Size)
}

// findMemoryType returns the index of a memory type matching typeBits
// with all of the wanted property flags.
func findMemoryType(gp *GPU, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, error) {
	wanted := vk.MemoryPropertyFlags(want)
	for i := uint32(0); i < gp.MemoryProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		gp.MemoryProps.MemoryTypes[i].Deref()
		if gp.MemoryProps.MemoryTypes[i].PropertyFlags&wanted == wanted {
			return i, nil
		}
	}
	return 0, osres.New(osres.NotSupported, osres.CallAlloc,
		"vkc: no memory type matches bits %#x props %#x", typeBits, want)
}

// alloc creates the buffer, allocates and binds its memory, and maps
// it when host is set.
func (bf *Buffer) alloc(gp *GPU, dev vk.Device, size int, usage vk.BufferUsageFlagBits, host bool, instr *Instrumentation) error {
	start := time.Now()
	bf.Size = size
	bf.Host = host

	var buf vk.Buffer
	ret := vk.CreateBuffer(dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		return err
	}
	bf.Buf = buf

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, bf.Buf, &memReqs)
	memReqs.Deref()

	props := vk.MemoryPropertyDeviceLocalBit
	if host {
		props = vk.MemoryPropertyHostVisibleBit
	}
	typeIdx, err := findMemoryType(gp, memReqs.MemoryTypeBits, props)
	if err != nil {
		bf.freeHandles(dev)
		return err
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		bf.freeHandles(dev)
		return err
	}
	bf.Mem = mem

	ret = vk.BindBufferMemory(dev, bf.Buf, bf.Mem, 0)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		bf.freeHandles(dev)
		return err
	}

	if host {
		var ptr unsafe.Pointer
		ret = vk.MapMemory(dev, bf.Mem, 0, vk.DeviceSize(size), 0, &ptr)
		if err := NewErrorCall(ret, osres.CallMap); err != nil {
			bf.freeHandles(dev)
			return err
		}
		bf.Ptr = ptr
	}

	instr.alloc(AllocEvent{
		Name:    bf.Name,
		Size:    size,
		Addr:    uintptr(bf.Ptr),
		Host:    host,
		Elapsed: time.Since(start),
	})
	return nil
}

func (bf *Buffer) freeHandles(dev vk.Device) {
	if bf.Ptr != nil {
		vk.UnmapMemory(dev, bf.Mem)
		bf.Ptr = nil
	}
	if bf.Mem != vk.NullDeviceMemory {
		vk.FreeMemory(dev, bf.Mem, nil)
		bf.Mem = vk.NullDeviceMemory
	}
	if bf.Buf != vk.NullBuffer {
		vk.DestroyBuffer(dev, bf.Buf, nil)
		bf.Buf = vk.NullBuffer
	}
}

func (bf *Buffer) free(dev vk.Device, instr *Instrumentation) {
	if bf.Buf == vk.NullBuffer && bf.Mem == vk.NullDeviceMemory {
		return
	}
	bf.freeHandles(dev)
	instr.free(AllocEvent{Name: bf.Name, Size: bf.Size, Host: bf.Host})
}

// BufferSet is the four-region buffer quartet for one compute stream:
// host-visible staging in and out, device-local in and out. The two
// staging buffers are persistently mapped for the set's lifetime.
type BufferSet struct {
	// HVIn is the host-visible input staging buffer.
	HVIn Buffer

	// HVOut is the host-visible output staging buffer.
	HVOut Buffer

	// DLIn is the device-local kernel input buffer.
	DLIn Buffer

	// DLOut is the device-local kernel output buffer.
	DLOut Buffer

	// Capacity is the item capacity all four regions share.
	Capacity int

	// ItemBytes and ResultBytes are the per-item strides of the in
	// and out regions.
	ItemBytes   int
	ResultBytes int

	dev   vk.Device
	instr *Instrumentation
}

// Allocated reports whether the set currently holds live buffers.
func (bs *BufferSet) Allocated() bool {
	return bs.HVIn.Buf != vk.NullBuffer
}

// CreateBuffers allocates the quartet for capacity items of the
// given strides. Parameter validation happens before any driver
// call: zero or negative capacity is BadSize, strides must be
// positive multiples of 4 bytes (BadAlignment), and region sizes
// must fit the device's storage buffer limit (Exhausted). On any
// allocation failure the partial set is freed and the error
// returned; out-of-memory errors are the caller's cue to retry with
// a smaller capacity.
func (bs *BufferSet) CreateBuffers(gp *GPU, dv *Device, instr *Instrumentation, capacity, itemBytes, resultBytes int) error {
	if capacity <= 0 {
		return osres.New(osres.BadSize, osres.CallAlloc,
			"vkc: buffer capacity %d items; must be positive", capacity)
	}
	if itemBytes <= 0 || itemBytes%4 != 0 {
		return osres.New(osres.BadAlignment, osres.CallAlloc,
			"vkc: item stride %d bytes; must be a positive multiple of 4", itemBytes)
	}
	if resultBytes <= 0 || resultBytes%4 != 0 {
		return osres.New(osres.BadAlignment, osres.CallAlloc,
			"vkc: result stride %d bytes; must be a positive multiple of 4", resultBytes)
	}
	inBytes := capacity * itemBytes
	outBytes := capacity * resultBytes
	if limit := int(gp.MaxStorageBufferRange); inBytes > limit || outBytes > limit {
		return osres.New(osres.Exhausted, osres.CallAlloc,
			"vkc: region of %d bytes exceeds storage buffer limit %d",
			max(inBytes, outBytes), limit)
	}
	if bs.Allocated() {
		return osres.New(osres.InUse, osres.CallAlloc,
			"vkc: buffer set already allocated")
	}

	bs.dev = dv.Device
	bs.instr = instr
	bs.Capacity = capacity
	bs.ItemBytes = itemBytes
	bs.ResultBytes = resultBytes
	bs.HVIn.Name = "HV-in"
	bs.HVOut.Name = "HV-out"
	bs.DLIn.Name = "DL-in"
	bs.DLOut.Name = "DL-out"

	type spec struct {
		bf    *Buffer
		size  int
		usage vk.BufferUsageFlagBits
		host  bool
	}
	for _, sp := range []spec{
		{&bs.HVIn, inBytes, vk.BufferUsageTransferSrcBit, true},
		{&bs.HVOut, outBytes, vk.BufferUsageTransferDstBit, true},
		{&bs.DLIn, inBytes, vk.BufferUsageTransferDstBit | vk.BufferUsageStorageBufferBit, false},
		{&bs.DLOut, outBytes, vk.BufferUsageTransferSrcBit | vk.BufferUsageStorageBufferBit, false},
	} {
		if err := sp.bf.alloc(gp, bs.dev, sp.size, sp.usage, sp.host, instr); err != nil {
			bs.DestroyBuffers()
			return err
		}
	}
	return nil
}

// FlushIn makes the host's writes to HV-in available to the device
// (flush mapped ranges). Required for non-coherent memory; harmless
// on coherent memory.
func (bs *BufferSet) FlushIn() error {
	ret := vk.FlushMappedMemoryRanges(bs.dev, 1, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: bs.HVIn.Mem,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}})
	return NewErrorCall(ret, osres.CallWrite)
}

// InvalidateOut makes the device's writes to HV-out visible to the
// host (invalidate mapped ranges). Must follow the completion fence.
func (bs *BufferSet) InvalidateOut() error {
	ret := vk.InvalidateMappedMemoryRanges(bs.dev, 1, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: bs.HVOut.Mem,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}})
	return NewErrorCall(ret, osres.CallRead)
}

// DestroyBuffers unmaps and frees all four regions. The caller must
// ensure no submitted work still references them (wait the fence or
// the queue first); freeing in-flight memory is a driver-level race.
func (bs *BufferSet) DestroyBuffers() {
	if bs.dev == nil {
		return
	}
	bs.HVIn.free(bs.dev, bs.instr)
	bs.HVOut.free(bs.dev, bs.instr)
	bs.DLIn.free(bs.dev, bs.instr)
	bs.DLOut.free(bs.dev, bs.instr)
	bs.instr.destroy("buffer set")
	bs.Capacity = 0
}
