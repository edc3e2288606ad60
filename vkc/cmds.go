// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// Command buffer roles within a cycle submission. The three buffers
// are recorded independently and submitted together, in this order.
const (
	// CmdTransferIn holds the HV-in -> DL-in copy.
	CmdTransferIn = iota

	// CmdCompute holds the kernel dispatch.
	CmdCompute

	// CmdTransferOut holds the DL-out -> HV-out copy.
	CmdTransferOut

	CmdN
)

// CmdPool holds the command pool, the cycle's command buffers, and
// the completion fence for one scheduler.
type CmdPool struct {
	// Pool is the command pool, on the compute queue family.
	Pool vk.CommandPool

	// Bufs are the per-role command buffers, indexed by Cmd*.
	Bufs [CmdN]vk.CommandBuffer

	// Fence signals completion of a cycle submission.
	Fence vk.Fence

	dev vk.Device
}

// Init creates the pool, allocates the three command buffers, and
// creates the fence (unsignaled).
func (cp *CmdPool) Init(dv *Device) error {
	cp.dev = dv.Device
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(cp.dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dv.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		return err
	}
	cp.Pool = pool

	bufs := make([]vk.CommandBuffer, CmdN)
	ret = vk.AllocateCommandBuffers(cp.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: CmdN,
	}, bufs)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		return err
	}
	copy(cp.Bufs[:], bufs)

	var fence vk.Fence
	ret = vk.CreateFence(cp.dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		return err
	}
	cp.Fence = fence
	return nil
}

// Begin starts one-time recording into the command buffer for role.
func (cp *CmdPool) Begin(role int) (vk.CommandBuffer, error) {
	cmd := cp.Bufs[role]
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := NewErrorCall(ret, osres.CallWrite); err != nil {
		return nil, err
	}
	return cmd, nil
}

// End finishes recording the command buffer for role.
func (cp *CmdPool) End(role int) error {
	return NewErrorCall(vk.EndCommandBuffer(cp.Bufs[role]), osres.CallWrite)
}

// Submit submits the three command buffers as one submission,
// signaling the fence on completion.
func (cp *CmdPool) Submit(queue vk.Queue) error {
	ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: CmdN,
		PCommandBuffers:    cp.Bufs[:],
	}}, cp.Fence)
	return NewErrorCall(ret, osres.CallSubmit)
}

// Wait blocks until the fence signals, failing with [ErrDeviceHang]
// after timeout. Interrupted waits are retried through the osres
// facade; a genuine timeout is not.
func (cp *CmdPool) Wait(timeout time.Duration) error {
	err := osres.Do(osres.CallWait, func() error {
		ret := vk.WaitForFences(cp.dev, 1, []vk.Fence{cp.Fence}, vk.True,
			uint64(timeout.Nanoseconds()))
		if ret == vk.Timeout {
			return ErrDeviceHang
		}
		return NewErrorCall(ret, osres.CallWait)
	})
	return err
}

// Reset resets the fence and the three command buffers for the next
// cycle. Call only after Wait has returned.
func (cp *CmdPool) Reset() error {
	ret := vk.ResetFences(cp.dev, 1, []vk.Fence{cp.Fence})
	if err := NewErrorCall(ret, osres.CallWait); err != nil {
		return err
	}
	for i := range cp.Bufs {
		ret = vk.ResetCommandBuffer(cp.Bufs[i], 0)
		if err := NewErrorCall(ret, osres.CallWrite); err != nil {
			return err
		}
	}
	return nil
}

// Destroy frees the fence, command buffers, and pool.
func (cp *CmdPool) Destroy() {
	if cp.dev == nil {
		return
	}
	if cp.Fence != vk.NullFence {
		vk.DestroyFence(cp.dev, cp.Fence, nil)
		cp.Fence = vk.NullFence
	}
	if cp.Pool != vk.NullCommandPool {
		vk.FreeCommandBuffers(cp.dev, cp.Pool, CmdN, cp.Bufs[:])
		vk.DestroyCommandPool(cp.dev, cp.Pool, nil)
		cp.Pool = vk.NullCommandPool
	}
	cp.dev = nil
}
