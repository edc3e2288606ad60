// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	vk "github.com/goki/vulkan"
)

// The cycle's four buffer barriers. Each is a release/acquire pair
// over one region: the source stage+access makes the writer's data
// available, the destination stage+access makes it visible to the
// reader. All four use whole-buffer ranges and stay within one queue
// family.

func cmdBufferBarrier(cmd vk.CommandBuffer, buf vk.Buffer,
	srcStage, dstStage vk.PipelineStageFlagBits,
	srcAccess, dstAccess vk.AccessFlagBits) {
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		vk.DependencyFlags(0), 0, nil, 1,
		[]vk.BufferMemoryBarrier{{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(srcAccess),
			DstAccessMask:       vk.AccessFlags(dstAccess),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              buf,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		}}, 0, nil)
}

// BarrierHostToTransfer orders host writes to a mapped staging
// buffer before a transfer read of it (HV-in before copy-in).
// Host-write availability to the device is already guaranteed at
// submit time; this makes the ordering explicit in the command
// stream.
func BarrierHostToTransfer(cmd vk.CommandBuffer, buf vk.Buffer) {
	cmdBufferBarrier(cmd, buf,
		vk.PipelineStageHostBit, vk.PipelineStageTransferBit,
		vk.AccessHostWriteBit, vk.AccessTransferReadBit)
}

// BarrierTransferToCompute hands a buffer from a transfer write to a
// compute shader read (DL-in between copy-in and dispatch).
func BarrierTransferToCompute(cmd vk.CommandBuffer, buf vk.Buffer) {
	cmdBufferBarrier(cmd, buf,
		vk.PipelineStageTransferBit, vk.PipelineStageComputeShaderBit,
		vk.AccessTransferWriteBit, vk.AccessShaderReadBit)
}

// BarrierComputeToTransfer hands a buffer from a compute shader
// write to a transfer read (DL-out between dispatch and copy-out).
func BarrierComputeToTransfer(cmd vk.CommandBuffer, buf vk.Buffer) {
	cmdBufferBarrier(cmd, buf,
		vk.PipelineStageComputeShaderBit, vk.PipelineStageTransferBit,
		vk.AccessShaderWriteBit, vk.AccessTransferReadBit)
}

// BarrierTransferToHost makes a transfer write available to host
// reads (HV-out after copy-out). The host side still needs the
// completion fence plus a mapped-range invalidate before reading.
func BarrierTransferToHost(cmd vk.CommandBuffer, buf vk.Buffer) {
	cmdBufferBarrier(cmd, buf,
		vk.PipelineStageTransferBit, vk.PipelineStageHostBit,
		vk.AccessTransferWriteBit, vk.AccessHostReadBit)
}
