// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// ThreadsPerGroup is the kernel workgroup width; must match the
// local_size_x of the compiled shader.
const ThreadsPerGroup = 64

// Warps returns the number of workgroups needed to cover n items at
// threads per group (rounded up).
func Warps(n, threads int) int {
	return (n + threads - 1) / threads
}

// sliceUint32 reinterprets SPIR-V bytes as the uint32 words the
// driver expects. Caller has verified 4-byte alignment of the length.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// LoadShaderFile reads a compiled SPIR-V binary, classifying I/O
// failures through the osres facade.
func LoadShaderFile(fname string) ([]byte, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, osres.Wrap(osres.CallOpen, err)
	}
	return b, nil
}

// Pipeline is a single-kernel compute pipeline over two storage
// buffers (binding 0: items in, binding 1: results out) with a
// 4-byte push constant holding the item count.
type Pipeline struct {
	// Shader is the kernel's shader module.
	Shader vk.ShaderModule

	// SetLayout describes the two storage buffer bindings.
	SetLayout vk.DescriptorSetLayout

	// Pool is the descriptor pool backing Set.
	Pool vk.DescriptorPool

	// Set is the bound descriptor set.
	Set vk.DescriptorSet

	// Layout is the pipeline layout (set layout + push constant).
	Layout vk.PipelineLayout

	// Pipeline is the compute pipeline.
	Pipeline vk.Pipeline

	dev vk.Device
}

// Init builds the pipeline from SPIR-V bytes. A binary whose length
// is not a multiple of the 4-byte SPIR-V word size is rejected as
// BadAlignment before any driver call.
func (pl *Pipeline) Init(dv *Device, code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return osres.New(osres.BadAlignment, osres.CallOpen,
			"vkc: SPIR-V binary of %d bytes; must be a positive multiple of 4", len(code))
	}
	pl.dev = dv.Device

	var mod vk.ShaderModule
	ret := vk.CreateShaderModule(pl.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &mod)
	if err := NewErrorCall(ret, osres.CallOpen); err != nil {
		return err
	}
	pl.Shader = mod

	var setLayout vk.DescriptorSetLayout
	ret = vk.CreateDescriptorSetLayout(pl.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings: []vk.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
			{
				Binding:         1,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
		},
	}, nil, &setLayout)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		pl.Destroy()
		return err
	}
	pl.SetLayout = setLayout

	var pool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(pl.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 2,
		}},
	}, nil, &pool)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		pl.Destroy()
		return err
	}
	pl.Pool = pool

	sets := make([]vk.DescriptorSet, 1)
	ret = vk.AllocateDescriptorSets(pl.dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pl.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{pl.SetLayout},
	}, &sets[0])
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		pl.Destroy()
		return err
	}
	pl.Set = sets[0]

	var layout vk.PipelineLayout
	ret = vk.CreatePipelineLayout(pl.dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{pl.SetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       4,
		}},
	}, nil, &layout)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		pl.Destroy()
		return err
	}
	pl.Layout = layout

	pipes := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(pl.dev, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{{
			SType: vk.StructureTypeComputePipelineCreateInfo,
			Stage: vk.PipelineShaderStageCreateInfo{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageComputeBit,
				Module: pl.Shader,
				PName:  "main\x00",
			},
			Layout: pl.Layout,
		}}, nil, pipes)
	if err := NewErrorCall(ret, osres.CallAlloc); err != nil {
		pl.Destroy()
		return err
	}
	pl.Pipeline = pipes[0]
	return nil
}

// BindBuffers points the descriptor set's two bindings at the
// device-local in and out buffers. Call after buffer (re)allocation,
// never while a submission using the set is in flight.
func (pl *Pipeline) BindBuffers(dlIn, dlOut *Buffer) {
	vk.UpdateDescriptorSets(pl.dev, 2, []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          pl.Set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: dlIn.Buf, Offset: 0, Range: vk.DeviceSize(dlIn.Size),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          pl.Set,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: dlOut.Buf, Offset: 0, Range: vk.DeviceSize(dlOut.Size),
			}},
		},
	}, 0, nil)
}

// Dispatch records the kernel launch for n items into cmd: bind,
// push the item count, dispatch ceil(n/ThreadsPerGroup) groups.
func (pl *Pipeline) Dispatch(cmd vk.CommandBuffer, n int) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pl.Pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, pl.Layout,
		0, 1, []vk.DescriptorSet{pl.Set}, 0, nil)
	count := uint32(n)
	vk.CmdPushConstants(cmd, pl.Layout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, 4,
		unsafe.Pointer(&count))
	vk.CmdDispatch(cmd, uint32(Warps(n, ThreadsPerGroup)), 1, 1)
}

// Destroy frees all pipeline objects, tolerating a partially built
// pipeline.
func (pl *Pipeline) Destroy() {
	if pl.dev == nil {
		return
	}
	if pl.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(pl.dev, pl.Pipeline, nil)
		pl.Pipeline = vk.NullPipeline
	}
	if pl.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(pl.dev, pl.Layout, nil)
		pl.Layout = vk.NullPipelineLayout
	}
	if pl.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(pl.dev, pl.Pool, nil)
		pl.Pool = vk.NullDescriptorPool
		pl.Set = vk.NullDescriptorSet
	}
	if pl.SetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(pl.dev, pl.SetLayout, nil)
		pl.SetLayout = vk.NullDescriptorSetLayout
	}
	if pl.Shader != vk.NullShaderModule {
		vk.DestroyShaderModule(pl.dev, pl.Shader, nil)
		pl.Shader = vk.NullShaderModule
	}
}
