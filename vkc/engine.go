// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/hailstone-search/hailstone/base/osres"
)

// vkOps is the real [CycleOps]: it records the cycle's transfer and
// compute commands with their barriers into the pool's three command
// buffers and submits them against the completion fence.
type vkOps struct {
	bs *BufferSet
	cp *CmdPool
	pl *Pipeline
	dv *Device
}

func (vo *vkOps) HostIn() []byte  { return vo.bs.HVIn.Bytes() }
func (vo *vkOps) HostOut() []byte { return vo.bs.HVOut.Bytes() }

func (vo *vkOps) FlushIn() error       { return vo.bs.FlushIn() }
func (vo *vkOps) InvalidateOut() error { return vo.bs.InvalidateOut() }

func (vo *vkOps) RecordCopyIn(n int) error {
	cmd, err := vo.cp.Begin(CmdTransferIn)
	if err != nil {
		return err
	}
	BarrierHostToTransfer(cmd, vo.bs.HVIn.Buf)
	vk.CmdCopyBuffer(cmd, vo.bs.HVIn.Buf, vo.bs.DLIn.Buf, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(n * vo.bs.ItemBytes),
	}})
	BarrierTransferToCompute(cmd, vo.bs.DLIn.Buf)
	return vo.cp.End(CmdTransferIn)
}

func (vo *vkOps) RecordDispatch(n int) error {
	cmd, err := vo.cp.Begin(CmdCompute)
	if err != nil {
		return err
	}
	vo.pl.Dispatch(cmd, n)
	BarrierComputeToTransfer(cmd, vo.bs.DLOut.Buf)
	return vo.cp.End(CmdCompute)
}

func (vo *vkOps) RecordCopyOut(n int) error {
	cmd, err := vo.cp.Begin(CmdTransferOut)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cmd, vo.bs.DLOut.Buf, vo.bs.HVOut.Buf, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(n * vo.bs.ResultBytes),
	}})
	BarrierTransferToHost(cmd, vo.bs.HVOut.Buf)
	return vo.cp.End(CmdTransferOut)
}

func (vo *vkOps) Submit() error                    { return vo.cp.Submit(vo.dv.Queue) }
func (vo *vkOps) Wait(timeout time.Duration) error { return vo.cp.Wait(timeout) }
func (vo *vkOps) Reset() error                     { return vo.cp.Reset() }

// Compute is the top-level facade over one GPU, one compute queue,
// one kernel, and one four-region buffer set, driven by a
// [Scheduler]. Typical use:
//
//	cm, err := vkc.NewCompute("myapp", -1, instr)
//	cm.LoadKernel(code)
//	cm.CreateBuffers(batch, itemBytes, resultBytes)
//	for ... { cm.RunCycle(fill, consume) }
//	cm.Drain(consume)
//	cm.Close()
type Compute struct {
	// GPU is the instance and selected physical device.
	GPU *GPU

	// Device is the logical device and compute queue.
	Device Device

	// Pool holds command buffers and the completion fence.
	Pool CmdPool

	// Buffers is the four-region quartet.
	Buffers BufferSet

	// Pipe is the kernel pipeline.
	Pipe Pipeline

	// Sched orders the cycle phases. Recreated with the buffers.
	Sched *Scheduler

	// Instr observes the whole stack; may be nil.
	Instr *Instrumentation

	// Timeout bounds completion waits; 0 means [DefaultTimeout].
	Timeout time.Duration

	ops vkOps
}

// NewCompute initializes vulkan without a display surface, selects a
// compute-capable physical device (devIndex < 0 picks the first),
// and creates the logical device and command pool.
func NewCompute(name string, devIndex int, instr *Instrumentation) (*Compute, error) {
	if err := InitNoDisplay(); err != nil {
		return nil, err
	}
	cm := &Compute{Instr: instr}
	cm.GPU = NewGPU(instr)
	if err := cm.GPU.Init(name, devIndex); err != nil {
		return nil, err
	}
	if err := cm.Device.Init(cm.GPU); err != nil {
		cm.GPU.Destroy()
		return nil, err
	}
	if err := cm.Pool.Init(&cm.Device); err != nil {
		cm.Device.Destroy()
		cm.GPU.Destroy()
		return nil, err
	}
	cm.ops = vkOps{bs: &cm.Buffers, cp: &cm.Pool, pl: &cm.Pipe, dv: &cm.Device}
	return cm, nil
}

// LoadKernel builds the compute pipeline from SPIR-V bytes.
func (cm *Compute) LoadKernel(code []byte) error {
	return cm.Pipe.Init(&cm.Device, code)
}

// LoadKernelFile builds the compute pipeline from a SPIR-V file.
func (cm *Compute) LoadKernelFile(fname string) error {
	code, err := LoadShaderFile(fname)
	if err != nil {
		return err
	}
	return cm.LoadKernel(code)
}

// CreateBuffers allocates the four regions for capacity items, binds
// the device-local pair into the kernel's descriptor set, and
// (re)creates the scheduler. An out-of-memory error leaves no
// partial allocation behind; callers reduce capacity and retry.
func (cm *Compute) CreateBuffers(capacity, itemBytes, resultBytes int) error {
	err := cm.Buffers.CreateBuffers(cm.GPU, &cm.Device, cm.Instr,
		capacity, itemBytes, resultBytes)
	if err != nil {
		return err
	}
	cm.Pipe.BindBuffers(&cm.Buffers.DLIn, &cm.Buffers.DLOut)
	cm.Sched = NewScheduler(&cm.ops, cm.Instr)
	cm.Sched.Timeout = cm.Timeout
	return nil
}

// RunCycle runs one full cycle: wait for and read the previous
// cycle's results via consume (skipped when none are pending), fill
// HV-in with new items via fill, and submit the copy-in, dispatch,
// copy-out sequence for the count fill returned.
func (cm *Compute) RunCycle(fill func(in []byte) int, consume func(out []byte, n int) error) error {
	sc := cm.Sched
	if sc == nil {
		return osres.New(osres.BadSize, osres.CallSubmit,
			"vkc: RunCycle before CreateBuffers")
	}
	if err := sc.BeginCycle(); err != nil {
		return err
	}
	if err := sc.ReadResults(consume); err != nil {
		return err
	}
	if err := sc.WriteBack(fill); err != nil {
		return err
	}
	if err := sc.CopyIn(); err != nil {
		return err
	}
	if err := sc.Dispatch(); err != nil {
		return err
	}
	if err := sc.CopyOut(); err != nil {
		return err
	}
	return sc.EndCycle()
}

// Drain completes the final in-flight cycle and reads its results.
func (cm *Compute) Drain(consume func(out []byte, n int) error) error {
	if cm.Sched == nil {
		return nil
	}
	return cm.Sched.Drain(consume)
}

// DestroyBuffers waits out any in-flight work, then frees the four
// regions and retires the scheduler. Safe to call and then
// CreateBuffers again with a different capacity.
func (cm *Compute) DestroyBuffers() {
	if cm.Sched != nil && cm.Sched.InFlight() {
		cm.Device.WaitIdle()
	}
	cm.Buffers.DestroyBuffers()
	cm.Sched = nil
}

// Close tears the whole stack down in reverse order of construction.
// After a fatal cycle failure buffer contents are undefined but
// teardown is still safe: the device is idled first.
func (cm *Compute) Close() {
	cm.Device.WaitIdle()
	cm.Pipe.Destroy()
	cm.Buffers.DestroyBuffers()
	cm.Pool.Destroy()
	cm.Device.Destroy()
	if cm.GPU != nil {
		cm.GPU.Destroy()
		cm.GPU = nil
	}
}
