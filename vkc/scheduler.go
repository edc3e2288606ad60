// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"fmt"
	"time"
)

// Phase is a step of the cycle protocol. Phases advance strictly in
// order within a cycle; the scheduler rejects any out-of-order call.
type Phase int32

const (
	// PhaseIdle: no cycle is being recorded.
	PhaseIdle Phase = iota

	// PhaseBegin: prior cycle completion waited on, HV-out made
	// visible to the host; results may be read.
	PhaseBegin

	// PhaseWriteBack: host wrote HV-in and flushed it (host
	// availability); HV-in is released to the device.
	PhaseWriteBack

	// PhaseCopyIn: HV-in -> DL-in copy recorded, with the barrier
	// handing DL-in from the copy to the dispatch.
	PhaseCopyIn

	// PhaseDispatch: kernel dispatch recorded, with the barrier
	// handing DL-out from the dispatch to the copy-out.
	PhaseDispatch

	// PhaseCopyOut: DL-out -> HV-out copy recorded, with the barrier
	// making HV-out available to the host domain.
	PhaseCopyOut

	// PhaseSubmit: the cycle's command buffers were submitted.
	PhaseSubmit

	PhaseN
)

var phaseNames = [PhaseN]string{
	"Idle", "Begin", "WriteBack", "CopyIn", "Dispatch", "CopyOut", "Submit",
}

func (p Phase) String() string {
	if p < 0 || p >= PhaseN {
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
	return phaseNames[p]
}

// DefaultTimeout is the completion-wait timeout used when none is
// configured. A wait exceeding it is treated as a device hang.
const DefaultTimeout = 10 * time.Second

// ErrCycleFailed is returned by every scheduler operation after a
// fatal failure; buffer state after an aborted cycle is undefined
// and no further cycles may run.
var ErrCycleFailed = fmt.Errorf("vkc: cycle failed fatally; scheduler is dead")

// ErrDeviceHang is returned when a completion wait times out.
var ErrDeviceHang = fmt.Errorf("vkc: device did not signal completion; assuming hang")

// CycleOps is the device-side backend the Scheduler orders. The real
// implementation records Vulkan commands and barriers; tests
// substitute an in-memory fake. Implementations perform operations,
// the Scheduler owns their ordering and legality.
type CycleOps interface {
	// HostIn returns the host-mapped HV-in staging bytes.
	HostIn() []byte

	// HostOut returns the host-mapped HV-out staging bytes.
	HostOut() []byte

	// FlushIn performs the host availability operation on HV-in
	// (flush mapped ranges).
	FlushIn() error

	// InvalidateOut performs the host visibility operation on HV-out
	// (invalidate mapped ranges).
	InvalidateOut() error

	// RecordCopyIn records the HV-in -> DL-in copy of n items plus
	// the transfer->compute barrier on DL-in.
	RecordCopyIn(n int) error

	// RecordDispatch records the kernel dispatch over n items plus
	// the compute->transfer barrier on DL-out.
	RecordDispatch(n int) error

	// RecordCopyOut records the DL-out -> HV-out copy of n items
	// plus the transfer->host barrier on HV-out.
	RecordCopyOut(n int) error

	// Submit submits the recorded command buffers as one submission
	// with a completion signal.
	Submit() error

	// Wait blocks until the submission's completion signal, failing
	// after the given timeout.
	Wait(timeout time.Duration) error

	// Reset prepares the completion signal and command buffers for
	// the next cycle, after Wait has returned.
	Reset() error
}

// Scheduler drives the six-phase transfer/compute cycle:
//
//	host write -> host availability (flush)
//	-> device visibility (copy-in) -> device availability (dispatch)
//	-> device visibility (copy-out) -> host availability (fence+map)
//	-> host visibility (invalidate) -> host read
//
// It tracks each region's memory domain through a [Region] state
// machine, so a phase invoked out of order or a skipped barrier
// surfaces as an explicit error rather than a silent data race.
//
// Single-buffering: HV-in and DL-in are reused every cycle, so
// cycle N+1's WriteBack cannot begin until cycle N's submission has
// fully completed (BeginCycle waits on it). Overlapping cycle N+1's
// host fill with cycle N's device work would need a second staging
// pair.
//
// The Scheduler is owned and driven by a single host control thread.
type Scheduler struct {
	// Ops is the device backend.
	Ops CycleOps

	// Instr receives events; may be nil.
	Instr *Instrumentation

	// Timeout bounds each completion wait; 0 means [DefaultTimeout].
	Timeout time.Duration

	hvIn  *Region
	hvOut *Region
	dlIn  *Region
	dlOut *Region

	phase     Phase
	cycle     int
	count     int // items recorded in the current cycle
	prevCount int // items completed by the previous submission
	inFlight  bool
	failed    bool
}

// NewScheduler returns a scheduler over the given backend, with all
// regions in their initial domains: staging buffers host-owned,
// device-local buffers device-owned.
func NewScheduler(ops CycleOps, instr *Instrumentation) *Scheduler {
	return &Scheduler{
		Ops:   ops,
		Instr: instr,
		hvIn:  NewRegion("HV-in", DomainHost),
		hvOut: NewRegion("HV-out", DomainHost),
		dlIn:  NewRegion("DL-in", DomainDevice),
		dlOut: NewRegion("DL-out", DomainDevice),
	}
}

// Cycle returns the number of completed submissions.
func (sc *Scheduler) Cycle() int { return sc.cycle }

// Failed reports whether the scheduler has failed fatally.
func (sc *Scheduler) Failed() bool { return sc.failed }

// InFlight reports whether a submission is outstanding.
func (sc *Scheduler) InFlight() bool { return sc.inFlight }

func (sc *Scheduler) timeout() time.Duration {
	if sc.Timeout > 0 {
		return sc.Timeout
	}
	return DefaultTimeout
}

func (sc *Scheduler) checkPhase(want Phase) error {
	if sc.failed {
		return ErrCycleFailed
	}
	if sc.phase != want {
		return fmt.Errorf("vkc: protocol error: in phase %s, operation requires %s",
			sc.phase, want)
	}
	return nil
}

// fatal marks the scheduler dead and returns the wrapped error.
func (sc *Scheduler) fatal(op string, err error) error {
	sc.failed = true
	return fmt.Errorf("vkc: fatal in %s (cycle %d): %w", op, sc.cycle, err)
}

// BeginCycle waits for the previous submission (if any) to complete,
// hands HV-in back to the host and acquires HV-out for it, and
// issues the host visibility operation on HV-out. After it returns,
// the host may read the previous cycle's results via [ReadResults]
// and refill HV-in via [WriteBack].
func (sc *Scheduler) BeginCycle() error {
	if err := sc.checkPhase(PhaseIdle); err != nil {
		return err
	}
	if sc.inFlight {
		if err := sc.Ops.Wait(sc.timeout()); err != nil {
			return sc.fatal("completion wait", err)
		}
		sc.inFlight = false
		sc.Instr.cycleDone()
		if err := sc.Ops.Reset(); err != nil {
			return sc.fatal("reset", err)
		}
		// device is done with HV-in; return it to the host
		if err := sc.hvIn.ReleaseTo(DomainHost); err != nil {
			return sc.fatal("HV-in release", err)
		}
		if err := sc.hvIn.AcquireBy(DomainHost); err != nil {
			return sc.fatal("HV-in acquire", err)
		}
		// copy-out released HV-out toward the host; complete the acquire
		if err := sc.hvOut.AcquireBy(DomainHost); err != nil {
			return sc.fatal("HV-out acquire", err)
		}
	}
	if err := sc.Ops.InvalidateOut(); err != nil {
		return sc.fatal("invalidate", err)
	}
	sc.phase = PhaseBegin
	sc.Instr.phase(sc.cycle, PhaseBegin)
	return nil
}

// ReadResults passes the previous cycle's HV-out bytes and item
// count to consume. Legal only between BeginCycle and WriteBack.
// consume is not called when no results are pending (first cycle).
func (sc *Scheduler) ReadResults(consume func(out []byte, n int) error) error {
	if err := sc.checkPhase(PhaseBegin); err != nil {
		return err
	}
	if sc.prevCount == 0 {
		return nil
	}
	if err := sc.hvOut.CheckRead(DomainHost); err != nil {
		return err
	}
	return consume(sc.Ops.HostOut(), sc.prevCount)
}

// WriteBack lets the host fill HV-in with new work items via fill,
// which returns the number of items written, then performs the host
// availability operation (flush) and releases HV-in to the device.
func (sc *Scheduler) WriteBack(fill func(in []byte) int) error {
	if err := sc.checkPhase(PhaseBegin); err != nil {
		return err
	}
	if err := sc.hvIn.CheckWrite(DomainHost); err != nil {
		return err
	}
	n := fill(sc.Ops.HostIn())
	if n <= 0 {
		return fmt.Errorf("vkc: WriteBack: fill returned %d items", n)
	}
	if err := sc.Ops.FlushIn(); err != nil {
		return sc.fatal("flush", err)
	}
	if err := sc.hvIn.ReleaseTo(DomainDevice); err != nil {
		return err
	}
	sc.count = n
	sc.phase = PhaseWriteBack
	sc.Instr.phase(sc.cycle, PhaseWriteBack)
	return nil
}

// CopyIn acquires HV-in for the device and records the HV-in -> DL-in
// copy with its barrier. Skipping this barrier would let the kernel
// observe a partially copied buffer.
func (sc *Scheduler) CopyIn() error {
	if err := sc.checkPhase(PhaseWriteBack); err != nil {
		return err
	}
	if err := sc.hvIn.AcquireBy(DomainDevice); err != nil {
		return err
	}
	if err := sc.hvIn.CheckRead(DomainDevice); err != nil {
		return err
	}
	if err := sc.dlIn.CheckWrite(DomainDevice); err != nil {
		return err
	}
	if err := sc.Ops.RecordCopyIn(sc.count); err != nil {
		return sc.fatal("copy-in", err)
	}
	sc.phase = PhaseCopyIn
	sc.Instr.phase(sc.cycle, PhaseCopyIn)
	return nil
}

// Dispatch records the kernel dispatch reading DL-in and writing
// DL-out, with the barrier releasing DL-out to the copy-out.
func (sc *Scheduler) Dispatch() error {
	if err := sc.checkPhase(PhaseCopyIn); err != nil {
		return err
	}
	if err := sc.dlIn.CheckRead(DomainDevice); err != nil {
		return err
	}
	if err := sc.dlOut.CheckWrite(DomainDevice); err != nil {
		return err
	}
	if err := sc.Ops.RecordDispatch(sc.count); err != nil {
		return sc.fatal("dispatch", err)
	}
	sc.phase = PhaseDispatch
	sc.Instr.phase(sc.cycle, PhaseDispatch)
	return nil
}

// CopyOut hands HV-out to the device, records the DL-out -> HV-out
// copy with the barrier making it available to the host domain, and
// leaves HV-out releasing toward the host; the next BeginCycle
// completes that acquire after the fence.
func (sc *Scheduler) CopyOut() error {
	if err := sc.checkPhase(PhaseDispatch); err != nil {
		return err
	}
	if err := sc.dlOut.CheckRead(DomainDevice); err != nil {
		return err
	}
	if err := sc.hvOut.ReleaseTo(DomainDevice); err != nil {
		return err
	}
	if err := sc.hvOut.AcquireBy(DomainDevice); err != nil {
		return err
	}
	if err := sc.Ops.RecordCopyOut(sc.count); err != nil {
		return sc.fatal("copy-out", err)
	}
	if err := sc.hvOut.ReleaseTo(DomainHost); err != nil {
		return err
	}
	sc.phase = PhaseCopyOut
	sc.Instr.phase(sc.cycle, PhaseCopyOut)
	return nil
}

// EndCycle submits the cycle's command buffers as one submission
// with a completion signal. Submission failure is fatal for the
// whole run: buffer state after an aborted cycle is undefined.
func (sc *Scheduler) EndCycle() error {
	if err := sc.checkPhase(PhaseCopyOut); err != nil {
		return err
	}
	start := time.Now()
	err := sc.Ops.Submit()
	sc.Instr.submit(SubmitEvent{
		Cycle:   sc.cycle,
		Items:   sc.count,
		Elapsed: time.Since(start),
		Err:     err,
	})
	if err != nil {
		return sc.fatal("queue submit", err)
	}
	sc.Instr.phase(sc.cycle, PhaseSubmit)
	sc.inFlight = true
	sc.prevCount = sc.count
	sc.count = 0
	sc.cycle++
	sc.phase = PhaseIdle
	return nil
}

// Drain completes the final in-flight submission and reads its
// results without starting a new cycle.
func (sc *Scheduler) Drain(consume func(out []byte, n int) error) error {
	if err := sc.BeginCycle(); err != nil {
		return err
	}
	if err := sc.ReadResults(consume); err != nil {
		return err
	}
	sc.prevCount = 0
	sc.phase = PhaseIdle
	return nil
}
