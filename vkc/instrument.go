// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AllocEvent carries the metadata reported around each buffer
// allocation or free. Observers receive copies of size/address
// metadata only, never the memory itself.
type AllocEvent struct {
	// Name is the buffer identity (HV-in, DL-out, ...).
	Name string

	// Size in bytes.
	Size int

	// Addr is the mapped host address, 0 for device-local memory.
	Addr uintptr

	// Host is true for host-visible memory.
	Host bool

	// Elapsed is the wall time the allocation call took.
	Elapsed time.Duration
}

// SubmitEvent carries the metadata reported around each queue
// submission.
type SubmitEvent struct {
	// Cycle is the scheduler cycle number.
	Cycle int

	// Items is the number of work items in the submission.
	Items int

	// Elapsed is the wall time of the submit call itself (not the
	// device execution).
	Elapsed time.Duration

	// Err is the submission error, if any.
	Err error
}

// PhaseStamp records when a scheduler phase was entered, for
// protocol-ordering verification.
type PhaseStamp struct {
	Cycle int
	Phase Phase
	At    time.Time
}

// Instrumentation is an explicitly owned observation context for the
// compute layer: counters, per-event hooks, and an optional phase
// trace. All hooks are pure side-channel observers and must never
// affect scheduling; the scheduler ignores anything they do.
// A nil *Instrumentation is valid and disables everything.
//
// All fields are written by the host control thread only; hooks run
// synchronously on that thread (in debug setups a hook may do
// logging I/O on the allocation critical path, trading throughput
// for observability).
type Instrumentation struct {
	// RunID correlates all events from one process run.
	RunID uuid.UUID

	// Log receives structured events; nil disables logging.
	Log *slog.Logger

	// Hooks, all optional.
	OnAlloc   func(AllocEvent)
	OnFree    func(AllocEvent)
	OnSubmit  func(SubmitEvent)
	OnDestroy func(name string)
	OnPhase   func(PhaseStamp)

	// TracePhases appends every phase stamp to Trace.
	TracePhases bool

	// Trace is the recorded phase history when TracePhases is set.
	Trace []PhaseStamp

	// Counters.
	Allocs  int64
	Frees   int64
	Submits int64
	Cycles  int64
}

// NewInstrumentation returns an instrumentation context with a fresh
// run ID, logging to the given logger (nil disables logging).
func NewInstrumentation(log *slog.Logger) *Instrumentation {
	return &Instrumentation{RunID: uuid.New(), Log: log}
}

func (in *Instrumentation) alloc(ev AllocEvent) {
	if in == nil {
		return
	}
	in.Allocs++
	if in.Log != nil {
		in.Log.Debug("alloc", "run", in.RunID, "name", ev.Name,
			"size", ev.Size, "addr", ev.Addr, "host", ev.Host, "elapsed", ev.Elapsed)
	}
	if in.OnAlloc != nil {
		in.OnAlloc(ev)
	}
}

func (in *Instrumentation) free(ev AllocEvent) {
	if in == nil {
		return
	}
	in.Frees++
	if in.Log != nil {
		in.Log.Debug("free", "run", in.RunID, "name", ev.Name, "size", ev.Size)
	}
	if in.OnFree != nil {
		in.OnFree(ev)
	}
}

func (in *Instrumentation) submit(ev SubmitEvent) {
	if in == nil {
		return
	}
	in.Submits++
	if in.Log != nil {
		in.Log.Debug("submit", "run", in.RunID, "cycle", ev.Cycle,
			"items", ev.Items, "elapsed", ev.Elapsed, "err", ev.Err)
	}
	if in.OnSubmit != nil {
		in.OnSubmit(ev)
	}
}

func (in *Instrumentation) destroy(name string) {
	if in == nil {
		return
	}
	if in.Log != nil {
		in.Log.Debug("destroy", "run", in.RunID, "name", name)
	}
	if in.OnDestroy != nil {
		in.OnDestroy(name)
	}
}

func (in *Instrumentation) phase(cycle int, ph Phase) {
	if in == nil {
		return
	}
	st := PhaseStamp{Cycle: cycle, Phase: ph, At: time.Now()}
	if in.TracePhases {
		in.Trace = append(in.Trace, st)
	}
	if in.OnPhase != nil {
		in.OnPhase(st)
	}
}

func (in *Instrumentation) cycleDone() {
	if in == nil {
		return
	}
	in.Cycles++
}
