// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentationNilIsSafe(t *testing.T) {
	var in *Instrumentation
	require.NotPanics(t, func() {
		in.alloc(AllocEvent{Name: "HV-in", Size: 64})
		in.free(AllocEvent{Name: "HV-in"})
		in.submit(SubmitEvent{Cycle: 1})
		in.destroy("buffer set")
		in.phase(0, PhaseBegin)
		in.cycleDone()
	})
}

func TestInstrumentationCountersAndHooks(t *testing.T) {
	in := NewInstrumentation(nil)
	require.NotEqual(t, [16]byte{}, [16]byte(in.RunID))

	var allocs, frees []AllocEvent
	var destroyed []string
	in.OnAlloc = func(ev AllocEvent) { allocs = append(allocs, ev) }
	in.OnFree = func(ev AllocEvent) { frees = append(frees, ev) }
	in.OnDestroy = func(name string) { destroyed = append(destroyed, name) }

	in.alloc(AllocEvent{Name: "DL-in", Size: 4096, Host: false})
	in.alloc(AllocEvent{Name: "HV-in", Size: 4096, Addr: 0xdead, Host: true})
	in.free(AllocEvent{Name: "DL-in", Size: 4096})
	in.destroy("buffer set")

	assert.Equal(t, int64(2), in.Allocs)
	assert.Equal(t, int64(1), in.Frees)
	require.Len(t, allocs, 2)
	assert.Equal(t, "DL-in", allocs[0].Name)
	assert.True(t, allocs[1].Host)
	assert.Equal(t, uintptr(0xdead), allocs[1].Addr)
	require.Len(t, frees, 1)
	assert.Equal(t, []string{"buffer set"}, destroyed)
}

func TestInstrumentationLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	in := NewInstrumentation(log)

	in.alloc(AllocEvent{Name: "HV-out", Size: 128, Host: true})
	in.submit(SubmitEvent{Cycle: 3, Items: 16})

	out := buf.String()
	assert.Contains(t, out, "alloc")
	assert.Contains(t, out, "HV-out")
	assert.Contains(t, out, "submit")
	assert.Contains(t, out, in.RunID.String())
}

func TestInstrumentationPhaseTraceDisabledByDefault(t *testing.T) {
	in := NewInstrumentation(nil)
	in.phase(0, PhaseBegin)
	in.phase(0, PhaseWriteBack)
	assert.Empty(t, in.Trace)

	in.TracePhases = true
	in.phase(1, PhaseBegin)
	require.Len(t, in.Trace, 1)
	assert.Equal(t, 1, in.Trace[0].Cycle)
	assert.Equal(t, PhaseBegin, in.Trace[0].Phase)
	assert.False(t, in.Trace[0].At.IsZero())
}
