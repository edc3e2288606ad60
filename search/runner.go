// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hailstone-search/hailstone/base/osres"
	"github.com/hailstone-search/hailstone/collatz"
)

// batchMeta tracks one submitted batch until its results come back.
// With single buffering at most one batch is ever pending.
type batchMeta struct {
	start uint64
	count int
}

// Runner pumps consecutive candidates through an [Engine] and folds
// the results into [collatz.Records].
type Runner struct {
	// Config holds the validated search parameters.
	Config Config

	// Engine is the compute backend.
	Engine Engine

	// Log receives progress and retry events; nil disables logging.
	Log *slog.Logger

	// Records accumulates across the whole run.
	Records collatz.Records

	batch   int
	next    uint64
	pending []batchMeta
	scratch []byte // regenerated items for verification
}

// NewRunner returns a runner over the given engine.
func NewRunner(cf Config, eng Engine, log *slog.Logger) *Runner {
	return &Runner{Config: cf, Engine: eng, Log: log}
}

// Batch returns the effective batch size after any out-of-memory
// reductions.
func (rn *Runner) Batch() int { return rn.batch }

func (rn *Runner) logw() *slog.Logger {
	if rn.Log != nil {
		return rn.Log
	}
	return slog.New(discardHandler{})
}

// createBuffers allocates the engine buffers, halving the batch size
// on out-of-memory until it fits or reaches the configured floor.
// Other allocation errors are not retried.
func (rn *Runner) createBuffers() error {
	rn.batch = rn.Config.BatchSize
	for {
		err := rn.Engine.CreateBuffers(rn.batch, collatz.ItemSize, collatz.ResultSize)
		if err == nil {
			return nil
		}
		switch osres.KindOf(err) {
		case osres.OutOfHostMemory, osres.OutOfDeviceMemory, osres.Exhausted:
		default:
			return err
		}
		if rn.batch/2 < rn.Config.MinBatchSize {
			return fmt.Errorf("search: batch %d does not fit and floor %d reached: %w",
				rn.batch, rn.Config.MinBatchSize, err)
		}
		rn.batch /= 2
		rn.logw().Warn("buffer allocation failed; halving batch",
			"batch", rn.batch, "err", err)
	}
}

// remaining returns how many candidates are still to be submitted;
// -1 means unbounded.
func (rn *Runner) remaining() int64 {
	if rn.Config.Count == 0 {
		return -1
	}
	done := rn.next - rn.Config.Start
	if done >= rn.Config.Count {
		return 0
	}
	return int64(rn.Config.Count - done)
}

// consume folds one completed batch into the records, verifying
// against the CPU reference when configured.
func (rn *Runner) consume(out []byte, n int) error {
	if len(rn.pending) == 0 {
		return fmt.Errorf("search: results for no pending batch")
	}
	meta := rn.pending[0]
	rn.pending = rn.pending[1:]
	if n != meta.count {
		return fmt.Errorf("search: batch returned %d results, submitted %d", n, meta.count)
	}
	for i := 0; i < n; i++ {
		steps, flags := collatz.Result(out[i*collatz.ResultSize:])
		rn.Records.Update(meta.start+uint64(i), steps, flags)
	}
	if stride := rn.Config.VerifyStride; stride > 0 {
		if cap(rn.scratch) < n*collatz.ItemSize {
			rn.scratch = make([]byte, n*collatz.ItemSize)
		}
		items := rn.scratch[:n*collatz.ItemSize]
		collatz.FillItems(items, meta.start, n)
		if err := collatz.Verify(items, out, n, stride); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the search until Count candidates are checked or ctx
// is canceled, then drains the final batch and frees the buffers.
// Out-of-memory on buffer creation halves the batch and retries;
// any cycle error is final.
func (rn *Runner) Run(ctx context.Context) error {
	if err := rn.Config.Validate(); err != nil {
		return err
	}
	if err := rn.createBuffers(); err != nil {
		return err
	}
	defer rn.Engine.DestroyBuffers()

	rn.next = rn.Config.Start
	rn.pending = rn.pending[:0]
	cycles := 0
	for {
		if err := ctx.Err(); err != nil {
			return rn.finish(err)
		}
		rem := rn.remaining()
		if rem == 0 {
			return rn.finish(nil)
		}
		n := rn.batch
		if rem > 0 && int64(n) > rem {
			n = int(rem)
		}
		start := rn.next
		err := rn.Engine.RunCycle(func(in []byte) int {
			return collatz.FillItems(in, start, n)
		}, rn.consume)
		if err != nil {
			return err
		}
		rn.pending = append(rn.pending, batchMeta{start: start, count: n})
		rn.next += uint64(n)
		cycles++
		if re := rn.Config.ReportEvery; re > 0 && cycles%re == 0 {
			rn.logw().Info("progress", "next", rn.next, "records", rn.Records.String())
		}
	}
}

// finish drains the in-flight batch and reports the run outcome.
// cause is the cancellation error, nil on normal completion.
func (rn *Runner) finish(cause error) error {
	if len(rn.pending) > 0 {
		if err := rn.Engine.Drain(rn.consume); err != nil {
			return err
		}
	}
	rn.logw().Info("search done", "checked", rn.Records.Checked,
		"records", rn.Records.String())
	return cause
}

// discardHandler drops every record; used when no logger is set.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
