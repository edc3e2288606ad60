// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import "fmt"

// Domain is a memory coherence domain: writes within one domain are
// visible to agents in that domain without explicit synchronization;
// crossing domains requires an availability (release-side) and a
// visibility (acquire-side) operation.
type Domain int32

const (
	DomainHost Domain = iota
	DomainDevice

	DomainN
)

func (d Domain) String() string {
	switch d {
	case DomainHost:
		return "Host"
	case DomainDevice:
		return "Device"
	}
	return fmt.Sprintf("Domain(%d)", int32(d))
}

// ErrRegionState is the base error for illegal region transitions.
// Any error wrapping it indicates a protocol bug in the caller, not
// a runtime condition: the scheduler asserts on these.
var ErrRegionState = fmt.Errorf("vkc: illegal region state transition")

// Region tracks the memory-domain residency of one named buffer
// (HV-in, HV-out, DL-in, DL-out) through the cycle protocol.
// A region is either owned by a domain, or releasing: relinquished
// by its owner with its writes being made available to a pending
// domain that has not yet acquired it. Reads and writes are only
// legal from the owning domain, which makes a skipped
// availability/visibility pair a detectable state error instead of a
// silent race.
type Region struct {
	// Name is the buffer identity, for diagnostics.
	Name string

	domain    Domain
	releasing bool
	pending   Domain
}

// NewRegion returns a region owned by the given domain.
func NewRegion(name string, d Domain) *Region {
	return &Region{Name: name, domain: d}
}

// Domain returns the currently owning (or last owning, if releasing)
// domain.
func (rg *Region) Domain() Domain { return rg.domain }

// Releasing reports whether the region is between release and acquire.
func (rg *Region) Releasing() bool { return rg.releasing }

// ReleaseTo relinquishes the region from its owning domain toward d,
// corresponding to the availability operation on the release side of
// a barrier. The region must currently be owned (not releasing).
func (rg *Region) ReleaseTo(d Domain) error {
	if rg.releasing {
		return fmt.Errorf("%w: %s: release while already releasing to %s",
			ErrRegionState, rg.Name, rg.pending)
	}
	if d == rg.domain {
		return fmt.Errorf("%w: %s: release from %s to itself",
			ErrRegionState, rg.Name, d)
	}
	rg.releasing = true
	rg.pending = d
	return nil
}

// AcquireBy completes a pending release into domain d, corresponding
// to the visibility operation on the acquire side of a barrier.
func (rg *Region) AcquireBy(d Domain) error {
	if !rg.releasing {
		return fmt.Errorf("%w: %s: acquire by %s without a preceding release",
			ErrRegionState, rg.Name, d)
	}
	if d != rg.pending {
		return fmt.Errorf("%w: %s: acquire by %s but pending domain is %s",
			ErrRegionState, rg.Name, d, rg.pending)
	}
	rg.domain = d
	rg.releasing = false
	return nil
}

// CheckWrite returns an error unless domain d currently owns the
// region outright.
func (rg *Region) CheckWrite(d Domain) error {
	if rg.releasing {
		return fmt.Errorf("%w: %s: write from %s while releasing to %s",
			ErrRegionState, rg.Name, d, rg.pending)
	}
	if rg.domain != d {
		return fmt.Errorf("%w: %s: write from %s but owned by %s",
			ErrRegionState, rg.Name, d, rg.domain)
	}
	return nil
}

// CheckRead returns an error unless domain d currently owns the
// region outright, i.e. a visibility operation into d has completed.
func (rg *Region) CheckRead(d Domain) error {
	if rg.releasing {
		return fmt.Errorf("%w: %s: read from %s while releasing to %s",
			ErrRegionState, rg.Name, d, rg.pending)
	}
	if rg.domain != d {
		return fmt.Errorf("%w: %s: read from %s but owned by %s",
			ErrRegionState, rg.Name, d, rg.domain)
	}
	return nil
}
