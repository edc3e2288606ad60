// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionHandoff(t *testing.T) {
	rg := NewRegion("HV-in", DomainHost)
	require.Equal(t, DomainHost, rg.Domain())
	require.False(t, rg.Releasing())

	require.NoError(t, rg.CheckWrite(DomainHost))
	require.NoError(t, rg.CheckRead(DomainHost))

	require.NoError(t, rg.ReleaseTo(DomainDevice))
	require.True(t, rg.Releasing())

	// between release and acquire nobody may touch it
	require.ErrorIs(t, rg.CheckWrite(DomainHost), ErrRegionState)
	require.ErrorIs(t, rg.CheckRead(DomainDevice), ErrRegionState)

	require.NoError(t, rg.AcquireBy(DomainDevice))
	require.Equal(t, DomainDevice, rg.Domain())
	require.NoError(t, rg.CheckRead(DomainDevice))
	require.ErrorIs(t, rg.CheckRead(DomainHost), ErrRegionState)
}

func TestRegionIllegalTransitions(t *testing.T) {
	rg := NewRegion("DL-out", DomainDevice)

	// acquire without release
	err := rg.AcquireBy(DomainHost)
	require.ErrorIs(t, err, ErrRegionState)

	// release to self
	require.ErrorIs(t, rg.ReleaseTo(DomainDevice), ErrRegionState)

	// double release
	require.NoError(t, rg.ReleaseTo(DomainHost))
	require.ErrorIs(t, rg.ReleaseTo(DomainHost), ErrRegionState)

	// acquire by the wrong domain
	require.ErrorIs(t, rg.AcquireBy(DomainDevice), ErrRegionState)

	// the right acquire still completes
	require.NoError(t, rg.AcquireBy(DomainHost))
	require.Equal(t, DomainHost, rg.Domain())
}

func TestRegionErrorsNameTheRegion(t *testing.T) {
	rg := NewRegion("HV-out", DomainHost)
	err := rg.CheckWrite(DomainDevice)
	require.Error(t, err)
	require.Contains(t, err.Error(), "HV-out")
	require.True(t, errors.Is(err, ErrRegionState))
}

func TestDomainString(t *testing.T) {
	require.Equal(t, "Host", DomainHost.String())
	require.Equal(t, "Device", DomainDevice.String())
	require.Equal(t, "Domain(7)", Domain(7).String())
}
