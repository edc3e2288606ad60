// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogPassthrough(t *testing.T) {
	err := New("boom")
	assert.Equal(t, err, Log(err))
	assert.NoError(t, Log(nil))
}

func TestLog1Passthrough(t *testing.T) {
	v := Log1(42, New("boom"))
	assert.Equal(t, 42, v)
	v = Log1(17, nil)
	assert.Equal(t, 17, v)
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { Must(nil) })
	assert.Panics(t, func() { Must(New("boom")) })
}

func TestJoinIs(t *testing.T) {
	a := New("a")
	b := New("b")
	j := Join(a, b)
	assert.True(t, Is(j, a))
	assert.True(t, Is(j, b))
}
