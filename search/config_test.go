// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadConfigTOML(t *testing.T) {
	p := writeFile(t, "search.toml", `
start = 1000
count = 500000
batch-size = 4096
device = 1
shader = "kernels/collatz.spv"
verify-stride = 100
`)
	cf, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cf.Start)
	assert.Equal(t, uint64(500000), cf.Count)
	assert.Equal(t, 4096, cf.BatchSize)
	assert.Equal(t, 1, cf.Device)
	assert.Equal(t, "kernels/collatz.spv", cf.Shader)
	assert.Equal(t, 100, cf.VerifyStride)
	// unset fields keep their defaults
	assert.Equal(t, Defaults().Timeout, cf.Timeout)
	assert.Equal(t, Defaults().MinBatchSize, cf.MinBatchSize)
}

func TestLoadConfigYAML(t *testing.T) {
	p := writeFile(t, "search.yaml", `
start: 27
batch-size: 256
min-batch-size: 32
timeout: 30s
`)
	cf, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(27), cf.Start)
	assert.Equal(t, 256, cf.BatchSize)
	assert.Equal(t, 32, cf.MinBatchSize)
	assert.Equal(t, Duration(30*time.Second), cf.Timeout)
}

func TestLoadConfigUnknownExtension(t *testing.T) {
	p := writeFile(t, "search.json", `{}`)
	_, err := LoadConfig(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extension")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	p := writeFile(t, "bad.toml", "batch-size = -1\n")
	_, err := LoadConfig(p)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cf := Defaults()
	require.NoError(t, cf.Validate())

	bad := cf
	bad.Start = 0
	require.Error(t, bad.Validate())

	bad = cf
	bad.BatchSize = 0
	require.Error(t, bad.Validate())

	bad = cf
	bad.MinBatchSize = cf.BatchSize + 1
	require.Error(t, bad.Validate())

	bad = cf
	bad.Timeout = 0
	require.Error(t, bad.Validate())

	bad = cf
	bad.VerifyStride = -1
	require.Error(t, bad.Validate())
}
