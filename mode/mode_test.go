// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mode_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/mode"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

func TestStartMode(t *testing.T) {
	t.Setenv(mode.ModeVariable, "start")
	t.Setenv(mode.TestsVariable, "")
	t.Setenv(mode.RemotePathVariable, "/gva")

	require.NoError(t, mode.Initialise())
	defer func() {
		_ = mode.Finalise()
	}()

	assert.Equal(t, fault.AlreadyInitialised, mode.Initialise())

	assert.True(t, mode.Is(mode.Normal))
	assert.True(t, mode.IsTesting())
	assert.Equal(t, "/gva", mode.RemotePath())
	assert.Equal(t, "Normal", mode.String())

	mode.Set(mode.Stopped)
	assert.True(t, mode.IsNot(mode.Normal))
	assert.Equal(t, "Stopped", mode.String())
}

func TestSyncMode(t *testing.T) {
	t.Setenv(mode.ModeVariable, "SYNC")
	t.Setenv(mode.TestsVariable, "")
	require.NoError(t, os.Unsetenv(mode.TestsVariable))

	require.NoError(t, mode.Initialise())
	defer func() {
		_ = mode.Finalise()
	}()

	assert.True(t, mode.Is(mode.Synchronise))
	assert.False(t, mode.IsTesting())
}

func TestInvalidMode(t *testing.T) {
	t.Setenv(mode.ModeVariable, "fast")
	assert.Equal(t, fault.InvalidRequest, mode.Initialise())
	assert.Equal(t, fault.NotInitialised, mode.Finalise())
}
