// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/storage/backends"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

// run one command against the memory backend stored in dir
func run(t *testing.T, dir string, args ...string) (string, error) {
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}

	argv := append([]string{"ucidb", "--backend", backends.Memory, "--data", dir}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func TestCollections(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "collections")
	require.NoError(t, err)

	var info []collectionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.NotEmpty(t, info)
	names := []string{}
	for _, c := range info {
		names = append(names, c.Name)
		assert.Equal(t, 0, c.Count)
	}
	assert.Contains(t, names, "blocks_meta")

	out, err = run(t, dir, "--mempool", "collections")
	require.NoError(t, err)
	assert.NotContains(t, out, "blocks_meta")
}

func TestPutGetDelete(t *testing.T) {
	dir := t.TempDir()

	for _, n := range []string{"5", "6", "7"} {
		_, err := run(t, dir, "--write", "put", "blocks_meta", n, `{"number": `+n+`, "membersCount": 3}`)
		require.NoError(t, err)
	}

	out, err := run(t, dir, "count", "blocks_meta")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = run(t, dir, "get", "blocks_meta", "6")
	require.NoError(t, err)
	assert.Contains(t, out, `"number": 6`)

	_, err = run(t, dir, "get", "blocks_meta", "8")
	assert.Error(t, err)

	out, err = run(t, dir, "list", "--reverse", "--limit", "2", "blocks_meta")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `{"key":"7"`), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `{"key":"6"`), lines[1])

	out, err = run(t, dir, "list", "--from", "6", "blocks_meta")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	out, err = run(t, dir, "find", "--key", "^[57]$", "blocks_meta")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	_, err = run(t, dir, "find", "--value", "(", "blocks_meta")
	assert.Error(t, err)

	_, err = run(t, dir, "--write", "delete", "blocks_meta", "6")
	require.NoError(t, err)

	out, err = run(t, dir, "count", "blocks_meta")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "count")
	assert.Error(t, err, "missing collection")

	_, err = run(t, dir, "count", "no_such_collection")
	assert.Error(t, err)

	_, err = run(t, dir, "--write", "put", "blocks_meta", "1", "{not json")
	assert.Error(t, err)

	_, err = run(t, dir, "--write", "put", "blocks_meta", "not-a-number", "{}")
	assert.Error(t, err)

	_, err = run(t, dir, "list", "--limit", "0", "blocks_meta")
	assert.Error(t, err)

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	err = app.Run([]string{"ucidb", "--backend", "sqlite", "--data", dir, "count", "blocks_meta"})
	assert.Error(t, err)
}
