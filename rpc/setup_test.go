// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/rpc"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage/memory"
	"github.com/uci-network/ucid/workers"
	"github.com/uci-network/ucid/wot"
)

func TestEndpoints(t *testing.T) {
	endpoints, err := rpc.Endpoints(&rpc.Configuration{})
	require.NoError(t, err)
	assert.Empty(t, endpoints)

	endpoints, err = rpc.Endpoints(&rpc.Configuration{RemoteHost: "node.example.org"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GVA node.example.org 30901 gva",
		"GVASUB node.example.org 30901 gva/subscription",
	}, endpoints)

	endpoints, err = rpc.Endpoints(&rpc.Configuration{
		RemoteHost:    "192.0.2.7",
		RemotePort:    443,
		RemoteTLS:     true,
		Path:          "local",
		RemotePath:    "/public/",
		RemoteSubPath: "public-ws",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GVA S 192.0.2.7 443 public",
		"GVASUB S 192.0.2.7 443 public-ws",
	}, endpoints)

	for _, c := range []rpc.Configuration{
		{RemoteHost: "node..example.org"},
		{RemoteHost: strings.Repeat("x", 64) + ".example.org"},
		{RemoteHost: "node.example.org", RemotePort: 70000},
	} {
		_, err := rpc.Endpoints(&c)
		assert.Equal(t, fault.InvalidEndpoint, err, "host: %q", c.RemoteHost)
	}
}

func TestInitialiseDisabled(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	require.NoError(t, rpc.Initialise(&rpc.Configuration{}, gva.Configuration{}, 0))
	assert.Equal(t, fault.AlreadyInitialised, rpc.Initialise(&rpc.Configuration{}, gva.Configuration{}, 0))
	assert.Empty(t, rpc.Addresses())
	assert.NoError(t, rpc.SetWhitelist([]string{"127.0.0.1"}))
	require.NoError(t, rpc.Finalise())
	assert.Equal(t, fault.NotInitialised, rpc.Finalise())
	assert.Equal(t, fault.NotInitialised, rpc.SetWhitelist(nil))
}

func TestInitialiseServes(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	log := logger.New(fixtures.LogCategory)
	chain, err := schema.OpenChainState(memory.New(), log)
	require.NoError(t, err)
	mempool, err := schema.OpenMempool(memory.New(), log)
	require.NoError(t, err)
	r, err := reservoir.New(mempool, chain, reservoir.DefaultCapacity)
	require.NoError(t, err)
	graph := wot.NewShared(wot.New(4))
	pool := workers.New(2, 16)
	defer pool.Stop()

	err = rpc.Initialise(&rpc.Configuration{
		Listen:     []string{"127.0.0.1:0"},
		RemoteHost: "node.example.org",
		Whitelist:  []string{"127.0.0.1"},
	}, gva.Configuration{
		Reader:   reader.New(chain, r, graph),
		Pool:     r,
		Blocks:   chain.BlocksMeta,
		Workers:  pool,
		Currency: fixtures.Currency,
		Version:  "v0.0.1",
	}, 100)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, rpc.Finalise())
	}()

	addresses := rpc.Addresses()
	require.Len(t, addresses, 1)

	resp, err := http.Post("http://"+addresses[0].String()+"/gva", "application/json",
		strings.NewReader(`{"query": "{ node { endpoints } membersCount }"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Data struct {
			Node struct {
				Endpoints []string `json:"endpoints"`
			} `json:"node"`
			MembersCount int `json:"membersCount"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, []string{
		"GVA node.example.org 30901 gva",
		"GVASUB node.example.org 30901 gva/subscription",
	}, reply.Data.Node.Endpoints)
	assert.Equal(t, 0, reply.Data.MembersCount)

	metrics, err := http.Get("http://" + addresses[0].String() + "/metrics")
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
