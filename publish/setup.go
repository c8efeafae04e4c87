// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package publish - broadcast committed blocks and mempool changes
// on ZeroMQ PUB sockets
package publish

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/background"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/schema"
)

// Configuration - the publish section of the configuration file
type Configuration struct {
	Broadcast []string `gluamapper:"broadcast" json:"broadcast"`
}

// events buffered per subscription
const subscriptionBuffer = 100

type publishData struct {
	sync.RWMutex

	log *logger.L

	brdc broadcaster

	background *background.T

	initialised bool
}

var globalData publishData

// Initialise - bind the broadcast addresses and start forwarding
//
// an empty broadcast list disables publishing
func Initialise(configuration *Configuration, chain *schema.ChainState, pool *reservoir.Reservoir) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	log := logger.New("publish")
	globalData.log = log
	log.Info("starting…")

	if 0 == len(configuration.Broadcast) {
		log.Info("no broadcast addresses, publishing disabled")
		globalData.initialised = true
		return nil
	}

	socket, err := bind(configuration.Broadcast)
	if nil != err {
		log.Errorf("bind: %v  error: %s", configuration.Broadcast, err)
		return err
	}

	globalData.brdc = broadcaster{
		log:    log,
		socket: socket,
		blocks: chain.BlocksMeta.Subscribe(subscriptionBuffer),
		txs:    pool.Subscribe(subscriptionBuffer),
	}
	globalData.initialised = true

	log.Info("start background…")
	processes := background.Processes{
		&globalData.brdc,
	}
	globalData.background = background.Start(processes, nil)

	return nil
}

// Finalise - stop the broadcaster
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	globalData.background.Stop()
	globalData.background = nil
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}
