// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mode - process wide run state and environment switches
package mode

import (
	"os"
	"strings"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/fault"
)

// environment variables
const (
	ModeVariable       = "UCID_MODE"
	TestsVariable      = "UCID_TESTS"
	RemotePathVariable = "UCID_REMOTE_PATH"
)

// Mode - type to hold the mode
type Mode int

// all possible modes
const (
	Stopped Mode = iota
	Synchronise
	Normal
	maximum
)

var globalData struct {
	sync.RWMutex
	log        *logger.L
	mode       Mode
	testing    bool
	remotePath string

	// set once during initialise
	initialised bool
}

// Initialise - read the environment, sync mode keeps the frontend
// closed while blocks are imported
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	globalData.log = logger.New("mode")
	globalData.log.Info("starting…")

	globalData.mode = Normal
	switch m := strings.ToLower(strings.TrimSpace(os.Getenv(ModeVariable))); m {
	case "", "start":
	case "sync":
		globalData.mode = Synchronise
	default:
		globalData.log.Criticalf("%s: %q is not one of: sync, start", ModeVariable, m)
		return fault.InvalidRequest
	}

	_, globalData.testing = os.LookupEnv(TestsVariable)
	globalData.remotePath = os.Getenv(RemotePathVariable)

	globalData.log.Infof("mode: %s  testing: %t", globalData.mode, globalData.testing)

	globalData.initialised = true
	return nil
}

// Finalise - shutdown mode handling
func Finalise() error {
	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("shutting down…")
	Set(Stopped)

	globalData.Lock()
	globalData.initialised = false
	globalData.Unlock()

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// Set - change mode
func Set(mode Mode) {
	if mode < Stopped || mode >= maximum {
		globalData.log.Errorf("ignore invalid set: %d", mode)
		return
	}
	globalData.Lock()
	globalData.mode = mode
	globalData.Unlock()
	globalData.log.Infof("set: %s", mode)
}

// Is - detect mode
func Is(mode Mode) bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return mode == globalData.mode
}

// IsNot - detect mode
func IsNot(mode Mode) bool {
	return !Is(mode)
}

// IsTesting - databases are ephemeral
func IsTesting() bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.testing
}

// RemotePath - advertised GraphQL path override, blank if unset
func RemotePath() string {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.remotePath
}

// String - current mode
func String() string {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.mode.String()
}

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case Synchronise:
		return "Synchronise"
	case Normal:
		return "Normal"
	default:
		return "*Unknown*"
	}
}
