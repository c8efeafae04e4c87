// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package backends - open a storage backend by name
package backends

import (
	"os"
	"strings"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/bolt"
	"github.com/uci-network/ucid/storage/leveldb"
	"github.com/uci-network/ucid/storage/memory"
	"github.com/uci-network/ucid/storage/pebble"
)

// backend names
const (
	LevelDB = "leveldb"
	Pebble  = "pebble"
	Bolt    = "bolt"
	Memory  = "memory"
)

// Names - all supported backends, the first is the default
func Names() []string {
	return []string{LevelDB, Pebble, Bolt, Memory}
}

// Open - open or create a backend in directory
//
// the memory backend is ephemeral when directory is empty
func Open(kind string, directory string, readOnly bool) (storage.Backend, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if "" == kind {
		kind = LevelDB
	}

	if Memory == kind {
		if "" == directory {
			return memory.New(), nil
		}
		b, err := memory.Open(directory)
		if nil != err {
			return nil, err
		}
		return b, nil
	}

	if "" == directory {
		return nil, fault.MissingParameters
	}
	if !readOnly {
		if err := os.MkdirAll(directory, 0o700); nil != err {
			return nil, err
		}
	}

	var b storage.Backend
	var err error
	switch kind {
	case LevelDB:
		b, err = leveldb.Open(directory, readOnly)
	case Pebble:
		b, err = pebble.Open(directory, readOnly)
	case Bolt:
		b, err = bolt.Open(directory, readOnly)
	default:
		return nil, fault.InvalidBackend
	}
	if nil != err {
		return nil, err
	}
	return b, nil
}
