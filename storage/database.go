// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/fault"
)

// reserved column holding database metadata
const (
	metaName   = "meta"
	metaPrefix = 0x00
)

// for database version, stored under the meta prefix giving the
// full key 0x00 'V' 'E' 'R' 'S' 'I' 'O' 'N'
var versionKey = []byte{'V', 'E', 'R', 'S', 'I', 'O', 'N'}

// Migration - upgrade a database from one version to the next
type Migration struct {
	From  uint32
	To    uint32
	Apply func(db *Database) error
}

// Handle - anything that can take part in a transaction
type Handle interface {
	descriptor() *collectionInfo
}

// the untyped part of a collection
type collectionInfo struct {
	db       *Database
	name     string
	prefix   byte
	index    int
	column   Column
	lock     upgradableLock
	publish  func(stage *staging)
	explorer Explorable
}

// Database - a fixed set of named collections over one backend
type Database struct {
	sync.Mutex // guards declarations

	name        string
	backend     Backend
	log         *logger.L
	meta        Column
	collections []*collectionInfo
	byName      map[string]*collectionInfo
	byPrefix    map[byte]*collectionInfo
	opened      bool
	closed      atomic.Bool
}

// NewDatabase - prepare a database, collections are declared next
// and then Open is called
func NewDatabase(name string, backend Backend, log *logger.L) (*Database, error) {
	meta, err := backend.Column(metaName, metaPrefix)
	if nil != err {
		return nil, fault.Backend(err)
	}
	return &Database{
		name:     name,
		backend:  backend,
		log:      log,
		meta:     meta,
		byName:   make(map[string]*collectionInfo),
		byPrefix: make(map[byte]*collectionInfo),
	}, nil
}

// Name - name of the database
func (db *Database) Name() string {
	return db.name
}

// Durable - true if commits are persisted without Save
func (db *Database) Durable() bool {
	return db.backend.Durable()
}

// register the untyped part of a collection, the declaration order
// is the lock order
func (db *Database) declare(name string, prefix byte) (*collectionInfo, error) {
	db.Lock()
	defer db.Unlock()

	if db.opened {
		return nil, fault.AlreadyInitialised
	}
	if _, ok := db.byName[name]; ok {
		return nil, fault.CollectionAlreadyDeclared
	}
	if _, ok := db.byPrefix[prefix]; ok || metaPrefix == prefix {
		return nil, fault.CollectionPrefixInUse
	}

	column, err := db.backend.Column(name, prefix)
	if nil != err {
		return nil, fault.Backend(err)
	}

	info := &collectionInfo{
		db:     db,
		name:   name,
		prefix: prefix,
		index:  len(db.collections),
		column: column,
	}
	db.collections = append(db.collections, info)
	db.byName[name] = info
	db.byPrefix[prefix] = info
	return info, nil
}

// Open - check the stored version and migrate older databases
//
// an empty database is tagged with the current version
func (db *Database) Open(version uint32, migrations ...Migration) error {
	db.Lock()
	if db.opened {
		db.Unlock()
		return fault.AlreadyInitialised
	}
	db.opened = true
	db.Unlock()

	stored, found, err := db.Version()
	if nil != err {
		return err
	}

	if !found {
		db.log.Infof("%s: new database version: %d", db.name, version)
		return db.putVersion(version)
	}

	if stored > version {
		db.log.Criticalf("%s: database version: %d > current version: %d", db.name, stored, version)
		return fmt.Errorf("%w: %s: %d > %d", fault.DatabaseVersionTooNew, db.name, stored, version)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].From < migrations[j].From
	})

migrating:
	for stored < version {
		for _, m := range migrations {
			if m.From != stored {
				continue
			}
			if m.To <= m.From {
				break
			}
			db.log.Warnf("%s: migrate database version: %d → %d", db.name, m.From, m.To)
			if err := m.Apply(db); nil != err {
				db.log.Criticalf("%s: migration %d → %d failed: %s", db.name, m.From, m.To, err)
				return err
			}
			if err := db.putVersion(m.To); nil != err {
				return err
			}
			stored = m.To
			continue migrating
		}
		db.log.Criticalf("%s: no migration from version: %d", db.name, stored)
		return fmt.Errorf("%w: %s: %d", fault.MigrationMissing, db.name, stored)
	}
	return nil
}

// Version - the stored version
func (db *Database) Version() (uint32, bool, error) {
	value, err := db.meta.Get(versionKey)
	if nil != err {
		return 0, false, fault.Backend(err)
	}
	if nil == value {
		return 0, false, nil
	}
	if 4 != len(value) {
		return 0, false, fault.Corrupted("%s: incompatible version length: %d", db.name, len(value))
	}
	return binary.BigEndian.Uint32(value), true, nil
}

func (db *Database) putVersion(version uint32) error {
	buffer := make([]byte, 4)
	binary.BigEndian.PutUint32(buffer, version)
	err := db.backend.Apply([]ColumnBatch{{
		Column: db.meta,
		Ops:    []Op{{Kind: OpPut, Key: versionKey, Value: buffer}},
	}})
	return fault.Backend(err)
}

// Save - persist a consistent image for backends that need it
func (db *Database) Save() error {
	if db.closed.Load() {
		return fault.DatabaseIsClosed
	}
	if db.backend.Durable() {
		return nil
	}
	all := db.all()
	for _, info := range all {
		info.lock.readLock()
	}
	defer func() {
		for i := len(all) - 1; i >= 0; i -= 1 {
			all[i].lock.readUnlock()
		}
	}()
	return fault.Backend(db.backend.Save())
}

// Close - wait for running transactions, then release the backend
func (db *Database) Close() error {
	if db.closed.Swap(true) {
		return nil
	}

	all := db.all()
	for _, info := range all {
		info.lock.upgradableLock()
		info.lock.upgrade()
	}
	defer func() {
		for i := len(all) - 1; i >= 0; i -= 1 {
			all[i].lock.exclusiveUnlock()
		}
	}()

	if !db.backend.Durable() {
		if err := db.backend.Save(); nil != err {
			db.log.Errorf("%s: save on close: %s", db.name, err)
		}
	}
	db.log.Infof("%s: closed", db.name)
	return fault.Backend(db.backend.Close())
}

// Collections - names in declaration order
func (db *Database) Collections() []string {
	names := make([]string, 0, len(db.collections))
	for _, info := range db.all() {
		names = append(names, info.name)
	}
	return names
}

// Explorables - the explorer view of every collection
func (db *Database) Explorables() []Explorable {
	all := db.all()
	result := make([]Explorable, 0, len(all))
	for _, info := range all {
		result = append(result, info.explorer)
	}
	return result
}

// Explore - the explorer view of a named collection
func (db *Database) Explore(name string) (Explorable, error) {
	db.Lock()
	defer db.Unlock()
	info, ok := db.byName[name]
	if !ok {
		return nil, fault.UnknownCollection
	}
	return info.explorer, nil
}

func (db *Database) all() []*collectionInfo {
	db.Lock()
	defer db.Unlock()
	return append([]*collectionInfo{}, db.collections...)
}

// resolve handles to unique members sorted by declaration index
func (db *Database) members(handles []Handle) ([]*collectionInfo, error) {
	seen := make(map[*collectionInfo]struct{}, len(handles))
	result := make([]*collectionInfo, 0, len(handles))
	for _, h := range handles {
		info := h.descriptor()
		if info.db != db {
			return nil, fault.UnknownCollection
		}
		if _, ok := seen[info]; ok {
			continue
		}
		seen[info] = struct{}{}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].index < result[j].index
	})
	return result, nil
}
