// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"
)

// upgradableLock - a read/write lock with a single upgradable reader
//
// an upgradable holder shares the lock with plain readers until it
// upgrades, at most one upgradable holder exists at a time so the
// upgrade cannot deadlock against another upgrader
type upgradableLock struct {
	upgrader sync.Mutex
	rw       sync.RWMutex
}

func (l *upgradableLock) readLock() {
	l.rw.RLock()
}

func (l *upgradableLock) tryReadLock() bool {
	return l.rw.TryRLock()
}

func (l *upgradableLock) readUnlock() {
	l.rw.RUnlock()
}

func (l *upgradableLock) upgradableLock() {
	l.upgrader.Lock()
	l.rw.RLock()
}

// must hold the upgradable lock
func (l *upgradableLock) upgrade() {
	l.rw.RUnlock()
	l.rw.Lock()
}

func (l *upgradableLock) upgradableUnlock() {
	l.rw.RUnlock()
	l.upgrader.Unlock()
}

func (l *upgradableLock) exclusiveUnlock() {
	l.rw.Unlock()
	l.upgrader.Unlock()
}
