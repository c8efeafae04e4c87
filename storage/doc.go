// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - typed collections over pluggable ordered key value backends
//
// A database is a fixed set of collections declared before it is
// opened.  Each collection owns one column of the backend identified
// by a single prefix byte and has a key codec whose byte order is
// the key order and a value codec.
//
// Notes:
// 1. ++             = concatenation of byte data
// 2. prefix 0x00    = reserved for metadata
// 3. 0x00 ++ VERSION = database version as big endian uint32
//
// Transactions:
//
//   Read      - read locks on the named collections, taken in
//               declaration order
//   TryRead   - as Read, fails with LockBusy instead of waiting
//   Write     - upgradable locks while the function stages writes in
//               a sorted overlay that reads see, exclusive locks only
//               to apply every column batch in one backend write
//
// Events:
//
//   every commit broadcasts the decoded upserts, removes and clears
//   of each collection to its subscribers; a full subscriber queue
//   loses the batch and the next delivered batch reports the count
//   in Lagged
package storage
