// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reservoir - storage for pending transactions that are
// waiting to be written in a block
//
// every index of the pool is updated inside the same write
// transaction as the pending transaction itself:
//
//	pending_txs       hash → transaction, receive time
//	txs_by_recv_time  receive time → hashes
//	txs_by_issuer     issuer key → hashes
//	txs_by_recipient  recipient key → hashes
//	pending_utxo_refs outputs reserved by some pending transaction
//	pending_ud_refs   dividends reserved by some pending transaction
//	outputs_by_script future outputs by destination script
//
// no source is reserved by two pending transactions, except after a
// forced insert of a transaction taken back from a reverted block
package reservoir
