// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package indexer - apply and revert validated blocks to the chain
// state
//
// Apply order inside one write transaction:
//
//   1. block metadata and median time index
//   2. identities: new records, joins, exclusions and revocations
//   3. universal dividend: reval row, per member UD rows and balances
//   4. transaction inputs: UTXO or UD removed, balance debited,
//      consumed shadow recorded under the block number
//   5. transaction outputs: UTXO and script index rows, balance credited
//   6. transaction record and the issuer, recipient and block indexes
//   7. consumed shadow rows older than the reorg horizon are pruned
//
// After commit the pending pool drops the written transactions and the
// web of trust receives the new nodes, certifications and enabled
// flags.
//
// Revert is the exact inverse in reverse order and only applies to the
// current tip.  A negative balance or an input that cannot be resolved
// is a corruption: nothing is written and the indexer halts.
package indexer
