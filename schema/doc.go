// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package schema - the collections of the chain state and mempool
// databases
//
// Notes:
// 1. ++       = concatenation of byte data
// 2. BN       = block number as 4 byte big endian
// 3. SH       = SHA3-256 of the script text
// 4. IDX      = output index as 4 byte big endian
// 5. POD list = consecutive 32 byte hashes
//
// chain_state:
//
//   B ++ BN                       - block metadata
//   M ++ median time(8) ++ BN     - nothing, blocks by median time
//   I ++ pubkey                   - identity record
//   U ++ pubkey ++ BN             - nothing, an unspent dividend
//   R ++ BN                       - dividend amount from this block on
//   D ++ BN                       - nothing, blocks that created a dividend
//   O ++ txid ++ IDX              - unspent output
//   G ++ SH ++ BN ++ txid ++ IDX  - amount, outputs by script
//   C ++ BN ++ txid ++ IDX        - output spent at BN, kept for revert
//   W ++ script text              - balance
//   T ++ txid                     - committed transaction
//   S ++ SH ++ BN                 - POD list of txids sent by the script
//   P ++ SH ++ BN                 - POD list of txids received by the script
//   K ++ BN                       - POD list of txids in the block
//
// txs_mp:
//
//   t ++ txid                     - pending transaction
//   r ++ receive time(8)          - POD list of txids
//   i ++ pubkey                   - POD list of txids issued
//   e ++ pubkey                   - POD list of txids received
//   u ++ txid ++ IDX              - nothing, output reserved by a pending tx
//   d ++ pubkey ++ BN             - nothing, dividend reserved by a pending tx
//   o ++ script text              - outputs of pending transactions
package schema
