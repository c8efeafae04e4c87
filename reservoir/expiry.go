// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"strconv"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// RemovePendingTxByHash - drop one transaction, false if it was not
// pending
func (r *Reservoir) RemovePendingTxByHash(hash digest.Hash) (bool, error) {
	found := false
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		var err error
		found, err = r.pool(tx).remove(hash)
		return err
	}, r.mempool.All()...)
	if nil != err {
		return false, err
	}
	if found {
		r.log.Debugf("removed tx: %s", hash)
		r.updated()
	}
	return found, nil
}

// RemovePendingTxs - drop the listed transactions in one write,
// hashes that are not pending are ignored
func (r *Reservoir) RemovePendingTxs(hashes []digest.Hash) (int, error) {
	if 0 == len(hashes) {
		return 0, nil
	}
	removed := 0
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		removed = 0
		p := r.pool(tx)
		for _, hash := range hashes {
			found, err := p.remove(hash)
			if nil != err {
				return err
			}
			if found {
				removed += 1
			}
		}
		return nil
	}, r.mempool.All()...)
	if nil != err {
		return 0, err
	}
	if removed > 0 {
		r.log.Debugf("removed: %d of: %d txs", removed, len(hashes))
		r.updated()
	}
	return removed, nil
}

// RemoveWritten - drop transactions included in a block, with every
// pending transaction that spends an input the block consumed and any
// pending transaction that spends an output of one so dropped
func (r *Reservoir) RemoveWritten(txs []*transactionrecord.Transaction) error {
	if 0 == len(txs) {
		return nil
	}
	written := make(map[digest.Hash]struct{}, len(txs))
	consumed := make(map[string]struct{})
	for _, t := range txs {
		written[t.FillHash()] = struct{}{}
		for _, input := range t.Inputs {
			consumed[inputKey(input)] = struct{}{}
		}
	}

	removed, conflicts := 0, 0
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		removed, conflicts = 0, 0
		p := r.pool(tx)

		pending := []*transactionrecord.Transaction{}
		err := p.txs.Iter(storage.RangeAll[digest.Hash]()).Values(func(v schema.PendingTx) (bool, error) {
			pending = append(pending, v.Tx)
			return true, nil
		})
		if nil != err {
			return err
		}

		// dropped outputs make their spenders invalid in turn
		dropped := make(map[digest.Hash]struct{})
		for changed := true; changed; {
			changed = false
			for _, t := range pending {
				hash := t.FillHash()
				if _, ok := dropped[hash]; ok {
					continue
				}
				_, isWritten := written[hash]
				if !isWritten && !conflicting(t, consumed, dropped) {
					continue
				}
				found, err := p.remove(hash)
				if nil != err {
					return err
				}
				dropped[hash] = struct{}{}
				changed = true
				if !found {
					continue
				}
				removed += 1
				if !isWritten {
					conflicts += 1
				}
			}
		}
		return nil
	}, r.mempool.All()...)
	if nil != err {
		return err
	}
	if removed > 0 {
		r.log.Debugf("removed: %d written txs  conflicts: %d", removed-conflicts, conflicts)
		r.updated()
	}
	return nil
}

// true if t spends a consumed source or an output of a dropped tx
func conflicting(t *transactionrecord.Transaction, consumed map[string]struct{}, dropped map[digest.Hash]struct{}) bool {
	for _, input := range t.Inputs {
		if _, ok := consumed[inputKey(input)]; ok {
			return true
		}
		if transactionrecord.SourceUtxo != input.Kind {
			continue
		}
		if _, ok := dropped[input.TxHash]; ok {
			return true
		}
	}
	return false
}

func inputKey(input transactionrecord.Input) string {
	switch input.Kind {
	case transactionrecord.SourceUd:
		return "D:" + input.PublicKey.String() + ":" + strconv.FormatUint(uint64(input.BlockNumber), 10)
	default:
		return "T:" + input.TxHash.String() + ":" + strconv.FormatUint(uint64(input.OutputIndex), 10)
	}
}

// RemoveAllPendingTxs - empty the pool
func (r *Reservoir) RemoveAllPendingTxs() error {
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		p := r.pool(tx)
		for _, f := range []func() error{
			p.txs.Clear,
			p.byTime.Clear,
			p.byIssuer.Clear,
			p.byReceiver.Clear,
			p.utxoRefs.Clear,
			p.udRefs.Clear,
			p.outputs.Clear,
		} {
			if err := f(); nil != err {
				return err
			}
		}
		return nil
	}, r.mempool.All()...)
	if nil != err {
		return err
	}
	r.log.Info("removed all pending txs")
	r.updated()
	return nil
}

// TrimExpiredNonWrittenTxs - drop every transaction received before
// limitTime (unix seconds)
func (r *Reservoir) TrimExpiredNonWrittenTxs(limitTime int64) (int, error) {
	removed := 0
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		removed = 0
		p := r.pool(tx)

		expired := []digest.Hash{}
		err := p.byTime.Iter(storage.RangeBelow(limitTime)).Values(func(l schema.HashList) (bool, error) {
			expired = append(expired, l...)
			return true, nil
		})
		if nil != err {
			return err
		}

		for _, hash := range expired {
			found, err := p.remove(hash)
			if nil != err {
				return err
			}
			if found {
				removed += 1
			}
		}
		return nil
	}, r.mempool.All()...)
	if nil != err {
		return 0, err
	}
	if removed > 0 {
		r.log.Infof("expired: %d txs", removed)
		r.updated()
	}
	return removed, nil
}
