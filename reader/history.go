// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"math"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
)

// WrittenTx - a committed transaction, cursor N:HASH
type WrittenTx struct {
	schema.TxRecord
}

// Cursor - written block and hash
func (w WrittenTx) Cursor() string {
	return cursor{number: w.WrittenBlock.Number, hash: w.Tx.Hash, hasHash: true}.String()
}

// TimeWindow - optional median time bounds, both inclusive
type TimeWindow struct {
	From *uint64
	To   *uint64
}

// History - transactions sent and received by a script
type History struct {
	Sent     Paged[WrittenTx] `json:"sent"`
	Received Paged[WrittenTx] `json:"received"`
}

type written struct {
	number uint32
	hash   digest.Hash
}

// TxsHistory - committed transactions of a script hash, both streams
// paged with the same page info
func (r *Reader) TxsHistory(scriptHash digest.Hash, window TimeWindow, page PageInfo) (History, error) {
	from, hasCursor, err := parseCursor(page.Cursor, 2)
	if nil != err {
		return History{}, err
	}

	empty := historyPage{result: Paged[WrittenTx]{Data: []WrittenTx{}}}
	sent, received := empty, empty
	c := r.chain
	err = c.DB.Read(func(tx *storage.Tx) error {
		lo, hi, ok, err := r.blockWindow(tx, window)
		if nil != err || !ok {
			return err
		}
		q := historyQuery{
			scriptHash: scriptHash,
			lo:         lo,
			hi:         hi,
			page:       page,
			from:       from,
			hasCursor:  hasCursor,
		}
		sent, err = q.scan(c.TxsByIssuer.In(tx))
		if nil != err {
			return err
		}
		received, err = q.scan(c.TxsByRecipient.In(tx))
		if nil != err {
			return err
		}

		txs := c.Txs.In(tx)
		if err := sent.resolve(txs); nil != err {
			return err
		}
		return received.resolve(txs)
	}, c.BlocksByCommonTime, c.Txs, c.TxsByIssuer, c.TxsByRecipient)
	if nil != err {
		return History{}, err
	}

	return History{
		Sent:     sent.result,
		Received: received.result,
	}, nil
}

// TxsHistoryMempool - pending transactions sent and received by a key
func (r *Reader) TxsHistoryMempool(pk account.PublicKey) ([]schema.PendingTx, []schema.PendingTx, error) {
	if nil == r.pool {
		return []schema.PendingTx{}, []schema.PendingTx{}, nil
	}
	sending, err := r.pool.TxsByIssuer(pk)
	if nil != err {
		return nil, nil, err
	}
	receiving, err := r.pool.TxsByRecipient(pk)
	if nil != err {
		return nil, nil, err
	}
	return sending, receiving, nil
}

// block numbers whose median time falls inside the window, false if
// there are none
func (r *Reader) blockWindow(tx *storage.Tx, window TimeWindow) (uint32, uint32, bool, error) {
	times := r.chain.BlocksByCommonTime.In(tx)

	lo := uint32(0)
	hi := uint32(math.MaxUint32)
	if nil != window.From {
		e, found, err := times.Iter(storage.RangeFrom(schema.BlockTime{MedianTime: *window.From})).First()
		if nil != err || !found {
			return 0, 0, false, err
		}
		lo = e.Key.Number
	}
	if nil != window.To {
		last := schema.BlockTime{MedianTime: *window.To, Number: math.MaxUint32}
		e, found, err := times.Iter(storage.RangeAll[schema.BlockTime]().Through(last)).Reverse().First()
		if nil != err || !found {
			return 0, 0, false, err
		}
		hi = e.Key.Number
	}
	return lo, hi, lo <= hi, nil
}

type historyQuery struct {
	scriptHash digest.Hash
	lo         uint32
	hi         uint32
	page       PageInfo
	from       cursor
	hasCursor  bool
}

type historyPage struct {
	entries *pager[written]
	result  Paged[WrittenTx]
	prev    bool
}

// walk the index rows of the script inside the block window
func (q historyQuery) scan(index *storage.View[schema.WalletBlock, schema.HashList]) (historyPage, error) {
	h := q.scriptHash
	rng := storage.RangePrefix[schema.WalletBlock](schema.ScriptPrefix(h)).
		From(schema.WalletBlock{ScriptHash: h, BlockNumber: q.lo}).
		Through(schema.WalletBlock{ScriptHash: h, BlockNumber: q.hi})

	hp := historyPage{entries: newPager[written](q.page.PageSize)}
	it := index.Iter(rng)

	switch {
	case q.hasCursor && q.page.Ascending:
		if q.from.number < q.lo {
			break
		}
		if q.from.number > q.hi {
			return hp, nil
		}
		it = index.Iter(rng.From(schema.WalletBlock{ScriptHash: h, BlockNumber: q.from.number}))
		_, found, err := index.Iter(rng.Through(schema.WalletBlock{ScriptHash: h, BlockNumber: q.from.number})).First()
		if nil != err {
			return hp, err
		}
		hp.prev = found
	case q.hasCursor:
		if q.from.number > q.hi {
			it = it.Reverse()
			break
		}
		if q.from.number < q.lo {
			return hp, nil
		}
		it = index.Iter(rng.Through(schema.WalletBlock{ScriptHash: h, BlockNumber: q.from.number})).Reverse()
	case !q.page.Ascending:
		it = it.Reverse()
	}

	err := it.ForEach(func(key schema.WalletBlock, l schema.HashList) (bool, error) {
		if !q.page.Ascending {
			reversed := make(schema.HashList, len(l))
			for i, hash := range l {
				reversed[len(l)-1-i] = hash
			}
			l = reversed
		}
		if q.hasCursor && key.BlockNumber == q.from.number {
			l = after(l, q.from.hash)
		}
		for _, hash := range l {
			if !hp.entries.add(written{number: key.BlockNumber, hash: hash}) {
				return false, nil
			}
		}
		return true, nil
	})
	return hp, err
}

// the hashes following h, all of them if h is absent
func after(l schema.HashList, h digest.Hash) schema.HashList {
	for i, e := range l {
		if e == h {
			return l[i+1:]
		}
	}
	return l
}

func (hp *historyPage) resolve(txs *storage.View[digest.Hash, schema.TxRecord]) error {
	data := make([]WrittenTx, 0, len(hp.entries.items))
	for _, w := range hp.entries.items {
		record, found, err := txs.Get(w.hash)
		if nil != err {
			return err
		}
		if !found {
			return fault.Corrupted("history: transaction: %s of block: %d not found", w.hash, w.number)
		}
		data = append(data, WrittenTx{TxRecord: record})
	}
	hp.result = Paged[WrittenTx]{
		Data:        data,
		HasPrevious: hp.prev,
		HasNext:     hp.entries.more,
	}
	return nil
}
