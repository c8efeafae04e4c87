// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// Ud - one dividend, cursor is the block number
type Ud struct {
	BlockNumber uint32        `json:"blockNumber"`
	Amount      amount.Amount `json:"amount"`
}

// Cursor - position of the dividend
func (u Ud) Cursor() string {
	return cursor{number: u.BlockNumber}.String()
}

// UdsPage - a page of dividends and their total
type UdsPage struct {
	Paged[Ud]
	Sum amount.Amount `json:"sum"`
}

// UnspentUdsOf - unspent dividends of a key in cursor order
//
// blocks in exclude are skipped, with a target the page ends at the
// first dividend that brings the sum to at least the target
func (r *Reader) UnspentUdsOf(pk account.PublicKey, page PageInfo, exclude map[uint32]struct{}, target *amount.Amount) (UdsPage, error) {
	from, hasCursor, err := parseCursor(page.Cursor, 1)
	if nil != err {
		return UdsPage{}, err
	}

	rng := storage.RangePrefix[transactionrecord.UdRef](schema.UdPrefix(pk))
	anchor := transactionrecord.UdRef{PublicKey: pk, BlockNumber: from.number}

	p := newPager[Ud](page.PageSize)
	sum := amount.Zero
	hasPrevious := false

	err = r.chain.DB.Read(func(tx *storage.Tx) error {
		reval, err := r.revaluations(tx)
		if nil != err {
			return err
		}
		uds := r.chain.Uds.In(tx)

		it := uds.Iter(rng)
		switch {
		case hasCursor && page.Ascending:
			it = uds.Iter(rng.After(anchor))
			_, hasPrevious, err = uds.Iter(rng.Through(anchor)).First()
			if nil != err {
				return err
			}
		case hasCursor:
			it = uds.Iter(rng.Below(anchor)).Reverse()
		case !page.Ascending:
			it = it.Reverse()
		}

		return it.Keys(func(ref transactionrecord.UdRef) (bool, error) {
			if _, skip := exclude[ref.BlockNumber]; skip {
				return true, nil
			}
			a, found := reval.at(ref.BlockNumber)
			if !found {
				return false, fault.Corrupted("dividend: %d  no revaluation", ref.BlockNumber)
			}
			if !p.add(Ud{BlockNumber: ref.BlockNumber, Amount: a}) {
				return false, nil
			}
			sum, err = sum.Add(a)
			if nil != err {
				return false, err
			}
			if nil != target && sum.Cmp(*target) >= 0 {
				p.stop()
			}
			return true, nil
		})
	}, r.chain.Uds, r.chain.UdsReval)
	if nil != err {
		return UdsPage{}, err
	}
	if !page.Ascending {
		hasPrevious = false
	}
	return UdsPage{Paged: p.page(hasPrevious), Sum: sum}, nil
}

// AllUdsOf - every dividend created while the key was a member,
// spent or not
func (r *Reader) AllUdsOf(pk account.PublicKey, page PageInfo) (UdsPage, error) {
	from, hasCursor, err := parseCursor(page.Cursor, 1)
	if nil != err {
		return UdsPage{}, err
	}

	p := newPager[Ud](page.PageSize)
	sum := amount.Zero
	hasPrevious := false

	err = r.chain.DB.Read(func(tx *storage.Tx) error {
		idty, found, err := r.chain.Identities.In(tx).Get(pk)
		if nil != err || !found {
			return err
		}
		reval, err := r.revaluations(tx)
		if nil != err {
			return err
		}
		blocks := r.chain.BlocksWithUd.In(tx)

		rng := storage.RangeAll[uint32]()
		it := blocks.Iter(rng)
		switch {
		case hasCursor && page.Ascending:
			it = blocks.Iter(rng.After(from.number))
			// an earlier dividend of a membership period
			err = blocks.Iter(rng.Through(from.number)).Reverse().Keys(func(n uint32) (bool, error) {
				hasPrevious = idty.MemberDuring(n)
				return !hasPrevious, nil
			})
			if nil != err {
				return err
			}
		case hasCursor:
			it = blocks.Iter(rng.Below(from.number)).Reverse()
		case !page.Ascending:
			it = it.Reverse()
		}

		return it.Keys(func(n uint32) (bool, error) {
			if !idty.MemberDuring(n) {
				return true, nil
			}
			a, found := reval.at(n)
			if !found {
				return false, fault.Corrupted("dividend: %d  no revaluation", n)
			}
			if !p.add(Ud{BlockNumber: n, Amount: a}) {
				return false, nil
			}
			sum, err = sum.Add(a)
			return nil == err, err
		})
	}, r.chain.Identities, r.chain.UdsReval, r.chain.BlocksWithUd)
	if nil != err {
		return UdsPage{}, err
	}
	if !page.Ascending {
		hasPrevious = false
	}
	return UdsPage{Paged: p.page(hasPrevious), Sum: sum}, nil
}
