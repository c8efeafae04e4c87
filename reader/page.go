// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
)

// PageInfo - where a page starts and how long it is
//
// a page starts strictly after Cursor in the chosen direction, an
// empty Cursor starts at the first item, PageSize ≤ 0 means no limit
type PageInfo struct {
	Cursor    string
	Ascending bool
	PageSize  int
}

// Paged - one page of results
//
// HasPrevious is always false for descending pages
type Paged[T any] struct {
	Data        []T
	HasPrevious bool
	HasNext     bool
}

// AllAscending - every item, first to last
var AllAscending = PageInfo{Ascending: true}

// position in an index, block number then optional hash and output
type cursor struct {
	number  uint32
	hash    digest.Hash
	index   uint32
	hasHash bool
	hasIdx  bool
}

// N, N:HASH or N:HASH:IDX
func parseCursor(s string, parts int) (cursor, bool, error) {
	c := cursor{}
	if "" == s {
		return c, false, nil
	}
	fields := strings.Split(s, ":")
	if len(fields) != parts {
		return c, false, fault.InvalidCursor
	}
	n, err := strconv.ParseUint(fields[0], 10, 32)
	if nil != err {
		return c, false, fault.InvalidCursor
	}
	c.number = uint32(n)
	if parts > 1 {
		c.hash, err = digest.FromHex(fields[1])
		if nil != err {
			return c, false, fault.InvalidCursor
		}
		c.hasHash = true
	}
	if parts > 2 {
		i, err := strconv.ParseUint(fields[2], 10, 32)
		if nil != err {
			return c, false, fault.InvalidCursor
		}
		c.index = uint32(i)
		c.hasIdx = true
	}
	return c, true, nil
}

func (c cursor) String() string {
	switch {
	case c.hasIdx:
		return fmt.Sprintf("%d:%s:%d", c.number, c.hash, c.index)
	case c.hasHash:
		return fmt.Sprintf("%d:%s", c.number, c.hash)
	default:
		return strconv.FormatUint(uint64(c.number), 10)
	}
}

// accumulates up to size items, the item after a full page only sets
// more
type pager[T any] struct {
	size  int
	items []T
	more  bool
	done  bool
}

func newPager[T any](size int) *pager[T] {
	return &pager[T]{size: size, items: []T{}}
}

// add an item, false once the page is complete and more is known
func (p *pager[T]) add(item T) bool {
	if p.done || (p.size > 0 && len(p.items) >= p.size) {
		p.more = true
		return false
	}
	p.items = append(p.items, item)
	return true
}

// stop accepting items, the next one only sets more
func (p *pager[T]) stop() {
	p.done = true
}

func (p *pager[T]) page(hasPrevious bool) Paged[T] {
	return Paged[T]{
		Data:        p.items,
		HasPrevious: hasPrevious,
		HasNext:     p.more,
	}
}
