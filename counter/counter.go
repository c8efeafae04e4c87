// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package counter - gauge of live connections shared between
// goroutines
package counter

import (
	"sync/atomic"
)

// Counter - number of open items, the zero value is ready to use
type Counter struct {
	value   atomic.Int64
	highest atomic.Int64
}

// Increment - add one, returns the new value
func (c *Counter) Increment() int64 {
	n := c.value.Add(1)
	for {
		h := c.highest.Load()
		if n <= h || c.highest.CompareAndSwap(h, n) {
			return n
		}
	}
}

// Decrement - remove one, returns the new value
func (c *Counter) Decrement() int64 {
	return c.value.Add(-1)
}

// Value - current count
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Highest - largest count seen since start
func (c *Counter) Highest() int64 {
	return c.highest.Load()
}

// IsZero - nothing open
func (c *Counter) IsZero() bool {
	return 0 == c.value.Load()
}
