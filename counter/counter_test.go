// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uci-network/ucid/counter"
)

func TestCounter(t *testing.T) {
	var c counter.Counter

	assert.True(t, c.IsZero(), "counter is not zero at start")

	for i := 0; i < 5; i += 1 {
		c.Increment()
	}
	assert.Equal(t, int64(5), c.Value())

	c.Decrement()
	c.Decrement()
	assert.Equal(t, int64(3), c.Value())
	assert.Equal(t, int64(5), c.Highest())

	for i := 0; i < 3; i += 1 {
		c.Decrement()
	}
	assert.True(t, c.IsZero())
	assert.Equal(t, int64(5), c.Highest())
}

func TestConcurrentCounter(t *testing.T) {
	var c counter.Counter
	var wg sync.WaitGroup

	for i := 0; i < 50; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment()
			c.Decrement()
		}()
	}
	wg.Wait()

	assert.True(t, c.IsZero())
	assert.LessOrEqual(t, c.Highest(), int64(50))
	assert.GreaterOrEqual(t, c.Highest(), int64(1))
}
