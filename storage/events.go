// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// EventKind - the change carried by an event
type EventKind int

// event kinds
const (
	EventUpsert EventKind = iota
	EventRemove
	EventClear
)

// String - name of the kind
func (k EventKind) String() string {
	switch k {
	case EventUpsert:
		return "upsert"
	case EventRemove:
		return "remove"
	case EventClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Event - one committed change
type Event[K, V any] struct {
	Kind  EventKind
	Key   K
	Value V
}

// Events - the changes of one committed batch, in write order
//
// Lagged counts the batches this subscriber lost before this one
type Events[K, V any] struct {
	Events []Event[K, V]
	Lagged uint64
}

// Subscription - a bounded queue of committed batches
type Subscription[K, V any] struct {
	id     uint64
	queue  chan Events[K, V]
	lagged uint64 // only touched by the sender
	owner  *broadcaster[K, V]
	closed bool
}

// C - the receive channel, closed by Close
func (s *Subscription[K, V]) C() <-chan Events[K, V] {
	return s.queue
}

// Close - stop receiving
func (s *Subscription[K, V]) Close() {
	s.owner.unsubscribe(s)
}

type broadcaster[K, V any] struct {
	sync.Mutex // serialises sends against close
	nextID      atomic.Uint64
	subscribers *xsync.Map[uint64, *Subscription[K, V]]
}

func newBroadcaster[K, V any]() *broadcaster[K, V] {
	return &broadcaster[K, V]{
		subscribers: xsync.NewMap[uint64, *Subscription[K, V]](),
	}
}

func (b *broadcaster[K, V]) subscribe(buffer int) *Subscription[K, V] {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription[K, V]{
		id:    b.nextID.Add(1),
		queue: make(chan Events[K, V], buffer),
		owner: b,
	}
	b.subscribers.Store(s.id, s)
	return s
}

func (b *broadcaster[K, V]) unsubscribe(s *Subscription[K, V]) {
	b.Lock()
	defer b.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	b.subscribers.Delete(s.id)
	close(s.queue)
}

func (b *broadcaster[K, V]) active() bool {
	return b.subscribers.Size() > 0
}

// never blocks, a full queue loses the batch
func (b *broadcaster[K, V]) send(events []Event[K, V]) {
	if 0 == len(events) {
		return
	}
	b.Lock()
	defer b.Unlock()
	b.subscribers.Range(func(_ uint64, s *Subscription[K, V]) bool {
		select {
		case s.queue <- Events[K, V]{Events: events, Lagged: s.lagged}:
			s.lagged = 0
		default:
			s.lagged += 1
		}
		return true
	})
}
