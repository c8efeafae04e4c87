// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/json"
	"regexp"

	"github.com/uci-network/ucid/fault"
)

// ExploredItem - a key/value pair in human readable form
type ExploredItem struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Explorable - uniform text access to any collection
type Explorable interface {
	Name() string
	Prefix() byte
	Count() (int, error)
	Get(key string) (json.RawMessage, bool, error)
	Put(key string, value json.RawMessage) error
	Delete(key string) error
	List(from string, limit int, reverse bool) ([]ExploredItem, error)
	Find(keyPattern string, valuePattern string, limit int, reverse bool) ([]ExploredItem, error)
}

type explorer[K, V any] struct {
	c *Collection[K, V]
}

func (e *explorer[K, V]) Name() string {
	return e.c.Name()
}

func (e *explorer[K, V]) Prefix() byte {
	return e.c.Prefix()
}

func (e *explorer[K, V]) Count() (int, error) {
	return e.c.Count()
}

func (e *explorer[K, V]) Get(key string) (json.RawMessage, bool, error) {
	k, err := e.c.keys.Parse(key)
	if nil != err {
		return nil, false, err
	}
	value, found, err := e.c.Get(k)
	if nil != err || !found {
		return nil, found, err
	}
	buffer, err := json.Marshal(value)
	return buffer, true, err
}

func (e *explorer[K, V]) Put(key string, value json.RawMessage) error {
	k, err := e.c.keys.Parse(key)
	if nil != err {
		return err
	}
	var v V
	if err := json.Unmarshal(value, &v); nil != err {
		return fault.Deser("explorer value", err)
	}
	return e.c.Upsert(k, v)
}

func (e *explorer[K, V]) Delete(key string) error {
	k, err := e.c.keys.Parse(key)
	if nil != err {
		return err
	}
	return e.c.Remove(k)
}

// List - items starting at from (inclusive, the whole collection when empty)
func (e *explorer[K, V]) List(from string, limit int, reverse bool) ([]ExploredItem, error) {
	r := RangeAll[K]()
	if "" != from {
		k, err := e.c.keys.Parse(from)
		if nil != err {
			return nil, err
		}
		if reverse {
			r = r.Through(k)
		} else {
			r = r.From(k)
		}
	}
	return e.scan(r, nil, nil, limit, reverse)
}

// Find - items whose key text and value JSON match the patterns
func (e *explorer[K, V]) Find(keyPattern string, valuePattern string, limit int, reverse bool) ([]ExploredItem, error) {
	var keyRE, valueRE *regexp.Regexp
	var err error
	if "" != keyPattern {
		if keyRE, err = regexp.Compile(keyPattern); nil != err {
			return nil, fault.InvalidRegexp
		}
	}
	if "" != valuePattern {
		if valueRE, err = regexp.Compile(valuePattern); nil != err {
			return nil, fault.InvalidRegexp
		}
	}
	return e.scan(RangeAll[K](), keyRE, valueRE, limit, reverse)
}

func (e *explorer[K, V]) scan(r Range[K], keyRE *regexp.Regexp, valueRE *regexp.Regexp, limit int, reverse bool) ([]ExploredItem, error) {
	items := []ExploredItem{}
	it := e.c.Iter(r)
	if reverse {
		it = it.Reverse()
	}
	err := it.ForEach(func(key K, value V) (bool, error) {
		k := e.c.keys.Format(key)
		if nil != keyRE && !keyRE.MatchString(k) {
			return true, nil
		}
		v, err := json.Marshal(value)
		if nil != err {
			return false, err
		}
		if nil != valueRE && !valueRE.Match(v) {
			return true, nil
		}
		items = append(items, ExploredItem{Key: k, Value: v})
		return limit <= 0 || len(items) < limit, nil
	})
	return items, err
}
