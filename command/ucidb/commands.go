// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
)

type collectionInfo struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

func runCollections(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	info := []collectionInfo{}
	for _, e := range m.db.Explorables() {
		n, err := e.Count()
		if nil != err {
			return err
		}
		info = append(info, collectionInfo{
			Name:   e.Name(),
			Prefix: string(e.Prefix()),
			Count:  n,
		})
	}
	return printJson(m.w, info)
}

func runCount(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 1)
	if nil != err {
		return err
	}
	n, err := e.Count()
	if nil != err {
		return err
	}
	fmt.Fprintf(m.w, "%d\n", n)
	return nil
}

func runGet(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 2)
	if nil != err {
		return err
	}
	key := c.Args().Get(1)
	value, found, err := e.Get(key)
	if nil != err {
		return err
	}
	if !found {
		return fmt.Errorf("key: %q not found in: %s", key, e.Name())
	}
	return printJson(m.w, value)
}

func runList(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 1)
	if nil != err {
		return err
	}
	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("invalid limit: %d", limit)
	}
	if m.verbose {
		fmt.Fprintf(m.e, "list: %s  from: %q  limit: %d\n", e.Name(), c.String("from"), limit)
	}
	items, err := e.List(c.String("from"), limit, c.Bool("reverse"))
	if nil != err {
		return err
	}
	return printItems(m.w, items)
}

func runFind(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 1)
	if nil != err {
		return err
	}
	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("invalid limit: %d", limit)
	}
	items, err := e.Find(c.String("key"), c.String("value"), limit, c.Bool("reverse"))
	if nil != err {
		return err
	}
	return printItems(m.w, items)
}

func runPut(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 3)
	if nil != err {
		return err
	}
	value := json.RawMessage(c.Args().Get(2))
	if !json.Valid(value) {
		return fault.InvalidRequest
	}
	if err := e.Put(c.Args().Get(1), value); nil != err {
		return err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "put: %s  key: %q\n", e.Name(), c.Args().Get(1))
	}
	return nil
}

func runDelete(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	e, err := explorable(m, c.Args(), 2)
	if nil != err {
		return err
	}
	return e.Delete(c.Args().Get(1))
}

// the collection named by the first argument, after checking the
// argument count
func explorable(m *metadata, args cli.Args, required int) (storage.Explorable, error) {
	if len(args) < required {
		return nil, fault.MissingParameters
	}
	return m.db.Explore(args.Get(0))
}

// one JSON object per line
func printItems(handle io.Writer, items []storage.ExploredItem) error {
	for _, item := range items {
		b, err := json.Marshal(item)
		if nil != err {
			return err
		}
		fmt.Fprintf(handle, "%s\n", b)
	}
	return nil
}

func printJson(handle io.Writer, message interface{}) error {

	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}
