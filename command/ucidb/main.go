// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/backends"
)

// database directory names below --data
const (
	chainStateName = "chain_state"
	mempoolName    = "txs_mp"
)

type metadata struct {
	db      *storage.Database
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	logging := logger.Configuration{
		Directory: os.TempDir(),
		File:      "ucidb.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	if err := logger.Initialise(logging); nil != err {
		fmt.Fprintf(os.Stderr, "logger setup failed with error: %s\n", err)
		os.Exit(1)
	}

	app := newApp()
	err := app.Run(os.Args)
	logger.Finalise()
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {

	app := cli.NewApp()
	app.Name = "ucidb"
	app.Usage = "explore the collections of a ucid database"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "data, d",
			Value: "data",
			Usage: " database directory `DIR` holding chain_state and txs_mp",
		},
		cli.StringFlag{
			Name:  "backend, b",
			Value: backends.LevelDB,
			Usage: " storage backend `NAME` [" + strings.Join(backends.Names(), "|") + "]",
		},
		cli.BoolFlag{
			Name:  "mempool, m",
			Usage: " open txs_mp instead of chain_state",
		},
		cli.BoolFlag{
			Name:  "write, w",
			Usage: " open read-write, needed by put and delete",
		},
	}

	limitFlag := cli.IntFlag{
		Name:  "limit, l",
		Value: 20,
		Usage: " maximum entries to print `COUNT`",
	}
	reverseFlag := cli.BoolFlag{
		Name:  "reverse, r",
		Usage: " descending key order",
	}

	app.Commands = []cli.Command{
		{
			Name:   "collections",
			Usage:  "list collections with their prefix and entry count",
			Action: runCollections,
		},
		{
			Name:      "count",
			Usage:     "number of entries in a collection",
			ArgsUsage: "COLLECTION",
			Action:    runCount,
		},
		{
			Name:      "get",
			Usage:     "print the value stored at a key",
			ArgsUsage: "COLLECTION KEY",
			Action:    runGet,
		},
		{
			Name:      "list",
			Usage:     "print entries in key order",
			ArgsUsage: "COLLECTION",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "from, f",
					Value: "",
					Usage: " first `KEY` to print",
				},
				limitFlag,
				reverseFlag,
			},
			Action: runList,
		},
		{
			Name:      "find",
			Usage:     "print entries whose key and value match regular expressions",
			ArgsUsage: "COLLECTION",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "key, k",
					Value: "",
					Usage: " key `REGEXP`",
				},
				cli.StringFlag{
					Name:  "value, x",
					Value: "",
					Usage: " JSON value `REGEXP`",
				},
				limitFlag,
				reverseFlag,
			},
			Action: runFind,
		},
		{
			Name:      "put",
			Usage:     "store a JSON value at a key",
			ArgsUsage: "COLLECTION KEY JSON",
			Action:    runPut,
		},
		{
			Name:      "delete",
			Usage:     "remove a key",
			ArgsUsage: "COLLECTION KEY",
			Action:    runDelete,
		},
	}

	app.Before = func(c *cli.Context) error {

		e := c.App.ErrWriter
		w := c.App.Writer
		verbose := c.GlobalBool("verbose")

		command := c.Args().Get(0)
		if "" == command || "help" == command || "h" == command {
			return nil
		}

		name := chainStateName
		if c.GlobalBool("mempool") {
			name = mempoolName
		}
		directory := filepath.Join(c.GlobalString("data"), name)
		readOnly := !c.GlobalBool("write")

		if verbose {
			fmt.Fprintf(e, "open: %s  backend: %s  read only: %t\n", directory, c.GlobalString("backend"), readOnly)
		}

		db, err := openDatabase(c.GlobalString("backend"), directory, name, readOnly)
		if nil != err {
			return err
		}

		c.App.Metadata["config"] = &metadata{
			db:      db,
			verbose: verbose,
			e:       e,
			w:       w,
		}
		return nil
	}

	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if !ok {
			return nil
		}
		delete(c.App.Metadata, "config")
		return m.db.Close()
	}

	return app
}

// open one of the two databases with its full catalog declared
func openDatabase(backend string, directory string, name string, readOnly bool) (*storage.Database, error) {
	b, err := backends.Open(backend, directory, readOnly)
	if nil != err {
		return nil, err
	}

	log := logger.New("ucidb")
	if mempoolName == name {
		m, err := schema.OpenMempool(b, log)
		if nil != err {
			b.Close()
			return nil, err
		}
		return m.DB, nil
	}

	chain, err := schema.OpenChainState(b, log)
	if nil != err {
		b.Close()
		return nil, err
	}
	return chain.DB, nil
}
