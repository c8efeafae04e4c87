// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"sort"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/indexer"
	"github.com/uci-network/ucid/mode"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage/backends"
	"github.com/uci-network/ucid/workers"
	"github.com/uci-network/ucid/wot"
)

// blocks applied per indexer call during an import
const importChunkSize = 100

// everything opened from the data directory
type node struct {
	log *logger.L

	chain   *schema.ChainState
	mempool *schema.Mempool
	pool    *reservoir.Reservoir
	graph   *wot.Shared
	indexer *indexer.Indexer
	reader  *reader.Reader
	workers *workers.Pool

	snapshot string
}

// open both databases, restore the WoT and build the indexer on top
//
// in test mode the databases live in memory and nothing is written
// back to the data directory
func openNode(log *logger.L, options *Configuration) (*node, error) {

	backend := options.Database.Backend
	chainDirectory := options.databasePath(defaultChainState)
	mempoolDirectory := options.databasePath(defaultMempool)
	snapshot := options.Wot.Snapshot
	if mode.IsTesting() {
		log.Warn("test mode: databases are ephemeral")
		backend = backends.Memory
		chainDirectory = ""
		mempoolDirectory = ""
		snapshot = ""
	}

	log.Infof("open %s backend: %q", backend, chainDirectory)
	chainBackend, err := backends.Open(backend, chainDirectory, false)
	if nil != err {
		return nil, err
	}
	chain, err := schema.OpenChainState(chainBackend, logger.New("storage"))
	if nil != err {
		chainBackend.Close()
		return nil, err
	}

	log.Infof("open %s backend: %q", backend, mempoolDirectory)
	mempoolBackend, err := backends.Open(backend, mempoolDirectory, false)
	if nil != err {
		chain.DB.Close()
		return nil, err
	}
	mempool, err := schema.OpenMempool(mempoolBackend, logger.New("storage"))
	if nil != err {
		mempoolBackend.Close()
		chain.DB.Close()
		return nil, err
	}

	n := &node{
		log:      log,
		chain:    chain,
		mempool:  mempool,
		snapshot: snapshot,
	}

	n.pool, err = reservoir.New(mempool, chain, options.Mempool.Capacity)
	if nil != err {
		n.close()
		return nil, err
	}

	g := wot.New(options.Wot.MaxLinks)
	if "" != snapshot {
		g, err = wot.LoadFile(snapshot, options.Wot.MaxLinks)
		if nil != err {
			n.close()
			return nil, err
		}
	}
	n.graph = wot.NewShared(g)
	wot.SetMain(n.graph)

	n.indexer, err = indexer.New(chain, n.pool, n.graph, options.ReorgHorizon)
	if nil != err {
		n.close()
		return nil, err
	}

	// a snapshot older than the chain state is rebuilt from it
	rebuilt, err := n.indexer.SyncGraph()
	if nil != err {
		n.close()
		return nil, err
	}
	if rebuilt {
		if err := n.saveGraph(); nil != err {
			log.Errorf("wot snapshot error: %s", err)
		}
	}

	n.reader = reader.New(chain, n.pool, n.graph)
	n.workers = workers.New(options.Workers.Size, options.Workers.Queue)

	return n, nil
}

// write the WoT snapshot, a no-op in test mode
func (n *node) saveGraph() error {
	if "" == n.snapshot || nil == n.graph {
		return nil
	}
	return n.graph.SaveFile(n.snapshot)
}

// flush both databases
func (n *node) save() error {
	if err := n.chain.DB.Save(); nil != err {
		return err
	}
	return n.mempool.DB.Save()
}

// release everything in reverse order of opening
func (n *node) close() {
	log := n.log

	if nil != n.workers {
		n.workers.Stop()
	}
	if nil != n.graph {
		if err := n.saveGraph(); nil != err {
			log.Errorf("wot snapshot error: %s", err)
		}
		wot.SetMain(nil)
	}
	if nil != n.mempool {
		if err := n.mempool.DB.Close(); nil != err {
			log.Errorf("mempool close error: %s", err)
		}
	}
	if nil != n.chain {
		if err := n.chain.DB.Close(); nil != err {
			log.Errorf("chain state close error: %s", err)
		}
	}
}

// apply a JSON-lines block file
//
// blocks at or below the current tip are skipped so an interrupted
// import can be restarted with the same file
func (n *node) importBlocks(fileName string) (int, error) {
	f, err := os.Open(fileName)
	if nil != err {
		return 0, err
	}
	defer f.Close()

	return n.importFrom(f)
}

func (n *node) importFrom(r io.Reader) (int, error) {
	next := uint32(0)
	tip, found, err := n.indexer.Tip()
	if nil != err {
		return 0, err
	}
	if found {
		next = tip.Number + 1
	}

	applied := 0
	chunk := make([]*blockrecord.Block, 0, importChunkSize)
	flush := func() error {
		if 0 == len(chunk) {
			return nil
		}
		if err := n.indexer.ApplyChunk(chunk); nil != err {
			return err
		}
		applied += len(chunk)
		n.log.Infof("imported up to block: %d", chunk[len(chunk)-1].Number)
		chunk = chunk[:0]
		return nil
	}

	err = blockrecord.ReadLines(r, func(b *blockrecord.Block) error {
		if b.Number < next {
			return nil
		}
		chunk = append(chunk, b)
		if len(chunk) >= importChunkSize {
			return flush()
		}
		return nil
	})
	if nil != err {
		return applied, err
	}
	return applied, flush()
}

// revert every block above number, the bodies come from a JSON-lines
// block file since the chain state keeps only their metadata
func (n *node) revertTo(number uint32, fileName string) (int, error) {
	f, err := os.Open(fileName)
	if nil != err {
		return 0, err
	}
	defer f.Close()

	return n.revertFrom(number, f)
}

func (n *node) revertFrom(number uint32, r io.Reader) (int, error) {
	tip, found, err := n.indexer.Tip()
	if nil != err {
		return 0, err
	}
	if !found || tip.Number <= number {
		return 0, nil
	}

	blocks := []*blockrecord.Block{}
	err = blockrecord.ReadLines(r, func(b *blockrecord.Block) error {
		if b.Number > number && b.Number <= tip.Number {
			blocks = append(blocks, b)
		}
		return nil
	})
	if nil != err {
		return 0, err
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Number > blocks[j].Number
	})
	if uint32(len(blocks)) != tip.Number-number {
		return 0, fault.BlockNotFound
	}

	if err := n.indexer.RevertChunk(blocks); nil != err {
		return 0, err
	}
	return len(blocks), nil
}

// write the WoT in readable form
func (n *node) dumpGraph(w io.Writer) error {
	return n.graph.Read(func(g *wot.Graph) error {
		return g.Dump(w)
	})
}
