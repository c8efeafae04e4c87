// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexer

import (
	"math"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/wot"
)

type toggle struct {
	id      uint32
	enabled bool
}

// web of trust changes of one block, applied after the chain state
// commit
//
// for a revert the lists are already in undo order and toggles hold
// the state being undone
type wotChanges struct {
	created []uint32
	links   []schema.Link
	toggles []toggle
}

// new nodes start disabled, joining enables them
//
// a node id out of step with the chain state halts the indexer
func (i *Indexer) applyGraph(number uint32, c wotChanges) {
	if nil == i.graph {
		return
	}
	_ = i.graph.Write(func(g *wot.Graph) error {
		for _, id := range c.created {
			if n := g.AddNode(); n != id {
				i.diverged(number, "wot node: %d  expected: %d", n, id)
				return nil
			}
			_ = g.SetEnabled(id, false)
		}
		for _, t := range c.toggles {
			if err := g.SetEnabled(t.id, t.enabled); nil != err {
				i.diverged(number, "wot enable node: %d  error: %s", t.id, err)
				return nil
			}
		}
		for _, l := range c.links {
			if _, err := g.AddLink(l.From, l.To); nil != err {
				i.diverged(number, "wot link: %d → %d  error: %s", l.From, l.To, err)
				return nil
			}
		}
		return nil
	})
}

func (i *Indexer) revertGraph(number uint32, c wotChanges) {
	if nil == i.graph {
		return
	}
	_ = i.graph.Write(func(g *wot.Graph) error {
		for _, l := range c.links {
			if _, err := g.RemLink(l.From, l.To); nil != err {
				i.diverged(number, "wot unlink: %d → %d  error: %s", l.From, l.To, err)
				return nil
			}
		}
		for _, t := range c.toggles {
			if err := g.SetEnabled(t.id, !t.enabled); nil != err {
				i.diverged(number, "wot enable node: %d  error: %s", t.id, err)
				return nil
			}
		}
		for _, id := range c.created {
			n, err := g.RemNode()
			if nil != err {
				i.diverged(number, "wot remove node: %d  error: %s", id, err)
				return nil
			} else if n != id {
				i.diverged(number, "wot removed node: %d  expected: %d", n, id)
				return nil
			}
		}
		return nil
	})
}

func (i *Indexer) diverged(number uint32, format string, arguments ...interface{}) {
	i.halted.Store(true)
	i.log.Criticalf("block: %d  "+format, append([]interface{}{number}, arguments...)...)
}

// SyncGraph - compare the graph with the identities and links of the
// chain state and rebuild it when they differ, true if rebuilt
func (i *Indexer) SyncGraph() (bool, error) {
	if nil == i.graph {
		return false, nil
	}
	i.Lock()
	defer i.Unlock()

	rebuilt, err := i.graphFromChain()
	if nil != err {
		return false, err
	}

	same := false
	_ = i.graph.Read(func(g *wot.Graph) error {
		same = equalGraphs(g, rebuilt)
		return nil
	})
	if same {
		return false, nil
	}

	i.log.Warnf("wot graph differs from chain state, rebuilt with: %d nodes", rebuilt.Size())
	i.graph.Replace(rebuilt)
	return true, nil
}

// nodes from the identities, links from the certifications
func (i *Indexer) graphFromChain() (*wot.Graph, error) {
	c := i.chain
	var g *wot.Graph
	err := c.DB.Read(func(tx *storage.Tx) error {
		identities := c.Identities.In(tx)
		count, err := identities.Count()
		if nil != err {
			return err
		}

		enabled := make([]bool, count)
		err = identities.Iter(storage.RangeAll[account.PublicKey]()).ForEach(func(pk account.PublicKey, idty schema.Identity) (bool, error) {
			if int(idty.WotID) >= count {
				return false, fault.Corrupted("identity: %s  wot id: %d  identities: %d", pk, idty.WotID, count)
			}
			enabled[idty.WotID] = idty.IsMember
			return true, nil
		})
		if nil != err {
			return err
		}

		// links were admitted under the cap in force when they were made
		g = wot.New(math.MaxInt32)
		for id := range enabled {
			g.AddNode()
			_ = g.SetEnabled(uint32(id), enabled[id])
		}
		err = c.Certifications.In(tx).Iter(storage.RangeAll[schema.Link]()).Keys(func(l schema.Link) (bool, error) {
			if _, err := g.AddLink(l.From, l.To); nil != err {
				return false, fault.Corrupted("certification: %d → %d  error: %s", l.From, l.To, err)
			}
			return true, nil
		})
		return err
	}, c.Identities, c.Certifications)
	if nil != err {
		return nil, err
	}
	g.SetMaxLinks(i.maxLinks)
	return g, nil
}

func equalGraphs(a *wot.Graph, b *wot.Graph) bool {
	if a.Size() != b.Size() {
		return false
	}
	for id := uint32(0); int(id) < a.Size(); id += 1 {
		ea, _ := a.IsEnabled(id)
		eb, _ := b.IsEnabled(id)
		if ea != eb {
			return false
		}
		sa, _ := a.Sources(id)
		sb, _ := b.Sources(id)
		if len(sa) != len(sb) {
			return false
		}
		for k := range sa {
			if sa[k] != sb[k] {
				return false
			}
		}
	}
	return true
}
