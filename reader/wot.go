// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/wot"
)

// DistanceRule - parameters of a distance evaluation
type DistanceRule struct {
	SentryRequirement int
	StepMax           int
	XPercent          float64
}

// WotDistance - evaluate the distance rule for a member key
func (r *Reader) WotDistance(pk account.PublicKey, rule DistanceRule) (wot.Distance, error) {
	if nil == r.graph {
		return wot.Distance{}, fault.NotInitialised
	}
	idty, found, err := r.Identity(pk)
	if nil != err {
		return wot.Distance{}, err
	}
	if !found {
		return wot.Distance{}, fault.IdentityNotFound
	}

	var d wot.Distance
	err = r.graph.Read(func(g *wot.Graph) error {
		var err error
		d, err = g.ComputeDistance(wot.DistanceParameters{
			Node:              idty.WotID,
			SentryRequirement: rule.SentryRequirement,
			StepMax:           rule.StepMax,
			XPercent:          rule.XPercent,
		})
		return err
	})
	return d, err
}

// WotPaths - certification paths between two keys, as key lists
func (r *Reader) WotPaths(from account.PublicKey, to account.PublicKey, kMax int) ([][]account.PublicKey, error) {
	if nil == r.graph {
		return nil, fault.NotInitialised
	}

	byID := make(map[uint32]account.PublicKey)
	var fromID, toID uint32
	fromFound, toFound := false, false
	err := r.chain.Identities.Iter(storage.RangeAll[account.PublicKey]()).ForEach(func(pk account.PublicKey, idty schema.Identity) (bool, error) {
		byID[idty.WotID] = pk
		if pk == from {
			fromID, fromFound = idty.WotID, true
		}
		if pk == to {
			toID, toFound = idty.WotID, true
		}
		return true, nil
	})
	if nil != err {
		return nil, err
	}
	if !fromFound || !toFound {
		return nil, fault.IdentityNotFound
	}

	var paths [][]uint32
	err = r.graph.Read(func(g *wot.Graph) error {
		var err error
		paths, err = g.FindPaths(fromID, toID, kMax)
		return err
	})
	if nil != err {
		return nil, err
	}

	result := make([][]account.PublicKey, 0, len(paths))
	for _, path := range paths {
		keys := make([]account.PublicKey, len(path))
		for i, id := range path {
			pk, ok := byID[id]
			if !ok {
				return nil, fault.Corrupted("wot node: %d has no identity", id)
			}
			keys[i] = pk
		}
		result = append(result, keys)
	}
	return result, nil
}
