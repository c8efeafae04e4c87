// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"github.com/graphql-go/graphql"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/script"
)

// page sizes
const (
	defaultPageSize = 10
	maximumPageSize = 1000
)

// software name reported by the node query
const software = "ucid"

func nonNullString() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
}

func (s *Service) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"node": &graphql.Field{
				Type:    graphql.NewNonNull(nodeType),
				Resolve: s.node,
			},
			"membersCount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n, err := s.reader.MembersCount()
					return n, fail(err)
				},
			},
			"currentBlock": &graphql.Field{
				Type:    blockType,
				Resolve: s.currentBlock,
			},
			"block": &graphql.Field{
				Type: blockType,
				Args: graphql.FieldConfigArgument{
					"number": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: s.block,
			},
			"balance": &graphql.Field{
				Type: graphql.NewNonNull(amountType),
				Args: graphql.FieldConfigArgument{
					"script": nonNullString(),
				},
				Resolve: s.balance,
			},
			"balances": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(amountType))),
				Args: graphql.FieldConfigArgument{
					"scripts": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: s.balances,
			},
			"utxosOfScript": &graphql.Field{
				Type: graphql.NewNonNull(utxosConnection),
				Args: graphql.FieldConfigArgument{
					"script":     nonNullString(),
					"pagination": &graphql.ArgumentConfig{Type: paginationInput},
					"amount":     &graphql.ArgumentConfig{Type: Int64},
				},
				Resolve: s.utxosOfScript,
			},
			"unspentUds": &graphql.Field{
				Type: graphql.NewNonNull(udsConnection),
				Args: graphql.FieldConfigArgument{
					"pubkey":     nonNullString(),
					"pagination": &graphql.ArgumentConfig{Type: paginationInput},
					"amount":     &graphql.ArgumentConfig{Type: Int64},
				},
				Resolve: s.unspentUds,
			},
			"allUds": &graphql.Field{
				Type: graphql.NewNonNull(udsConnection),
				Args: graphql.FieldConfigArgument{
					"pubkey":     nonNullString(),
					"pagination": &graphql.ArgumentConfig{Type: paginationInput},
				},
				Resolve: s.allUds,
			},
			"currentUd": &graphql.Field{
				Type:    currentUdType,
				Resolve: s.currentUd,
			},
			"txsHistoryBc": &graphql.Field{
				Type: graphql.NewNonNull(historyType),
				Args: graphql.FieldConfigArgument{
					"script":     nonNullString(),
					"pagination": &graphql.ArgumentConfig{Type: paginationInput},
					"start":      &graphql.ArgumentConfig{Type: Int64},
					"end":        &graphql.ArgumentConfig{Type: Int64},
				},
				Resolve: s.txsHistoryBc,
			},
			"txsHistoryMp": &graphql.Field{
				Type: graphql.NewNonNull(mempoolHistoryType),
				Args: graphql.FieldConfigArgument{
					"pubkey": nonNullString(),
				},
				Resolve: s.txsHistoryMp,
			},
			"genTx": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Args: graphql.FieldConfigArgument{
					"amount":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"comment":           &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"issuer":            nonNullString(),
					"recipient":         nonNullString(),
					"useMempoolSources": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: s.genTx,
			},
			"idty": &graphql.Field{
				Type: identityType,
				Args: graphql.FieldConfigArgument{
					"pubkey": nonNullString(),
				},
				Resolve: s.idty,
			},
			"wotDistance": &graphql.Field{
				Type: graphql.NewNonNull(distanceType),
				Args: graphql.FieldConfigArgument{
					"pubkey":            nonNullString(),
					"sentryRequirement": &graphql.ArgumentConfig{Type: graphql.Int},
					"stepMax":           &graphql.ArgumentConfig{Type: graphql.Int},
					"xPercent":          &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: s.wotDistance,
			},
			"wotPaths": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))))),
				Args: graphql.FieldConfigArgument{
					"from": nonNullString(),
					"to":   nonNullString(),
					"kMax": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 3},
				},
				Resolve: s.wotPaths,
			},
		},
	})
}

func (s *Service) node(p graphql.ResolveParams) (interface{}, error) {
	endpoints := make([]interface{}, len(s.endpoints))
	for i, e := range s.endpoints {
		endpoints[i] = e
	}
	return map[string]interface{}{
		"software":  software,
		"version":   s.version,
		"currency":  s.currency,
		"endpoints": endpoints,
	}, nil
}

func (s *Service) currentBlock(p graphql.ResolveParams) (interface{}, error) {
	meta, found, err := s.reader.CurrentBlock()
	if nil != err || !found {
		return nil, fail(err)
	}
	return blockValue(meta), nil
}

func (s *Service) block(p graphql.ResolveParams) (interface{}, error) {
	n, _ := p.Args["number"].(int)
	if n < 0 {
		return nil, fail(fault.InvalidRequest)
	}
	meta, found, err := s.reader.BlockMeta(uint32(n))
	if nil != err || !found {
		return nil, fail(err)
	}
	return blockValue(meta), nil
}

func (s *Service) balance(p graphql.ResolveParams) (interface{}, error) {
	text, _ := p.Args["script"].(string)
	a, err := s.reader.Balance(text)
	if nil != err {
		return nil, fail(err)
	}
	return amountValue(a), nil
}

func (s *Service) balances(p graphql.ResolveParams) (interface{}, error) {
	texts, err := stringList(p.Args["scripts"])
	if nil != err {
		return nil, fail(err)
	}
	amounts, err := s.reader.Balances(texts)
	if nil != err {
		return nil, fail(err)
	}
	result := make([]interface{}, len(amounts))
	for i, a := range amounts {
		result[i] = amountValue(a)
	}
	return result, nil
}

func (s *Service) utxosOfScript(p graphql.ResolveParams) (interface{}, error) {
	text, _ := p.Args["script"].(string)
	page, err := pageArgument(p.Args["pagination"])
	if nil != err {
		return nil, fail(err)
	}
	target, err := targetArgument(p.Args["amount"])
	if nil != err {
		return nil, fail(err)
	}
	utxos, err := s.reader.FindScriptUtxos(text, target, page)
	if nil != err {
		return nil, fail(err)
	}
	return connection(utxos.Paged, func(u reader.Utxo) interface{} {
		return map[string]interface{}{
			"writtenBlock": u.BlockNumber,
			"txHash":       u.TxHash.String(),
			"outputIndex":  u.OutputIndex,
			"amount":       amountValue(u.Amount),
		}
	}, &utxos.Sum), nil
}

func (s *Service) unspentUds(p graphql.ResolveParams) (interface{}, error) {
	pk, err := pubkeyArgument(p.Args["pubkey"])
	if nil != err {
		return nil, fail(err)
	}
	page, err := pageArgument(p.Args["pagination"])
	if nil != err {
		return nil, fail(err)
	}
	target, err := targetArgument(p.Args["amount"])
	if nil != err {
		return nil, fail(err)
	}
	uds, err := s.reader.UnspentUdsOf(pk, page, nil, target)
	if nil != err {
		return nil, fail(err)
	}
	return connection(uds.Paged, udValue, &uds.Sum), nil
}

func (s *Service) allUds(p graphql.ResolveParams) (interface{}, error) {
	pk, err := pubkeyArgument(p.Args["pubkey"])
	if nil != err {
		return nil, fail(err)
	}
	page, err := pageArgument(p.Args["pagination"])
	if nil != err {
		return nil, fail(err)
	}
	uds, err := s.reader.AllUdsOf(pk, page)
	if nil != err {
		return nil, fail(err)
	}
	return connection(uds.Paged, udValue, &uds.Sum), nil
}

func (s *Service) currentUd(p graphql.ResolveParams) (interface{}, error) {
	a, number, found, err := s.reader.CurrentUd()
	if nil != err || !found {
		return nil, fail(err)
	}
	return map[string]interface{}{
		"amount":      a.Value,
		"base":        a.Base,
		"blockNumber": number,
	}, nil
}

func (s *Service) txsHistoryBc(p graphql.ResolveParams) (interface{}, error) {
	text, _ := p.Args["script"].(string)
	ws, err := script.Parse(text)
	if nil != err {
		return nil, fail(fault.InvalidScript)
	}
	page, err := pageArgument(p.Args["pagination"])
	if nil != err {
		return nil, fail(err)
	}
	window := reader.TimeWindow{}
	if v, ok := p.Args["start"].(int64); ok {
		if v < 0 {
			return nil, fail(fault.InvalidRequest)
		}
		start := uint64(v)
		window.From = &start
	}
	if v, ok := p.Args["end"].(int64); ok {
		if v < 0 {
			return nil, fail(fault.InvalidRequest)
		}
		end := uint64(v)
		window.To = &end
	}

	history, err := s.reader.TxsHistory(ws.Hash(), window, page)
	if nil != err {
		return nil, fail(err)
	}
	written := func(w reader.WrittenTx) interface{} {
		return writtenTxValue(w.TxRecord)
	}
	return map[string]interface{}{
		"sent":     connection(history.Sent, written, nil),
		"received": connection(history.Received, written, nil),
	}, nil
}

func (s *Service) txsHistoryMp(p graphql.ResolveParams) (interface{}, error) {
	pk, err := pubkeyArgument(p.Args["pubkey"])
	if nil != err {
		return nil, fail(err)
	}
	sending, receiving, err := s.reader.TxsHistoryMempool(pk)
	if nil != err {
		return nil, fail(err)
	}
	return map[string]interface{}{
		"sending":   pendingTxsValue(sending),
		"receiving": pendingTxsValue(receiving),
	}, nil
}

func (s *Service) idty(p graphql.ResolveParams) (interface{}, error) {
	pk, err := pubkeyArgument(p.Args["pubkey"])
	if nil != err {
		return nil, fail(err)
	}
	idty, found, err := s.reader.Identity(pk)
	if nil != err || !found {
		return nil, fail(err)
	}
	return identityValue(pk, idty), nil
}

func (s *Service) wotDistance(p graphql.ResolveParams) (interface{}, error) {
	pk, err := pubkeyArgument(p.Args["pubkey"])
	if nil != err {
		return nil, fail(err)
	}
	rule := s.rule
	if v, ok := p.Args["sentryRequirement"].(int); ok {
		rule.SentryRequirement = v
	}
	if v, ok := p.Args["stepMax"].(int); ok {
		rule.StepMax = v
	}
	if v, ok := p.Args["xPercent"].(float64); ok {
		rule.XPercent = v
	}
	d, err := s.reader.WotDistance(pk, rule)
	if nil != err {
		return nil, fail(err)
	}
	return map[string]interface{}{
		"sentries":        d.Sentries,
		"success":         d.Success,
		"successAtBorder": d.SuccessAtBorder,
		"reached":         d.Reached,
		"reachedAtBorder": d.ReachedAtBorder,
		"outdistanced":    d.Outdistanced,
	}, nil
}

func (s *Service) wotPaths(p graphql.ResolveParams) (interface{}, error) {
	from, err := pubkeyArgument(p.Args["from"])
	if nil != err {
		return nil, fail(err)
	}
	to, err := pubkeyArgument(p.Args["to"])
	if nil != err {
		return nil, fail(err)
	}
	kMax, _ := p.Args["kMax"].(int)
	paths, err := s.reader.WotPaths(from, to, kMax)
	if nil != err {
		return nil, fail(err)
	}
	result := make([]interface{}, len(paths))
	for i, path := range paths {
		keys := make([]interface{}, len(path))
		for j, pk := range path {
			keys[j] = pk.String()
		}
		result[i] = keys
	}
	return result, nil
}

func udValue(ud reader.Ud) interface{} {
	return map[string]interface{}{
		"blockNumber": ud.BlockNumber,
		"amount":      amountValue(ud.Amount),
	}
}

type cursored interface {
	Cursor() string
}

// edges and page info of a page, with the sum when given
func connection[T cursored](page reader.Paged[T], node func(T) interface{}, sum *amount.Amount) map[string]interface{} {
	edges := make([]interface{}, len(page.Data))
	for i, item := range page.Data {
		edges[i] = map[string]interface{}{
			"cursor": item.Cursor(),
			"node":   node(item),
		}
	}
	info := map[string]interface{}{
		"hasPreviousPage": page.HasPrevious,
		"hasNextPage":     page.HasNext,
		"startCursor":     nil,
		"endCursor":       nil,
	}
	if n := len(page.Data); n > 0 {
		info["startCursor"] = page.Data[0].Cursor()
		info["endCursor"] = page.Data[n-1].Cursor()
	}
	c := map[string]interface{}{
		"edges":    edges,
		"pageInfo": info,
	}
	if nil != sum {
		c["sum"] = amountValue(*sum)
	}
	return c
}

// argument helpers

func pubkeyArgument(value interface{}) (account.PublicKey, error) {
	s, ok := value.(string)
	if !ok {
		return account.PublicKey{}, fault.MissingParameters
	}
	return ValidatePubkey(s)
}

func stringList(value interface{}) ([]string, error) {
	l, ok := value.([]interface{})
	if !ok {
		return nil, fault.MissingParameters
	}
	if len(l) > maximumPageSize {
		return nil, fault.TooManyItemsToProcess
	}
	result := make([]string, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			return nil, fault.InvalidRequest
		}
		result[i] = s
	}
	return result, nil
}

func pageArgument(value interface{}) (reader.PageInfo, error) {
	page := reader.PageInfo{Ascending: true, PageSize: defaultPageSize}
	m, ok := value.(map[string]interface{})
	if !ok {
		return page, nil
	}
	if c, ok := m["cursor"].(string); ok {
		page.Cursor = c
	}
	if o, ok := m["ord"].(string); ok {
		page.Ascending = "DESC" != o
	}
	if n, ok := m["pageSize"].(int); ok {
		page.PageSize = n
	}
	if page.PageSize < 1 {
		return page, fault.InvalidCount
	}
	if page.PageSize > maximumPageSize {
		return page, fault.TooManyItemsToProcess
	}
	return page, nil
}

func targetArgument(value interface{}) (*amount.Amount, error) {
	v, ok := value.(int64)
	if !ok {
		return nil, nil
	}
	if err := ValidateAmount(v); nil != err {
		return nil, err
	}
	a := amount.New(v, 0)
	return &a, nil
}
