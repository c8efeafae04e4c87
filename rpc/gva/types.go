// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/transactionrecord"
)

// Int64 - integers beyond the 32 bit range of Int
var Int64 = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Int64",
	Description: "64 bit signed integer",
	Serialize:   coerceInt64,
	ParseValue:  coerceInt64,
	ParseLiteral: func(value ast.Value) interface{} {
		switch v := value.(type) {
		case *ast.IntValue:
			n, err := strconv.ParseInt(v.Value, 10, 64)
			if nil != err {
				return nil
			}
			return n
		case *ast.StringValue:
			return coerceInt64(v.Value)
		}
		return nil
	},
})

func coerceInt64(value interface{}) interface{} {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		if v != float64(int64(v)) {
			return nil
		}
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if nil != err {
			return nil
		}
		return n
	case *int64:
		if nil == v {
			return nil
		}
		return *v
	}
	return nil
}

var orderEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "Order",
	Values: graphql.EnumValueConfigMap{
		"ASC":  &graphql.EnumValueConfig{Value: "ASC"},
		"DESC": &graphql.EnumValueConfig{Value: "DESC"},
	},
})

var paginationInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "Pagination",
	Fields: graphql.InputObjectConfigFieldMap{
		"cursor":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		"ord":      &graphql.InputObjectFieldConfig{Type: orderEnum, DefaultValue: "ASC"},
		"pageSize": &graphql.InputObjectFieldConfig{Type: graphql.Int, DefaultValue: defaultPageSize},
	},
})

var amountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AmountWithBase",
	Fields: graphql.Fields{
		"amount": &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"base":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var pageInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PageInfo",
	Fields: graphql.Fields{
		"hasPreviousPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"hasNextPage":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"startCursor":     &graphql.Field{Type: graphql.String},
		"endCursor":       &graphql.Field{Type: graphql.String},
	},
})

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"software":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"version":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"currency":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"endpoints": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
	},
})

var blockType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Block",
	Fields: graphql.Fields{
		"version":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"number":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"hash":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"innerHash":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"previousHash": &graphql.Field{Type: graphql.String},
		"issuer":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"medianTime":   &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"time":         &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"unitBase":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"dividend":     &graphql.Field{Type: Int64},
		"membersCount": &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"txCount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var currentUdType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CurrentUd",
	Fields: graphql.Fields{
		"amount":      &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"base":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"blockNumber": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var identityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Identity",
	Fields: graphql.Fields{
		"pubkey":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"username": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"isMember": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"joinedAt": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))},
		"leftAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))},
		"firstUd":  &graphql.Field{Type: graphql.Int},
	},
})

var distanceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "WotDistance",
	Fields: graphql.Fields{
		"sentries":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"success":         &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"successAtBorder": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"reached":         &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"reachedAtBorder": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"outdistanced":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

var txType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Tx",
	Fields: graphql.Fields{
		"hash":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"version":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"currency":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"blockstamp":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"locktime":     &graphql.Field{Type: graphql.NewNonNull(Int64)},
		"issuers":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"inputs":       &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"unlocks":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"outputs":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"comment":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"signatures":   &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"writtenBlock": &graphql.Field{Type: graphql.String},
		"writtenTime":  &graphql.Field{Type: Int64},
		"receivedTime": &graphql.Field{Type: Int64},
	},
})

var udType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Ud",
	Fields: graphql.Fields{
		"blockNumber": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"amount":      &graphql.Field{Type: graphql.NewNonNull(amountType)},
	},
})

var utxoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Utxo",
	Fields: graphql.Fields{
		"writtenBlock": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"txHash":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"outputIndex":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"amount":       &graphql.Field{Type: graphql.NewNonNull(amountType)},
	},
})

// NAME{Connection,Edge} types over a node type
func connectionType(name string, node *graphql.Object, withSum bool) *graphql.Object {
	edge := graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Edge",
		Fields: graphql.Fields{
			"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"node":   &graphql.Field{Type: graphql.NewNonNull(node)},
		},
	})
	fields := graphql.Fields{
		"edges":    &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edge)))},
		"pageInfo": &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
	}
	if withSum {
		fields["sum"] = &graphql.Field{Type: graphql.NewNonNull(amountType)}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name:   name + "Connection",
		Fields: fields,
	})
}

var (
	udsConnection   = connectionType("Uds", udType, true)
	utxosConnection = connectionType("Utxos", utxoType, true)
	txsConnection   = connectionType("Txs", txType, false)
)

var historyType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TxsHistoryBc",
	Fields: graphql.Fields{
		"sent":     &graphql.Field{Type: graphql.NewNonNull(txsConnection)},
		"received": &graphql.Field{Type: graphql.NewNonNull(txsConnection)},
	},
})

var mempoolHistoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TxsHistoryMp",
	Fields: graphql.Fields{
		"sending":   &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(txType)))},
		"receiving": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(txType)))},
	},
})

// value conversions for the default field resolver

func amountValue(a amount.Amount) map[string]interface{} {
	return map[string]interface{}{
		"amount": a.Value,
		"base":   a.Base,
	}
}

func blockValue(m schema.BlockMeta) map[string]interface{} {
	v := map[string]interface{}{
		"version":      m.Version,
		"number":       m.Number,
		"hash":         m.Hash.String(),
		"innerHash":    m.InnerHash.String(),
		"previousHash": nil,
		"issuer":       m.Issuer.String(),
		"medianTime":   m.MedianTime,
		"time":         m.Time,
		"unitBase":     m.UnitBase,
		"dividend":     nil,
		"membersCount": m.MembersCount,
		"txCount":      m.TxCount,
	}
	if m.Number > 0 {
		v["previousHash"] = m.PreviousHash.String()
	}
	if nil != m.Dividend {
		v["dividend"] = *m.Dividend
	}
	return v
}

func identityValue(pk account.PublicKey, idty schema.Identity) map[string]interface{} {
	joined := make([]interface{}, len(idty.JoinedAt))
	for i, n := range idty.JoinedAt {
		joined[i] = n
	}
	left := make([]interface{}, len(idty.LeftAt))
	for i, n := range idty.LeftAt {
		left[i] = n
	}
	v := map[string]interface{}{
		"pubkey":   pk.String(),
		"username": idty.Username,
		"isMember": idty.IsMember,
		"joinedAt": joined,
		"leftAt":   left,
		"firstUd":  nil,
	}
	if nil != idty.FirstUd {
		v["firstUd"] = *idty.FirstUd
	}
	return v
}

func txValue(tx *transactionrecord.Transaction) map[string]interface{} {
	strings := func(n int, f func(i int) string) []interface{} {
		l := make([]interface{}, n)
		for i := range l {
			l[i] = f(i)
		}
		return l
	}
	return map[string]interface{}{
		"hash":         tx.Hash.String(),
		"version":      tx.Version,
		"currency":     tx.Currency,
		"blockstamp":   tx.Blockstamp.String(),
		"locktime":     tx.Locktime,
		"issuers":      strings(len(tx.Issuers), func(i int) string { return tx.Issuers[i].String() }),
		"inputs":       strings(len(tx.Inputs), func(i int) string { return tx.Inputs[i].String() }),
		"unlocks":      strings(len(tx.Unlocks), func(i int) string { return tx.Unlocks[i].String() }),
		"outputs":      strings(len(tx.Outputs), func(i int) string { return tx.Outputs[i].String() }),
		"comment":      tx.Comment,
		"signatures":   strings(len(tx.Signatures), func(i int) string { return tx.Signatures[i].String() }),
		"writtenBlock": nil,
		"writtenTime":  nil,
		"receivedTime": nil,
	}
}

func writtenTxValue(r schema.TxRecord) map[string]interface{} {
	v := txValue(r.Tx)
	v["writtenBlock"] = r.WrittenBlock.String()
	v["writtenTime"] = r.WrittenTime
	return v
}

func pendingTxValue(p schema.PendingTx) map[string]interface{} {
	v := txValue(p.Tx)
	v["receivedTime"] = p.ReceivedTime
	return v
}

func pendingTxsValue(l []schema.PendingTx) []interface{} {
	result := make([]interface{}, len(l))
	for i, p := range l {
		result[i] = pendingTxValue(p)
	}
	return result
}
