// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
)

// batches buffered for one subscriber
const subscriptionBuffer = 64

// root field names
const (
	pendingTxsField = "receivePendingTxs"
	newBlocksField  = "newBlocks"
)

// the executor reads the payload of an event from the root value
const eventKey = "event"

func (s *Service) subscriptionType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			pendingTxsField: &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(txType))),
				Resolve: eventPayload,
			},
			newBlocksField: &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(blockType))),
				Resolve: eventPayload,
			},
		},
	})
}

func eventPayload(p graphql.ResolveParams) (interface{}, error) {
	root, ok := p.Source.(map[string]interface{})
	if !ok {
		return []interface{}{}, nil
	}
	return root[eventKey], nil
}

// Subscribe - deliver one result per committed batch that carries
// new items until ctx is done or the source closes
//
// an invalid operation is reported through send once and returned
func (s *Service) Subscribe(ctx context.Context, request Request, send func(*graphql.Result)) error {
	field, err := subscriptionField(request)
	if nil != err {
		send(errorResult(err))
		return err
	}

	initial := s.execute(request, []interface{}{})
	if initial.HasErrors() {
		send(initial)
		return fault.InvalidSubscription
	}

	emit := func(payload []interface{}) {
		send(s.execute(request, payload))
	}

	s.log.Debugf("subscribe: %s", field)
	defer s.log.Debugf("unsubscribe: %s", field)

	switch field {
	case pendingTxsField:
		return follow(ctx, s.pool.Subscribe(subscriptionBuffer), func(e storage.Event[digest.Hash, schema.PendingTx]) interface{} {
			return pendingTxValue(e.Value)
		}, emit)
	default:
		return follow(ctx, s.blocks.Subscribe(subscriptionBuffer), func(e storage.Event[uint32, schema.BlockMeta]) interface{} {
			return blockValue(e.Value)
		}, emit)
	}
}

func (s *Service) execute(request Request, payload []interface{}) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  request.Query,
		VariableValues: request.Variables,
		OperationName:  request.OperationName,
		RootObject: map[string]interface{}{
			eventKey: payload,
		},
	})
}

// forward the upserts of each batch
func follow[K, V any](ctx context.Context, sub *storage.Subscription[K, V], value func(storage.Event[K, V]) interface{}, emit func([]interface{})) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-sub.C():
			if !ok {
				return nil
			}
			payload := make([]interface{}, 0, len(batch.Events))
			for _, e := range batch.Events {
				if storage.EventUpsert == e.Kind {
					payload = append(payload, value(e))
				}
			}
			if len(payload) > 0 {
				emit(payload)
			}
		}
	}
}

// the single root field of the selected subscription operation
func subscriptionField(request Request) (string, error) {
	document, err := parser.Parse(parser.ParseParams{Source: request.Query})
	if nil != err {
		return "", fault.InvalidSubscription
	}

	var operation *ast.OperationDefinition
	for _, d := range document.Definitions {
		op, ok := d.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if "" == request.OperationName || (nil != op.Name && op.Name.Value == request.OperationName) {
			if nil != operation {
				return "", fault.InvalidSubscription
			}
			operation = op
		}
	}
	if nil == operation || ast.OperationTypeSubscription != operation.Operation || nil == operation.SelectionSet {
		return "", fault.InvalidSubscription
	}

	selections := operation.SelectionSet.Selections
	if 1 != len(selections) {
		return "", fault.InvalidSubscription
	}
	f, ok := selections[0].(*ast.Field)
	if !ok || nil == f.Name {
		return "", fault.InvalidSubscription
	}
	switch f.Name.Value {
	case pendingTxsField, newBlocksField:
		return f.Name.Value, nil
	}
	return "", fault.InvalidSubscription
}
