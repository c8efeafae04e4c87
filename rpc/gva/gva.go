// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package gva - the GraphQL query surface
//
// queries run on the worker pool against the reader, the tx
// mutation goes to the mempool and subscriptions follow the commit
// events of the chain and the mempool
package gva

import (
	"context"
	"errors"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/graphql-go/graphql"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/wot"
	"github.com/uci-network/ucid/workers"
)

//go:generate mockgen -source=gva.go -destination=../mocks/gva.go -package=mocks

// Querier - the read queries answered by the schema
type Querier interface {
	CurrentBlock() (schema.BlockMeta, bool, error)
	BlockMeta(number uint32) (schema.BlockMeta, bool, error)
	Identity(pk account.PublicKey) (schema.Identity, bool, error)
	MembersCount() (int, error)
	CurrentUd() (amount.Amount, uint32, bool, error)
	Balance(text string) (amount.Amount, error)
	Balances(texts []string) ([]amount.Amount, error)
	UnspentUdsOf(pk account.PublicKey, page reader.PageInfo, exclude map[uint32]struct{}, target *amount.Amount) (reader.UdsPage, error)
	AllUdsOf(pk account.PublicKey, page reader.PageInfo) (reader.UdsPage, error)
	FindScriptUtxos(text string, target *amount.Amount, page reader.PageInfo) (reader.UtxosPage, error)
	FindInputs(a amount.Amount, text string, useMempoolSources bool) (reader.Inputs, error)
	TxsHistory(scriptHash digest.Hash, window reader.TimeWindow, page reader.PageInfo) (reader.History, error)
	TxsHistoryMempool(pk account.PublicKey) ([]schema.PendingTx, []schema.PendingTx, error)
	WotDistance(pk account.PublicKey, rule reader.DistanceRule) (wot.Distance, error)
	WotPaths(from account.PublicKey, to account.PublicKey, kMax int) ([][]account.PublicKey, error)
}

// Pool - the mempool operations used by the mutation and the
// pending transaction subscription
type Pool interface {
	AcceptNewTx(t *transactionrecord.Transaction, self *account.PublicKey) (bool, error)
	Subscribe(buffer int) *storage.Subscription[digest.Hash, schema.PendingTx]
}

// Blocks - source of committed block events
type Blocks interface {
	Subscribe(buffer int) *storage.Subscription[uint32, schema.BlockMeta]
}

// Configuration - everything the service needs
type Configuration struct {
	Reader    Querier
	Pool      Pool
	Blocks    Blocks
	Workers   *workers.Pool
	Currency  string
	Version   string
	Self      *account.PublicKey
	Endpoints []string
	Rule      reader.DistanceRule
}

// Request - one GraphQL operation as posted
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Service - the schema bound to a node
type Service struct {
	log       *logger.L
	schema    graphql.Schema
	reader    Querier
	pool      Pool
	blocks    Blocks
	workers   *workers.Pool
	currency  string
	version   string
	self      *account.PublicKey
	endpoints []string
	rule      reader.DistanceRule
}

// New - build the schema
func New(configuration Configuration) (*Service, error) {
	s := &Service{
		log:       logger.New("gva"),
		reader:    configuration.Reader,
		pool:      configuration.Pool,
		blocks:    configuration.Blocks,
		workers:   configuration.Workers,
		currency:  configuration.Currency,
		version:   configuration.Version,
		self:      configuration.Self,
		endpoints: configuration.Endpoints,
		rule:      configuration.Rule,
	}
	if nil == s.endpoints {
		s.endpoints = []string{}
	}

	sch, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:        s.queryType(),
		Mutation:     s.mutationType(),
		Subscription: s.subscriptionType(),
	})
	if nil != err {
		return nil, err
	}
	s.schema = sch
	return s, nil
}

// Execute - run one operation on the worker pool
//
// a deadline or cancellation of ctx abandons the result, the
// operation itself always completes
func (s *Service) Execute(ctx context.Context, request Request) *graphql.Result {
	started := time.Now()
	result, err := workers.Run(ctx, s.workers, func() (*graphql.Result, error) {
		return s.do(ctx, request), nil
	})
	if nil != err {
		result = errorResult(err)
	}
	metrics.RecordRequest("gva", firstError(result), started)
	return result
}

// ExecuteBatch - run several operations concurrently, results keep
// the request order
//
// once the deadline of ctx has passed every result of the batch is
// ReqExecTooLong, including those that completed in time
func (s *Service) ExecuteBatch(ctx context.Context, requests []Request) []*graphql.Result {
	results := make([]*graphql.Result, len(requests))
	done := make(chan struct{}, len(requests))
	for i := range requests {
		go func(i int) {
			results[i] = s.Execute(ctx, requests[i])
			done <- struct{}{}
		}(i)
	}
	for range requests {
		<-done
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.Debugf("batch of: %d  past its deadline", len(requests))
		for i := range results {
			results[i] = errorResult(fault.ReqExecTooLong)
		}
	}
	return results
}

func (s *Service) do(ctx context.Context, request Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  request.Query,
		VariableValues: request.Variables,
		OperationName:  request.OperationName,
		Context:        ctx,
	})
}
