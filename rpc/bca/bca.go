// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bca - the binary client API
//
// a stream of length prefixed requests is answered by a stream of
// responses tagged with the request id, in completion order
package bca

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/workers"
)

// RequestType - the operation a request asks for
type RequestType int

// request types, the value is the protobuf field carrying the body
const (
	MembersCount                  RequestType = 2
	BalancesOfPubkeys             RequestType = 3
	BalancesOfScripts             RequestType = 4
	CurrentUd                     RequestType = 5
	CurrentBlockstamp             RequestType = 6
	FirstUtxosOfPubkeys           RequestType = 7
	LastBlockstampOutOfForkWindow RequestType = 8
	SendTxs                       RequestType = 9
	Identities                    RequestType = 10
	Ping                          RequestType = 11
)

func validType(t RequestType) bool {
	return t >= MembersCount && t <= Ping
}

// MaximumItems - most keys, scripts or documents in one request
const MaximumItems = 5000

// Request - one decoded request
type Request struct {
	ID        uint32
	Type      RequestType
	Pubkeys   []account.PublicKey
	Scripts   []string
	Documents []string
	Amount    uint32
}

// Error - failure of one request
type Error struct {
	Kind    string
	Message string
}

// Blockstamp - block number and hash
type Blockstamp = transactionrecord.Blockstamp

// Utxo - an unspent output
type Utxo = reader.Utxo

// TxResult - outcome of one submitted document
type TxResult struct {
	Hash  digest.Hash
	Error string
}

// Identity - state of an identity, nil when unknown
type Identity struct {
	Username string
	IsMember bool
}

// Response - reply to the request with the same ID, exactly one of
// the payload fields is set
type Response struct {
	ID         uint32
	Err        *Error
	Count      *uint64
	Amounts    []*amount.Amount
	Ud         *amount.Amount
	Blockstamp *Blockstamp
	Utxos      [][]Utxo
	TxResults  []TxResult
	Identities []*Identity
	Pong       bool
}

// Querier - reads needed by the binary API
type Querier interface {
	CurrentBlock() (schema.BlockMeta, bool, error)
	BlockMeta(number uint32) (schema.BlockMeta, bool, error)
	Identity(pk account.PublicKey) (schema.Identity, bool, error)
	MembersCount() (int, error)
	CurrentUd() (amount.Amount, uint32, bool, error)
	Balances(texts []string) ([]amount.Amount, error)
	FindScriptUtxos(text string, target *amount.Amount, page reader.PageInfo) (reader.UtxosPage, error)
}

// Submitter - accepts raw transaction documents
type Submitter interface {
	Submit(document string) (*transactionrecord.Transaction, error)
}

// Configuration - service parameters
type Configuration struct {
	Reader     Querier
	Submitter  Submitter
	Workers    *workers.Pool
	ForkWindow uint32
}

// Service - executes decoded requests
type Service struct {
	log        *logger.L
	reader     Querier
	submitter  Submitter
	workers    *workers.Pool
	forkWindow uint32
}

// New - create the service
func New(configuration Configuration) (*Service, error) {
	if nil == configuration.Reader || nil == configuration.Submitter || nil == configuration.Workers {
		return nil, fault.MissingParameters
	}
	return &Service{
		log:        logger.New("bca"),
		reader:     configuration.Reader,
		submitter:  configuration.Submitter,
		workers:    configuration.Workers,
		forkWindow: configuration.ForkWindow,
	}, nil
}

// Serve - read request frames until the end of r, execute them
// concurrently and write response frames to w as each completes
//
// a malformed frame stops reading, requests already started still
// get their responses
//
// once the deadline of ctx passes every request still outstanding is
// answered with ReqExecTooLong and serving stops
func (s *Service) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	responses := make(chan *Response)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	var mutex sync.Mutex
	outstanding := make(map[uint32]int)
	stopped := false

	var readErr error
	go func() {
		defer func() {
			wg.Wait()
			close(responses)
		}()
		for {
			body, err := ReadFrame(r)
			if io.EOF == err {
				return
			}
			if nil != err {
				readErr = err
				return
			}
			q, err := UnmarshalRequest(body)
			if nil != err {
				readErr = err
				return
			}

			mutex.Lock()
			if stopped {
				mutex.Unlock()
				return
			}
			outstanding[q.ID] += 1
			mutex.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				response := s.Execute(ctx, q)
				select {
				case responses <- response:
				case <-stop:
				}
			}()
		}
	}()

	var writeErr error
	write := func(response *Response) {
		if nil != writeErr {
			return
		}
		writeErr = WriteFrame(w, response.Marshal())
		if f, ok := w.(interface{ Flush() }); ok {
			f.Flush()
		}
	}

	done := ctx.Done()
loop:
	for {
		select {
		case response, ok := <-responses:
			if !ok {
				break loop
			}
			mutex.Lock()
			outstanding[response.ID] -= 1
			if outstanding[response.ID] <= 0 {
				delete(outstanding, response.ID)
			}
			mutex.Unlock()
			write(response)

		case <-done:
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// cancelled requests still answer, keep draining
				done = nil
				continue loop
			}
			mutex.Lock()
			stopped = true
			ids := make([]uint32, 0, len(outstanding))
			for id, count := range outstanding {
				for j := 0; j < count; j += 1 {
					ids = append(ids, id)
				}
			}
			mutex.Unlock()
			close(stop)

			s.log.Debugf("deadline passed with: %d  requests outstanding", len(ids))
			sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
			for _, id := range ids {
				write(&Response{
					ID:  id,
					Err: &Error{Kind: fault.Kind(fault.ReqExecTooLong), Message: fault.ReqExecTooLong.Error()},
				})
			}
			if nil != writeErr {
				return writeErr
			}
			return fault.ReqExecTooLong
		}
	}

	if nil != writeErr {
		return writeErr
	}
	if nil != readErr {
		return readErr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fault.ReqExecTooLong
	}
	return nil
}

// Execute - run one request on the worker pool
func (s *Service) Execute(ctx context.Context, q *Request) *Response {
	started := time.Now()
	response, err := workers.Run(ctx, s.workers, func() (*Response, error) {
		return s.execute(q)
	})
	metrics.RecordRequest("bca", err, started)
	if nil != err {
		s.log.Debugf("request: %d  type: %d  error: %s", q.ID, q.Type, err)
		return &Response{
			ID:  q.ID,
			Err: &Error{Kind: fault.Kind(err), Message: err.Error()},
		}
	}
	response.ID = q.ID
	return response
}

func (s *Service) execute(q *Request) (*Response, error) {
	if len(q.Pubkeys) > MaximumItems || len(q.Scripts) > MaximumItems || len(q.Documents) > MaximumItems {
		return nil, fault.TooManyItemsToProcess
	}

	switch q.Type {
	case MembersCount:
		n, err := s.reader.MembersCount()
		if nil != err {
			return nil, err
		}
		count := uint64(n)
		return &Response{Count: &count}, nil

	case BalancesOfPubkeys:
		texts := make([]string, len(q.Pubkeys))
		for i, pk := range q.Pubkeys {
			texts[i] = script.SingleSig(pk).String()
		}
		return s.balances(texts)

	case BalancesOfScripts:
		return s.balances(q.Scripts)

	case CurrentUd:
		ud, _, ok, err := s.reader.CurrentUd()
		if nil != err {
			return nil, err
		}
		if !ok {
			return &Response{}, nil
		}
		return &Response{Ud: &ud}, nil

	case CurrentBlockstamp:
		current, ok, err := s.reader.CurrentBlock()
		if nil != err {
			return nil, err
		}
		if !ok {
			return nil, fault.BlockNotFound
		}
		bs := current.Blockstamp()
		return &Response{Blockstamp: &bs}, nil

	case LastBlockstampOutOfForkWindow:
		return s.outOfForkWindow()

	case FirstUtxosOfPubkeys:
		if 0 == q.Amount {
			return nil, fault.InvalidCount
		}
		utxos := make([][]Utxo, len(q.Pubkeys))
		for i, pk := range q.Pubkeys {
			page, err := s.reader.FindScriptUtxos(script.SingleSig(pk).String(), nil, reader.PageInfo{
				Ascending: true,
				PageSize:  int(q.Amount),
			})
			if nil != err {
				return nil, err
			}
			utxos[i] = page.Data
		}
		return &Response{Utxos: utxos}, nil

	case SendTxs:
		results := make([]TxResult, len(q.Documents))
		for i, document := range q.Documents {
			tx, err := s.submitter.Submit(document)
			if nil != err {
				results[i].Error = err.Error()
				continue
			}
			results[i].Hash = tx.FillHash()
		}
		return &Response{TxResults: results}, nil

	case Identities:
		identities := make([]*Identity, len(q.Pubkeys))
		for i, pk := range q.Pubkeys {
			idty, ok, err := s.reader.Identity(pk)
			if nil != err {
				return nil, err
			}
			if ok {
				identities[i] = &Identity{Username: idty.Username, IsMember: idty.IsMember}
			}
		}
		return &Response{Identities: identities}, nil

	case Ping:
		return &Response{Pong: true}, nil
	}
	return nil, fault.InvalidRequest
}

// zero balances are reported as absent
func (s *Service) balances(texts []string) (*Response, error) {
	balances, err := s.reader.Balances(texts)
	if nil != err {
		return nil, err
	}
	amounts := make([]*amount.Amount, len(balances))
	for i := range balances {
		if !balances[i].IsZero() {
			amounts[i] = &balances[i]
		}
	}
	return &Response{Amounts: amounts}, nil
}

// the newest block that can no longer be reverted
func (s *Service) outOfForkWindow() (*Response, error) {
	current, ok, err := s.reader.CurrentBlock()
	if nil != err {
		return nil, err
	}
	if !ok || current.Number < s.forkWindow {
		return nil, fault.BlockNotFound
	}
	meta, ok, err := s.reader.BlockMeta(current.Number - s.forkWindow)
	if nil != err {
		return nil, err
	}
	if !ok {
		return nil, fault.BlockNotFound
	}
	bs := meta.Blockstamp()
	return &Response{Blockstamp: &bs}, nil
}
