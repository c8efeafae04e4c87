// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package publish

import (
	"encoding/json"
	"net"
	"strconv"

	"github.com/bitmark-inc/logger"
	zmq "github.com/pebbe/zmq4"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
)

// topics
const (
	BlockTopic = "block"
	TxTopic    = "tx"
)

// the part of a zmq socket used for sending
type sender interface {
	SendMessageDontwait(parts ...interface{}) (int, error)
	Close() error
}

type broadcaster struct {
	log    *logger.L
	socket sender
	blocks *storage.Subscription[uint32, schema.BlockMeta]
	txs    *storage.Subscription[digest.Hash, schema.PendingTx]
}

// one PUB socket bound to every "host:port" address
func bind(addresses []string) (*zmq.Socket, error) {
	socket, err := zmq.NewSocket(zmq.PUB)
	if nil != err {
		return nil, err
	}
	if err := socket.SetIpv6(true); nil != err {
		socket.Close()
		return nil, err
	}
	for _, address := range addresses {
		host, port, err := net.SplitHostPort(address)
		if nil != err {
			socket.Close()
			return nil, err
		}
		if _, err := strconv.ParseUint(port, 10, 16); nil != err {
			socket.Close()
			return nil, fault.InvalidEndpoint
		}
		if "" == host {
			host = "*"
		}
		if err := socket.Bind("tcp://" + net.JoinHostPort(host, port)); nil != err {
			socket.Close()
			return nil, err
		}
	}
	return socket, nil
}

// Run - forward committed batches until shutdown
func (brdc *broadcaster) Run(args interface{}, shutdown <-chan struct{}) {
	log := brdc.log

	log.Info("starting…")

	blocks := brdc.blocks.C()
	txs := brdc.txs.C()

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case batch, ok := <-blocks:
			if !ok {
				blocks = nil
				continue loop
			}
			if 0 != batch.Lagged {
				log.Warnf("block events lost: %d batches", batch.Lagged)
			}
			brdc.send(blockMessages(batch))

		case batch, ok := <-txs:
			if !ok {
				txs = nil
				continue loop
			}
			if 0 != batch.Lagged {
				log.Warnf("tx events lost: %d batches", batch.Lagged)
			}
			brdc.send(txMessages(batch))
		}
	}

	brdc.blocks.Close()
	brdc.txs.Close()
	if nil != brdc.socket {
		brdc.socket.Close()
	}
	log.Info("stopped")
}

func (brdc *broadcaster) send(messages []message) {
	for _, m := range messages {
		parts := make([]interface{}, 0, 1+len(m.parameters))
		parts = append(parts, m.topic)
		for _, p := range m.parameters {
			parts = append(parts, p)
		}
		if _, err := brdc.socket.SendMessageDontwait(parts...); nil != err {
			brdc.log.Errorf("send topic: %s  error: %s", m.topic, err)
		}
	}
}

// a multipart message: topic, event kind, optional JSON body
type message struct {
	topic      string
	parameters [][]byte
}

func blockMessages(batch storage.Events[uint32, schema.BlockMeta]) []message {
	messages := make([]message, 0, len(batch.Events))
	for _, e := range batch.Events {
		m := message{
			topic:      BlockTopic,
			parameters: [][]byte{[]byte(e.Kind.String())},
		}
		switch e.Kind {
		case storage.EventUpsert:
			m.parameters = append(m.parameters, mustJSON(e.Value))
		case storage.EventRemove:
			m.parameters = append(m.parameters, mustJSON(e.Key))
		}
		messages = append(messages, m)
	}
	return messages
}

func txMessages(batch storage.Events[digest.Hash, schema.PendingTx]) []message {
	messages := make([]message, 0, len(batch.Events))
	for _, e := range batch.Events {
		m := message{
			topic:      TxTopic,
			parameters: [][]byte{[]byte(e.Kind.String())},
		}
		switch e.Kind {
		case storage.EventUpsert:
			m.parameters = append(m.parameters, mustJSON(e.Value))
		case storage.EventRemove:
			m.parameters = append(m.parameters, mustJSON(e.Key))
		}
		messages = append(messages, m)
	}
	return messages
}

// values published here are plain structs
func mustJSON(v interface{}) []byte {
	buffer, err := json.Marshal(v)
	fault.PanicIfError("publish: marshal", err)
	return buffer
}
