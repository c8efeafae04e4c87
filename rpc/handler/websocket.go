// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/uci-network/ucid/rpc/gva"
)

// graphql-ws message types
const (
	gqlConnectionInit      = "connection_init"
	gqlConnectionAck       = "connection_ack"
	gqlConnectionError     = "connection_error"
	gqlConnectionKeepAlive = "ka"
	gqlConnectionTerminate = "connection_terminate"
	gqlStart               = "start"
	gqlStop                = "stop"
	gqlData                = "data"
	gqlError               = "error"
	gqlComplete            = "complete"
)

const (
	keepAliveInterval = 20 * time.Second
	writeWait         = 10 * time.Second
	sendQueue         = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	Subprotocols:    []string{websocketProtocol},
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// OperationMessage - one graphql-ws frame
type OperationMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscriptions - upgrade to a websocket speaking graphql-ws
//
// each started operation follows its event source until stopped,
// until the source ends or until the connection closes
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.Admit(r.RemoteAddr, 1); nil != err {
		sendError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if nil != err {
		h.log.Debugf("websocket upgrade from: %s  error: %s", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	h.connections.Increment()
	defer h.connections.Decrement()

	h.log.Debugf("websocket connected: %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan OperationMessage, sendQueue)
	operations := xsync.NewMap[string, context.CancelFunc]()
	var wg sync.WaitGroup

	emit := func(m OperationMessage) bool {
		select {
		case send <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeMessages(ctx, cancel, conn, send)
	}()

	h.readMessages(ctx, conn, operations, &wg, emit)

	cancel()
	operations.Range(func(_ string, stop context.CancelFunc) bool {
		stop()
		return true
	})
	wg.Wait()

	h.log.Debugf("websocket disconnected: %s", r.RemoteAddr)
}

// serialise all writes to the connection and keep it alive
func (h *Handler) writeMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, send <-chan OperationMessage) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	write := func(m OperationMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); nil != err {
			h.log.Debugf("websocket write error: %s", err)
			cancel()
			return false
		}
		return true
	}

	for {
		select {
		case m := <-send:
			if !write(m) {
				return
			}
		case <-ticker.C:
			if !write(OperationMessage{Type: gqlConnectionKeepAlive}) {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// blocks until the client terminates or the connection fails
func (h *Handler) readMessages(ctx context.Context, conn *websocket.Conn, operations *xsync.Map[string, context.CancelFunc], wg *sync.WaitGroup, emit func(OperationMessage) bool) {
	for {
		var m OperationMessage
		if err := conn.ReadJSON(&m); nil != err {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debugf("websocket read error: %s", err)
			}
			return
		}

		switch m.Type {
		case gqlConnectionInit:
			emit(OperationMessage{Type: gqlConnectionAck})
			emit(OperationMessage{Type: gqlConnectionKeepAlive})

		case gqlConnectionTerminate:
			return

		case gqlStart:
			var request gva.Request
			if err := json.Unmarshal(m.Payload, &request); nil != err || "" == m.ID {
				emit(OperationMessage{ID: m.ID, Type: gqlError, Payload: mustJSON(errorPayload("invalid start message"))})
				continue
			}
			opCtx, stop := context.WithCancel(ctx)
			if _, loaded := operations.LoadOrStore(m.ID, stop); loaded {
				stop()
				emit(OperationMessage{ID: m.ID, Type: gqlError, Payload: mustJSON(errorPayload("duplicate operation id"))})
				continue
			}
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				defer operations.Delete(id)
				defer stop()
				h.runOperation(opCtx, id, request, emit)
			}(m.ID)

		case gqlStop:
			if stop, found := operations.LoadAndDelete(m.ID); found {
				stop()
			}

		default:
			emit(OperationMessage{ID: m.ID, Type: gqlConnectionError, Payload: mustJSON(errorPayload("unknown message type"))})
		}
	}
}

func (h *Handler) runOperation(ctx context.Context, id string, request gva.Request, emit func(OperationMessage) bool) {
	err := h.executor.Subscribe(ctx, request, func(result *graphql.Result) {
		emit(OperationMessage{ID: id, Type: gqlData, Payload: mustJSON(result)})
	})
	if nil != err && nil == ctx.Err() {
		emit(OperationMessage{ID: id, Type: gqlError, Payload: mustJSON(graphqlError(err).Errors[0])})
		return
	}
	emit(OperationMessage{ID: id, Type: gqlComplete})
}

func errorPayload(message string) map[string]interface{} {
	return map[string]interface{}{"message": message}
}

func mustJSON(v interface{}) json.RawMessage {
	buffer, err := json.Marshal(v)
	if nil != err {
		return json.RawMessage(`{"message":"encoding failed"}`)
	}
	return buffer
}
