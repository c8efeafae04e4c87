// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/rpc/bca"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/rpc/handler"
	"github.com/uci-network/ucid/rpc/ratelimit"
)

const (
	notFound         = "not found"
	notAllowed       = "method not allowed"
	tooManyRequests  = "Too Many Requests"
	httptestRemoteIP = "192.0.2.1"
)

type eResp struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type fakeExecutor struct {
	sync.Mutex
	deadlines []bool
}

func (f *fakeExecutor) Execute(ctx context.Context, request gva.Request) *graphql.Result {
	_, hasDeadline := ctx.Deadline()
	f.Lock()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.Unlock()
	return &graphql.Result{Data: map[string]interface{}{"echo": request.Query}}
}

func (f *fakeExecutor) ExecuteBatch(ctx context.Context, requests []gva.Request) []*graphql.Result {
	results := make([]*graphql.Result, len(requests))
	for i, request := range requests {
		results[i] = f.Execute(ctx, request)
	}
	return results
}

func (f *fakeExecutor) Subscribe(ctx context.Context, request gva.Request, send func(*graphql.Result)) error {
	switch request.Query {
	case "finite":
		send(&graphql.Result{Data: map[string]interface{}{"n": 1}})
		send(&graphql.Result{Data: map[string]interface{}{"n": 2}})
		return nil
	case "endless":
		<-ctx.Done()
		return nil
	}
	return fault.InvalidSubscription
}

// answers every frame with the frame reversed
type fakeBinary struct{}

func (fakeBinary) Serve(_ context.Context, r io.Reader, w io.Writer) error {
	for {
		frame, err := bca.ReadFrame(r)
		if io.EOF == err {
			return nil
		}
		if nil != err {
			return err
		}
		reply := make([]byte, len(frame))
		for i := range frame {
			reply[len(frame)-1-i] = frame[i]
		}
		if err := bca.WriteFrame(w, reply); nil != err {
			return err
		}
	}
}

func newHandler(t *testing.T, rate float64, burst int, batchSize int, whitelist []string) (*handler.Handler, *fakeExecutor) {
	fixtures.SetupTestLogger()
	t.Cleanup(fixtures.TeardownTestLogger)

	guard, err := ratelimit.New(rate, burst, batchSize, whitelist)
	require.NoError(t, err)

	executor := &fakeExecutor{}
	h, err := handler.New(logger.New(fixtures.LogCategory), handler.Configuration{
		Path:              "/gva",
		SubscriptionsPath: "gva/subscription",
		Guard:             guard,
		Executor:          executor,
		Binary:            fakeBinary{},
	})
	require.NoError(t, err)
	return h, executor
}

func decodeError(t *testing.T, resp *http.Response) eResp {
	var e eResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestNew(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	log := logger.New(fixtures.LogCategory)
	guard, err := ratelimit.New(1, 1, 1, nil)
	require.NoError(t, err)

	_, err = handler.New(log, handler.Configuration{Path: "gva", SubscriptionsPath: "sub"})
	assert.Equal(t, fault.MissingParameters, err)

	_, err = handler.New(log, handler.Configuration{
		Path:              "gva",
		SubscriptionsPath: "/gva/",
		Guard:             guard,
		Executor:          &fakeExecutor{},
		Binary:            fakeBinary{},
	})
	assert.Equal(t, fault.InvalidEndpoint, err)
}

func TestRoot(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://node/elsewhere", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, notFound, decodeError(t, resp).Error)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPut, "http://node/gva", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, notAllowed, decodeError(t, resp).Error)
}

func TestPlayground(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://node/gva", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "endpoint: '/gva'")
	assert.Contains(t, string(body), "'/gva/subscription'")
}

func TestQuery(t *testing.T) {
	h, executor := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva",
		strings.NewReader(`{"query": "{ node { version } }"}`)))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var reply map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, map[string]interface{}{"echo": "{ node { version } }"}, reply["data"])
	assert.Equal(t, []bool{true}, executor.deadlines)
}

func TestQueryBatch(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva",
		strings.NewReader(` [{"query": "a"}, {"query": "b"}]`)))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Len(t, reply, 2)
	assert.Equal(t, map[string]interface{}{"echo": "a"}, reply[0]["data"])
	assert.Equal(t, map[string]interface{}{"echo": "b"}, reply[1]["data"])
}

func TestQueryInvalidBody(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	for _, body := range []string{"", "[]", "{nope"} {
		w := httptest.NewRecorder()
		h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode, "body: %q", body)
	}
}

func TestQueryBatchTooLarge(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 1, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva",
		strings.NewReader(`[{"query": "a"}, {"query": "b"}]`)))

	resp := w.Result()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, fault.TooManyItemsToProcess.Error(), decodeError(t, resp).Error)
}

func TestQueryRateLimited(t *testing.T) {
	h, _ := newHandler(t, 0.001, 1, 10, nil)
	router := h.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva", strings.NewReader(`{"query": "a"}`)))
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva", strings.NewReader(`{"query": "a"}`)))
	resp := w.Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, tooManyRequests, decodeError(t, resp).Error)
}

func TestQueryWhitelisted(t *testing.T) {
	h, executor := newHandler(t, 0.001, 1, 1, []string{httptestRemoteIP})
	router := h.Router()

	for i := 0; i < 3; i += 1 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva",
			strings.NewReader(`[{"query": "a"}, {"query": "b"}]`)))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	}
	assert.Equal(t, []bool{false, false, false, false, false, false}, executor.deadlines)

	require.NoError(t, h.SetWhitelist(nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/gva",
		strings.NewReader(`[{"query": "a"}, {"query": "b"}]`)))
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestBinary(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)
	router := h.Router()

	for _, target := range []string{"http://node/bca", "http://node/gva"} {
		in := &bytes.Buffer{}
		require.NoError(t, bca.WriteFrame(in, []byte("abc")))
		require.NoError(t, bca.WriteFrame(in, []byte("xy")))

		r := httptest.NewRequest(http.MethodPost, target, in)
		r.Header.Set("Content-Type", "application/bincode")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		resp := w.Result()
		require.Equal(t, http.StatusOK, resp.StatusCode, target)
		assert.Equal(t, "application/bincode", resp.Header.Get("Content-Type"))

		first, err := bca.ReadFrame(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("cba"), first)
		second, err := bca.ReadFrame(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("yx"), second)
	}
}

func TestBinaryInvalidFrame(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/bca", bytes.NewReader([]byte{0, 0, 0, 4, 1})))
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestBinaryBatchTooLarge(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 1, nil)

	in := &bytes.Buffer{}
	require.NoError(t, bca.WriteFrame(in, []byte("a")))
	require.NoError(t, bca.WriteFrame(in, []byte("b")))

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://node/bca", in))
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

type wsMessage struct {
	ID      string                 `json:"id,omitempty"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// next message that is not a keep alive
func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m))
		if "ka" != m.Type {
			return m
		}
	}
}

func TestSubscriptions(t *testing.T) {
	h, _ := newHandler(t, 10, 10, 10, nil)
	server := httptest.NewServer(h.Router())
	defer server.Close()

	dialer := websocket.Dialer{Subprotocols: []string{"graphql-ws"}}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/gva/subscription", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "graphql-ws", resp.Header.Get("Sec-Websocket-Protocol"))

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_init"}))
	assert.Equal(t, "connection_ack", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(wsMessage{ID: "1", Type: "start", Payload: map[string]interface{}{"query": "finite"}}))
	first := readMessage(t, conn)
	assert.Equal(t, wsMessage{ID: "1", Type: "data", Payload: map[string]interface{}{"data": map[string]interface{}{"n": float64(1)}}}, first)
	second := readMessage(t, conn)
	assert.Equal(t, "data", second.Type)
	assert.Equal(t, wsMessage{ID: "1", Type: "complete"}, readMessage(t, conn))

	require.NoError(t, conn.WriteJSON(wsMessage{ID: "2", Type: "start", Payload: map[string]interface{}{"query": "bad"}}))
	failed := readMessage(t, conn)
	assert.Equal(t, "2", failed.ID)
	assert.Equal(t, "error", failed.Type)

	require.NoError(t, conn.WriteJSON(wsMessage{ID: "3", Type: "start", Payload: map[string]interface{}{"query": "endless"}}))
	require.Eventually(t, func() bool { return 1 == h.ConnectionCount() }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.WriteJSON(wsMessage{ID: "3", Type: "stop"}))
	assert.Equal(t, wsMessage{ID: "3", Type: "complete"}, readMessage(t, conn))

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_terminate"}))
	require.Eventually(t, func() bool { return 0 == h.ConnectionCount() }, 5*time.Second, 10*time.Millisecond)
}
