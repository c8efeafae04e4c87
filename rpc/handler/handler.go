// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package handler - HTTP endpoints of the query frontend
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/gorilla/mux"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/uci-network/ucid/counter"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/rpc/bca"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/rpc/ratelimit"
)

// defaults
const (
	DefaultDeadline = 5 * time.Second

	maximumBodySize   = 4 << 20
	bincodeType       = "application/bincode"
	jsonType          = "application/json"
	websocketProtocol = "graphql-ws"
)

// Executor - GraphQL execution
type Executor interface {
	Execute(ctx context.Context, request gva.Request) *graphql.Result
	ExecuteBatch(ctx context.Context, requests []gva.Request) []*graphql.Result
	Subscribe(ctx context.Context, request gva.Request, send func(*graphql.Result)) error
}

// Binary - binary request stream execution
type Binary interface {
	Serve(ctx context.Context, r io.Reader, w io.Writer) error
}

// Configuration - handler parameters
type Configuration struct {
	Path              string
	SubscriptionsPath string
	Deadline          time.Duration
	Guard             *ratelimit.Guard
	Executor          Executor
	Binary            Binary
	Connections       *counter.Counter
}

// Handler - the HTTP side of the query frontend
type Handler struct {
	log               *logger.L
	path              string
	subscriptionsPath string
	deadline          time.Duration
	guard             *ratelimit.Guard
	executor          Executor
	binary            Binary
	connections       *counter.Counter
}

// New - create a handler, paths are given without the leading slash
func New(log *logger.L, configuration Configuration) (*Handler, error) {
	if nil == configuration.Guard || nil == configuration.Executor || nil == configuration.Binary {
		return nil, fault.MissingParameters
	}
	path := strings.Trim(configuration.Path, "/")
	subscriptionsPath := strings.Trim(configuration.SubscriptionsPath, "/")
	if "" == path || "" == subscriptionsPath || path == subscriptionsPath {
		return nil, fault.InvalidEndpoint
	}
	deadline := configuration.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	connections := configuration.Connections
	if nil == connections {
		connections = &counter.Counter{}
	}
	return &Handler{
		log:               log,
		path:              path,
		subscriptionsPath: subscriptionsPath,
		deadline:          deadline,
		guard:             configuration.Guard,
		executor:          configuration.Executor,
		binary:            configuration.Binary,
		connections:       connections,
	}, nil
}

// Router - all routes of the frontend
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/"+h.path, h.Playground).Methods(http.MethodGet)
	r.HandleFunc("/"+h.path, h.Query).Methods(http.MethodPost)
	r.HandleFunc("/bca", h.Binary).Methods(http.MethodPost)
	r.HandleFunc("/"+h.subscriptionsPath, h.Subscriptions).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(h.Root)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendMethodNotAllowed(w)
	})
	return r
}

// Root - anything not matched
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	sendNotFound(w)
}

// Query - GraphQL over JSON, one operation or a batch; bincode
// bodies are passed to the binary API
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), bincodeType) {
		h.Binary(w, r)
		return
	}

	h.connections.Increment()
	defer h.connections.Decrement()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maximumBodySize))
	if nil != err {
		sendError(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	body = bytes.TrimSpace(body)

	batch := len(body) > 0 && '[' == body[0]
	var requests []gva.Request
	if batch {
		err = json.Unmarshal(body, &requests)
	} else {
		requests = make([]gva.Request, 1)
		err = json.Unmarshal(body, &requests[0])
	}
	if nil != err || 0 == len(requests) {
		sendError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx, cancel, ok := h.admit(w, r, len(requests))
	if !ok {
		return
	}
	defer cancel()

	var reply interface{}
	if batch {
		reply = h.executor.ExecuteBatch(ctx, requests)
	} else {
		reply = h.executor.Execute(ctx, requests[0])
	}

	w.Header().Set("Content-Type", jsonType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(reply); nil != err {
		h.log.Debugf("write reply to: %s  error: %s", r.RemoteAddr, err)
	}
}

// Binary - a stream of binary requests, responses are streamed back
// as each completes
func (h *Handler) Binary(w http.ResponseWriter, r *http.Request) {
	h.connections.Increment()
	defer h.connections.Decrement()

	// frames are read up front so the batch can be sized
	in := &bytes.Buffer{}
	count := 0
	body := http.MaxBytesReader(w, r.Body, maximumBodySize)
	for {
		frame, err := bca.ReadFrame(body)
		if io.EOF == err {
			break
		}
		if nil != err {
			sendError(w, "invalid frame", http.StatusBadRequest)
			return
		}
		_ = bca.WriteFrame(in, frame)
		count += 1
	}

	ctx, cancel, ok := h.admit(w, r, count)
	if !ok {
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", bincodeType)
	w.WriteHeader(http.StatusOK)
	if err := h.binary.Serve(ctx, in, flushWriter{w}); nil != err {
		h.log.Debugf("binary stream from: %s  error: %s", r.RemoteAddr, err)
	}
}

// anti-spam check, the context carries the batch deadline for
// clients not whitelisted
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, count int) (context.Context, context.CancelFunc, bool) {
	whitelisted, err := h.guard.Admit(r.RemoteAddr, count)
	if nil != err {
		h.log.Debugf("reject: %s  count: %d  error: %s", r.RemoteAddr, count, err)
		switch err {
		case fault.TooManyItemsToProcess:
			sendError(w, err.Error(), http.StatusBadRequest)
		default:
			sendError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
		return nil, nil, false
	}
	if whitelisted {
		ctx, cancel := context.WithCancel(r.Context())
		return ctx, cancel, true
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.deadline)
	return ctx, cancel, true
}

// ConnectionCount - requests and subscriptions in progress
func (h *Handler) ConnectionCount() int64 {
	return h.connections.Value()
}

// SetWhitelist - replace the anti-spam whitelist
func (h *Handler) SetWhitelist(entries []string) error {
	return h.guard.SetWhitelist(entries)
}

type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f flushWriter) Flush() {
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// graphql style error list for failures outside of execution
func graphqlError(err error) *graphql.Result {
	return &graphql.Result{
		Errors: []gqlerrors.FormattedError{{
			Message: err.Error(),
			Extensions: map[string]interface{}{
				"kind": fault.Kind(err),
			},
		}},
	}
}

func sendNotFound(w http.ResponseWriter) {
	sendError(w, "not found", http.StatusNotFound)
}

func sendMethodNotAllowed(w http.ResponseWriter) {
	sendError(w, "method not allowed", http.StatusMethodNotAllowed)
}

// to compose JSON error messages
type eType struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// output an error with a JSON body
func sendError(w http.ResponseWriter, message string, code int) {
	text, err := json.Marshal(eType{
		Code:  code,
		Error: message,
	})
	if nil != err {
		http.Error(w, `{"code":500,"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", jsonType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(text)
}
