// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package listeners - network listeners of the query frontend
package listeners

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/counter"
	"github.com/uci-network/ucid/fault"
)

const (
	logName            = "http_rpc"
	minConnectionCount = 1
	readWriteTimeout   = 10 * time.Second
	keepAlivePeriod    = 3 * time.Minute
)

// Configuration - listen addresses and connection limit
type Configuration struct {
	MaximumConnections uint64   `gluamapper:"maximum_connections" json:"maximum_connections"`
	Listen             []string `gluamapper:"listen" json:"listen"`
}

// Listener - a started set of servers
type Listener interface {
	Serve() error
	Addresses() []net.Addr
	Shutdown(ctx context.Context) error
}

type httpListener struct {
	sync.Mutex
	log             *logger.L
	listenIPAndPort []string
	ipType          []string
	tlsConfig       *tls.Config
	handler         http.Handler
	count           *counter.Counter
	maxConnections  uint64
	servers         []*http.Server
	addresses       []net.Addr
}

// NewHTTP - validate the configuration, a nil tlsConfig serves plain
// HTTP
func NewHTTP(
	configuration *Configuration,
	log *logger.L,
	tlsConfig *tls.Config,
	handler http.Handler,
	count *counter.Counter,
) (Listener, error) {
	if 0 == len(configuration.Listen) {
		log.Errorf("missing %s listen", logName)
		return nil, fault.MissingParameters
	}
	if configuration.MaximumConnections < minConnectionCount {
		log.Errorf("invalid %s maximum connection limit: %d", logName, configuration.MaximumConnections)
		return nil, fault.MissingParameters
	}

	addresses := append([]string(nil), configuration.Listen...)
	ipType, err := parseListenAddress(addresses, log)
	if nil != err {
		return nil, err
	}

	if nil != tlsConfig {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.NextProtos = []string{"http/1.1"}
	}

	return &httpListener{
		log:             log,
		listenIPAndPort: addresses,
		ipType:          ipType,
		tlsConfig:       tlsConfig,
		handler:         handler,
		count:           count,
		maxConnections:  configuration.MaximumConnections,
	}, nil
}

// Serve - bind every address then serve each in the background
func (h *httpListener) Serve() error {
	h.Lock()
	defer h.Unlock()

	for i, listen := range h.listenIPAndPort {
		h.log.Infof("starting server: %s on: %q", logName, listen)

		ln, err := net.Listen(h.ipType[i], listen)
		if nil != err {
			h.log.Errorf("%s listen error: %s", logName, err)
			return err
		}
		h.addresses = append(h.addresses, ln.Addr())

		var l net.Listener = tcpKeepAliveListener{ln.(*net.TCPListener)}
		if nil != h.tlsConfig {
			l = tls.NewListener(l, h.tlsConfig)
		}

		s := &http.Server{
			Handler:        h.handler,
			ReadTimeout:    readWriteTimeout,
			WriteTimeout:   readWriteTimeout,
			MaxHeaderBytes: 1 << 20,
			ConnState:      h.connState,
		}
		h.servers = append(h.servers, s)

		go func() {
			if err := s.Serve(l); nil != err && http.ErrServerClosed != err {
				h.log.Errorf("%s terminated: %s", logName, err)
			}
		}()
	}
	return nil
}

// Addresses - bound addresses, resolves port 0
func (h *httpListener) Addresses() []net.Addr {
	h.Lock()
	defer h.Unlock()
	return append([]net.Addr(nil), h.addresses...)
}

// Shutdown - stop accepting and wait for requests in progress
func (h *httpListener) Shutdown(ctx context.Context) error {
	h.Lock()
	servers := h.servers
	h.servers = nil
	h.Unlock()

	var first error
	for _, s := range servers {
		if err := s.Shutdown(ctx); nil != err && nil == first {
			first = err
		}
	}
	return first
}

// connections beyond the limit are dropped as soon as they arrive
func (h *httpListener) connState(conn net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		if uint64(h.count.Increment()) > h.maxConnections {
			h.log.Warnf("connection limit reached, dropping: %s", conn.RemoteAddr())
			_ = conn.Close()
		}
	case http.StateHijacked, http.StateClosed:
		h.count.Decrement()
	}
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if nil != err {
		return nil, err
	}
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(keepAlivePeriod)
	return tc, nil
}

// "*:PORT" listens on tcp4 and tcp6, the addresses are rewritten in
// place
func parseListenAddress(addrs []string, log *logger.L) ([]string, error) {
	parsed := make([]string, len(addrs))
	for i, listen := range addrs {
		if "" == listen {
			return nil, fault.InvalidIpAddress
		}
		host, port, err := net.SplitHostPort(listen)
		if nil != err {
			log.Errorf("%s listen: %q  error: %s", logName, listen, err)
			return nil, fault.InvalidIpAddress
		}
		switch {
		case "*" == host:
			addrs[i] = net.JoinHostPort("::", port)
			host = "::"
			parsed[i] = "tcp"
		case strings.Contains(host, ":"):
			parsed[i] = "tcp6"
		default:
			parsed[i] = "tcp4"
		}

		if ip := net.ParseIP(host); nil == ip {
			err := fault.InvalidIpAddress
			log.Errorf("%s listen: %q  error: %s", logName, listen, err)
			return nil, err
		}
	}
	return parsed, nil
}
