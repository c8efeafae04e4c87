// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/miekg/dns"

	"github.com/uci-network/ucid/counter"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/rpc/bca"
	"github.com/uci-network/ucid/rpc/certificate"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/rpc/handler"
	"github.com/uci-network/ucid/rpc/listeners"
	"github.com/uci-network/ucid/rpc/ratelimit"
)

// defaults
const (
	DefaultPath               = "gva"
	DefaultSubscriptionsPath  = "gva/subscription"
	DefaultPort               = 30901
	DefaultMaximumConnections = 100
	DefaultDeadline           = 5

	tlsName         = "gva"
	shutdownTimeout = 5 * time.Second
)

// Configuration - the gva section of the configuration file
type Configuration struct {
	Listen             []string `gluamapper:"listen" json:"listen"`
	MaximumConnections uint64   `gluamapper:"maximum_connections" json:"maximum_connections"`
	Path               string   `gluamapper:"path" json:"path"`
	SubscriptionsPath  string   `gluamapper:"subscriptions_path" json:"subscriptions_path"`
	RemoteHost         string   `gluamapper:"remote_host" json:"remote_host"`
	RemotePort         int      `gluamapper:"remote_port" json:"remote_port"`
	RemotePath         string   `gluamapper:"remote_path" json:"remote_path"`
	RemoteSubPath      string   `gluamapper:"remote_subscriptions_path" json:"remote_subscriptions_path"`
	RemoteTLS          bool     `gluamapper:"remote_tls" json:"remote_tls"`
	Certificate        string   `gluamapper:"certificate" json:"certificate"`
	PrivateKey         string   `gluamapper:"private_key" json:"private_key"`
	BatchSize          int      `gluamapper:"batch_size" json:"batch_size"`
	Deadline           int      `gluamapper:"deadline" json:"deadline"`
	Whitelist          []string `gluamapper:"whitelist" json:"whitelist"`
	Rate               float64  `gluamapper:"rate" json:"rate"`
	Burst              int      `gluamapper:"burst" json:"burst"`
}

// globals
type rpcData struct {
	sync.RWMutex

	log *logger.L

	handler     *handler.Handler
	listener    listeners.Listener
	connections counter.Counter
	requests    counter.Counter

	// set once during initialise
	initialised bool
}

// global data
var globalData rpcData

// Initialise - start the query frontend, node carries everything the
// GraphQL service needs except the endpoints which are derived from
// the configuration
func Initialise(configuration *Configuration, node gva.Configuration, forkWindow uint32) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	log := logger.New("rpc")
	globalData.log = log
	log.Info("starting…")

	if 0 == len(configuration.Listen) {
		log.Info("disable: gva")
		globalData.initialised = true
		return nil
	}

	endpoints, err := Endpoints(configuration)
	if nil != err {
		log.Errorf("endpoints error: %s", err)
		return err
	}
	for _, e := range endpoints {
		log.Infof("endpoint: %s", e)
	}
	node.Endpoints = endpoints

	gvaService, err := gva.New(node)
	if nil != err {
		return err
	}
	bcaService, err := bca.New(bca.Configuration{
		Reader:     node.Reader,
		Submitter:  gvaService,
		Workers:    node.Workers,
		ForkWindow: forkWindow,
	})
	if nil != err {
		return err
	}

	guard, err := ratelimit.New(
		valueOr(configuration.Rate, ratelimit.DefaultRate),
		int(valueOr(float64(configuration.Burst), ratelimit.DefaultBurst)),
		int(valueOr(float64(configuration.BatchSize), ratelimit.DefaultBatchSize)),
		configuration.Whitelist,
	)
	if nil != err {
		log.Errorf("anti-spam error: %s", err)
		return err
	}

	h, err := handler.New(log, handler.Configuration{
		Path:              stringOr(configuration.Path, DefaultPath),
		SubscriptionsPath: stringOr(configuration.SubscriptionsPath, DefaultSubscriptionsPath),
		Deadline:          time.Duration(valueOr(float64(configuration.Deadline), DefaultDeadline)) * time.Second,
		Guard:             guard,
		Executor:          gvaService,
		Binary:            bcaService,
		Connections:       &globalData.requests,
	})
	if nil != err {
		return err
	}

	var tlsConfig *tls.Config
	if "" != configuration.Certificate {
		var fingerprint [32]byte
		tlsConfig, fingerprint, err = certificate.Get(log, tlsName, configuration.Certificate, configuration.PrivateKey)
		if nil != err {
			return err
		}
		log.Infof("%s: SHA3-256 fingerprint: %x", tlsName, fingerprint)
	}

	maximum := configuration.MaximumConnections
	if 0 == maximum {
		maximum = DefaultMaximumConnections
	}
	listener, err := listeners.NewHTTP(&listeners.Configuration{
		MaximumConnections: maximum,
		Listen:             configuration.Listen,
	}, log, tlsConfig, h.Router(), &globalData.connections)
	if nil != err {
		return err
	}
	if err := listener.Serve(); nil != err {
		return err
	}

	globalData.handler = h
	globalData.listener = listener
	globalData.initialised = true
	return nil
}

// Finalise - stop the listeners
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	if nil != globalData.listener {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := globalData.listener.Shutdown(ctx); nil != err {
			globalData.log.Warnf("shutdown error: %s", err)
		}
	}
	globalData.handler = nil
	globalData.listener = nil

	// finally...
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// SetWhitelist - replace the anti-spam whitelist of a running
// frontend
func SetWhitelist(entries []string) error {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	if nil == globalData.handler {
		return nil
	}
	return globalData.handler.SetWhitelist(entries)
}

// Addresses - bound listen addresses
func Addresses() []net.Addr {
	globalData.RLock()
	defer globalData.RUnlock()

	if nil == globalData.listener {
		return nil
	}
	return globalData.listener.Addresses()
}

// ConnectionCount - open connections and requests in progress
func ConnectionCount() (int64, int64) {
	return globalData.connections.Value(), globalData.requests.Value()
}

// Endpoints - advertisements of the public GraphQL and subscription
// URLs, empty when no remote host is configured
//
//	GVA [S ]<host> <port> <path>
//	GVASUB [S ]<host> <port> <subscriptions path>
func Endpoints(configuration *Configuration) ([]string, error) {
	host := strings.TrimSpace(configuration.RemoteHost)
	if "" == host {
		return nil, nil
	}
	if nil == net.ParseIP(host) {
		if _, ok := dns.IsDomainName(host); !ok || strings.HasSuffix(host, ".") {
			return nil, fault.InvalidEndpoint
		}
	}

	port := configuration.RemotePort
	if 0 == port {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fault.InvalidEndpoint
	}

	path := strings.Trim(stringOr(configuration.RemotePath, stringOr(configuration.Path, DefaultPath)), "/")
	subPath := strings.Trim(stringOr(configuration.RemoteSubPath, stringOr(configuration.SubscriptionsPath, DefaultSubscriptionsPath)), "/")

	secure := ""
	if configuration.RemoteTLS {
		secure = "S "
	}
	p := strconv.Itoa(port)
	return []string{
		"GVA " + secure + host + " " + p + " " + path,
		"GVASUB " + secure + host + " " + p + " " + subPath,
	}, nil
}

func stringOr(s string, def string) string {
	if "" == s {
		return def
	}
	return s
}

func valueOr(v float64, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
