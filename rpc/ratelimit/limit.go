// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ratelimit - per client token buckets with a whitelist
package ratelimit

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
)

// defaults
const (
	DefaultRate      = 10.0
	DefaultBurst     = 50
	DefaultBatchSize = 20

	idleExpiry    = 10 * time.Minute
	cleanInterval = 20 * time.Minute
)

// Guard - admit or reject requests by client address
//
// whitelisted clients bypass both the limiter and the batch size
type Guard struct {
	sync.RWMutex
	whitelist []*net.IPNet

	limit     rate.Limit
	burst     int
	batchSize int
	limiters  *cache.Cache
}

// New - a guard refilling rate tokens per second up to burst
func New(perSecond float64, burst int, batchSize int, whitelist []string) (*Guard, error) {
	if perSecond <= 0 || burst < 1 || batchSize < 1 {
		return nil, fault.InvalidCount
	}
	g := &Guard{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		batchSize: batchSize,
		limiters:  cache.New(idleExpiry, cleanInterval),
	}
	if err := g.SetWhitelist(whitelist); nil != err {
		return nil, err
	}
	return g, nil
}

// SetWhitelist - replace the whitelist, entries are addresses or
// CIDR blocks
func (g *Guard) SetWhitelist(entries []string) error {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		n, err := parseNet(strings.TrimSpace(entry))
		if nil != err {
			return err
		}
		nets = append(nets, n)
	}
	g.Lock()
	g.whitelist = nets
	g.Unlock()
	return nil
}

func parseNet(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, n, err := net.ParseCIDR(entry)
		return n, err
	}
	ip := net.ParseIP(entry)
	if nil == ip {
		return nil, fault.InvalidEndpoint
	}
	bits := 8 * net.IPv6len
	if nil != ip.To4() {
		ip = ip.To4()
		bits = 8 * net.IPv4len
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Whitelisted - true if the address is covered by the whitelist
func (g *Guard) Whitelisted(ip net.IP) bool {
	if nil == ip {
		return false
	}
	g.RLock()
	defer g.RUnlock()
	for _, n := range g.whitelist {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Admit - check a batch of count requests from a remote "host:port"
// or bare host, returns true for whitelisted clients
func (g *Guard) Admit(remote string, count int) (bool, error) {
	ip := Host(remote)
	if g.Whitelisted(ip) {
		return true, nil
	}
	if count > g.batchSize {
		metrics.RecordRejection("batch_size")
		return false, fault.TooManyItemsToProcess
	}
	if count < 1 {
		count = 1
	}
	if err := LimitN(g.limiter(ip.String()), count); nil != err {
		metrics.RecordRejection("rate")
		return false, err
	}
	return false, nil
}

// BatchSize - largest batch accepted from a client not whitelisted
func (g *Guard) BatchSize() int {
	return g.batchSize
}

func (g *Guard) limiter(key string) *rate.Limiter {
	if l, found := g.limiters.Get(key); found {
		g.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(g.limit, g.burst)
	if err := g.limiters.Add(key, l, cache.DefaultExpiration); nil != err {
		// lost a race with another request from the same client
		if existing, found := g.limiters.Get(key); found {
			return existing.(*rate.Limiter)
		}
	}
	return l
}

// Limit - take one token without waiting
func Limit(limiter *rate.Limiter) error {
	return LimitN(limiter, 1)
}

// LimitN - take count tokens without waiting, nothing is taken when
// the tokens are not available now
func LimitN(limiter *rate.Limiter, count int) error {
	now := time.Now()
	r := limiter.ReserveN(now, count)
	if !r.OK() {
		return fault.RateLimiting
	}
	if r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return fault.RateLimiting
	}
	return nil
}

// Host - the address part of "host:port" or a bare host
func Host(remote string) net.IP {
	host, _, err := net.SplitHostPort(remote)
	if nil != err {
		host = remote
	}
	return net.ParseIP(strings.Trim(host, "[]"))
}
