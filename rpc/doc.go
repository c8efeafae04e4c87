// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc - the query frontend of the node
//
// one set of HTTP listeners serves the GraphQL API, its playground,
// websocket subscriptions, the binary client API and the Prometheus
// metrics; requests from clients outside the whitelist are rate
// limited, capped in batch size and bounded by a deadline
package rpc
