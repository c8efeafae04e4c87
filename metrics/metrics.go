// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics - prometheus counters shared by the subsystems
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// indexer
	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ucid_blocks_total",
		Help: "Total number of blocks applied or reverted",
	}, []string{"operation"})

	blockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ucid_block_duration_seconds",
		Help:    "Duration of block apply and revert",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})

	currentBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ucid_current_block",
		Help: "Number of the last applied block",
	})

	// mempool
	pendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ucid_pending_transactions",
		Help: "Current number of pending transactions",
	})

	mempoolTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ucid_mempool_transactions_total",
		Help: "Transactions submitted to the mempool by result",
	}, []string{"status"})

	// frontend
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ucid_requests_total",
		Help: "Total number of GVA and BCA requests",
	}, []string{"api", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ucid_request_duration_seconds",
		Help:    "Duration of GVA and BCA requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"api"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ucid_antispam_rejections_total",
		Help: "Requests refused by the anti-spam gate",
	}, []string{"reason"})

	workerQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ucid_worker_waiting_tasks",
		Help: "Tasks waiting in the worker pool queue",
	})
)

// RecordBlock - a block applied or reverted
func RecordBlock(operation string, number uint32, started time.Time) {
	blocksTotal.WithLabelValues(operation).Inc()
	blockDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	currentBlock.Set(float64(number))
}

// SetPendingTransactions - mempool size
func SetPendingTransactions(count int) {
	pendingTransactions.Set(float64(count))
}

// RecordMempool - outcome of a submission
func RecordMempool(status string) {
	mempoolTotal.WithLabelValues(status).Inc()
}

// RecordRequest - a served request
func RecordRequest(api string, err error, started time.Time) {
	status := "ok"
	if nil != err {
		status = "error"
	}
	requestsTotal.WithLabelValues(api, status).Inc()
	requestDuration.WithLabelValues(api).Observe(time.Since(started).Seconds())
}

// RecordRejection - an anti-spam refusal
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// SetWorkerQueue - waiting tasks
func SetWorkerQueue(waiting uint64) {
	workerQueue.Set(float64(waiting))
}

// Handler - the scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
