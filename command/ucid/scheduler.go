// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/robfig/cron/v3"
)

// periodic maintenance of a running node
type scheduler struct {
	log  *logger.L
	cron *cron.Cron
	node *node

	expiry int64
	now    func() time.Time
}

// register the jobs of the schedule section, a blank entry is skipped
func newScheduler(n *node, schedule ScheduleType, expiry int64) (*scheduler, error) {
	log := logger.New("schedule")

	s := &scheduler{
		log:    log,
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{log: log}))),
		node:   n,
		expiry: expiry,
		now:    time.Now,
	}

	jobs := []struct {
		name string
		spec string
		f    func()
	}{
		{"trim", schedule.Trim, s.trim},
		{"snapshot", schedule.Snapshot, s.snapshot},
		{"save", schedule.Save, s.save},
	}
	for _, job := range jobs {
		if "" == job.spec {
			log.Infof("job: %s disabled", job.name)
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.f); nil != err {
			return nil, err
		}
		log.Infof("job: %s  schedule: %q", job.name, job.spec)
	}
	return s, nil
}

func (s *scheduler) start() {
	s.cron.Start()
}

// wait for any running job to finish
func (s *scheduler) stop() {
	<-s.cron.Stop().Done()
}

// drop pending transactions older than the expiry
func (s *scheduler) trim() {
	limit := s.now().Unix() - s.expiry
	removed, err := s.node.pool.TrimExpiredNonWrittenTxs(limit)
	if nil != err {
		s.log.Errorf("trim error: %s", err)
		return
	}
	if removed > 0 {
		s.log.Infof("trimmed: %d expired transactions", removed)
	}
}

func (s *scheduler) snapshot() {
	if err := s.node.saveGraph(); nil != err {
		s.log.Errorf("wot snapshot error: %s", err)
		return
	}
	s.log.Debug("wot snapshot written")
}

func (s *scheduler) save() {
	if err := s.node.save(); nil != err {
		s.log.Errorf("save error: %s", err)
	}
}

// cron reports through the schedule log channel
type cronLogger struct {
	log *logger.L
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debugf("%s%s", msg, pairs(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Errorf("%s%s  error: %s", msg, pairs(keysAndValues), err)
}

func pairs(keysAndValues []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, "  %v: %v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
