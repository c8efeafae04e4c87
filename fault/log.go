// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
)

// channel used for last attempt logging
var critical struct {
	sync.Mutex
	log *logger.L
}

// Initialise - setup a log channel for corruption and panic reports
func Initialise() error {
	critical.Lock()
	defer critical.Unlock()

	if nil != critical.log {
		return AlreadyInitialised
	}
	critical.log = logger.New("PANIC")
	return nil
}

// Finalise - flush any data
func Finalise() {
	critical.Lock()
	defer critical.Unlock()

	if nil != critical.log {
		critical.log.Flush()
		critical.log = nil
	}
}

// Criticalf - log a formatted message prefixed with the caller location
func Criticalf(format string, arguments ...interface{}) {
	if _, file, line, ok := runtime.Caller(1); ok {
		arguments = append([]interface{}{file, line}, arguments...)
		format = "(%q:%d) " + format
	}
	emit(format, arguments...)
}

// ReportCorruption - log an invariant breakage, returning the same error
func ReportCorruption(err error) error {
	if IsErrCorrupted(err) {
		emit("corruption: %s", err)
	}
	return err
}

// Panicf - log then panic
func Panicf(format string, arguments ...interface{}) {
	s := fmt.Sprintf(format, arguments...)
	emit("%s", s)
	time.Sleep(100 * time.Millisecond) // to allow logging output
	panic(s)
}

// PanicIfError - conditional panic
func PanicIfError(message string, err error) {
	if nil == err {
		return
	}
	Panicf("%s failed with error: %s", message, err)
}

func emit(format string, arguments ...interface{}) {
	critical.Lock()
	log := critical.log
	critical.Unlock()

	if nil == log {
		fmt.Printf("*** "+format+"\n", arguments...)
		return
	}
	log.Criticalf(format, arguments...)
	log.Flush()
}
