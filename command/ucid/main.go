// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/background"
	"github.com/uci-network/ucid/configuration"
	"github.com/uci-network/ucid/mode"
	"github.com/uci-network/ucid/publish"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/rpc"
	"github.com/uci-network/ucid/rpc/gva"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "memory-stats", HasArg: getoptions.NO_ARGUMENT, Short: 'm'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration and
	// process data needed for initial setup
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := getConfiguration(configurationFile, nil)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// these commands require the configuration and
	// perform enquiries on the configuration
	if len(arguments) > 0 && processConfigCommand(arguments, theConfiguration) {
		return
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if nil != err {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// set the initial system mode - before any background tasks are started
	err = mode.Initialise()
	if nil != err {
		log.Criticalf("mode initialise error: %s", err)
		exitwithstatus.Message("mode initialise error: %s", err)
	}
	defer mode.Finalise()

	// general info
	log.Infof("test mode: %v", mode.IsTesting())
	log.Infof("database: %s  in: %q", theConfiguration.Database.Backend, theConfiguration.Database.Directory)
	log.Debugf("%s = %#v", "Gva", theConfiguration.Gva)
	log.Debugf("%s = %#v", "Publish", theConfiguration.Publish)

	// start the data storage, reservoir, WoT and indexer
	log.Info("initialise node")
	n, err := openNode(log, theConfiguration)
	if nil != err {
		log.Criticalf("node initialise error: %s", err)
		exitwithstatus.Message("node initialise error: %s", err)
	}
	defer n.close()

	// these commands are allowed to access the internal database
	if len(arguments) > 0 && processDataCommand(log, arguments, n) {
		return
	}

	// periodic maintenance
	jobs, err := newScheduler(n, theConfiguration.Schedule, theConfiguration.Mempool.Expiry)
	if nil != err {
		log.Criticalf("schedule initialise error: %s", err)
		exitwithstatus.Message("schedule initialise error: %s", err)
	}
	jobs.start()
	defer jobs.stop()

	if mode.Is(mode.Synchronise) {
		log.Warn("synchronise mode: frontend and publishing disabled")
	} else {
		// start up the publishing background processes
		err = publish.Initialise(&theConfiguration.Publish, n.chain, n.pool)
		if nil != err {
			log.Criticalf("publish initialise error: %s", err)
			exitwithstatus.Message("publish initialise error: %s", err)
		}
		defer publish.Finalise()

		if p := mode.RemotePath(); "" != p {
			theConfiguration.Gva.RemotePath = p
		}

		// start up the query frontend
		err = rpc.Initialise(&theConfiguration.Gva, gva.Configuration{
			Reader:   n.reader,
			Pool:     n.pool,
			Blocks:   n.chain.BlocksMeta,
			Workers:  n.workers,
			Currency: theConfiguration.Currency,
			Version:  version,
			Self:     theConfiguration.self,
			Rule: reader.DistanceRule{
				SentryRequirement: theConfiguration.Wot.SigQty,
				StepMax:           theConfiguration.Wot.StepMax,
				XPercent:          theConfiguration.Wot.XPercent,
			},
		}, theConfiguration.ForkWindow)
		if nil != err {
			log.Criticalf("rpc initialise error: %s", err)
			exitwithstatus.Message("rpc initialise error: %s", err)
		}
		defer rpc.Finalise()

		for _, a := range rpc.Addresses() {
			log.Infof("gva listening on: %s", a)
		}
	}

	// reload the whitelist whenever the configuration file changes
	watcher, err := configuration.NewWatcher(configurationFile, logger.New("watcher"))
	if nil != err {
		log.Criticalf("configuration watcher error: %s", err)
		exitwithstatus.Message("configuration watcher error: %s", err)
	}
	processes := background.Start(background.Processes{
		watcher,
		background.ProcessFunc(reloader(watcher, configurationFile)),
	}, nil)
	defer processes.Stop()

	// if memory logging enabled
	if len(options["memory-stats"]) > 0 {
		go memstats()
	}

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
	mode.Set(mode.Stopped)
}

// re-read the configuration on every change and apply the parts
// that can change while running
func reloader(watcher *configuration.Watcher, configurationFile string) func(interface{}, <-chan struct{}) {
	return func(args interface{}, shutdown <-chan struct{}) {
		log := logger.New("reload")
	loop:
		for {
			select {
			case <-shutdown:
				break loop
			case <-watcher.Changes():
				c, err := getConfiguration(configurationFile, nil)
				if nil != err {
					log.Errorf("configuration: %q  error: %s", configurationFile, err)
					continue loop
				}
				if err := rpc.SetWhitelist(c.Gva.Whitelist); nil != err {
					log.Errorf("whitelist error: %s", err)
					continue loop
				}
				log.Infof("whitelist: %v", c.Gva.Whitelist)
			}
		}
	}
}
