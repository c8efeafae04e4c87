// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/robfig/cron/v3"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/configuration"
	"github.com/uci-network/ucid/publish"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/rpc"
	"github.com/uci-network/ucid/storage/backends"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultChainState        = "chain_state"
	defaultMempool           = "txs_mp"

	defaultKeyFile         = "gva.key"
	defaultCertificateFile = "gva.crt"

	defaultWotSnapshot = "wot.bin.gz"
	defaultMaxLinks    = 100
	defaultSigQty      = 5
	defaultStepMax     = 5
	defaultXPercent    = 0.8

	defaultReorgHorizon = 100
	defaultExpiry       = 7 * 24 * 60 * 60 // seconds a pending transaction is kept

	defaultTrimSchedule     = "0 */10 * * * *"
	defaultSnapshotSchedule = "30 */5 * * * *"
	defaultSaveSchedule     = "45 * * * * *"

	defaultWorkers = 4
	defaultQueue   = 256

	defaultLogDirectory = "log"
	defaultLogFile      = "ucid.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

type DatabaseType struct {
	Backend   string `gluamapper:"backend" json:"backend"`
	Directory string `gluamapper:"directory" json:"directory"`
}

type MempoolType struct {
	Capacity      int    `gluamapper:"capacity" json:"capacity"`
	Expiry        int64  `gluamapper:"expiry" json:"expiry"`
	SelfPublicKey string `gluamapper:"self_public_key" json:"self_public_key"`
}

type WotType struct {
	Snapshot string  `gluamapper:"snapshot" json:"snapshot"`
	MaxLinks int     `gluamapper:"max_links" json:"max_links"`
	SigQty   int     `gluamapper:"sig_qty" json:"sig_qty"`
	StepMax  int     `gluamapper:"step_max" json:"step_max"`
	XPercent float64 `gluamapper:"x_percent" json:"x_percent"`
}

type WorkersType struct {
	Size  int `gluamapper:"size" json:"size"`
	Queue int `gluamapper:"queue" json:"queue"`
}

// cron specifications with a seconds field, blank disables the job
type ScheduleType struct {
	Trim     string `gluamapper:"trim" json:"trim"`
	Snapshot string `gluamapper:"snapshot" json:"snapshot"`
	Save     string `gluamapper:"save" json:"save"`
}

type Configuration struct {
	DataDirectory string                `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string                `gluamapper:"pidfile" json:"pidfile"`
	Currency      string                `gluamapper:"currency" json:"currency"`
	Database      DatabaseType          `gluamapper:"database" json:"database"`
	ReorgHorizon  uint32                `gluamapper:"reorg_horizon" json:"reorg_horizon"`
	ForkWindow    uint32                `gluamapper:"fork_window" json:"fork_window"`
	Mempool       MempoolType           `gluamapper:"mempool" json:"mempool"`
	Wot           WotType               `gluamapper:"wot" json:"wot"`
	Workers       WorkersType           `gluamapper:"workers" json:"workers"`
	Schedule      ScheduleType          `gluamapper:"schedule" json:"schedule"`
	Gva           rpc.Configuration     `gluamapper:"gva" json:"gva"`
	Publish       publish.Configuration `gluamapper:"publish" json:"publish"`
	Logging       logger.Configuration  `gluamapper:"logging" json:"logging"`

	// decoded from Mempool.SelfPublicKey
	self *account.PublicKey
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default
		Currency:      "g1",

		Database: DatabaseType{
			Backend:   backends.LevelDB,
			Directory: defaultDatabaseDirectory,
		},

		ReorgHorizon: defaultReorgHorizon,
		ForkWindow:   defaultReorgHorizon,

		Mempool: MempoolType{
			Capacity: reservoir.DefaultCapacity,
			Expiry:   defaultExpiry,
		},

		Wot: WotType{
			Snapshot: defaultWotSnapshot,
			MaxLinks: defaultMaxLinks,
			SigQty:   defaultSigQty,
			StepMax:  defaultStepMax,
			XPercent: defaultXPercent,
		},

		Workers: WorkersType{
			Size:  defaultWorkers,
			Queue: defaultQueue,
		},

		Schedule: ScheduleType{
			Trim:     defaultTrimSchedule,
			Snapshot: defaultSnapshotSchedule,
			Save:     defaultSaveSchedule,
		},

		Gva: rpc.Configuration{
			MaximumConnections: rpc.DefaultMaximumConnections,
			Path:               rpc.DefaultPath,
			SubscriptionsPath:  rpc.DefaultSubscriptionsPath,
			RemotePort:         rpc.DefaultPort,
			Deadline:           rpc.DefaultDeadline,
			Certificate:        defaultCertificateFile,
			PrivateKey:         defaultKeyFile,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options, variables); nil != err {
		return nil, err
	}

	// abort if the backend name is not recognised
	options.Database.Backend = strings.ToLower(strings.TrimSpace(options.Database.Backend))
	if !validBackend(options.Database.Backend) {
		return nil, fmt.Errorf("Database: %q is not supported, choose from: %s", options.Database.Backend, strings.Join(backends.Names(), ", "))
	}

	if "" != options.Mempool.SelfPublicKey {
		pk, err := account.PublicKeyFromBase58(options.Mempool.SelfPublicKey)
		if nil != err {
			return nil, fmt.Errorf("Mempool: self_public_key: %q error: %s", options.Mempool.SelfPublicKey, err)
		}
		options.self = &pk
	}
	if options.Mempool.Expiry <= 0 {
		return nil, fmt.Errorf("Mempool: expiry: %d must be positive", options.Mempool.Expiry)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"trim":     options.Schedule.Trim,
		"snapshot": options.Schedule.Snapshot,
		"save":     options.Schedule.Save,
	} {
		if "" == spec {
			continue
		}
		if _, err := parser.Parse(spec); nil != err {
			return nil, fmt.Errorf("Schedule: %s: %q error: %s", name, spec, err)
		}
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Wot.Snapshot,
		&options.Gva.Certificate,
		&options.Gva.PrivateKey,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = configuration.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = configuration.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names
	mustNotBePaths := []*string{
		&options.Logging.File,
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f) {
		case "", ".":
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f)
		}
	}

	// create directories if they do not already exist
	for _, d := range []string{
		options.Database.Directory,
		options.Logging.Directory,
	} {
		if err := os.MkdirAll(d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

// directory of one of the two databases
func (c *Configuration) databasePath(name string) string {
	return filepath.Join(c.Database.Directory, name)
}

func validBackend(name string) bool {
	for _, n := range backends.Names() {
		if n == name {
			return true
		}
	}
	return false
}
