// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/rpc"
	"github.com/uci-network/ucid/rpc/certificate"
)

// exit status when stop or status find no running daemon
const exitNotRunning = 4

// setup command handler
//
// commands that run to create key and certificate files these
// commands cannot access any internal database or states or the
// configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-tls-cert", "tls":
		certificateFilename := getFilenameWithDirectory(arguments, defaultCertificateFile)
		privateKeyFilename := getFilenameWithDirectory(arguments, defaultKeyFile)
		hosts := []string{}
		if len(arguments) >= 2 {
			hosts = arguments[1:]
		}
		err := certificate.Generate("gva", certificateFilename, privateKeyFilename, hosts)
		if nil != err {
			fmt.Printf("generate TLS key: %q and certificate: %q error: %s\n", privateKeyFilename, certificateFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated TLS key: %q and certificate: %q\n", privateKeyFilename, certificateFilename)

	case "start", "run":
		return false // continue processing

	case "config-test", "cfg", "endpoints", "stop", "status":
		return false // defer processing until configuration is read

	case "import-blocks", "import", "revert-to", "revert", "dump-wot", "wot":
		return false // defer processing until database is loaded

	case "version", "v":
		fmt.Printf("%s\n", version)
		return true

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version sting\n\n")

		fmt.Printf("  gen-tls-cert [DIR] [HOSTS...]  (tls) - create private key in:  %q\n", "DIR/"+defaultKeyFile)
		fmt.Printf("                                        and the certificate in: %q\n", "DIR/"+defaultCertificateFile)
		fmt.Printf("\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convienience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                (cfg)    - just check the configuration file\n")
		fmt.Printf("\n")

		fmt.Printf("  endpoints                           - display the advertised GVA endpoints\n")
		fmt.Printf("\n")

		fmt.Printf("  stop                                - send SIGTERM to the daemon in the pid file\n")
		fmt.Printf("  status                              - check the daemon in the pid file is running\n")
		fmt.Printf("                                        both exit with status %d if it is not\n", exitNotRunning)
		fmt.Printf("\n")

		fmt.Printf("  import-blocks FILE         (import) - apply a JSON-lines block file\n")
		fmt.Printf("                                        blocks already indexed are skipped\n")
		fmt.Printf("\n")

		fmt.Printf("  revert-to NUMBER FILE      (revert) - revert blocks above NUMBER, bodies read from FILE\n")
		fmt.Printf("\n")

		fmt.Printf("  dump-wot                   (wot)    - print the web of trust to stdout\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "config-test", "cfg":
		b, err := json.Marshal(options)
		if nil != err {
			exitwithstatus.Message("error: %s", err)
		}
		var out bytes.Buffer
		json.Indent(&out, b, "", "  ")
		out.WriteTo(os.Stdout)
		os.Stdout.WriteString("\n")

	case "endpoints":
		endpoints, err := rpc.Endpoints(&options.Gva)
		if nil != err {
			exitwithstatus.Message("error: %s", err)
		}
		for _, e := range endpoints {
			fmt.Println(e)
		}

	case "stop":
		pid, err := runningPid(options.PidFile)
		if nil != err {
			fmt.Printf("stop: %s\n", err)
			exitwithstatus.Exit(exitNotRunning)
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); nil != err {
			exitwithstatus.Message("stop: pid: %d  error: %s", pid, err)
		}
		fmt.Printf("sent SIGTERM to pid: %d\n", pid)

	case "status":
		pid, err := runningPid(options.PidFile)
		if nil != err {
			fmt.Printf("status: %s\n", err)
			exitwithstatus.Exit(exitNotRunning)
		}
		fmt.Printf("running with pid: %d\n", pid)

	default: // unknown commands fall through to data command
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// data command handler
// the databases and the WoT are open so these commands can access
// and/or change them
func processDataCommand(log *logger.L, arguments []string, n *node) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "import-blocks", "import":
		if len(arguments) < 1 || "" == arguments[0] {
			exitwithstatus.Message("missing file name argument")
		}
		applied, err := n.importBlocks(arguments[0])
		if nil != err {
			log.Criticalf("import: %q  error: %s", arguments[0], err)
			exitwithstatus.Message("import: %q  applied: %d  error: %s", arguments[0], applied, err)
		}
		fmt.Printf("applied: %d blocks\n", applied)

	case "revert-to", "revert":
		if len(arguments) < 2 {
			exitwithstatus.Message("missing block number or file name argument")
		}
		number, err := strconv.ParseUint(arguments[0], 10, 32)
		if nil != err {
			exitwithstatus.Message("error in block number: %s", err)
		}
		reverted, err := n.revertTo(uint32(number), arguments[1])
		if nil != err {
			log.Criticalf("revert to: %d  error: %s", number, err)
			exitwithstatus.Message("revert to: %d  error: %s", number, err)
		}
		fmt.Printf("reverted: %d blocks\n", reverted)

	case "dump-wot", "wot":
		if err := n.dumpGraph(os.Stdout); nil != err {
			exitwithstatus.Message("dump wot error: %s", err)
		}

	default:
		exitwithstatus.Message("error: no such command: %s", command)

	}

	// indicate processing complete and perform normal exit from main
	return true
}

// the pid of a live process recorded in the pid file
func runningPid(pidFile string) (int, error) {
	if "" == pidFile {
		return 0, fault.MissingParameters
	}
	data, err := os.ReadFile(pidFile)
	if os.IsNotExist(err) {
		return 0, fault.NotRunning
	}
	if nil != err {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if nil != err || pid <= 0 {
		return 0, fault.InvalidPidFile
	}
	if err := syscall.Kill(pid, 0); nil != err {
		return 0, fault.NotRunning
	}
	return pid, nil
}

func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}
