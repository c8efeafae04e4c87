// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package certificate - TLS key pairs of the query frontend
package certificate

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/bitmark-inc/certgen"
	"github.com/bitmark-inc/logger"
	"golang.org/x/crypto/sha3"

	"github.com/uci-network/ucid/fault"
)

// self signed certificates are valid this long
const validity = 10 * 365 * 24 * time.Hour

// Get - load a PEM key pair and return a server TLS configuration
// with the SHA3-256 fingerprint of the certificate
func Get(log *logger.L, name string, certificateFile string, keyFile string) (*tls.Config, [32]byte, error) {
	var fin [32]byte

	keyPair, err := tls.LoadX509KeyPair(certificateFile, keyFile)
	if nil != err {
		log.Errorf("%s: failed to load keypair: %v", name, err)
		return nil, fin, err
	}

	tlsConfiguration := &tls.Config{
		Certificates: []tls.Certificate{
			keyPair,
		},
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"http/1.1"},
	}

	fin = Fingerprint(keyPair.Certificate[0])

	return tlsConfiguration, fin, nil
}

// Generate - write a new self signed key pair, existing files are
// never overwritten
func Generate(name string, certificateFile string, keyFile string, extraHosts []string) error {
	if exists(certificateFile) {
		return fault.CertificateFileExists
	}
	if exists(keyFile) {
		return fault.KeyFileExists
	}

	org := "ucid self signed cert for: " + name
	cert, key, err := certgen.NewTLSCertPair(org, time.Now().Add(validity), false, extraHosts)
	if nil != err {
		return err
	}

	if err := os.WriteFile(certificateFile, cert, 0o666); nil != err {
		return err
	}
	if err := os.WriteFile(keyFile, key, 0o600); nil != err {
		os.Remove(certificateFile)
		return err
	}
	return nil
}

// Fingerprint - SHA3-256 of a DER certificate
//
// openssl x509 -outform DER -in ucid.crt | sha3sum -a 256
func Fingerprint(certificate []byte) [32]byte {
	return sha3.Sum256(certificate)
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return nil == err
}
