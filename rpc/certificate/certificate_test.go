// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package certificate_test

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/rpc/certificate"
)

func TestGenerateAndGet(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	dir := t.TempDir()
	cer := filepath.Join(dir, "ucid.crt")
	key := filepath.Join(dir, "ucid.key")

	err := certificate.Generate("test", cer, key, []string{"node.example.org"})
	require.NoError(t, err)

	tlsConfig, fingerprint, err := certificate.Get(logger.New(fixtures.LogCategory), "test", cer, key)
	require.NoError(t, err)

	pair, err := tls.LoadX509KeyPair(cer, key)
	require.NoError(t, err)

	assert.Equal(t, sha3.Sum256(pair.Certificate[0]), fingerprint, "wrong fingerprint")
	assert.Equal(t, pair.Certificate, tlsConfig.Certificates[0].Certificate, "wrong config")

	assert.Equal(t, fault.CertificateFileExists, certificate.Generate("test", cer, filepath.Join(dir, "other.key"), nil))
	assert.Equal(t, fault.KeyFileExists, certificate.Generate("test", filepath.Join(dir, "other.crt"), key, nil))
}

func TestGetMissing(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	dir := t.TempDir()
	_, _, err := certificate.Get(logger.New(fixtures.LogCategory), "test", filepath.Join(dir, "a.crt"), filepath.Join(dir, "a.key"))
	assert.Error(t, err)
}
