// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package digest_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
)

func TestScanFmt(t *testing.T) {
	stringDigest := "00000000440B921E1B77C6C0487AE5616DE67F788F44AE2A5AF6E2194D16B6F8"

	var d digest.Hash
	n, err := fmt.Sscan(stringDigest, &d)
	assert.Nil(t, err, "hex to digest error")
	assert.Equal(t, 1, n, "scanned count")

	assert.Equal(t, byte(0x00), d[0], "first byte")
	assert.Equal(t, byte(0xf8), d[31], "last byte")

	assert.Equal(t, stringDigest, fmt.Sprintf("%s", d), "string form")
	assert.Equal(t, "<HASH:"+stringDigest+">", fmt.Sprintf("%#v", d), "go string form")
}

func TestSHA256(t *testing.T) {
	// printf '%s' 'hello world' | sha256sum
	d := digest.NewSHA256([]byte("hello world"))
	assert.Equal(t, "B94D27B9934D3E08A52E52D7DA7DABFAC484EFE37A5380EE9088F7ACE2EFCDE9", d.String())
}

func TestSHA3(t *testing.T) {
	// printf '%s' 'hello world' | sha3sum -a 256
	d := digest.NewSHA3([]byte("hello world"))
	assert.Equal(t, "644BCC7E564373040999AAC89E7622F3CA71FBA1D972FD94A31C3BFBF24E3938", d.String())
}

func TestJSON(t *testing.T) {
	d := digest.NewSHA256([]byte("json"))
	buffer, err := json.Marshal(d)
	assert.Nil(t, err)

	var back digest.Hash
	err = json.Unmarshal(buffer, &back)
	assert.Nil(t, err)
	assert.Equal(t, d, back)

	err = json.Unmarshal([]byte(`"ABCD"`), &back)
	assert.Equal(t, fault.InvalidDigest, err)
}

func TestFromBytes(t *testing.T) {
	var d digest.Hash
	assert.Equal(t, fault.InvalidDigest, digest.FromBytes(&d, []byte{1, 2, 3}))
	assert.Nil(t, digest.FromBytes(&d, make([]byte, digest.Length)))
	assert.True(t, d.IsZero())
}
