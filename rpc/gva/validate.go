// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"regexp"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/transactionrecord"
)

// base58 text of a 32 byte key
const (
	minimumPubkeyLength = 40
	maximumPubkeyLength = 44
)

var commentCharacters = regexp.MustCompile(`^[ a-zA-Z0-9\-_:/;*\[\]()?!^+=@&~#{}|\\<>%.]*$`)

// ValidatePubkey - decode base58 key text
func ValidatePubkey(s string) (account.PublicKey, error) {
	if len(s) < minimumPubkeyLength || len(s) > maximumPubkeyLength {
		return account.PublicKey{}, fault.InvalidPublicKeyLength
	}
	return account.PublicKeyFromBase58(s)
}

// ValidateComment - allowed characters and length
func ValidateComment(s string) error {
	if len(s) > transactionrecord.MaximumCommentLength {
		return fault.CommentTooLong
	}
	if !commentCharacters.MatchString(s) {
		return fault.InvalidComment
	}
	return nil
}

// ValidateAmount - strictly positive
func ValidateAmount(value int64) error {
	if value <= 0 {
		return fault.InvalidAmount
	}
	return nil
}
