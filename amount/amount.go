// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package amount

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uci-network/ucid/fault"
)

// EncodedLength - bytes in the fixed binary form
const EncodedLength = 12

// Amount - monetary value: Value × 10^Base
//
// values are kept in canonical form: the smallest non-negative base
// for which the value fits in 64 bits, so equal amounts have equal
// bytes
type Amount struct {
	_     struct{} `cbor:",toarray"`
	Value int64    `json:"amount"`
	Base  int32    `json:"base"`
}

// Zero - the zero amount
var Zero = Amount{}

var (
	ten      = big.NewInt(10)
	maxInt64 = big.NewInt(math.MaxInt64)
	minInt64 = big.NewInt(math.MinInt64)
)

// New - create a canonical amount
func New(value int64, base int32) Amount {
	a, err := fromDecimal(decimal.New(value, base))
	if nil != err {
		// a 64 bit value at its own base always fits
		return Amount{Value: value, Base: base}
	}
	return a
}

// Decimal - arbitrary precision view of the amount
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Value, a.Base)
}

// IsZero - true for any zero value
func (a Amount) IsZero() bool {
	return 0 == a.Value
}

// IsNegative - true for a value below zero
func (a Amount) IsNegative() bool {
	return a.Value < 0
}

// IsPositive - true for a value above zero
func (a Amount) IsPositive() bool {
	return a.Value > 0
}

// Cmp - compare normalised values: -1, 0, +1
func (a Amount) Cmp(b Amount) int {
	return a.Decimal().Cmp(b.Decimal())
}

// Add - exact sum
func (a Amount) Add(b Amount) (Amount, error) {
	return fromDecimal(a.Decimal().Add(b.Decimal()))
}

// Sub - exact difference
func (a Amount) Sub(b Amount) (Amount, error) {
	return fromDecimal(a.Decimal().Sub(b.Decimal()))
}

// Neg - negated value
func (a Amount) Neg() Amount {
	return New(-a.Value, a.Base)
}

// Sum - exact total of a list of amounts
func Sum(amounts ...Amount) (Amount, error) {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Decimal())
	}
	return fromDecimal(total)
}

// convert a decimal to the canonical amount form
func fromDecimal(d decimal.Decimal) (Amount, error) {
	c := d.Coefficient()
	e := d.Exponent()

	if 0 == c.Sign() {
		return Zero, nil
	}

	// drop exact trailing zeros from a negative exponent
	r := new(big.Int)
	for e < 0 {
		q, m := new(big.Int).QuoRem(c, ten, r)
		if 0 != m.Sign() {
			return Zero, fault.InvalidAmount
		}
		c = q
		e += 1
	}

	// too large: move digits into the base while exact
	for c.Cmp(maxInt64) > 0 || c.Cmp(minInt64) < 0 {
		q, m := new(big.Int).QuoRem(c, ten, r)
		if 0 != m.Sign() {
			return Zero, fault.InvalidAmount
		}
		c = q
		e += 1
	}

	// lower the base as far as the value still fits
	for e > 0 {
		n := new(big.Int).Mul(c, ten)
		if n.Cmp(maxInt64) > 0 || n.Cmp(minInt64) < 0 {
			break
		}
		c = n
		e -= 1
	}

	return Amount{Value: c.Int64(), Base: e}, nil
}

// String - text form VALUE:BASE
func (a Amount) String() string {
	return strconv.FormatInt(a.Value, 10) + ":" + strconv.FormatInt(int64(a.Base), 10)
}

// Parse - read text form VALUE:BASE
func Parse(s string) (Amount, error) {
	parts := strings.Split(s, ":")
	if 2 != len(parts) {
		return Zero, fault.InvalidAmount
	}
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if nil != err {
		return Zero, fault.InvalidAmount
	}
	base, err := strconv.ParseInt(parts[1], 10, 32)
	if nil != err || base < 0 {
		return Zero, fault.InvalidAmount
	}
	return New(value, int32(base)), nil
}

// Format - for %v with a human readable decimal
func (a Amount) Format(f fmt.State, verb rune) {
	switch verb {
	case 'd':
		fmt.Fprint(f, a.Decimal().String())
	default:
		fmt.Fprint(f, a.String())
	}
}

// Bytes - fixed binary form: value(8) ∥ base(4), big endian
func (a Amount) Bytes() []byte {
	buffer := make([]byte, EncodedLength)
	binary.BigEndian.PutUint64(buffer[:8], uint64(a.Value))
	binary.BigEndian.PutUint32(buffer[8:], uint32(a.Base))
	return buffer
}

// FromBytes - decode the fixed binary form
func FromBytes(buffer []byte) (Amount, error) {
	if EncodedLength != len(buffer) {
		return Zero, fault.TruncatedValue
	}
	return Amount{
		Value: int64(binary.BigEndian.Uint64(buffer[:8])),
		Base:  int32(binary.BigEndian.Uint32(buffer[8:])),
	}, nil
}
