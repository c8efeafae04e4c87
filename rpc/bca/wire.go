// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bca

import (
	"encoding/binary"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
)

// MaximumFrameSize - largest accepted frame body
const MaximumFrameSize = 1 << 20

// ReadFrame - one u32 big endian length prefixed body, io.EOF at a
// clean end of stream
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); nil != err {
		if io.ErrUnexpectedEOF == err {
			return nil, fault.InvalidFrame
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaximumFrameSize {
		return nil, fault.InvalidFrame
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); nil != err {
		return nil, fault.InvalidFrame
	}
	return body, nil
}

// WriteFrame - prefix the body with its length
func WriteFrame(w io.Writer, body []byte) error {
	buffer := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(buffer, uint32(len(body)))
	_, err := w.Write(append(buffer, body...))
	return err
}

// request field numbers, the request type is the number of its
// field
const (
	requestID        protowire.Number = 1
	requestPubkeys   protowire.Number = 1
	requestScripts   protowire.Number = 1
	requestDocuments protowire.Number = 1
	requestAmount    protowire.Number = 2
)

// response field numbers
const (
	responseID         protowire.Number = 1
	responseError      protowire.Number = 2
	responseCount      protowire.Number = 3
	responseAmounts    protowire.Number = 4
	responseUd         protowire.Number = 5
	responseBlockstamp protowire.Number = 6
	responseUtxos      protowire.Number = 7
	responseTxResults  protowire.Number = 8
	responseIdentities protowire.Number = 9
	responsePong       protowire.Number = 10
)

// Marshal - protobuf encoding of a request
func (q *Request) Marshal() []byte {
	b := protowire.AppendTag(nil, requestID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(q.ID))

	var body []byte
	for _, pk := range q.Pubkeys {
		body = appendBytes(body, requestPubkeys, pk[:])
	}
	for _, s := range q.Scripts {
		body = appendBytes(body, requestScripts, []byte(s))
	}
	for _, d := range q.Documents {
		body = appendBytes(body, requestDocuments, []byte(d))
	}
	if 0 != q.Amount {
		body = protowire.AppendTag(body, requestAmount, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(q.Amount))
	}
	return appendBytes(b, protowire.Number(q.Type), body)
}

// UnmarshalRequest - decode a request, unknown fields are skipped
func UnmarshalRequest(b []byte) (*Request, error) {
	q := &Request{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case requestID == num && protowire.VarintType == typ:
			q.ID = uint32(n)
		case protowire.BytesType == typ && validType(RequestType(num)):
			q.Type = RequestType(num)
			return q.unmarshalBody(v)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	if !validType(q.Type) {
		return nil, fault.InvalidRequest
	}
	return q, nil
}

func (q *Request) unmarshalBody(b []byte) error {
	return fields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case protowire.BytesType == typ && 1 == num:
			switch q.Type {
			case BalancesOfPubkeys, FirstUtxosOfPubkeys, Identities:
				pk, err := account.PublicKeyFromBytes(v)
				if nil != err {
					return err
				}
				q.Pubkeys = append(q.Pubkeys, pk)
			case BalancesOfScripts:
				q.Scripts = append(q.Scripts, string(v))
			case SendTxs:
				q.Documents = append(q.Documents, string(v))
			}
		case requestAmount == num && protowire.VarintType == typ:
			q.Amount = uint32(n)
		}
		return nil
	})
}

// Marshal - protobuf encoding of a response
func (r *Response) Marshal() []byte {
	b := protowire.AppendTag(nil, responseID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.ID))

	if nil != r.Err {
		var e []byte
		e = appendBytes(e, 1, []byte(r.Err.Kind))
		e = appendBytes(e, 2, []byte(r.Err.Message))
		return appendBytes(b, responseError, e)
	}
	if nil != r.Count {
		b = protowire.AppendTag(b, responseCount, protowire.VarintType)
		b = protowire.AppendVarint(b, *r.Count)
	}
	if nil != r.Amounts {
		var l []byte
		for _, a := range r.Amounts {
			l = appendBytes(l, 1, marshalOptionalAmount(a))
		}
		b = appendBytes(b, responseAmounts, l)
	}
	if nil != r.Ud {
		b = appendBytes(b, responseUd, marshalAmount(*r.Ud))
	}
	if nil != r.Blockstamp {
		var s []byte
		s = protowire.AppendTag(s, 1, protowire.VarintType)
		s = protowire.AppendVarint(s, uint64(r.Blockstamp.Number))
		s = appendBytes(s, 2, r.Blockstamp.Hash[:])
		b = appendBytes(b, responseBlockstamp, s)
	}
	if nil != r.Utxos {
		var l []byte
		for _, utxos := range r.Utxos {
			var entry []byte
			for _, u := range utxos {
				var m []byte
				m = protowire.AppendTag(m, 1, protowire.VarintType)
				m = protowire.AppendVarint(m, uint64(u.BlockNumber))
				m = appendBytes(m, 2, u.TxHash[:])
				m = protowire.AppendTag(m, 3, protowire.VarintType)
				m = protowire.AppendVarint(m, uint64(u.OutputIndex))
				m = appendBytes(m, 4, marshalAmount(u.Amount))
				entry = appendBytes(entry, 1, m)
			}
			l = appendBytes(l, 1, entry)
		}
		b = appendBytes(b, responseUtxos, l)
	}
	if nil != r.TxResults {
		var l []byte
		for _, t := range r.TxResults {
			var m []byte
			m = appendBytes(m, 1, t.Hash[:])
			if "" != t.Error {
				m = appendBytes(m, 2, []byte(t.Error))
			}
			l = appendBytes(l, 1, m)
		}
		b = appendBytes(b, responseTxResults, l)
	}
	if nil != r.Identities {
		var l []byte
		for _, idty := range r.Identities {
			var m []byte
			if nil != idty {
				m = appendBytes(m, 1, []byte(idty.Username))
				m = protowire.AppendTag(m, 2, protowire.VarintType)
				m = protowire.AppendVarint(m, protowire.EncodeBool(idty.IsMember))
			}
			l = appendBytes(l, 1, m)
		}
		b = appendBytes(b, responseIdentities, l)
	}
	if r.Pong {
		b = protowire.AppendTag(b, responsePong, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// UnmarshalResponse - decode a response
func UnmarshalResponse(b []byte) (*Response, error) {
	r := &Response{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case responseID:
			r.ID = uint32(n)
		case responseError:
			r.Err = &Error{}
			return fields(v, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				switch num {
				case 1:
					r.Err.Kind = string(v)
				case 2:
					r.Err.Message = string(v)
				}
				return nil
			})
		case responseCount:
			count := n
			r.Count = &count
		case responseAmounts:
			r.Amounts = []*amount.Amount{}
			return fields(v, func(_ protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				a, present, err := unmarshalAmount(v)
				if nil != err {
					return err
				}
				if present {
					r.Amounts = append(r.Amounts, &a)
				} else {
					r.Amounts = append(r.Amounts, nil)
				}
				return nil
			})
		case responseUd:
			a, _, err := unmarshalAmount(v)
			if nil != err {
				return err
			}
			r.Ud = &a
		case responseBlockstamp:
			r.Blockstamp = &Blockstamp{}
			return fields(v, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
				switch num {
				case 1:
					r.Blockstamp.Number = uint32(n)
				case 2:
					return digest.FromBytes(&r.Blockstamp.Hash, v)
				}
				return nil
			})
		case responseUtxos:
			r.Utxos = [][]Utxo{}
			return fields(v, func(_ protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				utxos := []Utxo{}
				err := fields(v, func(_ protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
					u, err := unmarshalUtxo(v)
					utxos = append(utxos, u)
					return err
				})
				r.Utxos = append(r.Utxos, utxos)
				return err
			})
		case responseTxResults:
			r.TxResults = []TxResult{}
			return fields(v, func(_ protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				t := TxResult{}
				err := fields(v, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
					switch num {
					case 1:
						return digest.FromBytes(&t.Hash, v)
					case 2:
						t.Error = string(v)
					}
					return nil
				})
				r.TxResults = append(r.TxResults, t)
				return err
			})
		case responseIdentities:
			r.Identities = []*Identity{}
			return fields(v, func(_ protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				if 0 == len(v) {
					r.Identities = append(r.Identities, nil)
					return nil
				}
				idty := &Identity{}
				err := fields(v, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
					switch num {
					case 1:
						idty.Username = string(v)
					case 2:
						idty.IsMember = protowire.DecodeBool(n)
					}
					return nil
				})
				r.Identities = append(r.Identities, idty)
				return err
			})
		case responsePong:
			r.Pong = 0 != n
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return r, nil
}

func unmarshalUtxo(b []byte) (Utxo, error) {
	u := Utxo{}
	err := fields(b, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			u.BlockNumber = uint32(n)
		case 2:
			return digest.FromBytes(&u.TxHash, v)
		case 3:
			u.OutputIndex = uint32(n)
		case 4:
			a, _, err := unmarshalAmount(v)
			u.Amount = a
			return err
		}
		return nil
	})
	return u, err
}

// amount: 1 zigzag value, 2 zigzag base; an absent amount is an
// empty message
func marshalAmount(a amount.Amount) []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(a.Value))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(a.Base)))
}

func marshalOptionalAmount(a *amount.Amount) []byte {
	if nil == a {
		return []byte{}
	}
	return marshalAmount(*a)
}

func unmarshalAmount(b []byte) (amount.Amount, bool, error) {
	if 0 == len(b) {
		return amount.Zero, false, nil
	}
	var value int64
	var base int32
	err := fields(b, func(num protowire.Number, _ protowire.Type, _ []byte, n uint64) error {
		switch num {
		case 1:
			value = protowire.DecodeZigZag(n)
		case 2:
			base = int32(protowire.DecodeZigZag(n))
		}
		return nil
	})
	return amount.Amount{Value: value, Base: base}, true, err
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// walk the fields of a message, v is set for length delimited
// fields and n for varints
func fields(b []byte, f func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, length := protowire.ConsumeTag(b)
		if length < 0 {
			return fault.InvalidFrame
		}
		b = b[length:]

		var v []byte
		var n uint64
		switch typ {
		case protowire.VarintType:
			n, length = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, length = protowire.ConsumeBytes(b)
		default:
			length = protowire.ConsumeFieldValue(num, typ, b)
		}
		if length < 0 {
			return fault.InvalidFrame
		}
		b = b[length:]

		if err := f(num, typ, v, n); nil != err {
			return err
		}
	}
	return nil
}
