// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// Utxo - an unspent output of a script
type Utxo struct {
	BlockNumber uint32        `json:"writtenBlock"`
	TxHash      digest.Hash   `json:"txHash"`
	OutputIndex uint32        `json:"outputIndex"`
	Amount      amount.Amount `json:"amount"`
}

// Cursor - N:HASH:IDX
func (u Utxo) Cursor() string {
	return cursor{number: u.BlockNumber, hash: u.TxHash, index: u.OutputIndex, hasHash: true, hasIdx: true}.String()
}

// Ref - the output
func (u Utxo) Ref() transactionrecord.UtxoRef {
	return transactionrecord.UtxoRef{TxHash: u.TxHash, OutputIndex: u.OutputIndex}
}

// UtxosPage - a page of outputs and their total
type UtxosPage struct {
	Paged[Utxo]
	Sum amount.Amount `json:"sum"`
}

// FindScriptUtxos - committed outputs of a script ordered by written
// block, outputs spent by pending transactions are skipped
func (r *Reader) FindScriptUtxos(text string, target *amount.Amount, page PageInfo) (UtxosPage, error) {
	canonical, err := canonicalScript(text)
	if nil != err {
		return UtxosPage{}, err
	}
	from, hasCursor, err := parseCursor(page.Cursor, 3)
	if nil != err {
		return UtxosPage{}, err
	}

	h := digest.NewSHA3([]byte(canonical))
	rng := storage.RangePrefix[schema.GvaUtxo](schema.ScriptPrefix(h))
	anchor := schema.GvaUtxo{ScriptHash: h, BlockNumber: from.number, TxHash: from.hash, OutputIndex: from.index}

	p := newPager[Utxo](page.PageSize)
	sum := amount.Zero
	hasPrevious := false

	err = r.chain.DB.Read(func(tx *storage.Tx) error {
		gva := r.chain.GvaUtxos.In(tx)

		it := gva.Iter(rng)
		switch {
		case hasCursor && page.Ascending:
			it = gva.Iter(rng.After(anchor))
			_, hasPrevious, err = gva.Iter(rng.Through(anchor)).First()
			if nil != err {
				return err
			}
		case hasCursor:
			it = gva.Iter(rng.Below(anchor)).Reverse()
		case !page.Ascending:
			it = it.Reverse()
		}

		return it.ForEach(func(key schema.GvaUtxo, a amount.Amount) (bool, error) {
			if nil != r.pool {
				reserved, err := r.pool.IsUtxoReserved(key.Ref())
				if nil != err {
					return false, err
				}
				if reserved {
					return true, nil
				}
			}
			u := Utxo{
				BlockNumber: key.BlockNumber,
				TxHash:      key.TxHash,
				OutputIndex: key.OutputIndex,
				Amount:      a,
			}
			if !p.add(u) {
				return false, nil
			}
			sum, err = sum.Add(a)
			if nil != err {
				return false, err
			}
			if nil != target && sum.Cmp(*target) >= 0 {
				p.stop()
			}
			return true, nil
		})
	}, r.chain.GvaUtxos)
	if nil != err {
		return UtxosPage{}, err
	}
	if !page.Ascending {
		hasPrevious = false
	}
	return UtxosPage{Paged: p.page(hasPrevious), Sum: sum}, nil
}

// Inputs - sources selected to pay an amount
type Inputs struct {
	Inputs []transactionrecord.Input `json:"inputs"`
	Sum    amount.Amount             `json:"sum"`
}

// Enough - true if the sum covers the amount
func (in Inputs) Enough(a amount.Amount) bool {
	return in.Sum.Cmp(a) >= 0
}

// FindInputs - choose sources of a script until their sum reaches
// the amount
//
// pending outputs come first when allowed, then the unspent
// dividends of a single signature script, then committed outputs in
// index order; the result may fall short of the amount
func (r *Reader) FindInputs(a amount.Amount, text string, useMempoolSources bool) (Inputs, error) {
	ws, err := script.Parse(text)
	if nil != err {
		return Inputs{}, err
	}
	canonical := ws.String()

	result := Inputs{Inputs: []transactionrecord.Input{}, Sum: amount.Zero}
	add := func(input transactionrecord.Input) error {
		sum, err := result.Sum.Add(input.Amount())
		if nil != err {
			return err
		}
		result.Sum = sum
		result.Inputs = append(result.Inputs, input)
		return nil
	}
	remaining := func() *amount.Amount {
		rest, _ := a.Sub(result.Sum)
		return &rest
	}

	if useMempoolSources && nil != r.pool {
		outputs, err := r.pool.OutputsByScript(canonical)
		if nil != err {
			return result, err
		}
		for _, o := range outputs {
			if result.Enough(a) {
				return result, nil
			}
			reserved, err := r.pool.IsUtxoReserved(o.Ref())
			if nil != err {
				return result, err
			}
			if reserved {
				continue
			}
			input := utxoInput(o.TxHash, o.OutputIndex, o.Amount)
			if err := add(input); nil != err {
				return result, err
			}
		}
	}

	if pk, ok := ws.SingleSig(); ok && !result.Enough(a) {
		exclude := map[uint32]struct{}{}
		if nil != r.pool {
			exclude, err = r.pool.ReservedUds(pk)
			if nil != err {
				return result, err
			}
		}
		uds, err := r.UnspentUdsOf(pk, AllAscending, exclude, remaining())
		if nil != err {
			return result, err
		}
		for _, ud := range uds.Data {
			input := transactionrecord.Input{
				Value:       ud.Amount.Value,
				Base:        ud.Amount.Base,
				Kind:        transactionrecord.SourceUd,
				PublicKey:   pk,
				BlockNumber: ud.BlockNumber,
			}
			if err := add(input); nil != err {
				return result, err
			}
		}
	}

	if !result.Enough(a) {
		utxos, err := r.FindScriptUtxos(canonical, remaining(), AllAscending)
		if nil != err {
			return result, err
		}
		for _, u := range utxos.Data {
			if err := add(utxoInput(u.TxHash, u.OutputIndex, u.Amount)); nil != err {
				return result, err
			}
		}
	}
	return result, nil
}

func utxoInput(hash digest.Hash, index uint32, a amount.Amount) transactionrecord.Input {
	return transactionrecord.Input{
		Value:       a.Value,
		Base:        a.Base,
		Kind:        transactionrecord.SourceUtxo,
		TxHash:      hash,
		OutputIndex: index,
	}
}
