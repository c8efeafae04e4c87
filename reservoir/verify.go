// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// check a new transaction against the chain state and the pool
//
// an input is either an unspent output of the chain or of a pending
// transaction whose SIG conditions the issuers can meet, or an unspent
// dividend of one of the issuers; no other pending transaction may
// reserve it
func (r *Reservoir) verify(p *pool, t *transactionrecord.Transaction) error {
	for _, input := range t.Inputs {
		switch input.Kind {
		case transactionrecord.SourceUtxo:
			reserved, err := p.utxoRefs.Has(input.UtxoRef())
			if nil != err {
				return err
			}
			if reserved {
				return fault.DoubleSpend
			}
		case transactionrecord.SourceUd:
			reserved, err := p.udRefs.Has(input.UdRef())
			if nil != err {
				return err
			}
			if reserved {
				return fault.DoubleSpend
			}
		default:
			return fault.InvalidInput
		}
	}

	c := r.chain
	err := c.DB.Read(func(tx *storage.Tx) error {
		written, err := c.Txs.In(tx).Has(t.Hash)
		if nil != err {
			return err
		}
		if written {
			return fault.TransactionAlreadyExists
		}

		utxos := c.Utxos.In(tx)
		uds := c.Uds.In(tx)
		reval := c.UdsReval.In(tx)

		for _, input := range t.Inputs {
			var available amount.Amount
			var found bool
			var err error

			switch input.Kind {
			case transactionrecord.SourceUtxo:
				var condition string
				available, condition, found, err = utxoSource(p, utxos, input.UtxoRef())
				if nil == err && found && !signableBy(condition, t) {
					return fault.InvalidInput
				}
			case transactionrecord.SourceUd:
				ref := input.UdRef()
				if !isIssuer(t, ref.PublicKey) {
					return fault.InvalidInput
				}
				found, err = uds.Has(ref)
				if nil == err && found {
					var e storage.Entry[uint32, amount.Amount]
					e, found, err = reval.Iter(storage.RangeAll[uint32]().Through(ref.BlockNumber)).Reverse().First()
					available = e.Value
				}
			}
			if nil != err {
				return err
			}
			if !found {
				return fault.InputNotFound
			}
			if 0 != available.Cmp(input.Amount()) {
				return fault.InvalidInput
			}
		}
		return nil
	}, c.Txs, c.Uds, c.UdsReval, c.Utxos)
	if nil != err {
		return err
	}

	in, err := t.InputsTotal()
	if nil != err {
		return err
	}
	out, err := t.OutputsTotal()
	if nil != err {
		return err
	}
	if 0 != in.Cmp(out) {
		return fault.InputsOutputsMismatch
	}
	return nil
}

// amount and condition of an output, committed or still pending
func utxoSource(p *pool, utxos *storage.View[transactionrecord.UtxoRef, schema.UtxoValue], ref transactionrecord.UtxoRef) (amount.Amount, string, bool, error) {
	value, found, err := utxos.Get(ref)
	if nil != err || found {
		return value.Amount, value.Script, found, err
	}

	pending, found, err := p.txs.Get(ref.TxHash)
	if nil != err || !found {
		return amount.Zero, "", false, err
	}
	if ref.OutputIndex >= uint32(len(pending.Tx.Outputs)) {
		return amount.Zero, "", false, nil
	}
	output := pending.Tx.Outputs[ref.OutputIndex]
	return output.Amount(), output.Condition, true, nil
}

// the issuers must be able to sign for the output they spend
func signableBy(condition string, t *transactionrecord.Transaction) bool {
	ws, err := script.Parse(condition)
	if nil != err {
		return false
	}
	return ws.SignableBy(t.Issuers)
}

func isIssuer(t *transactionrecord.Transaction, pk account.PublicKey) bool {
	for _, issuer := range t.Issuers {
		if issuer == pk {
			return true
		}
	}
	return false
}
