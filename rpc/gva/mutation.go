// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"github.com/graphql-go/graphql"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/transactionrecord"
)

// inputs allowed in one generated document
const maximumInputs = 40

func (s *Service) mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"tx": &graphql.Field{
				Type: graphql.NewNonNull(txType),
				Args: graphql.FieldConfigArgument{
					"rawTx": nonNullString(),
				},
				Resolve: s.sendTx,
			},
		},
	})
}

// Submit - hand a signed document to the mempool
func (s *Service) Submit(document string) (*transactionrecord.Transaction, error) {
	tx, err := transactionrecord.Parse(document)
	if nil != err {
		return nil, err
	}
	if err := ValidateComment(tx.Comment); nil != err {
		return nil, err
	}
	accepted, err := s.pool.AcceptNewTx(tx, s.self)
	if nil != err {
		return nil, err
	}
	if !accepted {
		return nil, fault.MempoolFull
	}
	return tx, nil
}

func (s *Service) sendTx(p graphql.ResolveParams) (interface{}, error) {
	raw, _ := p.Args["rawTx"].(string)
	tx, err := s.Submit(raw)
	if nil != err {
		s.log.Debugf("tx refused: %s", err)
		return nil, fail(err)
	}
	return txValue(tx), nil
}

// unsigned document paying amount from issuer to recipient, change
// goes back to the issuer
func (s *Service) genTx(p graphql.ResolveParams) (interface{}, error) {
	value, _ := p.Args["amount"].(int)
	if err := ValidateAmount(int64(value)); nil != err {
		return nil, fail(err)
	}
	comment, _ := p.Args["comment"].(string)
	if err := ValidateComment(comment); nil != err {
		return nil, fail(err)
	}
	issuer, err := pubkeyArgument(p.Args["issuer"])
	if nil != err {
		return nil, fail(err)
	}
	recipient, err := recipientScript(p.Args["recipient"])
	if nil != err {
		return nil, fail(err)
	}
	useMempool, _ := p.Args["useMempoolSources"].(bool)

	tx, err := s.generate(issuer, recipient, amount.New(int64(value), 0), comment, useMempool)
	if nil != err {
		return nil, fail(err)
	}
	return []interface{}{tx.SigningText()}, nil
}

func (s *Service) generate(issuer account.PublicKey, recipient *script.WalletScript, a amount.Amount, comment string, useMempool bool) (*transactionrecord.Transaction, error) {
	current, found, err := s.reader.CurrentBlock()
	if nil != err {
		return nil, err
	}
	if !found {
		return nil, fault.BlockNotFound
	}

	issuerScript := script.SingleSig(issuer).String()
	inputs, err := s.reader.FindInputs(a, issuerScript, useMempool)
	if nil != err {
		return nil, err
	}
	if !inputs.Enough(a) {
		return nil, fault.NotEnoughFunds
	}
	if len(inputs.Inputs) > maximumInputs {
		return nil, fault.TooManyItemsToProcess
	}

	unlocks := make([]transactionrecord.Unlock, len(inputs.Inputs))
	for i := range unlocks {
		unlocks[i] = transactionrecord.Unlock{Index: uint32(i), Proofs: []string{"SIG(0)"}}
	}
	outputs := []transactionrecord.Output{
		{Value: a.Value, Base: a.Base, Condition: recipient.String()},
	}
	change, err := inputs.Sum.Sub(a)
	if nil != err {
		return nil, err
	}
	if change.IsPositive() {
		outputs = append(outputs, transactionrecord.Output{Value: change.Value, Base: change.Base, Condition: issuerScript})
	}

	return &transactionrecord.Transaction{
		Version:    transactionrecord.CurrentVersion,
		Currency:   s.currency,
		Blockstamp: current.Blockstamp(),
		Issuers:    []account.PublicKey{issuer},
		Inputs:     inputs.Inputs,
		Unlocks:    unlocks,
		Outputs:    outputs,
		Comment:    comment,
	}, nil
}

// a base58 key becomes SIG(key), anything else must be a script
func recipientScript(value interface{}) (*script.WalletScript, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fault.MissingParameters
	}
	if pk, err := ValidatePubkey(text); nil == err {
		return script.SingleSig(pk), nil
	}
	ws, err := script.Parse(text)
	if nil != err {
		return nil, fault.InvalidScript
	}
	return ws, nil
}
