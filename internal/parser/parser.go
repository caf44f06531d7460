// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parser locates BRC-20 envelopes inside transactions and decodes
// them into operations. A transaction yields no operation, exactly one
// operation, or an ordered list of transfer operations (multi-transfer).
package parser

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/GaloisField2718/simplicity-dev/internal/amounts"
	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
)

// OpReturn is an OP_RETURN output located within a transaction
type OpReturn struct {
	ScriptHex string
	VoutIndex int
}

// ExtractOpReturns collects all OP_RETURN outputs in ascending vout order
func ExtractOpReturns(tx *bitcoin.Transaction) []OpReturn {
	var ret []OpReturn
	for i, vout := range tx.Vout {
		if bitcoin.IsOpReturn(vout.ScriptPubKey) {
			ret = append(
				ret,
				OpReturn{
					ScriptHex: vout.ScriptPubKey.Hex,
					VoutIndex: i,
				},
			)
		}
	}
	return ret
}

// ExtractOpReturnData returns the first OP_RETURN output of a transaction,
// or ok=false when the transaction carries none
func ExtractOpReturnData(tx *bitcoin.Transaction) (OpReturn, bool) {
	opReturns := ExtractOpReturns(tx)
	if len(opReturns) == 0 {
		return OpReturn{}, false
	}
	return opReturns[0], true
}

// ExtractMultiTransferOpReturns returns all OP_RETURN outputs that decode as
// valid BRC-20 transfer operations. Two or more mark the transaction as a
// multi-transfer.
func ExtractMultiTransferOpReturns(tx *bitcoin.Transaction) []OpReturn {
	var ret []OpReturn
	for _, opReturn := range ExtractOpReturns(tx) {
		op, result := ParseOperation(opReturn.ScriptHex)
		if result.IsValid && op.Op == common.OpTransfer {
			ret = append(ret, opReturn)
		}
	}
	return ret
}

// ParseOperation decodes a BRC-20 envelope from an OP_RETURN script. A
// payload that is not valid UTF-8 JSON, or that does not carry
// "p": "brc-20", fails with INVALID_JSON and is presumed to belong to some
// other protocol. BRC-20-shaped payloads with bad structure fail with
// MISSING_FIELD, INVALID_OPERATION, or INVALID_AMOUNT.
func ParseOperation(scriptHex string) (*common.Operation, common.ValidationResult) {
	payload, err := bitcoin.OpReturnPayload(scriptHex)
	if err != nil || len(payload) == 0 {
		return nil, common.Invalid(
			common.ErrInvalidJson,
			"OP_RETURN carries no decodable payload",
		)
	}
	if !utf8.Valid(payload) {
		return nil, common.Invalid(
			common.ErrInvalidJson,
			"OP_RETURN payload is not valid UTF-8",
		)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, common.Invalid(
			common.ErrInvalidJson,
			"OP_RETURN payload is not a JSON object",
		)
	}
	if proto, _ := fields["p"].(string); proto != "brc-20" {
		return nil, common.Invalid(
			common.ErrInvalidJson,
			"payload protocol is not brc-20",
		)
	}
	opType, ok := fields["op"].(string)
	if !ok || opType == "" {
		return nil, common.Invalid(
			common.ErrMissingField,
			"missing required field: op",
		)
	}
	switch opType {
	case common.OpDeploy, common.OpMint, common.OpTransfer:
	default:
		return nil, common.Invalid(
			common.ErrInvalidOperation,
			"unknown operation type: %s",
			opType,
		)
	}
	tick, ok := fields["tick"].(string)
	if !ok || tick == "" {
		return nil, common.Invalid(
			common.ErrMissingField,
			"missing required field: tick",
		)
	}
	op := &common.Operation{
		Op:     opType,
		Tick:   tick,
		RawHex: scriptHex,
	}
	switch opType {
	case common.OpDeploy:
		maxSupply, ok := fields["m"].(string)
		if !ok || maxSupply == "" {
			return nil, common.Invalid(
				common.ErrMissingField,
				"missing required field: m",
			)
		}
		if !amounts.IsValid(maxSupply) {
			return nil, common.Invalid(
				common.ErrInvalidAmount,
				"invalid max supply: %s",
				maxSupply,
			)
		}
		op.Max = maxSupply
		if limitRaw, exists := fields["l"]; exists {
			limit, ok := limitRaw.(string)
			if !ok || !amounts.IsValid(limit) {
				return nil, common.Invalid(
					common.ErrInvalidAmount,
					"invalid mint limit: %v",
					limitRaw,
				)
			}
			op.Limit = limit
		}
	case common.OpMint, common.OpTransfer:
		amt, ok := fields["amt"].(string)
		if !ok || amt == "" {
			return nil, common.Invalid(
				common.ErrMissingField,
				"missing required field: amt",
			)
		}
		if !amounts.IsValid(amt) {
			return nil, common.Invalid(
				common.ErrInvalidAmount,
				"invalid amount: %s",
				amt,
			)
		}
		op.Amount = amt
	}
	return op, common.Valid()
}
