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

package parser

import (
	"github.com/GaloisField2718/simplicity-dev/internal/amounts"
	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
)

// ValidateMultiTransferStructure checks the structural rules for a
// transaction carrying multiple transfer OP_RETURNs:
//
//   - no non-transfer BRC-20 payload may appear among the OP_RETURNs
//   - every transfer's destination, the output immediately after its own
//     OP_RETURN, must exist and be a standard output
//
// A failure applies to the transaction as a whole.
func ValidateMultiTransferStructure(
	tx *bitcoin.Transaction,
	transferOps []OpReturn,
) common.ValidationResult {
	for _, opReturn := range ExtractOpReturns(tx) {
		op, result := ParseOperation(opReturn.ScriptHex)
		if !result.IsValid {
			// Foreign OP_RETURN payloads are tolerated; malformed BRC-20
			// payloads invalidate the whole transaction
			if result.ErrorCode == common.ErrInvalidJson {
				continue
			}
			return result
		}
		if op.Op != common.OpTransfer {
			return common.Invalid(
				common.ErrInvalidOperation,
				"non-transfer operation %q in multi-transfer transaction",
				op.Op,
			)
		}
	}
	for _, opReturn := range transferOps {
		destIdx := opReturn.VoutIndex + 1
		if destIdx >= len(tx.Vout) {
			return common.Invalid(
				common.ErrNoStandardOutput,
				"no destination output after OP_RETURN at vout %d",
				opReturn.VoutIndex,
			)
		}
		if !bitcoin.IsStandardOutput(tx.Vout[destIdx].ScriptPubKey) {
			return common.Invalid(
				common.ErrNoStandardOutput,
				"destination output %d is not a standard output",
				destIdx,
			)
		}
	}
	return common.Valid()
}

// ValidateMultiTransferMeta checks that all parsed transfers share a single
// ticker and sums their amounts. Returns the normalized ticker and the total
// on success.
func ValidateMultiTransferMeta(
	ops []*common.Operation,
) (common.ValidationResult, string, string) {
	if len(ops) == 0 {
		return common.Invalid(
			common.ErrInvalidOperation,
			"no transfer operations to validate",
		), "", ""
	}
	ticker := common.NormalizeTicker(ops[0].Tick)
	total := "0"
	for _, op := range ops {
		if common.NormalizeTicker(op.Tick) != ticker {
			return common.Invalid(
				common.ErrInvalidOperation,
				"multi-transfer operations must share a single ticker",
			), "", ""
		}
		var err error
		total, err = amounts.Add(total, op.Amount)
		if err != nil {
			return common.Invalid(
				common.ErrInvalidAmount,
				"amount calculation error: %s",
				err,
			), "", ""
		}
	}
	return common.Valid(), ticker, total
}
