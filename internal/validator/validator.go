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

// Package validator implements the BRC-20 consensus rule checks. Checks are
// stateless given the committed state plus the current block's overlay;
// verdicts are ValidationResult values, and a non-nil error means the
// underlying store failed and the block must be aborted.
package validator

import (
	"github.com/GaloisField2718/simplicity-dev/internal/amounts"
	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/state"

	"github.com/btcsuite/btcd/chaincfg"
)

// ValidateDeploy checks ticker uniqueness (case-insensitive, against both
// the overlay and committed state) and that max supply and the optional
// per-op limit are positive amounts
func ValidateDeploy(
	op *common.Operation,
	overlay *state.Overlay,
) (common.ValidationResult, error) {
	ticker := common.NormalizeTicker(op.Tick)
	existing, err := overlay.Deploy(ticker)
	if err != nil {
		return common.ValidationResult{}, err
	}
	if existing != nil {
		return common.Invalid(
			common.ErrTickerAlreadyExists,
			"ticker %q already deployed",
			ticker,
		), nil
	}
	if !isPositiveAmount(op.Max) {
		return common.Invalid(
			common.ErrInvalidAmount,
			"invalid max supply: %s",
			op.Max,
		), nil
	}
	if op.Limit != "" && !isPositiveAmount(op.Limit) {
		return common.Invalid(
			common.ErrInvalidAmount,
			"invalid limit per operation: %s",
			op.Limit,
		), nil
	}
	return common.Valid(), nil
}

// ValidateMint checks that the ticker is deployed, the amount is valid and
// within the per-mint limit, and that minting would not push the cumulative
// total past max supply. The cumulative total reads the overlay first.
func ValidateMint(
	op *common.Operation,
	deploy *common.Deploy,
	overlay *state.Overlay,
) (common.ValidationResult, error) {
	if deploy == nil {
		return common.Invalid(
			common.ErrTickerNotDeployed,
			"ticker %q not deployed",
			common.NormalizeTicker(op.Tick),
		), nil
	}
	if !amounts.IsValid(op.Amount) {
		return common.Invalid(
			common.ErrInvalidAmount,
			"invalid mint amount: %s",
			op.Amount,
		), nil
	}
	if deploy.LimitPerOp != "" {
		over, err := amounts.Gt(op.Amount, deploy.LimitPerOp)
		if err != nil {
			return common.Invalid(
				common.ErrInvalidAmount,
				"amount calculation error: %s",
				err,
			), nil
		}
		if over {
			return common.Invalid(
				common.ErrExceedsMintLimit,
				"mint amount %s exceeds limit %s",
				op.Amount,
				deploy.LimitPerOp,
			), nil
		}
	}
	return validateMintOverflow(op, deploy, overlay)
}

// validateMintOverflow rejects a mint when current_minted + amt would exceed
// max supply
func validateMintOverflow(
	op *common.Operation,
	deploy *common.Deploy,
	overlay *state.Overlay,
) (common.ValidationResult, error) {
	currentMinted, err := overlay.TotalMinted(deploy.Ticker)
	if err != nil {
		return common.ValidationResult{}, err
	}
	proposed, err := amounts.Add(currentMinted, op.Amount)
	if err != nil {
		return common.Invalid(
			common.ErrInvalidAmount,
			"amount calculation error: %s",
			err,
		), nil
	}
	over, err := amounts.Gt(proposed, deploy.MaxSupply)
	if err != nil {
		return common.Invalid(
			common.ErrInvalidAmount,
			"amount calculation error: %s",
			err,
		), nil
	}
	if over {
		return common.Invalid(
			common.ErrExceedsMaxSupply,
			"mint would exceed max supply: current %s, mint %s, max %s",
			currentMinted,
			op.Amount,
			deploy.MaxSupply,
		), nil
	}
	return common.Valid(), nil
}

// ValidateTransfer checks that the ticker is deployed, the amount is valid,
// and the sender balance covers it. Transfers have no per-op limit check.
func ValidateTransfer(
	op *common.Operation,
	senderBalance string,
	deploy *common.Deploy,
) common.ValidationResult {
	if deploy == nil {
		return common.Invalid(
			common.ErrTickerNotDeployed,
			"ticker %q not deployed",
			common.NormalizeTicker(op.Tick),
		)
	}
	if !amounts.IsValid(op.Amount) {
		return common.Invalid(
			common.ErrInvalidAmount,
			"invalid transfer amount: %s",
			op.Amount,
		)
	}
	sufficient, err := amounts.Gte(senderBalance, op.Amount)
	if err != nil {
		return common.Invalid(
			common.ErrInvalidAmount,
			"amount calculation error: %s",
			err,
		)
	}
	if !sufficient {
		return common.Invalid(
			common.ErrInsufficientBalance,
			"insufficient balance: %s < %s",
			senderBalance,
			op.Amount,
		)
	}
	return common.Valid()
}

// ValidateOutputAddresses checks output requirements per operation type.
// Deploys may consist of only an OP_RETURN; mints and transfers need at
// least one standard output. There is no dust limit check.
func ValidateOutputAddresses(
	outputs []bitcoin.Vout,
	opType string,
) common.ValidationResult {
	if len(outputs) == 0 {
		return common.Invalid(
			common.ErrNoStandardOutput,
			"transaction has no outputs",
		)
	}
	if opType == common.OpDeploy {
		return common.Valid()
	}
	for _, out := range outputs {
		if !bitcoin.IsOpReturn(out.ScriptPubKey) {
			return common.Valid()
		}
	}
	return common.Invalid(
		common.ErrNoStandardOutput,
		"no standard outputs found in transaction",
	)
}

// RecipientAddress resolves the recipient of a mint or transfer: the output
// immediately after the first OP_RETURN. Returns an empty string when that
// slot is missing, is itself an OP_RETURN, or yields no address.
func RecipientAddress(outputs []bitcoin.Vout, params *chaincfg.Params) string {
	opReturnIdx := -1
	for i, out := range outputs {
		if bitcoin.IsOpReturn(out.ScriptPubKey) {
			opReturnIdx = i
			break
		}
	}
	if opReturnIdx < 0 || opReturnIdx+1 >= len(outputs) {
		return ""
	}
	next := outputs[opReturnIdx+1]
	if bitcoin.IsOpReturn(next.ScriptPubKey) {
		return ""
	}
	return bitcoin.OutputAddress(next, params)
}

// ValidateCompleteOperation runs all consensus rules for a parsed operation
// against the overlay state
func ValidateCompleteOperation(
	op *common.Operation,
	outputs []bitcoin.Vout,
	senderAddress string,
	overlay *state.Overlay,
	params *chaincfg.Params,
) (common.ValidationResult, error) {
	if result := ValidateOutputAddresses(outputs, op.Op); !result.IsValid {
		return result, nil
	}
	if op.Op == common.OpMint || op.Op == common.OpTransfer {
		if RecipientAddress(outputs, params) == "" {
			return common.Invalid(
				common.ErrNoStandardOutput,
				"no valid recipient found after OP_RETURN for %s operation",
				op.Op,
			), nil
		}
	}
	deploy, err := overlay.Deploy(op.Tick)
	if err != nil {
		return common.ValidationResult{}, err
	}
	switch op.Op {
	case common.OpDeploy:
		return ValidateDeploy(op, overlay)
	case common.OpMint:
		return ValidateMint(op, deploy, overlay)
	case common.OpTransfer:
		if senderAddress == "" {
			return common.Invalid(
				common.ErrInvalidAddress,
				"sender address required for transfer validation",
			), nil
		}
		senderBalance, err := overlay.Balance(senderAddress, op.Tick)
		if err != nil {
			return common.ValidationResult{}, err
		}
		return ValidateTransfer(op, senderBalance, deploy), nil
	}
	return common.Invalid(
		common.ErrInvalidOperation,
		"unknown operation type: %s",
		op.Op,
	), nil
}

func isPositiveAmount(s string) bool {
	amt, err := amounts.Parse(s)
	if err != nil {
		return false
	}
	return !amt.IsZero()
}
