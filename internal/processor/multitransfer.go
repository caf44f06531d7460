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

package processor

import (
	"context"
	"encoding/json"

	"github.com/GaloisField2718/simplicity-dev/internal/amounts"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/parser"
	"github.com/GaloisField2718/simplicity-dev/internal/state"
	"github.com/GaloisField2718/simplicity-dev/internal/validator"
)

// processMultiTransfer handles a transaction carrying two or more transfer
// OP_RETURNs. All steps succeed or fail as a unit: structural validation,
// then a total-balance pre-check, then a per-step simulation over a fork of
// the overlay; balances merge back only when every step passed. One log
// entry is appended per step, all sharing the same verdict.
func (p *Processor) processMultiTransfer(
	ctx context.Context,
	txCtx txContext,
	transferOps []parser.OpReturn,
	overlay *state.Overlay,
) (common.ProcessingResult, error) {
	result := common.ProcessingResult{
		Txid:           txCtx.tx.Txid,
		OperationFound: true,
		OperationType:  "multi_transfer",
	}
	parsedOps := make([]*common.Operation, 0, len(transferOps))
	for _, opReturn := range transferOps {
		// Already known to parse as valid transfers
		op, _ := parser.ParseOperation(opReturn.ScriptHex)
		op.Tick = common.NormalizeTicker(op.Tick)
		op.VoutIndex = opReturn.VoutIndex
		parsedOps = append(parsedOps, op)
	}

	if structure := parser.ValidateMultiTransferStructure(
		txCtx.tx,
		transferOps,
	); !structure.IsValid {
		p.logMultiTransferSteps(txCtx, parsedOps, structure, nil, "", overlay)
		return fillResult(result, structure), nil
	}

	meta, ticker, totalAmount := parser.ValidateMultiTransferMeta(parsedOps)
	if !meta.IsValid {
		p.logMultiTransferSteps(txCtx, parsedOps, meta, nil, "", overlay)
		return fillResult(result, meta), nil
	}
	result.Ticker = ticker
	result.Amount = totalAmount

	senderAddress, err := p.firstInputAddress(ctx, txCtx.tx)
	if err != nil {
		return result, err
	}
	deploy, err := overlay.Deploy(ticker)
	if err != nil {
		return result, err
	}
	senderBalance := "0"
	if senderAddress != "" {
		senderBalance, err = overlay.Balance(senderAddress, ticker)
		if err != nil {
			return result, err
		}
	}
	totalOp := &common.Operation{
		Op:     common.OpTransfer,
		Tick:   ticker,
		Amount: totalAmount,
	}
	totalCheck := validator.ValidateTransfer(totalOp, senderBalance, deploy)
	if !totalCheck.IsValid {
		totalCheck.ErrorCode = common.ErrMultiTransferTotal
		p.logMultiTransferSteps(
			txCtx,
			parsedOps,
			totalCheck,
			nil,
			senderAddress,
			overlay,
		)
		return fillResult(result, totalCheck), nil
	}

	// Simulate every step over a fork of the overlay; the fork is merged
	// back only when all steps pass
	fork := overlay.Fork()
	verdict := common.Valid()
	recipients := make([]string, len(parsedOps))
	for i, op := range parsedOps {
		recipient := validator.RecipientAddress(
			txCtx.tx.Vout[op.VoutIndex:],
			p.params,
		)
		recipients[i] = recipient
		if senderAddress == "" || recipient == "" {
			verdict = common.Invalid(
				common.ErrInvalidAddress,
				"unable to resolve recipient for transfer step %d",
				i,
			)
			break
		}
		stepBalance, err := fork.Balance(senderAddress, ticker)
		if err != nil {
			return result, err
		}
		stepCheck := validator.ValidateTransfer(op, stepBalance, deploy)
		if !stepCheck.IsValid {
			verdict = stepCheck
			break
		}
		debited, err := amounts.Subtract(stepBalance, op.Amount)
		if err != nil {
			return result, err
		}
		fork.SetBalance(senderAddress, ticker, debited)
		recipientBalance, err := fork.Balance(recipient, ticker)
		if err != nil {
			return result, err
		}
		credited, err := amounts.Add(recipientBalance, op.Amount)
		if err != nil {
			return result, err
		}
		fork.SetBalance(recipient, ticker, credited)
	}
	if verdict.IsValid {
		overlay.MergeBalances(fork)
	}
	p.logMultiTransferSteps(
		txCtx,
		parsedOps,
		verdict,
		recipients,
		senderAddress,
		overlay,
	)
	return fillResult(result, verdict), nil
}

// logMultiTransferSteps appends one operation log entry per transfer step,
// all carrying the shared verdict
func (p *Processor) logMultiTransferSteps(
	txCtx txContext,
	parsedOps []*common.Operation,
	verdict common.ValidationResult,
	recipients []string,
	senderAddress string,
	overlay *state.Overlay,
) {
	for i, op := range parsedOps {
		step := i
		toAddress := ""
		if recipients != nil && i < len(recipients) {
			toAddress = recipients[i]
		}
		parsedJson, _ := json.Marshal(op)
		overlay.AppendOperation(common.OperationLog{
			Txid:              txCtx.tx.Txid,
			VoutIndex:         op.VoutIndex,
			Operation:         common.OpTransfer,
			Ticker:            op.Tick,
			Amount:            op.Amount,
			FromAddress:       senderAddress,
			ToAddress:         toAddress,
			BlockHeight:       txCtx.height,
			BlockHash:         txCtx.blockHash,
			TxIndex:           txCtx.txIndex,
			Timestamp:         txCtx.timestamp,
			IsValid:           verdict.IsValid,
			ErrorCode:         verdict.ErrorCode,
			ErrorMessage:      verdict.ErrorMessage,
			RawOpReturn:       op.RawHex,
			ParsedJson:        string(parsedJson),
			IsMultiTransfer:   true,
			MultiTransferStep: &step,
		})
	}
}

// fillResult copies a verdict into a ProcessingResult
func fillResult(
	result common.ProcessingResult,
	verdict common.ValidationResult,
) common.ProcessingResult {
	result.IsValid = verdict.IsValid
	result.ErrorCode = verdict.ErrorCode
	result.ErrorMessage = verdict.ErrorMessage
	return result
}
