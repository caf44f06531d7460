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

// Package processor drives BRC-20 state transitions: it turns one Bitcoin
// transaction into zero or more operation log entries and staged balance
// mutations in the block overlay. Transactions within a block must be
// processed in tx_index order by a single goroutine per overlay.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GaloisField2718/simplicity-dev/internal/amounts"
	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/logging"
	"github.com/GaloisField2718/simplicity-dev/internal/parser"
	"github.com/GaloisField2718/simplicity-dev/internal/state"
	"github.com/GaloisField2718/simplicity-dev/internal/validator"

	"github.com/btcsuite/btcd/chaincfg"
)

// UTXOResolver maps a previous outpoint to the address that controlled it.
// An empty address with a nil error means the outpoint has no address form.
// Implementations must be safe for concurrent use.
type UTXOResolver interface {
	InputAddress(ctx context.Context, txid string, vout uint32) (string, error)
}

// Processor applies BRC-20 consensus rules to transactions
type Processor struct {
	resolver UTXOResolver
	params   *chaincfg.Params
	logger   *slog.Logger
}

// New creates a Processor for the given chain parameters
func New(resolver UTXOResolver, params *chaincfg.Params) *Processor {
	return &Processor{
		resolver: resolver,
		params:   params,
		logger:   logging.GetLogger().With("component", "processor"),
	}
}

// txContext carries the block position of the transaction being processed
type txContext struct {
	tx        *bitcoin.Transaction
	height    int64
	txIndex   int
	blockHash string
	timestamp time.Time
}

// ProcessTransaction processes one transaction against the block overlay.
// When two or more OP_RETURNs decode as transfers, one operation log entry
// is appended per transfer OP_RETURN and other OP_RETURNs are not logged.
// Otherwise only the first OP_RETURN is parsed and yields at most one entry;
// later OP_RETURNs of the transaction are not logged, whatever they carry.
// OP_RETURNs whose payload is not BRC-20 JSON produce none. A returned
// error is an infrastructure failure and aborts the block.
func (p *Processor) ProcessTransaction(
	ctx context.Context,
	tx *bitcoin.Transaction,
	height int64,
	txIndex int,
	timestamp time.Time,
	blockHash string,
	overlay *state.Overlay,
) (result common.ProcessingResult, err error) {
	result.Txid = tx.Txid
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(
				"unhandled panic while processing transaction",
				"txid", tx.Txid,
				"panic", r,
			)
			result.IsValid = false
			result.ErrorCode = common.ErrUnhandledException
			result.ErrorMessage = fmt.Sprint(r)
			err = nil
		}
	}()
	txCtx := txContext{
		tx:        tx,
		height:    height,
		txIndex:   txIndex,
		blockHash: blockHash,
		timestamp: timestamp,
	}
	multiOps := parser.ExtractMultiTransferOpReturns(tx)
	if len(multiOps) > 1 {
		return p.processMultiTransfer(ctx, txCtx, multiOps, overlay)
	}
	opReturn, found := parser.ExtractOpReturnData(tx)
	if !found {
		return result, nil
	}
	op, parseResult := parser.ParseOperation(opReturn.ScriptHex)
	if !parseResult.IsValid {
		// Malformed JSON is presumed to belong to another protocol and is
		// skipped without a log entry
		if parseResult.ErrorCode != common.ErrInvalidJson {
			overlay.AppendOperation(common.OperationLog{
				Txid:         tx.Txid,
				VoutIndex:    opReturn.VoutIndex,
				Operation:    common.OpInvalid,
				BlockHeight:  height,
				BlockHash:    blockHash,
				TxIndex:      txIndex,
				Timestamp:    timestamp,
				IsValid:      false,
				ErrorCode:    parseResult.ErrorCode,
				ErrorMessage: parseResult.ErrorMessage,
				RawOpReturn:  opReturn.ScriptHex,
			})
		}
		return result, nil
	}
	result.OperationFound = true
	op.Tick = common.NormalizeTicker(op.Tick)
	op.VoutIndex = opReturn.VoutIndex

	senderAddress, err := p.firstInputAddress(ctx, tx)
	if err != nil {
		return result, err
	}
	validationResult, err := validator.ValidateCompleteOperation(
		op,
		tx.Vout,
		senderAddress,
		overlay,
		p.params,
	)
	if err != nil {
		return result, err
	}
	isMarketplace := false
	if validationResult.IsValid {
		switch op.Op {
		case common.OpDeploy:
			p.processDeploy(op, txCtx, senderAddress, overlay)
		case common.OpMint:
			if err := p.processMint(op, tx.Vout, overlay); err != nil {
				return result, err
			}
		case common.OpTransfer:
			transferType, templateResult, cerr := p.ClassifyTransferType(
				ctx,
				tx,
				txCtx.height,
			)
			if cerr != nil {
				return result, cerr
			}
			switch transferType {
			case common.TransferMarketplace:
				isMarketplace = true
				fallthrough
			case common.TransferSimple:
				validationResult, err = p.processTransfer(
					op,
					tx.Vout,
					senderAddress,
					overlay,
				)
				if err != nil {
					return result, err
				}
			case common.TransferInvalidMarketplace:
				validationResult = templateResult
			}
		}
	}
	result.IsValid = validationResult.IsValid
	result.ErrorCode = validationResult.ErrorCode
	result.ErrorMessage = validationResult.ErrorMessage
	result.OperationType = op.Op
	result.Ticker = op.Tick
	result.Amount = op.Amount

	fromAddress, toAddress := "", ""
	switch op.Op {
	case common.OpDeploy:
		fromAddress = senderAddress
	case common.OpMint:
		toAddress = validator.RecipientAddress(tx.Vout, p.params)
	case common.OpTransfer:
		fromAddress = senderAddress
		toAddress = validator.RecipientAddress(tx.Vout, p.params)
	}
	parsedJson, _ := json.Marshal(op)
	overlay.AppendOperation(common.OperationLog{
		Txid:          tx.Txid,
		VoutIndex:     opReturn.VoutIndex,
		Operation:     op.Op,
		Ticker:        op.Tick,
		Amount:        op.Amount,
		FromAddress:   fromAddress,
		ToAddress:     toAddress,
		BlockHeight:   height,
		BlockHash:     blockHash,
		TxIndex:       txIndex,
		Timestamp:     timestamp,
		IsValid:       validationResult.IsValid,
		ErrorCode:     validationResult.ErrorCode,
		ErrorMessage:  validationResult.ErrorMessage,
		RawOpReturn:   opReturn.ScriptHex,
		ParsedJson:    string(parsedJson),
		IsMarketplace: isMarketplace,
	})
	return result, nil
}

// processDeploy stages a new deploy record in the overlay
func (p *Processor) processDeploy(
	op *common.Operation,
	txCtx txContext,
	senderAddress string,
	overlay *state.Overlay,
) {
	overlay.PutDeploy(&common.Deploy{
		Ticker:          op.Tick,
		MaxSupply:       op.Max,
		LimitPerOp:      op.Limit,
		DeployTxid:      txCtx.tx.Txid,
		DeployHeight:    txCtx.height,
		DeployTimestamp: txCtx.timestamp,
		DeployerAddress: senderAddress,
	})
}

// processMint stages the cumulative mint total and credits the recipient
func (p *Processor) processMint(
	op *common.Operation,
	outputs []bitcoin.Vout,
	overlay *state.Overlay,
) error {
	currentMinted, err := overlay.TotalMinted(op.Tick)
	if err != nil {
		return err
	}
	newMinted, err := amounts.Add(currentMinted, op.Amount)
	if err != nil {
		return fmt.Errorf("mint total overflow for %s: %w", op.Tick, err)
	}
	overlay.SetTotalMinted(op.Tick, newMinted)
	recipient := validator.RecipientAddress(outputs, p.params)
	if recipient != "" {
		return p.creditBalance(overlay, recipient, op.Tick, op.Amount)
	}
	return nil
}

// processTransfer debits the sender and credits the recipient. An
// unresolvable sender or recipient downgrades the verdict to
// INVALID_ADDRESS.
func (p *Processor) processTransfer(
	op *common.Operation,
	outputs []bitcoin.Vout,
	senderAddress string,
	overlay *state.Overlay,
) (common.ValidationResult, error) {
	recipientAddress := validator.RecipientAddress(outputs, p.params)
	if senderAddress == "" || recipientAddress == "" {
		return common.Invalid(
			common.ErrInvalidAddress,
			"unable to resolve sender or recipient",
		), nil
	}
	if err := p.debitBalance(overlay, senderAddress, op.Tick, op.Amount); err != nil {
		return common.ValidationResult{}, err
	}
	if err := p.creditBalance(overlay, recipientAddress, op.Tick, op.Amount); err != nil {
		return common.ValidationResult{}, err
	}
	return common.Valid(), nil
}

// creditBalance adds amount to the overlay balance for (address, ticker)
func (p *Processor) creditBalance(
	overlay *state.Overlay,
	address string,
	ticker string,
	amount string,
) error {
	current, err := overlay.Balance(address, ticker)
	if err != nil {
		return err
	}
	updated, err := amounts.Add(current, amount)
	if err != nil {
		return fmt.Errorf("balance overflow for %s/%s: %w", address, ticker, err)
	}
	overlay.SetBalance(address, ticker, updated)
	return nil
}

// debitBalance subtracts amount from the overlay balance. A negative result
// is unreachable after validation; hitting it means state corruption, so it
// panics into the UNHANDLED_EXCEPTION path.
func (p *Processor) debitBalance(
	overlay *state.Overlay,
	address string,
	ticker string,
	amount string,
) error {
	current, err := overlay.Balance(address, ticker)
	if err != nil {
		return err
	}
	updated, err := amounts.Subtract(current, amount)
	if err != nil {
		panic(fmt.Sprintf(
			"insufficient balance for %s/%s: %s - %s",
			address, ticker, current, amount,
		))
	}
	overlay.SetBalance(address, ticker, updated)
	return nil
}

// firstInputAddress resolves the address controlling input 0. Coinbase
// inputs have no prior UTXO and resolve to the empty string.
func (p *Processor) firstInputAddress(
	ctx context.Context,
	tx *bitcoin.Transaction,
) (string, error) {
	if len(tx.Vin) == 0 {
		return "", nil
	}
	first := tx.Vin[0]
	if first.IsCoinbase() || first.Txid == "" {
		return "", nil
	}
	return p.resolver.InputAddress(ctx, first.Txid, first.Vout)
}
