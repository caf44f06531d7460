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

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
)

// newMarketplaceTemplateHeight is the activation height of the revised
// marketplace template (first two inputs from the seller, both signed
// SINGLE|ANYONECANPAY)
const newMarketplaceTemplateHeight = 901350

// ClassifyTransferType classifies a transfer transaction. A transaction
// with no SIGHASH_SINGLE|ANYONECANPAY input is a simple transfer. One that
// has such an input must match the marketplace template active at the given
// height; the returned ValidationResult carries the first failing template
// check when it does not.
func (p *Processor) ClassifyTransferType(
	ctx context.Context,
	tx *bitcoin.Transaction,
	height int64,
) (common.TransferType, common.ValidationResult, error) {
	if !hasMarketplaceSighash(tx) {
		return common.TransferSimple, common.Valid(), nil
	}
	var result common.ValidationResult
	var err error
	if height < newMarketplaceTemplateHeight {
		result, err = p.validateEarlyMarketplaceTemplate(ctx, tx)
	} else {
		result, err = p.validateNewMarketplaceTemplate(ctx, tx)
	}
	if err != nil {
		return common.TransferSimple, common.ValidationResult{}, err
	}
	if result.IsValid {
		return common.TransferMarketplace, result, nil
	}
	return common.TransferInvalidMarketplace, result, nil
}

// hasMarketplaceSighash reports whether any input signature commits with
// SIGHASH_SINGLE | ANYONECANPAY
func hasMarketplaceSighash(tx *bitcoin.Transaction) bool {
	for _, vin := range tx.Vin {
		sig := bitcoin.ExtractSignature(vin)
		if sig != nil && bitcoin.IsSighashSingleAnyoneCanPay(sig) {
			return true
		}
	}
	return false
}

// validateEarlyMarketplaceTemplate checks the pre-activation template:
// at least 3 inputs, at least one SINGLE|ANYONECANPAY signature, and at
// least 3 distinct input addresses
func (p *Processor) validateEarlyMarketplaceTemplate(
	ctx context.Context,
	tx *bitcoin.Transaction,
) (common.ValidationResult, error) {
	if len(tx.Vin) < 3 {
		return common.Invalid(
			common.ErrInvalidMarketplaceTx,
			"early marketplace transaction must have at least 3 inputs",
		), nil
	}
	if !hasMarketplaceSighash(tx) {
		return common.Invalid(
			common.ErrInvalidSighashType,
			"no input with SIGHASH_SINGLE | ANYONECANPAY found",
		), nil
	}
	distinct, err := p.distinctInputAddresses(ctx, tx)
	if err != nil {
		return common.ValidationResult{}, err
	}
	if distinct < 3 {
		return common.Invalid(
			common.ErrInvalidMarketplaceTx,
			"early marketplace transaction must involve at least 3 different addresses",
		), nil
	}
	return common.Valid(), nil
}

// validateNewMarketplaceTemplate checks the post-activation template:
// at least 3 inputs, the first two inputs from the same address and both
// signed SINGLE|ANYONECANPAY, and at least 3 distinct input addresses
func (p *Processor) validateNewMarketplaceTemplate(
	ctx context.Context,
	tx *bitcoin.Transaction,
) (common.ValidationResult, error) {
	if len(tx.Vin) < 3 {
		return common.Invalid(
			common.ErrInvalidMarketplaceTx,
			"marketplace transaction must have at least 3 inputs",
		), nil
	}
	input0Addr, err := p.inputAddress(ctx, tx.Vin[0])
	if err != nil {
		return common.ValidationResult{}, err
	}
	input1Addr, err := p.inputAddress(ctx, tx.Vin[1])
	if err != nil {
		return common.ValidationResult{}, err
	}
	sig0 := bitcoin.ExtractSignature(tx.Vin[0])
	sig1 := bitcoin.ExtractSignature(tx.Vin[1])
	if sig0 == nil || !bitcoin.IsSighashSingleAnyoneCanPay(sig0) ||
		sig1 == nil || !bitcoin.IsSighashSingleAnyoneCanPay(sig1) {
		return common.Invalid(
			common.ErrInvalidSighashType,
			"first two inputs must use SIGHASH_SINGLE | ANYONECANPAY",
		), nil
	}
	if input0Addr == "" || input0Addr != input1Addr {
		return common.Invalid(
			common.ErrInvalidMarketplaceTx,
			"first two inputs must be from the same address",
		), nil
	}
	distinct, err := p.distinctInputAddresses(ctx, tx)
	if err != nil {
		return common.ValidationResult{}, err
	}
	if distinct < 3 {
		return common.Invalid(
			common.ErrInvalidMarketplaceTx,
			"marketplace transaction must involve at least 3 different addresses",
		), nil
	}
	return common.Valid(), nil
}

// inputAddress resolves the address controlling a single input
func (p *Processor) inputAddress(
	ctx context.Context,
	vin bitcoin.Vin,
) (string, error) {
	if vin.IsCoinbase() || vin.Txid == "" {
		return "", nil
	}
	return p.resolver.InputAddress(ctx, vin.Txid, vin.Vout)
}

// distinctInputAddresses counts the distinct resolvable addresses across
// all inputs
func (p *Processor) distinctInputAddresses(
	ctx context.Context,
	tx *bitcoin.Transaction,
) (int, error) {
	seen := make(map[string]struct{})
	for _, vin := range tx.Vin {
		addr, err := p.inputAddress(ctx, vin)
		if err != nil {
			return 0, err
		}
		if addr != "" {
			seen[addr] = struct{}{}
		}
	}
	return len(seen), nil
}
