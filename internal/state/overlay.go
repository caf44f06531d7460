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

// Package state implements the block-scoped overlay: in-memory maps for
// balances, cumulative mint totals, and deploys layered over the persistent
// store. Reads fall through overlay to store; writes land only in the
// overlay. The caller commits the overlay atomically at the block boundary,
// so a partial block state is never visible.
package state

import (
	"github.com/GaloisField2718/simplicity-dev/internal/common"
)

// StoreReader is the read side of the persistent store the overlay falls
// through to. Tickers are passed in normalized (uppercase) form.
type StoreReader interface {
	GetDeploy(ticker string) (*common.Deploy, error)
	GetBalance(address string, ticker string) (string, error)
	GetTotalMinted(ticker string) (string, error)
}

// BalanceKey identifies a balance row
type BalanceKey struct {
	Address string
	Ticker  string
}

// Overlay is the intra-block intermediate state. It is owned by a single
// processor instance and is not safe for concurrent use.
type Overlay struct {
	store    StoreReader
	balances map[BalanceKey]string
	minted   map[string]string
	deploys  map[string]*common.Deploy
	ops      []common.OperationLog
}

// New creates an empty overlay over the given store
func New(store StoreReader) *Overlay {
	return &Overlay{
		store:    store,
		balances: make(map[BalanceKey]string),
		minted:   make(map[string]string),
		deploys:  make(map[string]*common.Deploy),
	}
}

// Balance returns the balance for (address, ticker), reading the overlay
// first and falling through to the store. Missing rows read as "0".
func (o *Overlay) Balance(address string, ticker string) (string, error) {
	key := BalanceKey{Address: address, Ticker: common.NormalizeTicker(ticker)}
	if balance, ok := o.balances[key]; ok {
		return balance, nil
	}
	balance, err := o.store.GetBalance(address, key.Ticker)
	if err != nil {
		return "", err
	}
	if balance == "" {
		balance = "0"
	}
	return balance, nil
}

// SetBalance stages a balance write in the overlay
func (o *Overlay) SetBalance(address string, ticker string, balance string) {
	key := BalanceKey{Address: address, Ticker: common.NormalizeTicker(ticker)}
	o.balances[key] = balance
}

// TotalMinted returns the cumulative minted amount for a ticker, reading
// the overlay first and falling through to the store
func (o *Overlay) TotalMinted(ticker string) (string, error) {
	normalized := common.NormalizeTicker(ticker)
	if minted, ok := o.minted[normalized]; ok {
		return minted, nil
	}
	minted, err := o.store.GetTotalMinted(normalized)
	if err != nil {
		return "", err
	}
	if minted == "" {
		minted = "0"
	}
	return minted, nil
}

// SetTotalMinted stages a cumulative mint total in the overlay
func (o *Overlay) SetTotalMinted(ticker string, total string) {
	o.minted[common.NormalizeTicker(ticker)] = total
}

// Deploy returns the deploy record for a ticker, reading the overlay first
// and falling through to the store. Returns nil when the ticker has no
// deploy.
func (o *Overlay) Deploy(ticker string) (*common.Deploy, error) {
	normalized := common.NormalizeTicker(ticker)
	if deploy, ok := o.deploys[normalized]; ok {
		return deploy, nil
	}
	return o.store.GetDeploy(normalized)
}

// PutDeploy stages a new deploy in the overlay
func (o *Overlay) PutDeploy(deploy *common.Deploy) {
	o.deploys[common.NormalizeTicker(deploy.Ticker)] = deploy
}

// AppendOperation appends an operation log entry. Entries are kept in the
// order they were appended, which is replay order.
func (o *Overlay) AppendOperation(op common.OperationLog) {
	o.ops = append(o.ops, op)
}

// Fork returns a copy of the overlay with independent balance, mint, and
// deploy maps, sharing the underlying store. Used to simulate multi-transfer
// steps without touching the live overlay.
func (o *Overlay) Fork() *Overlay {
	fork := New(o.store)
	for k, v := range o.balances {
		fork.balances[k] = v
	}
	for k, v := range o.minted {
		fork.minted[k] = v
	}
	for k, v := range o.deploys {
		fork.deploys[k] = v
	}
	return fork
}

// MergeBalances adopts the balance map of a fork after a successful
// simulation
func (o *Overlay) MergeBalances(fork *Overlay) {
	for k, v := range fork.balances {
		o.balances[k] = v
	}
}

// Balances returns the staged balance writes
func (o *Overlay) Balances() map[BalanceKey]string {
	return o.balances
}

// Minted returns the staged cumulative mint totals
func (o *Overlay) Minted() map[string]string {
	return o.minted
}

// Deploys returns the staged deploys
func (o *Overlay) Deploys() map[string]*common.Deploy {
	return o.deploys
}

// Operations returns the staged operation log entries in replay order
func (o *Overlay) Operations() []common.OperationLog {
	return o.ops
}
