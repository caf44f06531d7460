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

package state_test

import (
	"testing"

	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/state"
)

type memStore struct {
	deploys  map[string]*common.Deploy
	balances map[string]string
	minted   map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		deploys:  make(map[string]*common.Deploy),
		balances: make(map[string]string),
		minted:   make(map[string]string),
	}
}

func (m *memStore) GetDeploy(ticker string) (*common.Deploy, error) {
	return m.deploys[ticker], nil
}

func (m *memStore) GetBalance(address string, ticker string) (string, error) {
	return m.balances[address+"|"+ticker], nil
}

func (m *memStore) GetTotalMinted(ticker string) (string, error) {
	return m.minted[ticker], nil
}

func TestOverlayFallsThroughToStore(t *testing.T) {
	store := newMemStore()
	store.balances["addr_a|ORDI"] = "100"
	store.minted["ORDI"] = "1000"
	store.deploys["ORDI"] = &common.Deploy{Ticker: "ORDI", MaxSupply: "21000000"}

	overlay := state.New(store)
	balance, err := overlay.Balance("addr_a", "ordi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "100" {
		t.Errorf("expected balance 100, got %s", balance)
	}
	minted, err := overlay.TotalMinted("ordi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted != "1000" {
		t.Errorf("expected minted 1000, got %s", minted)
	}
	deploy, err := overlay.Deploy("ordi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deploy == nil || deploy.Ticker != "ORDI" {
		t.Errorf("expected ORDI deploy, got %+v", deploy)
	}
}

func TestOverlayMissingRowsReadAsZero(t *testing.T) {
	overlay := state.New(newMemStore())
	balance, err := overlay.Balance("addr_a", "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "0" {
		t.Errorf("expected 0 for missing balance, got %s", balance)
	}
	minted, err := overlay.TotalMinted("NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted != "0" {
		t.Errorf("expected 0 for missing mint total, got %s", minted)
	}
	deploy, err := overlay.Deploy("NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deploy != nil {
		t.Errorf("expected nil deploy, got %+v", deploy)
	}
}

func TestOverlayWritesShadowStore(t *testing.T) {
	store := newMemStore()
	store.balances["addr_a|ORDI"] = "100"
	overlay := state.New(store)
	overlay.SetBalance("addr_a", "ORDI", "40")
	balance, err := overlay.Balance("addr_a", "ORDI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "40" {
		t.Errorf("expected overlay balance 40, got %s", balance)
	}
	// The store itself is untouched
	if store.balances["addr_a|ORDI"] != "100" {
		t.Errorf("store balance mutated to %s", store.balances["addr_a|ORDI"])
	}
}

func TestOverlayForkIsolation(t *testing.T) {
	store := newMemStore()
	overlay := state.New(store)
	overlay.SetBalance("addr_a", "ORDI", "100")

	fork := overlay.Fork()
	fork.SetBalance("addr_a", "ORDI", "10")
	fork.SetBalance("addr_b", "ORDI", "90")

	balance, _ := overlay.Balance("addr_a", "ORDI")
	if balance != "100" {
		t.Errorf("fork write leaked into overlay: %s", balance)
	}

	overlay.MergeBalances(fork)
	balance, _ = overlay.Balance("addr_a", "ORDI")
	if balance != "10" {
		t.Errorf("expected merged balance 10, got %s", balance)
	}
	balance, _ = overlay.Balance("addr_b", "ORDI")
	if balance != "90" {
		t.Errorf("expected merged balance 90, got %s", balance)
	}
}

func TestOverlayOperationOrder(t *testing.T) {
	overlay := state.New(newMemStore())
	overlay.AppendOperation(common.OperationLog{Txid: "a"})
	overlay.AppendOperation(common.OperationLog{Txid: "b"})
	ops := overlay.Operations()
	if len(ops) != 2 || ops[0].Txid != "a" || ops[1].Txid != "b" {
		t.Errorf("operations out of order: %+v", ops)
	}
}
