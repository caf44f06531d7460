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

package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"

	"github.com/btcsuite/btcd/chaincfg"
)

// UTXOResolver resolves previous outpoints to the addresses that controlled
// them, caching results. Safe for concurrent use.
type UTXOResolver struct {
	sync.RWMutex
	client *Client
	params *chaincfg.Params
	cache  map[string]string
}

// NewUTXOResolver creates a resolver backed by the given client
func NewUTXOResolver(client *Client, params *chaincfg.Params) *UTXOResolver {
	return &UTXOResolver{
		client: client,
		params: params,
		cache:  make(map[string]string),
	}
}

// InputAddress returns the address that controlled (txid, vout). An empty
// address with a nil error means the output has no address form.
func (r *UTXOResolver) InputAddress(
	ctx context.Context,
	txid string,
	vout uint32,
) (string, error) {
	key := fmt.Sprintf("%s:%d", txid, vout)
	r.RLock()
	address, ok := r.cache[key]
	r.RUnlock()
	if ok {
		return address, nil
	}
	tx, err := r.client.GetRawTransaction(ctx, txid)
	if err != nil {
		return "", fmt.Errorf("failed to resolve outpoint %s: %w", key, err)
	}
	if int(vout) >= len(tx.Vout) {
		return "", fmt.Errorf("outpoint %s has no such output", key)
	}
	address = bitcoin.OutputAddress(tx.Vout[vout], r.params)
	r.Lock()
	r.cache[key] = address
	r.Unlock()
	return address, nil
}
