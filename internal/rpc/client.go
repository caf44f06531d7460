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

// Package rpc talks to a Bitcoin Core node over JSON-RPC. It provides the
// block source the indexer consumes and the UTXO resolver the processor
// uses for input addresses.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/config"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type Client struct {
	url        string
	user       string
	pass       string
	httpClient *http.Client
}

// NewClient creates a JSON-RPC client from the global config
func NewClient() *Client {
	cfg := config.GetConfig()
	return &Client{
		url:  cfg.Bitcoin.RpcUrl,
		user: cfg.Bitcoin.RpcUser,
		pass: cfg.Bitcoin.RpcPass,
		httpClient: &http.Client{
			Timeout: cfg.Bitcoin.RpcTimeout,
		},
	}
}

type rpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	Id      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// CallRPC performs a single JSON-RPC call against the node
func (c *Client) CallRPC(
	ctx context.Context,
	method string,
	params []any,
) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JsonRpc: "1.0",
		Id:      fmt.Sprintf("%s-%d", method, time.Now().UnixNano()),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf(
			"%s returned error %d: %s",
			method,
			rpcResp.Error.Code,
			rpcResp.Error.Message,
		)
	}
	return rpcResp.Result, nil
}

// GetBlockCount returns the current chain tip height
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	result, err := c.CallRPC(ctx, "getblockcount", []any{})
	if err != nil {
		return 0, err
	}
	var count int64
	if err := json.Unmarshal(result, &count); err != nil {
		return 0, fmt.Errorf("failed to decode getblockcount: %w", err)
	}
	return count, nil
}

// GetBlockHash returns the hash of the block at the given height
func (c *Client) GetBlockHash(ctx context.Context, height int64) (string, error) {
	result, err := c.CallRPC(ctx, "getblockhash", []any{height})
	if err != nil {
		return "", err
	}
	var hashStr string
	if err := json.Unmarshal(result, &hashStr); err != nil {
		return "", fmt.Errorf("failed to decode getblockhash: %w", err)
	}
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return "", fmt.Errorf("invalid block hash %q: %w", hashStr, err)
	}
	return hash.String(), nil
}

// GetBlock returns a block with fully decoded transactions (verbosity 2)
func (c *Client) GetBlock(ctx context.Context, hash string) (*bitcoin.Block, error) {
	result, err := c.CallRPC(ctx, "getblock", []any{hash, 2})
	if err != nil {
		return nil, err
	}
	var block bitcoin.Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("failed to decode getblock: %w", err)
	}
	return &block, nil
}

// GetRawTransaction returns a decoded transaction
func (c *Client) GetRawTransaction(
	ctx context.Context,
	txid string,
) (*bitcoin.Transaction, error) {
	result, err := c.CallRPC(ctx, "getrawtransaction", []any{txid, true})
	if err != nil {
		return nil, err
	}
	var tx bitcoin.Transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode getrawtransaction: %w", err)
	}
	return &tx, nil
}
