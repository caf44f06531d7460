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

// Package bitcoin provides the decoded transaction model and the script and
// signature helpers the consensus engine operates on. Types align with the
// Bitcoin Core getblock (verbosity=2) and getrawtransaction responses.
package bitcoin

// Block is a decoded block with fully decoded transactions
type Block struct {
	Hash              string        `json:"hash"`
	Height            int64         `json:"height"`
	Time              int64         `json:"time"`
	MedianTime        int64         `json:"mediantime"`
	PreviousBlockHash string        `json:"previousblockhash"`
	NextBlockHash     string        `json:"nextblockhash,omitempty"`
	NTx               int           `json:"nTx"`
	Tx                []Transaction `json:"tx"`
}

// Transaction is a decoded transaction
type Transaction struct {
	Txid     string `json:"txid"`
	Hash     string `json:"hash"`
	Version  int64  `json:"version"`
	Locktime uint64 `json:"locktime"`
	Vin      []Vin  `json:"vin"`
	Vout     []Vout `json:"vout"`
}

// Vin is a transaction input. Coinbase inputs carry the coinbase script and
// no previous outpoint.
type Vin struct {
	Txid        string     `json:"txid,omitempty"`
	Vout        uint32     `json:"vout"`
	ScriptSig   *ScriptSig `json:"scriptSig,omitempty"`
	TxInWitness []string   `json:"txinwitness,omitempty"`
	Sequence    uint64     `json:"sequence"`
	Coinbase    string     `json:"coinbase,omitempty"`
}

// IsCoinbase reports whether the input is a coinbase input
func (v Vin) IsCoinbase() bool {
	return v.Coinbase != ""
}

// ScriptSig is a decoded input script
type ScriptSig struct {
	Asm string `json:"asm"`
	Hex string `json:"hex"`
}

// Vout is a transaction output
type Vout struct {
	Value        float64      `json:"value"`
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// ScriptPubKey is a decoded output script. Older nodes return Addresses,
// newer ones return a single Address.
type ScriptPubKey struct {
	Asm       string   `json:"asm"`
	Hex       string   `json:"hex"`
	Type      string   `json:"type"`
	Address   string   `json:"address,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}
