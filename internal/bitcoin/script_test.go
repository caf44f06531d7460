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

package bitcoin_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"

	"github.com/btcsuite/btcd/chaincfg"
)

// opReturnScriptHex builds an OP_RETURN script carrying a single push of
// the given payload
func opReturnScriptHex(payload string) string {
	script := []byte{0x6a, byte(len(payload))}
	script = append(script, []byte(payload)...)
	return hex.EncodeToString(script)
}

const (
	// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG
	p2pkhScriptHex = "76a914" + "0102030405060708090a0b0c0d0e0f1011121314" + "88ac"
	// OP_0 <20 bytes>
	p2wpkhScriptHex = "0014" + "0102030405060708090a0b0c0d0e0f1011121314"
)

func TestIsOpReturn(t *testing.T) {
	testCases := []struct {
		spk      bitcoin.ScriptPubKey
		expected bool
	}{
		{bitcoin.ScriptPubKey{Type: "nulldata"}, true},
		{bitcoin.ScriptPubKey{Hex: opReturnScriptHex("test")}, true},
		{bitcoin.ScriptPubKey{Type: "pubkeyhash", Hex: p2pkhScriptHex}, false},
		{bitcoin.ScriptPubKey{Hex: p2wpkhScriptHex}, false},
	}
	for _, tc := range testCases {
		if got := bitcoin.IsOpReturn(tc.spk); got != tc.expected {
			t.Errorf(
				"IsOpReturn(type=%q hex=%q) = %v, expected %v",
				tc.spk.Type, tc.spk.Hex, got, tc.expected,
			)
		}
	}
}

func TestIsStandardOutput(t *testing.T) {
	if bitcoin.IsStandardOutput(bitcoin.ScriptPubKey{Hex: opReturnScriptHex("x")}) {
		t.Errorf("OP_RETURN should not be a standard output")
	}
	if !bitcoin.IsStandardOutput(bitcoin.ScriptPubKey{Hex: p2pkhScriptHex}) {
		t.Errorf("P2PKH should be a standard output")
	}
	if !bitcoin.IsStandardOutput(bitcoin.ScriptPubKey{Hex: p2wpkhScriptHex}) {
		t.Errorf("P2WPKH should be a standard output")
	}
	if bitcoin.IsStandardOutput(bitcoin.ScriptPubKey{Hex: "zz"}) {
		t.Errorf("undecodable script should not be a standard output")
	}
}

func TestOpReturnPayload(t *testing.T) {
	payload := `{"p":"brc-20","op":"mint","tick":"ORDI","amt":"1000"}`
	data, err := bitcoin.OpReturnPayload(opReturnScriptHex(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != payload {
		t.Errorf("expected payload %q, got %q", payload, string(data))
	}
}

func TestOpReturnPayloadNotOpReturn(t *testing.T) {
	if _, err := bitcoin.OpReturnPayload(p2pkhScriptHex); err == nil {
		t.Errorf("expected error for non-OP_RETURN script")
	}
}

func TestOutputAddressPrefersDecodedFields(t *testing.T) {
	vout := bitcoin.Vout{
		ScriptPubKey: bitcoin.ScriptPubKey{
			Type:      "pubkeyhash",
			Hex:       p2pkhScriptHex,
			Addresses: []string{"addr_from_list"},
			Address:   "addr_single",
		},
	}
	addr := bitcoin.OutputAddress(vout, &chaincfg.MainNetParams)
	if addr != "addr_from_list" {
		t.Errorf("expected addresses[0] to win, got %q", addr)
	}
	vout.ScriptPubKey.Addresses = nil
	addr = bitcoin.OutputAddress(vout, &chaincfg.MainNetParams)
	if addr != "addr_single" {
		t.Errorf("expected address field to win, got %q", addr)
	}
}

func TestOutputAddressFromScript(t *testing.T) {
	vout := bitcoin.Vout{
		ScriptPubKey: bitcoin.ScriptPubKey{
			Type: "pubkeyhash",
			Hex:  p2pkhScriptHex,
		},
	}
	addr := bitcoin.OutputAddress(vout, &chaincfg.MainNetParams)
	if addr == "" {
		t.Fatalf("expected address extraction from P2PKH script")
	}
	if !strings.HasPrefix(addr, "1") {
		t.Errorf("expected mainnet P2PKH address, got %q", addr)
	}
}

func TestOutputAddressOpReturn(t *testing.T) {
	vout := bitcoin.Vout{
		ScriptPubKey: bitcoin.ScriptPubKey{
			Type:    "nulldata",
			Hex:     opReturnScriptHex("x"),
			Address: "should_not_be_used",
		},
	}
	if addr := bitcoin.OutputAddress(vout, &chaincfg.MainNetParams); addr != "" {
		t.Errorf("expected no address for OP_RETURN, got %q", addr)
	}
}
