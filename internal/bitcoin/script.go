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

package bitcoin

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// NetworkParams maps a network name to its chain parameters
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	}
	return nil, fmt.Errorf("unknown network name: %s", network)
}

// IsOpReturn reports whether an output script is an OP_RETURN (nulldata)
// script. Matches on the decoded type when present, falling back to the
// leading opcode byte.
func IsOpReturn(spk ScriptPubKey) bool {
	if spk.Type == "nulldata" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(spk.Hex), "6a")
}

// IsStandardOutput reports whether an output script is a non-OP_RETURN
// script of any class txscript recognizes (P2PKH, P2SH, P2WPKH, P2WSH, P2TR,
// bare pubkey, bare multisig, or an unknown witness version); nonstandard
// and undecodable scripts are not standard
func IsStandardOutput(spk ScriptPubKey) bool {
	if IsOpReturn(spk) {
		return false
	}
	script, err := hex.DecodeString(spk.Hex)
	if err != nil {
		return false
	}
	switch txscript.GetScriptClass(script) {
	case txscript.NonStandardTy, txscript.NullDataTy:
		return false
	}
	return true
}

// OpReturnPayload extracts the pushed payload bytes from an OP_RETURN
// script. Returns nil when the script carries no push.
func OpReturnPayload(scriptHex string) ([]byte, error) {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return nil, fmt.Errorf("invalid script hex: %w", err)
	}
	if len(script) == 0 || script[0] != txscript.OP_RETURN {
		return nil, fmt.Errorf("script is not an OP_RETURN")
	}
	pushes, err := txscript.PushedData(script)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script pushes: %w", err)
	}
	if len(pushes) == 0 {
		return nil, nil
	}
	return pushes[0], nil
}

// OutputAddress resolves the address controlling an output. It prefers the
// node-decoded addresses and falls back to extracting directly from the
// script for P2PKH/P2SH/P2WPKH/P2WSH/P2TR outputs. Returns an empty string
// when the output has no address form.
func OutputAddress(vout Vout, params *chaincfg.Params) string {
	spk := vout.ScriptPubKey
	if IsOpReturn(spk) {
		return ""
	}
	if len(spk.Addresses) > 0 {
		return spk.Addresses[0]
	}
	if spk.Address != "" {
		return spk.Address
	}
	script, err := hex.DecodeString(spk.Hex)
	if err != nil {
		return ""
	}
	addrs := ScriptAddresses(script, params)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].EncodeAddress()
}

// ScriptAddresses returns the addresses encoded in an output script, for
// P2PKH, P2SH, P2WPKH, P2WSH, and P2TR scripts
func ScriptAddresses(
	script []byte,
	params *chaincfg.Params,
) []btcutil.Address {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, params)
	if err != nil {
		return nil
	}
	return addrs
}
