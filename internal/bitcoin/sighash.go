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

	"github.com/btcsuite/btcd/txscript"
)

// sigHashMask isolates the base sighash type from its modifier flags
const sigHashMask = 0x1f

const (
	schnorrSigLen             = 64
	schnorrSigWithHashTypeLen = 65
)

// isDerSignature reports whether data looks like a DER-encoded ECDSA
// signature with a trailing hash type byte
func isDerSignature(data []byte) bool {
	// 0x30 <len> ... <hashtype>; shortest real signatures are ~9 bytes
	return len(data) > 8 && data[0] == 0x30
}

// ExtractSignature returns the signature bytes from an input, handling both
// segwit witnesses and legacy scriptSig pushes. Returns nil when the input
// carries no recognizable signature (including coinbase inputs).
func ExtractSignature(vin Vin) []byte {
	if vin.IsCoinbase() {
		return nil
	}
	for _, item := range vin.TxInWitness {
		data, err := hex.DecodeString(item)
		if err != nil {
			continue
		}
		if isDerSignature(data) {
			return data
		}
		// Taproot key-path spends carry a single Schnorr signature,
		// optionally with an explicit hash type byte
		if len(vin.TxInWitness) == 1 &&
			(len(data) == schnorrSigLen || len(data) == schnorrSigWithHashTypeLen) {
			return data
		}
	}
	if vin.ScriptSig != nil && vin.ScriptSig.Hex != "" {
		script, err := hex.DecodeString(vin.ScriptSig.Hex)
		if err != nil {
			return nil
		}
		pushes, err := txscript.PushedData(script)
		if err != nil {
			return nil
		}
		for _, push := range pushes {
			if isDerSignature(push) {
				return push
			}
		}
	}
	return nil
}

// SignatureHashType returns the sighash type byte of a signature, or 0 when
// the signature carries none (64-byte Schnorr signatures sign with the
// default type).
func SignatureHashType(sig []byte) txscript.SigHashType {
	if len(sig) == 0 {
		return 0
	}
	if isDerSignature(sig) || len(sig) == schnorrSigWithHashTypeLen {
		return txscript.SigHashType(sig[len(sig)-1])
	}
	return 0
}

// IsSighashSingleAnyoneCanPay reports whether a signature commits with
// SIGHASH_SINGLE | SIGHASH_ANYONECANPAY, the flag combination used by
// marketplace PSBT templates.
func IsSighashSingleAnyoneCanPay(sig []byte) bool {
	hashType := SignatureHashType(sig)
	if hashType&txscript.SigHashAnyOneCanPay == 0 {
		return false
	}
	return hashType&sigHashMask == txscript.SigHashSingle
}
