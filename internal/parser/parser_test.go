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

package parser_test

import (
	"encoding/hex"
	"testing"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/parser"
)

func opReturnScriptHex(payload string) string {
	script := []byte{0x6a, byte(len(payload))}
	script = append(script, []byte(payload)...)
	return hex.EncodeToString(script)
}

func opReturnVout(payload string) bitcoin.Vout {
	return bitcoin.Vout{
		ScriptPubKey: bitcoin.ScriptPubKey{
			Type: "nulldata",
			Hex:  opReturnScriptHex(payload),
		},
	}
}

func standardVout(address string) bitcoin.Vout {
	return bitcoin.Vout{
		ScriptPubKey: bitcoin.ScriptPubKey{
			Type:    "witness_v0_keyhash",
			Hex:     "0014" + "0102030405060708090a0b0c0d0e0f1011121314",
			Address: address,
		},
	}
}

func TestParseOperationDeploy(t *testing.T) {
	script := opReturnScriptHex(
		`{"p":"brc-20","op":"deploy","tick":"ORDI","m":"21000000","l":"1000"}`,
	)
	op, result := parser.ParseOperation(script)
	if !result.IsValid {
		t.Fatalf("unexpected parse failure: %s", result.ErrorMessage)
	}
	if op.Op != common.OpDeploy {
		t.Errorf("expected deploy, got %s", op.Op)
	}
	if op.Tick != "ORDI" {
		t.Errorf("expected tick ORDI, got %s", op.Tick)
	}
	if op.Max != "21000000" || op.Limit != "1000" {
		t.Errorf("unexpected deploy amounts: m=%s l=%s", op.Max, op.Limit)
	}
}

func TestParseOperationMint(t *testing.T) {
	script := opReturnScriptHex(
		`{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`,
	)
	op, result := parser.ParseOperation(script)
	if !result.IsValid {
		t.Fatalf("unexpected parse failure: %s", result.ErrorMessage)
	}
	// Normalization is the caller's job
	if op.Tick != "ordi" {
		t.Errorf("expected raw tick ordi, got %s", op.Tick)
	}
	if op.Amount != "1000" {
		t.Errorf("expected amt 1000, got %s", op.Amount)
	}
}

func TestParseOperationFailures(t *testing.T) {
	testCases := []struct {
		name         string
		payload      string
		expectedCode string
	}{
		{"not json", "hello world", common.ErrInvalidJson},
		{"wrong protocol", `{"p":"src-20","op":"mint","tick":"A","amt":"1"}`, common.ErrInvalidJson},
		{"missing op", `{"p":"brc-20","tick":"A"}`, common.ErrMissingField},
		{"unknown op", `{"p":"brc-20","op":"burn","tick":"A"}`, common.ErrInvalidOperation},
		{"missing tick", `{"p":"brc-20","op":"mint","amt":"1"}`, common.ErrMissingField},
		{"empty tick", `{"p":"brc-20","op":"mint","tick":"","amt":"1"}`, common.ErrMissingField},
		{"missing max", `{"p":"brc-20","op":"deploy","tick":"A"}`, common.ErrMissingField},
		{"bad max", `{"p":"brc-20","op":"deploy","tick":"A","m":"x"}`, common.ErrInvalidAmount},
		{"bad limit", `{"p":"brc-20","op":"deploy","tick":"A","m":"10","l":"-1"}`, common.ErrInvalidAmount},
		{"numeric limit", `{"p":"brc-20","op":"deploy","tick":"A","m":"10","l":5}`, common.ErrInvalidAmount},
		{"missing amt", `{"p":"brc-20","op":"transfer","tick":"A"}`, common.ErrMissingField},
		{"bad amt", `{"p":"brc-20","op":"mint","tick":"A","amt":"1e5"}`, common.ErrInvalidAmount},
	}
	for _, tc := range testCases {
		op, result := parser.ParseOperation(opReturnScriptHex(tc.payload))
		if result.IsValid {
			t.Errorf("%s: expected failure, got op %+v", tc.name, op)
			continue
		}
		if result.ErrorCode != tc.expectedCode {
			t.Errorf(
				"%s: expected code %s, got %s (%s)",
				tc.name, tc.expectedCode, result.ErrorCode, result.ErrorMessage,
			)
		}
	}
}

func TestParseOperationTickerZero(t *testing.T) {
	// "0" is a legal ticker
	script := opReturnScriptHex(`{"p":"brc-20","op":"mint","tick":"0","amt":"1"}`)
	op, result := parser.ParseOperation(script)
	if !result.IsValid {
		t.Fatalf("unexpected parse failure: %s", result.ErrorMessage)
	}
	if op.Tick != "0" {
		t.Errorf("expected tick 0, got %s", op.Tick)
	}
}

func TestExtractOpReturns(t *testing.T) {
	tx := &bitcoin.Transaction{
		Txid: "tx1",
		Vout: []bitcoin.Vout{
			standardVout("addr_a"),
			opReturnVout(`{"p":"brc-20","op":"mint","tick":"A","amt":"1"}`),
			standardVout("addr_b"),
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"1"}`),
		},
	}
	opReturns := parser.ExtractOpReturns(tx)
	if len(opReturns) != 2 {
		t.Fatalf("expected 2 OP_RETURNs, got %d", len(opReturns))
	}
	if opReturns[0].VoutIndex != 1 || opReturns[1].VoutIndex != 3 {
		t.Errorf(
			"expected vout indexes 1 and 3, got %d and %d",
			opReturns[0].VoutIndex, opReturns[1].VoutIndex,
		)
	}
}

func TestExtractMultiTransferOpReturns(t *testing.T) {
	tx := &bitcoin.Transaction{
		Txid: "tx1",
		Vout: []bitcoin.Vout{
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"10"}`),
			standardVout("addr_a"),
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"20"}`),
			standardVout("addr_b"),
		},
	}
	ops := parser.ExtractMultiTransferOpReturns(tx)
	if len(ops) != 2 {
		t.Fatalf("expected 2 transfer OP_RETURNs, got %d", len(ops))
	}
	// A mint among the OP_RETURNs is not a transfer
	tx.Vout[2] = opReturnVout(`{"p":"brc-20","op":"mint","tick":"A","amt":"20"}`)
	ops = parser.ExtractMultiTransferOpReturns(tx)
	if len(ops) != 1 {
		t.Errorf("expected 1 transfer OP_RETURN, got %d", len(ops))
	}
}

func TestValidateMultiTransferStructure(t *testing.T) {
	tx := &bitcoin.Transaction{
		Txid: "tx1",
		Vout: []bitcoin.Vout{
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"10"}`),
			standardVout("addr_a"),
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"20"}`),
			standardVout("addr_b"),
		},
	}
	transferOps := parser.ExtractMultiTransferOpReturns(tx)
	if result := parser.ValidateMultiTransferStructure(tx, transferOps); !result.IsValid {
		t.Errorf("expected valid structure: %s", result.ErrorMessage)
	}
}

func TestValidateMultiTransferStructureNonTransfer(t *testing.T) {
	tx := &bitcoin.Transaction{
		Txid: "tx1",
		Vout: []bitcoin.Vout{
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"10"}`),
			standardVout("addr_a"),
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"20"}`),
			standardVout("addr_b"),
			opReturnVout(`{"p":"brc-20","op":"mint","tick":"A","amt":"5"}`),
			standardVout("addr_c"),
		},
	}
	transferOps := parser.ExtractMultiTransferOpReturns(tx)
	result := parser.ValidateMultiTransferStructure(tx, transferOps)
	if result.IsValid {
		t.Fatalf("expected structural failure for mixed operations")
	}
	if result.ErrorCode != common.ErrInvalidOperation {
		t.Errorf("expected INVALID_OPERATION, got %s", result.ErrorCode)
	}
}

func TestValidateMultiTransferStructureMissingDestination(t *testing.T) {
	// Second transfer's OP_RETURN is the last output: no destination slot
	tx := &bitcoin.Transaction{
		Txid: "tx1",
		Vout: []bitcoin.Vout{
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"10"}`),
			standardVout("addr_a"),
			opReturnVout(`{"p":"brc-20","op":"transfer","tick":"A","amt":"20"}`),
		},
	}
	transferOps := parser.ExtractMultiTransferOpReturns(tx)
	result := parser.ValidateMultiTransferStructure(tx, transferOps)
	if result.IsValid {
		t.Fatalf("expected structural failure for missing destination")
	}
	if result.ErrorCode != common.ErrNoStandardOutput {
		t.Errorf("expected NO_STANDARD_OUTPUT, got %s", result.ErrorCode)
	}
}

func TestValidateMultiTransferMeta(t *testing.T) {
	ops := []*common.Operation{
		{Op: common.OpTransfer, Tick: "A", Amount: "10"},
		{Op: common.OpTransfer, Tick: "a", Amount: "20.5"},
	}
	result, ticker, total := parser.ValidateMultiTransferMeta(ops)
	if !result.IsValid {
		t.Fatalf("unexpected meta failure: %s", result.ErrorMessage)
	}
	if ticker != "A" {
		t.Errorf("expected normalized ticker A, got %s", ticker)
	}
	if total != "30.5" {
		t.Errorf("expected total 30.5, got %s", total)
	}
}

func TestValidateMultiTransferMetaTickerMismatch(t *testing.T) {
	ops := []*common.Operation{
		{Op: common.OpTransfer, Tick: "A", Amount: "10"},
		{Op: common.OpTransfer, Tick: "B", Amount: "20"},
	}
	result, _, _ := parser.ValidateMultiTransferMeta(ops)
	if result.IsValid {
		t.Fatalf("expected meta failure for ticker mismatch")
	}
	if result.ErrorCode != common.ErrInvalidOperation {
		t.Errorf("expected INVALID_OPERATION, got %s", result.ErrorCode)
	}
}
