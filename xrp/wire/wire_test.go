// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wire

import (
	"encoding/json"
	"fmt"
	"testing"

	"xrplink.org/xrplink/xrp"
)

func TestAmountJSON(t *testing.T) {
	// Native amounts are drops strings.
	b, err := json.Marshal(XRPAmount(1_500_000))
	if err != nil {
		t.Fatalf("marshal native: %v", err)
	}
	if string(b) != `"1500000"` {
		t.Fatalf("native amount = %s", b)
	}
	var native Amount
	if err := json.Unmarshal(b, &native); err != nil {
		t.Fatalf("unmarshal native: %v", err)
	}
	if !native.Native || native.Drops != 1_500_000 {
		t.Fatalf("native round trip = %+v", native)
	}

	// Issued amounts are currency objects.
	iss := IssuedAmount("USD", "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B", "1.25")
	b, err = json.Marshal(iss)
	if err != nil {
		t.Fatalf("marshal issued: %v", err)
	}
	var got Amount
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal issued: %v", err)
	}
	if got != iss {
		t.Fatalf("issued round trip = %+v, want %+v", got, iss)
	}

	if _, err := XRPAmount(1).Float(); err != nil {
		t.Fatalf("native Float: %v", err)
	}
	v, err := iss.Float()
	if err != nil || v != 1.25 {
		t.Fatalf("issued Float = %v, %v", v, err)
	}
}

func TestAssetAmount(t *testing.T) {
	amt, err := AssetAmount(xrp.XRP, "2.5")
	if err != nil {
		t.Fatalf("AssetAmount XRP: %v", err)
	}
	if !amt.Native || amt.Drops != 2_500_000 {
		t.Fatalf("AssetAmount XRP = %+v", amt)
	}
	asset := xrp.Asset{Currency: "USD", Issuer: "rIssuer"}
	amt, err = AssetAmount(asset, "3.14")
	if err != nil {
		t.Fatalf("AssetAmount USD: %v", err)
	}
	if amt.Native || amt.Value != "3.14" || amt.Asset() != asset {
		t.Fatalf("AssetAmount USD = %+v", amt)
	}
}

func TestTextMemo(t *testing.T) {
	m := TextMemo("rent for march")
	if m.Memo.MemoData != "72656E7420666F72206D61726368" {
		t.Fatalf("memo data = %s", m.Memo.MemoData)
	}
	text, err := m.Text()
	if err != nil || text != "rent for march" {
		t.Fatalf("memo text = %q, %v", text, err)
	}
}

func TestBatchModes(t *testing.T) {
	tests := []struct {
		mode BatchMode
		name string
		flag uint32
	}{
		{Independent, "independent", 0x00080000},
		{AllOrNothing, "allornothing", 0x00010000},
		{UntilFailure, "untilfailure", 0x00040000},
	}
	for _, test := range tests {
		flag, err := test.mode.Flag()
		if err != nil {
			t.Fatalf("%s Flag error: %v", test.name, err)
		}
		if flag != test.flag {
			t.Fatalf("%s flag = %#x, want %#x", test.name, flag, test.flag)
		}
		if test.mode.String() != test.name {
			t.Fatalf("%s String = %s", test.name, test.mode.String())
		}
		parsed, err := ParseBatchMode(test.name)
		if err != nil || parsed != test.mode {
			t.Fatalf("ParseBatchMode(%s) = %v, %v", test.name, parsed, err)
		}
	}
	if _, err := BatchMode(99).Flag(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := ParseBatchMode("sometimes"); err == nil {
		t.Fatal("expected error for unknown mode name")
	}
}

func TestEngineResults(t *testing.T) {
	if !EngineSuccess("tesSUCCESS") {
		t.Fatal("tesSUCCESS not success")
	}
	for _, code := range []string{"tecPATH_DRY", "tefPAST_SEQ", "temBAD_FEE", "terQUEUED", ""} {
		if EngineSuccess(code) {
			t.Fatalf("%q reported success", code)
		}
	}
	if !EngineQueued("terQUEUED") || EngineQueued("tesSUCCESS") {
		t.Fatal("EngineQueued misclassified")
	}
}

func TestTxDataMetaSpellings(t *testing.T) {
	for _, key := range []string{"meta", "metaData"} {
		raw := `{"hash":"AB","validated":true,"` + key + `":{"TransactionResult":"tesSUCCESS","delivered_amount":"1000000"}}`
		var d TxData
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			t.Fatalf("unmarshal with %s: %v", key, err)
		}
		if d.Meta == nil || d.Meta.TransactionResult != "tesSUCCESS" {
			t.Fatalf("meta missing for key %s", key)
		}
		if d.Meta.DeliveredAmount == nil || d.Meta.DeliveredAmount.Drops != 1_000_000 {
			t.Fatalf("delivered amount missing for key %s", key)
		}
	}
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Name: "actNotFound", Code: 19, Message: "Account not found."}
	if !IsNotFound(err) {
		t.Fatal("actNotFound not classified as not-found")
	}
	if IsNotFound(&RPCError{Name: "invalidParams"}) {
		t.Fatal("invalidParams classified as not-found")
	}
	// Classification survives wrapping.
	if !IsNotFound(fmt.Errorf("account_info: %w", err)) {
		t.Fatal("wrapped actNotFound not classified as not-found")
	}
	if IsNotFound(fmt.Errorf("no rpc error here")) {
		t.Fatal("plain error classified as not-found")
	}
	if err.Error() == "" {
		t.Fatal("empty error string")
	}
}
