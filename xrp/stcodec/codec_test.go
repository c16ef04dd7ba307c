// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package stcodec

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

func testAddr(t *testing.T, fill byte) (string, string) {
	t.Helper()
	id := bytes.Repeat([]byte{fill}, 20)
	addr, err := xrp.EncodeAddress(id)
	if err != nil {
		t.Fatalf("EncodeAddress: %v", err)
	}
	return addr, strings.ToUpper(hex.EncodeToString(id))
}

func TestSerializePayment(t *testing.T) {
	src, srcHex := testAddr(t, 0x11)
	dst, dstHex := testAddr(t, 0x22)

	tx := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         src,
		Destination:     dst,
		Amount:          wire.XRPAmount(1_000_000),
		Sequence:        1,
		Fee:             "10",
	}

	b, err := Serialize(tx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	want := "120000" + // TransactionType: Payment
		"2400000001" + // Sequence
		"6140000000000F4240" + // Amount: 1 XRP
		"68400000000000000A" + // Fee: 10 drops
		"7300" + // SigningPubKey: empty
		"8114" + srcHex + // Account
		"8314" + dstHex // Destination
	if got := strings.ToUpper(hex.EncodeToString(b)); got != want {
		t.Fatalf("serialized\ngot:  %s\nwant: %s", got, want)
	}
}

func TestSerializeForSigningOmitsSignature(t *testing.T) {
	src, _ := testAddr(t, 0x11)
	dst, _ := testAddr(t, 0x22)
	unsigned := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         src,
		Destination:     dst,
		Amount:          wire.XRPAmount(42),
		Sequence:        7,
		Fee:             "12",
		SigningPubKey:   "ED" + strings.Repeat("00", 32),
	}
	signed := *unsigned
	signed.TxnSignature = strings.Repeat("AB", 64)

	unsignedBlob, err := SerializeForSigning(unsigned)
	if err != nil {
		t.Fatalf("SerializeForSigning unsigned: %v", err)
	}
	signingBlob, err := SerializeForSigning(&signed)
	if err != nil {
		t.Fatalf("SerializeForSigning signed: %v", err)
	}
	if !bytes.Equal(unsignedBlob, signingBlob) {
		t.Fatal("signing serialization differs when TxnSignature is present")
	}
	fullBlob, err := Serialize(&signed)
	if err != nil {
		t.Fatalf("Serialize signed: %v", err)
	}
	if bytes.Equal(fullBlob, signingBlob) {
		t.Fatal("full serialization dropped the signature")
	}
}

func TestSerializeEscrowCreate(t *testing.T) {
	src, srcHex := testAddr(t, 0x33)
	dst, dstHex := testAddr(t, 0x44)
	tx := &wire.EscrowCreate{
		TransactionType: wire.TxTypeEscrowCreate,
		Account:         src,
		Destination:     dst,
		Amount:          wire.XRPAmount(1_000_000),
		Condition:       "AA",
		FinishAfter:     1,
		CancelAfter:     2,
		Sequence:        5,
		Fee:             "10",
	}
	b, err := Serialize(tx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := "120001" + // TransactionType: EscrowCreate
		"2400000005" + // Sequence
		"202400000002" + // CancelAfter (field code 36)
		"202500000001" + // FinishAfter (field code 37)
		"6140000000000F4240" + // Amount
		"68400000000000000A" + // Fee
		"7300" + // SigningPubKey
		"701101AA" + // Condition (field code 17)
		"8114" + srcHex +
		"8314" + dstHex
	if got := strings.ToUpper(hex.EncodeToString(b)); got != want {
		t.Fatalf("serialized\ngot:  %s\nwant: %s", got, want)
	}
}

func TestSerializeMemos(t *testing.T) {
	src, _ := testAddr(t, 0x11)
	dst, _ := testAddr(t, 0x22)
	tx := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         src,
		Destination:     dst,
		Amount:          wire.XRPAmount(1),
		Memos:           []wire.MemoWrapper{{Memo: wire.Memo{MemoData: "AB"}}},
	}
	b, err := Serialize(tx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	// Memos array: F9, Memo object: EA, MemoData: 7D 01 AB, object end E1,
	// array end F1.
	want := "F9EA7D01ABE1F1"
	if got := strings.ToUpper(hex.EncodeToString(b)); !strings.HasSuffix(got, want) {
		t.Fatalf("serialized %s does not end with memo encoding %s", got, want)
	}
}

func TestSerializeBatchOrdering(t *testing.T) {
	src, _ := testAddr(t, 0x55)
	dst, _ := testAddr(t, 0x66)
	inner := func(seq uint32) wire.RawTransaction {
		return wire.RawTransaction{RawTransaction: &wire.Payment{
			TransactionType: wire.TxTypePayment,
			Account:         src,
			Destination:     dst,
			Amount:          wire.XRPAmount(5),
			Sequence:        seq,
			Fee:             "0",
			Flags:           wire.TfInnerBatchTxn,
		}}
	}
	tx := &wire.Batch{
		TransactionType: wire.TxTypeBatch,
		Account:         src,
		Flags:           wire.TfAllOrNothing,
		RawTransactions: []wire.RawTransaction{inner(11), inner(12)},
		Sequence:        10,
		Fee:             "30",
	}
	b, err := Serialize(tx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got := strings.ToUpper(hex.EncodeToString(b))
	if !strings.HasPrefix(got, "120047"+"2200010000"+"240000000A") {
		t.Fatalf("unexpected outer field order: %s", got)
	}
	// The RawTransactions array sorts last and holds both inner objects.
	if !strings.HasSuffix(got, "F1") {
		t.Fatalf("missing array end marker: %s", got)
	}
	if n := strings.Count(got, "E01B"); n != 2 { // RawTransaction field header
		t.Fatalf("expected 2 RawTransaction objects, found %d", n)
	}
	if n := strings.Count(got, "E1"); n < 2 { // object end markers
		t.Fatalf("expected 2 object end markers, found %d", n)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	src, _ := testAddr(t, 0x11)
	dst, _ := testAddr(t, 0x22)
	m := map[string]any{
		"TransactionType": "Payment",
		"Account":         src,
		"Destination":     dst,
		"Amount":          "123",
		"Sequence":        float64(9),
	}
	first, err := Serialize(m)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Serialize(m)
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("serialization is not deterministic")
		}
	}
	h, err := SerializedHex(m)
	if err != nil {
		t.Fatalf("SerializedHex: %v", err)
	}
	if h != strings.ToUpper(hex.EncodeToString(first)) {
		t.Fatalf("SerializedHex mismatch: %s", h)
	}
}

func TestSerializeUnknownField(t *testing.T) {
	_, err := Serialize(map[string]any{"NotAField": 1})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestIssuedValueEncoding(t *testing.T) {
	tests := []struct {
		value   string
		want    uint64
		wantErr bool
	}{
		{value: "1", want: 0xD4838D7EA4C68000},
		{value: "-1", want: 0x94838D7EA4C68000},
		{value: "0", want: 0x8000000000000000},
		{value: "0.00", want: 0x8000000000000000},
		{value: "1.00", want: 0xD4838D7EA4C68000}, // trailing zeros normalize away
		{value: "", wantErr: true},
		{value: "1.2.3", wantErr: true},
		{value: "12345678901234567", wantErr: true}, // 17 significant digits
	}
	for _, test := range tests {
		bits, err := encodeIssuedValue(test.value)
		if (err != nil) != test.wantErr {
			t.Fatalf("encodeIssuedValue(%q) error = %v, wantErr %t", test.value, err, test.wantErr)
		}
		if err == nil && bits != test.want {
			t.Fatalf("encodeIssuedValue(%q) = %#x, want %#x", test.value, bits, test.want)
		}
	}
}

func TestIssuedAmountEncoding(t *testing.T) {
	issuer, issuerHex := testAddr(t, 0x77)
	b, err := encodeIssuedAmount("USD", issuer, "1")
	if err != nil {
		t.Fatalf("encodeIssuedAmount: %v", err)
	}
	want := "D4838D7EA4C68000" +
		"000000000000000000000000" + "555344" + "0000000000" + // currency USD
		issuerHex
	if got := strings.ToUpper(hex.EncodeToString(b)); got != want {
		t.Fatalf("issued amount\ngot:  %s\nwant: %s", got, want)
	}
	if _, err := encodeIssuedAmount("XRP", issuer, "1"); err == nil {
		t.Fatal("XRP accepted as issued currency")
	}
	if _, err := encodeIssuedAmount("TOOLONG", issuer, "1"); err == nil {
		t.Fatal("bad currency code accepted")
	}
}

func TestVLEncoding(t *testing.T) {
	var buf bytes.Buffer
	writeVL(&buf, bytes.Repeat([]byte{0x01}, 192))
	if buf.Bytes()[0] != 192 {
		t.Fatalf("single-byte VL prefix = %#x", buf.Bytes()[0])
	}
	buf.Reset()
	writeVL(&buf, bytes.Repeat([]byte{0x01}, 193))
	if buf.Bytes()[0] != 193 || buf.Bytes()[1] != 0 {
		t.Fatalf("two-byte VL prefix = %#x %#x", buf.Bytes()[0], buf.Bytes()[1])
	}
}

func TestDigests(t *testing.T) {
	blob := []byte{0x12, 0x00, 0x00}
	id := TxID(blob)
	if len(id) != 64 || id != strings.ToUpper(id) {
		t.Fatalf("malformed tx id %q", id)
	}
	if TxID(blob) != id {
		t.Fatal("TxID not deterministic")
	}
	digest := SigningDigest(blob)
	if len(digest) != 32 {
		t.Fatalf("signing digest length %d", len(digest))
	}
	if hex.EncodeToString(digest) == strings.ToLower(id) {
		t.Fatal("signing digest and tx id should use different prefixes")
	}
	data := SigningData(blob)
	if !bytes.Equal(SHA512Half(data), digest) {
		t.Fatal("SigningData and SigningDigest disagree")
	}
}
