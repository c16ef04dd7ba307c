// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/stcodec"
	"xrplink.org/xrplink/xrp/wire"
)

// The rippled master key pair, derived from the "masterpassphrase" family
// seed. A fixture in every XRPL key implementation.
const (
	masterSeed    = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	masterEntropy = "dedce9ce67b451d852fd4e846fcde31c"
	masterAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	masterPubKey  = "0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020"
)

func TestMasterSeedDerivation(t *testing.T) {
	cred, err := ParseCredential(masterSeed)
	if err != nil {
		t.Fatalf("ParseCredential: %v", err)
	}
	if cred.Kind() != FamilySeed {
		t.Fatalf("kind = %s, want family seed", cred.Kind())
	}
	entropy, _ := hex.DecodeString(masterEntropy)
	if !bytes.Equal(cred.entropy, entropy) {
		t.Fatalf("entropy = %x, want %s", cred.entropy, masterEntropy)
	}

	kp, err := cred.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair: %v", err)
	}
	if kp.Address() != masterAddress {
		t.Fatalf("address = %s, want %s", kp.Address(), masterAddress)
	}
	if kp.PubKeyHex() != masterPubKey {
		t.Fatalf("pubkey = %s, want %s", kp.PubKeyHex(), masterPubKey)
	}

	// Re-encoding the entropy reproduces the seed string.
	reencoded, err := EncodeFamilySeed(entropy, false)
	if err != nil {
		t.Fatalf("EncodeFamilySeed: %v", err)
	}
	if reencoded != masterSeed {
		t.Fatalf("re-encoded seed = %s, want %s", reencoded, masterSeed)
	}
}

func TestEdFamilySeed(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x5a}, 16)
	seed, err := EncodeFamilySeed(entropy, true)
	if err != nil {
		t.Fatalf("EncodeFamilySeed: %v", err)
	}
	if !strings.HasPrefix(seed, "sEd") {
		t.Fatalf("ed seed %q does not start with sEd", seed)
	}
	cred, err := ParseCredential(seed)
	if err != nil {
		t.Fatalf("ParseCredential: %v", err)
	}
	if cred.Kind() != FamilySeed || !cred.isEd {
		t.Fatalf("parsed kind = %s, isEd = %t", cred.Kind(), cred.isEd)
	}
	kp, err := cred.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair: %v", err)
	}
	if !strings.HasPrefix(kp.PubKeyHex(), "ED") {
		t.Fatalf("ed pubkey %s missing ED prefix", kp.PubKeyHex())
	}
	if !xrp.IsValidAddress(kp.Address()) {
		t.Fatalf("bad address %s", kp.Address())
	}

	data := []byte("prefixed signing data")
	sig := kp.Sign(data)
	if !kp.Verify(data, sig) {
		t.Fatal("ed25519 signature did not verify")
	}
	if kp.Verify([]byte("other data"), sig) {
		t.Fatal("ed25519 signature verified wrong data")
	}
}

func TestMnemonicCredential(t *testing.T) {
	const mnemonic = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"
	cred, err := ParseCredential(mnemonic)
	if err != nil {
		t.Fatalf("ParseCredential: %v", err)
	}
	if cred.Kind() != Mnemonic {
		t.Fatalf("kind = %s, want mnemonic", cred.Kind())
	}
	kp, err := cred.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair: %v", err)
	}
	if !xrp.IsValidAddress(kp.Address()) {
		t.Fatalf("bad address %s", kp.Address())
	}

	// Derivation is deterministic.
	again, err := ParseCredential(mnemonic)
	if err != nil {
		t.Fatalf("ParseCredential again: %v", err)
	}
	kp2, err := again.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair again: %v", err)
	}
	if kp2.Address() != kp.Address() {
		t.Fatalf("mnemonic derivation not deterministic: %s != %s", kp2.Address(), kp.Address())
	}
}

func TestRawSecretCredential(t *testing.T) {
	secpHex := strings.Repeat("11", 32)
	cred, err := ParseCredential(secpHex)
	if err != nil {
		t.Fatalf("ParseCredential secp hex: %v", err)
	}
	if cred.Kind() != RawSecret || cred.isEd {
		t.Fatalf("secp raw secret parsed as %s, isEd %t", cred.Kind(), cred.isEd)
	}
	kp, err := cred.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair: %v", err)
	}
	data := []byte("some signing data")
	if !kp.Verify(data, kp.Sign(data)) {
		t.Fatal("secp signature did not verify")
	}

	edCred, err := ParseCredential("ED" + strings.Repeat("22", 32))
	if err != nil {
		t.Fatalf("ParseCredential ed hex: %v", err)
	}
	if edCred.Kind() != RawSecret || !edCred.isEd {
		t.Fatalf("ed raw secret parsed as %s, isEd %t", edCred.Kind(), edCred.isEd)
	}
	if _, err := edCred.KeyPair(); err != nil {
		t.Fatalf("ed KeyPair: %v", err)
	}
}

func TestParseCredentialRejects(t *testing.T) {
	for _, bad := range []string{
		"",
		"hello",
		"zz" + strings.Repeat("11", 31),
		"sNotARealSeedAtAllNope",
		"definitely not a mnemonic word salad here",
		strings.Repeat("11", 31), // 62 hex chars, wrong length
	} {
		if _, err := ParseCredential(bad); err == nil {
			t.Fatalf("ParseCredential(%q) did not error", bad)
		}
	}
}

func TestSignTx(t *testing.T) {
	cred, err := ParseCredential(masterSeed)
	if err != nil {
		t.Fatalf("ParseCredential: %v", err)
	}
	kp, err := cred.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair: %v", err)
	}

	tx := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         kp.Address(),
		Destination:     "rrrrrrrrrrrrrrrrrrrrBZbvji", // ACCOUNT_ONE
		Amount:          wire.XRPAmount(1_000_000),
		Sequence:        1,
		Fee:             "12",
	}
	signed, err := kp.SignTx(tx)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	if len(signed.Hash) != 64 || signed.Hash != strings.ToUpper(signed.Hash) {
		t.Fatalf("bad tx hash %q", signed.Hash)
	}
	if signed.Tx["SigningPubKey"] != masterPubKey {
		t.Fatalf("SigningPubKey = %v", signed.Tx["SigningPubKey"])
	}
	sigHex, _ := signed.Tx["TxnSignature"].(string)
	if sigHex == "" {
		t.Fatal("no TxnSignature installed")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		t.Fatalf("signature not hex: %v", err)
	}

	// The signature must verify over the signing serialization of the signed
	// transaction.
	unsigned, err := stcodec.SerializeForSigning(signed.Tx)
	if err != nil {
		t.Fatalf("SerializeForSigning: %v", err)
	}
	if !kp.Verify(stcodec.SigningData(unsigned), sig) {
		t.Fatal("transaction signature did not verify")
	}

	// The blob embeds the signature: serializing the signed map reproduces it.
	reblob, err := stcodec.Serialize(signed.Tx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(reblob, signed.Blob) {
		t.Fatal("blob does not match serialized signed tx")
	}
	if stcodec.TxID(signed.Blob) != signed.Hash {
		t.Fatal("hash does not match blob")
	}
}
