// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bisoncraft/go-bip39"
	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/decred/dcrd/hdkeychain/v3"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/stcodec"
)

// edPubKeyPrefix marks a 33-byte public key as ed25519 rather than a
// compressed secp256k1 point.
const edPubKeyPrefix = 0xed

// KeyPair is a derived signing identity. Exactly one of the private keys is
// set.
type KeyPair struct {
	secpPriv *secp256k1.PrivateKey
	edPriv   ed25519.PrivateKey
	pubKey   []byte // 33 bytes
	address  string
}

// Address is the classic "r..." address for the key pair.
func (kp *KeyPair) Address() string {
	return kp.address
}

// PubKeyHex is the 33-byte public key as uppercase hex, the SigningPubKey
// wire form.
func (kp *KeyPair) PubKeyHex() string {
	return strings.ToUpper(hex.EncodeToString(kp.pubKey))
}

// Sign signs prefixed signing data. ECDSA keys sign the SHA512Half digest of
// the data. ed25519 keys sign the data itself.
func (kp *KeyPair) Sign(signingData []byte) []byte {
	if kp.edPriv != nil {
		return ed25519.Sign(kp.edPriv, signingData)
	}
	return secpecdsa.Sign(kp.secpPriv, stcodec.SHA512Half(signingData)).Serialize()
}

// Verify checks a signature produced by Sign.
func (kp *KeyPair) Verify(signingData, sig []byte) bool {
	if kp.edPriv != nil {
		return ed25519.Verify(kp.edPriv.Public().(ed25519.PublicKey), signingData, sig)
	}
	parsed, err := secpecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(stcodec.SHA512Half(signingData), kp.secpPriv.PubKey())
}

// accountID hashes a public key to its 20-byte account ID.
func accountID(pubKey []byte) []byte {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

func newSecpKeyPair(priv *secp256k1.PrivateKey) (*KeyPair, error) {
	pub := priv.PubKey().SerializeCompressed()
	addr, err := xrp.EncodeAddress(accountID(pub))
	if err != nil {
		return nil, err
	}
	return &KeyPair{secpPriv: priv, pubKey: pub, address: addr}, nil
}

func secpKeyPairFromBytes(key []byte) (*KeyPair, error) {
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(key); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("secret is not a valid secp256k1 scalar")
	}
	return newSecpKeyPair(secp256k1.NewPrivateKey(&scalar))
}

// scalarFromSeed derives a valid secp256k1 scalar from seed material by
// hashing with an incrementing 32-bit suffix until the result lands in the
// group order.
func scalarFromSeed(seed []byte) *secp256k1.ModNScalar {
	buf := make([]byte, len(seed)+4)
	copy(buf, seed)
	for i := uint32(0); ; i++ {
		binary.BigEndian.PutUint32(buf[len(seed):], i)
		var scalar secp256k1.ModNScalar
		overflow := scalar.SetByteSlice(stcodec.SHA512Half(buf))
		if !overflow && !scalar.IsZero() {
			return &scalar
		}
	}
}

// secpKeyPairFromEntropy runs the ledger's secp256k1 account key derivation:
// a root key from the seed entropy, then an additive intermediate key for
// account index zero.
func secpKeyPairFromEntropy(entropy []byte) (*KeyPair, error) {
	if len(entropy) != seedEntropyLen {
		return nil, fmt.Errorf("entropy must be %d bytes, got %d", seedEntropyLen, len(entropy))
	}
	rootScalar := scalarFromSeed(entropy)
	rootPub := secp256k1.NewPrivateKey(rootScalar).PubKey().SerializeCompressed()

	// Intermediate material: root pubkey || account family (0) || sub-index.
	mid := make([]byte, len(rootPub)+4)
	copy(mid, rootPub)
	interScalar := scalarFromSeed(mid)

	accountScalar := new(secp256k1.ModNScalar).Set(rootScalar)
	accountScalar.Add(interScalar)
	if accountScalar.IsZero() {
		return nil, fmt.Errorf("derived a zero account key")
	}
	return newSecpKeyPair(secp256k1.NewPrivateKey(accountScalar))
}

func edKeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := append([]byte{edPubKeyPrefix}, priv.Public().(ed25519.PublicKey)...)
	addr, err := xrp.EncodeAddress(accountID(pub))
	if err != nil {
		return nil, err
	}
	return &KeyPair{edPriv: priv, pubKey: pub, address: addr}, nil
}

// edKeyPairFromEntropy expands 16 bytes of family-seed entropy to an ed25519
// seed with SHA512Half.
func edKeyPairFromEntropy(entropy []byte) (*KeyPair, error) {
	if len(entropy) != seedEntropyLen {
		return nil, fmt.Errorf("entropy must be %d bytes, got %d", seedEntropyLen, len(entropy))
	}
	return edKeyPairFromSeed(stcodec.SHA512Half(entropy))
}

// hdParams satisfies hdkeychain.NetworkParams for master key creation. The
// version bytes never leave this process.
type hdParams struct{}

func (*hdParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x78, 0x72, 0x70, 0x76} } // "xrpv"
func (*hdParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x78, 0x72, 0x70, 0x62} } // "xrpb"

// keyPairFromMnemonic derives the conventional m/44'/144'/0'/0/0 key from a
// BIP-39 mnemonic.
func keyPairFromMnemonic(mnemonic string) (*KeyPair, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic seed error: %w", err)
	}
	const hardened = hdkeychain.HardenedKeyStart
	path := []uint32{44 + hardened, 144 + hardened, hardened, 0, 0}

	extKey, err := hdkeychain.NewMaster(seed, &hdParams{})
	if err != nil {
		return nil, fmt.Errorf("master key error: %w", err)
	}
	for _, childIdx := range path {
		// A derivation can land outside the group order for roughly 1 in
		// 2^127 indices; skip forward like hdkeychain callers conventionally
		// do.
		var child *hdkeychain.ExtendedKey
		for {
			child, err = extKey.ChildBIP32Std(childIdx)
			if err != hdkeychain.ErrInvalidChild {
				break
			}
			childIdx++
		}
		extKey.Zero()
		if err != nil {
			return nil, fmt.Errorf("child derivation error: %w", err)
		}
		extKey = child
	}
	privB, err := extKey.SerializedPrivKey()
	if err != nil {
		return nil, fmt.Errorf("SerializedPrivKey error: %w", err)
	}
	defer extKey.Zero()
	return secpKeyPairFromBytes(privB)
}
