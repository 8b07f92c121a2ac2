package wallet

import (
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const messageMagic = "Bitcoin Signed Message:\n"

// messageDigest computes hash256(cs(24) || magic || cs(|m|) || m).
func messageDigest(msg []byte) [32]byte {
	var buf []byte
	buf = append(buf, CompactSizeEncode(uint64(len(messageMagic)))...)
	buf = append(buf, []byte(messageMagic)...)
	buf = append(buf, CompactSizeEncode(uint64(len(msg)))...)
	buf = append(buf, msg...)
	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(buf))
	return out
}

// SignMessage signs msg with priv (BIP-137-ish, compressed-pubkey P2PKH
// only) and returns the base64 signature (31+v) || r || s.
func SignMessage(priv *PriKey, msg []byte) (string, error) {
	digest := messageDigest(msg)
	sig, err := ECDSASign(priv, digest)
	if err != nil {
		return "", fmt.Errorf("wallet: signing message: %w", err)
	}
	r := sig.R.Bytes()
	s := sig.S.Bytes()

	out := make([]byte, 65)
	out[0] = 31 + sig.V
	copy(out[1:33], r[:])
	copy(out[33:], s[:])
	return base64.StdEncoding.EncodeToString(out), nil
}

// VerifyMessage recovers the signing public key from sig and checks it
// derives addr under net. Only compressed-pubkey P2PKH addresses are
// supported, matching the digest's BIP-137-ish scope.
func VerifyMessage(addr string, msg []byte, sigB64 string, net Network) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, fmt.Errorf("wallet: message signature is not valid base64: %w", err)
	}
	if len(raw) != 65 {
		return false, fmt.Errorf("wallet: message signature must be 65 bytes, got %d", len(raw))
	}
	header := raw[0]
	if header < 27 || header > 34 {
		return false, fmt.Errorf("wallet: message signature header byte 0x%02x out of range", header)
	}
	v := (header - 27) & 0x03

	var r, s [32]byte
	copy(r[:], raw[1:33])
	copy(s[:], raw[33:])

	sig := &ECDSASignature{V: v}
	if overflow := sig.R.SetByteSlice(r[:]); overflow {
		return false, fmt.Errorf("wallet: message signature r overflows the group order")
	}
	if overflow := sig.S.SetByteSlice(s[:]); overflow {
		return false, fmt.Errorf("wallet: message signature s overflows the group order")
	}

	digest := messageDigest(msg)
	pub, err := ECDSARecover(digest, sig)
	if err != nil {
		return false, fmt.Errorf("wallet: recovering public key: %w", err)
	}

	addrType, err := GetAddressType(addr, net)
	if err != nil {
		return false, fmt.Errorf("wallet: %w", err)
	}
	if addrType != AddressTypeP2PKH {
		return false, fmt.Errorf("wallet: message verification only supports P2PKH addresses")
	}

	return P2PKHAddress(pub, net) == addr, nil
}
