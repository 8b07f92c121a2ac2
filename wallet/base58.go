package wallet

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Index = func() map[byte]int64 {
	m := make(map[byte]int64, len(base58Alphabet))
	for i := 0; i < len(base58Alphabet); i++ {
		m[base58Alphabet[i]] = int64(i)
	}
	return m
}()

// Base58Encode interprets b as a big-endian integer, divmods it by 58 onto
// the Bitcoin alphabet, and preserves leading zero bytes as leading '1's.
func Base58Encode(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b)
	base := big.NewInt(58)
	mod := new(big.Int)

	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, base58Alphabet[mod.Int64()])
	}

	out := make([]byte, 0, zeros+len(digits))
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		out = append(out, digits[i])
	}
	return string(out)
}

// Base58Decode inverts Base58Encode.
func Base58Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == base58Alphabet[0] {
		zeros++
	}

	n := new(big.Int)
	base := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		idx, ok := base58Index[s[i]]
		if !ok {
			return nil, fmt.Errorf("base58: invalid character %q", s[i])
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(idx))
	}

	body := n.Bytes()
	out := make([]byte, zeros+len(body))
	copy(out[zeros:], body)
	return out, nil
}

// Base58CheckEncode appends a 4-byte hash256 checksum before Base58-encoding.
func Base58CheckEncode(payload []byte) string {
	checksum := chainhash.DoubleHashB(payload)[:4]
	return Base58Encode(append(append([]byte{}, payload...), checksum...))
}

// Base58CheckDecode decodes and verifies the 4-byte hash256 checksum,
// returning the payload with the checksum stripped.
func Base58CheckDecode(s string) ([]byte, error) {
	raw, err := Base58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("base58check: input too short for checksum")
	}
	payload, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := chainhash.DoubleHashB(payload)[:4]
	for i := range checksum {
		if checksum[i] != want[i] {
			return nil, fmt.Errorf("base58check: checksum mismatch")
		}
	}
	return payload, nil
}
