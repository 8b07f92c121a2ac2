package wallet

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for hash160, not a security-sensitive use
)

// Network carries the address-prefix bytes that must be threaded
// explicitly through every address/script constructor, rather than read
// from a package-level mutable global.
type Network struct {
	Name          string
	P2PKHVersion  byte
	P2SHVersion   byte
	Bech32HRP     string
	WIFPrefix     byte
}

var (
	Mainnet = Network{Name: "mainnet", P2PKHVersion: 0x00, P2SHVersion: 0x05, Bech32HRP: "bc", WIFPrefix: 0x80}
	Testnet = Network{Name: "testnet", P2PKHVersion: 0x6f, P2SHVersion: 0xc4, Bech32HRP: "tb", WIFPrefix: 0xef}
	Regtest = Network{Name: "regtest", P2PKHVersion: 0x6f, P2SHVersion: 0xc4, Bech32HRP: "bcrt", WIFPrefix: 0xef}
)

// NetworkByName resolves one of the three network profiles this plugin
// supports (mainnet/testnet/regtest).
func NetworkByName(name string) (Network, error) {
	switch name {
	case "", "mainnet":
		return Mainnet, nil
	case "testnet", "testnet4":
		return Testnet, nil
	case "regtest":
		return Regtest, nil
	default:
		return Network{}, fmt.Errorf("wallet: unknown network %q", name)
	}
}

// PriKey is a secp256k1 private scalar in [1, N-1].
type PriKey struct {
	scalar secp256k1.ModNScalar
}

// PubKey is an affine point on secp256k1.
type PubKey struct {
	point secp256k1.JacobianPoint
}

// GeneratePriKey draws a uniformly random scalar from the CSPRNG.
func GeneratePriKey() (*PriKey, error) {
	for {
		var buf [32]byte
		if _, err := cryptorand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("wallet: reading random scalar: %w", err)
		}
		pk, err := PriKeyFromBytes(buf[:])
		if err == nil {
			return pk, nil
		}
	}
}

// PriKeyFromBytes constructs a PriKey from a 32-byte big-endian scalar,
// rejecting 0 and values >= N.
func PriKeyFromBytes(b []byte) (*PriKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("wallet: private scalar must be 32 bytes, got %d", len(b))
	}
	var scalar secp256k1.ModNScalar
	overflow := scalar.SetByteSlice(b)
	if overflow {
		return nil, fmt.Errorf("wallet: private scalar >= N")
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("wallet: private scalar must not be zero")
	}
	return &PriKey{scalar: scalar}, nil
}

func (k *PriKey) Bytes() []byte {
	b := k.scalar.Bytes()
	out := make([]byte, 32)
	copy(out, b[:])
	return out
}

// PubKey derives the public point d*G.
func (k *PriKey) PubKey() *PubKey {
	var point secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&k.scalar, &point)
	point.ToAffine()
	return &PubKey{point: point}
}

func (k *PriKey) scalarValue() *secp256k1.ModNScalar {
	return &k.scalar
}

// WIF encodes the key as Base58Check(prefix || scalar_32be || 0x01 || checksum),
// the 0x01 suffix marking "corresponds to a compressed public key".
func (k *PriKey) WIF(net Network) string {
	payload := make([]byte, 0, 34)
	payload = append(payload, net.WIFPrefix)
	payload = append(payload, k.Bytes()...)
	payload = append(payload, 0x01)
	return Base58CheckEncode(payload)
}

// PriKeyFromWIF inverts WIF, validating the network prefix and compressed
// marker byte.
func PriKeyFromWIF(wif string, net Network) (*PriKey, error) {
	payload, err := Base58CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("wallet: decoding WIF: %w", err)
	}
	if len(payload) != 34 {
		return nil, fmt.Errorf("wallet: WIF payload has unexpected length %d", len(payload))
	}
	if payload[0] != net.WIFPrefix {
		return nil, fmt.Errorf("wallet: WIF prefix 0x%02x does not match network %q", payload[0], net.Name)
	}
	if payload[33] != 0x01 {
		return nil, fmt.Errorf("wallet: WIF is not marked for a compressed public key")
	}
	return PriKeyFromBytes(payload[1:33])
}

// X returns the x-coordinate as a 32-byte big-endian value.
func (p *PubKey) X() []byte {
	x := p.point.X.Bytes()
	out := make([]byte, 32)
	copy(out, x[:])
	return out
}

func (p *PubKey) yIsOdd() bool {
	return p.point.Y.IsOdd()
}

// SEC1Compressed encodes the point as 0x02|0x03 || x_32be.
func (p *PubKey) SEC1Compressed() []byte {
	prefix := byte(0x02)
	if p.yIsOdd() {
		prefix = 0x03
	}
	return append([]byte{prefix}, p.X()...)
}

// SEC1Uncompressed encodes the point as 0x04 || x_32be || y_32be.
func (p *PubKey) SEC1Uncompressed() []byte {
	y := p.point.Y.Bytes()
	out := make([]byte, 0, 65)
	out = append(out, 0x04)
	out = append(out, p.X()...)
	out = append(out, y[:]...)
	return out
}

// PubKeyFromSEC1 decodes compressed (33-byte) or uncompressed (65-byte) SEC1
// encodings, solving y^2 = x^3 + 7 (mod p) and selecting the root matching
// the prefix parity for compressed form.
func PubKeyFromSEC1(b []byte) (*PubKey, error) {
	switch {
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		var x secp256k1.FieldVal
		if overflow := x.SetByteSlice(b[1:]); overflow {
			return nil, fmt.Errorf("wallet: SEC1 x-coordinate out of range")
		}
		y, err := decompressY(&x, b[0] == 0x03)
		if err != nil {
			return nil, err
		}
		return pubKeyFromXY(&x, y), nil
	case len(b) == 65 && b[0] == 0x04:
		var x, y secp256k1.FieldVal
		if overflow := x.SetByteSlice(b[1:33]); overflow {
			return nil, fmt.Errorf("wallet: SEC1 x-coordinate out of range")
		}
		if overflow := y.SetByteSlice(b[33:65]); overflow {
			return nil, fmt.Errorf("wallet: SEC1 y-coordinate out of range")
		}
		var want secp256k1.FieldVal
		if !secp256k1.DecompressY(&x, y.IsOdd(), &want) || !want.Equals(&y) {
			return nil, fmt.Errorf("wallet: point is not on the curve")
		}
		return pubKeyFromXY(&x, &y), nil
	default:
		return nil, fmt.Errorf("wallet: unrecognized SEC1 prefix/length")
	}
}

// PubKeyFromXOnly decodes a BIP-340 x-only public key, taking the even-Y
// root (the convention x-only keys always imply).
func PubKeyFromXOnly(x32 []byte) (*PubKey, error) {
	if len(x32) != 32 {
		return nil, fmt.Errorf("wallet: x-only key must be 32 bytes")
	}
	var x secp256k1.FieldVal
	if overflow := x.SetByteSlice(x32); overflow {
		return nil, fmt.Errorf("wallet: x-only coordinate out of range")
	}
	y, err := decompressY(&x, false)
	if err != nil {
		return nil, err
	}
	return pubKeyFromXY(&x, y), nil
}

func pubKeyFromXY(x, y *secp256k1.FieldVal) *PubKey {
	var pt secp256k1.JacobianPoint
	pt.X.Set(x)
	pt.Y.Set(y)
	pt.Z.SetInt(1)
	return &PubKey{point: pt}
}

// decompressY solves y^2 = x^3 + 7 (mod p) and returns the root whose
// oddness matches wantOdd, delegating the modular square root to the curve
// library itself (assumes secp256k1 field/group arithmetic is supplied
// externally with constant-time operations).
func decompressY(x *secp256k1.FieldVal, wantOdd bool) (*secp256k1.FieldVal, error) {
	y := new(secp256k1.FieldVal)
	if !secp256k1.DecompressY(x, wantOdd, y) {
		return nil, fmt.Errorf("wallet: x-coordinate is not on the curve")
	}
	y.Normalize()
	return y, nil
}

// Hash160 = RIPEMD160(SHA256(x)).
func Hash160(b []byte) []byte {
	h := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(h[:])
	return r.Sum(nil)
}
