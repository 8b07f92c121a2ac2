package wallet

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// TaggedHash computes SHA256(SHA256(tag) || SHA256(tag) || msg), the BIP-340
// domain-separation construction used throughout the taproot/schnorr
// components.
func TaggedHash(tag string, msg ...[]byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, m := range msg {
		h.Write(m)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// schnorrImplicitPriv returns d (or N-d) such that the resulting public
// point has even Y — BIP-340's "implicit negation".
func schnorrImplicitPriv(priv *PriKey) secp256k1.ModNScalar {
	d := priv.scalar
	if priv.PubKey().yIsOdd() {
		d.Negate()
	}
	return d
}

// schnorrImplicitPub returns P (or -P) with even Y.
func schnorrImplicitPub(pub *PubKey) secp256k1.JacobianPoint {
	p := pub.point
	if p.Y.IsOdd() {
		p.Y.Negate(1).Normalize()
	}
	return p
}

// SchnorrSign implements BIP-340: normalize d, draw k, normalize k, compute
// e = H_tag("BIP0340/challenge", x(R) || x(P) || m) and s = k + e*d mod N.
// The output is the 64-byte (x(R) || s) signature.
func SchnorrSign(priv *PriKey, msg [32]byte) ([64]byte, error) {
	var sig [64]byte
	d := schnorrImplicitPriv(priv)
	pub := priv.PubKey()
	px := schnorrImplicitPub(pub).X.Bytes()

	for {
		var kb [32]byte
		if _, err := cryptorand.Read(kb[:]); err != nil {
			return sig, fmt.Errorf("wallet: drawing schnorr nonce: %w", err)
		}
		var k secp256k1.ModNScalar
		if overflow := k.SetByteSlice(kb[:]); overflow || k.IsZero() {
			continue
		}

		var rPoint secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(&k, &rPoint)
		rPoint.ToAffine()
		if rPoint.Y.IsOdd() {
			k.Negate()
		}
		rx := rPoint.X.Bytes()

		e := TaggedHash("BIP0340/challenge", rx[:], px[:], msg[:])
		var eScalar secp256k1.ModNScalar
		eScalar.SetByteSlice(e[:])

		var s secp256k1.ModNScalar
		s.Mul2(&eScalar, &d).Add(&k)

		copy(sig[:32], rx[:])
		sBytes := s.Bytes()
		copy(sig[32:], sBytes[:])
		return sig, nil
	}
}

// SchnorrVerify implements BIP-340 verification: sG ?= R + e*P, checked over
// the even-Y-normalized public key, using only x(R) from the signature.
func SchnorrVerify(pub *PubKey, msg [32]byte, sig [64]byte) bool {
	p := schnorrImplicitPub(pub)

	var rx secp256k1.FieldVal
	if overflow := rx.SetByteSlice(sig[:32]); overflow {
		return false
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}

	px := p.X.Bytes()
	rxBytes := sig[:32]
	e := TaggedHash("BIP0340/challenge", rxBytes, px[:], msg[:])
	var eScalar secp256k1.ModNScalar
	eScalar.SetByteSlice(e[:])

	var sG, eP, neg, rCandidate secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&s, &sG)
	secp256k1.ScalarMultNonConst(&eScalar, &p, &eP)
	neg = eP
	neg.ToAffine()
	neg.Y.Negate(1).Normalize()
	neg.Z.SetInt(1)
	secp256k1.AddNonConst(&sG, &neg, &rCandidate)
	if rCandidate.Z.IsZero() {
		return false
	}
	rCandidate.ToAffine()

	if rCandidate.Y.IsOdd() {
		return false
	}
	return rCandidate.X.Equals(&rx)
}
