package wallet

import (
	cryptorand "crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ECDSASignature is (r, s) plus the recovery byte v, as produced by Sign.
type ECDSASignature struct {
	R secp256k1.ModNScalar
	S secp256k1.ModNScalar
	V byte // bit0 = parity of y(kG); bit1 = 1 iff x(kG) overflowed mod N
}

// groupOrderBytes is N, the secp256k1 group order, big-endian.
var groupOrderBytes = [32]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
	0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b,
	0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
}

// groupOrderField holds N as a field element, needed to reconstruct
// x(R) >= N candidates during recovery (field arithmetic is mod p, not mod
// N, so N itself must be folded in as a plain field value here).
var groupOrderField = func() secp256k1.FieldVal {
	var f secp256k1.FieldVal
	f.SetByteSlice(groupOrderBytes[:])
	return f
}()

// ECDSASign draws k until r != 0 and s != 0, then enforces
// low-S (replacing s with N-s and flipping v's parity bit if 2s > N).
func ECDSASign(priv *PriKey, digest [32]byte) (*ECDSASignature, error) {
	var m secp256k1.ModNScalar
	m.SetByteSlice(digest[:])

	for {
		var kb [32]byte
		if _, err := cryptorand.Read(kb[:]); err != nil {
			return nil, fmt.Errorf("wallet: drawing ECDSA nonce: %w", err)
		}
		var k secp256k1.ModNScalar
		if overflow := k.SetByteSlice(kb[:]); overflow || k.IsZero() {
			continue
		}

		var rPoint secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(&k, &rPoint)
		rPoint.ToAffine()

		xBytes := rPoint.X.Bytes()
		xOverflowed := false
		var rScalar secp256k1.ModNScalar
		if overflow := rScalar.SetByteSlice(xBytes[:]); overflow {
			xOverflowed = true
		}
		if rScalar.IsZero() {
			continue
		}

		// s = k^-1 * (m + r*d) mod N
		var s secp256k1.ModNScalar
		s.Mul2(&rScalar, &priv.scalar).Add(&m)
		kInv := new(secp256k1.ModNScalar).Set(&k).InverseValNonConst()
		s.Mul(kInv)
		if s.IsZero() {
			continue
		}

		v := byte(0)
		if rPoint.Y.IsOdd() {
			v |= 0x01
		}
		if xOverflowed {
			v |= 0x02
		}

		if s.IsOverHalfOrder() {
			s.Negate()
			v ^= 0x01
		}

		return &ECDSASignature{R: rScalar, S: s, V: v}, nil
	}
}

// DER encodes (r, s) as a BER/DER SEQUENCE of two INTEGERs — the
// form consumed by script_sig/witness pushes (the recovery byte V never
// appears on the wire, it exists only for ECDSARecover).
func (sig *ECDSASignature) DER() []byte {
	rBytes := sig.R.Bytes()
	sBytes := sig.S.Bytes()
	rEnc := derInt(rBytes[:])
	sEnc := derInt(sBytes[:])
	body := append(append([]byte{}, rEnc...), sEnc...)
	return append([]byte{0x30, byte(len(body))}, body...)
}

// derInt encodes b as a DER INTEGER, stripping leading zero bytes and
// re-adding a single one if the high bit would otherwise flip the sign.
func derInt(b []byte) []byte {
	for len(b) > 1 && b[0] == 0x00 && b[1] < 0x80 {
		b = b[1:]
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return append([]byte{0x02, byte(len(b))}, b...)
}

// ECDSAVerify checks the standard equation u1*G + u2*Q = R, comparing x(R)
// mod N to r.
func ECDSAVerify(pub *PubKey, digest [32]byte, sig *ECDSASignature) bool {
	if sig.R.IsZero() || sig.S.IsZero() {
		return false
	}
	var m secp256k1.ModNScalar
	m.SetByteSlice(digest[:])

	sInv := new(secp256k1.ModNScalar).Set(&sig.S).InverseValNonConst()
	var u1, u2 secp256k1.ModNScalar
	u1.Mul2(&m, sInv)
	u2.Mul2(&sig.R, sInv)

	var p1, p2, sum secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&u1, &p1)
	secp256k1.ScalarMultNonConst(&u2, &pub.point, &p2)
	secp256k1.AddNonConst(&p1, &p2, &sum)
	if sum.Z.IsZero() {
		return false
	}
	sum.ToAffine()

	xBytes := sum.X.Bytes()
	var x secp256k1.ModNScalar
	x.SetByteSlice(xBytes[:])
	return x.Equals(&sig.R)
}

// ECDSARecover reconstructs the public key from (m, r, s, v).
func ECDSARecover(digest [32]byte, sig *ECDSASignature) (*PubKey, error) {
	xOverflow := sig.V&0x02 != 0
	yOdd := sig.V&0x01 != 0

	rBytes := sig.R.Bytes()
	var x secp256k1.FieldVal
	x.SetByteSlice(rBytes[:])
	if xOverflow {
		x.Add(&groupOrderField).Normalize()
	}

	var y secp256k1.FieldVal
	if !secp256k1.DecompressY(&x, yOdd, &y) {
		return nil, fmt.Errorf("wallet: recovery candidate R is not on the curve")
	}
	y.Normalize()

	var r secp256k1.JacobianPoint
	r.X.Set(&x)
	r.Y.Set(&y)
	r.Z.SetInt(1)

	var m secp256k1.ModNScalar
	m.SetByteSlice(digest[:])

	rInv := new(secp256k1.ModNScalar).Set(&sig.R).InverseValNonConst()

	var sR, mG, sum secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&sig.S, &r, &sR)
	secp256k1.ScalarBaseMultNonConst(&m, &mG)
	mG.ToAffine()
	mG.Y.Negate(1).Normalize()
	mG.Z.SetInt(1)
	secp256k1.AddNonConst(&sR, &mG, &sum)
	secp256k1.ScalarMultNonConst(rInv, &sum, &sum)
	sum.ToAffine()

	return &PubKey{point: sum}, nil
}
