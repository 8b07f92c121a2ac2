package wallet

import (
	"bytes"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const TapLeafVersion = 0xc0

// TapNode is a MAST tree node: either a leaf carrying a script, or a branch
// over two children. Hashes are computed at construction so the tree is
// effectively append-only design note.
type TapNode struct {
	hash   [32]byte
	leaf   bool
	script []byte // only set for leaves; kept for control-block construction
}

// NewTapLeaf hashes a script as H_tag("TapLeaf", leaf_version || cs(len) || script).
func NewTapLeaf(script []byte) *TapNode {
	cs := CompactSizeEncode(uint64(len(script)))
	h := TaggedHash("TapLeaf", []byte{TapLeafVersion}, cs, script)
	return &TapNode{hash: h, leaf: true, script: script}
}

// NewTapBranch hashes two children as H_tag("TapBranch", min(l,r) || max(l,r)),
// the lexicographic sort that makes proofs canonical.
func NewTapBranch(left, right *TapNode) *TapNode {
	lo, hi := left.hash, right.hash
	if bytes.Compare(lo[:], hi[:]) > 0 {
		lo, hi = hi, lo
	}
	h := TaggedHash("TapBranch", lo[:], hi[:])
	return &TapNode{hash: h, leaf: false}
}

func (n *TapNode) Hash() [32]byte { return n.hash }

// TaprootTweak computes the output key Q = P + t*G for internal key P and
// merkle root h (h may be nil for a key-path-only output)
// internalX is the x-only (always-even-Y) representation of P.
func TaprootTweak(internalX [32]byte, merkleRoot []byte) (outputX [32]byte, outputOdd bool, tweak [32]byte, err error) {
	if merkleRoot != nil && len(merkleRoot) != 32 {
		return outputX, false, tweak, fmt.Errorf("wallet: taproot merkle root must be 0 or 32 bytes")
	}

	internal, err := PubKeyFromXOnly(internalX[:])
	if err != nil {
		return outputX, false, tweak, fmt.Errorf("wallet: invalid taproot internal key: %w", err)
	}

	tweakHash := TaggedHash("TapTweak", internalX[:], merkleRoot)
	var t secp256k1.ModNScalar
	if overflow := t.SetByteSlice(tweakHash[:]); overflow {
		return outputX, false, tweak, fmt.Errorf("wallet: taproot tweak scalar overflow")
	}

	var tG, q secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&t, &tG)
	secp256k1.AddNonConst(&internal.point, &tG, &q)
	q.ToAffine()

	outputX = [32]byte{}
	qx := q.X.Bytes()
	copy(outputX[:], qx[:])
	return outputX, q.Y.IsOdd(), tweakHash, nil
}

// TaprootSigningScalar returns the scalar used to sign for the key-path
// spend: (d + t) mod N, where d is the even-Y-normalized internal private
// key and t is the tweak scalar from TaprootTweak.
func TaprootSigningScalar(priv *PriKey, merkleRoot []byte) (*PriKey, error) {
	d := schnorrImplicitPriv(priv)
	internalX := schnorrImplicitPub(priv.PubKey()).X.Bytes()

	tweakHash := TaggedHash("TapTweak", internalX[:], merkleRoot)
	var t secp256k1.ModNScalar
	if overflow := t.SetByteSlice(tweakHash[:]); overflow {
		return nil, fmt.Errorf("wallet: taproot tweak scalar overflow")
	}

	d.Add(&t)
	if d.IsZero() {
		return nil, fmt.Errorf("wallet: taproot tweak produced a zero scalar")
	}
	return &PriKey{scalar: d}, nil
}

// ControlBlock builds [(leaf_version | parity(Q)) || x(P) || sibling hashes]
// for a script-path spend of the leaf identified by siblings, which are
// appended as given and so must already be in leaf-to-root order.
func ControlBlock(internalX [32]byte, outputOdd bool, siblings [][32]byte) []byte {
	parity := byte(0)
	if outputOdd {
		parity = 1
	}
	out := make([]byte, 0, 33+32*len(siblings))
	out = append(out, TapLeafVersion|parity)
	out = append(out, internalX[:]...)
	for _, s := range siblings {
		out = append(out, s[:]...)
	}
	return out
}
