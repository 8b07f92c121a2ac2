package wallet

import "testing"

func TestTaprootTweakDeterministic(t *testing.T) {
	priv := testPriv(t, 20)
	internalX := schnorrImplicitPub(priv.PubKey()).X.Bytes()

	a, aOdd, aTweak, err := TaprootTweak(internalX, nil)
	if err != nil {
		t.Fatalf("TaprootTweak: %v", err)
	}
	b, bOdd, bTweak, err := TaprootTweak(internalX, nil)
	if err != nil {
		t.Fatalf("TaprootTweak: %v", err)
	}
	if a != b || aOdd != bOdd || aTweak != bTweak {
		t.Fatalf("TaprootTweak is not deterministic for identical input")
	}
}

func TestTaprootTweakVariesByMerkleRoot(t *testing.T) {
	priv := testPriv(t, 21)
	internalX := schnorrImplicitPub(priv.PubKey()).X.Bytes()

	keyPathOnly, _, _, err := TaprootTweak(internalX, nil)
	if err != nil {
		t.Fatalf("TaprootTweak(nil): %v", err)
	}

	leaf := NewTapLeaf([]byte{OpTrue})
	root := leaf.Hash()
	withScript, _, _, err := TaprootTweak(internalX, root[:])
	if err != nil {
		t.Fatalf("TaprootTweak(root): %v", err)
	}
	if keyPathOnly == withScript {
		t.Fatalf("TaprootTweak produced the same output key with and without a merkle root")
	}
}

func TestTaprootTweakRejectsBadMerkleRootLength(t *testing.T) {
	priv := testPriv(t, 22)
	internalX := schnorrImplicitPub(priv.PubKey()).X.Bytes()
	if _, _, _, err := TaprootTweak(internalX, []byte{0x01, 0x02}); err == nil {
		t.Fatalf("TaprootTweak accepted a merkle root of the wrong length")
	}
}

func TestTaprootSigningScalarMatchesOutputKey(t *testing.T) {
	priv := testPriv(t, 23)
	internalX := schnorrImplicitPub(priv.PubKey()).X.Bytes()

	outputX, _, _, err := TaprootTweak(internalX, nil)
	if err != nil {
		t.Fatalf("TaprootTweak: %v", err)
	}
	signingKey, err := TaprootSigningScalar(priv, nil)
	if err != nil {
		t.Fatalf("TaprootSigningScalar: %v", err)
	}
	derivedX := schnorrImplicitPub(signingKey.PubKey()).X.Bytes()
	if derivedX != outputX {
		t.Fatalf("public key of the signing scalar does not match the tweaked output key")
	}
}

func TestNewTapBranchIsOrderIndependent(t *testing.T) {
	left := NewTapLeaf([]byte{OpTrue})
	right := NewTapLeaf([]byte{OpFalse})

	a := NewTapBranch(left, right)
	b := NewTapBranch(right, left)
	if a.Hash() != b.Hash() {
		t.Fatalf("NewTapBranch is not order-independent")
	}
}

func TestControlBlockEncodesParityAndSiblings(t *testing.T) {
	var internalX [32]byte
	internalX[0] = 0x42
	var sibling [32]byte
	sibling[0] = 0x07

	cb := ControlBlock(internalX, true, [][32]byte{sibling})
	if len(cb) != 1+32+32 {
		t.Fatalf("ControlBlock length = %d, want %d", len(cb), 1+32+32)
	}
	if cb[0] != TapLeafVersion|0x01 {
		t.Fatalf("ControlBlock parity byte = 0x%02x, want 0x%02x", cb[0], TapLeafVersion|0x01)
	}
	if cb[1] != internalX[0] {
		t.Fatalf("ControlBlock internal key mismatch")
	}
}
