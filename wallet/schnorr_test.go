package wallet

import (
	"crypto/sha256"
	"testing"
)

func TestSchnorrSignVerifyRoundTrip(t *testing.T) {
	priv := testPriv(t, 13)
	msg := sha256.Sum256([]byte("taproot spend"))

	sig, err := SchnorrSign(priv, msg)
	if err != nil {
		t.Fatalf("SchnorrSign: %v", err)
	}
	if !SchnorrVerify(priv.PubKey(), msg, sig) {
		t.Fatalf("SchnorrVerify rejected a freshly produced signature")
	}
}

func TestSchnorrVerifyRejectsTamperedMessage(t *testing.T) {
	priv := testPriv(t, 14)
	msg := sha256.Sum256([]byte("original"))
	sig, err := SchnorrSign(priv, msg)
	if err != nil {
		t.Fatalf("SchnorrSign: %v", err)
	}
	tampered := sha256.Sum256([]byte("tampered"))
	if SchnorrVerify(priv.PubKey(), tampered, sig) {
		t.Fatalf("SchnorrVerify accepted a signature over a different message")
	}
}

func TestSchnorrVerifyHandlesOddYImplicitNegation(t *testing.T) {
	// A signature made with the key is checked against that key's own
	// PubKey(), whatever its Y parity; SchnorrSign and SchnorrVerify both
	// normalize to the even-Y representation, so the check holds either way.
	priv := testPriv(t, 15)
	msg := sha256.Sum256([]byte("even-y"))
	sig, err := SchnorrSign(priv, msg)
	if err != nil {
		t.Fatalf("SchnorrSign: %v", err)
	}
	pub := priv.PubKey()
	if pub.yIsOdd() {
		// Sanity: PubKey() itself isn't normalized to even-Y, but verification
		// via schnorrImplicitPub should still succeed regardless of parity.
		t.Log("public key has odd Y; verifying implicit-negation handling")
	}
	if !SchnorrVerify(pub, msg, sig) {
		t.Fatalf("SchnorrVerify failed to account for implicit negation")
	}
}

func TestTaggedHashIsDomainSeparated(t *testing.T) {
	msg := []byte("same message")
	a := TaggedHash("TapLeaf", msg)
	b := TaggedHash("TapTweak", msg)
	if a == b {
		t.Fatalf("TaggedHash produced identical output for different tags")
	}
}

func TestTaggedHashIsDeterministic(t *testing.T) {
	a := TaggedHash("BIP0340/challenge", []byte("x"), []byte("y"))
	b := TaggedHash("BIP0340/challenge", []byte("x"), []byte("y"))
	if a != b {
		t.Fatalf("TaggedHash is not deterministic for identical input")
	}
}
