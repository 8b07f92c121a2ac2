package wallet

import "testing"

func TestSignMessageVerifyMessageRoundTrip(t *testing.T) {
	priv := testPriv(t, 50)
	addr := P2PKHAddress(priv.PubKey(), Mainnet)

	sig, err := SignMessage(priv, []byte("hello from vault"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	valid, err := VerifyMessage(addr, []byte("hello from vault"), sig, Mainnet)
	if err != nil {
		t.Fatalf("VerifyMessage: %v", err)
	}
	if !valid {
		t.Fatalf("VerifyMessage rejected a freshly produced signature")
	}
}

func TestVerifyMessageRejectsTamperedMessage(t *testing.T) {
	priv := testPriv(t, 51)
	addr := P2PKHAddress(priv.PubKey(), Mainnet)
	sig, err := SignMessage(priv, []byte("original text"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	valid, err := VerifyMessage(addr, []byte("different text"), sig, Mainnet)
	if err != nil {
		t.Fatalf("VerifyMessage: %v", err)
	}
	if valid {
		t.Fatalf("VerifyMessage accepted a signature over a different message")
	}
}

func TestVerifyMessageRejectsWrongAddress(t *testing.T) {
	priv := testPriv(t, 52)
	other := testPriv(t, 53)
	otherAddr := P2PKHAddress(other.PubKey(), Mainnet)

	sig, err := SignMessage(priv, []byte("message"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	valid, err := VerifyMessage(otherAddr, []byte("message"), sig, Mainnet)
	if err != nil {
		t.Fatalf("VerifyMessage: %v", err)
	}
	if valid {
		t.Fatalf("VerifyMessage accepted a signature recovered to a different address")
	}
}

func TestVerifyMessageRejectsNonP2PKHAddress(t *testing.T) {
	priv := testPriv(t, 54)
	sig, err := SignMessage(priv, []byte("message"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	segwitAddr, err := P2WPKHAddress(priv.PubKey(), Mainnet)
	if err != nil {
		t.Fatalf("P2WPKHAddress: %v", err)
	}
	if _, err := VerifyMessage(segwitAddr, []byte("message"), sig, Mainnet); err == nil {
		t.Fatalf("VerifyMessage accepted a non-P2PKH address")
	}
}

func TestVerifyMessageRejectsMalformedSignature(t *testing.T) {
	priv := testPriv(t, 55)
	addr := P2PKHAddress(priv.PubKey(), Mainnet)
	if _, err := VerifyMessage(addr, []byte("message"), "not-base64!!", Mainnet); err == nil {
		t.Fatalf("VerifyMessage accepted a malformed base64 signature")
	}
}
