package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestNetworkByName(t *testing.T) {
	tt := []struct {
		name    string
		want    Network
		wantErr bool
	}{
		{name: "", want: Mainnet},
		{name: "mainnet", want: Mainnet},
		{name: "testnet", want: Testnet},
		{name: "testnet4", want: Testnet},
		{name: "regtest", want: Regtest},
		{name: "liquid", wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NetworkByName(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NetworkByName(%q) = nil error, want error", tc.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("NetworkByName(%q) unexpected error: %v", tc.name, err)
			}
			if got != tc.want {
				t.Fatalf("NetworkByName(%q) = %+v, want %+v", tc.name, got, tc.want)
			}
		})
	}
}

func TestPriKeyFromBytesRejectsOutOfRange(t *testing.T) {
	tt := []struct {
		name string
		b    []byte
	}{
		{name: "too short", b: make([]byte, 31)},
		{name: "zero", b: make([]byte, 32)},
		{name: "overflow >= N", b: func() []byte {
			b, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
			return b
		}()},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PriKeyFromBytes(tc.b); err == nil {
				t.Fatalf("PriKeyFromBytes(%x) = nil error, want error", tc.b)
			}
		})
	}
}

func TestPriKeyBytesRoundTrip(t *testing.T) {
	priv, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	b := priv.Bytes()
	if len(b) != 32 {
		t.Fatalf("Bytes() length = %d, want 32", len(b))
	}
	priv2, err := PriKeyFromBytes(b)
	if err != nil {
		t.Fatalf("PriKeyFromBytes: %v", err)
	}
	if !bytes.Equal(priv2.Bytes(), b) {
		t.Fatalf("round trip mismatch: got %x, want %x", priv2.Bytes(), b)
	}
}

func TestGeneratePriKeyIsNonDeterministic(t *testing.T) {
	a, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	b, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("two calls to GeneratePriKey produced the same scalar")
	}
}

func TestWIFRoundTrip(t *testing.T) {
	tt := []struct {
		name string
		net  Network
	}{
		{name: "mainnet", net: Mainnet},
		{name: "testnet", net: Testnet},
		{name: "regtest", net: Regtest},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			priv, err := GeneratePriKey()
			if err != nil {
				t.Fatalf("GeneratePriKey: %v", err)
			}
			wif := priv.WIF(tc.net)
			decoded, err := PriKeyFromWIF(wif, tc.net)
			if err != nil {
				t.Fatalf("PriKeyFromWIF: %v", err)
			}
			if !bytes.Equal(decoded.Bytes(), priv.Bytes()) {
				t.Fatalf("WIF round trip mismatch")
			}
		})
	}
}

func TestWIFRejectsWrongNetwork(t *testing.T) {
	priv, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	wif := priv.WIF(Mainnet)
	if _, err := PriKeyFromWIF(wif, Testnet); err == nil {
		t.Fatalf("PriKeyFromWIF accepted a mainnet WIF under testnet")
	}
}

// Known-answer vector: private key 1 (the generator point itself).
func TestPubKeyKnownVector(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 0x01
	priv, err := PriKeyFromBytes(one)
	if err != nil {
		t.Fatalf("PriKeyFromBytes: %v", err)
	}
	pub := priv.PubKey()
	wantX := "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	wantCompressed := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if hex.EncodeToString(pub.X()) != wantX {
		t.Fatalf("X() = %s, want %s", hex.EncodeToString(pub.X()), wantX)
	}
	if hex.EncodeToString(pub.SEC1Compressed()) != wantCompressed {
		t.Fatalf("SEC1Compressed() = %s, want %s", hex.EncodeToString(pub.SEC1Compressed()), wantCompressed)
	}
}

func TestSEC1RoundTrip(t *testing.T) {
	priv, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	pub := priv.PubKey()

	compressed := pub.SEC1Compressed()
	decoded, err := PubKeyFromSEC1(compressed)
	if err != nil {
		t.Fatalf("PubKeyFromSEC1(compressed): %v", err)
	}
	if !bytes.Equal(decoded.SEC1Compressed(), compressed) {
		t.Fatalf("compressed round trip mismatch")
	}

	uncompressed := pub.SEC1Uncompressed()
	decoded2, err := PubKeyFromSEC1(uncompressed)
	if err != nil {
		t.Fatalf("PubKeyFromSEC1(uncompressed): %v", err)
	}
	if !bytes.Equal(decoded2.SEC1Compressed(), compressed) {
		t.Fatalf("uncompressed round trip produced a different point")
	}
}

func TestPubKeyFromXOnlyAlwaysEven(t *testing.T) {
	priv, err := GeneratePriKey()
	if err != nil {
		t.Fatalf("GeneratePriKey: %v", err)
	}
	pub := priv.PubKey()
	x := pub.X()

	decoded, err := PubKeyFromXOnly(x)
	if err != nil {
		t.Fatalf("PubKeyFromXOnly: %v", err)
	}
	if decoded.yIsOdd() {
		t.Fatalf("PubKeyFromXOnly returned an odd-Y point")
	}
	if !bytes.Equal(decoded.X(), x) {
		t.Fatalf("PubKeyFromXOnly changed the x-coordinate")
	}
}

func TestHash160KnownVector(t *testing.T) {
	// hash160("") = RIPEMD160(SHA256("")).
	got := Hash160(nil)
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	if hex.EncodeToString(got) != want {
		t.Fatalf("Hash160(nil) = %x, want %s", got, want)
	}
}
