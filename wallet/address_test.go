package wallet

import (
	"encoding/hex"
	"testing"
)

func testPriv(t *testing.T, seed byte) *PriKey {
	t.Helper()
	b := make([]byte, 32)
	b[31] = seed
	priv, err := PriKeyFromBytes(b)
	if err != nil {
		t.Fatalf("PriKeyFromBytes: %v", err)
	}
	return priv
}

func TestP2PKHAddressMainnet(t *testing.T) {
	priv := testPriv(t, 1)
	addr := P2PKHAddress(priv.PubKey(), Mainnet)
	// Well-known address for private key 1, compressed pubkey.
	want := "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"
	if addr != want {
		t.Fatalf("P2PKHAddress = %s, want %s", addr, want)
	}
}

func TestAddressesVaryByNetwork(t *testing.T) {
	priv := testPriv(t, 2)
	pub := priv.PubKey()

	main := P2PKHAddress(pub, Mainnet)
	test := P2PKHAddress(pub, Testnet)
	if main == test {
		t.Fatalf("P2PKHAddress produced the same address for mainnet and testnet")
	}
	if main[0] != '1' {
		t.Fatalf("mainnet P2PKH address %q does not start with '1'", main)
	}
}

func TestP2WPKHAddressRoundTripsThroughScriptPubKey(t *testing.T) {
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
			priv := testPriv(t, 3)
			pub := priv.PubKey()
			addr, err := P2WPKHAddress(pub, tc.net)
			if err != nil {
				t.Fatalf("P2WPKHAddress: %v", err)
			}
			spk, err := ScriptPubKeyFromAddress(addr, tc.net)
			if err != nil {
				t.Fatalf("ScriptPubKeyFromAddress: %v", err)
			}
			want := ScriptPubKeyP2WPKH(pub)
			if hex.EncodeToString(spk) != hex.EncodeToString(want) {
				t.Fatalf("ScriptPubKeyFromAddress = %x, want %x", spk, want)
			}
		})
	}
}

func TestP2SHP2WPKHAddress(t *testing.T) {
	priv := testPriv(t, 4)
	pub := priv.PubKey()
	addr := P2SHP2WPKHAddress(pub, Mainnet)
	if addr[0] != '3' {
		t.Fatalf("P2SH address %q does not start with '3'", addr)
	}
	typ, err := GetAddressType(addr, Mainnet)
	if err != nil {
		t.Fatalf("GetAddressType: %v", err)
	}
	if typ != AddressTypeP2SHP2WPKH {
		t.Fatalf("GetAddressType = %s, want %s", typ, AddressTypeP2SHP2WPKH)
	}
}

func TestP2SHP2MSRedeemScriptValidatesKN(t *testing.T) {
	pubs := []*PubKey{testPriv(t, 1).PubKey(), testPriv(t, 2).PubKey()}
	tt := []struct {
		name    string
		k       int
		pubs    []*PubKey
		wantErr bool
	}{
		{name: "1-of-2 ok", k: 1, pubs: pubs},
		{name: "2-of-2 ok", k: 2, pubs: pubs},
		{name: "k too large", k: 3, pubs: pubs, wantErr: true},
		{name: "k zero", k: 0, pubs: pubs, wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := P2SHP2MSRedeemScript(tc.k, tc.pubs)
			if tc.wantErr && err == nil {
				t.Fatalf("P2SHP2MSRedeemScript(%d, ...) = nil error, want error", tc.k)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("P2SHP2MSRedeemScript(%d, ...) unexpected error: %v", tc.k, err)
			}
		})
	}
}

func TestP2TRAddressBech32m(t *testing.T) {
	priv := testPriv(t, 5)
	addr, err := P2TRAddress(priv.PubKey(), nil, Mainnet)
	if err != nil {
		t.Fatalf("P2TRAddress: %v", err)
	}
	if len(addr) < 4 || addr[:4] != "bc1p" {
		t.Fatalf("P2TRAddress = %q, want bc1p prefix", addr)
	}
	typ, err := GetAddressType(addr, Mainnet)
	if err != nil {
		t.Fatalf("GetAddressType: %v", err)
	}
	if typ != AddressTypeP2TR {
		t.Fatalf("GetAddressType = %s, want %s", typ, AddressTypeP2TR)
	}
}

func TestGetAddressTypeP2PKH(t *testing.T) {
	priv := testPriv(t, 6)
	addr := P2PKHAddress(priv.PubKey(), Mainnet)
	typ, err := GetAddressType(addr, Mainnet)
	if err != nil {
		t.Fatalf("GetAddressType: %v", err)
	}
	if typ != AddressTypeP2PKH {
		t.Fatalf("GetAddressType = %s, want %s", typ, AddressTypeP2PKH)
	}
}

func TestValidateAddressRejectsGarbage(t *testing.T) {
	if err := ValidateAddress("not-an-address", Mainnet); err == nil {
		t.Fatalf("ValidateAddress accepted garbage input")
	}
}

func TestValidateAddressRejectsWrongNetworkPrefix(t *testing.T) {
	priv := testPriv(t, 7)
	addr := P2PKHAddress(priv.PubKey(), Testnet)
	if err := ValidateAddress(addr, Mainnet); err == nil {
		t.Fatalf("ValidateAddress accepted a testnet address under mainnet")
	}
}

func TestScriptPubKeyP2TR(t *testing.T) {
	var x [32]byte
	for i := range x {
		x[i] = byte(i)
	}
	spk := ScriptPubKeyP2TR(x)
	if len(spk) != 34 || spk[0] != OpTrue || spk[1] != 0x20 {
		t.Fatalf("ScriptPubKeyP2TR = %x, want OP_1 0x20 <32 bytes>", spk)
	}
}
