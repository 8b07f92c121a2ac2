package wallet

import "fmt"

// AddressType names the output script family a wallet/signer binds to.
type AddressType string

const (
	AddressTypeP2PKH     AddressType = "p2pkh"
	AddressTypeP2SHP2MS  AddressType = "p2sh-p2ms"
	AddressTypeP2SHP2WPKH AddressType = "p2sh-p2wpkh"
	AddressTypeP2WPKH    AddressType = "p2wpkh"
	AddressTypeP2TR      AddressType = "p2tr"
)

// P2PKHAddress: Base58Check(p2pkh_version || hash160(pubkey)).
func P2PKHAddress(pub *PubKey, net Network) string {
	h := Hash160(pub.SEC1Compressed())
	payload := append([]byte{net.P2PKHVersion}, h...)
	return Base58CheckEncode(payload)
}

// P2SHAddress: Base58Check(p2sh_version || hash160(redeemScript)).
func P2SHAddress(redeemScript []byte, net Network) string {
	h := Hash160(redeemScript)
	payload := append([]byte{net.P2SHVersion}, h...)
	return Base58CheckEncode(payload)
}

// P2WPKHAddress: Bech32(hrp, v=0, hash160(pubkey)).
func P2WPKHAddress(pub *PubKey, net Network) (string, error) {
	h := Hash160(pub.SEC1Compressed())
	return SegwitAddrEncode(net.Bech32HRP, 0, h)
}

// P2SHP2WPKHRedeemScript is the witness program wrapped for P2SH: 0x00 0x14 <hash160(pubkey)>.
func P2SHP2WPKHRedeemScript(pub *PubKey) []byte {
	h := Hash160(pub.SEC1Compressed())
	return append([]byte{OpFalse, 0x14}, h...)
}

// P2SHP2WPKHAddress wraps a P2WPKH program in a P2SH address.
func P2SHP2WPKHAddress(pub *PubKey, net Network) string {
	return P2SHAddress(P2SHP2WPKHRedeemScript(pub), net)
}

// P2SHP2MSRedeemScript builds a bare k-of-n multisig script:
// OP_k <pk1>...<pkn> OP_n OP_CHECKMULTISIG.
func P2SHP2MSRedeemScript(k int, pubs []*PubKey) ([]byte, error) {
	n := len(pubs)
	if k < 1 || k > n || n > 16 {
		return nil, fmt.Errorf("wallet: multisig requires 1<=k<=n<=16, got k=%d n=%d", k, n)
	}
	b := NewScriptBuilder().AddInt(int64(k))
	for _, p := range pubs {
		b.AddData(p.SEC1Compressed())
	}
	b.AddInt(int64(n)).AddOp(OpCheckMultiSig)
	return b.Bytes(), nil
}

// P2SHP2MSAddress wraps a bare multisig redeem script in a P2SH address.
func P2SHP2MSAddress(redeemScript []byte, net Network) string {
	return P2SHAddress(redeemScript, net)
}

// P2TRAddress computes the taproot tweak for internalKey (with an optional
// MAST root, nil for key-path-only) and Bech32m-encodes the output key
func P2TRAddress(internalPub *PubKey, merkleRoot []byte, net Network) (string, error) {
	internalX := schnorrImplicitPub(internalPub).X.Bytes()
	outputX, _, _, err := TaprootTweak(internalX, merkleRoot)
	if err != nil {
		return "", err
	}
	return SegwitAddrEncode(net.Bech32HRP, 1, outputX[:])
}

// ScriptPubKeyP2PKH builds DUP HASH160 <h> EQUALVERIFY CHECKSIG.
func ScriptPubKeyP2PKH(pub *PubKey) []byte {
	h := Hash160(pub.SEC1Compressed())
	return NewScriptBuilder().
		AddOp(OpDup).AddOp(OpHash160).AddData(h).AddOp(OpEqualVerify).AddOp(OpCheckSig).Bytes()
}

// ScriptPubKeyP2SH builds HASH160 <h20> EQUAL.
func ScriptPubKeyP2SH(redeemScript []byte) []byte {
	h := Hash160(redeemScript)
	return NewScriptBuilder().AddOp(OpHash160).AddData(h).AddOp(OpEqual).Bytes()
}

// ScriptPubKeyP2WPKH builds OP_0 <pkh20>.
func ScriptPubKeyP2WPKH(pub *PubKey) []byte {
	h := Hash160(pub.SEC1Compressed())
	return append([]byte{OpFalse, 0x14}, h...)
}

// ScriptPubKeyP2TR builds OP_1 <x(Q)>.
func ScriptPubKeyP2TR(outputX [32]byte) []byte {
	return append([]byte{OpTrue, 0x20}, outputX[:]...)
}

// ScriptPubKeyFromAddress inverts the address derivers: address -> locking
// script bytes.
func ScriptPubKeyFromAddress(addr string, net Network) ([]byte, error) {
	if version, program, ok := tryDecodeSegwit(addr, net); ok {
		if version == 0 {
			return append([]byte{OpFalse, byte(len(program))}, program...), nil
		}
		return append([]byte{OpTrue, byte(len(program))}, program...), nil
	}

	payload, err := Base58CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("wallet: address %q is neither valid bech32(m) nor base58check: %w", addr, err)
	}
	if len(payload) != 21 {
		return nil, fmt.Errorf("wallet: base58check address payload has unexpected length %d", len(payload))
	}
	version, hash := payload[0], payload[1:]
	switch version {
	case net.P2PKHVersion:
		return append([]byte{OpDup, OpHash160, 0x14}, append(append([]byte{}, hash...), OpEqualVerify, OpCheckSig)...), nil
	case net.P2SHVersion:
		return append([]byte{OpHash160, 0x14}, append(append([]byte{}, hash...), OpEqual)...), nil
	default:
		return nil, fmt.Errorf("wallet: address version byte 0x%02x does not match network %q", version, net.Name)
	}
}

func tryDecodeSegwit(addr string, net Network) (version int, program []byte, ok bool) {
	version, program, err := SegwitAddrDecode(net.Bech32HRP, addr)
	if err != nil {
		return 0, nil, false
	}
	return version, program, true
}

// GetAddressType classifies an address string by its decoded shape.
func GetAddressType(addr string, net Network) (AddressType, error) {
	if version, program, ok := tryDecodeSegwit(addr, net); ok {
		switch {
		case version == 0 && len(program) == 20:
			return AddressTypeP2WPKH, nil
		case version == 1 && len(program) == 32:
			return AddressTypeP2TR, nil
		default:
			return "", fmt.Errorf("wallet: unsupported segwit program version=%d len=%d", version, len(program))
		}
	}

	payload, err := Base58CheckDecode(addr)
	if err != nil {
		return "", fmt.Errorf("wallet: %q is not a recognized address: %w", addr, err)
	}
	if len(payload) != 21 {
		return "", fmt.Errorf("wallet: base58check address payload has unexpected length %d", len(payload))
	}
	switch payload[0] {
	case net.P2PKHVersion:
		return AddressTypeP2PKH, nil
	case net.P2SHVersion:
		return AddressTypeP2SHP2WPKH, nil // P2SH covers both P2SH-P2WPKH and P2SH-P2MS; caller disambiguates by context
	default:
		return "", fmt.Errorf("wallet: address version byte 0x%02x does not match network %q", payload[0], net.Name)
	}
}

// ValidateAddress reports whether addr is a well-formed address for net,
// surfacing the specific codec error otherwise.
func ValidateAddress(addr string, net Network) error {
	_, err := GetAddressType(addr, net)
	return err
}
