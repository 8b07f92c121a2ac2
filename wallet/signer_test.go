package wallet

import "testing"

func buildSpendTx(spk []byte, dummyIn *TxIn) *Transaction {
	tx := NewTransaction(2)
	tx.AddTxIn(dummyIn)
	tx.AddTxOut(&TxOut{Value: 40000, ScriptPubKey: spk})
	return tx
}

func TestP2PKHSignerSignVerify(t *testing.T) {
	priv := testPriv(t, 30)
	signer := NewP2PKHSigner(priv, Regtest)

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	der, consumed, err := ReadPush(tx.TxIn[0].ScriptSig)
	if err != nil {
		t.Fatalf("ReadPush(sig): %v", err)
	}
	pub, _, err := ReadPush(tx.TxIn[0].ScriptSig[consumed:])
	if err != nil {
		t.Fatalf("ReadPush(pubkey): %v", err)
	}

	digest, err := DigestLegacy(tx, 0, SighashAll, signer.ScriptPubKey())
	if err != nil {
		t.Fatalf("DigestLegacy: %v", err)
	}
	decodedPub, err := PubKeyFromSEC1(pub)
	if err != nil {
		t.Fatalf("PubKeyFromSEC1: %v", err)
	}
	sig := &ECDSASignature{}
	rLen := int(der[3])
	sLen := int(der[4+rLen+1])
	sig.R.SetByteSlice(der[4 : 4+rLen])
	sig.S.SetByteSlice(der[4+rLen+2 : 4+rLen+2+sLen])
	if !ECDSAVerify(decodedPub, digest, sig) {
		t.Fatalf("produced signature does not verify against the signed digest")
	}
}

func TestP2SHP2WPKHSignerProducesWitness(t *testing.T) {
	priv := testPriv(t, 31)
	signer := NewP2SHP2WPKHSigner(priv, Regtest)

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tx.TxIn[0].Witness) != 2 {
		t.Fatalf("Sign produced %d witness items, want 2", len(tx.TxIn[0].Witness))
	}
	if len(tx.TxIn[0].ScriptSig) == 0 {
		t.Fatalf("Sign left script_sig empty, want the redeem-script push")
	}
}

func TestP2WPKHSignerProducesWitnessOnlyNoScriptSig(t *testing.T) {
	priv := testPriv(t, 32)
	signer, err := NewP2WPKHSigner(priv, Regtest)
	if err != nil {
		t.Fatalf("NewP2WPKHSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tx.TxIn[0].ScriptSig) != 0 {
		t.Fatalf("Sign set a non-empty script_sig for a native segwit input")
	}
	if len(tx.TxIn[0].Witness) != 2 {
		t.Fatalf("Sign produced %d witness items, want 2", len(tx.TxIn[0].Witness))
	}
}

func TestP2TRSignerKeyPathSignVerify(t *testing.T) {
	priv := testPriv(t, 33)
	signer, err := NewP2TRSigner(priv, nil, Regtest)
	if err != nil {
		t.Fatalf("NewP2TRSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tx.TxIn[0].Witness) != 1 || len(tx.TxIn[0].Witness[0]) != 64 {
		t.Fatalf("Sign produced witness %v, want a single 64-byte signature", tx.TxIn[0].Witness)
	}

	digest, err := DigestSegwitV1KeyPath(tx, 0, SighashDefault, prevouts)
	if err != nil {
		t.Fatalf("DigestSegwitV1KeyPath: %v", err)
	}
	signingKey, err := TaprootSigningScalar(priv, nil)
	if err != nil {
		t.Fatalf("TaprootSigningScalar: %v", err)
	}
	var sig [64]byte
	copy(sig[:], tx.TxIn[0].Witness[0])
	if !SchnorrVerify(signingKey.PubKey(), digest, sig) {
		t.Fatalf("taproot signature does not verify against the signing key")
	}
}

func TestP2SHMultisigSignerNeedsKSignatures(t *testing.T) {
	priv1 := testPriv(t, 34)
	priv2 := testPriv(t, 35)
	pubs := []*PubKey{priv1.PubKey(), priv2.PubKey()}

	signer, err := NewP2SHMultisigSigner(2, pubs, []*PriKey{priv1, nil}, Regtest)
	if err != nil {
		t.Fatalf("NewP2SHMultisigSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err == nil {
		t.Fatalf("Sign succeeded with only 1 of 2 required private keys")
	}
}

func TestP2SHMultisigSignerSucceedsWithEnoughKeys(t *testing.T) {
	priv1 := testPriv(t, 36)
	priv2 := testPriv(t, 37)
	pubs := []*PubKey{priv1.PubKey(), priv2.PubKey()}

	signer, err := NewP2SHMultisigSigner(2, pubs, []*PriKey{priv1, priv2}, Regtest)
	if err != nil {
		t.Fatalf("NewP2SHMultisigSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if tx.TxIn[0].ScriptSig[0] != OpFalse {
		t.Fatalf("multisig script_sig missing the CHECKMULTISIG off-by-one OP_0")
	}
}

func TestP2TRScriptPathSignerP2PKLeaf(t *testing.T) {
	internal := testPriv(t, 38)
	leafKey := testPriv(t, 39)
	leafScript := NewScriptBuilder().AddData(leafKey.PubKey().X()).AddOp(OpCheckSig).Bytes()
	leaf := NewTapLeaf(leafScript)

	signer, err := NewP2TRScriptPathSigner(internal.PubKey(), leafScript, leaf.Hash()[:], nil, []*PriKey{leafKey}, Regtest)
	if err != nil {
		t.Fatalf("NewP2TRScriptPathSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	witness := tx.TxIn[0].Witness
	if len(witness) != 3 {
		t.Fatalf("Sign produced %d witness items, want 3 (sig, leaf script, control block)", len(witness))
	}
	if string(witness[1]) != string(leafScript) {
		t.Fatalf("witness[1] = % x, want the leaf script", witness[1])
	}

	digest, err := DigestSegwitV1ScriptPath(tx, 0, SighashDefault, prevouts, leaf.Hash())
	if err != nil {
		t.Fatalf("DigestSegwitV1ScriptPath: %v", err)
	}
	var sig [64]byte
	copy(sig[:], witness[0])
	if !SchnorrVerify(leafKey.PubKey(), digest, sig) {
		t.Fatalf("script-path signature does not verify against the leaf key")
	}
}

func TestP2TRScriptPathSignerChecksigAddLeafOrdersWitnessInReverse(t *testing.T) {
	internal := testPriv(t, 40)
	key1 := testPriv(t, 41)
	key2 := testPriv(t, 42)
	leafScript := NewScriptBuilder().
		AddData(key1.PubKey().X()).AddOp(OpCheckSig).
		AddData(key2.PubKey().X()).AddOp(OpCheckSigAdd).
		AddInt(2).AddOp(OpEqual).Bytes()
	leaf := NewTapLeaf(leafScript)

	signer, err := NewP2TRScriptPathSigner(internal.PubKey(), leafScript, leaf.Hash()[:], nil, []*PriKey{key1, key2}, Regtest)
	if err != nil {
		t.Fatalf("NewP2TRScriptPathSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	witness := tx.TxIn[0].Witness
	if len(witness) != 4 {
		t.Fatalf("Sign produced %d witness items, want 4 (2 sigs, leaf script, control block)", len(witness))
	}

	digest, err := DigestSegwitV1ScriptPath(tx, 0, SighashDefault, prevouts, leaf.Hash())
	if err != nil {
		t.Fatalf("DigestSegwitV1ScriptPath: %v", err)
	}
	var sig2, sig1 [64]byte
	copy(sig2[:], witness[0])
	copy(sig1[:], witness[1])
	if !SchnorrVerify(key2.PubKey(), digest, sig2) {
		t.Fatalf("witness[0] does not verify against the second (CHECKSIGADD) key")
	}
	if !SchnorrVerify(key1.PubKey(), digest, sig1) {
		t.Fatalf("witness[1] does not verify against the first (CHECKSIG) key")
	}
}

func TestP2TRScriptPathSignerRejectsMissingKey(t *testing.T) {
	internal := testPriv(t, 43)
	key1 := testPriv(t, 44)
	leafScript := NewScriptBuilder().AddData(key1.PubKey().X()).AddOp(OpCheckSig).Bytes()
	leaf := NewTapLeaf(leafScript)

	signer, err := NewP2TRScriptPathSigner(internal.PubKey(), leafScript, leaf.Hash()[:], nil, []*PriKey{nil}, Regtest)
	if err != nil {
		t.Fatalf("NewP2TRScriptPathSigner: %v", err)
	}

	var txid [32]byte
	op := OutPoint{Txid: txid, Vout: 0}
	tx := buildSpendTx([]byte{0x01}, signer.DummyTxIn(op))
	prevouts := []PrevOut{{Value: 50000, ScriptPubKey: signer.ScriptPubKey()}}

	if err := signer.Sign(tx, 0, prevouts); err == nil {
		t.Fatalf("Sign succeeded with a nil private key")
	}
}
