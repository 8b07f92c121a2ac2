package wallet

import (
	"bytes"
	"testing"
)

func TestTransactionSerializeLegacyRoundTrip(t *testing.T) {
	tx := NewTransaction(2)
	var txid [32]byte
	txid[0] = 0xaa
	tx.AddTxIn(&TxIn{PreviousOutPoint: OutPoint{Txid: txid, Vout: 0}, ScriptSig: []byte{0x01, 0x02}, Sequence: 0xffffffff})
	tx.AddTxOut(&TxOut{Value: 50000, ScriptPubKey: []byte{OpDup, OpHash160}})
	tx.LockTime = 123

	raw := tx.Serialize()
	if tx.IsSegWit() {
		t.Fatalf("transaction with no witness data reports IsSegWit() = true")
	}

	parsed, err := DeserializeTransaction(raw)
	if err != nil {
		t.Fatalf("DeserializeTransaction: %v", err)
	}
	if parsed.Version != tx.Version || parsed.LockTime != tx.LockTime {
		t.Fatalf("round trip changed version/locktime: got %+v", parsed)
	}
	if len(parsed.TxIn) != 1 || len(parsed.TxOut) != 1 {
		t.Fatalf("round trip changed input/output count: %+v", parsed)
	}
	if !bytes.Equal(parsed.TxIn[0].ScriptSig, tx.TxIn[0].ScriptSig) {
		t.Fatalf("round trip changed script_sig")
	}
	if parsed.TxOut[0].Value != tx.TxOut[0].Value {
		t.Fatalf("round trip changed output value")
	}
}

func TestTransactionSerializeSegwitRoundTrip(t *testing.T) {
	tx := NewTransaction(2)
	var txid [32]byte
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Txid: txid, Vout: 1},
		Sequence:         0xffffffff,
		Witness:          [][]byte{{0x01, 0x02, 0x03}, {0x04}},
	})
	tx.AddTxOut(&TxOut{Value: 1000, ScriptPubKey: []byte{OpFalse, 0x14}})

	if !tx.IsSegWit() {
		t.Fatalf("transaction with witness data reports IsSegWit() = false")
	}

	raw := tx.Serialize()
	if raw[4] != 0x00 || raw[5] != 0x01 {
		t.Fatalf("segwit serialization is missing the marker/flag bytes")
	}

	parsed, err := DeserializeTransaction(raw)
	if err != nil {
		t.Fatalf("DeserializeTransaction: %v", err)
	}
	if len(parsed.TxIn[0].Witness) != 2 {
		t.Fatalf("round trip lost witness items: got %d, want 2", len(parsed.TxIn[0].Witness))
	}
	if !bytes.Equal(parsed.TxIn[0].Witness[0], tx.TxIn[0].Witness[0]) {
		t.Fatalf("round trip changed witness item 0")
	}
}

func TestTxidIgnoresWitnessData(t *testing.T) {
	base := NewTransaction(2)
	var txid [32]byte
	base.AddTxIn(&TxIn{PreviousOutPoint: OutPoint{Txid: txid, Vout: 0}, Sequence: 0xffffffff})
	base.AddTxOut(&TxOut{Value: 100, ScriptPubKey: []byte{0x01}})

	withWitness := NewTransaction(2)
	withWitness.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Txid: txid, Vout: 0},
		Sequence:         0xffffffff,
		Witness:          [][]byte{{0xde, 0xad}},
	})
	withWitness.AddTxOut(&TxOut{Value: 100, ScriptPubKey: []byte{0x01}})

	if base.Txid() != withWitness.Txid() {
		t.Fatalf("Txid() changed when witness data was added, want segwit-malleability immunity")
	}
}

func TestWeightAndVBytes(t *testing.T) {
	tx := NewTransaction(2)
	var txid [32]byte
	tx.AddTxIn(&TxIn{PreviousOutPoint: OutPoint{Txid: txid, Vout: 0}, Sequence: 0xffffffff})
	tx.AddTxOut(&TxOut{Value: 100, ScriptPubKey: []byte{0x01}})

	legacyWeight := tx.Weight()
	if legacyWeight != len(tx.SerializeLegacy())*4 {
		t.Fatalf("Weight() for non-segwit tx = %d, want 4x legacy size", legacyWeight)
	}

	tx.TxIn[0].Witness = [][]byte{{0x01, 0x02}}
	segwitWeight := tx.Weight()
	if segwitWeight <= legacyWeight {
		t.Fatalf("Weight() did not increase after adding witness data")
	}
	if tx.VBytes() != (tx.Weight()+3)/4 {
		t.Fatalf("VBytes() does not match ceil(weight/4)")
	}
}

func TestReverseIsInvolution(t *testing.T) {
	var b [32]byte
	for i := range b {
		b[i] = byte(i)
	}
	once := Reverse(b)
	if once == b {
		t.Fatalf("Reverse did not change the byte order")
	}
	twice := Reverse(once)
	if twice != b {
		t.Fatalf("Reverse(Reverse(b)) != b")
	}
}

func TestDeserializeTransactionRejectsTrailingBytes(t *testing.T) {
	tx := NewTransaction(2)
	var txid [32]byte
	tx.AddTxIn(&TxIn{PreviousOutPoint: OutPoint{Txid: txid, Vout: 0}, Sequence: 0xffffffff})
	tx.AddTxOut(&TxOut{Value: 100, ScriptPubKey: []byte{0x01}})
	raw := append(tx.Serialize(), 0xff)
	if _, err := DeserializeTransaction(raw); err == nil {
		t.Fatalf("DeserializeTransaction accepted trailing garbage bytes")
	}
}

func TestDeserializeTransactionRejectsShortInput(t *testing.T) {
	if _, err := DeserializeTransaction([]byte{0x01, 0x02}); err == nil {
		t.Fatalf("DeserializeTransaction accepted a too-short input")
	}
}
