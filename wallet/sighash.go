package wallet

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// sha256Single is a single (not double) SHA-256, used by the taproot digest
// per BIP-341 — unlike the legacy and segwit-v0 digests, which hash256.
func sha256Single(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// HashType is the sighash byte appended to a signature, selecting which
// inputs and outputs it commits to
type HashType byte

const (
	SighashDefault      HashType = 0x00 // taproot only; behaves as ALL
	SighashAll          HashType = 0x01
	SighashNone         HashType = 0x02
	SighashSingle       HashType = 0x03
	SighashAnyOneCanPay HashType = 0x80
)

func (ht HashType) anyOneCanPay() bool { return ht&SighashAnyOneCanPay != 0 }

// outputMode returns 1 (ALL), 2 (NONE), or 3 (SINGLE); DEFAULT (0) behaves
// as ALL.
func (ht HashType) outputMode() byte {
	m := byte(ht) & 0x03
	if m == 0 {
		return byte(SighashAll)
	}
	return m
}

func (ht HashType) Valid() bool {
	m := byte(ht) & 0x03
	if m == 0 && ht != SighashDefault {
		return false
	}
	return m <= byte(SighashSingle)
}

func htLE4(ht HashType) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(ht))
	return buf
}

func le4(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func le8(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func cloneTxOut(o *TxOut) *TxOut {
	return &TxOut{Value: o.Value, ScriptPubKey: append([]byte{}, o.ScriptPubKey...)}
}

// DigestLegacy computes the pre-BIP-143 sighash.
func DigestLegacy(tx *Transaction, index int, ht HashType, scriptCode []byte) ([32]byte, error) {
	var zero [32]byte
	if index < 0 || index >= len(tx.TxIn) {
		return zero, fmt.Errorf("sighash: input index %d out of range", index)
	}
	if !ht.Valid() {
		return zero, fmt.Errorf("sighash: invalid hash type byte 0x%02x", byte(ht))
	}
	if ht.outputMode() == byte(SighashSingle) && index >= len(tx.TxOut) {
		return zero, fmt.Errorf("sighash: SINGLE with no matching output at index %d", index)
	}

	work := &Transaction{Version: tx.Version, LockTime: tx.LockTime}
	for i, in := range tx.TxIn {
		ss := []byte{}
		if i == index {
			ss = scriptCode
		}
		work.TxIn = append(work.TxIn, &TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			ScriptSig:        ss,
			Sequence:         in.Sequence,
		})
	}
	for _, out := range tx.TxOut {
		work.TxOut = append(work.TxOut, cloneTxOut(out))
	}

	if ht.anyOneCanPay() {
		work.TxIn = []*TxIn{work.TxIn[index]}
	}

	switch ht.outputMode() {
	case byte(SighashNone):
		work.TxOut = nil
	case byte(SighashSingle):
		work.TxOut = work.TxOut[:index+1]
	}

	m := append(work.SerializeLegacy(), htLE4(ht)...)
	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(m))
	return out, nil
}

// PrevOut is the value/scriptPubKey pair an input spends, supplied by the
// caller (fetched from the node via gettxout / getrawtransaction —
// this package never fetches it itself).
type PrevOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// DigestSegwitV0 computes the BIP-143 sighash. scriptCode must already
// carry its own CompactSize length prefix, built by the caller (the signer
// strategy).
func DigestSegwitV0(tx *Transaction, index int, ht HashType, scriptCode []byte, inputValue uint64) ([32]byte, error) {
	var zero [32]byte
	if index < 0 || index >= len(tx.TxIn) {
		return zero, fmt.Errorf("sighash: input index %d out of range", index)
	}
	if !ht.Valid() {
		return zero, fmt.Errorf("sighash: invalid hash type byte 0x%02x", byte(ht))
	}

	hashPrevouts := make([]byte, 32)
	if !ht.anyOneCanPay() {
		var buf []byte
		for _, in := range tx.TxIn {
			buf = append(buf, in.PreviousOutPoint.bytes()...)
		}
		hashPrevouts = chainhash.DoubleHashB(buf)
	}

	hashSequence := make([]byte, 32)
	if !ht.anyOneCanPay() && ht.outputMode() == byte(SighashAll) {
		var buf []byte
		for _, in := range tx.TxIn {
			buf = append(buf, le4(in.Sequence)...)
		}
		hashSequence = chainhash.DoubleHashB(buf)
	}

	hashOutputs := make([]byte, 32)
	switch {
	case ht.outputMode() == byte(SighashAll):
		var buf []byte
		for _, out := range tx.TxOut {
			buf = append(buf, out.bytes()...)
		}
		hashOutputs = chainhash.DoubleHashB(buf)
	case ht.outputMode() == byte(SighashSingle) && index < len(tx.TxOut):
		hashOutputs = chainhash.DoubleHashB(tx.TxOut[index].bytes())
	}

	var m []byte
	m = append(m, le4(uint32(tx.Version))...)
	m = append(m, hashPrevouts...)
	m = append(m, hashSequence...)
	m = append(m, tx.TxIn[index].PreviousOutPoint.bytes()...)
	m = append(m, scriptCode...)
	m = append(m, le8(inputValue)...)
	m = append(m, le4(tx.TxIn[index].Sequence)...)
	m = append(m, hashOutputs...)
	m = append(m, le4(tx.LockTime)...)
	m = append(m, htLE4(ht)...)

	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(m))
	return out, nil
}

// DigestSegwitV1KeyPath computes the BIP-341 key-path spend digest.
// prevouts must be parallel to tx.TxIn (the value/scriptPubKey each input
// spends, as fetched externally).
func DigestSegwitV1KeyPath(tx *Transaction, index int, ht HashType, prevouts []PrevOut) ([32]byte, error) {
	return digestSegwitV1(tx, index, ht, prevouts, nil)
}

// DigestSegwitV1ScriptPath computes the same digest as the key-path digest,
// plus the executed leaf's hash, key-version byte, and codeseparator placeholder.
func DigestSegwitV1ScriptPath(tx *Transaction, index int, ht HashType, prevouts []PrevOut, leafHash [32]byte) ([32]byte, error) {
	return digestSegwitV1(tx, index, ht, prevouts, &leafHash)
}

func digestSegwitV1(tx *Transaction, index int, ht HashType, prevouts []PrevOut, leafHash *[32]byte) ([32]byte, error) {
	var zero [32]byte
	if index < 0 || index >= len(tx.TxIn) {
		return zero, fmt.Errorf("sighash: input index %d out of range", index)
	}
	if len(prevouts) != len(tx.TxIn) {
		return zero, fmt.Errorf("sighash: need exactly one prevout per input, got %d for %d inputs", len(prevouts), len(tx.TxIn))
	}
	if !ht.Valid() {
		return zero, fmt.Errorf("sighash: invalid hash type byte 0x%02x", byte(ht))
	}
	if ht.outputMode() == byte(SighashSingle) && index >= len(tx.TxOut) {
		return zero, fmt.Errorf("sighash: SINGLE with no matching output at index %d", index)
	}

	var m []byte
	m = append(m, 0x00)    // sighash epoch
	m = append(m, byte(ht))
	m = append(m, le4(uint32(tx.Version))...)
	m = append(m, le4(tx.LockTime)...)

	if !ht.anyOneCanPay() {
		var prevoutsBuf, valuesBuf, spksBuf, seqBuf []byte
		for i, in := range tx.TxIn {
			prevoutsBuf = append(prevoutsBuf, in.PreviousOutPoint.bytes()...)
			valuesBuf = append(valuesBuf, le8(prevouts[i].Value)...)
			spksBuf = append(spksBuf, CompactSizeEncode(uint64(len(prevouts[i].ScriptPubKey)))...)
			spksBuf = append(spksBuf, prevouts[i].ScriptPubKey...)
			seqBuf = append(seqBuf, le4(in.Sequence)...)
		}
		shaPrevouts := sha256Single(prevoutsBuf)
		shaValues := sha256Single(valuesBuf)
		shaSpks := sha256Single(spksBuf)
		shaSequences := sha256Single(seqBuf)
		m = append(m, shaPrevouts[:]...)
		m = append(m, shaValues[:]...)
		m = append(m, shaSpks[:]...)
		m = append(m, shaSequences[:]...)
	}

	if ht.outputMode() == byte(SighashAll) {
		var buf []byte
		for _, out := range tx.TxOut {
			buf = append(buf, out.bytes()...)
		}
		shaOutputs := sha256Single(buf)
		m = append(m, shaOutputs[:]...)
	}

	spendType := byte(0)
	if leafHash != nil {
		spendType |= 0x02
	}
	m = append(m, spendType)

	if ht.anyOneCanPay() {
		in := tx.TxIn[index]
		m = append(m, in.PreviousOutPoint.bytes()...)
		m = append(m, le8(prevouts[index].Value)...)
		m = append(m, CompactSizeEncode(uint64(len(prevouts[index].ScriptPubKey)))...)
		m = append(m, prevouts[index].ScriptPubKey...)
		m = append(m, le4(in.Sequence)...)
	} else {
		m = append(m, le4(uint32(index))...)
	}

	if ht.outputMode() == byte(SighashSingle) {
		shaOut := sha256Single(tx.TxOut[index].bytes())
		m = append(m, shaOut[:]...)
	}

	if leafHash != nil {
		m = append(m, leafHash[:]...)
		m = append(m, 0x00)             // key version
		m = append(m, 0xff, 0xff, 0xff, 0xff) // codeseparator position placeholder
	}

	// Size invariant (BIP-341): 1 + 174 bytes, -49 if ANYONECANPAY, -32 if
	// SIGHASH_NONE, +37 if script-path. Catches a missing/extra field before
	// it silently produces a digest nobody can ever satisfy.
	expected := 175
	if ht.anyOneCanPay() {
		expected -= 49
	}
	if ht.outputMode() == byte(SighashNone) {
		expected -= 32
	}
	if leafHash != nil {
		expected += 37
	}
	if len(m) != expected {
		return zero, fmt.Errorf("sighash: internal error: taproot digest preimage is %d bytes, want %d", len(m), expected)
	}

	return TaggedHash("TapSighash", m), nil
}
