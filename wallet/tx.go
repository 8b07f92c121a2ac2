package wallet

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutPoint references a previous transaction output. Txid is stored in
// internal byte order (little-endian of the displayed hex); callers
// at an RPC or display boundary must Reverse() it exactly once.
type OutPoint struct {
	Txid [32]byte
	Vout uint32
}

func (o OutPoint) Equal(other OutPoint) bool {
	return o.Txid == other.Txid && o.Vout == other.Vout
}

func (o OutPoint) bytes() []byte {
	buf := make([]byte, 36)
	copy(buf[:32], o.Txid[:])
	binary.LittleEndian.PutUint32(buf[32:], o.Vout)
	return buf
}

// TxIn is an input: the outpoint it spends, its unlocking script_sig, its
// sequence number, and (iff segwit) a witness stack.
type TxIn struct {
	PreviousOutPoint OutPoint
	ScriptSig        []byte
	Sequence         uint32
	Witness          [][]byte
}

func (in *TxIn) HasWitness() bool { return len(in.Witness) > 0 }

func (in *TxIn) legacyBytes() []byte {
	var buf []byte
	buf = append(buf, in.PreviousOutPoint.bytes()...)
	buf = append(buf, CompactSizeEncode(uint64(len(in.ScriptSig)))...)
	buf = append(buf, in.ScriptSig...)
	seq := make([]byte, 4)
	binary.LittleEndian.PutUint32(seq, in.Sequence)
	return append(buf, seq...)
}

func (in *TxIn) witnessBytes() []byte {
	buf := CompactSizeEncode(uint64(len(in.Witness)))
	for _, item := range in.Witness {
		buf = append(buf, CompactSizeEncode(uint64(len(item)))...)
		buf = append(buf, item...)
	}
	return buf
}

// TxOut is a value plus its locking script.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

func (out *TxOut) bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, out.Value)
	buf = append(buf, CompactSizeEncode(uint64(len(out.ScriptPubKey)))...)
	return append(buf, out.ScriptPubKey...)
}

// Transaction is the core data model: a version, an ordered list of
// inputs and outputs, and a locktime.
type Transaction struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

func NewTransaction(version int32) *Transaction {
	return &Transaction{Version: version}
}

func (tx *Transaction) AddTxIn(in *TxIn)   { tx.TxIn = append(tx.TxIn, in) }
func (tx *Transaction) AddTxOut(out *TxOut) { tx.TxOut = append(tx.TxOut, out) }

// IsSegWit reports whether any input carries a non-empty witness.
func (tx *Transaction) IsSegWit() bool {
	for _, in := range tx.TxIn {
		if in.HasWitness() {
			return true
		}
	}
	return false
}

func (tx *Transaction) versionBytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(tx.Version))
	return buf
}

func (tx *Transaction) locktimeBytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, tx.LockTime)
	return buf
}

// SerializeLegacy always uses the legacy (non-segwit) form, regardless of
// whether inputs carry witness data. This is what the txid is always hashed
// from
func (tx *Transaction) SerializeLegacy() []byte {
	var buf []byte
	buf = append(buf, tx.versionBytes()...)
	buf = append(buf, CompactSizeEncode(uint64(len(tx.TxIn)))...)
	for _, in := range tx.TxIn {
		buf = append(buf, in.legacyBytes()...)
	}
	buf = append(buf, CompactSizeEncode(uint64(len(tx.TxOut)))...)
	for _, out := range tx.TxOut {
		buf = append(buf, out.bytes()...)
	}
	return append(buf, tx.locktimeBytes()...)
}

// Serialize picks segwit form (with the 0x00 0x01 marker/flag and the
// per-input witness stacks) iff the transaction has any witness data,
// otherwise legacy form — invariant.
func (tx *Transaction) Serialize() []byte {
	if !tx.IsSegWit() {
		return tx.SerializeLegacy()
	}

	var buf []byte
	buf = append(buf, tx.versionBytes()...)
	buf = append(buf, 0x00, 0x01)
	buf = append(buf, CompactSizeEncode(uint64(len(tx.TxIn)))...)
	for _, in := range tx.TxIn {
		buf = append(buf, in.legacyBytes()...)
	}
	buf = append(buf, CompactSizeEncode(uint64(len(tx.TxOut)))...)
	for _, out := range tx.TxOut {
		buf = append(buf, out.bytes()...)
	}
	for _, in := range tx.TxIn {
		buf = append(buf, in.witnessBytes()...)
	}
	return append(buf, tx.locktimeBytes()...)
}

// Txid is hash256 of the legacy serialization, regardless of form, stored in
// internal (little-endian) byte order.
func (tx *Transaction) Txid() [32]byte {
	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(tx.SerializeLegacy()))
	return out
}

// Weight and VBytes compute weight = 4*|legacy| + 1*|witness-only
// bytes|; vbytes = ceil(weight/4).
func (tx *Transaction) Weight() int {
	legacy := len(tx.SerializeLegacy())
	if !tx.IsSegWit() {
		return legacy * 4
	}
	witnessOnly := 2 // marker + flag
	for _, in := range tx.TxIn {
		witnessOnly += len(in.witnessBytes())
	}
	return legacy*4 + witnessOnly
}

func (tx *Transaction) VBytes() int {
	w := tx.Weight()
	return (w + 3) / 4
}

// DeserializeTransaction parses either wire form, dispatching on the flag
// byte at position 4 (0x00 iff segwit).
func DeserializeTransaction(b []byte) (*Transaction, error) {
	if len(b) < 5 {
		return nil, fmt.Errorf("wallet: transaction too short")
	}
	tx := &Transaction{Version: int32(binary.LittleEndian.Uint32(b[:4]))}
	off := 4
	segwit := b[4] == 0x00
	if segwit {
		if len(b) < 6 || b[5] != 0x01 {
			return nil, fmt.Errorf("wallet: invalid segwit marker/flag")
		}
		off = 6
	}

	vinCount, n, err := CompactSizeDecode(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wallet: reading vin count: %w", err)
	}
	off += n

	for i := uint64(0); i < vinCount; i++ {
		in := &TxIn{}
		if off+36 > len(b) {
			return nil, fmt.Errorf("wallet: short read for outpoint")
		}
		copy(in.PreviousOutPoint.Txid[:], b[off:off+32])
		in.PreviousOutPoint.Vout = binary.LittleEndian.Uint32(b[off+32 : off+36])
		off += 36

		ssLen, n, err := CompactSizeDecode(b[off:])
		if err != nil {
			return nil, fmt.Errorf("wallet: reading script_sig length: %w", err)
		}
		off += n
		if off+int(ssLen) > len(b) {
			return nil, fmt.Errorf("wallet: short read for script_sig")
		}
		in.ScriptSig = append([]byte{}, b[off:off+int(ssLen)]...)
		off += int(ssLen)

		if off+4 > len(b) {
			return nil, fmt.Errorf("wallet: short read for sequence")
		}
		in.Sequence = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4

		tx.TxIn = append(tx.TxIn, in)
	}

	voutCount, n, err := CompactSizeDecode(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wallet: reading vout count: %w", err)
	}
	off += n

	for i := uint64(0); i < voutCount; i++ {
		if off+8 > len(b) {
			return nil, fmt.Errorf("wallet: short read for value")
		}
		value := binary.LittleEndian.Uint64(b[off : off+8])
		off += 8

		spkLen, n, err := CompactSizeDecode(b[off:])
		if err != nil {
			return nil, fmt.Errorf("wallet: reading scriptPubKey length: %w", err)
		}
		off += n
		if off+int(spkLen) > len(b) {
			return nil, fmt.Errorf("wallet: short read for scriptPubKey")
		}
		spk := append([]byte{}, b[off:off+int(spkLen)]...)
		off += int(spkLen)

		tx.TxOut = append(tx.TxOut, &TxOut{Value: value, ScriptPubKey: spk})
	}

	if segwit {
		for _, in := range tx.TxIn {
			itemCount, n, err := CompactSizeDecode(b[off:])
			if err != nil {
				return nil, fmt.Errorf("wallet: reading witness item count: %w", err)
			}
			off += n
			for i := uint64(0); i < itemCount; i++ {
				itemLen, n, err := CompactSizeDecode(b[off:])
				if err != nil {
					return nil, fmt.Errorf("wallet: reading witness item length: %w", err)
				}
				off += n
				if off+int(itemLen) > len(b) {
					return nil, fmt.Errorf("wallet: short read for witness item")
				}
				in.Witness = append(in.Witness, append([]byte{}, b[off:off+int(itemLen)]...))
				off += int(itemLen)
			}
		}
	}

	if off+4 > len(b) {
		return nil, fmt.Errorf("wallet: short read for locktime")
	}
	tx.LockTime = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4

	if off != len(b) {
		return nil, fmt.Errorf("wallet: %d trailing bytes after transaction", len(b)-off)
	}

	return tx, nil
}

// Reverse returns a byte-reversed copy, used at every RPC/display boundary
// crossing for txids ("exactly one reverse per boundary crossing").
func Reverse(b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}
