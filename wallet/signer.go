package wallet

import "fmt"

// Signer binds a key (or keys) to one output script family and knows how to
// produce a dummy-sized input for fee estimation and a fully signed input
// for broadcast
type Signer interface {
	Address() string
	ScriptPubKey() []byte
	AddressType() AddressType
	// DummyTxIn returns a maximum-size placeholder input spending op, used
	// while iterating the fee estimate before any signature exists.
	DummyTxIn(op OutPoint) *TxIn
	// Sign fills in tx.TxIn[index]'s ScriptSig/Witness in place. prevouts is
	// parallel to tx.TxIn, supplying the value/scriptPubKey every input
	// spends (needed by the segwit and taproot digests).
	Sign(tx *Transaction, index int, prevouts []PrevOut) error
}

// P2PKHSigner spends a single legacy pay-to-pubkey-hash output.
type P2PKHSigner struct {
	priv *PriKey
	pub  *PubKey
	net  Network
	addr string
	spk  []byte
}

func NewP2PKHSigner(priv *PriKey, net Network) *P2PKHSigner {
	pub := priv.PubKey()
	return &P2PKHSigner{priv: priv, pub: pub, net: net, addr: P2PKHAddress(pub, net), spk: ScriptPubKeyP2PKH(pub)}
}

func (s *P2PKHSigner) Address() string          { return s.addr }
func (s *P2PKHSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2PKHSigner) AddressType() AddressType { return AddressTypeP2PKH }

// PrivateKey returns the held private key, used by message signing,
// which operates outside the transaction-signing Signer interface.
func (s *P2PKHSigner) PrivateKey() *PriKey { return s.priv }

// DummyTxIn reserves 107 bytes of script_sig: a 73-byte push (1-byte opcode,
// up to 71 bytes of DER signature, 1-byte hashtype) and a 34-byte push of a
// 33-byte compressed pubkey, the worst case.
func (s *P2PKHSigner) DummyTxIn(op OutPoint) *TxIn {
	return &TxIn{PreviousOutPoint: op, ScriptSig: make([]byte, 107), Sequence: 0xffffffff}
}

func (s *P2PKHSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	digest, err := DigestLegacy(tx, index, SighashAll, s.spk)
	if err != nil {
		return fmt.Errorf("wallet: p2pkh digest: %w", err)
	}
	sig, err := ECDSASign(s.priv, digest)
	if err != nil {
		return fmt.Errorf("wallet: p2pkh sign: %w", err)
	}
	der := append(sig.DER(), byte(SighashAll))
	tx.TxIn[index].ScriptSig = NewScriptBuilder().AddData(der).AddData(s.pub.SEC1Compressed()).Bytes()
	return nil
}

// P2SHMultisigSigner spends a bare k-of-n CHECKMULTISIG wrapped in P2SH.
type P2SHMultisigSigner struct {
	k       int
	privs   []*PriKey // nil entries for keys this signer doesn't hold
	pubs    []*PubKey
	net     Network
	redeem  []byte
	addr    string
	spk     []byte
}

func NewP2SHMultisigSigner(k int, pubs []*PubKey, privs []*PriKey, net Network) (*P2SHMultisigSigner, error) {
	redeem, err := P2SHP2MSRedeemScript(k, pubs)
	if err != nil {
		return nil, err
	}
	if privs != nil && len(privs) != len(pubs) {
		return nil, fmt.Errorf("wallet: privs must be nil or parallel to pubs")
	}
	return &P2SHMultisigSigner{
		k: k, privs: privs, pubs: pubs, net: net,
		redeem: redeem, addr: P2SHAddress(redeem, net), spk: ScriptPubKeyP2SH(redeem),
	}, nil
}

func (s *P2SHMultisigSigner) Address() string         { return s.addr }
func (s *P2SHMultisigSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2SHMultisigSigner) AddressType() AddressType { return AddressTypeP2SHP2MS }

// DummyTxIn reserves OP_0, k 72-byte DER-signature pushes, and the redeem
// script push — CHECKMULTISIG's off-by-one extra stack item included.
func (s *P2SHMultisigSigner) DummyTxIn(op OutPoint) *TxIn {
	b := NewScriptBuilder().AddOp(OpFalse)
	for i := 0; i < s.k; i++ {
		b.AddData(make([]byte, 72))
	}
	b.AddData(s.redeem)
	return &TxIn{PreviousOutPoint: op, ScriptSig: b.Bytes(), Sequence: 0xffffffff}
}

// Sign produces signatures from every held private key, in pubs order, and
// assembles OP_0 <sig1>...<sigk> <redeemScript>. Any k signatures from
// distinct keys in pubkey order satisfy CHECKMULTISIG; here we simply use
// however many private keys were supplied (must be >= k).
func (s *P2SHMultisigSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	digest, err := DigestLegacy(tx, index, SighashAll, s.redeem)
	if err != nil {
		return fmt.Errorf("wallet: p2sh-p2ms digest: %w", err)
	}

	b := NewScriptBuilder().AddOp(OpFalse)
	signed := 0
	for _, priv := range s.privs {
		if priv == nil {
			continue
		}
		sig, err := ECDSASign(priv, digest)
		if err != nil {
			return fmt.Errorf("wallet: p2sh-p2ms sign: %w", err)
		}
		b.AddData(append(sig.DER(), byte(SighashAll)))
		signed++
	}
	if signed < s.k {
		return fmt.Errorf("wallet: p2sh-p2ms needs %d signatures, have %d private keys", s.k, signed)
	}
	b.AddData(s.redeem)
	tx.TxIn[index].ScriptSig = b.Bytes()
	return nil
}

// P2SHP2WPKHSigner spends a P2WPKH witness program wrapped in P2SH.
type P2SHP2WPKHSigner struct {
	priv   *PriKey
	pub    *PubKey
	net    Network
	redeem []byte
	addr   string
	spk    []byte
}

func NewP2SHP2WPKHSigner(priv *PriKey, net Network) *P2SHP2WPKHSigner {
	pub := priv.PubKey()
	redeem := P2SHP2WPKHRedeemScript(pub)
	return &P2SHP2WPKHSigner{
		priv: priv, pub: pub, net: net, redeem: redeem,
		addr: P2SHAddress(redeem, net), spk: ScriptPubKeyP2SH(redeem),
	}
}

func (s *P2SHP2WPKHSigner) Address() string         { return s.addr }
func (s *P2SHP2WPKHSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2SHP2WPKHSigner) AddressType() AddressType { return AddressTypeP2SHP2WPKH }

// DummyTxIn reserves a 23-byte script_sig (the redeem-script push) and a
// two-item witness stack sized for a 72-byte signature and 33-byte pubkey.
func (s *P2SHP2WPKHSigner) DummyTxIn(op OutPoint) *TxIn {
	return &TxIn{
		PreviousOutPoint: op, ScriptSig: make([]byte, 23), Sequence: 0xffffffff,
		Witness: [][]byte{make([]byte, 72), make([]byte, 33)},
	}
}

func (s *P2SHP2WPKHSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	pubkeyHash := Hash160(s.pub.SEC1Compressed())
	scriptCode := NewScriptBuilder().
		AddOp(OpDup).AddOp(OpHash160).AddData(pubkeyHash).AddOp(OpEqualVerify).AddOp(OpCheckSig).Bytes()
	prefixed := append(CompactSizeEncode(uint64(len(scriptCode))), scriptCode...)

	digest, err := DigestSegwitV0(tx, index, SighashAll, prefixed, prevouts[index].Value)
	if err != nil {
		return fmt.Errorf("wallet: p2sh-p2wpkh digest: %w", err)
	}
	sig, err := ECDSASign(s.priv, digest)
	if err != nil {
		return fmt.Errorf("wallet: p2sh-p2wpkh sign: %w", err)
	}

	tx.TxIn[index].ScriptSig = NewScriptBuilder().AddData(s.redeem).Bytes()
	tx.TxIn[index].Witness = [][]byte{append(sig.DER(), byte(SighashAll)), s.pub.SEC1Compressed()}
	return nil
}

// P2WPKHSigner spends a native segwit v0 pubkey-hash output.
type P2WPKHSigner struct {
	priv *PriKey
	pub  *PubKey
	net  Network
	addr string
	spk  []byte
}

func NewP2WPKHSigner(priv *PriKey, net Network) (*P2WPKHSigner, error) {
	pub := priv.PubKey()
	addr, err := P2WPKHAddress(pub, net)
	if err != nil {
		return nil, err
	}
	return &P2WPKHSigner{priv: priv, pub: pub, net: net, addr: addr, spk: ScriptPubKeyP2WPKH(pub)}, nil
}

func (s *P2WPKHSigner) Address() string         { return s.addr }
func (s *P2WPKHSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2WPKHSigner) AddressType() AddressType { return AddressTypeP2WPKH }

func (s *P2WPKHSigner) DummyTxIn(op OutPoint) *TxIn {
	return &TxIn{
		PreviousOutPoint: op, Sequence: 0xffffffff,
		Witness: [][]byte{make([]byte, 72), make([]byte, 33)},
	}
}

func (s *P2WPKHSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	pubkeyHash := Hash160(s.pub.SEC1Compressed())
	scriptCode := NewScriptBuilder().
		AddOp(OpDup).AddOp(OpHash160).AddData(pubkeyHash).AddOp(OpEqualVerify).AddOp(OpCheckSig).Bytes()
	prefixed := append(CompactSizeEncode(uint64(len(scriptCode))), scriptCode...)

	digest, err := DigestSegwitV0(tx, index, SighashAll, prefixed, prevouts[index].Value)
	if err != nil {
		return fmt.Errorf("wallet: p2wpkh digest: %w", err)
	}
	sig, err := ECDSASign(s.priv, digest)
	if err != nil {
		return fmt.Errorf("wallet: p2wpkh sign: %w", err)
	}
	tx.TxIn[index].Witness = [][]byte{append(sig.DER(), byte(SighashAll)), s.pub.SEC1Compressed()}
	return nil
}

// P2TRSigner spends a taproot output via the key-path only. Script-path
// spending is handled separately by P2TRScriptPathSigner, which needs the
// leaf script and control block rather than just the tweaked private key.
type P2TRSigner struct {
	priv       *PriKey
	pub        *PubKey
	net        Network
	merkleRoot []byte // nil for key-path-only outputs
	addr       string
	spk        []byte
}

func NewP2TRSigner(priv *PriKey, merkleRoot []byte, net Network) (*P2TRSigner, error) {
	pub := priv.PubKey()
	addr, err := P2TRAddress(pub, merkleRoot, net)
	if err != nil {
		return nil, err
	}
	internalX := schnorrImplicitPub(pub).X.Bytes()
	outputX, _, _, err := TaprootTweak(internalX, merkleRoot)
	if err != nil {
		return nil, err
	}
	return &P2TRSigner{
		priv: priv, pub: pub, net: net, merkleRoot: merkleRoot,
		addr: addr, spk: ScriptPubKeyP2TR(outputX),
	}, nil
}

func (s *P2TRSigner) Address() string         { return s.addr }
func (s *P2TRSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2TRSigner) AddressType() AddressType { return AddressTypeP2TR }

// DummyTxIn reserves a single 65-byte witness item (64-byte signature plus
// an optional hash-type byte).
func (s *P2TRSigner) DummyTxIn(op OutPoint) *TxIn {
	return &TxIn{PreviousOutPoint: op, Sequence: 0xffffffff, Witness: [][]byte{make([]byte, 65)}}
}

func (s *P2TRSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	signingKey, err := TaprootSigningScalar(s.priv, s.merkleRoot)
	if err != nil {
		return fmt.Errorf("wallet: p2tr tweak: %w", err)
	}

	digestPrevouts := make([]PrevOut, len(prevouts))
	copy(digestPrevouts, prevouts)
	digest, err := DigestSegwitV1KeyPath(tx, index, SighashDefault, digestPrevouts)
	if err != nil {
		return fmt.Errorf("wallet: p2tr digest: %w", err)
	}
	sig, err := SchnorrSign(signingKey, digest)
	if err != nil {
		return fmt.Errorf("wallet: p2tr sign: %w", err)
	}
	// SIGHASH_DEFAULT omits the trailing hash-type byte entirely.
	tx.TxIn[index].Witness = [][]byte{sig[:]}
	return nil
}

// P2TRScriptPathSigner spends a taproot output through one specific MAST
// leaf: p2pk (a single key), a multisig leaf built from OP_CHECKSIG plus
// OP_CHECKSIGADD, or any other script the caller assembled. privs holds one
// key per signature the leaf script consumes, in the same order the script
// references them (first OP_CHECKSIG's key first). Every entry must be
// non-nil: Sign returns an error for a nil entry.
type P2TRScriptPathSigner struct {
	privs        []*PriKey
	leafScript   []byte
	internalX    [32]byte
	net          Network
	addr         string
	spk          []byte
	controlBlock []byte
}

// NewP2TRScriptPathSigner builds a signer for the leaf identified by
// leafScript, rooted under internalPub via merkleRoot. siblings are the
// MAST proof hashes for that leaf, leaf-to-root order, as used to build the
// control block.
func NewP2TRScriptPathSigner(internalPub *PubKey, leafScript []byte, merkleRoot []byte, siblings [][32]byte, privs []*PriKey, net Network) (*P2TRScriptPathSigner, error) {
	addr, err := P2TRAddress(internalPub, merkleRoot, net)
	if err != nil {
		return nil, err
	}
	internalX := schnorrImplicitPub(internalPub).X.Bytes()
	outputX, outputOdd, _, err := TaprootTweak(internalX, merkleRoot)
	if err != nil {
		return nil, err
	}
	return &P2TRScriptPathSigner{
		privs: privs, leafScript: leafScript, internalX: internalX, net: net,
		addr: addr, spk: ScriptPubKeyP2TR(outputX),
		controlBlock: ControlBlock(internalX, outputOdd, siblings),
	}, nil
}

func (s *P2TRScriptPathSigner) Address() string         { return s.addr }
func (s *P2TRScriptPathSigner) ScriptPubKey() []byte     { return append([]byte{}, s.spk...) }
func (s *P2TRScriptPathSigner) AddressType() AddressType { return AddressTypeP2TR }

// DummyTxIn reserves one 65-byte witness item per signature the leaf needs,
// plus the leaf script and control block themselves.
func (s *P2TRScriptPathSigner) DummyTxIn(op OutPoint) *TxIn {
	witness := make([][]byte, 0, len(s.privs)+2)
	for range s.privs {
		witness = append(witness, make([]byte, 65))
	}
	witness = append(witness, s.leafScript, s.controlBlock)
	return &TxIn{PreviousOutPoint: op, Sequence: 0xffffffff, Witness: witness}
}

// Sign computes the script-path digest for this leaf and assembles
// [...sigs, leaf_script, control_block]. Signatures are appended in reverse
// of privs order: a script evaluates OP_CHECKSIG/OP_CHECKSIGADD left to
// right, each consuming the witness stack's current top, so the key
// referenced last in the script must be signed first into the witness.
func (s *P2TRScriptPathSigner) Sign(tx *Transaction, index int, prevouts []PrevOut) error {
	leafHash := NewTapLeaf(s.leafScript).Hash()
	digest, err := DigestSegwitV1ScriptPath(tx, index, SighashDefault, prevouts, leafHash)
	if err != nil {
		return fmt.Errorf("wallet: p2tr script-path digest: %w", err)
	}

	witness := make([][]byte, 0, len(s.privs)+2)
	for i := len(s.privs) - 1; i >= 0; i-- {
		priv := s.privs[i]
		if priv == nil {
			return fmt.Errorf("wallet: p2tr script-path signer missing private key %d", i)
		}
		sig, err := SchnorrSign(priv, digest)
		if err != nil {
			return fmt.Errorf("wallet: p2tr script-path sign: %w", err)
		}
		witness = append(witness, sig[:])
	}
	witness = append(witness, s.leafScript, s.controlBlock)
	tx.TxIn[index].Witness = witness
	return nil
}
