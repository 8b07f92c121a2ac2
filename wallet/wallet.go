package wallet

import "fmt"

// DustLimit is the minimum value a change output may carry before it's
// considered uneconomical to spend (546 satoshis, the conventional P2PKH
// dust threshold used across all output types here for simplicity).
const DustLimit = 546

// DefaultMaxFeeRate is the absurd-fee guard: sat/vbyte above this is
// rejected rather than silently broadcast
const DefaultMaxFeeRate = 50

// UTXO is a spendable output: its outpoint, value, and locking script, as
// returned by gettxout/listunspent.
type UTXO struct {
	OutPoint     OutPoint
	Value        uint64
	ScriptPubKey []byte
}

// Wallet binds a single Signer (one key, one address/script family) to a
// network and a fee policy, and builds signed, broadcast-ready transactions.
type Wallet struct {
	Signer     Signer
	Net        Network
	MaxFeeRate uint64 // sat/vbyte; 0 uses DefaultMaxFeeRate
}

func NewWallet(signer Signer, net Network) *Wallet {
	return &Wallet{Signer: signer, Net: net, MaxFeeRate: DefaultMaxFeeRate}
}

func (w *Wallet) maxFeeRate() uint64 {
	if w.MaxFeeRate == 0 {
		return DefaultMaxFeeRate
	}
	return w.MaxFeeRate
}

// Address returns the wallet's receiving/change address.
func (w *Wallet) Address() string { return w.Signer.Address() }

// Balance sums the value of the given UTXO set.
func (w *Wallet) Balance(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Value
	}
	return total
}

// Transfer builds, signs, and returns a transaction paying value to
// toScript, spending from utxos (assumed all owned by w.Signer) and
// returning any change to the wallet's own address. feeRate is in
// sat/vbyte. utxos are consumed in the order given until the change output
// clears the dust limit; callers wanting a specific coin-selection strategy
// should pre-sort/pre-filter utxos before calling.
func (w *Wallet) Transfer(utxos []UTXO, toScript []byte, value uint64, feeRate uint64) (*Transaction, error) {
	if feeRate == 0 {
		return nil, fmt.Errorf("wallet: feeRate must be positive")
	}
	if feeRate > w.maxFeeRate() {
		return nil, fmt.Errorf("wallet: feeRate %d sat/vbyte exceeds the absurd-fee guard of %d", feeRate, w.maxFeeRate())
	}
	if value < DustLimit {
		return nil, fmt.Errorf("wallet: requested output value %d is below the dust limit %d", value, DustLimit)
	}

	changeScript := w.Signer.ScriptPubKey()

	tx := NewTransaction(2)
	tx.AddTxOut(&TxOut{Value: value, ScriptPubKey: toScript})
	tx.AddTxOut(&TxOut{Value: 0, ScriptPubKey: changeScript}) // placeholder, filled in below

	var prevouts []PrevOut
	var senderValue uint64
	var changeValue int64
	found := false

	for _, u := range utxos {
		tx.AddTxIn(w.Signer.DummyTxIn(u.OutPoint))
		prevouts = append(prevouts, PrevOut{Value: u.Value, ScriptPubKey: u.ScriptPubKey})
		senderValue += u.Value

		fee := uint64(tx.VBytes()) * feeRate
		changeValue = int64(senderValue) - int64(value) - int64(fee)
		if changeValue >= DustLimit {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("wallet: insufficient funds: have %d, need %d plus fees", senderValue, value)
	}

	tx.TxOut[1].Value = uint64(changeValue)

	if err := w.signAll(tx, prevouts); err != nil {
		return nil, err
	}
	if err := w.checkFee(tx, prevouts); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransferAll sweeps every given utxo to toScript, paying the network fee
// out of the swept amount rather than leaving change
func (w *Wallet) TransferAll(utxos []UTXO, toScript []byte, feeRate uint64) (*Transaction, error) {
	if feeRate == 0 {
		return nil, fmt.Errorf("wallet: feeRate must be positive")
	}
	if feeRate > w.maxFeeRate() {
		return nil, fmt.Errorf("wallet: feeRate %d sat/vbyte exceeds the absurd-fee guard of %d", feeRate, w.maxFeeRate())
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("wallet: no utxos to sweep")
	}

	tx := NewTransaction(2)
	tx.AddTxOut(&TxOut{Value: 0, ScriptPubKey: toScript})

	var prevouts []PrevOut
	var senderValue uint64
	for _, u := range utxos {
		tx.AddTxIn(w.Signer.DummyTxIn(u.OutPoint))
		prevouts = append(prevouts, PrevOut{Value: u.Value, ScriptPubKey: u.ScriptPubKey})
		senderValue += u.Value
	}

	fee := uint64(tx.VBytes()) * feeRate
	if senderValue < fee+DustLimit {
		return nil, fmt.Errorf("wallet: swept value %d cannot cover fee %d plus the dust limit", senderValue, fee)
	}
	tx.TxOut[0].Value = senderValue - fee

	if err := w.signAll(tx, prevouts); err != nil {
		return nil, err
	}
	if err := w.checkFee(tx, prevouts); err != nil {
		return nil, err
	}
	return tx, nil
}

func (w *Wallet) signAll(tx *Transaction, prevouts []PrevOut) error {
	for i := range tx.TxIn {
		if err := w.Signer.Sign(tx, i, prevouts); err != nil {
			return fmt.Errorf("wallet: signing input %d: %w", i, err)
		}
	}
	return nil
}

// checkFee rejects a transaction whose fee rate exceeds the absurd-fee
// guard, a final defense against a bad feeRate argument or bad prevout
// values.
func (w *Wallet) checkFee(tx *Transaction, prevouts []PrevOut) error {
	var in, out uint64
	for _, p := range prevouts {
		in += p.Value
	}
	for _, o := range tx.TxOut {
		out += o.Value
	}
	if out > in {
		return fmt.Errorf("wallet: transaction outputs (%d) exceed inputs (%d)", out, in)
	}
	fee := in - out
	limit := uint64(tx.VBytes()) * w.maxFeeRate()
	if fee > limit {
		return fmt.Errorf("wallet: fee %d exceeds the absurd-fee guard of %d sat/vbyte (%d)", fee, w.maxFeeRate(), limit)
	}
	return nil
}
