package btc

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"
	"github.com/shopspring/decimal"

	"github.com/bitforge-labs/vault-plugin-btc/wallet"
)

// defaultConfTarget is the confirmation target passed to estimatesmartfee
// when the caller doesn't specify a fee rate.
const defaultConfTarget = 6

// regtestFallbackFeeRate is used when estimatesmartfee has no data yet, as
// is typical right after a regtest node starts.
const regtestFallbackFeeRate = 1

// quantizeFeeRate converts a BTC/kvB feerate, as reported by
// estimatesmartfee, to sat/vbyte. It goes through shopspring/decimal rather
// than binary floating point to avoid rounding drift, then truncates
// (floors) the division by 1000 rather than rounding up — a feerate that
// floors to 5 sat/vbyte must not be quantized to 6.
func quantizeFeeRate(btcPerKvByte float64) uint64 {
	satPerKvByte := decimal.NewFromFloat(btcPerKvByte).Mul(decimal.NewFromInt(1e8))
	return uint64(satPerKvByte.Div(decimal.NewFromInt(1000)).IntPart())
}

func pathWalletSend(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "wallets/" + framework.GenericNameRegex("name") + "/send",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "wallet-send",
			},
			Fields: map[string]*framework.FieldSchema{
				"name": {
					Type:        framework.TypeLowerCaseString,
					Description: "Name of the wallet",
					Required:    true,
				},
				"to_address": {
					Type:        framework.TypeString,
					Description: "Destination Bitcoin address",
					Required:    true,
				},
				"amount": {
					Type:        framework.TypeInt,
					Description: "Amount to send, in satoshis. Omit (or 0) to sweep the entire wallet balance.",
				},
				"fee_rate": {
					Type:        framework.TypeInt,
					Description: "Fee rate in sat/vbyte. If omitted, estimated via the node's estimatesmartfee.",
				},
				"conf_target": {
					Type:        framework.TypeInt,
					Description: "Confirmation target (blocks) for fee estimation when fee_rate is omitted",
					Default:     defaultConfTarget,
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathWalletSendWrite,
				},
			},
			HelpSynopsis:    pathWalletSendHelpSynopsis,
			HelpDescription: pathWalletSendHelpDescription,
		},
	}
}

func (b *btcBackend) pathWalletSendWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	toAddress := data.Get("to_address").(string)
	amount := uint64(data.Get("amount").(int))
	confTarget := data.Get("conf_target").(int)
	if confTarget <= 0 {
		confTarget = defaultConfTarget
	}

	b.Logger().Debug("sending from wallet", "name", name, "to", toAddress, "amount", amount)

	w, err := getWallet(ctx, req.Storage, name)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return logical.ErrorResponse("wallet %q not found", name), nil
	}

	network, err := getNetwork(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	signer, err := signerForWallet(w, network)
	if err != nil {
		return nil, err
	}

	if err := wallet.ValidateAddress(toAddress, network); err != nil {
		return logical.ErrorResponse("invalid to_address: %s", err.Error()), nil
	}
	toScript, err := wallet.ScriptPubKeyFromAddress(toAddress, network)
	if err != nil {
		return logical.ErrorResponse("invalid to_address: %s", err.Error()), nil
	}

	client, err := b.getClient(ctx, req.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Bitcoin Core: %w", err)
	}

	minConf, err := getMinConfirmations(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	maxFeeRate, err := getMaxFeeRate(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	utxoInfos, err := b.listWalletUTXOs(ctx, client, req.Storage, name, signer.Address(), minConf)
	if err != nil {
		return nil, fmt.Errorf("failed to list UTXOs: %w", err)
	}
	utxos, err := toWalletUTXOs(utxoInfos)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return logical.ErrorResponse("wallet %q has no spendable UTXOs", name), nil
	}

	var feeRate uint64
	if rateI, ok := data.GetOk("fee_rate"); ok {
		feeRate = uint64(rateI.(int))
		if feeRate == 0 {
			return logical.ErrorResponse("fee_rate must be positive"), nil
		}
	} else {
		estimate, err := client.EstimateSmartFee(ctx, confTarget)
		if err != nil {
			return nil, fmt.Errorf("estimatesmartfee: %w", err)
		}
		if estimate.Feerate <= 0 || len(estimate.Errors) > 0 {
			feeRate = regtestFallbackFeeRate
		} else {
			feeRate = quantizeFeeRate(estimate.Feerate)
			if feeRate == 0 {
				feeRate = 1
			}
		}
	}

	wlt := wallet.NewWallet(signer, network)
	wlt.MaxFeeRate = maxFeeRate

	var tx *wallet.Transaction
	if amount == 0 {
		tx, err = wlt.TransferAll(utxos, toScript, feeRate)
	} else {
		tx, err = wlt.Transfer(utxos, toScript, amount, feeRate)
	}
	if err != nil {
		return logical.ErrorResponse("building transaction: %s", err.Error()), nil
	}

	rawTx := tx.Serialize()
	txHex := hex.EncodeToString(rawTx)

	txid, err := client.SendRawTransaction(ctx, txHex)
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	b.cache.InvalidateWallet(name)
	b.Logger().Info("sent transaction", "name", name, "txid", txid, "fee_rate", feeRate)

	return &logical.Response{
		Data: map[string]interface{}{
			"txid":     txid,
			"raw_tx":   txHex,
			"fee_rate": feeRate,
		},
	}, nil
}

// toWalletUTXOs converts the RPC-facing UTXOInfo list into wallet.UTXO,
// reversing each txid into internal byte order exactly once at this
// RPC/domain boundary crossing.
func toWalletUTXOs(infos []UTXOInfo) ([]wallet.UTXO, error) {
	out := make([]wallet.UTXO, 0, len(infos))
	for _, i := range infos {
		txidBytes, err := hex.DecodeString(i.TxID)
		if err != nil || len(txidBytes) != 32 {
			return nil, fmt.Errorf("decoding txid %q: %w", i.TxID, err)
		}
		var display [32]byte
		copy(display[:], txidBytes)
		internal := wallet.Reverse(display)

		spk, err := decodeScriptPubKey(i.ScriptPubKey)
		if err != nil {
			return nil, err
		}

		out = append(out, wallet.UTXO{
			OutPoint:     wallet.OutPoint{Txid: internal, Vout: i.Vout},
			Value:        uint64(i.Value),
			ScriptPubKey: spk,
		})
	}
	return out, nil
}

const pathWalletSendHelpSynopsis = `
Send bitcoin from a wallet.
`

const pathWalletSendHelpDescription = `
This endpoint builds, signs, and broadcasts a transaction spending the
wallet's UTXOs to to_address.

If amount is omitted or zero, the entire spendable balance is swept to
to_address (fee paid out of the swept amount, no change output). Otherwise
amount satoshis are sent and any change returns to the wallet's own address.

fee_rate (sat/vbyte) may be supplied explicitly; otherwise it is estimated
via the configured node's estimatesmartfee for conf_target blocks (default
6), falling back to 1 sat/vbyte if the node has no estimate yet (typical
right after a regtest node starts).

Transactions whose resulting fee rate exceeds the configured
absurd_fee_rate are rejected rather than broadcast.
`
