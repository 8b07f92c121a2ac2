package btc

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"

	"github.com/bitforge-labs/vault-plugin-btc/wallet"
)

// pathWalletConsolidate sweeps a wallet's own UTXOs back into a single UTXO
// at its own address. With no HD address rotation in this model there's no
// dust scattered across many addresses to merge, but a wallet can still
// accumulate many small UTXOs at its one address over time, each of which
// inflates the vbyte cost of a future spend — consolidating trims that back
// down to one input.
func pathWalletConsolidate(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "wallets/" + framework.GenericNameRegex("name") + "/consolidate",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "wallet-consolidate",
			},
			Fields: map[string]*framework.FieldSchema{
				"name": {
					Type:        framework.TypeLowerCaseString,
					Description: "Name of the wallet",
					Required:    true,
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
					Callback: b.pathWalletConsolidateWrite,
				},
			},
			HelpSynopsis:    pathWalletConsolidateHelpSynopsis,
			HelpDescription: pathWalletConsolidateHelpDescription,
		},
	}
}

func (b *btcBackend) pathWalletConsolidateWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	confTarget := data.Get("conf_target").(int)
	if confTarget <= 0 {
		confTarget = defaultConfTarget
	}

	b.Logger().Debug("consolidating wallet", "name", name)

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
	if len(utxoInfos) < 2 {
		return logical.ErrorResponse("wallet %q has fewer than 2 UTXOs, nothing to consolidate", name), nil
	}
	utxos, err := toWalletUTXOs(utxoInfos)
	if err != nil {
		return nil, err
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

	toScript := signer.ScriptPubKey()
	tx, err := wlt.TransferAll(utxos, toScript, feeRate)
	if err != nil {
		return logical.ErrorResponse("building consolidation transaction: %s", err.Error()), nil
	}

	txHex := hex.EncodeToString(tx.Serialize())
	txid, err := client.SendRawTransaction(ctx, txHex)
	if err != nil {
		return nil, fmt.Errorf("broadcasting consolidation transaction: %w", err)
	}

	b.cache.InvalidateWallet(name)
	b.Logger().Info("consolidated wallet UTXOs", "name", name, "txid", txid, "inputs", len(utxos))

	return &logical.Response{
		Data: map[string]interface{}{
			"txid":         txid,
			"raw_tx":       txHex,
			"inputs_spent": len(utxos),
			"fee_rate":     feeRate,
		},
	}, nil
}

const pathWalletConsolidateHelpSynopsis = `
Consolidate a wallet's UTXOs into a single output.
`

const pathWalletConsolidateHelpDescription = `
This endpoint sweeps all of a wallet's spendable UTXOs into a single new
UTXO at the wallet's own address, reducing future spend transaction size.
Requires at least 2 UTXOs.
`
