package btc

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"
)

func pathWalletUTXOs(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "wallets/" + framework.GenericNameRegex("name") + "/utxos",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "wallet-utxos",
			},
			Fields: map[string]*framework.FieldSchema{
				"name": {
					Type:        framework.TypeLowerCaseString,
					Description: "Name of the wallet",
					Required:    true,
				},
				"min_confirmations": {
					Type:        framework.TypeInt,
					Description: "Override the configured minimum confirmations for this listing",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ReadOperation: &framework.PathOperation{
					Callback: b.pathWalletUTXOsRead,
				},
			},
			HelpSynopsis:    pathWalletUTXOsHelpSynopsis,
			HelpDescription: pathWalletUTXOsHelpDescription,
		},
	}
}

func (b *btcBackend) pathWalletUTXOsRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	b.Logger().Debug("listing wallet UTXOs", "name", name)

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

	minConf, err := getMinConfirmations(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	if override, ok := data.GetOk("min_confirmations"); ok {
		minConf = override.(int)
	}

	client, err := b.getClient(ctx, req.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Bitcoin Core: %w", err)
	}

	utxos, err := b.listWalletUTXOs(ctx, client, req.Storage, name, signer.Address(), minConf)
	if err != nil {
		return nil, fmt.Errorf("failed to list UTXOs: %w", err)
	}

	sort.Slice(utxos, func(i, j int) bool { return utxos[i].Value > utxos[j].Value })

	var total int64
	utxoList := make([]map[string]interface{}, 0, len(utxos))
	for _, u := range utxos {
		total += u.Value
		utxoList = append(utxoList, map[string]interface{}{
			"txid":          u.TxID,
			"vout":          u.Vout,
			"value":         u.Value,
			"address":       u.Address,
			"confirmations": u.Confirmations,
		})
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"address": signer.Address(),
			"utxos":   utxoList,
			"count":   len(utxoList),
			"total":   total,
		},
	}, nil
}

const pathWalletUTXOsHelpSynopsis = `
List the spendable UTXOs for a wallet.
`

const pathWalletUTXOsHelpDescription = `
This endpoint lists the unspent outputs currently held at the wallet's
address, as reported by the configured Bitcoin Core node's listunspent RPC.
`
