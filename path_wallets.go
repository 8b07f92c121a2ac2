package btc

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"

	"github.com/bitforge-labs/vault-plugin-btc/wallet"
)

const walletsStoragePrefix = "wallets/"

// btcWallet stores a single key and the output-script family it signs for.
// There is no HD derivation in this model: one key per wallet, with no
// xpub/address-index bookkeeping to maintain.
type btcWallet struct {
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	PrivateKeyHex  string    `json:"private_key_hex"`
	AddressType    string    `json:"address_type"` // p2pkh, p2sh-p2wpkh, p2wpkh, or p2tr
	CreatedAt      time.Time `json:"created_at"`
}

func pathWallets(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "wallets/?$",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "wallets",
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ListOperation: &framework.PathOperation{
					Callback: b.pathWalletsList,
				},
			},
			HelpSynopsis:    pathWalletsListHelpSynopsis,
			HelpDescription: pathWalletsListHelpDescription,
		},
		{
			Pattern: "wallets/" + framework.GenericNameRegex("name"),
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
			},
			Fields: map[string]*framework.FieldSchema{
				"name": {
					Type:        framework.TypeLowerCaseString,
					Description: "Name of the wallet",
					Required:    true,
				},
				"description": {
					Type:        framework.TypeString,
					Description: "Optional description for this wallet",
				},
				"address_type": {
					Type:        framework.TypeString,
					Description: "Address type: p2tr (Taproot, default), p2wpkh, p2sh-p2wpkh, or p2pkh",
					Default:     "p2tr",
				},
				"private_key_wif": {
					Type:        framework.TypeString,
					Description: "Optional WIF-encoded private key to import. If omitted, a new key is generated.",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ReadOperation: &framework.PathOperation{
					Callback: b.pathWalletsRead,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "wallet",
					},
				},
				logical.CreateOperation: &framework.PathOperation{
					Callback: b.pathWalletsWrite,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "wallet",
					},
				},
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathWalletsWrite,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "wallet",
					},
				},
				logical.DeleteOperation: &framework.PathOperation{
					Callback: b.pathWalletsDelete,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "wallet",
					},
				},
			},
			ExistenceCheck:  b.pathWalletsExistenceCheck,
			HelpSynopsis:    pathWalletsHelpSynopsis,
			HelpDescription: pathWalletsHelpDescription,
		},
	}
}

func (b *btcBackend) pathWalletsList(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	b.Logger().Debug("listing wallets")
	entries, err := req.Storage.List(ctx, walletsStoragePrefix)
	if err != nil {
		return nil, fmt.Errorf("error listing wallets: %w", err)
	}

	b.Logger().Debug("wallets listed", "count", len(entries))
	return logical.ListResponse(entries), nil
}

func (b *btcBackend) pathWalletsExistenceCheck(ctx context.Context, req *logical.Request, data *framework.FieldData) (bool, error) {
	name := data.Get("name").(string)
	w, err := getWallet(ctx, req.Storage, name)
	if err != nil {
		return false, err
	}
	return w != nil, nil
}

// signerForWallet rebuilds the wallet.Signer for w under net. The private
// key never leaves this process in any form other than signatures.
func signerForWallet(w *btcWallet, net wallet.Network) (wallet.Signer, error) {
	keyBytes, err := hex.DecodeString(w.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding stored private key: %w", err)
	}
	priv, err := wallet.PriKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("reconstructing private key: %w", err)
	}

	switch w.AddressType {
	case "p2pkh":
		return wallet.NewP2PKHSigner(priv, net), nil
	case "p2sh-p2wpkh":
		return wallet.NewP2SHP2WPKHSigner(priv, net), nil
	case "p2wpkh":
		return wallet.NewP2WPKHSigner(priv, net)
	case "p2tr":
		return wallet.NewP2TRSigner(priv, nil, net)
	default:
		return nil, fmt.Errorf("unsupported address_type %q", w.AddressType)
	}
}

func (b *btcBackend) pathWalletsRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	b.Logger().Debug("reading wallet", "name", name)

	w, err := getWallet(ctx, req.Storage, name)
	if err != nil {
		return nil, err
	}
	if w == nil {
		b.Logger().Debug("wallet not found", "name", name)
		return nil, nil
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

	utxos, err := b.listWalletUTXOs(ctx, client, req.Storage, name, signer.Address(), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list UTXOs: %w", err)
	}

	var confirmed, unconfirmed int64
	for _, u := range utxos {
		if u.Confirmations > 0 {
			confirmed += u.Value
		} else {
			unconfirmed += u.Value
		}
	}

	respData := map[string]interface{}{
		"name":         w.Name,
		"network":      network.Name,
		"address_type": w.AddressType,
		"address":      signer.Address(),
		"confirmed":    confirmed,
		"unconfirmed":  unconfirmed,
		"total":        confirmed + unconfirmed,
		"utxo_count":   len(utxos),
		"created_at":   w.CreatedAt.Format(time.RFC3339),
	}
	if w.Description != "" {
		respData["description"] = w.Description
	}

	return &logical.Response{Data: respData}, nil
}

func (b *btcBackend) pathWalletsWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	b.Logger().Debug("writing wallet", "name", name, "operation", req.Operation)

	w, err := getWallet(ctx, req.Storage, name)
	if err != nil {
		return nil, err
	}

	createOperation := req.Operation == logical.CreateOperation

	if w == nil {
		if !createOperation {
			return nil, fmt.Errorf("wallet %q not found during update operation", name)
		}

		addressType := data.Get("address_type").(string)
		switch addressType {
		case "p2pkh", "p2sh-p2wpkh", "p2wpkh", "p2tr":
		default:
			return logical.ErrorResponse("invalid address_type %q: must be one of p2pkh, p2sh-p2wpkh, p2wpkh, p2tr", addressType), nil
		}

		var priv *wallet.PriKey
		if wifStr, ok := data.GetOk("private_key_wif"); ok && wifStr.(string) != "" {
			network, err := getNetwork(ctx, req.Storage)
			if err != nil {
				return nil, err
			}
			priv, err = wallet.PriKeyFromWIF(wifStr.(string), network)
			if err != nil {
				return logical.ErrorResponse("invalid private_key_wif: %s", err.Error()), nil
			}
			b.Logger().Info("importing wallet from supplied private key", "name", name, "address_type", addressType)
		} else {
			priv, err = wallet.GeneratePriKey()
			if err != nil {
				return nil, fmt.Errorf("failed to generate private key: %w", err)
			}
			b.Logger().Info("creating new wallet", "name", name, "address_type", addressType)
		}

		w = &btcWallet{
			Name:          name,
			PrivateKeyHex: hex.EncodeToString(priv.Bytes()),
			AddressType:   addressType,
			CreatedAt:     time.Now().UTC(),
		}
	}

	if description, ok := data.GetOk("description"); ok {
		w.Description = description.(string)
	}

	network, err := getNetwork(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	signer, err := signerForWallet(w, network)
	if err != nil {
		return nil, err
	}

	if err := saveWallet(ctx, req.Storage, w); err != nil {
		return nil, err
	}

	respData := map[string]interface{}{
		"name":         w.Name,
		"network":      network.Name,
		"address_type": w.AddressType,
		"address":      signer.Address(),
		"created_at":   w.CreatedAt.Format(time.RFC3339),
	}
	if w.Description != "" {
		respData["description"] = w.Description
	}

	return &logical.Response{Data: respData}, nil
}

func (b *btcBackend) pathWalletsDelete(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	b.Logger().Debug("deleting wallet", "name", name)

	b.cache.InvalidateWallet(name)

	if err := req.Storage.Delete(ctx, walletsStoragePrefix+name); err != nil {
		return nil, fmt.Errorf("error deleting wallet: %w", err)
	}

	b.Logger().Info("wallet deleted", "name", name)
	return nil, nil
}

// getWallet retrieves a wallet from storage
func getWallet(ctx context.Context, s logical.Storage, name string) (*btcWallet, error) {
	entry, err := s.Get(ctx, walletsStoragePrefix+name)
	if err != nil {
		return nil, fmt.Errorf("error retrieving wallet: %w", err)
	}

	if entry == nil {
		return nil, nil
	}

	w := new(btcWallet)
	if err := entry.DecodeJSON(w); err != nil {
		return nil, fmt.Errorf("error decoding wallet: %w", err)
	}

	return w, nil
}

// saveWallet saves a wallet to storage
func saveWallet(ctx context.Context, s logical.Storage, w *btcWallet) error {
	entry, err := logical.StorageEntryJSON(walletsStoragePrefix+w.Name, w)
	if err != nil {
		return fmt.Errorf("error creating storage entry: %w", err)
	}

	if err := s.Put(ctx, entry); err != nil {
		return fmt.Errorf("error saving wallet: %w", err)
	}

	return nil
}

const pathWalletsListHelpSynopsis = `
List all wallets.
`

const pathWalletsListHelpDescription = `
This endpoint lists all configured wallets in the Bitcoin secrets engine.
`

const pathWalletsHelpSynopsis = `
Manage Bitcoin wallets.
`

const pathWalletsHelpDescription = `
This endpoint manages Bitcoin wallets. Each wallet holds a single private key
bound to one address type (p2pkh, p2sh-p2wpkh, p2wpkh, or p2tr) — there is no
HD derivation. All wallets use the network configured at the mount level
(btc/config).

To create a new wallet with a freshly generated key:
  $ vault write btc/wallets/my-wallet address_type=p2wpkh

To import an existing key:
  $ vault write btc/wallets/my-wallet address_type=p2tr private_key_wif="L1..."

To view wallet info and balance:
  $ vault read btc/wallets/my-wallet

To delete a wallet:
  $ vault delete btc/wallets/my-wallet

WARNING: Deleting a wallet permanently destroys its private key. Ensure all
funds have been transferred before deletion.
`
