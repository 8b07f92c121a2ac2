package btc

import (
	"context"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"

	"github.com/bitforge-labs/vault-plugin-btc/wallet"
)

// pathWalletMessage wires message signing/verification into the secrets
// engine: sign with a wallet's held key, verify against any
// compressed-pubkey P2PKH address.
func pathWalletMessage(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "wallets/" + framework.GenericNameRegex("name") + "/sign-message",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "wallet-sign-message",
			},
			Fields: map[string]*framework.FieldSchema{
				"name": {
					Type:        framework.TypeLowerCaseString,
					Description: "Name of the wallet",
					Required:    true,
				},
				"message": {
					Type:        framework.TypeString,
					Description: "Message to sign",
					Required:    true,
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathWalletSignMessageWrite,
				},
			},
			HelpSynopsis:    pathWalletSignMessageHelpSynopsis,
			HelpDescription: pathWalletSignMessageHelpDescription,
		},
		{
			Pattern: "verify-message",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
				OperationSuffix: "verify-message",
			},
			Fields: map[string]*framework.FieldSchema{
				"address": {
					Type:        framework.TypeString,
					Description: "P2PKH address that allegedly signed the message",
					Required:    true,
				},
				"message": {
					Type:        framework.TypeString,
					Description: "Message that was signed",
					Required:    true,
				},
				"signature": {
					Type:        framework.TypeString,
					Description: "Base64-encoded signature to verify",
					Required:    true,
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathVerifyMessageWrite,
				},
			},
			HelpSynopsis:    pathVerifyMessageHelpSynopsis,
			HelpDescription: pathVerifyMessageHelpDescription,
		},
	}
}

func (b *btcBackend) pathWalletSignMessageWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	name := data.Get("name").(string)
	message := data.Get("message").(string)

	w, err := getWallet(ctx, req.Storage, name)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return logical.ErrorResponse("wallet %q not found", name), nil
	}
	if w.AddressType != "p2pkh" {
		return logical.ErrorResponse("message signing requires a p2pkh wallet, got %q", w.AddressType), nil
	}

	network, err := getNetwork(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	signer, err := signerForWallet(w, network)
	if err != nil {
		return nil, err
	}
	p2pkh, ok := signer.(*wallet.P2PKHSigner)
	if !ok {
		return logical.ErrorResponse("wallet %q is not a p2pkh signer", name), nil
	}

	sig, err := wallet.SignMessage(p2pkh.PrivateKey(), []byte(message))
	if err != nil {
		return nil, err
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"address":   signer.Address(),
			"signature": sig,
		},
	}, nil
}

func (b *btcBackend) pathVerifyMessageWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	address := data.Get("address").(string)
	message := data.Get("message").(string)
	signature := data.Get("signature").(string)

	network, err := getNetwork(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	valid, err := wallet.VerifyMessage(address, []byte(message), signature, network)
	if err != nil {
		return &logical.Response{
			Data: map[string]interface{}{
				"valid": false,
				"error": err.Error(),
			},
		}, nil
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"valid": valid,
		},
	}, nil
}

const pathWalletSignMessageHelpSynopsis = `
Sign a message with a wallet's key.
`

const pathWalletSignMessageHelpDescription = `
This endpoint signs an arbitrary message with the given p2pkh wallet's
private key, per the Bitcoin "signmessage" convention (magic-prefixed
double-SHA256 digest, recoverable ECDSA signature). Only p2pkh wallets
support message signing.
`

const pathVerifyMessageHelpSynopsis = `
Verify a Bitcoin signed-message signature.
`

const pathVerifyMessageHelpDescription = `
This endpoint recovers the public key from signature and checks that it
derives address (which must be p2pkh) under the configured network.
`
