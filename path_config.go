package btc

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"

	"github.com/bitforge-labs/vault-plugin-btc/wallet"
)

const configStoragePath = "config"

// btcConfig stores the secrets engine configuration: where to reach the
// Bitcoin Core node, which network profile to derive addresses under, and
// the spending policy knobs.
type btcConfig struct {
	RPCURL           string `json:"rpc_url"`
	RPCUser          string `json:"rpc_user"`
	RPCPass          string `json:"rpc_pass"`
	Network          string `json:"network"`
	MinConfirmations int    `json:"min_confirmations"`
	AbsurdFeeRate    int64  `json:"absurd_fee_rate"`
}

func pathConfig(b *btcBackend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "config",
			DisplayAttrs: &framework.DisplayAttributes{
				OperationPrefix: "btc",
			},
			Fields: map[string]*framework.FieldSchema{
				"rpc_url": {
					Type:        framework.TypeString,
					Description: "Bitcoin Core JSON-RPC endpoint, e.g. http://127.0.0.1:8332",
					Required:    true,
				},
				"rpc_user": {
					Type:        framework.TypeString,
					Description: "Bitcoin Core RPC username",
				},
				"rpc_pass": {
					Type:        framework.TypeString,
					Description: "Bitcoin Core RPC password",
				},
				"network": {
					Type:        framework.TypeString,
					Description: "Bitcoin network: mainnet, testnet, or regtest",
					Default:     "mainnet",
				},
				"min_confirmations": {
					Type:        framework.TypeInt,
					Description: "Minimum confirmations required to spend UTXOs (default: 1)",
					Default:     1,
				},
				"absurd_fee_rate": {
					Type:        framework.TypeInt,
					Description: "Reject transactions whose fee rate (sat/vbyte) exceeds this guard (default: 50)",
					Default:     wallet.DefaultMaxFeeRate,
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ReadOperation: &framework.PathOperation{
					Callback: b.pathConfigRead,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "config",
					},
				},
				logical.CreateOperation: &framework.PathOperation{
					Callback: b.pathConfigWrite,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "config",
					},
				},
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathConfigWrite,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "config",
					},
				},
				logical.DeleteOperation: &framework.PathOperation{
					Callback: b.pathConfigDelete,
					DisplayAttrs: &framework.DisplayAttributes{
						OperationSuffix: "config",
					},
				},
			},
			ExistenceCheck:  b.pathConfigExistenceCheck,
			HelpSynopsis:    pathConfigHelpSynopsis,
			HelpDescription: pathConfigHelpDescription,
		},
	}
}

func (b *btcBackend) pathConfigExistenceCheck(ctx context.Context, req *logical.Request, data *framework.FieldData) (bool, error) {
	out, err := req.Storage.Get(ctx, configStoragePath)
	if err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return out != nil, nil
}

func (b *btcBackend) pathConfigRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	b.Logger().Debug("reading config")
	config, err := getConfig(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	if config == nil {
		b.Logger().Debug("no config found")
		return nil, nil
	}

	b.Logger().Debug("config read", "network", config.Network, "rpc_url", config.RPCURL, "min_confirmations", config.MinConfirmations)

	return &logical.Response{
		Data: map[string]interface{}{
			"rpc_url":           config.RPCURL,
			"rpc_user":          config.RPCUser,
			"network":           config.Network,
			"min_confirmations": config.MinConfirmations,
			"absurd_fee_rate":   config.AbsurdFeeRate,
		},
	}, nil
}

func (b *btcBackend) pathConfigWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	b.Logger().Debug("writing config", "operation", req.Operation)
	config, err := getConfig(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	createOperation := req.Operation == logical.CreateOperation

	if config == nil {
		if !createOperation {
			return nil, fmt.Errorf("config not found during update operation")
		}
		b.Logger().Debug("creating new config")
		config = &btcConfig{}
	}

	if rpcURL, ok := data.GetOk("rpc_url"); ok {
		config.RPCURL = rpcURL.(string)
	} else if createOperation {
		config.RPCURL = data.Get("rpc_url").(string)
	}

	if rpcUser, ok := data.GetOk("rpc_user"); ok {
		config.RPCUser = rpcUser.(string)
	}

	if rpcPass, ok := data.GetOk("rpc_pass"); ok {
		config.RPCPass = rpcPass.(string)
	}

	if network, ok := data.GetOk("network"); ok {
		config.Network = network.(string)
	} else if createOperation {
		config.Network = data.Get("network").(string)
	}

	if minConf, ok := data.GetOk("min_confirmations"); ok {
		config.MinConfirmations = minConf.(int)
	} else if createOperation {
		config.MinConfirmations = data.Get("min_confirmations").(int)
	}

	if feeRate, ok := data.GetOk("absurd_fee_rate"); ok {
		config.AbsurdFeeRate = int64(feeRate.(int))
	} else if createOperation {
		config.AbsurdFeeRate = int64(data.Get("absurd_fee_rate").(int))
	}

	if config.RPCURL == "" {
		return logical.ErrorResponse("rpc_url is required"), nil
	}

	if _, err := wallet.NetworkByName(config.Network); err != nil {
		return logical.ErrorResponse("network must be 'mainnet', 'testnet', or 'regtest'"), nil
	}

	if config.MinConfirmations < 0 {
		return logical.ErrorResponse("min_confirmations must be >= 0"), nil
	}

	if config.AbsurdFeeRate <= 0 {
		return logical.ErrorResponse("absurd_fee_rate must be positive"), nil
	}

	entry, err := logical.StorageEntryJSON(configStoragePath, config)
	if err != nil {
		return nil, err
	}

	if err := req.Storage.Put(ctx, entry); err != nil {
		return nil, err
	}

	// Reset the client so the new config takes effect
	b.reset()

	b.Logger().Info("config saved", "network", config.Network, "rpc_url", config.RPCURL, "min_confirmations", config.MinConfirmations)
	return nil, nil
}

func (b *btcBackend) pathConfigDelete(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	b.Logger().Debug("deleting config")
	err := req.Storage.Delete(ctx, configStoragePath)
	if err != nil {
		return nil, fmt.Errorf("error deleting config: %w", err)
	}

	b.reset()

	b.Logger().Info("config deleted")
	return nil, nil
}

// getConfig retrieves the configuration from storage
func getConfig(ctx context.Context, s logical.Storage) (*btcConfig, error) {
	entry, err := s.Get(ctx, configStoragePath)
	if err != nil {
		return nil, fmt.Errorf("error retrieving config: %w", err)
	}

	if entry == nil {
		return nil, nil
	}

	config := new(btcConfig)
	if err := entry.DecodeJSON(config); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	return config, nil
}

// getNetwork retrieves the configured network profile, defaulting to mainnet.
func getNetwork(ctx context.Context, s logical.Storage) (wallet.Network, error) {
	config, err := getConfig(ctx, s)
	if err != nil {
		return wallet.Network{}, err
	}
	if config == nil {
		return wallet.Mainnet, nil
	}
	return wallet.NetworkByName(config.Network)
}

// getMinConfirmations retrieves the min_confirmations from config, defaulting to 1
func getMinConfirmations(ctx context.Context, s logical.Storage) (int, error) {
	config, err := getConfig(ctx, s)
	if err != nil {
		return 0, err
	}

	if config == nil {
		return 1, nil
	}

	if config.MinConfirmations == 0 {
		return 1, nil
	}

	return config.MinConfirmations, nil
}

// getMaxFeeRate retrieves the absurd-fee guard from config, defaulting to
// wallet.DefaultMaxFeeRate.
func getMaxFeeRate(ctx context.Context, s logical.Storage) (uint64, error) {
	config, err := getConfig(ctx, s)
	if err != nil {
		return 0, err
	}
	if config == nil || config.AbsurdFeeRate <= 0 {
		return wallet.DefaultMaxFeeRate, nil
	}
	return uint64(config.AbsurdFeeRate), nil
}

const pathConfigHelpSynopsis = `
Configure the Bitcoin secrets engine.
`

const pathConfigHelpDescription = `
This endpoint configures the Bitcoin secrets engine with the Bitcoin Core
RPC endpoint, the network profile, and spending policy defaults.

Parameters:
  - rpc_url: Bitcoin Core JSON-RPC endpoint (required), e.g. http://127.0.0.1:8332
  - rpc_user / rpc_pass: RPC basic-auth credentials
  - network: mainnet, testnet, or regtest (default: mainnet)
  - min_confirmations: Minimum confirmations to spend UTXOs (default: 1)
  - absurd_fee_rate: Reject fee rates above this many sat/vbyte (default: 50)

Example (regtest, local node):
  $ vault write btc/config \
      rpc_url="http://127.0.0.1:18443" \
      rpc_user=bitcoinrpc \
      rpc_pass=secret \
      network=regtest

Example (mainnet):
  $ vault write btc/config \
      rpc_url="http://127.0.0.1:8332" \
      rpc_user=bitcoinrpc \
      rpc_pass=secret \
      network=mainnet
`
