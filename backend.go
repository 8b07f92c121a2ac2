package btc

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/hashicorp/vault/sdk/framework"
	"github.com/hashicorp/vault/sdk/logical"

	"github.com/bitforge-labs/vault-plugin-btc/rpc"
)

// btcBackend defines the backend for the Bitcoin secrets engine
type btcBackend struct {
	*framework.Backend
	lock   sync.RWMutex
	client *rpc.Client
	cache  *WalletCacheManager
}

// Factory creates a new backend instance
func Factory(ctx context.Context, conf *logical.BackendConfig) (logical.Backend, error) {
	b := backend()
	if err := b.Setup(ctx, conf); err != nil {
		return nil, err
	}
	return b, nil
}

func backend() *btcBackend {
	b := &btcBackend{
		cache: NewWalletCacheManager(),
	}

	b.Backend = &framework.Backend{
		Help: strings.TrimSpace(backendHelp),
		PathsSpecial: &logical.Paths{
			SealWrapStorage: []string{
				"config",
				"wallets/*",
			},
		},
		Paths: framework.PathAppend(
			pathConfig(b),
			pathWallets(b),
			pathWalletUTXOs(b),
			pathWalletSend(b),
			pathWalletConsolidate(b),
			pathWalletMessage(b),
		),
		Secrets:     []*framework.Secret{},
		BackendType: logical.TypeLogical,
		Invalidate:  b.invalidate,
	}

	return b
}

// invalidate resets the client when configuration changes
func (b *btcBackend) invalidate(ctx context.Context, key string) {
	if key == "config" {
		b.reset()
	}
}

// reset clears the cached RPC client so the next call to getClient picks up
// any configuration change.
func (b *btcBackend) reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.client = nil
}

// isConnectionError reports whether err looks like a transient network
// failure worth retrying against a freshly built client, rather than a node
// error that would recur regardless ("external failures" propagation
// rule still applies to the latter).
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "no such host")
}

// handleClientError resets the client if err looks like a connection
// problem. Returns true if the client was reset (caller may retry once with
// a fresh client).
func (b *btcBackend) handleClientError(err error) bool {
	if isConnectionError(err) {
		b.Logger().Warn("detected stale RPC connection, resetting client", "error", err)
		b.reset()
		return true
	}
	return false
}

// getClient returns the Bitcoin Core RPC client, building one from the
// stored config if necessary. Unlike a persistent Electrum
// connection, this client is stateless HTTP — "connecting" just means
// reading config and constructing the *rpc.Client.
func (b *btcBackend) getClient(ctx context.Context, s logical.Storage) (*rpc.Client, error) {
	b.lock.RLock()
	if b.client != nil {
		defer b.lock.RUnlock()
		return b.client, nil
	}
	b.lock.RUnlock()

	b.lock.Lock()
	defer b.lock.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	config, err := getConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	if config == nil || config.RPCURL == "" {
		return nil, fmt.Errorf("btc secrets engine is not configured: run `vault write btc/config rpc_url=...`")
	}

	b.Logger().Debug("building Bitcoin Core RPC client", "rpc_url", config.RPCURL, "network", config.Network)
	b.client = rpc.NewClient(config.RPCURL, config.RPCUser, config.RPCPass)
	return b.client, nil
}

// listWalletUTXOs fetches the spendable UTXOs for address, filtering out
// anything with fewer than minConf confirmations, using a short-lived cache
// to absorb bursts of reads. minConf of 0 returns everything
// listunspent reports, including unconfirmed.
func (b *btcBackend) listWalletUTXOs(ctx context.Context, client *rpc.Client, s logical.Storage, walletName, address string, minConf int) ([]UTXOInfo, error) {
	cache := b.cache.GetWalletCache(walletName)

	if cached := cache.GetAddressCacheIfValid(address); cached != nil {
		return filterCachedUTXOs(cached.UTXOs, address, minConf), nil
	}

	unspent, err := client.ListUnspent(ctx, []string{address})
	if err != nil {
		if b.handleClientError(err) {
			client, err = b.getClient(ctx, s)
			if err != nil {
				return nil, err
			}
			unspent, err = client.ListUnspent(ctx, []string{address})
		}
		if err != nil {
			return nil, fmt.Errorf("listunspent for %s: %w", address, err)
		}
	}

	cached := make([]CachedUTXO, 0, len(unspent))
	var confirmed, unconfirmed int64
	for _, u := range unspent {
		value := int64(math.Round(u.Amount * 1e8))
		cached = append(cached, CachedUTXO{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Value:         value,
			ScriptPubKey:  u.ScriptPubKey,
			Confirmations: u.Confirmations,
		})
		if u.Confirmations > 0 {
			confirmed += value
		} else {
			unconfirmed += value
		}
	}
	cache.SetAddressCache(address, BalanceInfo{Confirmed: confirmed, Unconfirmed: unconfirmed}, cached)

	return filterCachedUTXOs(cached, address, minConf), nil
}

func filterCachedUTXOs(cached []CachedUTXO, address string, minConf int) []UTXOInfo {
	out := make([]UTXOInfo, 0, len(cached))
	for _, u := range cached {
		if int64(minConf) > 0 && u.Confirmations < int64(minConf) {
			continue
		}
		out = append(out, UTXOInfo{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Value:         u.Value,
			Address:       address,
			ScriptPubKey:  u.ScriptPubKey,
			Confirmations: u.Confirmations,
		})
	}
	return out
}

// decodeScriptPubKey decodes a hex-encoded scriptPubKey as returned by
// listunspent/gettxout.
func decodeScriptPubKey(hexStr string) ([]byte, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decoding scriptPubKey: %w", err)
	}
	return b, nil
}

const backendHelp = `
The Bitcoin secrets engine provides secure construction and signing of
Bitcoin transactions against wallets held inside Vault.

Each wallet holds exactly one private key bound to one address type
(p2pkh, p2sh-p2wpkh, p2wpkh, or p2tr). The engine supports:

  - Wallet creation (generated or imported key) and balance queries
  - UTXO listing
  - Sending with fee estimation and an absurd-fee guard
  - Consolidating a wallet's UTXOs into a single output
  - Signing and verifying arbitrary messages

Configure the engine with a Bitcoin Core JSON-RPC endpoint and choose
between mainnet, testnet, or regtest.

Endpoints:
  btc/config                      - Bitcoin Core RPC endpoint and network
  btc/wallets                     - List wallets
  btc/wallets/:name               - Create/read/delete a wallet
  btc/wallets/:name/utxos         - List UTXOs
  btc/wallets/:name/send          - Send bitcoin
  btc/wallets/:name/consolidate   - Consolidate UTXOs into one output
  btc/wallets/:name/sign-message  - Sign a message
  btc/verify-message              - Verify a message signature
`
