package btc

import (
	"sync"
	"time"
)

// MaxCacheAge bounds how long a cached address snapshot is trusted before a
// fresh RPC round trip is forced. Bitcoin Core's RPC has no subscription
// push, so there is no status hash to key on — just a short TTL.
const MaxCacheAge = 10 * time.Second

// BalanceInfo holds balance data for an address
type BalanceInfo struct {
	Confirmed   int64
	Unconfirmed int64
}

// CachedUTXO represents a cached unspent output
type CachedUTXO struct {
	TxID          string
	Vout          uint32
	Value         int64
	ScriptPubKey  string
	Confirmations int64
}

// AddressCache holds cached data for a single address
type AddressCache struct {
	Balance     BalanceInfo
	UTXOs       []CachedUTXO
	LastUpdated time.Time
}

// WalletCache holds all cached data for a wallet
type WalletCache struct {
	Addresses   map[string]*AddressCache // keyed by address string
	BlockHeight int64                    // cached block height for confirmations
	HeightTime  time.Time                // when block height was fetched
	LastUpdated time.Time
	mu          sync.RWMutex
}

// WalletCacheManager manages caches for all wallets
type WalletCacheManager struct {
	wallets map[string]*WalletCache // keyed by wallet name
	mu      sync.RWMutex
}

// NewWalletCacheManager creates a new cache manager
func NewWalletCacheManager() *WalletCacheManager {
	return &WalletCacheManager{
		wallets: make(map[string]*WalletCache),
	}
}

// GetWalletCache gets or creates a cache for a wallet
func (m *WalletCacheManager) GetWalletCache(walletName string) *WalletCache {
	m.mu.RLock()
	cache, exists := m.wallets[walletName]
	m.mu.RUnlock()

	if exists {
		return cache
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cache, exists = m.wallets[walletName]; exists {
		return cache
	}

	cache = &WalletCache{
		Addresses: make(map[string]*AddressCache),
	}
	m.wallets[walletName] = cache
	return cache
}

// InvalidateWallet clears the cache for a wallet
func (m *WalletCacheManager) InvalidateWallet(walletName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wallets, walletName)
}

// GetAddressCacheIfValid returns cached data if it is still within
// MaxCacheAge. Returns nil if cache is missing or too old.
func (c *WalletCache) GetAddressCacheIfValid(address string) *AddressCache {
	c.mu.RLock()
	defer c.mu.RUnlock()

	addrCache, exists := c.Addresses[address]
	if !exists {
		return nil
	}
	if time.Since(addrCache.LastUpdated) > MaxCacheAge {
		return nil
	}
	return addrCache
}

// SetAddressCache updates cached data for an address.
func (c *WalletCache) SetAddressCache(address string, balance BalanceInfo, utxos []CachedUTXO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Addresses[address] = &AddressCache{
		Balance:     balance,
		UTXOs:       utxos,
		LastUpdated: time.Now(),
	}
	c.LastUpdated = time.Now()
}

// InvalidateAddress removes a single address from cache
func (c *WalletCache) InvalidateAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Addresses, address)
}

// GetBlockHeight returns cached block height if recent, 0 otherwise
func (c *WalletCache) GetBlockHeight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if time.Since(c.HeightTime) < 30*time.Second {
		return c.BlockHeight
	}
	return 0
}

// SetBlockHeight updates the cached block height
func (c *WalletCache) SetBlockHeight(height int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BlockHeight = height
	c.HeightTime = time.Now()
}
