// Package rpc is a minimal Bitcoin Core JSON-RPC client: one HTTP+basic-auth
// request per call, matching the small surface this plugin actually needs.
// Bitcoin Core's RPC is stateless HTTP, so there is no connection/subscription
// lifecycle to manage here, only a request timeout per call.
package rpc

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single RPC round trip.
const DefaultTimeout = 30 * time.Second

// Client is a Bitcoin Core JSON-RPC-over-HTTP client.
type Client struct {
	url      string
	username string
	password string
	http     *http.Client
}

// NewClient builds a Client targeting url (e.g. "http://127.0.0.1:8332")
// authenticating with username/password (the RPC credentials from
// bitcoin.conf / -rpcauth).
func NewClient(url, username, password string) *Client {
	return &Client{
		url:      url,
		username: username,
		password: password,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
}

type request struct {
	ID      uint32        `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	ID     uint32          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc: node returned error %d: %s", e.Code, e.Message)
}

func randomID() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// call issues one JSON-RPC 2.0 request and decodes its result into out.
// Node-side errors are surfaced verbatim to the caller — no retry.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	body, err := json.Marshal(request{ID: randomID(), JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpc: encoding request for %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc: building request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc: reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return fmt.Errorf("rpc: %s: unexpected HTTP status %d: %s", method, resp.StatusCode, string(raw))
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("rpc: decoding %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("rpc: decoding %s result: %w", method, err)
	}
	return nil
}

// UnspentOutput mirrors one element of listunspent's result array.
type UnspentOutput struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	Spendable     bool    `json:"spendable"`
	Solvable      bool    `json:"solvable"`
}

// ListUnspent calls listunspent filtered to addresses, from 0 confirmations.
func (c *Client) ListUnspent(ctx context.Context, addresses []string) ([]UnspentOutput, error) {
	var out []UnspentOutput
	addrParams := make([]interface{}, len(addresses))
	for i, a := range addresses {
		addrParams[i] = a
	}
	err := c.call(ctx, "listunspent", []interface{}{0, 9999999, addrParams}, &out)
	return out, err
}

// TxOutResult mirrors gettxout's result (nil Result fields if the output is
// spent, per the RPC's own semantics).
type TxOutResult struct {
	Confirmations int64  `json:"confirmations"`
	Value         float64 `json:"value"`
	ScriptPubKey  struct {
		Hex string `json:"hex"`
	} `json:"scriptPubKey"`
}

// GetTxOut calls gettxout, used to confirm a UTXO is still unspent and fetch
// its current scriptPubKey/value before building a spend.
func (c *Client) GetTxOut(ctx context.Context, txid string, vout uint32, includeMempool bool) (*TxOutResult, error) {
	var out *TxOutResult
	if err := c.call(ctx, "gettxout", []interface{}{txid, vout, includeMempool}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRawTransaction calls getrawtransaction with verbose=false, returning
// the raw hex-encoded transaction.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (string, error) {
	var hex string
	err := c.call(ctx, "getrawtransaction", []interface{}{txid, false}, &hex)
	return hex, err
}

// EstimateSmartFeeResult mirrors estimatesmartfee's result; Feerate is in
// BTC/kvB and absent (zero) when the node has no estimate yet.
type EstimateSmartFeeResult struct {
	Feerate float64  `json:"feerate"`
	Errors  []string `json:"errors"`
	Blocks  int      `json:"blocks"`
}

// EstimateSmartFee calls estimatesmartfee for the given confirmation target.
func (c *Client) EstimateSmartFee(ctx context.Context, confTarget int) (*EstimateSmartFeeResult, error) {
	var out EstimateSmartFeeResult
	if err := c.call(ctx, "estimatesmartfee", []interface{}{confTarget}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendRawTransaction broadcasts a hex-encoded signed transaction and returns
// its txid (hex, display/RPC byte order).
func (c *Client) SendRawTransaction(ctx context.Context, txHex string) (string, error) {
	var txid string
	err := c.call(ctx, "sendrawtransaction", []interface{}{txHex}, &txid)
	return txid, err
}

// GetBestBlockHash calls getbestblockhash.
func (c *Client) GetBestBlockHash(ctx context.Context) (string, error) {
	var hash string
	err := c.call(ctx, "getbestblockhash", nil, &hash)
	return hash, err
}

// GetBlockCount calls getblockcount.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	var count int64
	err := c.call(ctx, "getblockcount", nil, &count)
	return count, err
}

// GenerateToAddress calls generatetoaddress, used only against regtest to
// mine blocks in tests/dev flows.
func (c *Client) GenerateToAddress(ctx context.Context, nblocks int, address string) ([]string, error) {
	var hashes []string
	err := c.call(ctx, "generatetoaddress", []interface{}{nblocks, address}, &hashes)
	return hashes, err
}

// DescriptorInfo mirrors getdescriptorinfo's result.
type DescriptorInfo struct {
	Descriptor string `json:"descriptor"`
	Checksum   string `json:"checksum"`
	IsRange    bool   `json:"isrange"`
	IsSolvable bool   `json:"issolvable"`
	HasPrivKeys bool  `json:"hasprivatekeys"`
}

// GetDescriptorInfo calls getdescriptorinfo, used before importdescriptors
// to obtain the checksum the node requires.
func (c *Client) GetDescriptorInfo(ctx context.Context, descriptor string) (*DescriptorInfo, error) {
	var out DescriptorInfo
	if err := c.call(ctx, "getdescriptorinfo", []interface{}{descriptor}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportDescriptorRequest is one element of importdescriptors' request array.
type ImportDescriptorRequest struct {
	Descriptor string `json:"desc"`
	Timestamp  interface{} `json:"timestamp"` // unix seconds or "now"
	Active     bool        `json:"active"`
	Internal   bool        `json:"internal"`
	Label      string      `json:"label,omitempty"`
}

// ImportDescriptorResult is one element of importdescriptors' result array.
type ImportDescriptorResult struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ImportDescriptors calls importdescriptors, watching an address's
// scriptPubKey into the node's wallet so listunspent/gettxout can see it.
func (c *Client) ImportDescriptors(ctx context.Context, reqs []ImportDescriptorRequest) ([]ImportDescriptorResult, error) {
	var out []ImportDescriptorResult
	err := c.call(ctx, "importdescriptors", []interface{}{reqs}, &out)
	return out, err
}
