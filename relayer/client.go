// Package relayer provides the JSON-RPC client for the transaction relayer
// that co-signs and submits smart wallet transactions.
package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	checkout "github.com/lumenlabs/checkout-go"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token attached to relayer requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// AccessToken implements TokenSource.
func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Client talks JSON-RPC 2.0 to the relayer over HTTP POST.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	chainID string
	nextID  atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// NewClient creates a relayer client. chainID is the EIP-155 chain id in
// decimal string form, carried in every request that needs one.
func NewClient(baseURL, chainID string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		chainID: chainID,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type rpcRequest struct {
	ID      int64  `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relayer error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC request and unmarshals the result into out.
// Transport failures, non-2xx statuses and JSON-RPC error responses all map
// to ErrRelayerUnavailable; there are no retries.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		ID:      c.nextID.Add(1),
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("%w: failed to resolve access token: %v", checkout.ErrRelayerUnavailable, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrRelayerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", checkout.ErrRelayerUnavailable, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", checkout.ErrRelayerUnavailable, method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %v", checkout.ErrRelayerUnavailable, rpcResp.Error)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%w: failed to unmarshal %s result: %v", checkout.ErrRelayerUnavailable, method, err)
		}
	}

	return nil
}

// SendTransaction submits signed execute call data for relay. It returns the
// relayer's transaction identifier, not an on-chain hash.
func (c *Client) SendTransaction(ctx context.Context, to, data string) (string, error) {
	params := []any{map[string]string{
		"to":      to,
		"data":    data,
		"chainId": c.chainID,
	}}

	var relayerID string
	if err := c.call(ctx, "eth_sendTransaction", params, &relayerID); err != nil {
		return "", err
	}
	return relayerID, nil
}

// GetTransactionByHash looks up a relayed transaction by its relayer id.
func (c *Client) GetTransactionByHash(ctx context.Context, relayerID string) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, "im_getTransactionByHash", []any{relayerID}, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetFeeOptions asks the relayer how the wallet may pay the relay fee for the
// given execute call data.
func (c *Client) GetFeeOptions(ctx context.Context, userAddress, data string) ([]FeeOption, error) {
	params := []any{map[string]string{
		"userAddress": userAddress,
		"data":        data,
		"chainId":     c.chainID,
	}}

	var result struct {
		Options []FeeOption `json:"options"`
	}
	if err := c.call(ctx, "im_getFeeOptions", params, &result); err != nil {
		return nil, err
	}
	return result.Options, nil
}

// SignMessage asks the relayer to co-sign a raw message digest for the given
// smart wallet. The returned blob carries the relayer's signer parts.
func (c *Client) SignMessage(ctx context.Context, walletAddress, digest string) (string, error) {
	params := []any{map[string]string{
		"address": walletAddress,
		"message": digest,
		"chainId": c.chainID,
	}}

	var result struct {
		Signature string `json:"signature"`
	}
	if err := c.call(ctx, "im_sign", params, &result); err != nil {
		return "", err
	}
	return result.Signature, nil
}

// SignTypedData asks the relayer to co-sign an EIP-712 payload for the given
// smart wallet.
func (c *Client) SignTypedData(ctx context.Context, walletAddress string, typedData json.RawMessage) (string, error) {
	params := []any{map[string]any{
		"address":   walletAddress,
		"typedData": typedData,
		"chainId":   c.chainID,
	}}

	var result struct {
		Signature string `json:"signature"`
	}
	if err := c.call(ctx, "im_signTypedData", params, &result); err != nil {
		return "", err
	}
	return result.Signature, nil
}
