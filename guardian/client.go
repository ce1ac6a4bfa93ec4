package guardian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	checkout "github.com/lumenlabs/checkout-go"
)

const defaultTimeout = 15 * time.Second

// Client implements Evaluator against the guardian HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// TokenSource supplies the bearer token attached to guardian requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a guardian API client.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type evaluationResponse struct {
	ConfirmationRequired bool   `json:"confirmationRequired"`
	ID                   string `json:"id"`
}

func (c *Client) post(ctx context.Context, path string, payload any) (evaluationResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return evaluationResponse{}, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return evaluationResponse{}, fmt.Errorf("failed to create evaluation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return evaluationResponse{}, fmt.Errorf("%w: failed to resolve access token: %v", checkout.ErrGuardianUnavailable, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return evaluationResponse{}, fmt.Errorf("%w: %v", checkout.ErrGuardianUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return evaluationResponse{}, fmt.Errorf("%w: evaluation returned status %d", checkout.ErrGuardianUnavailable, resp.StatusCode)
	}

	var evalResp evaluationResponse
	if err := json.NewDecoder(resp.Body).Decode(&evalResp); err != nil {
		return evaluationResponse{}, fmt.Errorf("%w: failed to decode evaluation response: %v", checkout.ErrGuardianUnavailable, err)
	}

	return evalResp, nil
}

// EvaluateTransaction implements Evaluator.
func (c *Client) EvaluateTransaction(ctx context.Context, payload TransactionPayload) (EvaluationResult, error) {
	resp, err := c.post(ctx, "/guardian/v1/transactions/evm/evaluate", payload)
	if err != nil {
		return EvaluationResult{}, err
	}
	return EvaluationResult{
		ConfirmationRequired: resp.ConfirmationRequired,
		TransactionID:        resp.ID,
	}, nil
}

// EvaluateMessage implements Evaluator.
func (c *Client) EvaluateMessage(ctx context.Context, payload MessagePayload) (EvaluationResult, error) {
	resp, err := c.post(ctx, "/guardian/v1/messages/evm/evaluate", payload)
	if err != nil {
		return EvaluationResult{}, err
	}
	return EvaluationResult{
		ConfirmationRequired: resp.ConfirmationRequired,
		MessageID:            resp.ID,
	}, nil
}

// EvaluateERC191Message implements Evaluator.
func (c *Client) EvaluateERC191Message(ctx context.Context, payload MessagePayload) (EvaluationResult, error) {
	resp, err := c.post(ctx, "/guardian/v1/messages/erc191/evaluate", payload)
	if err != nil {
		return EvaluationResult{}, err
	}
	return EvaluationResult{
		ConfirmationRequired: resp.ConfirmationRequired,
		MessageID:            resp.ID,
	}, nil
}
