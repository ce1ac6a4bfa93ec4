// Package http exposes the wallet provider as a JSON-RPC 2.0 HTTP endpoint
// so a dApp backend can host it. Framework bindings live in the gin and chi
// subpackages; both delegate to the Handler here.
package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	checkout "github.com/lumenlabs/checkout-go"
	"github.com/lumenlabs/checkout-go/provider"
)

// Handler serves JSON-RPC requests against a wallet provider.
type Handler struct {
	provider *provider.Provider
	log      *zap.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler creates a Handler over the given provider.
func NewHandler(p *provider.Provider, opts ...HandlerOption) *Handler {
	h := &Handler{
		provider: p,
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Request is the JSON-RPC 2.0 request envelope.
type Request struct {
	ID      json.RawMessage   `json:"id"`
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON-RPC 2.0 response envelope.
type Response struct {
	ID      json.RawMessage    `json:"id"`
	JSONRPC string             `json:"jsonrpc"`
	Result  any                `json:"result,omitempty"`
	Error   *checkout.RPCError `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler. Transport-level problems (wrong verb,
// unparseable body) are JSON-RPC errors too, so callers always get the
// {code,message} shape.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResponse(w, Response{
			JSONRPC: "2.0",
			Error: &checkout.RPCError{
				Code:    checkout.RPCErrCodeInvalidParams,
				Message: "only POST is accepted",
			},
		})
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, Response{
			JSONRPC: "2.0",
			Error: &checkout.RPCError{
				Code:    checkout.RPCErrCodeParse,
				Message: "failed to parse request body",
			},
		})
		return
	}

	resp := Response{ID: req.ID, JSONRPC: "2.0"}

	result, err := h.provider.Request(r.Context(), req.Method, req.Params)
	if err != nil {
		resp.Error = checkout.NormalizeRPCError(err)
		h.log.Warn("rpc request failed",
			zap.String("method", req.Method),
			zap.Int("code", resp.Error.Code),
			zap.Error(err),
		)
	} else {
		resp.Result = result
	}

	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
