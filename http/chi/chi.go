// Package chi provides a Chi binding for the wallet JSON-RPC handler.
// It is a thin adapter; all dispatch logic lives in the http package.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	wallethttp "github.com/lumenlabs/checkout-go/http"
	"github.com/lumenlabs/checkout-go/provider"
)

// NewRouter mounts the JSON-RPC handler on a fresh Chi router at path.
//
// Example usage:
//
//	r := chiwallet.NewRouter("/wallet/rpc", p)
//	http.ListenAndServe(":8080", r)
func NewRouter(path string, p *provider.Provider, opts ...wallethttp.HandlerOption) chi.Router {
	r := chi.NewRouter()
	r.Method(http.MethodPost, path, wallethttp.NewHandler(p, opts...))
	return r
}
