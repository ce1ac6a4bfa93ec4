// Package gin provides a Gin binding for the wallet JSON-RPC handler.
// It is a thin adapter; all dispatch logic lives in the http package.
package gin

import (
	"github.com/gin-gonic/gin"

	wallethttp "github.com/lumenlabs/checkout-go/http"
	"github.com/lumenlabs/checkout-go/provider"
)

// NewWalletHandler wraps the JSON-RPC handler as a gin.HandlerFunc.
//
// Example usage:
//
//	r := gin.Default()
//	r.POST("/wallet/rpc", ginwallet.NewWalletHandler(p))
func NewWalletHandler(p *provider.Provider, opts ...wallethttp.HandlerOption) gin.HandlerFunc {
	handler := wallethttp.NewHandler(p, opts...)
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
