// Package provider implements an EIP-1193 style JSON-RPC provider over the
// smart wallet: account surface, transaction relay, typed-data and
// personal-message signing, and read-only passthrough to an RPC node.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	checkout "github.com/lumenlabs/checkout-go"
	"github.com/lumenlabs/checkout-go/auth"
	"github.com/lumenlabs/checkout-go/guardian"
	"github.com/lumenlabs/checkout-go/relayer"
	"github.com/lumenlabs/checkout-go/sequence"
)

// Signer is the local session key that co-signs wallet operations. The
// evm.Signer satisfies it.
type Signer = sequence.Signer

// ReadRPC is the read-only node connection used for passthrough calls. The
// go-ethereum rpc.Client satisfies it.
type ReadRPC interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Relayer is the co-signing transaction relayer surface the provider needs.
type Relayer interface {
	SendTransaction(ctx context.Context, to, data string) (string, error)
	GetTransactionByHash(ctx context.Context, relayerID string) (*relayer.Transaction, error)
	GetFeeOptions(ctx context.Context, userAddress, data string) ([]relayer.FeeOption, error)
	SignMessage(ctx context.Context, walletAddress, digest string) (string, error)
	SignTypedData(ctx context.Context, walletAddress string, typedData json.RawMessage) (string, error)
}

// Provider dispatches EIP-1193 requests against a smart wallet.
type Provider struct {
	chain    checkout.ChainConfig
	signer   Signer
	caller   sequence.ContractCaller
	rpc      ReadRPC
	relay    Relayer
	guardian guardian.Evaluator
	screen   guardian.ConfirmationScreen
	session  auth.Session
	users    *userCache
	log      *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// WithConfirmationScreen sets the surface used for guardian confirmations.
func WithConfirmationScreen(screen guardian.ConfirmationScreen) Option {
	return func(p *Provider) {
		p.screen = screen
	}
}

// New creates a Provider. The signer, contract caller, relayer, guardian and
// session are all required collaborators; rpc may be nil when read
// passthrough is not needed.
func New(
	chain checkout.ChainConfig,
	signer Signer,
	caller sequence.ContractCaller,
	rpc ReadRPC,
	relay Relayer,
	evaluator guardian.Evaluator,
	session auth.Session,
	opts ...Option,
) *Provider {
	p := &Provider{
		chain:    chain,
		signer:   signer,
		caller:   caller,
		rpc:      rpc,
		relay:    relay,
		guardian: evaluator,
		screen:   noopScreen{},
		session:  session,
		users:    newUserCache(),
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// noopScreen approves nothing and displays nothing; hosts that want user
// confirmation wire a real screen via WithConfirmationScreen.
type noopScreen struct{}

func (noopScreen) Loading() {}

func (noopScreen) RequestConfirmation(context.Context, string) (bool, error) {
	return true, nil
}

func (noopScreen) CloseWindow() {}

// passthroughMethods are read-only node methods forwarded verbatim.
var passthroughMethods = map[string]struct{}{
	"eth_getBalance":                          {},
	"eth_getCode":                             {},
	"eth_getStorageAt":                        {},
	"eth_call":                                {},
	"eth_estimateGas":                         {},
	"eth_gasPrice":                            {},
	"eth_blockNumber":                         {},
	"eth_getBlockByHash":                      {},
	"eth_getBlockByNumber":                    {},
	"eth_getTransactionByHash":                {},
	"eth_getTransactionReceipt":               {},
	"eth_getTransactionCount":                 {},
}

// Request dispatches one JSON-RPC request. Errors are returned as-is;
// callers surface them with checkout.NormalizeRPCError.
func (p *Provider) Request(ctx context.Context, method string, params []json.RawMessage) (any, error) {
	p.log.Debug("rpc request", zap.String("method", method))

	switch method {
	case "eth_requestAccounts":
		accounts, err := p.requestAccounts(ctx)
		return anyOrErr(accounts, err)
	case "eth_accounts":
		accounts, err := p.accounts(ctx)
		return anyOrErr(accounts, err)
	case "eth_chainId":
		return hexutil.EncodeUint64(p.chain.ChainID), nil
	case "eth_sendTransaction":
		hash, err := p.sendTransaction(ctx, params)
		return anyOrErr(hash, err)
	case "personal_sign":
		signature, err := p.personalSign(ctx, params)
		return anyOrErr(signature, err)
	case "eth_signTypedData", "eth_signTypedData_v4":
		signature, err := p.signTypedData(ctx, params)
		return anyOrErr(signature, err)
	case "im_signEjectionTransaction":
		signed, err := p.signEjectionTransaction(ctx, params)
		return anyOrErr(signed, err)
	case "im_addSessionActivity":
		return p.addSessionActivity(ctx, params)
	}

	if _, ok := passthroughMethods[method]; ok {
		return p.passthrough(ctx, method, params)
	}

	return nil, checkout.NewCheckoutError(
		checkout.ErrCodeUnsupportedMethod,
		fmt.Sprintf("method %q is not supported", method),
		checkout.ErrUnsupportedMethod,
	)
}

// anyOrErr keeps result values out of responses when the call failed.
func anyOrErr[T any](result T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestValues is a convenience over Request for Go callers with plain
// values instead of raw JSON params.
func (p *Provider) RequestValues(ctx context.Context, method string, params ...any) (any, error) {
	raw := make([]json.RawMessage, len(params))
	for i, param := range params {
		encoded, err := json.Marshal(param)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
		}
		raw[i] = encoded
	}
	return p.Request(ctx, method, raw)
}

// requestAccounts resolves the logged-in user and returns the wallet
// address. A user without a provisioned wallet is unauthorized.
func (p *Provider) requestAccounts(ctx context.Context) ([]string, error) {
	user, err := p.user(ctx)
	if err != nil {
		return nil, err
	}
	if !user.Registered() {
		return nil, checkout.NewCheckoutError(
			checkout.ErrCodeUnauthorized,
			"no registered smart wallet for this user",
			checkout.ErrUnauthorized,
		)
	}
	return []string{user.WalletAddress}, nil
}

// accounts returns the wallet address, or an empty list when no wallet is
// available. It never errors on missing registration.
func (p *Provider) accounts(ctx context.Context) ([]string, error) {
	user, err := p.user(ctx)
	if err != nil || !user.Registered() {
		return []string{}, nil
	}
	return []string{user.WalletAddress}, nil
}

// user resolves the authenticated wallet identity through the session
// cache.
func (p *Provider) user(ctx context.Context) (auth.User, error) {
	return p.users.Get(ctx, p.session)
}

// passthrough forwards a read-only method to the RPC node untouched.
func (p *Provider) passthrough(ctx context.Context, method string, params []json.RawMessage) (any, error) {
	if p.rpc == nil {
		return nil, checkout.NewCheckoutError(
			checkout.ErrCodeUnsupportedMethod,
			fmt.Sprintf("method %q requires a node connection", method),
			checkout.ErrUnsupportedMethod,
		)
	}

	args := make([]any, len(params))
	for i, param := range params {
		args[i] = param
	}

	var result json.RawMessage
	if err := p.rpc.CallContext(ctx, &result, method, args...); err != nil {
		return nil, err
	}
	return result, nil
}

// addSessionActivity records dApp activity against the wallet session. The
// call is advisory; failures never block the caller.
func (p *Provider) addSessionActivity(ctx context.Context, params []json.RawMessage) (any, error) {
	var activity struct {
		ClientID string `json:"clientId"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &activity); err != nil {
			return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
		}
	}

	user, err := p.user(ctx)
	if err != nil {
		return nil, err
	}

	p.log.Info("session activity",
		zap.String("clientId", activity.ClientID),
		zap.String("wallet", user.WalletAddress),
	)
	return nil, nil
}
