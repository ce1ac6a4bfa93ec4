package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	checkout "github.com/lumenlabs/checkout-go"
	"github.com/lumenlabs/checkout-go/auth"
	"github.com/lumenlabs/checkout-go/evm"
	"github.com/lumenlabs/checkout-go/guardian"
	"github.com/lumenlabs/checkout-go/relayer"
	"github.com/lumenlabs/checkout-go/sequence"
)

// hashPollInterval is how often the relayer is asked for the on-chain hash
// of a submitted transaction.
const hashPollInterval = time.Second

// transactionParams is the eth_sendTransaction request object.
type transactionParams struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
}

// registeredUser resolves the session user and requires a provisioned wallet.
func (p *Provider) registeredUser(ctx context.Context) (auth.User, common.Address, error) {
	user, err := p.user(ctx)
	if err != nil {
		return auth.User{}, common.Address{}, err
	}
	if !user.Registered() {
		return auth.User{}, common.Address{}, checkout.NewCheckoutError(
			checkout.ErrCodeUnauthorized,
			"no registered smart wallet for this user",
			checkout.ErrUnauthorized,
		)
	}
	return user, common.HexToAddress(user.WalletAddress), nil
}

// sendTransaction runs the full meta-transaction flow: nonce and fee-option
// lookup, guardian confirmation, local threshold-1 signing, relayer
// submission, and a wait for the on-chain hash.
func (p *Provider) sendTransaction(ctx context.Context, params []json.RawMessage) (string, error) {
	if len(params) < 1 {
		return "", fmt.Errorf("%w: eth_sendTransaction needs a transaction object", checkout.ErrInvalidParams)
	}
	var txParams transactionParams
	if err := json.Unmarshal(params[0], &txParams); err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
	}
	if txParams.To == "" {
		return "", fmt.Errorf("%w: transaction needs a to address", checkout.ErrInvalidParams)
	}

	_, wallet, err := p.registeredUser(ctx)
	if err != nil {
		return "", err
	}

	tx, err := decodeTransaction(txParams)
	if err != nil {
		return "", err
	}
	metaTxs := []sequence.Transaction{tx}

	var (
		nonce      *big.Int
		feeOptions []relayer.FeeOption
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nonce, err = sequence.GetNonce(gctx, p.caller, wallet, nil)
		return err
	})
	g.Go(func() error {
		var err error
		feeOptions, err = p.relay.GetFeeOptions(gctx, wallet.Hex(), txParams.Data)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	feeTx, err := p.feeTransaction(feeOptions)
	if err != nil {
		return "", err
	}
	if feeTx != nil {
		metaTxs = append(metaTxs, *feeTx)
	}

	err = guardian.ConfirmTransaction(ctx, p.guardian, p.screen, guardian.TransactionPayload{
		ChainID:       p.chain.ChainIDBig().String(),
		WalletAddress: wallet.Hex(),
		To:            txParams.To,
		Data:          txParams.Data,
		Nonce:         nonce.String(),
	})
	if err != nil {
		return "", err
	}

	// The user already confirmed; the screen must not outlive a failed
	// submission.
	hash, err := p.relayAndWait(ctx, wallet, nonce, metaTxs)
	if err != nil {
		p.screen.CloseWindow()
		return "", err
	}
	return hash, nil
}

// relayAndWait signs the confirmed batch, submits it and waits for the
// on-chain hash.
func (p *Provider) relayAndWait(ctx context.Context, wallet common.Address, nonce *big.Int, metaTxs []sequence.Transaction) (string, error) {
	callData, err := sequence.SignMetaTransactions(p.signer, p.chain.ChainIDBig(), wallet, nonce, metaTxs)
	if err != nil {
		return "", err
	}

	relayerID, err := p.relay.SendTransaction(ctx, wallet.Hex(), hexutil.Encode(callData))
	if err != nil {
		return "", err
	}

	p.log.Info("transaction relayed",
		zap.String("wallet", wallet.Hex()),
		zap.String("relayerId", relayerID),
	)

	return p.waitForHash(ctx, relayerID)
}

// feeTransaction converts the native fee option, when one is priced above
// zero, into the value-transfer meta-transaction paying the relayer.
func (p *Provider) feeTransaction(options []relayer.FeeOption) (*sequence.Transaction, error) {
	if len(options) == 0 {
		return nil, nil
	}

	option, err := relayer.NativeFeeOption(options, p.chain)
	if err != nil {
		return nil, err
	}
	amount, err := option.Amount()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrRelayerUnavailable, err)
	}
	if amount.Sign() <= 0 {
		return nil, nil
	}

	recipient := common.HexToAddress(option.RecipientAddress)
	return &sequence.Transaction{
		To:            recipient,
		Value:         amount,
		RevertOnError: true,
	}, nil
}

// waitForHash polls the relayer until the submitted transaction has an
// on-chain hash or a terminal failure status.
func (p *Provider) waitForHash(ctx context.Context, relayerID string) (string, error) {
	ticker := time.NewTicker(hashPollInterval)
	defer ticker.Stop()

	for {
		tx, err := p.relay.GetTransactionByHash(ctx, relayerID)
		if err != nil {
			return "", err
		}

		switch tx.Status {
		case relayer.StatusFailed, relayer.StatusCancelled:
			return "", fmt.Errorf("%w: transaction %s: %s", checkout.ErrRelayerUnavailable, tx.Status, tx.StatusMsg)
		}
		if tx.Hash != "" {
			return tx.Hash, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// personalSign runs the ERC-191 message flow: guardian confirmation, a
// relayer co-signature over the message digest, and the local session-key
// part combined into the final two-signer blob.
func (p *Provider) personalSign(ctx context.Context, params []json.RawMessage) (string, error) {
	if len(params) < 2 {
		return "", fmt.Errorf("%w: personal_sign needs [message, address]", checkout.ErrInvalidParams)
	}
	var rawMessage, address string
	if err := json.Unmarshal(params[0], &rawMessage); err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
	}
	if err := json.Unmarshal(params[1], &address); err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
	}

	_, wallet, err := p.registeredUser(ctx)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(address, wallet.Hex()) {
		return "", fmt.Errorf("%w: address %s is not the registered wallet", checkout.ErrInvalidParams, address)
	}

	message := decodeMessage(rawMessage)
	digest := common.BytesToHash(accounts.TextHash(message))

	err = guardian.ConfirmERC191Message(ctx, p.guardian, p.screen, guardian.MessagePayload{
		ChainID:       p.chain.ChainIDBig().String(),
		WalletAddress: wallet.Hex(),
		Message:       rawMessage,
	})
	if err != nil {
		return "", err
	}

	signature, err := p.combinedSignature(ctx, wallet, digest, func(ctx context.Context) (string, error) {
		return p.relay.SignMessage(ctx, wallet.Hex(), digest.Hex())
	})
	if err != nil {
		p.screen.CloseWindow()
		return "", err
	}
	return signature, nil
}

// signTypedData runs the EIP-712 flow over [address, typedData] params.
func (p *Provider) signTypedData(ctx context.Context, params []json.RawMessage) (string, error) {
	if len(params) < 2 {
		return "", fmt.Errorf("%w: eth_signTypedData needs [address, typedData]", checkout.ErrInvalidParams)
	}
	var address string
	if err := json.Unmarshal(params[0], &address); err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
	}
	typedDataJSON, err := typedDataBytes(params[1])
	if err != nil {
		return "", err
	}

	_, wallet, err := p.registeredUser(ctx)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(address, wallet.Hex()) {
		return "", fmt.Errorf("%w: address %s is not the registered wallet", checkout.ErrInvalidParams, address)
	}

	typedData, err := evm.ParseTypedData(typedDataJSON)
	if err != nil {
		return "", err
	}
	if err := evm.ValidateTypedDataChain(typedData, p.chain.ChainIDBig()); err != nil {
		return "", err
	}

	digest, err := evm.HashTypedData(typedData)
	if err != nil {
		return "", err
	}

	err = guardian.ConfirmMessage(ctx, p.guardian, p.screen, guardian.MessagePayload{
		ChainID:       p.chain.ChainIDBig().String(),
		WalletAddress: wallet.Hex(),
		TypedData:     typedDataJSON,
	})
	if err != nil {
		return "", err
	}

	signature, err := p.combinedSignature(ctx, wallet, digest, func(ctx context.Context) (string, error) {
		return p.relay.SignTypedData(ctx, wallet.Hex(), typedDataJSON)
	})
	if err != nil {
		p.screen.CloseWindow()
		return "", err
	}
	return signature, nil
}

// combinedSignature fetches the relayer's co-signature over the digest and
// merges in the local session-key part.
func (p *Provider) combinedSignature(ctx context.Context, wallet common.Address, digest common.Hash, fetch func(ctx context.Context) (string, error)) (string, error) {
	relayerBlob, err := p.relayerSignature(ctx, fetch)
	if err != nil {
		return "", err
	}

	combined, err := sequence.SignAndCombine(p.signer, p.chain.ChainIDBig(), wallet, digest, relayerBlob)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(combined), nil
}

// ejectionParams is the im_signEjectionTransaction request object.
type ejectionParams struct {
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
	Nonce string `json:"nonce"`
}

// ejectionResult is the pre-signed transaction the caller broadcasts itself.
type ejectionResult struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	ChainID string `json:"chainId"`
}

// signEjectionTransaction signs execute call data for the wallet without
// relayer involvement, letting the user exit through their own node.
func (p *Provider) signEjectionTransaction(ctx context.Context, params []json.RawMessage) (*ejectionResult, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("%w: im_signEjectionTransaction needs a transaction object", checkout.ErrInvalidParams)
	}
	var ejParams ejectionParams
	if err := json.Unmarshal(params[0], &ejParams); err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
	}
	if ejParams.To == "" || ejParams.Nonce == "" {
		return nil, fmt.Errorf("%w: ejection needs to and nonce", checkout.ErrInvalidParams)
	}

	_, wallet, err := p.registeredUser(ctx)
	if err != nil {
		return nil, err
	}

	nonce, ok := new(big.Int).SetString(ejParams.Nonce, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid nonce %q", checkout.ErrInvalidParams, ejParams.Nonce)
	}

	tx, err := decodeTransaction(transactionParams{
		To:    ejParams.To,
		Data:  ejParams.Data,
		Value: ejParams.Value,
	})
	if err != nil {
		return nil, err
	}

	callData, err := sequence.SignMetaTransactions(p.signer, p.chain.ChainIDBig(), wallet, nonce, []sequence.Transaction{tx})
	if err != nil {
		return nil, err
	}

	return &ejectionResult{
		To:      wallet.Hex(),
		Data:    hexutil.Encode(callData),
		ChainID: p.chain.ChainIDBig().String(),
	}, nil
}

// relayerSignature fetches and hex-decodes the relayer's signer parts.
func (p *Provider) relayerSignature(ctx context.Context, fetch func(ctx context.Context) (string, error)) ([]byte, error) {
	encoded, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	blob, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed relayer signature: %v", checkout.ErrInvalidSignature, err)
	}
	return blob, nil
}

// decodeTransaction converts wire params into a meta-transaction.
func decodeTransaction(params transactionParams) (sequence.Transaction, error) {
	tx := sequence.Transaction{
		To:            common.HexToAddress(params.To),
		RevertOnError: true,
	}

	if params.Value != "" {
		value, err := hexutil.DecodeBig(params.Value)
		if err != nil {
			return sequence.Transaction{}, fmt.Errorf("%w: invalid value %q", checkout.ErrInvalidParams, params.Value)
		}
		tx.Value = value
	}
	if params.Data != "" {
		data, err := hexutil.Decode(params.Data)
		if err != nil {
			return sequence.Transaction{}, fmt.Errorf("%w: invalid data %q", checkout.ErrInvalidParams, params.Data)
		}
		tx.Data = data
	}

	return tx, nil
}

// decodeMessage turns a personal_sign message param into raw bytes. Hex
// strings are decoded; anything else is signed as UTF-8 text.
func decodeMessage(raw string) []byte {
	if strings.HasPrefix(raw, "0x") {
		if decoded, err := hexutil.Decode(raw); err == nil {
			return decoded
		}
	}
	return []byte(raw)
}

// typedDataBytes accepts the typed data param either as a JSON object or as
// a JSON string containing serialized typed data.
func typedDataBytes(raw json.RawMessage) ([]byte, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidParams, err)
		}
		return []byte(unquoted), nil
	}
	return raw, nil
}
