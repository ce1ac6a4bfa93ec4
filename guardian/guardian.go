// Package guardian defines the transaction-evaluation collaborator contracts.
// A guardian inspects pending transactions and messages and decides whether
// the user must confirm them on a separate screen before signing proceeds.
package guardian

import (
	"context"
	"encoding/json"
	"fmt"

	checkout "github.com/lumenlabs/checkout-go"
)

// EvaluationResult is the guardian's verdict on a pending operation.
type EvaluationResult struct {
	// ConfirmationRequired reports whether the user must approve the
	// operation on the confirmation screen before it may proceed.
	ConfirmationRequired bool

	// TransactionID identifies a pending transaction evaluation.
	TransactionID string

	// MessageID identifies a pending message evaluation.
	MessageID string
}

// TransactionPayload describes a meta-transaction submitted for evaluation.
type TransactionPayload struct {
	ChainID       string          `json:"chainId"`
	WalletAddress string          `json:"walletAddress"`
	To            string          `json:"to"`
	Data          string          `json:"data"`
	Nonce         string          `json:"nonce"`
	FeeOptions    json.RawMessage `json:"feeOptions,omitempty"`
}

// MessagePayload describes a typed-data or personal-message signing request
// submitted for evaluation.
type MessagePayload struct {
	ChainID       string          `json:"chainId"`
	WalletAddress string          `json:"walletAddress"`
	TypedData     json.RawMessage `json:"typedData,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// Evaluator decides whether pending operations need user confirmation.
type Evaluator interface {
	// EvaluateTransaction evaluates a meta-transaction before signing.
	EvaluateTransaction(ctx context.Context, payload TransactionPayload) (EvaluationResult, error)

	// EvaluateMessage evaluates an EIP-712 typed-data signing request.
	EvaluateMessage(ctx context.Context, payload MessagePayload) (EvaluationResult, error)

	// EvaluateERC191Message evaluates a personal-message signing request.
	EvaluateERC191Message(ctx context.Context, payload MessagePayload) (EvaluationResult, error)
}

// ConfirmationScreen is the surface the user approves or rejects pending
// operations on.
type ConfirmationScreen interface {
	// Loading opens the screen in a loading state ahead of evaluation so
	// popup blockers attribute the window to the user gesture.
	Loading()

	// RequestConfirmation asks the user to approve the identified pending
	// operation. It returns true when the user confirmed.
	RequestConfirmation(ctx context.Context, id string) (bool, error)

	// CloseWindow dismisses the screen.
	CloseWindow()
}

// Confirm runs evaluate and, when confirmation is required, drives screen
// through the approve/reject round trip. The screen is closed on every exit
// path except a successful confirmation, which leaves it to the caller's
// signing flow to dismiss once that flow settles.
func Confirm(ctx context.Context, screen ConfirmationScreen, evaluate func() (EvaluationResult, string, error)) error {
	screen.Loading()

	result, id, err := evaluate()
	if err != nil {
		screen.CloseWindow()
		return fmt.Errorf("%w: %v", checkout.ErrGuardianUnavailable, err)
	}

	if !result.ConfirmationRequired {
		screen.CloseWindow()
		return nil
	}

	confirmed, err := screen.RequestConfirmation(ctx, id)
	if err != nil {
		screen.CloseWindow()
		return fmt.Errorf("%w: %v", checkout.ErrGuardianUnavailable, err)
	}
	if !confirmed {
		screen.CloseWindow()
		return checkout.NewCheckoutError(checkout.ErrCodeRejected, "user rejected the request", checkout.ErrRejected)
	}

	return nil
}

// ConfirmTransaction evaluates a meta-transaction and obtains user
// confirmation when the guardian requires it.
func ConfirmTransaction(ctx context.Context, evaluator Evaluator, screen ConfirmationScreen, payload TransactionPayload) error {
	return Confirm(ctx, screen, func() (EvaluationResult, string, error) {
		result, err := evaluator.EvaluateTransaction(ctx, payload)
		return result, result.TransactionID, err
	})
}

// ConfirmMessage evaluates a typed-data signing request and obtains user
// confirmation when the guardian requires it.
func ConfirmMessage(ctx context.Context, evaluator Evaluator, screen ConfirmationScreen, payload MessagePayload) error {
	return Confirm(ctx, screen, func() (EvaluationResult, string, error) {
		result, err := evaluator.EvaluateMessage(ctx, payload)
		return result, result.MessageID, err
	})
}

// ConfirmERC191Message evaluates a personal-message signing request and
// obtains user confirmation when the guardian requires it.
func ConfirmERC191Message(ctx context.Context, evaluator Evaluator, screen ConfirmationScreen, payload MessagePayload) error {
	return Confirm(ctx, screen, func() (EvaluationResult, string, error) {
		result, err := evaluator.EvaluateERC191Message(ctx, payload)
		return result, result.MessageID, err
	})
}
