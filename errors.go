package checkout

import "errors"

// Sentinel errors for checkout and wallet operations.
var (
	// ErrNoItemRequirements indicates a balance check was requested with no
	// checkable item requirements.
	ErrNoItemRequirements = errors.New("checkout: no item requirements to check")

	// ErrGetBalanceFailed indicates the token balance fetch failed.
	ErrGetBalanceFailed = errors.New("checkout: failed to fetch token balances")

	// ErrGetERC721BalanceFailed indicates the ERC-721 ownership read failed.
	ErrGetERC721BalanceFailed = errors.New("checkout: failed to fetch ERC721 balances")

	// ErrUnauthorized indicates the caller has no registered wallet address.
	ErrUnauthorized = errors.New("checkout: unauthorised, no registered wallet")

	// ErrRejected indicates the user declined a confirmation request.
	ErrRejected = errors.New("checkout: transaction rejected by user")

	// ErrUnsupportedMethod indicates an RPC method the provider does not serve.
	ErrUnsupportedMethod = errors.New("checkout: method not supported")

	// ErrInvalidParams indicates malformed or missing request parameters.
	ErrInvalidParams = errors.New("checkout: invalid request parameters")

	// ErrInvalidTypedData indicates malformed EIP-712 typed data.
	ErrInvalidTypedData = errors.New("checkout: invalid typed data")

	// ErrInvalidSignature indicates a malformed multi-signature blob.
	ErrInvalidSignature = errors.New("checkout: invalid signature encoding")

	// ErrSigningFailed indicates the local signing operation failed.
	ErrSigningFailed = errors.New("checkout: signing failed")

	// ErrRelayerUnavailable indicates the relayer request failed outright.
	ErrRelayerUnavailable = errors.New("checkout: relayer unavailable")

	// ErrGuardianUnavailable indicates guardian evaluation failed.
	ErrGuardianUnavailable = errors.New("checkout: guardian evaluation failed")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("checkout: invalid private key")

	// ErrInvalidKeystore indicates an invalid or corrupted keystore file.
	ErrInvalidKeystore = errors.New("checkout: invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid BIP39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("checkout: invalid mnemonic phrase")

	// ErrInvalidNetwork indicates an unsupported network identifier.
	ErrInvalidNetwork = errors.New("checkout: invalid or unsupported network")
)

// ErrorCode classifies checkout errors for programmatic handling.
type ErrorCode string

const (
	// ErrCodeNoItemRequirements indicates an empty balance check request.
	ErrCodeNoItemRequirements ErrorCode = "NO_ITEM_REQUIREMENTS"

	// ErrCodeGetBalanceFailed indicates the token balance fetch failed.
	ErrCodeGetBalanceFailed ErrorCode = "GET_BALANCE_FAILED"

	// ErrCodeGetERC721BalanceFailed indicates the NFT ownership read failed.
	ErrCodeGetERC721BalanceFailed ErrorCode = "GET_ERC721_BALANCE_FAILED"

	// ErrCodeUnauthorized indicates no registered wallet for the caller.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeRejected indicates the user declined a confirmation.
	ErrCodeRejected ErrorCode = "TRANSACTION_REJECTED"

	// ErrCodeUnsupportedMethod indicates an unserved RPC method.
	ErrCodeUnsupportedMethod ErrorCode = "UNSUPPORTED_METHOD"

	// ErrCodeInvalidParams indicates malformed request parameters.
	ErrCodeInvalidParams ErrorCode = "INVALID_PARAMS"

	// ErrCodeParseFailed indicates a fatal decode of wire data.
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"

	// ErrCodeSigningFailed indicates the signing operation failed.
	ErrCodeSigningFailed ErrorCode = "SIGNING_FAILED"

	// ErrCodeRelayerError indicates a failed relayer call.
	ErrCodeRelayerError ErrorCode = "RELAYER_ERROR"

	// ErrCodeGuardianError indicates a failed guardian evaluation.
	ErrCodeGuardianError ErrorCode = "GUARDIAN_ERROR"

	// ErrCodeInternal indicates an unclassified internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// CheckoutError provides structured error information.
type CheckoutError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// NewCheckoutError creates a new CheckoutError with the given code and message.
func NewCheckoutError(code ErrorCode, message string, err error) *CheckoutError {
	return &CheckoutError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
// Lazily initializes the Details map if nil.
func (e *CheckoutError) WithDetails(key string, value interface{}) *CheckoutError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// JSON-RPC / EIP-1193 numeric error codes surfaced to dApp callers.
const (
	// RPCErrCodeUserRejected is the EIP-1193 "user rejected request" code.
	RPCErrCodeUserRejected = 4001

	// RPCErrCodeUnauthorized is the EIP-1193 "unauthorized" code.
	RPCErrCodeUnauthorized = 4100

	// RPCErrCodeUnsupportedMethod is the EIP-1193 "unsupported method" code.
	RPCErrCodeUnsupportedMethod = 4200

	// RPCErrCodeInvalidParams is the JSON-RPC invalid params code.
	RPCErrCodeInvalidParams = -32602

	// RPCErrCodeInternal is the JSON-RPC internal error code.
	RPCErrCodeInternal = -32603

	// RPCErrCodeParse is the JSON-RPC parse error code.
	RPCErrCodeParse = -32700
)

// RPCError is the JSON-RPC error shape returned to EIP-1193 callers.
type RPCError struct {
	// Code is the numeric JSON-RPC / EIP-1193 error code.
	Code int `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// NormalizeRPCError maps any error to the {code, message} JSON-RPC shape.
// CheckoutError codes are translated to their EIP-1193 equivalents; anything
// unclassified becomes an internal error.
func NormalizeRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var checkoutErr *CheckoutError
	if errors.As(err, &checkoutErr) {
		code := RPCErrCodeInternal
		switch checkoutErr.Code {
		case ErrCodeRejected:
			code = RPCErrCodeUserRejected
		case ErrCodeUnauthorized:
			code = RPCErrCodeUnauthorized
		case ErrCodeUnsupportedMethod:
			code = RPCErrCodeUnsupportedMethod
		case ErrCodeInvalidParams:
			code = RPCErrCodeInvalidParams
		case ErrCodeParseFailed:
			code = RPCErrCodeParse
		}
		return &RPCError{Code: code, Message: checkoutErr.Error()}
	}

	switch {
	case errors.Is(err, ErrRejected):
		return &RPCError{Code: RPCErrCodeUserRejected, Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return &RPCError{Code: RPCErrCodeUnauthorized, Message: err.Error()}
	case errors.Is(err, ErrUnsupportedMethod):
		return &RPCError{Code: RPCErrCodeUnsupportedMethod, Message: err.Error()}
	case errors.Is(err, ErrInvalidParams), errors.Is(err, ErrInvalidTypedData):
		return &RPCError{Code: RPCErrCodeInvalidParams, Message: err.Error()}
	}

	return &RPCError{Code: RPCErrCodeInternal, Message: err.Error()}
}
