package checkout

import (
	"errors"
	"fmt"
	"testing"
)

func TestCheckoutError(t *testing.T) {
	base := errors.New("boom")
	err := NewCheckoutError(ErrCodeGetBalanceFailed, "balance fetch failed", base)

	if err.Error() != "balance fetch failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("Unwrap chain lost the cause")
	}

	err.WithDetails("owner", "0xabc")
	if err.Details["owner"] != "0xabc" {
		t.Error("WithDetails did not record the detail")
	}
}

func TestCheckoutError_NoCause(t *testing.T) {
	err := NewCheckoutError(ErrCodeInternal, "something failed", nil)
	if err.Error() != "something failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNormalizeRPCError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"rejected sentinel", ErrRejected, RPCErrCodeUserRejected},
		{"unauthorized sentinel", ErrUnauthorized, RPCErrCodeUnauthorized},
		{"unsupported method", ErrUnsupportedMethod, RPCErrCodeUnsupportedMethod},
		{"invalid params", ErrInvalidParams, RPCErrCodeInvalidParams},
		{"invalid typed data", ErrInvalidTypedData, RPCErrCodeInvalidParams},
		{"wrapped sentinel", fmt.Errorf("context: %w", ErrRejected), RPCErrCodeUserRejected},
		{"checkout error rejected", NewCheckoutError(ErrCodeRejected, "declined", nil), RPCErrCodeUserRejected},
		{"checkout error unauthorized", NewCheckoutError(ErrCodeUnauthorized, "no wallet", nil), RPCErrCodeUnauthorized},
		{"checkout error parse", NewCheckoutError(ErrCodeParseFailed, "bad blob", nil), RPCErrCodeParse},
		{"checkout error other", NewCheckoutError(ErrCodeRelayerError, "relayer down", nil), RPCErrCodeInternal},
		{"generic error", errors.New("boom"), RPCErrCodeInternal},
		{"already an RPCError", &RPCError{Code: 4200, Message: "nope"}, RPCErrCodeUnsupportedMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRPCError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("NormalizeRPCError(nil) = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("NormalizeRPCError returned nil for non-nil error")
			}
			if got.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", got.Code, tt.wantCode)
			}
			if got.Message == "" {
				t.Error("message is empty")
			}
		})
	}
}
