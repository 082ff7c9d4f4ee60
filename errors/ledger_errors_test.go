package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := NewErrorf(ErrCodeAccountNotFound, "sender account %s does not exist", "alice")

	if !Is(err, ErrAccountNotFound) {
		t.Error("detailed error should match the canonical instance by code")
	}
	if Is(err, ErrAccountExists) {
		t.Error("different codes must not match")
	}

	wrapped := fmt.Errorf("loading party: %w", err)
	if !Is(wrapped, ErrAccountNotFound) {
		t.Error("matching should see through wrap chains")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrInsufficientFunds); got != ErrCodeInsufficientFunds {
		t.Errorf("CodeOf canonical = %s", got)
	}
	wrapped := fmt.Errorf("outer: %w", ErrRateLimited)
	if got := CodeOf(wrapped); got != ErrCodeRateLimited {
		t.Errorf("CodeOf wrapped = %s", got)
	}
	if got := CodeOf(stderrors.New("boom")); got != ErrCodeInternal {
		t.Errorf("CodeOf unknown = %s, want internal_error", got)
	}
	if got := CodeOf(nil); got != ErrCodeInternal {
		t.Errorf("CodeOf nil = %s, want internal_error", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if ErrUnauthorized.Error() != ErrMsgUnauthorized {
		t.Errorf("Error() = %q", ErrUnauthorized.Error())
	}
}
