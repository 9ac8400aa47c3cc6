package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_ImplementsError(t *testing.T) {
	var err error = NewCollectionNotFoundError()

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("APIError must satisfy errors.As")
	}
	if apiErr.Code != ErrCodeCollectionNotFound {
		t.Errorf("code = %q, want %s", apiErr.Code, ErrCodeCollectionNotFound)
	}
}

func TestAPIError_WrappedIsRecoverable(t *testing.T) {
	wrapped := fmt.Errorf("operation failed: %w", NewAccessDeniedError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("wrapped APIError must be recoverable with errors.As")
	}
	if apiErr.Code != ErrCodeAccessDenied {
		t.Errorf("code = %q, want %s", apiErr.Code, ErrCodeAccessDenied)
	}
}

// 検証失敗エラーは呼び出すたびに完全に同一のペイロードを返す。
// レスポンスの違いからスラグの存在やモードを推測させないための前提。
func TestNewShareVerifyFailedError_Stable(t *testing.T) {
	a := NewShareVerifyFailedError()
	b := NewShareVerifyFailedError()

	if *a != *b {
		t.Errorf("payloads differ: %+v vs %+v", a, b)
	}
}
