package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(ErrInternalServer, cause)

	if err.Code != ErrInternalServer.Code {
		t.Errorf("expected code %s, got %s", ErrInternalServer.Code, err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to cause")
	}
	if !stderrors.Is(err, ErrInternalServer) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if stderrors.Is(err, ErrNotFound) {
		t.Error("expected wrapped error not to match a different sentinel")
	}
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrInvalidAllocation, "items exceed total")
	if err.Message != "items exceed total" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.StatusCode)
	}
	if ErrInvalidAllocation.Message == err.Message {
		t.Error("sentinel message must not be modified")
	}

	var appErr *AppError
	wrapped := fmt.Errorf("planning: %w", err)
	if !stderrors.As(wrapped, &appErr) || appErr.Code != "INVALID_ALLOCATION" {
		t.Error("expected errors.As to find the AppError")
	}
}
