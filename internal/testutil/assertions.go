package testutil

import (
	"errors"
	"testing"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/money"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertCents compares two amounts and prints both in major units on failure.
func AssertCents(t *testing.T, what string, expected, actual money.Cents) {
	t.Helper()

	if expected != actual {
		t.Errorf("%s: expected %s, got %s", what, expected, actual)
	}
}
