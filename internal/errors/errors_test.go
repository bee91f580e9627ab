package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		status int
		code   ErrorCode
	}{
		{"validation", Validation("title %s", "missing"), http.StatusBadRequest, ErrCodeValidation},
		{"not-found", NotFound("user %s", "bob"), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict, ErrCodeConflict},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, ErrCodeForbidden},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"token", InvalidToken(nil), http.StatusUnauthorized, ErrCodeInvalidToken},
		{"rate", RateLimitExceeded(5, "1s"), http.StatusTooManyRequests, ErrCodeRateLimited},
		{"internal", Internal("boom", fmt.Errorf("db down")), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status {
				t.Fatalf("status = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
			if tt.err.Code != tt.code {
				t.Fatalf("code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}
}

func TestGetServiceErrorThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("load project: %w", NotFound("project %s", "x"))

	se := GetServiceError(wrapped)
	if se == nil || se.Code != ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND service error, got %v", se)
	}
	if !IsNotFound(wrapped) {
		t.Fatalf("IsNotFound should see through wrapping")
	}
	if !stderrors.Is(wrapped, NotFound("")) {
		t.Fatalf("errors.Is should match by code")
	}
	if HTTPStatus(wrapped) != http.StatusNotFound {
		t.Fatalf("HTTPStatus = %d", HTTPStatus(wrapped))
	}
	if HTTPStatus(fmt.Errorf("plain")) != http.StatusInternalServerError {
		t.Fatalf("plain errors should map to 500")
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := Validation("bad")
	withDetail := base.WithDetails("field", "title")

	if len(base.Details) != 0 {
		t.Fatalf("original mutated: %v", base.Details)
	}
	if withDetail.Details["field"] != "title" {
		t.Fatalf("detail missing: %v", withDetail.Details)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Internal("query failed", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("cause not reachable through Unwrap")
	}
}
