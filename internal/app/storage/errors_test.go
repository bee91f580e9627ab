package storage

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/R3E-Network/tracker/internal/errors"
)

func TestTranslate(t *testing.T) {
	if Translate(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}

	err := Translate(fmt.Errorf("get: %w", ErrNotFound), "project p1")
	if errors.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%v)", errors.HTTPStatus(err), err)
	}

	err = Translate(ErrConflict, "user bob")
	if errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("expected 409, got %d", errors.HTTPStatus(err))
	}

	err = Translate(fmt.Errorf("connection refused"), "bug b1")
	if errors.GetServiceError(err) != nil {
		t.Fatalf("driver errors should stay untyped: %v", err)
	}
}
