package storage

import (
	stderrors "errors"
	"fmt"

	"github.com/R3E-Network/tracker/internal/errors"
)

// Translate maps storage sentinels onto service errors. what names the entity,
// e.g. "project 42".
func Translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, ErrNotFound):
		return errors.NotFound("%s not found", what)
	case stderrors.Is(err, ErrConflict):
		return errors.Conflict("%s already exists", what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
