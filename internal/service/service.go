// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// wrapErr annotates err with op. Errors that already carry an API meaning
// pass through; anything else is reported as a storage failure.
func wrapErr(op string, err error) error {
	if apperrors.IsAppError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperrors.Storage(fmt.Errorf("%s: %w", op, err))
}

func requireID(name, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperrors.InvalidInput(name + " is required")
	}
	return v, nil
}
