package service

import (
	"context"
	"errors"

	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
	"github.com/openbookapp/openbook-library/internal/store"
)

// classify turns a store failure into a domain error.
// Domain errors and context errors pass through unchanged.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, op)
	}
	return domainerrors.Storage(err, op)
}

// isNotFound reports whether err is a store or domain not-found error.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, domainerrors.ErrNotFound)
}
