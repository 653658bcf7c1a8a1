package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// WrapError classifies a Firestore failure as a repositories.StoreError so callers
// treat it like any other backend. Cancellation passes through untouched and
// errors that already carry a classification are returned as is.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var classified repositories.RepositoryError
	if errors.As(err, &classified) {
		return err
	}
	var counterErr *repositories.CounterError
	if errors.As(err, &counterErr) {
		return err
	}

	storeErr := &repositories.StoreError{Op: op, Err: err}
	switch code {
	case codes.NotFound:
		storeErr.NotFound = true
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted, codes.OutOfRange:
		storeErr.Conflict = true
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		storeErr.Unavailable = true
	}
	return storeErr
}
